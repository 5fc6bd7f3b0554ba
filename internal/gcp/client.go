package gcp

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/storage/v1"
)

// Client wraps the Cloud Storage JSON API service and the credentials it
// was built from.
type Client struct {
	Storage     *storage.Service
	credentials *google.Credentials
	project     string
	region      string
	endpoint    string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithProject sets the GCP project whose buckets are listed.
func WithProject(project string) Option {
	return func(c *Client) {
		c.project = project
	}
}

// WithRegion sets the location reported for buckets that carry none.
func WithRegion(region string) Option {
	return func(c *Client) {
		c.region = region
	}
}

// WithEndpoint points the client at a Cloud Storage compatible endpoint,
// such as fake-gcs-server. Requests to a custom endpoint are not
// authenticated.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// NewClient creates a new GCP client using Application Default Credentials (ADC).
// ADC is resolved in this order:
//  1. GOOGLE_APPLICATION_CREDENTIALS environment variable (service account key file)
//  2. gcloud user credentials (~/.config/gcloud/application_default_credentials.json)
//  3. Metadata server (when running on GCE / GKE / Cloud Run)
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}

	var clientOpts []option.ClientOption
	if c.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(c.endpoint), option.WithoutAuthentication())
	} else {
		creds, err := google.FindDefaultCredentials(ctx, storage.DevstorageReadOnlyScope)
		if err != nil {
			return nil, fmt.Errorf(
				"no GCP application default credentials found "+
					"(run 'gcloud auth application-default login'): %w",
				err,
			)
		}
		c.credentials = creds

		// Prefer the project from credentials when caller did not set one
		if c.project == "" && creds.ProjectID != "" {
			c.project = creds.ProjectID
		}
		clientOpts = append(clientOpts, option.WithTokenSource(creds.TokenSource))
	}

	svc, err := storage.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage service: %w", err)
	}
	c.Storage = svc

	return c, nil
}

// Project returns the configured GCP project ID.
func (c *Client) Project() string {
	return c.project
}

// Region returns the configured GCP region.
func (c *Client) Region() string {
	return c.region
}

// Credentials returns the ADC credentials, or nil for a custom endpoint.
func (c *Client) Credentials() *google.Credentials {
	return c.credentials
}
