package minio

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	mc "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// defaultRegion signs requests when no region is set. A fixed region
// skips the bucket location lookup.
const defaultRegion = "us-east-1"

// Client wraps the minio-go core client
type Client struct {
	Core      *mc.Core
	endpoint  string
	region    string
	pathStyle bool
}

// ClientOption allows customizing the MinIO Client
type ClientOption func(*Client)

// WithRegion sets the region used to sign requests
func WithRegion(region string) ClientOption {
	return func(c *Client) {
		c.region = region
	}
}

// WithPathStyle forces path-style bucket addressing
func WithPathStyle(pathStyle bool) ClientOption {
	return func(c *Client) {
		c.pathStyle = pathStyle
	}
}

// NewClient creates a client for the S3-compatible server at endpoint.
// The endpoint may carry an http:// or https:// scheme; a bare host:port
// uses TLS. Credentials come from the MINIO_* and AWS_* environment
// variables, then the mc and AWS credential files.
func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	c := &Client{endpoint: endpoint, region: defaultRegion}
	for _, opt := range opts {
		opt(c)
	}
	if c.region == "" {
		c.region = defaultRegion
	}

	host, secure, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	lookup := mc.BucketLookupAuto
	if c.pathStyle {
		lookup = mc.BucketLookupPath
	}

	core, err := mc.NewCore(host, &mc.Options{
		Creds: credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvMinio{},
			&credentials.EnvAWS{},
			&credentials.FileMinioClient{},
			&credentials.FileAWSCredentials{},
		}),
		Secure:       secure,
		Region:       c.region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	c.Core = core

	return c, nil
}

// Endpoint returns the configured endpoint
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Region returns the signing region
func (c *Client) Region() string {
	return c.region
}

// parseEndpoint splits an endpoint into the host minio-go expects and
// whether it uses TLS
func parseEndpoint(endpoint string) (string, bool, error) {
	if endpoint == "" {
		return "", false, errors.New("MinIO endpoint is required")
	}
	if !strings.Contains(endpoint, "://") {
		return endpoint, true, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("invalid endpoint %q: unsupported scheme %q", endpoint, u.Scheme)
	}
}
