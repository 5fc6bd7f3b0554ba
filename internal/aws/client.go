package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Client wraps AWS SDK clients
type Client struct {
	S3        *s3.Client
	STS       *sts.Client
	profile   string
	region    string
	endpoint  string
	pathStyle bool
}

// ClientOption allows customizing the AWS Client
type ClientOption func(*Client)

// WithProfile sets the AWS profile for the client
func WithProfile(profile string) ClientOption {
	return func(c *Client) {
		c.profile = profile
	}
}

// WithRegion sets the AWS region for the client
func WithRegion(region string) ClientOption {
	return func(c *Client) {
		c.region = region
	}
}

// WithEndpoint points the S3 client at an S3-compatible endpoint
// such as MinIO or LocalStack
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithPathStyle enables path-style bucket addressing
func WithPathStyle(pathStyle bool) ClientOption {
	return func(c *Client) {
		c.pathStyle = pathStyle
	}
}

// NewClient creates a new AWS Client with the given options
func NewClient(ctx context.Context, opts ...ClientOption) (*Client, error) {
	c := &Client{}

	// Apply options
	for _, opt := range opts {
		opt(c)
	}

	cfg, err := loadConfig(ctx, c.profile, c.region)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}
	if c.region == "" {
		c.region = cfg.Region
	}

	c.S3 = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.endpoint != "" {
			o.BaseEndpoint = aws.String(c.endpoint)
		}
		o.UsePathStyle = c.pathStyle
	})
	c.STS = sts.NewFromConfig(cfg)

	return c, nil
}

// Profile returns the configured AWS profile
func (c *Client) Profile() string {
	return c.profile
}

// Region returns the configured AWS region
func (c *Client) Region() string {
	return c.region
}

// loadConfig resolves the shared AWS config for a profile and region.
// Empty values fall through to the SDK default chain.
func loadConfig(ctx context.Context, profile, region string) (aws.Config, error) {
	var configOpts []func(*config.LoadOptions) error

	if profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(profile))
	}

	if region != "" {
		configOpts = append(configOpts, config.WithRegion(region))
	}

	return config.LoadDefaultConfig(ctx, configOpts...)
}
