package minio

import (
	"context"
	"errors"
	"fmt"

	mc "github.com/minio/minio-go/v7"

	"github.com/vietdv277/bucketinv/pkg/provider"
	"github.com/vietdv277/bucketinv/pkg/types"
)

// maxListKeys is the largest page returned by ListObjectsV2
const maxListKeys = 1000

// Provider implements the StorageProvider interface for MinIO and other
// S3-compatible servers
type Provider struct {
	core   *mc.Core
	region string
}

var _ provider.StorageProvider = (*Provider)(nil)

// NewProvider creates a new MinIO storage provider
func NewProvider(core *mc.Core, region string) *Provider {
	return &Provider{
		core:   core,
		region: region,
	}
}

// ListBuckets returns all buckets visible to the current credentials
func (p *Provider) ListBuckets(ctx context.Context) ([]types.Bucket, error) {
	infos, err := p.core.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", classify(err))
	}

	buckets := make([]types.Bucket, 0, len(infos))
	for _, info := range infos {
		buckets = append(buckets, types.Bucket{
			Name:      info.Name,
			Region:    p.region,
			CreatedAt: info.CreationDate.UTC(),
			Provider:  "minio",
		})
	}

	return buckets, nil
}

// ListPage fetches one ListObjectsV2 page, resuming from token when set
func (p *Provider) ListPage(ctx context.Context, bucket, token string, maxKeys int32) (*types.ListingPage, error) {
	if maxKeys <= 0 || maxKeys > maxListKeys {
		maxKeys = maxListKeys
	}

	// Core.ListObjectsV2 takes no context
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := p.core.ListObjectsV2(bucket, "", "", token, "", int(maxKeys))
	if err != nil {
		return nil, fmt.Errorf("failed to list objects in %s: %w", bucket, classify(err))
	}

	page := &types.ListingPage{
		Records:   make([]types.ObjectRecord, 0, len(result.Contents)),
		NextToken: result.NextContinuationToken,
		Truncated: result.IsTruncated,
	}

	for _, obj := range result.Contents {
		page.Records = append(page.Records, types.ObjectRecord{
			Bucket:       bucket,
			Key:          obj.Key,
			LastModified: obj.LastModified.UTC(),
			Size:         obj.Size,
		})
	}

	if page.Truncated && page.NextToken == "" {
		return nil, fmt.Errorf("listing of %s is truncated without a continuation token", bucket)
	}

	return page, nil
}

// errorCodes maps S3 error codes to provider sentinel errors
var errorCodes = map[string]error{
	"NoSuchBucket":          provider.ErrNotFound,
	"AccessDenied":          provider.ErrPermissionDenied,
	"AllAccessDisabled":     provider.ErrPermissionDenied,
	"InvalidAccessKeyId":    provider.ErrAuthFailed,
	"SignatureDoesNotMatch": provider.ErrAuthFailed,
	"ExpiredToken":          provider.ErrAuthFailed,
	"SlowDown":              provider.ErrThrottled,
}

// classify wraps minio-go error responses with the matching provider sentinel
func classify(err error) error {
	if err == nil {
		return nil
	}

	var resp mc.ErrorResponse
	if !errors.As(err, &resp) {
		return err
	}

	sentinel, ok := errorCodes[resp.Code]
	if !ok {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
