package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/storage/v1"

	"github.com/vietdv277/bucketinv/pkg/provider"
	"github.com/vietdv277/bucketinv/pkg/types"
)

// maxListResults is the largest page Cloud Storage returns from objects.list
const maxListResults = 1000

// StorageProvider implements the StorageProvider interface for Cloud Storage
type StorageProvider struct {
	svc     *storage.Service
	project string
	region  string
}

var _ provider.StorageProvider = (*StorageProvider)(nil)

// NewStorageProvider creates a Cloud Storage provider listing the buckets of project
func NewStorageProvider(svc *storage.Service, project, region string) *StorageProvider {
	return &StorageProvider{
		svc:     svc,
		project: project,
		region:  region,
	}
}

// ListBuckets returns every bucket in the configured project
func (p *StorageProvider) ListBuckets(ctx context.Context) ([]types.Bucket, error) {
	if p.project == "" {
		return nil, fmt.Errorf("no GCP project set: %w", provider.ErrNotConfigured)
	}

	var buckets []types.Bucket
	err := p.svc.Buckets.List(p.project).Pages(ctx, func(page *storage.Buckets) error {
		for _, b := range page.Items {
			buckets = append(buckets, p.toBucket(b))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", classify(err))
	}

	return buckets, nil
}

// ListPage fetches one objects.list page, resuming from token when set
func (p *StorageProvider) ListPage(ctx context.Context, bucket, token string, maxKeys int32) (*types.ListingPage, error) {
	if maxKeys <= 0 || maxKeys > maxListResults {
		maxKeys = maxListResults
	}

	call := p.svc.Objects.List(bucket).Context(ctx).MaxResults(int64(maxKeys))
	if token != "" {
		call = call.PageToken(token)
	}

	objects, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list objects in %s: %w", bucket, classify(err))
	}

	page := &types.ListingPage{
		Records:   make([]types.ObjectRecord, 0, len(objects.Items)),
		NextToken: objects.NextPageToken,
		Truncated: objects.NextPageToken != "",
	}

	for _, obj := range objects.Items {
		updated, err := parseTime(obj.Updated)
		if err != nil {
			return nil, fmt.Errorf("object %s/%s: %w", bucket, obj.Name, err)
		}
		page.Records = append(page.Records, types.ObjectRecord{
			Bucket:       bucket,
			Key:          obj.Name,
			LastModified: updated,
			Size:         int64(obj.Size),
		})
	}

	return page, nil
}

func (p *StorageProvider) toBucket(b *storage.Bucket) types.Bucket {
	bucket := types.Bucket{
		Name:     b.Name,
		Region:   strings.ToLower(b.Location),
		Provider: "gcp",
	}
	if bucket.Region == "" {
		bucket.Region = p.region
	}
	if created, err := parseTime(b.TimeCreated); err == nil {
		bucket.CreatedAt = created
	}
	return bucket
}

// parseTime parses the RFC 3339 timestamps of the JSON API
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// statusErrors maps JSON API status codes to provider sentinel errors
var statusErrors = map[int]error{
	http.StatusNotFound:        provider.ErrNotFound,
	http.StatusForbidden:       provider.ErrPermissionDenied,
	http.StatusUnauthorized:    provider.ErrAuthFailed,
	http.StatusTooManyRequests: provider.ErrThrottled,
}

// classify wraps googleapi errors with the matching provider sentinel
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	sentinel, ok := statusErrors[apiErr.Code]
	if !ok {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
