package provider

import (
	"context"
	"errors"

	"github.com/vietdv277/bucketinv/pkg/types"
)

// Common errors
var (
	ErrNotSupported     = errors.New("feature not supported by this provider")
	ErrNotFound         = errors.New("resource not found")
	ErrNotConfigured    = errors.New("provider not configured")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrThrottled        = errors.New("request throttled")
)

// StorageProvider defines the listing operations the inventory needs from an
// object store
type StorageProvider interface {
	// ListBuckets returns all buckets visible to the current credentials
	ListBuckets(ctx context.Context) ([]types.Bucket, error)

	// ListPage returns one page of objects in bucket. An empty token starts
	// at the beginning of the listing. maxKeys caps the number of records
	// returned; implementations may return fewer.
	ListPage(ctx context.Context, bucket, token string, maxKeys int32) (*types.ListingPage, error)
}
