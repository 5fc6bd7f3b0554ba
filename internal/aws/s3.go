package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vietdv277/bucketinv/pkg/provider"
	"github.com/vietdv277/bucketinv/pkg/types"
)

// maxListKeys is the largest page S3 returns from ListObjectsV2
const maxListKeys = 1000

// S3API defines the S3 operations used for inventory listing
type S3API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ S3API = (*s3.Client)(nil)

// S3Provider implements the StorageProvider interface for AWS S3
type S3Provider struct {
	client S3API
	region string
}

var _ provider.StorageProvider = (*S3Provider)(nil)

// NewS3Provider creates a new S3 storage provider
func NewS3Provider(client S3API, region string) *S3Provider {
	return &S3Provider{
		client: client,
		region: region,
	}
}

// ListBuckets returns all buckets visible to the current credentials
func (p *S3Provider) ListBuckets(ctx context.Context) ([]types.Bucket, error) {
	paginator := s3.NewListBucketsPaginator(p.client, &s3.ListBucketsInput{})

	var buckets []types.Bucket
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list buckets: %w", classify(err))
		}

		for _, b := range page.Buckets {
			buckets = append(buckets, toBucket(b, p.region))
		}
	}

	return buckets, nil
}

// ListPage fetches one ListObjectsV2 page, resuming from token when set
func (p *S3Provider) ListPage(ctx context.Context, bucket, token string, maxKeys int32) (*types.ListingPage, error) {
	if maxKeys <= 0 || maxKeys > maxListKeys {
		maxKeys = maxListKeys
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(maxKeys),
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}

	output, err := p.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects in %s: %w", bucket, classify(err))
	}

	page := &types.ListingPage{
		Records:   make([]types.ObjectRecord, 0, len(output.Contents)),
		NextToken: deref(output.NextContinuationToken),
		Truncated: aws.ToBool(output.IsTruncated),
	}

	for _, obj := range output.Contents {
		page.Records = append(page.Records, types.ObjectRecord{
			Bucket:       bucket,
			Key:          aws.ToString(obj.Key),
			LastModified: aws.ToTime(obj.LastModified),
			Size:         aws.ToInt64(obj.Size),
		})
	}

	if page.Truncated && page.NextToken == "" {
		return nil, fmt.Errorf("listing of %s is truncated without a continuation token", bucket)
	}

	return page, nil
}

// toBucket converts an S3 Bucket to our Bucket type
func toBucket(b s3types.Bucket, fallbackRegion string) types.Bucket {
	bucket := types.Bucket{
		Name:     deref(b.Name),
		Region:   deref(b.BucketRegion),
		Provider: "aws",
	}

	if bucket.Region == "" {
		bucket.Region = fallbackRegion
	}

	if b.CreationDate != nil {
		bucket.CreatedAt = *b.CreationDate
	}

	return bucket
}
