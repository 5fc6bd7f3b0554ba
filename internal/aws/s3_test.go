package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/bucketinv/pkg/provider"
)

type mockS3Client struct {
	ListBucketsFunc   func(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	ListObjectsV2Func func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

func (m *mockS3Client) ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	if m.ListBucketsFunc == nil {
		return nil, errors.New("ListBuckets not mocked")
	}
	return m.ListBucketsFunc(ctx, params, optFns...)
}

func (m *mockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.ListObjectsV2Func == nil {
		return nil, errors.New("ListObjectsV2 not mocked")
	}
	return m.ListObjectsV2Func(ctx, params, optFns...)
}

type mockSTSClient struct {
	GetCallerIdentityFunc func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

func (m *mockSTSClient) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return m.GetCallerIdentityFunc(ctx, params, optFns...)
}

func TestS3Provider_ListPage(t *testing.T) {
	modified := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

	var got *s3.ListObjectsV2Input
	client := &mockS3Client{
		ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			got = params
			return &s3.ListObjectsV2Output{
				Contents: []s3types.Object{
					{Key: aws.String("a.txt"), LastModified: aws.Time(modified), Size: aws.Int64(10)},
					{Key: aws.String("dir/b.txt"), LastModified: aws.Time(modified), Size: aws.Int64(0)},
				},
				IsTruncated:           aws.Bool(true),
				NextContinuationToken: aws.String("next-token"),
			}, nil
		},
	}

	page, err := NewS3Provider(client, "us-east-1").ListPage(context.Background(), "logs", "prev-token", 2)
	require.NoError(t, err)

	assert.Equal(t, "logs", aws.ToString(got.Bucket))
	assert.Equal(t, "prev-token", aws.ToString(got.ContinuationToken))
	assert.Equal(t, int32(2), aws.ToInt32(got.MaxKeys))

	require.Len(t, page.Records, 2)
	assert.True(t, page.HasContents())
	assert.True(t, page.Truncated)
	assert.Equal(t, "next-token", page.NextToken)
	assert.Equal(t, "logs", page.Records[0].Bucket)
	assert.Equal(t, "a.txt", page.Records[0].Key)
	assert.Equal(t, modified, page.Records[0].LastModified)
	assert.Equal(t, int64(10), page.Records[0].Size)
	assert.Equal(t, "dir/b.txt", page.Records[1].Key)
}

func TestS3Provider_ListPageRequest(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		maxKeys   int32
		wantKeys  int32
		wantToken *string
	}{
		{name: "first page", maxKeys: 500, wantKeys: 500},
		{name: "resumed", token: "abc", maxKeys: 1, wantKeys: 1, wantToken: aws.String("abc")},
		{name: "zero uses service max", maxKeys: 0, wantKeys: 1000},
		{name: "clamped to service max", maxKeys: 5000, wantKeys: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *s3.ListObjectsV2Input
			client := &mockS3Client{
				ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
					got = params
					return &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}, nil
				},
			}

			page, err := NewS3Provider(client, "").ListPage(context.Background(), "b", tt.token, tt.maxKeys)
			require.NoError(t, err)
			assert.False(t, page.Truncated)
			assert.False(t, page.HasContents())

			assert.Equal(t, tt.wantKeys, aws.ToInt32(got.MaxKeys))
			assert.Equal(t, tt.wantToken, got.ContinuationToken)
		})
	}
}

func TestS3Provider_ListPageTruncatedWithoutToken(t *testing.T) {
	client := &mockS3Client{
		ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			return &s3.ListObjectsV2Output{IsTruncated: aws.Bool(true)}, nil
		},
	}

	_, err := NewS3Provider(client, "").ListPage(context.Background(), "b", "", 10)
	assert.ErrorContains(t, err, "without a continuation token")
}

func TestS3Provider_ErrorClassification(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{code: "NoSuchBucket", want: provider.ErrNotFound},
		{code: "AccessDenied", want: provider.ErrPermissionDenied},
		{code: "ExpiredToken", want: provider.ErrAuthFailed},
		{code: "InvalidAccessKeyId", want: provider.ErrAuthFailed},
		{code: "SlowDown", want: provider.ErrThrottled},
		{code: "ThrottlingException", want: provider.ErrThrottled},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			apiErr := &smithy.GenericAPIError{Code: tt.code, Message: "boom"}
			client := &mockS3Client{
				ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
					return nil, apiErr
				},
			}

			_, err := NewS3Provider(client, "").ListPage(context.Background(), "b", "", 10)
			require.ErrorIs(t, err, tt.want)

			var got smithy.APIError
			require.ErrorAs(t, err, &got)
			assert.Equal(t, tt.code, got.ErrorCode())
		})
	}
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	plain := errors.New("connection reset")
	assert.Same(t, plain, classify(plain))

	unknown := &smithy.GenericAPIError{Code: "InternalError"}
	assert.Equal(t, error(unknown), classify(unknown))
}

func TestS3Provider_ListBuckets(t *testing.T) {
	created := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)

	var calls int
	client := &mockS3Client{
		ListBucketsFunc: func(ctx context.Context, params *s3.ListBucketsInput, _ ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
			calls++
			if params.ContinuationToken == nil {
				return &s3.ListBucketsOutput{
					Buckets: []s3types.Bucket{
						{Name: aws.String("alpha"), BucketRegion: aws.String("eu-west-1"), CreationDate: aws.Time(created)},
					},
					ContinuationToken: aws.String("page-2"),
				}, nil
			}
			assert.Equal(t, "page-2", aws.ToString(params.ContinuationToken))
			return &s3.ListBucketsOutput{
				Buckets: []s3types.Bucket{{Name: aws.String("beta")}},
			}, nil
		},
	}

	buckets, err := NewS3Provider(client, "us-east-1").ListBuckets(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	require.Len(t, buckets, 2)
	assert.Equal(t, "alpha", buckets[0].Name)
	assert.Equal(t, "eu-west-1", buckets[0].Region)
	assert.Equal(t, created, buckets[0].CreatedAt)
	assert.Equal(t, "aws", buckets[0].Provider)
	assert.Equal(t, "beta", buckets[1].Name)
	assert.Equal(t, "us-east-1", buckets[1].Region)
}

func TestS3Provider_ListBucketsError(t *testing.T) {
	client := &mockS3Client{
		ListBucketsFunc: func(ctx context.Context, params *s3.ListBucketsInput, _ ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "AccessDenied"}
		},
	}

	_, err := NewS3Provider(client, "").ListBuckets(context.Background())
	require.ErrorIs(t, err, provider.ErrPermissionDenied)
	assert.ErrorContains(t, err, "failed to list buckets")
}

func TestGetCallerIdentity(t *testing.T) {
	client := &mockSTSClient{
		GetCallerIdentityFunc: func(ctx context.Context, params *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
			return &sts.GetCallerIdentityOutput{
				Account: aws.String("123456789012"),
				Arn:     aws.String("arn:aws:iam::123456789012:user/inventory"),
				UserId:  aws.String("AIDAEXAMPLE"),
			}, nil
		},
	}

	identity, err := GetCallerIdentity(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, &CallerIdentity{
		Account: "123456789012",
		Arn:     "arn:aws:iam::123456789012:user/inventory",
		UserID:  "AIDAEXAMPLE",
	}, identity)
}

func TestGetCallerIdentityError(t *testing.T) {
	client := &mockSTSClient{
		GetCallerIdentityFunc: func(ctx context.Context, params *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "ExpiredToken"}
		},
	}

	_, err := GetCallerIdentity(context.Background(), client)
	require.ErrorIs(t, err, provider.ErrAuthFailed)
}

func TestClientOptions(t *testing.T) {
	c := &Client{}
	for _, opt := range []ClientOption{
		WithProfile("prod"),
		WithRegion("ap-southeast-1"),
		WithEndpoint("http://localhost:9000"),
		WithPathStyle(true),
	} {
		opt(c)
	}

	assert.Equal(t, "prod", c.Profile())
	assert.Equal(t, "ap-southeast-1", c.Region())
	assert.Equal(t, "http://localhost:9000", c.endpoint)
	assert.True(t, c.pathStyle)
}
