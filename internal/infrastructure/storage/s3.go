package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

// s3API is the subset of *s3.Client used by S3Client.
type s3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds configuration for an S3-compatible bucket.
// When AccountID is set and Endpoint is empty, the Cloudflare R2 endpoint
// for that account is used.
type S3Config struct {
	AccountID     string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	PublicBaseURL string
}

// EndpointURL resolves the API endpoint.
func (c S3Config) EndpointURL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if c.AccountID != "" {
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
	}
	return ""
}

// S3Client implements repository.ObjectStorage on the AWS SDK.
type S3Client struct {
	client     s3API
	bucket     string
	publicBase string
}

// Compile-time verification that S3Client implements repository.ObjectStorage.
var _ repository.ObjectStorage = (*S3Client)(nil)

// NewS3Client creates an S3-compatible client and checks bucket access.
func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	endpoint := cfg.EndpointURL()
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})

	publicBase := cfg.PublicBaseURL
	if publicBase == "" {
		if endpoint == "" {
			publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
		} else {
			publicBase = joinURL(endpoint, cfg.Bucket)
		}
	}

	return newS3ClientWithAPI(ctx, client, cfg.Bucket, publicBase)
}

// newS3ClientWithAPI is used for dependency injection in tests.
func newS3ClientWithAPI(ctx context.Context, client s3API, bucket, publicBase string) (*S3Client, error) {
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", repository.ErrBucketNotFound, bucket)
		}
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	return &S3Client{
		client:     client,
		bucket:     bucket,
		publicBase: publicBase,
	}, nil
}

// Put stores an object and returns its public URL.
func (c *S3Client) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := c.client.PutObject(ctx, input); err != nil {
		metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpPut, metrics.StatusError).Inc()
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpPut, metrics.StatusSuccess).Inc()
	return c.PublicURL(key), nil
}

// Download retrieves an object from the storage.
// Caller is responsible for closing the returned ReadCloser.
func (c *S3Client) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpGet, metrics.StatusError).Inc()
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpGet, metrics.StatusSuccess).Inc()
	return out.Body, nil
}

// Delete removes an object from the storage.
func (c *S3Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpDelete, metrics.StatusError).Inc()
		return fmt.Errorf("failed to delete object: %w", err)
	}
	metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpDelete, metrics.StatusSuccess).Inc()
	return nil
}

// PublicURL returns the public URL for key.
func (c *S3Client) PublicURL(key string) string {
	return joinURL(c.publicBase, key)
}

// ObjectKey derives the bucket-relative key from a stored URL.
func (c *S3Client) ObjectKey(rawURL string) (string, error) {
	return ExtractKey(c.publicBase, rawURL)
}

// Ping verifies the bucket is reachable.
func (c *S3Client) Ping(ctx context.Context) error {
	if _, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("failed to ping s3: %w", err)
	}
	return nil
}

// Bucket returns the configured bucket name.
func (c *S3Client) Bucket() string {
	return c.bucket
}
