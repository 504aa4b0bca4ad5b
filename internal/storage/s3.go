package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrObjectTooLarge is returned when an object exceeds the read limit
var ErrObjectTooLarge = errors.New("object exceeds size limit")

// S3ClientConfig holds configuration for S3Client
type S3ClientConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
}

// ObjectAPI is the subset of *s3.Client used by S3Client.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Client reads documents from S3-compatible storage (e.g., MinIO, RustFS)
type S3Client struct {
	client ObjectAPI
	bucket string
}

// NewS3Client creates a new S3Client with the given configuration
func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*S3Client, error) {
	// Create custom resolver for S3-compatible endpoints
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3ClientWithAPI(client, cfg.Bucket), nil
}

// NewS3ClientWithAPI wraps an existing object API.
func NewS3ClientWithAPI(api ObjectAPI, bucket string) *S3Client {
	return &S3Client{client: api, bucket: bucket}
}

// Object is a downloaded object
type Object struct {
	Body        []byte
	ContentType string
}

// GetObject downloads bucket/key, reading at most maxBytes. An empty bucket
// uses the configured default.
func (c *S3Client) GetObject(ctx context.Context, bucket, key string, maxBytes int64) (*Object, error) {
	if bucket == "" {
		bucket = c.bucket
	}

	output, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s/%s: %w", bucket, key, err)
	}
	defer output.Body.Close()

	if maxBytes > 0 && aws.ToInt64(output.ContentLength) > maxBytes {
		return nil, fmt.Errorf("%s/%s is %d bytes: %w", bucket, key, aws.ToInt64(output.ContentLength), ErrObjectTooLarge)
	}

	body, err := ReadLimited(output.Body, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s/%s: %w", bucket, key, err)
	}

	return &Object{
		Body:        body,
		ContentType: aws.ToString(output.ContentType),
	}, nil
}

// ReadLimited reads r fully, failing with ErrObjectTooLarge past maxBytes.
// A non-positive maxBytes disables the limit.
func ReadLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrObjectTooLarge
	}
	return data, nil
}

// ParseObjectURL splits s3://bucket/key. The bucket may be empty
// (s3:///key) to use the client default.
func ParseObjectURL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid object url: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("invalid object url %q: scheme must be s3", raw)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("invalid object url %q: missing key", raw)
	}
	return u.Host, key, nil
}
