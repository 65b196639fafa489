package objstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store implements Store against AWS S3 or an S3-compatible service
// with a custom endpoint.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// S3Options configures the S3 result store
type S3Options struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	Endpoint        string
}

// NewS3Store creates a new S3 result store. For S3-compatible services,
// set the Endpoint option.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("objstore: bucket is required")
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("objstore: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  opts.Bucket,
	}, nil
}

// Put stores an artifact and returns its s3:// location
func (s *S3Store) Put(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("objstore: failed to store %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// Delete removes a stored artifact. S3 deletes are idempotent, so a
// missing object is silently tolerated.
func (s *S3Store) Delete(ctx context.Context, location string) error {
	_, key, err := ParseLocation(location)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("objstore: failed to delete %s: %w", location, err)
	}
	return nil
}

// Sign produces a presigned GET URL for the artifact. URLs are signed
// on demand, never at storage time, so credential rotation takes effect
// immediately.
func (s *S3Store) Sign(ctx context.Context, location string, ttl time.Duration) (string, error) {
	_, key, err := ParseLocation(location)
	if err != nil {
		return "", err
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("objstore: failed to sign %s: %w", location, err)
	}
	return req.URL, nil
}

// ParseLocation splits an s3://bucket/key location into its parts
func ParseLocation(location string) (bucket, key string, err error) {
	trimmed, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", fmt.Errorf("objstore: not an s3 location: %s", location)
	}
	bucket, key, ok = strings.Cut(trimmed, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("objstore: malformed s3 location: %s", location)
	}
	return bucket, key, nil
}
