package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the part of the S3 client used here.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage writes blobs below a bucket prefix.
type S3Storage struct {
	client    PutObjectAPI
	bucket    string
	keyPrefix string
}

// NewS3Storage resolves AWS credentials from the environment and targets
// rawURL, which is s3://bucket/prefix or an https bucket URL.
func NewS3Storage(ctx context.Context, rawURL string) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3StorageWithClient(s3.NewFromConfig(awsCfg), rawURL)
}

// NewS3StorageWithClient is NewS3Storage with an explicit client.
func NewS3StorageWithClient(client PutObjectAPI, rawURL string) (*S3Storage, error) {
	bucket, prefix, err := ParseS3URL(rawURL)
	if err != nil {
		return nil, err
	}
	return &S3Storage{client: client, bucket: bucket, keyPrefix: prefix}, nil
}

// ParseS3URL extracts bucket and key prefix from s3://bucket/prefix,
// virtual-hosted (bucket.s3.region.amazonaws.com/prefix) or path-style
// (s3.region.amazonaws.com/bucket/prefix) URLs.
func ParseS3URL(rawURL string) (bucket, prefix string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 URL: %w", err)
	}
	switch {
	case u.Scheme == "s3":
		bucket = u.Host
		prefix = strings.Trim(u.Path, "/")
	case strings.Contains(u.Host, ".s3.") || strings.Contains(u.Host, ".s3-"):
		bucket = strings.Split(u.Host, ".")[0]
		prefix = strings.Trim(u.Path, "/")
	default:
		parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
		bucket = parts[0]
		if len(parts) > 1 {
			prefix = parts[1]
		}
	}
	if bucket == "" {
		return "", "", fmt.Errorf("could not parse bucket name from URL: %s", rawURL)
	}
	return bucket, prefix, nil
}

// PutObject uploads body under prefix/key and returns its s3:// location.
func (s *S3Storage) PutObject(ctx context.Context, key string, body []byte, contentType, contentEncoding string) (string, error) {
	full := path.Join(s.keyPrefix, key)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(full),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if contentEncoding != "" {
		in.ContentEncoding = aws.String(contentEncoding)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, full), nil
}
