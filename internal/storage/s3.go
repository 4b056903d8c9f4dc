// Package storage puts uploaded media into an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("object storage is not configured")

// Object is one immutable blob to store.
type Object struct {
	Key          string
	Data         []byte
	ContentType  string
	CacheControl string
	// Metadata is stored as x-amz-meta-* headers; the bucket's processing
	// pipeline reads the transformation request from it.
	Metadata map[string]string
}

// Config describes the bucket.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicURL is the base objects are served from (CDN or public bucket URL).
	PublicURL string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes objects with PutObject and returns their public URL.
type S3Store struct {
	client    putObjectAPI
	bucket    string
	publicURL string
}

// loadAWSConfig is a seam for tests.
var loadAWSConfig = config.LoadDefaultConfig

// NewS3Store builds the S3 client from static credentials.
func NewS3Store(ctx context.Context, c Config) (*S3Store, error) {
	if c.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}
	cfg, err := loadAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: c.Bucket, publicURL: publicBase(c)}, nil
}

func publicBase(c Config) string {
	switch {
	case c.PublicURL != "":
		return strings.TrimRight(c.PublicURL, "/")
	case c.Endpoint != "":
		return strings.TrimRight(c.Endpoint, "/") + "/" + c.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.Region)
	}
}

// Put uploads obj and returns its public URL.
func (s *S3Store) Put(ctx context.Context, obj Object) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(obj.Key),
		Body:          bytes.NewReader(obj.Data),
		ContentLength: aws.Int64(int64(len(obj.Data))),
		ContentType:   aws.String(obj.ContentType),
		Metadata:      obj.Metadata,
	}
	if obj.CacheControl != "" {
		in.CacheControl = aws.String(obj.CacheControl)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put object %s: %w", obj.Key, err)
	}
	return s.URL(obj.Key), nil
}

// URL returns the public URL of key.
func (s *S3Store) URL(key string) string {
	return s.publicURL + "/" + key
}

// Disabled rejects every upload. It stands in when no bucket is configured.
type Disabled struct{}

// Put always fails with ErrNotConfigured.
func (Disabled) Put(context.Context, Object) (string, error) {
	return "", ErrNotConfigured
}

// RandomKey returns folder/kind/yyyy/mm/dd/<uuid><ext>. Every call yields a
// new key; identical content is not deduplicated.
func RandomKey(folder, kind, ext string, now time.Time) string {
	key := fmt.Sprintf("%s/%d/%02d/%02d/%s%s", kind, now.Year(), now.Month(), now.Day(), uuid.New(), ext)
	if folder == "" {
		return key
	}
	return strings.Trim(folder, "/") + "/" + key
}
