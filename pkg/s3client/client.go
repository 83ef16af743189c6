// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

// Package s3client wraps the AWS SDK with the handful of object-store
// primitives the file storage layer consumes: put, head, delete, batched
// delete, one-page list, and GET presigning. Everything is scoped to a
// single configured bucket.
package s3client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned by Head when no object exists at the key.
var ErrNotFound = errors.New("s3client: object not found")

// MaxBatchDeleteSize is the S3 DeleteObjects limit per request.
const MaxBatchDeleteSize = 1000

// Config holds configuration for connecting to an S3-compatible service.
type Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	PathStyle       bool   `mapstructure:"path_style"`
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("s3client: bucket is required")
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	return nil
}

// ObjectInfo describes a stored object's metadata.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// ObjectSummary is one entry of a list page.
type ObjectSummary struct {
	Key  string
	Size int64
}

// ListPage is a single page of a bucket listing. NextToken is opaque and
// must be passed back unmodified to fetch the following page.
type ListPage struct {
	Objects   []ObjectSummary
	NextToken string
	Truncated bool
}

// Client is a bucket-scoped S3 client.
type Client struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string

	// batchSize is lowered in tests to exercise chunking.
	batchSize int
}

// New creates a Client for the configured bucket.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Timeout: 5 * time.Minute,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	staticCreds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"",
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(staticCreds),
		awsconfig.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.UsePathStyle = cfg.PathStyle
		},
	}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	client := s3.NewFromConfig(awsCfg, opts...)

	log.Debug().
		Str("endpoint", cfg.Endpoint).
		Str("region", cfg.Region).
		Str("bucket", cfg.Bucket).
		Msg("Created S3 client")

	return &Client{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		batchSize: MaxBatchDeleteSize,
	}, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// Put writes body to key, overwriting any existing object. size must be the
// exact byte count of body.
func (c *Client) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	observe("put", err)
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// Head returns metadata for the object at key, or ErrNotFound.
func (c *Client) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	observe("head", err)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		return nil, fmt.Errorf("head object %q: %w", key, err)
	}

	info := &ObjectInfo{Key: key}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	if out.ETag != nil {
		info.ETag = *out.ETag
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return info, nil
}

// Delete removes the object at key. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	observe("delete", err)
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

// DeleteBatch removes keys using DeleteObjects, chunked to the store's batch
// limit. Each batch is submitted independently; the first failing batch
// aborts the loop so a caller can retry the whole set (deletes are
// idempotent).
func (c *Client) DeleteBatch(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += c.batchSize {
		end := min(start+c.batchSize, len(keys))

		objects := make([]s3types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, s3types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := c.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &s3types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		observe("delete_batch", err)
		if err != nil {
			return fmt.Errorf("delete batch [%d:%d]: %w", start, end, err)
		}
		// Quiet mode only reports per-key failures.
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return fmt.Errorf("delete batch [%d:%d]: %d keys failed, first %s: %s",
				start, end, len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	return nil
}

// List fetches one page of the bucket listing. Pass the previous page's
// NextToken to continue; an empty token starts from the beginning.
func (c *Client) List(ctx context.Context, token string) (*ListPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}

	out, err := c.client.ListObjectsV2(ctx, input)
	observe("list", err)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	page := &ListPage{
		Objects:   make([]ObjectSummary, 0, len(out.Contents)),
		Truncated: out.IsTruncated != nil && *out.IsTruncated,
	}
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		var size int64
		if obj.Size != nil {
			size = *obj.Size
		}
		page.Objects = append(page.Objects, ObjectSummary{Key: *obj.Key, Size: size})
	}
	if out.NextContinuationToken != nil {
		page.NextToken = *out.NextContinuationToken
	}
	return page, nil
}

// PresignGet returns a time-bounded GET URL for key. The URL is bound to the
// single object and expires after expiry; SigV4 caps expiry at 7 days.
func (c *Client) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) {
		po.Expires = expiry
	})
	observe("presign", err)
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", key, err)
	}
	return req.URL, nil
}

// isNotFound detects missing-object responses across S3-compatible
// providers, which disagree on the exact error code.
func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
