package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by HeadObject when the object does not exist.
// Any other head failure is a transport error and comes back as-is.
var ErrNotFound = errors.New("object not found")

// Client defines the interface for S3-compatible storage operations.
// Any client exposing these operations is interchangeable.
type Client interface {
	// Object operations
	HeadObject(ctx context.Context, bucket, key string) (ObjectInfo, error)
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts PutOptions) error

	// Multipart operations
	NewMultipartUpload(ctx context.Context, bucket, key string, opts PutOptions) (string, error)
	UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, reader io.Reader, size int64) (string, error)
	CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []CompletedPart) error
	AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error

	// PresignedGetURL produces a time-limited GET URL for an object.
	PresignedGetURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

// ObjectInfo contains object metadata.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
	ContentType  string
}

// PutOptions contains options for put operations.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
	Tags        map[string]string
}

// CompletedPart represents a completed multipart upload part.
type CompletedPart struct {
	PartNumber int
	ETag       string
}

// Config contains client configuration.
type Config struct {
	Region    string
	Endpoint  string
	Profile   string
	AccessKey string
	SecretKey string
	Secure    bool
}
