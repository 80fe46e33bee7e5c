// Package uploader transfers local files to the object store, choosing
// between single-shot and multipart by size and retrying transient
// failures with exponential backoff.
package uploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"s3up/internal/progress"
	"s3up/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	// MultipartThreshold is the size at which uploads switch to
	// multipart. The boundary value itself uses multipart.
	MultipartThreshold = 100 * 1024 * 1024

	// DefaultPartSize is the multipart chunk size. The S3 minimum for
	// non-final parts is 5 MiB.
	DefaultPartSize = 10 * 1024 * 1024

	defaultContentType = "application/octet-stream"
)

// Config contains uploader tuning. Zero values take defaults.
type Config struct {
	MultipartThreshold int64
	PartSize           int64
	MaxRetries         int
	InitialBackoff     time.Duration
	ContentType        string // override; empty means detect per file
	Metadata           map[string]string
	Tags               map[string]string
}

// Uploader performs transfers against one bucket.
type Uploader struct {
	client     storage.Client
	bucket     string
	cfg        Config
	logger     *zap.Logger
	sleep      func(time.Duration)
	detectMIME func(path string) string
}

// New creates an Uploader. Zero config fields are defaulted.
func New(client storage.Client, bucket string, cfg Config, logger *zap.Logger) *Uploader {
	if cfg.MultipartThreshold <= 0 {
		cfg.MultipartThreshold = MultipartThreshold
	}
	if cfg.PartSize <= 0 {
		cfg.PartSize = DefaultPartSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = maxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = initialRetryDelay
	}
	return &Uploader{
		client:     client,
		bucket:     bucket,
		cfg:        cfg,
		logger:     logger,
		sleep:      time.Sleep,
		detectMIME: detectContentType,
	}
}

// UseMultipart reports whether a file of the given size uploads in
// parts.
func (u *Uploader) UseMultipart(size int64) bool {
	return size >= u.cfg.MultipartThreshold
}

// Upload transfers localPath to key, streaming from disk. The transfer
// strategy is picked by size; transient failures are retried with the
// progress sink reset between attempts.
func (u *Uploader) Upload(ctx context.Context, localPath, key string, size int64, sink progress.Sink) error {
	op := func() error {
		if u.UseMultipart(size) {
			return u.uploadMultipart(ctx, localPath, key, size, sink)
		}
		return u.uploadSingle(ctx, localPath, key, size, sink)
	}
	return u.withRetry(op, sink, localPath)
}

// uploadSingle streams the whole file as one request body with an
// explicit content length. The payload is never held in memory.
func (u *Uploader) uploadSingle(ctx context.Context, localPath, key string, size int64, sink progress.Sink) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	sink.SetLength(size)
	sink.SetPosition(0)
	sink.SetMessage("Uploading " + filepath.Base(localPath))

	opts := u.putOptions(localPath)
	if err := u.client.PutObject(ctx, u.bucket, key, progress.NewReader(f, sink), size, opts); err != nil {
		return fmt.Errorf("failed to upload to s3://%s/%s: %w", u.bucket, key, err)
	}

	sink.SetPosition(size)
	sink.Finish()

	u.logger.Info("Uploaded",
		zap.String("path", localPath),
		zap.String("key", key),
		zap.Int64("size", size),
	)
	return nil
}

// uploadMultipart uploads the file in fixed-size parts with 1-based
// contiguous part numbers, then finalizes the session with the ordered
// (number, tag) pairs. One part buffer is in memory at a time. Any
// failure aborts the session before returning.
func (u *Uploader) uploadMultipart(ctx context.Context, localPath, key string, size int64, sink progress.Sink) error {
	opts := u.putOptions(localPath)

	uploadID, err := u.client.NewMultipartUpload(ctx, u.bucket, key, opts)
	if err != nil {
		return fmt.Errorf("failed to initiate multipart upload: %w", err)
	}

	u.logger.Debug("Multipart upload initiated",
		zap.String("key", key),
		zap.String("upload_id", uploadID),
		zap.Int64("part_size", u.cfg.PartSize),
	)

	sink.SetLength(size)
	sink.SetPosition(0)
	sink.SetMessage("Multipart upload " + filepath.Base(localPath))

	f, err := os.Open(localPath)
	if err != nil {
		u.abort(ctx, key, uploadID)
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	var (
		parts    []storage.CompletedPart
		uploaded int64
		buf      = make([]byte, u.cfg.PartSize)
	)
	for partNumber := 1; ; partNumber++ {
		n, err := io.ReadFull(f, buf)
		if err == io.EOF {
			break
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			u.abort(ctx, key, uploadID)
			return fmt.Errorf("failed to read part %d: %w", partNumber, err)
		}

		etag, err := u.client.UploadPart(ctx, u.bucket, key, uploadID, partNumber, bytes.NewReader(buf[:n]), int64(n))
		if err != nil {
			u.abort(ctx, key, uploadID)
			return fmt.Errorf("failed to upload part %d: %w", partNumber, err)
		}

		parts = append(parts, storage.CompletedPart{PartNumber: partNumber, ETag: etag})
		uploaded += int64(n)
		sink.SetPosition(uploaded)

		// A short read means the stream is exhausted.
		if int64(n) < u.cfg.PartSize {
			break
		}
	}

	if err := u.client.CompleteMultipartUpload(ctx, u.bucket, key, uploadID, parts); err != nil {
		u.abort(ctx, key, uploadID)
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	sink.Finish()

	u.logger.Info("Multipart upload completed",
		zap.String("path", localPath),
		zap.String("key", key),
		zap.Int64("size", size),
		zap.Int("parts", len(parts)),
	)
	return nil
}

// abort releases the server-side session. Abort failures are logged,
// not propagated: the transfer error is what the caller needs.
func (u *Uploader) abort(ctx context.Context, key, uploadID string) {
	if err := u.client.AbortMultipartUpload(ctx, u.bucket, key, uploadID); err != nil {
		u.logger.Warn("Failed to abort multipart upload",
			zap.String("key", key),
			zap.String("upload_id", uploadID),
			zap.Error(err),
		)
	}
}

func (u *Uploader) putOptions(localPath string) storage.PutOptions {
	ct := u.cfg.ContentType
	if ct == "" {
		ct = u.detectMIME(localPath)
	}
	return storage.PutOptions{
		ContentType: ct,
		Metadata:    u.cfg.Metadata,
		Tags:        u.cfg.Tags,
	}
}

func detectContentType(path string) string {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return defaultContentType
	}
	return m.String()
}
