// Package compare classifies a local file against its remote object.
package compare

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"s3up/internal/storage"

	"go.uber.org/zap"
)

// Result classifies a local file against a remote object. It is
// computed fresh per file and never cached across files.
type Result int

const (
	// NotFound means the object does not exist remotely.
	NotFound Result = iota
	// Identical means the remote object matches the local file.
	Identical
	// Different means the remote object differs from the local file.
	Different
)

func (r Result) String() string {
	switch r {
	case NotFound:
		return "not found"
	case Identical:
		return "identical"
	case Different:
		return "different"
	default:
		return "unknown"
	}
}

const hashChunkSize = 8 * 1024

// Comparator compares local files with remote objects using size
// first, then the content fingerprint.
type Comparator struct {
	client storage.Client
	bucket string
	logger *zap.Logger

	// hashFile is replaceable in tests to observe hashing.
	hashFile func(path string) (string, error)
}

// New creates a Comparator for the given bucket.
func New(client storage.Client, bucket string, logger *zap.Logger) *Comparator {
	return &Comparator{
		client:   client,
		bucket:   bucket,
		logger:   logger,
		hashFile: FileMD5,
	}
}

// Compare classifies the pair (key, localPath).
//
// Order matters for cost: the size check runs before any hashing, so a
// size mismatch never reads file content. When sizes match and the
// remote ETag carries a part-count suffix (a composite fingerprint from
// a multipart upload) the whole-file digest cannot be reproduced
// locally at reasonable cost; same size plus a composite fingerprint is
// treated as a match. This is a documented heuristic, not a
// correctness guarantee.
func (c *Comparator) Compare(ctx context.Context, key, localPath string) (Result, error) {
	fi, err := os.Stat(localPath)
	if err != nil {
		return Different, fmt.Errorf("failed to access file %s: %w", localPath, err)
	}
	localSize := fi.Size()

	info, err := c.client.HeadObject(ctx, c.bucket, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return NotFound, nil
		}
		return Different, fmt.Errorf("failed to head s3://%s/%s: %w", c.bucket, key, err)
	}

	if info.Size != localSize {
		c.logger.Debug("File size mismatch",
			zap.String("key", key),
			zap.Int64("local_size", localSize),
			zap.Int64("remote_size", info.Size),
		)
		return Different, nil
	}

	etag := strings.Trim(info.ETag, `"`)
	if etag == "" {
		// No fingerprint available, size match is all we have.
		return Identical, nil
	}

	if strings.Contains(etag, "-") {
		c.logger.Debug("Remote object has composite fingerprint, using size-only comparison",
			zap.String("key", key),
			zap.String("etag", etag),
		)
		return Identical, nil
	}

	localHash, err := c.hashFile(localPath)
	if err != nil {
		return Different, fmt.Errorf("failed to hash %s: %w", localPath, err)
	}

	if strings.EqualFold(localHash, etag) {
		return Identical, nil
	}

	c.logger.Debug("File content differs",
		zap.String("key", key),
		zap.String("local_md5", localHash),
		zap.String("remote_etag", etag),
	)
	return Different, nil
}

// FileMD5 computes the hex MD5 digest of a file, streamed in fixed
// chunks. MD5 is required here: the remote fingerprint for single-shot
// uploads is the object's plain MD5.
func FileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
