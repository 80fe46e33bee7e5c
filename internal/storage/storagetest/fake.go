// Package storagetest provides an in-memory storage.Client for tests.
package storagetest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"s3up/internal/storage"
)

// RemoteObject is an object held by the fake store.
type RemoteObject struct {
	Size        int64
	ETag        string
	ContentType string
}

// Part records one uploaded part of a multipart session.
type Part struct {
	Number int
	Size   int64
	ETag   string
}

// Upload records one multipart session.
type Upload struct {
	Key       string
	Parts     []Part
	Completed bool
	Aborted   bool
}

// FakeClient is a thread-safe in-memory implementation of
// storage.Client. Zero value is usable; error fields inject failures.
type FakeClient struct {
	mu sync.Mutex

	Objects map[string]RemoteObject // key -> object
	Uploads map[string]*Upload      // upload id -> session

	// Failure injection. PutFailures drains first: the next N PutObject
	// or UploadPart calls fail with PutFailureErr (or PutErr) before
	// succeeding. PutErr alone fails every call.
	HeadErr       error
	PutErr        error
	PutFailureErr error
	PresignErr    error
	PutFailures   int

	// Call counters and recorded arguments.
	HeadCalls    int
	PutCalls     int
	PartCalls    int
	PresignCalls int
	LastExpiry   time.Duration
	LastPut      storage.PutOptions

	nextUploadID int
}

// SetObject installs a remote object.
func (f *FakeClient) SetObject(key string, size int64, etag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Objects == nil {
		f.Objects = make(map[string]RemoteObject)
	}
	f.Objects[key] = RemoteObject{Size: size, ETag: etag}
}

// Object returns the stored object and whether it exists.
func (f *FakeClient) Object(key string) (RemoteObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.Objects[key]
	return obj, ok
}

func (f *FakeClient) HeadObject(_ context.Context, _, key string) (storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HeadCalls++
	if f.HeadErr != nil {
		return storage.ObjectInfo{}, f.HeadErr
	}
	obj, ok := f.Objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrNotFound
	}
	return storage.ObjectInfo{
		Key:  key,
		Size: obj.Size,
		ETag: obj.ETag,
	}, nil
}

func (f *FakeClient) PutObject(_ context.Context, _, key string, reader io.Reader, size int64, opts storage.PutOptions) error {
	n, err := io.Copy(io.Discard, reader)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.PutCalls++
	f.LastPut = opts
	if f.PutFailures > 0 {
		f.PutFailures--
		return f.putErr()
	}
	if f.PutErr != nil {
		return f.PutErr
	}
	if n != size {
		return fmt.Errorf("content length mismatch: declared %d, read %d", size, n)
	}
	if f.Objects == nil {
		f.Objects = make(map[string]RemoteObject)
	}
	f.Objects[key] = RemoteObject{Size: size, ETag: fmt.Sprintf("etag-%s", key), ContentType: opts.ContentType}
	return nil
}

func (f *FakeClient) putErr() error {
	if f.PutFailureErr != nil {
		return f.PutFailureErr
	}
	if f.PutErr != nil {
		return f.PutErr
	}
	return fmt.Errorf("injected put failure")
}

func (f *FakeClient) NewMultipartUpload(_ context.Context, _, key string, _ storage.PutOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextUploadID++
	id := fmt.Sprintf("upload-%d", f.nextUploadID)
	if f.Uploads == nil {
		f.Uploads = make(map[string]*Upload)
	}
	f.Uploads[id] = &Upload{Key: key}
	return id, nil
}

func (f *FakeClient) UploadPart(_ context.Context, _, _, uploadID string, partNumber int, reader io.Reader, size int64) (string, error) {
	n, err := io.Copy(io.Discard, reader)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.PartCalls++
	if f.PutFailures > 0 {
		f.PutFailures--
		return "", f.putErr()
	}
	if f.PutErr != nil {
		return "", f.PutErr
	}
	if n != size {
		return "", fmt.Errorf("part length mismatch: declared %d, read %d", size, n)
	}
	up, ok := f.Uploads[uploadID]
	if !ok {
		return "", fmt.Errorf("no such upload: %s", uploadID)
	}
	etag := fmt.Sprintf("etag-part-%d", partNumber)
	up.Parts = append(up.Parts, Part{Number: partNumber, Size: size, ETag: etag})
	return etag, nil
}

func (f *FakeClient) CompleteMultipartUpload(_ context.Context, _, key, uploadID string, parts []storage.CompletedPart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	up, ok := f.Uploads[uploadID]
	if !ok {
		return fmt.Errorf("no such upload: %s", uploadID)
	}
	if len(parts) != len(up.Parts) {
		return fmt.Errorf("completion lists %d parts, uploaded %d", len(parts), len(up.Parts))
	}
	var total int64
	for i, p := range parts {
		if p.PartNumber != i+1 {
			return fmt.Errorf("part numbers not contiguous at index %d: got %d", i, p.PartNumber)
		}
		if p.ETag != up.Parts[i].ETag {
			return fmt.Errorf("etag mismatch for part %d", p.PartNumber)
		}
		total += up.Parts[i].Size
	}
	up.Completed = true
	if f.Objects == nil {
		f.Objects = make(map[string]RemoteObject)
	}
	f.Objects[key] = RemoteObject{Size: total, ETag: fmt.Sprintf("etag-%s-%d", key, len(parts))}
	return nil
}

func (f *FakeClient) AbortMultipartUpload(_ context.Context, _, _, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	up, ok := f.Uploads[uploadID]
	if !ok {
		return fmt.Errorf("no such upload: %s", uploadID)
	}
	up.Aborted = true
	return nil
}

func (f *FakeClient) PresignedGetURL(_ context.Context, bucket, key string, expiry time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PresignCalls++
	f.LastExpiry = expiry
	if f.PresignErr != nil {
		return "", f.PresignErr
	}
	return fmt.Sprintf("https://%s.s3.example.com/%s?X-Amz-Expires=%d", bucket, key, int(expiry.Seconds())), nil
}

var _ storage.Client = (*FakeClient)(nil)
