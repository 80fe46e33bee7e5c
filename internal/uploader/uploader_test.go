package uploader

import (
	"context"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"s3up/internal/progress"
	"s3up/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordSink records the updates an upload pushes through its sink.
type recordSink struct {
	length    int64
	positions []int64
	messages  []string
	finished  bool
}

func (s *recordSink) SetLength(n int64)   { s.length = n }
func (s *recordSink) SetPosition(n int64) { s.positions = append(s.positions, n) }
func (s *recordSink) SetMessage(m string) { s.messages = append(s.messages, m) }
func (s *recordSink) Finish()             { s.finished = true }

func writeRandomFile(t *testing.T, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video.mp4")
	buf := make([]byte, size)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func newTestUploader(fake *storagetest.FakeClient, cfg Config) *Uploader {
	u := New(fake, "bucket", cfg, zap.NewNop())
	u.sleep = func(time.Duration) {}
	u.detectMIME = func(string) string { return "video/mp4" }
	return u
}

func TestUseMultipartBoundary(t *testing.T) {
	u := newTestUploader(&storagetest.FakeClient{}, Config{})

	assert.False(t, u.UseMultipart(MultipartThreshold-1))
	assert.True(t, u.UseMultipart(MultipartThreshold), "boundary value must use multipart")
	assert.True(t, u.UseMultipart(MultipartThreshold+1))
}

func TestUploadSingle(t *testing.T) {
	const size = 2048
	path := writeRandomFile(t, size)
	fake := &storagetest.FakeClient{}
	u := newTestUploader(fake, Config{})
	sink := &recordSink{}

	err := u.Upload(context.Background(), path, "videos/video.mp4", size, sink)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.PutCalls)
	assert.Zero(t, fake.PartCalls)
	obj, ok := fake.Object("videos/video.mp4")
	require.True(t, ok)
	assert.Equal(t, int64(size), obj.Size)
	assert.Equal(t, "video/mp4", obj.ContentType)

	assert.Equal(t, int64(size), sink.length)
	assert.True(t, sink.finished)
	require.NotEmpty(t, sink.positions)
	assert.Equal(t, int64(size), sink.positions[len(sink.positions)-1])
}

func TestUploadSingleContentTypeOverride(t *testing.T) {
	const size = 128
	path := writeRandomFile(t, size)
	fake := &storagetest.FakeClient{}
	u := newTestUploader(fake, Config{ContentType: "application/x-custom"})

	err := u.Upload(context.Background(), path, "videos/video.mp4", size, progress.Nop{})
	require.NoError(t, err)
	assert.Equal(t, "application/x-custom", fake.LastPut.ContentType)
}

func TestUploadMultipartPartAccounting(t *testing.T) {
	// 10,240 bytes with 4 KiB parts: two full parts and a 2 KiB tail.
	const (
		size     = 10240
		partSize = 4096
	)
	path := writeRandomFile(t, size)
	fake := &storagetest.FakeClient{}
	u := newTestUploader(fake, Config{MultipartThreshold: 1, PartSize: partSize})
	sink := &recordSink{}

	err := u.Upload(context.Background(), path, "videos/video.mp4", size, sink)
	require.NoError(t, err)

	require.Len(t, fake.Uploads, 1)
	var up *storagetest.Upload
	for _, v := range fake.Uploads {
		up = v
	}
	assert.True(t, up.Completed)
	assert.False(t, up.Aborted)
	require.Len(t, up.Parts, 3)
	for i, part := range up.Parts {
		assert.Equal(t, i+1, part.Number, "part numbers are contiguous and 1-based")
	}
	assert.Equal(t, int64(partSize), up.Parts[0].Size)
	assert.Equal(t, int64(partSize), up.Parts[1].Size)
	assert.Equal(t, int64(2048), up.Parts[2].Size)

	obj, ok := fake.Object("videos/video.mp4")
	require.True(t, ok)
	assert.Equal(t, int64(size), obj.Size)

	assert.Equal(t, int64(size), sink.positions[len(sink.positions)-1])
	assert.True(t, sink.finished)
}

func TestUploadMultipartExactMultiple(t *testing.T) {
	// Size divides evenly into parts: no short tail part.
	const (
		size     = 8192
		partSize = 4096
	)
	path := writeRandomFile(t, size)
	fake := &storagetest.FakeClient{}
	u := newTestUploader(fake, Config{MultipartThreshold: 1, PartSize: partSize})

	err := u.Upload(context.Background(), path, "videos/video.mp4", size, progress.Nop{})
	require.NoError(t, err)

	for _, up := range fake.Uploads {
		require.Len(t, up.Parts, 2)
		assert.Equal(t, int64(partSize), up.Parts[0].Size)
		assert.Equal(t, int64(partSize), up.Parts[1].Size)
	}
}

func TestUploadMultipartDefaultPartCount(t *testing.T) {
	// A sparse file over the threshold exercises the production part
	// size: 150 MiB in 10 MiB parts is exactly 15 parts.
	const size = 150 * 1024 * 1024
	path := filepath.Join(t.TempDir(), "big.mp4")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())

	fake := &storagetest.FakeClient{}
	u := newTestUploader(fake, Config{})

	err = u.Upload(context.Background(), path, "videos/big.mp4", size, progress.Nop{})
	require.NoError(t, err)

	assert.Equal(t, 15, fake.PartCalls)
	obj, ok := fake.Object("videos/big.mp4")
	require.True(t, ok)
	assert.Equal(t, int64(size), obj.Size)
}

func TestUploadMultipartAbortOnPartFailure(t *testing.T) {
	const size = 8192
	path := writeRandomFile(t, size)
	fake := &storagetest.FakeClient{
		PutFailures:   1,
		PutFailureErr: errors.New("access denied"),
	}
	u := newTestUploader(fake, Config{MultipartThreshold: 1, PartSize: 4096})

	err := u.Upload(context.Background(), path, "videos/video.mp4", size, progress.Nop{})
	require.Error(t, err)

	require.Len(t, fake.Uploads, 1)
	for _, up := range fake.Uploads {
		assert.True(t, up.Aborted, "failed session must be aborted")
		assert.False(t, up.Completed)
	}
	_, ok := fake.Object("videos/video.mp4")
	assert.False(t, ok)
}

func TestUploadFatalErrorNotRetried(t *testing.T) {
	const size = 128
	path := writeRandomFile(t, size)
	fake := &storagetest.FakeClient{PutErr: errors.New("access denied")}
	u := newTestUploader(fake, Config{})

	err := u.Upload(context.Background(), path, "videos/video.mp4", size, progress.Nop{})
	require.Error(t, err)
	assert.Equal(t, 1, fake.PutCalls, "fatal errors must not consume retries")

	var exhausted *RetryExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestUploadTransientFailuresThenSuccess(t *testing.T) {
	const size = 128
	path := writeRandomFile(t, size)
	fake := &storagetest.FakeClient{
		PutFailures:   2,
		PutFailureErr: errors.New("connection reset by peer"),
	}
	u := newTestUploader(fake, Config{})

	err := u.Upload(context.Background(), path, "videos/video.mp4", size, progress.Nop{})
	require.NoError(t, err)
	assert.Equal(t, 3, fake.PutCalls)

	obj, ok := fake.Object("videos/video.mp4")
	require.True(t, ok)
	assert.Equal(t, int64(size), obj.Size)
}

func TestUploadRetryExhausted(t *testing.T) {
	const size = 128
	path := writeRandomFile(t, size)
	fake := &storagetest.FakeClient{PutErr: errors.New("request timeout")}
	u := newTestUploader(fake, Config{})

	err := u.Upload(context.Background(), path, "videos/video.mp4", size, progress.Nop{})
	require.Error(t, err)

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, 4, fake.PutCalls, "first attempt plus three retries")
	assert.Contains(t, err.Error(), "after 3 retries")
}
