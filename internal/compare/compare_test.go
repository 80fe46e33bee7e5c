package compare

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"s3up/internal/storage"
	"s3up/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// md5 of "hello world"
const helloWorldMD5 = "5eb63bbbe01eeed093cb22bb8f5acdc3"

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file.mp4")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newComparator(fake *storagetest.FakeClient) (*Comparator, *int) {
	c := New(fake, "bucket", zap.NewNop())
	hashCalls := 0
	inner := c.hashFile
	c.hashFile = func(path string) (string, error) {
		hashCalls++
		return inner(path)
	}
	return c, &hashCalls
}

func TestCompareNotFound(t *testing.T) {
	path := writeFile(t, "hello world")
	c, hashCalls := newComparator(&storagetest.FakeClient{})

	result, err := c.Compare(context.Background(), "videos/file.mp4", path)
	require.NoError(t, err)
	assert.Equal(t, NotFound, result)
	assert.Zero(t, *hashCalls)
}

func TestCompareSizeMismatchSkipsHashing(t *testing.T) {
	path := writeFile(t, "hello world")
	fake := &storagetest.FakeClient{}
	fake.SetObject("videos/file.mp4", 999, helloWorldMD5)
	c, hashCalls := newComparator(fake)

	result, err := c.Compare(context.Background(), "videos/file.mp4", path)
	require.NoError(t, err)
	assert.Equal(t, Different, result)
	assert.Zero(t, *hashCalls, "size mismatch must not hash file content")
}

func TestCompareIdenticalDigest(t *testing.T) {
	path := writeFile(t, "hello world")
	fake := &storagetest.FakeClient{}
	fake.SetObject("videos/file.mp4", 11, helloWorldMD5)
	c, hashCalls := newComparator(fake)

	result, err := c.Compare(context.Background(), "videos/file.mp4", path)
	require.NoError(t, err)
	assert.Equal(t, Identical, result)
	assert.Equal(t, 1, *hashCalls)
}

func TestCompareDigestCaseInsensitive(t *testing.T) {
	path := writeFile(t, "hello world")
	fake := &storagetest.FakeClient{}
	fake.SetObject("videos/file.mp4", 11, `"5EB63BBBE01EEED093CB22BB8F5ACDC3"`)
	c, _ := newComparator(fake)

	result, err := c.Compare(context.Background(), "videos/file.mp4", path)
	require.NoError(t, err)
	assert.Equal(t, Identical, result)
}

func TestCompareDifferentDigest(t *testing.T) {
	path := writeFile(t, "hello world")
	fake := &storagetest.FakeClient{}
	fake.SetObject("videos/file.mp4", 11, "0123456789abcdef0123456789abcdef")
	c, _ := newComparator(fake)

	result, err := c.Compare(context.Background(), "videos/file.mp4", path)
	require.NoError(t, err)
	assert.Equal(t, Different, result)
}

func TestCompareCompositeFingerprint(t *testing.T) {
	path := writeFile(t, "hello world")
	fake := &storagetest.FakeClient{}
	fake.SetObject("videos/file.mp4", 11, "9f2a618b0d41ab9e54d51b0c9677a06f-2")
	c, hashCalls := newComparator(fake)

	result, err := c.Compare(context.Background(), "videos/file.mp4", path)
	require.NoError(t, err)
	assert.Equal(t, Identical, result, "size match with composite fingerprint counts as identical")
	assert.Zero(t, *hashCalls)
}

func TestCompareNoFingerprint(t *testing.T) {
	path := writeFile(t, "hello world")
	fake := &storagetest.FakeClient{}
	fake.SetObject("videos/file.mp4", 11, "")
	c, hashCalls := newComparator(fake)

	result, err := c.Compare(context.Background(), "videos/file.mp4", path)
	require.NoError(t, err)
	assert.Equal(t, Identical, result)
	assert.Zero(t, *hashCalls)
}

func TestCompareLocalFileMissing(t *testing.T) {
	c, _ := newComparator(&storagetest.FakeClient{})

	_, err := c.Compare(context.Background(), "videos/file.mp4", filepath.Join(t.TempDir(), "missing.mp4"))
	require.Error(t, err)
}

func TestCompareHeadTransportError(t *testing.T) {
	path := writeFile(t, "hello world")
	fake := &storagetest.FakeClient{HeadErr: errors.New("access denied")}
	c, _ := newComparator(fake)

	_, err := c.Compare(context.Background(), "videos/file.mp4", path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestFileMD5(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"hello world", "hello world", helloWorldMD5},
		{"empty", "", "d41d8cd98f00b204e9800998ecf8427e"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.content)
			got, err := FileMD5(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
