package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestCollectFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.mp4"))
	touch(t, filepath.Join(dir, "b.MOV"))
	touch(t, filepath.Join(dir, "c.txt"))
	touch(t, filepath.Join(dir, "noext"))
	touch(t, filepath.Join(dir, "sub", "d.mp4"))

	files, err := Collect(dir, []string{"mp4", "mov"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.mp4"),
		filepath.Join(dir, "b.MOV"),
		filepath.Join(dir, "sub", "d.mp4"),
	}, files)
}

func TestCollectLeadingDotInExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.mp4"))

	files, err := Collect(dir, []string{".MP4"})
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestCollectSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.mp4")
	touch(t, path)

	files, err := Collect(path, []string{"mp4"})
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestCollectSingleFileWrongExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	touch(t, path)

	files, err := Collect(path, []string{"mp4"})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCollectMissingPath(t *testing.T) {
	_, err := Collect(filepath.Join(t.TempDir(), "missing"), []string{"mp4"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path does not exist")
}

func TestRelativePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sub", "a.mp4")
	touch(t, file)

	rel, err := RelativePath(dir, file, false)
	require.NoError(t, err)
	assert.Equal(t, "sub/a.mp4", rel)
}

func TestRelativePathFlatten(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sub", "a.mp4")
	touch(t, file)

	rel, err := RelativePath(dir, file, true)
	require.NoError(t, err)
	assert.Equal(t, "a.mp4", rel)
}

func TestRelativePathBaseIsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.mp4")
	touch(t, file)

	rel, err := RelativePath(file, file, false)
	require.NoError(t, err)
	assert.Equal(t, "a.mp4", rel)
}
