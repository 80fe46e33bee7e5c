// Package walker enumerates candidate files and derives the relative
// paths remote keys are built from.
package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Collect returns the files under path (or path itself, if it is a
// file) whose extensions match the allowed list. Matching is
// case-insensitive and leading dots on extensions are ignored. The
// result is sorted by filepath.WalkDir's lexical order.
func Collect(path string, allowedExtensions []string) ([]string, error) {
	extensions := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		extensions[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %s", path)
	}

	if !fi.IsDir() {
		if matchesExtension(path, extensions) {
			return []string{path}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if matchesExtension(p, extensions) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", path, err)
	}

	return files, nil
}

func matchesExtension(path string, extensions map[string]bool) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}
	return extensions[strings.ToLower(ext)]
}

// RelativePath derives the path used for display and remote key
// construction. With flatten set, or when base is itself a file, only
// the filename is used; otherwise the path is made relative to base.
// Separators are normalized to forward slashes.
func RelativePath(base, file string, flatten bool) (string, error) {
	if flatten {
		return filepath.Base(file), nil
	}

	fi, err := os.Stat(base)
	if err == nil && !fi.IsDir() {
		return filepath.Base(file), nil
	}

	rel, err := filepath.Rel(base, file)
	if err != nil {
		return "", fmt.Errorf("failed to make %s relative to %s: %w", file, base, err)
	}
	return filepath.ToSlash(rel), nil
}
