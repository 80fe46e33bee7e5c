package config

import (
	"fmt"
	"os"
	"strings"
)

// S3 object tag limits.
const (
	maxTagKeyLen   = 128
	maxTagValueLen = 256
)

// ParseMetadata parses a "key1=value1,key2=value2" string into a map.
// Pairs with an empty key or value are dropped.
func ParseMetadata(s string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// ParseTags parses a "key1=value1,key2=value2" string into a map,
// enforcing the S3 tag length limits. Oversized pairs are skipped with
// a warning on stderr.
func ParseTags(s string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		if len(key) > maxTagKeyLen || len(value) > maxTagValueLen {
			fmt.Fprintf(os.Stderr,
				"Warning: tag %q exceeds S3 limits (key: %d, value: %d chars), skipping\n",
				key, maxTagKeyLen, maxTagValueLen)
			continue
		}
		out[key] = value
	}
	return out
}
