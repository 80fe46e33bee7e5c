// Package worker runs the per-file pipeline (compare, transfer, sign)
// across a pool of concurrent workers.
package worker

// Job is one file to process. It is produced by the enumerator and
// consumed exactly once by a worker.
type Job struct {
	// Path is the absolute local path of the file.
	Path string
}

// Kind tags a Result variant.
type Kind int

const (
	// Uploaded means the file was transferred and a URL was issued.
	Uploaded Kind = iota
	// Skipped means the remote object was identical; only a URL was
	// issued.
	Skipped
	// Failed means this file's pipeline errored. Other files are
	// unaffected.
	Failed
	// URLGenerated is the url-only mode success variant.
	URLGenerated
	// NotFound is the url-only mode variant for a missing object.
	NotFound
	// WouldUpload, WouldUpdate and WouldSkip are the dry-run variants.
	WouldUpload
	WouldUpdate
	WouldSkip
)

// Result is one file's outcome. It is created by a worker, sent by
// value to the collector, and never mutated after sending.
type Result struct {
	Kind Kind
	// Name is the file's relative path, used for display and sorting.
	Name string
	// Key is the remote object key.
	Key  string
	Size int64
	URL  string
	Err  string
}
