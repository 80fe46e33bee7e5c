// Package history keeps a durable per-file journal of upload outcomes
// and issued URLs across runs.
package history

import (
	"time"
)

// Status classifies a recorded outcome.
type Status string

const (
	StatusUploaded     Status = "uploaded"
	StatusSkipped      Status = "skipped"
	StatusFailed       Status = "failed"
	StatusURLGenerated Status = "url_generated"
	StatusNotFound     Status = "not_found"
)

// Record is one file's outcome from one run.
type Record struct {
	Key       string    `json:"key"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Status    Status    `json:"status"`
	URL       string    `json:"url,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the interface for outcome persistence.
type Store interface {
	Save(record *Record) error
	Get(key string) (*Record, error)
	ListByStatus(status Status) ([]*Record, error)
	Close() error
}
