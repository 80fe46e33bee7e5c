// Package stats aggregates cross-worker counters for one run.
package stats

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Stats is a shared record of increment-only counters. It is created
// once at run start, updated concurrently by workers, and read for the
// summary only after all workers have joined.
type Stats struct {
	uploaded      atomic.Uint64
	skipped       atomic.Uint64
	failed        atomic.Uint64
	urlsGenerated atomic.Uint64
	notFound      atomic.Uint64
	bytesUploaded atomic.Uint64

	start time.Time
}

// New creates a Stats record with the clock started.
func New() *Stats {
	return &Stats{start: time.Now()}
}

func (s *Stats) AddUploaded(bytes int64) {
	s.uploaded.Add(1)
	s.bytesUploaded.Add(uint64(bytes))
}

func (s *Stats) AddSkipped()      { s.skipped.Add(1) }
func (s *Stats) AddFailed()       { s.failed.Add(1) }
func (s *Stats) AddURLGenerated() { s.urlsGenerated.Add(1) }
func (s *Stats) AddNotFound()     { s.notFound.Add(1) }

func (s *Stats) Uploaded() uint64      { return s.uploaded.Load() }
func (s *Stats) Skipped() uint64       { return s.skipped.Load() }
func (s *Stats) Failed() uint64        { return s.failed.Load() }
func (s *Stats) URLsGenerated() uint64 { return s.urlsGenerated.Load() }
func (s *Stats) NotFound() uint64      { return s.notFound.Load() }
func (s *Stats) BytesUploaded() uint64 { return s.bytesUploaded.Load() }

// Elapsed returns the time since the run started.
func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.start)
}

// UploadSummary renders the human-readable end-of-run summary for
// upload mode.
func (s *Stats) UploadSummary() string {
	elapsed := s.Elapsed()
	bytes := s.BytesUploaded()

	out := fmt.Sprintf("Summary: %d uploaded, %d skipped, %d failed",
		s.Uploaded(), s.Skipped(), s.Failed())

	if bytes > 0 {
		out += fmt.Sprintf("\nTotal uploaded: %s (%d bytes)", humanize.IBytes(bytes), bytes)
	}
	if elapsed >= time.Second {
		speed := float64(bytes) / elapsed.Seconds() / 1024 / 1024
		out += fmt.Sprintf("\nTime: %.2fs, Average speed: %.2f MB/s", elapsed.Seconds(), speed)
	}
	return out
}

// URLSummary renders the end-of-run summary for url-only mode.
func (s *Stats) URLSummary() string {
	return fmt.Sprintf("Summary: %d URL(s) generated, %d not found",
		s.URLsGenerated(), s.NotFound())
}
