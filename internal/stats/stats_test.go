package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersConcurrent(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.AddUploaded(1024)
				s.AddSkipped()
				s.AddFailed()
				s.AddURLGenerated()
				s.AddNotFound()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(800), s.Uploaded())
	assert.Equal(t, uint64(800), s.Skipped())
	assert.Equal(t, uint64(800), s.Failed())
	assert.Equal(t, uint64(800), s.URLsGenerated())
	assert.Equal(t, uint64(800), s.NotFound())
	assert.Equal(t, uint64(800*1024), s.BytesUploaded())
}

func TestUploadSummary(t *testing.T) {
	s := New()
	s.AddUploaded(2 * 1024 * 1024)
	s.AddUploaded(1024 * 1024)
	s.AddSkipped()
	s.AddFailed()

	out := s.UploadSummary()
	assert.Contains(t, out, "2 uploaded")
	assert.Contains(t, out, "1 skipped")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "3.0 MiB")
}

func TestURLSummary(t *testing.T) {
	s := New()
	s.AddURLGenerated()
	s.AddURLGenerated()
	s.AddNotFound()

	assert.Equal(t, "Summary: 2 URL(s) generated, 1 not found", s.URLSummary())
}
