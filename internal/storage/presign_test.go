package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampExpiry(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"below cap", time.Hour, time.Hour},
		{"at cap", 168 * time.Hour, 168 * time.Hour},
		{"above cap", 500 * time.Hour, 168 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampExpiry(tt.in))
		})
	}
}

func TestDefaultURLExpiry(t *testing.T) {
	assert.Equal(t, 168*time.Hour, DefaultURLExpiry)
}
