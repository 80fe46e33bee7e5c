package storage

import "time"

// MaxURLExpiry is the longest lifetime a presigned URL may have.
// SigV4 presigned URLs are capped at 7 days server-side.
const MaxURLExpiry = 168 * time.Hour

// DefaultURLExpiry is the lifetime used when the caller does not
// specify one.
const DefaultURLExpiry = MaxURLExpiry

// ClampExpiry caps a requested URL lifetime at MaxURLExpiry. Values
// above the cap are silently reduced, never rejected.
func ClampExpiry(d time.Duration) time.Duration {
	if d > MaxURLExpiry {
		return MaxURLExpiry
	}
	return d
}
