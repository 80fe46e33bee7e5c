package uploader

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"s3up/internal/progress"
)

const (
	// maxRetries is the number of additional attempts beyond the first.
	maxRetries = 3

	initialRetryDelay = time.Second
)

// RetryExhaustedError wraps the last transfer error after the retry
// budget is spent.
type RetryExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("upload failed after %d retries: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// withRetry runs op, retrying transient failures with doubling delays.
// Fatal errors propagate immediately without consuming a retry. The
// progress sink is reset to zero before each retried attempt since a
// retry restarts the transfer from scratch.
func (u *Uploader) withRetry(op func() error, sink progress.Sink, name string) error {
	delay := u.cfg.InitialBackoff
	attempts := 0

	for {
		err := op()
		if err == nil {
			if attempts > 0 {
				u.logger.Info("Upload succeeded after retry",
					zap.String("path", name),
					zap.Int("retries", attempts),
				)
			}
			return nil
		}

		if !IsRetryable(err) {
			return err
		}
		if attempts >= u.cfg.MaxRetries {
			return &RetryExhaustedError{Attempts: attempts, Err: err}
		}

		attempts++
		u.logger.Warn("Upload attempt failed, retrying",
			zap.String("path", name),
			zap.Int("attempt", attempts),
			zap.Int("max_retries", u.cfg.MaxRetries),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		sink.SetMessage(fmt.Sprintf("Retry %d/%d for %s", attempts, u.cfg.MaxRetries, name))

		u.sleep(delay)
		delay *= 2

		sink.SetPosition(0)
	}
}

// IsRetryable reports whether an error message carries a marker of a
// transient condition: timeouts, broken connections, server-side 5xx,
// or throttling.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "temporary") ||
		strings.Contains(msg, "throttl") ||
		strings.Contains(msg, "slowdown") ||
		strings.Contains(msg, "slow down") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "504")
}
