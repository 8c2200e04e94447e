package llm

import (
	"context"
	"strings"
	"time"
)

type ErrorType string

const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorContext   ErrorType = "context"
)

// ClassifyError buckets a remote-service failure by its message. Providers
// do not expose typed errors, so this is string matching by necessity.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "insufficient_quota"):
		return ErrorQuota
	case strings.Contains(e, "rate"), strings.Contains(e, "429"):
		return ErrorRate
	case strings.Contains(e, "context"), strings.Contains(e, "too long"):
		return ErrorContext
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"),
		strings.Contains(e, "connection"), strings.Contains(e, "502"), strings.Contains(e, "503"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}

func retryable(err error) bool {
	switch ClassifyError(err) {
	case ErrorRate, ErrorTransient:
		return true
	default:
		return false
	}
}

// withRetry runs fn with bounded exponential backoff. Only rate-limit and
// transient failures are retried; validation and quota errors fail at once.
func withRetry(ctx context.Context, maxRetries int, fn func() error) error {
	backoff := 500 * time.Millisecond

	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= maxRetries || !retryable(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
