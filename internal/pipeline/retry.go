package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/schoolmon/internal/llm"
)

const (
	maxExtractAttempts = 3
	retryBaseDelay     = 2 * time.Second
)

// retrySleep is swapped out in tests
var retrySleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// withRetry runs fn up to maxExtractAttempts times, backing off between
// transient failures. Permanent failures return immediately.
func withRetry[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= maxExtractAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == maxExtractAttempts {
			break
		}
		if err := retrySleep(ctx, retryBaseDelay*time.Duration(attempt)); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

// isRetryable reports whether an oracle failure is worth another attempt:
// rate limits, server errors, dropped connections and timeouts. Malformed
// answers and client errors are not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, llm.ErrMalformedExtraction) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, llm.ErrEmptyResponse) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	msg := strings.ToLower(err.Error())
	for _, status := range []int{429, 500, 502, 503, 504} {
		if strings.Contains(msg, fmt.Sprintf("api error (%d)", status)) {
			return true
		}
	}
	for _, transient := range []string{"connection refused", "connection reset", "timeout", "eof"} {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
