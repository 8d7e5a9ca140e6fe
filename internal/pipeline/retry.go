package pipeline

import (
	"errors"
	"math/rand"
	"time"

	"github.com/dgallion1/docsearch/internal/answer"
	"github.com/dgallion1/docsearch/internal/searchstore"
)

// IsRetryable checks if an error is worth retrying. Both upstream clients
// tag rate limits and 5xx responses with their own retryable type.
func IsRetryable(err error) bool {
	var storeErr *searchstore.RetryableError
	if errors.As(err, &storeErr) {
		return true
	}
	var answerErr *answer.RetryableError
	return errors.As(err, &answerErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3
