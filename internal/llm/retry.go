package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// MaxAttempts is the number of model calls made for one analysis before
// giving up on transient failures.
const MaxAttempts = 3

// Retrier calls an operation until it succeeds, fails with a non-retryable
// error, or runs out of attempts. Waiting between attempts only happens after
// retryable failures.
type Retrier struct {
	MaxAttempts int
	// Backoff returns the delay to wait after the given failed attempt (1-indexed).
	Backoff func(attempt int) time.Duration
	// Wait blocks for d or until ctx is done. Tests replace it to avoid real sleeps.
	Wait func(ctx context.Context, d time.Duration) error
}

// NewRetrier returns a Retrier with MaxAttempts attempts and exponential backoff.
func NewRetrier() *Retrier {
	return &Retrier{
		MaxAttempts: MaxAttempts,
		Backoff:     ExponentialBackoff,
		Wait:        WaitContext,
	}
}

// ExponentialBackoff returns 2^attempt seconds: 2s, 4s, 8s.
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// WaitContext waits for d using a timer, returning early with the context
// error if ctx is done first.
func WaitContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs op up to MaxAttempts times. It returns the number of attempts made
// and the error of the last attempt, or nil on success.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = MaxAttempts
	}
	backoff := r.Backoff
	if backoff == nil {
		backoff = ExponentialBackoff
	}
	wait := r.Wait
	if wait == nil {
		wait = WaitContext
	}

	for attempt := 1; ; attempt++ {
		err := op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}

		if !IsRetryable(err) {
			log.Debug().Err(err).Int("attempt", attempt).Msg("non-retryable error, giving up")
			return attempt, err
		}
		if attempt >= maxAttempts {
			log.Warn().Err(err).Int("attempts", attempt).Msg("retries exhausted")
			return attempt, err
		}

		delay := backoff(attempt)
		log.Info().Int("attempt", attempt).Dur("wait", delay).Msg("retryable error, waiting before retry")
		if werr := wait(ctx, delay); werr != nil {
			return attempt, fmt.Errorf("retry aborted: %w (last error: %v)", werr, err)
		}
	}
}

// IsRetryable reports whether err is a transient model service failure:
// overload (503) or rate limiting (429). Content errors and cancellation are
// never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidContent) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if code, ok := apiErrorCode(err); ok && (code == 503 || code == 429) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "overloaded") || strings.Contains(msg, "503") || strings.Contains(msg, "429")
}

// apiErrorCode extracts the HTTP status code from a Gemini API error.
func apiErrorCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}
