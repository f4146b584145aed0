package genai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRetryAttempts  = 5
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// retryPolicy decides how many attempts a request gets and how long to wait
// between them. Waits double from baseDelay up to maxDelay; a server-sent
// Retry-After hint wins over the computed wait.
type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleeper     func(time.Duration)
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		maxAttempts: defaultRetryAttempts,
		baseDelay:   defaultRetryBaseDelay,
		maxDelay:    defaultRetryMaxDelay,
	}
}

func (p retryPolicy) attempts() int {
	if p.maxAttempts <= 0 {
		return 1
	}
	return p.maxAttempts
}

// next reports whether err warrants attempt+1 and the wait before it.
// attempt is 1-based.
func (p retryPolicy) next(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	switch {
	case err == nil, attempt >= p.attempts():
		return 0, false
	case ctx == nil, ctx.Err() != nil:
		return 0, false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return 0, false
	}

	var status *statusError
	if errors.As(err, &status) {
		if !retryableStatus(status.Code) {
			return 0, false
		}
		if status.RetryAfter > 0 {
			return p.clamp(status.RetryAfter), true
		}
		return p.wait(attempt), true
	}

	var empty *emptyPayloadError
	if errors.As(err, &empty) {
		return p.wait(attempt), true
	}

	// url.Error satisfies net.Error, so transport timeouts land here too.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return p.wait(attempt), true
	}

	return 0, false
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

// window returns the configured base and upper delays, falling back to
// defaults for unset values. A zero base disables waiting, not retrying.
func (p retryPolicy) window() (base, upper time.Duration) {
	base, upper = defaultRetryBaseDelay, defaultRetryMaxDelay
	if p.baseDelay >= 0 {
		base = p.baseDelay
	}
	if p.maxDelay > 0 {
		upper = p.maxDelay
	}
	return base, upper
}

// wait computes the exponential delay before the attempt after this one.
func (p retryPolicy) wait(attempt int) time.Duration {
	base, upper := p.window()
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempt && delay < upper; i++ {
		delay *= 2
	}
	return min(delay, upper)
}

func (p retryPolicy) clamp(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	_, upper := p.window()
	return min(delay, upper)
}

// sleep waits out delay unless ctx ends first. The sleeper hook replaces the
// timer in tests.
func (p retryPolicy) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("genai retry: nil context")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.sleeper != nil {
		p.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// statusError is a non-2xx response. RetryAfter carries the server's wait
// hint when one was present.
type statusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("genai request: http %d: %s", e.Code, strings.TrimSpace(e.Body))
}

// retryAfterHint reads a Retry-After header in either delta-seconds or
// HTTP-date form. Zero means the server gave no usable hint.
func retryAfterHint(h http.Header) time.Duration {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay > 0 {
			return delay
		}
	}
	return 0
}
