package http

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// ErrThrottleWait is returned when a request gave up waiting for a rate token.
var ErrThrottleWait = errors.New("rate limiter wait failed")

// throttle is an http.RoundTripper that restricts outbound calls with a token
// bucket.
type throttle struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func newThrottle(rps float64, burst int, next http.RoundTripper) *throttle {
	if burst <= 0 {
		burst = 1
	}

	return &throttle{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		next:    next,
	}
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	err := t.limiter.Wait(r.Context())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrThrottleWait, err)
	}

	return t.next.RoundTrip(r)
}
