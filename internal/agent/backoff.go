package agent

import (
	"math/rand/v2"
	"strings"
	"time"
)

// Policy describes retry behavior for model calls: how many attempts,
// and how long to wait between them.
type Policy struct {
	MaxRetries      int           // retries after the first attempt
	InitialInterval time.Duration // backoff for the first retry
	MaxInterval     time.Duration // backoff ceiling
	Jitter          float64       // fraction of the delay randomized, 0..1

	// rand overrides the jitter source in tests. nil means rand.Float64.
	rand func() float64
}

// DefaultPolicy returns sensible defaults for LLM API calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Jitter:          0.2,
	}
}

// Delay returns how long to wait before retry number attempt (0-based).
// The base delay doubles each attempt up to MaxInterval; jitter spreads
// concurrent retries so they do not hammer the provider in lockstep.
func (p Policy) Delay(attempt int) time.Duration {
	base := p.InitialInterval
	for i := 0; i < attempt && base < p.MaxInterval; i++ {
		base *= 2
	}
	base = min(base, p.MaxInterval)

	if p.Jitter <= 0 {
		return base
	}
	r := p.rand
	if r == nil {
		r = rand.Float64
	}
	// Spread within [base*(1-jitter), base*(1+jitter)], clamped to the cap.
	factor := 1 + p.Jitter*(r()*2-1)
	return min(time.Duration(float64(base)*factor), p.MaxInterval)
}

// retryablePatterns groups error substrings by category. Matched
// case-insensitively against err.Error().
//
// String matching is used because Genkit and the provider SDKs do not
// expose typed errors for transient failures.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},      // rate limiting
	{"500", "502", "503", "504", "unavailable"},  // transient server errors
	{"connection reset", "timeout", "temporary"}, // network errors
}

// Retryable reports whether err is transient and worth another attempt.
// Everything else is terminal and fails the request immediately.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, pattern := range group {
			if strings.Contains(msg, pattern) {
				return true
			}
		}
	}
	return false
}
