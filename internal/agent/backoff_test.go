package agent

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Delay(t *testing.T) {
	t.Run("doubles up to the cap without jitter", func(t *testing.T) {
		p := Policy{
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     4 * time.Second,
		}
		assert.Equal(t, 500*time.Millisecond, p.Delay(0))
		assert.Equal(t, 1*time.Second, p.Delay(1))
		assert.Equal(t, 2*time.Second, p.Delay(2))
		assert.Equal(t, 4*time.Second, p.Delay(3))
		assert.Equal(t, 4*time.Second, p.Delay(10))
	})

	t.Run("jitter stays within bounds", func(t *testing.T) {
		p := Policy{
			InitialInterval: 1 * time.Second,
			MaxInterval:     time.Minute,
			Jitter:          0.2,
		}
		for _, r := range []float64{0, 0.25, 0.5, 0.75, 1} {
			p.rand = func() float64 { return r }
			d := p.Delay(0)
			assert.GreaterOrEqual(t, d, 800*time.Millisecond)
			assert.LessOrEqual(t, d, 1200*time.Millisecond)
		}
	})

	t.Run("jitter never exceeds the cap", func(t *testing.T) {
		p := Policy{
			InitialInterval: 1 * time.Second,
			MaxInterval:     1 * time.Second,
			Jitter:          0.5,
			rand:            func() float64 { return 1 },
		}
		assert.Equal(t, 1*time.Second, p.Delay(5))
	})
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("Rate limit exceeded"), true},
		{"quota", errors.New("quota exceeded for project"), true},
		{"http 429", errors.New("unexpected status 429"), true},
		{"server error", errors.New("received 503 from upstream"), true},
		{"unavailable", errors.New("model temporarily UNAVAILABLE"), true},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"timeout", errors.New("context deadline exceeded: timeout"), true},
		{"auth failure", errors.New("invalid API key"), false},
		{"bad request", errors.New("malformed request payload"), false},
		{"safety block", errors.New("response blocked by safety settings"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}
