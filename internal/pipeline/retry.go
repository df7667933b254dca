package pipeline

import "time"

// RetryPolicy bounds the zero-upload backoff loop. Attempts count readiness
// cycles, the first one included.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	// Multiplier <= 1 means a fixed backoff.
	Multiplier float64
	MaxBackoff time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 12, Backoff: 5 * time.Second}
}

// Allows reports whether attempt (1-based) may run.
func (p RetryPolicy) Allows(attempt int) bool {
	if p.MaxAttempts <= 0 {
		return attempt <= 1
	}
	return attempt <= p.MaxAttempts
}

// Delay is the pause after the given failed attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.Backoff
	if p.Multiplier > 1 {
		for i := 1; i < attempt; i++ {
			d = time.Duration(float64(d) * p.Multiplier)
			if p.MaxBackoff > 0 && d >= p.MaxBackoff {
				return p.MaxBackoff
			}
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}
