package llm

import (
	"errors"
	"math"
	"time"
)

var (
	ErrRetryAttempts   = errors.New("retry max attempts must be at least 1")
	ErrRetryBaseDelay  = errors.New("retry base delay must not be negative")
	ErrRetryMultiplier = errors.New("retry multiplier must be at least 1")
	ErrRetryMaxDelay   = errors.New("retry max delay must not be below base delay")
)

// RetryPolicy bounds transient-failure retries for one role within one
// round. It is pure data; the orchestrator drives the attempt loop so every
// retry is visible as a telemetry event.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2,
		MaxDelay:    10 * time.Second,
	}
}

func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return ErrRetryAttempts
	}
	if p.BaseDelay < 0 {
		return ErrRetryBaseDelay
	}
	if p.Multiplier < 1 {
		return ErrRetryMultiplier
	}
	if p.MaxDelay < p.BaseDelay {
		return ErrRetryMaxDelay
	}
	return nil
}

// Backoff is the wait before retrying after the given failed attempt
// (1-based): BaseDelay on the first failure, multiplied per attempt after
// that, capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1)))
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
