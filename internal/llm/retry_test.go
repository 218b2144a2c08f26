package llm

import (
	"testing"
	"time"
)

func TestRetryPolicyBackoff(t *testing.T) {
	p := DefaultRetryPolicy()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{6, 10 * time.Second},
		{0, time.Second},
	}

	for _, tt := range tests {
		if got := p.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p RetryPolicy) RetryPolicy
		wantErr error
	}{
		{"default valid", func(p RetryPolicy) RetryPolicy { return p }, nil},
		{"zero attempts", func(p RetryPolicy) RetryPolicy { p.MaxAttempts = 0; return p }, ErrRetryAttempts},
		{"negative base", func(p RetryPolicy) RetryPolicy { p.BaseDelay = -1; return p }, ErrRetryBaseDelay},
		{"multiplier below one", func(p RetryPolicy) RetryPolicy { p.Multiplier = 0.5; return p }, ErrRetryMultiplier},
		{"max below base", func(p RetryPolicy) RetryPolicy { p.MaxDelay = p.BaseDelay - 1; return p }, ErrRetryMaxDelay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mutate(DefaultRetryPolicy()).Validate(); got != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", got, tt.wantErr)
			}
		})
	}
}
