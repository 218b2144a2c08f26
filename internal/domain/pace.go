package domain

import (
	"errors"
	"time"
)

var (
	ErrPaceMinTurn    = errors.New("minimum turn duration must be positive")
	ErrPaceGap        = errors.New("inter-turn gap must not be negative")
	ErrPaceJitter     = errors.New("jitter bound must not be negative")
	ErrPaceRevealRate = errors.New("reveal rate must be positive")
	ErrPaceMaxRounds  = errors.New("maximum rounds must be at least 1")
)

// PaceConfig is resolved once per debate and never mutated by the engine.
// RevealRate is in characters per second.
type PaceConfig struct {
	MinTurn     time.Duration `json:"min_turn"`
	Gap         time.Duration `json:"gap"`
	JitterBound time.Duration `json:"jitter_bound"`
	RevealRate  float64       `json:"reveal_rate"`
	MaxRounds   int           `json:"max_rounds"`
}

func (c PaceConfig) Validate() error {
	if c.MinTurn <= 0 {
		return ErrPaceMinTurn
	}
	if c.Gap < 0 {
		return ErrPaceGap
	}
	if c.JitterBound < 0 {
		return ErrPaceJitter
	}
	if c.RevealRate <= 0 {
		return ErrPaceRevealRate
	}
	if c.MaxRounds < 1 {
		return ErrPaceMaxRounds
	}
	return nil
}
