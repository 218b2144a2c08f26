package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventOutcome string

const (
	OutcomeOK        EventOutcome = "ok"
	OutcomeViolation EventOutcome = "violation"
	OutcomeRetry     EventOutcome = "retry"
	OutcomeFatal     EventOutcome = "fatal"
)

// Violation details carried in Event.Detail.
const (
	ViolationPrematureFinal = "premature_final_answer"
	ViolationForcedFalse    = "round1_agreement_forced_false"
	ViolationMissingFinal   = "missing_final_answer"
)

// Event is one telemetry record. Events are emitted in phase-transition
// order; Round is the ordering key for consumers that receive them late.
type Event struct {
	DebateID  uuid.UUID    `json:"debate_id"`
	Round     int          `json:"round"`
	Phase     Phase        `json:"phase"`
	Role      Role         `json:"role,omitempty"`
	Outcome   EventOutcome `json:"outcome"`
	Detail    string       `json:"detail,omitempty"`
	Err       string       `json:"error,omitempty"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
}
