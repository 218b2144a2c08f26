package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSolver   Role = "solver"
	RoleReviewer Role = "reviewer"
)

func (r Role) Opponent() Role {
	if r == RoleSolver {
		return RoleReviewer
	}
	return RoleSolver
}

type Phase string

const (
	PhaseStart        Phase = "start"
	PhaseSolverTurn   Phase = "solver_turn"
	PhaseReviewerTurn Phase = "reviewer_turn"
	PhaseSolverFinal  Phase = "solver_final"
	PhaseTerminated   Phase = "terminated"
)

type Status string

const (
	StatusAgreed    Status = "agreed"
	StatusMaxRounds Status = "max_rounds_exceeded"
	StatusAborted   Status = "aborted"

	// StatusRunning never appears in a Result; it marks live debates in
	// listings and snapshots.
	StatusRunning Status = "running"
)

// Agreement is tri-state: a reviewer turn either carries an explicit
// true/false signal or never parsed one. Solver turns stay unknown.
type Agreement string

const (
	AgreementUnknown Agreement = "unknown"
	AgreementFalse   Agreement = "false"
	AgreementTrue    Agreement = "true"
)

func AgreementFromBool(v bool) Agreement {
	if v {
		return AgreementTrue
	}
	return AgreementFalse
}

func (a Agreement) Known() bool {
	return a == AgreementTrue || a == AgreementFalse
}

type Timing struct {
	AgentLatency time.Duration `json:"agent_latency"`
	Padding      time.Duration `json:"padding"`
}

// Turn is immutable once recorded by the orchestrator.
type Turn struct {
	ID          uuid.UUID `json:"id"`
	DebateID    uuid.UUID `json:"debate_id"`
	Role        Role      `json:"role"`
	Round       int       `json:"round"`
	Raw         string    `json:"-"`
	Body        string    `json:"body"`
	Agreement   Agreement `json:"agreement"`
	FinalAnswer *string   `json:"final_answer,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	Timing      Timing    `json:"timing"`
}

func (t Turn) VisibleDuration() time.Duration {
	return t.EndedAt.Sub(t.StartedAt)
}

// Failure identifies which role and round sank an unsuccessful debate.
type Failure struct {
	Role   Role   `json:"role"`
	Round  int    `json:"round"`
	Reason string `json:"reason"`
}

type Result struct {
	DebateID    uuid.UUID     `json:"debate_id"`
	Problem     string        `json:"problem"`
	Status      Status        `json:"status"`
	FinalAnswer *string       `json:"final_answer,omitempty"`
	Turns       []Turn        `json:"turns"`
	Rounds      int           `json:"rounds"`
	Violations  int           `json:"violations"`
	Failure     *Failure      `json:"failure,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Elapsed     time.Duration `json:"elapsed"`
}

func (r *Result) Agreed() bool {
	return r.Status == StatusAgreed
}

type DebateSummary struct {
	DebateID    uuid.UUID     `json:"debate_id"`
	Problem     string        `json:"problem"`
	Status      Status        `json:"status"`
	Rounds      int           `json:"rounds"`
	FinalAnswer *string       `json:"final_answer,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Elapsed     time.Duration `json:"elapsed"`
}
