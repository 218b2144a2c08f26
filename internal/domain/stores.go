package domain

import (
	"context"

	"github.com/google/uuid"
)

// AgentClient is one reasoning agent behind a network boundary. Send blocks
// until the agent answers, the context is done, or the call fails; failures
// are *AgentError values. Implementations must be safe for concurrent use
// across debates.
type AgentClient interface {
	Send(ctx context.Context, req AgentRequest) (string, error)
}

// TelemetrySink receives orchestration events. Emit must not block debate
// progress; slow consumers buffer or drop.
type TelemetrySink interface {
	Emit(e Event)
}

// Renderer observes debate progress for presentation. It is read-only:
// nothing it does feeds back into orchestration state.
type Renderer interface {
	TurnStarted(role Role, round int)
	TurnCompleted(t Turn)
	DebateCompleted(r Result)
}

type NopRenderer struct{}

func (NopRenderer) TurnStarted(Role, int)  {}
func (NopRenderer) TurnCompleted(Turn)     {}
func (NopRenderer) DebateCompleted(Result) {}

type DebateStore interface {
	SaveResult(ctx context.Context, r *Result) error
	GetResult(ctx context.Context, id uuid.UUID) (*Result, error)
	ListResults(ctx context.Context, limit int) ([]DebateSummary, error)
}
