package domain

import "fmt"

// AgentRequest is what an AgentClient implementation renders into its
// provider's wire format. Transcript is the ordered turn history; prompt
// construction belongs to the client, not the engine.
type AgentRequest struct {
	Role       Role
	Problem    string
	Transcript []Turn
	Final      bool
	Corrective bool
}

type AgentErrorKind string

const (
	AgentErrTimeout      AgentErrorKind = "timeout"
	AgentErrRateLimited  AgentErrorKind = "rate_limited"
	AgentErrTransport    AgentErrorKind = "transport"
	AgentErrUnauthorized AgentErrorKind = "unauthorized"
	AgentErrOther        AgentErrorKind = "other"
)

// AgentError classifies an agent call failure. Timeout, RateLimited and
// Transport are retryable; Unauthorized and Other are fatal for the debate.
type AgentError struct {
	Kind   AgentErrorKind
	Status int
	Err    error
}

func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("agent %s", e.Kind)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

func (e *AgentError) Retryable() bool {
	switch e.Kind {
	case AgentErrTimeout, AgentErrRateLimited, AgentErrTransport:
		return true
	}
	return false
}

func NewAgentError(kind AgentErrorKind, err error) *AgentError {
	return &AgentError{Kind: kind, Err: err}
}
