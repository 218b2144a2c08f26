package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Harshitk-cp/dialectic/internal/domain"
)

// ScriptedReply is one canned agent response.
type ScriptedReply struct {
	Text  string
	Err   error
	Delay time.Duration // simulated latency before returning
	Block bool          // ignore Text/Err and block until ctx is done
}

// ScriptedClient replays a fixed script of replies, one per Send, and
// records every request for assertions. Safe for concurrent use.
type ScriptedClient struct {
	// OnSend runs after the request is recorded but before the reply is
	// produced. Tests use it to advance fake clocks.
	OnSend func(req domain.AgentRequest)

	mu      sync.Mutex
	replies []ScriptedReply
	pos     int
	calls   []domain.AgentRequest
}

func NewScriptedClient(replies ...ScriptedReply) *ScriptedClient {
	return &ScriptedClient{replies: replies}
}

// Reply appends to the script.
func (c *ScriptedClient) Reply(r ScriptedReply) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, r)
	return c
}

func (c *ScriptedClient) Send(ctx context.Context, req domain.AgentRequest) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	if c.pos >= len(c.replies) {
		c.mu.Unlock()
		return "", fmt.Errorf("scripted client: no reply for call %d", len(c.calls))
	}
	reply := c.replies[c.pos]
	c.pos++
	onSend := c.OnSend
	c.mu.Unlock()

	if onSend != nil {
		onSend(req)
	}

	if reply.Block {
		<-ctx.Done()
		return "", &domain.AgentError{Kind: domain.AgentErrTimeout, Err: ctx.Err()}
	}

	if reply.Delay > 0 {
		t := time.NewTimer(reply.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", &domain.AgentError{Kind: domain.AgentErrTimeout, Err: ctx.Err()}
		case <-t.C:
		}
	}

	return reply.Text, reply.Err
}

// Calls snapshots the recorded requests.
func (c *ScriptedClient) Calls() []domain.AgentRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.AgentRequest, len(c.calls))
	copy(out, c.calls)
	return out
}

// Remaining reports how many scripted replies were never used.
func (c *ScriptedClient) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.replies) - c.pos
}

var _ domain.AgentClient = (*ScriptedClient)(nil)
