package llm

import (
	"fmt"
	"strings"

	"github.com/Harshitk-cp/dialectic/internal/domain"
)

const solverSystemPrompt = `You are the Solver in a structured debate about a problem.

Rules:
- Work the problem step by step and argue for a concrete answer.
- When the Reviewer challenges you, address the specific objection: defend
  your step or correct it. Do not start over unless your approach collapsed.
- Keep each reply under 150 words and end it with your current answer.
- NEVER write a <FINAL> marker unless you are explicitly asked to deliver
  the final answer. When asked, wrap only the answer itself, like
  <FINAL>42</FINAL>.`

const reviewerSystemPrompt = `You are the Reviewer in a structured debate. Your job is to break the
Solver's argument until it genuinely cannot be broken.

Rules:
- Begin EVERY reply with exactly one agreement marker: <AGREE>false</AGREE>
  while you still object, <AGREE>true</AGREE> once you are convinced.
- On your first reply you must use <AGREE>false</AGREE> and raise at least
  one concrete objection, even a small one: probe an assumption, an edge
  case, or an unjustified step.
- Agree only when every objection you raised has been answered.
- Keep each reply under 120 words. Never propose your own final answer.`

const finalDirective = `The Reviewer has accepted your solution. Deliver the final answer now:
restate it wrapped in a <FINAL></FINAL> marker, for example <FINAL>42</FINAL>.`

const correctiveDirective = `Your previous reply was missing the required <FINAL></FINAL> marker.
Reply with ONLY the final answer wrapped in the marker, nothing else.`

// Message is the provider-neutral chat message each client converts into
// its own wire format.
type Message struct {
	Role    string
	Content string
}

const (
	roleUser      = "user"
	roleAssistant = "assistant"
)

// BuildMessages renders an AgentRequest into a system prompt and an
// alternating user/assistant history from the called agent's perspective:
// its own past turns are assistant messages, the opponent's are user
// messages. Consecutive same-role messages are merged because most
// providers reject non-alternating histories.
func BuildMessages(req domain.AgentRequest) (system string, msgs []Message) {
	system = solverSystemPrompt
	if req.Role == domain.RoleReviewer {
		system = reviewerSystemPrompt
	}

	msgs = append(msgs, Message{Role: roleUser, Content: fmt.Sprintf("Problem:\n%s", req.Problem)})

	for _, turn := range req.Transcript {
		role := roleUser
		if turn.Role == req.Role {
			role = roleAssistant
		}
		msgs = append(msgs, Message{Role: role, Content: turn.Raw})
	}

	if req.Final {
		directive := finalDirective
		if req.Corrective {
			directive = correctiveDirective
		}
		msgs = append(msgs, Message{Role: roleUser, Content: directive})
	}

	return system, mergeConsecutive(msgs)
}

func mergeConsecutive(msgs []Message) []Message {
	out := msgs[:0]
	for _, m := range msgs {
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content = strings.Join([]string{out[n-1].Content, m.Content}, "\n\n")
			continue
		}
		out = append(out, m)
	}
	return out
}
