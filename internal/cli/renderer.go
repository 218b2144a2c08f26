// Package cli renders a running debate to a terminal, line by line. The
// renderer is a read-only observer: it paces the reveal of each turn's text
// but nothing it does feeds back into the debate.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Harshitk-cp/dialectic/internal/domain"
	"github.com/Harshitk-cp/dialectic/internal/pace"
)

// Renderer writes one debate to out. Plain mode drops colors, panels and
// the typing effect, which keeps output sane when piped.
type Renderer struct {
	out   io.Writer
	ctx   context.Context
	pacer *pace.Controller
	plain bool
}

// New builds a renderer bound to a single debate run. ctx bounds the typing
// effect: once it is cancelled, remaining text flushes immediately.
func New(ctx context.Context, out io.Writer, pacer *pace.Controller, plain bool) *Renderer {
	return &Renderer{out: out, ctx: ctx, pacer: pacer, plain: plain}
}

func roleLabel(role domain.Role) string {
	switch role {
	case domain.RoleSolver:
		return "Solver"
	case domain.RoleReviewer:
		return "Reviewer"
	default:
		return string(role)
	}
}

// TurnStarted prints the speaker banner before the agent's text arrives.
func (r *Renderer) TurnStarted(role domain.Role, round int) {
	banner := fmt.Sprintf("── %s · round %d ──", roleLabel(role), round)
	if r.plain {
		fmt.Fprintf(r.out, "\n%s\n", banner)
		return
	}
	style := solverBanner
	if role == domain.RoleReviewer {
		style = reviewerBanner
	}
	fmt.Fprintf(r.out, "\n%s\n", style.Render(banner))
}

// TurnCompleted types out the turn body and a short status note.
func (r *Renderer) TurnCompleted(t domain.Turn) {
	text := strings.TrimSpace(t.Body)
	if text == "" && t.FinalAnswer != nil {
		text = *t.FinalAnswer
	}
	r.writeText(text)

	var parts []string
	switch {
	case t.FinalAnswer != nil:
		parts = append(parts, "final answer given")
	case t.Agreement == domain.AgreementTrue:
		parts = append(parts, "agrees")
	case t.Agreement == domain.AgreementFalse:
		parts = append(parts, "pushes back")
	}
	parts = append(parts, t.VisibleDuration().Round(10*time.Millisecond).String())
	note := "(" + strings.Join(parts, ", ") + ")"
	if r.plain {
		fmt.Fprintln(r.out, note)
		return
	}
	fmt.Fprintln(r.out, statusLine.Render(note))
}

// writeText reveals text at the pace controller's rate. Each step prints
// only the new runes, so the concatenated output is the text exactly once.
func (r *Renderer) writeText(text string) {
	if text == "" {
		return
	}
	if r.plain {
		fmt.Fprintln(r.out, text)
		return
	}
	rev := r.pacer.Reveal(text)
	printed := 0
	for {
		prefix, ok, err := rev.Next(r.ctx)
		if err != nil || !ok {
			break
		}
		fmt.Fprint(r.out, prefix[printed:])
		printed = len(prefix)
	}
	if printed < len(text) {
		fmt.Fprint(r.out, text[printed:])
	}
	fmt.Fprintln(r.out)
}

// DebateCompleted prints the closing result panel.
func (r *Renderer) DebateCompleted(res domain.Result) {
	body := strings.Join(resultLines(res), "\n")
	if r.plain {
		fmt.Fprintf(r.out, "\n%s\n", body)
		return
	}
	panel := agreedPanel
	if !res.Agreed() {
		panel = failedPanel
	}
	fmt.Fprintf(r.out, "\n%s\n", panel.Render(body))
}

func resultLines(res domain.Result) []string {
	elapsed := res.Elapsed.Round(100 * time.Millisecond)
	var lines []string
	switch res.Status {
	case domain.StatusAgreed:
		lines = append(lines, fmt.Sprintf("Agreed after %d rounds in %s", res.Rounds, elapsed))
		if res.FinalAnswer != nil {
			lines = append(lines, "Answer: "+*res.FinalAnswer)
		}
	case domain.StatusMaxRounds:
		lines = append(lines, fmt.Sprintf("No agreement after %d rounds (%s)", res.Rounds, elapsed))
	case domain.StatusAborted:
		if res.Failure != nil {
			lines = append(lines, fmt.Sprintf("Aborted in round %d: %s (%s)",
				res.Failure.Round, res.Failure.Reason, res.Failure.Role))
		} else {
			lines = append(lines, "Aborted")
		}
	default:
		lines = append(lines, string(res.Status))
	}
	if res.Violations > 0 {
		lines = append(lines, fmt.Sprintf("Protocol violations: %d", res.Violations))
	}
	return lines
}

// TimingSummary formats the pacing breakdown of a finished debate.
func TimingSummary(res domain.Result) string {
	s := pace.Summarize(res.Turns)
	return fmt.Sprintf("%d turns, %s visible (%s agent, %s padding)",
		s.Turns,
		s.Visible.Round(10*time.Millisecond),
		s.AgentLatency.Round(10*time.Millisecond),
		s.Padding.Round(10*time.Millisecond))
}

var _ domain.Renderer = (*Renderer)(nil)
