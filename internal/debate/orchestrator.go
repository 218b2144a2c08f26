// Package debate drives the adversarial exchange between a solver and a
// reviewer agent until they converge, the round budget runs out, or the
// debate fails. All failures land in the Result; Run never returns an error.
package debate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/dialectic/internal/domain"
	"github.com/Harshitk-cp/dialectic/internal/llm"
	"github.com/Harshitk-cp/dialectic/internal/pace"
	"github.com/Harshitk-cp/dialectic/internal/protocol"
	"github.com/Harshitk-cp/dialectic/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNilSolver   = errors.New("solver client is required")
	ErrNilReviewer = errors.New("reviewer client is required")
)

const defaultCallTimeout = 60 * time.Second

// Config is resolved once per orchestrator; the engine never mutates it.
type Config struct {
	Solver   domain.AgentClient
	Reviewer domain.AgentClient

	// DebateID identifies the debate when the caller needs it before Run
	// returns. The zero value generates one per Run.
	DebateID uuid.UUID

	Pace  domain.PaceConfig
	Retry llm.RetryPolicy

	// CallTimeout bounds each agent call. DebateTimeout bounds the whole
	// debate; zero derives a deadline from the pace settings.
	CallTimeout   time.Duration
	DebateTimeout time.Duration

	Sink     domain.TelemetrySink
	Renderer domain.Renderer
	Logger   *zap.Logger

	// Clock, Sleeper and Jitter make timing deterministic in tests. Nil
	// values use real time and math/rand.
	Clock   func() time.Time
	Sleeper pace.SleepFunc
	Jitter  func() float64
}

type Orchestrator struct {
	cfg    Config
	pace   *pace.Controller
	sink   domain.TelemetrySink
	render domain.Renderer
	logger *zap.Logger
	now    func() time.Time
	sleep  pace.SleepFunc
}

// New validates cfg and returns an orchestrator. Invalid configuration is a
// programmer error and fails here, not inside Run.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Solver == nil {
		return nil, ErrNilSolver
	}
	if cfg.Reviewer == nil {
		return nil, ErrNilReviewer
	}
	if cfg.Retry == (llm.RetryPolicy{}) {
		cfg.Retry = llm.DefaultRetryPolicy()
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("retry policy: %w", err)
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.Sink == nil {
		cfg.Sink = telemetry.NopSink{}
	}
	if cfg.Renderer == nil {
		cfg.Renderer = domain.NopRenderer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	var opts []pace.Option
	if cfg.Clock != nil {
		opts = append(opts, pace.WithClock(cfg.Clock))
	}
	if cfg.Sleeper != nil {
		opts = append(opts, pace.WithSleeper(cfg.Sleeper))
	}
	if cfg.Jitter != nil {
		opts = append(opts, pace.WithJitterSource(cfg.Jitter))
	}
	ctrl, err := pace.NewController(cfg.Pace, opts...)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:    cfg,
		pace:   ctrl,
		sink:   cfg.Sink,
		render: cfg.Renderer,
		logger: cfg.Logger,
		now:    time.Now,
		sleep:  pace.Sleep,
	}
	if cfg.Clock != nil {
		o.now = cfg.Clock
	}
	if cfg.Sleeper != nil {
		o.sleep = cfg.Sleeper
	}
	return o, nil
}

// state is owned exclusively by one Run invocation. Turns are append-only
// and chronological.
type state struct {
	id         uuid.UUID
	problem    string
	round      int
	phase      domain.Phase
	agreement  bool
	turns      []domain.Turn
	violations int
	startedAt  time.Time
}

func (s *state) lastRound() int {
	if len(s.turns) == 0 {
		return 0
	}
	return s.turns[len(s.turns)-1].Round
}

// Run executes one debate to completion. The returned Result carries every
// recorded turn and, on failure, which role and round sank the debate.
func (o *Orchestrator) Run(ctx context.Context, problem string) *domain.Result {
	id := o.cfg.DebateID
	if id == uuid.Nil {
		id = uuid.New()
	}
	st := &state{
		id:        id,
		problem:   problem,
		round:     1,
		phase:     domain.PhaseSolverTurn,
		startedAt: o.now(),
	}

	timeout := o.cfg.DebateTimeout
	if timeout <= 0 {
		timeout = deriveDeadline(o.cfg)
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	o.logger.Info("debate started",
		zap.String("debate_id", st.id.String()),
		zap.Int("max_rounds", o.cfg.Pace.MaxRounds),
		zap.Duration("deadline", timeout))
	o.sink.Emit(domain.Event{
		DebateID: st.id, Round: st.round, Phase: domain.PhaseStart,
		Outcome: domain.OutcomeOK, StartedAt: st.startedAt, EndedAt: st.startedAt,
	})

	var res *domain.Result
	for res == nil {
		switch st.phase {
		case domain.PhaseSolverTurn:
			res = o.runSolverTurn(dctx, st)
		case domain.PhaseReviewerTurn:
			res = o.runReviewerTurn(dctx, st)
		case domain.PhaseSolverFinal:
			res = o.runSolverFinal(dctx, st)
		}
	}

	outcome := domain.OutcomeOK
	if res.Status == domain.StatusAborted {
		outcome = domain.OutcomeFatal
	}
	o.sink.Emit(domain.Event{
		DebateID: st.id, Round: res.Rounds, Phase: domain.PhaseTerminated,
		Outcome: outcome, Detail: string(res.Status),
		StartedAt: st.startedAt, EndedAt: res.CompletedAt,
	})
	o.logger.Info("debate completed",
		zap.String("debate_id", st.id.String()),
		zap.String("status", string(res.Status)),
		zap.Int("rounds", res.Rounds),
		zap.Int("violations", res.Violations),
		zap.Duration("elapsed", res.Elapsed))
	o.render.DebateCompleted(*res)
	return res
}

// deriveDeadline budgets every possible turn, including the closing turn
// and its corrective retry, at full pace plus one agent call each.
func deriveDeadline(cfg Config) time.Duration {
	turns := 2*cfg.Pace.MaxRounds + 2
	perTurn := cfg.Pace.MinTurn + cfg.Pace.Gap + cfg.Pace.JitterBound + cfg.CallTimeout
	return time.Duration(turns) * perTurn
}

func (o *Orchestrator) runSolverTurn(ctx context.Context, st *state) *domain.Result {
	turn, parsed, fail := o.takeTurn(ctx, st, domain.RoleSolver, turnOpts{})
	if fail != nil {
		return o.finish(st, domain.StatusAborted, nil, fail)
	}

	// A final answer is off-limits until the reviewer has agreed. The
	// parser already stripped the marker from the body; the turn is kept.
	if parsed.FinalAnswer.State != protocol.SignalAbsent {
		st.violations++
		o.emitTurn(st, *turn, domain.OutcomeViolation, domain.ViolationPrematureFinal)
		o.logger.Warn("premature final answer stripped",
			zap.String("debate_id", st.id.String()), zap.Int("round", st.round))
	} else {
		o.emitTurn(st, *turn, domain.OutcomeOK, "")
	}

	st.turns = append(st.turns, *turn)
	o.render.TurnCompleted(*turn)
	st.phase = domain.PhaseReviewerTurn
	return nil
}

func (o *Orchestrator) runReviewerTurn(ctx context.Context, st *state) *domain.Result {
	turn, parsed, fail := o.takeTurn(ctx, st, domain.RoleReviewer, turnOpts{})
	if fail != nil {
		return o.finish(st, domain.StatusAborted, nil, fail)
	}

	agree := parsed.Agreement.Value
	if st.round == 1 && agree {
		// The debate always opens with disagreement. The override wins
		// over the raw agent claim and is recorded as a violation.
		agree = false
		st.violations++
		turn.Agreement = domain.AgreementFalse
		o.emitTurn(st, *turn, domain.OutcomeViolation, domain.ViolationForcedFalse)
		o.logger.Warn("round 1 agreement forced to false",
			zap.String("debate_id", st.id.String()))
	} else {
		turn.Agreement = domain.AgreementFromBool(agree)
		o.emitTurn(st, *turn, domain.OutcomeOK, "")
	}

	st.turns = append(st.turns, *turn)
	o.render.TurnCompleted(*turn)

	if agree {
		st.agreement = true
		st.round++
		st.phase = domain.PhaseSolverFinal
		return nil
	}

	st.round++
	if st.round > o.cfg.Pace.MaxRounds {
		return o.finish(st, domain.StatusMaxRounds, nil, nil)
	}
	st.phase = domain.PhaseSolverTurn
	return nil
}

func (o *Orchestrator) runSolverFinal(ctx context.Context, st *state) *domain.Result {
	turn, parsed, fail := o.takeTurn(ctx, st, domain.RoleSolver, turnOpts{final: true})
	if fail != nil {
		return o.finish(st, domain.StatusAborted, nil, fail)
	}
	if parsed.FinalAnswer.State == protocol.SignalPresent {
		return o.acceptFinal(st, turn, parsed.FinalAnswer.Value)
	}

	// Missing marker: one corrective re-request, then give up.
	st.violations++
	o.emitTurn(st, *turn, domain.OutcomeViolation, domain.ViolationMissingFinal)
	st.turns = append(st.turns, *turn)
	o.render.TurnCompleted(*turn)
	o.logger.Warn("final answer missing, issuing corrective re-request",
		zap.String("debate_id", st.id.String()), zap.Int("round", st.round))

	turn, parsed, fail = o.takeTurn(ctx, st, domain.RoleSolver, turnOpts{final: true, corrective: true})
	if fail != nil {
		return o.finish(st, domain.StatusAborted, nil, fail)
	}
	if parsed.FinalAnswer.State == protocol.SignalPresent {
		return o.acceptFinal(st, turn, parsed.FinalAnswer.Value)
	}

	st.violations++
	o.emitTurn(st, *turn, domain.OutcomeViolation, domain.ViolationMissingFinal)
	st.turns = append(st.turns, *turn)
	o.render.TurnCompleted(*turn)
	return o.finish(st, domain.StatusAborted, nil, &domain.Failure{
		Role:   domain.RoleSolver,
		Round:  st.round,
		Reason: "final answer missing after corrective re-request",
	})
}

func (o *Orchestrator) acceptFinal(st *state, turn *domain.Turn, answer string) *domain.Result {
	turn.FinalAnswer = &answer
	o.emitTurn(st, *turn, domain.OutcomeOK, "")
	st.turns = append(st.turns, *turn)
	o.render.TurnCompleted(*turn)
	return o.finish(st, domain.StatusAgreed, &answer, nil)
}

func (o *Orchestrator) finish(st *state, status domain.Status, answer *string, fail *domain.Failure) *domain.Result {
	now := o.now()
	return &domain.Result{
		DebateID:    st.id,
		Problem:     st.problem,
		Status:      status,
		FinalAnswer: answer,
		Turns:       st.turns,
		Rounds:      st.lastRound(),
		Violations:  st.violations,
		Failure:     fail,
		StartedAt:   st.startedAt,
		CompletedAt: now,
		Elapsed:     now.Sub(st.startedAt),
	}
}

type turnOpts struct {
	final      bool
	corrective bool
}

// takeTurn runs one paced agent turn: gap wait, bounded retries around the
// call, parse validation, then the minimum-duration gate. Transient
// failures (retryable errors, malformed markers) burn attempts; fatal ones
// return a Failure immediately. The debate deadline trumps everything.
func (o *Orchestrator) takeTurn(ctx context.Context, st *state, role domain.Role, opts turnOpts) (*domain.Turn, protocol.ParsedTurn, *domain.Failure) {
	client := o.cfg.Solver
	if role == domain.RoleReviewer {
		client = o.cfg.Reviewer
	}

	if len(st.turns) > 0 {
		if _, err := o.pace.GateGap(ctx); err != nil {
			return nil, protocol.ParsedTurn{}, failDeadline(ctx, st, role)
		}
	}

	o.render.TurnStarted(role, st.round)

	req := domain.AgentRequest{
		Role:       role,
		Problem:    st.problem,
		Transcript: st.turns,
		Final:      opts.final,
		Corrective: opts.corrective,
	}

	for attempt := 1; ; attempt++ {
		start := o.now()
		cctx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		raw, err := client.Send(cctx, req)
		cancel()

		if ctx.Err() != nil {
			o.emitAttempt(st, role, start, domain.OutcomeFatal, ctx.Err())
			return nil, protocol.ParsedTurn{}, failDeadline(ctx, st, role)
		}

		retryable := false
		var parsed protocol.ParsedTurn
		if err == nil {
			parsed = protocol.Parse(raw)
			if reason := rejectReason(role, opts, parsed); reason != "" {
				err = errors.New(reason)
				retryable = true
			}
		} else {
			retryable = retryableError(err)
		}

		if err == nil {
			latency := o.now().Sub(start)
			padding, gerr := o.pace.GateTurn(ctx, role, start)
			if gerr != nil {
				o.emitAttempt(st, role, start, domain.OutcomeFatal, ctx.Err())
				return nil, protocol.ParsedTurn{}, failDeadline(ctx, st, role)
			}
			turn := &domain.Turn{
				ID:        uuid.New(),
				DebateID:  st.id,
				Role:      role,
				Round:     st.round,
				Raw:       raw,
				Body:      parsed.Body,
				Agreement: domain.AgreementUnknown,
				StartedAt: start,
				EndedAt:   o.now(),
				Timing:    domain.Timing{AgentLatency: latency, Padding: padding},
			}
			return turn, parsed, nil
		}

		if !retryable {
			o.emitAttempt(st, role, start, domain.OutcomeFatal, err)
			return nil, parsed, &domain.Failure{Role: role, Round: st.round, Reason: err.Error()}
		}
		if attempt >= o.cfg.Retry.MaxAttempts {
			o.emitAttempt(st, role, start, domain.OutcomeFatal, err)
			return nil, parsed, &domain.Failure{
				Role:   role,
				Round:  st.round,
				Reason: fmt.Sprintf("retries exhausted after %d attempts: %v", attempt, err),
			}
		}

		o.emitAttempt(st, role, start, domain.OutcomeRetry, err)
		o.logger.Warn("agent call failed, retrying",
			zap.String("debate_id", st.id.String()),
			zap.String("role", string(role)),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if serr := o.sleep(ctx, o.cfg.Retry.Backoff(attempt)); serr != nil {
			return nil, parsed, failDeadline(ctx, st, role)
		}
	}
}

// rejectReason flags parse results that make the turn unusable. Malformed
// or missing-where-required markers are transient, never defaulted. The
// one exception is an absent final marker after agreement, which takes the
// corrective path in runSolverFinal instead.
func rejectReason(role domain.Role, opts turnOpts, parsed protocol.ParsedTurn) string {
	if role == domain.RoleReviewer {
		switch parsed.Agreement.State {
		case protocol.SignalAbsent:
			return "agreement marker missing"
		case protocol.SignalMalformed:
			return "agreement marker malformed"
		}
	}
	if opts.final && parsed.FinalAnswer.State == protocol.SignalMalformed {
		return "final answer marker malformed"
	}
	return ""
}

func retryableError(err error) bool {
	var agentErr *domain.AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Retryable()
	}
	// A per-call timeout may surface as a bare context error from the
	// client; the debate deadline was already checked by the caller.
	return errors.Is(err, context.DeadlineExceeded)
}

func failDeadline(ctx context.Context, st *state, role domain.Role) *domain.Failure {
	reason := "debate deadline exceeded"
	if errors.Is(ctx.Err(), context.Canceled) {
		reason = "debate cancelled"
	}
	return &domain.Failure{Role: role, Round: st.round, Reason: reason}
}

func (o *Orchestrator) emitTurn(st *state, t domain.Turn, outcome domain.EventOutcome, detail string) {
	o.sink.Emit(domain.Event{
		DebateID:  st.id,
		Round:     t.Round,
		Phase:     st.phase,
		Role:      t.Role,
		Outcome:   outcome,
		Detail:    detail,
		StartedAt: t.StartedAt,
		EndedAt:   t.EndedAt,
	})
}

func (o *Orchestrator) emitAttempt(st *state, role domain.Role, start time.Time, outcome domain.EventOutcome, err error) {
	e := domain.Event{
		DebateID:  st.id,
		Round:     st.round,
		Phase:     st.phase,
		Role:      role,
		Outcome:   outcome,
		StartedAt: start,
		EndedAt:   o.now(),
	}
	if err != nil {
		e.Err = err.Error()
	}
	o.sink.Emit(e)
}
