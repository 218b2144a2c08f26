package debate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/dialectic/internal/domain"
	"github.com/Harshitk-cp/dialectic/internal/llm"
	"github.com/Harshitk-cp/dialectic/internal/store"
	"github.com/Harshitk-cp/dialectic/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrDebateNotFound = errors.New("debate not found")
	ErrDebateFinished = errors.New("debate already finished")
	ErrTooManyDebates = errors.New("too many concurrent debates")
	ErrEmptyProblem   = errors.New("problem statement is required")
)

const (
	defaultRetention     = 30 * time.Minute
	defaultMaxConcurrent = 32
	janitorInterval      = time.Minute
	archiveTimeout       = 10 * time.Second
)

// ManagerConfig carries the defaults every debate starts from. A Start
// call may override the pace.
type ManagerConfig struct {
	Solver   domain.AgentClient
	Reviewer domain.AgentClient

	Pace  domain.PaceConfig
	Retry llm.RetryPolicy

	CallTimeout   time.Duration
	DebateTimeout time.Duration

	// MaxConcurrent caps debates running at once; Start refuses new ones
	// past the cap. Zero uses the default.
	MaxConcurrent int

	Sink   domain.TelemetrySink
	Store  domain.DebateStore
	Logger *zap.Logger

	// Retention keeps finished debates in memory for snapshots and
	// watchers before the janitor evicts them; the store keeps them
	// indefinitely.
	Retention time.Duration
}

// Manager runs debates concurrently, each on its own goroutine with its
// own state. It is the boundary the HTTP layer talks to.
type Manager struct {
	cfg    ManagerConfig
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*session

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Solver == nil {
		return nil, ErrNilSolver
	}
	if cfg.Reviewer == nil {
		return nil, ErrNilReviewer
	}
	if err := cfg.Pace.Validate(); err != nil {
		return nil, fmt.Errorf("pace config: %w", err)
	}
	if cfg.Sink == nil {
		cfg.Sink = telemetry.NopSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	return &Manager{
		cfg:      cfg,
		logger:   cfg.Logger,
		sessions: make(map[uuid.UUID]*session),
		stopCh:   make(chan struct{}),
	}, nil
}

// session is the in-memory record of one debate: its live transcript, its
// broker, and eventually its result.
type session struct {
	id        uuid.UUID
	problem   string
	startedAt time.Time
	cancel    context.CancelFunc
	broker    *broker

	mu         sync.Mutex
	phase      domain.Phase
	agreed     bool
	turns      []domain.Turn
	result     *domain.Result
	finishedAt time.Time
}

// TurnStarted mirrors the debate's phase so snapshots can report live
// progress. A solver turn after agreement is the closing one.
func (s *session) TurnStarted(role domain.Role, round int) {
	s.mu.Lock()
	switch {
	case role == domain.RoleReviewer:
		s.phase = domain.PhaseReviewerTurn
	case s.agreed:
		s.phase = domain.PhaseSolverFinal
	default:
		s.phase = domain.PhaseSolverTurn
	}
	s.mu.Unlock()
	s.broker.publish(Frame{Type: FrameTurnStarted, Role: role, Round: round})
}

func (s *session) TurnCompleted(t domain.Turn) {
	s.mu.Lock()
	s.turns = append(s.turns, t)
	if t.Role == domain.RoleReviewer && t.Agreement == domain.AgreementTrue {
		s.agreed = true
	}
	s.mu.Unlock()
	turn := t
	s.broker.publish(Frame{Type: FrameTurn, Turn: &turn})
}

func (s *session) DebateCompleted(domain.Result) {}

func (s *session) Emit(e domain.Event) {
	ev := e
	s.broker.publish(Frame{Type: FrameEvent, Event: &ev})
}

func (s *session) complete(res *domain.Result) {
	s.mu.Lock()
	s.result = res
	s.finishedAt = time.Now()
	s.mu.Unlock()
	s.broker.publish(Frame{Type: FrameResult, Result: res})
	s.broker.close()
}

func (s *session) snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &Snapshot{
		DebateID:  s.id,
		Problem:   s.problem,
		Status:    domain.StatusRunning,
		Phase:     s.phase,
		StartedAt: s.startedAt,
		Turns:     append([]domain.Turn(nil), s.turns...),
	}
	if s.result != nil {
		snap.Status = s.result.Status
		snap.Phase = domain.PhaseTerminated
		snap.Result = s.result
	}
	return snap
}

func (s *session) summary() domain.DebateSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := domain.DebateSummary{
		DebateID:  s.id,
		Problem:   s.problem,
		Status:    domain.StatusRunning,
		StartedAt: s.startedAt,
	}
	if s.result != nil {
		sum.Status = s.result.Status
		sum.Rounds = s.result.Rounds
		sum.FinalAnswer = s.result.FinalAnswer
		sum.Elapsed = s.result.Elapsed
		return sum
	}
	if n := len(s.turns); n > 0 {
		sum.Rounds = s.turns[n-1].Round
	}
	return sum
}

// Snapshot is a point-in-time view of one debate, live or finished.
type Snapshot struct {
	DebateID  uuid.UUID      `json:"debate_id"`
	Problem   string         `json:"problem"`
	Status    domain.Status  `json:"status"`
	Phase     domain.Phase   `json:"phase"`
	StartedAt time.Time      `json:"started_at"`
	Turns     []domain.Turn  `json:"turns"`
	Result    *domain.Result `json:"result,omitempty"`
}

// Start launches a debate on its own goroutine and returns its ID
// immediately. A zero paceCfg uses the manager default. Once MaxConcurrent
// debates are running, new starts are refused.
func (m *Manager) Start(problem string, paceCfg domain.PaceConfig) (uuid.UUID, error) {
	if strings.TrimSpace(problem) == "" {
		return uuid.Nil, ErrEmptyProblem
	}
	if paceCfg == (domain.PaceConfig{}) {
		paceCfg = m.cfg.Pace
	}

	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:        id,
		problem:   problem,
		startedAt: time.Now(),
		phase:     domain.PhaseStart,
		cancel:    cancel,
		broker:    newBroker(),
	}

	orch, err := New(Config{
		Solver:        m.cfg.Solver,
		Reviewer:      m.cfg.Reviewer,
		DebateID:      id,
		Pace:          paceCfg,
		Retry:         m.cfg.Retry,
		CallTimeout:   m.cfg.CallTimeout,
		DebateTimeout: m.cfg.DebateTimeout,
		Sink:          telemetry.NewMultiSink(m.cfg.Sink, s),
		Renderer:      s,
		Logger:        m.logger,
	})
	if err != nil {
		cancel()
		return uuid.Nil, err
	}

	m.mu.Lock()
	if m.runningLocked() >= m.cfg.MaxConcurrent {
		m.mu.Unlock()
		cancel()
		return uuid.Nil, ErrTooManyDebates
	}
	m.sessions[id] = s
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		res := orch.Run(ctx, problem)
		s.complete(res)
		m.archive(res)
	}()
	return id, nil
}

// runningLocked counts unfinished sessions. Finished ones stay registered
// until the janitor evicts them but release their slot. Callers hold m.mu.
func (m *Manager) runningLocked() int {
	n := 0
	for _, s := range m.sessions {
		s.mu.Lock()
		if s.result == nil {
			n++
		}
		s.mu.Unlock()
	}
	return n
}

func (m *Manager) archive(res *domain.Result) {
	if m.cfg.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := m.cfg.Store.SaveResult(ctx, res); err != nil {
		m.logger.Error("failed to archive debate",
			zap.String("debate_id", res.DebateID.String()),
			zap.Error(err))
	}
}

// Cancel aborts a running debate. The debate still terminates through the
// normal path, producing an aborted Result.
func (m *Manager) Cancel(id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return ErrDebateNotFound
	}
	s.mu.Lock()
	finished := s.result != nil
	s.mu.Unlock()
	if finished {
		return ErrDebateFinished
	}
	s.cancel()
	return nil
}

// Snapshot returns the current view of a debate, falling back to the store
// for debates the janitor already evicted.
func (m *Manager) Snapshot(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return s.snapshot(), nil
	}
	if m.cfg.Store == nil {
		return nil, ErrDebateNotFound
	}
	res, err := m.cfg.Store.GetResult(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDebateNotFound
		}
		return nil, fmt.Errorf("load debate: %w", err)
	}
	return &Snapshot{
		DebateID:  res.DebateID,
		Problem:   res.Problem,
		Status:    res.Status,
		Phase:     domain.PhaseTerminated,
		StartedAt: res.StartedAt,
		Turns:     res.Turns,
		Result:    res,
	}, nil
}

// Watch subscribes to a debate's frame stream: full history, then live
// frames until the debate finishes. Only in-memory debates are watchable.
func (m *Manager) Watch(id uuid.UUID) (<-chan Frame, func(), error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil, ErrDebateNotFound
	}
	ch, cancel := s.broker.subscribe()
	return ch, cancel, nil
}

// List merges live sessions with archived results, newest first.
func (m *Manager) List(ctx context.Context, limit int) ([]domain.DebateSummary, error) {
	m.mu.Lock()
	summaries := make([]domain.DebateSummary, 0, len(m.sessions))
	seen := make(map[uuid.UUID]bool, len(m.sessions))
	for _, s := range m.sessions {
		summaries = append(summaries, s.summary())
		seen[s.id] = true
	}
	m.mu.Unlock()

	if m.cfg.Store != nil {
		stored, err := m.cfg.Store.ListResults(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("list stored debates: %w", err)
		}
		for _, ds := range stored {
			if !seen[ds.DebateID] {
				summaries = append(summaries, ds)
			}
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// StartJanitor launches the background worker that evicts finished
// sessions past their retention.
func (m *Manager) StartJanitor() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(janitorInterval)
		defer ticker.Stop()

		m.logger.Info("debate janitor started", zap.Duration("retention", m.cfg.Retention))

		for {
			select {
			case <-ticker.C:
				m.evictFinished()
			case <-m.stopCh:
				m.logger.Info("debate janitor stopped")
				return
			}
		}
	}()
}

// Stop cancels every running debate, stops the janitor, and waits for all
// debate goroutines to archive their results.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.mu.Lock()
	for _, s := range m.sessions {
		s.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) evictFinished() {
	cutoff := time.Now().Add(-m.cfg.Retention)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.mu.Lock()
		expired := s.result != nil && s.finishedAt.Before(cutoff)
		s.mu.Unlock()
		if expired {
			delete(m.sessions, id)
		}
	}
}

var _ domain.Renderer = (*session)(nil)
var _ domain.TelemetrySink = (*session)(nil)
