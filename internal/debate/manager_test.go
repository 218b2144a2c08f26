package debate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Harshitk-cp/dialectic/internal/domain"
	"github.com/Harshitk-cp/dialectic/internal/llm"
	"github.com/Harshitk-cp/dialectic/internal/store"
	"github.com/google/uuid"
)

func newTestManager(t *testing.T, solver, reviewer domain.AgentClient, st domain.DebateStore) *Manager {
	t.Helper()
	m, err := NewManager(ManagerConfig{
		Solver:   solver,
		Reviewer: reviewer,
		Pace: domain.PaceConfig{
			MinTurn:    time.Millisecond,
			Gap:        time.Millisecond,
			RevealRate: 1000,
			MaxRounds:  3,
		},
		Retry: llm.RetryPolicy{
			MaxAttempts: 2,
			BaseDelay:   time.Millisecond,
			Multiplier:  2,
			MaxDelay:    5 * time.Millisecond,
		},
		Store: st,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return m
}

// agreeingScript settles in round 2: disagree, then agree, then close.
func agreeingScript() (*llm.ScriptedClient, *llm.ScriptedClient) {
	solver := llm.NewScriptedClient(
		llm.ScriptedReply{Text: "I propose 42."},
		llm.ScriptedReply{Text: "Still 42."},
		llm.ScriptedReply{Text: "<FINAL>42</FINAL>"},
	)
	reviewer := llm.NewScriptedClient(
		llm.ScriptedReply{Text: "<AGREE>false</AGREE> Why 42?"},
		llm.ScriptedReply{Text: "<AGREE>true</AGREE> Convinced."},
	)
	return solver, reviewer
}

func drainFrames(t *testing.T, ch <-chan Frame) []Frame {
	t.Helper()
	var frames []Frame
	for {
		select {
		case f, ok := <-ch:
			if !ok {
				return frames
			}
			frames = append(frames, f)
		case <-time.After(5 * time.Second):
			t.Fatalf("watch stream never closed, got %d frames", len(frames))
		}
	}
}

func countFrames(frames []Frame, frameType string) int {
	n := 0
	for _, f := range frames {
		if f.Type == frameType {
			n++
		}
	}
	return n
}

func TestManagerRunsDebateToCompletion(t *testing.T) {
	solver, reviewer := agreeingScript()
	st := store.NewMemoryStore()
	m := newTestManager(t, solver, reviewer, st)

	id, err := m.Start("what is six times seven?", domain.PaceConfig{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	ch, cancelWatch, err := m.Watch(id)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer cancelWatch()

	frames := drainFrames(t, ch)

	if got := countFrames(frames, FrameTurnStarted); got != 5 {
		t.Fatalf("expected 5 turn-started frames, got %d", got)
	}
	if got := countFrames(frames, FrameTurn); got != 5 {
		t.Fatalf("expected 5 turn frames, got %d", got)
	}
	// One start event, one per turn, one terminal.
	if got := countFrames(frames, FrameEvent); got != 7 {
		t.Fatalf("expected 7 event frames, got %d", got)
	}
	if got := countFrames(frames, FrameResult); got != 1 {
		t.Fatalf("expected 1 result frame, got %d", got)
	}
	first := frames[0]
	if first.Type != FrameEvent || first.Event.Phase != domain.PhaseStart {
		t.Fatalf("expected leading start event, got %+v", first)
	}
	last := frames[len(frames)-1]
	if last.Type != FrameResult || last.Result.Status != domain.StatusAgreed {
		t.Fatalf("expected closing result frame, got %+v", last)
	}

	snap, err := m.Snapshot(context.Background(), id)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.Status != domain.StatusAgreed {
		t.Fatalf("expected status agreed, got %q", snap.Status)
	}
	if snap.Phase != domain.PhaseTerminated {
		t.Fatalf("expected terminated phase, got %q", snap.Phase)
	}
	if len(snap.Turns) != 5 {
		t.Fatalf("expected 5 turns, got %d", len(snap.Turns))
	}
	if snap.Result == nil || snap.Result.FinalAnswer == nil || *snap.Result.FinalAnswer != "42" {
		t.Fatalf("expected final answer 42, got %+v", snap.Result)
	}

	// Stop waits for the debate goroutine, so the archive is visible.
	m.Stop()
	archived, err := st.GetResult(context.Background(), id)
	if err != nil {
		t.Fatalf("expected archived result, got %v", err)
	}
	if archived.Status != domain.StatusAgreed {
		t.Fatalf("expected archived status agreed, got %q", archived.Status)
	}
}

func TestManagerStartValidation(t *testing.T) {
	solver, reviewer := agreeingScript()
	m := newTestManager(t, solver, reviewer, nil)
	defer m.Stop()

	if _, err := m.Start("   ", domain.PaceConfig{}); !errors.Is(err, ErrEmptyProblem) {
		t.Fatalf("expected ErrEmptyProblem, got %v", err)
	}
	bad := domain.PaceConfig{MinTurn: -time.Second, RevealRate: 10, MaxRounds: 1}
	if _, err := m.Start("x", bad); !errors.Is(err, domain.ErrPaceMinTurn) {
		t.Fatalf("expected pace validation error, got %v", err)
	}
}

func TestManagerCancelAbortsRunningDebate(t *testing.T) {
	solver := llm.NewScriptedClient(llm.ScriptedReply{Block: true})
	reviewer := llm.NewScriptedClient()
	m := newTestManager(t, solver, reviewer, nil)
	defer m.Stop()

	id, err := m.Start("hangs forever", domain.PaceConfig{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// The solver blocks mid-call, so the snapshot settles on a live
	// solver turn.
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := m.Snapshot(context.Background(), id)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if snap.Status != domain.StatusRunning {
			t.Fatalf("expected status running, got %q", snap.Status)
		}
		if snap.Phase == domain.PhaseSolverTurn {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot never reached the solver turn, phase %q", snap.Phase)
		}
		time.Sleep(5 * time.Millisecond)
	}

	ch, cancelWatch, err := m.Watch(id)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer cancelWatch()

	if err := m.Cancel(id); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	frames := drainFrames(t, ch)
	last := frames[len(frames)-1]
	if last.Type != FrameResult || last.Result.Status != domain.StatusAborted {
		t.Fatalf("expected aborted result frame, got %+v", last)
	}
	if last.Result.Failure == nil || last.Result.Failure.Reason != "debate cancelled" {
		t.Fatalf("unexpected failure %+v", last.Result.Failure)
	}

	if err := m.Cancel(id); !errors.Is(err, ErrDebateFinished) {
		t.Fatalf("expected ErrDebateFinished, got %v", err)
	}
	if err := m.Cancel(uuid.New()); !errors.Is(err, ErrDebateNotFound) {
		t.Fatalf("expected ErrDebateNotFound, got %v", err)
	}
}

func TestManagerEnforcesConcurrencyLimit(t *testing.T) {
	solver := llm.NewScriptedClient(
		llm.ScriptedReply{Block: true},
		llm.ScriptedReply{Block: true},
	)
	reviewer := llm.NewScriptedClient()
	m, err := NewManager(ManagerConfig{
		Solver:   solver,
		Reviewer: reviewer,
		Pace: domain.PaceConfig{
			MinTurn:    time.Millisecond,
			Gap:        time.Millisecond,
			RevealRate: 1000,
			MaxRounds:  3,
		},
		MaxConcurrent: 1,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer m.Stop()

	first, err := m.Start("fills the only slot", domain.PaceConfig{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := m.Start("over the limit", domain.PaceConfig{}); !errors.Is(err, ErrTooManyDebates) {
		t.Fatalf("expected ErrTooManyDebates, got %v", err)
	}

	ch, cancelWatch, err := m.Watch(first)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := m.Cancel(first); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	drainFrames(t, ch)
	cancelWatch()

	// Finished sessions stay visible but release their slot.
	if _, err := m.Start("after the slot frees", domain.PaceConfig{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestManagerWatchUnknownDebate(t *testing.T) {
	solver, reviewer := agreeingScript()
	m := newTestManager(t, solver, reviewer, nil)
	defer m.Stop()

	if _, _, err := m.Watch(uuid.New()); !errors.Is(err, ErrDebateNotFound) {
		t.Fatalf("expected ErrDebateNotFound, got %v", err)
	}
}

func TestManagerSnapshotFallsBackToStore(t *testing.T) {
	st := store.NewMemoryStore()
	answer := "42"
	archived := &domain.Result{
		DebateID:    uuid.New(),
		Problem:     "archived debate",
		Status:      domain.StatusAgreed,
		FinalAnswer: &answer,
		Rounds:      2,
		StartedAt:   time.Now().Add(-time.Hour),
		CompletedAt: time.Now().Add(-59 * time.Minute),
		Elapsed:     time.Minute,
	}
	if err := st.SaveResult(context.Background(), archived); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	solver, reviewer := agreeingScript()
	m := newTestManager(t, solver, reviewer, st)
	defer m.Stop()

	snap, err := m.Snapshot(context.Background(), archived.DebateID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.Status != domain.StatusAgreed || snap.Problem != "archived debate" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Result == nil {
		t.Fatalf("expected result attached to archived snapshot")
	}

	if _, err := m.Snapshot(context.Background(), uuid.New()); !errors.Is(err, ErrDebateNotFound) {
		t.Fatalf("expected ErrDebateNotFound, got %v", err)
	}
}

func TestManagerListMergesLiveAndStored(t *testing.T) {
	st := store.NewMemoryStore()
	old := &domain.Result{
		DebateID:  uuid.New(),
		Problem:   "old debate",
		Status:    domain.StatusMaxRounds,
		Rounds:    3,
		StartedAt: time.Now().Add(-time.Hour),
	}
	if err := st.SaveResult(context.Background(), old); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	solver := llm.NewScriptedClient(
		llm.ScriptedReply{Text: "I propose 42."},
		llm.ScriptedReply{Text: "Still 42."},
		llm.ScriptedReply{Text: "<FINAL>42</FINAL>"},
		llm.ScriptedReply{Block: true},
	)
	reviewer := llm.NewScriptedClient(
		llm.ScriptedReply{Text: "<AGREE>false</AGREE> Why 42?"},
		llm.ScriptedReply{Text: "<AGREE>true</AGREE> Convinced."},
	)
	m := newTestManager(t, solver, reviewer, st)
	defer m.Stop()

	finished, err := m.Start("finished debate", domain.PaceConfig{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	ch, cancelWatch, err := m.Watch(finished)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	drainFrames(t, ch)
	cancelWatch()

	// The archive happens after the result frame; wait for it so the
	// finished debate exists both live and stored.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := st.GetResult(context.Background(), finished); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("debate %s never archived", finished)
		}
		time.Sleep(5 * time.Millisecond)
	}

	live, err := m.Start("live debate", domain.PaceConfig{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	list, err := m.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(list))
	}
	if list[0].DebateID != live || list[0].Status != domain.StatusRunning {
		t.Fatalf("expected live debate first, got %+v", list[0])
	}
	if list[1].DebateID != finished || list[1].Status != domain.StatusAgreed {
		t.Fatalf("expected finished debate second, got %+v", list[1])
	}
	if list[2].DebateID != old.DebateID {
		t.Fatalf("expected stored debate last, got %+v", list[2])
	}

	limited, err := m.List(context.Background(), 2)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(limited) != 2 || limited[0].DebateID != live || limited[1].DebateID != finished {
		t.Fatalf("unexpected limited list %+v", limited)
	}
}

func TestManagerEvictsFinishedSessions(t *testing.T) {
	solver, reviewer := agreeingScript()
	st := store.NewMemoryStore()
	m, err := NewManager(ManagerConfig{
		Solver:   solver,
		Reviewer: reviewer,
		Pace: domain.PaceConfig{
			MinTurn:    time.Millisecond,
			Gap:        time.Millisecond,
			RevealRate: 1000,
			MaxRounds:  3,
		},
		Store:     st,
		Retention: time.Nanosecond,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer m.Stop()

	id, err := m.Start("short lived", domain.PaceConfig{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	ch, cancelWatch, err := m.Watch(id)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	drainFrames(t, ch)
	cancelWatch()

	time.Sleep(10 * time.Millisecond)
	m.evictFinished()

	if _, _, err := m.Watch(id); !errors.Is(err, ErrDebateNotFound) {
		t.Fatalf("expected evicted debate unwatchable, got %v", err)
	}

	// The store still serves the snapshot after eviction.
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := m.Snapshot(context.Background(), id)
		if err == nil {
			if snap.Status != domain.StatusAgreed {
				t.Fatalf("expected archived status agreed, got %q", snap.Status)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot never served from store: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewManagerValidatesConfig(t *testing.T) {
	solver, reviewer := agreeingScript()

	if _, err := NewManager(ManagerConfig{}); !errors.Is(err, ErrNilSolver) {
		t.Fatalf("expected ErrNilSolver, got %v", err)
	}
	if _, err := NewManager(ManagerConfig{Solver: solver}); !errors.Is(err, ErrNilReviewer) {
		t.Fatalf("expected ErrNilReviewer, got %v", err)
	}
	if _, err := NewManager(ManagerConfig{Solver: solver, Reviewer: reviewer}); !errors.Is(err, domain.ErrPaceMinTurn) {
		t.Fatalf("expected pace validation error, got %v", err)
	}
}
