package store

import (
	"context"
	"errors"
	"time"

	"github.com/Harshitk-cp/dialectic/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS debates (
    id UUID PRIMARY KEY,
    problem TEXT NOT NULL,
    status TEXT NOT NULL,
    final_answer TEXT,
    rounds INT NOT NULL,
    violations INT NOT NULL,
    failure_role TEXT,
    failure_round INT,
    failure_reason TEXT,
    started_at TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ NOT NULL,
    elapsed_ms BIGINT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS debate_turns (
    id UUID PRIMARY KEY,
    debate_id UUID NOT NULL REFERENCES debates(id) ON DELETE CASCADE,
    seq INT NOT NULL,
    role TEXT NOT NULL,
    round INT NOT NULL,
    raw TEXT NOT NULL,
    body TEXT NOT NULL,
    agreement TEXT NOT NULL,
    final_answer TEXT,
    started_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ NOT NULL,
    agent_latency_ms BIGINT NOT NULL,
    padding_ms BIGINT NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_debate_turns_debate ON debate_turns (debate_id, seq);`,
	`CREATE INDEX IF NOT EXISTS idx_debates_started_at ON debates (started_at DESC);`,
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the debate tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) SaveResult(ctx context.Context, r *domain.Result) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var failRole, failReason *string
	var failRound *int
	if r.Failure != nil {
		role := string(r.Failure.Role)
		failRole = &role
		failRound = &r.Failure.Round
		failReason = &r.Failure.Reason
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO debates (id, problem, status, final_answer, rounds, violations, failure_role, failure_round, failure_reason, started_at, completed_at, elapsed_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.DebateID, r.Problem, string(r.Status), r.FinalAnswer, r.Rounds, r.Violations,
		failRole, failRound, failReason, r.StartedAt, r.CompletedAt, r.Elapsed.Milliseconds(),
	)
	if err != nil {
		return err
	}

	for i, t := range r.Turns {
		_, err = tx.Exec(ctx,
			`INSERT INTO debate_turns (id, debate_id, seq, role, round, raw, body, agreement, final_answer, started_at, ended_at, agent_latency_ms, padding_ms)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			t.ID, t.DebateID, i, string(t.Role), t.Round, t.Raw, t.Body, string(t.Agreement),
			t.FinalAnswer, t.StartedAt, t.EndedAt, t.Timing.AgentLatency.Milliseconds(), t.Timing.Padding.Milliseconds(),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetResult(ctx context.Context, id uuid.UUID) (*domain.Result, error) {
	var r domain.Result
	var failRole, failReason *string
	var failRound *int
	var elapsedMs int64

	err := s.db.QueryRow(ctx,
		`SELECT id, problem, status, final_answer, rounds, violations, failure_role, failure_round, failure_reason, started_at, completed_at, elapsed_ms
		 FROM debates WHERE id = $1`,
		id,
	).Scan(&r.DebateID, &r.Problem, &r.Status, &r.FinalAnswer, &r.Rounds, &r.Violations,
		&failRole, &failRound, &failReason, &r.StartedAt, &r.CompletedAt, &elapsedMs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	if failRole != nil {
		r.Failure = &domain.Failure{Role: domain.Role(*failRole)}
		if failRound != nil {
			r.Failure.Round = *failRound
		}
		if failReason != nil {
			r.Failure.Reason = *failReason
		}
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, debate_id, role, round, raw, body, agreement, final_answer, started_at, ended_at, agent_latency_ms, padding_ms
		 FROM debate_turns WHERE debate_id = $1
		 ORDER BY seq`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.Turn
		var latencyMs, paddingMs int64
		if err := rows.Scan(&t.ID, &t.DebateID, &t.Role, &t.Round, &t.Raw, &t.Body, &t.Agreement,
			&t.FinalAnswer, &t.StartedAt, &t.EndedAt, &latencyMs, &paddingMs); err != nil {
			return nil, err
		}
		t.Timing = domain.Timing{
			AgentLatency: time.Duration(latencyMs) * time.Millisecond,
			Padding:      time.Duration(paddingMs) * time.Millisecond,
		}
		r.Turns = append(r.Turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) ListResults(ctx context.Context, limit int) ([]domain.DebateSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, problem, status, rounds, final_answer, started_at, elapsed_ms
		 FROM debates
		 ORDER BY started_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.DebateSummary
	for rows.Next() {
		var d domain.DebateSummary
		var elapsedMs int64
		if err := rows.Scan(&d.DebateID, &d.Problem, &d.Status, &d.Rounds, &d.FinalAnswer, &d.StartedAt, &elapsedMs); err != nil {
			return nil, err
		}
		d.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		summaries = append(summaries, d)
	}
	return summaries, rows.Err()
}

var _ domain.DebateStore = (*PostgresStore)(nil)
