package telemetry

import (
	"sync"

	"github.com/Harshitk-cp/dialectic/internal/domain"
	"go.uber.org/zap"
)

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Emit(domain.Event) {}

// MultiSink fans each event out to all wrapped sinks in order.
type MultiSink struct {
	sinks []domain.TelemetrySink
}

func NewMultiSink(sinks ...domain.TelemetrySink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Emit(e domain.Event) {
	for _, s := range m.sinks {
		s.Emit(e)
	}
}

// ZapSink logs each event as one structured line. Fatal events log at
// error level, violations and retries at warn, everything else at info.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

func (z *ZapSink) Emit(e domain.Event) {
	fields := []zap.Field{
		zap.String("debate_id", e.DebateID.String()),
		zap.Int("round", e.Round),
		zap.String("phase", string(e.Phase)),
		zap.String("outcome", string(e.Outcome)),
		zap.Duration("duration", e.EndedAt.Sub(e.StartedAt)),
	}
	if e.Role != "" {
		fields = append(fields, zap.String("role", string(e.Role)))
	}
	if e.Detail != "" {
		fields = append(fields, zap.String("detail", e.Detail))
	}
	if e.Err != "" {
		fields = append(fields, zap.String("error", e.Err))
	}

	switch e.Outcome {
	case domain.OutcomeFatal:
		z.logger.Error("debate event", fields...)
	case domain.OutcomeViolation, domain.OutcomeRetry:
		z.logger.Warn("debate event", fields...)
	default:
		z.logger.Info("debate event", fields...)
	}
}

// MemorySink records every event for later inspection. Used in tests.
type MemorySink struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Emit(e domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Events returns a copy of everything emitted so far.
func (m *MemorySink) Events() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Event, len(m.events))
	copy(out, m.events)
	return out
}

// ByOutcome returns the recorded events with the given outcome.
func (m *MemorySink) ByOutcome(outcome domain.EventOutcome) []domain.Event {
	var out []domain.Event
	for _, e := range m.Events() {
		if e.Outcome == outcome {
			out = append(out, e)
		}
	}
	return out
}

var _ domain.TelemetrySink = (*NopSink)(nil)
var _ domain.TelemetrySink = (*MultiSink)(nil)
var _ domain.TelemetrySink = (*ZapSink)(nil)
var _ domain.TelemetrySink = (*MemorySink)(nil)
