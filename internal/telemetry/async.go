package telemetry

import (
	"sync"

	"github.com/Harshitk-cp/dialectic/internal/domain"
	"go.uber.org/zap"
)

const defaultAsyncBuffer = 256

// AsyncSink decouples debate loops from slow sinks. Emit never blocks:
// when the buffer is full the event is dropped and counted.
type AsyncSink struct {
	next   domain.TelemetrySink
	logger *zap.Logger

	ch     chan domain.Event
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	dropped uint64
	closed  bool
}

func NewAsyncSink(next domain.TelemetrySink, buffer int, logger *zap.Logger) *AsyncSink {
	if buffer <= 0 {
		buffer = defaultAsyncBuffer
	}
	s := &AsyncSink{
		next:   next,
		logger: logger,
		ch:     make(chan domain.Event, buffer),
		stopCh: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.drain()
	return s
}

func (s *AsyncSink) drain() {
	defer s.wg.Done()
	for {
		select {
		case e := <-s.ch:
			s.next.Emit(e)
		case <-s.stopCh:
			for {
				select {
				case e := <-s.ch:
					s.next.Emit(e)
				default:
					return
				}
			}
		}
	}
}

func (s *AsyncSink) Emit(e domain.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	select {
	case s.ch <- e:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// Close flushes buffered events and stops the drain worker. Events
// emitted after Close are discarded.
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	if n := s.Dropped(); n > 0 {
		s.logger.Warn("telemetry events dropped", zap.Uint64("dropped", n))
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (s *AsyncSink) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

var _ domain.TelemetrySink = (*AsyncSink)(nil)
