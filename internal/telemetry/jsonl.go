package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Harshitk-cp/dialectic/internal/domain"
)

// JSONLSink appends one JSON object per event to the underlying writer.
// The files it produces are what scripts/analyze.go consumes.
type JSONLSink struct {
	mu  sync.Mutex
	enc *json.Encoder
	c   io.Closer
}

func NewJSONLSink(w io.Writer) *JSONLSink {
	s := &JSONLSink{enc: json.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	return s
}

// OpenJSONLSink opens path for appending, creating it if needed.
func OpenJSONLSink(path string) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open telemetry log: %w", err)
	}
	return NewJSONLSink(f), nil
}

func (s *JSONLSink) Emit(e domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(e)
}

// Close closes the underlying writer when it supports closing.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

var _ domain.TelemetrySink = (*JSONLSink)(nil)
