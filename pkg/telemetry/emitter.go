package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Phase represents a lifecycle step of the installer.
type Phase string

const (
	PhasePreflight Phase = "preflight"
	PhaseFetch     Phase = "fetch"
	PhaseResolve   Phase = "resolve"
	PhaseClone     Phase = "clone"
	PhaseRender    Phase = "render"
	PhaseCompose   Phase = "compose"
	PhaseProbe     Phase = "probe"
	PhaseVerify    Phase = "verify"
)

// Phase outcomes as they appear on the wire.
const (
	OutcomeStart   = "start"
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Event captures one phase transition of an installer run.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Phase     Phase     `json:"phase"`
	Outcome   string    `json:"outcome"`
	// DurationMs is set on completion events only.
	DurationMs int64             `json:"durationMs,omitempty"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Emitter writes phase events as JSON lines. Safe for concurrent use.
type Emitter struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewEmitter constructs an emitter writing JSON lines to w.
func NewEmitter(w io.Writer) *Emitter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Emitter{encoder: enc}
}

// Emit writes an event to the underlying writer, stamping the timestamp
// when the caller left it zero.
func (e *Emitter) Emit(ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return e.encoder.Encode(ev)
}

// EmitPhase runs fn bracketed by a start event and a success or failure
// completion event. fn's error is returned unchanged so phase wrapping
// never alters control flow; the completion event carries its message.
func (e *Emitter) EmitPhase(phase Phase, metadata map[string]string, fn func() error) error {
	started := time.Now()
	if err := e.Emit(Event{Phase: phase, Outcome: OutcomeStart, Metadata: metadata}); err != nil {
		return fmt.Errorf("emit start event: %w", err)
	}

	err := fn()

	completion := Event{
		Phase:      phase,
		Outcome:    OutcomeSuccess,
		DurationMs: time.Since(started).Milliseconds(),
		Metadata:   metadata,
	}
	if err != nil {
		completion.Outcome = OutcomeFailure
		completion.Error = err.Error()
	}
	if emitErr := e.Emit(completion); emitErr != nil {
		return fmt.Errorf("emit completion event: %w", emitErr)
	}

	return err
}
