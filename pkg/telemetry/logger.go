package telemetry

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StructuredLogger emits structured log entries.
type StructuredLogger interface {
	Emit(Entry) error
}

// Severity represents the log severity level.
type Severity string

const (
	// SeverityInfo captures normal operation messages.
	SeverityInfo Severity = "info"
	// SeverityWarn captures recoverable anomalies.
	SeverityWarn Severity = "warn"
	// SeverityError captures unrecoverable or failure states.
	SeverityError Severity = "error"
)

// Category captures the structured log category.
type Category string

const (
	// CategoryWorkflow marks high-level install workflow events.
	CategoryWorkflow Category = "workflow"
	// CategoryCommand marks external command events.
	CategoryCommand Category = "command"
	// CategoryResolver marks configuration resolution events.
	CategoryResolver Category = "resolver"
	// CategoryDiagnostic marks ancillary diagnostic events.
	CategoryDiagnostic Category = "diagnostic"
)

// Entry describes a structured log entry prior to serialization.
type Entry struct {
	Category      Category
	Message       string
	Severity      Severity
	Step          string
	Command       string
	StderrExcerpt string
	Metadata      map[string]string
	Error         error
}

// NewWorkflowID returns a fresh identifier correlating every log line of
// one installer run.
func NewWorkflowID() string {
	return uuid.NewString()
}

// Logger emits structured JSON logs for one installer workflow.
type Logger struct {
	enc        *json.Encoder
	workflowID string
	mu         sync.Mutex
}

// NewLogger constructs a logger for a workflow. An empty workflowID is
// rejected so log lines always correlate.
func NewLogger(w io.Writer, workflowID string) (*Logger, error) {
	if w == nil {
		return nil, errors.New("logger writer is required")
	}
	trimmed := strings.TrimSpace(workflowID)
	if trimmed == "" {
		return nil, errors.New("workflow ID is required")
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Logger{enc: enc, workflowID: trimmed}, nil
}

// line is the wire shape of one JSON log line. The field set is a
// contract with log consumers; additions are fine, renames are not.
type line struct {
	Timestamp     string            `json:"timestamp"`
	Category      Category          `json:"category"`
	Message       string            `json:"message"`
	Severity      Severity          `json:"severity"`
	WorkflowID    string            `json:"workflowId"`
	Step          string            `json:"step,omitempty"`
	Command       string            `json:"command,omitempty"`
	StderrExcerpt string            `json:"stderrExcerpt,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Emit writes the provided entry to the underlying writer as one JSON
// line. An attached error is recorded in the metadata and promotes the
// severity to error.
func (l *Logger) Emit(entry Entry) error {
	if l == nil {
		return errors.New("logger is nil")
	}

	out := line{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Category:      entry.Category,
		Message:       entry.Message,
		Severity:      entry.Severity,
		WorkflowID:    l.workflowID,
		Step:          entry.Step,
		Command:       entry.Command,
		StderrExcerpt: entry.StderrExcerpt,
	}
	if out.Severity == "" {
		out.Severity = SeverityInfo
	}

	if len(entry.Metadata) > 0 || entry.Error != nil {
		out.Metadata = make(map[string]string, len(entry.Metadata)+1)
		for k, v := range entry.Metadata {
			out.Metadata[k] = v
		}
	}
	if entry.Error != nil {
		out.Severity = SeverityError
		out.Metadata["error"] = entry.Error.Error()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(out)
}
