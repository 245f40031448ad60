package telemetry_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mocher01/agixt-configs-sub000/pkg/telemetry"
)

func TestEmitPhaseWrapsFunctionWithStartAndCompletion(t *testing.T) {
	var buf bytes.Buffer
	emitter := telemetry.NewEmitter(&buf)

	called := false
	err := emitter.EmitPhase(telemetry.PhaseResolve, map[string]string{"config": "demo"}, func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("EmitPhase returned error: %v", err)
	}
	if !called {
		t.Fatalf("phase function was not invoked")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected start and completion events, got %d lines", len(lines))
	}

	var start, done telemetry.Event
	if err := json.Unmarshal([]byte(lines[0]), &start); err != nil {
		t.Fatalf("unmarshal start event: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &done); err != nil {
		t.Fatalf("unmarshal completion event: %v", err)
	}
	if start.Phase != telemetry.PhaseResolve || start.Outcome != "start" {
		t.Fatalf("unexpected start event: %+v", start)
	}
	if done.Outcome != "success" {
		t.Fatalf("unexpected completion outcome: %+v", done)
	}
	if done.Metadata["config"] != "demo" {
		t.Fatalf("metadata not carried: %+v", done)
	}
}

func TestEmitPhaseReportsFailureAndReturnsOriginalError(t *testing.T) {
	var buf bytes.Buffer
	emitter := telemetry.NewEmitter(&buf)

	boom := errors.New("compose up failed")
	err := emitter.EmitPhase(telemetry.PhaseCompose, nil, func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var done telemetry.Event
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &done); err != nil {
		t.Fatalf("unmarshal completion event: %v", err)
	}
	if done.Outcome != "failure" {
		t.Fatalf("expected failure outcome, got %+v", done)
	}
	if done.Error != "compose up failed" {
		t.Fatalf("expected error message on completion event, got %+v", done)
	}
}

func TestEmitStampsTimestamp(t *testing.T) {
	var buf bytes.Buffer
	emitter := telemetry.NewEmitter(&buf)

	if err := emitter.Emit(telemetry.Event{Phase: telemetry.PhaseFetch, Outcome: "start"}); err != nil {
		t.Fatalf("Emit returned error: %v", err)
	}

	var event telemetry.Event
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.Timestamp.IsZero() {
		t.Fatalf("timestamp not stamped")
	}
}
