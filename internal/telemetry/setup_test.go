package telemetry

import (
	"context"
	"testing"
)

func TestInitProviderDisabledByDefault(t *testing.T) {
	t.Setenv("AGIXTCTL_OTEL_EXPORTER", "")

	shutdown, err := InitProvider(context.Background())
	if err != nil {
		t.Fatalf("InitProvider returned error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
}

func TestInitProviderUnknownExporterIsNoop(t *testing.T) {
	t.Setenv("AGIXTCTL_OTEL_EXPORTER", "bogus")

	shutdown, err := InitProvider(context.Background())
	if err != nil {
		t.Fatalf("InitProvider returned error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
}

func TestInitProviderStdoutExporter(t *testing.T) {
	t.Setenv("AGIXTCTL_OTEL_EXPORTER", "stdout")

	shutdown, err := InitProvider(context.Background())
	if err != nil {
		t.Fatalf("InitProvider returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
}

func TestHashInstanceIDIsStable(t *testing.T) {
	t.Setenv("AGIXTCTL_INSTANCE_ID", "test-host")

	first := hashInstanceID()
	second := hashInstanceID()
	if first != second || len(first) != 64 {
		t.Fatalf("expected stable sha256 hex, got %q and %q", first, second)
	}
}
