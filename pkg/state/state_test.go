package state_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mocher01/agixt-configs-sub000/pkg/state"
)

type stubResolver struct {
	baseDir string
	fail    error
}

func (s *stubResolver) Resolve(overrides state.Overrides) (string, error) {
	if s.fail != nil {
		return "", s.fail
	}
	if overrides.StateFilePath != "" {
		return overrides.StateFilePath, nil
	}
	dir := overrides.InstallPath
	if dir == "" {
		dir = s.baseDir
	}
	return filepath.Join(dir, "agixt-install.json"), nil
}

func sampleRecord() state.Record {
	return state.Record{
		ConfigName:  "demo",
		InstallPath: "/opt/stacks/agixt-demo",
		Version:     "v1.4.0",
		Branch:      "stable",
		Model: state.ModelSource{
			Name:       "mistral",
			Repository: "TheBloke/Mistral-7B-Instruct-v0.1-GGUF",
			TokenLimit: "4096",
		},
		ComposeFile: "/opt/stacks/agixt-demo/docker-compose.yml",
		EnvFile:     "/opt/stacks/agixt-demo/.env",
		LastAction:  "install",
	}
}

func TestManagerWritesRecordWithTimestampAndMode(t *testing.T) {
	dir := t.TempDir()
	manager := state.NewManager(&stubResolver{baseDir: dir})

	path, err := manager.Write(sampleRecord(), state.Overrides{InstallPath: dir})
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("record is not valid JSON: %v", err)
	}
	if payload["timestamp"] == "" {
		t.Fatalf("expected timestamp stamped, got %v", payload)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Fatalf("unexpected mode %v", info.Mode().Perm())
		}
	}
}

func TestManagerCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "install")
	manager := state.NewManager(&stubResolver{})

	if _, err := manager.Write(sampleRecord(), state.Overrides{InstallPath: dir}); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "agixt-install.json")); err != nil {
		t.Fatalf("record not created: %v", err)
	}
}

func TestManagerRoundTripsRecord(t *testing.T) {
	dir := t.TempDir()
	manager := state.NewManager(&stubResolver{})
	record := sampleRecord()

	if _, err := manager.Write(record, state.Overrides{InstallPath: dir}); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	loaded, err := manager.Read(state.Overrides{InstallPath: dir})
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if loaded.Model.Repository != record.Model.Repository {
		t.Fatalf("repository not preserved: %+v", loaded)
	}
	if loaded.Timestamp == "" {
		t.Fatalf("timestamp missing after round trip")
	}
}

func TestManagerReadWrapsMissingFile(t *testing.T) {
	manager := state.NewManager(&stubResolver{})

	_, err := manager.Read(state.Overrides{InstallPath: t.TempDir()})
	if !errors.Is(err, state.ErrReadFailed()) {
		t.Fatalf("expected read sentinel, got %v", err)
	}
}

func TestManagerRequiresResolver(t *testing.T) {
	manager := state.NewManager(nil)
	if _, err := manager.Write(sampleRecord(), state.Overrides{}); err == nil {
		t.Fatalf("expected error without resolver")
	}
}
