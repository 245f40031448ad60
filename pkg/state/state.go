// Package state persists the record of the last successful install so later
// verify and update runs know what was deployed.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ModelSource captures which model the deployment was resolved to.
type ModelSource struct {
	Name       string `json:"name"`
	Repository string `json:"repository"`
	TokenLimit string `json:"tokenLimit,omitempty"`
}

// Record stores the last successful install metadata for one deployment.
type Record struct {
	ConfigName  string      `json:"configName"`
	InstallPath string      `json:"installPath"`
	Version     string      `json:"version"`
	Branch      string      `json:"branch,omitempty"`
	Model       ModelSource `json:"model"`
	ComposeFile string      `json:"composeFile"`
	EnvFile     string      `json:"envFile"`
	LastAction  string      `json:"lastAction"`
	Timestamp   string      `json:"timestamp"`
}

// Overrides defines user-supplied preferences for the record location.
type Overrides struct {
	InstallPath   string
	StateFilePath string
}

// PathResolver resolves the effective filesystem path for the record.
type PathResolver interface {
	Resolve(Overrides) (string, error)
}

// Manager coordinates persistence of install records.
type Manager struct {
	resolver PathResolver
	dirPerm  os.FileMode
	filePerm os.FileMode
}

var (
	errPathResolverMissing = errors.New("state path resolver not configured")
	errEmptyStatePath      = errors.New("resolved state file path empty")
	errWriteFailed         = errors.New("install record could not be written")
	errReadFailed          = errors.New("install record could not be read")
)

// NewManager constructs a Manager with the provided resolver.
func NewManager(resolver PathResolver) *Manager {
	return &Manager{
		resolver: resolver,
		dirPerm:  0o700,
		filePerm: 0o600,
	}
}

// ErrWriteFailed exposes the write failure sentinel.
func ErrWriteFailed() error { return errWriteFailed }

// ErrReadFailed exposes the read failure sentinel.
func ErrReadFailed() error { return errReadFailed }

func (m *Manager) resolvePath(overrides Overrides) (string, error) {
	if m == nil || m.resolver == nil {
		return "", errPathResolverMissing
	}
	path, err := m.resolver.Resolve(overrides)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(path) == "" {
		return "", errEmptyStatePath
	}
	return path, nil
}

// Write persists the provided record to the resolved path atomically.
func (m *Manager) Write(record Record, overrides Overrides) (string, error) {
	path, err := m.resolvePath(overrides)
	if err != nil {
		return "", err
	}

	if record.Timestamp == "" {
		record.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	dir := filepath.Dir(path)
	if _, statErr := os.Stat(dir); statErr != nil {
		if !errors.Is(statErr, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %w", errWriteFailed, statErr)
		}
		if err := os.MkdirAll(dir, m.dirPerm); err != nil {
			return "", fmt.Errorf("%w: %w", errWriteFailed, err)
		}
	}

	tmp, err := os.CreateTemp(dir, "state-*.json")
	if err != nil {
		return "", fmt.Errorf("%w: %w", errWriteFailed, err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(m.filePerm); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %w", errWriteFailed, err)
	}

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %w", errWriteFailed, err)
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", errWriteFailed, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("%w: %w", errWriteFailed, err)
	}

	if err := os.Chmod(path, m.filePerm); err != nil {
		return "", fmt.Errorf("%w: %w", errWriteFailed, err)
	}

	return path, nil
}

// Read loads the record from the resolved path.
func (m *Manager) Read(overrides Overrides) (*Record, error) {
	path, err := m.resolvePath(overrides)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errReadFailed, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %w", errReadFailed, err)
	}
	return &record, nil
}
