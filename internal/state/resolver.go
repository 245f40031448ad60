package state

import (
	"errors"
	"path/filepath"
	"strings"

	pkgstate "github.com/mocher01/agixt-configs-sub000/pkg/state"
)

// FileName is the install record written into each install directory.
const FileName = "agixt-install.json"

var (
	errNoLocation        = errors.New("state location is invalid: provide an install path or --state-file")
	errRelativeStateFile = errors.New("state file override is invalid: must provide an absolute path")
)

// Resolver resolves install record paths. By default the record lives next
// to the compose file inside the install directory.
type Resolver struct{}

// NewResolver constructs an install record path resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

func (r *Resolver) Resolve(overrides pkgstate.Overrides) (string, error) {
	if overrides.StateFilePath != "" {
		if !filepath.IsAbs(overrides.StateFilePath) {
			return "", errRelativeStateFile
		}
		return filepath.Clean(overrides.StateFilePath), nil
	}

	if strings.TrimSpace(overrides.InstallPath) == "" {
		return "", errNoLocation
	}
	return filepath.Join(filepath.Clean(overrides.InstallPath), FileName), nil
}

// ErrNoLocation exposes the missing location validation error.
func ErrNoLocation() error { return errNoLocation }

// ErrRelativeStateFile exposes the relative path validation error.
func ErrRelativeStateFile() error { return errRelativeStateFile }
