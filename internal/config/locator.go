package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigSource identifies where the configuration file was discovered.
type ConfigSource string

const (
	ConfigSourceExplicit   ConfigSource = "explicit"
	ConfigSourceEnv        ConfigSource = "env"
	ConfigSourceWorkingDir ConfigSource = "working-dir"
	ConfigSourceXDG        ConfigSource = "xdg"
	ConfigSourceHome       ConfigSource = "home"
)

const fileName = "agixt.config"

// LocationResult describes the discovered configuration file.
type LocationResult struct {
	Path   string
	Source ConfigSource
}

// ErrConfigNotFound is returned when no local configuration file can be
// located.
var ErrConfigNotFound = errors.New("local configuration not found")

// LocateConfig discovers a local configuration file. An explicit path or
// the AGIXTCTL_CONFIG variable must point at an existing file; when
// neither is set, the working directory, XDG config directory, and
// ~/.config/agixtctl are searched for agixt.config in that order.
func LocateConfig(explicitPath string) (LocationResult, error) {
	named := []struct {
		source ConfigSource
		path   string
	}{
		{ConfigSourceExplicit, strings.TrimSpace(explicitPath)},
		{ConfigSourceEnv, strings.TrimSpace(os.Getenv("AGIXTCTL_CONFIG"))},
	}
	for _, loc := range named {
		if loc.path == "" {
			continue
		}
		abs, err := toAbsolute(filepath.Clean(loc.path))
		if err != nil {
			return LocationResult{}, err
		}
		if !exists(abs) {
			// A named location that is missing is an error, not a
			// fall-through to the search directories.
			return LocationResult{}, fmt.Errorf("%w: %s", ErrConfigNotFound, abs)
		}
		return LocationResult{Path: abs, Source: loc.source}, nil
	}

	for _, dir := range searchDirs() {
		path := filepath.Join(dir.path, fileName)
		if exists(path) {
			return LocationResult{Path: path, Source: dir.source}, nil
		}
	}

	return LocationResult{}, ErrConfigNotFound
}

type searchDir struct {
	source ConfigSource
	path   string
}

// searchDirs lists the implicit lookup directories in precedence order,
// skipping the ones the environment cannot provide.
func searchDirs() []searchDir {
	var dirs []searchDir
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, searchDir{ConfigSourceWorkingDir, wd})
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		dirs = append(dirs, searchDir{ConfigSourceXDG, filepath.Join(xdg, "agixtctl")})
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		dirs = append(dirs, searchDir{ConfigSourceHome, filepath.Join(home, ".config", "agixtctl")})
	}
	return dirs
}

func toAbsolute(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	return abs, nil
}

func exists(path string) bool {
	stat, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !stat.IsDir()
}
