package validation

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// HostConfig captures prerequisites required by the installer.
type HostConfig struct {
	RequiredTools  []string
	RequireDocker  bool
	RequireCompose bool
	MinDiskGiB     int
	InstallPath    string
}

// DefaultHostConfig returns the prerequisites for an AGiXT stack install.
func DefaultHostConfig(installPath string) HostConfig {
	return HostConfig{
		RequiredTools:  []string{"git", "docker"},
		RequireDocker:  true,
		RequireCompose: true,
		MinDiskGiB:     10,
		InstallPath:    installPath,
	}
}

// Result describes the outcome of the preflight run.
type Result struct {
	Passed bool
	Issues []string
}

// ValidateHost checks every prerequisite and reports all failures at once
// so the operator can fix them in one pass.
func ValidateHost(cfg HostConfig, sys SystemInspector) Result {
	if sys == nil {
		sys = DefaultInspector{}
	}

	issues := []string{}

	for _, tool := range cfg.RequiredTools {
		if !sys.HasTool(tool) {
			issues = append(issues, fmt.Sprintf("required tool not found on PATH: %s", tool))
		}
	}

	if cfg.RequireDocker && !sys.DockerResponsive() {
		issues = append(issues, "docker daemon is not responding; is the service running and the user in the docker group?")
	}

	if cfg.RequireCompose && !sys.HasComposePlugin() {
		issues = append(issues, "docker compose plugin not available")
	}

	if cfg.InstallPath != "" {
		if !sys.PathWritable(cfg.InstallPath) {
			issues = append(issues, fmt.Sprintf("install base path not writable: %s", cfg.InstallPath))
		}
		if cfg.MinDiskGiB > 0 {
			free := sys.FreeDiskGiB(cfg.InstallPath)
			if free >= 0 && free < cfg.MinDiskGiB {
				issues = append(issues, fmt.Sprintf("require >= %d GiB free at %s, detected %d GiB", cfg.MinDiskGiB, cfg.InstallPath, free))
			}
		}
	}

	return Result{Passed: len(issues) == 0, Issues: issues}
}

// SystemInspector models host interrogation functions, allowing tests to stub.
type SystemInspector interface {
	HasTool(name string) bool
	DockerResponsive() bool
	HasComposePlugin() bool
	PathWritable(path string) bool
	// FreeDiskGiB returns free space at path, or -1 when it cannot be
	// determined.
	FreeDiskGiB(path string) int
}

// DefaultInspector interrogates the running host.
type DefaultInspector struct{}

// HasTool reports whether name resolves on PATH.
func (DefaultInspector) HasTool(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// DockerResponsive pings the docker daemon.
func (DefaultInspector) DockerResponsive() bool {
	return exec.Command("docker", "info").Run() == nil
}

// HasComposePlugin checks for the compose v2 plugin.
func (DefaultInspector) HasComposePlugin() bool {
	return exec.Command("docker", "compose", "version").Run() == nil
}

// PathWritable reports whether path, or its nearest existing parent, can be
// written by the current user.
func (DefaultInspector) PathWritable(path string) bool {
	dir := path
	for {
		if info, err := os.Stat(dir); err == nil {
			if !info.IsDir() {
				return false
			}
			probe, err := os.CreateTemp(dir, ".agixtctl-preflight-*")
			if err != nil {
				return false
			}
			probe.Close()
			os.Remove(probe.Name())
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}

// FreeDiskGiB reports free disk space at path's filesystem.
func (DefaultInspector) FreeDiskGiB(path string) int {
	dir := path
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return -1
		}
		dir = parent
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return -1
	}
	return int(uint64(stat.Bavail) * uint64(stat.Bsize) / (1 << 30))
}
