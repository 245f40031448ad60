package compose

import (
	"fmt"

	"github.com/mocher01/agixt-configs-sub000/pkg/bootstrap"
)

// Runner drives docker compose for one install directory.
type Runner struct {
	runner     bootstrap.Runner
	projectDir string
}

// NewRunner constructs a Runner executing compose verbs in projectDir.
func NewRunner(runner bootstrap.Runner, projectDir string) (*Runner, error) {
	if runner == nil {
		return nil, fmt.Errorf("compose: command runner is required")
	}
	if projectDir == "" {
		return nil, fmt.Errorf("compose: project directory is required")
	}
	return &Runner{runner: runner, projectDir: projectDir}, nil
}

func (r *Runner) compose(verbs ...string) []string {
	cmd := []string{"docker", "compose", "--project-directory", r.projectDir}
	return append(cmd, verbs...)
}

// Down stops and removes any previous deployment. Missing deployments are
// not an error for compose, so this is safe on first install.
func (r *Runner) Down() error {
	return r.runner.Run(r.compose("down", "--remove-orphans"), nil)
}

// Pull fetches the service images.
func (r *Runner) Pull() error {
	return r.runner.Run(r.compose("pull"), nil)
}

// Up starts the stack detached.
func (r *Runner) Up() error {
	return r.runner.Run(r.compose("up", "-d"), nil)
}

// Status lists running services. Output handling is left to the executor's
// logging; the error signals whether compose itself ran.
func (r *Runner) Status() error {
	return r.runner.Run(r.compose("ps"), nil)
}
