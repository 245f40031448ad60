// Package gitrepo clones and updates the AGiXT source checkout used by the
// deployment.
package gitrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mocher01/agixt-configs-sub000/pkg/bootstrap"
)

// DefaultRemote is the upstream AGiXT repository.
const DefaultRemote = "https://github.com/Josh-XT/AGiXT.git"

// FallbackBranch is tried when the requested branch does not exist.
const FallbackBranch = "main"

// Cloner produces or refreshes a shallow checkout through an external git
// binary.
type Cloner struct {
	runner bootstrap.Runner
	remote string
	token  string
}

// NewCloner constructs a Cloner. token, when non-empty, is embedded in the
// clone URL for private mirrors; the runner's sanitizer keeps it out of
// logs.
func NewCloner(runner bootstrap.Runner, remote, token string) (*Cloner, error) {
	if runner == nil {
		return nil, fmt.Errorf("gitrepo: command runner is required")
	}
	if remote == "" {
		remote = DefaultRemote
	}
	return &Cloner{runner: runner, remote: remote, token: token}, nil
}

// cloneURL injects the token into the remote URL when present.
func (c *Cloner) cloneURL() string {
	if c.token == "" {
		return c.remote
	}
	if rest, ok := strings.CutPrefix(c.remote, "https://"); ok {
		return "https://" + c.token + "@" + rest
	}
	return c.remote
}

// Ensure makes dir a checkout of branch: a fresh shallow clone when dir has
// no repository, an update otherwise. When the requested branch does not
// exist upstream the clone is retried on FallbackBranch, and the branch
// actually used is returned.
func (c *Cloner) Ensure(dir, branch string) (string, error) {
	if branch == "" {
		branch = FallbackBranch
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return branch, c.update(dir, branch)
	}

	if err := c.clone(dir, branch); err != nil {
		if branch == FallbackBranch {
			return "", err
		}
		if fallbackErr := c.clone(dir, FallbackBranch); fallbackErr != nil {
			return "", fmt.Errorf("clone branch %s: %w (fallback to %s also failed: %v)", branch, err, FallbackBranch, fallbackErr)
		}
		return FallbackBranch, nil
	}
	return branch, nil
}

func (c *Cloner) clone(dir, branch string) error {
	cmd := []string{"git", "clone", "--branch", branch, "--depth", "1", c.cloneURL(), dir}
	if err := c.runner.Run(cmd, nil); err != nil {
		return fmt.Errorf("clone %s: %w", branch, err)
	}
	return nil
}

func (c *Cloner) update(dir, branch string) error {
	steps := [][]string{
		{"git", "-C", dir, "fetch", "--depth", "1", "origin", branch},
		{"git", "-C", dir, "checkout", branch},
		{"git", "-C", dir, "reset", "--hard", "origin/" + branch},
	}
	for _, cmd := range steps {
		if err := c.runner.Run(cmd, nil); err != nil {
			return fmt.Errorf("update checkout: %w", err)
		}
	}
	return nil
}
