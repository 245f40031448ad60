package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// ExecExecutor returns a CommandExecutor backed by os/exec. The provided
// context bounds every command it runs; env entries are appended to the
// inherited environment.
func ExecExecutor(ctx context.Context) CommandExecutor {
	return func(cmd []string, env map[string]string) CommandResult {
		if len(cmd) == 0 {
			return CommandResult{ExitCode: 1, Err: errors.New("no command provided")}
		}

		command := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
		command.Env = append(os.Environ(), envList(env)...)

		var stderr bytes.Buffer
		command.Stdout = nil
		command.Stderr = &stderr

		err := command.Run()
		result := CommandResult{Stderr: stderr.String()}
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				result.ExitCode = exitErr.ExitCode()
			} else {
				result.ExitCode = 1
				result.Err = err
			}
			if result.Err == nil && result.ExitCode == 0 {
				result.ExitCode = 1
			}
		}
		return result
	}
}

func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}
