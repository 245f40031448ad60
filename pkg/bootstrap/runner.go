// Package bootstrap executes the external commands a deployment needs
// (git, docker compose) with structured, credential-safe logging.
package bootstrap

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	clilogging "github.com/mocher01/agixt-configs-sub000/internal/cli/logging"
	"github.com/mocher01/agixt-configs-sub000/pkg/telemetry"
)

// CommandResult captures the outcome of executing a command.
type CommandResult struct {
	ExitCode int
	Stderr   string
	Err      error
}

// CommandExecutor executes an external command and returns its result.
type CommandExecutor func(cmd []string, env map[string]string) CommandResult

// Runner executes external commands.
type Runner interface {
	Run(cmd []string, env map[string]string) error
}

// defaultStderrLimit bounds how much stderr lands in a log line; docker
// pulls can emit megabytes of progress noise.
const defaultStderrLimit = 4096

// RunnerOptions tune a LoggingRunner. Zero values select the package
// sanitizers and the default stderr excerpt limit.
type RunnerOptions struct {
	SanitizeCommand func([]string) string
	SanitizeEnv     func(map[string]string) map[string]string
	SanitizeOutput  func(string) string
	StderrLimit     int
}

// LoggingRunner executes commands while emitting structured logs with
// credentials redacted.
type LoggingRunner struct {
	exec CommandExecutor
	log  telemetry.StructuredLogger
	opts RunnerOptions
}

// NewLoggingRunner constructs a LoggingRunner that emits structured command logs.
func NewLoggingRunner(exec CommandExecutor, logger telemetry.StructuredLogger, opts RunnerOptions) *LoggingRunner {
	if exec == nil {
		panic("bootstrap: command executor is required")
	}
	if logger == nil {
		panic("bootstrap: structured logger is required")
	}
	if opts.SanitizeCommand == nil {
		opts.SanitizeCommand = clilogging.SanitizeCommand
	}
	if opts.SanitizeEnv == nil {
		opts.SanitizeEnv = clilogging.SanitizeEnv
	}
	if opts.SanitizeOutput == nil {
		opts.SanitizeOutput = clilogging.SanitizeText
	}
	if opts.StderrLimit <= 0 {
		opts.StderrLimit = defaultStderrLimit
	}
	return &LoggingRunner{exec: exec, log: logger, opts: opts}
}

// Run executes the command and returns an error when the command fails.
// Both the start and completion events carry the sanitized argv so a log
// stream alone reconstructs what ran.
func (r *LoggingRunner) Run(cmd []string, env map[string]string) error {
	if r == nil {
		return fmt.Errorf("logging runner is nil")
	}

	argv := r.opts.SanitizeCommand(cmd)
	metadata := envMetadata(r.opts.SanitizeEnv(env))

	r.emit(telemetry.Entry{
		Category: telemetry.CategoryCommand,
		Message:  "command start",
		Severity: telemetry.SeverityInfo,
		Command:  argv,
		Metadata: metadata,
	})

	started := time.Now()
	result := r.exec(cmd, env)
	r.emit(r.completionEntry(argv, metadata, result, time.Since(started)))

	if result.Err != nil {
		return result.Err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("command exited with code %d", result.ExitCode)
	}
	return nil
}

func (r *LoggingRunner) completionEntry(argv string, envMeta map[string]string, result CommandResult, elapsed time.Duration) telemetry.Entry {
	exitCode := result.ExitCode
	if result.Err != nil && exitCode == 0 {
		exitCode = 1
	}

	severity := telemetry.SeverityInfo
	if result.Err != nil || exitCode != 0 {
		severity = telemetry.SeverityError
	}

	stderr := result.Stderr
	if len(stderr) > r.opts.StderrLimit {
		stderr = stderr[:r.opts.StderrLimit]
	}
	if stderr != "" {
		stderr = r.opts.SanitizeOutput(stderr)
	}

	metadata := make(map[string]string, len(envMeta)+2)
	for key, value := range envMeta {
		metadata[key] = value
	}
	metadata["exitCode"] = strconv.Itoa(exitCode)
	metadata["durationMs"] = strconv.FormatInt(elapsed.Milliseconds(), 10)

	return telemetry.Entry{
		Category:      telemetry.CategoryCommand,
		Message:       "command complete",
		Severity:      severity,
		Command:       argv,
		StderrExcerpt: stderr,
		Metadata:      metadata,
		Error:         result.Err,
	}
}

func (r *LoggingRunner) emit(entry telemetry.Entry) {
	if err := r.log.Emit(entry); err != nil {
		log.Printf("bootstrap: structured log emit failed: %v", err)
	}
}

func envMetadata(env map[string]string) map[string]string {
	meta := make(map[string]string, len(env))
	for key, value := range env {
		meta["env."+strings.ToLower(key)] = value
	}
	return meta
}
