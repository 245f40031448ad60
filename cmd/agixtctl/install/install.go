package install

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	intconfig "github.com/mocher01/agixt-configs-sub000/internal/config"
	intstate "github.com/mocher01/agixt-configs-sub000/internal/state"
	"github.com/mocher01/agixt-configs-sub000/internal/validation"
	"github.com/mocher01/agixt-configs-sub000/pkg/bootstrap"
	"github.com/mocher01/agixt-configs-sub000/pkg/compose"
	pkgconfig "github.com/mocher01/agixt-configs-sub000/pkg/config"
	"github.com/mocher01/agixt-configs-sub000/pkg/envfile"
	"github.com/mocher01/agixt-configs-sub000/pkg/fetch"
	"github.com/mocher01/agixt-configs-sub000/pkg/gitrepo"
	"github.com/mocher01/agixt-configs-sub000/pkg/probe"
	"github.com/mocher01/agixt-configs-sub000/pkg/state"
	"github.com/mocher01/agixt-configs-sub000/pkg/telemetry"
)

// Options captures CLI flag values for the install command.
type Options struct {
	ConfigName  string
	ConfigFile  string
	GithubToken string
	Repository  string
	BasePath    string
	SkipCleanup bool
	DryRun      bool
	Output      string
	WaitTimeout time.Duration
}

// Fetcher downloads a hosted configuration.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (*fetch.Result, error)
}

// Deps configures dependencies for the install command.
type Deps struct {
	Inspector    validation.SystemInspector
	Fetcher      Fetcher
	Executor     bootstrap.CommandExecutor
	Prober       *probe.Prober
	KeyGenerator pkgconfig.KeyGenerator
	StateManager *state.Manager
	Now          func() time.Time
}

var (
	errConfigNameRequired = errors.New("a configuration name (--config) or file (--file) is required")
	errUnsupportedOutput  = errors.New("unsupported output format")
)

// ErrConfigNameRequired exposes the sentinel.
func ErrConfigNameRequired() error { return errConfigNameRequired }

// ErrUnsupportedOutput exposes the sentinel.
func ErrUnsupportedOutput() error { return errUnsupportedOutput }

// NewInstallCommand constructs the `agixtctl install` command.
func NewInstallCommand() *cobra.Command {
	opts := Options{}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the AGiXT stack from a hosted configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runInstall(cmd, opts, Deps{})
		},
	}

	cmd.Flags().StringVar(&opts.ConfigName, "config", "", "Hosted configuration name to fetch")
	cmd.Flags().StringVar(&opts.ConfigFile, "file", "", "Local configuration file instead of fetching")
	cmd.Flags().StringVar(&opts.GithubToken, "github-token", "", "Token for the hosted configuration repository")
	cmd.Flags().StringVar(&opts.Repository, "config-repo", fetch.DefaultRepository, "Hosted configuration repository (owner/name)")
	cmd.Flags().StringVar(&opts.BasePath, "base-path", "", "Override INSTALL_BASE_PATH from the configuration")
	cmd.Flags().BoolVar(&opts.SkipCleanup, "skip-cleanup", false, "Skip docker compose down before deploying")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Resolve and report without changing the host")
	cmd.Flags().StringVar(&opts.Output, "output", "text", "Output format: text or json")
	cmd.Flags().DurationVar(&opts.WaitTimeout, "wait-timeout", 2*time.Minute, "How long to wait for services after start")

	return cmd
}

// RunInstallForTest executes the install flow with explicit dependencies.
func RunInstallForTest(cmd *cobra.Command, opts Options, deps Deps) error {
	return runInstall(cmd, opts, deps)
}

func runInstall(cmd *cobra.Command, opts Options, deps Deps) (err error) {
	if opts.Output != "" && opts.Output != "text" && opts.Output != "json" {
		return fmt.Errorf("%w: %s", errUnsupportedOutput, opts.Output)
	}
	if strings.TrimSpace(opts.ConfigName) == "" && strings.TrimSpace(opts.ConfigFile) == "" {
		return errConfigNameRequired
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	logger, err := telemetry.NewLogger(cmd.ErrOrStderr(), telemetry.NewWorkflowID())
	if err != nil {
		return fmt.Errorf("initialize structured logging: %w", err)
	}
	emitter := telemetry.NewEmitter(cmd.ErrOrStderr())

	workflowMetadata := map[string]string{"config": opts.ConfigName}
	logger.Emit(telemetry.Entry{
		Category: telemetry.CategoryWorkflow,
		Message:  "install started",
		Step:     "install",
		Metadata: workflowMetadata,
	})
	defer func() {
		if err != nil {
			logger.Emit(telemetry.Entry{
				Category: telemetry.CategoryWorkflow,
				Message:  "install failed",
				Step:     "install",
				Metadata: workflowMetadata,
				Error:    err,
			})
		}
	}()

	// Preflight first so every host problem surfaces before any network
	// call or filesystem change.
	inspector := deps.Inspector
	if inspector == nil {
		inspector = validation.DefaultInspector{}
	}
	if err := emitter.EmitPhase(telemetry.PhasePreflight, workflowMetadata, func() error {
		result := validation.ValidateHost(validation.DefaultHostConfig(opts.BasePath), inspector)
		if !result.Passed {
			return fmt.Errorf("preflight failed: %s", strings.Join(result.Issues, "; "))
		}
		return nil
	}); err != nil {
		return err
	}

	var base pkgconfig.Set
	var parseWarnings []string
	if err := emitter.EmitPhase(telemetry.PhaseFetch, workflowMetadata, func() error {
		base, parseWarnings, err = loadBase(ctx, opts, deps)
		return err
	}); err != nil {
		return err
	}
	for _, warning := range parseWarnings {
		logger.Emit(telemetry.Entry{
			Category: telemetry.CategoryDiagnostic,
			Message:  warning,
			Severity: telemetry.SeverityWarn,
			Step:     "fetch",
		})
	}

	resolver := pkgconfig.NewResolver(nil, deps.KeyGenerator)
	var resolved *pkgconfig.Resolution
	if err := emitter.EmitPhase(telemetry.PhaseResolve, workflowMetadata, func() error {
		resolved, err = resolver.Resolve(base)
		return err
	}); err != nil {
		return err
	}
	logResolution(logger, resolved)

	installDir := installPath(opts, resolved.Set)
	version := resolved.Set.Get("AGIXT_VERSION")

	if opts.DryRun {
		logger.Emit(telemetry.Entry{
			Category: telemetry.CategoryWorkflow,
			Message:  "dry run complete, skipping deployment",
			Step:     "install",
			Metadata: workflowMetadata,
		})
		return emitResult(cmd, opts, resolved, installDir, nil)
	}

	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return fmt.Errorf("create install directory: %w", err)
	}

	executor := deps.Executor
	if executor == nil {
		executor = bootstrap.ExecExecutor(ctx)
	}
	runner := bootstrap.NewLoggingRunner(executor, logger, bootstrap.RunnerOptions{})

	if err := emitter.EmitPhase(telemetry.PhaseClone, workflowMetadata, func() error {
		cloner, err := gitrepo.NewCloner(runner, "", opts.GithubToken)
		if err != nil {
			return err
		}
		branch, err := cloner.Ensure(filepath.Join(installDir, "AGiXT"), resolved.Set.Get("AGIXT_BRANCH"))
		if err != nil {
			return err
		}
		if branch != resolved.Set.Get("AGIXT_BRANCH") {
			logger.Emit(telemetry.Entry{
				Category: telemetry.CategoryDiagnostic,
				Message:  fmt.Sprintf("branch %s unavailable, using %s", resolved.Set.Get("AGIXT_BRANCH"), branch),
				Severity: telemetry.SeverityWarn,
				Step:     "clone",
			})
		}
		return nil
	}); err != nil {
		return err
	}

	var composePath string
	if err := emitter.EmitPhase(telemetry.PhaseRender, workflowMetadata, func() error {
		if err := envfile.WriteFile(filepath.Join(installDir, ".env"), resolved.Set.Strings(), now()); err != nil {
			return err
		}
		composePath, err = compose.WriteFile(installDir, version)
		return err
	}); err != nil {
		return err
	}

	composeRunner, err := compose.NewRunner(runner, installDir)
	if err != nil {
		return err
	}
	if err := emitter.EmitPhase(telemetry.PhaseCompose, workflowMetadata, func() error {
		if !opts.SkipCleanup {
			if err := composeRunner.Down(); err != nil {
				return err
			}
		}
		if err := composeRunner.Pull(); err != nil {
			return err
		}
		return composeRunner.Up()
	}); err != nil {
		return err
	}

	prober := deps.Prober
	if prober == nil {
		prober = probe.New()
	}
	var results []probe.Result
	if err := emitter.EmitPhase(telemetry.PhaseProbe, workflowMetadata, func() error {
		waitCtx, cancel := context.WithTimeout(ctx, opts.WaitTimeout)
		defer cancel()
		results = prober.Wait(waitCtx, probe.DefaultEndpoints("localhost"))
		if unhealthy := probe.Unhealthy(results); len(unhealthy) > 0 {
			details := make([]string, 0, len(unhealthy))
			for _, result := range unhealthy {
				details = append(details, fmt.Sprintf("%s (%s)", result.Endpoint.Service, result.Detail))
			}
			return fmt.Errorf("services not responding: %s", strings.Join(details, ", "))
		}
		return nil
	}); err != nil {
		return err
	}

	manager := deps.StateManager
	if manager == nil {
		manager = state.NewManager(intstate.NewResolver())
	}
	if _, err := manager.Write(state.Record{
		ConfigName:  opts.ConfigName,
		InstallPath: installDir,
		Version:     version,
		Branch:      resolved.Set.Get("AGIXT_BRANCH"),
		Model: state.ModelSource{
			Name:       resolved.Set.Get("MODEL_NAME"),
			Repository: resolved.Set.Get("MODEL_REPO"),
			TokenLimit: resolved.Set.Get("LLM_MAX_TOKENS"),
		},
		ComposeFile: composePath,
		EnvFile:     filepath.Join(installDir, ".env"),
		LastAction:  "install",
		Timestamp:   now().UTC().Format(time.RFC3339),
	}, state.Overrides{InstallPath: installDir}); err != nil {
		return err
	}

	logger.Emit(telemetry.Entry{
		Category: telemetry.CategoryWorkflow,
		Message:  "install complete",
		Step:     "install",
		Metadata: workflowMetadata,
	})

	return emitResult(cmd, opts, resolved, installDir, results)
}

// loadBase fetches or reads the raw configuration and parses it.
func loadBase(ctx context.Context, opts Options, deps Deps) (pkgconfig.Set, []string, error) {
	if opts.ConfigFile != "" {
		result, err := intconfig.Load(opts.ConfigFile)
		if err != nil {
			return nil, nil, err
		}
		return result.Base, result.Warnings, nil
	}

	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = fetch.NewClient(
			fetch.WithRepository(opts.Repository),
			fetch.WithToken(opts.GithubToken),
		)
	}
	result, err := fetcher.Fetch(ctx, opts.ConfigName)
	if err != nil {
		return nil, nil, err
	}

	doc, err := envfile.Parse(bytes.NewReader(result.Content))
	if err != nil {
		return nil, nil, err
	}
	return pkgconfig.FromStrings(doc.Values), doc.Warnings, nil
}

// installPath derives the deployment directory from the resolved set and
// flag overrides.
func installPath(opts Options, resolved pkgconfig.Set) string {
	base := opts.BasePath
	if base == "" {
		base = resolved.Get("INSTALL_BASE_PATH")
	}
	folder := resolved.Get("INSTALL_FOLDER_PREFIX")
	if opts.ConfigName != "" {
		folder = folder + "-" + opts.ConfigName
	}
	return filepath.Join(base, folder)
}

func logResolution(logger telemetry.StructuredLogger, resolved *pkgconfig.Resolution) {
	for _, warning := range resolved.Warnings {
		logger.Emit(telemetry.Entry{
			Category: telemetry.CategoryResolver,
			Message:  warning,
			Severity: telemetry.SeverityWarn,
			Step:     "resolve",
		})
	}
	for _, override := range resolved.Overrides {
		logger.Emit(telemetry.Entry{
			Category: telemetry.CategoryResolver,
			Message:  override,
			Step:     "resolve",
		})
	}
}

func emitResult(cmd *cobra.Command, opts Options, resolved *pkgconfig.Resolution, installDir string, results []probe.Result) error {
	if opts.Output == "json" {
		payload := map[string]any{
			"installPath": installDir,
			"version":     resolved.Set.Get("AGIXT_VERSION"),
			"model":       resolved.Set.Get("MODEL_REPO"),
			"dryRun":      opts.DryRun,
		}
		if len(results) > 0 {
			services := map[string]bool{}
			for _, result := range results {
				services[result.Endpoint.Service] = result.Healthy
			}
			payload["services"] = services
		}
		encoded, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
		return nil
	}

	return writeSummary(cmd.OutOrStdout(), opts, resolved, installDir, results)
}
