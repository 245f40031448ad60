package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	intstate "github.com/mocher01/agixt-configs-sub000/internal/state"
	"github.com/mocher01/agixt-configs-sub000/pkg/bootstrap"
	"github.com/mocher01/agixt-configs-sub000/pkg/compose"
	"github.com/mocher01/agixt-configs-sub000/pkg/probe"
	"github.com/mocher01/agixt-configs-sub000/pkg/state"
	"github.com/mocher01/agixt-configs-sub000/pkg/telemetry"
)

// Options captures CLI flag values for the verify command.
type Options struct {
	InstallPath string
	Host        string
	Output      string
	Timeout     time.Duration
}

// Deps configures dependencies for the verify command.
type Deps struct {
	Executor     bootstrap.CommandExecutor
	Prober       *probe.Prober
	StateManager *state.Manager
}

var errInstallPathRequired = errors.New("install path (--install-path) is required")

// ErrInstallPathRequired exposes the sentinel.
func ErrInstallPathRequired() error { return errInstallPathRequired }

// Report is the outcome of a verification run.
type Report struct {
	Record     *state.Record  `json:"record,omitempty"`
	RecordErr  string         `json:"recordError,omitempty"`
	ComposeOK  bool           `json:"composeOk"`
	ComposeErr string         `json:"composeError,omitempty"`
	Services   []probe.Result `json:"services"`
	Healthy    bool           `json:"healthy"`
}

// NewVerifyCommand constructs the `agixtctl verify` command.
func NewVerifyCommand() *cobra.Command {
	opts := Options{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a deployed AGiXT stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runVerify(cmd, opts, Deps{})
		},
	}

	cmd.Flags().StringVar(&opts.InstallPath, "install-path", "", "Install directory to verify")
	cmd.Flags().StringVar(&opts.Host, "host", "localhost", "Host the service ports are published on")
	cmd.Flags().StringVar(&opts.Output, "output", "text", "Output format: text or json")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Per-service probe timeout")

	return cmd
}

// RunVerifyForTest executes the verify flow with explicit dependencies.
func RunVerifyForTest(cmd *cobra.Command, opts Options, deps Deps) error {
	return runVerify(cmd, opts, deps)
}

func runVerify(cmd *cobra.Command, opts Options, deps Deps) error {
	if strings.TrimSpace(opts.InstallPath) == "" {
		return errInstallPathRequired
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := telemetry.NewLogger(cmd.ErrOrStderr(), telemetry.NewWorkflowID())
	if err != nil {
		return fmt.Errorf("initialize structured logging: %w", err)
	}

	report := Report{}

	manager := deps.StateManager
	if manager == nil {
		manager = state.NewManager(intstate.NewResolver())
	}
	record, err := manager.Read(state.Overrides{InstallPath: opts.InstallPath})
	if err != nil {
		report.RecordErr = err.Error()
	} else {
		report.Record = record
	}

	executor := deps.Executor
	if executor == nil {
		executor = bootstrap.ExecExecutor(ctx)
	}
	runner := bootstrap.NewLoggingRunner(executor, logger, bootstrap.RunnerOptions{})
	composeRunner, err := compose.NewRunner(runner, opts.InstallPath)
	if err != nil {
		return err
	}
	if err := composeRunner.Status(); err != nil {
		report.ComposeErr = err.Error()
	} else {
		report.ComposeOK = true
	}

	prober := deps.Prober
	if prober == nil {
		prober = probe.New()
	}
	probeCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	report.Services = prober.Check(probeCtx, probe.DefaultEndpoints(opts.Host))

	report.Healthy = report.ComposeOK && report.RecordErr == "" && len(probe.Unhealthy(report.Services)) == 0

	if err := writeReport(cmd, opts.Output, report); err != nil {
		return err
	}
	if !report.Healthy {
		return fmt.Errorf("verification failed for %s", opts.InstallPath)
	}
	return nil
}

func writeReport(cmd *cobra.Command, format string, report Report) error {
	if format == "json" {
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
		return nil
	}

	out := cmd.OutOrStdout()
	if report.Record != nil {
		fmt.Fprintf(out, "record: %s %s (model %s)\n", report.Record.LastAction, report.Record.Version, report.Record.Model.Repository)
	} else {
		fmt.Fprintf(out, "record: %s\n", report.RecordErr)
	}
	if report.ComposeOK {
		fmt.Fprintln(out, "compose: ok")
	} else {
		fmt.Fprintf(out, "compose: %s\n", report.ComposeErr)
	}
	for _, service := range report.Services {
		status := "ok"
		if !service.Healthy {
			status = service.Detail
		}
		fmt.Fprintf(out, "service %s: %s\n", service.Endpoint.Service, status)
	}
	return nil
}
