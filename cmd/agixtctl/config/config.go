package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	clilogging "github.com/mocher01/agixt-configs-sub000/internal/cli/logging"
	intconfig "github.com/mocher01/agixt-configs-sub000/internal/config"
	"github.com/mocher01/agixt-configs-sub000/pkg/compose"
	pkgconfig "github.com/mocher01/agixt-configs-sub000/pkg/config"
	"github.com/mocher01/agixt-configs-sub000/pkg/envfile"
	"github.com/mocher01/agixt-configs-sub000/pkg/fetch"
)

// Fetcher downloads a hosted configuration.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (*fetch.Result, error)
}

// RenderOptions captures flags for `config render`.
type RenderOptions struct {
	ConfigName  string
	ConfigFile  string
	GithubToken string
	Repository  string
	OutDir      string
	Output      string
}

// RenderDeps configures dependencies for the render command.
type RenderDeps struct {
	Fetcher      Fetcher
	KeyGenerator pkgconfig.KeyGenerator
	Now          func() time.Time
}

var errSourceRequired = errors.New("a configuration name (--config) or file (--file) is required")

// ErrSourceRequired exposes the sentinel.
func ErrSourceRequired() error { return errSourceRequired }

// NewConfigCommand constructs the `agixtctl config` command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate AGiXT configurations",
	}

	cmd.AddCommand(newRenderCommand())
	cmd.AddCommand(newValidateCommand())

	return cmd
}

func newRenderCommand() *cobra.Command {
	opts := RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Resolve a configuration and show the result with provenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runRender(cmd, opts, RenderDeps{})
		},
	}

	cmd.Flags().StringVar(&opts.ConfigName, "config", "", "Hosted configuration name to fetch")
	cmd.Flags().StringVar(&opts.ConfigFile, "file", "", "Local configuration file instead of fetching")
	cmd.Flags().StringVar(&opts.GithubToken, "github-token", "", "Token for the hosted configuration repository")
	cmd.Flags().StringVar(&opts.Repository, "config-repo", fetch.DefaultRepository, "Hosted configuration repository (owner/name)")
	cmd.Flags().StringVar(&opts.OutDir, "out-dir", "", "Also write the .env and compose files here")
	cmd.Flags().StringVar(&opts.Output, "output", "text", "Output format: text or json")

	return cmd
}

// RunRenderForTest executes the render flow with explicit dependencies.
func RunRenderForTest(cmd *cobra.Command, opts RenderOptions, deps RenderDeps) error {
	return runRender(cmd, opts, deps)
}

func runRender(cmd *cobra.Command, opts RenderOptions, deps RenderDeps) error {
	if opts.ConfigName == "" && opts.ConfigFile == "" {
		return errSourceRequired
	}

	base, _, err := loadBase(cmd.Context(), opts, deps)
	if err != nil {
		return err
	}

	resolver := pkgconfig.NewResolver(nil, deps.KeyGenerator)
	resolved, err := resolver.Resolve(base)
	if err != nil {
		return err
	}

	summary, err := pkgconfig.FormatSummary(resolved, opts.Output, clilogging.RedactValue)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary)

	if opts.OutDir != "" {
		now := deps.Now
		if now == nil {
			now = time.Now
		}
		if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := envfile.WriteFile(filepath.Join(opts.OutDir, ".env"), resolved.Set.Strings(), now()); err != nil {
			return err
		}
		if _, err := compose.WriteFile(opts.OutDir, resolved.Set.Get("AGIXT_VERSION")); err != nil {
			return err
		}
	}
	return nil
}

func loadBase(ctx context.Context, opts RenderOptions, deps RenderDeps) (pkgconfig.Set, []string, error) {
	if opts.ConfigFile != "" {
		result, err := intconfig.Load(opts.ConfigFile)
		if err != nil {
			return nil, nil, err
		}
		return result.Base, result.Warnings, nil
	}

	if ctx == nil {
		ctx = context.Background()
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

func newValidateCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a local configuration for parse errors and missing mandatory keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runValidate(cmd, file)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Local configuration file to validate")

	return cmd
}

// RunValidateForTest executes the validate flow.
func RunValidateForTest(cmd *cobra.Command, file string) error {
	return runValidate(cmd, file)
}

func runValidate(cmd *cobra.Command, file string) error {
	result, err := intconfig.Load(file)
	if err != nil {
		return err
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", warning)
	}

	resolver := pkgconfig.NewResolver(nil, nil)
	if _, err := resolver.Resolve(result.Base); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", result.Path)
	return nil
}
