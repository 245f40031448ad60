package install_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	installcmd "github.com/mocher01/agixt-configs-sub000/cmd/agixtctl/install"
	"github.com/mocher01/agixt-configs-sub000/pkg/bootstrap"
	"github.com/mocher01/agixt-configs-sub000/pkg/fetch"
	"github.com/mocher01/agixt-configs-sub000/pkg/probe"
)

type stubInspector struct{ issues bool }

func (s stubInspector) HasTool(string) bool      { return !s.issues }
func (s stubInspector) DockerResponsive() bool   { return !s.issues }
func (s stubInspector) HasComposePlugin() bool   { return !s.issues }
func (s stubInspector) PathWritable(string) bool { return !s.issues }
func (s stubInspector) FreeDiskGiB(string) int   { return 100 }

type stubFetcher struct {
	content string
	err     error
}

func (s stubFetcher) Fetch(ctx context.Context, name string) (*fetch.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &fetch.Result{Name: name + ".env", Content: []byte(s.content)}, nil
}

type openConn struct{ net.Conn }

func (openConn) Close() error { return nil }

type openDialer struct{}

func (openDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return openConn{}, nil
}

type okHTTP struct{}

func (okHTTP) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func hostedConfig() string {
	return strings.Join([]string{
		"AGIXT_VERSION=v1.4.0",
		"MODEL_NAME=mistral",
		"HUGGINGFACE_TOKEN=hf_test",
		"INSTALL_FOLDER_PREFIX=agixt",
		"INSTALL_BASE_PATH=/opt/stacks",
	}, "\n")
}

func newCommandBuffers() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{Use: "install"}
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd, out, errOut
}

func recordingExecutor(commands *[][]string) bootstrap.CommandExecutor {
	return func(cmd []string, env map[string]string) bootstrap.CommandResult {
		*commands = append(*commands, cmd)
		return bootstrap.CommandResult{ExitCode: 0}
	}
}

func TestInstallRequiresConfigNameOrFile(t *testing.T) {
	cmd, _, _ := newCommandBuffers()

	err := installcmd.RunInstallForTest(cmd, installcmd.Options{Output: "text"}, installcmd.Deps{})
	require.ErrorIs(t, err, installcmd.ErrConfigNameRequired())
}

func TestInstallRejectsUnknownOutput(t *testing.T) {
	cmd, _, _ := newCommandBuffers()

	err := installcmd.RunInstallForTest(cmd, installcmd.Options{ConfigName: "demo", Output: "yaml"}, installcmd.Deps{})
	require.ErrorIs(t, err, installcmd.ErrUnsupportedOutput())
}

func TestInstallFailsWhenPreflightFails(t *testing.T) {
	cmd, _, _ := newCommandBuffers()

	err := installcmd.RunInstallForTest(cmd, installcmd.Options{ConfigName: "demo", Output: "text"}, installcmd.Deps{
		Inspector: stubInspector{issues: true},
		Fetcher:   stubFetcher{content: hostedConfig()},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "preflight failed")
}

func TestInstallDryRunSkipsDeployment(t *testing.T) {
	cmd, out, errOut := newCommandBuffers()

	var commands [][]string
	err := installcmd.RunInstallForTest(cmd, installcmd.Options{
		ConfigName: "demo",
		Output:     "text",
		DryRun:     true,
	}, installcmd.Deps{
		Inspector: stubInspector{},
		Fetcher:   stubFetcher{content: hostedConfig()},
		Executor:  recordingExecutor(&commands),
	})
	require.NoError(t, err)
	require.Empty(t, commands, "dry run must not execute commands")
	require.Contains(t, out.String(), "dry run")
	require.Contains(t, errOut.String(), `"phase":"resolve"`)
}

func TestInstallFullFlow(t *testing.T) {
	cmd, out, errOut := newCommandBuffers()
	base := t.TempDir()

	var commands [][]string
	err := installcmd.RunInstallForTest(cmd, installcmd.Options{
		ConfigName:  "demo",
		Output:      "text",
		BasePath:    base,
		WaitTimeout: time.Second,
	}, installcmd.Deps{
		Inspector: stubInspector{},
		Fetcher:   stubFetcher{content: hostedConfig()},
		Executor:  recordingExecutor(&commands),
		Prober:    probe.New(probe.WithDialer(openDialer{}), probe.WithHTTPClient(okHTTP{})),
	})
	require.NoError(t, err)

	installDir := filepath.Join(base, "agixt-demo")

	// rendered artifacts
	envData, err := os.ReadFile(filepath.Join(installDir, ".env"))
	require.NoError(t, err)
	require.Contains(t, string(envData), "MODEL_REPO=TheBloke/Mistral-7B-Instruct-v0.1-GGUF")

	_, err = os.Stat(filepath.Join(installDir, "docker-compose.yml"))
	require.NoError(t, err)

	// install record
	recordData, err := os.ReadFile(filepath.Join(installDir, "agixt-install.json"))
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal(recordData, &record))
	require.Equal(t, "v1.4.0", record["version"])

	// command sequence: clone, compose down/pull/up
	var joined []string
	for _, command := range commands {
		joined = append(joined, strings.Join(command, " "))
	}
	all := strings.Join(joined, "\n")
	require.Contains(t, all, "git clone")
	require.Contains(t, all, "down --remove-orphans")
	require.Contains(t, all, "pull")
	require.Contains(t, all, "up -d")

	require.Contains(t, out.String(), "AGiXT installed")
	require.Contains(t, errOut.String(), `"phase":"compose"`)
}

func TestInstallSkipCleanupOmitsComposeDown(t *testing.T) {
	cmd, _, _ := newCommandBuffers()
	base := t.TempDir()

	var commands [][]string
	err := installcmd.RunInstallForTest(cmd, installcmd.Options{
		ConfigName:  "demo",
		Output:      "text",
		BasePath:    base,
		SkipCleanup: true,
		WaitTimeout: time.Second,
	}, installcmd.Deps{
		Inspector: stubInspector{},
		Fetcher:   stubFetcher{content: hostedConfig()},
		Executor:  recordingExecutor(&commands),
		Prober:    probe.New(probe.WithDialer(openDialer{}), probe.WithHTTPClient(okHTTP{})),
	})
	require.NoError(t, err)

	for _, command := range commands {
		require.NotContains(t, strings.Join(command, " "), "down --remove-orphans")
	}
}

func TestInstallJSONOutput(t *testing.T) {
	cmd, out, _ := newCommandBuffers()

	err := installcmd.RunInstallForTest(cmd, installcmd.Options{
		ConfigName: "demo",
		Output:     "json",
		DryRun:     true,
	}, installcmd.Deps{
		Inspector: stubInspector{},
		Fetcher:   stubFetcher{content: hostedConfig()},
	})
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	require.Equal(t, true, payload["dryRun"])
	require.Equal(t, "TheBloke/Mistral-7B-Instruct-v0.1-GGUF", payload["model"])
}

func TestInstallSurfacesFetchFailure(t *testing.T) {
	cmd, _, _ := newCommandBuffers()

	boom := errors.New("network down")
	err := installcmd.RunInstallForTest(cmd, installcmd.Options{ConfigName: "demo", Output: "text"}, installcmd.Deps{
		Inspector: stubInspector{},
		Fetcher:   stubFetcher{err: boom},
	})
	require.ErrorIs(t, err, boom)
}

func TestInstallReportsIncompleteConfiguration(t *testing.T) {
	cmd, _, _ := newCommandBuffers()

	err := installcmd.RunInstallForTest(cmd, installcmd.Options{ConfigName: "demo", Output: "text"}, installcmd.Deps{
		Inspector: stubInspector{},
		Fetcher:   stubFetcher{content: "MODEL_NAME=mistral\n"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing mandatory keys")
	require.Contains(t, err.Error(), "AGIXT_VERSION")
	require.Contains(t, err.Error(), "INSTALL_BASE_PATH")
}
