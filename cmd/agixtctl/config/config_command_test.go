package config_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	configcmd "github.com/mocher01/agixt-configs-sub000/cmd/agixtctl/config"
	pkgconfig "github.com/mocher01/agixt-configs-sub000/pkg/config"
	"github.com/mocher01/agixt-configs-sub000/pkg/fetch"
)

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

func hostedConfig() string {
	return strings.Join([]string{
		"AGIXT_VERSION=v1.4.0",
		"MODEL_NAME=deepseek-coder",
		"HUGGINGFACE_TOKEN=hf_secret",
		"INSTALL_FOLDER_PREFIX=agixt",
		"INSTALL_BASE_PATH=/opt/stacks",
	}, "\n")
}

func newCommandBuffer() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{Use: "config"}
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, out
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agixt.config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func sequentialKeys() pkgconfig.KeyGenerator {
	n := 0
	return func() string {
		n++
		return "key-" + string(rune('a'+n-1))
	}
}

func TestRenderRequiresSource(t *testing.T) {
	cmd, _ := newCommandBuffer()

	err := configcmd.RunRenderForTest(cmd, configcmd.RenderOptions{Output: "text"}, configcmd.RenderDeps{})
	require.ErrorIs(t, err, configcmd.ErrSourceRequired())
}

func TestRenderTextShowsProvenanceAndRedaction(t *testing.T) {
	cmd, out := newCommandBuffer()

	err := configcmd.RunRenderForTest(cmd, configcmd.RenderOptions{
		ConfigName: "demo",
		Output:     "text",
	}, configcmd.RenderDeps{
		Fetcher:      stubFetcher{content: hostedConfig()},
		KeyGenerator: sequentialKeys(),
	})
	require.NoError(t, err)

	text := out.String()
	require.Contains(t, text, "MODEL_REPO")
	require.Contains(t, text, "TheBloke/deepseek-coder-6.7B-instruct-GGUF")
	require.Contains(t, text, "derived")
	require.Contains(t, text, "AGIXT_URI")
	require.NotContains(t, text, "hf_secret")
	require.NotContains(t, text, "key-a")
}

func TestRenderJSONOutput(t *testing.T) {
	cmd, out := newCommandBuffer()

	err := configcmd.RunRenderForTest(cmd, configcmd.RenderOptions{
		ConfigName: "demo",
		Output:     "json",
	}, configcmd.RenderDeps{
		Fetcher:      stubFetcher{content: hostedConfig()},
		KeyGenerator: sequentialKeys(),
	})
	require.NoError(t, err)

	var payload struct {
		Entries []struct {
			Key    string `json:"key"`
			Value  string `json:"value"`
			Source string `json:"source"`
		} `json:"entries"`
		Overrides []string `json:"overrides"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	require.NotEmpty(t, payload.Overrides)

	sources := map[string]string{}
	for _, entry := range payload.Entries {
		sources[entry.Key] = entry.Source
	}
	require.Equal(t, "base", sources["MODEL_NAME"])
	require.Equal(t, "derived", sources["MODEL_REPO"])
	require.Equal(t, "generated", sources["AGIXT_API_KEY"])
}

func TestRenderFromFileWritesArtifacts(t *testing.T) {
	cmd, _ := newCommandBuffer()
	path := writeConfigFile(t, hostedConfig())
	outDir := filepath.Join(t.TempDir(), "render")

	err := configcmd.RunRenderForTest(cmd, configcmd.RenderOptions{
		ConfigFile: path,
		OutDir:     outDir,
		Output:     "text",
	}, configcmd.RenderDeps{
		KeyGenerator: sequentialKeys(),
		Now:          func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	envData, err := os.ReadFile(filepath.Join(outDir, ".env"))
	require.NoError(t, err)
	require.Contains(t, string(envData), "AGIXT_VERSION=v1.4.0")

	composeData, err := os.ReadFile(filepath.Join(outDir, "docker-compose.yml"))
	require.NoError(t, err)
	require.Contains(t, string(composeData), "joshxt/agixt:v1.4.0")
}

func TestRenderSurfacesIncompleteConfiguration(t *testing.T) {
	cmd, _ := newCommandBuffer()

	err := configcmd.RunRenderForTest(cmd, configcmd.RenderOptions{
		ConfigName: "demo",
		Output:     "text",
	}, configcmd.RenderDeps{
		Fetcher: stubFetcher{content: "MODEL_NAME=mistral\n"},
	})
	require.Error(t, err)

	var incomplete *pkgconfig.IncompleteError
	require.ErrorAs(t, err, &incomplete)
	require.Contains(t, incomplete.Missing, "AGIXT_VERSION")
}

func TestValidateAcceptsCompleteFile(t *testing.T) {
	cmd, out := newCommandBuffer()
	path := writeConfigFile(t, hostedConfig())

	err := configcmd.RunValidateForTest(cmd, path)
	require.NoError(t, err)
	require.Contains(t, out.String(), "is valid")
}

func TestValidateReportsMissingKeys(t *testing.T) {
	cmd, _ := newCommandBuffer()
	path := writeConfigFile(t, "MODEL_NAME=mistral\n")

	err := configcmd.RunValidateForTest(cmd, path)
	var incomplete *pkgconfig.IncompleteError
	require.ErrorAs(t, err, &incomplete)
	require.Contains(t, incomplete.Missing, "HUGGINGFACE_TOKEN")
}

func TestValidatePrintsParseWarnings(t *testing.T) {
	cmd, out := newCommandBuffer()
	path := writeConfigFile(t, hostedConfig()+"\nnot a pair\n")

	err := configcmd.RunValidateForTest(cmd, path)
	require.NoError(t, err)
	require.Contains(t, out.String(), "warning:")
}

func TestValidateMissingFile(t *testing.T) {
	cmd, _ := newCommandBuffer()

	err := configcmd.RunValidateForTest(cmd, filepath.Join(t.TempDir(), "absent.config"))
	require.Error(t, err)
}
