// Package compose renders and drives the docker compose deployment for the
// AGiXT stack.
package compose

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Service names inside the generated manifest.
const (
	ServiceBackend   = "agixt"
	ServiceFrontend  = "agixtinteractive"
	ServiceInference = "ezlocalai"
)

// NetworkName is the shared container network all three services join.
const NetworkName = "agixt-network"

// FileName is the manifest file written into the install directory.
const FileName = "docker-compose.yml"

// Manifest models the docker compose document.
type Manifest struct {
	Services map[string]Service  `yaml:"services"`
	Networks map[string]Network  `yaml:"networks"`
	Volumes  map[string]struct{} `yaml:"volumes,omitempty"`
}

// Service models a single compose service.
type Service struct {
	Image       string   `yaml:"image,omitempty"`
	Init        bool     `yaml:"init,omitempty"`
	Restart     string   `yaml:"restart,omitempty"`
	Environment []string `yaml:"environment,omitempty"`
	Ports       []string `yaml:"ports,omitempty"`
	Volumes     []string `yaml:"volumes,omitempty"`
	DependsOn   []string `yaml:"depends_on,omitempty"`
	Networks    []string `yaml:"networks,omitempty"`
}

// Network models a compose network entry.
type Network struct {
	Name string `yaml:"name,omitempty"`
}

// envRefs builds environment entries referencing the env file values as
// ${KEY:-default} placeholders. The declared defaults are advisory; the
// authoritative values live in the .env written by the resolver.
func envRefs(pairs [][2]string) []string {
	out := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		if pair[1] == "" {
			out = append(out, fmt.Sprintf("%s=${%s}", pair[0], pair[0]))
			continue
		}
		out = append(out, fmt.Sprintf("%s=${%s:-%s}", pair[0], pair[0], pair[1]))
	}
	return out
}

// Build assembles the three-service manifest for the resolved stack.
func Build(version string) *Manifest {
	backend := Service{
		Image:   "joshxt/agixt:" + version,
		Init:    true,
		Restart: "unless-stopped",
		Environment: envRefs([][2]string{
			{"AGIXT_API_KEY", ""},
			{"AGIXT_URI", "http://agixt:7437"},
			{"AGIXT_PORT", "7437"},
			{"AGIXT_AUTO_UPDATE", "true"},
			{"AGIXT_BRANCH", "stable"},
			{"AGIXT_REQUIRE_API_KEY", "true"},
			{"UVICORN_WORKERS", "10"},
			{"WORKING_DIRECTORY", "./WORKSPACE"},
			{"TZ", "Europe/Paris"},
			{"DATABASE_TYPE", "sqlite"},
			{"DATABASE_NAME", "models/agixt"},
			{"LOG_LEVEL", "INFO"},
			{"EZLOCALAI_URI", "http://ezlocalai:8091"},
			{"EZLOCALAI_API_KEY", ""},
			{"TEXTGEN_URI", "http://text-generation-webui:5000"},
		}),
		Ports:   []string{"7437:7437"},
		Volumes: []string{"./models:/agixt/models", "./WORKSPACE:/agixt/WORKSPACE"},
		Networks: []string{
			NetworkName,
		},
	}

	frontend := Service{
		Image:   "joshxt/agixt-interactive:latest",
		Init:    true,
		Restart: "unless-stopped",
		Environment: envRefs([][2]string{
			{"AGIXT_SERVER", "http://agixt:7437"},
			{"AGIXT_AGENT", "XT"},
			{"APP_NAME", "AGiXT"},
			{"APP_URI", "http://localhost:3437"},
			{"AUTH_WEB", "http://localhost:3437/user"},
			{"INTERACTIVE_MODE", "chat"},
			{"THEME_NAME", "doom"},
			{"AGIXT_CONVERSATION_MODE", "select"},
			{"AGIXT_SHOW_SELECTION", "agent,conversation"},
			{"AGIXT_FOOTER_MESSAGE", "Powered by AGiXT"},
			{"AGIXT_API_KEY", ""},
		}),
		Ports:     []string{"3437:3437"},
		DependsOn: []string{ServiceBackend},
		Networks: []string{
			NetworkName,
		},
	}

	inference := Service{
		Image:   "joshxt/ezlocalai:latest",
		Init:    true,
		Restart: "unless-stopped",
		Environment: envRefs([][2]string{
			{"EZLOCALAI_API_KEY", ""},
			{"EZLOCALAI_URI", "http://ezlocalai:8091"},
			{"DEFAULT_MODEL", ""},
			{"LLM_MAX_TOKENS", "4096"},
			{"WHISPER_MODEL", "base.en"},
			{"GPU_LAYERS", "0"},
			{"THREADS", "4"},
			{"EZLOCALAI_TEMPERATURE", "1.33"},
			{"EZLOCALAI_TOP_P", "0.95"},
			{"EZLOCALAI_VOICE", "DukeNukem"},
			{"IMG_ENABLED", "false"},
			{"HUGGINGFACE_TOKEN", ""},
		}),
		Ports:   []string{"8091:8091", "8502:8502"},
		Volumes: []string{"./models:/app/models"},
		Networks: []string{
			NetworkName,
		},
	}

	return &Manifest{
		Services: map[string]Service{
			ServiceBackend:   backend,
			ServiceFrontend:  frontend,
			ServiceInference: inference,
		},
		Networks: map[string]Network{
			NetworkName: {Name: NetworkName},
		},
	}
}

// Encode writes the manifest as YAML with a generation comment.
func Encode(w io.Writer, manifest *Manifest) error {
	if manifest == nil {
		return fmt.Errorf("manifest is nil")
	}
	if _, err := io.WriteString(w, "# Generated by agixtctl; edit the .env file instead.\n"); err != nil {
		return fmt.Errorf("write manifest header: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(manifest); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return enc.Close()
}

// WriteFile renders the manifest into dir and returns the file path.
func WriteFile(dir, version string) (string, error) {
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create manifest: %w", err)
	}
	defer f.Close()

	if err := Encode(f, Build(version)); err != nil {
		return "", err
	}
	return path, nil
}

// ServiceNames returns the manifest's service names sorted for
// deterministic display.
func (m *Manifest) ServiceNames() []string {
	names := make([]string, 0, len(m.Services))
	for name := range m.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
