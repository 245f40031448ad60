package config

import (
	"strings"
)

// ggufExtension is the single-file model format served by the inference container.
const ggufExtension = ".gguf"

// DefaultModelRepository is returned when a model name cannot be mapped.
const DefaultModelRepository = "TheBloke/Llama-2-7B-Chat-GGUF"

// modelAlias pairs a short model name with its canonical repository path.
// Order matters: substring matching takes the first declared entry.
type modelAlias struct {
	name string
	repo string
}

var modelAliases = []modelAlias{
	{"phi-2", "microsoft/phi-2-gguf"},
	{"deepseek-coder", "TheBloke/deepseek-coder-6.7B-instruct-GGUF"},
	{"mistral", "TheBloke/Mistral-7B-Instruct-v0.1-GGUF"},
	{"codellama", "TheBloke/CodeLlama-7B-Instruct-GGUF"},
	{"tinyllama", "TheBloke/TinyLlama-1.1B-Chat-v1.0-GGUF"},
	{"llama-2", "TheBloke/Llama-2-7B-Chat-GGUF"},
}

// tokenMarker associates a repository substring with the context window of
// that model family. First match wins.
type tokenMarker struct {
	marker string
	limit  string
}

var tokenMarkers = []tokenMarker{
	{"tinyllama", "2048"},
	{"phi", "2048"},
	{"deepseek", "8192"},
	{"mistral", "4096"},
	{"llama", "4096"},
}

// FallbackTokenLimit is used when no family marker matches a repository path.
const FallbackTokenLimit = "4096"

// ModelRepository maps a free-text model name to a repository path.
// The result is always non-empty; unrecognized names degrade to
// DefaultModelRepository rather than failing.
func ModelRepository(name string) string {
	repo, _ := resolveModelRepository(name)
	return repo
}

// resolveModelRepository reports whether the default repository was chosen
// because no mapping rule applied, so callers can surface the degradation.
func resolveModelRepository(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	lower := strings.ToLower(trimmed)

	if lower == "" || strings.HasPrefix(lower, "unknown") {
		return DefaultModelRepository, true
	}

	for _, alias := range modelAliases {
		if lower == alias.name {
			return alias.repo, false
		}
	}

	for _, alias := range modelAliases {
		if strings.Contains(lower, alias.name) || strings.Contains(alias.name, lower) {
			return alias.repo, false
		}
	}

	// A path that is not a bare model file is assumed to already be a
	// repository reference.
	if strings.Contains(trimmed, "/") && !strings.HasSuffix(lower, ggufExtension) {
		return trimmed, false
	}

	return DefaultModelRepository, true
}

// TokenLimit returns the context window for the model family indicated by the
// repository path. Unknown paths get FallbackTokenLimit.
func TokenLimit(repository string) string {
	lower := strings.ToLower(repository)
	for _, tm := range tokenMarkers {
		if strings.Contains(lower, tm.marker) {
			return tm.limit
		}
	}
	return FallbackTokenLimit
}

// DisplayName derives a human-readable model name from the last segment of a
// repository path. Presentation only.
func DisplayName(repository string) string {
	trimmed := strings.Trim(strings.TrimSpace(repository), "/")
	if trimmed == "" {
		return trimmed
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}
