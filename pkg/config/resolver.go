package config

import (
	"fmt"
	"sort"
	"strings"
)

// MandatoryKeys must be present and non-empty in the fetched base
// configuration before any layering happens.
var MandatoryKeys = []string{
	"AGIXT_VERSION",
	"MODEL_NAME",
	"HUGGINGFACE_TOKEN",
	"INSTALL_FOLDER_PREFIX",
	"INSTALL_BASE_PATH",
}

// generatedKeyNames receive a fresh secret when the base configuration does
// not carry a usable value.
var generatedKeyNames = []string{"AGIXT_API_KEY", "EZLOCALAI_API_KEY"}

// interconnectionOverrides encode the container-network addresses between
// co-located services. They always win, even over base values: the addresses
// are fixed by the compose topology and not meaningfully user-configurable.
var interconnectionOverrides = []Entry{
	{"AGIXT_URI", "http://agixt:7437"},
	{"EZLOCALAI_URI", "http://ezlocalai:8091"},
	{"TEXTGEN_URI", "http://text-generation-webui:5000"},
}

// IncompleteError reports every mandatory key missing from the base
// configuration so the operator can fix all of them in one pass.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("configuration incomplete: missing mandatory keys: %s", strings.Join(e.Missing, ", "))
}

// Resolution captures the resolved configuration set together with the
// precedence audit trail.
type Resolution struct {
	Set       Set
	Overrides []string
	Warnings  []string
}

// Resolver merges a partial base configuration with service default layers
// and derivation rules into one internally consistent set.
type Resolver struct {
	layers      []Layer
	generateKey KeyGenerator
}

// NewResolver constructs a Resolver. Nil arguments select the production
// layer tables and the random key generator.
func NewResolver(layers []Layer, generateKey KeyGenerator) *Resolver {
	if layers == nil {
		layers = DefaultLayers()
	}
	if generateKey == nil {
		generateKey = RandomKeyGenerator
	}
	return &Resolver{layers: layers, generateKey: generateKey}
}

// Resolve produces the fully populated configuration set for all three
// services. base is never mutated; each call returns an independent result.
func (r *Resolver) Resolve(base Set) (*Resolution, error) {
	if err := validateMandatory(base); err != nil {
		return nil, err
	}

	resolved := &Resolution{Set: base.Clone()}

	for _, layer := range r.layers {
		for _, entry := range layer.Entries {
			if _, ok := resolved.Set[entry.Key]; ok {
				continue
			}
			resolved.Set[entry.Key] = Value{Val: entry.Value, Source: SourceDefault}
		}
	}

	r.deriveModel(base, resolved)
	r.generateKeys(resolved)
	r.applyInterconnections(resolved)

	return resolved, nil
}

func validateMandatory(base Set) error {
	var missing []string
	for _, key := range MandatoryKeys {
		if !base.Has(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &IncompleteError{Missing: missing}
	}
	return nil
}

// deriveModel resolves the model repository, display names, and the token
// limits that the backend and inference services must agree on.
func (r *Resolver) deriveModel(base Set, resolved *Resolution) {
	repo, fellBack := resolveModelRepository(resolved.Set.Get("MODEL_NAME"))
	if fellBack {
		resolved.Warnings = append(resolved.Warnings,
			fmt.Sprintf("model %q not recognized, using default repository %s", resolved.Set.Get("MODEL_NAME"), repo))
	}
	resolved.Set["MODEL_REPO"] = Value{Val: repo, Source: SourceDerived}

	display := DisplayName(repo)
	resolved.Set["DEFAULT_MODEL"] = Value{Val: display, Source: SourceDerived}
	resolved.Set["EZLOCALAI_MODEL"] = Value{Val: display, Source: SourceDerived}

	// An explicit base token limit wins; otherwise the limit follows the
	// model family. Both keys are written from the same value so they can
	// never drift apart.
	limit := base.Get("LLM_MAX_TOKENS")
	if limit == "" {
		limit = base.Get("EZLOCALAI_MAX_TOKENS")
	}
	source := SourceBase
	if limit == "" {
		limit = TokenLimit(repo)
		source = SourceDerived
	}
	resolved.Set["LLM_MAX_TOKENS"] = Value{Val: limit, Source: source}
	resolved.Set["EZLOCALAI_MAX_TOKENS"] = Value{Val: limit, Source: source}
}

func (r *Resolver) generateKeys(resolved *Resolution) {
	for _, key := range generatedKeyNames {
		current := resolved.Set.Get(key)
		if current != "" && current != "None" {
			continue
		}
		resolved.Set[key] = Value{Val: r.generateKey(), Source: SourceGenerated}
	}
}

func (r *Resolver) applyInterconnections(resolved *Resolution) {
	for _, entry := range interconnectionOverrides {
		if previous, ok := resolved.Set[entry.Key]; ok && previous.Val != entry.Value {
			resolved.Overrides = append(resolved.Overrides,
				fmt.Sprintf("interconnection overrides %s (was %q from %s)", entry.Key, previous.Val, previous.Source))
		}
		resolved.Set[entry.Key] = Value{Val: entry.Value, Source: SourceDerived}
	}
}
