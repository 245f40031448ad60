package config

import "sort"

// Source identifies where a configuration value originated within the precedence chain.
type Source string

const (
	// SourceBase indicates the value came from the fetched user configuration.
	SourceBase Source = "base"
	// SourceDefault indicates the value was inserted by a service default layer.
	SourceDefault Source = "default"
	// SourceDerived indicates the value was computed by a derivation rule.
	SourceDerived Source = "derived"
	// SourceGenerated indicates the value was produced by the key generator.
	SourceGenerated Source = "generated"
)

// Value stores a configuration value and its precedence origin.
type Value struct {
	Val    string
	Source Source
}

// Set represents a mapping of configuration keys to string values.
// Booleans and numbers stay strings to match the environment-file format.
type Set map[string]Value

// Get returns the value for key, or the empty string when absent.
func (s Set) Get(key string) string {
	return s[key].Val
}

// Has reports whether key holds a non-empty value.
func (s Set) Has(key string) bool {
	return s[key].Val != ""
}

// Clone creates a deep copy of the set so future mutations do not affect the original.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Keys returns every key in sorted order for deterministic serialization.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Strings flattens the set to a plain key/value mapping, dropping provenance.
func (s Set) Strings() map[string]string {
	out := make(map[string]string, len(s))
	for k, v := range s {
		out[k] = v.Val
	}
	return out
}

// FromStrings builds a set from a plain mapping, attributing every entry to the base source.
func FromStrings(values map[string]string) Set {
	out := make(Set, len(values))
	for k, v := range values {
		out[k] = Value{Val: v, Source: SourceBase}
	}
	return out
}
