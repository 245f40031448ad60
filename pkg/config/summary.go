package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
)

// Supported summary output formats.
const (
	SummaryFormatText = "text"
	SummaryFormatJSON = "json"
)

// Redact replaces values whose keys look sensitive so summaries can be
// printed or logged safely.
type Redact func(key, value string) string

// FormatSummary renders a resolution summary in the requested format.
// Sensitive values are passed through redact when it is non-nil.
func FormatSummary(resolved *Resolution, format string, redact Redact) (string, error) {
	if resolved == nil {
		return "", fmt.Errorf("resolution is nil")
	}
	if redact == nil {
		redact = func(_, value string) string { return value }
	}

	switch strings.ToLower(format) {
	case "", SummaryFormatText:
		return formatSummaryText(resolved, redact)
	case SummaryFormatJSON:
		return formatSummaryJSON(resolved, redact)
	default:
		return "", fmt.Errorf("unsupported summary format %q", format)
	}
}

func formatSummaryText(resolved *Resolution, redact Redact) (string, error) {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	if len(resolved.Overrides) > 0 {
		fmt.Fprintf(tw, "Overrides:\t%s\n", strings.Join(resolved.Overrides, ", "))
	}
	if len(resolved.Warnings) > 0 {
		fmt.Fprintf(tw, "Warnings:\t%s\n", strings.Join(resolved.Warnings, ", "))
	}
	fmt.Fprintln(tw, "Key\tValue\tSource")

	for _, key := range resolved.Set.Keys() {
		value := resolved.Set[key]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", key, redact(key, value.Val), value.Source)
	}

	if err := tw.Flush(); err != nil {
		return "", fmt.Errorf("flush summary: %w", err)
	}
	return buf.String(), nil
}

func formatSummaryJSON(resolved *Resolution, redact Redact) (string, error) {
	type keyEntry struct {
		Key    string `json:"key"`
		Value  string `json:"value"`
		Source Source `json:"source"`
	}

	keys := resolved.Set.Keys()
	entries := make([]keyEntry, 0, len(keys))
	for _, key := range keys {
		value := resolved.Set[key]
		entries = append(entries, keyEntry{
			Key:    key,
			Value:  redact(key, value.Val),
			Source: value.Source,
		})
	}

	payload := map[string]interface{}{
		"entries": entries,
	}
	if len(resolved.Overrides) > 0 {
		payload["overrides"] = resolved.Overrides
	}
	if len(resolved.Warnings) > 0 {
		payload["warnings"] = resolved.Warnings
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary json: %w", err)
	}
	return string(encoded), nil
}
