// Package envfile reads and writes KEY=VALUE environment files in the
// format consumed by docker compose.
package envfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileMode restricts environment files to the owning user; they carry
// credentials.
const FileMode os.FileMode = 0o600

// Document holds the parsed key/value pairs together with warnings for
// lines that could not be interpreted.
type Document struct {
	Values   map[string]string
	Warnings []string
}

// Parse reads KEY=VALUE pairs from r. Blank lines and # comments are
// skipped, the first = splits key from value, and surrounding quotes are
// stripped. Later duplicates win. Malformed lines become warnings rather
// than errors so a partially hand-edited file still loads.
func Parse(r io.Reader) (*Document, error) {
	doc := &Document{Values: map[string]string{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("line %d: not a KEY=VALUE pair", lineNo))
			continue
		}

		doc.Values[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read environment file: %w", err)
	}
	return doc, nil
}

func unquote(value string) string {
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// section groups related keys under a comment header. The grouping is
// cosmetic; parsers ignore it.
type section struct {
	header string
	keys   []string
}

var sections = []section{
	{"Core", []string{
		"AGIXT_VERSION", "AGIXT_BRANCH", "AGIXT_AUTO_UPDATE", "AGIXT_PORT",
		"INSTALL_FOLDER_PREFIX", "INSTALL_BASE_PATH", "WORKING_DIRECTORY",
		"UVICORN_WORKERS", "DATABASE_TYPE", "DATABASE_NAME",
	}},
	{"Network & URLs", []string{
		"AGIXT_URI", "EZLOCALAI_URI", "TEXTGEN_URI", "APP_URI", "AUTH_WEB",
		"INTERACTIVE_PORT", "EZLOCALAI_PORT", "EZLOCALAI_UI_PORT", "ALLOWED_DOMAINS",
	}},
	{"Model & Inference", []string{
		"MODEL_NAME", "MODEL_REPO", "DEFAULT_MODEL", "EZLOCALAI_MODEL",
		"LLM_MAX_TOKENS", "EZLOCALAI_MAX_TOKENS", "EZLOCALAI_TEMPERATURE",
		"EZLOCALAI_TOP_P", "EZLOCALAI_VOICE", "THREADS", "GPU_LAYERS",
		"WHISPER_MODEL", "IMG_ENABLED",
	}},
	{"Authentication", []string{
		"AGIXT_API_KEY", "EZLOCALAI_API_KEY", "HUGGINGFACE_TOKEN",
		"AGIXT_REQUIRE_API_KEY", "AUTH_PROVIDER", "ALLOW_EMAIL_SIGN_IN",
	}},
}

// Write renders values as a sectioned environment file. Keys follow the
// declared section order; anything left over lands in a final System
// section sorted alphabetically, so output is deterministic for a given
// clock.
func Write(w io.Writer, values map[string]string, now time.Time) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# AGiXT environment configuration\n")
	fmt.Fprintf(bw, "# Generated %s\n", now.UTC().Format(time.RFC3339))

	written := make(map[string]bool, len(values))
	for _, sec := range sections {
		var lines []string
		for _, key := range sec.keys {
			if value, ok := values[key]; ok {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				written[key] = true
			}
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(bw, "\n# %s\n", sec.header)
		for _, line := range lines {
			fmt.Fprintln(bw, line)
		}
	}

	var rest []string
	for key := range values {
		if !written[key] {
			rest = append(rest, key)
		}
	}
	if len(rest) > 0 {
		sort.Strings(rest)
		fmt.Fprintf(bw, "\n# System\n")
		for _, key := range rest {
			fmt.Fprintf(bw, "%s=%s\n", key, values[key])
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write environment file: %w", err)
	}
	return nil
}

// WriteFile renders values to path with owner-only permissions, replacing
// any existing file atomically.
func WriteFile(path string, values map[string]string, now time.Time) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".env-*")
	if err != nil {
		return fmt.Errorf("create temp environment file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Write(tmp, values, now); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(FileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod environment file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close environment file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace environment file: %w", err)
	}
	return nil
}
