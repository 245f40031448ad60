package logging

import (
	"regexp"
	"strings"
)

const redactionPlaceholder = "***"

var allowlistedEnvKeys = map[string]struct{}{
	"PATH":    {},
	"HOME":    {},
	"USER":    {},
	"SHELL":   {},
	"PWD":     {},
	"LANG":    {},
	"LC_ALL":  {},
	"TMPDIR":  {},
	"TMP":     {},
	"TERM":    {},
	"LOGNAME": {},
	"EDITOR":  {},
}

// SanitizeCommand returns a sanitized string representation of the provided
// command arguments. Sensitive values (tokens, API keys, URL credentials)
// are redacted while leaving the overall structure intact.
func SanitizeCommand(args []string) string {
	if len(args) == 0 {
		return ""
	}

	sanitized := make([]string, 0, len(args))
	redactNext := false

	for _, arg := range args {
		if redactNext {
			sanitized = append(sanitized, redactionPlaceholder)
			redactNext = false
			continue
		}

		if eq := strings.Index(arg, "="); eq > 0 {
			flag := arg[:eq]
			if isSensitiveKey(flag) {
				sanitized = append(sanitized, flag+"="+redactionPlaceholder)
				continue
			}
			sanitized = append(sanitized, flag+"="+SanitizeURL(arg[eq+1:]))
			continue
		}

		if isSensitiveKey(arg) && strings.HasPrefix(arg, "-") {
			sanitized = append(sanitized, arg)
			redactNext = true
			continue
		}

		sanitized = append(sanitized, SanitizeURL(arg))
	}

	return strings.Join(sanitized, " ")
}

// SanitizeEnv returns a sanitized copy of the provided environment variables.
// Sensitive values are replaced with a placeholder while preserving
// allowlisted keys.
func SanitizeEnv(env map[string]string) map[string]string {
	if len(env) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(env))
	for key, value := range env {
		if _, ok := allowlistedEnvKeys[key]; ok {
			out[key] = value
			continue
		}
		if isSensitiveKey(key) {
			out[key] = redactionPlaceholder
			continue
		}
		out[key] = value
	}
	return out
}

var (
	sensitivePattern = regexp.MustCompile(`(?i)(password|passphrase|secret|token|api_?key|privatekey)=([^\s]{1,256})`)
	hfTokenPattern   = regexp.MustCompile(`\bhf_[A-Za-z0-9]{4,}\b`)
	urlCredsPattern  = regexp.MustCompile(`(https?://)([^/@\s]+)@`)
)

// SanitizeText redacts sensitive key/value pairs and bare credentials inside
// freeform strings.
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}
	text = sensitivePattern.ReplaceAllStringFunc(text, func(match string) string {
		parts := strings.SplitN(match, "=", 2)
		if len(parts) != 2 {
			return match
		}
		return parts[0] + "=" + redactionPlaceholder
	})
	text = hfTokenPattern.ReplaceAllString(text, redactionPlaceholder)
	return urlCredsPattern.ReplaceAllString(text, "$1"+redactionPlaceholder+"@")
}

// SanitizeURL strips userinfo credentials embedded in clone URLs.
func SanitizeURL(raw string) string {
	return urlCredsPattern.ReplaceAllString(raw, "$1"+redactionPlaceholder+"@")
}

// RedactValue replaces the value when key names a credential. Intended for
// summary rendering.
func RedactValue(key, value string) string {
	if isSensitiveKey(key) && value != "" {
		return redactionPlaceholder
	}
	return value
}

func isSensitiveKey(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "password") ||
		strings.Contains(lower, "passphrase") ||
		strings.Contains(lower, "secret") ||
		strings.Contains(lower, "token") ||
		strings.Contains(lower, "apikey") ||
		strings.Contains(lower, "api_key") ||
		strings.Contains(lower, "api-key") ||
		strings.Contains(lower, "privatekey")
}
