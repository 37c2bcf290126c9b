// Package autolink finds tarefa keys such as "TSK-123" in free text.
package autolink

import (
	"regexp"
	"strings"

	"github.com/Giuseph66/neurelix-nexus/internal/models"
)

// KeyPrefix is the canonical spelling every detected key starts with.
const KeyPrefix = "TSK-"

// Keys may touch surrounding word characters, as in "feature/TSK-42_login".
var keyPattern = regexp.MustCompile(`(?i)TSK-([A-Z0-9]+(?:-[A-Z0-9]+)*)`)

// Detect returns the distinct keys in text, in order of first appearance.
// Matching is case-insensitive; the prefix is rewritten to "TSK-" while the
// remainder keeps the casing of its first occurrence.
func Detect(text string) []string {
	matches := keyPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		key := KeyPrefix + m[1]
		fold := strings.ToUpper(key)
		if _, dup := seen[fold]; dup {
			continue
		}
		seen[fold] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// Candidates expands a detected key into lookup candidates, longest first.
// "TSK-12-login" yields "TSK-12-LOGIN" then "TSK-12", so a branch named after
// a tarefa still resolves when its slug is appended.
func Candidates(key string) []string {
	rest := strings.TrimPrefix(strings.ToUpper(key), KeyPrefix)
	if rest == "" {
		return nil
	}
	parts := strings.Split(rest, "-")
	out := make([]string, 0, len(parts))
	for i := len(parts); i >= 1; i-- {
		out = append(out, KeyPrefix+strings.Join(parts[:i], "-"))
	}
	return out
}

// Provenance returns the first models.ProvenanceMaxLen characters of text.
func Provenance(text string) string {
	runes := []rune(text)
	if len(runes) <= models.ProvenanceMaxLen {
		return text
	}
	return string(runes[:models.ProvenanceMaxLen])
}
