// Package sanitize cleans operator-supplied form input before it reaches the
// options store. Uses bluemonday's strict policy to strip all markup, so the
// stored values are plain text.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared strict policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text reduces input to a single line of plain text: tags are stripped,
// entities decoded, runs of whitespace (including newlines and tabs)
// collapsed to one space, and the ends trimmed.
func Text(input string) string {
	if input == "" {
		return ""
	}
	stripped := html.UnescapeString(getPolicy().Sanitize(input))
	return strings.Join(strings.Fields(stripped), " ")
}

// Lines splits a textarea value on newlines, sanitizes each line with Text,
// and returns the non-empty results with duplicates removed. The first
// occurrence of a value keeps its position.
func Lines(input string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n") {
		clean := Text(line)
		if clean == "" || seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, clean)
	}
	return out
}
