// Package template substitutes {{key}} placeholders in email templates.
package template

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render replaces every {{key}} occurrence in s with the value from vars.
// Keys absent from vars render as the empty string; Render never fails.
func Render(s string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		return vars[key]
	})
}

// RenderAll renders subject, text and html bodies with the same vars.
func RenderAll(subject, text, html string, vars map[string]string) (string, string, string) {
	return Render(subject, vars), Render(text, vars), Render(html, vars)
}

// Keys returns the distinct placeholder names referenced by s, in order of
// first appearance.
func Keys(s string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}

// HasPlaceholders reports whether s still contains unrendered tokens. Useful
// for catching templates that reference keys the enqueuer never supplies.
func HasPlaceholders(s string) bool {
	return strings.Contains(s, "{{") && placeholderRe.MatchString(s)
}
