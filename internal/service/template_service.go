package service

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// RenderTemplate substitutes {placeholder} tokens with values from data.
// Empty values render as <unknown>; tokens not present in data are left
// untouched.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		if v == "" {
			v = "<unknown>"
		}
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// Placeholders lists the distinct placeholder names in a template, in
// order of first appearance.
func Placeholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// UnresolvedPlaceholders returns template placeholders with no entry in
// the known attribute set.
func UnresolvedPlaceholders(template string, known map[string]struct{}) []string {
	var unresolved []string
	for _, name := range Placeholders(template) {
		if _, ok := known[name]; !ok {
			unresolved = append(unresolved, name)
		}
	}
	return unresolved
}
