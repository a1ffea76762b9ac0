// internal/service/template_service.go
package service

import (
	"sort"
	"strings"
)

// RenderTemplate substitutes {key} placeholders in a single pass, so substituted values are
// never expanded again. Unknown placeholders are left as they are.
func RenderTemplate(template string, data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", data[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// truncateRunes keeps the first n characters of s and reports whether anything was cut.
func truncateRunes(s string, n int) (string, bool) {
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}
