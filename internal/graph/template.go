package graph

import "regexp"

var variablePattern = regexp.MustCompile(`\{([^}]+)\}`)

// ExtractVariables returns the distinct {name} references in text, in order of
// first appearance. It never returns nil.
func ExtractVariables(text string) []string {
	out := []string{}
	if text == "" {
		return out
	}
	seen := map[string]bool{}
	for _, m := range variablePattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
