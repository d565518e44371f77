// Package history screens retrieved conversational snippets before prompt assembly.
package history

import "strings"

// fallbackSize is how many trailing candidates survive when screening drops everything
const fallbackSize = 2

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Filter drops candidates that repeat the current input or an earlier accepted
// candidate, keeping input order. If every candidate is dropped the last two are returned.
func Filter(input string, candidates []string) []string {
	if len(candidates) == 0 {
		return []string{}
	}

	current := normalize(input)
	seen := make(map[string]struct{}, len(candidates))
	accepted := make([]string, 0, len(candidates))

	for _, c := range candidates {
		key := normalize(c)
		if key == current {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		accepted = append(accepted, c)
	}

	if len(accepted) == 0 {
		start := max(len(candidates)-fallbackSize, 0)
		return append([]string{}, candidates[start:]...)
	}
	return accepted
}
