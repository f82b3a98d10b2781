// Package suggest finds near matches for user input, for did-you-mean hints
// in configuration diagnostics.
package suggest

import "github.com/agext/levenshtein"

// String returns the candidate closest to the input, or an empty string if
// no candidate is close enough.
//
// How close is close enough scales with the input length and may change; the
// result is a hint, not a correction.
func String(input string, candidates []string) string {
	// Allow one differing character per five typed.
	max := len(input) / 5
	if max == 0 {
		max = 1
	}

	best := ""
	bestDist := max + 1
	for _, c := range candidates {
		if c == input {
			return input
		}
		if d := levenshtein.Distance(input, c, nil); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}
