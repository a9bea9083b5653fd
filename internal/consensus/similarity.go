package consensus

import "strings"

// Similarity computes token-level agreement between two normalized texts as
// 1 - editDistance/max(len), clamped to [0,1]. Word-level distance is used
// because word substitution is the dominant error mode in transcription.
//
// Symmetric and pure. Two empty token sequences score 0, not 1: two skips
// do not agree on anything.
func Similarity(a, b string) float64 {
	return TokenSimilarity(Tokenize(a), Tokenize(b))
}

// Tokenize splits normalized text into word tokens.
func Tokenize(s string) []string {
	return strings.Fields(s)
}

// TokenSimilarity is Similarity over pre-split token sequences, for callers
// that tokenize once and compare many times.
func TokenSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	d := editDistance(a, b)
	return clamp01(1 - float64(d)/float64(longest))
}

// editDistance is the Levenshtein distance between two token sequences,
// computed with a two-row table. This is the hot inner loop of a consensus
// computation (O(n·m) per pair, O(k²) pairs per chunk).
func editDistance(a, b []string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	// Keep the inner dimension the shorter sequence.
	if len(b) > len(a) {
		a, b = b, a
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost

			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
