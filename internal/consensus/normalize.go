package consensus

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalizer canonicalizes transcription text for comparison. It composes to
// NFC, collapses whitespace runs, strips terminal punctuation from the
// configured set, and applies Unicode case folding (a no-op for scripts
// without case). It never strips diacritics: letters that change meaning are
// left alone.
//
// Normalize is deterministic and idempotent. Safe for concurrent use.
type Normalizer struct {
	punct map[rune]struct{}
}

// NewNormalizer creates a normalizer whose terminal-punctuation set is the
// runes of terminalPunct.
func NewNormalizer(terminalPunct string) *Normalizer {
	punct := make(map[rune]struct{}, len(terminalPunct))
	for _, r := range terminalPunct {
		punct[r] = struct{}{}
	}
	return &Normalizer{punct: punct}
}

// Normalize canonicalizes raw transcription text. Empty or whitespace-only
// input normalizes to the empty string; callers treat that as a skip, not a
// submission.
func (n *Normalizer) Normalize(raw string) string {
	s := norm.NFC.String(raw)

	// Collapse internal whitespace runs and trim in one pass.
	s = strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")

	s = n.stripTerminal(s)

	// cases.Fold folds only where the script has case; a Caser is stateful,
	// so build one per call rather than sharing.
	s = cases.Fold().String(s)

	// Folding can emit decomposed sequences; recompose so the output is
	// stable under repeated normalization.
	return norm.NFC.String(strings.TrimSpace(s))
}

// stripTerminal removes trailing runes belonging to the punctuation set.
func (n *Normalizer) stripTerminal(s string) string {
	return strings.TrimRightFunc(s, func(r rune) bool {
		if _, ok := n.punct[r]; ok {
			return true
		}
		return unicode.IsSpace(r)
	})
}
