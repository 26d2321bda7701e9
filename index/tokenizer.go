// Package index provides the lexical and dense retrieval indices, the
// score-fusion primitives, and the corpus bookkeeping shared by both: the
// BM25 variants, the exhaustive cosine-similarity dense index, and the pure
// fusion functions that combine their outputs.
package index

import "strings"

// Tokenize lowercases text, strips ASCII punctuation to whitespace, splits
// on whitespace, and drops tokens of length <= 1. It is the single
// tokenization path shared by ingestion and querying: any divergence
// between the two is a correctness bug, so callers must never substitute
// their own splitting logic on one side only.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)

	stripped := strings.Map(func(r rune) rune {
		if isASCIIPunct(r) {
			return ' '
		}
		return r
	}, lowered)

	fields := strings.Fields(stripped)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// isASCIIPunct reports whether r is one of the ASCII punctuation characters
// tokenization treats as a word separator.
func isASCIIPunct(r rune) bool {
	switch {
	case r >= '!' && r <= '/':
		return true
	case r >= ':' && r <= '@':
		return true
	case r >= '[' && r <= '`':
		return true
	case r >= '{' && r <= '~':
		return true
	default:
		return false
	}
}
