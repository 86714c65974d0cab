package dupdetect

import "strings"

// TextSimilarity scores the similarity of two free-text descriptions as the
// Jaccard index of their normalized token sets. The result is in [0,1],
// deterministic and symmetric.
//
// Normalization lowercases, strips everything but letters, digits and
// whitespace, and drops tokens of one or two characters (articles,
// prepositions and other low-signal words).
//
// Empty-input rules: if exactly one side normalizes to no tokens the score
// is 0. If both sides normalize to no tokens the score is 1 — two empty
// descriptions carry equally no information, and defining them as identical
// keeps similarity(a,a) == 1 for every input. Callers that must not match
// on empty text should gate on that before scoring.
func TextSimilarity(a, b string) float64 {
	wordsA := tokenize(a)
	wordsB := tokenize(b)

	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union)
}

// tokenize returns the normalized word set of text.
func tokenize(text string) map[string]struct{} {
	var sb strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte(' ')
		}
	}

	words := make(map[string]struct{})
	for _, w := range strings.Fields(sb.String()) {
		if len(w) > 2 {
			words[w] = struct{}{}
		}
	}
	return words
}
