package match

import "github.com/agext/levenshtein"

// Similarity scores two names in [0, 1]: 1.0 for identical normalized
// strings, 0.0 for completely disjoint ones. The metric is symmetric and
// deterministic (normalized Levenshtein distance). Either side empty after
// normalization scores 0 — an unreadable name is never a match.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	return levenshtein.Similarity(na, nb, nil)
}
