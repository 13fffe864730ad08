package matching

import "strings"

// DiceSimilarity computes the Dice coefficient over character bigrams,
// in [0,1]. Each bigram instance in a can satisfy at most one bigram in b
// (the multiset is decremented as matches are consumed). Strings shorter
// than two characters score 0; identical strings score 1.
func DiceSimilarity(a, b string) float64 {
	if len(a) < 2 || len(b) < 2 {
		return 0
	}
	if a == b {
		return 1
	}

	bigrams := make(map[string]int, len(a)-1)
	for i := 0; i < len(a)-1; i++ {
		bigrams[a[i:i+2]]++
	}

	matches := 0
	for i := 0; i < len(b)-1; i++ {
		bg := b[i : i+2]
		if bigrams[bg] > 0 {
			bigrams[bg]--
			matches++
		}
	}

	return 2 * float64(matches) / float64(len(a)-1+len(b)-1)
}

// NormalizeName uppercases and strips punctuation before comparison.
func NormalizeName(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.TrimSpace(s)
}
