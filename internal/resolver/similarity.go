package resolver

import (
	"strings"

	"github.com/agext/levenshtein"
)

// Similarity scores how alike two strings are, in [0, 1]. The resolver only
// depends on this interface so the distance algorithm is swappable without
// touching clustering semantics.
type Similarity interface {
	Score(a, b string) float64
}

// TokenSimilarity is the default scorer: the better of normalized
// Levenshtein similarity and Jaccard word-set overlap. Edit distance
// handles near-misses ("Jon"/"John"), word overlap handles reordered or
// partially shared names ("Priya Sharma"/"Sharma, Priya").
type TokenSimilarity struct {
	params *levenshtein.Params
}

// NewTokenSimilarity creates the default similarity scorer.
func NewTokenSimilarity() *TokenSimilarity {
	return &TokenSimilarity{params: levenshtein.NewParams()}
}

// Score returns max(levenshtein, jaccard) over the lowercased inputs.
func (s *TokenSimilarity) Score(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	lev := levenshtein.Similarity(a, b, s.params)
	jac := jaccard(a, b)
	if jac > lev {
		return jac
	}
	return lev
}

// jaccard computes word-set overlap.
func jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA)
	for w := range setB {
		if !setA[w] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if w != "" {
			set[w] = true
		}
	}
	return set
}
