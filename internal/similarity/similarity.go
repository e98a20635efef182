// Package similarity scores how alike two event titles are on a 0..1 scale.
//
// The ordering of heuristics intentionally favors lenient matching for
// abbreviation/expansion pairs (venue shorthand like "Texas MBB" against the
// provider's full billing) over strict edit distance, since both inputs are
// independently-authored short titles rather than prose.
package similarity

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// containmentFloor is the minimum score when one normalized title
	// contains the other outright.
	containmentFloor = 0.7
	// overlapThreshold is the token-overlap ratio required before the
	// word-overlap heuristic applies.
	overlapThreshold = 0.5
	// overlapWeight scales the overlap ratio into a score.
	overlapWeight = 0.8
	// overlapFloor is the minimum score the word-overlap heuristic returns.
	overlapFloor = 0.5
	// minTokenLen excludes short filler tokens ("vs", "at", "of") from the
	// overlap count. Tokens must be strictly longer than this.
	minTokenLen = 2
)

var leadingArticles = []string{"the ", "a ", "an "}

// Score returns the similarity between two titles in [0, 1].
func Score(a, b string) float64 {
	na := normalize(a)
	nb := normalize(b)

	if na == nb {
		if na == "" {
			return 0.0
		}
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}

	// Containment: one title fully embedded in the other.
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		shorter, longer := len(na), len(nb)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		ratio := float64(shorter) / float64(longer)
		if ratio < containmentFloor {
			return containmentFloor
		}
		return ratio
	}

	// Word overlap: how many meaningful tokens of a appear in b, where
	// "appear" tolerates partial tokens in either direction.
	if score, ok := wordOverlap(na, nb); ok {
		return score
	}

	// Fallback: normalized Levenshtein similarity. The distance counts rune
	// edits, so the length it is normalized by must count runes too.
	maxLen := utf8.RuneCountInString(na)
	if n := utf8.RuneCountInString(nb); n > maxLen {
		maxLen = n
	}
	return 1.0 - float64(levenshtein(na, nb))/float64(maxLen)
}

// normalize lowercases, strips punctuation, collapses whitespace, and removes
// a leading article.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Punctuation and symbols are dropped entirely.
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	for _, article := range leadingArticles {
		if strings.HasPrefix(out, article) {
			out = strings.TrimPrefix(out, article)
			break
		}
	}
	return out
}

// tokenize splits a normalized title into tokens longer than minTokenLen.
func tokenize(s string) []string {
	var tokens []string
	for _, tok := range strings.Fields(s) {
		if len(tok) > minTokenLen {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// wordOverlap applies the token-overlap heuristic. The second return value is
// false when the heuristic does not apply (no tokens, or overlap below the
// threshold).
func wordOverlap(na, nb string) (float64, bool) {
	tokensA := tokenize(na)
	tokensB := tokenize(nb)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0, false
	}

	matched := 0
	for _, ta := range tokensA {
		for _, tb := range tokensB {
			if strings.Contains(tb, ta) || strings.Contains(ta, tb) {
				matched++
				break
			}
		}
	}

	ratio := float64(matched) / float64(len(tokensA))
	if ratio < overlapThreshold {
		return 0, false
	}

	score := ratio * overlapWeight
	if score < overlapFloor {
		score = overlapFloor
	}
	return score, true
}

// levenshtein computes the edit distance between two strings using the
// two-row dynamic programming formulation.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
