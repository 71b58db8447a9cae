// Package match implements the fuzzy attribute scoring shared by every
// candidate store backend.
package match

import (
	"slices"
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
)

// Threshold is the minimum similarity for a company, role, institution or
// degree term to count as a match. Anything below contributes nothing.
const Threshold = 0.70

// TokenSort lowercases s, replaces punctuation with spaces, and returns its
// whitespace-separated tokens sorted and rejoined by single spaces.
func TokenSort(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, s)
	tokens := strings.Fields(s)
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

// Similarity returns a case-insensitive, token-order-insensitive similarity
// in [0,1] between a and b. Identical token sets score 1.
//
// The score is the normalized Indel ratio of the token-sorted strings:
// 1 - d/(len(a)+len(b)), where d is the edit distance allowing only
// insertions and deletions (a substitution costs two).
func Similarity(a, b string) float64 {
	a, b = TokenSort(a), TokenSort(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	d := smetrics.WagnerFischer(a, b, 1, 1, 2)
	return clamp(1 - float64(d)/float64(len(a)+len(b)))
}

// BestMatch scores every query term against every candidate value, keeps the
// best score per term, discards terms whose best score is below Threshold,
// and returns the maximum accepted score. ok is false when no term was
// accepted.
func BestMatch(terms, values []string) (score float64, ok bool) {
	for _, term := range terms {
		best := 0.0
		for _, v := range values {
			if s := Similarity(term, v); s > best {
				best = s
			}
		}
		if best >= Threshold && best > score {
			score, ok = best, true
		}
	}
	return score, ok
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
