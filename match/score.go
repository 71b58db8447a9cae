package match

import (
	"cmp"
	"slices"
	"strings"

	"github.com/poiesic/candidex/core"
)

// PassesSkillFilter applies the hard skills pre-filter. With no query skills
// every candidate passes. Otherwise the candidate needs at least one of the
// query skills, or all of them when q.MatchAllSkills is set.
func PassesSkillFilter(q *core.SearchQuery, c *core.Candidate) bool {
	wanted := skillSet(q.Skills)
	if len(wanted) == 0 {
		return true
	}
	found := overlap(wanted, c.Skills)
	if q.MatchAllSkills {
		return found == len(wanted)
	}
	return found > 0
}

// SkillFraction returns |query skills ∩ candidate skills| / |query skills|.
// Skills compare exactly after trimming and case folding.
func SkillFraction(querySkills, candidateSkills []string) float64 {
	wanted := skillSet(querySkills)
	if len(wanted) == 0 {
		return 0
	}
	return float64(overlap(wanted, candidateSkills)) / float64(len(wanted))
}

// Score computes the averaged fuzzy score of c against q.
//
// Every clause that produced an accepted sub-score adds subscore*weight to a
// running total and counts as one matched signal. Companies, roles,
// institutions and degrees are weighted by q.FuzzyWeight, skills by
// q.ExactWeight. The result is total/signals; ok is false when no signal
// matched, in which case the candidate is not a result at all.
func Score(q *core.SearchQuery, c *core.Candidate) (score float64, details map[string]float64, ok bool) {
	var (
		total   float64
		signals int
	)
	details = make(map[string]float64)

	fuzzyClauses := []struct {
		key    string
		terms  []string
		values []string
	}{
		{core.DetailCompany, q.Companies, c.Companies()},
		{core.DetailRole, q.Roles, c.Roles()},
		{core.DetailInstitution, q.Institutions, c.Institutions()},
		{core.DetailDegree, q.Degrees, c.Degrees()},
	}
	for _, clause := range fuzzyClauses {
		if len(clause.terms) == 0 {
			continue
		}
		if s, matched := BestMatch(clause.terms, clause.values); matched {
			total += s * q.FuzzyWeight
			signals++
			details[clause.key] = s
		}
	}

	if len(q.Skills) > 0 {
		if frac := SkillFraction(q.Skills, c.Skills); frac > 0 {
			total += frac * q.ExactWeight
			signals++
			details[core.DetailSkill] = frac
		}
	}

	if signals == 0 {
		return 0, nil, false
	}
	return total / float64(signals), details, true
}

// Rank scores every candidate that passes the skills pre-filter, drops the
// ones with no matched signal, sorts by score descending with ties broken by
// ID ascending, and applies q.Offset and q.Limit. A Limit <= 0 returns every
// match from Offset on.
func Rank(q *core.SearchQuery, candidates []*core.Candidate) []core.ScoredCandidate {
	var results []core.ScoredCandidate
	for _, c := range candidates {
		if c == nil || !PassesSkillFilter(q, c) {
			continue
		}
		score, details, ok := Score(q, c)
		if !ok {
			continue
		}
		results = append(results, core.ScoredCandidate{
			Candidate: c,
			Score:     score,
			Details:   details,
		})
	}

	slices.SortFunc(results, func(a, b core.ScoredCandidate) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return cmp.Compare(a.Candidate.ID, b.Candidate.ID)
	})

	return Page(results, q.Offset, q.Limit)
}

// Page returns items[offset:offset+limit], clamped to the slice bounds.
// An offset past the end yields an empty, non-nil slice.
func Page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func skillSet(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		if k := foldSkill(s); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

func overlap(wanted map[string]struct{}, have []string) int {
	seen := make(map[string]struct{}, len(have))
	n := 0
	for _, s := range have {
		k := foldSkill(s)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := wanted[k]; ok {
			n++
		}
	}
	return n
}

func foldSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
