package storage

import (
	"math"
	"strings"

	"github.com/poiesic/candidex/core"
)

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	result := make([]float32, len(v))
	if len(v) == 0 {
		return result
	}

	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 {
		return result
	}

	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

// CosineDistance returns 1 - cos(a, b) for two unit-length vectors.
func CosineDistance(a, b []float32) float64 {
	var dot float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return 1 - dot
}

// MatchesFilter reports whether meta carries every tag listed in filter.
// Tags compare case-insensitively after trimming. An empty filter matches
// everything.
func MatchesFilter(meta Metadata, filter *core.TagFilter) bool {
	if filter.Empty() {
		return true
	}
	return containsAll(meta.Skills, filter.Skills) &&
		containsAll(meta.Companies, filter.Companies) &&
		containsAll(meta.Roles, filter.Roles) &&
		containsAll(meta.Institutions, filter.Institutions)
}

func containsAll(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[foldTag(h)] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[foldTag(w)]; !ok {
			return false
		}
	}
	return true
}

func foldTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
