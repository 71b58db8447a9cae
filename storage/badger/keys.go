package badger

import (
	"strings"

	"github.com/poiesic/candidex/core"
)

// Key prefixes for different data types.
// Every prefix ends with ':' so no prefix is a prefix of another.
const (
	candidatePrefix      = "cand:"
	candidateSkillPrefix = "candsk:"
	vectorDocPrefix      = "vecdoc:"
	vectorValuePrefix    = "vecval:"
)

// skillSep separates the folded skill from the candidate ID in skill index keys.
const skillSep = "\x00"

// makeCandidateKey generates a key for a candidate record by ID.
func makeCandidateKey(id core.ID) []byte {
	return []byte(candidatePrefix + string(id))
}

// makeSkillKey generates a composite key for the skill index.
// Format: prefix:skill\x00id
func makeSkillKey(skill string, id core.ID) []byte {
	return []byte(candidateSkillPrefix + foldSkill(skill) + skillSep + string(id))
}

// makePartialSkillKey generates a partial key for skill lookups.
// Format: prefix:skill\x00
func makePartialSkillKey(skill string) []byte {
	return []byte(candidateSkillPrefix + foldSkill(skill) + skillSep)
}

// makeVectorDocKey generates the key for an index entry's metadata.
func makeVectorDocKey(id core.ID) []byte {
	return []byte(vectorDocPrefix + string(id))
}

// makeVectorValueKey generates the key for an index entry's vector.
func makeVectorValueKey(id core.ID) []byte {
	return []byte(vectorValuePrefix + string(id))
}

// idFromKey strips prefix from key.
func idFromKey(key []byte, prefix string) core.ID {
	return core.ID(strings.TrimPrefix(string(key), prefix))
}

func foldSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
