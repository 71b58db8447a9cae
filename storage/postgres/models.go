package postgres

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/storage"
	"gorm.io/datatypes"
)

// candidateRow is the structured record. Document holds the full candidate
// as JSON; Skills holds the folded skill names for the pre-filter.
type candidateRow struct {
	ID        string         `gorm:"type:text;primaryKey"`
	Name      string         `gorm:"type:text;not null"`
	Document  datatypes.JSON `gorm:"type:jsonb;not null"`
	Skills    datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (candidateRow) TableName() string {
	return "candidates"
}

// embeddingRow is one vector index document. Tags are folded so that jsonb
// containment gives case-insensitive filtering.
type embeddingRow struct {
	ID          string          `gorm:"type:text;primaryKey"`
	Fingerprint string          `gorm:"type:text;not null"`
	Tags        datatypes.JSON  `gorm:"type:jsonb;not null"`
	Dimension   int             `gorm:"not null;index"`
	Embedding   pgvector.Vector `gorm:"type:vector"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime"`
}

func (embeddingRow) TableName() string {
	return "candidate_embeddings"
}

func toCandidateRow(c *core.Candidate) (*candidateRow, error) {
	doc, err := storage.MarshalCandidate(c)
	if err != nil {
		return nil, err
	}
	skills, err := json.Marshal(foldAll(c.Skills))
	if err != nil {
		return nil, err
	}
	return &candidateRow{
		ID:        string(c.ID),
		Name:      c.Name,
		Document:  datatypes.JSON(doc),
		Skills:    datatypes.JSON(skills),
		CreatedAt: c.CreatedAt,
	}, nil
}

func (r *candidateRow) toCandidate() (*core.Candidate, error) {
	return storage.UnmarshalCandidate(r.Document)
}

// foldTags lowercases every tag list so stored tags and filters compare
// case-insensitively.
func foldTags(meta storage.Metadata) storage.Metadata {
	return storage.Metadata{
		Skills:       foldAll(meta.Skills),
		Companies:    foldAll(meta.Companies),
		Roles:        foldAll(meta.Roles),
		Institutions: foldAll(meta.Institutions),
	}
}

// foldAll returns the trimmed, lowercased, non-empty values of in.
// The result is never nil so it marshals as a JSON array.
func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if f := strings.ToLower(strings.TrimSpace(s)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// filterJSON builds the jsonb containment document for filter, listing only
// the non-empty tag kinds.
func filterJSON(filter *core.TagFilter) ([]byte, error) {
	folded := foldTags(*filter)
	doc := make(map[string][]string)
	if len(folded.Skills) > 0 {
		doc["skills"] = folded.Skills
	}
	if len(folded.Companies) > 0 {
		doc["companies"] = folded.Companies
	}
	if len(folded.Roles) > 0 {
		doc["roles"] = folded.Roles
	}
	if len(folded.Institutions) > 0 {
		doc["institutions"] = folded.Institutions
	}
	return json.Marshal(doc)
}
