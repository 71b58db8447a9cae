package core

import (
	"encoding/hex"
	"slices"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is the stable identifier of a candidate.
// It is assigned once at creation and shared by every store.
type ID string

// NewID returns a fresh random candidate ID.
func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string {
	return string(id)
}

// Fingerprint returns a short BLAKE2b digest of text.
// Identical text always produces the same fingerprint, which lets the vector
// index detect entries whose embedding document is stale.
func Fingerprint(text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentType identifies the kind of source document a candidate came from.
type DocumentType string

const (
	DocumentTypeResume         DocumentType = "resume"
	DocumentTypeJobDescription DocumentType = "job_description"
)

// Contact holds optional contact details.
type Contact struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Website  string `json:"website,omitempty"`
}

// Education is one education entry, in source document order.
type Education struct {
	Institution    string   `json:"institution"`
	Degree         string   `json:"degree"`
	GraduationDate string   `json:"graduation_date,omitempty"`
	GPA            *float64 `json:"gpa,omitempty"`
}

// Experience is one work experience entry, in source document order.
// Start and End are kept as written in the source; empty means unknown.
type Experience struct {
	Company          string   `json:"company"`
	Role             string   `json:"role"`
	Start            string   `json:"start,omitempty"`
	End              string   `json:"end,omitempty"`
	Responsibilities []string `json:"responsibilities"`
}

// Candidate is the unit of search.
type Candidate struct {
	ID             ID           `json:"id"`
	Name           string       `json:"name"`
	DocumentType   DocumentType `json:"document_type,omitempty"`
	Contact        *Contact     `json:"contact,omitempty"`
	Education      []Education  `json:"education"`
	Experience     []Experience `json:"experience"`
	Skills         []string     `json:"skills"`
	Certifications []string     `json:"certifications"`
	Summary        string       `json:"summary,omitempty"`
	RawText        string       `json:"raw_text,omitempty"` // never indexed
	EmbeddingText  string       `json:"embedding_text,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Clone returns a deep copy of c. A nil candidate clones to nil.
func (c *Candidate) Clone() *Candidate {
	if c == nil {
		return nil
	}
	out := *c
	if c.Contact != nil {
		contact := *c.Contact
		out.Contact = &contact
	}
	out.Education = slices.Clone(c.Education)
	for i, e := range out.Education {
		if e.GPA != nil {
			gpa := *e.GPA
			out.Education[i].GPA = &gpa
		}
	}
	out.Experience = slices.Clone(c.Experience)
	for i := range out.Experience {
		out.Experience[i].Responsibilities = slices.Clone(out.Experience[i].Responsibilities)
	}
	out.Skills = slices.Clone(c.Skills)
	out.Certifications = slices.Clone(c.Certifications)
	return &out
}

// Companies returns the company of every experience entry, in order.
func (c *Candidate) Companies() []string {
	out := make([]string, 0, len(c.Experience))
	for _, e := range c.Experience {
		out = append(out, e.Company)
	}
	return out
}

// Roles returns the role of every experience entry, in order.
func (c *Candidate) Roles() []string {
	out := make([]string, 0, len(c.Experience))
	for _, e := range c.Experience {
		out = append(out, e.Role)
	}
	return out
}

// Institutions returns the institution of every education entry, in order.
func (c *Candidate) Institutions() []string {
	out := make([]string, 0, len(c.Education))
	for _, e := range c.Education {
		out = append(out, e.Institution)
	}
	return out
}

// Degrees returns the degree of every education entry, in order.
func (c *Candidate) Degrees() []string {
	out := make([]string, 0, len(c.Education))
	for _, e := range c.Education {
		out = append(out, e.Degree)
	}
	return out
}

// Tags returns the denormalized metadata carried into the vector index.
func (c *Candidate) Tags() TagFilter {
	return TagFilter{
		Skills:       append([]string(nil), c.Skills...),
		Companies:    nonEmpty(c.Companies()),
		Roles:        nonEmpty(c.Roles()),
		Institutions: nonEmpty(c.Institutions()),
	}
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Match detail keys recorded on every SearchResult.
const (
	DetailSemantic    = "semantic_score"
	DetailFuzzy       = "fuzzy_score"
	DetailCompany     = "company_score"
	DetailRole        = "role_score"
	DetailInstitution = "institution_score"
	DetailDegree      = "degree_score"
	DetailSkill       = "skill_score"
)

// ScoredCandidate is a candidate with the averaged fuzzy score produced by a
// candidate store, plus the component sub-scores that made it up.
type ScoredCandidate struct {
	Candidate *Candidate
	Score     float64
	Details   map[string]float64
}

// SearchResult is one ranked entry of a fused search.
// Score is a weighted sum of independently scaled signals and has no fixed
// upper bound.
type SearchResult struct {
	Candidate    *Candidate         `json:"candidate"`
	Score        float64            `json:"score"`
	MatchDetails map[string]float64 `json:"match_details"`
}

// SearchResponse is the ranked page plus any degraded-mode warnings.
type SearchResponse struct {
	Results  []SearchResult `json:"results"`
	Warnings []Warning      `json:"warnings,omitempty"`
}

// Partial reports whether the response was produced in degraded mode.
func (r *SearchResponse) Partial() bool {
	return HasWarning(r.Warnings, WarningPartialResults)
}
