package core

import (
	"strings"
)

// BuildEmbeddingText derives the document fed to the vector index.
//
// Sections appear in a fixed order (name, skills, education, experience,
// certifications), one per line, and empty sections are omitted. The output
// depends only on those fields, so two candidates that differ only by ID
// produce identical text.
func BuildEmbeddingText(c *Candidate) string {
	if c == nil {
		return ""
	}

	var sections []string
	if name := strings.TrimSpace(c.Name); name != "" {
		sections = append(sections, "Candidate: "+name)
	}

	if skills := compact(c.Skills); len(skills) > 0 {
		sections = append(sections, "Skills: "+strings.Join(skills, ", "))
	}

	var edu []string
	for _, e := range c.Education {
		if s := joinAt(e.Degree, e.Institution); s != "" {
			edu = append(edu, s)
		}
	}
	if len(edu) > 0 {
		sections = append(sections, "Education: "+strings.Join(edu, "; "))
	}

	var exp []string
	for _, e := range c.Experience {
		s := joinAt(e.Role, e.Company)
		if resp := compact(e.Responsibilities); len(resp) > 0 {
			s += ". Responsibilities: " + strings.Join(resp, " ")
		}
		if s != "" {
			exp = append(exp, s)
		}
	}
	if len(exp) > 0 {
		sections = append(sections, "Experience: "+strings.Join(exp, "; "))
	}

	if certs := compact(c.Certifications); len(certs) > 0 {
		sections = append(sections, "Certifications: "+strings.Join(certs, ", "))
	}

	return strings.Join(sections, "\n")
}

// joinAt renders "left at right", dropping whichever side is blank.
func joinAt(left, right string) string {
	left, right = strings.TrimSpace(left), strings.TrimSpace(right)
	switch {
	case left != "" && right != "":
		return left + " at " + right
	case left != "":
		return left
	default:
		return right
	}
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeSkills trims skills, drops blanks and removes case-insensitive
// duplicates, keeping the first spelling seen.
func NormalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
