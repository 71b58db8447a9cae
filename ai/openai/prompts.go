package openai

import "fmt"

const candidateResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "contact": {
      "type": "object",
      "properties": {
        "email": {"type": "string"},
        "phone": {"type": "string"},
        "address": {"type": "string"},
        "linkedin": {"type": "string"},
        "website": {"type": "string"}
      }
    },
    "education": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "institution": {"type": "string"},
          "degree": {"type": "string"},
          "graduation_date": {"type": "string"},
          "gpa": {"type": ["number", "null"]}
        },
        "required": ["institution", "degree"]
      }
    },
    "experience": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "company": {"type": "string"},
          "role": {"type": "string"},
          "start": {"type": "string"},
          "end": {"type": "string"},
          "responsibilities": {"type": "array", "items": {"type": "string"}}
        },
        "required": ["company", "role", "responsibilities"]
      }
    },
    "skills": {"type": "array", "items": {"type": "string"}},
    "certifications": {"type": "array", "items": {"type": "string"}},
    "summary": {"type": "string"}
  },
  "required": ["name", "education", "experience", "skills"]
}`

const extractionPromptTemplate = `Extract structured information from the resume text you are given and return it as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- "name" is the full name of the person the resume belongs to.
- List education and experience entries in the order they appear in the document.
- Copy dates exactly as written; leave "start" or "end" empty when they are not stated.
- Each responsibility is one sentence or bullet from the document.
- Skills are short tokens such as "Python", "SQL" or "Kubernetes". Do not repeat a skill.
- Include only information that is explicitly present in the text. Do not hallucinate.
- Use empty arrays for sections that are missing.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "Dana Lee\ndana@example.com\nData Engineer, Acme Corp (2019 - present)\n- Built batch pipelines\nSkills: Python, SQL"
Output:
{
  "name": "Dana Lee",
  "contact": {"email": "dana@example.com"},
  "education": [],
  "experience": [
    {"company": "Acme Corp", "role": "Data Engineer", "start": "2019", "end": "present",
     "responsibilities": ["Built batch pipelines"]}
  ],
  "skills": ["Python", "SQL"],
  "certifications": []
}`

// buildSystemPrompt creates the system prompt with the response schema embedded.
func buildSystemPrompt() string {
	return fmt.Sprintf(extractionPromptTemplate, candidateResponseSchema)
}
