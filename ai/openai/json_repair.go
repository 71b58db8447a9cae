package openai

import (
	"regexp"
	"strings"
)

var (
	// `{name":` or `, skills":` where the model dropped the opening quote
	missingKeyQuote = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)":`)
	trailingComma   = regexp.MustCompile(`,(\s*[}\]])`)
)

// repairJSON fixes the slips small models make when asked for a single
// candidate object. It drops any markdown fence or prose around the object,
// restores missing opening quotes on keys and removes trailing commas.
// Well-formed input is returned unchanged.
func repairJSON(s string) string {
	s = strings.TrimSpace(s)
	if start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); start >= 0 && end > start {
		s = s[start : end+1]
	}
	s = missingKeyQuote.ReplaceAllString(s, `$1"$2":`)
	return trailingComma.ReplaceAllString(s, "$1")
}
