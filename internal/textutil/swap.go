package textutil

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/search"
)

// ReplaceFold replaces every case-insensitive occurrence of old inside s with
// replacement, reporting whether anything matched. Matching folds case the
// Unicode way, so "Dog", "DOG", and "dog" are all hits for old == "dog".
// Occurrences are found left to right and do not overlap; text already
// written as replacement is never rescanned.
func ReplaceFold(s, old, replacement string) (string, bool) {
	if s == "" || strings.TrimSpace(old) == "" {
		return s, false
	}
	matcher := search.New(language.Und, search.IgnoreCase)

	var b strings.Builder
	replaced := false
	remaining := s
	for {
		start, end := matcher.IndexString(remaining, old)
		if start < 0 || end <= start {
			break
		}
		b.WriteString(remaining[:start])
		b.WriteString(replacement)
		remaining = remaining[end:]
		replaced = true
	}
	if !replaced {
		return s, false
	}
	b.WriteString(remaining)
	return b.String(), true
}

// ContainsFold reports whether s contains old under Unicode case folding.
func ContainsFold(s, old string) bool {
	if s == "" || strings.TrimSpace(old) == "" {
		return false
	}
	matcher := search.New(language.Und, search.IgnoreCase)
	start, _ := matcher.IndexString(s, old)
	return start >= 0
}
