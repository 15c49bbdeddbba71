package relate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	contextWindow   = 100
	maxContextChars = 200
)

// ContextWindow returns the text around the closest pair of occurrences of a
// and b, extended by 100 characters on each side and with whitespace
// collapsed. Occurrences are matched case-insensitively on word boundaries.
// It returns "" when either name does not occur.
func ContextWindow(a, b, content string) string {
	aPos := occurrences(a, content)
	bPos := occurrences(b, content)
	if len(aPos) == 0 || len(bPos) == 0 {
		return ""
	}

	lo, hi := -1, -1
	best := -1
	for _, pa := range aPos {
		for _, pb := range bPos {
			d := pa - pb
			if d < 0 {
				d = -d
			}
			if best < 0 || d < best {
				best = d
				lo, hi = min(pa, pb), max(pa, pb)
			}
		}
	}

	start := max(0, lo-contextWindow)
	end := min(len(content), hi+contextWindow)
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}

	return strings.Join(strings.Fields(content[start:end]), " ")
}

func occurrences(name, content string) []int {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
	if err != nil {
		return nil
	}
	var pos []int
	for _, loc := range re.FindAllStringIndex(content, -1) {
		pos = append(pos, loc[0])
	}
	return pos
}

// truncateContext cuts s to at most 200 bytes without splitting a rune.
func truncateContext(s string) string {
	if len(s) <= maxContextChars {
		return s
	}
	cut := maxContextChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// paragraphs splits content on blank lines.
func paragraphs(content string) []string {
	return strings.Split(content, "\n\n")
}

// sharedParagraphs counts the paragraphs that mention both names.
func sharedParagraphs(a, b, content string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	n := 0
	for _, p := range paragraphs(content) {
		p = strings.ToLower(p)
		if strings.Contains(p, a) && strings.Contains(p, b) {
			n++
		}
	}
	return n
}
