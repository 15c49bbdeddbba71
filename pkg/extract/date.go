package extract

import "regexp"

// DateExtractor resolves the date a document refers to, usually from its
// title. It returns false when no date can be found.
type DateExtractor interface {
	ExtractDate(text string) (string, bool)
}

// PatternDateExtractor tries progressively coarser date patterns and pads
// missing month or day components with 01.
type PatternDateExtractor struct{}

var (
	reISODate       = regexp.MustCompile(`(20\d{2}-\d{2}-\d{2})`)
	reSeparatedDate = regexp.MustCompile(`(20\d{2})[-_](\d{2})[-_](\d{2})`)
	reYearMonth     = regexp.MustCompile(`(20\d{2})[-_](\d{2})`)
	reYear          = regexp.MustCompile(`\b(20\d{2})\b`)
)

func (PatternDateExtractor) ExtractDate(text string) (string, bool) {
	if m := reISODate.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := reSeparatedDate.FindStringSubmatch(text); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3], true
	}
	if m := reYearMonth.FindStringSubmatch(text); m != nil {
		return m[1] + "-" + m[2] + "-01", true
	}
	if m := reYear.FindStringSubmatch(text); m != nil {
		return m[1] + "-01-01", true
	}
	return "", false
}

// ExtractDate runs the default date patterns over text.
func ExtractDate(text string) (string, bool) {
	return PatternDateExtractor{}.ExtractDate(text)
}
