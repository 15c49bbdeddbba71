package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/OFFIS-RIT/docgraph/pkg/logger"
	"github.com/araddon/dateparse"
	"github.com/jdkato/prose/v2"
)

// Analyzer performs the linguistic part of extraction.
type Analyzer interface {
	// Persons returns person names recognised in text, in first-seen order.
	Persons(text string) []string
	// Dates returns mentioned calendar dates normalised to yyyy-mm-dd.
	Dates(text string) []string
	// NounPhrases returns noun chunks in document order.
	NounPhrases(text string) []string
}

// ProseAnalyzer implements Analyzer with the prose tokenizer, tagger and
// named-entity model.
type ProseAnalyzer struct{}

func NewProseAnalyzer() *ProseAnalyzer {
	return &ProseAnalyzer{}
}

// Persons returns the PERSON entities of text. Lines are terminated before
// tagging so that a span never runs into the next line, and spans that do
// not look like a name are dropped.
func (a *ProseAnalyzer) Persons(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	doc, err := prose.NewDocument(terminateLines(text), prose.WithSegmentation(false))
	if err != nil {
		logger.Warn("[Extract] Failed to analyse text", "err", err)
		return nil
	}

	var persons []string
	for _, ent := range doc.Entities() {
		if ent.Label != "PERSON" {
			continue
		}
		name := strings.TrimSpace(ent.Text)
		if !plausibleName(name) {
			logger.Debug("[Extract] Ignoring person span", "span", name)
			continue
		}
		persons = append(persons, name)
	}
	return dedupe(persons)
}

const maxNameWords = 4

var (
	reNameWord = regexp.MustCompile(`^\p{Lu}[\p{L}'’.\-]*$`)

	// nameStopWords are section labels the tagger likes to read as names.
	nameStopWords = map[string]struct{}{
		"participants": {}, "attendees": {}, "present": {}, "agenda": {},
		"topics": {}, "discussion": {}, "discuss": {}, "decisions": {},
		"decision": {}, "action": {}, "actions": {}, "next": {}, "notes": {},
		"tasks": {}, "todo": {},
	}
)

// plausibleName accepts one to four capitalised words made of letters, none
// of them a section label.
func plausibleName(name string) bool {
	words := strings.Fields(name)
	if len(words) == 0 || len(words) > maxNameWords || len(name) < 2 {
		return false
	}
	for _, w := range words {
		if !reNameWord.MatchString(w) {
			return false
		}
		if _, stop := nameStopWords[strings.ToLower(strings.TrimRight(w, ".:"))]; stop {
			return false
		}
	}
	return true
}

// terminateLines ends every line that has no closing punctuation with " .",
// which the tagger treats as a boundary.
func terminateLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		if trimmed == "" {
			continue
		}
		switch trimmed[len(trimmed)-1] {
		case '.', '!', '?', ':', ';', ',':
			continue
		}
		lines[i] = trimmed + " ."
	}
	return strings.Join(lines, "\n")
}

func (a *ProseAnalyzer) NounPhrases(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	doc, err := prose.NewDocument(terminateLines(text), prose.WithSegmentation(false), prose.WithExtraction(false))
	if err != nil {
		logger.Warn("[Extract] Failed to tag text", "err", err)
		return nil
	}
	return chunkNounPhrases(doc.Tokens())
}

func (a *ProseAnalyzer) Dates(text string) []string {
	return ExtractDateMentions(text)
}

// chunkNounPhrases groups runs of determiners, possessives, adjectives,
// numbers and nouns. A chunk is cut after its last noun; chunks without a
// noun are dropped.
func chunkNounPhrases(tokens []prose.Token) []string {
	var phrases []string
	var run []prose.Token

	flush := func() {
		last := -1
		for i, t := range run {
			if isNounTag(t.Tag) {
				last = i
			}
		}
		if last >= 0 {
			words := make([]string, 0, last+1)
			for _, t := range run[:last+1] {
				words = append(words, t.Text)
			}
			phrases = append(phrases, strings.Join(words, " "))
		}
		run = run[:0]
	}

	for _, t := range tokens {
		if isChunkTag(t.Tag) {
			run = append(run, t)
			continue
		}
		flush()
	}
	flush()

	return phrases
}

func isNounTag(tag string) bool {
	return strings.HasPrefix(tag, "NN")
}

func isChunkTag(tag string) bool {
	switch tag {
	case "DT", "PRP$", "CD":
		return true
	}
	return strings.HasPrefix(tag, "JJ") || isNounTag(tag)
}

const monthNames = `(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`

var (
	dateMentionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`(?i)\b` + monthNames + `\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+` + monthNames + `\.?,?\s+\d{4}\b`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`),
	}
	reOrdinal = regexp.MustCompile(`(?i)(\d)(?:st|nd|rd|th)\b`)
)

// ExtractDateMentions finds explicit calendar dates in text and normalises
// them. Mentions that do not parse to a real date are ignored.
func ExtractDateMentions(text string) []string {
	var dates []string
	for _, re := range dateMentionPatterns {
		for _, mention := range re.FindAllString(text, -1) {
			clean := reOrdinal.ReplaceAllString(mention, "$1")
			clean = strings.ReplaceAll(clean, ".", "")
			t, err := dateparse.ParseIn(clean, time.UTC)
			if err != nil {
				logger.Debug("[Extract] Ignoring date mention", "mention", mention, "err", err)
				continue
			}
			dates = append(dates, t.Format("2006-01-02"))
		}
	}
	return dedupe(dates)
}
