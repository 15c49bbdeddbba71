package extract

import (
	"regexp"
	"strings"
)

// DocumentTypeDefault is reported when no keyword of the taxonomy matched.
const DocumentTypeDefault = "Document"

// DocType is one entry of the classification taxonomy.
type DocType struct {
	Name     string
	Keywords []string
}

// Classification is the result of classifying a document. Confidence is the
// raw keyword score of the winning type.
type Classification struct {
	Type       string
	Confidence float64
}

// Classifier assigns a document type to a document.
type Classifier interface {
	Classify(title, content string) Classification
}

// KeywordClassifier scores each type of Taxonomy by keyword hits. A hit in
// the title counts 3, a hit in the first 3000 characters of content counts 1.
// Ties go to the type listed first.
type KeywordClassifier struct {
	Taxonomy []DocType
}

const classifySampleChars = 3000

// DefaultTaxonomy returns the built-in document types in priority order.
func DefaultTaxonomy() []DocType {
	return []DocType{
		{"Meeting", []string{"meeting", "notes", "minutes", "discussion", "sync", "workshop", "kick-off", "session", "brainstorming"}},
		{"Design", []string{"design", "architecture", "blueprint", "structure", "framework", "pattern"}},
		{"Planning", []string{"roadmap", "plan", "strategy", "timeline", "milestone", "schedule", "project plan"}},
		{"Review", []string{"review", "retrospective", "postmortem", "analysis", "assessment", "evaluation"}},
		{"Requirements", []string{"requirements", "specifications", "user stories", "backlog", "feature", "epic"}},
		{"Technical", []string{"technical", "implementation", "code", "solution", "development", "algorithm"}},
		{"Process", []string{"process", "workflow", "procedure", "guide", "standard", "protocol"}},
		{"Brainstorming", []string{"brainstorming", "ideation", "ideas", "creative", "concept"}},
		{"Documentation", []string{"documentation", "manual", "guide", "handbook", "reference"}},
	}
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{Taxonomy: DefaultTaxonomy()}
}

func (c *KeywordClassifier) Classify(title, content string) Classification {
	titleLower := strings.ToLower(title)
	sample := content
	if len(sample) > classifySampleChars {
		sample = sample[:classifySampleChars]
	}
	sample = strings.ToLower(sample)

	best := Classification{Type: DocumentTypeDefault}
	for _, t := range c.Taxonomy {
		score := 0
		for _, kw := range t.Keywords {
			if strings.Contains(titleLower, kw) {
				score += 3
			}
			if sample != "" && strings.Contains(sample, kw) {
				score++
			}
		}
		if float64(score) > best.Confidence {
			best = Classification{Type: t.Name, Confidence: float64(score)}
		}
	}
	return best
}

var (
	meetingKeywords = []string{
		"meeting", "minutes", "kick-off", "workshop", "sync", "session", "standup",
		"review", "retrospective", "notes", "call", "discussion",
	}
	reMeetingSections = regexp.MustCompile(`participants|attendees|agenda|decisions|action items|next steps`)
)

const meetingSampleChars = 500

// IsMeetingNote reports whether a document looks like meeting notes: a
// meeting keyword in the title or the first 500 characters of content, or a
// typical meeting section anywhere in the content.
func IsMeetingNote(title, content string) bool {
	titleLower := strings.ToLower(title)
	contentLower := strings.ToLower(content)
	head := contentLower
	if len(head) > meetingSampleChars {
		head = head[:meetingSampleChars]
	}

	for _, kw := range meetingKeywords {
		if strings.Contains(titleLower, kw) || strings.Contains(head, kw) {
			return true
		}
	}
	return reMeetingSections.MatchString(contentLower)
}
