package relate

import (
	"strings"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
)

// SemanticClassifier derives a finer subtype for a relationship from the text
// around it. It returns "" when no subtype applies.
type SemanticClassifier interface {
	Classify(rel common.RelType, context string) string
}

// Subtype is a semantic subtype and the keywords that indicate it.
type Subtype struct {
	Name     string
	Keywords []string
}

// KeywordSemanticClassifier scores each subtype of the relationship type as
// min(0.9, 0.5 + 0.1*hits). A subtype replaces the current best only when it
// scores strictly higher; the baseline is 0.5.
type KeywordSemanticClassifier struct {
	Indicators map[common.RelType][]Subtype
}

func NewKeywordSemanticClassifier() *KeywordSemanticClassifier {
	return &KeywordSemanticClassifier{Indicators: DefaultIndicators()}
}

// DefaultIndicators returns the built-in subtype table.
func DefaultIndicators() map[common.RelType][]Subtype {
	return map[common.RelType][]Subtype{
		common.RelRelatesTo: {
			{"collaborates_with", []string{"collaborate", "work together", "partnership", "joint", "cooperate"}},
			{"depends_on", []string{"depends", "requires", "needs", "reliant on", "prerequisite", "dependency"}},
			{"impacts", []string{"affects", "impacts", "influences", "changes", "alters", "modifies"}},
			{"implements", []string{"implements", "executes", "carries out", "fulfills", "realizes"}},
			{"reports_to", []string{"reports to", "supervised by", "managed by", "responsible to"}},
			{"communicates_with", []string{"communicates", "talks to", "informs", "notifies", "updates"}},
			{"creates", []string{"creates", "produces", "generates", "makes", "builds"}},
		},
		common.RelPartOf: {
			{"component_of", []string{"component", "module", "part", "element"}},
			{"subtype_of", []string{"type", "category", "class", "kind"}},
			{"member_of", []string{"member", "belongs", "participant", "in group"}},
		},
		common.RelMentions: {
			{"positively_mentions", []string{"good", "great", "excellent", "positive", "success", "well"}},
			{"negatively_mentions", []string{"bad", "poor", "issue", "problem", "concern", "fail"}},
			{"neutrally_mentions", []string{"mentioned", "referenced", "noted", "stated"}},
		},
	}
}

func (c *KeywordSemanticClassifier) Classify(rel common.RelType, context string) string {
	subtypes, ok := c.Indicators[rel]
	if !ok || context == "" {
		return ""
	}
	lower := strings.ToLower(context)

	best := 0.5
	subtype := ""
	for _, s := range subtypes {
		hits := 0
		for _, kw := range s.Keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		if score := min(0.9, 0.5+float64(hits)*0.1); score > best {
			best = score
			subtype = s.Name
		}
	}
	return subtype
}
