package relate

import (
	"regexp"
	"strings"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
)

type verbPattern struct {
	re  *regexp.Regexp
	rel common.RelType
}

func newVerbPattern(verb string, rel common.RelType) verbPattern {
	return verbPattern{
		re:  regexp.MustCompile(`(?i)(\w+(?:\s+\w+){0,3})\s+` + verb + `\s+(\w+(?:\s+\w+){0,3})`),
		rel: rel,
	}
}

var verbPatterns = []verbPattern{
	newVerbPattern(`implements`, common.RelImplements),
	newVerbPattern(`depends\s+on`, common.RelDependsOn),
	newVerbPattern(`part\s+of`, common.RelPartOf),
	newVerbPattern(`owns`, common.RelOwns),
	newVerbPattern(`configures`, common.RelConfigures),
	newVerbPattern(`mentions`, common.RelMentions),
	newVerbPattern(`attended\s+by`, common.RelAttendedBy),
	newVerbPattern(`authored\s+by`, common.RelAuthoredBy),
	newVerbPattern(`uses`, common.RelUses),
	newVerbPattern(`provides`, common.RelProvides),
	newVerbPattern(`manages`, common.RelManages),
	newVerbPattern(`supports`, common.RelSupports),
	newVerbPattern(`replaces`, common.RelReplaces),
	newVerbPattern(`extends`, common.RelExtends),
}

// Synthesizer discovers relationships between the nodes of a document.
type Synthesizer struct {
	Semantic SemanticClassifier
}

func NewSynthesizer(semantic SemanticClassifier) *Synthesizer {
	if semantic == nil {
		semantic = NewKeywordSemanticClassifier()
	}
	return &Synthesizer{Semantic: semantic}
}

// matchPhrase returns the last named entry whose name contains phrase or is
// contained in it. Phrases of 3 characters or less never match.
func matchPhrase(phrase string, nodes *NodeMap) (Entry, bool) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	if len(p) <= 3 {
		return Entry{}, false
	}
	var found Entry
	ok := false
	for _, e := range nodes.Entries() {
		if !e.Named {
			continue
		}
		name := strings.ToLower(e.Name)
		if strings.Contains(name, p) || strings.Contains(p, name) {
			found, ok = e, true
		}
	}
	return found, ok
}

// PatternRelationships finds "<A> <verb> <B>" statements whose phrases
// resolve to two distinct named nodes.
func (s *Synthesizer) PatternRelationships(content string, nodes *NodeMap) []common.Relationship {
	var rels []common.Relationship
	for _, p := range verbPatterns {
		for _, m := range p.re.FindAllStringSubmatch(content, -1) {
			a, b := m[1], m[2]
			src, okA := matchPhrase(a, nodes)
			dst, okB := matchPhrase(b, nodes)
			if !okA || !okB || src.Index == dst.Index {
				continue
			}

			ctx := ContextWindow(a, b, content)
			props := common.RelationshipProperties{
				SourceText:   strings.TrimSpace(a),
				TargetText:   strings.TrimSpace(b),
				SemanticType: s.Semantic.Classify(p.rel, ctx),
				Context:      truncateContext(ctx),
			}
			rels = append(rels, common.Relationship{Type: p.rel, From: src.Index, To: dst.Index, Properties: props})
		}
	}
	return rels
}

// CoOccurrenceRelationships links every ordered pair of distinct nodes whose
// names both appear in content and share at least one paragraph.
func (s *Synthesizer) CoOccurrenceRelationships(content string, nodes *NodeMap) []common.Relationship {
	lower := strings.ToLower(content)
	entries := nodes.Entries()

	var rels []common.Relationship
	for _, a := range entries {
		for _, b := range entries {
			if a.Key == b.Key || a.Index == b.Index {
				continue
			}
			if len(a.Name) < 3 || len(b.Name) < 3 {
				continue
			}
			if !strings.Contains(lower, strings.ToLower(a.Name)) || !strings.Contains(lower, strings.ToLower(b.Name)) {
				continue
			}

			ctx := ContextWindow(a.Name, b.Name, content)
			if ctx == "" {
				continue
			}
			n := sharedParagraphs(a.Name, b.Name, content)
			if n == 0 {
				continue
			}

			rels = append(rels, common.Relationship{
				Type: common.RelRelatesTo,
				From: a.Index,
				To:   b.Index,
				Properties: common.RelationshipProperties{
					Context:           truncateContext(ctx),
					CoOccurrenceCount: n,
					Confidence:        common.Float(CoOccurrenceConfidence(n)),
					SemanticType:      s.Semantic.Classify(common.RelRelatesTo, ctx),
				},
			})
		}
	}
	return rels
}

// Keys excluded from the pairwise strength pass.
const (
	KeyDocument       = "Document"
	KeyDocumentDate   = "DocumentDate"
	TopicKeyPrefix    = "Topic:"
	DecisionKeyPrefix = "Decision:"
)

// PairwiseStrength scores every unordered pair of entity keys by the number
// of paragraphs mentioning both. Edges are only created for a strength above
// 0.2 and carry the document title as source.
func (s *Synthesizer) PairwiseStrength(content, source string, nodes *NodeMap) []common.Relationship {
	lower := strings.ToLower(content)

	var keys []Entry
	for _, e := range nodes.Entries() {
		if e.Key == KeyDocument || e.Key == KeyDocumentDate ||
			strings.HasPrefix(e.Key, TopicKeyPrefix) || strings.HasPrefix(e.Key, DecisionKeyPrefix) {
			continue
		}
		keys = append(keys, e)
	}

	var rels []common.Relationship
	for i, a := range keys {
		for _, b := range keys[i+1:] {
			if a.Index == b.Index || len(a.Name) <= 3 || len(b.Name) <= 3 {
				continue
			}
			if !strings.Contains(lower, strings.ToLower(a.Name)) || !strings.Contains(lower, strings.ToLower(b.Name)) {
				continue
			}
			strength := round2(min(1.0, float64(sharedParagraphs(a.Name, b.Name, content))*0.2))
			if strength <= 0.2 {
				continue
			}
			rels = append(rels, common.Relationship{
				Type: common.RelRelatesTo,
				From: a.Index,
				To:   b.Index,
				Properties: common.RelationshipProperties{
					Strength: common.Float(strength),
					Source:   source,
				},
			})
		}
	}
	return rels
}
