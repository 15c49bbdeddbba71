package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
	"github.com/OFFIS-RIT/docgraph/pkg/extract"
	"github.com/OFFIS-RIT/docgraph/pkg/logger"
	"github.com/OFFIS-RIT/docgraph/pkg/relate"
	"github.com/OFFIS-RIT/docgraph/pkg/resolve"
)

const (
	keyAuthor          = "Author"
	actionKeyPrefix    = "ActionItem:"
	assigneeKeyPrefix  = "Person:"
	minEmbeddingChars  = 10
	minTopicChars      = 5
	minItemChars       = 10
	dateLayout         = "2006-01-02"
	meetingDocTypeName = "Meeting"
)

// build carries the working state of a single Build call.
type build struct {
	*GraphBuilder

	title   string
	content string
	date    string

	frag     *common.Fragment
	doc      *common.DocumentNode
	docIdx   int
	nodes    *relate.NodeMap
	resolver *resolve.Resolver
	roles    extract.Roles
	persons  map[*resolve.Entity]int

	meeting      bool
	participants []string
}

// Build extracts the entities and relationships of doc. Collaborator
// failures such as an unreachable embedding backend are logged and degrade
// the result; only a cancelled context fails the build.
func (b *GraphBuilder) Build(ctx context.Context, doc common.Document) (*common.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &build{
		GraphBuilder: b,
		title:        doc.Title,
		content:      doc.Content,
		frag:         &common.Fragment{Source: doc.Title},
		nodes:        relate.NewNodeMap(),
		resolver:     resolve.NewResolver(),
		roles:        extract.ExtractRoles(doc.Content),
		persons:      make(map[*resolve.Entity]int),
	}

	s.addDocument(ctx, doc)
	s.meeting = extract.IsMeetingNote(s.title, s.content) || s.doc.Type == meetingDocTypeName
	if s.meeting {
		s.participants = extract.ExtractParticipants(s.content)
	}
	s.addPersons(doc.Author())
	s.addDates()
	s.addCustomEntities()

	s.frag.Relationships = append(s.frag.Relationships, s.synth.PatternRelationships(s.content, s.nodes)...)
	s.frag.Relationships = append(s.frag.Relationships, s.synth.CoOccurrenceRelationships(s.content, s.nodes)...)

	s.addTeamRoles()
	if s.meeting {
		if err := s.addMeeting(ctx); err != nil {
			return nil, err
		}
	}
	s.applyRoles()
	s.addStatuses()
	s.addHierarchy()

	s.frag.Relationships = append(s.frag.Relationships, s.synth.PairwiseStrength(s.content, s.title, s.nodes)...)

	logger.Debug(
		"[Graph] Built fragment",
		"title", s.title,
		"nodes", len(s.frag.Nodes),
		"relationships", len(s.frag.Relationships),
		"meeting", s.doc.Meeting,
	)
	return s.frag, nil
}

func (s *build) addDocument(ctx context.Context, doc common.Document) {
	cls := s.classifier.Classify(s.title, s.content)
	date, _ := s.dates.ExtractDate(s.title)
	s.date = date

	s.doc = &common.DocumentNode{
		Title:          s.title,
		Content:        s.content,
		Created:        doc.History.CreatedDate,
		Updated:        doc.History.LastUpdated,
		Tags:           doc.Labels,
		Type:           cls.Type,
		TypeConfidence: cls.Confidence,
		Date:           date,
	}

	if s.embedder != nil && len(s.content) > minEmbeddingChars {
		embedding, err := s.embedder.GenerateEmbedding(ctx, []byte(s.content))
		if err != nil {
			cErr := &common.CollaboratorError{Collaborator: "embedding", Err: err}
			logger.Warn("[Graph] Continuing without embedding", "title", s.title, "err", cErr)
		} else {
			s.doc.Embedding = embedding
		}
	}

	s.docIdx = s.frag.AddNode(s.doc)
	s.nodes.Set(relate.KeyDocument, s.docIdx, s.doc)
}

// addPersons seeds the resolver with the author and the meeting
// participants, then resolves every person the analyser recognises. The
// listed names come first so they become the canonical ones. Only new
// canonical persons from the analyser get a MENTIONS edge; further mentions
// become aliases of the canonical node.
func (s *build) addPersons(author string) {
	if author != "" {
		e := s.resolver.Seed(author)
		idx := s.frag.AddNode(&common.PersonNode{Name: author})
		s.frag.Relate(s.docIdx, common.RelAuthoredBy, idx, common.RelationshipProperties{})
		s.nodes.Set(keyAuthor, idx, s.frag.Nodes[idx])
		s.persons[e] = idx
	}
	for _, name := range s.participants {
		s.resolvePerson(name)
	}

	for _, mention := range s.analyzer.Persons(s.content) {
		e, created := s.resolver.Resolve(mention, s.roles.For(mention))
		if !created {
			continue
		}
		idx := s.frag.AddNode(&common.PersonNode{Name: mention})
		s.frag.Relate(s.docIdx, common.RelMentions, idx, common.RelationshipProperties{})
		s.nodes.Set(mention, idx, s.frag.Nodes[idx])
		s.persons[e] = idx
	}

	s.mapAliases()
}

// mapAliases points every alias of a canonical person at its node.
func (s *build) mapAliases() {
	for _, e := range s.resolver.Entities() {
		idx, ok := s.persons[e]
		if !ok {
			continue
		}
		for _, alias := range e.Aliases() {
			if !s.nodes.Has(alias) {
				s.nodes.Set(alias, idx, s.frag.Nodes[idx])
			}
		}
	}
}

// resolvePerson returns the arena index of the canonical node for name,
// creating the node when the resolver sees a new person.
func (s *build) resolvePerson(name string) int {
	e, created := s.resolver.Resolve(name, s.roles.For(name))
	if !created {
		if idx, ok := s.persons[e]; ok {
			if !s.nodes.Has(name) {
				s.nodes.Set(name, idx, s.frag.Nodes[idx])
			}
			return idx
		}
	}
	idx := s.frag.AddNode(&common.PersonNode{Name: name})
	s.nodes.Set(name, idx, s.frag.Nodes[idx])
	s.persons[e] = idx
	return idx
}

// applyRoles copies the role found for each canonical person onto its node.
func (s *build) applyRoles() {
	for e, idx := range s.persons {
		p, ok := s.frag.Nodes[idx].(*common.PersonNode)
		if !ok || p.Role != "" {
			continue
		}
		p.Role = e.Role
	}
}

func (s *build) addDates() {
	for _, date := range s.analyzer.Dates(s.content) {
		idx := s.frag.AddNode(&common.DateNode{Value: date})
		s.frag.Relate(s.docIdx, common.RelMentions, idx, common.RelationshipProperties{})
		s.nodes.Set(date, idx, s.frag.Nodes[idx])
	}
}

func (s *build) addCustomEntities() {
	for _, ce := range s.vocabulary.ExtractCustomEntities(s.title, s.content) {
		idx := s.frag.AddNode(&common.EntityNode{EntityKind: ce.Kind, Name: ce.Name})
		s.frag.Relate(s.docIdx, common.RelDescribes, idx, common.RelationshipProperties{})
		s.nodes.Set(ce.Name, idx, s.frag.Nodes[idx])
	}
}

// addTeamRoles links every person to team and role overview documents.
func (s *build) addTeamRoles() {
	title := strings.ToLower(s.title)
	if !strings.Contains(title, "team") && !strings.Contains(title, "roles") {
		return
	}
	seen := make(map[int]struct{})
	for _, e := range s.nodes.Entries() {
		if _, ok := e.Node.(*common.PersonNode); !ok {
			continue
		}
		if _, ok := seen[e.Index]; ok {
			continue
		}
		seen[e.Index] = struct{}{}
		s.frag.Relate(e.Index, common.RelHasRole, s.docIdx, common.RelationshipProperties{})
	}
}

// addStatuses attaches each status update to the first node whose map key
// contains the status entity.
func (s *build) addStatuses() {
	asOf := s.date
	if asOf == "" {
		asOf = s.now().Format(dateLayout)
	}
	for _, su := range extract.ExtractStatusUpdates(s.content) {
		entity := strings.ToLower(su.Entity)
		for _, e := range s.nodes.Entries() {
			if !strings.Contains(strings.ToLower(e.Key), entity) {
				continue
			}
			idx := s.frag.AddNode(&common.StatusNode{Value: su.Status})
			s.frag.Relate(e.Index, common.RelHasStatus, idx, common.RelationshipProperties{AsOf: asOf})
			break
		}
	}
}

// addHierarchy links modules of the document along the vocabulary
// hierarchy.
func (s *build) addHierarchy() {
	for _, group := range s.vocabulary.Hierarchy {
		parent, ok := s.findNamed(group.Parent)
		if !ok {
			continue
		}
		for _, child := range group.Children {
			c, ok := s.findNamed(child)
			if !ok || c.Index == parent.Index {
				continue
			}
			s.frag.Relate(c.Index, common.RelPartOf, parent.Index, common.RelationshipProperties{Hierarchical: true})
		}
	}
}

func (s *build) findNamed(name string) (relate.Entry, bool) {
	for _, e := range s.nodes.Entries() {
		if e.Named && strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return relate.Entry{}, false
}

func topicKey(topic string) string {
	return relate.TopicKeyPrefix + topic
}

func decisionKey(i int) string {
	return fmt.Sprintf("%s%d", relate.DecisionKeyPrefix, i)
}

func actionKey(i int) string {
	return fmt.Sprintf("%s%d", actionKeyPrefix, i)
}

func assigneeKey(name string) string {
	return assigneeKeyPrefix + name
}
