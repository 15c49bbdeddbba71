package graph

import (
	"context"
	"errors"
	"strings"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
	"github.com/OFFIS-RIT/docgraph/pkg/extract"
	"github.com/OFFIS-RIT/docgraph/pkg/logger"
)

// addMeeting handles documents detected as meeting notes: attendance,
// topics, decisions, action items and links to earlier meetings.
func (s *build) addMeeting(ctx context.Context) error {
	s.doc.Meeting = true
	s.doc.MeetingID = common.MeetingID(s.title, s.date)
	s.doc.Recurring = extract.IsRecurring(s.content)

	s.addAttendance()

	for _, topic := range s.topics.ExtractTopics(s.content) {
		if len(topic) <= minTopicChars {
			continue
		}
		idx := s.frag.AddNode(&common.TopicNode{Name: topic})
		s.frag.Relate(s.docIdx, common.RelDiscusses, idx, common.RelationshipProperties{})
		s.nodes.Set(topicKey(topic), idx, s.frag.Nodes[idx])
	}

	decisions, actions := extract.ExtractDecisionsActions(s.content)
	for i, decision := range decisions {
		if len(decision) <= minItemChars {
			continue
		}
		idx := s.frag.AddNode(&common.DecisionNode{Text: decision})
		s.frag.Relate(s.docIdx, common.RelDecided, idx, common.RelationshipProperties{When: s.date})
		s.nodes.Set(decisionKey(i), idx, s.frag.Nodes[idx])
	}
	for i, action := range actions {
		if len(action.Text) <= minItemChars {
			continue
		}
		idx := s.frag.AddNode(&common.ActionItemNode{Text: action.Text, CreatedDate: s.date})
		s.frag.Relate(s.docIdx, common.RelCreatedAction, idx, common.RelationshipProperties{})
		s.nodes.Set(actionKey(i), idx, s.frag.Nodes[idx])

		if action.Assignee != "" {
			s.frag.Relate(idx, common.RelAssignedTo, s.assignee(action.Assignee), common.RelationshipProperties{})
		}
	}

	return s.addFollowUps(ctx)
}

// addAttendance links every participant once, carrying the meeting date.
func (s *build) addAttendance() {
	seen := make(map[int]struct{})
	for _, name := range s.participants {
		idx := s.resolvePerson(name)
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		s.frag.Relate(s.docIdx, common.RelAttendedBy, idx, common.RelationshipProperties{OnDate: s.date})
	}
}

// assignee returns the first known person whose name contains name, or a
// new person when none does.
func (s *build) assignee(name string) int {
	needle := strings.ToLower(name)
	for _, e := range s.nodes.Entries() {
		p, ok := e.Node.(*common.PersonNode)
		if !ok || p.Name == "" {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), needle) {
			return e.Index
		}
	}

	idx := s.frag.AddNode(&common.PersonNode{Name: name})
	s.nodes.Set(assigneeKey(name), idx, s.frag.Nodes[idx])
	return idx
}

// addFollowUps links the meeting to the persisted meetings it follows up.
// The referenced meeting id is recomputed from the referenced title and the
// date found in it.
func (s *build) addFollowUps(ctx context.Context) error {
	if s.lookup == nil {
		return nil
	}
	for _, ref := range extract.ExtractFollowUps(s.content) {
		if err := ctx.Err(); err != nil {
			return err
		}
		refDate, _ := s.dates.ExtractDate(ref)
		key := common.NodeKey{
			Kind:  common.KindMeeting,
			Field: common.KeyMeetingID,
			Value: common.MeetingID(ref, refDate),
		}

		prev, err := s.lookup.FindByKey(ctx, key)
		if errors.Is(err, common.ErrNotFound) {
			logger.Debug("[Graph] Follow-up target not found", "title", s.title, "ref", ref)
			continue
		}
		if err != nil {
			cErr := &common.CollaboratorError{Collaborator: "graph store", Err: err}
			logger.Warn("[Graph] Skipping follow-up link", "title", s.title, "ref", ref, "err", cErr)
			continue
		}
		if prev.StringProp(common.KeyMeetingID) == s.doc.MeetingID {
			continue
		}

		idx := s.frag.AddNode(prev)
		s.frag.Relate(s.docIdx, common.RelFollowsUp, idx, common.RelationshipProperties{})
	}
	return nil
}
