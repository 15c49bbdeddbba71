package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
	"github.com/OFFIS-RIT/docgraph/pkg/store"
	"github.com/OFFIS-RIT/docgraph/pkg/store/memory"
)

const meetingNote = "Participants: Alice Johnson, Bob Lee\n\n" +
	"Agenda: Discuss Q3 Budget Review\n\n" +
	"Decisions: Approved the Q3 budget increase\n\n" +
	"Action Items: @Alice prepare the final report"

type fakeAnalyzer struct {
	persons []string
	dates   []string
}

func (a fakeAnalyzer) Persons(string) []string     { return a.persons }
func (a fakeAnalyzer) Dates(string) []string       { return a.dates }
func (a fakeAnalyzer) NounPhrases(string) []string { return nil }

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (e *fakeEmbedder) GenerateEmbedding(context.Context, []byte) ([]float32, error) {
	e.calls++
	return e.vec, e.err
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestBuilder(analyzer fakeAnalyzer, lookup Lookup, embedder Embedder) *GraphBuilder {
	return NewGraphBuilder(NewGraphBuilderParams{
		Lookup:   lookup,
		Embedder: embedder,
		Analyzer: analyzer,
		Now:      fixedNow,
	})
}

func nodeName(n common.Node) string {
	if named, ok := n.(common.Named); ok {
		return named.DisplayName()
	}
	return n.Key().Value
}

// edges returns "from -> to" for every relationship of type rel.
func edges(f *common.Fragment, rel common.RelType) []string {
	var out []string
	for _, r := range f.Relationships {
		if r.Type == rel {
			out = append(out, nodeName(f.Nodes[r.From])+" -> "+nodeName(f.Nodes[r.To]))
		}
	}
	return out
}

func findRel(f *common.Fragment, rel common.RelType, to string) (common.Relationship, bool) {
	for _, r := range f.Relationships {
		if r.Type == rel && nodeName(f.Nodes[r.To]) == to {
			return r, true
		}
	}
	return common.Relationship{}, false
}

func TestBuildMeetingScenario(t *testing.T) {
	b := newTestBuilder(fakeAnalyzer{}, nil, nil)
	title := "Budget Sync 2024-03-15"

	f, err := b.Build(context.Background(), common.Document{Title: title, Content: meetingNote})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := f.Nodes[0].(*common.DocumentNode)
	if !doc.Meeting || doc.MeetingID != common.MeetingID(title, "2024-03-15") || doc.Date != "2024-03-15" {
		t.Fatalf("unexpected document node %+v", doc)
	}

	attended := edges(f, common.RelAttendedBy)
	if len(attended) != 2 || attended[0] != title+" -> Alice Johnson" || attended[1] != title+" -> Bob Lee" {
		t.Fatalf("unexpected ATTENDED_BY edges %v", attended)
	}
	if r, _ := findRel(f, common.RelAttendedBy, "Alice Johnson"); r.Properties.OnDate != "2024-03-15" {
		t.Fatalf("expected on_date on attendance, got %+v", r.Properties)
	}

	discussed := edges(f, common.RelDiscusses)
	found := false
	for _, e := range discussed {
		if strings.Contains(e, "Budget Review") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a topic mentioning Budget Review, got %v", discussed)
	}

	decided, ok := findRel(f, common.RelDecided, "Approved the Q3 budget increase")
	if !ok || decided.Properties.When != "2024-03-15" {
		t.Fatalf("expected DECIDED edge with when, got %v", edges(f, common.RelDecided))
	}

	if got := edges(f, common.RelCreatedAction); len(got) != 1 {
		t.Fatalf("expected one CREATED_ACTION edge, got %v", got)
	}
	assigned := edges(f, common.RelAssignedTo)
	if len(assigned) != 1 || !strings.HasSuffix(assigned[0], "-> Alice Johnson") {
		t.Fatalf("expected action assigned to Alice Johnson, got %v", assigned)
	}

	persons := 0
	for _, n := range f.Nodes {
		if _, ok := n.(*common.PersonNode); ok {
			persons++
		}
	}
	if persons != 2 {
		t.Fatalf("expected 2 person nodes, got %d", persons)
	}
}

func TestBuildMeetingScenarioDefaultAnalyzer(t *testing.T) {
	b := NewGraphBuilder(NewGraphBuilderParams{Now: fixedNow})
	title := "Budget Sync 2024-03-15"

	f, err := b.Build(context.Background(), common.Document{Title: title, Content: meetingNote})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	attended := edges(f, common.RelAttendedBy)
	if len(attended) != 2 || attended[0] != title+" -> Alice Johnson" || attended[1] != title+" -> Bob Lee" {
		t.Fatalf("unexpected ATTENDED_BY edges %v", attended)
	}
	assigned := edges(f, common.RelAssignedTo)
	if len(assigned) != 1 || !strings.HasSuffix(assigned[0], "-> Alice Johnson") {
		t.Fatalf("expected action assigned to Alice Johnson, got %v", assigned)
	}

	for _, n := range f.Nodes {
		p, ok := n.(*common.PersonNode)
		if !ok {
			continue
		}
		switch p.Name {
		case "Bob Lee Agenda", "Alice", "Johnson", "Discuss Q3 Budget Review Decisions":
			t.Fatalf("unexpected person node %q", p.Name)
		}
		if strings.Contains(p.Name, "Q3") || strings.Contains(p.Name, "\n") {
			t.Fatalf("unexpected person node %q", p.Name)
		}
	}
}

func TestBuildAuthorResolutionAndRoles(t *testing.T) {
	b := newTestBuilder(fakeAnalyzer{persons: []string{"Alice", "Bob Lee"}}, nil, nil)

	f, err := b.Build(context.Background(), common.Document{
		Title:   "Team roles",
		Content: "Alice met Bob (Architect) to agree on responsibilities.",
		History: common.DocumentHistory{CreatedBy: common.DocumentUser{DisplayName: "Alice Johnson"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := edges(f, common.RelAuthoredBy); len(got) != 1 || got[0] != "Team roles -> Alice Johnson" {
		t.Fatalf("unexpected AUTHORED_BY edges %v", got)
	}
	if got := edges(f, common.RelMentions); len(got) != 1 || got[0] != "Team roles -> Bob Lee" {
		t.Fatalf("expected only Bob Lee to be mentioned, got %v", got)
	}
	if got := edges(f, common.RelHasRole); len(got) != 2 {
		t.Fatalf("expected HAS_ROLE for both persons, got %v", got)
	}

	for _, n := range f.Nodes {
		if p, ok := n.(*common.PersonNode); ok && p.Name == "Bob Lee" && p.Role != "Architect" {
			t.Fatalf("expected role on Bob Lee, got %q", p.Role)
		}
	}
	if f.Nodes[0].(*common.DocumentNode).Meeting {
		t.Fatalf("roles document must not be a meeting")
	}
}

func TestBuildEmbedding(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		embedder  *fakeEmbedder
		wantLen   int
		wantCalls int
	}{
		{name: "embedded", content: "A long enough body of text.", embedder: &fakeEmbedder{vec: []float32{1, 2, 3}}, wantLen: 3, wantCalls: 1},
		{name: "backend down", content: "A long enough body of text.", embedder: &fakeEmbedder{err: errors.New("connection refused")}, wantLen: 0, wantCalls: 1},
		{name: "short content", content: "too short", embedder: &fakeEmbedder{vec: []float32{1}}, wantLen: 0, wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuilder(fakeAnalyzer{}, nil, tt.embedder)
			f, err := b.Build(context.Background(), common.Document{Title: "Plain page", Content: tt.content})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			doc := f.Nodes[0].(*common.DocumentNode)
			if len(doc.Embedding) != tt.wantLen {
				t.Fatalf("expected embedding of length %d, got %v", tt.wantLen, doc.Embedding)
			}
			if tt.embedder.calls != tt.wantCalls {
				t.Fatalf("expected %d embedder calls, got %d", tt.wantCalls, tt.embedder.calls)
			}
		})
	}
}

func TestBuildFollowsUp(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	prevTitle := "Kickoff 2024-01-10"
	err := store.WithTx(ctx, s, func(tx store.GraphTx) error {
		_, err := tx.MergeNode(ctx, &common.DocumentNode{
			Title:     prevTitle,
			Meeting:   true,
			MeetingID: common.MeetingID(prevTitle, "2024-01-10"),
		})
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := newTestBuilder(fakeAnalyzer{}, s, nil)
	f, err := b.Build(ctx, common.Document{
		Title:   "Weekly Sync 2024-01-17",
		Content: "Meeting notes\nThis is a follow-up to Kickoff 2024-01-10\nAlso a follow-up to Unknown Meeting",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var follows []common.Relationship
	for _, r := range f.Relationships {
		if r.Type == common.RelFollowsUp {
			follows = append(follows, r)
		}
	}
	if len(follows) != 1 {
		t.Fatalf("expected one FOLLOWS_UP edge, got %d", len(follows))
	}
	prev, ok := f.Nodes[follows[0].To].(*common.StoredNode)
	if !ok || prev.KeyValue != prevTitle {
		t.Fatalf("expected persisted meeting as target, got %#v", f.Nodes[follows[0].To])
	}
}

func TestBuildStatusAndHierarchy(t *testing.T) {
	b := newTestBuilder(fakeAnalyzer{}, nil, nil)
	f, err := b.Build(context.Background(), common.Document{
		Title:   "Architecture",
		Content: "The Import Service stores files in File Service.\n\nImport Service status: blocked",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status := edges(f, common.RelHasStatus)
	if len(status) != 1 || status[0] != "Import Service -> blocked" {
		t.Fatalf("unexpected HAS_STATUS edges %v", status)
	}
	if r, _ := findRel(f, common.RelHasStatus, "blocked"); r.Properties.AsOf != "2024-06-01" {
		t.Fatalf("expected as_of to fall back to today, got %q", r.Properties.AsOf)
	}

	var hierarchical []string
	for _, r := range f.Relationships {
		if r.Type == common.RelPartOf && r.Properties.Hierarchical {
			hierarchical = append(hierarchical, nodeName(f.Nodes[r.From])+" -> "+nodeName(f.Nodes[r.To]))
		}
	}
	if len(hierarchical) != 1 || hierarchical[0] != "File Service -> Import Service" {
		t.Fatalf("unexpected hierarchy edges %v", hierarchical)
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := newTestBuilder(fakeAnalyzer{}, nil, nil)
	if _, err := b.Build(ctx, common.Document{Title: "x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
