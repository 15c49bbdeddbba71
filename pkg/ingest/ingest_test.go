package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
	"github.com/OFFIS-RIT/docgraph/pkg/graph"
	"github.com/OFFIS-RIT/docgraph/pkg/loader"
	fsloader "github.com/OFFIS-RIT/docgraph/pkg/loader/io"
	"github.com/OFFIS-RIT/docgraph/pkg/store/memory"
)

const meetingNote = "Participants: Alice Johnson, Bob Lee\n\n" +
	"Agenda: Discuss Q3 Budget Review\n\n" +
	"Decisions: Approved the Q3 budget increase\n\n" +
	"Action Items: @Alice prepare the final report"

type noAnalyzer struct{}

func (noAnalyzer) Persons(string) []string     { return nil }
func (noAnalyzer) Dates(string) []string       { return nil }
func (noAnalyzer) NounPhrases(string) []string { return nil }

// fragmentBuilder returns a prepared fragment per document title.
type fragmentBuilder map[string]*common.Fragment

func (f fragmentBuilder) Build(ctx context.Context, doc common.Document) (*common.Fragment, error) {
	frag, ok := f[doc.Title]
	if !ok {
		return nil, errors.New("unknown document " + doc.Title)
	}
	return frag, nil
}

func newGraphBuilder(st *memory.Store) *graph.GraphBuilder {
	return graph.NewGraphBuilder(graph.NewGraphBuilderParams{
		Lookup:   st,
		Analyzer: noAnalyzer{},
		Now:      func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) },
	})
}

// writeDocs stores one JSON document per title and returns the files in name
// order.
func writeDocs(t *testing.T, docs ...common.Document) []loader.GraphFile {
	t.Helper()
	dir := t.TempDir()
	for i, doc := range docs {
		b, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		name := filepath.Join(dir, string(rune('a'+i))+".json")
		if err := os.WriteFile(name, b, 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	files, err := fsloader.NewIOGraphFileLoader(dir).ListFiles(context.Background())
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	return files
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("invalid JSON line %q: %v", sc.Text(), err)
		}
		out = append(out, rec)
	}
	return out
}

func nodesOfKind(st *memory.Store, kind common.NodeKind) []*common.StoredNode {
	var out []*common.StoredNode
	for _, n := range st.Nodes() {
		if n.NodeKind == kind {
			out = append(out, n)
		}
	}
	return out
}

func relsOfType(st *memory.Store, rel common.RelType) []common.StoredRelationship {
	var out []common.StoredRelationship
	for _, r := range st.Relationships() {
		if r.Type == rel {
			out = append(out, r)
		}
	}
	return out
}

func TestRunValidationRejection(t *testing.T) {
	dir := t.TempDir()
	nodesLog := filepath.Join(dir, "failed_nodes.log")
	relsLog := filepath.Join(dir, "failed_relationships.log")

	frag := &common.Fragment{}
	doc := frag.AddNode(&common.DocumentNode{Title: "Release plan", Date: "05-01-2024"})
	alice := frag.AddNode(&common.PersonNode{Name: "Alice Johnson"})
	bob := frag.AddNode(&common.PersonNode{Name: "Bob Lee"})
	frag.Relate(doc, common.RelAuthoredBy, alice, common.RelationshipProperties{})
	frag.Relate(alice, common.RelRelatesTo, bob, common.RelationshipProperties{Context: "Alice and Bob"})

	st := memory.New()
	failures := NewFailureLog("run-1", nodesLog, relsLog)
	l := NewLoader(NewLoaderParams{
		Store:    st,
		Builder:  fragmentBuilder{"Release plan": frag},
		Failures: failures,
	})

	stats, err := l.Run(context.Background(), writeDocs(t, common.Document{Title: "Release plan"}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := failures.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	want := Stats{FilesProcessed: 1, NodesCreated: 2, RelationshipsCreated: 1, FailedNodes: 1, FailedRelationships: 1}
	if stats != want {
		t.Fatalf("Run() stats = %+v, want %+v", stats, want)
	}
	if docs := nodesOfKind(st, common.KindDocument); len(docs) != 0 {
		t.Fatalf("expected invalid document to be excluded, got %+v", docs)
	}

	nodeLines := readLines(t, nodesLog)
	if len(nodeLines) != 1 {
		t.Fatalf("expected one failed node, got %v", nodeLines)
	}
	rec := nodeLines[0]
	if rec["run_id"] != "run-1" || rec["kind"] != "Document" || rec["key"] != "Release plan" {
		t.Fatalf("unexpected node failure %v", rec)
	}
	if msg, _ := rec["error"].(string); !strings.Contains(msg, "invalid date format") {
		t.Fatalf("expected date format error, got %q", msg)
	}

	relLines := readLines(t, relsLog)
	if len(relLines) != 1 || relLines[0]["type"] != "AUTHORED_BY" {
		t.Fatalf("expected the dangling AUTHORED_BY to be logged, got %v", relLines)
	}
}

func TestRunConstraintConflict(t *testing.T) {
	tests := []struct {
		name         string
		dedupe       bool
		wantAttended int
	}{
		{name: "append only", dedupe: false, wantAttended: 4},
		{name: "dedupe", dedupe: true, wantAttended: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.New(memory.WithRelationshipDedupe(tt.dedupe))
			l := NewLoader(NewLoaderParams{Store: st, Builder: newGraphBuilder(st)})

			// Different keys, same meeting id.
			files := writeDocs(t,
				common.Document{Title: "Budget Sync 2024-03-15", Content: meetingNote},
				common.Document{Title: "budget sync 2024-03-15", Content: meetingNote},
			)
			stats, err := l.Run(context.Background(), files)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if stats.FilesProcessed != 2 || stats.Errors != 0 || stats.FailedNodes != 0 || stats.FailedRelationships != 0 {
				t.Fatalf("unexpected stats %+v", stats)
			}

			docs := nodesOfKind(st, common.KindDocument)
			if len(docs) != 1 || docs[0].KeyValue != "Budget Sync 2024-03-15" {
				t.Fatalf("expected the first document only, got %+v", docs)
			}
			persons := nodesOfKind(st, common.KindPerson)
			if len(persons) != 2 {
				t.Fatalf("expected two persons, got %+v", persons)
			}

			attended := relsOfType(st, common.RelAttendedBy)
			if len(attended) != tt.wantAttended {
				t.Fatalf("expected %d ATTENDED_BY edges, got %d", tt.wantAttended, len(attended))
			}
			for _, r := range attended {
				if r.SourceID != docs[0].ID {
					t.Fatalf("expected edges to attach to the persisted document, got %+v", r)
				}
			}
		})
	}
}

func TestRunSharedPersonAcrossBatches(t *testing.T) {
	st := memory.New()
	l := NewLoader(NewLoaderParams{Store: st, Builder: newGraphBuilder(st), BatchSize: 1})

	files := writeDocs(t,
		common.Document{Title: "Kickoff 2024-01-10", Content: "Participants: Alice Johnson"},
		common.Document{Title: "Retro 2024-01-20", Content: "Participants: Alice Johnson"},
	)
	if _, err := l.Run(context.Background(), files); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	persons := nodesOfKind(st, common.KindPerson)
	if len(persons) != 1 {
		t.Fatalf("expected one persisted person, got %+v", persons)
	}
	attended := relsOfType(st, common.RelAttendedBy)
	if len(attended) != 2 || attended[0].SourceID == attended[1].SourceID {
		t.Fatalf("expected one ATTENDED_BY per document, got %+v", attended)
	}
	for _, r := range attended {
		if r.TargetID != persons[0].ID {
			t.Fatalf("expected both documents to link the same person, got %+v", r)
		}
	}
}

func TestRunIsIdempotentForNodes(t *testing.T) {
	st := memory.New()
	l := NewLoader(NewLoaderParams{Store: st, Builder: newGraphBuilder(st)})
	files := writeDocs(t, common.Document{Title: "Budget Sync 2024-03-15", Content: meetingNote})

	if _, err := l.Run(context.Background(), files); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	nodes, rels := len(st.Nodes()), len(st.Relationships())

	if _, err := l.Run(context.Background(), files); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := len(st.Nodes()); got != nodes {
		t.Fatalf("expected %d nodes after rerun, got %d", nodes, got)
	}
	if got := len(st.Relationships()); got != 2*rels {
		t.Fatalf("expected append-only relationships to double to %d, got %d", 2*rels, got)
	}
}

func TestRunParseError(t *testing.T) {
	st := memory.New()
	l := NewLoader(NewLoaderParams{Store: st, Builder: newGraphBuilder(st)})

	files := writeDocs(t, common.Document{Title: "Plain page", Content: "Some text about nothing."})
	if err := os.WriteFile(filepath.Join(filepath.Dir(files[0].FilePath), "broken.json"), []byte(`{title: 'x'`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	files, err := fsloader.NewIOGraphFileLoader(filepath.Dir(files[0].FilePath)).ListFiles(context.Background())
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}

	stats, err := l.Run(context.Background(), files)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.FilesProcessed != 1 || stats.Errors != 1 {
		t.Fatalf("expected one processed file and one error, got %+v", stats)
	}
	if docs := nodesOfKind(st, common.KindDocument); len(docs) != 1 {
		t.Fatalf("expected the valid document to be stored, got %+v", docs)
	}
}

func simpleFragment() *common.Fragment {
	frag := &common.Fragment{}
	doc := frag.AddNode(&common.DocumentNode{Title: "Release plan"})
	alice := frag.AddNode(&common.PersonNode{Name: "Alice Johnson"})
	bob := frag.AddNode(&common.PersonNode{Name: "Bob Lee"})
	frag.Relate(doc, common.RelAuthoredBy, alice, common.RelationshipProperties{})
	frag.Relate(doc, common.RelMentions, bob, common.RelationshipProperties{})
	return frag
}

func TestRunNodeTransactionFailure(t *testing.T) {
	st := memory.New(memory.WithFaults(memory.Faults{
		Commit: func() error { return errors.New("connection reset") },
	}))
	l := NewLoader(NewLoaderParams{Store: st, Builder: fragmentBuilder{"Release plan": simpleFragment()}})

	stats, err := l.Run(context.Background(), writeDocs(t, common.Document{Title: "Release plan"}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := Stats{FilesProcessed: 1, Errors: 1, FailedRelationships: 2}
	if stats != want {
		t.Fatalf("Run() stats = %+v, want %+v", stats, want)
	}
	if len(st.Nodes()) != 0 {
		t.Fatalf("expected nothing to be committed")
	}
}

func TestRunRelationshipFailures(t *testing.T) {
	tests := []struct {
		name      string
		faults    func() memory.Faults
		wantStats Stats
		wantRels  int
	}{
		{
			name: "single relationship fails",
			faults: func() memory.Faults {
				return memory.Faults{CreateRelationship: func(rel common.StoredRelationship) error {
					if rel.Type == common.RelMentions {
						return errors.New("boom")
					}
					return nil
				}}
			},
			wantStats: Stats{FilesProcessed: 1, NodesCreated: 3, RelationshipsCreated: 1, FailedRelationships: 1},
			wantRels:  1,
		},
		{
			name: "sub-batch commit fails",
			faults: func() memory.Faults {
				commits := 0
				return memory.Faults{Commit: func() error {
					commits++
					if commits == 2 {
						return errors.New("serialization failure")
					}
					return nil
				}}
			},
			wantStats: Stats{FilesProcessed: 1, NodesCreated: 3, Errors: 1, FailedRelationships: 2},
			wantRels:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.New(memory.WithFaults(tt.faults()))
			l := NewLoader(NewLoaderParams{Store: st, Builder: fragmentBuilder{"Release plan": simpleFragment()}})

			stats, err := l.Run(context.Background(), writeDocs(t, common.Document{Title: "Release plan"}))
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if stats != tt.wantStats {
				t.Fatalf("Run() stats = %+v, want %+v", stats, tt.wantStats)
			}
			if got := len(st.Relationships()); got != tt.wantRels {
				t.Fatalf("expected %d stored relationships, got %d", tt.wantRels, got)
			}
			if got := len(st.Nodes()); got != 3 {
				t.Fatalf("expected nodes to survive relationship failures, got %d", got)
			}
		})
	}
}

func TestRunUnresolvedConflict(t *testing.T) {
	conflict := &common.ConstraintConflictError{
		Key:        common.NodeKey{Kind: common.KindPerson, Field: common.KeyName, Value: "Bob Lee"},
		Lookup:     common.NodeKey{Kind: common.KindPerson, Field: "email", Value: "bob@example.com"},
		Constraint: "person_email_key",
		Err:        errors.New("duplicate key"),
	}
	st := memory.New(memory.WithFaults(memory.Faults{
		MergeNode: func(n common.Node) error {
			if n.Key().Value == "Bob Lee" {
				return conflict
			}
			return nil
		},
	}))
	l := NewLoader(NewLoaderParams{Store: st, Builder: fragmentBuilder{"Release plan": simpleFragment()}})

	stats, err := l.Run(context.Background(), writeDocs(t, common.Document{Title: "Release plan"}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := Stats{FilesProcessed: 1, NodesCreated: 2, RelationshipsCreated: 1, FailedNodes: 1, FailedRelationships: 1}
	if stats != want {
		t.Fatalf("Run() stats = %+v, want %+v", stats, want)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := memory.New()
	l := NewLoader(NewLoaderParams{Store: st, Builder: fragmentBuilder{"Release plan": simpleFragment()}})
	_, err := l.Run(ctx, writeDocs(t, common.Document{Title: "Release plan"}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(st.Nodes()) != 0 {
		t.Fatalf("expected no writes after cancellation")
	}
}

func TestRunUnresolvedConflictsLogInBatchOrder(t *testing.T) {
	names := []string{"Alice Johnson", "Bob Lee", "Carol King", "Dan Brown", "Eve Adams", "Frank Moore"}

	frag := &common.Fragment{}
	doc := frag.AddNode(&common.DocumentNode{Title: "Release plan"})
	for _, name := range names {
		p := frag.AddNode(&common.PersonNode{Name: name})
		frag.Relate(doc, common.RelMentions, p, common.RelationshipProperties{})
	}

	st := memory.New(memory.WithFaults(memory.Faults{
		MergeNode: func(n common.Node) error {
			if n.Kind() != common.KindPerson {
				return nil
			}
			return &common.ConstraintConflictError{
				Key:        n.Key(),
				Lookup:     common.NodeKey{Kind: common.KindPerson, Field: "email", Value: n.Key().Value + "@example.com"},
				Constraint: "person_email_key",
				Err:        errors.New("duplicate key"),
			}
		},
	}))

	nodesLog := filepath.Join(t.TempDir(), "failed_nodes.log")
	l := NewLoader(NewLoaderParams{
		Store:    st,
		Builder:  fragmentBuilder{"Release plan": frag},
		Failures: NewFailureLog("run-1", nodesLog, ""),
	})
	if _, err := l.Run(context.Background(), writeDocs(t, common.Document{Title: "Release plan"})); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lines := readLines(t, nodesLog)
	if len(lines) != len(names) {
		t.Fatalf("expected %d failed nodes, got %d", len(names), len(lines))
	}
	for i, rec := range lines {
		key, _ := rec["key"].(string)
		if !strings.Contains(key, names[i]) {
			t.Fatalf("failed node %d = %q, want %q (log must follow batch order)", i, key, names[i])
		}
	}
}
