package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OFFIS-RIT/docgraph/pkg/ai"
	"github.com/OFFIS-RIT/docgraph/pkg/common"
	"github.com/OFFIS-RIT/docgraph/pkg/enrich"
	"github.com/OFFIS-RIT/docgraph/pkg/graph"
	"github.com/OFFIS-RIT/docgraph/pkg/leaselock"
	fsloader "github.com/OFFIS-RIT/docgraph/pkg/loader/io"
	"github.com/OFFIS-RIT/docgraph/pkg/store/memory"
)

type noAnalyzer struct{}

func (noAnalyzer) Persons(string) []string     { return nil }
func (noAnalyzer) Dates(string) []string       { return nil }
func (noAnalyzer) NounPhrases(string) []string { return nil }

type fakeEmbedder struct {
	calls int
}

func (e *fakeEmbedder) GenerateEmbedding(context.Context, []byte) ([]float32, error) {
	e.calls++
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *fakeEmbedder) ResetMetrics() { e.calls = 0 }

func (e *fakeEmbedder) GetMetrics() ai.ModelMetrics {
	return ai.ModelMetrics{Requests: e.calls}
}

type recordingNotifier struct {
	messages []any
	err      error
}

func (n *recordingNotifier) Publish(ctx context.Context, v any) error {
	n.messages = append(n.messages, v)
	return n.err
}

type recordingLocker struct {
	keys []string
	err  error
}

func (l *recordingLocker) WithLease(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) error {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

func writeDocs(t *testing.T, docs map[string]common.Document) string {
	t.Helper()
	dir := t.TempDir()
	for name, doc := range docs {
		b, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

func newTestPipeline(t *testing.T, st *memory.Store, dir string, cfg Config, params NewPipelineParams) *Pipeline {
	t.Helper()
	params.Store = st
	params.Files = fsloader.NewIOGraphFileLoader(dir)
	params.Builder = graph.NewGraphBuilder(graph.NewGraphBuilderParams{
		Lookup:   st,
		Analyzer: noAnalyzer{},
		Now:      func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) },
	})
	logs := t.TempDir()
	cfg.FailedNodesLog = filepath.Join(logs, "failed_nodes.log")
	cfg.FailedRelationshipsLog = filepath.Join(logs, "failed_relationships.log")
	params.Config = cfg
	return NewPipeline(params)
}

var corpus = map[string]common.Document{
	"a.json": {
		Title:   "Budget Sync 2024-03-15",
		Content: "Participants: Alice Johnson, Bob Lee\n\nDecisions: Approved the Q3 budget increase",
	},
	"b.json": {
		Title:   "Retro 2024-04-02",
		Content: "Participants: Alice Johnson\n\nThe Import Service depends on the File Service.",
	},
	"notes.txt": {Title: "ignored"},
}

func TestRun(t *testing.T) {
	st := memory.New()
	notifier := &recordingNotifier{}
	locker := &recordingLocker{}
	embedder := &fakeEmbedder{}

	p := newTestPipeline(t, st, writeDocs(t, corpus), Config{RunID: "run-1"}, NewPipelineParams{
		Embedder: embedder,
		Lease:    locker,
		Notifier: notifier,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(locker.keys) != 1 || locker.keys[0] != leaselock.DefaultKey {
		t.Fatalf("expected the run to hold the lease, got %v", locker.keys)
	}
	if summary.RunID != "run-1" || summary.Files != 2 || summary.Load.FilesProcessed != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Load.NodesCreated == 0 || summary.Load.RelationshipsCreated == 0 {
		t.Fatalf("expected nodes and relationships to be loaded, got %+v", summary.Load)
	}
	if len(summary.PassErrors) != 0 {
		t.Fatalf("unexpected pass errors %v", summary.PassErrors)
	}
	// Timeline node, two month groups.
	if summary.Timeline.NodesMerged != 3 {
		t.Fatalf("unexpected timeline result %+v", summary.Timeline)
	}
	if summary.Ontology.RelationshipsCreated == 0 {
		t.Fatalf("expected ontology relationships, got %+v", summary.Ontology)
	}
	if summary.Embedding == nil {
		t.Fatalf("expected embedding metrics in summary")
	}
	if len(summary.FailureLogs) != 0 {
		t.Fatalf("expected no failure logs, got %v", summary.FailureLogs)
	}

	names := map[string]bool{}
	for _, ph := range summary.Phases {
		names[ph.Name] = true
	}
	for _, want := range []string{"list", "load", "timeline", "ontology", "enhancement"} {
		if !names[want] {
			t.Fatalf("missing phase %q in %+v", want, summary.Phases)
		}
	}

	if len(notifier.messages) != 1 || notifier.messages[0] != summary {
		t.Fatalf("expected the summary to be published once, got %v", notifier.messages)
	}
}

func TestRunSkipsPasses(t *testing.T) {
	st := memory.New()
	notifier := &recordingNotifier{err: errors.New("broker down")}
	p := newTestPipeline(t, st, writeDocs(t, corpus), Config{
		RunID:           "run-2",
		SkipTimeline:    true,
		SkipOntology:    true,
		SkipEnhancement: true,
	}, NewPipelineParams{Notifier: notifier})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Timeline != (enrich.Result{}) || summary.Ontology != (enrich.Result{}) || summary.Enhancement != (enrich.Result{}) {
		t.Fatalf("expected skipped passes to report nothing, got %+v", summary)
	}
	for _, n := range st.Nodes() {
		if n.NodeKind == common.KindTimeline || n.NodeKind == common.KindDomainConcept {
			t.Fatalf("unexpected enrichment node %+v", n)
		}
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected a publish attempt even if it fails")
	}
}

func TestRunLeaseBusy(t *testing.T) {
	st := memory.New()
	locker := &recordingLocker{err: leaselock.ErrBusy}
	p := newTestPipeline(t, st, writeDocs(t, corpus), Config{RunID: "run-3"}, NewPipelineParams{Lease: locker})

	summary, err := p.Run(context.Background())
	if !errors.Is(err, leaselock.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if summary != nil || len(st.Nodes()) != 0 {
		t.Fatalf("expected nothing to run without the lease")
	}
}

func TestRunMissingInput(t *testing.T) {
	st := memory.New()
	p := newTestPipeline(t, st, filepath.Join(t.TempDir(), "missing"), Config{}, NewPipelineParams{})
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatalf("expected error for missing input directory")
	}
}
