// Package pipeline wires one run: list the input files, load them into the
// graph store, run the enrichment passes and report the outcome.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/docgraph/internal/timing"
	"github.com/OFFIS-RIT/docgraph/pkg/ai"
	"github.com/OFFIS-RIT/docgraph/pkg/enrich"
	"github.com/OFFIS-RIT/docgraph/pkg/extract"
	"github.com/OFFIS-RIT/docgraph/pkg/ingest"
	"github.com/OFFIS-RIT/docgraph/pkg/leaselock"
	"github.com/OFFIS-RIT/docgraph/pkg/loader"
	"github.com/OFFIS-RIT/docgraph/pkg/logger"
	"github.com/OFFIS-RIT/docgraph/pkg/relate"
	"github.com/OFFIS-RIT/docgraph/pkg/store"
)

// Locker runs fn while holding a lease. *leaselock.Client implements it.
type Locker interface {
	WithLease(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

// Notifier receives the summary of a finished run.
type Notifier interface {
	Publish(ctx context.Context, v any) error
}

// Uploader copies a local failure log somewhere durable and returns its
// location.
type Uploader interface {
	Upload(ctx context.Context, file string) (string, error)
}

// Config holds the per-run switches.
type Config struct {
	RunID     string
	Project   string
	BatchSize int
	Lenient   bool

	SkipTimeline    bool
	SkipOntology    bool
	SkipEnhancement bool

	FailedNodesLog         string
	FailedRelationshipsLog string

	Vocabulary *extract.Vocabulary
}

// Summary is the outcome of a run. It is logged and published.
type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Cancelled  bool      `json:"cancelled,omitempty"`

	Files       int           `json:"files"`
	Load        ingest.Stats  `json:"load"`
	Timeline    enrich.Result `json:"timeline"`
	Ontology    enrich.Result `json:"ontology"`
	Enhancement enrich.Result `json:"enhancement"`

	// PassErrors lists the enrichment passes that failed.
	PassErrors  []string         `json:"pass_errors,omitempty"`
	Embedding   *ai.ModelMetrics `json:"embedding,omitempty"`
	FailureLogs []string         `json:"failure_logs,omitempty"`
	Phases      []timing.Phase   `json:"phases"`
}

type Pipeline struct {
	store    store.GraphStore
	files    loader.GraphFileLoader
	builder  ingest.FragmentBuilder
	embedder ai.EmbeddingClient
	semantic relate.SemanticClassifier
	lease    Locker
	notifier Notifier
	uploader Uploader
	cfg      Config
	now      func() time.Time
}

// NewPipelineParams defines the collaborators of a run. Store, Files and
// Builder are required; every other collaborator is optional.
type NewPipelineParams struct {
	Store    store.GraphStore
	Files    loader.GraphFileLoader
	Builder  ingest.FragmentBuilder
	Embedder ai.EmbeddingClient
	Semantic relate.SemanticClassifier
	Lease    Locker
	Notifier Notifier
	Uploader Uploader
	Config   Config
}

func NewPipeline(params NewPipelineParams) *Pipeline {
	cfg := params.Config
	if cfg.Project == "" {
		cfg.Project = enrich.DefaultProject
	}
	if cfg.Vocabulary == nil {
		v := extract.DefaultVocabulary()
		cfg.Vocabulary = &v
	}
	return &Pipeline{
		store:    params.Store,
		files:    params.Files,
		builder:  params.Builder,
		embedder: params.Embedder,
		semantic: params.Semantic,
		lease:    params.Lease,
		notifier: params.Notifier,
		uploader: params.Uploader,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run executes the pipeline, under the lease when one is configured. Only
// setup failures, a busy or lost lease and cancellation return an error;
// the summary is returned whenever the run got as far as loading.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	if p.lease == nil {
		return p.run(ctx)
	}

	var summary *Summary
	err := p.lease.WithLease(ctx, leaselock.DefaultKey, leaselock.Options{Holder: p.cfg.RunID + ":"}, func(ctx context.Context) error {
		var err error
		summary, err = p.run(ctx)
		return err
	})
	return summary, err
}

func (p *Pipeline) run(ctx context.Context) (*Summary, error) {
	report := timing.NewReport()
	summary := &Summary{RunID: p.cfg.RunID, StartedAt: p.now().UTC()}
	if p.embedder != nil {
		p.embedder.ResetMetrics()
	}

	done := report.Track("list")
	files, err := p.files.ListFiles(ctx)
	done()
	if err != nil {
		return nil, fmt.Errorf("failed to list input files: %w", err)
	}
	summary.Files = len(files)
	logger.Info("[Pipeline] Found input files", "run_id", p.cfg.RunID, "count", len(files))

	failures := ingest.NewFailureLog(p.cfg.RunID, p.cfg.FailedNodesLog, p.cfg.FailedRelationshipsLog)
	l := ingest.NewLoader(ingest.NewLoaderParams{
		Store:     p.store,
		Builder:   p.builder,
		Failures:  failures,
		BatchSize: p.cfg.BatchSize,
		Lenient:   p.cfg.Lenient,
	})

	done = report.Track("load")
	summary.Load, err = l.Run(ctx, files)
	done()
	if cErr := failures.Close(); cErr != nil {
		logger.Error("[Pipeline] Failed to close failure logs", "err", cErr)
	}
	if err != nil {
		summary.Cancelled = true
		p.finish(context.WithoutCancel(ctx), summary, report, failures)
		return summary, err
	}
	logger.Info("[Pipeline] Processed files",
		"files", summary.Load.FilesProcessed,
		"nodes", summary.Load.NodesCreated,
		"relationships", summary.Load.RelationshipsCreated,
		"errors", summary.Load.Errors,
	)

	passes := []struct {
		name string
		skip bool
		out  *enrich.Result
		run  func(ctx context.Context) (enrich.Result, error)
	}{
		{"timeline", p.cfg.SkipTimeline, &summary.Timeline, func(ctx context.Context) (enrich.Result, error) {
			return enrich.Timeline(ctx, p.store, p.cfg.Project)
		}},
		{"ontology", p.cfg.SkipOntology, &summary.Ontology, func(ctx context.Context) (enrich.Result, error) {
			return enrich.Ontology(ctx, p.store, p.cfg.Project, enrich.DefaultOntology(*p.cfg.Vocabulary))
		}},
		{"enhancement", p.cfg.SkipEnhancement, &summary.Enhancement, func(ctx context.Context) (enrich.Result, error) {
			return enrich.Enhance(ctx, p.store, p.semantic, store.EnhancementLimit)
		}},
	}
	for _, pass := range passes {
		if pass.skip {
			logger.Info("[Pipeline] Skipping pass", "pass", pass.name)
			continue
		}
		done := report.Track(pass.name)
		res, err := pass.run(ctx)
		done()
		if err != nil {
			if ctx.Err() != nil {
				summary.Cancelled = true
				p.finish(context.WithoutCancel(ctx), summary, report, failures)
				return summary, ctx.Err()
			}
			logger.Error("[Pipeline] Pass failed", "pass", pass.name, "err", err)
			summary.PassErrors = append(summary.PassErrors, pass.name)
			continue
		}
		*pass.out = res
	}

	p.finish(ctx, summary, report, failures)
	return summary, nil
}

// finish collects metrics and failure logs, then publishes the summary.
// Nothing in here fails the run.
func (p *Pipeline) finish(ctx context.Context, summary *Summary, report *timing.Report, failures *ingest.FailureLog) {
	if p.embedder != nil {
		m := p.embedder.GetMetrics()
		summary.Embedding = &m
		logger.Info("[AI] Embedding metrics",
			"requests", m.Requests,
			"input_tokens", m.InputTokens,
			"duration_ms", m.DurationMs,
			"tokens_per_second", m.TokenPerSecond,
		)
	}

	for _, path := range failures.Paths() {
		location := path
		if p.uploader != nil {
			uploaded, err := p.uploader.Upload(ctx, path)
			if err != nil {
				logger.Warn("[Pipeline] Failed to upload failure log", "file", path, "err", err)
			} else {
				location = uploaded
			}
		}
		summary.FailureLogs = append(summary.FailureLogs, location)
	}
	if n, r := summary.Load.FailedNodes, summary.Load.FailedRelationships; n > 0 || r > 0 {
		logger.Warn("[Pipeline] Failed items logged", "failed_nodes", n, "failed_relationships", r, "logs", summary.FailureLogs)
	}

	summary.FinishedAt = p.now().UTC()
	summary.Phases = report.Phases()
	report.Log()

	if p.notifier != nil {
		if err := p.notifier.Publish(ctx, summary); err != nil {
			logger.Warn("[Pipeline] Failed to publish run summary", "err", err)
		}
	}
}
