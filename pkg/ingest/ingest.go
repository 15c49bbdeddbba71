// Package ingest persists per-document graph fragments in batches. Nodes of a
// batch are merged in a single transaction, relationships in bounded
// sub-batches, and everything that cannot be stored is written to the
// failure logs instead of aborting the run.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/OFFIS-RIT/docgraph/internal/util"
	"github.com/OFFIS-RIT/docgraph/pkg/common"
	"github.com/OFFIS-RIT/docgraph/pkg/loader"
	"github.com/OFFIS-RIT/docgraph/pkg/logger"
	"github.com/OFFIS-RIT/docgraph/pkg/store"
)

const (
	DefaultBatchSize      = 5
	RelationshipBatchSize = 50
)

var (
	errFailedEndpoint     = errors.New("relationship involves failed node")
	errUnresolvedEndpoint = errors.New("relationship endpoint has no persisted replacement")
)

// FragmentBuilder turns one input document into a graph fragment.
type FragmentBuilder interface {
	Build(ctx context.Context, doc common.Document) (*common.Fragment, error)
}

// Stats aggregates the outcome of a run.
type Stats struct {
	FilesProcessed       int `json:"files_processed"`
	NodesCreated         int `json:"nodes_created"`
	RelationshipsCreated int `json:"relationships_created"`
	Errors               int `json:"errors"`
	FailedNodes          int `json:"failed_nodes"`
	FailedRelationships  int `json:"failed_relationships"`
}

func (s *Stats) add(o Stats) {
	s.FilesProcessed += o.FilesProcessed
	s.NodesCreated += o.NodesCreated
	s.RelationshipsCreated += o.RelationshipsCreated
	s.Errors += o.Errors
	s.FailedNodes += o.FailedNodes
	s.FailedRelationships += o.FailedRelationships
}

// Loader is the transactional loader.
type Loader struct {
	store     store.GraphStore
	builder   FragmentBuilder
	validator *Validator
	failures  *FailureLog
	batchSize int
	decode    loader.DecodeOptions
}

// NewLoaderParams configures a Loader. A nil Failures disables the failure
// logs and a zero BatchSize means DefaultBatchSize.
type NewLoaderParams struct {
	Store     store.GraphStore
	Builder   FragmentBuilder
	Failures  *FailureLog
	BatchSize int
	Lenient   bool
}

func NewLoader(params NewLoaderParams) *Loader {
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	failures := params.Failures
	if failures == nil {
		failures = NewFailureLog("", "", "")
	}
	return &Loader{
		store:     params.Store,
		builder:   params.Builder,
		validator: NewValidator(),
		failures:  failures,
		batchSize: batchSize,
		decode:    loader.DecodeOptions{Lenient: params.Lenient},
	}
}

// Run processes files in batches. It only returns an error when ctx is
// cancelled; the stats gathered so far are returned with it.
func (l *Loader) Run(ctx context.Context, files []loader.GraphFile) (Stats, error) {
	var total Stats
	batches := (len(files) + l.batchSize - 1) / l.batchSize
	progress := util.NewProgress(len(files))

	err := store.ChunkRange(len(files), l.batchSize, func(start, end int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Info("[Loader] Processing batch",
			"batch", start/l.batchSize+1, "batches", batches, "files", end-start)

		stats, err := l.processBatch(ctx, files[start:end])
		total.add(stats)
		progress.Advance(end - start)
		logger.Info("[Loader] Batch complete",
			"nodes", stats.NodesCreated,
			"relationships", stats.RelationshipsCreated,
			"failed_nodes", stats.FailedNodes,
			"failed_relationships", stats.FailedRelationships,
			"progress", progress.String(),
			"remaining", progress.Remaining().Round(time.Second),
		)
		return err
	})
	return total, err
}

type nodeState int

const (
	nodePending nodeState = iota
	nodeInvalid
	nodeFailed
	nodeConflict
	nodePersisted
)

// batch is the combined arena of all fragments of a batch. Relationship
// endpoints are indices into nodes.
type batch struct {
	nodes []common.Node
	files []string
	state []nodeState
	ids   []int64
	rels  []common.Relationship
	// relFiles holds the source file of every relationship.
	relFiles  []string
	conflicts map[int]*common.ConstraintConflictError
}

func (b *batch) add(file string, f *common.Fragment) {
	offset := len(b.nodes)
	for _, n := range f.Nodes {
		b.nodes = append(b.nodes, n)
		b.files = append(b.files, file)
		b.state = append(b.state, nodePending)
		b.ids = append(b.ids, 0)
	}
	for _, r := range f.Relationships {
		r.From += offset
		r.To += offset
		b.rels = append(b.rels, r)
		b.relFiles = append(b.relFiles, file)
	}
}

func (l *Loader) processBatch(ctx context.Context, files []loader.GraphFile) (Stats, error) {
	var stats Stats
	b := &batch{conflicts: make(map[int]*common.ConstraintConflictError)}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := l.extract(ctx, file, b, &stats); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			logger.Error("[Loader] Error processing file", "file", file.FilePath, "err", err)
			stats.Errors++
		}
	}

	created, err := l.commitNodes(ctx, b, &stats)
	if err != nil {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		logger.Error("[Loader] Node transaction failed", "err", err)
		stats.Errors++
		for i := range b.rels {
			l.failRelationship(b, i, err, &stats)
		}
		return stats, nil
	}
	stats.NodesCreated = created
	logger.Debug("[Loader] Committed nodes", "count", created)

	l.resolveConflicts(ctx, b, &stats)

	rels, idx := l.filterRelationships(b, &stats)
	err = store.ChunkRange(len(rels), RelationshipBatchSize, func(start, end int) error {
		return l.commitRelationships(ctx, b, rels[start:end], idx[start:end], &stats)
	})
	if err != nil && ctx.Err() != nil {
		return stats, ctx.Err()
	}
	return stats, nil
}

// extract decodes, builds and validates one file. Invalid nodes stay in the
// arena so indices remain stable, but are never merged.
func (l *Loader) extract(ctx context.Context, file loader.GraphFile, b *batch, stats *Stats) error {
	doc, err := loader.LoadDocument(ctx, file, l.decode)
	if err != nil {
		return err
	}
	frag, err := l.builder.Build(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to build graph for %s: %w", file.FilePath, err)
	}

	start := len(b.nodes)
	b.add(file.FilePath, frag)

	invalid := 0
	for i := start; i < len(b.nodes); i++ {
		if err := l.validator.Validate(b.nodes[i]); err != nil {
			b.state[i] = nodeInvalid
			invalid++
			l.failNode(b, i, err, stats)
			logger.Warn("[Loader] Invalid node data", "file", file.FilePath, "err", err)
		}
	}
	if invalid > 0 {
		logger.Info("[Loader] Skipped invalid nodes", "file", file.FilePath, "count", invalid)
	}
	stats.FilesProcessed++
	return nil
}

// commitNodes merges every valid node in one transaction. It returns the
// number of merged nodes; an error means the transaction was rolled back.
func (l *Loader) commitNodes(ctx context.Context, b *batch, stats *Stats) (int, error) {
	created := 0

	err := store.WithTx(ctx, l.store, func(tx store.GraphTx) error {
		for i, n := range b.nodes {
			if b.state[i] != nodePending {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if stored, ok := n.(*common.StoredNode); ok {
				b.ids[i] = stored.ID
				b.state[i] = nodePersisted
				continue
			}

			id, err := tx.MergeNode(ctx, n)
			if err == nil {
				b.ids[i] = id
				b.state[i] = nodePersisted
				created++
				continue
			}
			if cc, ok := common.IsConstraintConflict(err); ok {
				b.state[i] = nodeConflict
				b.conflicts[i] = cc
				logger.Debug("[Loader] Constraint conflict, looking up replacement after commit", "node", n.Key())
				continue
			}
			b.state[i] = nodeFailed
			l.failNode(b, i, err, stats)
			logger.Warn("[Loader] Error merging node", "node", n.Key(), "err", err)
		}
		return nil
	})
	if err != nil {
		return 0, &common.TransactionError{Scope: "node batch", Err: err}
	}
	return created, nil
}

// resolveConflicts looks up the persisted owner of every conflicting node,
// in batch order. Nodes without an owner are logged as failed and their
// relationships are dropped.
func (l *Loader) resolveConflicts(ctx context.Context, b *batch, stats *Stats) {
	for _, i := range slices.Sorted(maps.Keys(b.conflicts)) {
		cc := b.conflicts[i]
		existing, err := l.store.FindByKey(ctx, cc.Lookup)
		if err != nil {
			if !errors.Is(err, common.ErrNotFound) {
				err = &common.CollaboratorError{Collaborator: "graph store", Err: err}
				logger.Warn("[Loader] Error finding replacement for conflicting node", "node", cc.Key, "err", err)
			}
			l.failNode(b, i, fmt.Errorf("%w: no replacement found: %w", cc, err), stats)
			continue
		}
		b.ids[i] = existing.ID
		b.state[i] = nodePersisted
		logger.Debug("[Loader] Found existing node for constraint conflict",
			"node", cc.Key, "lookup", cc.Lookup, "id", existing.ID)
	}
}

// filterRelationships drops relationships with an unusable endpoint and maps
// the rest onto store ids. Replaced endpoints resolve to the persisted node.
// The second result holds the batch index of every returned relationship.
func (l *Loader) filterRelationships(b *batch, stats *Stats) ([]common.StoredRelationship, []int) {
	var rels []common.StoredRelationship
	var idx []int
	for i, r := range b.rels {
		from, to := b.state[r.From], b.state[r.To]
		switch {
		case from == nodePersisted && to == nodePersisted:
			rels = append(rels, common.StoredRelationship{
				Type:       r.Type,
				SourceID:   b.ids[r.From],
				TargetID:   b.ids[r.To],
				Properties: r.Properties,
			})
			idx = append(idx, i)
		case from == nodeConflict || to == nodeConflict:
			l.failRelationship(b, i, errUnresolvedEndpoint, stats)
		default:
			l.failRelationship(b, i, errFailedEndpoint, stats)
		}
	}
	return rels, idx
}

// commitRelationships creates one sub-batch in its own transaction. A single
// failing relationship is logged and skipped; a failing transaction loses
// only this sub-batch.
func (l *Loader) commitRelationships(ctx context.Context, b *batch, rels []common.StoredRelationship, idx []int, stats *Stats) error {
	created := 0
	failed := make(map[int]bool)

	err := store.WithTx(ctx, l.store, func(tx store.GraphTx) error {
		for i, rel := range rels {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, ok, err := tx.CreateRelationship(ctx, rel)
			if err != nil {
				failed[i] = true
				l.failRelationship(b, idx[i], err, stats)
				continue
			}
			if ok {
				created++
			}
		}
		return nil
	})
	if err != nil {
		txErr := &common.TransactionError{Scope: "relationship sub-batch", Err: err}
		logger.Error("[Loader] Error in relationship sub-batch", "err", txErr)
		stats.Errors++
		for i := range rels {
			if !failed[i] {
				l.failRelationship(b, idx[i], txErr, stats)
			}
		}
		return ctx.Err()
	}

	stats.RelationshipsCreated += created
	logger.Debug("[Loader] Committed relationships in sub-batch", "count", created, "failed", len(failed))
	return nil
}

func (l *Loader) failNode(b *batch, i int, cause error, stats *Stats) {
	stats.FailedNodes++
	if err := l.failures.Node(b.files[i], b.nodes[i], cause); err != nil {
		logger.Error("[Loader] Failed to write node failure", "err", err)
	}
}

func (l *Loader) failRelationship(b *batch, i int, cause error, stats *Stats) {
	r := b.rels[i]
	stats.FailedRelationships++
	if err := l.failures.Relationship(b.relFiles[i], r.Type, b.nodes[r.From], b.nodes[r.To], cause); err != nil {
		logger.Error("[Loader] Failed to write relationship failure", "err", err)
	}
}
