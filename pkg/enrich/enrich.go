// Package enrich holds the passes that run over the persisted graph after
// all documents are loaded: the project timeline, the domain ontology and
// the semantic enhancement of existing relationships.
package enrich

import (
	"context"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
	"github.com/OFFIS-RIT/docgraph/pkg/store"
)

// DefaultProject names the timeline and the top-level domain concept.
const DefaultProject = "Heimdall"

// Result counts the writes of one pass.
type Result struct {
	NodesMerged          int `json:"nodes_merged"`
	RelationshipsCreated int `json:"relationships_created"`
	RelationshipsUpdated int `json:"relationships_updated"`
}

// writer wraps a transaction and counts what it writes.
type writer struct {
	tx  store.GraphTx
	res Result
}

func (w *writer) merge(ctx context.Context, n common.Node) (int64, error) {
	id, err := w.tx.MergeNode(ctx, n)
	if err != nil {
		return 0, err
	}
	w.res.NodesMerged++
	return id, nil
}

func (w *writer) relate(ctx context.Context, from int64, rel common.RelType, to int64) error {
	_, created, err := w.tx.CreateRelationship(ctx, common.StoredRelationship{
		Type:     rel,
		SourceID: from,
		TargetID: to,
	})
	if err != nil {
		return err
	}
	if created {
		w.res.RelationshipsCreated++
	}
	return nil
}

func projectName(project string) string {
	if project == "" {
		return DefaultProject
	}
	return project
}
