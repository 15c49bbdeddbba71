package store

import (
	"context"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
)

// EnhancementLimit bounds the relationships returned for enhancement in a
// single run.
const EnhancementLimit = 1000

// GraphStore defines the operations the pipeline needs from a property graph
// store. Writes happen inside a GraphTx; reads run outside of it and only see
// committed data.
type GraphStore interface {
	Begin(ctx context.Context) (GraphTx, error)

	// FindByKey returns the node of key.Kind whose key.Field property equals
	// key.Value, or common.ErrNotFound.
	FindByKey(ctx context.Context, key common.NodeKey) (*common.StoredNode, error)

	// QueryDocumentsWithDate returns every Document with a date property,
	// ordered by date and then by id.
	QueryDocumentsWithDate(ctx context.Context) ([]*common.StoredNode, error)

	// QueryRelationshipsForEnhancement returns up to limit relationships that
	// have a context but no confidence yet.
	QueryRelationshipsForEnhancement(ctx context.Context, limit int) ([]EnhancementCandidate, error)
}

// GraphTx is a unit of work on a GraphStore. A failed operation does not
// poison the transaction; the caller decides whether to continue or roll back.
type GraphTx interface {
	// MergeNode creates the node or updates the properties of the node with
	// the same kind and key. Labels are merged, never removed. It returns the
	// store id of the node.
	MergeNode(ctx context.Context, n common.Node) (int64, error)

	// CreateRelationship stores rel between two persisted nodes. created is
	// false when the store is deduplicating and an equal edge exists.
	CreateRelationship(ctx context.Context, rel common.StoredRelationship) (id int64, created bool, err error)

	// UpdateRelationship merges props into the relationship with id.
	UpdateRelationship(ctx context.Context, id int64, props common.RelationshipProperties) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// EnhancementCandidate is a relationship together with the display names of
// its endpoints.
type EnhancementCandidate struct {
	Relationship common.StoredRelationship
	SourceName   string
	TargetName   string
}

// Name returns the display value of a stored node: its name, title or key.
func Name(n *common.StoredNode) string {
	if v := n.StringProp(common.KeyName); v != "" {
		return v
	}
	if v := n.StringProp(common.KeyTitle); v != "" {
		return v
	}
	return n.KeyValue
}
