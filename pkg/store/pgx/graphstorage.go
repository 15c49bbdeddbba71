package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
	"github.com/OFFIS-RIT/docgraph/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

const (
	uniqueViolation = "23505"

	// meetingIDIndex guards the secondary meeting_id key of Meeting nodes.
	meetingIDIndex = "graph_nodes_meeting_id_key"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphStore implements store.GraphStore on PostgreSQL. Nodes live in
// graph_nodes keyed by (kind, key_value), relationships in
// graph_relationships.
type GraphStore struct {
	conn   pgxIConn
	dedupe bool
}

type GraphStoreOption func(*GraphStore)

// WithRelationshipDedupe makes CreateRelationship skip an edge when one with
// the same type, endpoints and context already exists.
func WithRelationshipDedupe(on bool) GraphStoreOption {
	return func(s *GraphStore) {
		s.dedupe = on
	}
}

// NewGraphStore creates a GraphStore on an existing pool or connection.
func NewGraphStore(conn pgxIConn, opts ...GraphStoreOption) *GraphStore {
	s := &GraphStore{conn: conn}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

func (s *GraphStore) Begin(ctx context.Context) (store.GraphTx, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &graphTx{tx: tx, dedupe: s.dedupe}, nil
}

const findByKeySQL = `
SELECT id, kind, labels, key_field, key_value, properties
FROM graph_nodes
WHERE $1::text = ANY(labels) AND properties->>($2::text) = $3::text
ORDER BY id
LIMIT 1`

func (s *GraphStore) FindByKey(ctx context.Context, key common.NodeKey) (*common.StoredNode, error) {
	field := key.Field
	if field == "" {
		field = common.KeyFieldFor(key.Kind)
	}
	row := s.conn.QueryRow(ctx, findByKeySQL, string(key.Kind), field, key.Value)
	n, err := scanNode(row)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", key, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", key, err)
	}
	return n, nil
}

const documentsWithDateSQL = `
SELECT id, kind, labels, key_field, key_value, properties
FROM graph_nodes
WHERE 'Document' = ANY(labels) AND COALESCE(properties->>'date', '') <> ''
ORDER BY properties->>'date', id`

func (s *GraphStore) QueryDocumentsWithDate(ctx context.Context) ([]*common.StoredNode, error) {
	rows, err := s.conn.Query(ctx, documentsWithDateSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query dated documents: %w", err)
	}
	defer rows.Close()

	var out []*common.StoredNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

const enhancementCandidatesSQL = `
SELECT r.id, r.rel_type, r.source_id, r.target_id, r.properties,
	COALESCE(s.properties->>'name', s.properties->>'title', s.key_value),
	COALESCE(t.properties->>'name', t.properties->>'title', t.key_value)
FROM graph_relationships r
JOIN graph_nodes s ON s.id = r.source_id
JOIN graph_nodes t ON t.id = r.target_id
WHERE NOT (r.properties ? 'confidence')
	AND COALESCE(r.properties->>'context', '') <> ''
ORDER BY r.id
LIMIT $1`

func (s *GraphStore) QueryRelationshipsForEnhancement(ctx context.Context, limit int) ([]store.EnhancementCandidate, error) {
	if limit <= 0 {
		limit = store.EnhancementLimit
	}
	rows, err := s.conn.Query(ctx, enhancementCandidatesSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships for enhancement: %w", err)
	}
	defer rows.Close()

	var out []store.EnhancementCandidate
	for rows.Next() {
		var (
			c       store.EnhancementCandidate
			relType string
			props   []byte
		)
		if err := rows.Scan(
			&c.Relationship.ID,
			&relType,
			&c.Relationship.SourceID,
			&c.Relationship.TargetID,
			&props,
			&c.SourceName,
			&c.TargetName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		c.Relationship.Type = common.RelType(relType)
		if err := json.Unmarshal(props, &c.Relationship.Properties); err != nil {
			return nil, fmt.Errorf("failed to decode properties of relationship %d: %w", c.Relationship.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanNode(row pgxv5.Row) (*common.StoredNode, error) {
	var (
		n     common.StoredNode
		kind  string
		props []byte
	)
	if err := row.Scan(&n.ID, &kind, &n.NodeLabels, &n.KeyField, &n.KeyValue, &props); err != nil {
		return nil, err
	}
	n.NodeKind = common.NodeKind(kind)
	if err := json.Unmarshal(props, &n.Props); err != nil {
		return nil, fmt.Errorf("failed to decode properties of node %d: %w", n.ID, err)
	}
	return &n, nil
}

type graphTx struct {
	tx     pgxv5.Tx
	dedupe bool
}

// savepoint runs fn in a nested transaction so that a failed statement only
// discards its own work and leaves the outer transaction usable.
func (t *graphTx) savepoint(ctx context.Context, fn func(tx pgxv5.Tx) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(sp); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

const mergeNodeSQL = `
INSERT INTO graph_nodes (kind, key_field, key_value, labels, properties, embedding)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (kind, key_value) DO UPDATE SET
	labels = ARRAY(SELECT DISTINCT l FROM unnest(graph_nodes.labels || EXCLUDED.labels) AS l ORDER BY l),
	properties = graph_nodes.properties || EXCLUDED.properties,
	embedding = COALESCE(EXCLUDED.embedding, graph_nodes.embedding),
	updated_at = now()
RETURNING id`

func (t *graphTx) MergeNode(ctx context.Context, n common.Node) (int64, error) {
	key := n.Key()
	props, err := json.Marshal(n.Properties())
	if err != nil {
		return 0, fmt.Errorf("failed to marshal properties of %s: %w", key, err)
	}

	var embedding any
	if e, ok := n.(common.Embeddable); ok {
		if v := e.EmbeddingVector(); len(v) > 0 {
			embedding = pgvector.NewVector(v)
		}
	}

	var id int64
	err = t.savepoint(ctx, func(tx pgxv5.Tx) error {
		return tx.QueryRow(ctx, mergeNodeSQL,
			string(key.Kind), key.Field, key.Value, n.Labels(), props, embedding,
		).Scan(&id)
	})
	if err != nil {
		return 0, mapNodeError(n, err)
	}
	return id, nil
}

// mapNodeError turns a unique violation on a secondary key into a
// ConstraintConflictError addressing the node that owns the value.
func mapNodeError(n common.Node, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return fmt.Errorf("failed to merge %s: %w", n.Key(), err)
	}

	lookup := n.Key()
	if pgErr.ConstraintName == meetingIDIndex {
		id, _ := n.Properties()[common.KeyMeetingID].(string)
		lookup = common.NodeKey{Kind: common.KindMeeting, Field: common.KeyMeetingID, Value: id}
	}
	return &common.ConstraintConflictError{
		Key:        n.Key(),
		Lookup:     lookup,
		Constraint: pgErr.ConstraintName,
		Err:        err,
	}
}

const createRelationshipSQL = `
INSERT INTO graph_relationships (rel_type, source_id, target_id, properties)
SELECT $1::text, $2::bigint, $3::bigint, $4::jsonb
WHERE NOT $5::boolean OR NOT EXISTS (
	SELECT 1 FROM graph_relationships
	WHERE rel_type = $1::text AND source_id = $2::bigint AND target_id = $3::bigint
		AND COALESCE(properties->>'context', '') = COALESCE($4::jsonb->>'context', '')
)
RETURNING id`

func (t *graphTx) CreateRelationship(ctx context.Context, rel common.StoredRelationship) (int64, bool, error) {
	props, err := json.Marshal(rel.Properties)
	if err != nil {
		return 0, false, fmt.Errorf("failed to marshal properties of %s: %w", rel.Type, err)
	}

	var id int64
	err = t.savepoint(ctx, func(tx pgxv5.Tx) error {
		return tx.QueryRow(ctx, createRelationshipSQL,
			string(rel.Type), rel.SourceID, rel.TargetID, props, t.dedupe,
		).Scan(&id)
	})
	if errors.Is(err, pgxv5.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to create %s (%d -> %d): %w", rel.Type, rel.SourceID, rel.TargetID, err)
	}
	return id, true, nil
}

const updateRelationshipSQL = `
UPDATE graph_relationships SET properties = properties || $2::jsonb
WHERE id = $1`

func (t *graphTx) UpdateRelationship(ctx context.Context, id int64, props common.RelationshipProperties) error {
	patch, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("failed to marshal properties of relationship %d: %w", id, err)
	}

	var tag pgconn.CommandTag
	err = t.savepoint(ctx, func(tx pgxv5.Tx) error {
		var execErr error
		tag, execErr = tx.Exec(ctx, updateRelationshipSQL, id, patch)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to update relationship %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("relationship %d: %w", id, common.ErrNotFound)
	}
	return nil
}

func (t *graphTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *graphTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgxv5.ErrTxClosed) {
		return nil
	}
	return err
}
