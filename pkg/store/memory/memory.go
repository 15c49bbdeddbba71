// Package memory provides an in-process store.GraphStore. It backs the
// "memory" store mode and doubles as the store fake in tests, with hooks to
// inject failures into individual operations.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
	"github.com/OFFIS-RIT/docgraph/pkg/store"
)

// MeetingIDConstraint names the secondary uniqueness rule on meeting_id.
const MeetingIDConstraint = "graph_nodes_meeting_id_key"

var ErrTxClosed = errors.New("transaction already closed")

// Faults injects errors into store operations. A nil hook never fails.
type Faults struct {
	Begin              func() error
	MergeNode          func(n common.Node) error
	CreateRelationship func(rel common.StoredRelationship) error
	Commit             func() error
}

type Option func(*Store)

func WithRelationshipDedupe(on bool) Option {
	return func(s *Store) {
		s.dedupe = on
	}
}

func WithFaults(f Faults) Option {
	return func(s *Store) {
		s.faults = f
	}
}

type nodeKey struct {
	kind  common.NodeKind
	value string
}

type state struct {
	nextNodeID int64
	nextRelID  int64

	nodes      []*common.StoredNode
	byKey      map[nodeKey]*common.StoredNode
	embeddings map[int64][]float32
	rels       []common.StoredRelationship
}

func newState() *state {
	return &state{
		byKey:      make(map[nodeKey]*common.StoredNode),
		embeddings: make(map[int64][]float32),
	}
}

func (s *state) clone() *state {
	c := &state{
		nextNodeID: s.nextNodeID,
		nextRelID:  s.nextRelID,
		nodes:      make([]*common.StoredNode, 0, len(s.nodes)),
		byKey:      make(map[nodeKey]*common.StoredNode, len(s.byKey)),
		embeddings: make(map[int64][]float32, len(s.embeddings)),
		rels:       slices.Clone(s.rels),
	}
	for _, n := range s.nodes {
		cp := copyNode(n)
		c.nodes = append(c.nodes, cp)
		c.byKey[nodeKey{cp.NodeKind, cp.KeyValue}] = cp
	}
	for id, v := range s.embeddings {
		c.embeddings[id] = v
	}
	return c
}

func copyNode(n *common.StoredNode) *common.StoredNode {
	cp := *n
	cp.NodeLabels = slices.Clone(n.NodeLabels)
	cp.Props = make(map[string]any, len(n.Props))
	for k, v := range n.Props {
		cp.Props[k] = v
	}
	return &cp
}

func (s *state) nodeByID(id int64) *common.StoredNode {
	i, ok := sort.Find(len(s.nodes), func(i int) int {
		switch {
		case id < s.nodes[i].ID:
			return -1
		case id > s.nodes[i].ID:
			return 1
		}
		return 0
	})
	if !ok {
		return nil
	}
	return s.nodes[i]
}

// Store is a store.GraphStore held in memory. A transaction works on a copy
// of the committed state and replaces it on commit.
type Store struct {
	mu        sync.RWMutex
	committed *state
	dedupe    bool
	faults    Faults
}

func New(opts ...Option) *Store {
	s := &Store{committed: newState()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

func (s *Store) Begin(ctx context.Context) (store.GraphTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.faults.Begin != nil {
		if err := s.faults.Begin(); err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &tx{store: s, state: s.committed.clone()}, nil
}

func (s *Store) FindByKey(ctx context.Context, key common.NodeKey) (*common.StoredNode, error) {
	field := key.Field
	if field == "" {
		field = common.KeyFieldFor(key.Kind)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.committed.nodes {
		if !common.HasLabel(n, key.Kind) {
			continue
		}
		if v, ok := n.Props[field]; ok && fmt.Sprint(v) == key.Value {
			return copyNode(n), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", key, common.ErrNotFound)
}

func (s *Store) QueryDocumentsWithDate(ctx context.Context) ([]*common.StoredNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*common.StoredNode
	for _, n := range s.committed.nodes {
		if common.HasLabel(n, common.KindDocument) && n.StringProp("date") != "" {
			out = append(out, copyNode(n))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StringProp("date") < out[j].StringProp("date")
	})
	return out, nil
}

func (s *Store) QueryRelationshipsForEnhancement(ctx context.Context, limit int) ([]store.EnhancementCandidate, error) {
	if limit <= 0 {
		limit = store.EnhancementLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.EnhancementCandidate
	for _, r := range s.committed.rels {
		if len(out) >= limit {
			break
		}
		if r.Properties.Confidence != nil || r.Properties.Context == "" {
			continue
		}
		src := s.committed.nodeByID(r.SourceID)
		dst := s.committed.nodeByID(r.TargetID)
		if src == nil || dst == nil {
			continue
		}
		out = append(out, store.EnhancementCandidate{
			Relationship: r,
			SourceName:   store.Name(src),
			TargetName:   store.Name(dst),
		})
	}
	return out, nil
}

// Nodes returns a copy of every committed node in creation order.
func (s *Store) Nodes() []*common.StoredNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*common.StoredNode, 0, len(s.committed.nodes))
	for _, n := range s.committed.nodes {
		out = append(out, copyNode(n))
	}
	return out
}

// Relationships returns every committed relationship in creation order.
func (s *Store) Relationships() []common.StoredRelationship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.committed.rels)
}

// Embedding returns the committed embedding of the node with id.
func (s *Store) Embedding(id int64) []float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed.embeddings[id]
}

type tx struct {
	store  *Store
	state  *state
	closed bool
}

func (t *tx) MergeNode(ctx context.Context, n common.Node) (int64, error) {
	if t.closed {
		return 0, ErrTxClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	key := n.Key()
	if t.store.faults.MergeNode != nil {
		if err := t.store.faults.MergeNode(n); err != nil {
			return 0, fmt.Errorf("failed to merge %s: %w", key, err)
		}
	}

	props := n.Properties()
	existing := t.state.byKey[nodeKey{key.Kind, key.Value}]
	if err := t.checkMeetingID(n, existing, props); err != nil {
		return 0, err
	}

	if existing == nil {
		t.state.nextNodeID++
		existing = &common.StoredNode{
			ID:       t.state.nextNodeID,
			NodeKind: key.Kind,
			KeyField: key.Field,
			KeyValue: key.Value,
			Props:    make(map[string]any, len(props)),
		}
		t.state.nodes = append(t.state.nodes, existing)
		t.state.byKey[nodeKey{key.Kind, key.Value}] = existing
	}

	labels := append(slices.Clone(existing.NodeLabels), n.Labels()...)
	slices.Sort(labels)
	existing.NodeLabels = slices.Compact(labels)
	for k, v := range props {
		existing.Props[k] = v
	}
	if e, ok := n.(common.Embeddable); ok {
		if v := e.EmbeddingVector(); len(v) > 0 {
			t.state.embeddings[existing.ID] = slices.Clone(v)
		}
	}
	return existing.ID, nil
}

func (t *tx) checkMeetingID(n common.Node, existing *common.StoredNode, props map[string]any) error {
	id, _ := props[common.KeyMeetingID].(string)
	if id == "" {
		return nil
	}
	for _, other := range t.state.nodes {
		if existing != nil && other.ID == existing.ID {
			continue
		}
		if other.StringProp(common.KeyMeetingID) == id {
			return &common.ConstraintConflictError{
				Key:        n.Key(),
				Lookup:     common.NodeKey{Kind: common.KindMeeting, Field: common.KeyMeetingID, Value: id},
				Constraint: MeetingIDConstraint,
				Err:        fmt.Errorf("meeting_id %s already owned by node %d", id, other.ID),
			}
		}
	}
	return nil
}

func (t *tx) CreateRelationship(ctx context.Context, rel common.StoredRelationship) (int64, bool, error) {
	if t.closed {
		return 0, false, ErrTxClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if t.store.faults.CreateRelationship != nil {
		if err := t.store.faults.CreateRelationship(rel); err != nil {
			return 0, false, fmt.Errorf("failed to create %s: %w", rel.Type, err)
		}
	}
	if t.state.nodeByID(rel.SourceID) == nil || t.state.nodeByID(rel.TargetID) == nil {
		return 0, false, fmt.Errorf("failed to create %s (%d -> %d): %w", rel.Type, rel.SourceID, rel.TargetID, common.ErrNotFound)
	}

	if t.store.dedupe {
		for _, r := range t.state.rels {
			if r.Type == rel.Type && r.SourceID == rel.SourceID && r.TargetID == rel.TargetID &&
				r.Properties.Context == rel.Properties.Context {
				return 0, false, nil
			}
		}
	}

	t.state.nextRelID++
	rel.ID = t.state.nextRelID
	t.state.rels = append(t.state.rels, rel)
	return rel.ID, true, nil
}

func (t *tx) UpdateRelationship(ctx context.Context, id int64, props common.RelationshipProperties) error {
	if t.closed {
		return ErrTxClosed
	}
	for i := range t.state.rels {
		if t.state.rels[i].ID != id {
			continue
		}
		merged, err := mergeProperties(t.state.rels[i].Properties, props)
		if err != nil {
			return fmt.Errorf("failed to update relationship %d: %w", id, err)
		}
		t.state.rels[i].Properties = merged
		return nil
	}
	return fmt.Errorf("relationship %d: %w", id, common.ErrNotFound)
}

// mergeProperties overlays the non-zero fields of patch on base, the same
// way a JSONB concatenation would.
func mergeProperties(base, patch common.RelationshipProperties) (common.RelationshipProperties, error) {
	var m map[string]any
	b, err := json.Marshal(base)
	if err != nil {
		return base, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return base, err
	}
	p, err := json.Marshal(patch)
	if err != nil {
		return base, err
	}
	if err := json.Unmarshal(p, &m); err != nil {
		return base, err
	}
	merged, err := json.Marshal(m)
	if err != nil {
		return base, err
	}
	var out common.RelationshipProperties
	if err := json.Unmarshal(merged, &out); err != nil {
		return base, err
	}
	return out, nil
}

func (t *tx) Commit(ctx context.Context) error {
	if t.closed {
		return ErrTxClosed
	}
	t.closed = true
	if t.store.faults.Commit != nil {
		if err := t.store.faults.Commit(); err != nil {
			return fmt.Errorf("failed to commit: %w", err)
		}
	}
	t.store.mu.Lock()
	t.store.committed = t.state
	t.store.mu.Unlock()
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	t.closed = true
	return nil
}
