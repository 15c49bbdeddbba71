package common

import "strings"

// NodeKind is the primary label of a graph node. Together with the key value
// it fully identifies a node in the store.
type NodeKind string

const (
	KindDocument       NodeKind = "Document"
	KindMeeting        NodeKind = "Meeting"
	KindPerson         NodeKind = "Person"
	KindTopic          NodeKind = "Topic"
	KindDecision       NodeKind = "Decision"
	KindActionItem     NodeKind = "ActionItem"
	KindStatus         NodeKind = "Status"
	KindDate           NodeKind = "Date"
	KindModule         NodeKind = "Module"
	KindService        NodeKind = "Service"
	KindProcess        NodeKind = "Process"
	KindTeam           NodeKind = "Team"
	KindBusinessObject NodeKind = "BusinessObject"
	KindDomainEntity   NodeKind = "DomainEntity"
	KindDomainConcept  NodeKind = "DomainConcept"
	KindDomain         NodeKind = "Domain"
	KindCategory       NodeKind = "Category"
	KindRole           NodeKind = "Role"
	KindCode           NodeKind = "Code"
	KindData           NodeKind = "Data"
	KindTimeline       NodeKind = "Timeline"
	KindTimeGroup      NodeKind = "TimeGroup"
)

// Key fields used for merging. A kind owns exactly one of them.
const (
	KeyTitle     = "title"
	KeyName      = "name"
	KeyText      = "text"
	KeyValue     = "value"
	KeyMeetingID = "meeting_id"
)

// NodeKey addresses a node in the store. Field is normally the merge key of
// the kind, but lookups may use any indexed property such as meeting_id.
type NodeKey struct {
	Kind  NodeKind `json:"kind"`
	Field string   `json:"field"`
	Value string   `json:"value"`
}

func (k NodeKey) String() string {
	return string(k.Kind) + "{" + k.Field + ": " + k.Value + "}"
}

// Node is implemented by every typed node kind. Properties returns the
// attributes persisted next to the key; the key itself is included.
type Node interface {
	Kind() NodeKind
	Labels() []string
	Key() NodeKey
	Properties() map[string]any
}

// Named is implemented by nodes that carry a display name. Relationship
// synthesis only matches against named nodes.
type Named interface {
	Node
	DisplayName() string
}

// Embeddable is implemented by nodes that carry a vector embedding. A nil
// vector leaves the stored embedding untouched.
type Embeddable interface {
	EmbeddingVector() []float32
}

// RelType is the type of a directed relationship.
type RelType string

const (
	RelAuthoredBy    RelType = "AUTHORED_BY"
	RelMentions      RelType = "MENTIONS"
	RelDescribes     RelType = "DESCRIBES"
	RelRelatesTo     RelType = "RELATES_TO"
	RelHasRole       RelType = "HAS_ROLE"
	RelAttendedBy    RelType = "ATTENDED_BY"
	RelDiscusses     RelType = "DISCUSSES"
	RelDecided       RelType = "DECIDED"
	RelCreatedAction RelType = "CREATED_ACTION"
	RelAssignedTo    RelType = "ASSIGNED_TO"
	RelFollowsUp     RelType = "FOLLOWS_UP"
	RelHasStatus     RelType = "HAS_STATUS"
	RelPartOf        RelType = "PART_OF"
	RelImplements    RelType = "IMPLEMENTS"
	RelDependsOn     RelType = "DEPENDS_ON"
	RelOwns          RelType = "OWNS"
	RelConfigures    RelType = "CONFIGURES"
	RelUses          RelType = "USES"
	RelProvides      RelType = "PROVIDES"
	RelManages       RelType = "MANAGES"
	RelSupports      RelType = "SUPPORTS"
	RelReplaces      RelType = "REPLACES"
	RelExtends       RelType = "EXTENDS"
	RelPreceded      RelType = "PRECEDED"
	RelBelongsTo     RelType = "BELONGS_TO"
	RelInstanceOf    RelType = "INSTANCE_OF"
)

// RelationshipProperties holds the optional evidence attached to an edge.
// Zero values are omitted when persisted.
type RelationshipProperties struct {
	SourceText        string   `json:"source_text,omitempty"`
	TargetText        string   `json:"target_text,omitempty"`
	Context           string   `json:"context,omitempty"`
	SemanticType      string   `json:"semantic_type,omitempty"`
	Confidence        *float64 `json:"confidence,omitempty"`
	Strength          *float64 `json:"strength,omitempty"`
	CoOccurrenceCount int      `json:"co_occurrence_count,omitempty"`
	When              string   `json:"when,omitempty"`
	AsOf              string   `json:"as_of,omitempty"`
	OnDate            string   `json:"on_date,omitempty"`
	Hierarchical      bool     `json:"hierarchical,omitempty"`
	Source            string   `json:"source,omitempty"`
}

// Relationship is a directed edge between two nodes of the same arena.
// From and To are indices into the owning Fragment or batch node slice.
type Relationship struct {
	Type       RelType                `json:"type"`
	From       int                    `json:"from"`
	To         int                    `json:"to"`
	Properties RelationshipProperties `json:"properties"`
}

// Fragment is the in-memory graph produced for a single document. Nodes form
// an arena; relationships refer to them by index so bookkeeping never depends
// on pointer identity.
type Fragment struct {
	Source        string
	Nodes         []Node
	Relationships []Relationship
}

// AddNode appends n to the arena and returns its index.
func (f *Fragment) AddNode(n Node) int {
	f.Nodes = append(f.Nodes, n)
	return len(f.Nodes) - 1
}

// Relate appends a relationship between two arena indices.
func (f *Fragment) Relate(from int, rel RelType, to int, props RelationshipProperties) {
	f.Relationships = append(f.Relationships, Relationship{
		Type:       rel,
		From:       from,
		To:         to,
		Properties: props,
	})
}

// Float returns a pointer to v, for optional relationship scores.
func Float(v float64) *float64 {
	return &v
}

// StoredNode is a node that already exists in the store. It is returned by
// store lookups and may be placed in a fragment to link against persisted
// data without merging it again.
type StoredNode struct {
	ID         int64          `json:"id"`
	NodeKind   NodeKind       `json:"kind"`
	NodeLabels []string       `json:"labels"`
	KeyField   string         `json:"key_field"`
	KeyValue   string         `json:"key_value"`
	Props      map[string]any `json:"properties"`
}

func (n *StoredNode) Kind() NodeKind { return n.NodeKind }

func (n *StoredNode) Labels() []string {
	if len(n.NodeLabels) == 0 {
		return []string{string(n.NodeKind)}
	}
	return n.NodeLabels
}

func (n *StoredNode) Key() NodeKey {
	return NodeKey{Kind: n.NodeKind, Field: n.KeyField, Value: n.KeyValue}
}

func (n *StoredNode) Properties() map[string]any { return n.Props }

// StringProp returns a string property or "" if it is missing.
func (n *StoredNode) StringProp(name string) string {
	if n.Props == nil {
		return ""
	}
	v, _ := n.Props[name].(string)
	return v
}

// StoredRelationship is a persisted edge as read back from the store.
type StoredRelationship struct {
	ID         int64                  `json:"id"`
	Type       RelType                `json:"type"`
	SourceID   int64                  `json:"source_id"`
	TargetID   int64                  `json:"target_id"`
	Properties RelationshipProperties `json:"properties"`
}

// KeyFieldFor returns the merge key field of a kind.
func KeyFieldFor(kind NodeKind) string {
	switch kind {
	case KindDocument, KindMeeting:
		return KeyTitle
	case KindDecision, KindActionItem:
		return KeyText
	case KindStatus, KindDate:
		return KeyValue
	default:
		return KeyName
	}
}

// HasLabel reports whether n carries label.
func HasLabel(n Node, label NodeKind) bool {
	for _, l := range n.Labels() {
		if strings.EqualFold(l, string(label)) {
			return true
		}
	}
	return false
}
