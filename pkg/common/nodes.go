package common

// DocumentNode is a source document. When it is detected as a meeting it
// additionally carries the Meeting label and a deterministic meeting id.
type DocumentNode struct {
	Title          string    `json:"title" validate:"required,text"`
	Content        string    `json:"content,omitempty" validate:"omitempty,text"`
	Created        string    `json:"created,omitempty"`
	Updated        string    `json:"updated,omitempty"`
	Tags           []string  `json:"labels,omitempty"`
	Type           string    `json:"type,omitempty"`
	TypeConfidence float64   `json:"type_confidence"`
	Date           string    `json:"date,omitempty" validate:"omitempty,isodate"`
	Embedding      []float32 `json:"-"`
	Meeting        bool      `json:"-"`
	MeetingID      string    `json:"meeting_id,omitempty"`
	Recurring      bool      `json:"recurring,omitempty"`
}

func (n *DocumentNode) Kind() NodeKind { return KindDocument }

func (n *DocumentNode) Labels() []string {
	if n.Meeting {
		return []string{string(KindDocument), string(KindMeeting)}
	}
	return []string{string(KindDocument)}
}

func (n *DocumentNode) Key() NodeKey {
	return NodeKey{Kind: KindDocument, Field: KeyTitle, Value: n.Title}
}

func (n *DocumentNode) EmbeddingVector() []float32 { return n.Embedding }

func (n *DocumentNode) Properties() map[string]any {
	p := map[string]any{
		KeyTitle:          n.Title,
		"type":            n.Type,
		"type_confidence": n.TypeConfidence,
	}
	setString(p, "content", n.Content)
	setString(p, "created", n.Created)
	setString(p, "updated", n.Updated)
	setString(p, "date", n.Date)
	setString(p, KeyMeetingID, n.MeetingID)
	if len(n.Tags) > 0 {
		p["labels"] = n.Tags
	}
	if n.Recurring {
		p["recurring"] = true
	}
	return p
}

// PersonNode is a resolved person. Role is filled from "Name (Role)" or
// "Role: Name" mentions.
type PersonNode struct {
	Name string `json:"name" validate:"required,text"`
	Role string `json:"role,omitempty"`
}

func (n *PersonNode) Kind() NodeKind      { return KindPerson }
func (n *PersonNode) Labels() []string    { return []string{string(KindPerson)} }
func (n *PersonNode) DisplayName() string { return n.Name }

func (n *PersonNode) Key() NodeKey {
	return NodeKey{Kind: KindPerson, Field: KeyName, Value: n.Name}
}

func (n *PersonNode) Properties() map[string]any {
	p := map[string]any{KeyName: n.Name}
	setString(p, "role", n.Role)
	return p
}

type TopicNode struct {
	Name string `json:"name" validate:"required,text"`
}

func (n *TopicNode) Kind() NodeKind      { return KindTopic }
func (n *TopicNode) Labels() []string    { return []string{string(KindTopic)} }
func (n *TopicNode) DisplayName() string { return n.Name }

func (n *TopicNode) Key() NodeKey {
	return NodeKey{Kind: KindTopic, Field: KeyName, Value: n.Name}
}

func (n *TopicNode) Properties() map[string]any {
	return map[string]any{KeyName: n.Name}
}

type DecisionNode struct {
	Text string `json:"text" validate:"required,text"`
}

func (n *DecisionNode) Kind() NodeKind   { return KindDecision }
func (n *DecisionNode) Labels() []string { return []string{string(KindDecision)} }

func (n *DecisionNode) Key() NodeKey {
	return NodeKey{Kind: KindDecision, Field: KeyText, Value: n.Text}
}

func (n *DecisionNode) Properties() map[string]any {
	return map[string]any{KeyText: n.Text}
}

type ActionItemNode struct {
	Text        string `json:"text" validate:"required,text"`
	CreatedDate string `json:"created_date,omitempty" validate:"omitempty,isodate"`
}

func (n *ActionItemNode) Kind() NodeKind   { return KindActionItem }
func (n *ActionItemNode) Labels() []string { return []string{string(KindActionItem)} }

func (n *ActionItemNode) Key() NodeKey {
	return NodeKey{Kind: KindActionItem, Field: KeyText, Value: n.Text}
}

func (n *ActionItemNode) Properties() map[string]any {
	p := map[string]any{KeyText: n.Text}
	setString(p, "created_date", n.CreatedDate)
	return p
}

type StatusNode struct {
	Value string `json:"value" validate:"required"`
}

func (n *StatusNode) Kind() NodeKind   { return KindStatus }
func (n *StatusNode) Labels() []string { return []string{string(KindStatus)} }

func (n *StatusNode) Key() NodeKey {
	return NodeKey{Kind: KindStatus, Field: KeyValue, Value: n.Value}
}

func (n *StatusNode) Properties() map[string]any {
	return map[string]any{KeyValue: n.Value}
}

// DateNode is a calendar date mentioned in a document, normalised to
// yyyy-mm-dd.
type DateNode struct {
	Value string `json:"value" validate:"required,isodate"`
}

func (n *DateNode) Kind() NodeKind   { return KindDate }
func (n *DateNode) Labels() []string { return []string{string(KindDate)} }

func (n *DateNode) Key() NodeKey {
	return NodeKey{Kind: KindDate, Field: KeyValue, Value: n.Value}
}

func (n *DateNode) Properties() map[string]any {
	return map[string]any{KeyValue: n.Value}
}

// EntityNode covers every kind that is identified by name alone: modules,
// services, processes, teams, business objects, generic domain entities and
// the structural ontology and timeline nodes.
type EntityNode struct {
	EntityKind NodeKind `json:"kind" validate:"required"`
	Name       string   `json:"name" validate:"required,text"`
}

func (n *EntityNode) Kind() NodeKind      { return n.EntityKind }
func (n *EntityNode) Labels() []string    { return []string{string(n.EntityKind)} }
func (n *EntityNode) DisplayName() string { return n.Name }

func (n *EntityNode) Key() NodeKey {
	return NodeKey{Kind: n.EntityKind, Field: KeyName, Value: n.Name}
}

func (n *EntityNode) Properties() map[string]any {
	return map[string]any{KeyName: n.Name}
}

func setString(p map[string]any, key, value string) {
	if value != "" {
		p[key] = value
	}
}
