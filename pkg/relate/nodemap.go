package relate

import "github.com/OFFIS-RIT/docgraph/pkg/common"

// Entry is one key of a NodeMap. Index addresses the node in the owning
// fragment. Name is the node's display name, or the key for nodes without one.
type Entry struct {
	Key   string
	Index int
	Node  common.Node
	Name  string
	Named bool
}

// NodeMap is the working map of a document: an insertion ordered index from
// lookup keys (names, aliases, "Topic:x", ...) to fragment nodes. Several
// keys may point at the same node.
type NodeMap struct {
	entries []Entry
	pos     map[string]int
}

func NewNodeMap() *NodeMap {
	return &NodeMap{pos: make(map[string]int)}
}

// Set maps key to the node at index. Re-setting a key keeps its original
// position.
func (m *NodeMap) Set(key string, index int, n common.Node) {
	e := Entry{Key: key, Index: index, Node: n, Name: key}
	if named, ok := n.(common.Named); ok && named.DisplayName() != "" {
		e.Name = named.DisplayName()
		e.Named = true
	}
	if i, ok := m.pos[key]; ok {
		m.entries[i] = e
		return
	}
	m.pos[key] = len(m.entries)
	m.entries = append(m.entries, e)
}

// Get returns the entry stored under key.
func (m *NodeMap) Get(key string) (Entry, bool) {
	i, ok := m.pos[key]
	if !ok {
		return Entry{}, false
	}
	return m.entries[i], true
}

func (m *NodeMap) Has(key string) bool {
	_, ok := m.pos[key]
	return ok
}

// Entries returns all entries in insertion order.
func (m *NodeMap) Entries() []Entry {
	return m.entries
}

func (m *NodeMap) Len() int {
	return len(m.entries)
}
