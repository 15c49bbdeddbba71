package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
)

const (
	DefaultFailedNodesLog         = "failed_nodes.log"
	DefaultFailedRelationshipsLog = "failed_relationships.log"
)

// NodeFailure is one line of the failed-nodes log.
type NodeFailure struct {
	RunID string          `json:"run_id"`
	Time  time.Time       `json:"time"`
	File  string          `json:"file,omitempty"`
	Kind  common.NodeKind `json:"kind"`
	Key   string          `json:"key"`
	Error string          `json:"error"`
}

// RelationshipFailure is one line of the failed-relationships log. From and
// To are the keys of the endpoints.
type RelationshipFailure struct {
	RunID string         `json:"run_id"`
	Time  time.Time      `json:"time"`
	File  string         `json:"file,omitempty"`
	Type  common.RelType `json:"type"`
	From  string         `json:"from"`
	To    string         `json:"to"`
	Error string         `json:"error"`
}

// jsonLog appends JSON lines to a file. The file is only created once the
// first record is written, so clean runs leave nothing behind.
type jsonLog struct {
	path string

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

func (l *jsonLog) write(v any) error {
	if l.path == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", l.path, err)
		}
		l.file = f
		l.enc = json.NewEncoder(f)
	}
	return l.enc.Encode(v)
}

func (l *jsonLog) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// FailureLog records the nodes and relationships a run could not persist.
// An empty path disables the corresponding log.
type FailureLog struct {
	runID string
	now   func() time.Time
	nodes jsonLog
	rels  jsonLog
}

func NewFailureLog(runID, nodesPath, relsPath string) *FailureLog {
	return &FailureLog{
		runID: runID,
		now:   time.Now,
		nodes: jsonLog{path: nodesPath},
		rels:  jsonLog{path: relsPath},
	}
}

func (f *FailureLog) Node(file string, n common.Node, cause error) error {
	key := n.Key()
	return f.nodes.write(NodeFailure{
		RunID: f.runID,
		Time:  f.now().UTC(),
		File:  file,
		Kind:  key.Kind,
		Key:   key.Value,
		Error: cause.Error(),
	})
}

func (f *FailureLog) Relationship(file string, rel common.RelType, from, to common.Node, cause error) error {
	return f.rels.write(RelationshipFailure{
		RunID: f.runID,
		Time:  f.now().UTC(),
		File:  file,
		Type:  rel,
		From:  from.Key().String(),
		To:    to.Key().String(),
		Error: cause.Error(),
	})
}

// Paths returns the configured log files that exist on disk.
func (f *FailureLog) Paths() []string {
	var paths []string
	for _, l := range []*jsonLog{&f.nodes, &f.rels} {
		if _, err := os.Stat(l.path); l.path != "" && err == nil {
			paths = append(paths, l.path)
		}
	}
	return paths
}

func (f *FailureLog) Close() error {
	return errors.Join(f.nodes.close(), f.rels.close())
}
