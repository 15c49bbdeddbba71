package graph

import (
	"context"
	"time"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
	"github.com/OFFIS-RIT/docgraph/pkg/extract"
	"github.com/OFFIS-RIT/docgraph/pkg/relate"
)

// Embedder produces the vector embedding of a document body.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)
}

// Lookup reads persisted nodes. The builder only uses it to resolve
// follow-up references to meetings of earlier runs.
type Lookup interface {
	FindByKey(ctx context.Context, key common.NodeKey) (*common.StoredNode, error)
}

// GraphBuilder turns one document into a common.Fragment. It holds no state
// between documents and may be reused for a whole run.
//
// A GraphBuilder should be created using NewGraphBuilder.
type GraphBuilder struct {
	lookup     Lookup
	embedder   Embedder
	dates      extract.DateExtractor
	topics     extract.TopicExtractor
	classifier extract.Classifier
	analyzer   extract.Analyzer
	vocabulary extract.Vocabulary
	synth      *relate.Synthesizer
	now        func() time.Time
}

// NewGraphBuilderParams defines the collaborators of a GraphBuilder.
//
// Lookup and Embedder are optional: without Lookup no FOLLOWS_UP edges are
// created, without Embedder documents carry no embedding. Every strategy
// left nil falls back to the heuristic default, and a nil Vocabulary selects
// extract.DefaultVocabulary.
type NewGraphBuilderParams struct {
	Lookup   Lookup
	Embedder Embedder

	Dates      extract.DateExtractor
	Topics     extract.TopicExtractor
	Classifier extract.Classifier
	Analyzer   extract.Analyzer
	Semantic   relate.SemanticClassifier
	Vocabulary *extract.Vocabulary

	Now func() time.Time
}

// NewGraphBuilder creates a GraphBuilder from params.
//
// Example:
//
//	builder := graph.NewGraphBuilder(graph.NewGraphBuilderParams{
//		Lookup:   graphStore,
//		Embedder: embeddingClient,
//	})
//	fragment, err := builder.Build(ctx, doc)
func NewGraphBuilder(params NewGraphBuilderParams) *GraphBuilder {
	b := &GraphBuilder{
		lookup:     params.Lookup,
		embedder:   params.Embedder,
		dates:      params.Dates,
		topics:     params.Topics,
		classifier: params.Classifier,
		analyzer:   params.Analyzer,
		now:        params.Now,
		synth:      relate.NewSynthesizer(params.Semantic),
	}
	if b.dates == nil {
		b.dates = extract.PatternDateExtractor{}
	}
	if b.analyzer == nil {
		b.analyzer = extract.NewProseAnalyzer()
	}
	if b.topics == nil {
		b.topics = extract.HeuristicTopicExtractor{Phrases: b.analyzer}
	}
	if b.classifier == nil {
		b.classifier = extract.NewKeywordClassifier()
	}
	if params.Vocabulary != nil {
		b.vocabulary = *params.Vocabulary
	} else {
		b.vocabulary = extract.DefaultVocabulary()
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}
