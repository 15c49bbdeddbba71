package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/docgraph/pkg/ai"

	"github.com/ollama/ollama/api"
)

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model on Ollama.
//
// Input beyond the token budget is cut off. Blank input yields a zero vector
// without a request.
func (c *EmbeddingClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	text := strings.TrimSpace(string(input))
	if text == "" {
		return make([]float32, c.dimensions), nil
	}
	text, err := ai.TruncateTokens(text, c.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to truncate embedding input: %w", err)
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.Client.Embed(rCtx, &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: text,
	})
	if err != nil {
		return nil, err
	}

	c.metrics.Add(ai.ModelMetrics{
		InputTokens: res.PromptEvalCount,
		TotalTokens: res.PromptEvalCount,
		DurationMs:  res.TotalDuration.Milliseconds(),
	})

	if len(res.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding response from %s", c.embeddingModel)
	}
	out := make([]float32, 0, c.dimensions)
	for _, val := range res.Embeddings[0] {
		if len(out) >= c.dimensions {
			break
		}
		out = append(out, float32(val))
	}
	return out, nil
}
