package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/docgraph/pkg/ai"

	"github.com/openai/openai-go/v3"
)

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model.
//
// Input beyond the token budget is cut off. The returned vector is padded or
// cut to the configured dimensions.
//
// Example:
//
//	embedding, err := client.GenerateEmbedding(ctx, []byte("Kick-off notes"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("Embedding length:", len(embedding))
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

	if err := c.embeddingLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.embeddingLock.Release(1)

	start := time.Now()
	response, err := c.Client.Embeddings.New(rCtx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{text}},
		Model: c.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	c.metrics.Add(ai.ModelMetrics{
		InputTokens: int(response.Usage.PromptTokens),
		TotalTokens: int(response.Usage.TotalTokens),
		DurationMs:  time.Since(start).Milliseconds(),
	})

	if len(response.Data) != 1 {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want 1", len(response.Data))
	}
	return fitDimensions(response.Data[0].Embedding, c.dimensions), nil
}

func fitDimensions(embedding []float64, dim int) []float32 {
	vec := make([]float32, dim)
	for i := 0; i < len(embedding) && i < dim; i++ {
		vec[i] = float32(embedding[i])
	}
	return vec
}
