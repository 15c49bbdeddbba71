package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultMaxEmbeddingTokens is the input budget of an embedding request when
// AI_EMBED_MAX_TOKENS is not set.
const DefaultMaxEmbeddingTokens = 512

var encoding = sync.OnceValues(func() (*tiktoken.Tiktoken, error) {
	return tiktoken.GetEncoding("o200k_base")
})

// TruncateTokens cuts text to at most maxTokens tokens. Text within budget is
// returned unchanged.
func TruncateTokens(text string, maxTokens int) (string, error) {
	if maxTokens <= 0 || text == "" {
		return text, nil
	}
	enc, err := encoding()
	if err != nil {
		return "", err
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, nil
	}
	return enc.Decode(tokens[:maxTokens]), nil
}

// CountTokens returns the number of tokens in text.
func CountTokens(text string) (int, error) {
	enc, err := encoding()
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}
