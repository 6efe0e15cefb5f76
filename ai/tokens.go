package ai

import (
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter produces deterministic, model-consistent token counts used
// for sizing chunks and prompt budgets.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter creates a token counter for the given model. If the model
// has no registered encoding, the cl100k_base encoding is used.
func NewTokenCounter(model string) (*TokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	return &TokenCounter{encoding: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (t *TokenCounter) CountTokens(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}
