package ai

import "context"

// LLMProvider sends a prompt to an LLM and returns the raw JSON response,
// which conforms to the classification schema.
type LLMProvider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}
