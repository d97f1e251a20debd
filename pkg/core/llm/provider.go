// Package llm abstracts the model vendors behind one interface so agent
// roles can be rebound between providers in models.yaml without touching any
// caller. Providers read credentials from the environment at call time;
// construction never fails and holds no connections.
package llm

import (
	"context"
)

// Provider is the interface every model vendor implements.
type Provider interface {
	// GenerateResponse sends one prompt/system-prompt pair and returns the
	// model's text. Options carry vendor-specific switches: "model",
	// "api_key", "response_format", "google_search", "max_tokens".
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw role instructions into the format
	// the vendor's models respond to best.
	AdaptInstructions(rawInstructions string) string
}

// Message is one turn of an OpenAI-style chat payload, shared by the
// providers that speak that wire format.
type Message struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// ResponseFormat requests plain text or strict JSON output.
type ResponseFormat struct {
	Type string `json:"type"`
}
