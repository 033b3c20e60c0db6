package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService defines the interface for the text-completion provider consulted
// by the refiner. Implementations are cloud-based (Claude, Gemini); tests stub
// this interface with canned outputs.
type LLMService interface {
	// Chat generates a completion response based on the conversation history.
	// The messages slice should contain the full conversation context in
	// chronological order, including system prompts and user messages.
	Chat(ctx context.Context, messages []Message) (string, error)

	// HealthCheck verifies the service is operational and can handle requests
	HealthCheck(ctx context.Context) error

	// Close releases resources and performs cleanup operations
	Close() error
}
