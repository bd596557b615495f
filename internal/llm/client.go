// Package llm provides provider-neutral access to chat completion APIs.
// Two providers are supported: OpenAI and Google Gemini. Each caller picks
// its own sampling temperature, so extraction can run deterministic while
// coaching output stays varied.
package llm

import (
	"context"
	"time"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// Options tune a single completion request.
type Options struct {
	// Temperature is sent verbatim; zero means deterministic sampling,
	// not "use the provider default".
	Temperature float64

	// MaxTokens caps the response length. Zero leaves the cap to the client.
	MaxTokens int

	// JSON asks the provider for a JSON-only response where the API
	// supports it natively. Callers still strip code fences from the
	// result, since not every provider honors the hint.
	JSON bool
}

// Client is the interface all providers implement.
type Client interface {
	// Chat sends a conversation and returns the assistant's text reply.
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)

	// Model returns the model identifier in use.
	Model() string
}

// Provider identifies a completion API vendor.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int
}
