package llm

import (
	"fmt"
	"os"
	"strings"

	"nutricoach/internal/config"
)

// NewClientFromConfig creates a client from the LLM section of the config.
// The config's timeout string is applied when parseable.
func NewClientFromConfig(cfg *config.Config) (Client, error) {
	llmCfg := cfg.LLM
	if llmCfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured; set OPENAI_API_KEY or GEMINI_API_KEY, or llm.api_key in config.yaml")
	}

	switch Provider(strings.ToLower(llmCfg.Provider)) {
	case ProviderOpenAI, "":
		oc := DefaultOpenAIConfig(llmCfg.APIKey)
		if llmCfg.BaseURL != "" {
			oc.BaseURL = llmCfg.BaseURL
		}
		if llmCfg.Model != "" {
			oc.Model = llmCfg.Model
		}
		oc.Timeout = cfg.GetLLMTimeout()
		return NewOpenAIClientWithConfig(oc), nil

	case ProviderGemini:
		gc := DefaultGeminiConfig(llmCfg.APIKey)
		if llmCfg.BaseURL != "" {
			gc.BaseURL = llmCfg.BaseURL
		}
		if llmCfg.Model != "" {
			gc.Model = llmCfg.Model
		}
		gc.Timeout = cfg.GetLLMTimeout()
		return NewGeminiClientWithConfig(gc), nil

	default:
		return nil, fmt.Errorf("unknown provider: %s (valid: openai, gemini)", llmCfg.Provider)
	}
}

// NewClientFromEnv creates a client from environment variables alone.
// Priority: OPENAI_API_KEY > GEMINI_API_KEY.
func NewClientFromEnv() (Client, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return NewOpenAIClient(key), nil
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return NewGeminiClient(key), nil
	}
	return nil, fmt.Errorf("no API key found; set one of: OPENAI_API_KEY, GEMINI_API_KEY")
}
