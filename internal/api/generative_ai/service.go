package generativeAI

import (
	"context"
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// TextGenerator sends a single prompt to a language model and returns its text.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

type Options struct {
	Provider    string
	APIKey      config.Secret
	Model       string
	Temperature float32
	// BaseURL overrides the provider endpoint. Empty means the public API.
	BaseURL string
}

// New builds the generator selected by opts.Provider. Without an API key it returns a
// generator whose every call fails with a ConfigurationError.
func New(ctx context.Context, opts Options) (TextGenerator, error) {
	if !opts.APIKey.IsSet() {
		return unconfigured{}, nil
	}
	switch strings.ToLower(opts.Provider) {
	case "", ProviderGemini:
		return NewAIClient(ctx, opts)
	case ProviderOpenAI:
		return NewOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}

type unconfigured struct{}

func (unconfigured) GenerateContent(context.Context, string) (string, error) {
	return "", &types.ConfigurationError{Subsystem: "language model"}
}

// CleanJSONResponse strips Markdown code fences and any text around the outermost JSON
// object. Text without a brace pair is returned trimmed.
func CleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	first := strings.Index(response, "{")
	if first == -1 {
		return response
	}
	last := strings.LastIndex(response, "}")
	if last <= first {
		return response
	}
	return strings.TrimSpace(response[first : last+1])
}
