package generativeAI

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIClient generates text with the OpenAI chat completions API.
type OpenAIClient struct {
	client      openai.Client
	model       string
	temperature float64
}

var _ TextGenerator = (*OpenAIClient)(nil)

func NewOpenAIClient(opts Options) *OpenAIClient {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey.Reveal())}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	model := opts.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		client:      openai.NewClient(reqOpts...),
		model:       model,
		temperature: float64(opts.Temperature),
	}
}

func (c *OpenAIClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "OpenAI.GenerateContent", trace.WithAttributes(
		attribute.Int("prompt.length", len(prompt)),
		attribute.String("model", c.model),
	))
	defer span.End()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate content")
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		err = errors.New("openai chat completion: no choices returned")
		span.RecordError(err)
		span.SetStatus(codes.Error, "Empty completion")
		return "", err
	}

	text := resp.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("response.length", len(text)))
	span.SetStatus(codes.Ok, "Content generated successfully")
	return text, nil
}
