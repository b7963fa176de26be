// Package enrich replaces provider fallback descriptions with model-written ones.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Outcome is either Enriched or Unparsed.
type Outcome interface {
	enrichOutcome()
}

// Enriched maps activity names, as the model spelled them, to descriptions.
type Enriched struct {
	Descriptions map[string]string
}

// Unparsed holds model output that was not a JSON object of strings.
type Unparsed struct {
	Raw string
}

func (Enriched) enrichOutcome() {}
func (Unparsed) enrichOutcome() {}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Describe(ctx context.Context, destination string, names []string) (Outcome, error)
	Enrich(ctx context.Context, destination string, activities []types.Activity) []types.Activity
}

type ServiceImpl struct {
	llm    generativeAI.TextGenerator
	logger *slog.Logger
}

func NewServiceImpl(llm generativeAI.TextGenerator, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{llm: llm, logger: logger}
}

// Describe asks the model for one sentence per name in a single call.
func (s *ServiceImpl) Describe(ctx context.Context, destination string, names []string) (Outcome, error) {
	ctx, span := otel.Tracer("EnrichService").Start(ctx, "Describe", trace.WithAttributes(
		attribute.String("destination", destination),
		attribute.Int("names.count", len(names)),
	))
	defer span.End()

	raw, err := s.llm.GenerateContent(ctx, buildEnrichPrompt(destination, names))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Model call failed")
		return nil, fmt.Errorf("describe activities: %w", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(generativeAI.CleanJSONResponse(raw)), &parsed); err != nil {
		span.SetStatus(codes.Ok, "Unparsed model output")
		return Unparsed{Raw: raw}, nil
	}

	descriptions := make(map[string]string, len(parsed))
	for name, v := range parsed {
		if text, ok := v.(string); ok && strings.TrimSpace(text) != "" {
			descriptions[name] = strings.TrimSpace(text)
		}
	}
	span.SetAttributes(attribute.Int("descriptions.count", len(descriptions)))
	span.SetStatus(codes.Ok, "Descriptions generated")
	return Enriched{Descriptions: descriptions}, nil
}

// Enrich returns a copy of activities where each description is replaced when the model
// returned one under exactly the activity's name. Any failure leaves the list unchanged.
func (s *ServiceImpl) Enrich(ctx context.Context, destination string, activities []types.Activity) []types.Activity {
	out := slices.Clone(activities)
	if len(out) == 0 {
		return out
	}

	names := lo.Map(out, func(a types.Activity, _ int) string { return a.Name })
	outcome, err := s.Describe(ctx, destination, names)
	if err != nil {
		s.logger.WarnContext(ctx, "Description enrichment failed, keeping fallback descriptions", slog.Any("error", err))
		return out
	}

	switch o := outcome.(type) {
	case Unparsed:
		s.logger.WarnContext(ctx, "Enrichment output is not valid JSON, keeping fallback descriptions",
			slog.Any("error", types.ErrParse),
			slog.Int("output_length", len(o.Raw)))
	case Enriched:
		for i := range out {
			if d, ok := o.Descriptions[out[i].Name]; ok {
				out[i].Description = d
			}
		}
	}
	return out
}
