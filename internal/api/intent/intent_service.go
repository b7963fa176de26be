// Package intent turns a chat conversation into a complete trip request, or into the
// question the traveller must answer first.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/api"
	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Outcome is either Structured or Clarification.
type Outcome interface {
	outcome()
}

// Structured carries a request with destination, dates, duration and budget all set.
type Structured struct {
	Request types.TripRequest
}

// Clarification is the text to send back when the trip is not fully described yet.
type Clarification struct {
	Text string
}

func (Structured) outcome()    {}
func (Clarification) outcome() {}

const emptyConversationReply = "Where would you like to go? Tell me your destination, when you want to travel and your budget, and I'll plan the trip."

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Extract(ctx context.Context, turns []types.ConversationTurn) (Outcome, error)
}

type Options struct {
	HistoryLimit        int
	DefaultDurationDays int
	Now                 func() time.Time
}

type ServiceImpl struct {
	llm    generativeAI.TextGenerator
	opts   Options
	logger *slog.Logger
}

func NewServiceImpl(llm generativeAI.TextGenerator, opts Options, logger *slog.Logger) *ServiceImpl {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultDurationDays <= 0 {
		opts.DefaultDurationDays = 7
	}
	return &ServiceImpl{llm: llm, opts: opts, logger: logger}
}

// Extract asks the model for the trip parameters. Model text that is not a JSON object is
// returned as a Clarification; an error means the model could not be reached at all.
func (s *ServiceImpl) Extract(ctx context.Context, turns []types.ConversationTurn) (Outcome, error) {
	ctx, span := otel.Tracer("IntentService").Start(ctx, "Extract", trace.WithAttributes(
		attribute.Int("conversation.turns", len(turns)),
	))
	defer span.End()

	window := windowTurns(turns, s.opts.HistoryLimit)
	if len(window) == 0 {
		span.SetStatus(codes.Ok, "Empty conversation")
		return Clarification{Text: emptyConversationReply}, nil
	}

	now := s.opts.Now()
	raw, err := s.llm.GenerateContent(ctx, buildIntentPrompt(window, now))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Model call failed")
		return nil, fmt.Errorf("intent extraction: %w", err)
	}

	text := strings.TrimSpace(raw)
	cleaned := generativeAI.CleanJSONResponse(text)
	if !strings.HasPrefix(cleaned, "{") {
		span.SetAttributes(attribute.String("intent.outcome", "clarification"))
		span.SetStatus(codes.Ok, "Model asked for clarification")
		return Clarification{Text: text}, nil
	}

	var m modelIntent
	if err := json.Unmarshal([]byte(cleaned), &m); err != nil {
		s.logger.WarnContext(ctx, "Model output is not valid JSON, treating it as clarification",
			slog.Any("error", fmt.Errorf("%w: %w", types.ErrParse, err)))
		span.SetAttributes(attribute.String("intent.outcome", "clarification"))
		span.SetStatus(codes.Ok, "Unparseable model output")
		return Clarification{Text: text}, nil
	}

	req, missing := toTripRequest(m, now, s.opts.DefaultDurationDays)
	if len(missing) > 0 {
		s.logger.InfoContext(ctx, "Trip request incomplete", slog.Any("missing", missing))
		span.SetAttributes(attribute.String("intent.outcome", "clarification"))
		span.SetStatus(codes.Ok, "Incomplete request")
		return Clarification{Text: missingFieldsReply(missing)}, nil
	}

	span.SetAttributes(
		attribute.String("intent.outcome", "structured"),
		attribute.String("trip.destination", req.Destination),
		attribute.String("trip.start_date", req.StartDate),
		attribute.Int("trip.duration_days", req.DurationDays),
	)
	span.SetStatus(codes.Ok, "Trip request extracted")
	return Structured{Request: req}, nil
}

func missingFieldsReply(missing []string) string {
	return fmt.Sprintf("Almost there! To plan your trip I still need your %s. Could you share that?", api.JoinList(missing))
}
