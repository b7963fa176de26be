// Package narration reads the assembled itinerary aloud through a speech provider.
package narration

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const maxNarratedActivities = 5

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, string, error)
}

// Itinerary is what gets narrated.
type Itinerary struct {
	Destination string
	BudgetUSD   float64
	Flight      *types.FlightOffer
	Lodging     *types.LodgingCandidate
	Activities  []types.Activity
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Enabled() bool
	Narrate(ctx context.Context, it Itinerary) (string, error)
}

type ServiceImpl struct {
	synth  Synthesizer
	logger *slog.Logger
}

// NewServiceImpl builds the narrator. A nil synth disables narration.
func NewServiceImpl(synth Synthesizer, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{synth: synth, logger: logger}
}

func (s *ServiceImpl) Enabled() bool { return s != nil && s.synth != nil }

// Narrate synthesizes the script for it and returns the audio as a data URI.
func (s *ServiceImpl) Narrate(ctx context.Context, it Itinerary) (string, error) {
	script := BuildScript(it)
	ctx, span := otel.Tracer("NarrationService").Start(ctx, "Narrate", trace.WithAttributes(
		attribute.Int("script.length", len(script)),
	))
	defer span.End()

	audio, mediaType, err := s.synth.Synthesize(ctx, script)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Speech synthesis failed")
		return "", fmt.Errorf("narrate: %w", err)
	}
	if len(audio) == 0 {
		span.SetStatus(codes.Ok, "Empty audio")
		return "", nil
	}

	span.SetAttributes(attribute.Int("audio.bytes", len(audio)))
	span.SetStatus(codes.Ok, "Narration synthesized")
	return fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(audio)), nil
}

// BuildScript renders the narration in a fixed order: budget, airline, hotel, then up to
// five activities joined as a list with their descriptions after it.
func BuildScript(it Itinerary) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Here is your trip to %s, planned around a budget of %s.",
		it.Destination, FormatUSD(it.BudgetUSD)))

	if it.Flight != nil && it.Flight.AirlineCode != "" {
		parts = append(parts, fmt.Sprintf("You'll fly with %s.", it.Flight.AirlineCode))
	}
	if it.Lodging != nil && it.Lodging.Name != "" {
		parts = append(parts, fmt.Sprintf("You'll stay at %s.", cases.Title(language.English).String(it.Lodging.Name)))
	}

	activities := lo.Slice(it.Activities, 0, maxNarratedActivities)
	if len(activities) > 0 {
		names := lo.Map(activities, func(a types.Activity, _ int) string { return a.Name })
		parts = append(parts, fmt.Sprintf("Things to do include %s.", api.JoinList(names)))
		for i, a := range activities {
			desc := strings.TrimSpace(a.Description)
			if desc == "" {
				continue
			}
			parts = append(parts, fmt.Sprintf("%d. %s: %s", i+1, a.Name, ensurePeriod(desc)))
		}
	}
	return strings.Join(parts, " ")
}

// FormatUSD renders a whole-dollar amount with thousands separators.
func FormatUSD(amount float64) string {
	return message.NewPrinter(language.English).Sprintf("$%d", int64(math.Round(amount)))
}

func ensurePeriod(s string) string {
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}
