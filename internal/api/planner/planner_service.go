// Package planner runs the trip-planning pipeline: extraction, location resolution,
// flight, lodging, activities, enrichment and narration, in that order.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-trip-planner/app/logger"
	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/api/enrich"
	"github.com/FACorreiaa/go-trip-planner/internal/api/flight"
	"github.com/FACorreiaa/go-trip-planner/internal/api/intent"
	"github.com/FACorreiaa/go-trip-planner/internal/api/location"
	"github.com/FACorreiaa/go-trip-planner/internal/api/lodging"
	"github.com/FACorreiaa/go-trip-planner/internal/api/narration"
	"github.com/FACorreiaa/go-trip-planner/internal/api/poi"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const (
	defaultStepTimeout = 10 * time.Second
	unavailableReply   = "Sorry, I couldn't plan your trip right now. Please try again in a moment."
)

// Requirement is a credential that every run needs.
type Requirement struct {
	Subsystem  string
	Configured bool
}

type Dependencies struct {
	Intent   intent.Service
	Location location.Service
	Flight   flight.Service
	Lodging  lodging.Service
	POI      poi.Service
	Enrich   enrich.Service
	// Narrator is optional.
	Narrator narration.Service
}

type Options struct {
	StepTimeout   time.Duration
	DefaultOrigin string
	Requirements  []Requirement
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Plan(ctx context.Context, turns []types.ConversationTurn) types.PipelineResult
}

type ServiceImpl struct {
	deps   Dependencies
	opts   Options
	steps  []step
	logger *slog.Logger
}

func NewServiceImpl(deps Dependencies, opts Options, logger *slog.Logger) *ServiceImpl {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = defaultStepTimeout
	}
	s := &ServiceImpl{deps: deps, opts: opts, logger: logger}
	s.steps = []step{
		{name: "extract", state: types.StateExtracting, run: s.extract},
		{name: "resolve_location", state: types.StateResolvingLocation, run: s.resolveLocation},
		{name: "flight", state: types.StateFetchingFlight, run: s.fetchFlight},
		{name: "lodging", state: types.StateFetchingLodging, run: s.fetchLodging},
		{name: "activities", state: types.StateAggregatingPOIs, run: s.aggregateActivities},
		{name: "enrich", state: types.StateEnriching, run: s.enrichActivities},
		{name: "narrate", state: types.StateSynthesizing, run: s.narrate},
	}
	return s
}

// Budget is the longest a run can take when every step uses its full deadline.
func (s *ServiceImpl) Budget() time.Duration {
	return s.opts.StepTimeout * time.Duration(len(s.steps))
}

// Plan runs the pipeline for one conversation. It never fails: fatal conditions end the
// run with an apology reply and a terminal state.
func (s *ServiceImpl) Plan(ctx context.Context, turns []types.ConversationTurn) types.PipelineResult {
	started := time.Now()
	planID := uuid.NewString()
	l := logger.FromContext(ctx, s.logger).With(slog.String("plan_id", planID))

	ctx, span := otel.Tracer("PlannerService").Start(ctx, "Plan")
	defer span.End()
	span.SetAttributes(attribute.String("plan.id", planID), attribute.Int("conversation.turns", len(turns)))

	r := &run{turns: turns, logger: l}
	result := s.execute(ctx, r)

	m := metrics.Get()
	outcome := metric.WithAttributes(attribute.String("outcome", string(result.State)))
	m.PlanRequestsTotal.Add(ctx, 1, outcome)
	m.PlanDurationSeconds.Record(ctx, time.Since(started).Seconds(), outcome)

	span.SetAttributes(attribute.String("plan.state", string(result.State)))
	if result.State == types.StateFailed {
		span.SetStatus(codes.Error, "Planning failed")
	} else {
		span.SetStatus(codes.Ok, "Planning finished")
	}
	l.InfoContext(ctx, "Plan finished",
		slog.String("state", string(result.State)),
		slog.Duration("duration", time.Since(started)),
		slog.Any("degraded", r.degraded))
	return result
}

func (s *ServiceImpl) execute(ctx context.Context, r *run) types.PipelineResult {
	for _, req := range s.opts.Requirements {
		if !req.Configured {
			err := &types.ConfigurationError{Subsystem: req.Subsystem}
			r.logger.ErrorContext(ctx, "Planning unavailable", slog.Any("error", err))
			r.halt(types.StateFailed, configurationReply(err))
			return r.result
		}
	}

	for _, st := range s.steps {
		r.state = st.state
		stepCtx, cancel := context.WithTimeout(ctx, s.opts.StepTimeout)
		res := st.run(stepCtx, r)
		cancel()

		switch res.status {
		case halt:
			return r.result
		case absent:
			r.degraded = append(r.degraded, st.name)
			metrics.Get().DegradedStepsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("step", st.name)))
			if res.err != nil {
				r.logger.WarnContext(ctx, "Pipeline step degraded", slog.String("step", st.name), slog.Any("error", res.err))
			} else {
				r.logger.InfoContext(ctx, "Pipeline step produced no result", slog.String("step", st.name))
			}
		}
	}

	s.assemble(ctx, r)
	return r.result
}

func (s *ServiceImpl) extract(ctx context.Context, r *run) stepResult {
	out, err := s.deps.Intent.Extract(ctx, r.turns)
	if err != nil {
		var cfgErr *types.ConfigurationError
		if errors.As(err, &cfgErr) {
			r.logger.ErrorContext(ctx, "Planning unavailable", slog.Any("error", err))
			return r.halt(types.StateFailed, configurationReply(cfgErr))
		}
		r.logger.ErrorContext(ctx, "Intent extraction failed", slog.Any("error", err))
		return r.halt(types.StateFailed, unavailableReply)
	}

	switch o := out.(type) {
	case intent.Clarification:
		return r.halt(types.StateClarifying, o.Text)
	case intent.Structured:
		r.request = o.Request
		r.state = types.StateExtracted
		r.logger.InfoContext(ctx, "Trip request extracted",
			slog.String("destination", o.Request.Destination),
			slog.String("start_date", o.Request.StartDate),
			slog.Int("duration_days", o.Request.DurationDays))
		return stepResult{status: advance}
	default:
		return r.halt(types.StateFailed, unavailableReply)
	}
}

func (s *ServiceImpl) resolveLocation(ctx context.Context, r *run) stepResult {
	loc, err := s.deps.Location.Resolve(ctx, r.request.Destination, r.request.Country)
	if err != nil {
		var cfgErr *types.ConfigurationError
		if errors.As(err, &cfgErr) {
			return r.halt(types.StateFailed, configurationReply(cfgErr))
		}
		if !errors.Is(err, types.ErrNotFound) {
			r.logger.ErrorContext(ctx, "Location lookup failed",
				slog.String("destination", r.request.Destination),
				slog.Any("error", err))
			return r.halt(types.StateFailed, unavailableReply)
		}
		r.logger.WarnContext(ctx, "Destination could not be resolved",
			slog.String("destination", r.request.Destination),
			slog.Any("error", err))
		return r.halt(types.StateFailed, notFoundReply(r.request.Destination))
	}
	r.location = loc
	r.state = types.StateResolved
	return stepResult{status: advance}
}

func (s *ServiceImpl) fetchFlight(ctx context.Context, r *run) stepResult {
	if r.location.LocationCode == "" {
		return stepResult{status: absent}
	}
	origin := r.request.Origin
	if origin == "" {
		origin = s.opts.DefaultOrigin
	}
	var originCode string
	if origin != "" {
		originCode, _ = s.deps.Location.LookupCode(ctx, origin)
	}

	offer, err := s.deps.Flight.Quote(ctx, originCode, r.location.LocationCode, r.request.StartDate)
	if err != nil || offer == nil {
		return stepResult{status: absent, err: err}
	}
	r.result.Flight = offer
	return stepResult{status: advance}
}

func (s *ServiceImpl) fetchLodging(ctx context.Context, r *run) stepResult {
	candidate, err := s.deps.Lodging.Locate(ctx, r.point(), r.request.Destination)
	if err != nil || candidate == nil {
		return stepResult{status: absent, err: err}
	}
	r.result.Lodging = candidate
	return stepResult{status: advance}
}

func (s *ServiceImpl) aggregateActivities(ctx context.Context, r *run) stepResult {
	activities, err := s.deps.POI.Aggregate(ctx, r.point(), r.request.Preferences)
	if err != nil || len(activities) == 0 {
		return stepResult{status: absent, err: err}
	}
	r.result.Activities = activities
	return stepResult{status: advance}
}

func (s *ServiceImpl) enrichActivities(ctx context.Context, r *run) stepResult {
	if len(r.result.Activities) == 0 {
		return stepResult{status: advance}
	}
	r.result.Activities = s.deps.Enrich.Enrich(ctx, r.request.Destination, r.result.Activities)
	return stepResult{status: advance}
}

func (s *ServiceImpl) narrate(ctx context.Context, r *run) stepResult {
	if s.deps.Narrator == nil || !s.deps.Narrator.Enabled() {
		return stepResult{status: advance}
	}
	audio, err := s.deps.Narrator.Narrate(ctx, narration.Itinerary{
		Destination: r.request.Destination,
		BudgetUSD:   r.request.BudgetUSD,
		Flight:      r.result.Flight,
		Lodging:     r.result.Lodging,
		Activities:  r.result.Activities,
	})
	if err != nil || audio == "" {
		return stepResult{status: absent, err: err}
	}
	r.result.Audio = audio
	return stepResult{status: advance}
}

func (s *ServiceImpl) assemble(ctx context.Context, r *run) {
	if r.result.Lodging != nil {
		r.result.MapCenter = &types.Coordinates{Latitude: r.result.Lodging.Latitude, Longitude: r.result.Lodging.Longitude}
	} else {
		p := r.point()
		r.result.MapCenter = &p
	}
	r.result.Timezone = r.location.Timezone

	cal, err := buildCalendar(r.request, r.location, r.result.Flight, r.result.Lodging)
	if err != nil {
		r.logger.WarnContext(ctx, "Calendar export skipped", slog.Any("error", err))
	} else {
		r.result.Calendar = cal
	}

	r.result.Reply = summaryReply(r.request, r.result)
	r.result.State = types.StateAssembled
}

func configurationReply(err *types.ConfigurationError) string {
	return fmt.Sprintf("Sorry, trip planning is unavailable right now: the %s service is not configured.", err.Subsystem)
}

func notFoundReply(destination string) string {
	return fmt.Sprintf("Sorry, I couldn't find %q. Try including the country, e.g. \"%s, <country>\".", destination, destination)
}
