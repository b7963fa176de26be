package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/api/narration"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type stepStatus int

const (
	advance stepStatus = iota
	// absent: the step's optional field stays empty and the run continues.
	absent
	// halt: r.result already holds the terminal reply.
	halt
)

type stepResult struct {
	status stepStatus
	err    error
}

type step struct {
	name  string
	state types.PlanState
	run   func(ctx context.Context, r *run) stepResult
}

// run is the mutable state of one Plan call. It is never shared between calls.
type run struct {
	turns    []types.ConversationTurn
	request  types.TripRequest
	location types.LocationResolution
	result   types.PipelineResult
	state    types.PlanState
	degraded []string
	logger   *slog.Logger
}

func (r *run) halt(state types.PlanState, reply string) stepResult {
	r.state = state
	r.result = types.PipelineResult{Reply: reply, State: state}
	return stepResult{status: halt}
}

func (r *run) point() types.Coordinates {
	return types.Coordinates{Latitude: r.location.Latitude, Longitude: r.location.Longitude}
}

func summaryReply(req types.TripRequest, res types.PipelineResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here's your %d-day trip to %s from %s to %s, planned around a budget of %s.",
		req.DurationDays, req.Destination, req.StartDate, req.EndDate, narration.FormatUSD(req.BudgetUSD))

	if res.Flight != nil {
		fmt.Fprintf(&b, " Best flight found: %s from %s to %s for %s %s.",
			res.Flight.AirlineCode, res.Flight.DepartureCode, res.Flight.ArrivalCode, res.Flight.Price, res.Flight.Currency)
	} else {
		b.WriteString(" I couldn't find a flight quote for those dates.")
	}

	if res.Lodging != nil {
		fmt.Fprintf(&b, " You could stay at %s.", res.Lodging.Name)
	} else {
		b.WriteString(" I couldn't find a hotel nearby.")
	}

	if len(res.Activities) > 0 {
		names := lo.Map(res.Activities, func(a types.Activity, _ int) string { return a.Name })
		fmt.Fprintf(&b, " Things to do: %s.", api.JoinList(names))
	}
	return b.String()
}
