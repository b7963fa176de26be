package planner

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/internal/api/enrich"
	"github.com/FACorreiaa/go-trip-planner/internal/api/intent"
	"github.com/FACorreiaa/go-trip-planner/internal/api/narration"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type MockIntent struct{ mock.Mock }

func (m *MockIntent) Extract(ctx context.Context, turns []types.ConversationTurn) (intent.Outcome, error) {
	args := m.Called(ctx, turns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(intent.Outcome), args.Error(1)
}

type MockLocation struct{ mock.Mock }

func (m *MockLocation) Resolve(ctx context.Context, destination, country string) (types.LocationResolution, error) {
	args := m.Called(ctx, destination, country)
	return args.Get(0).(types.LocationResolution), args.Error(1)
}

func (m *MockLocation) LookupCode(ctx context.Context, name string) (string, string) {
	args := m.Called(ctx, name)
	return args.String(0), args.String(1)
}

type MockFlight struct{ mock.Mock }

func (m *MockFlight) Quote(ctx context.Context, originCode, destinationCode, departureDate string) (*types.FlightOffer, error) {
	args := m.Called(ctx, originCode, destinationCode, departureDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.FlightOffer), args.Error(1)
}

type MockLodging struct{ mock.Mock }

func (m *MockLodging) Locate(ctx context.Context, point types.Coordinates, destination string) (*types.LodgingCandidate, error) {
	args := m.Called(ctx, point, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.LodgingCandidate), args.Error(1)
}

type MockPOI struct{ mock.Mock }

func (m *MockPOI) Aggregate(ctx context.Context, point types.Coordinates, preferences []string) ([]types.Activity, error) {
	args := m.Called(ctx, point, preferences)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Activity), args.Error(1)
}

type MockEnrich struct{ mock.Mock }

func (m *MockEnrich) Describe(ctx context.Context, destination string, names []string) (enrich.Outcome, error) {
	args := m.Called(ctx, destination, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(enrich.Outcome), args.Error(1)
}

func (m *MockEnrich) Enrich(ctx context.Context, destination string, activities []types.Activity) []types.Activity {
	args := m.Called(ctx, destination, activities)
	return args.Get(0).([]types.Activity)
}

type MockNarrator struct{ mock.Mock }

func (m *MockNarrator) Enabled() bool { return m.Called().Bool(0) }

func (m *MockNarrator) Narrate(ctx context.Context, it narration.Itinerary) (string, error) {
	args := m.Called(ctx, it)
	return args.String(0), args.Error(1)
}

type plannerMocks struct {
	intent   *MockIntent
	location *MockLocation
	flight   *MockFlight
	lodging  *MockLodging
	poi      *MockPOI
	enrich   *MockEnrich
	narrator *MockNarrator
}

func (m plannerMocks) assertExpectations(t *testing.T) {
	m.intent.AssertExpectations(t)
	m.location.AssertExpectations(t)
	m.flight.AssertExpectations(t)
	m.lodging.AssertExpectations(t)
	m.poi.AssertExpectations(t)
	m.enrich.AssertExpectations(t)
	m.narrator.AssertExpectations(t)
}

func setupPlannerTest(opts Options) (*ServiceImpl, plannerMocks) {
	m := plannerMocks{
		intent:   new(MockIntent),
		location: new(MockLocation),
		flight:   new(MockFlight),
		lodging:  new(MockLodging),
		poi:      new(MockPOI),
		enrich:   new(MockEnrich),
		narrator: new(MockNarrator),
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewServiceImpl(Dependencies{
		Intent:   m.intent,
		Location: m.location,
		Flight:   m.flight,
		Lodging:  m.lodging,
		POI:      m.poi,
		Enrich:   m.enrich,
		Narrator: m.narrator,
	}, opts, logger)
	return svc, m
}

var (
	hongKongTurns = []types.ConversationTurn{
		{Role: types.RoleUser, Content: "Plan a trip to Hong Kong from 2026-03-10 to 2026-03-14, budget $1500, I like museums"},
	}
	hongKongRequest = types.TripRequest{
		Origin:       "LAX",
		Destination:  "Hong Kong",
		StartDate:    "2026-03-10",
		EndDate:      "2026-03-14",
		DurationDays: 5,
		BudgetUSD:    1500,
		Preferences:  []string{"museums"},
	}
	hongKongLocation = types.LocationResolution{
		Latitude:     22.3193,
		Longitude:    114.1694,
		LocationCode: "HKG",
		CodeSource:   types.CodeSourceLive,
		Timezone:     "Asia/Hong_Kong",
	}
	hongKongPoint = types.Coordinates{Latitude: 22.3193, Longitude: 114.1694}
	cxOffer       = &types.FlightOffer{AirlineCode: "CX", Price: "812.40", Currency: "USD", DepartureCode: "LAX", ArrivalCode: "HKG"}
	harbourView   = &types.LodgingCandidate{Name: "Harbour View", Latitude: 22.30, Longitude: 114.17, Address: "4 Harbour Road", City: "Hong Kong"}
	rawActivities = []types.Activity{
		{Name: "Hong Kong Museum of Art", Description: "No description available."},
		{Name: "M+", Description: "No description available."},
	}
	enrichedActivities = []types.Activity{
		{Name: "Hong Kong Museum of Art", Description: "Chinese antiquities on the harbourfront."},
		{Name: "M+", Description: "Visual culture museum in West Kowloon."},
	}
)

func expectHappyPath(m plannerMocks) {
	m.intent.On("Extract", mock.Anything, hongKongTurns).Return(intent.Structured{Request: hongKongRequest}, nil)
	m.location.On("Resolve", mock.Anything, "Hong Kong", "").Return(hongKongLocation, nil)
	m.location.On("LookupCode", mock.Anything, "LAX").Return("LAX", types.CodeSourceLive)
	m.flight.On("Quote", mock.Anything, "LAX", "HKG", "2026-03-10").Return(cxOffer, nil)
	m.lodging.On("Locate", mock.Anything, hongKongPoint, "Hong Kong").Return(harbourView, nil)
	m.poi.On("Aggregate", mock.Anything, hongKongPoint, []string{"museums"}).Return(rawActivities, nil)
	m.enrich.On("Enrich", mock.Anything, "Hong Kong", rawActivities).Return(enrichedActivities)
	m.narrator.On("Enabled").Return(true)
	m.narrator.On("Narrate", mock.Anything, mock.AnythingOfType("narration.Itinerary")).Return("data:audio/mpeg;base64,YWJj", nil)
}

func TestPlan_Assembled(t *testing.T) {
	svc, m := setupPlannerTest(Options{})
	expectHappyPath(m)

	res := svc.Plan(context.Background(), hongKongTurns)

	assert.Equal(t, types.StateAssembled, res.State)
	assert.Equal(t, cxOffer, res.Flight)
	assert.Equal(t, harbourView, res.Lodging)
	assert.Equal(t, enrichedActivities, res.Activities)
	assert.Equal(t, "data:audio/mpeg;base64,YWJj", res.Audio)
	assert.Equal(t, "Asia/Hong_Kong", res.Timezone)
	require.NotNil(t, res.MapCenter)
	assert.Equal(t, types.Coordinates{Latitude: 22.30, Longitude: 114.17}, *res.MapCenter, "lodging coordinates win")
	assert.True(t, strings.HasPrefix(res.Calendar, "data:text/calendar;base64,"))
	assert.Equal(t, "Here's your 5-day trip to Hong Kong from 2026-03-10 to 2026-03-14, planned around a budget of $1,500."+
		" Best flight found: CX from LAX to HKG for 812.40 USD."+
		" You could stay at Harbour View."+
		" Things to do: Hong Kong Museum of Art and M+.", res.Reply)
	m.assertExpectations(t)
}

func TestPlan_Idempotent(t *testing.T) {
	svc, m := setupPlannerTest(Options{})
	expectHappyPath(m)

	first, err := json.Marshal(svc.Plan(context.Background(), hongKongTurns))
	require.NoError(t, err)
	second, err := json.Marshal(svc.Plan(context.Background(), hongKongTurns))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestPlan_Clarifying(t *testing.T) {
	svc, m := setupPlannerTest(Options{})
	turns := []types.ConversationTurn{{Role: types.RoleUser, Content: "I want to go to Hong Kong"}}
	m.intent.On("Extract", mock.Anything, turns).
		Return(intent.Clarification{Text: "When are you travelling and what's your budget?"}, nil).Once()

	res := svc.Plan(context.Background(), turns)

	assert.Equal(t, types.StateClarifying, res.State)
	assert.Equal(t, "When are you travelling and what's your budget?", res.Reply)
	assert.Nil(t, res.Flight)
	assert.Nil(t, res.Lodging)
	assert.Empty(t, res.Activities)
	assert.Nil(t, res.MapCenter)
	m.location.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
	m.flight.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.lodging.AssertNotCalled(t, "Locate", mock.Anything, mock.Anything, mock.Anything)
	m.poi.AssertNotCalled(t, "Aggregate", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlan_DestinationNotFound(t *testing.T) {
	svc, m := setupPlannerTest(Options{})
	req := hongKongRequest
	req.Destination = "Atlantis"
	m.intent.On("Extract", mock.Anything, hongKongTurns).Return(intent.Structured{Request: req}, nil).Once()
	m.location.On("Resolve", mock.Anything, "Atlantis", "").Return(types.LocationResolution{}, types.ErrNotFound).Once()

	res := svc.Plan(context.Background(), hongKongTurns)

	assert.Equal(t, types.StateFailed, res.State)
	assert.Equal(t, `Sorry, I couldn't find "Atlantis". Try including the country, e.g. "Atlantis, <country>".`, res.Reply)
	assert.Nil(t, res.MapCenter)
	m.flight.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPlan_GeocodingOutage(t *testing.T) {
	svc, m := setupPlannerTest(Options{})
	req := hongKongRequest
	req.Destination = "Paris"
	m.intent.On("Extract", mock.Anything, hongKongTurns).Return(intent.Structured{Request: req}, nil).Once()
	outage := fmt.Errorf("geocode %q: %w", "Paris", &types.TransportError{Provider: "geoapify", Operation: "geocode", Status: 503})
	m.location.On("Resolve", mock.Anything, "Paris", "").Return(types.LocationResolution{}, outage).Once()

	res := svc.Plan(context.Background(), hongKongTurns)

	assert.Equal(t, types.StateFailed, res.State)
	assert.Equal(t, unavailableReply, res.Reply)
	assert.NotContains(t, res.Reply, "couldn't find")
	assert.Nil(t, res.MapCenter)
	m.flight.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPlan_NoDestinationCodeSkipsFlight(t *testing.T) {
	svc, m := setupPlannerTest(Options{})
	loc := hongKongLocation
	loc.LocationCode = ""
	m.intent.On("Extract", mock.Anything, hongKongTurns).Return(intent.Structured{Request: hongKongRequest}, nil).Once()
	m.location.On("Resolve", mock.Anything, "Hong Kong", "").Return(loc, nil).Once()
	m.lodging.On("Locate", mock.Anything, hongKongPoint, "Hong Kong").Return(harbourView, nil).Once()
	m.poi.On("Aggregate", mock.Anything, hongKongPoint, []string{"museums"}).Return(nil, nil).Once()
	m.narrator.On("Enabled").Return(false)

	res := svc.Plan(context.Background(), hongKongTurns)

	assert.Equal(t, types.StateAssembled, res.State)
	assert.Nil(t, res.Flight)
	assert.Equal(t, harbourView, res.Lodging)
	m.location.AssertNotCalled(t, "LookupCode", mock.Anything, mock.Anything)
	m.flight.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBudget(t *testing.T) {
	t.Run("default step timeout", func(t *testing.T) {
		svc, _ := setupPlannerTest(Options{})
		assert.Equal(t, 70*time.Second, svc.Budget())
	})

	t.Run("configured step timeout", func(t *testing.T) {
		svc, _ := setupPlannerTest(Options{StepTimeout: 3 * time.Second})
		assert.Equal(t, 21*time.Second, svc.Budget())
	})
}

func TestPlan_ConfigurationErrors(t *testing.T) {
	t.Run("missing requirement short-circuits", func(t *testing.T) {
		svc, m := setupPlannerTest(Options{Requirements: []Requirement{
			{Subsystem: "language model", Configured: true},
			{Subsystem: "flight search", Configured: false},
		}})

		res := svc.Plan(context.Background(), hongKongTurns)

		assert.Equal(t, types.StateFailed, res.State)
		assert.Equal(t, "Sorry, trip planning is unavailable right now: the flight search service is not configured.", res.Reply)
		m.intent.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
	})

	t.Run("configuration error from extraction", func(t *testing.T) {
		svc, m := setupPlannerTest(Options{})
		m.intent.On("Extract", mock.Anything, hongKongTurns).
			Return(nil, &types.ConfigurationError{Subsystem: "language model"}).Once()

		res := svc.Plan(context.Background(), hongKongTurns)

		assert.Equal(t, types.StateFailed, res.State)
		assert.Equal(t, "Sorry, trip planning is unavailable right now: the language model service is not configured.", res.Reply)
	})

	t.Run("model failure is a generic apology", func(t *testing.T) {
		svc, m := setupPlannerTest(Options{})
		m.intent.On("Extract", mock.Anything, hongKongTurns).Return(nil, errors.New("503 from model")).Once()

		res := svc.Plan(context.Background(), hongKongTurns)

		assert.Equal(t, types.StateFailed, res.State)
		assert.Equal(t, unavailableReply, res.Reply)
		assert.NotContains(t, res.Reply, "503")
	})
}

func TestPlan_DegradedSteps(t *testing.T) {
	svc, m := setupPlannerTest(Options{DefaultOrigin: "Los Angeles"})
	req := hongKongRequest
	req.Origin = ""
	m.intent.On("Extract", mock.Anything, hongKongTurns).Return(intent.Structured{Request: req}, nil).Once()
	m.location.On("Resolve", mock.Anything, "Hong Kong", "").Return(hongKongLocation, nil).Once()
	m.location.On("LookupCode", mock.Anything, "Los Angeles").Return("LAX", types.CodeSourceFallback).Once()
	m.flight.On("Quote", mock.Anything, "LAX", "HKG", "2026-03-10").Return(nil, errors.New("amadeus 500")).Once()
	m.lodging.On("Locate", mock.Anything, hongKongPoint, "Hong Kong").Return(nil, nil).Once()
	m.poi.On("Aggregate", mock.Anything, hongKongPoint, []string{"museums"}).Return(nil, errors.New("geoapify timeout")).Once()
	m.narrator.On("Enabled").Return(false)

	res := svc.Plan(context.Background(), hongKongTurns)

	assert.Equal(t, types.StateAssembled, res.State)
	assert.Nil(t, res.Flight)
	assert.Nil(t, res.Lodging)
	assert.Empty(t, res.Activities)
	assert.Empty(t, res.Audio)
	require.NotNil(t, res.MapCenter)
	assert.Equal(t, hongKongPoint, *res.MapCenter, "geocoded point when no lodging")
	assert.Contains(t, res.Reply, "I couldn't find a flight quote")
	assert.Contains(t, res.Reply, "I couldn't find a hotel nearby")
	m.enrich.AssertNotCalled(t, "Enrich", mock.Anything, mock.Anything, mock.Anything)
	m.narrator.AssertNotCalled(t, "Narrate", mock.Anything, mock.Anything)
}

func TestPlan_NarrationFailureIsOmitted(t *testing.T) {
	svc, m := setupPlannerTest(Options{})
	m.intent.On("Extract", mock.Anything, hongKongTurns).Return(intent.Structured{Request: hongKongRequest}, nil)
	m.location.On("Resolve", mock.Anything, "Hong Kong", "").Return(hongKongLocation, nil)
	m.location.On("LookupCode", mock.Anything, "LAX").Return("LAX", types.CodeSourceLive)
	m.flight.On("Quote", mock.Anything, "LAX", "HKG", "2026-03-10").Return(cxOffer, nil)
	m.lodging.On("Locate", mock.Anything, hongKongPoint, "Hong Kong").Return(harbourView, nil)
	m.poi.On("Aggregate", mock.Anything, hongKongPoint, []string{"museums"}).Return(rawActivities, nil)
	m.enrich.On("Enrich", mock.Anything, "Hong Kong", rawActivities).Return(rawActivities)
	m.narrator.On("Enabled").Return(true)
	m.narrator.On("Narrate", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Once()

	res := svc.Plan(context.Background(), hongKongTurns)

	assert.Equal(t, types.StateAssembled, res.State)
	assert.Empty(t, res.Audio)
	assert.Equal(t, rawActivities, res.Activities)
}

func TestPlan_StepTimeout(t *testing.T) {
	svc, m := setupPlannerTest(Options{StepTimeout: 20 * time.Millisecond})
	m.intent.On("Extract", mock.Anything, hongKongTurns).Return(intent.Structured{Request: hongKongRequest}, nil)
	m.location.On("Resolve", mock.Anything, "Hong Kong", "").Return(hongKongLocation, nil)
	m.location.On("LookupCode", mock.Anything, "LAX").Return("LAX", types.CodeSourceLive)
	m.flight.On("Quote", mock.Anything, "LAX", "HKG", "2026-03-10").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()
	m.lodging.On("Locate", mock.Anything, hongKongPoint, "Hong Kong").Return(harbourView, nil)
	m.poi.On("Aggregate", mock.Anything, hongKongPoint, []string{"museums"}).Return(rawActivities, nil)
	m.enrich.On("Enrich", mock.Anything, "Hong Kong", rawActivities).Return(rawActivities)
	m.narrator.On("Enabled").Return(false)

	res := svc.Plan(context.Background(), hongKongTurns)

	assert.Equal(t, types.StateAssembled, res.State)
	assert.Nil(t, res.Flight)
	assert.Equal(t, harbourView, res.Lodging)
}

func TestBuildCalendar(t *testing.T) {
	uri, err := buildCalendar(hongKongRequest, hongKongLocation, cxOffer, harbourView)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:text/calendar;base64,"))
	require.NoError(t, err)
	doc := string(raw)

	assert.Contains(t, doc, "BEGIN:VCALENDAR")
	assert.Contains(t, doc, "X-WR-TIMEZONE:Asia/Hong_Kong")
	assert.Contains(t, doc, "UID:stay-hongkong-2026-03-10@go-trip-planner")
	assert.Contains(t, doc, "UID:flight-hongkong-2026-03-10@go-trip-planner")
	assert.Contains(t, doc, "DTSTART;VALUE=DATE:20260310")
	assert.Contains(t, doc, "DTEND;VALUE=DATE:20260315")
	assert.Contains(t, doc, "Flight LAX to HKG")

	again, err := buildCalendar(hongKongRequest, hongKongLocation, cxOffer, harbourView)
	require.NoError(t, err)
	assert.Equal(t, uri, again)

	t.Run("bad dates", func(t *testing.T) {
		req := hongKongRequest
		req.StartDate = "March"
		_, err := buildCalendar(req, hongKongLocation, nil, nil)
		assert.Error(t, err)
	})
}
