package types

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one message of the chat transcript, in the shape the chat UI posts it.
type ConversationTurn struct {
	Role    string `json:"role" example:"user"`
	Content string `json:"content" example:"Plan a trip to Hong Kong in March for $1500"`
}

// PlanRequest is the body of POST /api/plan.
type PlanRequest struct {
	Messages []ConversationTurn `json:"messages"`
}

// TripRequest holds the trip parameters extracted from the conversation.
// It is built once per pipeline run and only read afterwards.
type TripRequest struct {
	Origin       string   `json:"origin"`
	Destination  string   `json:"destination"`
	Country      string   `json:"country,omitempty"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	DurationDays int      `json:"duration_days"`
	BudgetUSD    float64  `json:"budget_usd"`
	Preferences  []string `json:"preferences"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// LocationResolution combines two independent lookups: geocoded coordinates and the
// airline location code. LocationCode is empty when neither the live lookup nor the
// fallback table knows the destination.
type LocationResolution struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	LocationCode string  `json:"location_code,omitempty"`
	CodeSource   string  `json:"code_source,omitempty"`
	Timezone     string  `json:"timezone,omitempty"`
}

const (
	CodeSourceLive     = "live"
	CodeSourceFallback = "fallback"
)

type FlightOffer struct {
	AirlineCode   string `json:"airline"`
	Price         string `json:"price"`
	Currency      string `json:"currency"`
	DepartureCode string `json:"departure"`
	ArrivalCode   string `json:"arrival"`
}

type LodgingCandidate struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	City      string  `json:"city"`
}

// Activity is a point of interest near the destination. Description starts as the
// provider fallback text and may be replaced once by the enrichment step.
type Activity struct {
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// PipelineResult is the terminal value of one planning run.
type PipelineResult struct {
	Reply      string            `json:"reply"`
	Flight     *FlightOffer      `json:"flight,omitempty"`
	Lodging    *LodgingCandidate `json:"hotel,omitempty"`
	Activities []Activity        `json:"activities,omitempty"`
	MapCenter  *Coordinates      `json:"mapCenter,omitempty"`
	Audio      string            `json:"audio,omitempty"`
	Timezone   string            `json:"timezone,omitempty"`
	Calendar   string            `json:"calendar,omitempty"`
	State      PlanState         `json:"-"`
}

// PlanState names the orchestrator states a run passes through.
type PlanState string

const (
	StateExtracting        PlanState = "EXTRACTING"
	StateClarifying        PlanState = "CLARIFYING"
	StateExtracted         PlanState = "EXTRACTED"
	StateResolvingLocation PlanState = "RESOLVING_LOCATION"
	StateResolved          PlanState = "RESOLVED"
	StateFetchingFlight    PlanState = "FETCHING_FLIGHT"
	StateFetchingLodging   PlanState = "FETCHING_LODGING"
	StateAggregatingPOIs   PlanState = "AGGREGATING_POIS"
	StateEnriching         PlanState = "ENRICHING"
	StateSynthesizing      PlanState = "SYNTHESIZING"
	StateAssembled         PlanState = "ASSEMBLED"
	StateFailed            PlanState = "FAILED"
)

// Terminal reports whether no further step runs after s.
func (s PlanState) Terminal() bool {
	return s == StateClarifying || s == StateFailed || s == StateAssembled
}
