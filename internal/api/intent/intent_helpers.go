package intent

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// startDay is the day of month assumed when only the month of travel is known.
const startDay = 10

// modelIntent is the JSON object the model emits once the trip is fully described.
// Numeric fields are untyped because models return both numbers and strings for them.
type modelIntent struct {
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	Country      string `json:"country"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	DurationDays any    `json:"duration_days"`
	BudgetUSD    any    `json:"budget_usd"`
	Preferences  any    `json:"preferences"`
	TravelMonth  string `json:"travel_month"`
}

// coerceBudget accepts a number, or a string from which every character other than
// digits and dots is stripped ("$1,500" -> 1500).
func coerceBudget(v any) (float64, bool) {
	switch b := v.(type) {
	case float64:
		return b, b > 0
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' {
				return r
			}
			return -1
		}, b)
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || f <= 0 {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// coerceDuration accepts a number, or the first run of digits in a string ("5 days" -> 5).
func coerceDuration(v any) (int, bool) {
	switch d := v.(type) {
	case float64:
		n := int(d)
		return n, n > 0
	case string:
		start := strings.IndexFunc(d, unicode.IsDigit)
		if start < 0 {
			return 0, false
		}
		end := start
		for end < len(d) && d[end] >= '0' && d[end] <= '9' {
			end++
		}
		n, err := strconv.Atoi(d[start:end])
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func coercePreferences(v any) []string {
	var raw []string
	switch p := v.(type) {
	case []any:
		for _, item := range p {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.Split(p, ",")
	}

	prefs := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			prefs = append(prefs, s)
		}
	}
	return prefs
}

var monthLayouts = []string{"January", "Jan", "01", "1"}

func parseMonth(s string) (time.Month, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return t.Month(), true
	}
	title := strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, title); err == nil {
			return t.Month(), true
		}
	}
	return 0, false
}

// nextOccurrence returns day 10 of the next month m, counting the current month as next.
func nextOccurrence(m time.Month, now time.Time) time.Time {
	year := now.Year()
	if m < now.Month() {
		year++
	}
	return time.Date(year, m, startDay, 0, 0, 0, 0, time.UTC)
}

// resolveStart applies the date policy: an exact date wins; a year-month becomes day 10 of
// that month; a bare month becomes day 10 of its next occurrence.
func resolveStart(startDate, travelMonth string, now time.Time) (time.Time, bool) {
	startDate = strings.TrimSpace(startDate)
	if t, err := time.Parse(time.DateOnly, startDate); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01", startDate); err == nil {
		return time.Date(t.Year(), t.Month(), startDay, 0, 0, 0, 0, time.UTC), true
	}
	for _, candidate := range []string{travelMonth, startDate} {
		if m, ok := parseMonth(candidate); ok {
			return nextOccurrence(m, now), true
		}
	}
	return time.Time{}, false
}

// toTripRequest validates and normalizes the model's object. missing names the required
// fields that could not be established, in the order they are asked for.
func toTripRequest(m modelIntent, now time.Time, defaultDuration int) (req types.TripRequest, missing []string) {
	req.Origin = strings.TrimSpace(m.Origin)
	req.Destination = strings.TrimSpace(m.Destination)
	req.Country = strings.TrimSpace(m.Country)
	req.Preferences = coercePreferences(m.Preferences)

	if req.Destination == "" {
		missing = append(missing, "destination")
	}

	start, haveStart := resolveStart(m.StartDate, m.TravelMonth, now)
	if !haveStart {
		missing = append(missing, "travel dates")
	}

	budget, haveBudget := coerceBudget(m.BudgetUSD)
	if !haveBudget {
		missing = append(missing, "budget")
	}
	req.BudgetUSD = budget

	if !haveStart {
		return req, missing
	}

	duration, haveDuration := coerceDuration(m.DurationDays)
	if !haveDuration {
		duration = defaultDuration
	}
	end, err := time.Parse(time.DateOnly, strings.TrimSpace(m.EndDate))
	if err == nil && !end.Before(start) {
		duration = int(end.Sub(start).Hours()/24) + 1
	} else {
		end = start.AddDate(0, 0, duration-1)
	}

	req.StartDate = start.Format(time.DateOnly)
	req.EndDate = end.Format(time.DateOnly)
	req.DurationDays = duration
	return req, missing
}
