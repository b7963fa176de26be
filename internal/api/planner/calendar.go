package planner

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/FACorreiaa/go-trip-planner/internal/api/catalog"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// buildCalendar renders the trip as an iCalendar document: one all-day event for the stay
// and, when a flight was quoted, one for the departure day. UIDs and stamps are derived
// from the trip so the same plan always produces the same document.
func buildCalendar(req types.TripRequest, loc types.LocationResolution, flight *types.FlightOffer, lodging *types.LodgingCandidate) (string, error) {
	start, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		return "", fmt.Errorf("calendar start date: %w", err)
	}
	end, err := time.Parse(time.DateOnly, req.EndDate)
	if err != nil {
		return "", fmt.Errorf("calendar end date: %w", err)
	}

	slug := catalog.NormalizeLocation(req.Destination)
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//go-trip-planner//trip plan//EN")
	cal.SetXWRCalName("Trip to " + req.Destination)
	if loc.Timezone != "" {
		cal.SetXWRTimezone(loc.Timezone)
	}

	stay := cal.AddEvent(fmt.Sprintf("stay-%s-%s@go-trip-planner", slug, req.StartDate))
	stay.SetDtStampTime(start)
	stay.SetSummary("Trip to " + req.Destination)
	stay.SetAllDayStartAt(start)
	stay.SetAllDayEndAt(end.AddDate(0, 0, 1))
	if lodging != nil {
		stay.SetLocation(strings.Join([]string{lodging.Name, lodging.Address}, ", "))
		stay.SetDescription("Staying at " + lodging.Name)
	} else {
		stay.SetLocation(req.Destination)
	}

	if flight != nil {
		fl := cal.AddEvent(fmt.Sprintf("flight-%s-%s@go-trip-planner", slug, req.StartDate))
		fl.SetDtStampTime(start)
		fl.SetSummary(fmt.Sprintf("Flight %s to %s", flight.DepartureCode, flight.ArrivalCode))
		fl.SetAllDayStartAt(start)
		fl.SetAllDayEndAt(start.AddDate(0, 0, 1))
		fl.SetDescription(fmt.Sprintf("%s, %s %s", flight.AirlineCode, flight.Price, flight.Currency))
	}

	return "data:text/calendar;base64," + base64.StdEncoding.EncodeToString([]byte(cal.Serialize())), nil
}
