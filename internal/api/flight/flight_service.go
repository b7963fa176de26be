// Package flight turns an origin, a destination code and a date into a flight quote.
package flight

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/api/amadeus"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const unknownAirline = "Unknown"

type OfferSearcher interface {
	SearchFlightOffers(ctx context.Context, q amadeus.FlightQuery) ([]amadeus.FlightOffer, error)
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Quote(ctx context.Context, originCode, destinationCode, departureDate string) (*types.FlightOffer, error)
}

type ServiceImpl struct {
	offers OfferSearcher
	logger *slog.Logger
}

func NewServiceImpl(offers OfferSearcher, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{offers: offers, logger: logger}
}

// Quote returns the first offer for the route, or nil when either code is missing or the
// provider has no offers. Errors are authentication and transport failures.
func (s *ServiceImpl) Quote(ctx context.Context, originCode, destinationCode, departureDate string) (*types.FlightOffer, error) {
	ctx, span := otel.Tracer("FlightService").Start(ctx, "Quote", trace.WithAttributes(
		attribute.String("origin", originCode),
		attribute.String("destination", destinationCode),
		attribute.String("departure_date", departureDate),
	))
	defer span.End()

	if originCode == "" || destinationCode == "" {
		s.logger.InfoContext(ctx, "Skipping flight search without location codes",
			slog.String("origin", originCode),
			slog.String("destination", destinationCode))
		span.SetStatus(codes.Ok, "Skipped")
		return nil, nil
	}

	offers, err := s.offers.SearchFlightOffers(ctx, amadeus.FlightQuery{
		Origin:        originCode,
		Destination:   destinationCode,
		DepartureDate: departureDate,
		Adults:        1,
		Max:           1,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Flight search failed")
		return nil, fmt.Errorf("flight offers %s-%s: %w", originCode, destinationCode, err)
	}
	if len(offers) == 0 {
		s.logger.WarnContext(ctx, "No flight offers found",
			slog.String("origin", originCode),
			slog.String("destination", destinationCode),
			slog.String("date", departureDate))
		span.SetStatus(codes.Ok, "No offers")
		return nil, nil
	}

	offer := summarize(offers[0])
	span.SetAttributes(attribute.String("flight.airline", offer.AirlineCode))
	span.SetStatus(codes.Ok, "Offer found")
	return &offer, nil
}

// summarize reads the departure from the first segment and the arrival from the last
// segment of the first itinerary, so connecting flights report their final stop.
func summarize(o amadeus.FlightOffer) types.FlightOffer {
	out := types.FlightOffer{
		AirlineCode: unknownAirline,
		Price:       o.Price.Total,
		Currency:    o.Price.Currency,
	}
	if len(o.ValidatingAirlineCodes) > 0 && o.ValidatingAirlineCodes[0] != "" {
		out.AirlineCode = o.ValidatingAirlineCodes[0]
	}
	if out.Price == "" {
		out.Price = o.Price.GrandTotal
	}
	if len(o.Itineraries) > 0 {
		if segs := o.Itineraries[0].Segments; len(segs) > 0 {
			out.DepartureCode = segs[0].Departure.IataCode
			out.ArrivalCode = segs[len(segs)-1].Arrival.IataCode
		}
	}
	return out
}
