// Package lodging finds a hotel near the resolved destination.
package lodging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/api/amadeus"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// SearchRadiusKM is the radius around the destination searched for hotels.
const SearchRadiusKM = 5

type HotelFinder interface {
	HotelsByGeocode(ctx context.Context, lat, lon float64, radiusKM int) ([]amadeus.Hotel, error)
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Locate(ctx context.Context, point types.Coordinates, destination string) (*types.LodgingCandidate, error)
}

type ServiceImpl struct {
	hotels HotelFinder
	logger *slog.Logger
}

func NewServiceImpl(hotels HotelFinder, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{hotels: hotels, logger: logger}
}

// Locate returns the first hotel near point, or nil when there is none. destination is
// used as the city when the provider omits it.
func (s *ServiceImpl) Locate(ctx context.Context, point types.Coordinates, destination string) (*types.LodgingCandidate, error) {
	ctx, span := otel.Tracer("LodgingService").Start(ctx, "Locate", trace.WithAttributes(
		attribute.Float64("lat", point.Latitude),
		attribute.Float64("lon", point.Longitude),
		attribute.Int("radius_km", SearchRadiusKM),
	))
	defer span.End()

	hotels, err := s.hotels.HotelsByGeocode(ctx, point.Latitude, point.Longitude, SearchRadiusKM)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Hotel search failed")
		return nil, fmt.Errorf("hotels near %s: %w", destination, err)
	}
	if len(hotels) == 0 {
		s.logger.WarnContext(ctx, "No hotels found near destination", slog.String("destination", destination))
		span.SetStatus(codes.Ok, "No hotels")
		return nil, nil
	}

	h := hotels[0]
	lines := lo.Compact(lo.Map(h.Address.Lines, func(l string, _ int) string { return strings.TrimSpace(l) }))
	candidate := &types.LodgingCandidate{
		Name:      h.Name,
		Latitude:  h.GeoCode.Latitude,
		Longitude: h.GeoCode.Longitude,
		Address:   strings.Join(lines, ", "),
		City:      lo.Ternary(h.Address.CityName != "", h.Address.CityName, destination),
	}
	span.SetAttributes(attribute.String("hotel.name", candidate.Name))
	span.SetStatus(codes.Ok, "Hotel found")
	return candidate, nil
}
