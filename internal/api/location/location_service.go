// Package location resolves a destination name to coordinates and an airline location code.
package location

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type Geocoder interface {
	Geocode(ctx context.Context, text string) (types.Coordinates, error)
}

type CityCodeFinder interface {
	SearchCityCode(ctx context.Context, keyword string) (string, error)
}

// CodeTable is the offline fallback for location codes.
type CodeTable interface {
	LocationCode(destination string) (string, bool)
}

type TimezoneFinder interface {
	GetTimezoneName(lng float64, lat float64) string
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Resolve(ctx context.Context, destination, country string) (types.LocationResolution, error)
	LookupCode(ctx context.Context, name string) (code string, source string)
}

type ServiceImpl struct {
	geocoder Geocoder
	cities   CityCodeFinder
	table    CodeTable
	zones    TimezoneFinder
	logger   *slog.Logger
}

// NewServiceImpl wires the resolver. zones may be nil, in which case no timezone is reported.
func NewServiceImpl(geocoder Geocoder, cities CityCodeFinder, table CodeTable, zones TimezoneFinder, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		geocoder: geocoder,
		cities:   cities,
		table:    table,
		zones:    zones,
		logger:   logger,
	}
}

// Resolve geocodes the destination and looks up its location code. Geocoding failure is
// returned as an error; a missing code only leaves LocationCode empty.
func (s *ServiceImpl) Resolve(ctx context.Context, destination, country string) (types.LocationResolution, error) {
	ctx, span := otel.Tracer("LocationService").Start(ctx, "Resolve", trace.WithAttributes(
		attribute.String("destination", destination),
		attribute.String("country", country),
	))
	defer span.End()

	query := strings.TrimSpace(destination)
	if c := strings.TrimSpace(country); c != "" {
		query = fmt.Sprintf("%s, %s", query, c)
	}

	point, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Geocoding failed")
		return types.LocationResolution{}, fmt.Errorf("resolve %q: %w", destination, err)
	}

	res := types.LocationResolution{Latitude: point.Latitude, Longitude: point.Longitude}
	res.LocationCode, res.CodeSource = s.LookupCode(ctx, destination)

	if s.zones != nil {
		res.Timezone = s.zones.GetTimezoneName(point.Longitude, point.Latitude)
	}

	span.SetAttributes(
		attribute.String("location.code", res.LocationCode),
		attribute.String("location.code_source", res.CodeSource),
		attribute.String("location.timezone", res.Timezone),
	)
	span.SetStatus(codes.Ok, "Location resolved")
	return res, nil
}

// LookupCode returns the location code for a place name: a value that already looks like
// a three-letter code is used as is, then the live city search, then the fallback table.
// Both results are empty when nothing matches.
func (s *ServiceImpl) LookupCode(ctx context.Context, destination string) (string, string) {
	if isLocationCode(destination) {
		return strings.ToUpper(destination), types.CodeSourceLive
	}
	code, err := s.cities.SearchCityCode(ctx, destination)
	if err == nil && code != "" {
		return code, types.CodeSourceLive
	}
	s.logger.WarnContext(ctx, "Live location code lookup failed, trying fallback table",
		slog.String("destination", destination),
		slog.Any("error", err))

	if code, ok := s.table.LocationCode(destination); ok {
		return code, types.CodeSourceFallback
	}
	s.logger.WarnContext(ctx, "No location code for destination, flight search will be skipped",
		slog.String("destination", destination))
	return "", ""
}

func isLocationCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
