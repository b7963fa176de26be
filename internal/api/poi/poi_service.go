// Package poi aggregates points of interest around the destination into activities.
package poi

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/api/catalog"
	"github.com/FACorreiaa/go-trip-planner/internal/api/geoapify"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const (
	SearchRadiusM = 8000
	MaxActivities = 5
)

type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, q geoapify.PlacesQuery) ([]geoapify.Feature, error)
}

type CategoryMapper interface {
	CategoryFilter(preferences []string) string
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Aggregate(ctx context.Context, point types.Coordinates, preferences []string) ([]types.Activity, error)
}

type ServiceImpl struct {
	places     PlaceSearcher
	categories CategoryMapper
	logger     *slog.Logger
}

func NewServiceImpl(places PlaceSearcher, categories CategoryMapper, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{places: places, categories: categories, logger: logger}
}

// Aggregate searches the mapped categories around point. When that yields nothing it
// searches again with the generic attraction category, same radius and limit.
func (s *ServiceImpl) Aggregate(ctx context.Context, point types.Coordinates, preferences []string) ([]types.Activity, error) {
	filter := s.categories.CategoryFilter(preferences)
	ctx, span := otel.Tracer("POIService").Start(ctx, "Aggregate", trace.WithAttributes(
		attribute.String("categories", filter),
		attribute.StringSlice("preferences", preferences),
	))
	defer span.End()

	features, err := s.search(ctx, filter, point)
	if err != nil {
		s.logger.WarnContext(ctx, "Categorized place search failed", slog.String("categories", filter), slog.Any("error", err))
	}

	if len(features) == 0 && filter != catalog.GenericCategory {
		s.logger.InfoContext(ctx, "No places for mapped categories, widening to generic category",
			slog.String("categories", filter))
		span.AddEvent("generic_fallback")
		features, err = s.search(ctx, catalog.GenericCategory, point)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Place search failed")
		return nil, fmt.Errorf("place search: %w", err)
	}

	activities := toActivities(features, MaxActivities)
	span.SetAttributes(attribute.Int("activities.count", len(activities)))
	span.SetStatus(codes.Ok, "Activities aggregated")
	return activities, nil
}

func (s *ServiceImpl) search(ctx context.Context, filter string, point types.Coordinates) ([]geoapify.Feature, error) {
	return s.places.SearchPlaces(ctx, geoapify.PlacesQuery{
		Categories: filter,
		Center:     point,
		RadiusM:    SearchRadiusM,
		Limit:      MaxActivities,
	})
}
