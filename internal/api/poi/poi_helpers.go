package poi

import (
	"strings"

	"github.com/samber/lo"

	"github.com/FACorreiaa/go-trip-planner/internal/api/geoapify"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const noDescription = "No description available."

// fallbackDescription picks the first non-empty of the wiki extract, the formatted
// address and the joined details.
func fallbackDescription(p geoapify.Properties) string {
	details := strings.Join(lo.Compact(p.Details), ", ")
	for _, candidate := range []string{p.WikiAndMedia.Extract, p.Formatted, details} {
		if c := strings.TrimSpace(candidate); c != "" {
			return c
		}
	}
	return noDescription
}

// toActivities converts features in provider order, dropping unnamed ones, up to limit.
func toActivities(features []geoapify.Feature, limit int) []types.Activity {
	activities := lo.FilterMap(features, func(f geoapify.Feature, _ int) (types.Activity, bool) {
		p := f.Properties
		name := strings.TrimSpace(lo.CoalesceOrEmpty(p.Name, p.AddressLine1))
		if name == "" {
			return types.Activity{}, false
		}
		lat, lon := p.Lat, p.Lon
		if lat == 0 && lon == 0 {
			if point, ok := f.Point(); ok {
				lat, lon = point.Latitude, point.Longitude
			}
		}
		return types.Activity{
			Name:        name,
			Address:     lo.CoalesceOrEmpty(p.Formatted, strings.Join(lo.Compact([]string{p.AddressLine1, p.AddressLine2}), ", ")),
			Description: fallbackDescription(p),
			Latitude:    lat,
			Longitude:   lon,
		}, true
	})
	if len(activities) > limit {
		activities = activities[:limit]
	}
	return activities
}
