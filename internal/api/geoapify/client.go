// Package geoapify wraps the Geoapify geocoding and places APIs.
package geoapify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/api/provider"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type featureCollection struct {
	Features []Feature `json:"features"`
}

type Feature struct {
	Geometry struct {
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
	Properties Properties `json:"properties"`
}

type Properties struct {
	Name         string   `json:"name"`
	Formatted    string   `json:"formatted"`
	AddressLine1 string   `json:"address_line1"`
	AddressLine2 string   `json:"address_line2"`
	City         string   `json:"city"`
	Country      string   `json:"country"`
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	Categories   []string `json:"categories"`
	Details      []string `json:"details"`
	WikiAndMedia struct {
		Extract string `json:"extract"`
	} `json:"wiki_and_media"`
}

// Point returns the feature's [lon, lat] geometry as coordinates. ok is false when the
// geometry holds fewer than two numbers.
func (f Feature) Point() (types.Coordinates, bool) {
	var pair []float64
	if err := json.Unmarshal(f.Geometry.Coordinates, &pair); err != nil || len(pair) < 2 {
		return types.Coordinates{}, false
	}
	return types.Coordinates{Latitude: pair[1], Longitude: pair[0]}, true
}

type Client struct {
	http   *provider.Client
	apiKey config.Secret
	logger *slog.Logger
}

func NewClient(hc *provider.Client, apiKey config.Secret, logger *slog.Logger) *Client {
	return &Client{http: hc, apiKey: apiKey, logger: logger}
}

func (c *Client) Configured() bool { return c.apiKey.IsSet() }

// Geocode returns the coordinates of the first feature matching text. It fails with
// types.ErrNotFound when there is no feature or its geometry is malformed.
func (c *Client) Geocode(ctx context.Context, text string) (types.Coordinates, error) {
	if !c.Configured() {
		return types.Coordinates{}, &types.ConfigurationError{Subsystem: "geoapify"}
	}

	var res featureCollection
	err := provider.Retry(ctx, func() error {
		return c.http.DoJSON(ctx, "geocode", http.MethodGet, "/v1/geocode/search", func(r *resty.Request) {
			r.SetQueryParams(map[string]string{
				"text":   text,
				"limit":  "1",
				"format": "geojson",
				"apiKey": c.apiKey.Reveal(),
			})
		}, &res)
	})
	if err != nil {
		return types.Coordinates{}, err
	}
	if len(res.Features) == 0 {
		return types.Coordinates{}, fmt.Errorf("geocode %q: %w", text, types.ErrNotFound)
	}
	point, ok := res.Features[0].Point()
	if !ok {
		return types.Coordinates{}, fmt.Errorf("geocode %q: malformed coordinates: %w", text, types.ErrNotFound)
	}
	return point, nil
}

type PlacesQuery struct {
	Categories string
	Center     types.Coordinates
	RadiusM    int
	Limit      int
}

// SearchPlaces lists places of the given categories inside a circle around Center.
func (c *Client) SearchPlaces(ctx context.Context, q PlacesQuery) ([]Feature, error) {
	if !c.Configured() {
		return nil, &types.ConfigurationError{Subsystem: "geoapify"}
	}

	lon := strconv.FormatFloat(q.Center.Longitude, 'f', -1, 64)
	lat := strconv.FormatFloat(q.Center.Latitude, 'f', -1, 64)

	var res featureCollection
	err := c.http.DoJSON(ctx, "places", http.MethodGet, "/v2/places", func(r *resty.Request) {
		r.SetQueryParams(map[string]string{
			"categories": q.Categories,
			"filter":     fmt.Sprintf("circle:%s,%s,%d", lon, lat, q.RadiusM),
			"bias":       fmt.Sprintf("proximity:%s,%s", lon, lat),
			"limit":      strconv.Itoa(q.Limit),
			"apiKey":     c.apiKey.Reveal(),
		})
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.Features, nil
}
