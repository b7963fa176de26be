// Package amadeus talks to the Amadeus self-service APIs: OAuth token exchange, city
// search, flight offers and hotels by geocode.
package amadeus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/api/provider"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const (
	tokenKey    = "access_token"
	tokenMargin = 30 * time.Second
)

type Credentials struct {
	ClientID     config.Secret
	ClientSecret config.Secret
}

type Client struct {
	http   *provider.Client
	creds  Credentials
	tokens *cache.Cache
	group  singleflight.Group
	logger *slog.Logger
}

func NewClient(hc *provider.Client, creds Credentials, logger *slog.Logger) *Client {
	return &Client{
		http:   hc,
		creds:  creds,
		tokens: cache.New(cache.NoExpiration, 10*time.Minute),
		logger: logger,
	}
}

// Configured reports whether both halves of the client credential are present.
func (c *Client) Configured() bool {
	return c.creds.ClientID.IsSet() && c.creds.ClientSecret.IsSet()
}

// Token returns a bearer token, exchanging the client credential when the cached one is
// missing or about to expire. Concurrent callers share a single exchange.
func (c *Client) Token(ctx context.Context) (string, error) {
	if !c.Configured() {
		return "", &types.ConfigurationError{Subsystem: "amadeus"}
	}
	if tok, ok := c.tokens.Get(tokenKey); ok {
		return tok.(string), nil
	}

	v, err, _ := c.group.Do(tokenKey, func() (any, error) {
		if tok, ok := c.tokens.Get(tokenKey); ok {
			return tok.(string), nil
		}

		var res tokenResponse
		err := provider.Retry(ctx, func() error {
			return c.http.DoJSON(ctx, "token", http.MethodPost, "/v1/security/oauth2/token", func(r *resty.Request) {
				r.SetFormData(map[string]string{
					"grant_type":    "client_credentials",
					"client_id":     c.creds.ClientID.Reveal(),
					"client_secret": c.creds.ClientSecret.Reveal(),
				})
			}, &res)
		})
		if err != nil {
			return "", fmt.Errorf("%w: %w", types.ErrAuthentication, err)
		}
		if res.AccessToken == "" {
			return "", fmt.Errorf("%w: token response carried no access token", types.ErrAuthentication)
		}

		if ttl := time.Duration(res.ExpiresIn)*time.Second - tokenMargin; ttl > 0 {
			c.tokens.Set(tokenKey, res.AccessToken, ttl)
		}
		c.logger.DebugContext(ctx, "Obtained access token", slog.Int("expires_in", res.ExpiresIn))
		return res.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) get(ctx context.Context, operation, path string, params map[string]string, out any) error {
	token, err := c.Token(ctx)
	if err != nil {
		return err
	}
	err = c.http.DoJSON(ctx, operation, http.MethodGet, path, func(r *resty.Request) {
		r.SetAuthToken(token).SetQueryParams(params)
	}, out)

	var te *types.TransportError
	if errors.As(err, &te) && te.Status == http.StatusUnauthorized {
		c.tokens.Delete(tokenKey)
	}
	return err
}

// SearchCityCode returns the airline location code of the first city matching keyword.
func (c *Client) SearchCityCode(ctx context.Context, keyword string) (string, error) {
	var res locationsResponse
	err := c.get(ctx, "city_search", "/v1/reference-data/locations/cities", map[string]string{
		"keyword": keyword,
		"max":     "1",
	}, &res)
	if err != nil {
		return "", err
	}
	if len(res.Data) == 0 || res.Data[0].IataCode == "" {
		return "", types.ErrNotFound
	}
	return res.Data[0].IataCode, nil
}

type FlightQuery struct {
	Origin        string
	Destination   string
	DepartureDate string
	Adults        int
	Max           int
}

// SearchFlightOffers returns offers in provider order. An empty slice is not an error.
func (c *Client) SearchFlightOffers(ctx context.Context, q FlightQuery) ([]FlightOffer, error) {
	if q.Adults <= 0 {
		q.Adults = 1
	}
	if q.Max <= 0 {
		q.Max = 1
	}
	var res flightOffersResponse
	err := c.get(ctx, "flight_offers", "/v2/shopping/flight-offers", map[string]string{
		"originLocationCode":      q.Origin,
		"destinationLocationCode": q.Destination,
		"departureDate":           q.DepartureDate,
		"adults":                  strconv.Itoa(q.Adults),
		"max":                     strconv.Itoa(q.Max),
		"currencyCode":            "USD",
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// HotelsByGeocode lists hotels within radiusKM of the point, in provider order.
func (c *Client) HotelsByGeocode(ctx context.Context, lat, lon float64, radiusKM int) ([]Hotel, error) {
	var res hotelsResponse
	err := c.get(ctx, "hotels_by_geocode", "/v1/reference-data/locations/hotels/by-geocode", map[string]string{
		"latitude":   strconv.FormatFloat(lat, 'f', -1, 64),
		"longitude":  strconv.FormatFloat(lon, 'f', -1, 64),
		"radius":     strconv.Itoa(radiusKM),
		"radiusUnit": "KM",
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}
