package location

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/internal/api/catalog"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Geocode(ctx context.Context, text string) (types.Coordinates, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(types.Coordinates), args.Error(1)
}

type MockCityCodeFinder struct {
	mock.Mock
}

func (m *MockCityCodeFinder) SearchCityCode(ctx context.Context, keyword string) (string, error) {
	args := m.Called(ctx, keyword)
	return args.String(0), args.Error(1)
}

type fixedZone string

func (z fixedZone) GetTimezoneName(lng, lat float64) string { return string(z) }

var hongKong = types.Coordinates{Latitude: 22.3193, Longitude: 114.1694}

func setupLocationServiceTest(t *testing.T) (*ServiceImpl, *MockGeocoder, *MockCityCodeFinder, *catalog.Catalog) {
	t.Helper()
	geo := new(MockGeocoder)
	cities := new(MockCityCodeFinder)
	cat, err := catalog.Load()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewServiceImpl(geo, cities, cat, fixedZone("Asia/Hong_Kong"), logger), geo, cities, cat
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("live code", func(t *testing.T) {
		svc, geo, cities, _ := setupLocationServiceTest(t)
		geo.On("Geocode", mock.Anything, "Hong Kong, China").Return(hongKong, nil).Once()
		cities.On("SearchCityCode", mock.Anything, "Hong Kong").Return("HKG", nil).Once()

		res, err := svc.Resolve(ctx, "Hong Kong", "China")
		require.NoError(t, err)
		assert.Equal(t, types.LocationResolution{
			Latitude:     22.3193,
			Longitude:    114.1694,
			LocationCode: "HKG",
			CodeSource:   types.CodeSourceLive,
			Timezone:     "Asia/Hong_Kong",
		}, res)
	})

	t.Run("fallback table", func(t *testing.T) {
		svc, geo, cities, _ := setupLocationServiceTest(t)
		geo.On("Geocode", mock.Anything, "Hong Kong").Return(hongKong, nil).Once()
		cities.On("SearchCityCode", mock.Anything, "Hong Kong").Return("", types.ErrNotFound).Once()

		res, err := svc.Resolve(ctx, "Hong Kong", "")
		require.NoError(t, err)
		assert.Equal(t, "HKG", res.LocationCode)
		assert.Equal(t, types.CodeSourceFallback, res.CodeSource)
	})

	t.Run("no code anywhere keeps coordinates", func(t *testing.T) {
		svc, geo, cities, _ := setupLocationServiceTest(t)
		geo.On("Geocode", mock.Anything, "Hallstatt, Austria").Return(types.Coordinates{Latitude: 47.56, Longitude: 13.65}, nil).Once()
		cities.On("SearchCityCode", mock.Anything, "Hallstatt").Return("", errors.New("timeout")).Once()

		res, err := svc.Resolve(ctx, "Hallstatt", "Austria")
		require.NoError(t, err)
		assert.Empty(t, res.LocationCode)
		assert.Equal(t, 47.56, res.Latitude)
	})

	t.Run("geocoding not found is fatal", func(t *testing.T) {
		svc, geo, cities, _ := setupLocationServiceTest(t)
		geo.On("Geocode", mock.Anything, "Atlantis").Return(types.Coordinates{}, types.ErrNotFound).Once()

		_, err := svc.Resolve(ctx, "Atlantis", "")
		assert.ErrorIs(t, err, types.ErrNotFound)
		cities.AssertNotCalled(t, "SearchCityCode", mock.Anything, mock.Anything)
	})
}

// Every fallback entry must resolve to exactly the table's code when the live lookup is empty.
func TestResolve_FallbackTableIsExact(t *testing.T) {
	svc, geo, cities, cat := setupLocationServiceTest(t)
	geo.On("Geocode", mock.Anything, mock.Anything).Return(hongKong, nil)
	cities.On("SearchCityCode", mock.Anything, mock.Anything).Return("", types.ErrNotFound)

	for name, code := range cat.LocationCodes() {
		res, err := svc.Resolve(context.Background(), name, "")
		require.NoError(t, err)
		assert.Equal(t, code, res.LocationCode, name)
	}
}

func TestLookupCode(t *testing.T) {
	t.Run("code passes through", func(t *testing.T) {
		svc, _, cities, _ := setupLocationServiceTest(t)

		code, source := svc.LookupCode(context.Background(), "LIS")
		assert.Equal(t, "LIS", code)
		assert.Equal(t, types.CodeSourceLive, source)
		cities.AssertNotCalled(t, "SearchCityCode", mock.Anything, mock.Anything)
	})

	t.Run("city name uses live lookup", func(t *testing.T) {
		svc, _, cities, _ := setupLocationServiceTest(t)
		cities.On("SearchCityCode", mock.Anything, "Lisbon").Return("LIS", nil).Once()

		code, _ := svc.LookupCode(context.Background(), "Lisbon")
		assert.Equal(t, "LIS", code)
	})
}
