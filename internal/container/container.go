package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ringsaturn/tzf"

	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/api/amadeus"
	"github.com/FACorreiaa/go-trip-planner/internal/api/catalog"
	"github.com/FACorreiaa/go-trip-planner/internal/api/elevenlabs"
	"github.com/FACorreiaa/go-trip-planner/internal/api/enrich"
	"github.com/FACorreiaa/go-trip-planner/internal/api/flight"
	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/api/geoapify"
	"github.com/FACorreiaa/go-trip-planner/internal/api/intent"
	"github.com/FACorreiaa/go-trip-planner/internal/api/location"
	"github.com/FACorreiaa/go-trip-planner/internal/api/lodging"
	"github.com/FACorreiaa/go-trip-planner/internal/api/narration"
	"github.com/FACorreiaa/go-trip-planner/internal/api/planner"
	"github.com/FACorreiaa/go-trip-planner/internal/api/poi"
	"github.com/FACorreiaa/go-trip-planner/internal/api/provider"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *slog.Logger
	Catalog        *catalog.Catalog
	PlannerService planner.Service
	PlannerHandler *planner.Handler
	// PlanBudget is the worst-case duration of one planning run.
	PlanBudget     time.Duration
}

// NewContainer builds the provider clients and the pipeline services from cfg.
// Missing credentials are not an error here; the planner reports them per request.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	cat, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	logger.Info("Catalog loaded",
		slog.String("location_codes_version", cat.LocationVersion),
		slog.String("categories_version", cat.CategoryVersion))

	zones, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone finder: %w", err)
	}

	llm, err := generativeAI.New(ctx, generativeAI.Options{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		BaseURL:     cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create language model client: %w", err)
	}

	amadeusClient := amadeus.NewClient(
		provider.NewClient(provider.Options{
			Name:              "amadeus",
			BaseURL:           cfg.Amadeus.BaseURL,
			Timeout:           cfg.Pipeline.StepTimeout,
			RequestsPerSecond: cfg.Amadeus.RequestsPerSecond,
		}, logger),
		amadeus.Credentials{ClientID: cfg.Amadeus.ClientID, ClientSecret: cfg.Amadeus.ClientSecret},
		logger,
	)
	geoapifyClient := geoapify.NewClient(
		provider.NewClient(provider.Options{
			Name:              "geoapify",
			BaseURL:           cfg.Geoapify.BaseURL,
			Timeout:           cfg.Pipeline.StepTimeout,
			RequestsPerSecond: cfg.Geoapify.RequestsPerSecond,
		}, logger),
		cfg.Geoapify.APIKey,
		logger,
	)
	speech := elevenlabs.NewClient(
		provider.NewClient(provider.Options{
			Name:    "elevenlabs",
			BaseURL: cfg.ElevenLabs.BaseURL,
			Timeout: cfg.Pipeline.StepTimeout,
		}, logger),
		cfg.ElevenLabs.APIKey,
		elevenlabs.Voice{ID: cfg.ElevenLabs.VoiceID, ModelID: cfg.ElevenLabs.ModelID},
		logger,
	)

	// A typed nil *elevenlabs.Client would make the narrator look enabled.
	var synth narration.Synthesizer
	if speech.Configured() {
		synth = speech
	} else {
		logger.Info("Narration disabled: speech credentials not configured")
	}

	plannerService := planner.NewServiceImpl(planner.Dependencies{
		Intent:   intent.NewServiceImpl(llm, intent.Options{HistoryLimit: cfg.Pipeline.HistoryLimit}, logger),
		Location: location.NewServiceImpl(geoapifyClient, amadeusClient, cat, zones, logger),
		Flight:   flight.NewServiceImpl(amadeusClient, logger),
		Lodging:  lodging.NewServiceImpl(amadeusClient, logger),
		POI:      poi.NewServiceImpl(geoapifyClient, cat, logger),
		Enrich:   enrich.NewServiceImpl(llm, logger),
		Narrator: narration.NewServiceImpl(synth, logger),
	}, planner.Options{
		StepTimeout:   cfg.Pipeline.StepTimeout,
		DefaultOrigin: cfg.Pipeline.DefaultOrigin,
		Requirements:  Requirements(cfg),
	}, logger)

	return &Container{
		Config:         cfg,
		Logger:         logger,
		Catalog:        cat,
		PlannerService: plannerService,
		PlannerHandler: planner.NewHandler(plannerService, logger),
		PlanBudget:     plannerService.Budget(),
	}, nil
}

// Requirements lists the credentials every planning run needs, in the order they are checked.
func Requirements(cfg *config.Config) []planner.Requirement {
	return []planner.Requirement{
		{Subsystem: "language model", Configured: cfg.LLM.APIKey.IsSet()},
		{Subsystem: "flight search", Configured: cfg.Amadeus.ClientID.IsSet() && cfg.Amadeus.ClientSecret.IsSet()},
		{Subsystem: "geocoding", Configured: cfg.Geoapify.APIKey.IsSet()},
	}
}
