// Command plan runs one planning request from the command line against the configured
// providers and prints the response body.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/container"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var (
	message = flag.String("m", "Plan a 5 day trip to Hong Kong in March, budget $1500, I love museums", "user message")
	verbose = flag.Bool("v", false, "debug logging")
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	c, err := container.NewContainer(ctx, &cfg, logger)
	if err != nil {
		log.Fatalf("container: %v", err)
	}

	result := c.PlannerService.Plan(ctx, []types.ConversationTurn{{Role: types.RoleUser, Content: *message}})

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	fmt.Println(string(out))
	fmt.Fprintf(os.Stderr, "state: %s\n", result.State)
}
