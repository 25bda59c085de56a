// Command seed fills the routing database with demo requests driven through
// the real workflow.
package main

import (
	"context"
	"flag"
	"log"
	"slices"

	"docroute/internal/bootstrap"
	"docroute/internal/config"
	"docroute/internal/middleware"
	"docroute/internal/models"
	"docroute/internal/seed"
	"docroute/internal/server"
)

func main() {
	units := flag.Int("units", 3, "Number of units to create")
	perUnit := flag.Int("requests", len(seed.Routes), "Requests per unit")
	randSeed := flag.Int64("seed", 0, "Random seed for generated content (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SkipReplica: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer rt.Close()

	// Built on the server so seeded transitions publish like API ones.
	srv, err := server.NewServerWithDeps(cfg, rt.DB, rt.Redis)
	if err != nil {
		log.Fatalf("Failed to build routing service: %v", err)
	}

	summary, err := seed.Run(context.Background(), srv.Requests(), seed.Options{
		Units:           *units,
		RequestsPerUnit: *perUnit,
		RandSeed:        *randSeed,
		Logger:          middleware.Logger,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	stages := make([]models.Stage, 0, len(summary.ByStage))
	for s := range summary.ByStage {
		stages = append(stages, s)
	}
	slices.Sort(stages)
	for _, s := range stages {
		log.Printf("%-22s %d", s, summary.ByStage[s])
	}
	log.Printf("Seeded %d requests across %d units", summary.Requests, summary.Units)
}
