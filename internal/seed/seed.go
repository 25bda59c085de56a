package seed

import (
	"context"
	"fmt"
	"log/slog"

	"docroute/internal/models"
	"docroute/internal/observability"
	"docroute/internal/service"
)

// Options configures a seeding run.
type Options struct {
	Units           int
	RequestsPerUnit int
	// RandSeed fixes generated content; zero picks a random seed.
	RandSeed int64
	Logger   *slog.Logger
}

// Summary counts what a run produced.
type Summary struct {
	Units    int
	Requests int
	ByStage  map[models.Stage]int
	ByRoute  map[Route]int
}

// Run seeds opts.Units units, each with opts.RequestsPerUnit requests cycling
// through every Route.
func Run(ctx context.Context, svc *service.RequestService, opts Options) (*Summary, error) {
	if opts.Units <= 0 {
		opts.Units = 3
	}
	if opts.RequestsPerUnit <= 0 {
		opts.RequestsPerUnit = len(Routes)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx = observability.WithCorrelationID(ctx, observability.GenerateCorrelationID())
	f := NewFactory(svc, opts.RandSeed)
	summary := &Summary{
		ByStage: make(map[models.Stage]int),
		ByRoute: make(map[Route]int),
	}

	logger.Info("seeding routing data", "units", opts.Units, "requests_per_unit", opts.RequestsPerUnit)
	for _, unit := range f.Units(opts.Units) {
		reviewer := f.UnitReviewer(unit)
		inst := f.InstallationReviewer(unit.InstallationID)
		for i := 0; i < opts.RequestsPerUnit; i++ {
			route := Routes[i%len(Routes)]
			owner := f.Originator(unit)

			req, err := f.CreateRequest(ctx, owner)
			if err != nil {
				return summary, fmt.Errorf("create request for %s: %w", unit.UIC, err)
			}
			req, err = f.Drive(ctx, req, route, owner, reviewer, inst)
			if err != nil {
				return summary, err
			}
			summary.Requests++
			summary.ByStage[req.CurrentStage]++
			summary.ByRoute[route]++
		}
		summary.Units++
		logger.Debug("seeded unit", "uic", unit.UIC, "installation", unit.InstallationID)
	}
	logger.Info("seeding complete", "units", summary.Units, "requests", summary.Requests)
	return summary, nil
}
