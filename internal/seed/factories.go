// Package seed provides helpers to create demo routing data. Every request is
// created and moved through the same service calls the API uses, so seeded
// ledgers look exactly like real ones.
package seed

import (
	"context"
	"fmt"
	"strings"

	"docroute/internal/authz"
	"docroute/internal/models"
	"docroute/internal/service"
	"docroute/internal/workflow"

	"github.com/brianvoe/gofakeit/v6"
)

// Unit is one seeded command and the people who route inside it.
type Unit struct {
	UIC            string
	Name           string
	InstallationID string
}

// Route is the path a seeded request takes after creation.
type Route string

const (
	RouteDraft        Route = "draft"
	RouteInReview     Route = "in_review"
	RouteReturned     Route = "returned"
	RouteUnitApproved Route = "unit_approved"
	RouteRejected     Route = "rejected"
	RouteArchived     Route = "archived"
	RouteFiled        Route = "filed"
	RouteInstallation Route = "installation"
)

// Routes lists every route in the order Run cycles through them.
var Routes = []Route{
	RouteDraft,
	RouteInReview,
	RouteReturned,
	RouteUnitApproved,
	RouteRejected,
	RouteArchived,
	RouteFiled,
	RouteInstallation,
}

var (
	sections      = []string{"G1", "G3", "G4", "S6", "SJA"}
	unitKinds     = []string{"Marines", "Combat Logistics Bn", "Comm Bn", "Engineer Support Bn"}
	installations = []string{"CLNC", "CPEN", "MCBH", "MCAGCC"}
)

// Factory builds actors and requests and drives them through the workflow.
type Factory struct {
	svc   *service.RequestService
	faker *gofakeit.Faker
}

// NewFactory creates a Factory. A zero seed picks a random one.
func NewFactory(svc *service.RequestService, seed int64) *Factory {
	return &Factory{svc: svc, faker: gofakeit.New(seed)}
}

// Units generates n units spread over a handful of installations.
func (f *Factory) Units(n int) []Unit {
	units := make([]Unit, 0, n)
	seen := make(map[string]struct{}, n)
	for len(units) < n {
		uic := fmt.Sprintf("M%05d", f.faker.Number(10000, 99999))
		if _, dup := seen[uic]; dup {
			continue
		}
		seen[uic] = struct{}{}
		units = append(units, Unit{
			UIC:            uic,
			Name:           fmt.Sprintf("%d %s", f.faker.Number(1, 9), f.faker.RandomString(unitKinds)),
			InstallationID: f.faker.RandomString(installations),
		})
	}
	return units
}

func (f *Factory) rankName(ranks ...string) string {
	return fmt.Sprintf("%s %s", f.faker.RandomString(ranks), f.faker.LastName())
}

// Originator returns a new document owner in u.
func (f *Factory) Originator(u Unit) authz.Actor {
	return authz.Actor{
		ID:             f.faker.UUID(),
		Name:           f.rankName("LCpl", "Cpl", "Sgt"),
		Level:          authz.LevelOriginator,
		UnitUIC:        u.UIC,
		InstallationID: u.InstallationID,
	}
}

// UnitReviewer returns a unit-level routing official for u.
func (f *Factory) UnitReviewer(u Unit) authz.Actor {
	return authz.Actor{
		ID:             f.faker.UUID(),
		Name:           f.rankName("SSgt", "GySgt", "Capt", "Maj"),
		Level:          authz.LevelUnit,
		UnitUIC:        u.UIC,
		InstallationID: u.InstallationID,
	}
}

// InstallationReviewer returns an installation-level official for id.
func (f *Factory) InstallationReviewer(id string) authz.Actor {
	return authz.Actor{
		ID:             f.faker.UUID(),
		Name:           f.rankName("LtCol", "Col"),
		Level:          authz.LevelInstallation,
		InstallationID: id,
	}
}

// CreateRequest files a new request for owner with generated content.
func (f *Factory) CreateRequest(ctx context.Context, owner authz.Actor) (*models.Request, error) {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), ".")
	return f.svc.Create(ctx, owner, service.CreateRequestInput{
		Title:       title,
		Description: f.faker.Paragraph(1, 3, 12, "\n"),
		UnitUIC:     owner.UnitUIC,
		Comment:     f.faker.Sentence(6),
	})
}

// Drive moves req along route, acting as owner or the given reviewers.
func (f *Factory) Drive(ctx context.Context, req *models.Request, route Route, owner, reviewer, inst authz.Actor) (*models.Request, error) {
	var steps []step
	switch route {
	case RouteDraft:
	case RouteInReview:
		steps = forwards(reviewer, f.faker.Number(1, 3))
	case RouteReturned:
		steps = append(forwards(reviewer, 1), step{actor: reviewer, in: workflow.Input{
			Action:  workflow.ActionReturnToOriginator,
			Comment: f.faker.Sentence(8),
		}})
	case RouteUnitApproved:
		steps = f.unitApproval(reviewer)
	case RouteRejected:
		steps = append(forwards(reviewer, 3), step{actor: reviewer, in: workflow.Input{
			Action:   workflow.ActionCommanderDecision,
			Decision: workflow.DecisionRejected,
			Comment:  f.faker.Sentence(6),
		}})
	case RouteArchived:
		steps = append(f.unitApproval(reviewer), step{actor: owner, in: workflow.Input{Action: workflow.ActionArchive}})
	case RouteFiled:
		code, err := f.pickSSIC()
		if err != nil {
			return nil, err
		}
		steps = append(f.unitApproval(reviewer),
			step{actor: owner, in: workflow.Input{Action: workflow.ActionClassify}, ssic: code},
			step{actor: owner, in: workflow.Input{Action: workflow.ActionArchive, File: true}},
		)
	case RouteInstallation:
		steps = append(forwards(reviewer, 2),
			step{actor: reviewer, in: workflow.Input{Action: workflow.ActionRouteToInstallation, Section: f.faker.RandomString(sections)}},
			step{actor: inst, in: workflow.Input{Action: workflow.ActionInstallationRoute}},
		)
	default:
		return nil, fmt.Errorf("unknown route %q", route)
	}

	for _, st := range steps {
		next, err := f.svc.Transition(ctx, req.ID, st.actor, service.TransitionInput{
			Input:   st.in,
			SSIC:    st.ssic,
			Version: req.Version,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %s by %s: %w", route, st.in.Action, st.actor.Name, err)
		}
		req = next
	}
	return req, nil
}

type step struct {
	actor authz.Actor
	in    workflow.Input
	ssic  string
}

func forwards(reviewer authz.Actor, n int) []step {
	steps := make([]step, n)
	for i := range steps {
		steps[i] = step{actor: reviewer, in: workflow.Input{Action: workflow.ActionForward}}
	}
	return steps
}

func (f *Factory) unitApproval(reviewer authz.Actor) []step {
	return append(forwards(reviewer, 3), step{actor: reviewer, in: workflow.Input{
		Action:   workflow.ActionCommanderDecision,
		Decision: workflow.DecisionApproved,
	}})
}

func (f *Factory) pickSSIC() (string, error) {
	entries := f.svc.SSICEntries()
	if len(entries) == 0 {
		return "", fmt.Errorf("ssic catalog is empty")
	}
	return entries[f.faker.Number(0, len(entries)-1)].Code, nil
}
