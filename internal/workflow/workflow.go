// Package workflow applies routing decisions to a request.
//
// Every transition works on a deep copy of the request and returns it; on
// error the caller's value is untouched, so a failed or discarded transition
// leaves nothing half applied.
package workflow

import (
	"strings"
	"time"

	"docroute/internal/authz"
	"docroute/internal/ledger"
	"docroute/internal/models"
)

// Action names a transition.
type Action string

const (
	ActionForward              Action = "forward"
	ActionCommanderDecision    Action = "commander_decision"
	ActionReturnToOriginator   Action = "return_to_originator"
	ActionResubmit             Action = "resubmit"
	ActionRouteToInstallation  Action = "route_to_installation"
	ActionInstallationRoute    Action = "installation_route"
	ActionInstallationDecision Action = "installation_decision"
	ActionSubmitToHQMC         Action = "submit_to_hqmc"
	ActionHQMCDecision         Action = "hqmc_decision"
	ActionSendToExternal       Action = "send_to_external"
	ActionExternalRoute        Action = "external_route"
	ActionReturnToUnit         Action = "return_to_unit"
	ActionArchive              Action = "archive"
	ActionFile                 Action = "file"
	ActionClassify             Action = "classify"
)

// Decision is a commander outcome.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionEndorsed Decision = "endorsed"
	DecisionRejected Decision = "rejected"
)

// Destination chooses where an approved unit decision goes.
type Destination string

const (
	DestinationOriginator Destination = "originator"
	DestinationBattalion  Destination = "battalion"
)

// Input carries the parameters of one transition. Fields not used by the
// action are ignored.
type Input struct {
	Action      Action      `json:"action"`
	Actor       authz.Actor `json:"-"`
	Comment     string      `json:"comment,omitempty"`
	Section     string      `json:"section,omitempty"`
	Decision    Decision    `json:"decision,omitempty"`
	Destination Destination `json:"destination,omitempty"`

	InstallationID   string `json:"installation_id,omitempty"`
	ExternalUnitName string `json:"external_unit_name,omitempty"`
	ExternalUnitUIC  string `json:"external_unit_uic,omitempty"`
	ExternalStage    string `json:"external_stage,omitempty"`

	// Level is the tier archive and file are authorized at.
	Level authz.Level `json:"level,omitempty"`
	// File also files the request when archiving.
	File bool `json:"file,omitempty"`

	Classification *models.Classification `json:"classification,omitempty"`
}

// CreateInput describes a new request.
type CreateInput struct {
	ID             string
	Title          string
	Description    string
	Owner          authz.Actor
	UnitUIC        string
	InstallationID *string
	Comment        string
}

// IsRouting reports whether the action moves the request between holders.
func (a Action) IsRouting() bool {
	switch a {
	case ActionArchive, ActionFile, ActionClassify:
		return false
	}
	return true
}

// Machine applies transitions.
type Machine struct {
	engine *authz.Engine
	now    func() time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// NewMachine returns a machine that authorizes archive and file with engine.
func NewMachine(engine *authz.Engine, opts ...Option) *Machine {
	if engine == nil {
		engine = authz.NewEngine(authz.Options{})
	}
	m := &Machine{
		engine: engine,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create builds a new request in PLATOON_REVIEW with its creation entry.
func (m *Machine) Create(in CreateInput) (models.Request, error) {
	if strings.TrimSpace(in.Title) == "" {
		return models.Request{}, models.NewValidationError("title is required")
	}
	if in.Owner.ID == "" {
		return models.Request{}, models.NewValidationError("owner is required")
	}
	if in.UnitUIC == "" {
		return models.Request{}, models.NewValidationError("unit UIC is required")
	}
	now := m.now()
	req := models.Request{
		ID:             in.ID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		UploadedByID:   in.Owner.ID,
		UnitUIC:        in.UnitUIC,
		InstallationID: in.InstallationID,
		CurrentStage:   models.StagePlatoonReview,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	l := ledger.New(nil).Append(models.ActivityEntry{
		RequestID: in.ID,
		Actor:     actorName(in.Owner),
		ActorRole: in.Owner.Role,
		Action:    ledger.ActionCreated,
		Comment:   in.Comment,
		Kind:      models.EventCreated,
		Scope:     models.ScopeOriginator,
	}, now)
	req.Activity = l.Entries()
	return req, nil
}

type handler func(m *Machine, req *models.Request, in Input) (models.ActivityEntry, error)

var handlers = map[Action]handler{
	ActionForward:              (*Machine).forward,
	ActionCommanderDecision:    (*Machine).commanderDecision,
	ActionReturnToOriginator:   (*Machine).returnToOriginator,
	ActionResubmit:             (*Machine).resubmit,
	ActionRouteToInstallation:  (*Machine).routeToInstallation,
	ActionInstallationRoute:    (*Machine).installationRoute,
	ActionInstallationDecision: (*Machine).installationDecision,
	ActionSubmitToHQMC:         (*Machine).submitToHQMC,
	ActionHQMCDecision:         (*Machine).hqmcDecision,
	ActionSendToExternal:       (*Machine).sendToExternal,
	ActionExternalRoute:        (*Machine).externalRoute,
	ActionReturnToUnit:         (*Machine).returnToUnit,
	ActionArchive:              (*Machine).archive,
	ActionFile:                 (*Machine).file,
	ActionClassify:             (*Machine).classify,
}

// sourceStages lists the stages each routing action may start from.
var sourceStages = map[Action][]models.Stage{
	ActionForward:              {models.StagePlatoonReview, models.StageCompanyReview, models.StageBattalionReview},
	ActionCommanderDecision:    {models.StageBattalionReview, models.StageCommanderReview},
	ActionReturnToOriginator:   {models.StagePlatoonReview, models.StageCompanyReview, models.StageBattalionReview, models.StageCommanderReview, models.StageInstallationReview, models.StageHQMCReview, models.StageExternalReview},
	ActionResubmit:             {models.StageOriginatorReview},
	ActionRouteToInstallation:  {models.StageBattalionReview, models.StageCommanderReview},
	ActionInstallationRoute:    {models.StageInstallationReview},
	ActionInstallationDecision: {models.StageInstallationReview},
	ActionSubmitToHQMC:         {models.StageInstallationReview},
	ActionHQMCDecision:         {models.StageHQMCReview},
	ActionSendToExternal:       {models.StageBattalionReview, models.StageCommanderReview, models.StageInstallationReview},
	ActionExternalRoute:        {models.StageExternalReview},
	ActionReturnToUnit:         {models.StageInstallationReview, models.StageHQMCReview, models.StageExternalReview},
}

// Allowed reports whether action may start from stage. Non-routing actions
// are stage independent.
func Allowed(action Action, stage models.Stage) bool {
	if _, ok := handlers[action]; !ok {
		return false
	}
	stages, ok := sourceStages[action]
	if !ok {
		return true
	}
	for _, s := range stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Apply runs one transition against a copy of req and returns the result.
func (m *Machine) Apply(req models.Request, in Input) (models.Request, error) {
	h, ok := handlers[in.Action]
	if !ok {
		return req, models.NewValidationError("unknown action " + string(in.Action))
	}
	if in.Action.IsRouting() && req.CurrentStage == models.StageArchived {
		return req, models.NewInvalidTransitionError("request is archived")
	}
	if !Allowed(in.Action, req.CurrentStage) {
		return req, models.NewInvalidTransitionError(
			string(in.Action) + " is not allowed from " + string(req.CurrentStage))
	}

	next := req.Clone()
	entry, err := h(m, &next, in)
	if err != nil {
		return req, err
	}

	now := m.now()
	entry.RequestID = next.ID
	entry.Actor = actorName(in.Actor)
	entry.ActorRole = in.Actor.Role
	entry.Comment = strings.TrimSpace(in.Comment)
	l := ledger.New(next.Activity).Append(entry, now)
	next.Activity = l.Entries()
	next.UpdatedAt = now
	return next, nil
}

func actorName(a authz.Actor) string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

func clearExternal(req *models.Request) {
	req.ExternalPendingUnitName = ""
	req.ExternalPendingUnitUIC = ""
	req.ExternalPendingStage = ""
}

func scopeForStage(s models.Stage) models.EventScope {
	switch s {
	case models.StageInstallationReview:
		return models.ScopeInstallation
	case models.StageHQMCReview:
		return models.ScopeHQMC
	case models.StageExternalReview:
		return models.ScopeExternal
	case models.StageOriginatorReview:
		return models.ScopeOriginator
	}
	return models.ScopeUnit
}

func scopeForLevel(l authz.Level) models.EventScope {
	switch l {
	case authz.LevelOriginator:
		return models.ScopeOriginator
	case authz.LevelInstallation:
		return models.ScopeInstallation
	case authz.LevelHQMC:
		return models.ScopeHQMC
	case authz.LevelExternal:
		return models.ScopeExternal
	}
	return models.ScopeUnit
}
