// Package authz decides what an actor may do with a request. Every function
// is pure and total: missing or unrecognized input yields false.
package authz

import (
	"docroute/internal/ledger"
	"docroute/internal/models"
)

// Level is the organizational tier an actor operates at.
type Level string

const (
	LevelOriginator   Level = "originator"
	LevelUnit         Level = "unit"
	LevelInstallation Level = "installation"
	LevelHQMC         Level = "hqmc"
	LevelExternal     Level = "external"
)

// ParseLevel returns the level for raw, or "" when unknown.
func ParseLevel(raw string) Level {
	switch l := Level(raw); l {
	case LevelOriginator, LevelUnit, LevelInstallation, LevelHQMC, LevelExternal:
		return l
	}
	return ""
}

// Actor is the acting user as supplied by the identity collaborator.
type Actor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Role           string `json:"role,omitempty"`
	Level          Level  `json:"level"`
	UnitUIC        string `json:"unit_uic,omitempty"`
	InstallationID string `json:"installation_id,omitempty"`
	Division       string `json:"division,omitempty"`
}

// ArchiveContext returns the archive context for this actor acting at level.
func (a Actor) ArchiveContext(level Level) ArchiveContext {
	return ArchiveContext{
		Level:               level,
		ActorUnitUIC:        a.UnitUIC,
		ActorInstallationID: a.InstallationID,
		ActorDivision:       a.Division,
	}
}

// ArchiveContext scopes an archive decision.
type ArchiveContext struct {
	Level               Level
	ActorUnitUIC        string
	ActorInstallationID string
	ActorDivision       string
}

// Options tune the engine.
type Options struct {
	// StrictHQMCScope requires the acting HQMC division to match the request's
	// route section before archiving at the hqmc level.
	StrictHQMCScope bool
}

// Engine is the single entry point for capability checks.
type Engine struct {
	opts Options
}

// NewEngine builds an engine with opts.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Options returns the engine's options.
func (e *Engine) Options() Options {
	return e.opts
}

func isOwner(req *models.Request, actorID string) bool {
	return req != nil && actorID != "" && req.UploadedByID == actorID
}

func unitDecided(req *models.Request) bool {
	return ledger.IsUnitApproved(req.Activity) || ledger.IsUnitEndorsed(req.Activity)
}

func installationDecided(req *models.Request) bool {
	return ledger.IsInstallationApproved(req.Activity) || ledger.IsInstallationEndorsed(req.Activity)
}

// CanRequesterEdit reports whether the owner may still edit the request.
func (e *Engine) CanRequesterEdit(req *models.Request, actorID string) bool {
	if !isOwner(req, actorID) {
		return false
	}
	switch req.CurrentStage {
	case models.StagePlatoonReview, models.StageCompanyReview, models.StageBattalionReview:
		return true
	case models.StageOriginatorReview:
		if unitDecided(req) {
			return false
		}
		return ledger.IsReturned(req.Activity)
	}
	return false
}

// OriginatorArchiveOnly is true when the owner holds an approved request that
// can only be archived.
func (e *Engine) OriginatorArchiveOnly(req *models.Request, actorID string) bool {
	return isOwner(req, actorID) &&
		req.CurrentStage == models.StageOriginatorReview &&
		unitDecided(req)
}

// CanDeleteRequest is false once any commander decision was ever recorded.
func (e *Engine) CanDeleteRequest(req *models.Request, actorID string) bool {
	if !isOwner(req, actorID) {
		return false
	}
	if unitDecided(req) || installationDecided(req) {
		return false
	}
	return req.CurrentStage != models.StageArchived
}

// CanArchiveAtLevel applies the per-level archive rule.
func (e *Engine) CanArchiveAtLevel(req *models.Request, ctx ArchiveContext) bool {
	if req == nil || req.CurrentStage == models.StageArchived {
		return false
	}
	switch ctx.Level {
	case LevelOriginator:
		return req.CurrentStage == models.StageOriginatorReview && unitDecided(req)
	case LevelUnit:
		return req.CurrentStage == models.StageBattalionReview &&
			unitDecided(req) &&
			ctx.ActorUnitUIC != "" && ctx.ActorUnitUIC == req.UnitUIC
	case LevelInstallation:
		return installationDecided(req) &&
			ctx.ActorInstallationID != "" && ctx.ActorInstallationID == req.InstallationIDValue()
	case LevelHQMC:
		if !ledger.IsHQMCApproved(req.Activity) {
			return false
		}
		if e.opts.StrictHQMCScope {
			return ctx.ActorDivision != "" && ctx.ActorDivision == req.RouteSection
		}
		return true
	}
	return false
}

// CanFile reports whether the actor may file the request for retention at
// the given level.
func (e *Engine) CanFile(req *models.Request, ctx ArchiveContext) bool {
	if req == nil || req.IsFiled() || req.SSIC == "" {
		return false
	}
	return e.CanArchiveAtLevel(req, ctx)
}

// CanActOnStage reports whether actor is the current holder of the request.
func (e *Engine) CanActOnStage(req *models.Request, actor Actor) bool {
	if req == nil || actor.ID == "" {
		return false
	}
	if req.CurrentStage.IsUnitChain() {
		return actor.Level == LevelUnit && actor.UnitUIC != "" && actor.UnitUIC == req.UnitUIC
	}
	switch req.CurrentStage {
	case models.StageInstallationReview:
		return actor.Level == LevelInstallation &&
			actor.InstallationID != "" && actor.InstallationID == req.InstallationIDValue()
	case models.StageHQMCReview:
		if actor.Level != LevelHQMC {
			return false
		}
		if e.opts.StrictHQMCScope {
			return actor.Division != "" && actor.Division == req.RouteSection
		}
		return true
	case models.StageExternalReview:
		return (actor.Level == LevelExternal || actor.Level == LevelUnit) &&
			actor.UnitUIC != "" && actor.UnitUIC == req.ExternalPendingUnitUIC
	case models.StageOriginatorReview:
		return isOwner(req, actor.ID)
	}
	return false
}

// Capabilities is everything an actor may currently do with a request.
type Capabilities struct {
	CanEdit      bool `json:"can_edit"`
	CanDelete    bool `json:"can_delete"`
	ArchiveOnly  bool `json:"archive_only"`
	CanArchive   bool `json:"can_archive"`
	CanFile      bool `json:"can_file"`
	CanAct       bool `json:"can_act"`
	IsReturned   bool `json:"is_returned"`
	UnitApproved bool `json:"unit_approved"`
	// PostApprovalHandled is set once the unit disposed of the request
	// after its commander approved it.
	PostApprovalHandled bool `json:"post_approval_handled"`
}

// Summarize evaluates every capability for actor. Archive and file checks use
// the actor's own level; an owner is also checked at the originator level.
func (e *Engine) Summarize(req *models.Request, actor Actor) Capabilities {
	if req == nil {
		return Capabilities{}
	}
	canArchive := e.CanArchiveAtLevel(req, actor.ArchiveContext(actor.Level))
	canFile := e.CanFile(req, actor.ArchiveContext(actor.Level))
	if isOwner(req, actor.ID) {
		orig := actor.ArchiveContext(LevelOriginator)
		canArchive = canArchive || e.CanArchiveAtLevel(req, orig)
		canFile = canFile || e.CanFile(req, orig)
	}
	return Capabilities{
		CanEdit:             e.CanRequesterEdit(req, actor.ID),
		CanDelete:           e.CanDeleteRequest(req, actor.ID),
		ArchiveOnly:         e.OriginatorArchiveOnly(req, actor.ID),
		CanArchive:          canArchive,
		CanFile:             canFile,
		CanAct:              e.CanActOnStage(req, actor),
		IsReturned:          ledger.IsReturned(req.Activity),
		UnitApproved:        unitDecided(req),
		PostApprovalHandled: ledger.HasBattalionActionPostApproval(req.Activity),
	}
}

var defaultEngine = NewEngine(Options{})

func CanRequesterEdit(req *models.Request, actorID string) bool {
	return defaultEngine.CanRequesterEdit(req, actorID)
}

func OriginatorArchiveOnly(req *models.Request, actorID string) bool {
	return defaultEngine.OriginatorArchiveOnly(req, actorID)
}

func CanDeleteRequest(req *models.Request, actorID string) bool {
	return defaultEngine.CanDeleteRequest(req, actorID)
}

func CanArchiveAtLevel(req *models.Request, ctx ArchiveContext) bool {
	return defaultEngine.CanArchiveAtLevel(req, ctx)
}
