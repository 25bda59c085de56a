package workflow

import (
	"strings"

	"docroute/internal/ledger"
	"docroute/internal/models"
)

var unitChainNext = map[models.Stage]models.Stage{
	models.StagePlatoonReview:   models.StageCompanyReview,
	models.StageCompanyReview:   models.StageBattalionReview,
	models.StageBattalionReview: models.StageCommanderReview,
}

var unitChainPrev = map[models.Stage]models.Stage{
	models.StageCommanderReview: models.StageBattalionReview,
	models.StageBattalionReview: models.StageCompanyReview,
}

func (m *Machine) forward(req *models.Request, in Input) (models.ActivityEntry, error) {
	to := unitChainNext[req.CurrentStage]
	from := req.CurrentStage
	section := strings.TrimSpace(in.Section)

	entry := models.ActivityEntry{
		Action:      ledger.Forwarded(from, to, section),
		FromSection: req.RouteSection,
		ToSection:   section,
		Kind:        models.EventRouted,
		Scope:       models.ScopeUnit,
	}
	req.PreviousSection = req.RouteSection
	req.CurrentStage = to
	req.RouteSection = section
	return entry, nil
}

func (m *Machine) commanderDecision(req *models.Request, in Input) (models.ActivityEntry, error) {
	entry := models.ActivityEntry{Scope: models.ScopeUnit, FromSection: req.RouteSection}
	switch in.Decision {
	case DecisionApproved:
		entry.Kind = models.EventApproved
		entry.Action = ledger.ActionApprovedByCommander
		req.FinalStatus = models.FinalStatusApproved
	case DecisionEndorsed:
		entry.Kind = models.EventEndorsed
		entry.Action = ledger.ActionEndorsedByCommander
		req.FinalStatus = models.FinalStatusEndorsed
	case DecisionRejected:
		entry.Kind = models.EventRejected
		entry.Action = ledger.ActionRejectedByCommander
		req.CurrentStage = unitChainPrev[req.CurrentStage]
		req.RouteSection = req.PreviousSection
		req.PreviousSection = ""
		entry.ToSection = req.RouteSection
		return entry, nil
	default:
		return entry, models.NewValidationError("decision must be approved, endorsed or rejected")
	}

	switch in.Destination {
	case "", DestinationOriginator:
		req.CurrentStage = models.StageOriginatorReview
	case DestinationBattalion:
		req.CurrentStage = models.StageBattalionReview
	default:
		return entry, models.NewValidationError("destination must be originator or battalion")
	}
	req.RouteSection = ""
	req.PreviousSection = ""
	return entry, nil
}

func (m *Machine) returnToOriginator(req *models.Request, in Input) (models.ActivityEntry, error) {
	entry := models.ActivityEntry{
		Action:      ledger.ActionReturnedForCorrections,
		FromSection: req.RouteSection,
		Kind:        models.EventReturned,
		Scope:       scopeForStage(req.CurrentStage),
	}
	req.CurrentStage = models.StageOriginatorReview
	req.RouteSection = ""
	req.PreviousSection = ""
	clearExternal(req)
	return entry, nil
}

func (m *Machine) resubmit(req *models.Request, in Input) (models.ActivityEntry, error) {
	if ledger.IsUnitApproved(req.Activity) || ledger.IsUnitEndorsed(req.Activity) {
		return models.ActivityEntry{}, models.NewInvalidTransitionError("approved requests can only be archived")
	}
	req.CurrentStage = models.StagePlatoonReview
	req.RouteSection = ""
	return models.ActivityEntry{
		Action: ledger.ActionResubmitted,
		Kind:   models.EventRouted,
		Scope:  models.ScopeOriginator,
	}, nil
}

func (m *Machine) routeToInstallation(req *models.Request, in Input) (models.ActivityEntry, error) {
	section := strings.TrimSpace(in.Section)
	if section == "" {
		return models.ActivityEntry{}, models.NewValidationError("installation section is required")
	}
	if in.InstallationID != "" {
		id := in.InstallationID
		req.InstallationID = &id
	}
	if req.InstallationIDValue() == "" {
		return models.ActivityEntry{}, models.NewValidationError("request has no installation")
	}
	entry := models.ActivityEntry{
		Action:      ledger.SentToInstallationSection(section),
		FromSection: req.RouteSection,
		ToSection:   section,
		Kind:        models.EventRouted,
		Scope:       models.ScopeInstallation,
	}
	req.CurrentStage = models.StageInstallationReview
	req.RouteSection = section
	req.PreviousSection = ""
	clearExternal(req)
	return entry, nil
}

func (m *Machine) installationRoute(req *models.Request, in Input) (models.ActivityEntry, error) {
	section := strings.TrimSpace(in.Section)
	entry := models.ActivityEntry{
		FromSection: req.RouteSection,
		ToSection:   section,
		Kind:        models.EventRouted,
		Scope:       models.ScopeInstallation,
	}
	if section == "" {
		if req.RouteSection == "" {
			return entry, models.NewInvalidTransitionError("installation commander already holds the request")
		}
		entry.Action = ledger.ActionSentToInstallationCmdr
		req.PreviousSection = req.RouteSection
		req.RouteSection = ""
		return entry, nil
	}
	entry.Action = ledger.SentToInstallationSection(section)
	req.PreviousSection = req.RouteSection
	req.RouteSection = section
	return entry, nil
}

func (m *Machine) installationDecision(req *models.Request, in Input) (models.ActivityEntry, error) {
	if req.RouteSection != "" {
		return models.ActivityEntry{}, models.NewInvalidTransitionError("request is not with the installation commander")
	}
	entry := models.ActivityEntry{Scope: models.ScopeInstallation}
	switch in.Decision {
	case DecisionApproved:
		entry.Kind = models.EventApproved
		entry.Action = ledger.ActionApprovedByInstallation
		req.FinalStatus = models.FinalStatusApproved
	case DecisionEndorsed:
		entry.Kind = models.EventEndorsed
		entry.Action = ledger.ActionEndorsedByInstallation
		req.FinalStatus = models.FinalStatusEndorsed
	case DecisionRejected:
		entry.Kind = models.EventRejected
		entry.Action = ledger.ActionReturnedByInstallation
	default:
		return entry, models.NewValidationError("decision must be approved, endorsed or rejected")
	}
	back := req.PreviousSection
	if back == "" {
		back = ledger.LastInstallationSection(req.Activity)
	}
	entry.ToSection = back
	req.RouteSection = back
	req.PreviousSection = ""
	return entry, nil
}

func (m *Machine) submitToHQMC(req *models.Request, in Input) (models.ActivityEntry, error) {
	division := strings.TrimSpace(in.Section)
	if division == "" {
		return models.ActivityEntry{}, models.NewValidationError("HQMC division is required")
	}
	if !ledger.IsInstallationEndorsed(req.Activity) {
		return models.ActivityEntry{}, models.NewInvalidTransitionError("installation commander endorsement is required before HQMC submission")
	}
	entry := models.ActivityEntry{
		Action:      ledger.SubmittedToHQMC(division),
		FromSection: req.RouteSection,
		ToSection:   division,
		Kind:        models.EventRouted,
		Scope:       models.ScopeHQMC,
	}
	req.PreviousSection = req.RouteSection
	req.CurrentStage = models.StageHQMCReview
	req.RouteSection = division
	return entry, nil
}

func (m *Machine) hqmcDecision(req *models.Request, in Input) (models.ActivityEntry, error) {
	entry := models.ActivityEntry{Scope: models.ScopeHQMC, FromSection: req.RouteSection}
	switch in.Decision {
	case DecisionApproved:
		entry.Kind = models.EventApproved
		entry.Action = ledger.ActionApprovedByHQMC
		req.FinalStatus = models.FinalStatusHQMCApproved
		return entry, nil
	case DecisionRejected:
		back := req.PreviousSection
		if back == "" {
			back = ledger.LastInstallationSection(req.Activity)
		}
		entry.Kind = models.EventReturned
		entry.Action = ledger.ActionReturnedByHQMC
		entry.ToSection = back
		req.CurrentStage = models.StageInstallationReview
		req.RouteSection = back
		req.PreviousSection = ""
		return entry, nil
	}
	return entry, models.NewValidationError("HQMC decision must be approved or rejected")
}

func (m *Machine) sendToExternal(req *models.Request, in Input) (models.ActivityEntry, error) {
	uic := strings.TrimSpace(in.ExternalUnitUIC)
	if uic == "" {
		return models.ActivityEntry{}, models.NewValidationError("external unit UIC is required")
	}
	if uic == req.UnitUIC {
		return models.ActivityEntry{}, models.NewValidationError("external unit must differ from the owning unit")
	}
	entry := models.ActivityEntry{
		Action:      ledger.SentToExternalUnit(strings.TrimSpace(in.ExternalUnitName), uic),
		FromSection: req.RouteSection,
		ToSection:   strings.TrimSpace(in.ExternalStage),
		Kind:        models.EventRouted,
		Scope:       models.ScopeExternal,
	}
	req.CurrentStage = models.StageExternalReview
	req.RouteSection = ""
	req.PreviousSection = ""
	req.ExternalPendingUnitName = strings.TrimSpace(in.ExternalUnitName)
	req.ExternalPendingUnitUIC = uic
	req.ExternalPendingStage = strings.TrimSpace(in.ExternalStage)
	return entry, nil
}

func (m *Machine) externalRoute(req *models.Request, in Input) (models.ActivityEntry, error) {
	stage := strings.TrimSpace(in.ExternalStage)
	if stage == "" {
		stage = strings.TrimSpace(in.Section)
	}
	if stage == "" {
		return models.ActivityEntry{}, models.NewValidationError("external stage is required")
	}
	unit := req.ExternalPendingUnitName
	if unit == "" {
		unit = req.ExternalPendingUnitUIC
	}
	entry := models.ActivityEntry{
		Action:      ledger.ExternalRouted(unit, stage),
		FromSection: req.ExternalPendingStage,
		ToSection:   stage,
		Kind:        models.EventRouted,
		Scope:       models.ScopeExternal,
	}
	req.ExternalPendingStage = stage
	return entry, nil
}

func (m *Machine) returnToUnit(req *models.Request, in Input) (models.ActivityEntry, error) {
	entry := models.ActivityEntry{
		Action:      ledger.ActionReturnedToOriginatingUnit,
		FromSection: req.RouteSection,
		Kind:        models.EventReturned,
		Scope:       scopeForStage(req.CurrentStage),
	}
	req.CurrentStage = models.StageBattalionReview
	req.InstallationID = nil
	req.RouteSection = ""
	req.PreviousSection = ""
	clearExternal(req)
	return entry, nil
}

func (m *Machine) archive(req *models.Request, in Input) (models.ActivityEntry, error) {
	if req.CurrentStage == models.StageArchived {
		return models.ActivityEntry{}, models.NewInvalidTransitionError("request is already archived")
	}
	ctx := in.Actor.ArchiveContext(in.Level)
	if !m.engine.CanArchiveAtLevel(req, ctx) {
		return models.ActivityEntry{}, models.NewForbiddenError("archive is not permitted at level " + string(in.Level))
	}
	if in.File {
		if req.SSIC == "" {
			return models.ActivityEntry{}, models.NewValidationError("classification is required before filing")
		}
		if !req.IsFiled() {
			now := m.now()
			req.FiledAt = &now
		}
	}
	entry := models.ActivityEntry{
		Action:      ledger.ArchivedBy(string(in.Level)),
		FromSection: req.RouteSection,
		Kind:        models.EventArchived,
		Scope:       scopeForLevel(in.Level),
	}
	req.CurrentStage = models.StageArchived
	req.RouteSection = ""
	req.PreviousSection = ""
	clearExternal(req)
	return entry, nil
}

func (m *Machine) file(req *models.Request, in Input) (models.ActivityEntry, error) {
	if req.IsFiled() {
		return models.ActivityEntry{}, models.NewInvalidTransitionError("request is already filed")
	}
	if req.SSIC == "" {
		return models.ActivityEntry{}, models.NewValidationError("classification is required before filing")
	}
	if !m.engine.CanFile(req, in.Actor.ArchiveContext(in.Level)) {
		return models.ActivityEntry{}, models.NewForbiddenError("filing is not permitted at level " + string(in.Level))
	}
	now := m.now()
	req.FiledAt = &now
	return models.ActivityEntry{
		Action: ledger.Filed(req.SSIC),
		Kind:   models.EventFiled,
		Scope:  scopeForLevel(in.Level),
	}, nil
}

func (m *Machine) classify(req *models.Request, in Input) (models.ActivityEntry, error) {
	if req.IsFiled() {
		return models.ActivityEntry{}, models.NewInvalidTransitionError("filed requests cannot be reclassified")
	}
	if in.Classification == nil || strings.TrimSpace(in.Classification.SSIC) == "" {
		return models.ActivityEntry{}, models.NewValidationError("SSIC is required")
	}
	c := *in.Classification
	c.SSIC = strings.TrimSpace(c.SSIC)
	req.Classification = c
	return models.ActivityEntry{
		Action: ledger.Classified(c.SSIC),
		Kind:   models.EventClassified,
		Scope:  scopeForStage(req.CurrentStage),
	}, nil
}
