package authz

import (
	"testing"

	"docroute/internal/ledger"
	"docroute/internal/models"

	"github.com/stretchr/testify/assert"
)

const owner = "user-u"

func newRequest(stage models.Stage, actions ...string) *models.Request {
	inst := "INST-1"
	req := &models.Request{
		ID:             "req-1",
		UploadedByID:   owner,
		UnitUIC:        "M12345",
		InstallationID: &inst,
		CurrentStage:   stage,
		Activity:       []models.ActivityEntry{{Actor: "U", Action: ledger.ActionCreated}},
	}
	for _, a := range actions {
		req.Activity = append(req.Activity, models.ActivityEntry{Actor: "X", Action: a})
	}
	return req
}

func TestScenarioA_NewRequestEditableAndDeletable(t *testing.T) {
	req := newRequest(models.StagePlatoonReview)
	assert.True(t, CanRequesterEdit(req, owner))
	assert.True(t, CanDeleteRequest(req, owner))
	assert.False(t, CanRequesterEdit(req, "someone-else"))
	assert.False(t, CanDeleteRequest(req, ""))
}

func TestScenarioB_UnitApprovalLocksEdit(t *testing.T) {
	req := newRequest(models.StageOriginatorReview, ledger.ActionApprovedByCommander)
	assert.True(t, ledger.IsUnitApproved(req.Activity))
	assert.False(t, CanRequesterEdit(req, owner))
	assert.True(t, OriginatorArchiveOnly(req, owner))
	assert.False(t, CanDeleteRequest(req, owner))
}

func TestScenarioD_ReturnedRequestEditableAgain(t *testing.T) {
	req := newRequest(models.StageOriginatorReview, ledger.ActionReturnedForCorrections)
	assert.True(t, ledger.IsReturned(req.Activity))
	assert.True(t, CanRequesterEdit(req, owner))
	assert.False(t, OriginatorArchiveOnly(req, owner))
}

func TestEditLockHoldsEvenWhenReturnedAfterApproval(t *testing.T) {
	req := newRequest(models.StageOriginatorReview, ledger.ActionApprovedByCommander, ledger.ActionReturnedForCorrections)
	assert.False(t, CanRequesterEdit(req, owner))
}

func TestCanRequesterEditByStage(t *testing.T) {
	tests := []struct {
		stage models.Stage
		want  bool
	}{
		{models.StagePlatoonReview, true},
		{models.StageCompanyReview, true},
		{models.StageBattalionReview, true},
		{models.StageCommanderReview, false},
		{models.StageInstallationReview, false},
		{models.StageHQMCReview, false},
		{models.StageExternalReview, false},
		{models.StageOriginatorReview, false},
		{models.StageArchived, false},
		{models.Stage("BOGUS"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			assert.Equal(t, tt.want, CanRequesterEdit(newRequest(tt.stage), owner))
		})
	}
}

func TestDeleteLockAcrossStages(t *testing.T) {
	decisions := []string{
		ledger.ActionApprovedByCommander,
		ledger.ActionEndorsedByCommander,
		ledger.ActionApprovedByInstallation,
		ledger.ActionEndorsedByInstallation,
	}
	for _, d := range decisions {
		for _, stage := range models.AllStages {
			req := newRequest(stage, d)
			assert.False(t, CanDeleteRequest(req, owner), "%s at %s", d, stage)
		}
	}
	assert.False(t, CanDeleteRequest(newRequest(models.StageArchived), owner))
}

func TestCanArchiveAtLevel(t *testing.T) {
	tests := []struct {
		name string
		req  *models.Request
		ctx  ArchiveContext
		want bool
	}{
		{"originator approved", newRequest(models.StageOriginatorReview, ledger.ActionApprovedByCommander), ArchiveContext{Level: LevelOriginator}, true},
		{"originator not approved", newRequest(models.StageOriginatorReview), ArchiveContext{Level: LevelOriginator}, false},
		{"unit matching uic", newRequest(models.StageBattalionReview, ledger.ActionEndorsedByCommander), ArchiveContext{Level: LevelUnit, ActorUnitUIC: "M12345"}, true},
		{"unit other uic", newRequest(models.StageBattalionReview, ledger.ActionEndorsedByCommander), ArchiveContext{Level: LevelUnit, ActorUnitUIC: "M99999"}, false},
		{"unit wrong stage", newRequest(models.StageOriginatorReview, ledger.ActionEndorsedByCommander), ArchiveContext{Level: LevelUnit, ActorUnitUIC: "M12345"}, false},
		{"installation matching", newRequest(models.StageHQMCReview, ledger.ActionApprovedByInstallation), ArchiveContext{Level: LevelInstallation, ActorInstallationID: "INST-1"}, true},
		{"installation other", newRequest(models.StageInstallationReview, ledger.ActionApprovedByInstallation), ArchiveContext{Level: LevelInstallation, ActorInstallationID: "INST-2"}, false},
		{"hqmc approved any division", newRequest(models.StageHQMCReview, ledger.ActionApprovedByHQMC), ArchiveContext{Level: LevelHQMC, ActorDivision: "MMRP"}, true},
		{"hqmc not approved", newRequest(models.StageHQMCReview), ArchiveContext{Level: LevelHQMC}, false},
		{"external never", newRequest(models.StageExternalReview, ledger.ActionApprovedByCommander), ArchiveContext{Level: LevelExternal}, false},
		{"unknown level", newRequest(models.StageOriginatorReview, ledger.ActionApprovedByCommander), ArchiveContext{Level: "admiral"}, false},
		{"already archived", newRequest(models.StageArchived, ledger.ActionApprovedByCommander), ArchiveContext{Level: LevelOriginator}, false},
		{"nil request", nil, ArchiveContext{Level: LevelOriginator}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanArchiveAtLevel(tt.req, tt.ctx))
		})
	}
}

// A unit approval followed by an installation round trip. Kinded entries
// carry their scope, so the unit decision still stands once the request is
// back at battalion. Legacy text cannot tell the commanders apart and any
// installation-commander wording withdraws the unit decision.
func TestUnitArchiveAfterInstallationRoundTrip(t *testing.T) {
	steps := []models.ActivityEntry{
		{Kind: models.EventCreated, Scope: models.ScopeOriginator, Action: ledger.ActionCreated},
		{Kind: models.EventApproved, Scope: models.ScopeUnit, Action: ledger.ActionApprovedByCommander},
		{Kind: models.EventRouted, Scope: models.ScopeInstallation, Action: ledger.SentToInstallationSection("G-1")},
		{Kind: models.EventRouted, Scope: models.ScopeInstallation, Action: ledger.ActionSentToInstallationCmdr},
		{Kind: models.EventEndorsed, Scope: models.ScopeInstallation, Action: ledger.ActionEndorsedByInstallation},
		{Kind: models.EventReturned, Scope: models.ScopeInstallation, Action: ledger.ActionReturnedToOriginatingUnit},
	}
	unit := ArchiveContext{Level: LevelUnit, ActorUnitUIC: "M12345"}

	kindedReq := newRequest(models.StageBattalionReview)
	kindedReq.Activity = steps
	assert.True(t, ledger.IsUnitApproved(kindedReq.Activity))
	assert.True(t, CanArchiveAtLevel(kindedReq, unit))

	legacyReq := newRequest(models.StageBattalionReview)
	legacyReq.Activity = legacyReq.Activity[:0]
	for _, e := range steps {
		legacyReq.Activity = append(legacyReq.Activity, models.ActivityEntry{Actor: "X", Action: e.Action})
	}
	assert.False(t, ledger.IsUnitApproved(legacyReq.Activity))
	assert.False(t, CanArchiveAtLevel(legacyReq, unit))

	// Without the approval there is nothing to dispose of afterwards.
	assert.True(t, ledger.HasBattalionActionPostApproval(kindedReq.Activity))
	assert.False(t, ledger.HasBattalionActionPostApproval(legacyReq.Activity))
}

func TestStrictHQMCScope(t *testing.T) {
	req := newRequest(models.StageHQMCReview, ledger.ActionApprovedByHQMC)
	req.RouteSection = "MMRP"
	strict := NewEngine(Options{StrictHQMCScope: true})

	assert.True(t, strict.CanArchiveAtLevel(req, ArchiveContext{Level: LevelHQMC, ActorDivision: "MMRP"}))
	assert.False(t, strict.CanArchiveAtLevel(req, ArchiveContext{Level: LevelHQMC, ActorDivision: "MPO"}))
	assert.False(t, strict.CanActOnStage(req, Actor{ID: "h", Level: LevelHQMC, Division: "MPO"}))
}

func TestCanActOnStage(t *testing.T) {
	unitActor := Actor{ID: "a", Level: LevelUnit, UnitUIC: "M12345"}
	instActor := Actor{ID: "b", Level: LevelInstallation, InstallationID: "INST-1"}
	extActor := Actor{ID: "c", Level: LevelExternal, UnitUIC: "M55555"}

	assert.True(t, NewEngine(Options{}).CanActOnStage(newRequest(models.StageCompanyReview), unitActor))
	assert.False(t, NewEngine(Options{}).CanActOnStage(newRequest(models.StageCompanyReview), instActor))
	assert.True(t, NewEngine(Options{}).CanActOnStage(newRequest(models.StageInstallationReview), instActor))

	ext := newRequest(models.StageExternalReview)
	ext.ExternalPendingUnitUIC = "M55555"
	assert.True(t, NewEngine(Options{}).CanActOnStage(ext, extActor))
	assert.False(t, NewEngine(Options{}).CanActOnStage(ext, unitActor))

	orig := newRequest(models.StageOriginatorReview)
	assert.True(t, NewEngine(Options{}).CanActOnStage(orig, Actor{ID: owner, Level: LevelUnit}))
	assert.False(t, NewEngine(Options{}).CanActOnStage(newRequest(models.StageArchived), unitActor))
}

func TestSummarize(t *testing.T) {
	req := newRequest(models.StageOriginatorReview, ledger.ActionApprovedByCommander)
	req.SSIC = "5000"
	caps := NewEngine(Options{}).Summarize(req, Actor{ID: owner, Level: LevelUnit, UnitUIC: "M12345"})

	assert.False(t, caps.CanEdit)
	assert.False(t, caps.CanDelete)
	assert.True(t, caps.ArchiveOnly)
	assert.True(t, caps.CanArchive)
	assert.True(t, caps.CanFile)
	assert.True(t, caps.UnitApproved)
	assert.False(t, caps.PostApprovalHandled)

	req.Activity = append(req.Activity, models.ActivityEntry{Actor: "X", Action: ledger.SentToInstallationSection("G-1")})
	assert.True(t, NewEngine(Options{}).Summarize(req, Actor{ID: owner}).PostApprovalHandled)
	assert.Equal(t, Capabilities{}, NewEngine(Options{}).Summarize(nil, Actor{}))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelHQMC, ParseLevel("hqmc"))
	assert.Equal(t, Level(""), ParseLevel("general"))
}
