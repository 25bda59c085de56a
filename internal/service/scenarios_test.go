package service

import (
	"context"
	"testing"
	"time"

	"docroute/internal/authz"
	"docroute/internal/ledger"
	"docroute/internal/models"
	"docroute/internal/retention"
	"docroute/internal/ssic"
	"docroute/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approveAtUnit(t *testing.T, svc *RequestService, id string) *models.Request {
	t.Helper()
	var req *models.Request
	for _, in := range []workflow.Input{
		{Action: workflow.ActionForward},
		{Action: workflow.ActionForward},
		{Action: workflow.ActionForward},
		{Action: workflow.ActionCommanderDecision, Decision: workflow.DecisionApproved},
	} {
		req = mustTransition(t, svc, id, unitAdmin, in)
	}
	return req
}

func TestScenarioA_NewRequestIsEditableAndDeletable(t *testing.T) {
	svc, _ := newSQLiteService(t)
	req := mustCreate(t, svc)

	assert.Equal(t, models.StagePlatoonReview, req.CurrentStage)
	p, err := svc.Permissions(context.Background(), owner, req.ID)
	require.NoError(t, err)
	assert.True(t, p.CanEdit)
	assert.True(t, p.CanDelete)
	assert.False(t, p.ArchiveOnly)
}

func TestScenarioB_CommanderApprovalLeavesArchiveOnly(t *testing.T) {
	svc, _ := newSQLiteService(t)
	req := approveAtUnit(t, svc, mustCreate(t, svc).ID)

	assert.Equal(t, models.StageOriginatorReview, req.CurrentStage)
	assert.Equal(t, ledger.ActionApprovedByCommander, req.Activity[len(req.Activity)-1].Action)
	assert.True(t, ledger.IsUnitApproved(req.Activity))

	p, err := svc.Permissions(context.Background(), owner, req.ID)
	require.NoError(t, err)
	assert.False(t, p.CanEdit)
	assert.False(t, p.CanDelete)
	assert.True(t, p.ArchiveOnly)
	assert.True(t, p.CanArchive)
	assert.Contains(t, p.Actions, workflow.ActionArchive)

	_, err = svc.Transition(context.Background(), req.ID, owner, TransitionInput{Input: workflow.Input{Action: workflow.ActionResubmit}})
	assert.True(t, models.HasCode(err, models.CodeInvalidTransition))

	archived := mustTransition(t, svc, req.ID, owner, workflow.Input{Action: workflow.ActionArchive})
	assert.Equal(t, models.StageArchived, archived.CurrentStage)
	assert.Equal(t, "Archived by originator", archived.Activity[len(archived.Activity)-1].Action)
}

func TestScenarioC_InstallationApprovalWithoutUnitApproval(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()
	req := mustCreate(t, svc)
	mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{Action: workflow.ActionForward})
	mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{Action: workflow.ActionForward})
	mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{Action: workflow.ActionRouteToInstallation, Section: "G1"})

	inbox, err := svc.List(ctx, instCmdr, ListInput{Box: BoxInbox})
	require.NoError(t, err)
	require.Len(t, inbox, 1)

	mustTransition(t, svc, req.ID, instCmdr, workflow.Input{Action: workflow.ActionInstallationRoute})
	final := mustTransition(t, svc, req.ID, instCmdr, workflow.Input{Action: workflow.ActionInstallationDecision, Decision: workflow.DecisionApproved})

	assert.Equal(t, models.StageInstallationReview, final.CurrentStage)
	assert.Equal(t, "G1", final.RouteSection)
	assert.False(t, ledger.IsUnitApproved(final.Activity))
	assert.True(t, ledger.IsInstallationApproved(final.Activity))

	archived := mustTransition(t, svc, req.ID, instCmdr, workflow.Input{Action: workflow.ActionArchive})
	assert.Equal(t, models.StageArchived, archived.CurrentStage)
}

func TestScenarioD_ReturnedRequestIsEditableAgain(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()
	req := mustCreate(t, svc)
	mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{Action: workflow.ActionForward})
	returned := mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{Action: workflow.ActionReturnToOriginator, Comment: "missing signature"})

	assert.Equal(t, models.StageOriginatorReview, returned.CurrentStage)
	assert.Equal(t, ledger.ActionReturnedForCorrections, returned.Activity[len(returned.Activity)-1].Action)

	p, err := svc.Permissions(ctx, owner, req.ID)
	require.NoError(t, err)
	assert.True(t, p.IsReturned)
	assert.True(t, p.CanEdit)

	desc := "signed copy attached"
	_, err = svc.Edit(ctx, owner, req.ID, EditRequestInput{Description: &desc})
	require.NoError(t, err)

	resubmitted := mustTransition(t, svc, req.ID, owner, workflow.Input{Action: workflow.ActionResubmit})
	assert.Equal(t, models.StagePlatoonReview, resubmitted.CurrentStage)
	assert.Equal(t, desc, resubmitted.Description)
}

func TestScenarioE_FiledRecordDisposalDate(t *testing.T) {
	catalog, err := ssic.Parse([]byte(`entries:
  - code: "3000"
    nomenclature: Operations
    bucket: OPS
    bucket_title: Operations Records
    cutoff: CALENDAR_YEAR
    retention_value: 3
    retention_unit: years
    disposal_action: Destroy 3 years after cutoff
`))
	require.NoError(t, err)
	svc, _ := newSQLiteService(t, WithCatalog(catalog))
	ctx := context.Background()

	req := approveAtUnit(t, svc, mustCreate(t, svc).ID)
	_, err = svc.Transition(ctx, req.ID, owner, TransitionInput{Input: workflow.Input{Action: workflow.ActionClassify}, SSIC: "3000"})
	require.NoError(t, err)

	filed := mustTransition(t, svc, req.ID, owner, workflow.Input{Action: workflow.ActionArchive, File: true})
	require.NotNil(t, filed.FiledAt)
	assert.True(t, filed.FiledAt.Equal(testNow))

	preview, err := svc.DisposalPreview(ctx, req.ID, "")
	require.NoError(t, err)
	require.NotNil(t, preview.DisposalDate)
	assert.Equal(t, "2027-12-31", preview.DisposalDate.Format(time.DateOnly))
	assert.Equal(t, "2027", preview.YearLabel)

	sched, err := svc.RetentionSchedule(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, sched.Total)
	require.Len(t, sched.Years, 1)
	assert.Equal(t, "2027", sched.Years[0].Label)
	assert.Equal(t, "OPS", sched.Years[0].Buckets[0].Bucket)

	_, err = svc.Transition(ctx, req.ID, owner, TransitionInput{Input: workflow.Input{Action: workflow.ActionClassify}, SSIC: "3000"})
	assert.Error(t, err)
}

func TestScenarioF_PermanentRecordHasNoDisposalDate(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()
	req := mustCreate(t, svc)

	preview, err := svc.DisposalPreview(ctx, req.ID, "1070")
	require.NoError(t, err)
	assert.Nil(t, preview.DisposalDate)
	assert.True(t, preview.Permanent)
	assert.Equal(t, retention.LabelPermanent, preview.YearLabel)

	unclassified, err := svc.DisposalPreview(ctx, req.ID, "")
	require.NoError(t, err)
	assert.Nil(t, unclassified.DisposalDate)
	assert.Equal(t, retention.LabelUnknown, unclassified.YearLabel)

	_, err = svc.DisposalPreview(ctx, req.ID, "9999")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestHQMCAndExternalRouting(t *testing.T) {
	svc, pub := newSQLiteService(t)
	ctx := context.Background()
	req := mustCreate(t, svc)

	mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{Action: workflow.ActionForward})
	mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{Action: workflow.ActionForward})
	mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{Action: workflow.ActionRouteToInstallation, Section: "G1"})
	mustTransition(t, svc, req.ID, instCmdr, workflow.Input{Action: workflow.ActionInstallationRoute})
	mustTransition(t, svc, req.ID, instCmdr, workflow.Input{Action: workflow.ActionInstallationDecision, Decision: workflow.DecisionEndorsed})
	atHQMC := mustTransition(t, svc, req.ID, instCmdr, workflow.Input{Action: workflow.ActionSubmitToHQMC, Section: "MMIB"})
	assert.Equal(t, models.StageHQMCReview, atHQMC.CurrentStage)

	last := pub.Events()[len(pub.Events())-1]
	assert.Contains(t, last.Channels(), "routing:hqmc")

	hqInbox, err := svc.List(ctx, hqmcUser, ListInput{})
	require.NoError(t, err)
	assert.Len(t, hqInbox, 1)

	approved := mustTransition(t, svc, req.ID, hqmcUser, workflow.Input{Action: workflow.ActionHQMCDecision, Decision: workflow.DecisionApproved})
	assert.Equal(t, models.FinalStatusHQMCApproved, approved.FinalStatus)

	back := mustTransition(t, svc, req.ID, hqmcUser, workflow.Input{Action: workflow.ActionReturnToUnit})
	assert.Equal(t, models.StageBattalionReview, back.CurrentStage)

	ext := mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{
		Action: workflow.ActionSendToExternal, ExternalUnitName: "2d Bn", ExternalUnitUIC: "M54321",
	})
	assert.Equal(t, models.StageExternalReview, ext.CurrentStage)

	extActor := authz.Actor{ID: "u-8", Name: "Capt External", Level: authz.LevelExternal, UnitUIC: "M54321"}
	extInbox, err := svc.List(ctx, extActor, ListInput{})
	require.NoError(t, err)
	assert.Len(t, extInbox, 1)

	routed := mustTransition(t, svc, req.ID, extActor, workflow.Input{Action: workflow.ActionExternalRoute, ExternalStage: "S-4"})
	assert.Equal(t, "S-4", routed.ExternalPendingStage)
	returned := mustTransition(t, svc, req.ID, extActor, workflow.Input{Action: workflow.ActionReturnToUnit})
	assert.Equal(t, models.StageBattalionReview, returned.CurrentStage)
	assert.False(t, returned.IsExternal())
}

func TestStrictHQMCScope(t *testing.T) {
	db := newSQLiteRepo(t)
	svc := NewRequestService(db, authz.NewEngine(authz.Options{StrictHQMCScope: true}), WithClock(fixedClock))
	ctx := context.Background()
	req, err := svc.Create(ctx, owner, CreateRequestInput{Title: "Strict"})
	require.NoError(t, err)

	mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{Action: workflow.ActionForward})
	mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{Action: workflow.ActionForward})
	mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{Action: workflow.ActionRouteToInstallation, Section: "G1"})
	mustTransition(t, svc, req.ID, instCmdr, workflow.Input{Action: workflow.ActionInstallationRoute})
	mustTransition(t, svc, req.ID, instCmdr, workflow.Input{Action: workflow.ActionInstallationDecision, Decision: workflow.DecisionEndorsed})
	mustTransition(t, svc, req.ID, instCmdr, workflow.Input{Action: workflow.ActionSubmitToHQMC, Section: "MMEA"})

	_, err = svc.Transition(ctx, req.ID, hqmcUser, TransitionInput{Input: workflow.Input{Action: workflow.ActionHQMCDecision, Decision: workflow.DecisionApproved}})
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	inbox, err := svc.List(ctx, hqmcUser, ListInput{})
	require.NoError(t, err)
	assert.Empty(t, inbox)

	mmea := hqmcUser
	mmea.Division = "MMEA"
	mustTransition(t, svc, req.ID, mmea, workflow.Input{Action: workflow.ActionHQMCDecision, Decision: workflow.DecisionApproved})
}

func TestUnitApprovalSurvivesInstallationRoundTrip(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()
	req := mustCreate(t, svc)

	for i := 0; i < 3; i++ {
		mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{Action: workflow.ActionForward})
	}
	approved := mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{
		Action: workflow.ActionCommanderDecision, Decision: workflow.DecisionApproved, Destination: workflow.DestinationBattalion,
	})
	assert.Equal(t, models.StageBattalionReview, approved.CurrentStage)

	p, err := svc.Permissions(ctx, unitAdmin, req.ID)
	require.NoError(t, err)
	assert.True(t, p.UnitApproved)
	assert.False(t, p.PostApprovalHandled)

	mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{Action: workflow.ActionRouteToInstallation, Section: "G-1"})
	p, err = svc.Permissions(ctx, unitAdmin, req.ID)
	require.NoError(t, err)
	assert.True(t, p.PostApprovalHandled)

	mustTransition(t, svc, req.ID, instCmdr, workflow.Input{Action: workflow.ActionInstallationRoute})
	mustTransition(t, svc, req.ID, instCmdr, workflow.Input{Action: workflow.ActionInstallationDecision, Decision: workflow.DecisionEndorsed})
	back := mustTransition(t, svc, req.ID, instCmdr, workflow.Input{Action: workflow.ActionReturnToUnit})
	assert.Equal(t, models.StageBattalionReview, back.CurrentStage)

	unit := unitAdmin.ArchiveContext(authz.LevelUnit)
	assert.True(t, svc.Engine().CanArchiveAtLevel(back, unit))

	p, err = svc.Permissions(ctx, unitAdmin, req.ID)
	require.NoError(t, err)
	assert.True(t, p.CanArchive)
	assert.Contains(t, p.Actions, workflow.ActionArchive)

	// The same history stored as plain text loses the unit decision.
	legacy := back.Clone()
	for i := range legacy.Activity {
		legacy.Activity[i].Kind = ""
		legacy.Activity[i].Scope = ""
	}
	assert.False(t, svc.Engine().CanArchiveAtLevel(&legacy, unit))

	archived := mustTransition(t, svc, req.ID, unitAdmin, workflow.Input{Action: workflow.ActionArchive, Level: authz.LevelUnit})
	assert.Equal(t, "Archived by unit", archived.Activity[len(archived.Activity)-1].Action)
}
