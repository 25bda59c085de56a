package ledger

import (
	"testing"
	"time"

	"docroute/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legacy(action string) models.ActivityEntry {
	return models.ActivityEntry{Actor: "SSgt Doe", Action: action}
}

func kinded(kind models.EventKind, scope models.EventScope, action string) models.ActivityEntry {
	return models.ActivityEntry{Actor: "Col Smith", Action: action, Kind: kind, Scope: scope}
}

func TestLedgerAppendDoesNotMutateReceiver(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	base := New([]models.ActivityEntry{legacy(ActionCreated)})

	next := base.Append(legacy(ActionApprovedByCommander), now)

	assert.Equal(t, 1, base.Len())
	require.Equal(t, 2, next.Len())
	entries := next.Entries()
	assert.Equal(t, 1, entries[1].Seq)
	assert.Equal(t, now, entries[1].Timestamp)

	entries[0].Action = "tampered"
	assert.Equal(t, ActionCreated, next.Entries()[0].Action)
	assert.Equal(t, ActionCreated, base.Entries()[0].Action)
}

func TestLedgerAppendSiblingsDoNotShareBackingArray(t *testing.T) {
	now := time.Now()
	base := New(nil).Append(legacy(ActionCreated), now)

	a := base.Append(legacy("first"), now)
	b := base.Append(legacy("second"), now)

	assert.Equal(t, "first", a.Entries()[1].Action)
	assert.Equal(t, "second", b.Entries()[1].Action)
}

func TestIsReturned(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.ActivityEntry
		want    bool
	}{
		{"empty", nil, false},
		{"legacy last returned", []models.ActivityEntry{legacy(ActionCreated), legacy(ActionReturnedForCorrections)}, true},
		{"legacy case insensitive", []models.ActivityEntry{legacy("RETURNED by S-1")}, true},
		{"returned not last", []models.ActivityEntry{legacy(ActionReturnedForCorrections), legacy(ActionResubmitted)}, false},
		{"kinded rejection", []models.ActivityEntry{kinded(models.EventRejected, models.ScopeUnit, ActionRejectedByCommander)}, true},
		{"kind wins over text", []models.ActivityEntry{kinded(models.EventRouted, models.ScopeUnit, ActionReturnedToOriginatingUnit)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsReturned(tt.entries))
		})
	}
}

func TestUnitApprovalLegacyExclusion(t *testing.T) {
	entries := []models.ActivityEntry{legacy(ActionCreated), legacy(ActionApprovedByCommander)}
	assert.True(t, IsUnitApproved(entries))
	assert.False(t, IsUnitEndorsed(entries))

	entries = append(entries, legacy(ActionSentToInstallationCmdr))
	assert.False(t, IsUnitApproved(entries), "legacy installation commander entry suppresses unit approval")
}

func TestUnitApprovalKindedIgnoresInstallationWording(t *testing.T) {
	entries := []models.ActivityEntry{
		kinded(models.EventCreated, models.ScopeOriginator, ActionCreated),
		kinded(models.EventApproved, models.ScopeUnit, ActionApprovedByCommander),
		kinded(models.EventApproved, models.ScopeInstallation, ActionApprovedByInstallation),
	}
	assert.True(t, IsUnitApproved(entries))
	assert.True(t, IsInstallationApproved(entries))
	assert.False(t, IsInstallationEndorsed(entries))
}

func TestInstallationApprovalWithoutUnitApproval(t *testing.T) {
	for _, entries := range [][]models.ActivityEntry{
		{legacy(ActionCreated), legacy(ActionApprovedByInstallation)},
		{kinded(models.EventCreated, models.ScopeOriginator, ActionCreated), kinded(models.EventApproved, models.ScopeInstallation, ActionApprovedByInstallation)},
	} {
		assert.False(t, IsUnitApproved(entries))
		assert.True(t, IsInstallationApproved(entries))
	}
}

func TestIsHQMCApproved(t *testing.T) {
	assert.True(t, IsHQMCApproved([]models.ActivityEntry{legacy(ActionApprovedByHQMC)}))
	assert.True(t, IsHQMCApproved([]models.ActivityEntry{kinded(models.EventApproved, models.ScopeHQMC, ActionApprovedByHQMC)}))
	assert.False(t, IsHQMCApproved([]models.ActivityEntry{kinded(models.EventApproved, models.ScopeInstallation, ActionApprovedByHQMC)}))
}

func TestHasBattalionActionPostApproval(t *testing.T) {
	before := []models.ActivityEntry{legacy("Sent to S-3"), legacy(ActionApprovedByCommander)}
	assert.False(t, HasBattalionActionPostApproval(before), "disposition before approval does not count")

	after := append(before, legacy("Routed to S-4 for action"))
	assert.True(t, HasBattalionActionPostApproval(after))

	kindedAfter := []models.ActivityEntry{
		kinded(models.EventApproved, models.ScopeUnit, ActionApprovedByCommander),
		kinded(models.EventArchived, models.ScopeUnit, ArchivedBy("unit")),
	}
	assert.True(t, HasBattalionActionPostApproval(kindedAfter))
	assert.False(t, HasBattalionActionPostApproval(nil))
}

func TestHasBattalionActionPostApprovalAcrossScopes(t *testing.T) {
	tests := []struct {
		name    string
		kind    models.EventKind
		scope   models.EventScope
		handoff string
	}{
		{"route to installation", models.EventRouted, models.ScopeInstallation, SentToInstallationSection("G-1")},
		{"send to external", models.EventRouted, models.ScopeExternal, SentToExternalUnit("2d Bn", "M54321")},
		{"archive at unit", models.EventArchived, models.ScopeUnit, ArchivedBy("unit")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kindedLedger := []models.ActivityEntry{
				kinded(models.EventCreated, models.ScopeOriginator, ActionCreated),
				kinded(models.EventApproved, models.ScopeUnit, ActionApprovedByCommander),
				kinded(tt.kind, tt.scope, tt.handoff),
			}
			legacyLedger := []models.ActivityEntry{
				legacy(ActionCreated),
				legacy(ActionApprovedByCommander),
				legacy(tt.handoff),
			}
			assert.True(t, HasBattalionActionPostApproval(kindedLedger))
			assert.True(t, HasBattalionActionPostApproval(legacyLedger))
			assert.False(t, HasBattalionActionPostApproval(kindedLedger[:2]))
			assert.False(t, HasBattalionActionPostApproval(legacyLedger[:2]))
		})
	}
}

func TestLastInstallationSection(t *testing.T) {
	toG3 := kinded(models.EventRouted, models.ScopeInstallation, SentToInstallationSection("G-3"))
	toG3.ToSection = "G-3"
	entries := []models.ActivityEntry{
		legacy(SentToInstallationSection("G-1")),
		toG3,
		kinded(models.EventRouted, models.ScopeInstallation, ActionSentToInstallationCmdr),
	}
	assert.Equal(t, "G-3", LastInstallationSection(entries))
	assert.Equal(t, "G-1", LastInstallationSection(entries[:1]))
	assert.Equal(t, "", LastInstallationSection(nil))
}

func TestPredicatesAreIdempotent(t *testing.T) {
	entries := []models.ActivityEntry{legacy(ActionCreated), legacy(ActionApprovedByCommander), legacy(ActionReturnedForCorrections)}
	for i := 0; i < 2; i++ {
		assert.True(t, IsUnitApproved(entries))
		assert.True(t, IsReturned(entries))
		assert.True(t, HasAnyCommanderDecision(entries))
	}
}

func TestForwardedWording(t *testing.T) {
	assert.Equal(t, "Forwarded from Platoon Review to Company Review", Forwarded(models.StagePlatoonReview, models.StageCompanyReview, ""))
	assert.Equal(t, "Forwarded from Battalion Review to Commander Review (XO)", Forwarded(models.StageBattalionReview, models.StageCommanderReview, "XO"))
	assert.Equal(t, "Sent to installation section: G-4", SentToInstallationSection("G-4"))
}
