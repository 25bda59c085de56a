package ledger

import (
	"regexp"
	"strings"

	"docroute/internal/models"
)

// Pattern identifies a semantic event. Kinded entries are matched on Kind
// (and Scope when set); legacy entries are matched on Text.
type Pattern struct {
	Kinds []models.EventKind
	Scope models.EventScope
	Text  *regexp.Regexp
}

// Match reports whether a single entry matches the pattern.
func (p Pattern) Match(e models.ActivityEntry) bool {
	if e.Kind == "" {
		return p.Text != nil && p.Text.MatchString(e.Action)
	}
	if p.Scope != "" && e.Scope != p.Scope {
		return false
	}
	for _, k := range p.Kinds {
		if e.Kind == k {
			return true
		}
	}
	return false
}

var (
	legacyInstallationCommander = regexp.MustCompile(`(?i)installation commander`)
	legacySentToInstallation    = regexp.MustCompile(`(?i)sent to installation section:\s*(\S+)`)
)

// Predefined patterns used by the predicates below.
var (
	UnitApproval = Pattern{
		Kinds: []models.EventKind{models.EventApproved},
		Scope: models.ScopeUnit,
		Text:  regexp.MustCompile(`(?i)approved by commander`),
	}
	UnitEndorsement = Pattern{
		Kinds: []models.EventKind{models.EventEndorsed},
		Scope: models.ScopeUnit,
		Text:  regexp.MustCompile(`(?i)endorsed by commander`),
	}
	InstallationApproval = Pattern{
		Kinds: []models.EventKind{models.EventApproved},
		Scope: models.ScopeInstallation,
		Text:  regexp.MustCompile(`(?i)(approved by installation commander|installation commander approved)`),
	}
	InstallationEndorsement = Pattern{
		Kinds: []models.EventKind{models.EventEndorsed},
		Scope: models.ScopeInstallation,
		Text:  regexp.MustCompile(`(?i)(endorsed by installation commander|installation commander endorsed)`),
	}
	HQMCApproval = Pattern{
		Kinds: []models.EventKind{models.EventApproved},
		Scope: models.ScopeHQMC,
		Text:  regexp.MustCompile(`(?i)(approved by hqmc|hqmc approved)`),
	}
	// BattalionDisposition matches at any scope: the unit's hand-off to an
	// installation or external unit is recorded under the destination scope.
	BattalionDisposition = Pattern{
		Kinds: []models.EventKind{models.EventRouted, models.EventArchived, models.EventFiled},
		Text:  regexp.MustCompile(`(?i)\b(archived|sent|routed|assigned)\b`),
	}
)

// LastActivity returns the final entry, if any.
func LastActivity(entries []models.ActivityEntry) (models.ActivityEntry, bool) {
	if len(entries) == 0 {
		return models.ActivityEntry{}, false
	}
	return entries[len(entries)-1], true
}

// IsReturned looks only at the last entry.
func IsReturned(entries []models.ActivityEntry) bool {
	last, ok := LastActivity(entries)
	if !ok {
		return false
	}
	switch last.Kind {
	case models.EventReturned, models.EventRejected:
		return true
	case "":
		return strings.Contains(strings.ToLower(last.Action), "returned")
	default:
		return false
	}
}

// HasActivity reports whether any entry matches p.
func HasActivity(entries []models.ActivityEntry, p Pattern) bool {
	return firstMatch(entries, p) >= 0
}

// IsUnitApproved reports a unit commander approval. For legacy entries any
// installation-commander entry anywhere in the ledger suppresses the match.
func IsUnitApproved(entries []models.ActivityEntry) bool {
	return unitDecision(entries, UnitApproval)
}

// IsUnitEndorsed is the endorsement counterpart of IsUnitApproved.
func IsUnitEndorsed(entries []models.ActivityEntry) bool {
	return unitDecision(entries, UnitEndorsement)
}

func IsInstallationApproved(entries []models.ActivityEntry) bool {
	return HasActivity(entries, InstallationApproval)
}

func IsInstallationEndorsed(entries []models.ActivityEntry) bool {
	return HasActivity(entries, InstallationEndorsement)
}

func IsHQMCApproved(entries []models.ActivityEntry) bool {
	return HasActivity(entries, HQMCApproval)
}

// HasAnyCommanderDecision is true once any unit or installation approval or
// endorsement has been recorded.
func HasAnyCommanderDecision(entries []models.ActivityEntry) bool {
	return IsUnitApproved(entries) || IsUnitEndorsed(entries) ||
		IsInstallationApproved(entries) || IsInstallationEndorsed(entries)
}

// HasBattalionActionPostApproval scans forward from the first unit approval
// for a later battalion-level disposition.
func HasBattalionActionPostApproval(entries []models.ActivityEntry) bool {
	start := -1
	for i, e := range entries {
		if isUnitDecisionEntry(entries, e, UnitApproval) {
			start = i
			break
		}
	}
	if start < 0 {
		return false
	}
	for _, e := range entries[start+1:] {
		if BattalionDisposition.Match(e) {
			return true
		}
	}
	return false
}

// LastInstallationSection returns the section named by the most recent
// forward to an installation section, or "".
func LastInstallationSection(entries []models.ActivityEntry) string {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Kind == "" {
			if m := legacySentToInstallation.FindStringSubmatch(e.Action); m != nil {
				return m[1]
			}
			continue
		}
		if e.Kind == models.EventRouted && e.Scope == models.ScopeInstallation && e.ToSection != "" {
			return e.ToSection
		}
	}
	return ""
}

func unitDecision(entries []models.ActivityEntry, p Pattern) bool {
	for _, e := range entries {
		if isUnitDecisionEntry(entries, e, p) {
			return true
		}
	}
	return false
}

func isUnitDecisionEntry(entries []models.ActivityEntry, e models.ActivityEntry, p Pattern) bool {
	if !p.Match(e) {
		return false
	}
	if e.Kind != "" {
		return true
	}
	return !hasLegacyInstallationCommander(entries)
}

func hasLegacyInstallationCommander(entries []models.ActivityEntry) bool {
	for _, e := range entries {
		if e.Kind == "" && legacyInstallationCommander.MatchString(e.Action) {
			return true
		}
	}
	return false
}

func firstMatch(entries []models.ActivityEntry, p Pattern) int {
	for i, e := range entries {
		if p.Match(e) {
			return i
		}
	}
	return -1
}
