package ledger

import (
	"fmt"
	"strings"

	"docroute/internal/models"
)

// Display phrasing. Legacy inference matches these strings, so they must not
// be reworded.
const (
	ActionCreated                   = "Request created"
	ActionApprovedByCommander       = "Approved by Commander"
	ActionEndorsedByCommander       = "Endorsed by Commander"
	ActionRejectedByCommander       = "Returned by Commander for corrections"
	ActionReturnedForCorrections    = "Returned for corrections"
	ActionResubmitted               = "Resubmitted by originator"
	ActionSentToInstallationCmdr    = "Sent to Installation Commander"
	ActionApprovedByInstallation    = "Approved by Installation Commander"
	ActionEndorsedByInstallation    = "Endorsed by Installation Commander"
	ActionReturnedByInstallation    = "Returned by Installation Commander"
	ActionApprovedByHQMC            = "Approved by HQMC"
	ActionReturnedByHQMC            = "Returned by HQMC"
	ActionReturnedToOriginatingUnit = "Returned to originating unit"

	installationSectionPrefix = "Sent to installation section: "
)

// Forwarded describes a move along the unit chain.
func Forwarded(from, to models.Stage, toSection string) string {
	msg := fmt.Sprintf("Forwarded from %s to %s", stageLabel(from), stageLabel(to))
	if toSection != "" {
		msg += " (" + toSection + ")"
	}
	return msg
}

// SentToInstallationSection records a forward to a named installation section.
func SentToInstallationSection(section string) string {
	return installationSectionPrefix + section
}

// SubmittedToHQMC records a submission to a higher headquarters division.
func SubmittedToHQMC(division string) string {
	return "Submitted to HQMC division: " + division
}

// SentToExternalUnit records a hand-off to an outside unit.
func SentToExternalUnit(name, uic string) string {
	if name == "" {
		return "Sent to external unit " + uic
	}
	return fmt.Sprintf("Sent to external unit %s (%s)", name, uic)
}

// ExternalRouted records sub-routing inside the receiving unit.
func ExternalRouted(unit, stage string) string {
	return fmt.Sprintf("Routed within %s to %s", unit, stage)
}

// Classified records the SSIC a request was filed under.
func Classified(ssic string) string {
	return "Classified under SSIC " + ssic
}

// Filed records entry into the retention-tracked archive.
func Filed(ssic string) string {
	return "Filed for records retention under SSIC " + ssic
}

// ArchivedBy records archival at the given level.
func ArchivedBy(level string) string {
	return "Archived by " + level
}

func stageLabel(s models.Stage) string {
	words := strings.Split(strings.ToLower(string(s)), "_")
	for i, w := range words {
		if w == "hqmc" {
			words[i] = "HQMC"
			continue
		}
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
