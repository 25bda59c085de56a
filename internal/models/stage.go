package models

import "fmt"

// Stage is a coarse-grained phase of the approval chain.
type Stage string

const (
	// StagePlatoonReview is the initial stage; the originator's squad or platoon holds the request.
	StagePlatoonReview Stage = "PLATOON_REVIEW"
	// StageCompanyReview is held by the company.
	StageCompanyReview Stage = "COMPANY_REVIEW"
	// StageBattalionReview is held by the battalion staff.
	StageBattalionReview Stage = "BATTALION_REVIEW"
	// StageCommanderReview is held by the unit commander.
	StageCommanderReview Stage = "COMMANDER_REVIEW"
	// StageInstallationReview is held by an installation section or the installation commander.
	StageInstallationReview Stage = "INSTALLATION_REVIEW"
	// StageHQMCReview is held by a higher headquarters division.
	StageHQMCReview Stage = "HQMC_REVIEW"
	// StageExternalReview is held by a unit outside the owning organization.
	StageExternalReview Stage = "EXTERNAL_REVIEW"
	// StageOriginatorReview returns the request to its originator.
	StageOriginatorReview Stage = "ORIGINATOR_REVIEW"
	// StageArchived is terminal.
	StageArchived Stage = "ARCHIVED"
)

// AllStages lists every stage in chain order.
var AllStages = []Stage{
	StagePlatoonReview,
	StageCompanyReview,
	StageBattalionReview,
	StageCommanderReview,
	StageInstallationReview,
	StageHQMCReview,
	StageExternalReview,
	StageOriginatorReview,
	StageArchived,
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	for _, known := range AllStages {
		if s == known {
			return true
		}
	}
	return false
}

// IsUnitChain reports whether s belongs to the owning unit's internal review chain.
func (s Stage) IsUnitChain() bool {
	switch s {
	case StagePlatoonReview, StageCompanyReview, StageBattalionReview, StageCommanderReview:
		return true
	}
	return false
}

// ParseStage converts a raw string into a Stage.
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown stage %q", raw)
	}
	return s, nil
}
