package models

import "time"

// CutoffTrigger defines when a record's retention clock starts.
type CutoffTrigger string

const (
	// CutoffCalendarYear cuts off on December 31.
	CutoffCalendarYear CutoffTrigger = "CALENDAR_YEAR"
	// CutoffFiscalYear cuts off on September 30 of the fiscal year starting October 1.
	CutoffFiscalYear CutoffTrigger = "FISCAL_YEAR"
	// CutoffEvent cuts off on the reference date itself.
	CutoffEvent CutoffTrigger = "EVENT"
)

// RetentionUnit is the unit of a retention period.
type RetentionUnit string

const (
	RetentionDays   RetentionUnit = "days"
	RetentionMonths RetentionUnit = "months"
	RetentionYears  RetentionUnit = "years"
)

// Final status markers.
const (
	FinalStatusApproved     = "APPROVED"
	FinalStatusEndorsed     = "ENDORSED"
	FinalStatusHQMCApproved = "HQMC_APPROVED"
)

// Classification holds the resolved SSIC records classification of a request.
type Classification struct {
	SSIC           string        `gorm:"column:ssic;size:16;index" json:"ssic,omitempty"`
	Nomenclature   string        `gorm:"size:255" json:"nomenclature,omitempty"`
	Bucket         string        `gorm:"size:64" json:"bucket,omitempty"`
	BucketTitle    string        `gorm:"size:255" json:"bucket_title,omitempty"`
	IsPermanent    bool          `gorm:"not null;default:false" json:"is_permanent"`
	CutoffTrigger  CutoffTrigger `gorm:"type:varchar(20)" json:"cutoff_trigger,omitempty"`
	RetentionValue int           `json:"retention_value,omitempty"`
	RetentionUnit  RetentionUnit `gorm:"type:varchar(10)" json:"retention_unit,omitempty"`
	DisposalAction string        `gorm:"size:255" json:"disposal_action,omitempty"`
}

// Request is a document routed through the approval chain.
type Request struct {
	ID             string  `gorm:"primaryKey;size:36" json:"id"`
	Title          string  `gorm:"size:255;not null" json:"title"`
	Description    string  `gorm:"type:text" json:"description"`
	UploadedByID   string  `gorm:"size:64;not null;index" json:"uploaded_by_id"`
	UnitUIC        string  `gorm:"column:unit_uic;size:16;not null;index" json:"unit_uic"`
	InstallationID *string `gorm:"size:64;index" json:"installation_id,omitempty"`

	CurrentStage    Stage  `gorm:"type:varchar(32);not null;index" json:"current_stage"`
	RouteSection    string `gorm:"size:64" json:"route_section,omitempty"`
	PreviousSection string `gorm:"size:64" json:"previous_section,omitempty"`

	ExternalPendingUnitName string `gorm:"size:160" json:"external_pending_unit_name,omitempty"`
	ExternalPendingUnitUIC  string `gorm:"column:external_pending_unit_uic;size:16;index" json:"external_pending_unit_uic,omitempty"`
	ExternalPendingStage    string `gorm:"size:64" json:"external_pending_stage,omitempty"`

	FinalStatus string `gorm:"size:32" json:"final_status,omitempty"`

	Classification `gorm:"embedded"`

	FiledAt *time.Time `gorm:"index" json:"filed_at,omitempty"`

	Activity []ActivityEntry `gorm:"foreignKey:RequestID;references:ID" json:"activity"`

	Version   int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Request) TableName() string {
	return "requests"
}

// IsExternal reports whether the request is currently routed outside the owning organization.
func (r *Request) IsExternal() bool {
	return r.ExternalPendingUnitUIC != "" || r.ExternalPendingUnitName != ""
}

// IsFiled reports whether the request has entered the retention-tracked archive.
func (r *Request) IsFiled() bool {
	return r.FiledAt != nil
}

// Clone returns a deep copy that shares no mutable state with r.
func (r Request) Clone() Request {
	out := r
	if r.InstallationID != nil {
		id := *r.InstallationID
		out.InstallationID = &id
	}
	if r.FiledAt != nil {
		at := *r.FiledAt
		out.FiledAt = &at
	}
	if r.Activity != nil {
		out.Activity = make([]ActivityEntry, len(r.Activity))
		copy(out.Activity, r.Activity)
	}
	return out
}

// InstallationIDValue returns the installation id or "" when unset.
func (r *Request) InstallationIDValue() string {
	if r.InstallationID == nil {
		return ""
	}
	return *r.InstallationID
}
