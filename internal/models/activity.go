package models

import "time"

// EventKind is the structured meaning of a ledger entry.
type EventKind string

const (
	EventCreated    EventKind = "created"
	EventRouted     EventKind = "routed"
	EventApproved   EventKind = "approved"
	EventEndorsed   EventKind = "endorsed"
	EventRejected   EventKind = "rejected"
	EventReturned   EventKind = "returned"
	EventClassified EventKind = "classified"
	EventFiled      EventKind = "filed"
	EventArchived   EventKind = "archived"
)

// EventScope is the organizational level an event happened at.
type EventScope string

const (
	ScopeOriginator   EventScope = "originator"
	ScopeUnit         EventScope = "unit"
	ScopeInstallation EventScope = "installation"
	ScopeHQMC         EventScope = "hqmc"
	ScopeExternal     EventScope = "external"
)

// ActivityEntry is one historical fact in a request's ledger.
// Entries written before event kinds existed have an empty Kind and are
// interpreted from their Action text.
type ActivityEntry struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	RequestID   string     `gorm:"size:36;not null;uniqueIndex:idx_request_activity_seq" json:"request_id"`
	Seq         int        `gorm:"not null;uniqueIndex:idx_request_activity_seq" json:"seq"`
	Actor       string     `gorm:"size:160;not null" json:"actor"`
	ActorRole   string     `gorm:"size:80" json:"actor_role,omitempty"`
	Timestamp   time.Time  `gorm:"not null" json:"timestamp"`
	Action      string     `gorm:"type:text;not null" json:"action"`
	Comment     string     `gorm:"type:text" json:"comment,omitempty"`
	FromSection string     `gorm:"size:64" json:"from_section,omitempty"`
	ToSection   string     `gorm:"size:64" json:"to_section,omitempty"`
	Kind        EventKind  `gorm:"type:varchar(20);index" json:"event_kind,omitempty"`
	Scope       EventScope `gorm:"type:varchar(20)" json:"event_scope,omitempty"`
}

// TableName specifies the table name for GORM.
func (ActivityEntry) TableName() string {
	return "request_activities"
}
