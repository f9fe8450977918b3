package audit

import "time"

type EventType string

const (
	EventSubmitted           EventType = "submitted"
	EventStatusChanged       EventType = "status_changed"
	EventDocumentVerified    EventType = "document_verified"
	EventDocumentRejected    EventType = "document_rejected"
	EventCounterOfferCreated EventType = "counter_offer_created"
	EventVersionActivated    EventType = "version_activated"
	EventContractUpdated     EventType = "contract_updated"
	EventSignatureRecorded   EventType = "signature_recorded"
)

// AuditEvent is append-only: no Update or Delete exists anywhere for this
// table. It is written in the same transaction as the change it describes.
type AuditEvent struct {
	ID            uint64 `gorm:"primaryKey;column:id" json:"-"`
	ApplicationID uint64 `gorm:"column:application_id;not null;index:idx_audit_events_application" json:"-"`
	// Nil for system-originated events.
	ActorID *string `gorm:"size:32" json:"actor_id,omitempty"`

	EventType   EventType `gorm:"size:32;not null" json:"event_type"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description,omitempty"`

	Status         string  `gorm:"size:32" json:"status"`
	PreviousStatus *string `gorm:"size:32" json:"previous_status,omitempty"`
	NewStatus      *string `gorm:"size:32" json:"new_status,omitempty"`

	Details map[string]any `gorm:"serializer:json;type:json" json:"details,omitempty"`

	IPAddress string `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent string `gorm:"size:255" json:"user_agent,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AuditEvent) TableName() string { return "loan_application_audit_events" }

// Filter narrows a per-application read of the trail.
type Filter struct {
	EventTypes []EventType
	Since      *time.Time
	Until      *time.Time
	Limit      int
}
