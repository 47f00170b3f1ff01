package entities

import "time"

type AuditEventType string

const (
	AuditEventCheckout    AuditEventType = "checkout"
	AuditEventCheckin     AuditEventType = "checkin"
	AuditEventFinePayment AuditEventType = "fine_payment"
	AuditEventBorrower    AuditEventType = "borrower"
	AuditEventImport      AuditEventType = "import"
)

type AuditStatus string

const (
	AuditStatusSuccess  AuditStatus = "success"
	AuditStatusRejected AuditStatus = "rejected"
	AuditStatusFailed   AuditStatus = "failed"
)

type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"`      // e.g. "loan_checkout", "fine_pay"
	Description string         `gorm:"size:500" json:"description"` // Message shown to the librarian
	EntityType  string         `gorm:"size:50" json:"entity_type"`  // "loan", "fine", "borrower"
	EntityID    string         `gorm:"index;size:64" json:"entity_id,omitempty"`
	CardID      string         `gorm:"index;size:10" json:"card_id,omitempty"`
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"` // JSON for extra data
	RequestID   string         `gorm:"size:64" json:"request_id,omitempty"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
