// internal/domain/audit/entity.go
package audit

import (
	"time"
)

// Event is one append-only audit row. Before/After hold JSON snapshots of the
// mutated entity; Metadata holds free-form JSON context.
type Event struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	EventID        string    `gorm:"size:36;uniqueIndex" json:"event_id"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	Action         string    `gorm:"not null;size:50;index" json:"action"`
	EntityType     string    `gorm:"not null;size:50;index" json:"entity_type"`
	EntityID       uint      `gorm:"not null;index" json:"entity_id"`
	Before         string    `gorm:"type:text" json:"before,omitempty"`
	After          string    `gorm:"type:text" json:"after,omitempty"`
	Metadata       string    `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName overrides
func (Event) TableName() string { return "audit_events" }
