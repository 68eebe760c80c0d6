// internal/domain/idempotency/entity.go
package idempotency

import (
	"time"
)

// Key is the persistent record of one deduplicated request. The scope columns
// (organization, user, method, path, key) carry a composite unique index; that
// constraint is the only synchronization primitive the begin protocol relies
// on. A row with nil StatusCode/ResponseBody is pending: the guarded operation
// is in flight or crashed before completing.
type Key struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	OrganizationID uint       `gorm:"not null;index:idx_idempotency_scope,unique" json:"organization_id"`
	UserID         uint       `gorm:"not null;index:idx_idempotency_scope,unique" json:"user_id"`
	Method         string     `gorm:"not null;size:10;index:idx_idempotency_scope,unique" json:"method"`
	Path           string     `gorm:"not null;size:255;index:idx_idempotency_scope,unique" json:"path"`
	Key            string     `gorm:"not null;size:128;index:idx_idempotency_scope,unique" json:"key"`
	RequestHash    string     `gorm:"not null;size:64" json:"request_hash"`
	StatusCode     *int       `json:"status_code"`
	ResponseBody   *string    `gorm:"type:text" json:"-"`
	ExpiresAt      time.Time  `gorm:"not null;index" json:"expires_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName overrides
func (Key) TableName() string { return "idempotency_keys" }

// IsExpired reports whether the record is past its TTL.
func (k *Key) IsExpired(now time.Time) bool {
	return k.ExpiresAt.Before(now)
}

// IsCompleted reports whether a response has been recorded.
func (k *Key) IsCompleted() bool {
	return k.StatusCode != nil && k.ResponseBody != nil
}
