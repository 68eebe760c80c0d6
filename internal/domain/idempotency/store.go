// internal/domain/idempotency/store.go
package idempotency

import (
	"time"

	"gorm.io/gorm"
)

// Scope identifies one deduplicated operation: who performed it, where, and
// under which client-supplied key. Path is the normalized route template, so
// /sales/123/pay and /sales/456/pay share the same path component.
type Scope struct {
	OrganizationID uint
	UserID         uint
	Method         string
	Path           string
	Key            string
}

// Store persists idempotency records. It is a thin gorm layer; all protocol
// decisions live in the Coordinator.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new idempotency store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) scoped(scope Scope) *gorm.DB {
	return s.db.Model(&Key{}).Where(
		"organization_id = ? AND user_id = ? AND method = ? AND path = ? AND key = ?",
		scope.OrganizationID, scope.UserID, scope.Method, scope.Path, scope.Key,
	)
}

// Find returns the record for the scope, or gorm.ErrRecordNotFound.
func (s *Store) Find(scope Scope) (*Key, error) {
	var record Key
	if err := s.scoped(scope).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// CreatePending inserts a new in-flight record. A race with a concurrent
// identical request surfaces as gorm.ErrDuplicatedKey.
func (s *Store) CreatePending(scope Scope, requestHash string, expiresAt time.Time) (*Key, error) {
	record := Key{
		OrganizationID: scope.OrganizationID,
		UserID:         scope.UserID,
		Method:         scope.Method,
		Path:           scope.Path,
		Key:            scope.Key,
		RequestHash:    requestHash,
		ExpiresAt:      expiresAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Complete writes the final response onto the matching record. It updates by
// scope rather than primary key, so it is safe even if the pending row was
// deleted and recreated in between.
func (s *Store) Complete(scope Scope, statusCode int, responseBody string) error {
	now := time.Now().UTC()
	return s.scoped(scope).Updates(map[string]interface{}{
		"status_code":   statusCode,
		"response_body": responseBody,
		"completed_at":  now,
	}).Error
}

// Delete removes the record for the scope so the key becomes usable again.
func (s *Store) Delete(scope Scope) error {
	return s.scoped(scope).Delete(&Key{}).Error
}

// DeleteByID removes a single record by primary key.
func (s *Store) DeleteByID(id uint) error {
	return s.db.Delete(&Key{}, id).Error
}

// DeleteExpired removes all records past their TTL and reports how many.
func (s *Store) DeleteExpired(now time.Time) (int64, error) {
	result := s.db.Where("expires_at < ?", now).Delete(&Key{})
	return result.RowsAffected, result.Error
}
