// internal/domain/audit/recorder.go
package audit

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recorder writes audit events inside the caller's transaction. Every
// state-changing operation in the core pairs its mutation with exactly one
// Record call on the same *gorm.DB handle.
type Recorder struct{}

// NewRecorder creates a new audit recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Entry describes one audit event to be recorded.
type Entry struct {
	OrganizationID uint
	UserID         uint
	Action         string
	EntityType     string
	EntityID       uint
	Before         interface{}
	After          interface{}
	Metadata       map[string]interface{}
}

// Record serializes the snapshots and persists the event on tx.
func (r *Recorder) Record(tx *gorm.DB, entry Entry) error {
	event := Event{
		EventID:        uuid.NewString(),
		OrganizationID: entry.OrganizationID,
		UserID:         entry.UserID,
		Action:         entry.Action,
		EntityType:     entry.EntityType,
		EntityID:       entry.EntityID,
	}

	var err error
	if event.Before, err = marshalSnapshot(entry.Before); err != nil {
		return fmt.Errorf("failed to serialize before snapshot: %w", err)
	}
	if event.After, err = marshalSnapshot(entry.After); err != nil {
		return fmt.Errorf("failed to serialize after snapshot: %w", err)
	}
	if len(entry.Metadata) > 0 {
		if event.Metadata, err = marshalSnapshot(entry.Metadata); err != nil {
			return fmt.Errorf("failed to serialize metadata: %w", err)
		}
	}

	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}

func marshalSnapshot(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
