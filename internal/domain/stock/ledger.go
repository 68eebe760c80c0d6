// internal/domain/stock/ledger.go
package stock

import (
	"encoding/json"
	"fmt"

	"github.com/your-org/backoffice-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Ledger owns every quantity change on stock items. Callers never write
// Item.Quantity directly: each change goes through Increase/Decrease inside
// the caller's transaction, which pairs the update with exactly one
// append-only Movement row carrying the before/after quantities.
type Ledger struct{}

// NewLedger creates a new stock ledger
func NewLedger() *Ledger {
	return &Ledger{}
}

// MovementRef carries the optional linkage and metadata recorded on a
// movement row.
type MovementRef struct {
	ReservationID *uint
	SaleID        *uint
	Metadata      map[string]interface{}
}

// Increase adds quantity to the item and records a movement.
func (l *Ledger) Increase(tx *gorm.DB, item *Item, quantity int, movementType MovementType, userID uint, ref MovementRef) (*Movement, error) {
	if quantity <= 0 {
		return nil, apperrors.Validation("movement quantity must be positive")
	}

	before := item.Quantity
	item.Quantity = before + quantity

	if err := tx.Save(item).Error; err != nil {
		return nil, fmt.Errorf("failed to update stock item %d: %w", item.ID, err)
	}

	return l.record(tx, item, movementType, before, item.Quantity, userID, ref)
}

// Decrease removes quantity from the item and records a movement. It rejects
// any deduction that would drive the quantity negative. A serialized item
// whose quantity reaches zero flips to SOLD; bulk items never auto-transition.
func (l *Ledger) Decrease(tx *gorm.DB, item *Item, quantity int, movementType MovementType, userID uint, ref MovementRef) (*Movement, error) {
	if quantity <= 0 {
		return nil, apperrors.Validation("movement quantity must be positive")
	}

	before := item.Quantity
	if before < quantity {
		return nil, apperrors.InsufficientStock(item.ID, before, quantity)
	}

	item.Quantity = before - quantity
	if item.Quantity == 0 && item.IsSerialized() {
		item.Status = ItemStatusSold
	}

	if err := tx.Save(item).Error; err != nil {
		return nil, fmt.Errorf("failed to update stock item %d: %w", item.ID, err)
	}

	return l.record(tx, item, movementType, before, item.Quantity, userID, ref)
}

// RecordZeroDelta writes a movement with equal before/after quantities. Used
// by reservation release, which frees the hold without touching quantity but
// must still leave an audit trail.
func (l *Ledger) RecordZeroDelta(tx *gorm.DB, item *Item, movementType MovementType, userID uint, ref MovementRef) (*Movement, error) {
	return l.record(tx, item, movementType, item.Quantity, item.Quantity, userID, ref)
}

func (l *Ledger) record(tx *gorm.DB, item *Item, movementType MovementType, before, after int, userID uint, ref MovementRef) (*Movement, error) {
	movement := Movement{
		OrganizationID: item.OrganizationID,
		StockItemID:    item.ID,
		Type:           movementType,
		QuantityBefore: before,
		QuantityAfter:  after,
		ReservationID:  ref.ReservationID,
		SaleID:         ref.SaleID,
		UserID:         userID,
	}

	if len(ref.Metadata) > 0 {
		data, err := json.Marshal(ref.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize movement metadata: %w", err)
		}
		movement.Metadata = string(data)
	}

	if err := tx.Create(&movement).Error; err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}

	return &movement, nil
}
