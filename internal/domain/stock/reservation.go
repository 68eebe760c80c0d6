// internal/domain/stock/reservation.go
package stock

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/backoffice-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// ReservationManager creates, confirms, and releases stock reservations.
// Confirm and Release run inside the caller's transaction; they are not
// independently transactional. That is what lets the sale lifecycle batch
// multiple reservation operations atomically with its own status flip.
type ReservationManager struct {
	ledger *Ledger
}

// NewReservationManager creates a new reservation manager
func NewReservationManager(ledger *Ledger) *ReservationManager {
	return &ReservationManager{ledger: ledger}
}

// CreateReservationRequest represents reservation creation data. Exactly one
// of StockItemID and CatalogItemID must be set.
type CreateReservationRequest struct {
	StockItemID   *uint `json:"stock_item_id"`
	CatalogItemID *uint `json:"catalog_item_id"`
	Quantity      int   `json:"quantity" binding:"required,gt=0"`
}

// Create places a soft hold. No quantity is deducted; availability is only
// verified for stock-item-linked holds (catalog-linked holds resolve lazily
// at confirm time).
func (m *ReservationManager) Create(tx *gorm.DB, organizationID uint, req *CreateReservationRequest) (*Reservation, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.Validation("reservation quantity must be positive")
	}
	if (req.StockItemID == nil) == (req.CatalogItemID == nil) {
		return nil, apperrors.Validation("reservation must reference exactly one of stock_item_id or catalog_item_id")
	}

	if req.StockItemID != nil {
		var item Item
		err := tx.Where("id = ? AND organization_id = ?", *req.StockItemID, organizationID).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("stock item", *req.StockItemID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load stock item: %w", err)
		}
		if item.Status != ItemStatusAvailable {
			return nil, apperrors.Validation(fmt.Sprintf("stock item %d is not available", item.ID))
		}
		if item.Quantity < req.Quantity {
			return nil, apperrors.InsufficientStock(item.ID, item.Quantity, req.Quantity)
		}
	}

	reservation := Reservation{
		OrganizationID: organizationID,
		StockItemID:    req.StockItemID,
		CatalogItemID:  req.CatalogItemID,
		Quantity:       req.Quantity,
		Status:         ReservationStatusActive,
	}

	if err := tx.Create(&reservation).Error; err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	return &reservation, nil
}

// Confirm converts an ACTIVE reservation's hold into a permanent stock
// deduction. Any other status is a hard error, never a silent no-op.
//
// Catalog-linked reservations deplete AVAILABLE stock rows oldest-first
// (FIFO) until the reserved quantity is covered, one movement per affected
// row; if total availability is insufficient the whole operation fails with
// no partial deduction. Stock-item-linked reservations deduct directly from
// the single linked row.
func (m *ReservationManager) Confirm(tx *gorm.DB, organizationID, reservationID, userID uint) error {
	reservation, err := m.lockActive(tx, organizationID, reservationID, "confirm")
	if err != nil {
		return err
	}

	ref := MovementRef{ReservationID: &reservation.ID, SaleID: reservation.SaleID}

	switch {
	case reservation.StockItemID != nil:
		if err := m.confirmDirect(tx, reservation, userID, ref); err != nil {
			return err
		}
	case reservation.CatalogItemID != nil:
		if err := m.confirmFIFO(tx, reservation, userID, ref); err != nil {
			return err
		}
	default:
		return apperrors.Validation(fmt.Sprintf("reservation %d has no stock or catalog linkage", reservation.ID))
	}

	now := time.Now().UTC()
	reservation.Status = ReservationStatusConfirmed
	reservation.ConfirmedAt = &now
	if err := tx.Save(reservation).Error; err != nil {
		return fmt.Errorf("failed to mark reservation %d confirmed: %w", reservation.ID, err)
	}

	return nil
}

// Release frees an ACTIVE hold. No quantity changes, but a RELEASE movement
// with equal before/after quantities is still recorded on the linked stock
// item for auditability.
func (m *ReservationManager) Release(tx *gorm.DB, organizationID, reservationID, userID uint) error {
	reservation, err := m.lockActive(tx, organizationID, reservationID, "release")
	if err != nil {
		return err
	}

	if reservation.StockItemID != nil {
		var item Item
		if err := tx.Where("id = ? AND organization_id = ?", *reservation.StockItemID, organizationID).First(&item).Error; err != nil {
			return fmt.Errorf("failed to load stock item for release: %w", err)
		}
		ref := MovementRef{ReservationID: &reservation.ID, SaleID: reservation.SaleID}
		if _, err := m.ledger.RecordZeroDelta(tx, &item, MovementTypeRelease, userID, ref); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	reservation.Status = ReservationStatusReleased
	reservation.ReleasedAt = &now
	if err := tx.Save(reservation).Error; err != nil {
		return fmt.Errorf("failed to mark reservation %d released: %w", reservation.ID, err)
	}

	return nil
}

// LinkToSale sets the reservation's sale linkage. The linkage is irreversible:
// a reservation already attached to a sale cannot be re-linked.
func (m *ReservationManager) LinkToSale(tx *gorm.DB, organizationID, reservationID, saleID uint) error {
	reservation, err := m.find(tx, organizationID, reservationID)
	if err != nil {
		return err
	}

	if reservation.Status != ReservationStatusActive {
		return apperrors.Validation(fmt.Sprintf("reservation %d is %s, only ACTIVE reservations can be attached to a sale", reservation.ID, reservation.Status))
	}
	if reservation.SaleID != nil {
		return apperrors.Conflict(
			fmt.Sprintf("reservation %d is already linked to sale %d", reservation.ID, *reservation.SaleID),
			map[string]interface{}{"reservation_id": reservation.ID, "sale_id": *reservation.SaleID},
		)
	}

	reservation.SaleID = &saleID
	if err := tx.Save(reservation).Error; err != nil {
		return fmt.Errorf("failed to link reservation %d to sale %d: %w", reservationID, saleID, err)
	}

	return nil
}

func (m *ReservationManager) confirmDirect(tx *gorm.DB, reservation *Reservation, userID uint, ref MovementRef) error {
	var item Item
	err := tx.Where("id = ? AND organization_id = ?", *reservation.StockItemID, reservation.OrganizationID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("stock item", *reservation.StockItemID)
	}
	if err != nil {
		return fmt.Errorf("failed to load stock item for confirm: %w", err)
	}

	_, err = m.ledger.Decrease(tx, &item, reservation.Quantity, MovementTypeSold, userID, ref)
	return err
}

func (m *ReservationManager) confirmFIFO(tx *gorm.DB, reservation *Reservation, userID uint, ref MovementRef) error {
	var items []Item
	err := tx.
		Where("organization_id = ? AND catalog_item_id = ? AND status = ? AND quantity > 0",
			reservation.OrganizationID, *reservation.CatalogItemID, ItemStatusAvailable).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return fmt.Errorf("failed to load stock for catalog item %d: %w", *reservation.CatalogItemID, err)
	}

	available := 0
	for _, item := range items {
		available += item.Quantity
	}
	if available < reservation.Quantity {
		return apperrors.InsufficientStock(0, available, reservation.Quantity)
	}

	remaining := reservation.Quantity
	for i := range items {
		if remaining == 0 {
			break
		}
		take := items[i].Quantity
		if take > remaining {
			take = remaining
		}
		if _, err := m.ledger.Decrease(tx, &items[i], take, MovementTypeSold, userID, ref); err != nil {
			return err
		}
		remaining -= take
	}

	return nil
}

func (m *ReservationManager) find(tx *gorm.DB, organizationID, reservationID uint) (*Reservation, error) {
	var reservation Reservation
	err := tx.Where("id = ? AND organization_id = ?", reservationID, organizationID).First(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("reservation", reservationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation %d: %w", reservationID, err)
	}
	return &reservation, nil
}

func (m *ReservationManager) lockActive(tx *gorm.DB, organizationID, reservationID uint, operation string) (*Reservation, error) {
	reservation, err := m.find(tx, organizationID, reservationID)
	if err != nil {
		return nil, err
	}

	if reservation.Status != ReservationStatusActive {
		target := string(ReservationStatusConfirmed)
		if operation == "release" {
			target = string(ReservationStatusReleased)
		}
		return nil, apperrors.InvalidTransition("reservation", string(reservation.Status), target)
	}

	return reservation, nil
}
