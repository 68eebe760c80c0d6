// internal/domain/stock/service.go
package stock

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/backoffice-backend/internal/domain/audit"
	"github.com/your-org/backoffice-backend/internal/pkg/actor"
	"github.com/your-org/backoffice-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles stock intake, queries, and the reservation endpoints that
// are not tied to a sale transition.
type Service struct {
	db       *gorm.DB
	ledger   *Ledger
	manager  *ReservationManager
	recorder *audit.Recorder
	logger   *logrus.Logger
}

// NewService creates a new stock service
func NewService(db *gorm.DB, ledger *Ledger, manager *ReservationManager, recorder *audit.Recorder, logger *logrus.Logger) *Service {
	return &Service{
		db:       db,
		ledger:   ledger,
		manager:  manager,
		recorder: recorder,
		logger:   logger,
	}
}

// Ledger exposes the underlying ledger for collaborating services.
func (s *Service) Ledger() *Ledger { return s.ledger }

// Reservations exposes the reservation manager for collaborating services.
func (s *Service) Reservations() *ReservationManager { return s.manager }

// BulkAddLine represents one line of a bulk stock intake
type BulkAddLine struct {
	SKU           string          `json:"sku"`
	ModelName     string          `json:"model_name" binding:"required"`
	IMEI          *string         `json:"imei,omitempty"`
	Quantity      int             `json:"quantity" binding:"required,gt=0"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	BasePrice     decimal.Decimal `json:"base_price"`
	CatalogItemID *uint           `json:"catalog_item_id,omitempty"`
}

// BulkAddRequest represents bulk stock intake data
type BulkAddRequest struct {
	Lines []BulkAddLine `json:"lines" binding:"required,min=1,dive"`
}

// BulkAdd creates stock items and records one IN movement per line, all in a
// single transaction. The endpoint wrapping it is idempotency-guarded, so a
// retried request never doubles the intake.
func (s *Service) BulkAdd(act actor.Actor, req *BulkAddRequest) ([]Item, error) {
	if len(req.Lines) == 0 {
		return nil, apperrors.Validation("bulk add requires at least one line")
	}

	var created []Item
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, line := range req.Lines {
			if line.Quantity <= 0 {
				return apperrors.Validation("bulk add line quantity must be positive")
			}
			if line.IMEI != nil && line.Quantity != 1 {
				return apperrors.Validation("a serialized item must have quantity 1")
			}

			item := Item{
				OrganizationID: act.OrganizationID,
				CatalogItemID:  line.CatalogItemID,
				SKU:            line.SKU,
				ModelName:      line.ModelName,
				IMEI:           line.IMEI,
				Quantity:       0,
				Status:         ItemStatusAvailable,
				CostPrice:      line.CostPrice,
				BasePrice:      line.BasePrice,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create stock item: %w", err)
			}

			if _, err := s.ledger.Increase(tx, &item, line.Quantity, MovementTypeIn, act.UserID, MovementRef{
				Metadata: map[string]interface{}{"source": "bulk_add"},
			}); err != nil {
				return err
			}

			if err := s.recorder.Record(tx, audit.Entry{
				OrganizationID: act.OrganizationID,
				UserID:         act.UserID,
				Action:         "stock.bulk_add",
				EntityType:     "stock_item",
				EntityID:       item.ID,
				After:          item,
			}); err != nil {
				return err
			}

			created = append(created, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"organization_id": act.OrganizationID,
		"items":           len(created),
	}).Info("Bulk stock intake applied")

	return created, nil
}

// CreateReservation places a hold outside of a sale transition.
func (s *Service) CreateReservation(act actor.Actor, req *CreateReservationRequest) (*Reservation, error) {
	var reservation *Reservation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		reservation, err = s.manager.Create(tx, act.OrganizationID, req)
		if err != nil {
			return err
		}
		return s.recorder.Record(tx, audit.Entry{
			OrganizationID: act.OrganizationID,
			UserID:         act.UserID,
			Action:         "reservation.create",
			EntityType:     "stock_reservation",
			EntityID:       reservation.ID,
			After:          reservation,
		})
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// ReleaseReservation frees an ACTIVE hold outside of a sale transition.
func (s *Service) ReleaseReservation(act actor.Actor, reservationID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var before Reservation
		if err := tx.Where("id = ? AND organization_id = ?", reservationID, act.OrganizationID).First(&before).Error; err != nil {
			return apperrors.NotFound("reservation", reservationID)
		}

		if err := s.manager.Release(tx, act.OrganizationID, reservationID, act.UserID); err != nil {
			return err
		}

		var after Reservation
		if err := tx.First(&after, reservationID).Error; err != nil {
			return fmt.Errorf("failed to reload reservation %d: %w", reservationID, err)
		}

		return s.recorder.Record(tx, audit.Entry{
			OrganizationID: act.OrganizationID,
			UserID:         act.UserID,
			Action:         "reservation.release",
			EntityType:     "stock_reservation",
			EntityID:       reservationID,
			Before:         before,
			After:          after,
		})
	})
}

// ItemListRequest represents stock item list query parameters
type ItemListRequest struct {
	Page   int        `form:"page,default=1"`
	Limit  int        `form:"limit,default=20"`
	Status ItemStatus `form:"status"`
	SKU    string     `form:"sku"`
}

// GetItems retrieves stock items for the tenant with filtering and pagination.
func (s *Service) GetItems(organizationID uint, req *ItemListRequest) ([]Item, int64, error) {
	var items []Item
	var total int64

	query := s.db.Model(&Item{}).Where("organization_id = ?", organizationID)
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.SKU != "" {
		query = query.Where("sku = ?", req.SKU)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count stock items: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve stock items: %w", err)
	}

	return items, total, nil
}

// MovementListRequest represents movement list query parameters
type MovementListRequest struct {
	Page        int          `form:"page,default=1"`
	Limit       int          `form:"limit,default=20"`
	StockItemID uint         `form:"stock_item_id"`
	Type        MovementType `form:"type"`
}

// GetMovements retrieves ledger entries for the tenant, newest first.
func (s *Service) GetMovements(organizationID uint, req *MovementListRequest) ([]Movement, int64, error) {
	var movements []Movement
	var total int64

	query := s.db.Model(&Movement{}).Where("organization_id = ?", organizationID)
	if req.StockItemID > 0 {
		query = query.Where("stock_item_id = ?", req.StockItemID)
	}
	if req.Type != "" {
		query = query.Where("type = ?", req.Type)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count stock movements: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&movements).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve stock movements: %w", err)
	}

	return movements, total, nil
}
