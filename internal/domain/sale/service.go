// internal/domain/sale/service.go
package sale

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/backoffice-backend/internal/domain/audit"
	"github.com/your-org/backoffice-backend/internal/domain/stock"
	"github.com/your-org/backoffice-backend/internal/pkg/actor"
	"github.com/your-org/backoffice-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service orchestrates the sale lifecycle. Every transition reads the current
// row tenant-filtered, mutates inside one transaction, and pairs the mutation
// with an audit event carrying before/after snapshots.
type Service struct {
	db           *gorm.DB
	reservations *stock.ReservationManager
	recorder     *audit.Recorder
	logger       *logrus.Logger
}

// NewService creates a new sale service
func NewService(db *gorm.DB, reservations *stock.ReservationManager, recorder *audit.Recorder, logger *logrus.Logger) *Service {
	return &Service{
		db:           db,
		reservations: reservations,
		recorder:     recorder,
		logger:       logger,
	}
}

// validTransitions is the sale state machine. CANCELLED is reachable from
// DRAFT, RESERVED, and PAID; shipped and delivered sales can no longer be
// cancelled because the goods have left the building.
var validTransitions = map[Status][]Status{
	StatusDraft:     {StatusReserved, StatusCancelled},
	StatusReserved:  {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
}

func isValidTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ItemRequest represents one ad-hoc sale line
type ItemRequest struct {
	StockItemID *uint           `json:"stock_item_id,omitempty"`
	ModelName   string          `json:"model_name" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateRequest represents sale creation data
type CreateRequest struct {
	Number         *string         `json:"number,omitempty"`
	CustomerName   string          `json:"customer_name"`
	CustomerPhone  string          `json:"customer_phone"`
	CustomerEmail  string          `json:"customer_email"`
	Discount       decimal.Decimal `json:"discount"`
	Currency       string          `json:"currency"`
	LeadID         *uint           `json:"lead_id,omitempty"`
	Notes          string          `json:"notes"`
	ReservationIDs []uint          `json:"reservation_ids"`
	Items          []ItemRequest   `json:"items"`
}

// Create creates a sale from reservations and/or ad-hoc lines. With
// reservations attached the sale starts RESERVED, otherwise DRAFT. The sale
// number is either client-supplied or generated; in both cases the per-tenant
// unique constraint is the real duplicate guard, the generation scan is only
// a hint.
func (s *Service) Create(act actor.Actor, req *CreateRequest) (*Sale, error) {
	if len(req.ReservationIDs) == 0 && len(req.Items) == 0 {
		return nil, apperrors.Validation("a sale requires at least one reservation or one item")
	}
	if req.Discount.IsNegative() {
		return nil, apperrors.Validation("discount cannot be negative")
	}

	var created Sale
	err := s.db.Transaction(func(tx *gorm.DB) error {
		number, err := s.resolveNumber(tx, act.OrganizationID, req.Number)
		if err != nil {
			return err
		}

		currency := req.Currency
		if currency == "" {
			currency = "USD"
		}

		created = Sale{
			OrganizationID: act.OrganizationID,
			Number:         number,
			Status:         StatusDraft,
			CustomerName:   req.CustomerName,
			CustomerPhone:  req.CustomerPhone,
			CustomerEmail:  req.CustomerEmail,
			Discount:       req.Discount,
			Currency:       currency,
			LeadID:         req.LeadID,
			Notes:          req.Notes,
		}

		if len(req.ReservationIDs) > 0 {
			now := time.Now().UTC()
			created.Status = StatusReserved
			created.ReservedAt = &now
		}

		if err := tx.Create(&created).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict(
					fmt.Sprintf("sale number %s already exists", number),
					map[string]interface{}{"number": number},
				)
			}
			return fmt.Errorf("failed to create sale: %w", err)
		}

		subtotal := decimal.Zero
		for _, line := range req.Items {
			if line.Quantity <= 0 {
				return apperrors.Validation("sale item quantity must be positive")
			}
			item := Item{
				SaleID:      created.ID,
				StockItemID: line.StockItemID,
				ModelName:   line.ModelName,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				LineTotal:   line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create sale item: %w", err)
			}
			subtotal = subtotal.Add(item.LineTotal)
			created.Items = append(created.Items, item)
		}

		for _, reservationID := range req.ReservationIDs {
			if err := s.reservations.LinkToSale(tx, act.OrganizationID, reservationID, created.ID); err != nil {
				return err
			}
		}

		created.Subtotal = subtotal
		created.Total = subtotal.Sub(created.Discount)
		if err := tx.Model(&Sale{}).Where("id = ?", created.ID).Updates(map[string]interface{}{
			"subtotal": created.Subtotal,
			"total":    created.Total,
		}).Error; err != nil {
			return fmt.Errorf("failed to update sale totals: %w", err)
		}

		return s.recorder.Record(tx, audit.Entry{
			OrganizationID: act.OrganizationID,
			UserID:         act.UserID,
			Action:         "sale.create",
			EntityType:     "sale",
			EntityID:       created.ID,
			After:          created,
			Metadata:       map[string]interface{}{"reservation_ids": req.ReservationIDs},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"organization_id": act.OrganizationID,
		"sale_id":         created.ID,
		"number":          created.Number,
		"status":          created.Status,
	}).Info("Sale created")

	return &created, nil
}

// Pay moves a RESERVED sale to PAID. Inside one serializable transaction it
// confirms every reservation linked to the sale, then stamps paid_at and
// flips the status. If any confirmation fails the whole transaction rolls
// back; partial payment is never observable.
//
// Serializable isolation is required here: two concurrent pays on
// reservations sharing a stock item would otherwise both read the same
// "before" quantity and overcommit stock.
func (s *Service) Pay(act actor.Actor, saleID uint) (*Sale, error) {
	tx := s.db.Begin(&sql.TxOptions{Isolation: sql.LevelSerializable})
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	current, err := s.findForUpdate(tx, act.OrganizationID, saleID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	before := *current

	if current.Status != StatusReserved {
		tx.Rollback()
		return nil, apperrors.InvalidTransition("sale", string(current.Status), string(StatusPaid))
	}

	var reservations []stock.Reservation
	if err := tx.Where("organization_id = ? AND sale_id = ?", act.OrganizationID, saleID).Find(&reservations).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load sale reservations: %w", err)
	}
	if len(reservations) == 0 {
		tx.Rollback()
		return nil, apperrors.Validation("sale has no reservations to confirm")
	}

	for _, reservation := range reservations {
		if err := s.reservations.Confirm(tx, act.OrganizationID, reservation.ID, act.UserID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	now := time.Now().UTC()
	current.Status = StatusPaid
	current.PaidAt = &now
	if err := tx.Save(current).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update sale %d: %w", saleID, err)
	}

	if err := s.recordTransition(tx, act, "sale.pay", &before, current); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit payment transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"organization_id": act.OrganizationID,
		"sale_id":         saleID,
		"reservations":    len(reservations),
	}).Info("Sale paid")

	return current, nil
}

// Cancel moves a sale to CANCELLED from DRAFT, RESERVED, or PAID, releasing
// every still-ACTIVE reservation in the same transaction as the status flip.
func (s *Service) Cancel(act actor.Actor, saleID uint) (*Sale, error) {
	tx := s.db.Begin(&sql.TxOptions{Isolation: sql.LevelSerializable})
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	current, err := s.findForUpdate(tx, act.OrganizationID, saleID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	before := *current

	if !isValidTransition(current.Status, StatusCancelled) {
		tx.Rollback()
		return nil, apperrors.InvalidTransition("sale", string(current.Status), string(StatusCancelled))
	}

	var reservations []stock.Reservation
	if err := tx.Where("organization_id = ? AND sale_id = ? AND status = ?",
		act.OrganizationID, saleID, stock.ReservationStatusActive).Find(&reservations).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load sale reservations: %w", err)
	}

	for _, reservation := range reservations {
		if err := s.reservations.Release(tx, act.OrganizationID, reservation.ID, act.UserID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	current.Status = StatusCancelled
	if err := tx.Save(current).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update sale %d: %w", saleID, err)
	}

	if err := s.recordTransition(tx, act, "sale.cancel", &before, current); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	return current, nil
}

// Ship moves a PAID sale to SHIPPED. No stock side effects; quantities were
// already decremented at payment time.
func (s *Service) Ship(act actor.Actor, saleID uint) (*Sale, error) {
	return s.simpleTransition(act, saleID, StatusPaid, StatusShipped, "sale.ship", func(sale *Sale, now time.Time) {
		sale.ShippedAt = &now
	})
}

// Deliver moves a SHIPPED sale to DELIVERED.
func (s *Service) Deliver(act actor.Actor, saleID uint) (*Sale, error) {
	return s.simpleTransition(act, saleID, StatusShipped, StatusDelivered, "sale.deliver", func(sale *Sale, now time.Time) {
		sale.DeliveredAt = &now
	})
}

// UpdateRequest represents editable sale fields
type UpdateRequest struct {
	CustomerName  *string          `json:"customer_name,omitempty"`
	CustomerPhone *string          `json:"customer_phone,omitempty"`
	CustomerEmail *string          `json:"customer_email,omitempty"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
}

// Update edits sale fields. Not permitted once the sale is SHIPPED or
// DELIVERED. A discount change recomputes total = subtotal - discount.
func (s *Service) Update(act actor.Actor, saleID uint, req *UpdateRequest) (*Sale, error) {
	var updated *Sale
	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.findForUpdate(tx, act.OrganizationID, saleID)
		if err != nil {
			return err
		}
		before := *current

		if current.Status == StatusShipped || current.Status == StatusDelivered {
			return apperrors.Validation(fmt.Sprintf("a %s sale can no longer be edited", current.Status))
		}

		if req.CustomerName != nil {
			current.CustomerName = *req.CustomerName
		}
		if req.CustomerPhone != nil {
			current.CustomerPhone = *req.CustomerPhone
		}
		if req.CustomerEmail != nil {
			current.CustomerEmail = *req.CustomerEmail
		}
		if req.Notes != nil {
			current.Notes = *req.Notes
		}
		if req.Discount != nil {
			if req.Discount.IsNegative() {
				return apperrors.Validation("discount cannot be negative")
			}
			current.Discount = *req.Discount
			current.Total = current.Subtotal.Sub(current.Discount)
		}

		if err := tx.Save(current).Error; err != nil {
			return fmt.Errorf("failed to update sale %d: %w", saleID, err)
		}

		updated = current
		return s.recordTransition(tx, act, "sale.update", &before, current)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete soft-deletes a sale. Only a DRAFT sale with zero linked reservations
// can be deleted; the row is kept with deleted_at set.
func (s *Service) Delete(act actor.Actor, saleID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.findForUpdate(tx, act.OrganizationID, saleID)
		if err != nil {
			return err
		}
		before := *current

		if current.Status != StatusDraft {
			return apperrors.Validation(fmt.Sprintf("only DRAFT sales can be deleted, sale is %s", current.Status))
		}

		var linked int64
		if err := tx.Model(&stock.Reservation{}).
			Where("organization_id = ? AND sale_id = ?", act.OrganizationID, saleID).
			Count(&linked).Error; err != nil {
			return fmt.Errorf("failed to count linked reservations: %w", err)
		}
		if linked > 0 {
			return apperrors.Validation("a sale with linked reservations cannot be deleted")
		}

		now := time.Now().UTC()
		current.DeletedAt = &now
		if err := tx.Save(current).Error; err != nil {
			return fmt.Errorf("failed to delete sale %d: %w", saleID, err)
		}

		return s.recordTransition(tx, act, "sale.delete", &before, current)
	})
}

// Restore reverses a soft delete. The HTTP boundary restricts this to admin
// actors; the service itself trusts the pre-authorized caller.
func (s *Service) Restore(act actor.Actor, saleID uint) (*Sale, error) {
	var restored *Sale
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var current Sale
		err := tx.Where("id = ? AND organization_id = ? AND deleted_at IS NOT NULL", saleID, act.OrganizationID).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("sale", saleID)
		}
		if err != nil {
			return fmt.Errorf("failed to load sale %d: %w", saleID, err)
		}
		before := current

		current.DeletedAt = nil
		if err := tx.Save(&current).Error; err != nil {
			return fmt.Errorf("failed to restore sale %d: %w", saleID, err)
		}

		restored = &current
		return s.recordTransition(tx, act, "sale.restore", &before, &current)
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// Get retrieves a single sale with its items, tenant-filtered and excluding
// soft-deleted rows.
func (s *Service) Get(organizationID, saleID uint) (*Sale, error) {
	var result Sale
	err := s.db.Preload("Items").
		Where("id = ? AND organization_id = ? AND deleted_at IS NULL", saleID, organizationID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("sale", saleID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve sale %d: %w", saleID, err)
	}
	return &result, nil
}

// ListRequest represents sale list query parameters
type ListRequest struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
	Status Status `form:"status"`
}

// List retrieves sales for the tenant with filtering and pagination.
func (s *Service) List(organizationID uint, req *ListRequest) ([]Sale, int64, error) {
	var sales []Sale
	var total int64

	query := s.db.Model(&Sale{}).
		Where("organization_id = ? AND deleted_at IS NULL", organizationID)
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Preload("Items").Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&sales).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve sales: %w", err)
	}

	return sales, total, nil
}

// Private helpers

func (s *Service) findForUpdate(tx *gorm.DB, organizationID, saleID uint) (*Sale, error) {
	var current Sale
	err := tx.Where("id = ? AND organization_id = ? AND deleted_at IS NULL", saleID, organizationID).First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("sale", saleID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sale %d: %w", saleID, err)
	}
	return &current, nil
}

func (s *Service) simpleTransition(act actor.Actor, saleID uint, from, to Status, action string, stamp func(*Sale, time.Time)) (*Sale, error) {
	var updated *Sale
	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.findForUpdate(tx, act.OrganizationID, saleID)
		if err != nil {
			return err
		}
		before := *current

		if current.Status != from {
			return apperrors.InvalidTransition("sale", string(current.Status), string(to))
		}

		now := time.Now().UTC()
		current.Status = to
		stamp(current, now)

		if err := tx.Save(current).Error; err != nil {
			return fmt.Errorf("failed to update sale %d: %w", saleID, err)
		}

		updated = current
		return s.recordTransition(tx, act, action, &before, current)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) recordTransition(tx *gorm.DB, act actor.Actor, action string, before, after *Sale) error {
	return s.recorder.Record(tx, audit.Entry{
		OrganizationID: act.OrganizationID,
		UserID:         act.UserID,
		Action:         action,
		EntityType:     "sale",
		EntityID:       after.ID,
		Before:         before,
		After:          after,
	})
}

// resolveNumber validates a client-supplied sale number or generates the next
// INV-<year>-<sequence> for the tenant. The scan-max-then-increment is only a
// hint; the unique index on (organization_id, number) is the actual
// collision guard.
func (s *Service) resolveNumber(tx *gorm.DB, organizationID uint, supplied *string) (string, error) {
	if supplied != nil && *supplied != "" {
		var count int64
		if err := tx.Model(&Sale{}).
			Where("organization_id = ? AND number = ?", organizationID, *supplied).
			Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check sale number: %w", err)
		}
		if count > 0 {
			return "", apperrors.Conflict(
				fmt.Sprintf("sale number %s already exists", *supplied),
				map[string]interface{}{"number": *supplied},
			)
		}
		return *supplied, nil
	}

	year := time.Now().UTC().Year()
	prefix := fmt.Sprintf("INV-%d-", year)

	var latest Sale
	sequence := 0
	err := tx.Where("organization_id = ? AND number LIKE ?", organizationID, prefix+"%").
		Order("number DESC").
		First(&latest).Error
	if err == nil {
		if n, parseErr := strconv.Atoi(strings.TrimPrefix(latest.Number, prefix)); parseErr == nil {
			sequence = n
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to scan sale numbers: %w", err)
	}

	return fmt.Sprintf("%s%05d", prefix, sequence+1), nil
}
