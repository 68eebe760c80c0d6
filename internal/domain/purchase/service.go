// internal/domain/purchase/service.go
package purchase

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/backoffice-backend/internal/domain/audit"
	"github.com/your-org/backoffice-backend/internal/pkg/actor"
	"github.com/your-org/backoffice-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles purchase operations: creation, listing, vendor management,
// and the status transitions that drive the receipt applier.
type Service struct {
	db       *gorm.DB
	applier  *ReceiptApplier
	recorder *audit.Recorder
	logger   *logrus.Logger
}

// NewService creates a new purchase service
func NewService(db *gorm.DB, applier *ReceiptApplier, recorder *audit.Recorder, logger *logrus.Logger) *Service {
	return &Service{
		db:       db,
		applier:  applier,
		recorder: recorder,
		logger:   logger,
	}
}

// validTransitions is the purchase state machine. RECEIVED and CANCELLED are
// terminal: received goods are already in stock, so cancellation after receipt
// is rejected with its own message rather than the generic transition error.
var validTransitions = map[Status][]Status{
	StatusDraft:     {StatusApproved, StatusCancelled},
	StatusApproved:  {StatusReceived, StatusCancelled},
	StatusReceived:  {},
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

// LineRequest represents one purchase line
type LineRequest struct {
	Description string          `json:"description" binding:"required"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	StockItemID *uint           `json:"stock_item_id,omitempty"`
}

// CreateRequest represents purchase creation data
type CreateRequest struct {
	VendorID uint          `json:"vendor_id" binding:"required"`
	Notes    string        `json:"notes"`
	Lines    []LineRequest `json:"lines" binding:"required,min=1,dive"`
}

// Create creates a DRAFT purchase with its lines. Total is the sum of
// quantity times unit price across lines.
func (s *Service) Create(act actor.Actor, req *CreateRequest) (*Purchase, error) {
	if len(req.Lines) == 0 {
		return nil, apperrors.Validation("a purchase requires at least one line")
	}

	var created Purchase
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var vendor Vendor
		if err := tx.Where("id = ? AND organization_id = ?", req.VendorID, act.OrganizationID).First(&vendor).Error; err != nil {
			return apperrors.NotFound("vendor", req.VendorID)
		}

		created = Purchase{
			OrganizationID: act.OrganizationID,
			VendorID:       req.VendorID,
			Status:         StatusDraft,
			Notes:          req.Notes,
		}
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("failed to create purchase: %w", err)
		}

		total := decimal.Zero
		for _, lr := range req.Lines {
			if lr.Quantity <= 0 {
				return apperrors.Validation("purchase line quantity must be positive")
			}
			line := Line{
				PurchaseID:  created.ID,
				Description: lr.Description,
				SKU:         lr.SKU,
				Quantity:    lr.Quantity,
				UnitPrice:   lr.UnitPrice,
				StockItemID: lr.StockItemID,
			}
			if err := tx.Create(&line).Error; err != nil {
				return fmt.Errorf("failed to create purchase line: %w", err)
			}
			total = total.Add(lr.UnitPrice.Mul(decimal.NewFromInt(int64(lr.Quantity))))
			created.Lines = append(created.Lines, line)
		}

		created.Total = total
		if err := tx.Model(&Purchase{}).Where("id = ?", created.ID).Update("total", total).Error; err != nil {
			return fmt.Errorf("failed to update purchase total: %w", err)
		}

		return s.recorder.Record(tx, audit.Entry{
			OrganizationID: act.OrganizationID,
			UserID:         act.UserID,
			Action:         "purchase.create",
			EntityType:     "purchase",
			EntityID:       created.ID,
			After:          created,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"organization_id": act.OrganizationID,
		"purchase_id":     created.ID,
		"vendor_id":       created.VendorID,
		"lines":           len(created.Lines),
	}).Info("Purchase created")

	return &created, nil
}

// Transition moves the purchase to a new status. Requesting the current
// status is accepted as a no-op so retried transition requests do not error.
// The move to RECEIVED runs the receipt applier in the same transaction as
// the status flip: stock intake and received_at commit together or not at all.
func (s *Service) Transition(act actor.Actor, purchaseID uint, to Status) (*Purchase, error) {
	var updated *Purchase
	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.find(tx, act.OrganizationID, purchaseID)
		if err != nil {
			return err
		}
		before := *current

		if current.Status == to {
			updated = current
			return nil
		}

		if current.Status == StatusReceived && to == StatusCancelled {
			return apperrors.Validation("a received purchase cannot be cancelled; its goods are already in stock")
		}
		if !isValidTransition(current.Status, to) {
			return apperrors.InvalidTransition("purchase", string(current.Status), string(to))
		}

		now := time.Now().UTC()
		switch to {
		case StatusApproved:
			current.ApprovedAt = &now
		case StatusReceived:
			if err := s.applier.Apply(tx, act, current); err != nil {
				return err
			}
			current.ReceivedAt = &now
		}

		current.Status = to
		if err := tx.Save(current).Error; err != nil {
			return fmt.Errorf("failed to update purchase %d: %w", purchaseID, err)
		}

		updated = current
		return s.recorder.Record(tx, audit.Entry{
			OrganizationID: act.OrganizationID,
			UserID:         act.UserID,
			Action:         "purchase." + string(to),
			EntityType:     "purchase",
			EntityID:       current.ID,
			Before:         before,
			After:          current,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"organization_id": act.OrganizationID,
		"purchase_id":     purchaseID,
		"status":          updated.Status,
	}).Info("Purchase transitioned")

	return updated, nil
}

// Get retrieves a single purchase with its lines and vendor, tenant-filtered.
func (s *Service) Get(organizationID, purchaseID uint) (*Purchase, error) {
	var result Purchase
	err := s.db.Preload("Lines").Preload("Vendor").
		Where("id = ? AND organization_id = ?", purchaseID, organizationID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("purchase", purchaseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve purchase %d: %w", purchaseID, err)
	}
	return &result, nil
}

// ListRequest represents purchase list query parameters
type ListRequest struct {
	Page     int    `form:"page,default=1"`
	Limit    int    `form:"limit,default=20"`
	Status   Status `form:"status"`
	VendorID uint   `form:"vendor_id"`
}

// List retrieves purchases for the tenant with filtering and pagination.
func (s *Service) List(organizationID uint, req *ListRequest) ([]Purchase, int64, error) {
	var purchases []Purchase
	var total int64

	query := s.db.Model(&Purchase{}).Where("organization_id = ?", organizationID)
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.VendorID > 0 {
		query = query.Where("vendor_id = ?", req.VendorID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Preload("Lines").Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&purchases).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve purchases: %w", err)
	}

	return purchases, total, nil
}

// VendorRequest represents vendor creation data
type VendorRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
	Email string `json:"email" binding:"omitempty,email"`
}

// CreateVendor creates a vendor for the tenant.
func (s *Service) CreateVendor(act actor.Actor, req *VendorRequest) (*Vendor, error) {
	vendor := Vendor{
		OrganizationID: act.OrganizationID,
		Name:           req.Name,
		Phone:          req.Phone,
		Email:          req.Email,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&vendor).Error; err != nil {
			return fmt.Errorf("failed to create vendor: %w", err)
		}
		return s.recorder.Record(tx, audit.Entry{
			OrganizationID: act.OrganizationID,
			UserID:         act.UserID,
			Action:         "vendor.create",
			EntityType:     "vendor",
			EntityID:       vendor.ID,
			After:          vendor,
		})
	})
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

// ListVendors retrieves vendors for the tenant.
func (s *Service) ListVendors(organizationID uint) ([]Vendor, error) {
	var vendors []Vendor
	if err := s.db.Where("organization_id = ?", organizationID).Order("name ASC").Find(&vendors).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve vendors: %w", err)
	}
	return vendors, nil
}

func (s *Service) find(tx *gorm.DB, organizationID, purchaseID uint) (*Purchase, error) {
	var current Purchase
	err := tx.Preload("Lines").
		Where("id = ? AND organization_id = ?", purchaseID, organizationID).
		First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("purchase", purchaseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase %d: %w", purchaseID, err)
	}
	return &current, nil
}
