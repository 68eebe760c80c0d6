// internal/domain/catalog/service.go
package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/backoffice-backend/internal/pkg/actor"
	"github.com/your-org/backoffice-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles catalog item management
type Service struct {
	db *gorm.DB
}

// NewService creates a new catalog service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateRequest represents catalog item creation data
type CreateRequest struct {
	SKU       string          `json:"sku" binding:"required"`
	ModelName string          `json:"model_name" binding:"required"`
	BasePrice decimal.Decimal `json:"base_price"`
}

// Create creates a catalog item. SKU is unique per tenant.
func (s *Service) Create(act actor.Actor, req *CreateRequest) (*Item, error) {
	item := Item{
		OrganizationID: act.OrganizationID,
		SKU:            req.SKU,
		ModelName:      req.ModelName,
		BasePrice:      req.BasePrice,
		IsActive:       true,
	}
	if err := s.db.Create(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict(
				fmt.Sprintf("catalog item with SKU %s already exists", req.SKU),
				map[string]interface{}{"sku": req.SKU},
			)
		}
		return nil, fmt.Errorf("failed to create catalog item: %w", err)
	}
	return &item, nil
}

// ListRequest represents catalog list query parameters
type ListRequest struct {
	Page  int    `form:"page,default=1"`
	Limit int    `form:"limit,default=20"`
	SKU   string `form:"sku"`
}

// List retrieves catalog items for the tenant with pagination.
func (s *Service) List(organizationID uint, req *ListRequest) ([]Item, int64, error) {
	var items []Item
	var total int64

	query := s.db.Model(&Item{}).Where("organization_id = ?", organizationID)
	if req.SKU != "" {
		query = query.Where("sku = ?", req.SKU)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count catalog items: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("sku ASC").Offset(offset).Limit(req.Limit).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve catalog items: %w", err)
	}

	return items, total, nil
}

// Get retrieves a single catalog item, tenant-filtered.
func (s *Service) Get(organizationID, itemID uint) (*Item, error) {
	var item Item
	err := s.db.Where("id = ? AND organization_id = ?", itemID, organizationID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("catalog item", itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve catalog item %d: %w", itemID, err)
	}
	return &item, nil
}
