// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a tenant-scoped catalog entry. Reservations may hold against a
// catalog item before any specific stock row is chosen; purchase-line SKU
// matching also resolves through it.
type Item struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrganizationID uint            `gorm:"not null;index:idx_catalog_org_sku,unique" json:"organization_id"`
	SKU            string          `gorm:"not null;size:100;index:idx_catalog_org_sku,unique" json:"sku"`
	ModelName      string          `gorm:"not null;size:255" json:"model_name"`
	BasePrice      decimal.Decimal `gorm:"type:decimal(20,4)" json:"base_price"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName overrides
func (Item) TableName() string { return "catalog_items" }
