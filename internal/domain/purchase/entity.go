// internal/domain/purchase/entity.go
package purchase

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the purchase status
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusApproved  Status = "APPROVED"
	StatusReceived  Status = "RECEIVED"
	StatusCancelled Status = "CANCELLED"
)

// Vendor is a tenant-scoped supplier referenced by purchases.
type Vendor struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	Name           string    `gorm:"not null;size:255" json:"name"`
	Phone          string    `gorm:"size:50" json:"phone"`
	Email          string    `gorm:"size:255" json:"email"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Purchase is a tenant-scoped vendor order.
type Purchase struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrganizationID uint            `gorm:"not null;index" json:"organization_id"`
	VendorID       uint            `gorm:"not null;index" json:"vendor_id"`
	Status         Status          `gorm:"not null;default:'DRAFT'" json:"status"`
	Total          decimal.Decimal `gorm:"type:decimal(20,4)" json:"total"`
	Notes          string          `gorm:"type:text" json:"notes"`
	ApprovedAt     *time.Time      `json:"approved_at"`
	ReceivedAt     *time.Time      `json:"received_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Relationships
	Vendor Vendor `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	Lines  []Line `gorm:"foreignKey:PurchaseID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"lines"`
}

// Line is one ordered position on a purchase. StockItemID is resolved at
// receipt time, not at creation.
type Line struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	PurchaseID  uint            `gorm:"not null;index" json:"purchase_id"`
	Description string          `gorm:"not null;size:255" json:"description"`
	SKU         string          `gorm:"size:100;index" json:"sku"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4)" json:"unit_price"`
	StockItemID *uint           `gorm:"index" json:"stock_item_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// StockApplication marks that a purchase's lines have been applied to stock.
// One row per purchase, created exactly once and never updated: its existence
// is the idempotency guard for receipt application.
type StockApplication struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PurchaseID uint      `gorm:"not null;uniqueIndex" json:"purchase_id"`
	AppliedBy  uint      `gorm:"not null" json:"applied_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName overrides
func (Vendor) TableName() string           { return "vendors" }
func (Purchase) TableName() string         { return "purchases" }
func (Line) TableName() string             { return "purchase_lines" }
func (StockApplication) TableName() string { return "purchase_stock_applications" }
