// internal/domain/sale/entity.go
package sale

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the sale status
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusReserved  Status = "RESERVED"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// Sale is a tenant-scoped order. Soft deletion is an explicit nullable
// timestamp filtered at every query site, never an implicit default scope;
// restore is a distinct operation limited to elevated roles.
//
// Invariant: Total equals Subtotal minus Discount after every mutation that
// touches either field.
type Sale struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrganizationID uint            `gorm:"not null;index:idx_sales_org_number,unique" json:"organization_id"`
	Number         string          `gorm:"not null;size:50;index:idx_sales_org_number,unique" json:"number"`
	Status         Status          `gorm:"not null;default:'DRAFT'" json:"status"`
	CustomerName   string          `gorm:"size:255" json:"customer_name"`
	CustomerPhone  string          `gorm:"size:50" json:"customer_phone"`
	CustomerEmail  string          `gorm:"size:255" json:"customer_email"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(20,4)" json:"subtotal"`
	Discount       decimal.Decimal `gorm:"type:decimal(20,4)" json:"discount"`
	Total          decimal.Decimal `gorm:"type:decimal(20,4)" json:"total"`
	Currency       string          `gorm:"size:3;default:'USD'" json:"currency"`
	LeadID         *uint           `gorm:"index" json:"lead_id"`
	Notes          string          `gorm:"type:text" json:"notes"`

	// Lifecycle timestamps
	ReservedAt  *time.Time `json:"reserved_at"`
	PaidAt      *time.Time `json:"paid_at"`
	ShippedAt   *time.Time `json:"shipped_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	DeletedAt   *time.Time `gorm:"index" json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	Items []Item `gorm:"foreignKey:SaleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// Item is an immutable snapshot of a sale line taken at creation time.
type Item struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SaleID      uint            `gorm:"not null;index" json:"sale_id"`
	StockItemID *uint           `gorm:"index" json:"stock_item_id"`
	ModelName   string          `gorm:"not null;size:255" json:"model_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4)" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,4)" json:"line_total"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName overrides
func (Sale) TableName() string { return "sales" }
func (Item) TableName() string { return "sale_items" }

// IsDeleted reports whether the sale has been soft-deleted.
func (s *Sale) IsDeleted() bool {
	return s.DeletedAt != nil
}
