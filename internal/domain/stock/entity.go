// internal/domain/stock/entity.go
package stock

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemStatus represents the status of a stock item
type ItemStatus string

const (
	ItemStatusAvailable ItemStatus = "AVAILABLE"
	ItemStatusReserved  ItemStatus = "RESERVED"
	ItemStatusSold      ItemStatus = "SOLD"
	ItemStatusReturned  ItemStatus = "RETURNED"
	ItemStatusDamaged   ItemStatus = "DAMAGED"
)

// MovementType represents the type of stock movement
type MovementType string

const (
	MovementTypeIn      MovementType = "IN"      // Purchase receipt, bulk intake
	MovementTypeOut     MovementType = "OUT"     // Manual removal
	MovementTypeSold    MovementType = "SOLD"    // Reservation confirmed at payment
	MovementTypeRelease MovementType = "RELEASE" // Reservation released, no quantity change
	MovementTypeAdjust  MovementType = "ADJUST"  // Manual correction
)

// ReservationStatus represents the status of a stock reservation
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "ACTIVE"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusReleased  ReservationStatus = "RELEASED"
)

// Item is a tenant-scoped inventory unit. A serialized unit carries an IMEI
// and transitions to SOLD when its quantity reaches zero; a bulk unit has no
// IMEI and never auto-transitions on quantity alone.
//
// Invariant: Quantity >= 0 at all times. Every quantity change goes through
// the Ledger so a movement row records the before/after pair.
type Item struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrganizationID uint            `gorm:"not null;index" json:"organization_id"`
	CatalogItemID  *uint           `gorm:"index" json:"catalog_item_id"`
	SKU            string          `gorm:"size:100;index" json:"sku"`
	ModelName      string          `gorm:"size:255" json:"model_name"`
	IMEI           *string         `gorm:"size:50;index" json:"imei,omitempty"`
	Quantity       int             `gorm:"not null;default:0" json:"quantity"`
	Status         ItemStatus      `gorm:"not null;default:'AVAILABLE'" json:"status"`
	CostPrice      decimal.Decimal `gorm:"type:decimal(20,4)" json:"cost_price"`
	BasePrice      decimal.Decimal `gorm:"type:decimal(20,4)" json:"base_price"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Movement is one append-only ledger entry. Rows are never mutated or
// deleted; the quantity delta is derived from QuantityAfter - QuantityBefore.
type Movement struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	OrganizationID uint         `gorm:"not null;index" json:"organization_id"`
	StockItemID    uint         `gorm:"not null;index" json:"stock_item_id"`
	Type           MovementType `gorm:"not null;size:20" json:"type"`
	QuantityBefore int          `gorm:"not null" json:"quantity_before"`
	QuantityAfter  int          `gorm:"not null" json:"quantity_after"`
	ReservationID  *uint        `gorm:"index" json:"reservation_id"`
	SaleID         *uint        `gorm:"index" json:"sale_id"`
	UserID         uint         `gorm:"not null;index" json:"user_id"`
	Metadata       string       `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Reservation is a soft hold on stock pending sale completion. It does not
// pre-decrement quantity; the deduction happens at confirm time. A
// reservation links to either a specific stock item or an abstract catalog
// item resolved lazily at confirm. Once linked to a sale the linkage is
// irreversible.
type Reservation struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	OrganizationID uint              `gorm:"not null;index" json:"organization_id"`
	StockItemID    *uint             `gorm:"index" json:"stock_item_id"`
	CatalogItemID  *uint             `gorm:"index" json:"catalog_item_id"`
	SaleID         *uint             `gorm:"index" json:"sale_id"`
	Quantity       int               `gorm:"not null" json:"quantity"`
	Status         ReservationStatus `gorm:"not null;default:'ACTIVE'" json:"status"`
	ConfirmedAt    *time.Time        `json:"confirmed_at"`
	ReleasedAt     *time.Time        `json:"released_at"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// TableName overrides
func (Item) TableName() string        { return "stock_items" }
func (Movement) TableName() string    { return "stock_movements" }
func (Reservation) TableName() string { return "stock_reservations" }

// IsSerialized reports whether the item is a serialized (per-IMEI) unit.
func (i *Item) IsSerialized() bool {
	return i.IMEI != nil && *i.IMEI != ""
}

// Delta returns the signed quantity change recorded by the movement.
func (m *Movement) Delta() int {
	return m.QuantityAfter - m.QuantityBefore
}
