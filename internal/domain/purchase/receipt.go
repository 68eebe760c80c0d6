// internal/domain/purchase/receipt.go
package purchase

import (
	"errors"
	"fmt"

	"github.com/your-org/backoffice-backend/internal/domain/stock"
	"github.com/your-org/backoffice-backend/internal/pkg/actor"
	"github.com/your-org/backoffice-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// ReceiptApplier turns a received purchase into stock. The application marker
// row is inserted before any stock mutation: its unique purchase_id constraint
// makes a concurrent second application fail the whole transaction instead of
// doubling inventory.
type ReceiptApplier struct {
	ledger *stock.Ledger
}

// NewReceiptApplier creates a new receipt applier
func NewReceiptApplier(ledger *stock.Ledger) *ReceiptApplier {
	return &ReceiptApplier{ledger: ledger}
}

// Apply increments stock for every line of the purchase. It runs inside the
// caller's transaction so the marker row, the quantity updates, the movement
// rows, and any line backfills commit or roll back as one unit. A purchase
// that has already been applied is a silent no-op.
func (a *ReceiptApplier) Apply(tx *gorm.DB, act actor.Actor, p *Purchase) error {
	var existing int64
	if err := tx.Model(&StockApplication{}).Where("purchase_id = ?", p.ID).Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to check purchase application: %w", err)
	}
	if existing > 0 {
		return nil
	}

	application := StockApplication{
		PurchaseID: p.ID,
		AppliedBy:  act.UserID,
	}
	if err := tx.Create(&application).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict("purchase already applied to stock", map[string]interface{}{
				"purchase_id": p.ID,
			})
		}
		return fmt.Errorf("failed to create purchase application: %w", err)
	}

	for i := range p.Lines {
		if err := a.applyLine(tx, act, p, &p.Lines[i]); err != nil {
			return err
		}
	}

	return nil
}

// applyLine resolves the line to a stock item and records an IN movement for
// its quantity. Resolution order: the recorded stock item id, then a SKU match
// within the tenant, then a fresh placeholder item created at quantity zero.
func (a *ReceiptApplier) applyLine(tx *gorm.DB, act actor.Actor, p *Purchase, line *Line) error {
	if line.Quantity <= 0 {
		return apperrors.Validation(fmt.Sprintf("purchase line %d has non-positive quantity", line.ID))
	}

	item, err := a.resolveLine(tx, p, line)
	if err != nil {
		return err
	}

	if _, err := a.ledger.Increase(tx, item, line.Quantity, stock.MovementTypeIn, act.UserID, stock.MovementRef{
		Metadata: map[string]interface{}{
			"purchase_id":      p.ID,
			"purchase_line_id": line.ID,
			"vendor_id":        p.VendorID,
			"unit_price":       line.UnitPrice.String(),
		},
	}); err != nil {
		return err
	}

	return nil
}

func (a *ReceiptApplier) resolveLine(tx *gorm.DB, p *Purchase, line *Line) (*stock.Item, error) {
	if line.StockItemID != nil {
		var item stock.Item
		if err := tx.Where("id = ? AND organization_id = ?", *line.StockItemID, p.OrganizationID).First(&item).Error; err != nil {
			return nil, apperrors.NotFound("stock item", *line.StockItemID)
		}
		return &item, nil
	}

	if line.SKU != "" {
		var item stock.Item
		err := tx.Where("organization_id = ? AND sku = ?", p.OrganizationID, line.SKU).
			Order("id ASC").First(&item).Error
		if err == nil {
			return a.backfill(tx, line, &item)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up stock item by sku: %w", err)
		}
	}

	// No match anywhere: create a placeholder the ledger can increment.
	item := stock.Item{
		OrganizationID: p.OrganizationID,
		SKU:            line.SKU,
		ModelName:      line.Description,
		Quantity:       0,
		Status:         stock.ItemStatusAvailable,
		CostPrice:      line.UnitPrice,
		BasePrice:      line.UnitPrice,
	}
	if err := tx.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to create stock item for purchase line %d: %w", line.ID, err)
	}
	return a.backfill(tx, line, &item)
}

// backfill records the resolved stock item on the line so subsequent reads of
// the purchase show where its goods landed.
func (a *ReceiptApplier) backfill(tx *gorm.DB, line *Line, item *stock.Item) (*stock.Item, error) {
	line.StockItemID = &item.ID
	if err := tx.Model(&Line{}).Where("id = ?", line.ID).Update("stock_item_id", item.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to backfill purchase line %d: %w", line.ID, err)
	}
	return item, nil
}
