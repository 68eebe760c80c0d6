// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/backoffice-backend/internal/domain/audit"
	"github.com/your-org/backoffice-backend/internal/domain/catalog"
	"github.com/your-org/backoffice-backend/internal/domain/idempotency"
	"github.com/your-org/backoffice-backend/internal/domain/purchase"
	"github.com/your-org/backoffice-backend/internal/domain/sale"
	"github.com/your-org/backoffice-backend/internal/domain/stock"
	"github.com/your-org/backoffice-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		// Tenancy and accounts
		&user.Organization{},
		&user.User{},

		// Catalog
		&catalog.Item{},

		// Stock
		&stock.Item{},
		&stock.Movement{},
		&stock.Reservation{},

		// Sales
		&sale.Sale{},
		&sale.Item{},

		// Purchases
		&purchase.Vendor{},
		&purchase.Purchase{},
		&purchase.Line{},
		&purchase.StockApplication{},

		// Infrastructure tables
		&idempotency.Key{},
		&audit.Event{},
	}

	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_users_org ON users(organization_id)",

		// Stock indexes
		"CREATE INDEX IF NOT EXISTS idx_stock_items_org_status ON stock_items(organization_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_stock_items_org_sku ON stock_items(organization_id, sku)",
		"CREATE INDEX IF NOT EXISTS idx_stock_items_catalog_status ON stock_items(catalog_item_id, status, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_org_created ON stock_movements(organization_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_item ON stock_movements(stock_item_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_reservations_org_status ON stock_reservations(organization_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_stock_reservations_sale ON stock_reservations(sale_id)",

		// Sale indexes
		"CREATE INDEX IF NOT EXISTS idx_sales_org_status ON sales(organization_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_sales_org_created ON sales(organization_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items(sale_id)",

		// Purchase indexes
		"CREATE INDEX IF NOT EXISTS idx_purchases_org_status ON purchases(organization_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_purchase_lines_purchase ON purchase_lines(purchase_id)",

		// Idempotency and audit indexes
		"CREATE INDEX IF NOT EXISTS idx_idempotency_keys_expires ON idempotency_keys(expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_audit_events_org_created ON audit_events(organization_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_audit_events_entity ON audit_events(entity_type, entity_id)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}
