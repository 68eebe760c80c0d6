package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/backoffice-backend/internal/pkg/actor"
	"github.com/your-org/backoffice-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&Item{}))
	return NewService(db)
}

func testActor(organizationID uint) actor.Actor {
	return actor.Actor{OrganizationID: organizationID, UserID: 10, Role: actor.RoleStaff}
}

func TestCreateAndGet(t *testing.T) {
	service := testService(t)

	created, err := service.Create(testActor(1), &CreateRequest{
		SKU:       "SKU-1",
		ModelName: "Galaxy S25",
		BasePrice: decimal.NewFromInt(600),
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	found, err := service.Get(1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "SKU-1", found.SKU)

	_, err = service.Get(2, created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestSKUIsUniquePerTenant(t *testing.T) {
	service := testService(t)

	_, err := service.Create(testActor(1), &CreateRequest{SKU: "SKU-1", ModelName: "Galaxy S25"})
	require.NoError(t, err)

	_, err = service.Create(testActor(1), &CreateRequest{SKU: "SKU-1", ModelName: "Galaxy S25"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	// The same SKU under another tenant is fine.
	_, err = service.Create(testActor(2), &CreateRequest{SKU: "SKU-1", ModelName: "Galaxy S25"})
	assert.NoError(t, err)
}

func TestListFiltersBySKU(t *testing.T) {
	service := testService(t)

	_, err := service.Create(testActor(1), &CreateRequest{SKU: "SKU-1", ModelName: "Galaxy S25"})
	require.NoError(t, err)
	_, err = service.Create(testActor(1), &CreateRequest{SKU: "SKU-2", ModelName: "Pixel 10"})
	require.NoError(t, err)

	items, total, err := service.List(1, &ListRequest{Page: 1, Limit: 20, SKU: "SKU-2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "Pixel 10", items[0].ModelName)
}
