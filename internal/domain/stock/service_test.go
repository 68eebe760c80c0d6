package stock

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/backoffice-backend/internal/domain/audit"
	"github.com/your-org/backoffice-backend/internal/pkg/actor"
	"github.com/your-org/backoffice-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

func testService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testDB(t)
	require.NoError(t, db.AutoMigrate(&audit.Event{}))

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	ledger := NewLedger()
	return NewService(db, ledger, NewReservationManager(ledger), audit.NewRecorder(), log), db
}

func testActor() actor.Actor {
	return actor.Actor{OrganizationID: 1, UserID: 10, Role: actor.RoleStaff}
}

func TestBulkAddCreatesItemsWithIntakeMovements(t *testing.T) {
	service, db := testService(t)
	imei := "356938035643809"

	items, err := service.BulkAdd(testActor(), &BulkAddRequest{
		Lines: []BulkAddLine{
			{SKU: "SKU-1", ModelName: "Galaxy S25", Quantity: 10, CostPrice: decimal.NewFromInt(400)},
			{SKU: "SKU-2", ModelName: "iPhone 17", IMEI: &imei, Quantity: 1, CostPrice: decimal.NewFromInt(700)},
		},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, 10, items[0].Quantity)
	assert.False(t, items[0].IsSerialized())
	assert.Equal(t, 1, items[1].Quantity)
	assert.True(t, items[1].IsSerialized())

	var movements []Movement
	require.NoError(t, db.Where("type = ?", MovementTypeIn).Find(&movements).Error)
	assert.Len(t, movements, 2)

	var events int64
	require.NoError(t, db.Model(&audit.Event{}).Where("action = ?", "stock.bulk_add").Count(&events).Error)
	assert.Equal(t, int64(2), events)
}

func TestBulkAddRejectsSerializedQuantityAboveOne(t *testing.T) {
	service, db := testService(t)
	imei := "356938035643809"

	_, err := service.BulkAdd(testActor(), &BulkAddRequest{
		Lines: []BulkAddLine{
			{SKU: "SKU-1", ModelName: "Galaxy S25", Quantity: 5},
			{SKU: "SKU-2", ModelName: "iPhone 17", IMEI: &imei, Quantity: 2},
		},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	// The whole intake rolls back, including the valid first line.
	var count int64
	require.NoError(t, db.Model(&Item{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestReleaseReservationThroughService(t *testing.T) {
	service, db := testService(t)
	item := createItem(t, db, 1, 5, nil)

	reservation, err := service.CreateReservation(testActor(), &CreateReservationRequest{
		StockItemID: &item.ID,
		Quantity:    2,
	})
	require.NoError(t, err)

	require.NoError(t, service.ReleaseReservation(testActor(), reservation.ID))

	var released Reservation
	require.NoError(t, db.First(&released, reservation.ID).Error)
	assert.Equal(t, ReservationStatusReleased, released.Status)

	var events int64
	require.NoError(t, db.Model(&audit.Event{}).Where("action = ?", "reservation.release").Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestGetMovementsFiltersByItem(t *testing.T) {
	service, db := testService(t)
	ledger := NewLedger()
	first := createItem(t, db, 1, 0, nil)
	second := createItem(t, db, 1, 0, nil)

	_, err := ledger.Increase(db, first, 5, MovementTypeIn, 10, MovementRef{})
	require.NoError(t, err)
	_, err = ledger.Increase(db, second, 3, MovementTypeIn, 10, MovementRef{})
	require.NoError(t, err)

	movements, total, err := service.GetMovements(1, &MovementListRequest{Page: 1, Limit: 20, StockItemID: first.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, movements, 1)
	assert.Equal(t, first.ID, movements[0].StockItemID)
}
