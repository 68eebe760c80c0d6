package sale

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/backoffice-backend/internal/domain/audit"
	"github.com/your-org/backoffice-backend/internal/domain/stock"
	"github.com/your-org/backoffice-backend/internal/pkg/actor"
	"github.com/your-org/backoffice-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps every session on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&stock.Item{}, &stock.Movement{}, &stock.Reservation{},
		&Sale{}, &Item{}, &audit.Event{},
	))

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	manager := stock.NewReservationManager(stock.NewLedger())
	return NewService(db, manager, audit.NewRecorder(), log), db
}

func testActor() actor.Actor {
	return actor.Actor{OrganizationID: 1, UserID: 10, Role: actor.RoleStaff}
}

func createStockItem(t *testing.T, db *gorm.DB, quantity int) *stock.Item {
	t.Helper()
	item := stock.Item{
		OrganizationID: 1,
		SKU:            "SKU-1",
		ModelName:      "Galaxy S25",
		Quantity:       quantity,
		Status:         stock.ItemStatusAvailable,
	}
	require.NoError(t, db.Create(&item).Error)
	return &item
}

func createReservation(t *testing.T, db *gorm.DB, stockItemID uint, quantity int) *stock.Reservation {
	t.Helper()
	reservation := stock.Reservation{
		OrganizationID: 1,
		StockItemID:    &stockItemID,
		Quantity:       quantity,
		Status:         stock.ReservationStatusActive,
	}
	require.NoError(t, db.Create(&reservation).Error)
	return &reservation
}

func TestCreateWithItemsComputesTotals(t *testing.T) {
	service, _ := testService(t)

	created, err := service.Create(testActor(), &CreateRequest{
		CustomerName: "Alice",
		Discount:     decimal.NewFromInt(50),
		Items: []ItemRequest{
			{ModelName: "Galaxy S25", Quantity: 2, UnitPrice: decimal.NewFromInt(500)},
			{ModelName: "Case", Quantity: 1, UnitPrice: decimal.NewFromInt(20)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, created.Status)
	assert.True(t, created.Subtotal.Equal(decimal.NewFromInt(1020)))
	assert.True(t, created.Total.Equal(decimal.NewFromInt(970)), "total = subtotal - discount")
	assert.Len(t, created.Items, 2)
}

func TestCreateWithReservationsStartsReserved(t *testing.T) {
	service, db := testService(t)
	item := createStockItem(t, db, 5)
	reservation := createReservation(t, db, item.ID, 2)

	created, err := service.Create(testActor(), &CreateRequest{
		CustomerName:   "Alice",
		ReservationIDs: []uint{reservation.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusReserved, created.Status)
	assert.NotNil(t, created.ReservedAt)

	var linked stock.Reservation
	require.NoError(t, db.First(&linked, reservation.ID).Error)
	require.NotNil(t, linked.SaleID)
	assert.Equal(t, created.ID, *linked.SaleID)
}

func TestCreateRequiresReservationOrItem(t *testing.T) {
	service, _ := testService(t)

	_, err := service.Create(testActor(), &CreateRequest{CustomerName: "Alice"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestCreateRejectsDuplicateSuppliedNumber(t *testing.T) {
	service, _ := testService(t)
	number := "INV-CUSTOM-1"

	_, err := service.Create(testActor(), &CreateRequest{
		Number: &number,
		Items:  []ItemRequest{{ModelName: "Case", Quantity: 1, UnitPrice: decimal.NewFromInt(20)}},
	})
	require.NoError(t, err)

	_, err = service.Create(testActor(), &CreateRequest{
		Number: &number,
		Items:  []ItemRequest{{ModelName: "Case", Quantity: 1, UnitPrice: decimal.NewFromInt(20)}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestCreateGeneratesSequentialNumbers(t *testing.T) {
	service, _ := testService(t)
	year := time.Now().UTC().Year()

	first, err := service.Create(testActor(), &CreateRequest{
		Items: []ItemRequest{{ModelName: "Case", Quantity: 1, UnitPrice: decimal.NewFromInt(20)}},
	})
	require.NoError(t, err)
	second, err := service.Create(testActor(), &CreateRequest{
		Items: []ItemRequest{{ModelName: "Case", Quantity: 1, UnitPrice: decimal.NewFromInt(20)}},
	})
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("INV-%d-00001", year), first.Number)
	assert.Equal(t, fmt.Sprintf("INV-%d-00002", year), second.Number)
}

func TestPayConfirmsReservationsAndDeductsStock(t *testing.T) {
	service, db := testService(t)
	item := createStockItem(t, db, 5)
	reservation := createReservation(t, db, item.ID, 3)

	created, err := service.Create(testActor(), &CreateRequest{
		CustomerName:   "Alice",
		ReservationIDs: []uint{reservation.ID},
	})
	require.NoError(t, err)

	paid, err := service.Pay(testActor(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	var reloaded stock.Item
	require.NoError(t, db.First(&reloaded, item.ID).Error)
	assert.Equal(t, 2, reloaded.Quantity)

	var confirmed stock.Reservation
	require.NoError(t, db.First(&confirmed, reservation.ID).Error)
	assert.Equal(t, stock.ReservationStatusConfirmed, confirmed.Status)
}

func TestPayRollsBackOnInsufficientStock(t *testing.T) {
	service, db := testService(t)
	item := createStockItem(t, db, 5)
	reservation := createReservation(t, db, item.ID, 3)

	created, err := service.Create(testActor(), &CreateRequest{
		CustomerName:   "Alice",
		ReservationIDs: []uint{reservation.ID},
	})
	require.NoError(t, err)

	// Stock drains between reservation and payment.
	require.NoError(t, db.Model(&stock.Item{}).Where("id = ?", item.ID).Update("quantity", 1).Error)

	_, err = service.Pay(testActor(), created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInsufficientStock))

	// Nothing moved: the sale is still RESERVED, the reservation still ACTIVE.
	current, err := service.Get(1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReserved, current.Status)

	var untouched stock.Reservation
	require.NoError(t, db.First(&untouched, reservation.ID).Error)
	assert.Equal(t, stock.ReservationStatusActive, untouched.Status)
}

func TestPayRequiresReservedStatus(t *testing.T) {
	service, _ := testService(t)

	created, err := service.Create(testActor(), &CreateRequest{
		Items: []ItemRequest{{ModelName: "Case", Quantity: 1, UnitPrice: decimal.NewFromInt(20)}},
	})
	require.NoError(t, err)

	_, err = service.Pay(testActor(), created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestCancelReleasesActiveReservations(t *testing.T) {
	service, db := testService(t)
	item := createStockItem(t, db, 5)
	reservation := createReservation(t, db, item.ID, 2)

	created, err := service.Create(testActor(), &CreateRequest{
		CustomerName:   "Alice",
		ReservationIDs: []uint{reservation.ID},
	})
	require.NoError(t, err)

	cancelled, err := service.Cancel(testActor(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	var released stock.Reservation
	require.NoError(t, db.First(&released, reservation.ID).Error)
	assert.Equal(t, stock.ReservationStatusReleased, released.Status)

	// Releasing never changes quantity.
	var reloaded stock.Item
	require.NoError(t, db.First(&reloaded, item.ID).Error)
	assert.Equal(t, 5, reloaded.Quantity)
}

func TestCancelRejectedAfterShipping(t *testing.T) {
	service, db := testService(t)
	item := createStockItem(t, db, 5)
	reservation := createReservation(t, db, item.ID, 2)

	created, err := service.Create(testActor(), &CreateRequest{
		ReservationIDs: []uint{reservation.ID},
	})
	require.NoError(t, err)

	_, err = service.Pay(testActor(), created.ID)
	require.NoError(t, err)
	_, err = service.Ship(testActor(), created.ID)
	require.NoError(t, err)

	_, err = service.Cancel(testActor(), created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestShipAndDeliverStampTimestamps(t *testing.T) {
	service, db := testService(t)
	item := createStockItem(t, db, 5)
	reservation := createReservation(t, db, item.ID, 2)

	created, err := service.Create(testActor(), &CreateRequest{
		ReservationIDs: []uint{reservation.ID},
	})
	require.NoError(t, err)

	_, err = service.Pay(testActor(), created.ID)
	require.NoError(t, err)

	shipped, err := service.Ship(testActor(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, shipped.Status)
	assert.NotNil(t, shipped.ShippedAt)

	delivered, err := service.Deliver(testActor(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)

	// Skipping straight from PAID to DELIVERED is rejected.
	_, err = service.Deliver(testActor(), created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestUpdateDiscountRecomputesTotal(t *testing.T) {
	service, _ := testService(t)

	created, err := service.Create(testActor(), &CreateRequest{
		Items: []ItemRequest{{ModelName: "Case", Quantity: 2, UnitPrice: decimal.NewFromInt(100)}},
	})
	require.NoError(t, err)

	discount := decimal.NewFromInt(30)
	updated, err := service.Update(testActor(), created.ID, &UpdateRequest{Discount: &discount})
	require.NoError(t, err)

	assert.True(t, updated.Total.Equal(decimal.NewFromInt(170)))
}

func TestDeleteAndRestore(t *testing.T) {
	service, _ := testService(t)

	created, err := service.Create(testActor(), &CreateRequest{
		Items: []ItemRequest{{ModelName: "Case", Quantity: 1, UnitPrice: decimal.NewFromInt(20)}},
	})
	require.NoError(t, err)

	require.NoError(t, service.Delete(testActor(), created.ID))

	// A deleted sale is invisible to normal reads.
	_, err = service.Get(1, created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	restored, err := service.Restore(testActor(), created.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)

	_, err = service.Get(1, created.ID)
	assert.NoError(t, err)
}

func TestDeleteRequiresDraftWithoutReservations(t *testing.T) {
	service, db := testService(t)
	item := createStockItem(t, db, 5)
	reservation := createReservation(t, db, item.ID, 2)

	created, err := service.Create(testActor(), &CreateRequest{
		ReservationIDs: []uint{reservation.ID},
	})
	require.NoError(t, err)

	err = service.Delete(testActor(), created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestGetIsTenantScoped(t *testing.T) {
	service, _ := testService(t)

	created, err := service.Create(testActor(), &CreateRequest{
		Items: []ItemRequest{{ModelName: "Case", Quantity: 1, UnitPrice: decimal.NewFromInt(20)}},
	})
	require.NoError(t, err)

	_, err = service.Get(2, created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestTransitionsWriteAuditTrail(t *testing.T) {
	service, db := testService(t)
	item := createStockItem(t, db, 5)
	reservation := createReservation(t, db, item.ID, 2)

	created, err := service.Create(testActor(), &CreateRequest{
		ReservationIDs: []uint{reservation.ID},
	})
	require.NoError(t, err)
	_, err = service.Pay(testActor(), created.ID)
	require.NoError(t, err)

	var actions []string
	require.NoError(t, db.Model(&audit.Event{}).
		Where("entity_type = ? AND entity_id = ?", "sale", created.ID).
		Order("id ASC").Pluck("action", &actions).Error)
	assert.Equal(t, []string{"sale.create", "sale.pay"}, actions)
}
