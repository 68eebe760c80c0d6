package stock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/backoffice-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

func createCatalogStock(t *testing.T, db *gorm.DB, organizationID, catalogItemID uint, quantity int, createdAt time.Time) *Item {
	t.Helper()
	item := Item{
		OrganizationID: organizationID,
		CatalogItemID:  &catalogItemID,
		SKU:            "SKU-CAT",
		ModelName:      "Pixel 10",
		Quantity:       quantity,
		Status:         ItemStatusAvailable,
		CreatedAt:      createdAt,
	}
	require.NoError(t, db.Create(&item).Error)
	return &item
}

func TestCreateReservationHoldsWithoutDeducting(t *testing.T) {
	db := testDB(t)
	manager := NewReservationManager(NewLedger())
	item := createItem(t, db, 1, 5, nil)

	reservation, err := manager.Create(db, 1, &CreateReservationRequest{
		StockItemID: &item.ID,
		Quantity:    3,
	})
	require.NoError(t, err)
	assert.Equal(t, ReservationStatusActive, reservation.Status)

	// Soft hold: quantity is untouched until confirm.
	var reloaded Item
	require.NoError(t, db.First(&reloaded, item.ID).Error)
	assert.Equal(t, 5, reloaded.Quantity)
}

func TestCreateReservationRequiresExactlyOneLinkage(t *testing.T) {
	db := testDB(t)
	manager := NewReservationManager(NewLedger())
	item := createItem(t, db, 1, 5, nil)
	catalogItemID := uint(9)

	_, err := manager.Create(db, 1, &CreateReservationRequest{Quantity: 1})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = manager.Create(db, 1, &CreateReservationRequest{
		StockItemID:   &item.ID,
		CatalogItemID: &catalogItemID,
		Quantity:      1,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestCreateReservationChecksAvailability(t *testing.T) {
	db := testDB(t)
	manager := NewReservationManager(NewLedger())
	item := createItem(t, db, 1, 2, nil)

	_, err := manager.Create(db, 1, &CreateReservationRequest{
		StockItemID: &item.ID,
		Quantity:    3,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInsufficientStock))
}

func TestCreateReservationRejectsOtherTenantsItem(t *testing.T) {
	db := testDB(t)
	manager := NewReservationManager(NewLedger())
	item := createItem(t, db, 1, 5, nil)

	_, err := manager.Create(db, 2, &CreateReservationRequest{
		StockItemID: &item.ID,
		Quantity:    1,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestConfirmDeductsDirectlyLinkedItem(t *testing.T) {
	db := testDB(t)
	manager := NewReservationManager(NewLedger())
	item := createItem(t, db, 1, 5, nil)

	reservation, err := manager.Create(db, 1, &CreateReservationRequest{
		StockItemID: &item.ID,
		Quantity:    3,
	})
	require.NoError(t, err)

	require.NoError(t, manager.Confirm(db, 1, reservation.ID, 10))

	var reloaded Item
	require.NoError(t, db.First(&reloaded, item.ID).Error)
	assert.Equal(t, 2, reloaded.Quantity)

	var confirmed Reservation
	require.NoError(t, db.First(&confirmed, reservation.ID).Error)
	assert.Equal(t, ReservationStatusConfirmed, confirmed.Status)
	assert.NotNil(t, confirmed.ConfirmedAt)

	movements := movementsFor(t, db, item.ID)
	require.Len(t, movements, 1)
	assert.Equal(t, MovementTypeSold, movements[0].Type)
	require.NotNil(t, movements[0].ReservationID)
	assert.Equal(t, reservation.ID, *movements[0].ReservationID)
}

func TestConfirmCatalogReservationDepletesOldestFirst(t *testing.T) {
	db := testDB(t)
	manager := NewReservationManager(NewLedger())
	catalogItemID := uint(9)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	oldest := createCatalogStock(t, db, 1, catalogItemID, 2, base)
	middle := createCatalogStock(t, db, 1, catalogItemID, 2, base.Add(time.Hour))
	newest := createCatalogStock(t, db, 1, catalogItemID, 2, base.Add(2*time.Hour))

	reservation, err := manager.Create(db, 1, &CreateReservationRequest{
		CatalogItemID: &catalogItemID,
		Quantity:      3,
	})
	require.NoError(t, err)

	require.NoError(t, manager.Confirm(db, 1, reservation.ID, 10))

	var a, b, c Item
	require.NoError(t, db.First(&a, oldest.ID).Error)
	require.NoError(t, db.First(&b, middle.ID).Error)
	require.NoError(t, db.First(&c, newest.ID).Error)

	assert.Equal(t, 0, a.Quantity, "oldest row is drained first")
	assert.Equal(t, 1, b.Quantity, "second row covers the remainder")
	assert.Equal(t, 2, c.Quantity, "newest row is untouched")

	// One movement per affected row, none for the untouched one.
	assert.Len(t, movementsFor(t, db, oldest.ID), 1)
	assert.Len(t, movementsFor(t, db, middle.ID), 1)
	assert.Empty(t, movementsFor(t, db, newest.ID))
}

func TestConfirmCatalogReservationFailsWithoutPartialDeduction(t *testing.T) {
	db := testDB(t)
	manager := NewReservationManager(NewLedger())
	catalogItemID := uint(9)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := createCatalogStock(t, db, 1, catalogItemID, 2, base)
	second := createCatalogStock(t, db, 1, catalogItemID, 1, base.Add(time.Hour))

	reservation, err := manager.Create(db, 1, &CreateReservationRequest{
		CatalogItemID: &catalogItemID,
		Quantity:      5,
	})
	require.NoError(t, err)

	err = manager.Confirm(db, 1, reservation.ID, 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInsufficientStock))

	var a, b Item
	require.NoError(t, db.First(&a, first.ID).Error)
	require.NoError(t, db.First(&b, second.ID).Error)
	assert.Equal(t, 2, a.Quantity)
	assert.Equal(t, 1, b.Quantity)
}

func TestConfirmRequiresActiveStatus(t *testing.T) {
	db := testDB(t)
	manager := NewReservationManager(NewLedger())
	item := createItem(t, db, 1, 5, nil)

	reservation, err := manager.Create(db, 1, &CreateReservationRequest{
		StockItemID: &item.ID,
		Quantity:    1,
	})
	require.NoError(t, err)
	require.NoError(t, manager.Confirm(db, 1, reservation.ID, 10))

	// Second confirm is a hard error, never a silent no-op.
	err = manager.Confirm(db, 1, reservation.ID, 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))

	var reloaded Item
	require.NoError(t, db.First(&reloaded, item.ID).Error)
	assert.Equal(t, 4, reloaded.Quantity, "the deduction must not repeat")
}

func TestReleaseRecordsZeroDeltaMovement(t *testing.T) {
	db := testDB(t)
	manager := NewReservationManager(NewLedger())
	item := createItem(t, db, 1, 5, nil)

	reservation, err := manager.Create(db, 1, &CreateReservationRequest{
		StockItemID: &item.ID,
		Quantity:    2,
	})
	require.NoError(t, err)

	require.NoError(t, manager.Release(db, 1, reservation.ID, 10))

	var released Reservation
	require.NoError(t, db.First(&released, reservation.ID).Error)
	assert.Equal(t, ReservationStatusReleased, released.Status)
	assert.NotNil(t, released.ReleasedAt)

	var reloaded Item
	require.NoError(t, db.First(&reloaded, item.ID).Error)
	assert.Equal(t, 5, reloaded.Quantity)

	movements := movementsFor(t, db, item.ID)
	require.Len(t, movements, 1)
	assert.Equal(t, MovementTypeRelease, movements[0].Type)
	assert.Equal(t, 0, movements[0].Delta())
}

func TestReleaseRequiresActiveStatus(t *testing.T) {
	db := testDB(t)
	manager := NewReservationManager(NewLedger())
	item := createItem(t, db, 1, 5, nil)

	reservation, err := manager.Create(db, 1, &CreateReservationRequest{
		StockItemID: &item.ID,
		Quantity:    2,
	})
	require.NoError(t, err)
	require.NoError(t, manager.Release(db, 1, reservation.ID, 10))

	err = manager.Release(db, 1, reservation.ID, 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestLinkToSaleIsIrreversible(t *testing.T) {
	db := testDB(t)
	manager := NewReservationManager(NewLedger())
	item := createItem(t, db, 1, 5, nil)

	reservation, err := manager.Create(db, 1, &CreateReservationRequest{
		StockItemID: &item.ID,
		Quantity:    1,
	})
	require.NoError(t, err)

	require.NoError(t, manager.LinkToSale(db, 1, reservation.ID, 100))

	err = manager.LinkToSale(db, 1, reservation.ID, 200)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	var reloaded Reservation
	require.NoError(t, db.First(&reloaded, reservation.ID).Error)
	require.NotNil(t, reloaded.SaleID)
	assert.Equal(t, uint(100), *reloaded.SaleID)
}
