package idempotency

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/backoffice-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
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

	require.NoError(t, db.AutoMigrate(&Key{}))
	return db
}

func testCoordinator(t *testing.T, db *gorm.DB, ttl time.Duration) *Coordinator {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewCoordinator(NewStore(db), ttl, log)
}

func testScope(key string) Scope {
	return Scope{
		OrganizationID: 1,
		UserID:         10,
		Method:         "POST",
		Path:           "/api/v1/sales",
		Key:            key,
	}
}

func TestBeginFirstUseIsMiss(t *testing.T) {
	db := testDB(t)
	coordinator := testCoordinator(t, db, time.Hour)

	result, err := coordinator.Begin(testScope("k1"), HashRequest([]byte(`{"a":1}`)))
	require.NoError(t, err)
	assert.False(t, result.Hit)
}

func TestBeginReplaysCompletedResponse(t *testing.T) {
	db := testDB(t)
	coordinator := testCoordinator(t, db, time.Hour)
	scope := testScope("k1")
	hash := HashRequest([]byte(`{"a":1}`))

	result, err := coordinator.Begin(scope, hash)
	require.NoError(t, err)
	require.False(t, result.Hit)

	coordinator.Complete(scope, 201, `{"id":42}`)

	replay, err := coordinator.Begin(scope, hash)
	require.NoError(t, err)
	assert.True(t, replay.Hit)
	assert.Equal(t, 201, replay.StatusCode)
	assert.Equal(t, `{"id":42}`, replay.ResponseBody)
}

func TestBeginRejectsReusedKeyWithDifferentPayload(t *testing.T) {
	db := testDB(t)
	coordinator := testCoordinator(t, db, time.Hour)
	scope := testScope("k1")

	_, err := coordinator.Begin(scope, HashRequest([]byte(`{"a":1}`)))
	require.NoError(t, err)

	_, err = coordinator.Begin(scope, HashRequest([]byte(`{"a":2}`)))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestBeginPendingRecordIsMiss(t *testing.T) {
	db := testDB(t)
	coordinator := testCoordinator(t, db, time.Hour)
	scope := testScope("k1")
	hash := HashRequest([]byte(`{"a":1}`))

	_, err := coordinator.Begin(scope, hash)
	require.NoError(t, err)

	// Same key, same payload, no Complete yet: the record is pending and the
	// protocol fails open.
	result, err := coordinator.Begin(scope, hash)
	require.NoError(t, err)
	assert.False(t, result.Hit)
}

func TestBeginExpiredRecordResetsScope(t *testing.T) {
	db := testDB(t)
	coordinator := testCoordinator(t, db, -time.Minute) // everything expires immediately
	scope := testScope("k1")

	_, err := coordinator.Begin(scope, HashRequest([]byte(`{"a":1}`)))
	require.NoError(t, err)
	coordinator.Complete(scope, 200, `{"old":true}`)

	// A different payload under the same key would normally conflict, but the
	// record is expired, so the scope resets and the request goes through.
	result, err := coordinator.Begin(scope, HashRequest([]byte(`{"a":2}`)))
	require.NoError(t, err)
	assert.False(t, result.Hit)
}

func TestFailEvictsRecordForRetry(t *testing.T) {
	db := testDB(t)
	coordinator := testCoordinator(t, db, time.Hour)
	scope := testScope("k1")
	hash := HashRequest([]byte(`{"a":1}`))

	_, err := coordinator.Begin(scope, hash)
	require.NoError(t, err)

	coordinator.Fail(scope)

	// The key is usable again, even with a different payload.
	result, err := coordinator.Begin(scope, HashRequest([]byte(`{"a":2}`)))
	require.NoError(t, err)
	assert.False(t, result.Hit)
}

func TestScopeComponentsIsolateKeys(t *testing.T) {
	db := testDB(t)
	coordinator := testCoordinator(t, db, time.Hour)
	hash := HashRequest([]byte(`{"a":1}`))

	base := testScope("k1")
	_, err := coordinator.Begin(base, hash)
	require.NoError(t, err)
	coordinator.Complete(base, 201, `{"id":1}`)

	otherOrg := base
	otherOrg.OrganizationID = 2
	result, err := coordinator.Begin(otherOrg, hash)
	require.NoError(t, err)
	assert.False(t, result.Hit, "another tenant must never see a cached response")

	otherPath := base
	otherPath.Path = "/api/v1/purchases"
	result, err = coordinator.Begin(otherPath, hash)
	require.NoError(t, err)
	assert.False(t, result.Hit, "another endpoint is a different scope")
}

func TestCleanupExpiredSweepsOnlyStaleRecords(t *testing.T) {
	db := testDB(t)
	store := NewStore(db)

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	_, err := store.CreatePending(testScope("stale"), "h1", past)
	require.NoError(t, err)
	_, err = store.CreatePending(testScope("fresh"), "h2", future)
	require.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	coordinator := NewCoordinator(store, time.Hour, log)

	count, err := coordinator.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = store.Find(testScope("fresh"))
	assert.NoError(t, err)
	_, err = store.Find(testScope("stale"))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestHashRequestIgnoresKeyOrder(t *testing.T) {
	a := HashRequest([]byte(`{"a":1,"b":2}`))
	b := HashRequest([]byte(`{"b":2,"a":1}`))
	c := HashRequest([]byte(`{"a":1,"b":3}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestHashRequestNonJSONBody(t *testing.T) {
	a := HashRequest([]byte("not json"))
	b := HashRequest([]byte("not json"))
	c := HashRequest([]byte("other"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
