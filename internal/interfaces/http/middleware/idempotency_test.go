package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/backoffice-backend/internal/domain/idempotency"
	"github.com/your-org/backoffice-backend/internal/pkg/actor"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testCoordinator(t *testing.T) *idempotency.Coordinator {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&idempotency.Key{}))

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return idempotency.NewCoordinator(idempotency.NewStore(db), time.Hour, log)
}

// fakeAuth stands in for the JWT middleware and stamps a fixed caller.
func fakeAuth(userID, organizationID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("organization_id", organizationID)
		c.Set("role", actor.RoleStaff)
		c.Next()
	}
}

func testRouter(t *testing.T, coordinator *idempotency.Coordinator, executions *int32, status int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/sales", fakeAuth(10, 1), Idempotency(coordinator), func(c *gin.Context) {
		n := atomic.AddInt32(executions, 1)
		c.JSON(status, gin.H{"execution": n})
	})
	return router
}

func post(router *gin.Engine, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotencyRequiresKeyHeader(t *testing.T) {
	var executions int32
	router := testRouter(t, testCoordinator(t), &executions, http.StatusCreated)

	w := post(router, "", `{"a":1}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int32(0), executions)
}

func TestIdempotencyRequiresAuthenticatedCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/sales", Idempotency(testCoordinator(t)), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	w := post(router, "k1", `{"a":1}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdempotencyReplaysCachedResponse(t *testing.T) {
	var executions int32
	router := testRouter(t, testCoordinator(t), &executions, http.StatusCreated)

	first := post(router, "k1", `{"a":1}`)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get("Idempotency-Replayed"))

	second := post(router, "k1", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotency-Replayed"))
	assert.Equal(t, first.Body.String(), second.Body.String(), "replay is byte-identical")

	assert.Equal(t, int32(1), executions, "the handler must run exactly once")
}

func TestIdempotencyReplayIgnoresKeyOrder(t *testing.T) {
	var executions int32
	router := testRouter(t, testCoordinator(t), &executions, http.StatusCreated)

	post(router, "k1", `{"a":1,"b":2}`)
	w := post(router, "k1", `{"b":2,"a":1}`)

	assert.Equal(t, "true", w.Header().Get("Idempotency-Replayed"))
	assert.Equal(t, int32(1), executions)
}

func TestIdempotencyRejectsReusedKeyWithDifferentPayload(t *testing.T) {
	var executions int32
	router := testRouter(t, testCoordinator(t), &executions, http.StatusCreated)

	post(router, "k1", `{"a":1}`)
	w := post(router, "k1", `{"a":2}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int32(1), executions)
}

func TestIdempotencyFailureEvictsKeyForRetry(t *testing.T) {
	coordinator := testCoordinator(t)
	var failures int32
	failing := testRouter(t, coordinator, &failures, http.StatusUnprocessableEntity)

	w := post(failing, "k1", `{"a":1}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// The same key retries against a now-succeeding handler and executes.
	var successes int32
	succeeding := testRouter(t, coordinator, &successes, http.StatusCreated)

	w = post(succeeding, "k1", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get("Idempotency-Replayed"))
	assert.Equal(t, int32(1), successes)
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	coordinator := testCoordinator(t)
	gin.SetMode(gin.TestMode)

	var executions int32
	router := gin.New()
	router.POST("/as/:user/sales", func(c *gin.Context) {
		userID := uint(10)
		if c.Param("user") == "bob" {
			userID = 20
		}
		c.Set("user_id", userID)
		c.Set("organization_id", uint(1))
		c.Set("role", actor.RoleStaff)
	}, Idempotency(coordinator), func(c *gin.Context) {
		atomic.AddInt32(&executions, 1)
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	send := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/as/"+user+"/sales", strings.NewReader(`{"a":1}`))
		req.Header.Set("Idempotency-Key", "k1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send("alice")
	second := send("bob")

	assert.Empty(t, first.Header().Get("Idempotency-Replayed"))
	assert.Empty(t, second.Header().Get("Idempotency-Replayed"), "another user's key is a different scope")
	assert.Equal(t, int32(2), executions)
}

func TestIdempotencyRestoresBodyForHandler(t *testing.T) {
	coordinator := testCoordinator(t)
	gin.SetMode(gin.TestMode)

	var seen string
	router := gin.New()
	router.POST("/sales", fakeAuth(10, 1), Idempotency(coordinator), func(c *gin.Context) {
		var payload struct {
			Name string `json:"name"`
		}
		require.NoError(t, c.ShouldBindJSON(&payload))
		seen = payload.Name
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	post(router, "k1", `{"name":"Alice"}`)
	assert.Equal(t, "Alice", seen, "the middleware must not consume the request body")
}
