// internal/interfaces/http/middleware/idempotency.go
package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/backoffice-backend/internal/domain/idempotency"
	"github.com/your-org/backoffice-backend/internal/pkg/apperrors"
)

// responseRecorder tees the response body so the coordinator can cache it for
// future replays.
type responseRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// Idempotency guards a mutating route with the begin/complete/fail protocol.
// The Idempotency-Key header is mandatory on guarded routes. The scope is the
// caller's organization and user plus the method and route template, so the
// same key on a different endpoint is a different scope, and one tenant can
// never replay another's response.
func Idempotency(coordinator *idempotency.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Idempotency-Key")
		if key == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Idempotency-Key header required",
			})
			c.Abort()
			return
		}

		act, ok := ActorFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Failed to read request body",
			})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		scope := idempotency.Scope{
			OrganizationID: act.OrganizationID,
			UserID:         act.UserID,
			Method:         c.Request.Method,
			Path:           c.FullPath(),
			Key:            key,
		}

		result, err := coordinator.Begin(scope, idempotency.HashRequest(body))
		if err != nil {
			status := http.StatusConflict
			if appErr, ok := apperrors.As(err); ok {
				status = appErr.HTTPStatus()
			}
			c.JSON(status, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		if result.Hit {
			c.Header("Idempotency-Replayed", "true")
			c.Data(result.StatusCode, "application/json", []byte(result.ResponseBody))
			c.Abort()
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = recorder

		c.Next()

		status := c.Writer.Status()
		if status >= 200 && status < 400 {
			coordinator.Complete(scope, status, recorder.body.String())
		} else {
			coordinator.Fail(scope)
		}
	}
}
