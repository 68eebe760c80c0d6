// internal/interfaces/http/handlers/respond.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/backoffice-backend/internal/pkg/apperrors"
)

// respondError maps a service error to its HTTP status. Domain errors carry
// their own status; anything else is a 500 with the message hidden.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperrors.As(err); ok {
		payload := gin.H{
			"error": appErr.Message,
			"code":  appErr.Code,
		}
		if len(appErr.Details) > 0 {
			payload["details"] = appErr.Details
		}
		c.JSON(appErr.HTTPStatus(), payload)
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
	})
}

// parseIDParam parses a numeric path parameter.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return 0, false
	}
	return uint(value), true
}
