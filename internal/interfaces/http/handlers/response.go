// internal/interfaces/http/handlers/response.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/fitfood-checkout/internal/domain/checkout"
	"github.com/your-org/fitfood-checkout/internal/domain/customer"
	"github.com/your-org/fitfood-checkout/internal/interfaces/http/middleware"
	"github.com/your-org/fitfood-checkout/internal/pkg/apperr"
)

// loadSession resolves the shopper's checkout session from the cookie
func loadSession(c *gin.Context, sessions *checkout.Manager) (*checkout.Session, bool) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing session",
		})
		return nil, false
	}

	s, err := sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Failed to load checkout session",
		})
		return nil, false
	}
	return s, true
}

func respondSnapshot(c *gin.Context, message string, s *checkout.Session) {
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    s.Snapshot(),
	})
}

// respondError maps err to a status and includes the unchanged session
// state so the client can re-render.
func respondError(c *gin.Context, err error, s *checkout.Session) {
	_ = c.Error(err)

	body := gin.H{
		"error": apperr.Message(err),
		"kind":  apperr.KindOf(err),
	}
	if verr, ok := customer.AsValidationError(err); ok {
		body["field_errors"] = verr.Fields
	}
	if s != nil {
		body["data"] = s.Snapshot()
	}

	c.JSON(apperr.HTTPStatus(err), body)
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"details": err.Error(),
	})
}
