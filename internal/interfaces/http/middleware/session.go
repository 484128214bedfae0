// internal/interfaces/http/middleware/session.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionCookieName = "session_id"
	SessionIDKey      = "session_id"
)

// SessionCookie reads the shopper's session cookie, issuing a new one if absent
func SessionCookie(maxAge int, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookieName)
		if err != nil || !validSessionID(sessionID) {
			sessionID = uuid.New().String()
		}

		// Refresh on every request so active shoppers keep their session
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookieName, sessionID, maxAge, "/", "", secure, true)

		c.Set(SessionIDKey, sessionID)
		c.Next()
	}
}

// GetSessionIDFromContext returns the session id set by SessionCookie
func GetSessionIDFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(SessionIDKey)
	return id, id != ""
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetCookie(SessionCookieName, "", -1, "/", "", secure, true)
}

func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
