package middleware

import (
	"github.com/gin-gonic/gin"

	appsvc "warbler/internal/app"
	"warbler/internal/session"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

// LoadSession resolves the session cookie into the current user and stores
// identity keys in the gin context. Requests without a live session pass
// through anonymous; the handlers decide what anonymity means per route.
func LoadSession(sessions session.Store, auth *appsvc.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		userID, found, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil || !found {
			c.Next()
			return
		}

		user, err := auth.GetUserByID(userID)
		if err != nil || user == nil {
			c.Next()
			return
		}

		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextUsernameKey, user.Username)
		c.Next()
	}
}

// CurrentIdentity returns the authenticated caller, or nil when the request
// is anonymous.
func CurrentIdentity(c *gin.Context) *appsvc.Identity {
	userIDAny, exists := c.Get(ContextUserIDKey)
	if !exists {
		return nil
	}
	userID, ok := userIDAny.(uint)
	if !ok || userID == 0 {
		return nil
	}
	return &appsvc.Identity{
		UserID:   userID,
		Username: c.GetString(ContextUsernameKey),
	}
}
