package middleware

import "github.com/gin-gonic/gin"

const (
	// userIDKey is the Gin context key holding the caller's user id.
	userIDKey = "userID"
	// HeaderUserID carries the caller identity set by the fronting proxy.
	HeaderUserID = "X-User-ID"
	// anonymousUser is used when no identity reached the service.
	anonymousUser = "demo-user"
)

// Identity stores the caller's user id in the context. The id comes from
// the X-User-ID header, which the fronting proxy sets after authentication.
// A value already placed by earlier middleware wins.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(userIDKey); !ok {
			if uid := c.GetHeader(HeaderUserID); uid != "" {
				c.Set(userIDKey, uid)
			}
		}
		c.Next()
	}
}

// UserID returns the caller's user id, or "demo-user" when none is known.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return anonymousUser
}
