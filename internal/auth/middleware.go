package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobtracker/internal/authz"
	"github.com/justsurfingit/jobtracker/internal/logger"
)

// SessionValidator reports whether a persisted session is still usable and
// returns the owning user's email.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID, userID string) (email string, err error)
}

// Authenticate resolves the bearer token into an authz.Caller. Requests without
// a usable token continue as anonymous callers; routes that need a user reject
// them with authz.RequireAuth.
func Authenticate(tokens *TokenManager, sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := authz.Anonymous(c.ClientIP())

		if raw := bearerToken(c); raw != "" {
			claims, err := tokens.Parse(raw)
			if err != nil {
				logger.FromContext(c).Debugw("ignoring invalid session token", "error", err)
			} else if email, err := sessions.ValidateSession(c.Request.Context(), claims.SessionID, claims.Subject); err != nil {
				logger.FromContext(c).Debugw("ignoring inactive session", "session_id", claims.SessionID, "error", err)
			} else {
				caller = authz.Caller{
					UserID:    claims.Subject,
					SessionID: claims.SessionID,
					Email:     email,
					ClientIP:  c.ClientIP(),
				}
			}
		}

		authz.SetCaller(c, caller)
		logger.Enrich(c, "user_id", caller.UserID)
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the access_token
// query parameter for EventSource clients that cannot set headers.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("access_token")
}
