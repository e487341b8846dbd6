package authz

import "github.com/gin-gonic/gin"

// AnonymousUserID is the identity assigned to requests without a valid session.
const AnonymousUserID = "anonymous"

const callerKey = "caller"

// Caller is the resolved identity of an inbound request.
type Caller struct {
	UserID    string
	SessionID string
	Email     string
	ClientIP  string
}

// Anonymous returns the sentinel caller for the given client address.
func Anonymous(clientIP string) Caller {
	return Caller{UserID: AnonymousUserID, ClientIP: clientIP}
}

func (c Caller) Authenticated() bool {
	return c.UserID != "" && c.UserID != AnonymousUserID
}

func SetCaller(c *gin.Context, caller Caller) {
	c.Set(callerKey, caller)
}

// CallerFrom returns the caller stored by the authentication middleware, or the
// anonymous sentinel when none was stored.
func CallerFrom(c *gin.Context) Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(Caller); ok {
			return caller
		}
	}
	return Anonymous(c.ClientIP())
}
