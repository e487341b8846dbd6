package authz

import (
	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/metrics"
)

// RequireAuth rejects anonymous callers.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CallerFrom(c).Authenticated() {
			apierrors.Respond(c, apierrors.Unauthorized(""))
			return
		}
		c.Next()
	}
}

// RequireOwnership authorizes the caller against the resource named by the path
// parameter before the handler runs.
func RequireOwnership(res Resource, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := Authorize(c.Request.Context(), CallerFrom(c), res, c.Param(param)); err != nil {
			apierrors.Respond(c, err)
			return
		}
		c.Next()
	}
}

// RequireAdmin gates a route on the admin allow-list.
func RequireAdmin(policy *AdminPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := policy.Check(CallerFrom(c)); err != nil {
			metrics.AuthorizationVerdicts.WithLabelValues("admin", "denied").Inc()
			apierrors.Respond(c, err)
			return
		}
		metrics.AuthorizationVerdicts.WithLabelValues("admin", "allowed").Inc()
		c.Next()
	}
}
