package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/authz"
)

// bindJSON binds the body or responds with BAD_REQUEST and field errors.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apierrors.Respond(c, apierrors.FromBinding(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		apierrors.Respond(c, apierrors.FromBinding(err))
		return false
	}
	return true
}

// authorize runs an ownership check for an id that arrives in the body or query.
func authorize(c *gin.Context, res authz.Resource, id string) bool {
	if err := authz.Authorize(c.Request.Context(), authz.CallerFrom(c), res, id); err != nil {
		apierrors.Respond(c, err)
		return false
	}
	return true
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
