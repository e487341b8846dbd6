package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/authz"
	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/services"
)

type ApplicationHandler struct {
	ApplicationService *services.ApplicationService
	Owners             *services.OwnershipService
}

func NewApplicationHandler(s *services.ApplicationService, owners *services.OwnershipService) *ApplicationHandler {
	return &ApplicationHandler{ApplicationService: s, Owners: owners}
}

func (h *ApplicationHandler) List(c *gin.Context) {
	var q dtos.ApplicationListQuery
	if !bindQuery(c, &q) {
		return
	}
	if q.ProfileID != "" && !authorize(c, h.Owners.Profiles(), q.ProfileID) {
		return
	}
	apps, err := h.ApplicationService.List(c.Request.Context(), authz.CallerFrom(c).UserID, &q)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *ApplicationHandler) Create(c *gin.Context) {
	var req dtos.ApplicationCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	if !authorize(c, h.Owners.Profiles(), req.ProfileID) {
		return
	}
	app, err := h.ApplicationService.Create(c.Request.Context(), authz.CallerFrom(c).UserID, &req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *ApplicationHandler) Get(c *gin.Context) {
	app, err := h.ApplicationService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandler) Update(c *gin.Context) {
	var req dtos.ApplicationUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.ApplicationService.Update(c.Request.Context(), authz.CallerFrom(c).UserID, c.Param("id"), &req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var req dtos.ApplicationStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.ApplicationService.UpdateStatus(c.Request.Context(), authz.CallerFrom(c).UserID, c.Param("id"), &req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandler) Delete(c *gin.Context) {
	if err := h.ApplicationService.Delete(c.Request.Context(), authz.CallerFrom(c).UserID, c.Param("id")); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ApplicationHandler) Events(c *gin.Context) {
	events, err := h.ApplicationService.Events(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
