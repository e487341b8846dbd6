package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/authz"
	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/services"
)

type SettingsHandler struct {
	SettingsService *services.SettingsService
	Owners          *services.OwnershipService
}

func NewSettingsHandler(s *services.SettingsService, owners *services.OwnershipService) *SettingsHandler {
	return &SettingsHandler{SettingsService: s, Owners: owners}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.SettingsService.Get(c.Request.Context(), authz.CallerFrom(c).UserID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *SettingsHandler) Put(c *gin.Context) {
	var req dtos.SettingsRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.DefaultProfileID != nil && !authorize(c, h.Owners.Profiles(), *req.DefaultProfileID) {
		return
	}
	settings, err := h.SettingsService.Put(c.Request.Context(), authz.CallerFrom(c).UserID, &req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

type DashboardHandler struct {
	DashboardService *services.DashboardService
}

func NewDashboardHandler(s *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{DashboardService: s}
}

func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.DashboardService.Stats(c.Request.Context(), authz.CallerFrom(c).UserID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *DashboardHandler) Activity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := h.DashboardService.Activity(c.Request.Context(), authz.CallerFrom(c).UserID, limit)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
