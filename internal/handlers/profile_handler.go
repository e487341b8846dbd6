package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/authz"
	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/services"
)

type ProfileHandler struct {
	ProfileService *services.ProfileService
}

func NewProfileHandler(s *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{ProfileService: s}
}

func (h *ProfileHandler) List(c *gin.Context) {
	profiles, err := h.ProfileService.List(c.Request.Context(), authz.CallerFrom(c).UserID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

func (h *ProfileHandler) Create(c *gin.Context) {
	var req dtos.ProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := h.ProfileService.Create(c.Request.Context(), authz.CallerFrom(c).UserID, &req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.ProfileService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) Update(c *gin.Context) {
	var req dtos.ProfileUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := h.ProfileService.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) Delete(c *gin.Context) {
	if err := h.ProfileService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
