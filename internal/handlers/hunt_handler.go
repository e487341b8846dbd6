package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/authz"
	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/services"
)

type HuntHandler struct {
	HuntService *services.HuntService
	Owners      *services.OwnershipService
}

func NewHuntHandler(s *services.HuntService, owners *services.OwnershipService) *HuntHandler {
	return &HuntHandler{HuntService: s, Owners: owners}
}

func (h *HuntHandler) List(c *gin.Context) {
	hunts, err := h.HuntService.List(c.Request.Context(), authz.CallerFrom(c).UserID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, hunts)
}

func (h *HuntHandler) Create(c *gin.Context) {
	var req dtos.HuntCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	if !authorize(c, h.Owners.Profiles(), req.ProfileID) {
		return
	}
	hunt, err := h.HuntService.Create(c.Request.Context(), authz.CallerFrom(c).UserID, &req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, hunt)
}

func (h *HuntHandler) Get(c *gin.Context) {
	hunt, err := h.HuntService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, hunt)
}

func (h *HuntHandler) Update(c *gin.Context) {
	var req dtos.HuntUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	hunt, err := h.HuntService.Update(c.Request.Context(), authz.CallerFrom(c).UserID, c.Param("id"), &req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, hunt)
}

func (h *HuntHandler) Delete(c *gin.Context) {
	if err := h.HuntService.Delete(c.Request.Context(), authz.CallerFrom(c).UserID, c.Param("id")); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
