package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/authz"
	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/logger"
	"github.com/justsurfingit/jobtracker/internal/services"
)

type AuthHandler struct {
	AuthService *services.AuthService
}

func NewAuthHandler(s *services.AuthService) *AuthHandler {
	return &AuthHandler{AuthService: s}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dtos.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.AuthService.Register(c.Request.Context(), &req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	logger.FromContext(c).Infow("User registered", "email", req.Email)
	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dtos.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.AuthService.Login(c.Request.Context(), &req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Demo(c *gin.Context) {
	resp, err := h.AuthService.Demo(c.Request.Context())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.AuthService.Logout(c.Request.Context(), authz.CallerFrom(c)); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Session(c *gin.Context) {
	resp, err := h.AuthService.Session(c.Request.Context(), authz.CallerFrom(c))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
