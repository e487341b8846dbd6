package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/authz"
	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/ratelimit"
	"github.com/justsurfingit/jobtracker/internal/services"
)

type AutomationHandler struct {
	EmailService *services.EmailService
	LLMService   *services.LLMService
	Admins       *authz.AdminPolicy
}

func NewAutomationHandler(email *services.EmailService, llm *services.LLMService, admins *authz.AdminPolicy) *AutomationHandler {
	return &AutomationHandler{EmailService: email, LLMService: llm, Admins: admins}
}

// EmailSync runs one inbox sync. Only the mailbox owner and admins may trigger it.
func (h *AutomationHandler) EmailSync(c *gin.Context) {
	caller := authz.CallerFrom(c)
	if h.EmailService == nil || !h.EmailService.Enabled() {
		apierrors.Respond(c, apierrors.BadRequest("email automation is not configured"))
		return
	}
	if !strings.EqualFold(caller.Email, h.EmailService.MailboxUserEmail) && !h.Admins.IsAdmin(caller.UserID) {
		apierrors.Respond(c, apierrors.Forbidden("only the mailbox owner can sync this inbox"))
		return
	}

	report, err := h.EmailService.SyncEmails(c.Request.Context())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ClassifyEmail runs the status classifier on a pasted email.
func (h *AutomationHandler) ClassifyEmail(c *gin.Context) {
	if h.LLMService == nil {
		apierrors.Respond(c, apierrors.BadRequest("email classification is not configured"))
		return
	}
	var req dtos.ClassifyEmailRequest
	if !bindJSON(c, &req) {
		return
	}
	analysis, err := h.LLMService.AnalyzeEmailStatus(c.Request.Context(), req.CompanyName, req.Subject, req.Body)
	if err != nil {
		apierrors.Respond(c, apierrors.Internal("classify email", err))
		return
	}
	c.JSON(http.StatusOK, analysis)
}

type AdminHandler struct {
	AuthService *services.AuthService
	Limiters    ratelimit.Limiters
}

func NewAdminHandler(s *services.AuthService, limiters ratelimit.Limiters) *AdminHandler {
	return &AdminHandler{AuthService: s, Limiters: limiters}
}

func (h *AdminHandler) Users(c *gin.Context) {
	users, err := h.AuthService.ListUsers(c.Request.Context())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) RateLimits(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		string(ratelimit.ClassQuery):    ratelimit.Describe(h.Limiters.Query),
		string(ratelimit.ClassMutation): ratelimit.Describe(h.Limiters.Mutation),
		string(ratelimit.ClassAI):       ratelimit.Describe(h.Limiters.AI),
	})
}
