package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/authz"
	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/services"
)

type JobHandler struct {
	LLMService *services.LLMService
	JobService *services.JobService
}

// NewJobHandler creates the handler with dependencies. llm may be nil when no
// Gemini key is configured.
func NewJobHandler(llm *services.LLMService, j *services.JobService) *JobHandler {
	return &JobHandler{LLMService: llm,
		JobService: j,
	}
}

// ParseJob is the POST /jobs/extract endpoint
func (h *JobHandler) ParseJob(c *gin.Context) {
	if h.LLMService == nil {
		apierrors.Respond(c, apierrors.BadRequest("job extraction is not configured"))
		return
	}

	var req dtos.JobExtractionRequest
	if !bindJSON(c, &req) {
		return
	}
	extractedJSON, err := h.LLMService.ExtractJobDetails(c.Request.Context(), req.RawHTML)
	if err != nil {
		apierrors.Respond(c, apierrors.Internal("extract job details", err))
		return
	}

	// RawMessage keeps the model's JSON from being escaped as a string.
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    json.RawMessage(extractedJSON),
	})
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dtos.JobCreationRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.JobService.CreateJob(c.Request.Context(), authz.CallerFrom(c).UserID, &req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *JobHandler) ListJobs(c *gin.Context) {
	var q dtos.JobListQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.JobService.ListJobs(c.Request.Context(), &q)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.JobService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) UpdateJob(c *gin.Context) {
	var req dtos.JobUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.JobService.UpdateJob(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) DeleteJob(c *gin.Context) {
	if err := h.JobService.DeleteJob(c.Request.Context(), c.Param("id")); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
