package dtos

import "time"

type ApplicationCreateRequest struct {
	ProfileID string     `json:"profileId" binding:"required,uuid"`
	JobID     string     `json:"jobId" binding:"required,uuid"`
	Status    string     `json:"status" binding:"omitempty,oneof=SAVED APPLIED INTERVIEW OFFER REJECTED WITHDRAWN"`
	Notes     string     `json:"notes"`
	AppliedAt *time.Time `json:"appliedAt"`
}

type ApplicationUpdateRequest struct {
	Notes     *string    `json:"notes"`
	AppliedAt *time.Time `json:"appliedAt"`
}

type ApplicationStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=SAVED APPLIED INTERVIEW OFFER REJECTED WITHDRAWN"`
	Note   string `json:"note" binding:"max=500"`
}

type ApplicationListQuery struct {
	ProfileID string `form:"profileId" binding:"omitempty,uuid"`
	Status    string `form:"status" binding:"omitempty,oneof=SAVED APPLIED INTERVIEW OFFER REJECTED WITHDRAWN"`
}
