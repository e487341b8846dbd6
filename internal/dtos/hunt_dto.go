package dtos

type HuntCreateRequest struct {
	ProfileID   string `json:"profileId" binding:"required,uuid"`
	Name        string `json:"name" binding:"required,max=100"`
	Query       string `json:"query" binding:"max=300"`
	Location    string `json:"location" binding:"max=100"`
	TargetCount int    `json:"targetCount" binding:"omitempty,min=1,max=1000"`
}

type HuntUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Query       *string `json:"query" binding:"omitempty,max=300"`
	Location    *string `json:"location" binding:"omitempty,max=100"`
	Status      *string `json:"status" binding:"omitempty,oneof=ACTIVE PAUSED CLOSED"`
	TargetCount *int    `json:"targetCount" binding:"omitempty,min=1,max=1000"`
}
