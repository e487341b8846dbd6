package dtos

type ClassifyEmailRequest struct {
	CompanyName string `json:"companyName" binding:"required"`
	Subject     string `json:"subject" binding:"required"`
	Body        string `json:"body" binding:"required"`
}

// EmailAnalysis is the classifier output; Status is NO_CHANGE or UNKNOWN when
// the email does not move the application.
type EmailAnalysis struct {
	Status  string `json:"status"`
	Summary string `json:"summary"`
}

type SyncReport struct {
	Mode      string `json:"mode"`
	Fetched   int    `json:"fetched"`
	Processed int    `json:"processed"`
	Updated   int    `json:"updated"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}
