package dtos

type JobExtractionRequest struct {
	RawHTML string `json:"rawHtml" binding:"required"`
	URL     string `json:"url" binding:"omitempty,url"`
}

type JobCreationRequest struct {
	CompanyName string `json:"companyName" binding:"required,max=200"`
	Title       string `json:"title" binding:"required,max=200"`
	JobLink     string `json:"jobLink" binding:"required,url"`
	Description string `json:"description" binding:"required"`

	// Optional Fields
	Location    string   `json:"location"`
	SalaryRange string   `json:"salaryRange"`
	TechStack   []string `json:"techStack"`
}

// JobUpdateRequest uses pointers so absent fields stay untouched.
type JobUpdateRequest struct {
	Title       *string  `json:"title" binding:"omitempty,max=200"`
	Description *string  `json:"description"`
	JobLink     *string  `json:"jobLink" binding:"omitempty,url"`
	Location    *string  `json:"location"`
	SalaryRange *string  `json:"salaryRange"`
	TechStack   []string `json:"techStack"`
}

type JobListQuery struct {
	Search   string `form:"search"`
	Company  string `form:"company"`
	Location string `form:"location"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"pageSize" binding:"omitempty,min=1,max=100"`
}

type JobListResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}
