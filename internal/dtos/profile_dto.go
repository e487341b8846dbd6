package dtos

type ProfileRequest struct {
	Name       string   `json:"name" binding:"required,max=100"`
	Headline   string   `json:"headline" binding:"max=200"`
	ResumeLink string   `json:"resumeLink" binding:"omitempty,url"`
	Skills     []string `json:"skills"`
}

type ProfileUpdateRequest struct {
	Name       *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Headline   *string  `json:"headline" binding:"omitempty,max=200"`
	ResumeLink *string  `json:"resumeLink" binding:"omitempty,url"`
	Skills     []string `json:"skills"`
}
