package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Application statuses. REJECTED, OFFER and WITHDRAWN are terminal.
const (
	StatusSaved     = "SAVED"
	StatusApplied   = "APPLIED"
	StatusInterview = "INTERVIEW"
	StatusOffer     = "OFFER"
	StatusRejected  = "REJECTED"
	StatusWithdrawn = "WITHDRAWN"
)

var ApplicationStatuses = []string{StatusSaved, StatusApplied, StatusInterview, StatusOffer, StatusRejected, StatusWithdrawn}

var TerminalStatuses = []string{StatusOffer, StatusRejected, StatusWithdrawn}

// Hunt statuses.
const (
	HuntActive = "ACTIVE"
	HuntPaused = "PAUSED"
	HuntClosed = "CLOSED"
)

// Base carries the uuid primary key and timestamps shared by most tables.
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type User struct {
	Base

	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
	// Gmail history bookmark for the automation watcher.
	LastHistoryID uint64 `json:"-"`
}

type Session struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string    `gorm:"type:uuid;index;not null" json:"userId"`
	ExpiresAt  time.Time `gorm:"index;not null" json:"expiresAt"`
	Revoked    bool      `gorm:"index;not null" json:"revoked"`
	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

func (s *Session) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Profile is a job-seeker persona owned by a user. A nil UserID marks an orphaned
// profile that nobody may modify.
type Profile struct {
	Base

	UserID     *string                     `gorm:"type:uuid;index" json:"userId"`
	Name       string                      `gorm:"not null" json:"name"`
	Headline   string                      `json:"headline"`
	ResumeLink string                      `json:"resumeLink"`
	Skills     datatypes.JSONSlice[string] `json:"skills"`
}

type Company struct {
	Base

	Name string `gorm:"uniqueIndex;not null" json:"name"`

	// 'omitempty' prevents infinite loops when fetching a Job -> Company -> Jobs -> ...
	Jobs []Job `json:"jobs,omitempty"`
}

type Job struct {
	Base

	// Creator of the posting; nil for imported postings.
	UserID *string `gorm:"type:uuid;index" json:"userId"`

	CompanyID string  `gorm:"type:uuid;index" json:"companyId"`
	Company   Company `json:"company"`

	Title       string                      `gorm:"not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	JobLink     string                      `json:"jobLink"`
	Location    string                      `json:"location"`
	SalaryRange string                      `json:"salaryRange"`
	TechStack   datatypes.JSONSlice[string] `json:"techStack"`
}

// Application links a profile to a job. Ownership is always derived through the
// profile, never stored on the application.
type Application struct {
	Base

	ProfileID string  `gorm:"type:uuid;index;not null" json:"profileId"`
	Profile   Profile `json:"-"`

	JobID string `gorm:"type:uuid;index;not null" json:"jobId"`
	Job   Job    `json:"job"`

	Status    string     `gorm:"index;default:'APPLIED'" json:"status"`
	Notes     string     `gorm:"type:text" json:"notes"`
	AppliedAt *time.Time `json:"appliedAt"`
}

type ApplicationEvent struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	ApplicationID string    `gorm:"type:uuid;index" json:"applicationId"`
	EventType     string    `json:"eventType"`
	Details       string    `gorm:"type:text" json:"details"`
}

func (e *ApplicationEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Hunt is a saved job search run for one profile.
type Hunt struct {
	Base

	ProfileID   string `gorm:"type:uuid;index;not null" json:"profileId"`
	Name        string `gorm:"not null" json:"name"`
	Query       string `json:"query"`
	Location    string `json:"location"`
	Status      string `gorm:"default:'ACTIVE'" json:"status"`
	TargetCount int    `json:"targetCount"`
}

type UserSettings struct {
	UserID             string    `gorm:"type:uuid;primaryKey" json:"userId"`
	UpdatedAt          time.Time `json:"updatedAt"`
	Theme              string    `json:"theme"`
	EmailNotifications bool      `json:"emailNotifications"`
	AutomationEnabled  bool      `json:"automationEnabled"`
	DefaultProfileID   *string   `gorm:"type:uuid" json:"defaultProfileId"`
}

// Processed email states. FAILED rows are picked up again by later syncs
// until Attempts reaches the retry ceiling.
const (
	EmailDone   = "DONE"
	EmailFailed = "FAILED"
)

type ProcessedEmail struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Status    string `gorm:"index;default:'DONE'"`
	Attempts  int
}

// All lists every table for migrations.
func All() []interface{} {
	return []interface{}{
		&User{}, &Session{}, &Profile{}, &Company{}, &Job{},
		&Application{}, &ApplicationEvent{}, &Hunt{}, &UserSettings{}, &ProcessedEmail{},
	}
}
