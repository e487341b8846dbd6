package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/models"
	"github.com/justsurfingit/jobtracker/internal/realtime"
)

// Application event types recorded in the timeline.
const (
	EventCreated      = "CREATED"
	EventStatusChange = "STATUS_CHANGE"
	EventEmailUpdate  = "EMAIL_UPDATE"
	EventNoteUpdate   = "NOTE_UPDATE"
)

type ApplicationService struct {
	DB        *gorm.DB
	Publisher EventPublisher
}

func NewApplicationService(db *gorm.DB, events EventPublisher) *ApplicationService {
	return &ApplicationService{DB: db, Publisher: publisherOrNop(events)}
}

// ownedProfiles selects the ids of the user's live profiles.
func ownedProfiles(db *gorm.DB, userID string) *gorm.DB {
	return db.Model(&models.Profile{}).Select("id").Where("user_id = ?", userID)
}

// List returns the user's applications, optionally narrowed to one profile.
// Callers check profile ownership before passing ProfileID.
func (s *ApplicationService) List(ctx context.Context, userID string, q *dtos.ApplicationListQuery) ([]models.Application, error) {
	db := s.DB.WithContext(ctx)
	query := db.Preload("Job.Company").Where("profile_id IN (?)", ownedProfiles(db, userID))
	if q.ProfileID != "" {
		query = query.Where("profile_id = ?", q.ProfileID)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}

	apps := []models.Application{}
	if err := query.Order("updated_at DESC").Find(&apps).Error; err != nil {
		return nil, apierrors.Internal("list applications", err)
	}
	return apps, nil
}

// Create tracks a job for a profile the caller already owns.
func (s *ApplicationService) Create(ctx context.Context, userID string, req *dtos.ApplicationCreateRequest) (*models.Application, error) {
	var job models.Job
	if err := s.DB.WithContext(ctx).Preload("Company").First(&job, "id = ?", req.JobID).Error; err != nil {
		return nil, dbError(err, "job", "load job")
	}

	status := req.Status
	if status == "" {
		status = models.StatusApplied
	}
	appliedAt := req.AppliedAt
	if appliedAt == nil && status != models.StatusSaved {
		now := time.Now().UTC()
		appliedAt = &now
	}

	app := &models.Application{
		ProfileID: req.ProfileID,
		JobID:     req.JobID,
		Status:    status,
		Notes:     req.Notes,
		AppliedAt: appliedAt,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(app).Error; err != nil {
			return err
		}
		return tx.Create(&models.ApplicationEvent{
			ApplicationID: app.ID,
			EventType:     EventCreated,
			Details:       fmt.Sprintf("Tracking %s at %s with status %s", job.Title, job.Company.Name, status),
		}).Error
	})
	if err != nil {
		return nil, apierrors.Internal("create application", err)
	}
	app.Job = job

	s.Publisher.Publish(ctx, realtime.Event{Type: realtime.ApplicationCreated, UserID: userID, Payload: app})
	return app, nil
}

func (s *ApplicationService) Get(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	if err := s.DB.WithContext(ctx).Preload("Job.Company").First(&app, "id = ?", id).Error; err != nil {
		return nil, dbError(err, "application", "load application")
	}
	return &app, nil
}

func (s *ApplicationService) Update(ctx context.Context, userID, id string, req *dtos.ApplicationUpdateRequest) (*models.Application, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.AppliedAt != nil {
		updates["applied_at"] = *req.AppliedAt
	}
	if len(updates) == 0 {
		return app, nil
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(app).Omit(clause.Associations).Updates(updates).Error; err != nil {
			return err
		}
		if req.Notes != nil {
			return tx.Create(&models.ApplicationEvent{ApplicationID: app.ID, EventType: EventNoteUpdate, Details: "Notes updated"}).Error
		}
		return nil
	})
	if err != nil {
		return nil, apierrors.Internal("update application", err)
	}

	app, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Publisher.Publish(ctx, realtime.Event{Type: realtime.ApplicationUpdated, UserID: userID, Payload: app})
	return app, nil
}

// UpdateStatus moves the application to req.Status. Setting the current status
// again is a no-op and records no event.
func (s *ApplicationService) UpdateStatus(ctx context.Context, userID, id string, req *dtos.ApplicationStatusRequest) (*models.Application, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	details := fmt.Sprintf("Status changed from %s to %s", app.Status, req.Status)
	if req.Note != "" {
		details += ". Note: " + req.Note
	}
	if _, err := s.ChangeStatus(ctx, userID, app, req.Status, EventStatusChange, details); err != nil {
		return nil, err
	}
	return app, nil
}

// ChangeStatus persists a status transition with its timeline event and
// notifies the owner. It reports whether anything changed.
func (s *ApplicationService) ChangeStatus(ctx context.Context, userID string, app *models.Application, status, eventType, details string) (bool, error) {
	if app.Status == status {
		return false, nil
	}

	previous := app.Status
	updates := map[string]interface{}{"status": status}
	if previous == models.StatusSaved && app.AppliedAt == nil {
		now := time.Now().UTC()
		updates["applied_at"] = now
		app.AppliedAt = &now
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Application{}).Where("id = ?", app.ID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Create(&models.ApplicationEvent{ApplicationID: app.ID, EventType: eventType, Details: details}).Error
	})
	if err != nil {
		return false, apierrors.Internal("update application status", err)
	}
	app.Status = status

	s.Publisher.Publish(ctx, realtime.Event{
		Type:   realtime.ApplicationStatusChanged,
		UserID: userID,
		Payload: map[string]interface{}{
			"applicationId": app.ID,
			"from":          previous,
			"to":            status,
			"source":        eventType,
		},
	})
	return true, nil
}

func (s *ApplicationService) Delete(ctx context.Context, userID, id string) error {
	res := s.DB.WithContext(ctx).Delete(&models.Application{}, "id = ?", id)
	if res.Error != nil {
		return apierrors.Internal("delete application", res.Error)
	}
	if res.RowsAffected == 0 {
		return apierrors.NotFound("application")
	}
	s.Publisher.Publish(ctx, realtime.Event{
		Type:    realtime.ApplicationDeleted,
		UserID:  userID,
		Payload: map[string]string{"applicationId": id},
	})
	return nil
}

// Events returns the application timeline, newest first.
func (s *ApplicationService) Events(ctx context.Context, id string) ([]models.ApplicationEvent, error) {
	events := []models.ApplicationEvent{}
	err := s.DB.WithContext(ctx).Where("application_id = ?", id).Order("created_at DESC").Find(&events).Error
	if err != nil {
		return nil, apierrors.Internal("list application events", err)
	}
	return events, nil
}
