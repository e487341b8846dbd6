package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/models"
)

const defaultTheme = "system"

type SettingsService struct {
	DB *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{DB: db}
}

// Get returns stored settings, or unsaved defaults for users who never saved any.
func (s *SettingsService) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := s.DB.WithContext(ctx).First(&settings, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserSettings{UserID: userID, Theme: defaultTheme, EmailNotifications: true, AutomationEnabled: true}, nil
	}
	if err != nil {
		return nil, apierrors.Internal("load settings", err)
	}
	return &settings, nil
}

// Put replaces the user's settings. DefaultProfileID must already be checked
// against the caller's profiles.
func (s *SettingsService) Put(ctx context.Context, userID string, req *dtos.SettingsRequest) (*models.UserSettings, error) {
	theme := req.Theme
	if theme == "" {
		theme = defaultTheme
	}
	settings := &models.UserSettings{
		UserID:             userID,
		Theme:              theme,
		EmailNotifications: req.EmailNotifications,
		AutomationEnabled:  req.AutomationEnabled,
		DefaultProfileID:   req.DefaultProfileID,
	}

	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"theme", "email_notifications", "automation_enabled", "default_profile_id", "updated_at"}),
	}).Create(settings).Error
	if err != nil {
		return nil, apierrors.Internal("save settings", err)
	}
	return settings, nil
}

// AutomationEnabled reports whether the user opted into inbox automation.
// Users without saved settings are opted in.
func (s *SettingsService) AutomationEnabled(ctx context.Context, userID string) (bool, error) {
	var settings models.UserSettings
	err := s.DB.WithContext(ctx).First(&settings, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return settings.AutomationEnabled, nil
}
