package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/models"
)

type DashboardService struct {
	DB *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{DB: db}
}

func (s *DashboardService) Stats(ctx context.Context, userID string) (*dtos.DashboardStats, error) {
	db := s.DB.WithContext(ctx)
	stats := &dtos.DashboardStats{ByStatus: make(map[string]int64, len(models.ApplicationStatuses))}
	for _, status := range models.ApplicationStatuses {
		stats.ByStatus[status] = 0
	}

	var rows []struct {
		Status string
		Count  int64
	}
	err := db.Model(&models.Application{}).
		Select("status, COUNT(*) AS count").
		Where("profile_id IN (?)", ownedProfiles(db, userID)).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apierrors.Internal("count applications", err)
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.TotalApplications += r.Count
	}

	if err := db.Model(&models.Hunt{}).
		Where("profile_id IN (?) AND status = ?", ownedProfiles(db, userID), models.HuntActive).
		Count(&stats.ActiveHunts).Error; err != nil {
		return nil, apierrors.Internal("count hunts", err)
	}
	if err := db.Model(&models.Profile{}).Where("user_id = ?", userID).Count(&stats.Profiles).Error; err != nil {
		return nil, apierrors.Internal("count profiles", err)
	}

	submitted := stats.TotalApplications - stats.ByStatus[models.StatusSaved]
	if submitted > 0 {
		responded := stats.ByStatus[models.StatusInterview] + stats.ByStatus[models.StatusOffer]
		stats.ResponseRate = float64(responded) / float64(submitted)
	}
	return stats, nil
}

// Activity returns the most recent timeline events across the user's applications.
func (s *DashboardService) Activity(ctx context.Context, userID string, limit int) ([]models.ApplicationEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	db := s.DB.WithContext(ctx)
	apps := db.Model(&models.Application{}).Select("id").Where("profile_id IN (?)", ownedProfiles(db, userID))

	events := []models.ApplicationEvent{}
	err := db.Where("application_id IN (?)", apps).Order("created_at DESC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, apierrors.Internal("load activity", err)
	}
	return events, nil
}
