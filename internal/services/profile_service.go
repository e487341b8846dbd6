package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/models"
)

type ProfileService struct {
	DB *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{DB: db}
}

func (s *ProfileService) List(ctx context.Context, userID string) ([]models.Profile, error) {
	profiles := []models.Profile{}
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&profiles).Error; err != nil {
		return nil, apierrors.Internal("list profiles", err)
	}
	return profiles, nil
}

func (s *ProfileService) Create(ctx context.Context, userID string, req *dtos.ProfileRequest) (*models.Profile, error) {
	profile := &models.Profile{
		UserID:     &userID,
		Name:       req.Name,
		Headline:   req.Headline,
		ResumeLink: req.ResumeLink,
		Skills:     req.Skills,
	}
	if err := s.DB.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, apierrors.Internal("create profile", err)
	}
	return profile, nil
}

func (s *ProfileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.DB.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, dbError(err, "profile", "load profile")
	}
	return &profile, nil
}

func (s *ProfileService) Update(ctx context.Context, id string, req *dtos.ProfileUpdateRequest) (*models.Profile, error) {
	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		profile.Name = *req.Name
	}
	if req.Headline != nil {
		profile.Headline = *req.Headline
	}
	if req.ResumeLink != nil {
		profile.ResumeLink = *req.ResumeLink
	}
	if req.Skills != nil {
		profile.Skills = req.Skills
	}

	if err := s.DB.WithContext(ctx).Save(profile).Error; err != nil {
		return nil, apierrors.Internal("update profile", err)
	}
	return profile, nil
}

// Delete soft-deletes the profile. Its applications and hunts stay in place but
// no longer resolve an owner.
func (s *ProfileService) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Delete(&models.Profile{}, "id = ?", id)
	if res.Error != nil {
		return apierrors.Internal("delete profile", res.Error)
	}
	if res.RowsAffected == 0 {
		return apierrors.NotFound("profile")
	}
	return nil
}
