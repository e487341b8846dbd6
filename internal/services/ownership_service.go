package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/justsurfingit/jobtracker/internal/authz"
	"github.com/justsurfingit/jobtracker/internal/models"
)

// OwnershipService resolves the owning user of each resource. Applications and
// hunts have no owner column; their owner is read through the parent profile,
// re-fetched on every call.
type OwnershipService struct {
	DB *gorm.DB
}

func NewOwnershipService(db *gorm.DB) *OwnershipService {
	return &OwnershipService{DB: db}
}

func (s *OwnershipService) ProfileOwner(ctx context.Context, id string) (*string, error) {
	if !validID(id) {
		return nil, authz.ErrNotFound
	}
	var profile models.Profile
	if err := s.DB.WithContext(ctx).Select("id", "user_id").First(&profile, "id = ?", id).Error; err != nil {
		return nil, lookupError(err)
	}
	return profile.UserID, nil
}

func (s *OwnershipService) ApplicationOwner(ctx context.Context, id string) (*string, error) {
	if !validID(id) {
		return nil, authz.ErrNotFound
	}
	var app models.Application
	if err := s.DB.WithContext(ctx).Select("id", "profile_id").First(&app, "id = ?", id).Error; err != nil {
		return nil, lookupError(err)
	}
	return s.ProfileOwner(ctx, app.ProfileID)
}

func (s *OwnershipService) HuntOwner(ctx context.Context, id string) (*string, error) {
	if !validID(id) {
		return nil, authz.ErrNotFound
	}
	var hunt models.Hunt
	if err := s.DB.WithContext(ctx).Select("id", "profile_id").First(&hunt, "id = ?", id).Error; err != nil {
		return nil, lookupError(err)
	}
	return s.ProfileOwner(ctx, hunt.ProfileID)
}

func (s *OwnershipService) JobOwner(ctx context.Context, id string) (*string, error) {
	if !validID(id) {
		return nil, authz.ErrNotFound
	}
	var job models.Job
	if err := s.DB.WithContext(ctx).Select("id", "user_id").First(&job, "id = ?", id).Error; err != nil {
		return nil, lookupError(err)
	}
	return job.UserID, nil
}

func (s *OwnershipService) Profiles() authz.Resource {
	return authz.Resource{Name: "profile", Resolve: s.ProfileOwner}
}

func (s *OwnershipService) Applications() authz.Resource {
	return authz.Resource{Name: "application", Resolve: s.ApplicationOwner}
}

func (s *OwnershipService) Hunts() authz.Resource {
	return authz.Resource{Name: "hunt", Resolve: s.HuntOwner}
}

func (s *OwnershipService) Jobs() authz.Resource {
	return authz.Resource{Name: "job", Resolve: s.JobOwner}
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return authz.ErrNotFound
	}
	return err
}
