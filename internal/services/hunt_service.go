package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/models"
	"github.com/justsurfingit/jobtracker/internal/realtime"
)

type HuntService struct {
	DB        *gorm.DB
	Publisher EventPublisher
}

func NewHuntService(db *gorm.DB, events EventPublisher) *HuntService {
	return &HuntService{DB: db, Publisher: publisherOrNop(events)}
}

func (s *HuntService) List(ctx context.Context, userID string) ([]models.Hunt, error) {
	db := s.DB.WithContext(ctx)
	hunts := []models.Hunt{}
	err := db.Where("profile_id IN (?)", ownedProfiles(db, userID)).Order("created_at DESC").Find(&hunts).Error
	if err != nil {
		return nil, apierrors.Internal("list hunts", err)
	}
	return hunts, nil
}

// Create starts a hunt for a profile the caller already owns.
func (s *HuntService) Create(ctx context.Context, userID string, req *dtos.HuntCreateRequest) (*models.Hunt, error) {
	hunt := &models.Hunt{
		ProfileID:   req.ProfileID,
		Name:        req.Name,
		Query:       req.Query,
		Location:    req.Location,
		Status:      models.HuntActive,
		TargetCount: req.TargetCount,
	}
	if err := s.DB.WithContext(ctx).Create(hunt).Error; err != nil {
		return nil, apierrors.Internal("create hunt", err)
	}
	s.publish(ctx, userID, hunt, "created")
	return hunt, nil
}

func (s *HuntService) Get(ctx context.Context, id string) (*models.Hunt, error) {
	var hunt models.Hunt
	if err := s.DB.WithContext(ctx).First(&hunt, "id = ?", id).Error; err != nil {
		return nil, dbError(err, "hunt", "load hunt")
	}
	return &hunt, nil
}

func (s *HuntService) Update(ctx context.Context, userID, id string, req *dtos.HuntUpdateRequest) (*models.Hunt, error) {
	hunt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		hunt.Name = *req.Name
	}
	if req.Query != nil {
		hunt.Query = *req.Query
	}
	if req.Location != nil {
		hunt.Location = *req.Location
	}
	if req.Status != nil {
		hunt.Status = *req.Status
	}
	if req.TargetCount != nil {
		hunt.TargetCount = *req.TargetCount
	}

	if err := s.DB.WithContext(ctx).Save(hunt).Error; err != nil {
		return nil, apierrors.Internal("update hunt", err)
	}
	s.publish(ctx, userID, hunt, "updated")
	return hunt, nil
}

func (s *HuntService) Delete(ctx context.Context, userID, id string) error {
	hunt, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(hunt).Error; err != nil {
		return apierrors.Internal("delete hunt", err)
	}
	s.publish(ctx, userID, hunt, "deleted")
	return nil
}

func (s *HuntService) publish(ctx context.Context, userID string, hunt *models.Hunt, action string) {
	s.Publisher.Publish(ctx, realtime.Event{
		Type:    realtime.HuntUpdated,
		UserID:  userID,
		Payload: map[string]interface{}{"action": action, "hunt": hunt},
	})
}
