package services

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/models"
)

type JobService struct {
	DB *gorm.DB
}

func NewJobService(db *gorm.DB) *JobService {
	return &JobService{
		DB: db,
	}
}

func (s *JobService) CreateJob(ctx context.Context, userID string, req *dtos.JobCreationRequest) (*models.Job, error) {
	// Imported postings have no creator.
	var owner *string
	if userID != "" {
		owner = &userID
	}

	var job *models.Job
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Companies are shared across users; create the entry if it doesn't exist yet.
		var company models.Company
		err := tx.Where(models.Company{Name: strings.TrimSpace(req.CompanyName)}).
			FirstOrCreate(&company).Error
		if err != nil {
			return err
		}

		job = &models.Job{
			UserID:      owner,
			CompanyID:   company.ID,
			Title:       req.Title,
			Description: req.Description,
			JobLink:     req.JobLink,
			Location:    req.Location,
			SalaryRange: req.SalaryRange,
			TechStack:   req.TechStack,
		}
		if err := tx.Omit(clause.Associations).Create(job).Error; err != nil {
			return err
		}
		job.Company = company
		return nil
	})
	if err != nil {
		return nil, apierrors.Internal("create job", err)
	}
	return job, nil
}

// ListJobs is the public job board: newest first, filtered by a free-text
// search over title and description plus optional company and location.
func (s *JobService) ListJobs(ctx context.Context, q *dtos.JobListQuery) (*dtos.JobListResponse, error) {
	page, pageSize := pagination(q.Page, q.PageSize)

	query := s.DB.WithContext(ctx).Model(&models.Job{})
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if company := strings.TrimSpace(q.Company); company != "" {
		query = query.Where("company_id IN (?)",
			s.DB.Model(&models.Company{}).Select("id").Where("LOWER(name) LIKE ?", "%"+strings.ToLower(company)+"%"))
	}
	if location := strings.TrimSpace(q.Location); location != "" {
		query = query.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(location)+"%")
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, apierrors.Internal("count jobs", err)
	}

	jobs := []models.Job{}
	err := query.Preload("Company").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&jobs).Error
	if err != nil {
		return nil, apierrors.Internal("list jobs", err)
	}

	return &dtos.JobListResponse{Items: jobs, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *JobService) GetJob(ctx context.Context, id string) (*models.Job, error) {
	if !validID(id) {
		return nil, apierrors.NotFound("job")
	}
	var job models.Job
	if err := s.DB.WithContext(ctx).Preload("Company").First(&job, "id = ?", id).Error; err != nil {
		return nil, dbError(err, "job", "load job")
	}
	return &job, nil
}

func (s *JobService) UpdateJob(ctx context.Context, id string, req *dtos.JobUpdateRequest) (*models.Job, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		job.Title = *req.Title
	}
	if req.Description != nil {
		job.Description = *req.Description
	}
	if req.JobLink != nil {
		job.JobLink = *req.JobLink
	}
	if req.Location != nil {
		job.Location = *req.Location
	}
	if req.SalaryRange != nil {
		job.SalaryRange = *req.SalaryRange
	}
	if req.TechStack != nil {
		job.TechStack = req.TechStack
	}

	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Save(job).Error; err != nil {
		return nil, apierrors.Internal("update job", err)
	}
	return job, nil
}

func (s *JobService) DeleteJob(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Delete(&models.Job{}, "id = ?", id)
	if res.Error != nil {
		return apierrors.Internal("delete job", res.Error)
	}
	if res.RowsAffected == 0 {
		return apierrors.NotFound("job")
	}
	return nil
}
