package services

import (
	"context"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"github.com/justsurfingit/jobtracker/internal/models"
)

// minCompanyNameLen skips names like "X" or "Go" that would match everything.
const minCompanyNameLen = 3

type MatcherService struct {
	DB *gorm.DB
}

func NewMatcherService(db *gorm.DB) *MatcherService {
	return &MatcherService{DB: db}
}

// FindCompanyFromEmail matches an email to a tracked company by subject, then
// sender display name, then sender domain. Only companies the user has
// applications for are considered.
func (s *MatcherService) FindCompanyFromEmail(ctx context.Context, userID, subject, rawSender string) (*models.Company, error) {
	// "Stripe Recruiting <jobs@stripe.com>" -> name="stripe recruiting", addr="jobs@stripe.com"
	senderName, senderAddr := "", strings.ToLower(rawSender)
	if parsed, err := mail.ParseAddress(rawSender); err == nil {
		senderName = strings.ToLower(parsed.Name)
		senderAddr = strings.ToLower(parsed.Address)
	}
	var domain string
	if parts := strings.Split(senderAddr, "@"); len(parts) == 2 {
		domain = parts[1]
	}
	subjectLower := strings.ToLower(subject)

	companies, err := s.trackedCompanies(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range companies {
		name := strings.ToLower(strings.TrimSpace(companies[i].Name))
		if len(name) < minCompanyNameLen {
			continue
		}
		if strings.Contains(subjectLower, name) ||
			(senderName != "" && strings.Contains(senderName, name)) ||
			(domain != "" && strings.Contains(domain, strings.ReplaceAll(name, " ", ""))) {
			return &companies[i], nil
		}
	}
	return nil, nil
}

func (s *MatcherService) trackedCompanies(ctx context.Context, userID string) ([]models.Company, error) {
	db := s.DB.WithContext(ctx)
	jobIDs := db.Model(&models.Application{}).Select("job_id").Where("profile_id IN (?)", ownedProfiles(db, userID))
	companyIDs := db.Model(&models.Job{}).Select("company_id").Where("id IN (?)", jobIDs)

	var companies []models.Company
	if err := db.Where("id IN (?)", companyIDs).Order("name").Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}
