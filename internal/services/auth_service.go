package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/auth"
	"github.com/justsurfingit/jobtracker/internal/authz"
	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/models"
)

var errSessionInactive = errors.New("session revoked or expired")

type AuthService struct {
	DB       *gorm.DB
	Tokens   *auth.TokenManager
	Admins   *authz.AdminPolicy
	DemoMode bool
}

func NewAuthService(db *gorm.DB, tokens *auth.TokenManager, admins *authz.AdminPolicy, demoMode bool) *AuthService {
	return &AuthService{DB: db, Tokens: tokens, Admins: admins, DemoMode: demoMode}
}

func (s *AuthService) Register(ctx context.Context, req *dtos.RegisterRequest) (*dtos.SessionResponse, error) {
	email := normalizeEmail(req.Email)

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apierrors.Internal("check existing user", err)
	}
	if count > 0 {
		return nil, apierrors.BadRequest("email already registered")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apierrors.Internal("hash password", err)
	}

	user := &models.User{Email: email, Name: strings.TrimSpace(req.Name), PasswordHash: hash}
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		return nil, apierrors.Internal("create user", err)
	}
	return s.issueSession(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, req *dtos.LoginRequest) (*dtos.SessionResponse, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.Unauthorized("invalid email or password")
		}
		return nil, apierrors.Internal("load user", err)
	}
	if user.PasswordHash == "" || auth.CheckPassword(user.PasswordHash, req.Password) != nil {
		return nil, apierrors.Unauthorized("invalid email or password")
	}
	return s.issueSession(ctx, &user)
}

// Demo creates a throwaway account with a starter profile.
func (s *AuthService) Demo(ctx context.Context) (*dtos.SessionResponse, error) {
	if !s.DemoMode {
		return nil, apierrors.Forbidden("demo mode is disabled")
	}

	user := &models.User{
		Email: "demo-" + uuid.NewString()[:8] + "@demo.local",
		Name:  "Demo User",
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Profile{UserID: &user.ID, Name: "Demo Profile", Headline: "Software Engineer"}).Error
	})
	if err != nil {
		return nil, apierrors.Internal("create demo user", err)
	}
	return s.issueSession(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, caller authz.Caller) error {
	if !caller.Authenticated() {
		return apierrors.Unauthorized("")
	}
	err := s.DB.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND user_id = ?", caller.SessionID, caller.UserID).
		Update("revoked", true).Error
	if err != nil {
		return apierrors.Internal("revoke session", err)
	}
	return nil
}

// Session describes the caller's current session without issuing a new token.
func (s *AuthService) Session(ctx context.Context, caller authz.Caller) (*dtos.SessionResponse, error) {
	if !caller.Authenticated() {
		return nil, apierrors.Unauthorized("")
	}
	var session models.Session
	if err := s.DB.WithContext(ctx).First(&session, "id = ?", caller.SessionID).Error; err != nil {
		return nil, dbError(err, "session", "load session")
	}
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", caller.UserID).Error; err != nil {
		return nil, dbError(err, "user", "load user")
	}
	return &dtos.SessionResponse{
		ExpiresAt: session.ExpiresAt,
		User:      user,
		IsAdmin:   s.Admins.IsAdmin(user.ID),
	}, nil
}

// ValidateSession implements auth.SessionValidator.
func (s *AuthService) ValidateSession(ctx context.Context, sessionID, userID string) (string, error) {
	if !validID(sessionID) || !validID(userID) {
		return "", errSessionInactive
	}

	var session models.Session
	err := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ? AND revoked = ? AND expires_at > ?", sessionID, userID, false, time.Now()).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errSessionInactive
		}
		return "", err
	}

	var user models.User
	if err := s.DB.WithContext(ctx).Select("id", "email").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errSessionInactive
		}
		return "", err
	}
	return user.Email, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, apierrors.Internal("list users", err)
	}
	return users, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User) (*dtos.SessionResponse, error) {
	session := &models.Session{
		UserID:     user.ID,
		ExpiresAt:  time.Now().Add(s.Tokens.TTL()),
		LastSeenAt: time.Now(),
	}
	if err := s.DB.WithContext(ctx).Create(session).Error; err != nil {
		return nil, apierrors.Internal("create session", err)
	}

	token, expiresAt, err := s.Tokens.Issue(user.ID, session.ID)
	if err != nil {
		return nil, apierrors.Internal("issue session token", err)
	}
	return &dtos.SessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
		IsAdmin:   s.Admins.IsAdmin(user.ID),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
