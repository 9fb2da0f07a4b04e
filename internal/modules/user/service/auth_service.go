package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"skillbridge.io/marketplace/internal/entity"
	notifService "skillbridge.io/marketplace/internal/modules/notification/service"
	"skillbridge.io/marketplace/internal/modules/user/dto"
	"skillbridge.io/marketplace/internal/modules/user/repository"
	"skillbridge.io/marketplace/pkg/apperror"
	"skillbridge.io/marketplace/pkg/logger"
	"skillbridge.io/marketplace/pkg/token"
)

const passwordCost = 12

var errInvalidCredentials = apperror.Unauthorized("invalid credentials")

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, input dto.LoginRequest) (*dto.AuthResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
}

type authService struct {
	repo     repository.UserRepository
	tokens   *token.Manager
	notifier notifService.Notifier
	log      logrus.FieldLogger
	cost     int
	now      func() time.Time
}

// NewAuthService builds the service. notifier receives the welcome email and
// may be nil.
func NewAuthService(repo repository.UserRepository, tokens *token.Manager, notifier notifService.Notifier, log logrus.FieldLogger) AuthService {
	return &authService{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		log:      log,
		cost:     passwordCost,
		now:      time.Now,
	}
}

func (s *authService) Register(ctx context.Context, input dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	role := entity.Role(input.UserType)
	if !role.Valid() {
		return nil, apperror.InvalidInput("userType must be client or freelancer")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("user already exists with this email")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Dependency("user.find_by_email", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, apperror.Dependency("user.hash_password", err)
	}

	user := &entity.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: string(hashed),
		Role:         role,
	}
	if err := user.SetProfile(entity.DefaultProfile(role)); err != nil {
		return nil, apperror.Dependency("user.default_profile", err)
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("user already exists with this email")
		}
		return nil, apperror.Dependency("user.create", err)
	}

	logger.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"user_id":   user.ID,
		"user_type": user.Role,
	}).Info("user registered")

	if s.notifier != nil {
		s.notifier.Notify(notifService.Message{
			Type:        entity.NotificationWelcome,
			RecipientID: user.ID,
			ActorID:     user.ID,
			EntityID:    user.ID,
			EntityType:  "user",
		})
	}

	return s.buildAuthResponse(user)
}

// Login answers the same error for an unknown email, a role mismatch and a
// wrong password.
func (s *authService) Login(ctx context.Context, input dto.LoginRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, apperror.Dependency("user.find_by_email", err)
	}

	if string(user.Role) != input.UserType {
		return nil, errInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	now := s.now()
	if err := s.repo.TouchLogin(ctx, user.ID, now); err != nil {
		logger.FromContext(ctx, s.log).WithError(err).WithField("user_id", user.ID).Warn("failed to record login time")
	} else {
		user.UpdatedAt = now
	}

	return s.buildAuthResponse(user)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Dependency("user.find_by_id", err)
	}

	resp, err := dto.NewUserResponse(user)
	if err != nil {
		return nil, apperror.Dependency("user.decode_profile", err)
	}
	return resp, nil
}

func (s *authService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	signed, expiresAt, err := s.tokens.Issue(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, apperror.Dependency("user.issue_token", err)
	}

	userResp, err := dto.NewUserResponse(user)
	if err != nil {
		return nil, apperror.Dependency("user.decode_profile", err)
	}

	return &dto.AuthResponse{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      userResp,
	}, nil
}
