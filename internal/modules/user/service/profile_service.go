package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"skillbridge.io/marketplace/internal/entity"
	"skillbridge.io/marketplace/internal/modules/user/dto"
	"skillbridge.io/marketplace/internal/modules/user/repository"
	"skillbridge.io/marketplace/pkg/apperror"
	commonDto "skillbridge.io/marketplace/pkg/dto"
	"skillbridge.io/marketplace/pkg/logger"
	"skillbridge.io/marketplace/pkg/storage"
)

const avatarFolder = "avatars"

type ProfileService interface {
	UpdateProfile(ctx context.Context, userID uuid.UUID, input dto.UpdateProfileRequest) (*dto.UserResponse, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, file commonDto.UploadFile) (*dto.UserResponse, error)
	GetPublicProfile(ctx context.Context, userID uuid.UUID) (*dto.PublicProfile, error)
	SearchFreelancers(ctx context.Context, query dto.FreelancerSearchQuery) (*dto.FreelancerListResponse, error)
}

type profileService struct {
	repo         repository.UserRepository
	imageStorage storage.ImageStorage
	log          logrus.FieldLogger
}

func NewProfileService(repo repository.UserRepository, imageStorage storage.ImageStorage, log logrus.FieldLogger) ProfileService {
	return &profileService{
		repo:         repo,
		imageStorage: imageStorage,
		log:          log,
	}
}

func (s *profileService) findUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Dependency("user.find_by_id", err)
	}
	return user, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}

	var profile entity.RoleProfile
	switch user.Role {
	case entity.RoleFreelancer:
		if input.Company != nil {
			return nil, apperror.InvalidInput("company is only available on client profiles")
		}
		p, err := user.FreelancerProfile()
		if err != nil {
			return nil, apperror.Dependency("user.decode_profile", err)
		}
		applyFreelancerFields(p, input)
		profile = p
	case entity.RoleClient:
		if input.Skills != nil || input.HourlyRate != nil || input.Portfolio != nil || input.Availability != nil {
			return nil, apperror.InvalidInput("skills, hourlyRate, portfolio and availability are only available on freelancer profiles")
		}
		p, err := user.ClientProfile()
		if err != nil {
			return nil, apperror.Dependency("user.decode_profile", err)
		}
		applyClientFields(p, input)
		profile = p
	default:
		return nil, apperror.InvalidState("user has an unknown role")
	}

	if err := user.SetProfile(profile); err != nil {
		return nil, apperror.Dependency("user.encode_profile", err)
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, apperror.Dependency("user.update", err)
	}

	return s.toResponse(user)
}

func applyFreelancerFields(p *entity.FreelancerProfile, input dto.UpdateProfileRequest) {
	if input.Bio != nil {
		p.Bio = strings.TrimSpace(*input.Bio)
	}
	if input.Location != nil {
		p.Location = strings.TrimSpace(*input.Location)
	}
	if input.Skills != nil {
		p.Skills = normalizeList(*input.Skills)
	}
	if input.HourlyRate != nil {
		p.HourlyRate = *input.HourlyRate
	}
	if input.Portfolio != nil {
		p.Portfolio = normalizeList(*input.Portfolio)
	}
	if input.Availability != nil {
		p.Availability = *input.Availability
	}
}

func applyClientFields(p *entity.ClientProfile, input dto.UpdateProfileRequest) {
	if input.Bio != nil {
		p.Bio = strings.TrimSpace(*input.Bio)
	}
	if input.Location != nil {
		p.Location = strings.TrimSpace(*input.Location)
	}
	if input.Company != nil {
		p.Company = strings.TrimSpace(*input.Company)
	}
}

// normalizeList trims entries and drops blanks and duplicates.
func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (s *profileService) UploadAvatar(ctx context.Context, userID uuid.UUID, file commonDto.UploadFile) (*dto.UserResponse, error) {
	if s.imageStorage == nil {
		return nil, apperror.New(http.StatusServiceUnavailable, "image uploads are not configured", apperror.ErrDependency)
	}
	if !storage.IsSupportedImage(file.FileName) {
		return nil, apperror.InvalidInput("avatar must be a jpg, png, gif or webp image")
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.imageStorage.UploadImage(ctx, file.Reader, avatarFolder, file.FileName)
	if err != nil {
		return nil, apperror.Dependency("user.upload_avatar", err)
	}

	previous := user.AvatarURL
	user.AvatarURL = &url
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, apperror.Dependency("user.update_avatar", err)
	}

	if previous != nil && *previous != "" {
		if err := s.imageStorage.DeleteImage(ctx, *previous); err != nil {
			logger.FromContext(ctx, s.log).WithError(err).WithField("user_id", userID).Warn("failed to delete previous avatar")
		}
	}

	return s.toResponse(user)
}

func (s *profileService) GetPublicProfile(ctx context.Context, userID uuid.UUID) (*dto.PublicProfile, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := dto.NewPublicProfile(user)
	if err != nil {
		return nil, apperror.Dependency("user.decode_profile", err)
	}
	return profile, nil
}

func (s *profileService) SearchFreelancers(ctx context.Context, query dto.FreelancerSearchQuery) (*dto.FreelancerListResponse, error) {
	if query.MinRate != nil && query.MaxRate != nil && *query.MinRate > *query.MaxRate {
		return nil, apperror.InvalidInput("minRate must not exceed maxRate")
	}

	offset := query.PaginationQuery.Normalize()
	filter := dto.FreelancerFilter{
		Location: strings.TrimSpace(query.Location),
		MinRate:  query.MinRate,
		MaxRate:  query.MaxRate,
		Limit:    query.Limit,
		Offset:   offset,
	}
	if query.Skills != "" {
		filter.Skills = normalizeList(strings.Split(query.Skills, ","))
	}

	users, total, err := s.repo.SearchFreelancers(ctx, filter)
	if err != nil {
		return nil, apperror.Dependency("user.search_freelancers", err)
	}

	freelancers := make([]dto.PublicProfile, 0, len(users))
	for _, u := range users {
		p, err := dto.NewPublicProfile(u)
		if err != nil {
			logger.FromContext(ctx, s.log).WithError(err).WithField("user_id", u.ID).Warn("skipping freelancer with unreadable profile")
			continue
		}
		freelancers = append(freelancers, *p)
	}

	return &dto.FreelancerListResponse{
		Freelancers: freelancers,
		Pagination:  commonDto.NewPaginationMeta(query.Page, query.Limit, total),
	}, nil
}

func (s *profileService) toResponse(user *entity.User) (*dto.UserResponse, error) {
	resp, err := dto.NewUserResponse(user)
	if err != nil {
		return nil, apperror.Dependency("user.decode_profile", err)
	}
	return resp, nil
}
