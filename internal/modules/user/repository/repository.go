package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"skillbridge.io/marketplace/internal/entity"
	"skillbridge.io/marketplace/internal/modules/user/dto"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SearchFreelancers(ctx context.Context, filter dto.FreelancerFilter) ([]*entity.User, int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Update writes the mutable columns: name, avatar and profile.
func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).
		Model(user).
		Select("name", "avatar_url", "profile", "updated_at").
		Updates(user).Error
}

func (r *userRepository) TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at).Error
}

func (r *userRepository) SearchFreelancers(ctx context.Context, filter dto.FreelancerFilter) ([]*entity.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.User{}).Where("user_type = ?", entity.RoleFreelancer)

	if len(filter.Skills) > 0 {
		query = query.Where("jsonb_exists_any(profile->'skills', ?)", pq.Array(filter.Skills))
	}
	if filter.Location != "" {
		query = query.Where("profile->>'location' ILIKE ?", "%"+filter.Location+"%")
	}
	if filter.MinRate != nil {
		query = query.Where("COALESCE((profile->>'hourlyRate')::int, 0) >= ?", *filter.MinRate)
	}
	if filter.MaxRate != nil {
		query = query.Where("COALESCE((profile->>'hourlyRate')::int, 0) <= ?", *filter.MaxRate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []*entity.User
	if err := query.
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}
