package dto

import (
	"time"

	"skillbridge.io/marketplace/internal/entity"
	commonDto "skillbridge.io/marketplace/pkg/dto"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	UserType string `json:"userType" binding:"required,oneof=client freelancer"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	UserType string `json:"userType" binding:"required,oneof=client freelancer"`
}

type AuthResponse struct {
	Token     string        `json:"token"`
	TokenType string        `json:"tokenType"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      *UserResponse `json:"user"`
}

// UserResponse is the private view of a user, returned to the user themself.
type UserResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	UserType  entity.Role        `json:"userType"`
	AvatarURL *string            `json:"avatarUrl,omitempty"`
	Profile   entity.RoleProfile `json:"profile"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// PublicProfile omits the email address.
type PublicProfile struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	UserType  entity.Role        `json:"userType"`
	AvatarURL *string            `json:"avatarUrl,omitempty"`
	Profile   entity.RoleProfile `json:"profile"`
	CreatedAt time.Time          `json:"createdAt"`
}

// UpdateProfileRequest carries both role shapes. Fields that do not belong to
// the caller's role are rejected by the service.
type UpdateProfileRequest struct {
	Name         *string   `json:"name" binding:"omitempty,min=2,max=100"`
	Bio          *string   `json:"bio" binding:"omitempty,max=1000"`
	Location     *string   `json:"location" binding:"omitempty,max=100"`
	Skills       *[]string `json:"skills" binding:"omitempty,max=50"`
	HourlyRate   *int      `json:"hourlyRate" binding:"omitempty,min=0"`
	Portfolio    *[]string `json:"portfolio" binding:"omitempty,max=20"`
	Availability *string   `json:"availability" binding:"omitempty,oneof=available busy unavailable"`
	Company      *string   `json:"company" binding:"omitempty,max=100"`
}

type FreelancerSearchQuery struct {
	Skills   string `form:"skills"`
	Location string `form:"location"`
	MinRate  *int   `form:"minRate" binding:"omitempty,min=0"`
	MaxRate  *int   `form:"maxRate" binding:"omitempty,min=0"`
	commonDto.PaginationQuery
}

type FreelancerFilter struct {
	Skills   []string
	Location string
	MinRate  *int
	MaxRate  *int
	Limit    int
	Offset   int
}

type FreelancerListResponse struct {
	Freelancers []PublicProfile          `json:"freelancers"`
	Pagination  commonDto.PaginationMeta `json:"pagination"`
}

func NewUserResponse(u *entity.User) (*UserResponse, error) {
	profile, err := u.DecodeProfile()
	if err != nil {
		return nil, err
	}
	return &UserResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		UserType:  u.Role,
		AvatarURL: u.AvatarURL,
		Profile:   profile,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}, nil
}

func NewPublicProfile(u *entity.User) (*PublicProfile, error) {
	profile, err := u.DecodeProfile()
	if err != nil {
		return nil, err
	}
	return &PublicProfile{
		ID:        u.ID.String(),
		Name:      u.Name,
		UserType:  u.Role,
		AvatarURL: u.AvatarURL,
		Profile:   profile,
		CreatedAt: u.CreatedAt,
	}, nil
}
