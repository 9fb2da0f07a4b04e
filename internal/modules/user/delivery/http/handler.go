package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"skillbridge.io/marketplace/internal/modules/user/dto"
	"skillbridge.io/marketplace/internal/modules/user/service"
	"skillbridge.io/marketplace/pkg/apperror"
	commonDto "skillbridge.io/marketplace/pkg/dto"
	"skillbridge.io/marketplace/pkg/response"
	"skillbridge.io/marketplace/pkg/validator"
)

const maxAvatarSize = 5 << 20

type UserHandler struct {
	authService    service.AuthService
	profileService service.ProfileService
}

func NewUserHandler(authService service.AuthService, profileService service.ProfileService) *UserHandler {
	return &UserHandler{
		authService:    authService,
		profileService: profileService,
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "user registered successfully",
		"token":     resp.Token,
		"tokenType": resp.TokenType,
		"expiresAt": resp.ExpiresAt,
		"user":      resp.User,
	})
}

func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "login successful",
		"token":     resp.Token,
		"tokenType": resp.TokenType,
		"expiresAt": resp.ExpiresAt,
		"user":      resp.User,
	})
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout is an acknowledgement only; tokens are stateless and the client
// discards its copy.
func (h *UserHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logout successful"})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.profileService.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "profile updated successfully", "user": user})
}

func (h *UserHandler) UploadAvatar(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		response.ValidationError(c, "avatar file is required")
		return
	}
	if fileHeader.Size > maxAvatarSize {
		response.ValidationError(c, "avatar must be 5MB or smaller")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, apperror.InvalidInput("could not read avatar file"))
		return
	}
	defer file.Close()

	user, err := h.profileService.UploadAvatar(c.Request.Context(), userID, commonDto.UploadFile{
		Reader:   file,
		FileName: fileHeader.Filename,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "avatar updated successfully", "user": user})
}

func (h *UserHandler) GetPublicProfile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid user id")
		return
	}

	user, err := h.profileService.GetPublicProfile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) SearchFreelancers(c *gin.Context) {
	var query dto.FreelancerSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	result, err := h.profileService.SearchFreelancers(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
