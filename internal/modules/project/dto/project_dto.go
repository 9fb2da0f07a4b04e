package dto

import (
	"time"

	"skillbridge.io/marketplace/internal/entity"
	commonDto "skillbridge.io/marketplace/pkg/dto"
)

type CreateProjectRequest struct {
	Title       string   `json:"title" binding:"required,min=5,max=200"`
	Description string   `json:"description" binding:"required,min=20"`
	Budget      int64    `json:"budget" binding:"required,gt=0"`
	Category    string   `json:"category" binding:"required,min=2,max=100"`
	Skills      []string `json:"skills" binding:"required,min=1,max=20"`
	// Deadline accepts RFC 3339 or YYYY-MM-DD.
	Deadline string `json:"deadline" binding:"required"`
}

type UpdateProjectRequest struct {
	Title       *string   `json:"title" binding:"omitempty,min=5,max=200"`
	Description *string   `json:"description" binding:"omitempty,min=20"`
	Budget      *int64    `json:"budget" binding:"omitempty,gt=0"`
	Category    *string   `json:"category" binding:"omitempty,min=2,max=100"`
	Skills      *[]string `json:"skills" binding:"omitempty,min=1,max=20"`
	Deadline    *string   `json:"deadline"`
	Status      *string   `json:"status" binding:"omitempty,oneof=open in_progress completed cancelled"`
}

type ProjectListQuery struct {
	Category  string `form:"category"`
	MinBudget *int64 `form:"minBudget" binding:"omitempty,gte=0"`
	MaxBudget *int64 `form:"maxBudget" binding:"omitempty,gte=0"`
	Skills    string `form:"skills"`
	Search    string `form:"search"`
	Status    string `form:"status"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
	commonDto.PaginationQuery
}

type SearchQuery struct {
	Q string `form:"q" binding:"required,min=1,max=200"`
	commonDto.PaginationQuery
}

// ListFilter is a validated ProjectListQuery. SortColumn is always one of
// the allow-listed column names.
type ListFilter struct {
	Category   string
	MinBudget  *int64
	MaxBudget  *int64
	Skills     []string
	Search     string
	Status     entity.ProjectStatus
	SortColumn string
	SortDesc   bool
	Limit      int
	Offset     int
}

type ProjectResponse struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Budget        int64                  `json:"budget"`
	Category      string                 `json:"category"`
	Skills        []string               `json:"skills"`
	Deadline      time.Time              `json:"deadline"`
	Status        entity.ProjectStatus   `json:"status"`
	Client        *commonDto.UserSummary `json:"client,omitempty"`
	ProposalCount int64                  `json:"proposalCount"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

type ProjectListResponse struct {
	Projects   []ProjectResponse        `json:"projects"`
	Pagination commonDto.PaginationMeta `json:"pagination"`
}

type ProposalSummary struct {
	ID             string                `json:"id"`
	Status         entity.ProposalStatus `json:"status"`
	FreelancerName string                `json:"freelancerName"`
}

type MyProjectResponse struct {
	ProjectResponse
	Proposals []ProposalSummary `json:"proposals"`
}

func NewProjectResponse(p *entity.Project) ProjectResponse {
	skills := []string(p.Skills)
	if skills == nil {
		skills = []string{}
	}

	resp := ProjectResponse{
		ID:            p.ID.String(),
		Title:         p.Title,
		Description:   p.Description,
		Budget:        p.Budget,
		Category:      p.Category,
		Skills:        skills,
		Deadline:      p.Deadline,
		Status:        p.Status,
		ProposalCount: p.ProposalCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.Client != nil {
		resp.Client = &commonDto.UserSummary{
			ID:        p.Client.ID.String(),
			Name:      p.Client.Name,
			AvatarURL: p.Client.AvatarURL,
		}
	}
	return resp
}

func NewMyProjectResponse(p *entity.Project) MyProjectResponse {
	resp := MyProjectResponse{
		ProjectResponse: NewProjectResponse(p),
		Proposals:       make([]ProposalSummary, 0, len(p.Proposals)),
	}
	resp.ProposalCount = int64(len(p.Proposals))
	for _, pr := range p.Proposals {
		summary := ProposalSummary{ID: pr.ID.String(), Status: pr.Status}
		if pr.Freelancer != nil {
			summary.FreelancerName = pr.Freelancer.Name
		}
		resp.Proposals = append(resp.Proposals, summary)
	}
	return resp
}
