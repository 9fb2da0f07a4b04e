package dto

import (
	"time"

	"skillbridge.io/marketplace/internal/entity"
	commonDto "skillbridge.io/marketplace/pkg/dto"
)

type SubmitProposalRequest struct {
	ProjectID      string `json:"projectId" binding:"required,uuid"`
	CoverLetter    string `json:"coverLetter" binding:"required,min=50,max=5000"`
	ProposedBudget int64  `json:"proposedBudget" binding:"required,gt=0"`
	Timeline       string `json:"timeline" binding:"required,min=3,max=100"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=accepted rejected"`
}

// ProposalResponse is returned by submit, status update and get.
type ProposalResponse struct {
	ID             string                `json:"id"`
	ProjectID      string                `json:"projectId"`
	FreelancerID   string                `json:"freelancerId"`
	CoverLetter    string                `json:"coverLetter"`
	ProposedBudget int64                 `json:"proposedBudget"`
	Timeline       string                `json:"timeline"`
	Status         entity.ProposalStatus `json:"status"`
	ProjectTitle   string                `json:"projectTitle"`
	FreelancerName string                `json:"freelancerName"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

type FreelancerInfo struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	AvatarURL *string            `json:"avatarUrl,omitempty"`
	Profile   entity.RoleProfile `json:"profile,omitempty"`
}

// ProjectProposalResponse is a proposal as seen by the project's client.
type ProjectProposalResponse struct {
	ID             string                `json:"id"`
	CoverLetter    string                `json:"coverLetter"`
	ProposedBudget int64                 `json:"proposedBudget"`
	Timeline       string                `json:"timeline"`
	Status         entity.ProposalStatus `json:"status"`
	Freelancer     FreelancerInfo        `json:"freelancer"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

type ProjectInfo struct {
	ID         string               `json:"id"`
	Title      string               `json:"title"`
	Budget     int64                `json:"budget"`
	Status     entity.ProjectStatus `json:"status"`
	ClientName string               `json:"clientName"`
}

// FreelancerProposalResponse is a proposal as seen by its freelancer.
type FreelancerProposalResponse struct {
	ID             string                `json:"id"`
	CoverLetter    string                `json:"coverLetter"`
	ProposedBudget int64                 `json:"proposedBudget"`
	Timeline       string                `json:"timeline"`
	Status         entity.ProposalStatus `json:"status"`
	Project        ProjectInfo           `json:"project"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

type FreelancerProposalList struct {
	Proposals  []FreelancerProposalResponse `json:"proposals"`
	Pagination commonDto.PaginationMeta     `json:"pagination"`
}

func NewProposalResponse(p *entity.Proposal) *ProposalResponse {
	resp := &ProposalResponse{
		ID:             p.ID.String(),
		ProjectID:      p.ProjectID.String(),
		FreelancerID:   p.FreelancerID.String(),
		CoverLetter:    p.CoverLetter,
		ProposedBudget: p.ProposedBudget,
		Timeline:       p.Timeline,
		Status:         p.Status,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.Project != nil {
		resp.ProjectTitle = p.Project.Title
	}
	if p.Freelancer != nil {
		resp.FreelancerName = p.Freelancer.Name
	}
	return resp
}

func NewProjectProposalResponse(p *entity.Proposal) ProjectProposalResponse {
	resp := ProjectProposalResponse{
		ID:             p.ID.String(),
		CoverLetter:    p.CoverLetter,
		ProposedBudget: p.ProposedBudget,
		Timeline:       p.Timeline,
		Status:         p.Status,
		Freelancer:     FreelancerInfo{ID: p.FreelancerID.String()},
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if f := p.Freelancer; f != nil {
		resp.Freelancer.Name = f.Name
		resp.Freelancer.AvatarURL = f.AvatarURL
		if profile, err := f.DecodeProfile(); err == nil {
			resp.Freelancer.Profile = profile
		}
	}
	return resp
}

func NewFreelancerProposalResponse(p *entity.Proposal) FreelancerProposalResponse {
	resp := FreelancerProposalResponse{
		ID:             p.ID.String(),
		CoverLetter:    p.CoverLetter,
		ProposedBudget: p.ProposedBudget,
		Timeline:       p.Timeline,
		Status:         p.Status,
		Project:        ProjectInfo{ID: p.ProjectID.String()},
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if pr := p.Project; pr != nil {
		resp.Project.Title = pr.Title
		resp.Project.Budget = pr.Budget
		resp.Project.Status = pr.Status
		if pr.Client != nil {
			resp.Project.ClientName = pr.Client.Name
		}
	}
	return resp
}
