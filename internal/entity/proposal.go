package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
)

// Proposal is a freelancer's bid on a project. A freelancer may hold at most
// one proposal per project (idx_proposals_project_freelancer).
type Proposal struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_proposals_project_freelancer,priority:1" json:"projectId"`
	Project        *Project       `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	FreelancerID   uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_proposals_project_freelancer,priority:2" json:"freelancerId"`
	Freelancer     *User          `gorm:"foreignKey:FreelancerID;constraint:OnDelete:RESTRICT" json:"freelancer,omitempty"`
	CoverLetter    string         `gorm:"type:text;not null" json:"coverLetter"`
	ProposedBudget int64          `gorm:"not null;check:proposed_budget > 0" json:"proposedBudget"`
	Timeline       string         `gorm:"size:100;not null" json:"timeline"`
	Status         ProposalStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (p *Proposal) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID, err = uuid.NewV7()
	}
	return
}
