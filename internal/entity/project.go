package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectOpen       ProjectStatus = "open"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectOpen, ProjectInProgress, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// CanBeSetManually reports whether an owner may move a project from s to next
// through a plain update. in_progress is only reachable by accepting a proposal.
func (s ProjectStatus) CanBeSetManually(next ProjectStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case ProjectOpen:
		return next == ProjectCancelled
	case ProjectInProgress:
		return next == ProjectCompleted || next == ProjectCancelled
	}
	return false
}

type Project struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"clientId"`
	Client      *User          `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT" json:"client,omitempty"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Budget      int64          `gorm:"not null;check:budget > 0" json:"budget"`
	Category    string         `gorm:"size:100;not null;index" json:"category"`
	Skills      pq.StringArray `gorm:"type:text[]" json:"skills"`
	Deadline    time.Time      `gorm:"not null" json:"deadline"`
	Status      ProjectStatus  `gorm:"size:20;not null;default:open;index" json:"status"`
	Proposals   []Proposal     `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"proposals,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`

	// ProposalCount is filled by queries that select it explicitly.
	ProposalCount int64 `gorm:"->;-:migration" json:"proposalCount"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID, err = uuid.NewV7()
	}
	return
}
