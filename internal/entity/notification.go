package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationProposalSubmitted = "proposal_submitted"
	NotificationProposalAccepted  = "proposal_accepted"
	NotificationProposalRejected  = "proposal_rejected"
	// NotificationWelcome is delivered by email only.
	NotificationWelcome = "welcome"
)

type Notification struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_notifications_user_read,priority:1" json:"userId"` // recipient
	ActorID    uuid.UUID `gorm:"type:uuid;not null" json:"actorId"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null" json:"entityId"`
	EntityType string    `gorm:"size:50;not null" json:"entityType"` // 'project' or 'proposal'
	Type       string    `gorm:"size:50;not null" json:"type"`
	Message    string    `gorm:"type:text" json:"message"`
	IsRead     bool      `gorm:"default:false;index:idx_notifications_user_read,priority:2" json:"isRead"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"createdAt"`

	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}
