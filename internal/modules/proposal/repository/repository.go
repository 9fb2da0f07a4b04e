package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skillbridge.io/marketplace/internal/entity"
)

var (
	ErrDuplicateProposal  = errors.New("duplicate proposal")
	ErrProjectNotOpen     = errors.New("project is not open")
	ErrProposalNotPending = errors.New("proposal is not pending")
	ErrProposalAccepted   = errors.New("proposal is accepted")
)

type ProposalRepository interface {
	// Create inserts a pending proposal while holding a share lock on the
	// project, so it cannot interleave with an accept on the same project.
	Create(ctx context.Context, proposal *entity.Proposal) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error)
	FindByProjectAndFreelancer(ctx context.Context, projectID, freelancerID uuid.UUID) (*entity.Proposal, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*entity.Proposal, error)
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]*entity.Proposal, int64, error)
	Reject(ctx context.Context, id uuid.UUID) error
	// Accept runs the accept cascade and returns the proposals it rejected.
	Accept(ctx context.Context, id uuid.UUID) ([]entity.Proposal, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type proposalRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewProposalRepository(db *gorm.DB) ProposalRepository {
	return &proposalRepository{db: db, now: time.Now}
}

func (r *proposalRepository) Create(ctx context.Context, proposal *entity.Proposal) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project entity.Project
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id", "status").
			Where("id = ?", proposal.ProjectID).
			First(&project).Error; err != nil {
			return err
		}
		if project.Status != entity.ProjectOpen {
			return ErrProjectNotOpen
		}

		return tx.Omit("Project", "Freelancer").Create(proposal).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateProposal
	}
	return err
}

func (r *proposalRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	var proposal entity.Proposal
	if err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("Project.Client").
		Preload("Freelancer").
		Where("id = ?", id).
		First(&proposal).Error; err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (r *proposalRepository) FindByProjectAndFreelancer(ctx context.Context, projectID, freelancerID uuid.UUID) (*entity.Proposal, error) {
	var proposal entity.Proposal
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND freelancer_id = ?", projectID, freelancerID).
		First(&proposal).Error; err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (r *proposalRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*entity.Proposal, error) {
	var proposals []*entity.Proposal
	err := r.db.WithContext(ctx).
		Preload("Freelancer").
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&proposals).Error
	return proposals, err
}

func (r *proposalRepository) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]*entity.Proposal, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Proposal{}).Where("freelancer_id = ?", freelancerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var proposals []*entity.Proposal
	if err := query.
		Preload("Project").
		Preload("Project.Client", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name")
		}).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&proposals).Error; err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (r *proposalRepository) Reject(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&entity.Proposal{}).
		Where("id = ? AND status = ?", id, entity.ProposalPending).
		Updates(map[string]interface{}{
			"status":     entity.ProposalRejected,
			"updated_at": r.now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProposalNotPending
	}
	return nil
}

// Accept locks the project row, re-checks both statuses and then applies the
// three writes in one transaction. Of two concurrent accepts on the same
// project the second sees the project in progress and gets ErrProjectNotOpen.
func (r *proposalRepository) Accept(ctx context.Context, id uuid.UUID) ([]entity.Proposal, error) {
	var rejected []entity.Proposal

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var proposal entity.Proposal
		if err := tx.Select("id", "project_id").Where("id = ?", id).First(&proposal).Error; err != nil {
			return err
		}

		var project entity.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "status").
			Where("id = ?", proposal.ProjectID).
			First(&project).Error; err != nil {
			return err
		}
		if project.Status != entity.ProjectOpen {
			return ErrProjectNotOpen
		}

		now := r.now()

		res := tx.Model(&entity.Proposal{}).
			Where("id = ? AND status = ?", id, entity.ProposalPending).
			Updates(map[string]interface{}{"status": entity.ProposalAccepted, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrProposalNotPending
		}

		if err := tx.Model(&entity.Project{}).
			Where("id = ?", project.ID).
			Updates(map[string]interface{}{"status": entity.ProjectInProgress, "updated_at": now}).Error; err != nil {
			return err
		}

		if err := tx.Select("id", "freelancer_id").
			Where("project_id = ? AND id <> ? AND status = ?", project.ID, id, entity.ProposalPending).
			Find(&rejected).Error; err != nil {
			return err
		}
		if len(rejected) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(rejected))
		for i := range rejected {
			ids[i] = rejected[i].ID
			rejected[i].ProjectID = project.ID
			rejected[i].Status = entity.ProposalRejected
		}
		return tx.Model(&entity.Proposal{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{"status": entity.ProposalRejected, "updated_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// Delete never removes an accepted proposal.
func (r *proposalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status <> ?", id, entity.ProposalAccepted).
		Delete(&entity.Proposal{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.Proposal{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrProposalAccepted
}
