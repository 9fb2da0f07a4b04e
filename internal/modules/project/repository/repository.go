package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skillbridge.io/marketplace/internal/entity"
	"skillbridge.io/marketplace/internal/modules/project/dto"
)

var (
	// ErrProjectInProgress is returned by Delete for a project that is being
	// worked on.
	ErrProjectInProgress = errors.New("project is in progress")
	// ErrProjectHasAcceptedProposal is returned by Delete once a proposal on
	// the project was accepted, whatever the project status is now.
	ErrProjectHasAcceptedProposal = errors.New("project has an accepted proposal")
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

const selectWithProposalCount = "projects.*, (SELECT COUNT(*) FROM proposals WHERE proposals.project_id = projects.id) AS proposal_count"

type ProjectRepository interface {
	// Create inserts the project and bumps the owner's projectsPosted counter
	// in one transaction.
	Create(ctx context.Context, project *entity.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Project, error)
	List(ctx context.Context, filter dto.ListFilter) ([]*entity.Project, int64, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*entity.Project, error)
	// Update applies fields only while the project still has status expected,
	// and reports whether a row changed.
	Update(ctx context.Context, id uuid.UUID, expected entity.ProjectStatus, fields map[string]interface{}) (bool, error)
	// Delete removes the project and its proposals unless the project is in
	// progress or one of its proposals was accepted.
	Delete(ctx context.Context, id uuid.UUID) error
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Client", "Proposals").Create(project).Error; err != nil {
			return err
		}

		return tx.Exec(`
			UPDATE users
			SET profile = jsonb_set(
				COALESCE(profile, '{}'::jsonb),
				'{projectsPosted}',
				to_jsonb(COALESCE((profile->>'projectsPosted')::int, 0) + 1)
			)
			WHERE id = ?`, project.ClientID).Error
	})
}

func (r *projectRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	var project entity.Project
	if err := r.db.WithContext(ctx).
		Select(selectWithProposalCount).
		Preload("Client").
		Where("projects.id = ?", id).
		First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// FindByIDs keeps the order of ids and skips ids that no longer exist.
func (r *projectRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Project, error) {
	if len(ids) == 0 {
		return []*entity.Project{}, nil
	}

	var projects []*entity.Project
	if err := r.db.WithContext(ctx).
		Select(selectWithProposalCount).
		Preload("Client").
		Where("projects.id IN ?", ids).
		Find(&projects).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*entity.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}

	ordered := make([]*entity.Project, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func (r *projectRepository) List(ctx context.Context, filter dto.ListFilter) ([]*entity.Project, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Project{})

	if filter.Status != "" {
		query = query.Where("projects.status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("projects.category = ?", filter.Category)
	}
	if filter.MinBudget != nil {
		query = query.Where("projects.budget >= ?", *filter.MinBudget)
	}
	if filter.MaxBudget != nil {
		query = query.Where("projects.budget <= ?", *filter.MaxBudget)
	}
	if len(filter.Skills) > 0 {
		query = query.Where("projects.skills && ?", pq.Array(filter.Skills))
	}
	if filter.Search != "" {
		pattern := "%" + likeEscaper.Replace(filter.Search) + "%"
		query = query.Where(`(projects.title ILIKE ? ESCAPE '\' OR projects.description ILIKE ? ESCAPE '\')`, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []*entity.Project
	if err := query.
		Select(selectWithProposalCount).
		Preload("Client").
		Order(clause.OrderByColumn{
			Column: clause.Column{Table: "projects", Name: filter.SortColumn},
			Desc:   filter.SortDesc,
		}).
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

func (r *projectRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*entity.Project, error) {
	var projects []*entity.Project
	err := r.db.WithContext(ctx).
		Preload("Proposals", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Proposals.Freelancer", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name")
		}).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepository) Update(ctx context.Context, id uuid.UUID, expected entity.ProjectStatus, fields map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Project{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(fields)
	return res.RowsAffected > 0, res.Error
}

func (r *projectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project entity.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&project).Error; err != nil {
			return err
		}

		if project.Status == entity.ProjectInProgress {
			return ErrProjectInProgress
		}

		var accepted int64
		if err := tx.Model(&entity.Proposal{}).
			Where("project_id = ? AND status = ?", id, entity.ProposalAccepted).
			Count(&accepted).Error; err != nil {
			return err
		}
		if accepted > 0 {
			return ErrProjectHasAcceptedProposal
		}

		if err := tx.Where("project_id = ?", id).Delete(&entity.Proposal{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Project{}, "id = ?", id).Error
	})
}
