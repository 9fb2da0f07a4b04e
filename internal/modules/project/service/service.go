package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"skillbridge.io/marketplace/internal/entity"
	"skillbridge.io/marketplace/internal/modules/project/dto"
	"skillbridge.io/marketplace/internal/modules/project/repository"
	search "skillbridge.io/marketplace/internal/modules/search/service"
	"skillbridge.io/marketplace/pkg/apperror"
	commonDto "skillbridge.io/marketplace/pkg/dto"
	"skillbridge.io/marketplace/pkg/logger"
)

// sortColumns maps accepted sortBy values to column names. Anything else
// sorts by created_at.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"createdAt":  "created_at",
	"budget":     "budget",
	"deadline":   "deadline",
	"title":      "title",
}

type ProjectService interface {
	CreateProject(ctx context.Context, clientID uuid.UUID, req dto.CreateProjectRequest) (*dto.ProjectResponse, error)
	GetProject(ctx context.Context, id uuid.UUID) (*dto.ProjectResponse, error)
	ListProjects(ctx context.Context, query dto.ProjectListQuery) (*dto.ProjectListResponse, error)
	ListMyProjects(ctx context.Context, clientID uuid.UUID) ([]dto.MyProjectResponse, error)
	SearchProjects(ctx context.Context, query dto.SearchQuery) (*dto.ProjectListResponse, error)
	UpdateProject(ctx context.Context, clientID, id uuid.UUID, req dto.UpdateProjectRequest) (*dto.ProjectResponse, error)
	DeleteProject(ctx context.Context, clientID, id uuid.UUID) error
}

type projectService struct {
	repo  repository.ProjectRepository
	index search.ProjectIndex
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewProjectService builds the service. index may be nil, in which case
// search falls back to the database.
func NewProjectService(repo repository.ProjectRepository, index search.ProjectIndex, log logrus.FieldLogger) ProjectService {
	return &projectService{
		repo:  repo,
		index: index,
		log:   log,
		now:   time.Now,
	}
}

// ParseDeadline accepts RFC 3339 timestamps and plain dates.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, apperror.InvalidInput("deadline must be a valid date")
}

func (s *projectService) validDeadline(raw string) (time.Time, error) {
	deadline, err := ParseDeadline(raw)
	if err != nil {
		return time.Time{}, err
	}
	if !deadline.After(s.now()) {
		return time.Time{}, apperror.InvalidInput("deadline must be in the future")
	}
	return deadline, nil
}

func cleanSkills(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (s *projectService) CreateProject(ctx context.Context, clientID uuid.UUID, req dto.CreateProjectRequest) (*dto.ProjectResponse, error) {
	deadline, err := s.validDeadline(req.Deadline)
	if err != nil {
		return nil, err
	}

	skills := cleanSkills(req.Skills)
	if len(skills) == 0 {
		return nil, apperror.InvalidInput("at least one skill is required")
	}

	project := &entity.Project{
		ClientID:    clientID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Budget:      req.Budget,
		Category:    strings.TrimSpace(req.Category),
		Skills:      pq.StringArray(skills),
		Deadline:    deadline,
		Status:      entity.ProjectOpen,
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, apperror.Dependency("project.create", err)
	}

	logger.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"project_id": project.ID,
		"client_id":  clientID,
	}).Info("project created")

	created, err := s.repo.FindByID(ctx, project.ID)
	if err != nil {
		return nil, apperror.Dependency("project.find_by_id", err)
	}
	s.reindex(ctx, created)

	resp := dto.NewProjectResponse(created)
	return &resp, nil
}

func (s *projectService) GetProject(ctx context.Context, id uuid.UUID) (*dto.ProjectResponse, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := dto.NewProjectResponse(project)
	return &resp, nil
}

func (s *projectService) find(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("project not found")
		}
		return nil, apperror.Dependency("project.find_by_id", err)
	}
	return project, nil
}

// BuildListFilter validates query and resolves sorting against the allow-list.
func BuildListFilter(query dto.ProjectListQuery) (dto.ListFilter, error) {
	offset := query.PaginationQuery.Normalize()

	filter := dto.ListFilter{
		Category:   strings.TrimSpace(query.Category),
		MinBudget:  query.MinBudget,
		MaxBudget:  query.MaxBudget,
		Search:     strings.TrimSpace(query.Search),
		Status:     entity.ProjectOpen,
		SortColumn: "created_at",
		SortDesc:   true,
		Limit:      query.Limit,
		Offset:     offset,
	}

	if query.MinBudget != nil && query.MaxBudget != nil && *query.MinBudget > *query.MaxBudget {
		return filter, apperror.InvalidInput("minBudget must not exceed maxBudget")
	}

	if query.Status != "" {
		status := entity.ProjectStatus(query.Status)
		if !status.Valid() {
			return filter, apperror.InvalidInput("status must be one of: open, in_progress, completed, cancelled")
		}
		filter.Status = status
	}

	if query.Skills != "" {
		filter.Skills = cleanSkills(strings.Split(query.Skills, ","))
	}

	if col, ok := sortColumns[query.SortBy]; ok {
		filter.SortColumn = col
		filter.SortDesc = !strings.EqualFold(query.SortOrder, "asc")
	}

	return filter, nil
}

func (s *projectService) ListProjects(ctx context.Context, query dto.ProjectListQuery) (*dto.ProjectListResponse, error) {
	query.PaginationQuery.Normalize()

	filter, err := BuildListFilter(query)
	if err != nil {
		return nil, err
	}

	projects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Dependency("project.list", err)
	}

	return &dto.ProjectListResponse{
		Projects:   toResponses(projects),
		Pagination: commonDto.NewPaginationMeta(query.Page, query.Limit, total),
	}, nil
}

func (s *projectService) ListMyProjects(ctx context.Context, clientID uuid.UUID) ([]dto.MyProjectResponse, error) {
	projects, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, apperror.Dependency("project.list_by_client", err)
	}

	out := make([]dto.MyProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, dto.NewMyProjectResponse(p))
	}
	return out, nil
}

func (s *projectService) SearchProjects(ctx context.Context, query dto.SearchQuery) (*dto.ProjectListResponse, error) {
	offset := query.PaginationQuery.Normalize()

	if s.index == nil {
		return s.ListProjects(ctx, dto.ProjectListQuery{
			Search:          query.Q,
			PaginationQuery: query.PaginationQuery,
		})
	}

	ids, total, err := s.index.SearchProjects(ctx, query.Q, entity.ProjectOpen, query.Limit, offset)
	if err != nil {
		logger.FromContext(ctx, s.log).WithError(err).Warn("search index unavailable, falling back to database")
		return s.ListProjects(ctx, dto.ProjectListQuery{
			Search:          query.Q,
			PaginationQuery: query.PaginationQuery,
		})
	}

	found, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.Dependency("project.find_by_ids", err)
	}

	// The index may lag behind an accepted proposal.
	projects := make([]*entity.Project, 0, len(found))
	for _, p := range found {
		if p.Status == entity.ProjectOpen {
			projects = append(projects, p)
		}
	}

	return &dto.ProjectListResponse{
		Projects:   toResponses(projects),
		Pagination: commonDto.NewPaginationMeta(query.Page, query.Limit, total),
	}, nil
}

func (s *projectService) UpdateProject(ctx context.Context, clientID, id uuid.UUID, req dto.UpdateProjectRequest) (*dto.ProjectResponse, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.ClientID != clientID {
		return nil, apperror.Forbidden("you can only update your own projects")
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Budget != nil {
		fields["budget"] = *req.Budget
	}
	if req.Category != nil {
		fields["category"] = strings.TrimSpace(*req.Category)
	}
	if req.Skills != nil {
		skills := cleanSkills(*req.Skills)
		if len(skills) == 0 {
			return nil, apperror.InvalidInput("at least one skill is required")
		}
		fields["skills"] = pq.StringArray(skills)
	}
	if req.Deadline != nil {
		deadline, err := s.validDeadline(*req.Deadline)
		if err != nil {
			return nil, err
		}
		fields["deadline"] = deadline
	}
	if req.Status != nil {
		next := entity.ProjectStatus(*req.Status)
		if !project.Status.CanBeSetManually(next) {
			return nil, apperror.InvalidState("project cannot move from " + string(project.Status) + " to " + string(next))
		}
		fields["status"] = next
	}

	if len(fields) == 0 {
		resp := dto.NewProjectResponse(project)
		return &resp, nil
	}
	fields["updated_at"] = s.now()

	updated, err := s.repo.Update(ctx, id, project.Status, fields)
	if err != nil {
		return nil, apperror.Dependency("project.update", err)
	}
	if !updated {
		return nil, apperror.InvalidState("project status changed, reload and try again")
	}

	fresh, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, fresh)

	resp := dto.NewProjectResponse(fresh)
	return &resp, nil
}

func (s *projectService) DeleteProject(ctx context.Context, clientID, id uuid.UUID) error {
	project, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if project.ClientID != clientID {
		return apperror.Forbidden("you can only delete your own projects")
	}
	if project.Status == entity.ProjectInProgress {
		return apperror.InvalidState("projects in progress cannot be deleted")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return apperror.NotFound("project not found")
		case errors.Is(err, repository.ErrProjectInProgress):
			return apperror.InvalidState("projects in progress cannot be deleted")
		case errors.Is(err, repository.ErrProjectHasAcceptedProposal):
			return apperror.InvalidState("projects with an accepted proposal cannot be deleted")
		}
		return apperror.Dependency("project.delete", err)
	}

	logger.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"project_id": id,
		"client_id":  clientID,
	}).Info("project deleted")

	if s.index != nil {
		if err := s.index.DeleteProject(ctx, id); err != nil {
			logger.FromContext(ctx, s.log).WithError(err).WithField("project_id", id).Warn("failed to remove project from search index")
		}
	}
	return nil
}

func (s *projectService) reindex(ctx context.Context, project *entity.Project) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexProject(ctx, project); err != nil {
		logger.FromContext(ctx, s.log).WithError(err).WithField("project_id", project.ID).Warn("failed to index project")
	}
}

func toResponses(projects []*entity.Project) []dto.ProjectResponse {
	out := make([]dto.ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, dto.NewProjectResponse(p))
	}
	return out
}
