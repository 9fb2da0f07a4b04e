package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"skillbridge.io/marketplace/internal/entity"
)

const projectsIndex = "projects"

// ProjectIndex keeps a full-text copy of projects.
type ProjectIndex interface {
	IndexProject(ctx context.Context, project *entity.Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
	// SearchProjects returns matching project ids in relevance order and the
	// estimated total.
	SearchProjects(ctx context.Context, query string, status entity.ProjectStatus, limit, offset int) ([]uuid.UUID, int64, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
	log       logrus.FieldLogger
}

func NewMeiliSearchService(client meilisearch.ServiceManager, log logrus.FieldLogger) ProjectIndex {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
		log:       log,
	}
	s.initIndexes()
	return s
}

func (s *meiliSearchService) initIndexes() {
	filterable := []interface{}{"status", "category", "skills", "budget"}
	if _, err := s.client.Index(projectsIndex).UpdateFilterableAttributes(&filterable); err != nil {
		s.log.WithError(err).Warn("failed to update projects filterable attributes")
	}

	sortable := []string{"created_at", "budget", "deadline"}
	if _, err := s.client.Index(projectsIndex).UpdateSortableAttributes(&sortable); err != nil {
		s.log.WithError(err).Warn("failed to update projects sortable attributes")
	}
}

type meiliProjectDoc struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Skills      []string `json:"skills"`
	Budget      int64    `json:"budget"`
	Status      string   `json:"status"`
	Deadline    int64    `json:"deadline"`
	CreatedAt   int64    `json:"created_at"`
	ClientID    string   `json:"client_id"`
}

// cleanText strips markup so the index only holds plain words.
func (s *meiliSearchService) cleanText(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	cleaned := html.UnescapeString(s.sanitizer.Sanitize(content))
	return strings.Join(strings.Fields(cleaned), " ")
}

func (s *meiliSearchService) IndexProject(_ context.Context, project *entity.Project) error {
	doc := meiliProjectDoc{
		ID:          project.ID.String(),
		Title:       s.cleanText(project.Title),
		Description: s.cleanText(project.Description),
		Category:    project.Category,
		Skills:      []string(project.Skills),
		Budget:      project.Budget,
		Status:      string(project.Status),
		Deadline:    project.Deadline.Unix(),
		CreatedAt:   project.CreatedAt.Unix(),
		ClientID:    project.ClientID.String(),
	}

	task, err := s.client.Index(projectsIndex).AddDocuments([]meiliProjectDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"project_id": project.ID, "task_uid": task.TaskUID}).Debug("indexed project")
	return nil
}

func (s *meiliSearchService) DeleteProject(_ context.Context, id uuid.UUID) error {
	_, err := s.client.Index(projectsIndex).DeleteDocument(id.String())
	return err
}

type searchHits struct {
	Hits []struct {
		ID string `json:"id"`
	} `json:"hits"`
	EstimatedTotalHits int64 `json:"estimatedTotalHits"`
}

func (s *meiliSearchService) SearchProjects(_ context.Context, query string, status entity.ProjectStatus, limit, offset int) ([]uuid.UUID, int64, error) {
	req := &meilisearch.SearchRequest{
		Limit:                int64(limit),
		Offset:               int64(offset),
		AttributesToRetrieve: []string{"id"},
	}
	if status != "" {
		req.Filter = fmt.Sprintf("status = %q", string(status))
	}

	raw, err := s.client.Index(projectsIndex).SearchRaw(query, req)
	if err != nil {
		return nil, 0, err
	}

	var result searchHits
	if err := json.Unmarshal(*raw, &result); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, result.EstimatedTotalHits, nil
}

func strPtr(s string) *string {
	return &s
}
