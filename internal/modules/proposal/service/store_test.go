package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"skillbridge.io/marketplace/internal/entity"
	notifService "skillbridge.io/marketplace/internal/modules/notification/service"
	"skillbridge.io/marketplace/internal/modules/proposal/repository"
)

// memStore is an in-memory ProposalRepository. A single mutex stands in for
// the project row lock, so Accept is atomic just like the SQL version.
type memStore struct {
	mu        sync.Mutex
	clock     time.Time
	users     map[uuid.UUID]*entity.User
	projects  map[uuid.UUID]*entity.Project
	proposals map[uuid.UUID]*entity.Proposal
}

func newMemStore() *memStore {
	return &memStore{
		clock:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		users:     make(map[uuid.UUID]*entity.User),
		projects:  make(map[uuid.UUID]*entity.Project),
		proposals: make(map[uuid.UUID]*entity.Proposal),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) addUser(name string, role entity.Role) *entity.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &entity.User{ID: uuid.New(), Name: name, Email: name + "@example.com", Role: role}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addProject(client *entity.User, title string, status entity.ProjectStatus) *entity.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	p := &entity.Project{
		ID:        uuid.New(),
		ClientID:  client.ID,
		Title:     title,
		Budget:    5000,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.projects[p.ID] = p
	return p
}

// seedProposal stores a proposal directly, bypassing the open-project check.
func (m *memStore) seedProposal(project *entity.Project, freelancer *entity.User, status entity.ProposalStatus) *entity.Proposal {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	p := &entity.Proposal{
		ID:             uuid.New(),
		ProjectID:      project.ID,
		FreelancerID:   freelancer.ID,
		CoverLetter:    "seeded proposal",
		ProposedBudget: 1000,
		Timeline:       "1 week",
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.proposals[p.ID] = p
	return p
}

func (m *memStore) proposalStatus(id uuid.UUID) (entity.ProposalStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return "", false
	}
	return p.Status, true
}

func (m *memStore) projectStatus(id uuid.UUID) entity.ProjectStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projects[id].Status
}

func (m *memStore) countByStatus(projectID uuid.UUID, status entity.ProposalStatus) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.proposals {
		if p.ProjectID == projectID && p.Status == status {
			n++
		}
	}
	return n
}

// view returns a detached copy with its relations attached.
func (m *memStore) view(p *entity.Proposal) *entity.Proposal {
	out := *p
	if project, ok := m.projects[p.ProjectID]; ok {
		pc := *project
		if client, ok := m.users[pc.ClientID]; ok {
			cc := *client
			pc.Client = &cc
		}
		out.Project = &pc
	}
	if f, ok := m.users[p.FreelancerID]; ok {
		fc := *f
		out.Freelancer = &fc
	}
	return &out
}

func (m *memStore) Create(_ context.Context, proposal *entity.Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	project, ok := m.projects[proposal.ProjectID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if project.Status != entity.ProjectOpen {
		return repository.ErrProjectNotOpen
	}
	for _, p := range m.proposals {
		if p.ProjectID == proposal.ProjectID && p.FreelancerID == proposal.FreelancerID {
			return repository.ErrDuplicateProposal
		}
	}

	if proposal.ID == uuid.Nil {
		proposal.ID = uuid.New()
	}
	now := m.tick()
	proposal.CreatedAt = now
	proposal.UpdatedAt = now
	stored := *proposal
	m.proposals[stored.ID] = &stored
	return nil
}

func (m *memStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.view(p), nil
}

func (m *memStore) FindByProjectAndFreelancer(_ context.Context, projectID, freelancerID uuid.UUID) (*entity.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.proposals {
		if p.ProjectID == projectID && p.FreelancerID == freelancerID {
			out := *p
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) newestFirst(match func(*entity.Proposal) bool) []*entity.Proposal {
	var out []*entity.Proposal
	for _, p := range m.proposals {
		if match(p) {
			out = append(out, m.view(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) ListByProject(_ context.Context, projectID uuid.UUID) ([]*entity.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newestFirst(func(p *entity.Proposal) bool { return p.ProjectID == projectID }), nil
}

func (m *memStore) ListByFreelancer(_ context.Context, freelancerID uuid.UUID, limit, offset int) ([]*entity.Proposal, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.newestFirst(func(p *entity.Proposal) bool { return p.FreelancerID == freelancerID })
	total := int64(len(all))
	if offset >= len(all) {
		return []*entity.Proposal{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *memStore) Reject(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok || p.Status != entity.ProposalPending {
		return repository.ErrProposalNotPending
	}
	p.Status = entity.ProposalRejected
	p.UpdatedAt = m.tick()
	return nil
}

func (m *memStore) Accept(_ context.Context, id uuid.UUID) ([]entity.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.proposals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	project := m.projects[p.ProjectID]
	if project.Status != entity.ProjectOpen {
		return nil, repository.ErrProjectNotOpen
	}
	if p.Status != entity.ProposalPending {
		return nil, repository.ErrProposalNotPending
	}

	now := m.tick()
	p.Status = entity.ProposalAccepted
	p.UpdatedAt = now
	project.Status = entity.ProjectInProgress
	project.UpdatedAt = now

	var rejected []entity.Proposal
	for _, other := range m.proposals {
		if other.ProjectID == project.ID && other.ID != id && other.Status == entity.ProposalPending {
			other.Status = entity.ProposalRejected
			other.UpdatedAt = now
			rejected = append(rejected, entity.Proposal{ID: other.ID, ProjectID: project.ID, FreelancerID: other.FreelancerID, Status: other.Status})
		}
	}
	return rejected, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if p.Status == entity.ProposalAccepted {
		return repository.ErrProposalAccepted
	}
	delete(m.proposals, id)
	return nil
}

// memProjects exposes the project side of memStore as a ProjectFinder.
type memProjects struct{ store *memStore }

func (m memProjects) FindByID(_ context.Context, id uuid.UUID) (*entity.Project, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	p, ok := m.store.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *p
	return &out, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notifService.Message
}

func (r *recordingNotifier) Notify(msg notifService.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingNotifier) sent() []notifService.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifService.Message(nil), r.msgs...)
}
