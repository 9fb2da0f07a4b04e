package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"skillbridge.io/marketplace/internal/entity"
	"skillbridge.io/marketplace/internal/metrics"
	notifService "skillbridge.io/marketplace/internal/modules/notification/service"
	"skillbridge.io/marketplace/internal/modules/proposal/dto"
	"skillbridge.io/marketplace/internal/modules/proposal/repository"
	"skillbridge.io/marketplace/pkg/apperror"
	commonDto "skillbridge.io/marketplace/pkg/dto"
	"skillbridge.io/marketplace/pkg/logger"
)

const (
	msgProjectNotOpen  = "project is not accepting proposals"
	msgOwnProject      = "cannot submit a proposal to your own project"
	msgDuplicate       = "you have already submitted a proposal for this project"
	msgNotPending      = "only pending proposals can be updated"
	msgAcceptedDelete  = "accepted proposals cannot be deleted"
	msgProposalMissing = "proposal not found"
	msgProjectMissing  = "project not found"
)

// ProjectFinder is the part of the project store the workflow reads.
type ProjectFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error)
}

type ProposalService interface {
	SubmitProposal(ctx context.Context, freelancerID uuid.UUID, req dto.SubmitProposalRequest) (*dto.ProposalResponse, error)
	UpdateProposalStatus(ctx context.Context, clientID, proposalID uuid.UUID, status entity.ProposalStatus) (*dto.ProposalResponse, error)
	DeleteProposal(ctx context.Context, freelancerID, proposalID uuid.UUID) error
	GetProposal(ctx context.Context, actorID, proposalID uuid.UUID) (*dto.ProposalResponse, error)
	ListProposalsForProject(ctx context.Context, clientID, projectID uuid.UUID) ([]dto.ProjectProposalResponse, error)
	ListProposalsForFreelancer(ctx context.Context, freelancerID uuid.UUID, query commonDto.PaginationQuery) (*dto.FreelancerProposalList, error)
}

type proposalService struct {
	repo     repository.ProposalRepository
	projects ProjectFinder
	notifier notifService.Notifier
	log      logrus.FieldLogger
}

func NewProposalService(repo repository.ProposalRepository, projects ProjectFinder, notifier notifService.Notifier, log logrus.FieldLogger) ProposalService {
	return &proposalService{
		repo:     repo,
		projects: projects,
		notifier: notifier,
		log:      log,
	}
}

func (s *proposalService) SubmitProposal(ctx context.Context, freelancerID uuid.UUID, req dto.SubmitProposalRequest) (*dto.ProposalResponse, error) {
	log := logger.FromContext(ctx, s.log)

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return nil, apperror.InvalidInput("projectId must be a valid id")
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(msgProjectMissing)
		}
		return nil, apperror.Dependency("proposal.submit.find_project", err)
	}
	if project.Status != entity.ProjectOpen {
		return nil, apperror.InvalidState(msgProjectNotOpen)
	}
	if project.ClientID == freelancerID {
		log.WithFields(logrus.Fields{"project_id": projectID, "user_id": freelancerID}).Warn("attempt to propose to own project")
		return nil, apperror.InvalidOperation(msgOwnProject)
	}

	if _, err := s.repo.FindByProjectAndFreelancer(ctx, projectID, freelancerID); err == nil {
		return nil, apperror.Conflict(msgDuplicate)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Dependency("proposal.submit.find_existing", err)
	}

	proposal := &entity.Proposal{
		ProjectID:      projectID,
		FreelancerID:   freelancerID,
		CoverLetter:    strings.TrimSpace(req.CoverLetter),
		ProposedBudget: req.ProposedBudget,
		Timeline:       strings.TrimSpace(req.Timeline),
		Status:         entity.ProposalPending,
	}

	if err := s.repo.Create(ctx, proposal); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateProposal):
			return nil, apperror.Conflict(msgDuplicate)
		case errors.Is(err, repository.ErrProjectNotOpen):
			return nil, apperror.InvalidState(msgProjectNotOpen)
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, apperror.NotFound(msgProjectMissing)
		}
		return nil, apperror.Dependency("proposal.submit.create", err)
	}

	metrics.RecordProposalTransition(string(entity.ProposalPending), 1)
	log.WithFields(logrus.Fields{
		"proposal_id":   proposal.ID,
		"project_id":    projectID,
		"freelancer_id": freelancerID,
	}).Info("proposal submitted")

	created, err := s.repo.FindByID(ctx, proposal.ID)
	if err != nil {
		return nil, apperror.Dependency("proposal.submit.reload", err)
	}

	msg := notifService.Message{
		Type:           entity.NotificationProposalSubmitted,
		RecipientID:    project.ClientID,
		ActorID:        freelancerID,
		EntityID:       created.ID,
		EntityType:     "proposal",
		ProjectTitle:   project.Title,
		ProposedBudget: created.ProposedBudget,
		Timeline:       created.Timeline,
	}
	if created.Freelancer != nil {
		msg.ActorName = created.Freelancer.Name
	}
	s.notifier.Notify(msg)

	return dto.NewProposalResponse(created), nil
}

func (s *proposalService) UpdateProposalStatus(ctx context.Context, clientID, proposalID uuid.UUID, status entity.ProposalStatus) (*dto.ProposalResponse, error) {
	if status != entity.ProposalAccepted && status != entity.ProposalRejected {
		return nil, apperror.InvalidInput("status must be one of: accepted, rejected")
	}

	log := logger.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"proposal_id": proposalID,
		"user_id":     clientID,
	})

	proposal, err := s.find(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Project == nil || proposal.Project.ClientID != clientID {
		log.Warn("unauthorized proposal status update")
		return nil, apperror.Forbidden("you can only update proposals for your own projects")
	}
	if proposal.Status != entity.ProposalPending {
		return nil, apperror.InvalidState(msgNotPending)
	}

	var rejected []entity.Proposal
	if status == entity.ProposalAccepted {
		rejected, err = s.repo.Accept(ctx, proposalID)
	} else {
		err = s.repo.Reject(ctx, proposalID)
	}
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, apperror.NotFound(msgProposalMissing)
		case errors.Is(err, repository.ErrProposalNotPending):
			return nil, apperror.InvalidState(msgNotPending)
		case errors.Is(err, repository.ErrProjectNotOpen):
			return nil, apperror.InvalidState(msgProjectNotOpen)
		}
		return nil, apperror.Dependency("proposal.update_status", err)
	}

	metrics.RecordProposalTransition(string(status), 1)
	if len(rejected) > 0 {
		metrics.RecordProposalTransition(string(entity.ProposalRejected), len(rejected))
	}
	log.WithFields(logrus.Fields{
		"project_id": proposal.ProjectID,
		"status":     status,
		"cascaded":   len(rejected),
	}).Info("proposal status updated")

	updated, err := s.repo.FindByID(ctx, proposalID)
	if err != nil {
		return nil, apperror.Dependency("proposal.update_status.reload", err)
	}

	notifyType := entity.NotificationProposalRejected
	if status == entity.ProposalAccepted {
		notifyType = entity.NotificationProposalAccepted
	}
	s.notifier.Notify(s.decision(notifyType, updated.FreelancerID, clientID, updated.ID, proposal.Project.Title))
	for _, r := range rejected {
		s.notifier.Notify(s.decision(entity.NotificationProposalRejected, r.FreelancerID, clientID, r.ID, proposal.Project.Title))
	}

	return dto.NewProposalResponse(updated), nil
}

func (s *proposalService) decision(kind string, recipient, actor, proposalID uuid.UUID, title string) notifService.Message {
	return notifService.Message{
		Type:         kind,
		RecipientID:  recipient,
		ActorID:      actor,
		EntityID:     proposalID,
		EntityType:   "proposal",
		ProjectTitle: title,
	}
}

func (s *proposalService) DeleteProposal(ctx context.Context, freelancerID, proposalID uuid.UUID) error {
	proposal, err := s.find(ctx, proposalID)
	if err != nil {
		return err
	}
	if proposal.FreelancerID != freelancerID {
		logger.FromContext(ctx, s.log).WithFields(logrus.Fields{
			"proposal_id": proposalID,
			"user_id":     freelancerID,
		}).Warn("unauthorized proposal delete")
		return apperror.Forbidden("you can only delete your own proposals")
	}
	if proposal.Status == entity.ProposalAccepted {
		return apperror.InvalidState(msgAcceptedDelete)
	}

	if err := s.repo.Delete(ctx, proposalID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return apperror.NotFound(msgProposalMissing)
		case errors.Is(err, repository.ErrProposalAccepted):
			return apperror.InvalidState(msgAcceptedDelete)
		}
		return apperror.Dependency("proposal.delete", err)
	}

	logger.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"proposal_id":   proposalID,
		"freelancer_id": freelancerID,
	}).Info("proposal deleted")
	return nil
}

func (s *proposalService) GetProposal(ctx context.Context, actorID, proposalID uuid.UUID) (*dto.ProposalResponse, error) {
	proposal, err := s.find(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	isClient := proposal.Project != nil && proposal.Project.ClientID == actorID
	if proposal.FreelancerID != actorID && !isClient {
		return nil, apperror.Forbidden("you do not have access to this proposal")
	}
	return dto.NewProposalResponse(proposal), nil
}

func (s *proposalService) ListProposalsForProject(ctx context.Context, clientID, projectID uuid.UUID) ([]dto.ProjectProposalResponse, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(msgProjectMissing)
		}
		return nil, apperror.Dependency("proposal.list_for_project.find_project", err)
	}
	if project.ClientID != clientID {
		return nil, apperror.Forbidden("you can only view proposals for your own projects")
	}

	proposals, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, apperror.Dependency("proposal.list_for_project", err)
	}

	out := make([]dto.ProjectProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, dto.NewProjectProposalResponse(p))
	}
	return out, nil
}

func (s *proposalService) ListProposalsForFreelancer(ctx context.Context, freelancerID uuid.UUID, query commonDto.PaginationQuery) (*dto.FreelancerProposalList, error) {
	offset := query.Normalize()

	proposals, total, err := s.repo.ListByFreelancer(ctx, freelancerID, query.Limit, offset)
	if err != nil {
		return nil, apperror.Dependency("proposal.list_for_freelancer", err)
	}

	out := make([]dto.FreelancerProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, dto.NewFreelancerProposalResponse(p))
	}
	return &dto.FreelancerProposalList{
		Proposals:  out,
		Pagination: commonDto.NewPaginationMeta(query.Page, query.Limit, total),
	}, nil
}

func (s *proposalService) find(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	proposal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(msgProposalMissing)
		}
		return nil, apperror.Dependency("proposal.find_by_id", err)
	}
	return proposal, nil
}
