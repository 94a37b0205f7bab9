package services

import (
	"fmt"

	"prolance_backend/internal/cache"
	"prolance_backend/internal/fanout"
	"prolance_backend/internal/metrics"
	"prolance_backend/internal/models"
	"prolance_backend/internal/repositories"
	"prolance_backend/internal/services/dto"
	"prolance_backend/internal/statemachine"
	"prolance_backend/pkg/apperrors"
)

type ProjectService interface {
	CreateProject(clientID string, req *dto.CreateProjectRequest) (*models.Project, error)
	GetProject(projectID string) (*models.Project, error)
	GetClientProjects(clientID string) ([]models.Project, error)

	// Lifecycle commands. Each validates the transition against the
	// current aggregate state, writes atomically with its notification
	// outbox, then broadcasts.
	PostProject(projectID, actorID string) (*models.Project, error)
	OpenBidding(projectID, actorID string) (*models.Project, error)
	AwardProject(projectID, actorID string) (*models.Project, error)
	CompleteProject(projectID, actorID string) (*models.Project, error)
	HoldProject(projectID, actorID string) (*models.Project, error)
	ResumeProject(projectID, actorID string) (*models.Project, error)
	CancelProject(projectID, actorID string) (*models.Project, error)

	AddMilestone(projectID, actorID string, req *dto.AddMilestoneRequest) (*models.Project, error)
	UpdateMilestoneStatus(projectID, milestoneID, actorID string, status models.MilestoneStatus) (*models.Project, error)
	GetProgress(projectID string) (*dto.ProgressResponse, error)
}

type projectService struct {
	projectRepo repositories.ProjectRepository
	bidRepo     repositories.BidRepository
	biddingRepo repositories.BiddingRepository
	userRepo    repositories.UserRepository
	fanout      *fanout.Service
	cache       cache.Cache
}

func NewProjectService(
	projectRepo repositories.ProjectRepository,
	bidRepo repositories.BidRepository,
	biddingRepo repositories.BiddingRepository,
	userRepo repositories.UserRepository,
	fanoutSvc *fanout.Service,
	cacheBackend cache.Cache,
) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		bidRepo:     bidRepo,
		biddingRepo: biddingRepo,
		userRepo:    userRepo,
		fanout:      fanoutSvc,
		cache:       cacheBackend,
	}
}

func (s *projectService) CreateProject(clientID string, req *dto.CreateProjectRequest) (*models.Project, error) {
	client, err := s.userRepo.FindByID(clientID)
	if err != nil {
		return nil, err
	}
	if client.Role != models.UserRoleClient && client.Role != models.UserRoleAdmin {
		return nil, apperrors.ErrInsufficientPermissions
	}

	project := &models.Project{
		ClientID:    clientID,
		AgentID:     req.AgentID,
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
		Status:      models.ProjectStatusDraft,
	}
	if err := s.projectRepo.Create(project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectService) GetProject(projectID string) (*models.Project, error) {
	return s.projectRepo.FindByID(projectID)
}

func (s *projectService) GetClientProjects(clientID string) ([]models.Project, error) {
	return s.projectRepo.FindByClient(clientID)
}

// --- lifecycle commands ---

func (s *projectService) PostProject(projectID, actorID string) (*models.Project, error) {
	return s.transition(projectID, actorID, models.ProjectStatusActive, false)
}

func (s *projectService) OpenBidding(projectID, actorID string) (*models.Project, error) {
	return s.transition(projectID, actorID, models.ProjectStatusInBidding, true)
}

func (s *projectService) CompleteProject(projectID, actorID string) (*models.Project, error) {
	return s.transition(projectID, actorID, models.ProjectStatusCompleted, false)
}

func (s *projectService) HoldProject(projectID, actorID string) (*models.Project, error) {
	return s.transition(projectID, actorID, models.ProjectStatusHold, false)
}

func (s *projectService) ResumeProject(projectID, actorID string) (*models.Project, error) {
	return s.transition(projectID, actorID, models.ProjectStatusInProgress, false)
}

func (s *projectService) CancelProject(projectID, actorID string) (*models.Project, error) {
	return s.transition(projectID, actorID, models.ProjectStatusCancelled, false)
}

func (s *projectService) transition(projectID, actorID string, to models.ProjectStatus, staffOnly bool) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(project, actorID, staffOnly); err != nil {
		return nil, err
	}

	expected := project.Version
	if err := statemachine.ApplyProjectTransition(project, to); err != nil {
		return nil, err
	}

	event := s.statusEvent(project, actorID)
	if err := s.projectRepo.SaveIfVersion(project, expected, event.Records()); err != nil {
		if apperrors.Is(err, apperrors.ErrConcurrentModification) {
			metrics.TransitionConflicts.WithLabelValues("project").Inc()
		}
		return nil, err
	}

	metrics.Transitions.WithLabelValues("project", string(to)).Inc()
	s.invalidateProgress(project.ID)
	s.fanout.Broadcast(event)
	return project, nil
}

// AwardProject performs the in_bidding -> in_progress transition.
// Requires exactly one accepted Bid or Bidding across the project;
// zero or several is a caller bug surfaced as AMBIGUOUS_AWARD.
func (s *projectService) AwardProject(projectID, actorID string) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(project, actorID, true); err != nil {
		return nil, err
	}

	acceptedBids, err := s.bidRepo.FindAcceptedByProject(projectID)
	if err != nil {
		return nil, err
	}
	acceptedBiddings, err := s.biddingRepo.FindAcceptedByProject(projectID)
	if err != nil {
		return nil, err
	}

	if len(acceptedBids)+len(acceptedBiddings) != 1 {
		return nil, apperrors.ErrAmbiguousAward.WithDetails(map[string]int{
			"accepted_bids":     len(acceptedBids),
			"accepted_biddings": len(acceptedBiddings),
		})
	}

	var freelancerID string
	if len(acceptedBids) == 1 {
		freelancerID = acceptedBids[0].BidderID
	} else {
		freelancerID = acceptedBiddings[0].FreelancerID
	}

	expected := project.Version
	if err := statemachine.ApplyAward(project, freelancerID); err != nil {
		return nil, err
	}

	event := fanout.Event{
		Type:       fanout.EventProjectAwarded,
		ProjectID:  project.ID,
		ActorID:    actorID,
		Recipients: s.projectParties(project),
		Title:      "Project awarded",
		Message:    fmt.Sprintf("Project %q has been awarded and is now in progress", project.Title),
		Data:       map[string]any{"freelancer_id": freelancerID},
	}
	if err := s.projectRepo.SaveIfVersion(project, expected, event.Records()); err != nil {
		if apperrors.Is(err, apperrors.ErrConcurrentModification) {
			metrics.TransitionConflicts.WithLabelValues("project").Inc()
		}
		return nil, err
	}

	metrics.Transitions.WithLabelValues("project", string(models.ProjectStatusInProgress)).Inc()
	s.fanout.Broadcast(event)
	return project, nil
}

// --- milestones ---

func (s *projectService) AddMilestone(projectID, actorID string, req *dto.AddMilestoneRequest) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(project, actorID, false); err != nil {
		return nil, err
	}

	// soft budget invariant, checked at creation only
	if project.MilestoneTotal()+req.Amount > project.Budget {
		return nil, apperrors.ErrBudgetExceeded
	}

	expected := project.Version
	project.Milestones = append(project.Milestones, models.Milestone{
		ProjectID:     projectID,
		Title:         req.Title,
		Description:   req.Description,
		DueDate:       req.DueDate,
		Amount:        req.Amount,
		Status:        models.MilestoneStatusPending,
		PaymentStatus: models.PaymentStatusNotRequested,
	})

	if err := s.projectRepo.SaveIfVersion(project, expected, nil); err != nil {
		return nil, err
	}
	s.invalidateProgress(project.ID)
	return project, nil
}

func (s *projectService) UpdateMilestoneStatus(projectID, milestoneID, actorID string, status models.MilestoneStatus) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(project, actorID, false); err != nil {
		return nil, err
	}

	milestone := project.MilestoneByID(milestoneID)
	if milestone == nil {
		return nil, apperrors.ErrMilestoneNotFound
	}

	expected := project.Version
	if err := statemachine.ApplyMilestoneTransition(milestone, status); err != nil {
		return nil, err
	}

	event := fanout.Event{
		Type:       fanout.EventMilestoneStatus,
		ProjectID:  project.ID,
		ActorID:    actorID,
		Recipients: s.projectParties(project),
		Title:      "Milestone updated",
		Message:    fmt.Sprintf("Milestone %q is now %s", milestone.Title, milestone.Status),
		Data:       map[string]any{"milestone_id": milestone.ID, "status": string(milestone.Status)},
	}
	if err := s.projectRepo.SaveIfVersion(project, expected, event.Records()); err != nil {
		if apperrors.Is(err, apperrors.ErrConcurrentModification) {
			metrics.TransitionConflicts.WithLabelValues("milestone").Inc()
		}
		return nil, err
	}

	metrics.Transitions.WithLabelValues("milestone", string(status)).Inc()
	s.invalidateProgress(project.ID)
	s.fanout.Broadcast(event)
	return project, nil
}

func (s *projectService) GetProgress(projectID string) (*dto.ProgressResponse, error) {
	var cached dto.ProgressResponse
	key := progressCacheKey(projectID)
	if ok, _ := s.cache.GetJSON(key, &cached); ok {
		return &cached, nil
	}

	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		return nil, err
	}

	completed, paid := 0, 0
	for i := range project.Milestones {
		if project.Milestones[i].Status == models.MilestoneStatusCompleted {
			completed++
		}
		if project.Milestones[i].IsPaid {
			paid++
		}
	}

	resp := &dto.ProgressResponse{
		ProjectID:           project.ID,
		TotalMilestones:     len(project.Milestones),
		CompletedMilestones: completed,
		PaidMilestones:      paid,
		Percentage:          project.Progress(),
	}
	_ = s.cache.SetJSON(key, resp, cache.ProgressTTL)
	return resp, nil
}

// --- helpers ---

// authorize allows the owning client, the assigned agent and admins.
// staffOnly restricts to agent/admin (bidding round management).
func (s *projectService) authorize(project *models.Project, actorID string, staffOnly bool) error {
	actor, err := s.userRepo.FindByID(actorID)
	if err != nil {
		return err
	}

	if actor.Role == models.UserRoleAdmin {
		return nil
	}
	if project.AgentID != nil && *project.AgentID == actorID {
		return nil
	}
	if !staffOnly && project.ClientID == actorID {
		return nil
	}
	return apperrors.ErrInsufficientPermissions
}

// projectParties resolves the standard recipient set for a project
// event: the client, the assigned agent and freelancer, plus admins.
func (s *projectService) projectParties(project *models.Project) []string {
	recipients := []string{project.ClientID}
	if project.AgentID != nil {
		recipients = append(recipients, *project.AgentID)
	}
	if project.AssignedFreelancerID != nil {
		recipients = append(recipients, *project.AssignedFreelancerID)
	}
	if admins, err := s.userRepo.FindIDsByRole(models.UserRoleAdmin); err == nil {
		recipients = append(recipients, admins...)
	}
	return dedupe(recipients)
}

func (s *projectService) statusEvent(project *models.Project, actorID string) fanout.Event {
	return fanout.Event{
		Type:       fanout.EventProjectStatus,
		ProjectID:  project.ID,
		ActorID:    actorID,
		Recipients: s.projectParties(project),
		Title:      "Project status changed",
		Message:    fmt.Sprintf("Project %q is now %s", project.Title, project.Status),
		Data:       map[string]any{"status": string(project.Status)},
	}
}

func (s *projectService) invalidateProgress(projectID string) {
	_ = s.cache.Delete(progressCacheKey(projectID))
}

func progressCacheKey(projectID string) string {
	return "project:progress:" + projectID
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
