package services

import (
	"fmt"

	"prolance_backend/internal/fanout"
	"prolance_backend/internal/metrics"
	"prolance_backend/internal/models"
	"prolance_backend/internal/repositories"
	"prolance_backend/internal/statemachine"
	"prolance_backend/pkg/apperrors"
)

// PaymentService drives a milestone through the escrow release
// pipeline. All writes go through the owning project's aggregate
// update, so concurrent payment commands on the same project
// serialize through the same version check as status changes.
type PaymentService interface {
	// RequestPayment is retry-safe: requesting on an already paid
	// milestone is a no-op returning current state.
	RequestPayment(projectID, milestoneID, actorID string) (*models.Milestone, error)
	MarkPaymentProcessing(projectID, milestoneID, actorID string) (*models.Milestone, error)
	MarkPaymentPaid(projectID, milestoneID, actorID string) (*models.Milestone, error)
	MarkPaymentFailed(projectID, milestoneID, actorID string) (*models.Milestone, error)
	CancelPayment(projectID, milestoneID, actorID string) (*models.Milestone, error)
}

type paymentService struct {
	projectRepo repositories.ProjectRepository
	userRepo    repositories.UserRepository
	fanout      *fanout.Service
}

func NewPaymentService(
	projectRepo repositories.ProjectRepository,
	userRepo repositories.UserRepository,
	fanoutSvc *fanout.Service,
) PaymentService {
	return &paymentService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		fanout:      fanoutSvc,
	}
}

func (s *paymentService) RequestPayment(projectID, milestoneID, actorID string) (*models.Milestone, error) {
	return s.apply(projectID, milestoneID, actorID, func(m *models.Milestone) (bool, error) {
		// the pipeline only starts once delivery is complete
		if m.Status != models.MilestoneStatusCompleted {
			return false, apperrors.ErrMilestoneNotCompleted
		}
		return statemachine.RequestPayment(m)
	})
}

func (s *paymentService) MarkPaymentProcessing(projectID, milestoneID, actorID string) (*models.Milestone, error) {
	return s.apply(projectID, milestoneID, actorID, func(m *models.Milestone) (bool, error) {
		return true, statemachine.MarkPaymentProcessing(m)
	})
}

func (s *paymentService) MarkPaymentPaid(projectID, milestoneID, actorID string) (*models.Milestone, error) {
	return s.apply(projectID, milestoneID, actorID, func(m *models.Milestone) (bool, error) {
		if m.PaymentStatus == models.PaymentStatusPaid {
			return false, nil
		}
		return true, statemachine.MarkPaymentPaid(m)
	})
}

func (s *paymentService) MarkPaymentFailed(projectID, milestoneID, actorID string) (*models.Milestone, error) {
	return s.apply(projectID, milestoneID, actorID, func(m *models.Milestone) (bool, error) {
		return true, statemachine.MarkPaymentFailed(m)
	})
}

func (s *paymentService) CancelPayment(projectID, milestoneID, actorID string) (*models.Milestone, error) {
	return s.apply(projectID, milestoneID, actorID, func(m *models.Milestone) (bool, error) {
		return true, statemachine.CancelPayment(m)
	})
}

// apply loads the aggregate, runs the pipeline step, and persists
// conditionally on the version read. A changed=false result means a
// legal no-op (idempotent retry): current state is returned without a
// write or an event.
func (s *paymentService) apply(projectID, milestoneID, actorID string, step func(*models.Milestone) (bool, error)) (*models.Milestone, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(project, actorID); err != nil {
		return nil, err
	}

	milestone := project.MilestoneByID(milestoneID)
	if milestone == nil {
		return nil, apperrors.ErrMilestoneNotFound
	}

	expected := project.Version
	changed, err := step(milestone)
	if err != nil {
		return nil, err
	}
	if !changed {
		return milestone, nil
	}

	event := fanout.Event{
		Type:       fanout.EventMilestonePayment,
		ProjectID:  project.ID,
		ActorID:    actorID,
		Recipients: s.parties(project),
		Title:      "Milestone payment update",
		Message:    fmt.Sprintf("Payment for milestone %q is now %s", milestone.Title, milestone.PaymentStatus),
		Data: map[string]any{
			"milestone_id":   milestone.ID,
			"payment_status": string(milestone.PaymentStatus),
			"is_paid":        milestone.IsPaid,
		},
	}

	if err := s.projectRepo.SaveIfVersion(project, expected, event.Records()); err != nil {
		if apperrors.Is(err, apperrors.ErrConcurrentModification) {
			metrics.TransitionConflicts.WithLabelValues("milestone_payment").Inc()
		}
		return nil, err
	}

	metrics.Transitions.WithLabelValues("milestone_payment", string(milestone.PaymentStatus)).Inc()
	s.fanout.Broadcast(event)
	return milestone, nil
}

func (s *paymentService) authorize(project *models.Project, actorID string) error {
	actor, err := s.userRepo.FindByID(actorID)
	if err != nil {
		return err
	}
	if actor.Role == models.UserRoleAdmin {
		return nil
	}
	if project.ClientID == actorID {
		return nil
	}
	if project.AgentID != nil && *project.AgentID == actorID {
		return nil
	}
	if project.AssignedFreelancerID != nil && *project.AssignedFreelancerID == actorID {
		return nil
	}
	return apperrors.ErrInsufficientPermissions
}

func (s *paymentService) parties(project *models.Project) []string {
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
