package services

import (
	"encoding/json"
	"fmt"

	"prolance_backend/internal/fanout"
	"prolance_backend/internal/models"
	"prolance_backend/internal/repositories"
	"prolance_backend/internal/services/dto"
	"prolance_backend/pkg/apperrors"

	"gorm.io/datatypes"
)

// BidService arbitrates competing bids on a project: submission,
// curation, acceptance, decline, withdrawal. The exclusivity
// invariant (at most one accepted bid per project) is enforced at the
// storage layer, so concurrent accepts cannot both win.
type BidService interface {
	SubmitBid(bidderID, projectID string, req *dto.SubmitBidRequest) (*models.Bid, error)
	GetBid(bidID string) (*models.Bid, error)
	GetProjectBids(projectID, actorID string) ([]models.Bid, error)
	GetBidStats(projectID, actorID string) (*dto.BidStatsResponse, error)

	AcceptBid(bidID, actorID string) (*models.Project, error)
	DeclineBid(bidID, actorID string) (*models.Bid, error)
	WithdrawBid(bidID, bidderID string) (*models.Bid, error)
	UndoWithdrawal(bidID, bidderID string) (*models.Bid, error)
	UpdateBidFlags(bidID, actorID string, req *dto.UpdateBidFlagsRequest) (*models.Bid, error)
}

type bidService struct {
	bidRepo     repositories.BidRepository
	projectRepo repositories.ProjectRepository
	userRepo    repositories.UserRepository
	fanout      *fanout.Service
}

func NewBidService(
	bidRepo repositories.BidRepository,
	projectRepo repositories.ProjectRepository,
	userRepo repositories.UserRepository,
	fanoutSvc *fanout.Service,
) BidService {
	return &bidService{
		bidRepo:     bidRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		fanout:      fanoutSvc,
	}
}

func (s *bidService) SubmitBid(bidderID, projectID string, req *dto.SubmitBidRequest) (*models.Bid, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID == bidderID {
		return nil, apperrors.ErrOwnProjectBid
	}
	if project.Status != models.ProjectStatusActive && project.Status != models.ProjectStatusInBidding {
		return nil, apperrors.InvalidTransition("bid", string(project.Status), "submitted")
	}

	existing, err := s.bidRepo.FindActiveByProjectAndBidder(projectID, bidderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.ErrDuplicateBid
	}

	bid := &models.Bid{
		ProjectID:    projectID,
		BidderID:     bidderID,
		Amount:       req.Amount,
		TimelineDays: req.TimelineDays,
		Description:  req.Description,
		Status:       models.BidStatusPending,
	}
	if len(req.Attachments) > 0 {
		if raw, err := json.Marshal(req.Attachments); err == nil {
			bid.Attachments = datatypes.JSON(raw)
		}
	}

	if err := s.bidRepo.Create(bid); err != nil {
		return nil, err
	}

	s.fanout.EmitAfterWrite(fanout.Event{
		Type:       fanout.EventBidSubmitted,
		ProjectID:  projectID,
		ActorID:    bidderID,
		Recipients: s.staffParties(project),
		Title:      "New bid received",
		Message:    fmt.Sprintf("A new bid of %.2f was submitted on %q", bid.Amount, project.Title),
		Data:       map[string]any{"bid_id": bid.ID, "amount": bid.Amount},
	})
	return bid, nil
}

func (s *bidService) GetBid(bidID string) (*models.Bid, error) {
	return s.bidRepo.FindByID(bidID)
}

func (s *bidService) GetProjectBids(projectID, actorID string) ([]models.Bid, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeStaff(project, actorID); err != nil {
		return nil, err
	}
	return s.bidRepo.FindByProject(projectID)
}

func (s *bidService) GetBidStats(projectID, actorID string) (*dto.BidStatsResponse, error) {
	bids, err := s.GetProjectBids(projectID, actorID)
	if err != nil {
		return nil, err
	}
	stats := &dto.BidStatsResponse{Total: len(bids)}
	for i := range bids {
		switch bids[i].Status {
		case models.BidStatusPending:
			stats.Pending++
		case models.BidStatusAccepted:
			stats.Accepted++
		case models.BidStatusRejected:
			stats.Rejected++
		case models.BidStatusWithdrawn:
			stats.Withdrawn++
		}
	}
	return stats, nil
}

// AcceptBid marks the bid accepted. Sibling pending bids stay pending
// until explicitly rejected; the storage-level exclusivity guard makes
// a second accept on the same project fail with a conflict.
func (s *bidService) AcceptBid(bidID, actorID string) (*models.Project, error) {
	bid, err := s.bidRepo.FindByID(bidID)
	if err != nil {
		return nil, err
	}
	project, err := s.projectRepo.FindByID(bid.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeStaff(project, actorID); err != nil {
		return nil, err
	}

	event := fanout.Event{
		Type:       fanout.EventBidAccepted,
		ProjectID:  project.ID,
		ActorID:    actorID,
		Recipients: dedupe([]string{bid.BidderID, project.ClientID}),
		Title:      "Bid accepted",
		Message:    fmt.Sprintf("Your bid on %q was accepted", project.Title),
		Data:       map[string]any{"bid_id": bid.ID},
	}

	if err := s.bidRepo.AcceptExclusive(bid, event.Records()); err != nil {
		return nil, err
	}

	s.fanout.Broadcast(event)
	return project, nil
}

func (s *bidService) DeclineBid(bidID, actorID string) (*models.Bid, error) {
	bid, err := s.bidRepo.FindByID(bidID)
	if err != nil {
		return nil, err
	}
	project, err := s.projectRepo.FindByID(bid.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeStaff(project, actorID); err != nil {
		return nil, err
	}

	changed, err := s.bidRepo.UpdateStatusIf(bidID, models.BidStatusPending, models.BidStatusRejected)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperrors.ErrBidConflict.WithDetails(map[string]string{
			"reason": "bid is no longer pending",
		})
	}
	bid.Status = models.BidStatusRejected

	s.fanout.EmitAfterWrite(fanout.Event{
		Type:       fanout.EventBidDeclined,
		ProjectID:  project.ID,
		ActorID:    actorID,
		Recipients: []string{bid.BidderID},
		Title:      "Bid declined",
		Message:    fmt.Sprintf("Your bid on %q was declined", project.Title),
		Data:       map[string]any{"bid_id": bid.ID},
	})
	return bid, nil
}

// WithdrawBid lets the bidder retract their own pending bid.
func (s *bidService) WithdrawBid(bidID, bidderID string) (*models.Bid, error) {
	bid, err := s.bidRepo.FindByID(bidID)
	if err != nil {
		return nil, err
	}
	if bid.BidderID != bidderID {
		return nil, apperrors.ErrInsufficientPermissions
	}

	changed, err := s.bidRepo.UpdateStatusIf(bidID, models.BidStatusPending, models.BidStatusWithdrawn)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperrors.ErrWithdrawNotPending
	}
	bid.Status = models.BidStatusWithdrawn

	s.fanout.EmitAfterWrite(fanout.Event{
		Type:       fanout.EventBidWithdrawn,
		ProjectID:  bid.ProjectID,
		ActorID:    bidderID,
		Recipients: s.projectStaffByID(bid.ProjectID),
		Title:      "Bid withdrawn",
		Message:    "A bid was withdrawn",
		Data:       map[string]any{"bid_id": bid.ID},
	})
	return bid, nil
}

// UndoWithdrawal restores a withdrawn bid to pending with its original
// terms. The duplicate invariant is re-checked at restore time: a new
// bid may have been submitted in the interim.
func (s *bidService) UndoWithdrawal(bidID, bidderID string) (*models.Bid, error) {
	bid, err := s.bidRepo.FindByID(bidID)
	if err != nil {
		return nil, err
	}
	if bid.BidderID != bidderID {
		return nil, apperrors.ErrInsufficientPermissions
	}
	if bid.Status != models.BidStatusWithdrawn {
		return nil, apperrors.ErrUndoNotWithdrawn
	}

	if err := s.bidRepo.RestoreWithdrawn(bid); err != nil {
		return nil, err
	}

	s.fanout.EmitAfterWrite(fanout.Event{
		Type:       fanout.EventBidSubmitted,
		ProjectID:  bid.ProjectID,
		ActorID:    bidderID,
		Recipients: s.projectStaffByID(bid.ProjectID),
		Title:      "Bid restored",
		Message:    "A withdrawn bid was restored",
		Data:       map[string]any{"bid_id": bid.ID},
	})
	return bid, nil
}

// UpdateBidFlags toggles the curation flags. The flags are kept
// independent of each other and of the status field; only a genuine
// accepted status, consumed by the award transition, advances the
// project.
func (s *bidService) UpdateBidFlags(bidID, actorID string, req *dto.UpdateBidFlagsRequest) (*models.Bid, error) {
	bid, err := s.bidRepo.FindByID(bidID)
	if err != nil {
		return nil, err
	}
	project, err := s.projectRepo.FindByID(bid.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeStaff(project, actorID); err != nil {
		return nil, err
	}

	if req.IsShortlisted != nil {
		bid.IsShortlisted = *req.IsShortlisted
	}
	if req.IsAccepted != nil {
		bid.IsAccepted = *req.IsAccepted
	}
	if req.IsDeclined != nil {
		bid.IsDeclined = *req.IsDeclined
	}

	if err := s.bidRepo.Update(bid); err != nil {
		return nil, err
	}
	return bid, nil
}

// --- helpers ---

func (s *bidService) authorizeStaff(project *models.Project, actorID string) error {
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
	if project.ClientID == actorID {
		return nil
	}
	return apperrors.ErrInsufficientPermissions
}

// staffParties: the client, the assigned agent, and admins.
func (s *bidService) staffParties(project *models.Project) []string {
	recipients := []string{project.ClientID}
	if project.AgentID != nil {
		recipients = append(recipients, *project.AgentID)
	}
	if admins, err := s.userRepo.FindIDsByRole(models.UserRoleAdmin); err == nil {
		recipients = append(recipients, admins...)
	}
	return dedupe(recipients)
}

func (s *bidService) projectStaffByID(projectID string) []string {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		return nil
	}
	return s.staffParties(project)
}
