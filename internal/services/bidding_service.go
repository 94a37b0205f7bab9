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

// BiddingService manages freelancer counter-bids scoped to an
// admin-curated bid. Same status enum and exclusivity rules as Bid,
// keyed by adminBidId instead of projectId.
type BiddingService interface {
	SubmitBidding(freelancerID, adminBidID string, req *dto.SubmitBiddingRequest) (*models.Bidding, error)
	GetBidding(biddingID string) (*models.Bidding, error)
	GetAdminBidBiddings(adminBidID, actorID string) ([]models.Bidding, error)

	AcceptBidding(biddingID, actorID string) (*models.Bidding, error)
	DeclineBidding(biddingID, actorID string) (*models.Bidding, error)
}

type biddingService struct {
	biddingRepo repositories.BiddingRepository
	bidRepo     repositories.BidRepository
	projectRepo repositories.ProjectRepository
	userRepo    repositories.UserRepository
	fanout      *fanout.Service
}

func NewBiddingService(
	biddingRepo repositories.BiddingRepository,
	bidRepo repositories.BidRepository,
	projectRepo repositories.ProjectRepository,
	userRepo repositories.UserRepository,
	fanoutSvc *fanout.Service,
) BiddingService {
	return &biddingService{
		biddingRepo: biddingRepo,
		bidRepo:     bidRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		fanout:      fanoutSvc,
	}
}

func (s *biddingService) SubmitBidding(freelancerID, adminBidID string, req *dto.SubmitBiddingRequest) (*models.Bidding, error) {
	adminBid, err := s.bidRepo.FindByID(adminBidID)
	if err != nil {
		return nil, err
	}
	if adminBid.Status == models.BidStatusWithdrawn {
		return nil, apperrors.ErrBidNotFound
	}

	project, err := s.projectRepo.FindByID(adminBid.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID == freelancerID {
		return nil, apperrors.ErrOwnProjectBid
	}

	existing, err := s.biddingRepo.FindActiveByAdminBidAndFreelancer(adminBidID, freelancerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.ErrDuplicateBid
	}

	bidding := &models.Bidding{
		AdminBidID:   adminBidID,
		FreelancerID: freelancerID,
		Amount:       req.Amount,
		TimelineDays: req.TimelineDays,
		Description:  req.Description,
		Status:       models.BidStatusPending,
	}
	if len(req.Attachments) > 0 {
		if raw, err := json.Marshal(req.Attachments); err == nil {
			bidding.Attachments = datatypes.JSON(raw)
		}
	}

	if err := s.biddingRepo.Create(bidding); err != nil {
		return nil, err
	}

	recipients := []string{project.ClientID}
	if admins, err := s.userRepo.FindIDsByRole(models.UserRoleAdmin); err == nil {
		recipients = append(recipients, admins...)
	}
	s.fanout.EmitAfterWrite(fanout.Event{
		Type:       fanout.EventBiddingSubmitted,
		ProjectID:  project.ID,
		ActorID:    freelancerID,
		Recipients: dedupe(recipients),
		Title:      "New counter-bid received",
		Message:    fmt.Sprintf("A counter-bid of %.2f was submitted on %q", bidding.Amount, project.Title),
		Data:       map[string]any{"bidding_id": bidding.ID, "admin_bid_id": adminBidID},
	})
	return bidding, nil
}

func (s *biddingService) GetBidding(biddingID string) (*models.Bidding, error) {
	return s.biddingRepo.FindByID(biddingID)
}

func (s *biddingService) GetAdminBidBiddings(adminBidID, actorID string) ([]models.Bidding, error) {
	actor, err := s.userRepo.FindByID(actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.UserRoleAdmin && actor.Role != models.UserRoleAgent {
		return nil, apperrors.ErrInsufficientPermissions
	}
	return s.biddingRepo.FindByAdminBid(adminBidID)
}

func (s *biddingService) AcceptBidding(biddingID, actorID string) (*models.Bidding, error) {
	bidding, err := s.biddingRepo.FindByID(biddingID)
	if err != nil {
		return nil, err
	}
	adminBid, err := s.bidRepo.FindByID(bidding.AdminBidID)
	if err != nil {
		return nil, err
	}
	project, err := s.projectRepo.FindByID(adminBid.ProjectID)
	if err != nil {
		return nil, err
	}

	actor, err := s.userRepo.FindByID(actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.UserRoleAdmin && actor.Role != models.UserRoleAgent {
		return nil, apperrors.ErrInsufficientPermissions
	}

	event := fanout.Event{
		Type:       fanout.EventBidAccepted,
		ProjectID:  project.ID,
		ActorID:    actorID,
		Recipients: dedupe([]string{bidding.FreelancerID, project.ClientID}),
		Title:      "Counter-bid accepted",
		Message:    fmt.Sprintf("Your counter-bid on %q was accepted", project.Title),
		Data:       map[string]any{"bidding_id": bidding.ID},
	}

	if err := s.biddingRepo.AcceptExclusive(bidding, event.Records()); err != nil {
		return nil, err
	}

	s.fanout.Broadcast(event)
	return bidding, nil
}

func (s *biddingService) DeclineBidding(biddingID, actorID string) (*models.Bidding, error) {
	bidding, err := s.biddingRepo.FindByID(biddingID)
	if err != nil {
		return nil, err
	}

	actor, err := s.userRepo.FindByID(actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.UserRoleAdmin && actor.Role != models.UserRoleAgent {
		return nil, apperrors.ErrInsufficientPermissions
	}

	changed, err := s.biddingRepo.UpdateStatusIf(biddingID, models.BidStatusPending, models.BidStatusRejected)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperrors.ErrBidConflict.WithDetails(map[string]string{
			"reason": "bidding is no longer pending",
		})
	}
	bidding.Status = models.BidStatusRejected

	s.fanout.EmitAfterWrite(fanout.Event{
		Type:       fanout.EventBidDeclined,
		ActorID:    actorID,
		Recipients: []string{bidding.FreelancerID},
		Title:      "Counter-bid declined",
		Message:    "Your counter-bid was declined",
		Data:       map[string]any{"bidding_id": bidding.ID},
	})
	return bidding, nil
}
