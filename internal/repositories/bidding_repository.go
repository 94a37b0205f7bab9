package repositories

import (
	"errors"

	"prolance_backend/internal/models"
	"prolance_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type BiddingRepository interface {
	Create(bidding *models.Bidding) error
	FindByID(id string) (*models.Bidding, error)
	FindByAdminBid(adminBidID string) ([]models.Bidding, error)
	FindActiveByAdminBidAndFreelancer(adminBidID, freelancerID string) (*models.Bidding, error)
	// FindAcceptedByProject resolves accepted counter-bids through
	// their parent admin bid, so award can count them alongside bids.
	FindAcceptedByProject(projectID string) ([]models.Bidding, error)
	Update(bidding *models.Bidding) error
	AcceptExclusive(bidding *models.Bidding, outbox []*models.Notification) error
	UpdateStatusIf(biddingID string, from, to models.BidStatus) (bool, error)
}

type BiddingRepositoryImpl struct {
	db *gorm.DB
}

func NewBiddingRepository(db *gorm.DB) BiddingRepository {
	return &BiddingRepositoryImpl{db: db}
}

func (r *BiddingRepositoryImpl) Create(bidding *models.Bidding) error {
	return r.db.Create(bidding).Error
}

func (r *BiddingRepositoryImpl) FindByID(id string) (*models.Bidding, error) {
	var bidding models.Bidding
	if err := r.db.First(&bidding, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBiddingNotFound
		}
		return nil, err
	}
	return &bidding, nil
}

func (r *BiddingRepositoryImpl) FindByAdminBid(adminBidID string) ([]models.Bidding, error) {
	var biddings []models.Bidding
	err := r.db.Where("admin_bid_id = ?", adminBidID).
		Order("created_at ASC").
		Find(&biddings).Error
	return biddings, err
}

func (r *BiddingRepositoryImpl) FindActiveByAdminBidAndFreelancer(adminBidID, freelancerID string) (*models.Bidding, error) {
	var bidding models.Bidding
	err := r.db.Where("admin_bid_id = ? AND freelancer_id = ? AND status <> ?",
		adminBidID, freelancerID, models.BidStatusWithdrawn).
		First(&bidding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bidding, nil
}

func (r *BiddingRepositoryImpl) FindAcceptedByProject(projectID string) ([]models.Bidding, error) {
	var biddings []models.Bidding
	err := r.db.
		Joins("JOIN bids ON bids.id = biddings.admin_bid_id").
		Where("bids.project_id = ? AND biddings.status = ?", projectID, models.BidStatusAccepted).
		Find(&biddings).Error
	return biddings, err
}

func (r *BiddingRepositoryImpl) Update(bidding *models.Bidding) error {
	return r.db.Save(bidding).Error
}

func (r *BiddingRepositoryImpl) AcceptExclusive(bidding *models.Bidding, outbox []*models.Notification) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
			UPDATE biddings
			SET status = ?, is_accepted = TRUE, updated_at = NOW()
			WHERE id = ? AND status = ?
			AND NOT EXISTS (
				SELECT 1 FROM biddings other
				WHERE other.admin_bid_id = ? AND other.status = ? AND other.id <> ?
			)
		`, models.BidStatusAccepted, bidding.ID, models.BidStatusPending,
			bidding.AdminBidID, models.BidStatusAccepted, bidding.ID)
		if res.Error != nil {
			return translateAcceptError(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrBidConflict
		}

		bidding.Status = models.BidStatusAccepted
		bidding.IsAccepted = true

		for _, n := range outbox {
			if err := tx.Create(n).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *BiddingRepositoryImpl) UpdateStatusIf(biddingID string, from, to models.BidStatus) (bool, error) {
	res := r.db.Model(&models.Bidding{}).
		Where("id = ? AND status = ?", biddingID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
