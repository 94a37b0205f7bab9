package repositories

import (
	"errors"

	"prolance_backend/internal/models"
	"prolance_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type BidRepository interface {
	Create(bid *models.Bid) error
	FindByID(id string) (*models.Bid, error)
	FindByProject(projectID string) ([]models.Bid, error)
	FindAcceptedByProject(projectID string) ([]models.Bid, error)
	// FindActiveByProjectAndBidder returns the non-withdrawn bid for the
	// pair, or nil when none exists.
	FindActiveByProjectAndBidder(projectID, bidderID string) (*models.Bid, error)
	Update(bid *models.Bid) error

	// AcceptExclusive flips the bid to accepted only while it is still
	// pending and no other bid on the project holds accepted. Committed
	// siblings are rejected by the guard inside the UPDATE; concurrent
	// accepts racing on different rows are serialized by the partial
	// unique index on (project_id) WHERE status = 'accepted', and the
	// loser's unique violation comes back as ErrBidConflict.
	AcceptExclusive(bid *models.Bid, outbox []*models.Notification) error

	// UpdateStatusIf performs a conditional status swap and reports
	// whether a row changed.
	UpdateStatusIf(bidID string, from, to models.BidStatus) (bool, error)

	// RestoreWithdrawn re-activates a withdrawn bid unless another
	// active bid for the same (project, bidder) appeared in the
	// meantime. Returns apperrors.ErrDuplicateBid in that case.
	RestoreWithdrawn(bid *models.Bid) error
}

type BidRepositoryImpl struct {
	db *gorm.DB
}

func NewBidRepository(db *gorm.DB) BidRepository {
	return &BidRepositoryImpl{db: db}
}

func (r *BidRepositoryImpl) Create(bid *models.Bid) error {
	return r.db.Create(bid).Error
}

func (r *BidRepositoryImpl) FindByID(id string) (*models.Bid, error) {
	var bid models.Bid
	if err := r.db.First(&bid, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBidNotFound
		}
		return nil, err
	}
	return &bid, nil
}

func (r *BidRepositoryImpl) FindByProject(projectID string) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&bids).Error
	return bids, err
}

func (r *BidRepositoryImpl) FindAcceptedByProject(projectID string) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.Where("project_id = ? AND status = ?", projectID, models.BidStatusAccepted).
		Find(&bids).Error
	return bids, err
}

func (r *BidRepositoryImpl) FindActiveByProjectAndBidder(projectID, bidderID string) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.Where("project_id = ? AND bidder_id = ? AND status <> ?",
		projectID, bidderID, models.BidStatusWithdrawn).
		First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bid, nil
}

func (r *BidRepositoryImpl) Update(bid *models.Bid) error {
	return r.db.Save(bid).Error
}

func (r *BidRepositoryImpl) AcceptExclusive(bid *models.Bid, outbox []*models.Notification) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
			UPDATE bids
			SET status = ?, is_accepted = TRUE, updated_at = NOW()
			WHERE id = ? AND status = ?
			AND NOT EXISTS (
				SELECT 1 FROM bids other
				WHERE other.project_id = ? AND other.status = ? AND other.id <> ?
			)
		`, models.BidStatusAccepted, bid.ID, models.BidStatusPending,
			bid.ProjectID, models.BidStatusAccepted, bid.ID)
		if res.Error != nil {
			return translateAcceptError(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrBidConflict
		}

		bid.Status = models.BidStatusAccepted
		bid.IsAccepted = true

		for _, n := range outbox {
			if err := tx.Create(n).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *BidRepositoryImpl) UpdateStatusIf(bidID string, from, to models.BidStatus) (bool, error) {
	res := r.db.Model(&models.Bid{}).
		Where("id = ? AND status = ?", bidID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *BidRepositoryImpl) RestoreWithdrawn(bid *models.Bid) error {
	res := r.db.Exec(`
		UPDATE bids
		SET status = ?, updated_at = NOW()
		WHERE id = ? AND status = ?
		AND NOT EXISTS (
			SELECT 1 FROM bids other
			WHERE other.project_id = ? AND other.bidder_id = ?
			AND other.id <> ? AND other.status <> ?
		)
	`, models.BidStatusPending, bid.ID, models.BidStatusWithdrawn,
		bid.ProjectID, bid.BidderID, bid.ID, models.BidStatusWithdrawn)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// a competing bid was submitted while this one was withdrawn
		return apperrors.ErrDuplicateBid
	}
	bid.Status = models.BidStatusPending
	return nil
}
