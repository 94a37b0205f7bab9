package services

import (
	"time"

	"prolance_backend/internal/models"
	"prolance_backend/internal/repositories"
	"prolance_backend/pkg/apperrors"

	"github.com/google/uuid"
)

// In-memory repository fakes mirroring the storage-layer invariants:
// version-conditioned aggregate writes, exclusive accepts and the
// duplicate-bid guard. Service tests run against these without a
// database.

type fakeProjectRepo struct {
	projects map[string]*models.Project
	outbox   []*models.Notification

	// beforeSave runs at the start of SaveIfVersion; lets tests
	// interleave a concurrent write between read and save.
	beforeSave func()
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[string]*models.Project)}
}

func copyProject(p *models.Project) *models.Project {
	clone := *p
	clone.Milestones = make([]models.Milestone, len(p.Milestones))
	copy(clone.Milestones, p.Milestones)
	return &clone
}

func (f *fakeProjectRepo) Create(project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	for i := range project.Milestones {
		if project.Milestones[i].ID == "" {
			project.Milestones[i].ID = uuid.NewString()
		}
	}
	f.projects[project.ID] = copyProject(project)
	return nil
}

func (f *fakeProjectRepo) FindByID(id string) (*models.Project, error) {
	stored, ok := f.projects[id]
	if !ok {
		return nil, apperrors.ErrProjectNotFound
	}
	return copyProject(stored), nil
}

func (f *fakeProjectRepo) SaveIfVersion(project *models.Project, expectedVersion int64, outbox []*models.Notification) error {
	if f.beforeSave != nil {
		f.beforeSave()
	}

	stored, ok := f.projects[project.ID]
	if !ok {
		return apperrors.ErrProjectNotFound
	}
	if stored.Version != expectedVersion {
		return apperrors.ErrConcurrentModification
	}

	for i := range project.Milestones {
		if project.Milestones[i].ID == "" {
			project.Milestones[i].ID = uuid.NewString()
		}
	}
	project.Version = expectedVersion + 1
	f.projects[project.ID] = copyProject(project)
	f.outbox = append(f.outbox, outbox...)
	return nil
}

func (f *fakeProjectRepo) FindByClient(clientID string) ([]models.Project, error) {
	var out []models.Project
	for _, p := range f.projects {
		if p.ClientID == clientID {
			out = append(out, *copyProject(p))
		}
	}
	return out, nil
}

func (f *fakeProjectRepo) FindStaleBidding(olderThan time.Time) ([]models.Project, error) {
	var out []models.Project
	for _, p := range f.projects {
		if p.Status == models.ProjectStatusInBidding && p.UpdatedAt.Before(olderThan) {
			out = append(out, *copyProject(p))
		}
	}
	return out, nil
}

func (f *fakeProjectRepo) FindWithPaymentStatus(status models.MilestonePaymentStatus, olderThan time.Time) ([]models.Project, error) {
	var out []models.Project
	for _, p := range f.projects {
		for i := range p.Milestones {
			if p.Milestones[i].PaymentStatus == status && p.Milestones[i].UpdatedAt.Before(olderThan) {
				out = append(out, *copyProject(p))
				break
			}
		}
	}
	return out, nil
}

type fakeBidRepo struct {
	bids   map[string]*models.Bid
	outbox []*models.Notification
}

func newFakeBidRepo() *fakeBidRepo {
	return &fakeBidRepo{bids: make(map[string]*models.Bid)}
}

func (f *fakeBidRepo) Create(bid *models.Bid) error {
	if bid.ID == "" {
		bid.ID = uuid.NewString()
	}
	clone := *bid
	f.bids[bid.ID] = &clone
	return nil
}

func (f *fakeBidRepo) FindByID(id string) (*models.Bid, error) {
	stored, ok := f.bids[id]
	if !ok {
		return nil, apperrors.ErrBidNotFound
	}
	clone := *stored
	return &clone, nil
}

func (f *fakeBidRepo) FindByProject(projectID string) ([]models.Bid, error) {
	var out []models.Bid
	for _, b := range f.bids {
		if b.ProjectID == projectID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBidRepo) FindAcceptedByProject(projectID string) ([]models.Bid, error) {
	var out []models.Bid
	for _, b := range f.bids {
		if b.ProjectID == projectID && b.Status == models.BidStatusAccepted {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBidRepo) FindActiveByProjectAndBidder(projectID, bidderID string) (*models.Bid, error) {
	for _, b := range f.bids {
		if b.ProjectID == projectID && b.BidderID == bidderID && b.Status != models.BidStatusWithdrawn {
			clone := *b
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeBidRepo) Update(bid *models.Bid) error {
	if _, ok := f.bids[bid.ID]; !ok {
		return apperrors.ErrBidNotFound
	}
	clone := *bid
	f.bids[bid.ID] = &clone
	return nil
}

func (f *fakeBidRepo) AcceptExclusive(bid *models.Bid, outbox []*models.Notification) error {
	stored, ok := f.bids[bid.ID]
	if !ok {
		return apperrors.ErrBidNotFound
	}
	if stored.Status != models.BidStatusPending {
		return apperrors.ErrBidConflict
	}
	for _, other := range f.bids {
		if other.ProjectID == stored.ProjectID && other.ID != stored.ID && other.Status == models.BidStatusAccepted {
			return apperrors.ErrBidConflict
		}
	}
	stored.Status = models.BidStatusAccepted
	bid.Status = models.BidStatusAccepted
	f.outbox = append(f.outbox, outbox...)
	return nil
}

func (f *fakeBidRepo) UpdateStatusIf(bidID string, from, to models.BidStatus) (bool, error) {
	stored, ok := f.bids[bidID]
	if !ok {
		return false, apperrors.ErrBidNotFound
	}
	if stored.Status != from {
		return false, nil
	}
	stored.Status = to
	return true, nil
}

func (f *fakeBidRepo) RestoreWithdrawn(bid *models.Bid) error {
	stored, ok := f.bids[bid.ID]
	if !ok {
		return apperrors.ErrBidNotFound
	}
	if stored.Status != models.BidStatusWithdrawn {
		return apperrors.ErrUndoNotWithdrawn
	}
	for _, other := range f.bids {
		if other.ProjectID == stored.ProjectID && other.BidderID == stored.BidderID &&
			other.ID != stored.ID && other.Status != models.BidStatusWithdrawn {
			return apperrors.ErrDuplicateBid
		}
	}
	stored.Status = models.BidStatusPending
	bid.Status = models.BidStatusPending
	return nil
}

type fakeBiddingRepo struct {
	biddings map[string]*models.Bidding
	bids     *fakeBidRepo
	outbox   []*models.Notification
}

func newFakeBiddingRepo(bids *fakeBidRepo) *fakeBiddingRepo {
	return &fakeBiddingRepo{biddings: make(map[string]*models.Bidding), bids: bids}
}

func (f *fakeBiddingRepo) Create(bidding *models.Bidding) error {
	if bidding.ID == "" {
		bidding.ID = uuid.NewString()
	}
	clone := *bidding
	f.biddings[bidding.ID] = &clone
	return nil
}

func (f *fakeBiddingRepo) FindByID(id string) (*models.Bidding, error) {
	stored, ok := f.biddings[id]
	if !ok {
		return nil, apperrors.ErrBiddingNotFound
	}
	clone := *stored
	return &clone, nil
}

func (f *fakeBiddingRepo) FindByAdminBid(adminBidID string) ([]models.Bidding, error) {
	var out []models.Bidding
	for _, b := range f.biddings {
		if b.AdminBidID == adminBidID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBiddingRepo) FindActiveByAdminBidAndFreelancer(adminBidID, freelancerID string) (*models.Bidding, error) {
	for _, b := range f.biddings {
		if b.AdminBidID == adminBidID && b.FreelancerID == freelancerID && b.Status != models.BidStatusWithdrawn {
			clone := *b
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeBiddingRepo) FindAcceptedByProject(projectID string) ([]models.Bidding, error) {
	var out []models.Bidding
	for _, b := range f.biddings {
		if b.Status != models.BidStatusAccepted {
			continue
		}
		parent, ok := f.bids.bids[b.AdminBidID]
		if ok && parent.ProjectID == projectID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBiddingRepo) Update(bidding *models.Bidding) error {
	if _, ok := f.biddings[bidding.ID]; !ok {
		return apperrors.ErrBiddingNotFound
	}
	clone := *bidding
	f.biddings[bidding.ID] = &clone
	return nil
}

func (f *fakeBiddingRepo) AcceptExclusive(bidding *models.Bidding, outbox []*models.Notification) error {
	stored, ok := f.biddings[bidding.ID]
	if !ok {
		return apperrors.ErrBiddingNotFound
	}
	if stored.Status != models.BidStatusPending {
		return apperrors.ErrBidConflict
	}
	for _, other := range f.biddings {
		if other.AdminBidID == stored.AdminBidID && other.ID != stored.ID && other.Status == models.BidStatusAccepted {
			return apperrors.ErrBidConflict
		}
	}
	stored.Status = models.BidStatusAccepted
	bidding.Status = models.BidStatusAccepted
	f.outbox = append(f.outbox, outbox...)
	return nil
}

func (f *fakeBiddingRepo) UpdateStatusIf(biddingID string, from, to models.BidStatus) (bool, error) {
	stored, ok := f.biddings[biddingID]
	if !ok {
		return false, apperrors.ErrBiddingNotFound
	}
	if stored.Status != from {
		return false, nil
	}
	stored.Status = to
	return true, nil
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) add(role models.UserRole) string {
	id := uuid.NewString()
	f.users[id] = &models.User{
		BaseModel: models.BaseModel{ID: id},
		Email:     id + "@example.com",
		Role:      role,
		Status:    models.UserStatusActive,
	}
	return id
}

func (f *fakeUserRepo) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) FindByID(id string) (*models.User, error) {
	stored, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	clone := *stored
	return &clone, nil
}

func (f *fakeUserRepo) FindByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUserRepo) FindIDsByRole(role models.UserRole) ([]string, error) {
	var out []string
	for id, u := range f.users {
		if u.Role == role {
			out = append(out, id)
		}
	}
	return out, nil
}

type fakeNotificationStore struct {
	created  []*models.Notification
	failWith error
}

func (f *fakeNotificationStore) Create(n *models.Notification) error {
	return f.CreateBulk([]*models.Notification{n})
}

func (f *fakeNotificationStore) CreateBulk(notifications []*models.Notification) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.created = append(f.created, notifications...)
	return nil
}

func (f *fakeNotificationStore) FindByID(string) (*models.Notification, error) {
	return nil, apperrors.ErrNotificationNotFound
}

func (f *fakeNotificationStore) FindUserNotifications(userID string, criteria repositories.NotificationCriteria) ([]models.Notification, int64, error) {
	var out []models.Notification
	for _, n := range f.created {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeNotificationStore) MarkAsRead(string) error            { return nil }
func (f *fakeNotificationStore) MarkAllAsRead(string) error         { return nil }
func (f *fakeNotificationStore) Delete(string) error                { return nil }
func (f *fakeNotificationStore) GetUnreadCount(string) (int64, error) { return 0, nil }
func (f *fakeNotificationStore) GetUserStats(string) (*repositories.NotificationStats, error) {
	return &repositories.NotificationStats{}, nil
}
func (f *fakeNotificationStore) CleanOld(int) error { return nil }
