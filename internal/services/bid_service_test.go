package services

import (
	"errors"
	"testing"

	"prolance_backend/internal/models"
	"prolance_backend/internal/services/dto"
	"prolance_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (env *testEnv) activeProject(t *testing.T) *models.Project {
	t.Helper()
	project := env.createProject(t, 10000)
	project, err := env.projects.PostProject(project.ID, env.clientID)
	require.NoError(t, err)
	return project
}

func TestSubmitBid_OwnProjectRejected(t *testing.T) {
	env := newTestEnv(t)
	project := env.activeProject(t)

	_, err := env.bids.SubmitBid(env.clientID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrOwnProjectBid))
}

func TestSubmitBid_DraftProjectRejected(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, 10000)

	_, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))
}

func TestSubmitBid_DuplicateRejected(t *testing.T) {
	env := newTestEnv(t)
	project := env.activeProject(t)

	_, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.NoError(t, err)

	_, err = env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 400})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrDuplicateBid))
}

func TestBidCommands_SurviveNotificationStoreOutage(t *testing.T) {
	env := newTestEnv(t)
	project := env.activeProject(t)
	env.store.failWith = errors.New("notification store unavailable")

	// the bid write commits on its own; losing the notification row
	// must not roll the command back
	bid, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.NoError(t, err)

	stored, err := env.bids.GetBid(bid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusPending, stored.Status)

	_, err = env.bids.WithdrawBid(bid.ID, env.freelancerID)
	require.NoError(t, err)
	stored, err = env.bids.GetBid(bid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusWithdrawn, stored.Status)

	_, err = env.bids.UndoWithdrawal(bid.ID, env.freelancerID)
	require.NoError(t, err)
	stored, err = env.bids.GetBid(bid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusPending, stored.Status)

	_, err = env.bids.DeclineBid(bid.ID, env.adminID)
	require.NoError(t, err)
	stored, err = env.bids.GetBid(bid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusRejected, stored.Status)
}

func TestSubmitBid_NotifiesStaff(t *testing.T) {
	env := newTestEnv(t)
	project := env.activeProject(t)

	_, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.NoError(t, err)

	recipients := make(map[string]bool)
	for _, n := range env.store.created {
		recipients[n.UserID] = true
	}
	assert.True(t, recipients[env.clientID])
	assert.True(t, recipients[env.adminID])
	assert.False(t, recipients[env.freelancerID], "the bidder does not notify themselves")
}

func TestAcceptBid_SecondAcceptConflicts(t *testing.T) {
	env := newTestEnv(t)
	project := env.activeProject(t)

	other := env.userRepo.add(models.UserRoleFreelancer)
	first, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.NoError(t, err)
	second, err := env.bids.SubmitBid(other, project.ID, &dto.SubmitBidRequest{Amount: 450})
	require.NoError(t, err)

	_, err = env.bids.AcceptBid(first.ID, env.adminID)
	require.NoError(t, err)

	_, err = env.bids.AcceptBid(second.ID, env.adminID)
	require.Error(t, err, "exactly one accept per project may win")
	assert.True(t, apperrors.Is(err, apperrors.ErrBidConflict))

	// sibling stays pending until explicitly declined
	stored, err := env.bids.GetBid(second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusPending, stored.Status)
}

func TestAcceptBid_FreelancerForbidden(t *testing.T) {
	env := newTestEnv(t)
	project := env.activeProject(t)

	bid, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.NoError(t, err)

	_, err = env.bids.AcceptBid(bid.ID, env.freelancerID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientPermissions))
}

func TestDeclineBid_OnlyPending(t *testing.T) {
	env := newTestEnv(t)
	project := env.activeProject(t)

	bid, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.NoError(t, err)

	declined, err := env.bids.DeclineBid(bid.ID, env.adminID)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusRejected, declined.Status)

	_, err = env.bids.DeclineBid(bid.ID, env.adminID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrBidConflict))
}

func TestWithdrawAndUndo_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	project := env.activeProject(t)

	bid, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.NoError(t, err)

	withdrawn, err := env.bids.WithdrawBid(bid.ID, env.freelancerID)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusWithdrawn, withdrawn.Status)

	restored, err := env.bids.UndoWithdrawal(bid.ID, env.freelancerID)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusPending, restored.Status)
	assert.Equal(t, bid.Amount, restored.Amount, "restore keeps the original terms")
}

func TestWithdrawBid_OnlyOwnPending(t *testing.T) {
	env := newTestEnv(t)
	project := env.activeProject(t)

	bid, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.NoError(t, err)

	other := env.userRepo.add(models.UserRoleFreelancer)
	_, err = env.bids.WithdrawBid(bid.ID, other)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientPermissions))

	_, err = env.bids.WithdrawBid(bid.ID, env.freelancerID)
	require.NoError(t, err)

	_, err = env.bids.WithdrawBid(bid.ID, env.freelancerID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrWithdrawNotPending))
}

func TestUndoWithdrawal_RequiresWithdrawnStatus(t *testing.T) {
	env := newTestEnv(t)
	project := env.activeProject(t)

	bid, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.NoError(t, err)

	_, err = env.bids.UndoWithdrawal(bid.ID, env.freelancerID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUndoNotWithdrawn))
}

func TestUndoWithdrawal_DuplicateGuardAtRestore(t *testing.T) {
	env := newTestEnv(t)
	project := env.activeProject(t)

	first, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.NoError(t, err)
	_, err = env.bids.WithdrawBid(first.ID, env.freelancerID)
	require.NoError(t, err)

	// a replacement bid fills the slot while the first is withdrawn
	_, err = env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 450})
	require.NoError(t, err)

	_, err = env.bids.UndoWithdrawal(first.ID, env.freelancerID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrDuplicateBid))
}

func TestUpdateBidFlags_Independent(t *testing.T) {
	env := newTestEnv(t)
	project := env.activeProject(t)

	bid, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.NoError(t, err)

	yes := true
	bid, err = env.bids.UpdateBidFlags(bid.ID, env.adminID, &dto.UpdateBidFlagsRequest{IsShortlisted: &yes})
	require.NoError(t, err)
	assert.True(t, bid.IsShortlisted)
	assert.False(t, bid.IsAccepted)
	assert.Equal(t, models.BidStatusPending, bid.Status, "flags never touch the status machine")

	bid, err = env.bids.UpdateBidFlags(bid.ID, env.adminID, &dto.UpdateBidFlagsRequest{IsDeclined: &yes})
	require.NoError(t, err)
	assert.True(t, bid.IsShortlisted, "earlier flags survive later toggles")
	assert.True(t, bid.IsDeclined)
}

func TestGetBidStats(t *testing.T) {
	env := newTestEnv(t)
	project := env.activeProject(t)

	first, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.NoError(t, err)
	other := env.userRepo.add(models.UserRoleFreelancer)
	_, err = env.bids.SubmitBid(other, project.ID, &dto.SubmitBidRequest{Amount: 450})
	require.NoError(t, err)

	_, err = env.bids.WithdrawBid(first.ID, env.freelancerID)
	require.NoError(t, err)

	stats, err := env.bids.GetBidStats(project.ID, env.adminID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Withdrawn)
}

func TestSubmitBidding_UnderAdminBid(t *testing.T) {
	env := newTestEnv(t)
	project := env.activeProject(t)

	adminBid, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.NoError(t, err)

	other := env.userRepo.add(models.UserRoleFreelancer)
	counter, err := env.biddings.SubmitBidding(other, adminBid.ID, &dto.SubmitBiddingRequest{Amount: 480})
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusPending, counter.Status)

	// duplicate counter-bid for the same (admin bid, freelancer)
	_, err = env.biddings.SubmitBidding(other, adminBid.ID, &dto.SubmitBiddingRequest{Amount: 470})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrDuplicateBid))
}

func TestAcceptBidding_ExclusivePerAdminBid(t *testing.T) {
	env := newTestEnv(t)
	project := env.activeProject(t)

	adminBid, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 500})
	require.NoError(t, err)

	a := env.userRepo.add(models.UserRoleFreelancer)
	b := env.userRepo.add(models.UserRoleFreelancer)
	counterA, err := env.biddings.SubmitBidding(a, adminBid.ID, &dto.SubmitBiddingRequest{Amount: 480})
	require.NoError(t, err)
	counterB, err := env.biddings.SubmitBidding(b, adminBid.ID, &dto.SubmitBiddingRequest{Amount: 470})
	require.NoError(t, err)

	_, err = env.biddings.AcceptBidding(counterA.ID, env.adminID)
	require.NoError(t, err)

	_, err = env.biddings.AcceptBidding(counterB.ID, env.adminID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrBidConflict))
}
