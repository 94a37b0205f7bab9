package services

import (
	"testing"

	"prolance_backend/internal/cache"
	"prolance_backend/internal/fanout"
	"prolance_backend/internal/models"
	"prolance_backend/internal/services/dto"
	"prolance_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	projectRepo *fakeProjectRepo
	bidRepo     *fakeBidRepo
	biddingRepo *fakeBiddingRepo
	userRepo    *fakeUserRepo
	store       *fakeNotificationStore

	projects ProjectService
	bids     BidService
	biddings BiddingService
	payments PaymentService

	clientID     string
	agentID      string
	adminID      string
	freelancerID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		projectRepo: newFakeProjectRepo(),
		bidRepo:     newFakeBidRepo(),
		userRepo:    newFakeUserRepo(),
		store:       &fakeNotificationStore{},
	}
	env.biddingRepo = newFakeBiddingRepo(env.bidRepo)

	fanoutSvc := fanout.NewService(env.store, fanout.NoopDispatcher{})

	env.projects = NewProjectService(env.projectRepo, env.bidRepo, env.biddingRepo, env.userRepo, fanoutSvc, cache.NoopCache{})
	env.bids = NewBidService(env.bidRepo, env.projectRepo, env.userRepo, fanoutSvc)
	env.biddings = NewBiddingService(env.biddingRepo, env.bidRepo, env.projectRepo, env.userRepo, fanoutSvc)
	env.payments = NewPaymentService(env.projectRepo, env.userRepo, fanoutSvc)

	env.clientID = env.userRepo.add(models.UserRoleClient)
	env.agentID = env.userRepo.add(models.UserRoleAgent)
	env.adminID = env.userRepo.add(models.UserRoleAdmin)
	env.freelancerID = env.userRepo.add(models.UserRoleFreelancer)

	return env
}

func (env *testEnv) createProject(t *testing.T, budget float64) *models.Project {
	t.Helper()
	project, err := env.projects.CreateProject(env.clientID, &dto.CreateProjectRequest{
		Title:  "Site redesign",
		Budget: budget,
	})
	require.NoError(t, err)
	return project
}

func TestProjectBiddingRound_FullFlow(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, 10000)
	assert.Equal(t, models.ProjectStatusDraft, project.Status)

	project, err := env.projects.PostProject(project.ID, env.clientID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusActive, project.Status)

	bid, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 9000})
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusPending, bid.Status)

	project, err = env.projects.OpenBidding(project.ID, env.adminID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusInBidding, project.Status)

	_, err = env.bids.AcceptBid(bid.ID, env.adminID)
	require.NoError(t, err)

	project, err = env.projects.AwardProject(project.ID, env.adminID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusInProgress, project.Status)
	require.NotNil(t, project.AssignedFreelancerID)
	assert.Equal(t, env.freelancerID, *project.AssignedFreelancerID)

	// the award transition wrote its notifications through the outbox
	var awarded int
	for _, n := range env.projectRepo.outbox {
		if n.Type == fanout.EventProjectAwarded {
			awarded++
		}
	}
	assert.Greater(t, awarded, 0, "award must produce outbox notifications")
}

func TestAwardProject_NoAcceptedBid(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, 10000)

	_, err := env.projects.PostProject(project.ID, env.clientID)
	require.NoError(t, err)
	_, err = env.projects.OpenBidding(project.ID, env.adminID)
	require.NoError(t, err)

	_, err = env.projects.AwardProject(project.ID, env.adminID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAmbiguousAward))
}

func TestAwardProject_TwoAcceptedArbitrations(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, 10000)
	_, err := env.projects.PostProject(project.ID, env.clientID)
	require.NoError(t, err)

	bid, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 9000})
	require.NoError(t, err)

	otherFreelancer := env.userRepo.add(models.UserRoleFreelancer)
	counter, err := env.biddings.SubmitBidding(otherFreelancer, bid.ID, &dto.SubmitBiddingRequest{Amount: 8500})
	require.NoError(t, err)

	_, err = env.projects.OpenBidding(project.ID, env.adminID)
	require.NoError(t, err)

	// force the invariant violation directly in storage
	env.bidRepo.bids[bid.ID].Status = models.BidStatusAccepted
	env.biddingRepo.biddings[counter.ID].Status = models.BidStatusAccepted

	_, err = env.projects.AwardProject(project.ID, env.adminID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAmbiguousAward))
}

func TestProjectTransition_ConcurrentWriteLosesCleanly(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, 10000)

	// another writer bumps the version between read and save
	env.projectRepo.beforeSave = func() {
		env.projectRepo.projects[project.ID].Version++
		env.projectRepo.beforeSave = nil
	}

	_, err := env.projects.PostProject(project.ID, env.clientID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConcurrentModification))

	stored, err := env.projects.GetProject(project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusDraft, stored.Status, "losing write must not apply")
}

func TestHoldAndResume_OnlyFromInProgress(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, 10000)
	_, err := env.projects.PostProject(project.ID, env.clientID)
	require.NoError(t, err)

	// hold from active
	project, err = env.projects.HoldProject(project.ID, env.clientID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusHold, project.Status)

	// resume targets in_progress, which was not the prior status
	_, err = env.projects.ResumeProject(project.ID, env.clientID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))

	project, err = env.projects.CancelProject(project.ID, env.clientID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusCancelled, project.Status)
}

func TestResumeProject_CannotSkipAward(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, 10000)
	_, err := env.projects.PostProject(project.ID, env.clientID)
	require.NoError(t, err)
	_, err = env.projects.OpenBidding(project.ID, env.adminID)
	require.NoError(t, err)

	// no accepted bid exists; resume must not sneak the project into
	// in_progress without a winner
	_, err = env.projects.ResumeProject(project.ID, env.clientID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))

	project, err = env.projects.GetProject(project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusInBidding, project.Status)
	assert.Nil(t, project.AssignedFreelancerID)
}

func TestHoldAndResume_RoundTripFromInProgress(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, 10000)
	_, err := env.projects.PostProject(project.ID, env.clientID)
	require.NoError(t, err)

	bid, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 9000})
	require.NoError(t, err)
	_, err = env.projects.OpenBidding(project.ID, env.adminID)
	require.NoError(t, err)
	_, err = env.bids.AcceptBid(bid.ID, env.adminID)
	require.NoError(t, err)
	_, err = env.projects.AwardProject(project.ID, env.adminID)
	require.NoError(t, err)

	project, err = env.projects.HoldProject(project.ID, env.clientID)
	require.NoError(t, err)
	require.NotNil(t, project.PriorStatus)

	project, err = env.projects.ResumeProject(project.ID, env.clientID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusInProgress, project.Status)
	assert.Nil(t, project.PriorStatus)
}

func TestOpenBidding_ClientIsNotStaff(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, 10000)
	_, err := env.projects.PostProject(project.ID, env.clientID)
	require.NoError(t, err)

	_, err = env.projects.OpenBidding(project.ID, env.clientID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientPermissions))
}

func TestAddMilestone_BudgetInvariant(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, 1000)

	_, err := env.projects.AddMilestone(project.ID, env.clientID, &dto.AddMilestoneRequest{
		Title: "Design", Amount: 600,
	})
	require.NoError(t, err)

	_, err = env.projects.AddMilestone(project.ID, env.clientID, &dto.AddMilestoneRequest{
		Title: "Build", Amount: 600,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrBudgetExceeded))

	project, err = env.projects.GetProject(project.ID)
	require.NoError(t, err)
	assert.Len(t, project.Milestones, 1)
}

func TestCompleteProject_RequiresAllMilestonesDone(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, 10000)

	_, err := env.projects.AddMilestone(project.ID, env.clientID, &dto.AddMilestoneRequest{
		Title: "Design", Amount: 4000,
	})
	require.NoError(t, err)

	// drive the project into in_progress
	_, err = env.projects.PostProject(project.ID, env.clientID)
	require.NoError(t, err)
	bid, err := env.bids.SubmitBid(env.freelancerID, project.ID, &dto.SubmitBidRequest{Amount: 9000})
	require.NoError(t, err)
	_, err = env.projects.OpenBidding(project.ID, env.adminID)
	require.NoError(t, err)
	_, err = env.bids.AcceptBid(bid.ID, env.adminID)
	require.NoError(t, err)
	project, err = env.projects.AwardProject(project.ID, env.adminID)
	require.NoError(t, err)

	_, err = env.projects.CompleteProject(project.ID, env.clientID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))

	milestoneID := project.Milestones[0].ID
	_, err = env.projects.UpdateMilestoneStatus(project.ID, milestoneID, env.clientID, models.MilestoneStatusInProgress)
	require.NoError(t, err)
	_, err = env.projects.UpdateMilestoneStatus(project.ID, milestoneID, env.clientID, models.MilestoneStatusCompleted)
	require.NoError(t, err)

	project, err = env.projects.CompleteProject(project.ID, env.clientID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusCompleted, project.Status)
}

func TestGetProgress(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, 10000)

	for _, title := range []string{"Design", "Build"} {
		_, err := env.projects.AddMilestone(project.ID, env.clientID, &dto.AddMilestoneRequest{
			Title: title, Amount: 4000,
		})
		require.NoError(t, err)
	}

	project, err := env.projects.GetProject(project.ID)
	require.NoError(t, err)
	milestoneID := project.Milestones[0].ID

	_, err = env.projects.UpdateMilestoneStatus(project.ID, milestoneID, env.clientID, models.MilestoneStatusInProgress)
	require.NoError(t, err)
	_, err = env.projects.UpdateMilestoneStatus(project.ID, milestoneID, env.clientID, models.MilestoneStatusCompleted)
	require.NoError(t, err)

	progress, err := env.projects.GetProgress(project.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.TotalMilestones)
	assert.Equal(t, 1, progress.CompletedMilestones)
	assert.Equal(t, 0, progress.PaidMilestones)
	assert.InDelta(t, 50.0, progress.Percentage, 0.01)
}

func TestCreateProject_FreelancerRejected(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.projects.CreateProject(env.freelancerID, &dto.CreateProjectRequest{
		Title: "Nope", Budget: 100,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientPermissions))
}
