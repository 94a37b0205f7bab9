package statemachine

import (
	"testing"
	"time"

	"prolance_backend/internal/models"
	"prolance_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMilestoneTransition_HappyPath(t *testing.T) {
	m := &models.Milestone{Status: models.MilestoneStatusPending}

	require.NoError(t, ApplyMilestoneTransition(m, models.MilestoneStatusInProgress))
	require.NoError(t, ApplyMilestoneTransition(m, models.MilestoneStatusCompleted))

	assert.Equal(t, models.MilestoneStatusCompleted, m.Status)
	require.NotNil(t, m.CompletedAt)
}

func TestMilestoneRecompleteIsNoop(t *testing.T) {
	completedAt := time.Now().Add(-time.Hour)
	m := &models.Milestone{
		Status:      models.MilestoneStatusCompleted,
		CompletedAt: &completedAt,
	}

	require.NoError(t, ApplyMilestoneTransition(m, models.MilestoneStatusCompleted))
	assert.Equal(t, models.MilestoneStatusCompleted, m.Status)
	assert.Equal(t, completedAt, *m.CompletedAt, "CompletedAt must not move on re-complete")
}

func TestMilestoneIllegalEdges(t *testing.T) {
	cases := []struct {
		from models.MilestoneStatus
		to   models.MilestoneStatus
	}{
		{models.MilestoneStatusPending, models.MilestoneStatusCompleted},
		{models.MilestoneStatusCompleted, models.MilestoneStatusPending},
		{models.MilestoneStatusCompleted, models.MilestoneStatusInProgress},
		{models.MilestoneStatusInProgress, models.MilestoneStatusPending},
	}

	for _, tc := range cases {
		m := &models.Milestone{Status: tc.from}
		err := ApplyMilestoneTransition(m, tc.to)
		require.Error(t, err, "%s -> %s should be illegal", tc.from, tc.to)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))
		assert.Equal(t, tc.from, m.Status)
	}
}

func TestMilestoneHoldResumesToPriorStatus(t *testing.T) {
	m := &models.Milestone{Status: models.MilestoneStatusInProgress}

	require.NoError(t, ApplyMilestoneTransition(m, models.MilestoneStatusHold))
	require.NotNil(t, m.PriorStatus)
	assert.Equal(t, models.MilestoneStatusInProgress, *m.PriorStatus)

	// resuming to a status other than the pre-hold one is rejected
	err := ApplyMilestoneTransition(m, models.MilestoneStatusPending)
	require.Error(t, err)
	assert.Equal(t, models.MilestoneStatusHold, m.Status)

	require.NoError(t, ApplyMilestoneTransition(m, models.MilestoneStatusInProgress))
	assert.Equal(t, models.MilestoneStatusInProgress, m.Status)
	assert.Nil(t, m.PriorStatus)
}
