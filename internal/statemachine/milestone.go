package statemachine

import (
	"time"

	"prolance_backend/internal/models"
	"prolance_backend/pkg/apperrors"
)

var milestoneEdges = map[models.MilestoneStatus][]models.MilestoneStatus{
	models.MilestoneStatusPending: {
		models.MilestoneStatusInProgress,
		models.MilestoneStatusHold,
	},
	models.MilestoneStatusInProgress: {
		models.MilestoneStatusCompleted,
		models.MilestoneStatusHold,
	},
	models.MilestoneStatusHold: {
		models.MilestoneStatusPending,
		models.MilestoneStatusInProgress,
	},
}

// ApplyMilestoneTransition validates and applies a milestone status
// change. Re-completing an already completed milestone is a no-op,
// not an error, and never touches CompletedAt again.
func ApplyMilestoneTransition(m *models.Milestone, to models.MilestoneStatus) error {
	from := m.Status

	if from == models.MilestoneStatusCompleted && to == models.MilestoneStatusCompleted {
		return nil
	}

	legal := false
	for _, next := range milestoneEdges[from] {
		if next == to {
			legal = true
			break
		}
	}
	if !legal {
		return apperrors.InvalidTransition("milestone", string(from), string(to))
	}

	switch {
	case to == models.MilestoneStatusHold:
		prior := from
		m.PriorStatus = &prior

	case from == models.MilestoneStatusHold:
		// resume must return to the pre-hold status
		if m.PriorStatus == nil || *m.PriorStatus != to {
			return apperrors.InvalidTransition("milestone", string(from), string(to))
		}
		m.PriorStatus = nil

	case to == models.MilestoneStatusCompleted:
		now := time.Now()
		m.CompletedAt = &now
	}

	m.Status = to
	return nil
}
