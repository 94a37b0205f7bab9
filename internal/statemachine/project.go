// Package statemachine validates and applies lifecycle transitions
// for projects and their embedded milestones. All functions here are
// pure in-memory operations; persistence and fan-out belong to the
// caller.
package statemachine

import (
	"prolance_backend/internal/models"
	"prolance_backend/pkg/apperrors"
)

// projectEdges is the legal transition table. Anything not listed
// fails with INVALID_TRANSITION. The only cycle is the explicit
// hold -> resume edge.
var projectEdges = map[models.ProjectStatus][]models.ProjectStatus{
	models.ProjectStatusDraft: {
		models.ProjectStatusActive,
	},
	models.ProjectStatusActive: {
		models.ProjectStatusInBidding,
		models.ProjectStatusHold,
		models.ProjectStatusCancelled,
	},
	models.ProjectStatusInBidding: {
		models.ProjectStatusInProgress,
		models.ProjectStatusHold,
		models.ProjectStatusCancelled,
	},
	models.ProjectStatusInProgress: {
		models.ProjectStatusCompleted,
		models.ProjectStatusHold,
	},
	models.ProjectStatusHold: {
		models.ProjectStatusInProgress,
		models.ProjectStatusCancelled,
	},
	// completed and cancelled are terminal
}

// CanTransitionProject reports whether the edge exists in the table.
// It does not check edge-specific preconditions (award exclusivity,
// milestone completion, resume memory); ApplyProjectTransition does.
func CanTransitionProject(from, to models.ProjectStatus) bool {
	for _, next := range projectEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ApplyProjectTransition validates and applies a status change on the
// in-memory aggregate. Mutates p only on success.
//
// Edge-specific rules:
//   - hold remembers the prior status; resume (hold -> in_progress) is
//     only legal when the project was in_progress before the hold.
//   - in_progress -> completed requires every milestone completed.
//
// The in_bidding -> in_progress award edge additionally requires
// exactly one accepted bid; that check needs bid data the aggregate
// does not carry, so the arbitration service performs it and then
// calls ApplyAward.
func ApplyProjectTransition(p *models.Project, to models.ProjectStatus) error {
	from := p.Status

	if !CanTransitionProject(from, to) {
		return apperrors.InvalidTransition("project", string(from), string(to))
	}

	switch {
	case from == models.ProjectStatusInBidding && to == models.ProjectStatusInProgress:
		// award edge: only ApplyAward may take it, with a winner in hand
		return apperrors.ErrInvalidTransition.WithDetails(map[string]string{
			"entity": "project",
			"from":   string(from),
			"to":     string(to),
			"reason": "requires an accepted bid",
		})

	case to == models.ProjectStatusHold:
		prior := from
		p.PriorStatus = &prior

	case from == models.ProjectStatusHold && to == models.ProjectStatusInProgress:
		// resume: only valid when the project held from in_progress
		if p.PriorStatus == nil || *p.PriorStatus != models.ProjectStatusInProgress {
			return apperrors.InvalidTransition("project", string(from), string(to))
		}
		p.PriorStatus = nil

	case to == models.ProjectStatusCompleted:
		if !p.AllMilestonesCompleted() {
			return apperrors.ErrInvalidTransition.WithDetails(map[string]string{
				"entity": "project",
				"from":   string(from),
				"to":     string(to),
				"reason": "all milestones must be completed",
			})
		}
	}

	p.Status = to
	return nil
}

// ApplyAward performs the in_bidding -> in_progress transition and
// atomically records the winning freelancer on the aggregate. The
// caller has already verified the exclusivity invariant (exactly one
// accepted bid) and passes the winner's id.
func ApplyAward(p *models.Project, freelancerID string) error {
	if p.Status != models.ProjectStatusInBidding {
		return apperrors.InvalidTransition("project", string(p.Status), string(models.ProjectStatusInProgress))
	}
	p.Status = models.ProjectStatusInProgress
	p.AssignedFreelancerID = &freelancerID
	return nil
}
