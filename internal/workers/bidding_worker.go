package workers

import (
	"context"
	"fmt"
	"time"

	"prolance_backend/internal/fanout"
	"prolance_backend/internal/logger"
	"prolance_backend/internal/repositories"
)

// BiddingWorker nudges the parties of bidding rounds that have sat
// open past the configured interval. It never moves project state
// itself; awarding stays an explicit operation.
type BiddingWorker struct {
	projectRepo repositories.ProjectRepository
	userRepo    repositories.UserRepository
	fanout      *fanout.Service
	interval    time.Duration
}

func NewBiddingWorker(
	projectRepo repositories.ProjectRepository,
	userRepo repositories.UserRepository,
	fanoutSvc *fanout.Service,
	intervalMinutes int,
) *BiddingWorker {
	return &BiddingWorker{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		fanout:      fanoutSvc,
		interval:    time.Duration(intervalMinutes) * time.Minute,
	}
}

func (w *BiddingWorker) Start(ctx context.Context) {
	go w.sweepStaleBidding(ctx)
}

func (w *BiddingWorker) sweepStaleBidding(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("bidding worker stopped")
			return
		case <-ticker.C:
			w.runSweep()
		}
	}
}

func (w *BiddingWorker) runSweep() {
	cutoff := time.Now().Add(-w.interval)
	projects, err := w.projectRepo.FindStaleBidding(cutoff)
	logger.WorkerLog("bidding_worker", "sweep_stale_bidding", err)
	if err != nil {
		return
	}

	for _, p := range projects {
		recipients := []string{p.ClientID}
		if p.AgentID != nil {
			recipients = append(recipients, *p.AgentID)
		}

		event := fanout.Event{
			Type:       fanout.EventProjectStatus,
			ProjectID:  p.ID,
			Recipients: recipients,
			Title:      "Bidding round still open",
			Message:    fmt.Sprintf("Project '%s' has been in bidding since %s without an award", p.Title, p.UpdatedAt.Format("2006-01-02")),
			Data: map[string]any{
				"project_id": p.ID,
				"status":     string(p.Status),
			},
		}
		if err := w.fanout.Emit(event); err != nil {
			logger.WithError(err).Warn("stale bidding reminder failed", "project_id", p.ID)
		}
	}

	if len(projects) > 0 {
		logger.Info("stale bidding reminders sent", "count", len(projects))
	}
}
