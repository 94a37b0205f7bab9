package workers

import (
	"context"
	"fmt"
	"time"

	"prolance_backend/internal/fanout"
	"prolance_backend/internal/logger"
	"prolance_backend/internal/models"
	"prolance_backend/internal/repositories"
)

// PaymentWorker watches for milestones stuck in processing. Provider
// callbacks normally settle a payment within minutes; anything older
// than the sweep interval gets surfaced to the admins so it can be
// marked paid, failed or cancelled by hand.
type PaymentWorker struct {
	projectRepo repositories.ProjectRepository
	userRepo    repositories.UserRepository
	fanout      *fanout.Service
	interval    time.Duration
}

func NewPaymentWorker(
	projectRepo repositories.ProjectRepository,
	userRepo repositories.UserRepository,
	fanoutSvc *fanout.Service,
	intervalMinutes int,
) *PaymentWorker {
	return &PaymentWorker{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		fanout:      fanoutSvc,
		interval:    time.Duration(intervalMinutes) * time.Minute,
	}
}

func (w *PaymentWorker) Start(ctx context.Context) {
	go w.sweepStuckPayments(ctx)
}

func (w *PaymentWorker) sweepStuckPayments(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("payment worker stopped")
			return
		case <-ticker.C:
			w.runSweep()
		}
	}
}

func (w *PaymentWorker) runSweep() {
	cutoff := time.Now().Add(-w.interval)
	projects, err := w.projectRepo.FindWithPaymentStatus(models.PaymentStatusProcessing, cutoff)
	logger.WorkerLog("payment_worker", "sweep_stuck_payments", err)
	if err != nil {
		return
	}

	admins, err := w.userRepo.FindIDsByRole(models.UserRoleAdmin)
	if err != nil {
		logger.WithError(err).Warn("stuck payment sweep could not resolve admins")
		return
	}
	if len(admins) == 0 {
		return
	}

	stuck := 0
	for _, p := range projects {
		for _, m := range p.Milestones {
			if m.PaymentStatus != models.PaymentStatusProcessing || m.UpdatedAt.After(cutoff) {
				continue
			}
			stuck++

			event := fanout.Event{
				Type:       fanout.EventMilestonePayment,
				ProjectID:  p.ID,
				Recipients: admins,
				Title:      "Payment stuck in processing",
				Message:    fmt.Sprintf("Milestone '%s' on project '%s' has been processing since %s", m.Title, p.Title, m.UpdatedAt.Format(time.RFC3339)),
				Data: map[string]any{
					"project_id":     p.ID,
					"milestone_id":   m.ID,
					"payment_status": string(m.PaymentStatus),
				},
			}
			if err := w.fanout.Emit(event); err != nil {
				logger.WithError(err).Warn("stuck payment alert failed",
					"project_id", p.ID, "milestone_id", m.ID)
			}
		}
	}

	if stuck > 0 {
		logger.Info("stuck payment alerts sent", "count", stuck)
	}
}
