// Package fanout broadcasts state transitions to interested parties.
// Every event feeds two independent sinks: durable Notification rows
// for later retrieval, and best-effort real-time delivery through a
// Dispatcher. Real-time failures never fail the command.
package fanout

import (
	"fmt"
	"time"

	"prolance_backend/internal/logger"
	"prolance_backend/internal/metrics"
	"prolance_backend/internal/repositories"
)

// Dispatcher delivers events to connected sessions. Implementations:
// the in-process websocket hub, an optional redis backplane wrapper,
// and a no-op used when real-time is disabled.
type Dispatcher interface {
	Publish(channel string, event any) error
	IsAvailable() bool
}

// NoopDispatcher drops everything. Selected at startup when no
// real-time transport is configured, so callers never branch on
// availability themselves.
type NoopDispatcher struct{}

func (NoopDispatcher) Publish(string, any) error { return nil }
func (NoopDispatcher) IsAvailable() bool         { return false }

// ProjectChannel names the room all watchers of a project share.
func ProjectChannel(projectID string) string {
	return fmt.Sprintf("project-%s", projectID)
}

type Service struct {
	notificationRepo repositories.NotificationRepository
	dispatcher       Dispatcher
}

func NewService(notificationRepo repositories.NotificationRepository, dispatcher Dispatcher) *Service {
	return &Service{
		notificationRepo: notificationRepo,
		dispatcher:       dispatcher,
	}
}

// Emit persists the event's notification records and broadcasts it.
// Used for transitions that do not ride an aggregate write (the
// aggregate path persists records through the outbox instead and then
// calls Broadcast). Persistence failure is returned to the caller;
// transport failure is only logged.
func (s *Service) Emit(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := s.notificationRepo.CreateBulk(event.Records()); err != nil {
		return err
	}

	s.Broadcast(event)
	return nil
}

// Broadcast pushes the event to the project room and to each
// recipient's personal channel. At-least-once per connected session;
// a recipient without a session still has the durable record.
func (s *Service) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if !s.dispatcher.IsAvailable() {
		metrics.FanoutDropped.WithLabelValues(event.Type).Inc()
		logger.Debug("realtime transport unavailable, event persisted only", "type", event.Type)
		return
	}

	if event.ProjectID != "" {
		if err := s.dispatcher.Publish(ProjectChannel(event.ProjectID), event); err != nil {
			metrics.FanoutDropped.WithLabelValues(event.Type).Inc()
			logger.WithError(err).Warn("fanout to project room failed",
				"type", event.Type, "project_id", event.ProjectID)
		}
	}

	for _, userID := range event.Recipients {
		if err := s.dispatcher.Publish(userID, event); err != nil {
			metrics.FanoutDropped.WithLabelValues(event.Type).Inc()
			logger.WithError(err).Warn("fanout to user failed",
				"type", event.Type, "user_id", userID)
		}
	}

	metrics.FanoutEvents.WithLabelValues(event.Type).Inc()
}

// EmitAfterWrite is Emit for transitions whose own write has already
// committed. The state change stands regardless of what happens here:
// a persistence failure is logged, never returned, and the event is
// still broadcast so connected sessions see it.
func (s *Service) EmitAfterWrite(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := s.notificationRepo.CreateBulk(event.Records()); err != nil {
		logger.WithError(err).Warn("notification persistence failed after committed write",
			"type", event.Type, "project_id", event.ProjectID)
	}

	s.Broadcast(event)
}
