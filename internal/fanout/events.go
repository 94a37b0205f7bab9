package fanout

import (
	"encoding/json"
	"time"

	"prolance_backend/internal/models"

	"gorm.io/datatypes"
)

// Event types carried on project rooms and user channels.
const (
	EventProjectStatus    = "project_status"
	EventBidSubmitted     = "bid_submitted"
	EventBidAccepted      = "bid_accepted"
	EventBidDeclined      = "bid_declined"
	EventBidWithdrawn     = "bid_withdrawn"
	EventBiddingSubmitted = "bidding_submitted"
	EventProjectAwarded   = "project_awarded"
	EventMilestoneStatus  = "milestone_status"
	EventMilestonePayment = "milestone_payment"
)

// Event is one state transition to broadcast. Recipients are resolved
// by the emitting service ("all admins", "the project's client", the
// assigned freelancer); fan-out does not compute membership itself.
type Event struct {
	Type       string         `json:"type"`
	ProjectID  string         `json:"project_id,omitempty"`
	ActorID    string         `json:"actor_id,omitempty"`
	Recipients []string       `json:"-"`
	Title      string         `json:"-"`
	Message    string         `json:"-"`
	Data       map[string]any `json:"data,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Records builds the durable notification rows for an event, one per
// recipient. Services pass these into the aggregate write so the
// transition and its notifications commit together.
func (e Event) Records() []*models.Notification {
	var payload datatypes.JSON
	if len(e.Data) > 0 {
		if raw, err := json.Marshal(e.Data); err == nil {
			payload = datatypes.JSON(raw)
		}
	}

	var projectID *string
	if e.ProjectID != "" {
		id := e.ProjectID
		projectID = &id
	}

	records := make([]*models.Notification, 0, len(e.Recipients))
	for _, userID := range e.Recipients {
		records = append(records, &models.Notification{
			UserID:    userID,
			Type:      e.Type,
			Title:     e.Title,
			Message:   e.Message,
			ProjectID: projectID,
			Data:      payload,
		})
	}
	return records
}
