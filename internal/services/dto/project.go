package dto

import "time"

type CreateProjectRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Budget      float64 `json:"budget" validate:"required,gt=0"`
	AgentID     *string `json:"agent_id,omitempty"`
}

type AddMilestoneRequest struct {
	Title       string     `json:"title" validate:"required,min=3,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Amount      float64    `json:"amount" validate:"required,gt=0"`
}

type UpdateMilestoneStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed hold"`
}

type ProgressResponse struct {
	ProjectID           string  `json:"project_id"`
	TotalMilestones     int     `json:"total_milestones"`
	CompletedMilestones int     `json:"completed_milestones"`
	PaidMilestones      int     `json:"paid_milestones"`
	Percentage          float64 `json:"percentage"`
}
