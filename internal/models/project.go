package models

import (
	"time"
)

// Project is the aggregate root for the delivery lifecycle.
// Milestones are embedded: they are persisted and versioned together
// with the parent project and must never be written independently.
type Project struct {
	BaseModel
	ClientID             string        `gorm:"not null;index" json:"client_id"`
	AgentID              *string       `gorm:"index" json:"agent_id,omitempty"`
	AssignedFreelancerID *string       `gorm:"index" json:"assigned_freelancer_id,omitempty"`
	Title                string        `gorm:"not null" json:"title"`
	Description          string        `json:"description"`
	Budget               float64       `json:"budget"`
	Status               ProjectStatus `gorm:"not null;default:'draft'" json:"status"`
	// PriorStatus remembers where the project was before entering hold,
	// so resume can return to in_progress rather than active.
	PriorStatus *ProjectStatus `json:"prior_status,omitempty"`
	Milestones  []Milestone    `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"milestones"`
	// Version is the optimistic-concurrency token. Every aggregate write
	// is conditioned on it being unchanged since the read.
	Version int64 `gorm:"not null;default:0" json:"version"`
}

// Milestone lives inside the Project aggregate. Status and
// PaymentStatus are two independent machines: delivery progress and
// the escrow release pipeline.
type Milestone struct {
	BaseModel
	ProjectID   string     `gorm:"not null;index" json:"project_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Amount      float64    `json:"amount"`

	Status MilestoneStatus `gorm:"not null;default:'pending'" json:"status"`
	// PriorStatus remembers the pre-hold status for resume.
	PriorStatus *MilestoneStatus `json:"prior_status,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`

	PaymentStatus MilestonePaymentStatus `gorm:"not null;default:'not_requested'" json:"payment_status"`
	IsPaid        bool                   `gorm:"default:false" json:"is_paid"`
	PaidAt        *time.Time             `json:"paid_at,omitempty"`
}

// MilestoneByID returns the embedded milestone with the given id.
func (p *Project) MilestoneByID(id string) *Milestone {
	for i := range p.Milestones {
		if p.Milestones[i].ID == id {
			return &p.Milestones[i]
		}
	}
	return nil
}

// AllMilestonesCompleted reports whether every milestone has reached
// the completed status. Projects without milestones count as complete.
func (p *Project) AllMilestonesCompleted() bool {
	for i := range p.Milestones {
		if p.Milestones[i].Status != MilestoneStatusCompleted {
			return false
		}
	}
	return true
}

// Progress returns the completion percentage based on milestone
// status. Payment state deliberately does not factor in.
func (p *Project) Progress() float64 {
	if len(p.Milestones) == 0 {
		return 0
	}
	completed := 0
	for i := range p.Milestones {
		if p.Milestones[i].Status == MilestoneStatusCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(p.Milestones)) * 100
}

// MilestoneTotal returns the sum of all milestone amounts.
func (p *Project) MilestoneTotal() float64 {
	var total float64
	for i := range p.Milestones {
		total += p.Milestones[i].Amount
	}
	return total
}
