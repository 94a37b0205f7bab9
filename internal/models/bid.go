package models

import (
	"gorm.io/datatypes"
)

// Bid is a freelancer's priced proposal against a project.
// At most one non-withdrawn bid may exist per (project, bidder), and
// at most one bid per project may ever reach the accepted status.
type Bid struct {
	BaseModel
	ProjectID    string         `gorm:"not null;index:idx_bids_project" json:"project_id"`
	BidderID     string         `gorm:"not null;index" json:"bidder_id"`
	Amount       float64        `gorm:"not null" json:"amount"`
	TimelineDays int            `json:"timeline_days"`
	Description  string         `json:"description"`
	Attachments  datatypes.JSON `gorm:"type:jsonb" json:"attachments,omitempty"`

	Status BidStatus `gorm:"not null;default:'pending'" json:"status"`

	// Curation flags used by admins for triage before a final status
	// decision. They never drive the project state machine on their own.
	IsShortlisted bool `gorm:"default:false" json:"is_shortlisted"`
	IsAccepted    bool `gorm:"default:false" json:"is_accepted"`
	IsDeclined    bool `gorm:"default:false" json:"is_declined"`
}

// Bidding is a freelancer counter-bid scoped to an admin-curated Bid
// rather than directly to the project. Same status enum and
// exclusivity rules as Bid.
type Bidding struct {
	BaseModel
	AdminBidID   string         `gorm:"not null;index" json:"admin_bid_id"`
	FreelancerID string         `gorm:"not null;index" json:"freelancer_id"`
	Amount       float64        `gorm:"not null" json:"amount"`
	TimelineDays int            `json:"timeline_days"`
	Description  string         `json:"description"`
	Attachments  datatypes.JSON `gorm:"type:jsonb" json:"attachments,omitempty"`

	Status BidStatus `gorm:"not null;default:'pending'" json:"status"`

	IsShortlisted bool `gorm:"default:false" json:"is_shortlisted"`
	IsAccepted    bool `gorm:"default:false" json:"is_accepted"`
	IsDeclined    bool `gorm:"default:false" json:"is_declined"`
}
