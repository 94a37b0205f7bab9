package dto

type SubmitBidRequest struct {
	Amount       float64  `json:"amount" validate:"required,gt=0"`
	TimelineDays int      `json:"timeline_days" validate:"gte=0"`
	Description  string   `json:"description" validate:"max=5000"`
	Attachments  []string `json:"attachments,omitempty"`
}

type SubmitBiddingRequest struct {
	Amount       float64  `json:"amount" validate:"required,gt=0"`
	TimelineDays int      `json:"timeline_days" validate:"gte=0"`
	Description  string   `json:"description" validate:"max=5000"`
	Attachments  []string `json:"attachments,omitempty"`
}

// UpdateBidFlagsRequest toggles the admin curation flags. The flags
// are independent of each other and of the bid status.
type UpdateBidFlagsRequest struct {
	IsShortlisted *bool `json:"is_shortlisted,omitempty"`
	IsAccepted    *bool `json:"is_accepted,omitempty"`
	IsDeclined    *bool `json:"is_declined,omitempty"`
}

type BidStatsResponse struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	Withdrawn int `json:"withdrawn"`
}
