package models

import (
	"gorm.io/datatypes"
	"time"
)

type Notification struct {
	BaseModel
	UserID    string         `gorm:"not null;index" json:"user_id"`
	Type      string         `gorm:"not null" json:"type"` // "bid_submitted", "project_status", "milestone_payment"
	Title     string         `gorm:"not null" json:"title"`
	Message   string         `json:"message"`
	ProjectID *string        `gorm:"index" json:"project_id,omitempty"`
	Data      datatypes.JSON `gorm:"type:jsonb" json:"data,omitempty"` // {"bid_id": "...", "milestone_id": "..."}
	IsRead    bool           `gorm:"default:false" json:"is_read"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
}
