package model

import (
	"time"
)

// Notification is an advisory record telling a user a workflow step needs
// attention. Losing one never affects workflow correctness.
type Notification struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	UserID     string     `gorm:"size:64;index" json:"user_id"`
	Type       string     `gorm:"size:32" json:"type"`
	ContractID string     `gorm:"size:36" json:"contract_id"`
	StepID     string     `gorm:"size:36" json:"step_id"`
	Deadline   *time.Time `json:"deadline,omitempty"` // snapshot of the step deadline at dispatch time
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Notification type constants
const (
	NotificationAssigned  = "approval_assigned"
	NotificationDeadline  = "approval_deadline"
	NotificationCompleted = "approval_completed"
)
