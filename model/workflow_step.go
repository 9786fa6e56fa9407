package model

import (
	"time"
)

// WorkflowStep is one stage instance in a contract's approval pipeline.
// Status only ever moves pending -> approved/rejected/skipped; once terminal
// the row is immutable.
type WorkflowStep struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	ContractID  string     `gorm:"size:36;index" json:"contract_id"`
	StepID      string     `gorm:"size:64" json:"step_id"`
	Status      string     `gorm:"size:16" json:"status"` // pending, approved, rejected, skipped
	Position    int        `json:"position"`
	AssignedTo  *string    `gorm:"size:64" json:"assigned_to,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// WorkflowStep status constants
const (
	StepStatusPending  = "pending"
	StepStatusApproved = "approved"
	StepStatusRejected = "rejected"
	StepStatusSkipped  = "skipped"
)

// IsTerminal reports whether the step has reached a final disposition
func (s *WorkflowStep) IsTerminal() bool {
	return s.Status != StepStatusPending
}
