package workflow

import (
	"fmt"
	"time"

	"github.com/dannmaldonado/midiacore/model"
	"github.com/google/uuid"
)

// Action is a transition applied to a pending workflow step
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionSkip    Action = "skip"
)

// ParseAction validates an action string from the caller surface
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionApprove, ActionReject, ActionSkip:
		return Action(s), true
	}
	return "", false
}

// Urgency classifies how close a step is to its deadline. The order is
// meaningful: Overdue > Urgent > Normal > None.
type Urgency int

const (
	UrgencyNone Urgency = iota
	UrgencyNormal
	UrgencyUrgent
	UrgencyOverdue
)

func (u Urgency) String() string {
	switch u {
	case UrgencyNormal:
		return "normal"
	case UrgencyUrgent:
		return "urgent"
	case UrgencyOverdue:
		return "overdue"
	default:
		return "none"
	}
}

// ComputeUrgency classifies a deadline relative to now. This is the single
// shared implementation; notification dispatch and UI badges both go through
// it rather than carrying their own rounding.
func ComputeUrgency(deadline *time.Time, now time.Time) Urgency {
	if deadline == nil {
		return UrgencyNone
	}
	remaining := deadline.Sub(now)
	switch {
	case remaining < 0:
		return UrgencyOverdue
	case remaining < 24*time.Hour:
		return UrgencyUrgent
	default:
		return UrgencyNormal
	}
}

// NewStep builds a single pending step draft from a template entry. The
// deadline is computed once here, at creation time: now + SLA days, or nil
// when the entry has no SLA.
func NewStep(contractID string, entry TemplateEntry, position int, now time.Time) model.WorkflowStep {
	step := model.WorkflowStep{
		ID:         uuid.New().String(),
		ContractID: contractID,
		StepID:     entry.StepID,
		Status:     model.StepStatusPending,
		Position:   position,
		CreatedAt:  now,
	}
	if entry.SLADays != nil {
		deadline := now.AddDate(0, 0, *entry.SLADays)
		step.Deadline = &deadline
	}
	return step
}

// InitiateSteps expands a template into the ordered list of pending step
// drafts for a contract. It does not persist anything; the store owns the
// at-most-once guarantee for the batch insert.
func InitiateSteps(contractID, templateID string, now time.Time) ([]model.WorkflowStep, error) {
	entries, err := Template(templateID)
	if err != nil {
		return nil, err
	}

	steps := make([]model.WorkflowStep, 0, len(entries))
	for i, entry := range entries {
		steps = append(steps, NewStep(contractID, entry, i, now))
	}
	return steps, nil
}

// Transition applies an action to a pending step and returns the updated
// copy. Pure: no I/O, no mutation of the input. Guards:
//   - a terminal step returns ErrNotPending
//   - an actor who is neither admin nor the assignee returns ErrUnauthorized
//
// Notes are recorded on reject (the UI collects the rejection reason there);
// they are accepted but optional for the other actions.
func Transition(step model.WorkflowStep, action Action, actor model.Actor, notes string, now time.Time) (model.WorkflowStep, error) {
	if step.Status != model.StepStatusPending {
		return step, ErrNotPending
	}

	if !actor.IsAdmin() {
		if step.AssignedTo == nil || *step.AssignedTo != actor.Username {
			return step, ErrUnauthorized
		}
	}

	switch action {
	case ActionApprove:
		step.Status = model.StepStatusApproved
	case ActionReject:
		step.Status = model.StepStatusRejected
	case ActionSkip:
		step.Status = model.StepStatusSkipped
	default:
		return step, fmt.Errorf("unknown action %q", action)
	}

	step.CompletedAt = &now
	if notes != "" {
		step.Notes = notes
	}
	return step, nil
}
