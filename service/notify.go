package service

import (
	"context"
	"time"

	"github.com/dannmaldonado/midiacore/model"
	"github.com/dannmaldonado/midiacore/pkg/logger"
	"github.com/dannmaldonado/midiacore/workflow"
	"github.com/google/uuid"
)

// NotificationDispatcher turns workflow state changes into notification rows
// for the affected user. Notifications are advisory: every method here is
// best-effort, logs its failures and never propagates them, so a broken
// dispatch can't roll back or block a workflow mutation.
type NotificationDispatcher struct {
	repo Repository
}

func NewNotificationDispatcher(repo Repository) *NotificationDispatcher {
	return &NotificationDispatcher{repo: repo}
}

// OnAssigned notifies the step's assignee that the step needs their action.
// The step deadline is snapshotted into the payload.
func (d *NotificationDispatcher) OnAssigned(ctx context.Context, step *model.WorkflowStep, contract *model.Contract) *model.Notification {
	if step.AssignedTo == nil {
		return nil
	}
	return d.emit(ctx, *step.AssignedTo, model.NotificationAssigned, step, contract.ID)
}

// OnCompleted notifies the assignee that the step reached a terminal state
func (d *NotificationDispatcher) OnCompleted(ctx context.Context, step *model.WorkflowStep) *model.Notification {
	if step.AssignedTo == nil {
		return nil
	}
	return d.emit(ctx, *step.AssignedTo, model.NotificationCompleted, step, step.ContractID)
}

// NotifyUser targets an explicit user rather than the assignee; the renewal
// entry point uses it to notify the initiating actor.
func (d *NotificationDispatcher) NotifyUser(ctx context.Context, username string, step *model.WorkflowStep) *model.Notification {
	return d.emit(ctx, username, model.NotificationAssigned, step, step.ContractID)
}

func (d *NotificationDispatcher) emit(ctx context.Context, username, kind string, step *model.WorkflowStep, contractID string) *model.Notification {
	n := &model.Notification{
		ID:         uuid.New().String(),
		UserID:     username,
		Type:       kind,
		ContractID: contractID,
		StepID:     step.ID,
		Deadline:   step.Deadline,
		CreatedAt:  time.Now(),
	}

	if err := d.repo.CreateNotification(ctx, n); err != nil {
		logger.Warn(ctx, "notification dispatch failed",
			"type", kind,
			"step_id", step.ID,
			"user", username,
			"error", err,
		)
		return nil
	}
	return n
}

// SweepDeadlines emits an approval_deadline notification for every pending
// assigned step whose deadline is less than a day away or already past, at
// most once per step per calendar day. Safe to run concurrently with user
// operations: it only ever inserts notification rows.
func (d *NotificationDispatcher) SweepDeadlines(ctx context.Context, now time.Time) (int, error) {
	steps, err := d.repo.ListPendingSteps(ctx)
	if err != nil {
		return 0, err
	}

	emitted := 0
	for i := range steps {
		step := &steps[i]
		if step.AssignedTo == nil {
			continue
		}
		if workflow.ComputeUrgency(step.Deadline, now) < workflow.UrgencyUrgent {
			continue
		}

		seen, err := d.repo.HasDeadlineNotice(ctx, step.ID, now)
		if err != nil {
			logger.Warn(ctx, "deadline sweep check failed", "step_id", step.ID, "error", err)
			continue
		}
		if seen {
			continue
		}

		if n := d.emit(ctx, *step.AssignedTo, model.NotificationDeadline, step, step.ContractID); n != nil {
			emitted++
		}
	}

	if emitted > 0 {
		logger.Info(ctx, "deadline sweep completed", "notifications", emitted)
	}
	return emitted, nil
}
