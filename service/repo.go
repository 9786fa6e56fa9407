package service

import (
	"context"
	"time"

	"github.com/dannmaldonado/midiacore/model"
)

// Repository is the persistence collaborator for contracts, workflow steps
// and notifications. Implementations must provide row-level atomic updates
// and all-or-nothing batch inserts; Transaction wraps a unit of work that
// either fully commits or fully rolls back.
//
// Lookup methods return workflow.ErrNotFound (wrapped) for unknown ids.
// Conditional writes (SetStepAssignee, FinalizeStep) apply only while the
// step is still pending and return workflow.ErrNotPending when a concurrent
// writer got there first.
type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	CreateContract(ctx context.Context, contract *model.Contract) error
	GetContract(ctx context.Context, id string) (*model.Contract, error)
	// GetContractForUpdate reads the contract holding a write lock for the
	// duration of the surrounding transaction.
	GetContractForUpdate(ctx context.Context, id string) (*model.Contract, error)
	UpdateContract(ctx context.Context, contract *model.Contract) error
	SetContractCurrentStep(ctx context.Context, id, stepID string) error
	ListContracts(ctx context.Context, tenant string) ([]model.Contract, error)

	CreateSteps(ctx context.Context, steps []model.WorkflowStep) error
	ListSteps(ctx context.Context, contractID string) ([]model.WorkflowStep, error)
	CountSteps(ctx context.Context, contractID string) (int64, error)
	GetStep(ctx context.Context, id string) (*model.WorkflowStep, error)
	SetStepAssignee(ctx context.Context, id, username string) (*model.WorkflowStep, error)
	// FinalizeStep persists a terminal status, completion time and notes,
	// conditional on the row still being pending.
	FinalizeStep(ctx context.Context, step *model.WorkflowStep) error
	ListPendingSteps(ctx context.Context) ([]model.WorkflowStep, error)

	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, username string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id, username string) error
	// HasDeadlineNotice reports whether an approval_deadline notification for
	// the step was already created on the given calendar day (UTC).
	HasDeadlineNotice(ctx context.Context, stepID string, day time.Time) (bool, error)
}
