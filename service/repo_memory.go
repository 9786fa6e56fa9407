package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dannmaldonado/midiacore/model"
	"github.com/dannmaldonado/midiacore/workflow"
)

// MemoryRepository is an in-memory Repository used by tests and local
// development. Unlike the database-backed implementation it keeps everything
// behind a single mutex; Transaction snapshots the maps and restores them on
// failure, which gives the same all-or-nothing behavior.
type MemoryRepository struct {
	mu            sync.RWMutex
	contracts     map[string]*model.Contract
	steps         map[string]*model.WorkflowStep
	notifications map[string]*model.Notification

	// set on transaction views, which run with the parent's lock held
	inTx bool
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		contracts:     make(map[string]*model.Contract),
		steps:         make(map[string]*model.WorkflowStep),
		notifications: make(map[string]*model.Notification),
	}
}

func (r *MemoryRepository) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

func (r *MemoryRepository) rlock() func() {
	if r.inTx {
		return func() {}
	}
	r.mu.RLock()
	return r.mu.RUnlock
}

// Transaction runs fn against a view that mutates copies of the maps; the
// copies replace the live maps only if fn succeeds.
func (r *MemoryRepository) Transaction(ctx context.Context, fn func(Repository) error) error {
	if r.inTx {
		// nested transactions join the outer one
		return fn(r)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	view := &MemoryRepository{
		contracts:     cloneMap(r.contracts),
		steps:         cloneMap(r.steps),
		notifications: cloneMap(r.notifications),
		inTx:          true,
	}

	if err := fn(view); err != nil {
		return err
	}

	r.contracts = view.contracts
	r.steps = view.steps
	r.notifications = view.notifications
	return nil
}

func cloneMap[T any](src map[string]*T) map[string]*T {
	dst := make(map[string]*T, len(src))
	for k, v := range src {
		copied := *v
		dst[k] = &copied
	}
	return dst
}

func (r *MemoryRepository) CreateContract(ctx context.Context, contract *model.Contract) error {
	defer r.lock()()

	c := *contract
	r.contracts[c.ID] = &c
	return nil
}

func (r *MemoryRepository) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	defer r.rlock()()
	return r.getContractLocked(id)
}

func (r *MemoryRepository) getContractLocked(id string) (*model.Contract, error) {
	c, ok := r.contracts[id]
	if !ok {
		return nil, fmt.Errorf("contract %s: %w", id, workflow.ErrNotFound)
	}
	copied := *c
	return &copied, nil
}

// GetContractForUpdate: the whole store is behind one mutex, so a plain read
// already has the locking the interface asks for.
func (r *MemoryRepository) GetContractForUpdate(ctx context.Context, id string) (*model.Contract, error) {
	return r.GetContract(ctx, id)
}

func (r *MemoryRepository) UpdateContract(ctx context.Context, contract *model.Contract) error {
	defer r.lock()()

	if _, ok := r.contracts[contract.ID]; !ok {
		return fmt.Errorf("contract %s: %w", contract.ID, workflow.ErrNotFound)
	}
	c := *contract
	c.UpdatedAt = time.Now()
	r.contracts[c.ID] = &c
	return nil
}

func (r *MemoryRepository) SetContractCurrentStep(ctx context.Context, id, stepID string) error {
	defer r.lock()()

	c, ok := r.contracts[id]
	if !ok {
		return fmt.Errorf("contract %s: %w", id, workflow.ErrNotFound)
	}
	step := stepID
	c.CurrentStep = &step
	c.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) ListContracts(ctx context.Context, tenant string) ([]model.Contract, error) {
	defer r.rlock()()

	var result []model.Contract
	for _, c := range r.contracts {
		if c.Tenant == tenant {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryRepository) CreateSteps(ctx context.Context, steps []model.WorkflowStep) error {
	defer r.lock()()

	for i := range steps {
		s := steps[i]
		r.steps[s.ID] = &s
	}
	return nil
}

func (r *MemoryRepository) ListSteps(ctx context.Context, contractID string) ([]model.WorkflowStep, error) {
	defer r.rlock()()

	var result []model.WorkflowStep
	for _, s := range r.steps {
		if s.ContractID == contractID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].Position < result[j].Position
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryRepository) CountSteps(ctx context.Context, contractID string) (int64, error) {
	defer r.rlock()()

	var count int64
	for _, s := range r.steps {
		if s.ContractID == contractID {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) GetStep(ctx context.Context, id string) (*model.WorkflowStep, error) {
	defer r.rlock()()

	s, ok := r.steps[id]
	if !ok {
		return nil, fmt.Errorf("step %s: %w", id, workflow.ErrNotFound)
	}
	copied := *s
	return &copied, nil
}

func (r *MemoryRepository) SetStepAssignee(ctx context.Context, id, username string) (*model.WorkflowStep, error) {
	defer r.lock()()

	s, ok := r.steps[id]
	if !ok {
		return nil, fmt.Errorf("step %s: %w", id, workflow.ErrNotFound)
	}
	if s.Status != model.StepStatusPending {
		return nil, fmt.Errorf("step %s is %s: %w", s.ID, s.Status, workflow.ErrNotPending)
	}
	assignee := username
	s.AssignedTo = &assignee
	copied := *s
	return &copied, nil
}

func (r *MemoryRepository) FinalizeStep(ctx context.Context, step *model.WorkflowStep) error {
	defer r.lock()()

	s, ok := r.steps[step.ID]
	if !ok {
		return fmt.Errorf("step %s: %w", step.ID, workflow.ErrNotFound)
	}
	if s.Status != model.StepStatusPending {
		return fmt.Errorf("step %s is %s: %w", s.ID, s.Status, workflow.ErrNotPending)
	}
	s.Status = step.Status
	s.CompletedAt = step.CompletedAt
	s.Notes = step.Notes
	return nil
}

func (r *MemoryRepository) ListPendingSteps(ctx context.Context) ([]model.WorkflowStep, error) {
	defer r.rlock()()

	var result []model.WorkflowStep
	for _, s := range r.steps {
		if s.Status == model.StepStatusPending {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryRepository) CreateNotification(ctx context.Context, n *model.Notification) error {
	defer r.lock()()

	copied := *n
	r.notifications[copied.ID] = &copied
	return nil
}

func (r *MemoryRepository) ListNotifications(ctx context.Context, username string) ([]model.Notification, error) {
	defer r.rlock()()

	var result []model.Notification
	for _, n := range r.notifications {
		if n.UserID == username {
			result = append(result, *n)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		iUnread := result[i].ReadAt == nil
		jUnread := result[j].ReadAt == nil
		if iUnread != jUnread {
			return iUnread
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryRepository) MarkNotificationRead(ctx context.Context, id, username string) error {
	defer r.lock()()

	n, ok := r.notifications[id]
	if !ok || n.UserID != username {
		return fmt.Errorf("notification %s: %w", id, workflow.ErrNotFound)
	}
	if n.ReadAt == nil {
		now := time.Now()
		n.ReadAt = &now
	}
	return nil
}

func (r *MemoryRepository) HasDeadlineNotice(ctx context.Context, stepID string, day time.Time) (bool, error) {
	defer r.rlock()()

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	for _, n := range r.notifications {
		if n.StepID == stepID && n.Type == model.NotificationDeadline &&
			!n.CreatedAt.Before(dayStart) && n.CreatedAt.Before(dayEnd) {
			return true, nil
		}
	}
	return false, nil
}
