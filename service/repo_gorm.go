package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dannmaldonado/midiacore/model"
	"github.com/dannmaldonado/midiacore/workflow"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository implements Repository on a relational database via gorm.
// The handle is injected; there is no package-level client.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the schema for all owned tables
func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(&model.Contract{}, &model.WorkflowStep{}, &model.Notification{})
}

func (r *GormRepository) Transaction(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepository{db: tx})
	})
}

func (r *GormRepository) CreateContract(ctx context.Context, contract *model.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

func (r *GormRepository) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	var contract model.Contract
	if err := r.db.WithContext(ctx).First(&contract, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "contract", id)
	}
	return &contract, nil
}

func (r *GormRepository) GetContractForUpdate(ctx context.Context, id string) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&contract, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "contract", id)
	}
	return &contract, nil
}

func (r *GormRepository) UpdateContract(ctx context.Context, contract *model.Contract) error {
	return r.db.WithContext(ctx).Save(contract).Error
}

func (r *GormRepository) SetContractCurrentStep(ctx context.Context, id, stepID string) error {
	res := r.db.WithContext(ctx).Model(&model.Contract{}).
		Where("id = ?", id).
		Update("current_step", stepID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("contract %s: %w", id, workflow.ErrNotFound)
	}
	return nil
}

func (r *GormRepository) ListContracts(ctx context.Context, tenant string) ([]model.Contract, error) {
	var contracts []model.Contract
	err := r.db.WithContext(ctx).
		Where("tenant = ?", tenant).
		Order("created_at DESC").
		Find(&contracts).Error
	return contracts, err
}

func (r *GormRepository) CreateSteps(ctx context.Context, steps []model.WorkflowStep) error {
	if len(steps) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&steps).Error
}

func (r *GormRepository) ListSteps(ctx context.Context, contractID string) ([]model.WorkflowStep, error) {
	var steps []model.WorkflowStep
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at ASC, position ASC").
		Find(&steps).Error
	return steps, err
}

func (r *GormRepository) CountSteps(ctx context.Context, contractID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WorkflowStep{}).
		Where("contract_id = ?", contractID).
		Count(&count).Error
	return count, err
}

func (r *GormRepository) GetStep(ctx context.Context, id string) (*model.WorkflowStep, error) {
	var step model.WorkflowStep
	if err := r.db.WithContext(ctx).First(&step, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "step", id)
	}
	return &step, nil
}

func (r *GormRepository) SetStepAssignee(ctx context.Context, id, username string) (*model.WorkflowStep, error) {
	res := r.db.WithContext(ctx).Model(&model.WorkflowStep{}).
		Where("id = ? AND status = ?", id, model.StepStatusPending).
		Update("assigned_to", username)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Either gone or already terminal
		step, err := r.GetStep(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("step %s is %s: %w", step.ID, step.Status, workflow.ErrNotPending)
	}
	return r.GetStep(ctx, id)
}

// FinalizeStep writes the terminal state conditional on the row still being
// pending. Two racing transitions are serialized here: the loser matches
// zero rows and gets ErrNotPending.
func (r *GormRepository) FinalizeStep(ctx context.Context, step *model.WorkflowStep) error {
	res := r.db.WithContext(ctx).Model(&model.WorkflowStep{}).
		Where("id = ? AND status = ?", step.ID, model.StepStatusPending).
		Updates(map[string]interface{}{
			"status":       step.Status,
			"completed_at": step.CompletedAt,
			"notes":        step.Notes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		current, err := r.GetStep(ctx, step.ID)
		if err != nil {
			return err
		}
		return fmt.Errorf("step %s is %s: %w", current.ID, current.Status, workflow.ErrNotPending)
	}
	return nil
}

func (r *GormRepository) ListPendingSteps(ctx context.Context) ([]model.WorkflowStep, error) {
	var steps []model.WorkflowStep
	err := r.db.WithContext(ctx).
		Where("status = ?", model.StepStatusPending).
		Find(&steps).Error
	return steps, err
}

func (r *GormRepository) CreateNotification(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *GormRepository) ListNotifications(ctx context.Context, username string) ([]model.Notification, error) {
	var notifications []model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", username).
		Order("read_at IS NULL DESC, created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

func (r *GormRepository) MarkNotificationRead(ctx context.Context, id, username string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, username).
		Update("read_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Already read is fine; unknown id is not
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.Notification{}).
			Where("id = ? AND user_id = ?", id, username).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("notification %s: %w", id, workflow.ErrNotFound)
		}
	}
	return nil
}

func (r *GormRepository) HasDeadlineNotice(ctx context.Context, stepID string, day time.Time) (bool, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var count int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("step_id = ? AND type = ? AND created_at >= ? AND created_at < ?",
			stepID, model.NotificationDeadline, dayStart, dayEnd).
		Count(&count).Error
	return count > 0, err
}

func notFoundOr(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, workflow.ErrNotFound)
	}
	return err
}
