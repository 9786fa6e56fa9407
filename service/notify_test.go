package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dannmaldonado/midiacore/model"
	"github.com/dannmaldonado/midiacore/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingStep(t *testing.T, repo *MemoryRepository, id, contractID, assignee string, deadline *time.Time) model.WorkflowStep {
	t.Helper()

	step := model.WorkflowStep{
		ID:         id,
		ContractID: contractID,
		StepID:     workflow.StepPreApproval,
		Status:     model.StepStatusPending,
		Deadline:   deadline,
		CreatedAt:  time.Now(),
	}
	if assignee != "" {
		step.AssignedTo = &assignee
	}
	require.NoError(t, repo.CreateSteps(context.Background(), []model.WorkflowStep{step}))
	return step
}

func TestSweepDeadlinesEmitsForUrgentSteps(t *testing.T) {
	repo := NewMemoryRepository()
	dispatcher := NewNotificationDispatcher(repo)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	urgent := now.Add(6 * time.Hour)
	overdue := now.Add(-48 * time.Hour)
	calm := now.Add(5 * 24 * time.Hour)

	pendingStep(t, repo, "s-urgent", "c1", "ana", &urgent)
	pendingStep(t, repo, "s-overdue", "c1", "ana", &overdue)
	pendingStep(t, repo, "s-calm", "c1", "ana", &calm)
	pendingStep(t, repo, "s-no-deadline", "c1", "ana", nil)
	pendingStep(t, repo, "s-unassigned", "c1", "", &urgent)

	emitted, err := dispatcher.SweepDeadlines(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, emitted)

	notifications, err := repo.ListNotifications(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, notifications, 2)

	stepIDs := []string{notifications[0].StepID, notifications[1].StepID}
	assert.ElementsMatch(t, []string{"s-urgent", "s-overdue"}, stepIDs)
	for _, n := range notifications {
		assert.Equal(t, model.NotificationDeadline, n.Type)
	}
}

func TestSweepDeadlinesIdempotentPerDay(t *testing.T) {
	repo := NewMemoryRepository()
	dispatcher := NewNotificationDispatcher(repo)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	deadline := now.Add(3 * time.Hour)
	pendingStep(t, repo, "s1", "c1", "ana", &deadline)

	emitted, err := dispatcher.SweepDeadlines(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, emitted)

	// later sweeps the same day stay quiet
	emitted, err = dispatcher.SweepDeadlines(ctx, now.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, emitted)

	notifications, err := repo.ListNotifications(ctx, "ana")
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
}

func TestSweepDeadlinesSkipsTerminalSteps(t *testing.T) {
	repo := NewMemoryRepository()
	dispatcher := NewNotificationDispatcher(repo)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	deadline := now.Add(-time.Hour)
	step := pendingStep(t, repo, "s1", "c1", "ana", &deadline)

	completed := now
	step.Status = model.StepStatusApproved
	step.CompletedAt = &completed
	require.NoError(t, repo.FinalizeStep(ctx, &step))

	emitted, err := dispatcher.SweepDeadlines(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, emitted)
}

func TestOnAssignedWithoutAssignee(t *testing.T) {
	repo := NewMemoryRepository()
	dispatcher := NewNotificationDispatcher(repo)

	step := model.WorkflowStep{ID: "s1", ContractID: "c1", Status: model.StepStatusPending}
	contract := model.Contract{ID: "c1", Tenant: "tenant1"}

	n := dispatcher.OnAssigned(context.Background(), &step, &contract)
	assert.Nil(t, n)
}

// brokenNotificationRepo fails every notification insert; workflow writes
// must still succeed because notifications are advisory.
type brokenNotificationRepo struct {
	Repository
}

func (r *brokenNotificationRepo) CreateNotification(ctx context.Context, n *model.Notification) error {
	return errors.New("notification table unavailable")
}

func TestAssignSurvivesNotificationFailure(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	createContract(t, repo, "c1", "tenant1")

	broken := &brokenNotificationRepo{Repository: repo}
	directory := NewConfigDirectory(testConfig())
	store := NewWorkflowStore(broken, directory, NewNotificationDispatcher(broken))

	steps, err := store.InitiateWorkflow(ctx, "c1", workflow.TemplateInternal)
	require.NoError(t, err)

	// the assignment commits even though the notification insert fails
	updated, err := store.Assign(ctx, steps[0].ID, "ana")
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, "ana", *updated.AssignedTo)

	notifications, err := repo.ListNotifications(ctx, "ana")
	require.NoError(t, err)
	assert.Empty(t, notifications)
}
