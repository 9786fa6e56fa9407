package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dannmaldonado/midiacore/model"
	"github.com/dannmaldonado/midiacore/pkg/logger"
	"github.com/dannmaldonado/midiacore/workflow"
)

// WorkflowStore is the only writer of workflow step records. The engine
// decides what a legal transition looks like; the store enforces the
// invariants that span rows, above all the at-most-once initiation per
// contract. The persistence handle and user directory are injected.
type WorkflowStore struct {
	repo      Repository
	directory UserDirectory
	notifier  *NotificationDispatcher
}

func NewWorkflowStore(repo Repository, directory UserDirectory, notifier *NotificationDispatcher) *WorkflowStore {
	return &WorkflowStore{
		repo:      repo,
		directory: directory,
		notifier:  notifier,
	}
}

// ListSteps returns a contract's steps ordered by creation time ascending
func (s *WorkflowStore) ListSteps(ctx context.Context, contractID string) ([]model.WorkflowStep, error) {
	if _, err := s.repo.GetContract(ctx, contractID); err != nil {
		return nil, err
	}
	return s.repo.ListSteps(ctx, contractID)
}

// InitiateWorkflow creates the full step sequence for a contract in one
// atomic batch. At most one set of steps can ever exist per contract: the
// contract row is read under a write lock and the existing-step check and
// the batch insert commit together, so two racing initiations produce
// exactly one set and the loser gets ErrAlreadyInitiated.
func (s *WorkflowStore) InitiateWorkflow(ctx context.Context, contractID, templateID string) ([]model.WorkflowStep, error) {
	var steps []model.WorkflowStep

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		if _, err := tx.GetContractForUpdate(ctx, contractID); err != nil {
			return err
		}

		count, err := tx.CountSteps(ctx, contractID)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("contract %s: %w", contractID, workflow.ErrAlreadyInitiated)
		}

		steps, err = workflow.InitiateSteps(contractID, templateID, time.Now())
		if err != nil {
			return err
		}
		return tx.CreateSteps(ctx, steps)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "workflow initiated",
		"contract_id", contractID,
		"template", templateID,
		"steps", len(steps),
	)
	return steps, nil
}

// Assign sets the step's assignee. The target user must belong to the same
// tenant as the step's contract and the step must still be pending. The
// assignment notification is dispatched after the write and is best-effort.
func (s *WorkflowStore) Assign(ctx context.Context, stepID, username string) (*model.WorkflowStep, error) {
	step, err := s.repo.GetStep(ctx, stepID)
	if err != nil {
		return nil, err
	}

	contract, err := s.repo.GetContract(ctx, step.ContractID)
	if err != nil {
		return nil, err
	}

	user, err := s.directory.Lookup(username)
	if err != nil {
		return nil, err
	}
	if user.Tenant != contract.Tenant {
		return nil, fmt.Errorf("user %s is in tenant %s, contract in %s: %w",
			username, user.Tenant, contract.Tenant, workflow.ErrTenantMismatch)
	}

	updated, err := s.repo.SetStepAssignee(ctx, stepID, username)
	if err != nil {
		return nil, err
	}

	s.notifier.OnAssigned(ctx, updated, contract)
	return updated, nil
}

// ApplyTransition runs the engine's transition over the step and persists
// the result. This is the only path that writes a terminal status; the
// persist is conditional on the row still being pending, so of two racing
// transitions exactly one wins and the other sees ErrNotPending.
func (s *WorkflowStore) ApplyTransition(ctx context.Context, stepID string, action workflow.Action, actor model.Actor, notes string) (*model.WorkflowStep, error) {
	step, err := s.repo.GetStep(ctx, stepID)
	if err != nil {
		return nil, err
	}

	updated, err := workflow.Transition(*step, action, actor, notes, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.FinalizeStep(ctx, &updated); err != nil {
		return nil, err
	}

	logger.Info(ctx, "workflow step completed",
		"step_id", updated.ID,
		"contract_id", updated.ContractID,
		"kind", updated.StepID,
		"status", updated.Status,
		"actor", actor.Username,
	)

	s.notifier.OnCompleted(ctx, &updated)
	return &updated, nil
}
