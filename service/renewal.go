package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dannmaldonado/midiacore/model"
	"github.com/dannmaldonado/midiacore/pkg/logger"
	"github.com/dannmaldonado/midiacore/workflow"
)

// RenewalInitiator is the out-of-band workflow entry for contract renewal.
// It appends a single renewal step and moves the contract's current_step
// pointer in the same transaction; this is the one place workflow state and
// contract state change together.
//
// A renewal does not touch earlier pending steps. Skipping them stays an
// explicit per-step action so the approval history survives intact.
type RenewalInitiator struct {
	repo     Repository
	notifier *NotificationDispatcher
}

func NewRenewalInitiator(repo Repository, notifier *NotificationDispatcher) *RenewalInitiator {
	return &RenewalInitiator{repo: repo, notifier: notifier}
}

// StartRenewal appends a renewal step of the given kind (no_swap or
// with_swap) to an existing contract and points current_step at it. Both
// writes commit or roll back together. If the transaction fails, the step is
// re-read to verify the rollback actually took it out; a step that survived
// a failed transaction is reported as ErrRenewalPartiallyApplied so an
// operator can reconcile it by hand.
func (ri *RenewalInitiator) StartRenewal(ctx context.Context, contractID, kind string, actor model.Actor) (*model.WorkflowStep, *model.Contract, error) {
	entry, err := workflow.RenewalEntry(kind)
	if err != nil {
		return nil, nil, err
	}

	var step model.WorkflowStep
	var contract *model.Contract

	txErr := ri.repo.Transaction(ctx, func(tx Repository) error {
		var err error
		contract, err = tx.GetContractForUpdate(ctx, contractID)
		if err != nil {
			return err
		}

		now := time.Now()
		count, err := tx.CountSteps(ctx, contractID)
		if err != nil {
			return err
		}

		step = workflow.NewStep(contractID, entry, int(count), now)
		if err := tx.CreateSteps(ctx, []model.WorkflowStep{step}); err != nil {
			return err
		}

		if err := tx.SetContractCurrentStep(ctx, contractID, entry.StepID); err != nil {
			return err
		}
		current := entry.StepID
		contract.CurrentStep = &current
		return nil
	})

	if txErr != nil {
		if step.ID != "" {
			if _, lookErr := ri.repo.GetStep(ctx, step.ID); lookErr == nil {
				logger.Error(ctx, "renewal step survived a failed transaction",
					"contract_id", contractID,
					"step_id", step.ID,
					"error", txErr,
				)
				return nil, nil, fmt.Errorf("%w: contract %s step %s: %v",
					workflow.ErrRenewalPartiallyApplied, contractID, step.ID, txErr)
			}
		}
		return nil, nil, txErr
	}

	logger.Info(ctx, "renewal started",
		"contract_id", contractID,
		"kind", entry.StepID,
		"actor", actor.Username,
	)

	ri.notifier.NotifyUser(ctx, actor.Username, &step)
	return &step, contract, nil
}
