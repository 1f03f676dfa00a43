package ledger

import (
	"context"
	"fmt"
)

// SplitRevenue divides an execution cost between the platform and the agent
// creator. The fee is floored and the creator gets the remainder, so the two
// parts always sum exactly to the input.
func SplitRevenue(executionCostCents AmountCents, platformFeePct int64) RevenueSplit {
	platformFee := AmountCents(executionCostCents.Int64() * platformFeePct / 100)
	return RevenueSplit{
		CreatorEarningsCents: executionCostCents - platformFee,
		PlatformFeeCents:     platformFee,
	}
}

// RecordEarnings credits the agent owner's earnings pool with the creator
// share of one billable execution. The upsert is a single atomic increment;
// concurrent executions of the same agent must not lose earnings.
//
// When self-earnings are disabled and the payer owns the agent, the split is
// computed and returned but nothing is recorded.
func (service *Service) RecordEarnings(ctx context.Context, agentID AgentID, ownerAccountID AccountID, payerAccountID AccountID, executionCostCents AmountCents) (RevenueSplit, error) {
	var split RevenueSplit
	skipped := false
	operationError := func() error {
		if executionCostCents < 0 {
			return fmt.Errorf("%w: execution cost must not be negative", ErrInvalidAmountCents)
		}
		split = SplitRevenue(executionCostCents, service.config.PlatformFeePct)
		if !service.config.AllowSelfEarnings && payerAccountID == ownerAccountID {
			skipped = true
			return nil
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			if _, err := transactionStore.GetAccount(ctx, ownerAccountID); err != nil {
				return err
			}
			return transactionStore.UpsertEarnings(ctx, agentID, ownerAccountID, split.CreatorEarningsCents, service.nowFn())
		})
	}()
	status := ""
	if skipped {
		status = operationStatusSkipped
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationRecordEarnings,
		AccountID: ownerAccountID,
		AgentID:   agentID,
		Amount:    executionCostCents,
		Status:    status,
		Error:     operationError,
	})
	return split, operationError
}

// EarningsSummary aggregates earnings across all the owner's agents.
func (service *Service) EarningsSummary(ctx context.Context, ownerAccountID AccountID) (EarningsSummary, error) {
	rows, err := service.store.ListEarningsByOwner(ctx, ownerAccountID)
	if err != nil {
		return EarningsSummary{}, err
	}
	summary := EarningsSummary{Agents: rows}
	for _, row := range rows {
		summary.TotalEarningsCents += row.TotalEarningsCents
		summary.PendingEarningsCents += row.PendingEarningsCents
		summary.PaidOutCents += row.PaidOutCents
		summary.TotalExecutions += row.TotalExecutions
	}
	return summary, nil
}
