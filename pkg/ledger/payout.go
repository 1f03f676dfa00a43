package ledger

import (
	"context"
	"fmt"
)

// TransferRequest is handed to the external payout rail.
type TransferRequest struct {
	PayoutID       PayoutID
	AccountID      AccountID
	AmountCents    AmountCents
	DestinationRef string
	Description    string
}

// TransferReceipt reports a successfully initiated transfer.
type TransferReceipt struct {
	TransferID string
}

// PayoutRail initiates the external money movement for a payout. The rail
// call happens outside any store transaction; its outcome is applied via a
// second atomic state transition.
type PayoutRail interface {
	InitiateTransfer(ctx context.Context, request TransferRequest) (TransferReceipt, error)
}

// CreatePayoutRequest validates the requested amount against the owner's
// pending earnings and reserves the funds immediately: pending moves to
// paidOut across the owner's earnings rows before any external transfer
// happens, so two concurrent requests cannot both pass the sufficiency
// check against the same unreserved pool.
func (service *Service) CreatePayoutRequest(ctx context.Context, ownerAccountID AccountID, amountCents AmountCents, description string) (Payout, error) {
	var payout Payout
	operationError := func() error {
		if amountCents < service.config.MinimumPayoutCents {
			return fmt.Errorf("%w: amount %d below minimum %d", ErrInvalidAmountCents, amountCents, service.config.MinimumPayoutCents)
		}
		if amountCents > service.config.MaximumPayoutCents {
			return fmt.Errorf("%w: amount %d above maximum %d", ErrInvalidAmountCents, amountCents, service.config.MaximumPayoutCents)
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			rows, err := transactionStore.ListEarningsByOwnerForUpdate(ctx, ownerAccountID)
			if err != nil {
				return err
			}
			var totalPending AmountCents
			for _, row := range rows {
				totalPending += row.PendingEarningsCents
			}
			if totalPending < amountCents {
				return &InsufficientPendingEarningsError{
					RequestedCents: amountCents,
					AvailableCents: totalPending,
				}
			}
			payout = Payout{
				AccountID:      ownerAccountID,
				AmountCents:    amountCents,
				Status:         PayoutPending,
				Description:    description,
				CreatedUnixUTC: service.nowFn(),
			}
			payoutID, err := transactionStore.CreatePayout(ctx, payout)
			if err != nil {
				return err
			}
			payout.PayoutID = payoutID
			remaining := amountCents
			for _, row := range rows {
				if remaining == 0 {
					break
				}
				share := row.PendingEarningsCents
				if share > remaining {
					share = remaining
				}
				if share == 0 {
					continue
				}
				if err := transactionStore.ApplyEarningsPayout(ctx, row.AgentID, ownerAccountID, share); err != nil {
					return err
				}
				remaining -= share
			}
			if remaining != 0 {
				return fmt.Errorf("payout reservation short by %d cents for account %s", remaining, ownerAccountID.String())
			}
			return nil
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation:   operationCreatePayout,
		AccountID:   ownerAccountID,
		ReferenceID: payout.PayoutID.String(),
		Amount:      amountCents,
		Error:       operationError,
	})
	return payout, operationError
}

// ProcessPayout settles a pending payout through the external rail. The
// payout is first moved to processing under lock, the rail is called with no
// lock held, and the rail's outcome is applied in a second transaction. Only
// a pending payout can be processed; any other status returns
// ErrAlreadyProcessed with no side effects.
func (service *Service) ProcessPayout(ctx context.Context, payoutID PayoutID, destinationRef string) (Payout, error) {
	var payout Payout
	operationError := func() error {
		if service.rail == nil {
			return fmt.Errorf("%w: payout rail is not configured", ErrInvalidServiceConfig)
		}
		err := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			stored, err := transactionStore.GetPayoutForUpdate(ctx, payoutID)
			if err != nil {
				return err
			}
			if stored.Status != PayoutPending {
				return fmt.Errorf("%w: payout %s is %s", ErrAlreadyProcessed, payoutID.String(), stored.Status)
			}
			payout = stored
			return transactionStore.UpdatePayoutStatus(ctx, payoutID, PayoutPending, PayoutProcessing, "", "", 0)
		})
		if err != nil {
			return err
		}

		receipt, railErr := service.rail.InitiateTransfer(ctx, TransferRequest{
			PayoutID:       payoutID,
			AccountID:      payout.AccountID,
			AmountCents:    payout.AmountCents,
			DestinationRef: destinationRef,
			Description:    payout.Description,
		})
		processedAt := service.nowFn()

		if railErr != nil {
			failure := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
				if err := transactionStore.UpdatePayoutStatus(ctx, payoutID, PayoutProcessing, PayoutFailed, "", railErr.Error(), processedAt); err != nil {
					return err
				}
				if service.config.RestoreEarningsOnFailedPayout {
					return service.restoreReservedEarnings(ctx, transactionStore, payout.AccountID, payout.AmountCents)
				}
				return nil
			})
			if failure != nil {
				return failure
			}
			payout.Status = PayoutFailed
			payout.FailureReason = railErr.Error()
			payout.ProcessedUnixUTC = processedAt
			return fmt.Errorf("%w: %v", ErrExternalService, railErr)
		}

		if err := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			return transactionStore.UpdatePayoutStatus(ctx, payoutID, PayoutProcessing, PayoutCompleted, receipt.TransferID, "", processedAt)
		}); err != nil {
			return err
		}
		payout.Status = PayoutCompleted
		payout.TransferID = receipt.TransferID
		payout.DestinationRef = destinationRef
		payout.ProcessedUnixUTC = processedAt
		return nil
	}()
	service.logOperation(ctx, OperationLog{
		Operation:   operationProcessPayout,
		AccountID:   payout.AccountID,
		ReferenceID: payoutID.String(),
		Amount:      payout.AmountCents,
		Error:       operationError,
	})
	return payout, operationError
}

// restoreReservedEarnings moves reserved funds back from paidOut to pending
// across the owner's earnings rows, reversing a payout reservation.
func (service *Service) restoreReservedEarnings(ctx context.Context, transactionStore Store, ownerAccountID AccountID, amountCents AmountCents) error {
	rows, err := transactionStore.ListEarningsByOwnerForUpdate(ctx, ownerAccountID)
	if err != nil {
		return err
	}
	remaining := amountCents
	for _, row := range rows {
		if remaining == 0 {
			break
		}
		share := row.PaidOutCents
		if share > remaining {
			share = remaining
		}
		if share == 0 {
			continue
		}
		if err := transactionStore.ApplyEarningsPayout(ctx, row.AgentID, ownerAccountID, -share); err != nil {
			return err
		}
		remaining -= share
	}
	if remaining != 0 {
		return fmt.Errorf("earnings restitution short by %d cents for account %s", remaining, ownerAccountID.String())
	}
	return nil
}

// ListPayouts lists payout requests for an account before a cutoff time.
func (service *Service) ListPayouts(ctx context.Context, accountID AccountID, beforeUnixUTC int64, limit int) ([]Payout, error) {
	return service.store.ListPayouts(ctx, accountID, beforeUnixUTC, limit)
}

// PayoutConfig exposes the static payout policy for client-side validation.
func (service *Service) PayoutConfig() PayoutConfig {
	return PayoutConfig{
		MinimumPayoutCents: service.config.MinimumPayoutCents,
		MaximumPayoutCents: service.config.MaximumPayoutCents,
		PlatformFeePct:     service.config.PlatformFeePct,
		CreatorEarningsPct: service.config.CreatorEarningsPct(),
	}
}
