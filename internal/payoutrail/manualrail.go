// Package payoutrail provides ledger.PayoutRail implementations.
package payoutrail

import (
	"context"

	"github.com/agentbazaar/ledger/pkg/ledger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ManualRail settles payouts by recording a transfer reference for an
// operator to execute out of band. Every initiation succeeds and returns a
// fresh transfer id; the operator reconciles against the payout log.
type ManualRail struct {
	logger *zap.Logger
}

// NewManualRail returns a rail that logs transfers for manual settlement.
func NewManualRail(logger *zap.Logger) *ManualRail {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ManualRail{logger: logger}
}

// InitiateTransfer records the transfer and returns its reference.
func (rail *ManualRail) InitiateTransfer(_ context.Context, request ledger.TransferRequest) (ledger.TransferReceipt, error) {
	transferID := "manual-" + uuid.NewString()
	rail.logger.Info("manual transfer initiated",
		zap.String("transfer_id", transferID),
		zap.String("payout_id", request.PayoutID.String()),
		zap.String("account_id", request.AccountID.String()),
		zap.Int64("amount_cents", request.AmountCents.Int64()),
		zap.String("destination_ref", request.DestinationRef),
	)
	return ledger.TransferReceipt{TransferID: transferID}, nil
}
