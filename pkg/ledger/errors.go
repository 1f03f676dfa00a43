package ledger

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the ledger service.
var (
	ErrAccountNotFound             = errors.New("account not found")
	ErrPurchaseNotFound            = errors.New("purchase not found")
	ErrPayoutNotFound              = errors.New("payout not found")
	ErrInsufficientCredits         = errors.New("insufficient credits")
	ErrInsufficientPendingEarnings = errors.New("insufficient pending earnings")
	ErrAlreadyProcessed            = errors.New("already processed")
	ErrPurchaseExists              = errors.New("purchase already exists")
	ErrExternalService             = errors.New("external service error")
	ErrInvalidAccountID            = errors.New("invalid account id")
	ErrInvalidAgentID              = errors.New("invalid agent id")
	ErrInvalidPurchaseID           = errors.New("invalid purchase id")
	ErrInvalidPayoutID             = errors.New("invalid payout id")
	ErrInvalidAmountCents          = errors.New("invalid amount cents")
	ErrInvalidTransactionKind      = errors.New("invalid transaction kind")
	ErrInvalidPurchaseStatus       = errors.New("invalid purchase status")
	ErrInvalidPayoutStatus         = errors.New("invalid payout status")
	ErrInvalidMetadataJSON         = errors.New("invalid metadata json")
	ErrInvalidServiceConfig        = errors.New("invalid service config")
)

// InsufficientCreditsError carries the amounts a caller needs to decide
// whether to retry with a smaller deduction.
type InsufficientCreditsError struct {
	RequiredCents  AmountCents
	AvailableCents AmountCents
}

// Error returns the formatted error message.
func (insufficientError *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", insufficientError.RequiredCents, insufficientError.AvailableCents)
}

// Unwrap links to the ErrInsufficientCredits sentinel.
func (insufficientError *InsufficientCreditsError) Unwrap() error {
	return ErrInsufficientCredits
}

// InsufficientPendingEarningsError carries the requested versus available
// pending earnings for a rejected payout request.
type InsufficientPendingEarningsError struct {
	RequestedCents AmountCents
	AvailableCents AmountCents
}

// Error returns the formatted error message.
func (insufficientError *InsufficientPendingEarningsError) Error() string {
	return fmt.Sprintf("insufficient pending earnings: requested %d, available %d", insufficientError.RequestedCents, insufficientError.AvailableCents)
}

// Unwrap links to the ErrInsufficientPendingEarnings sentinel.
func (insufficientError *InsufficientPendingEarningsError) Unwrap() error {
	return ErrInsufficientPendingEarnings
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
