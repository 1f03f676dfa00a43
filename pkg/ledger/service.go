package ledger

import (
	"context"
	"fmt"
)

// Service contains the domain logic over a Store. Every mutating operation
// runs inside Store.WithTx so the balance write and the transaction insert
// commit together or not at all; per-row serialization comes from the
// store's ForUpdate reads.
type Service struct {
	store  Store
	config Config
	nowFn  func() int64
	logger OperationLogger
	rail   PayoutRail
}

// NewService wires a Service.
func NewService(store Store, config Config, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	service := &Service{store: store, config: config, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// OpenAccount creates the account row on first sign-in (balance 0). Calling
// it again for an existing account returns the stored row unchanged.
func (service *Service) OpenAccount(ctx context.Context, accountID AccountID) (Account, error) {
	account, operationError := service.store.GetOrCreateAccount(ctx, accountID, service.nowFn())
	service.logOperation(ctx, OperationLog{
		Operation: operationOpenAccount,
		AccountID: accountID,
		Error:     operationError,
	})
	return account, operationError
}

// AddCredits atomically mutates the account balance and appends the matching
// transaction. A negative amount is a debit; a debit that would drive the
// balance below zero aborts with no writes.
func (service *Service) AddCredits(ctx context.Context, accountID AccountID, amountCents AmountCents, kind TransactionKind, description string, referenceID string, referenceType ReferenceType, metadata MetadataJSON) (CreditResult, error) {
	var result CreditResult
	operationError := func() error {
		if amountCents == 0 {
			return fmt.Errorf("%w: amount must be non-zero", ErrInvalidAmountCents)
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			applied, err := service.applyCredit(ctx, transactionStore, accountID, amountCents, kind, description, referenceID, referenceType, metadata)
			if err != nil {
				return err
			}
			result = applied
			return nil
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation:   operationAddCredits,
		AccountID:   accountID,
		ReferenceID: referenceID,
		Amount:      amountCents,
		Error:       operationError,
	})
	return result, operationError
}

// DeductCredits debits a usage charge. The caller passes the magnitude; the
// atomicity and no-negative-balance contract is the same as AddCredits.
func (service *Service) DeductCredits(ctx context.Context, accountID AccountID, amountCents AmountCents, description string, referenceID string, metadata MetadataJSON) (CreditResult, error) {
	var result CreditResult
	operationError := func() error {
		if amountCents <= 0 {
			return fmt.Errorf("%w: amount must be positive", ErrInvalidAmountCents)
		}
		referenceType := ReferenceNone
		if referenceID != "" {
			referenceType = ReferenceExecution
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			applied, err := service.applyCredit(ctx, transactionStore, accountID, -amountCents, KindUsage, description, referenceID, referenceType, metadata)
			if err != nil {
				return err
			}
			result = applied
			return nil
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation:   operationDeductCredits,
		AccountID:   accountID,
		ReferenceID: referenceID,
		Amount:      amountCents,
		Error:       operationError,
	})
	return result, operationError
}

// applyCredit is the shared atomic unit: read balance under lock, reject a
// negative result, write both the balance and the snapshot transaction.
// It must be called inside a store transaction.
func (service *Service) applyCredit(ctx context.Context, transactionStore Store, accountID AccountID, amountCents AmountCents, kind TransactionKind, description string, referenceID string, referenceType ReferenceType, metadata MetadataJSON) (CreditResult, error) {
	account, err := transactionStore.GetAccountForUpdate(ctx, accountID)
	if err != nil {
		return CreditResult{}, err
	}
	balanceBefore := account.BalanceCents
	balanceAfter := balanceBefore + amountCents
	if amountCents < 0 && balanceAfter < 0 {
		return CreditResult{}, &InsufficientCreditsError{
			RequiredCents:  -amountCents,
			AvailableCents: balanceBefore,
		}
	}
	if err := transactionStore.UpdateAccountBalance(ctx, accountID, balanceAfter); err != nil {
		return CreditResult{}, err
	}
	transaction := Transaction{
		AccountID:          accountID,
		AmountCents:        amountCents,
		Kind:               kind,
		Description:        description,
		BalanceBeforeCents: balanceBefore,
		BalanceAfterCents:  balanceAfter,
		ReferenceID:        referenceID,
		ReferenceType:      referenceType,
		Metadata:           metadata,
		CreatedUnixUTC:     service.nowFn(),
	}
	if err := transactionStore.InsertTransaction(ctx, transaction); err != nil {
		return CreditResult{}, err
	}
	return CreditResult{Transaction: transaction, NewBalanceCents: balanceAfter}, nil
}

// HasSufficientCredits is an advisory, lock-free check for UI pre-flight.
// The subsequent deduction remains the authoritative test.
func (service *Service) HasSufficientCredits(ctx context.Context, accountID AccountID, requiredCents AmountCents) (BalanceCheck, error) {
	if requiredCents <= 0 {
		return BalanceCheck{}, fmt.Errorf("%w: required amount must be positive", ErrInvalidAmountCents)
	}
	account, err := service.store.GetAccount(ctx, accountID)
	if err != nil {
		return BalanceCheck{}, err
	}
	return BalanceCheck{
		Sufficient:    account.BalanceCents >= requiredCents,
		BalanceCents:  account.BalanceCents,
		RequiredCents: requiredCents,
	}, nil
}

// Balance returns the current spendable balance.
func (service *Service) Balance(ctx context.Context, accountID AccountID) (AmountCents, error) {
	account, err := service.store.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.BalanceCents, nil
}

// CreatePurchase records a pending purchase intent at checkout-session
// creation time. The purchase id binds the external payment session to the
// ledger; completion later happens through ProcessPurchaseSuccess.
func (service *Service) CreatePurchase(ctx context.Context, purchaseID PurchaseID, accountID AccountID, amountCents AmountCents, creditsPurchased AmountCents, currency string, checkoutSessionID string) (Purchase, error) {
	var purchase Purchase
	operationError := func() error {
		if amountCents <= 0 || creditsPurchased <= 0 {
			return fmt.Errorf("%w: purchase amounts must be positive", ErrInvalidAmountCents)
		}
		if currency == "" {
			currency = defaultCurrency
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			if _, err := transactionStore.GetAccount(ctx, accountID); err != nil {
				return err
			}
			purchase = Purchase{
				PurchaseID:        purchaseID,
				AccountID:         accountID,
				AmountCents:       amountCents,
				CreditsPurchased:  creditsPurchased,
				Currency:          currency,
				CheckoutSessionID: checkoutSessionID,
				Status:            PurchasePending,
				CreatedUnixUTC:    service.nowFn(),
			}
			return transactionStore.CreatePurchase(ctx, purchase)
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation:   operationCreatePurchase,
		AccountID:   accountID,
		ReferenceID: purchaseID.String(),
		Amount:      amountCents,
		Error:       operationError,
	})
	return purchase, operationError
}

// ProcessPurchaseSuccess flips a pending purchase to completed and credits
// the purchased amount, both inside one transaction. It is idempotent: a
// purchase already completed returns applied=false with no second
// transaction, guarding against duplicate webhook delivery.
func (service *Service) ProcessPurchaseSuccess(ctx context.Context, purchaseID PurchaseID, paymentReference string) (bool, error) {
	applied := false
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		purchase, err := transactionStore.GetPurchaseForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		switch purchase.Status {
		case PurchaseCompleted:
			return nil
		case PurchaseFailed:
			return fmt.Errorf("%w: purchase %s is failed", ErrAlreadyProcessed, purchaseID.String())
		}
		completedAt := service.nowFn()
		if err := transactionStore.UpdatePurchaseStatus(ctx, purchaseID, PurchasePending, PurchaseCompleted, paymentReference, "", completedAt); err != nil {
			return err
		}
		metadata, err := NewMetadataJSON("")
		if err != nil {
			return err
		}
		if _, err := service.applyCredit(ctx, transactionStore, purchase.AccountID, purchase.CreditsPurchased, KindPurchase, purchaseDescription(purchase), purchaseID.String(), ReferencePurchase, metadata); err != nil {
			return err
		}
		applied = true
		return nil
	})
	status := ""
	if operationError == nil && !applied {
		status = operationStatusDuplicate
	}
	service.logOperation(ctx, OperationLog{
		Operation:   operationPurchaseSuccess,
		ReferenceID: purchaseID.String(),
		Status:      status,
		Error:       operationError,
	})
	return applied, operationError
}

// MarkPurchaseFailed moves a pending purchase to its failed terminal state.
// Repeated calls for an already-failed purchase are no-ops; a completed
// purchase cannot fail.
func (service *Service) MarkPurchaseFailed(ctx context.Context, purchaseID PurchaseID, reason string) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		purchase, err := transactionStore.GetPurchaseForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		switch purchase.Status {
		case PurchaseFailed:
			return nil
		case PurchaseCompleted:
			return fmt.Errorf("%w: purchase %s is completed", ErrAlreadyProcessed, purchaseID.String())
		}
		return transactionStore.UpdatePurchaseStatus(ctx, purchaseID, PurchasePending, PurchaseFailed, "", reason, 0)
	})
	service.logOperation(ctx, OperationLog{
		Operation:   operationPurchaseFailed,
		ReferenceID: purchaseID.String(),
		Error:       operationError,
	})
	return operationError
}

// ListTransactions lists ledger transactions for an account before a cutoff time.
func (service *Service) ListTransactions(ctx context.Context, accountID AccountID, beforeUnixUTC int64, limit int) ([]Transaction, error) {
	return service.store.ListTransactions(ctx, accountID, beforeUnixUTC, limit)
}

// VerifyAccountConsistency recomputes the transaction sum and compares it to
// the stored balance; the snapshots exist so drift surfaces here.
func (service *Service) VerifyAccountConsistency(ctx context.Context, accountID AccountID) (ConsistencyReport, error) {
	account, err := service.store.GetAccount(ctx, accountID)
	if err != nil {
		return ConsistencyReport{}, err
	}
	sum, err := service.store.SumTransactions(ctx, accountID)
	if err != nil {
		return ConsistencyReport{}, err
	}
	return ConsistencyReport{
		AccountID:           accountID,
		BalanceCents:        account.BalanceCents,
		TransactionSumCents: sum,
		Consistent:          account.BalanceCents == sum,
	}, nil
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

func purchaseDescription(purchase Purchase) string {
	return fmt.Sprintf("credit purchase %s (%d %s)", purchase.PurchaseID.String(), purchase.AmountCents, purchase.Currency)
}
