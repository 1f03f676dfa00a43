package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// AmountCents is an integer currency amount in cents. Credits are positive,
// debits negative.
type AmountCents int64

// Int64 returns the raw cent value.
func (amount AmountCents) Int64() int64 {
	return int64(amount)
}

// AccountID identifies a marketplace account.
type AccountID struct {
	value string
}

// AgentID identifies a published agent.
type AgentID struct {
	value string
}

// PurchaseID identifies a credit purchase intent.
type PurchaseID struct {
	value string
}

// PayoutID identifies a payout request.
type PayoutID struct {
	value string
}

// NewAccountID validates and normalizes an account id.
func NewAccountID(raw string) (AccountID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AccountID{}, fmt.Errorf("%w: empty value", ErrInvalidAccountID)
	}
	return AccountID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id AccountID) String() string {
	return id.value
}

// NewAgentID validates and normalizes an agent id.
func NewAgentID(raw string) (AgentID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AgentID{}, fmt.Errorf("%w: empty value", ErrInvalidAgentID)
	}
	return AgentID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id AgentID) String() string {
	return id.value
}

// NewPurchaseID validates and normalizes a purchase id.
func NewPurchaseID(raw string) (PurchaseID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return PurchaseID{}, fmt.Errorf("%w: empty value", ErrInvalidPurchaseID)
	}
	return PurchaseID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id PurchaseID) String() string {
	return id.value
}

// NewPayoutID validates and normalizes a payout id.
func NewPayoutID(raw string) (PayoutID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return PayoutID{}, fmt.Errorf("%w: empty value", ErrInvalidPayoutID)
	}
	return PayoutID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id PayoutID) String() string {
	return id.value
}

// MetadataJSON stores arbitrary request metadata.
type MetadataJSON struct {
	value string
}

// NewMetadataJSON validates metadata string (defaulting to "{}" for empty inputs).
func NewMetadataJSON(raw string) (MetadataJSON, error) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		normalized = "{}"
	}
	if !json.Valid([]byte(normalized)) {
		return MetadataJSON{}, fmt.Errorf("%w: must be valid json", ErrInvalidMetadataJSON)
	}
	return MetadataJSON{value: normalized}, nil
}

// String returns the normalized JSON blob.
func (metadata MetadataJSON) String() string {
	return metadata.value
}

// TransactionKind enumerates credit transaction kinds.
type TransactionKind string

const (
	KindPurchase   TransactionKind = "purchase"
	KindUsage      TransactionKind = "usage"
	KindRefund     TransactionKind = "refund"
	KindBonus      TransactionKind = "bonus"
	KindAdjustment TransactionKind = "adjustment"
)

// ParseTransactionKind validates a raw transaction kind.
func ParseTransactionKind(raw string) (TransactionKind, error) {
	switch TransactionKind(raw) {
	case KindPurchase, KindUsage, KindRefund, KindBonus, KindAdjustment:
		return TransactionKind(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTransactionKind, raw)
}

// String returns the raw kind value.
func (kind TransactionKind) String() string {
	return string(kind)
}

// ReferenceType links a transaction to its originating record.
type ReferenceType string

const (
	ReferenceNone      ReferenceType = ""
	ReferencePurchase  ReferenceType = "purchase"
	ReferenceExecution ReferenceType = "execution"
	ReferencePayout    ReferenceType = "payout"
)

// String returns the raw reference type value.
func (referenceType ReferenceType) String() string {
	return string(referenceType)
}

// PurchaseStatus defines the credit purchase lifecycle.
type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseFailed    PurchaseStatus = "failed"
)

// ParsePurchaseStatus validates a raw purchase status.
func ParsePurchaseStatus(raw string) (PurchaseStatus, error) {
	switch PurchaseStatus(raw) {
	case PurchasePending, PurchaseCompleted, PurchaseFailed:
		return PurchaseStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPurchaseStatus, raw)
}

// String returns the raw status value.
func (status PurchaseStatus) String() string {
	return string(status)
}

// PayoutStatus defines the payout lifecycle.
type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
)

// ParsePayoutStatus validates a raw payout status.
func ParsePayoutStatus(raw string) (PayoutStatus, error) {
	switch PayoutStatus(raw) {
	case PayoutPending, PayoutProcessing, PayoutCompleted, PayoutFailed:
		return PayoutStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPayoutStatus, raw)
}

// String returns the raw status value.
func (status PayoutStatus) String() string {
	return string(status)
}

// Account holds the spendable balance for one user.
type Account struct {
	AccountID      AccountID
	BalanceCents   AmountCents
	CreatedUnixUTC int64
}

// Transaction is a single immutable line in the credit ledger. The balance
// snapshots are redundant with the running sum but enable point-in-time
// audit and drift detection.
type Transaction struct {
	TransactionID      string
	AccountID          AccountID
	AmountCents        AmountCents
	Kind               TransactionKind
	Description        string
	BalanceBeforeCents AmountCents
	BalanceAfterCents  AmountCents
	ReferenceID        string
	ReferenceType      ReferenceType
	Metadata           MetadataJSON
	CreatedUnixUTC     int64
}

// Purchase is a pending-to-completed intent to add funds. CreditsPurchased
// is the credit amount (in cents) granted on completion; AmountCents is the
// money collected by the payment rail.
type Purchase struct {
	PurchaseID        PurchaseID
	AccountID         AccountID
	AmountCents       AmountCents
	CreditsPurchased  AmountCents
	Currency          string
	CheckoutSessionID string
	PaymentReference  string
	Status            PurchaseStatus
	FailureReason     string
	CreatedUnixUTC    int64
	CompletedUnixUTC  int64
}

// AgentEarnings accumulates revenue share for one (agent, owner) pair.
type AgentEarnings struct {
	AgentID              AgentID
	OwnerAccountID       AccountID
	TotalEarningsCents   AmountCents
	PendingEarningsCents AmountCents
	PaidOutCents         AmountCents
	TotalExecutions      int64
	LastEarningUnixUTC   int64
}

// Payout is a request to convert pending earnings into an external transfer.
type Payout struct {
	PayoutID         PayoutID
	AccountID        AccountID
	AmountCents      AmountCents
	Status           PayoutStatus
	Description      string
	FailureReason    string
	TransferID       string
	DestinationRef   string
	CreatedUnixUTC   int64
	ProcessedUnixUTC int64
}

// RevenueSplit is the deterministic fee split of one execution cost.
type RevenueSplit struct {
	CreatorEarningsCents AmountCents
	PlatformFeeCents     AmountCents
}

// EarningsSummary aggregates an owner's earnings across all their agents.
type EarningsSummary struct {
	TotalEarningsCents   AmountCents
	PendingEarningsCents AmountCents
	PaidOutCents         AmountCents
	TotalExecutions      int64
	Agents               []AgentEarnings
}

// CreditResult reports the outcome of a balance mutation.
type CreditResult struct {
	Transaction     Transaction
	NewBalanceCents AmountCents
}

// BalanceCheck is the advisory result of HasSufficientCredits. The balance
// may change between the check and a subsequent deduction; only the
// deduction itself is authoritative.
type BalanceCheck struct {
	Sufficient    bool
	BalanceCents  AmountCents
	RequiredCents AmountCents
}

// ConsistencyReport compares a stored balance against the transaction sum.
type ConsistencyReport struct {
	AccountID           AccountID
	BalanceCents        AmountCents
	TransactionSumCents AmountCents
	Consistent          bool
}

// Store is the persistence contract used by Service. Mutating operations
// are expected to run inside WithTx; the ForUpdate reads must hold row
// exclusivity until the transaction commits or rolls back.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	GetOrCreateAccount(ctx context.Context, accountID AccountID, createdUnixUTC int64) (Account, error)
	GetAccount(ctx context.Context, accountID AccountID) (Account, error)
	GetAccountForUpdate(ctx context.Context, accountID AccountID) (Account, error)
	UpdateAccountBalance(ctx context.Context, accountID AccountID, balanceCents AmountCents) error
	InsertTransaction(ctx context.Context, transaction Transaction) error
	SumTransactions(ctx context.Context, accountID AccountID) (AmountCents, error)
	ListTransactions(ctx context.Context, accountID AccountID, beforeUnixUTC int64, limit int) ([]Transaction, error)

	CreatePurchase(ctx context.Context, purchase Purchase) error
	GetPurchaseForUpdate(ctx context.Context, purchaseID PurchaseID) (Purchase, error)
	UpdatePurchaseStatus(ctx context.Context, purchaseID PurchaseID, from, to PurchaseStatus, paymentReference string, failureReason string, completedUnixUTC int64) error

	UpsertEarnings(ctx context.Context, agentID AgentID, ownerAccountID AccountID, deltaCents AmountCents, earnedUnixUTC int64) error
	ListEarningsByOwner(ctx context.Context, ownerAccountID AccountID) ([]AgentEarnings, error)
	ListEarningsByOwnerForUpdate(ctx context.Context, ownerAccountID AccountID) ([]AgentEarnings, error)
	ApplyEarningsPayout(ctx context.Context, agentID AgentID, ownerAccountID AccountID, amountCents AmountCents) error

	CreatePayout(ctx context.Context, payout Payout) (PayoutID, error)
	GetPayoutForUpdate(ctx context.Context, payoutID PayoutID) (Payout, error)
	UpdatePayoutStatus(ctx context.Context, payoutID PayoutID, from, to PayoutStatus, transferID string, failureReason string, processedUnixUTC int64) error
	ListPayouts(ctx context.Context, accountID AccountID, beforeUnixUTC int64, limit int) ([]Payout, error)
}
