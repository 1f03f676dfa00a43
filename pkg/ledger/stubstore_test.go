package ledger

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"testing"
)

type earningsKey struct {
	agentID        AgentID
	ownerAccountID AccountID
}

// stubStore is an in-memory Store. WithTx serializes callbacks with a mutex
// and restores a pre-callback snapshot when the callback fails, so a failed
// operation leaves no partial state behind.
type stubStore struct {
	mu           sync.Mutex
	accounts     map[AccountID]Account
	transactions []Transaction
	purchases    map[PurchaseID]Purchase
	earnings     map[earningsKey]AgentEarnings
	payouts      map[PayoutID]Payout
	payoutSeq    int

	getAccountError          error
	getAccountForUpdateError error
	updateBalanceError       error
	insertTransactionError   error
	sumTransactionsError     error
	createPurchaseError      error
	getPurchaseError         error
	updatePurchaseError      error
	upsertEarningsError      error
	listEarningsError        error
	applyEarningsError       error
	createPayoutError        error
	getPayoutError           error
	updatePayoutError        error
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		accounts:  make(map[AccountID]Account),
		purchases: make(map[PurchaseID]Purchase),
		earnings:  make(map[earningsKey]AgentEarnings),
		payouts:   make(map[PayoutID]Payout),
	}
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	snapshot := store.snapshot()
	if err := fn(ctx, store); err != nil {
		store.restore(snapshot)
		return err
	}
	return nil
}

type stubSnapshot struct {
	accounts     map[AccountID]Account
	transactions []Transaction
	purchases    map[PurchaseID]Purchase
	earnings     map[earningsKey]AgentEarnings
	payouts      map[PayoutID]Payout
	payoutSeq    int
}

func (store *stubStore) snapshot() stubSnapshot {
	return stubSnapshot{
		accounts:     maps.Clone(store.accounts),
		transactions: slices.Clone(store.transactions),
		purchases:    maps.Clone(store.purchases),
		earnings:     maps.Clone(store.earnings),
		payouts:      maps.Clone(store.payouts),
		payoutSeq:    store.payoutSeq,
	}
}

func (store *stubStore) restore(snapshot stubSnapshot) {
	store.accounts = snapshot.accounts
	store.transactions = snapshot.transactions
	store.purchases = snapshot.purchases
	store.earnings = snapshot.earnings
	store.payouts = snapshot.payouts
	store.payoutSeq = snapshot.payoutSeq
}

func (store *stubStore) GetOrCreateAccount(ctx context.Context, accountID AccountID, createdUnixUTC int64) (Account, error) {
	if store.getAccountError != nil {
		return Account{}, store.getAccountError
	}
	if account, ok := store.accounts[accountID]; ok {
		return account, nil
	}
	account := Account{AccountID: accountID, CreatedUnixUTC: createdUnixUTC}
	store.accounts[accountID] = account
	return account, nil
}

func (store *stubStore) GetAccount(ctx context.Context, accountID AccountID) (Account, error) {
	if store.getAccountError != nil {
		return Account{}, store.getAccountError
	}
	account, ok := store.accounts[accountID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (store *stubStore) GetAccountForUpdate(ctx context.Context, accountID AccountID) (Account, error) {
	if store.getAccountForUpdateError != nil {
		return Account{}, store.getAccountForUpdateError
	}
	account, ok := store.accounts[accountID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (store *stubStore) UpdateAccountBalance(ctx context.Context, accountID AccountID, balanceCents AmountCents) error {
	if store.updateBalanceError != nil {
		return store.updateBalanceError
	}
	account, ok := store.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	account.BalanceCents = balanceCents
	store.accounts[accountID] = account
	return nil
}

func (store *stubStore) InsertTransaction(ctx context.Context, transaction Transaction) error {
	if store.insertTransactionError != nil {
		return store.insertTransactionError
	}
	transaction.TransactionID = fmt.Sprintf("txn-%d", len(store.transactions)+1)
	store.transactions = append(store.transactions, transaction)
	return nil
}

func (store *stubStore) SumTransactions(ctx context.Context, accountID AccountID) (AmountCents, error) {
	if store.sumTransactionsError != nil {
		return 0, store.sumTransactionsError
	}
	var sum AmountCents
	for _, transaction := range store.transactions {
		if transaction.AccountID == accountID {
			sum += transaction.AmountCents
		}
	}
	return sum, nil
}

func (store *stubStore) ListTransactions(ctx context.Context, accountID AccountID, beforeUnixUTC int64, limit int) ([]Transaction, error) {
	out := make([]Transaction, 0, limit)
	for index := len(store.transactions) - 1; index >= 0 && len(out) < limit; index-- {
		transaction := store.transactions[index]
		if transaction.AccountID == accountID && transaction.CreatedUnixUTC < beforeUnixUTC {
			out = append(out, transaction)
		}
	}
	return out, nil
}

func (store *stubStore) CreatePurchase(ctx context.Context, purchase Purchase) error {
	if store.createPurchaseError != nil {
		return store.createPurchaseError
	}
	if _, exists := store.purchases[purchase.PurchaseID]; exists {
		return ErrPurchaseExists
	}
	store.purchases[purchase.PurchaseID] = purchase
	return nil
}

func (store *stubStore) GetPurchaseForUpdate(ctx context.Context, purchaseID PurchaseID) (Purchase, error) {
	if store.getPurchaseError != nil {
		return Purchase{}, store.getPurchaseError
	}
	purchase, ok := store.purchases[purchaseID]
	if !ok {
		return Purchase{}, ErrPurchaseNotFound
	}
	return purchase, nil
}

func (store *stubStore) UpdatePurchaseStatus(ctx context.Context, purchaseID PurchaseID, from, to PurchaseStatus, paymentReference string, failureReason string, completedUnixUTC int64) error {
	if store.updatePurchaseError != nil {
		return store.updatePurchaseError
	}
	purchase, ok := store.purchases[purchaseID]
	if !ok || purchase.Status != from {
		return ErrAlreadyProcessed
	}
	purchase.Status = to
	if paymentReference != "" {
		purchase.PaymentReference = paymentReference
	}
	if failureReason != "" {
		purchase.FailureReason = failureReason
	}
	if completedUnixUTC != 0 {
		purchase.CompletedUnixUTC = completedUnixUTC
	}
	store.purchases[purchaseID] = purchase
	return nil
}

func (store *stubStore) UpsertEarnings(ctx context.Context, agentID AgentID, ownerAccountID AccountID, deltaCents AmountCents, earnedUnixUTC int64) error {
	if store.upsertEarningsError != nil {
		return store.upsertEarningsError
	}
	key := earningsKey{agentID: agentID, ownerAccountID: ownerAccountID}
	row := store.earnings[key]
	row.AgentID = agentID
	row.OwnerAccountID = ownerAccountID
	row.TotalEarningsCents += deltaCents
	row.PendingEarningsCents += deltaCents
	row.TotalExecutions++
	row.LastEarningUnixUTC = earnedUnixUTC
	store.earnings[key] = row
	return nil
}

func (store *stubStore) ListEarningsByOwner(ctx context.Context, ownerAccountID AccountID) ([]AgentEarnings, error) {
	if store.listEarningsError != nil {
		return nil, store.listEarningsError
	}
	rows := make([]AgentEarnings, 0, len(store.earnings))
	for key, row := range store.earnings {
		if key.ownerAccountID == ownerAccountID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(left, right int) bool {
		return rows[left].AgentID.String() < rows[right].AgentID.String()
	})
	return rows, nil
}

func (store *stubStore) ListEarningsByOwnerForUpdate(ctx context.Context, ownerAccountID AccountID) ([]AgentEarnings, error) {
	return store.ListEarningsByOwner(ctx, ownerAccountID)
}

func (store *stubStore) ApplyEarningsPayout(ctx context.Context, agentID AgentID, ownerAccountID AccountID, amountCents AmountCents) error {
	if store.applyEarningsError != nil {
		return store.applyEarningsError
	}
	key := earningsKey{agentID: agentID, ownerAccountID: ownerAccountID}
	row, ok := store.earnings[key]
	if !ok {
		return ErrInsufficientPendingEarnings
	}
	if amountCents >= 0 && row.PendingEarningsCents < amountCents {
		return ErrInsufficientPendingEarnings
	}
	if amountCents < 0 && row.PaidOutCents < -amountCents {
		return ErrInsufficientPendingEarnings
	}
	row.PendingEarningsCents -= amountCents
	row.PaidOutCents += amountCents
	store.earnings[key] = row
	return nil
}

func (store *stubStore) CreatePayout(ctx context.Context, payout Payout) (PayoutID, error) {
	if store.createPayoutError != nil {
		return PayoutID{}, store.createPayoutError
	}
	store.payoutSeq++
	payoutID, err := NewPayoutID(fmt.Sprintf("payout-%d", store.payoutSeq))
	if err != nil {
		return PayoutID{}, err
	}
	payout.PayoutID = payoutID
	store.payouts[payoutID] = payout
	return payoutID, nil
}

func (store *stubStore) GetPayoutForUpdate(ctx context.Context, payoutID PayoutID) (Payout, error) {
	if store.getPayoutError != nil {
		return Payout{}, store.getPayoutError
	}
	payout, ok := store.payouts[payoutID]
	if !ok {
		return Payout{}, ErrPayoutNotFound
	}
	return payout, nil
}

func (store *stubStore) UpdatePayoutStatus(ctx context.Context, payoutID PayoutID, from, to PayoutStatus, transferID string, failureReason string, processedUnixUTC int64) error {
	if store.updatePayoutError != nil {
		return store.updatePayoutError
	}
	payout, ok := store.payouts[payoutID]
	if !ok || payout.Status != from {
		return ErrAlreadyProcessed
	}
	payout.Status = to
	if transferID != "" {
		payout.TransferID = transferID
	}
	if failureReason != "" {
		payout.FailureReason = failureReason
	}
	if processedUnixUTC != 0 {
		payout.ProcessedUnixUTC = processedUnixUTC
	}
	store.payouts[payoutID] = payout
	return nil
}

func (store *stubStore) ListPayouts(ctx context.Context, accountID AccountID, beforeUnixUTC int64, limit int) ([]Payout, error) {
	out := make([]Payout, 0, limit)
	for _, payout := range store.payouts {
		if payout.AccountID == accountID && payout.CreatedUnixUTC < beforeUnixUTC && len(out) < limit {
			out = append(out, payout)
		}
	}
	return out, nil
}

func (store *stubStore) mustEarnings(test *testing.T, agentID AgentID, ownerAccountID AccountID) AgentEarnings {
	test.Helper()
	row, ok := store.earnings[earningsKey{agentID: agentID, ownerAccountID: ownerAccountID}]
	if !ok {
		test.Fatalf("earnings for %s/%s not found", agentID.String(), ownerAccountID.String())
	}
	return row
}

func (store *stubStore) mustPayout(test *testing.T, payoutID PayoutID) Payout {
	test.Helper()
	payout, ok := store.payouts[payoutID]
	if !ok {
		test.Fatalf("payout %s not found", payoutID.String())
	}
	return payout
}

func mustNewService(test *testing.T, store Store) *Service {
	test.Helper()
	return mustNewServiceWithConfig(test, store, DefaultConfig())
}

func mustNewServiceWithConfig(test *testing.T, store Store, config Config, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(store, config, func() int64 { return 100 }, options...)
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustOpenAccount(test *testing.T, service *Service, raw string) AccountID {
	test.Helper()
	accountID := mustAccountID(test, raw)
	if _, err := service.OpenAccount(context.Background(), accountID); err != nil {
		test.Fatalf("open account: %v", err)
	}
	return accountID
}

func mustAccountID(test *testing.T, raw string) AccountID {
	test.Helper()
	value, err := NewAccountID(raw)
	if err != nil {
		test.Fatalf("account id: %v", err)
	}
	return value
}

func mustAgentID(test *testing.T, raw string) AgentID {
	test.Helper()
	value, err := NewAgentID(raw)
	if err != nil {
		test.Fatalf("agent id: %v", err)
	}
	return value
}

func mustPurchaseID(test *testing.T, raw string) PurchaseID {
	test.Helper()
	value, err := NewPurchaseID(raw)
	if err != nil {
		test.Fatalf("purchase id: %v", err)
	}
	return value
}

func mustPayoutID(test *testing.T, raw string) PayoutID {
	test.Helper()
	value, err := NewPayoutID(raw)
	if err != nil {
		test.Fatalf("payout id: %v", err)
	}
	return value
}

func mustMetadata(test *testing.T, raw string) MetadataJSON {
	test.Helper()
	value, err := NewMetadataJSON(raw)
	if err != nil {
		test.Fatalf("metadata: %v", err)
	}
	return value
}

type stubRail struct {
	transferID string
	err        error
	requests   []TransferRequest
}

func (rail *stubRail) InitiateTransfer(ctx context.Context, request TransferRequest) (TransferReceipt, error) {
	rail.requests = append(rail.requests, request)
	if rail.err != nil {
		return TransferReceipt{}, rail.err
	}
	return TransferReceipt{TransferID: rail.transferID}, nil
}
