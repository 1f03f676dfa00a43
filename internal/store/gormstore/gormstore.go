package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/agentbazaar/ledger/pkg/ledger"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultMetadataJSON   = "{}"
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19
	errorOperationStore   = "store"
	errorSubjectAccount   = "account"
	errorSubjectBalance   = "balance"
	errorSubjectTx        = "transaction"
	errorSubjectPurchase  = "purchase"
	errorSubjectEarnings  = "earnings"
	errorSubjectPayout    = "payout"
	errorCodeCreate       = "create"
	errorCodeDuplicate    = "duplicate"
	errorCodeGet          = "get"
	errorCodeInsert       = "insert"
	errorCodeInvalid      = "invalid"
	errorCodeList         = "list"
	errorCodeLookup       = "lookup"
	errorCodeSum          = "sum"
	errorCodeUpdate       = "update"
	errorCodeUpdateStatus = "update_status"
	errorCodeUpsert       = "upsert"
)

// Store implements ledger.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the ledger tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Account{}, &CreditTransaction{}, &CreditPurchase{}, &AgentEarnings{}, &Payout{})
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore ledger.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) GetOrCreateAccount(ctx context.Context, accountID ledger.AccountID, createdUnixUTC int64) (ledger.Account, error) {
	var account Account
	err := store.db.WithContext(ctx).
		Where(Account{AccountID: accountID.String()}).
		Attrs(Account{BalanceCents: 0, CreatedAt: time.Unix(createdUnixUTC, 0).UTC()}).
		FirstOrCreate(&account).Error
	if err != nil {
		return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeLookup, err)
	}
	return mapAccount(account)
}

func (store *Store) GetAccount(ctx context.Context, accountID ledger.AccountID) (ledger.Account, error) {
	return store.getAccount(ctx, accountID, false)
}

func (store *Store) GetAccountForUpdate(ctx context.Context, accountID ledger.AccountID) (ledger.Account, error) {
	return store.getAccount(ctx, accountID, true)
}

func (store *Store) getAccount(ctx context.Context, accountID ledger.AccountID, forUpdate bool) (ledger.Account, error) {
	query := store.db.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var account Account
	err := query.Where("account_id = ?", accountID.String()).Take(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, ledger.ErrAccountNotFound)
		}
		return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	return mapAccount(account)
}

func (store *Store) UpdateAccountBalance(ctx context.Context, accountID ledger.AccountID, balanceCents ledger.AmountCents) error {
	result := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("account_id = ?", accountID.String()).
		Update("balance_cents", balanceCents.Int64())
	if result.Error != nil {
		return wrapStoreError(errorSubjectBalance, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectBalance, errorCodeUpdate, ledger.ErrAccountNotFound)
	}
	return nil
}

func (store *Store) InsertTransaction(ctx context.Context, transaction ledger.Transaction) error {
	row := CreditTransaction{
		TransactionID:      transaction.TransactionID,
		AccountID:          transaction.AccountID.String(),
		AmountCents:        transaction.AmountCents.Int64(),
		Kind:               transaction.Kind.String(),
		Description:        transaction.Description,
		BalanceBeforeCents: transaction.BalanceBeforeCents.Int64(),
		BalanceAfterCents:  transaction.BalanceAfterCents.Int64(),
		ReferenceID:        transaction.ReferenceID,
		ReferenceType:      transaction.ReferenceType.String(),
		Metadata:           datatypesJSON(transaction.Metadata.String()),
		CreatedAt:          time.Unix(transaction.CreatedUnixUTC, 0).UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapStoreError(errorSubjectTx, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) SumTransactions(ctx context.Context, accountID ledger.AccountID) (ledger.AmountCents, error) {
	var sum sqlSum
	err := store.db.WithContext(ctx).
		Model(&CreditTransaction{}).
		Select("coalesce(sum(amount_cents),0) as total").
		Where("account_id = ?", accountID.String()).
		Scan(&sum).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectBalance, errorCodeSum, err)
	}
	return ledger.AmountCents(sum.Total), nil
}

func (store *Store) ListTransactions(ctx context.Context, accountID ledger.AccountID, beforeUnixUTC int64, limit int) ([]ledger.Transaction, error) {
	before := time.Unix(beforeUnixUTC, 0).UTC()
	if beforeUnixUTC == 0 {
		before = time.Now().UTC().Add(time.Second)
	}

	var rows []CreditTransaction
	err := store.db.WithContext(ctx).
		Where("account_id = ? AND created_at < ?", accountID.String(), before).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectTx, errorCodeList, err)
	}

	transactions := make([]ledger.Transaction, 0, len(rows))
	for _, row := range rows {
		transaction, err := mapTransaction(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectTx, errorCodeInvalid, err)
		}
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}

func (store *Store) CreatePurchase(ctx context.Context, purchase ledger.Purchase) error {
	row := CreditPurchase{
		PurchaseID:        purchase.PurchaseID.String(),
		AccountID:         purchase.AccountID.String(),
		AmountCents:       purchase.AmountCents.Int64(),
		CreditsPurchased:  purchase.CreditsPurchased.Int64(),
		Currency:          purchase.Currency,
		CheckoutSessionID: purchase.CheckoutSessionID,
		Status:            purchase.Status.String(),
		CreatedAt:         time.Unix(purchase.CreatedUnixUTC, 0).UTC(),
	}
	err := store.db.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectPurchase, errorCodeDuplicate, ledger.ErrPurchaseExists)
	}
	if err != nil {
		return wrapStoreError(errorSubjectPurchase, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetPurchaseForUpdate(ctx context.Context, purchaseID ledger.PurchaseID) (ledger.Purchase, error) {
	var row CreditPurchase
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("purchase_id = ?", purchaseID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Purchase{}, wrapStoreError(errorSubjectPurchase, errorCodeGet, ledger.ErrPurchaseNotFound)
		}
		return ledger.Purchase{}, wrapStoreError(errorSubjectPurchase, errorCodeGet, err)
	}
	purchase, err := mapPurchase(row)
	if err != nil {
		return ledger.Purchase{}, wrapStoreError(errorSubjectPurchase, errorCodeInvalid, err)
	}
	return purchase, nil
}

func (store *Store) UpdatePurchaseStatus(ctx context.Context, purchaseID ledger.PurchaseID, from, to ledger.PurchaseStatus, paymentReference string, failureReason string, completedUnixUTC int64) error {
	updates := map[string]interface{}{"status": to.String()}
	if paymentReference != "" {
		updates["payment_reference"] = paymentReference
	}
	if failureReason != "" {
		updates["failure_reason"] = failureReason
	}
	if completedUnixUTC != 0 {
		updates["completed_at"] = time.Unix(completedUnixUTC, 0).UTC()
	}
	result := store.db.WithContext(ctx).
		Model(&CreditPurchase{}).
		Where("purchase_id = ? AND status = ?", purchaseID.String(), from.String()).
		Updates(updates)
	if result.Error != nil {
		return wrapStoreError(errorSubjectPurchase, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectPurchase, errorCodeUpdateStatus, ledger.ErrAlreadyProcessed)
	}
	return nil
}

func (store *Store) UpsertEarnings(ctx context.Context, agentID ledger.AgentID, ownerAccountID ledger.AccountID, deltaCents ledger.AmountCents, earnedUnixUTC int64) error {
	earnedAt := time.Unix(earnedUnixUTC, 0).UTC()
	row := AgentEarnings{
		AgentID:              agentID.String(),
		OwnerAccountID:       ownerAccountID.String(),
		TotalEarningsCents:   deltaCents.Int64(),
		PendingEarningsCents: deltaCents.Int64(),
		TotalExecutions:      1,
		LastEarningAt:        &earnedAt,
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "agent_id"}, {Name: "owner_account_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_earnings_cents":   gorm.Expr("agent_earnings.total_earnings_cents + ?", deltaCents.Int64()),
				"pending_earnings_cents": gorm.Expr("agent_earnings.pending_earnings_cents + ?", deltaCents.Int64()),
				"total_executions":       gorm.Expr("agent_earnings.total_executions + 1"),
				"last_earning_at":        earnedAt,
			}),
		}).
		Create(&row).Error
	if err != nil {
		return wrapStoreError(errorSubjectEarnings, errorCodeUpsert, err)
	}
	return nil
}

func (store *Store) ListEarningsByOwner(ctx context.Context, ownerAccountID ledger.AccountID) ([]ledger.AgentEarnings, error) {
	return store.listEarnings(ctx, ownerAccountID, false)
}

func (store *Store) ListEarningsByOwnerForUpdate(ctx context.Context, ownerAccountID ledger.AccountID) ([]ledger.AgentEarnings, error) {
	return store.listEarnings(ctx, ownerAccountID, true)
}

func (store *Store) listEarnings(ctx context.Context, ownerAccountID ledger.AccountID, forUpdate bool) ([]ledger.AgentEarnings, error) {
	query := store.db.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []AgentEarnings
	err := query.
		Where("owner_account_id = ?", ownerAccountID.String()).
		Order("agent_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEarnings, errorCodeList, err)
	}
	earnings := make([]ledger.AgentEarnings, 0, len(rows))
	for _, row := range rows {
		mapped, err := mapEarnings(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectEarnings, errorCodeInvalid, err)
		}
		earnings = append(earnings, mapped)
	}
	return earnings, nil
}

func (store *Store) ApplyEarningsPayout(ctx context.Context, agentID ledger.AgentID, ownerAccountID ledger.AccountID, amountCents ledger.AmountCents) error {
	amount := amountCents.Int64()
	query := store.db.WithContext(ctx).
		Model(&AgentEarnings{}).
		Where("agent_id = ? AND owner_account_id = ?", agentID.String(), ownerAccountID.String())
	if amount >= 0 {
		query = query.Where("pending_earnings_cents >= ?", amount)
	} else {
		query = query.Where("paid_out_cents >= ?", -amount)
	}
	result := query.Updates(map[string]interface{}{
		"pending_earnings_cents": gorm.Expr("pending_earnings_cents - ?", amount),
		"paid_out_cents":         gorm.Expr("paid_out_cents + ?", amount),
	})
	if result.Error != nil {
		return wrapStoreError(errorSubjectEarnings, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectEarnings, errorCodeUpdate, ledger.ErrInsufficientPendingEarnings)
	}
	return nil
}

func (store *Store) CreatePayout(ctx context.Context, payout ledger.Payout) (ledger.PayoutID, error) {
	row := Payout{
		AccountID:      payout.AccountID.String(),
		AmountCents:    payout.AmountCents.Int64(),
		Status:         payout.Status.String(),
		Description:    payout.Description,
		DestinationRef: payout.DestinationRef,
		CreatedAt:      time.Unix(payout.CreatedUnixUTC, 0).UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return ledger.PayoutID{}, wrapStoreError(errorSubjectPayout, errorCodeCreate, err)
	}
	payoutID, err := ledger.NewPayoutID(row.PayoutID)
	if err != nil {
		return ledger.PayoutID{}, wrapStoreError(errorSubjectPayout, errorCodeInvalid, err)
	}
	return payoutID, nil
}

func (store *Store) GetPayoutForUpdate(ctx context.Context, payoutID ledger.PayoutID) (ledger.Payout, error) {
	var row Payout
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payout_id = ?", payoutID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Payout{}, wrapStoreError(errorSubjectPayout, errorCodeGet, ledger.ErrPayoutNotFound)
		}
		return ledger.Payout{}, wrapStoreError(errorSubjectPayout, errorCodeGet, err)
	}
	payout, err := mapPayout(row)
	if err != nil {
		return ledger.Payout{}, wrapStoreError(errorSubjectPayout, errorCodeInvalid, err)
	}
	return payout, nil
}

func (store *Store) UpdatePayoutStatus(ctx context.Context, payoutID ledger.PayoutID, from, to ledger.PayoutStatus, transferID string, failureReason string, processedUnixUTC int64) error {
	updates := map[string]interface{}{"status": to.String()}
	if transferID != "" {
		updates["transfer_id"] = transferID
	}
	if failureReason != "" {
		updates["failure_reason"] = failureReason
	}
	if processedUnixUTC != 0 {
		updates["processed_at"] = time.Unix(processedUnixUTC, 0).UTC()
	}
	result := store.db.WithContext(ctx).
		Model(&Payout{}).
		Where("payout_id = ? AND status = ?", payoutID.String(), from.String()).
		Updates(updates)
	if result.Error != nil {
		return wrapStoreError(errorSubjectPayout, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectPayout, errorCodeUpdateStatus, ledger.ErrAlreadyProcessed)
	}
	return nil
}

func (store *Store) ListPayouts(ctx context.Context, accountID ledger.AccountID, beforeUnixUTC int64, limit int) ([]ledger.Payout, error) {
	before := time.Unix(beforeUnixUTC, 0).UTC()
	if beforeUnixUTC == 0 {
		before = time.Now().UTC().Add(time.Second)
	}
	var rows []Payout
	err := store.db.WithContext(ctx).
		Where("account_id = ? AND created_at < ?", accountID.String(), before).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectPayout, errorCodeList, err)
	}
	payouts := make([]ledger.Payout, 0, len(rows))
	for _, row := range rows {
		payout, err := mapPayout(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectPayout, errorCodeInvalid, err)
		}
		payouts = append(payouts, payout)
	}
	return payouts, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return ledger.WrapError(errorOperationStore, subject, code, err)
}

type sqlSum struct {
	Total int64
}

func mapAccount(row Account) (ledger.Account, error) {
	accountID, err := ledger.NewAccountID(row.AccountID)
	if err != nil {
		return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	return ledger.Account{
		AccountID:      accountID,
		BalanceCents:   ledger.AmountCents(row.BalanceCents),
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func mapTransaction(row CreditTransaction) (ledger.Transaction, error) {
	accountID, err := ledger.NewAccountID(row.AccountID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	kind, err := ledger.ParseTransactionKind(row.Kind)
	if err != nil {
		return ledger.Transaction{}, err
	}
	metadata, err := ledger.NewMetadataJSON(string(row.Metadata))
	if err != nil {
		return ledger.Transaction{}, err
	}
	return ledger.Transaction{
		TransactionID:      row.TransactionID,
		AccountID:          accountID,
		AmountCents:        ledger.AmountCents(row.AmountCents),
		Kind:               kind,
		Description:        row.Description,
		BalanceBeforeCents: ledger.AmountCents(row.BalanceBeforeCents),
		BalanceAfterCents:  ledger.AmountCents(row.BalanceAfterCents),
		ReferenceID:        row.ReferenceID,
		ReferenceType:      ledger.ReferenceType(row.ReferenceType),
		Metadata:           metadata,
		CreatedUnixUTC:     row.CreatedAt.Unix(),
	}, nil
}

func mapPurchase(row CreditPurchase) (ledger.Purchase, error) {
	purchaseID, err := ledger.NewPurchaseID(row.PurchaseID)
	if err != nil {
		return ledger.Purchase{}, err
	}
	accountID, err := ledger.NewAccountID(row.AccountID)
	if err != nil {
		return ledger.Purchase{}, err
	}
	status, err := ledger.ParsePurchaseStatus(row.Status)
	if err != nil {
		return ledger.Purchase{}, err
	}
	return ledger.Purchase{
		PurchaseID:        purchaseID,
		AccountID:         accountID,
		AmountCents:       ledger.AmountCents(row.AmountCents),
		CreditsPurchased:  ledger.AmountCents(row.CreditsPurchased),
		Currency:          row.Currency,
		CheckoutSessionID: row.CheckoutSessionID,
		PaymentReference:  row.PaymentReference,
		Status:            status,
		FailureReason:     row.FailureReason,
		CreatedUnixUTC:    row.CreatedAt.Unix(),
		CompletedUnixUTC:  timeOrZero(row.CompletedAt),
	}, nil
}

func mapEarnings(row AgentEarnings) (ledger.AgentEarnings, error) {
	agentID, err := ledger.NewAgentID(row.AgentID)
	if err != nil {
		return ledger.AgentEarnings{}, err
	}
	ownerAccountID, err := ledger.NewAccountID(row.OwnerAccountID)
	if err != nil {
		return ledger.AgentEarnings{}, err
	}
	return ledger.AgentEarnings{
		AgentID:              agentID,
		OwnerAccountID:       ownerAccountID,
		TotalEarningsCents:   ledger.AmountCents(row.TotalEarningsCents),
		PendingEarningsCents: ledger.AmountCents(row.PendingEarningsCents),
		PaidOutCents:         ledger.AmountCents(row.PaidOutCents),
		TotalExecutions:      row.TotalExecutions,
		LastEarningUnixUTC:   timeOrZero(row.LastEarningAt),
	}, nil
}

func mapPayout(row Payout) (ledger.Payout, error) {
	payoutID, err := ledger.NewPayoutID(row.PayoutID)
	if err != nil {
		return ledger.Payout{}, err
	}
	accountID, err := ledger.NewAccountID(row.AccountID)
	if err != nil {
		return ledger.Payout{}, err
	}
	status, err := ledger.ParsePayoutStatus(row.Status)
	if err != nil {
		return ledger.Payout{}, err
	}
	return ledger.Payout{
		PayoutID:         payoutID,
		AccountID:        accountID,
		AmountCents:      ledger.AmountCents(row.AmountCents),
		Status:           status,
		Description:      row.Description,
		FailureReason:    row.FailureReason,
		TransferID:       row.TransferID,
		DestinationRef:   row.DestinationRef,
		CreatedUnixUTC:   row.CreatedAt.Unix(),
		ProcessedUnixUTC: timeOrZero(row.ProcessedAt),
	}, nil
}

func timeOrZero(value *time.Time) int64 {
	if value == nil {
		return 0
	}
	return value.Unix()
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(defaultMetadataJSON))
	}
	return datatypes.JSON([]byte(raw))
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
