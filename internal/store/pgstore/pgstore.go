package pgstore

import (
	"context"
	"errors"

	"github.com/agentbazaar/ledger/pkg/ledger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolationCode = "23505"
	errorOperationStore   = "store"
	errorSubjectAccount   = "account"
	errorSubjectBalance   = "balance"
	errorSubjectTx        = "transaction"
	errorSubjectPurchase  = "purchase"
	errorSubjectEarnings  = "earnings"
	errorSubjectPayout    = "payout"
	errorCodeBegin        = "begin"
	errorCodeCommit       = "commit"
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

	sqlInsertOrGetAccount = `
		insert into accounts(account_id, balance_cents, created_at)
		values($1, 0, to_timestamp($2))
		on conflict (account_id) do update set account_id = excluded.account_id
		returning account_id, balance_cents, extract(epoch from created_at)::bigint
	`

	sqlSelectAccount = `
		select account_id, balance_cents, extract(epoch from created_at)::bigint
		from accounts where account_id = $1
	`

	sqlSelectAccountForUpdate = sqlSelectAccount + ` for update`

	sqlUpdateAccountBalance = `
		update accounts set balance_cents = $2 where account_id = $1
	`

	sqlInsertTransaction = `
		insert into credit_transactions(
			transaction_id, account_id, amount_cents, kind, description,
			balance_before_cents, balance_after_cents, reference_id, reference_type, metadata, created_at
		)
		values(
			gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8,
			coalesce(nullif($9,''),'{}')::jsonb, to_timestamp($10)
		)
	`

	sqlSumTransactions = `
		select coalesce(sum(amount_cents),0) from credit_transactions where account_id = $1
	`

	sqlListTransactions = `
		select
			transaction_id::text, account_id, amount_cents, kind,
			coalesce(description,''), balance_before_cents, balance_after_cents,
			coalesce(reference_id,''), coalesce(reference_type,''),
			coalesce(metadata::text,'{}'), extract(epoch from created_at)::bigint
		from credit_transactions
		where account_id = $1 and created_at < to_timestamp($2)
		order by created_at desc
		limit $3
	`

	sqlInsertPurchase = `
		insert into credit_purchases(
			purchase_id, account_id, amount_cents, credits_purchased, currency,
			checkout_session_id, status, created_at
		)
		values($1, $2, $3, $4, $5, $6, $7, to_timestamp($8))
	`

	sqlSelectPurchaseForUpdate = `
		select
			purchase_id, account_id, amount_cents, credits_purchased, currency,
			coalesce(checkout_session_id,''), coalesce(payment_reference,''), status,
			coalesce(failure_reason,''), extract(epoch from created_at)::bigint,
			coalesce(extract(epoch from completed_at)::bigint,0)
		from credit_purchases
		where purchase_id = $1
		for update
	`

	sqlUpdatePurchaseStatus = `
		update credit_purchases
		set status = $3,
			payment_reference = coalesce(nullif($4,''), payment_reference),
			failure_reason = coalesce(nullif($5,''), failure_reason),
			completed_at = coalesce(to_timestamp(nullif($6,0)), completed_at)
		where purchase_id = $1 and status = $2
	`

	sqlUpsertEarnings = `
		insert into agent_earnings(
			agent_id, owner_account_id, total_earnings_cents, pending_earnings_cents,
			paid_out_cents, total_executions, last_earning_at, updated_at
		)
		values($1, $2, $3, $3, 0, 1, to_timestamp($4), now())
		on conflict (agent_id, owner_account_id) do update set
			total_earnings_cents = agent_earnings.total_earnings_cents + excluded.total_earnings_cents,
			pending_earnings_cents = agent_earnings.pending_earnings_cents + excluded.pending_earnings_cents,
			total_executions = agent_earnings.total_executions + 1,
			last_earning_at = excluded.last_earning_at,
			updated_at = now()
	`

	sqlListEarningsByOwner = `
		select
			agent_id, owner_account_id, total_earnings_cents, pending_earnings_cents,
			paid_out_cents, total_executions, coalesce(extract(epoch from last_earning_at)::bigint,0)
		from agent_earnings
		where owner_account_id = $1
		order by agent_id asc
	`

	sqlListEarningsByOwnerForUpdate = sqlListEarningsByOwner + `
		for update
	`

	sqlApplyEarningsPayout = `
		update agent_earnings
		set pending_earnings_cents = pending_earnings_cents - $3,
			paid_out_cents = paid_out_cents + $3,
			updated_at = now()
		where agent_id = $1 and owner_account_id = $2
			and (($3 >= 0 and pending_earnings_cents >= $3) or ($3 < 0 and paid_out_cents >= -$3))
	`

	sqlInsertPayout = `
		insert into payouts(
			payout_id, account_id, amount_cents, status, description, destination_ref, created_at
		)
		values(gen_random_uuid(), $1, $2, $3, $4, $5, to_timestamp($6))
		returning payout_id::text
	`

	sqlSelectPayoutForUpdate = `
		select
			payout_id::text, account_id, amount_cents, status, coalesce(description,''),
			coalesce(failure_reason,''), coalesce(transfer_id,''), coalesce(destination_ref,''),
			extract(epoch from created_at)::bigint, coalesce(extract(epoch from processed_at)::bigint,0)
		from payouts
		where payout_id = $1
		for update
	`

	sqlUpdatePayoutStatus = `
		update payouts
		set status = $3,
			transfer_id = coalesce(nullif($4,''), transfer_id),
			failure_reason = coalesce(nullif($5,''), failure_reason),
			processed_at = coalesce(to_timestamp(nullif($6,0)), processed_at)
		where payout_id = $1 and status = $2
	`

	sqlListPayouts = `
		select
			payout_id::text, account_id, amount_cents, status, coalesce(description,''),
			coalesce(failure_reason,''), coalesce(transfer_id,''), coalesce(destination_ref,''),
			extract(epoch from created_at)::bigint, coalesce(extract(epoch from processed_at)::bigint,0)
		from payouts
		where account_id = $1 and created_at < to_timestamp($2)
		order by created_at desc
		limit $3
	`
)

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements ledger.Store using a pgx connection pool (autocommit).
type Store struct {
	pool *pgxpool.Pool
	q    querier
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

// WithTx executes fn within a database transaction. Nested calls reuse the
// open transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore ledger.Store) error) error {
	if store.pool == nil {
		return fn(ctx, store)
	}
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStoreError(errorSubjectTx, errorCodeBegin, err)
	}
	transactionStore := &Store{q: tx}
	if err := fn(ctx, transactionStore); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStoreError(errorSubjectTx, errorCodeCommit, err)
	}
	return nil
}

func (store *Store) GetOrCreateAccount(ctx context.Context, accountID ledger.AccountID, createdUnixUTC int64) (ledger.Account, error) {
	account, err := scanAccount(store.q.QueryRow(ctx, sqlInsertOrGetAccount, accountID.String(), createdUnixUTC))
	if err != nil {
		return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeLookup, err)
	}
	return account, nil
}

func (store *Store) GetAccount(ctx context.Context, accountID ledger.AccountID) (ledger.Account, error) {
	return store.getAccount(ctx, accountID, sqlSelectAccount)
}

func (store *Store) GetAccountForUpdate(ctx context.Context, accountID ledger.AccountID) (ledger.Account, error) {
	return store.getAccount(ctx, accountID, sqlSelectAccountForUpdate)
}

func (store *Store) getAccount(ctx context.Context, accountID ledger.AccountID, query string) (ledger.Account, error) {
	account, err := scanAccount(store.q.QueryRow(ctx, query, accountID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, ledger.ErrAccountNotFound)
		}
		return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	return account, nil
}

func (store *Store) UpdateAccountBalance(ctx context.Context, accountID ledger.AccountID, balanceCents ledger.AmountCents) error {
	tag, err := store.q.Exec(ctx, sqlUpdateAccountBalance, accountID.String(), balanceCents.Int64())
	if err != nil {
		return wrapStoreError(errorSubjectBalance, errorCodeUpdate, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectBalance, errorCodeUpdate, ledger.ErrAccountNotFound)
	}
	return nil
}

func (store *Store) InsertTransaction(ctx context.Context, transaction ledger.Transaction) error {
	_, err := store.q.Exec(ctx, sqlInsertTransaction,
		transaction.AccountID.String(),
		transaction.AmountCents.Int64(),
		transaction.Kind.String(),
		transaction.Description,
		transaction.BalanceBeforeCents.Int64(),
		transaction.BalanceAfterCents.Int64(),
		transaction.ReferenceID,
		transaction.ReferenceType.String(),
		transaction.Metadata.String(),
		transaction.CreatedUnixUTC,
	)
	if err != nil {
		return wrapStoreError(errorSubjectTx, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) SumTransactions(ctx context.Context, accountID ledger.AccountID) (ledger.AmountCents, error) {
	var sum int64
	if err := store.q.QueryRow(ctx, sqlSumTransactions, accountID.String()).Scan(&sum); err != nil {
		return 0, wrapStoreError(errorSubjectBalance, errorCodeSum, err)
	}
	return ledger.AmountCents(sum), nil
}

func (store *Store) ListTransactions(ctx context.Context, accountID ledger.AccountID, beforeUnixUTC int64, limit int) ([]ledger.Transaction, error) {
	rows, err := store.q.Query(ctx, sqlListTransactions, accountID.String(), beforeUnixUTC, limit)
	if err != nil {
		return nil, wrapStoreError(errorSubjectTx, errorCodeList, err)
	}
	defer rows.Close()
	transactions, err := scanTransactions(rows)
	if err != nil {
		return nil, wrapStoreError(errorSubjectTx, errorCodeInvalid, err)
	}
	return transactions, nil
}

func (store *Store) CreatePurchase(ctx context.Context, purchase ledger.Purchase) error {
	_, err := store.q.Exec(ctx, sqlInsertPurchase,
		purchase.PurchaseID.String(),
		purchase.AccountID.String(),
		purchase.AmountCents.Int64(),
		purchase.CreditsPurchased.Int64(),
		purchase.Currency,
		purchase.CheckoutSessionID,
		purchase.Status.String(),
		purchase.CreatedUnixUTC,
	)
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectPurchase, errorCodeDuplicate, ledger.ErrPurchaseExists)
	}
	if err != nil {
		return wrapStoreError(errorSubjectPurchase, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetPurchaseForUpdate(ctx context.Context, purchaseID ledger.PurchaseID) (ledger.Purchase, error) {
	purchase, err := scanPurchase(store.q.QueryRow(ctx, sqlSelectPurchaseForUpdate, purchaseID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Purchase{}, wrapStoreError(errorSubjectPurchase, errorCodeGet, ledger.ErrPurchaseNotFound)
		}
		return ledger.Purchase{}, wrapStoreError(errorSubjectPurchase, errorCodeGet, err)
	}
	return purchase, nil
}

func (store *Store) UpdatePurchaseStatus(ctx context.Context, purchaseID ledger.PurchaseID, from, to ledger.PurchaseStatus, paymentReference string, failureReason string, completedUnixUTC int64) error {
	tag, err := store.q.Exec(ctx, sqlUpdatePurchaseStatus,
		purchaseID.String(), from.String(), to.String(), paymentReference, failureReason, completedUnixUTC)
	if err != nil {
		return wrapStoreError(errorSubjectPurchase, errorCodeUpdateStatus, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectPurchase, errorCodeUpdateStatus, ledger.ErrAlreadyProcessed)
	}
	return nil
}

func (store *Store) UpsertEarnings(ctx context.Context, agentID ledger.AgentID, ownerAccountID ledger.AccountID, deltaCents ledger.AmountCents, earnedUnixUTC int64) error {
	_, err := store.q.Exec(ctx, sqlUpsertEarnings,
		agentID.String(), ownerAccountID.String(), deltaCents.Int64(), earnedUnixUTC)
	if err != nil {
		return wrapStoreError(errorSubjectEarnings, errorCodeUpsert, err)
	}
	return nil
}

func (store *Store) ListEarningsByOwner(ctx context.Context, ownerAccountID ledger.AccountID) ([]ledger.AgentEarnings, error) {
	return store.listEarnings(ctx, ownerAccountID, sqlListEarningsByOwner)
}

func (store *Store) ListEarningsByOwnerForUpdate(ctx context.Context, ownerAccountID ledger.AccountID) ([]ledger.AgentEarnings, error) {
	return store.listEarnings(ctx, ownerAccountID, sqlListEarningsByOwnerForUpdate)
}

func (store *Store) listEarnings(ctx context.Context, ownerAccountID ledger.AccountID, query string) ([]ledger.AgentEarnings, error) {
	rows, err := store.q.Query(ctx, query, ownerAccountID.String())
	if err != nil {
		return nil, wrapStoreError(errorSubjectEarnings, errorCodeList, err)
	}
	defer rows.Close()
	earnings, err := scanEarnings(rows)
	if err != nil {
		return nil, wrapStoreError(errorSubjectEarnings, errorCodeInvalid, err)
	}
	return earnings, nil
}

func (store *Store) ApplyEarningsPayout(ctx context.Context, agentID ledger.AgentID, ownerAccountID ledger.AccountID, amountCents ledger.AmountCents) error {
	tag, err := store.q.Exec(ctx, sqlApplyEarningsPayout,
		agentID.String(), ownerAccountID.String(), amountCents.Int64())
	if err != nil {
		return wrapStoreError(errorSubjectEarnings, errorCodeUpdate, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectEarnings, errorCodeUpdate, ledger.ErrInsufficientPendingEarnings)
	}
	return nil
}

func (store *Store) CreatePayout(ctx context.Context, payout ledger.Payout) (ledger.PayoutID, error) {
	var payoutIDValue string
	err := store.q.QueryRow(ctx, sqlInsertPayout,
		payout.AccountID.String(),
		payout.AmountCents.Int64(),
		payout.Status.String(),
		payout.Description,
		payout.DestinationRef,
		payout.CreatedUnixUTC,
	).Scan(&payoutIDValue)
	if err != nil {
		return ledger.PayoutID{}, wrapStoreError(errorSubjectPayout, errorCodeCreate, err)
	}
	payoutID, err := ledger.NewPayoutID(payoutIDValue)
	if err != nil {
		return ledger.PayoutID{}, wrapStoreError(errorSubjectPayout, errorCodeInvalid, err)
	}
	return payoutID, nil
}

func (store *Store) GetPayoutForUpdate(ctx context.Context, payoutID ledger.PayoutID) (ledger.Payout, error) {
	payout, err := scanPayout(store.q.QueryRow(ctx, sqlSelectPayoutForUpdate, payoutID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Payout{}, wrapStoreError(errorSubjectPayout, errorCodeGet, ledger.ErrPayoutNotFound)
		}
		return ledger.Payout{}, wrapStoreError(errorSubjectPayout, errorCodeGet, err)
	}
	return payout, nil
}

func (store *Store) UpdatePayoutStatus(ctx context.Context, payoutID ledger.PayoutID, from, to ledger.PayoutStatus, transferID string, failureReason string, processedUnixUTC int64) error {
	tag, err := store.q.Exec(ctx, sqlUpdatePayoutStatus,
		payoutID.String(), from.String(), to.String(), transferID, failureReason, processedUnixUTC)
	if err != nil {
		return wrapStoreError(errorSubjectPayout, errorCodeUpdateStatus, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectPayout, errorCodeUpdateStatus, ledger.ErrAlreadyProcessed)
	}
	return nil
}

func (store *Store) ListPayouts(ctx context.Context, accountID ledger.AccountID, beforeUnixUTC int64, limit int) ([]ledger.Payout, error) {
	rows, err := store.q.Query(ctx, sqlListPayouts, accountID.String(), beforeUnixUTC, limit)
	if err != nil {
		return nil, wrapStoreError(errorSubjectPayout, errorCodeList, err)
	}
	defer rows.Close()
	payouts := make([]ledger.Payout, 0, 16)
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectPayout, errorCodeInvalid, err)
		}
		payouts = append(payouts, payout)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectPayout, errorCodeList, err)
	}
	return payouts, nil
}

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var (
		accountIDValue string
		balanceCents   int64
		createdUnixUTC int64
	)
	if err := row.Scan(&accountIDValue, &balanceCents, &createdUnixUTC); err != nil {
		return ledger.Account{}, err
	}
	accountID, err := ledger.NewAccountID(accountIDValue)
	if err != nil {
		return ledger.Account{}, err
	}
	return ledger.Account{
		AccountID:      accountID,
		BalanceCents:   ledger.AmountCents(balanceCents),
		CreatedUnixUTC: createdUnixUTC,
	}, nil
}

func scanTransactions(rows pgx.Rows) ([]ledger.Transaction, error) {
	transactions := make([]ledger.Transaction, 0, 32)
	for rows.Next() {
		var (
			transactionIDValue string
			accountIDValue     string
			amountCents        int64
			kindValue          string
			description        string
			balanceBefore      int64
			balanceAfter       int64
			referenceID        string
			referenceType      string
			metadataValue      string
			createdUnixUTC     int64
		)
		if err := rows.Scan(
			&transactionIDValue,
			&accountIDValue,
			&amountCents,
			&kindValue,
			&description,
			&balanceBefore,
			&balanceAfter,
			&referenceID,
			&referenceType,
			&metadataValue,
			&createdUnixUTC,
		); err != nil {
			return nil, err
		}
		accountID, err := ledger.NewAccountID(accountIDValue)
		if err != nil {
			return nil, err
		}
		kind, err := ledger.ParseTransactionKind(kindValue)
		if err != nil {
			return nil, err
		}
		metadata, err := ledger.NewMetadataJSON(metadataValue)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, ledger.Transaction{
			TransactionID:      transactionIDValue,
			AccountID:          accountID,
			AmountCents:        ledger.AmountCents(amountCents),
			Kind:               kind,
			Description:        description,
			BalanceBeforeCents: ledger.AmountCents(balanceBefore),
			BalanceAfterCents:  ledger.AmountCents(balanceAfter),
			ReferenceID:        referenceID,
			ReferenceType:      ledger.ReferenceType(referenceType),
			Metadata:           metadata,
			CreatedUnixUTC:     createdUnixUTC,
		})
	}
	return transactions, rows.Err()
}

func scanPurchase(row pgx.Row) (ledger.Purchase, error) {
	var (
		purchaseIDValue   string
		accountIDValue    string
		amountCents       int64
		creditsPurchased  int64
		currency          string
		checkoutSessionID string
		paymentReference  string
		statusValue       string
		failureReason     string
		createdUnixUTC    int64
		completedUnixUTC  int64
	)
	if err := row.Scan(
		&purchaseIDValue,
		&accountIDValue,
		&amountCents,
		&creditsPurchased,
		&currency,
		&checkoutSessionID,
		&paymentReference,
		&statusValue,
		&failureReason,
		&createdUnixUTC,
		&completedUnixUTC,
	); err != nil {
		return ledger.Purchase{}, err
	}
	purchaseID, err := ledger.NewPurchaseID(purchaseIDValue)
	if err != nil {
		return ledger.Purchase{}, err
	}
	accountID, err := ledger.NewAccountID(accountIDValue)
	if err != nil {
		return ledger.Purchase{}, err
	}
	status, err := ledger.ParsePurchaseStatus(statusValue)
	if err != nil {
		return ledger.Purchase{}, err
	}
	return ledger.Purchase{
		PurchaseID:        purchaseID,
		AccountID:         accountID,
		AmountCents:       ledger.AmountCents(amountCents),
		CreditsPurchased:  ledger.AmountCents(creditsPurchased),
		Currency:          currency,
		CheckoutSessionID: checkoutSessionID,
		PaymentReference:  paymentReference,
		Status:            status,
		FailureReason:     failureReason,
		CreatedUnixUTC:    createdUnixUTC,
		CompletedUnixUTC:  completedUnixUTC,
	}, nil
}

func scanEarnings(rows pgx.Rows) ([]ledger.AgentEarnings, error) {
	earnings := make([]ledger.AgentEarnings, 0, 16)
	for rows.Next() {
		var (
			agentIDValue       string
			ownerIDValue       string
			totalCents         int64
			pendingCents       int64
			paidOutCents       int64
			totalExecutions    int64
			lastEarningUnixUTC int64
		)
		if err := rows.Scan(
			&agentIDValue,
			&ownerIDValue,
			&totalCents,
			&pendingCents,
			&paidOutCents,
			&totalExecutions,
			&lastEarningUnixUTC,
		); err != nil {
			return nil, err
		}
		agentID, err := ledger.NewAgentID(agentIDValue)
		if err != nil {
			return nil, err
		}
		ownerAccountID, err := ledger.NewAccountID(ownerIDValue)
		if err != nil {
			return nil, err
		}
		earnings = append(earnings, ledger.AgentEarnings{
			AgentID:              agentID,
			OwnerAccountID:       ownerAccountID,
			TotalEarningsCents:   ledger.AmountCents(totalCents),
			PendingEarningsCents: ledger.AmountCents(pendingCents),
			PaidOutCents:         ledger.AmountCents(paidOutCents),
			TotalExecutions:      totalExecutions,
			LastEarningUnixUTC:   lastEarningUnixUTC,
		})
	}
	return earnings, rows.Err()
}

func scanPayout(row pgx.Row) (ledger.Payout, error) {
	var (
		payoutIDValue    string
		accountIDValue   string
		amountCents      int64
		statusValue      string
		description      string
		failureReason    string
		transferID       string
		destinationRef   string
		createdUnixUTC   int64
		processedUnixUTC int64
	)
	if err := row.Scan(
		&payoutIDValue,
		&accountIDValue,
		&amountCents,
		&statusValue,
		&description,
		&failureReason,
		&transferID,
		&destinationRef,
		&createdUnixUTC,
		&processedUnixUTC,
	); err != nil {
		return ledger.Payout{}, err
	}
	payoutID, err := ledger.NewPayoutID(payoutIDValue)
	if err != nil {
		return ledger.Payout{}, err
	}
	accountID, err := ledger.NewAccountID(accountIDValue)
	if err != nil {
		return ledger.Payout{}, err
	}
	status, err := ledger.ParsePayoutStatus(statusValue)
	if err != nil {
		return ledger.Payout{}, err
	}
	return ledger.Payout{
		PayoutID:         payoutID,
		AccountID:        accountID,
		AmountCents:      ledger.AmountCents(amountCents),
		Status:           status,
		Description:      description,
		FailureReason:    failureReason,
		TransferID:       transferID,
		DestinationRef:   destinationRef,
		CreatedUnixUTC:   createdUnixUTC,
		ProcessedUnixUTC: processedUnixUTC,
	}, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return ledger.WrapError(errorOperationStore, subject, code, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	return false
}
