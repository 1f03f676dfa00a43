package ledger

const (
	operationOpenAccount     = "open_account"
	operationAddCredits      = "add_credits"
	operationDeductCredits   = "deduct_credits"
	operationCreatePurchase  = "create_purchase"
	operationPurchaseSuccess = "purchase_success"
	operationPurchaseFailed  = "purchase_failed"
	operationRecordEarnings  = "record_earnings"
	operationCreatePayout    = "create_payout_request"
	operationProcessPayout   = "process_payout"

	operationStatusOK        = "ok"
	operationStatusError     = "error"
	operationStatusDuplicate = "duplicate"
	operationStatusSkipped   = "skipped"

	defaultCurrency = "usd"
)
