// Package httpapi exposes the credit ledger over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/agentbazaar/ledger/pkg/ledger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Run boots the HTTP API using the supplied configuration and serves until
// ctx is cancelled.
func Run(ctx context.Context, cfg Config, service *ledger.Service, logger *zap.Logger) error {
	router := NewRouter(cfg, service, logger)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter wires the gin engine with middleware and all ledger routes.
func NewRouter(cfg Config, service *ledger.Service, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := &httpHandler{
		logger:  logger,
		service: service,
		cfg:     cfg,
	}

	api := router.Group("/api/v1")
	api.Use(bearerAuth(cfg.TokenSigningKey, cfg.TokenIssuer))
	api.Use(requestTimeout(cfg.RequestTimeout))

	api.POST("/accounts", handler.handleOpenAccount)
	api.GET("/accounts/:account_id/balance", handler.handleBalance)
	api.GET("/accounts/:account_id/sufficiency", handler.handleSufficiency)
	api.GET("/accounts/:account_id/transactions", handler.handleListTransactions)
	api.GET("/accounts/:account_id/consistency", handler.handleConsistency)
	api.POST("/accounts/:account_id/credits", handler.handleAddCredits)
	api.POST("/accounts/:account_id/debits", handler.handleDeductCredits)
	api.GET("/accounts/:account_id/earnings", handler.handleEarningsSummary)
	api.GET("/accounts/:account_id/payouts", handler.handleListPayouts)

	api.POST("/purchases", handler.handleCreatePurchase)
	api.POST("/purchases/:purchase_id/complete", handler.handlePurchaseComplete)
	api.POST("/purchases/:purchase_id/fail", handler.handlePurchaseFail)

	api.POST("/earnings", handler.handleRecordEarnings)

	api.POST("/payouts", handler.handleCreatePayout)
	api.POST("/payouts/:payout_id/process", handler.handleProcessPayout)
	api.GET("/payouts/config", handler.handlePayoutConfig)

	return router
}

type httpHandler struct {
	logger  *zap.Logger
	service *ledger.Service
	cfg     Config
}

type openAccountRequest struct {
	AccountID string `json:"account_id"`
}

type creditRequest struct {
	AmountCents   int64          `json:"amount_cents"`
	Kind          string         `json:"kind"`
	Description   string         `json:"description"`
	ReferenceID   string         `json:"reference_id"`
	ReferenceType string         `json:"reference_type"`
	Metadata      map[string]any `json:"metadata"`
}

type debitRequest struct {
	AmountCents int64          `json:"amount_cents"`
	Description string         `json:"description"`
	ReferenceID string         `json:"reference_id"`
	Metadata    map[string]any `json:"metadata"`
}

type createPurchaseRequest struct {
	PurchaseID        string `json:"purchase_id"`
	AccountID         string `json:"account_id"`
	AmountCents       int64  `json:"amount_cents"`
	CreditsPurchased  int64  `json:"credits_purchased"`
	Currency          string `json:"currency"`
	CheckoutSessionID string `json:"checkout_session_id"`
}

type purchaseCompleteRequest struct {
	PaymentReference string `json:"payment_reference"`
}

type purchaseFailRequest struct {
	Reason string `json:"reason"`
}

type recordEarningsRequest struct {
	AgentID            string `json:"agent_id"`
	OwnerAccountID     string `json:"owner_account_id"`
	PayerAccountID     string `json:"payer_account_id"`
	ExecutionCostCents int64  `json:"execution_cost_cents"`
}

type createPayoutRequest struct {
	AccountID   string `json:"account_id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
}

type processPayoutRequest struct {
	DestinationRef string `json:"destination_ref"`
}

func (handler *httpHandler) handleOpenAccount(ctx *gin.Context) {
	var request openAccountRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	accountID, err := ledger.NewAccountID(request.AccountID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_account_id", err.Error()))
		return
	}
	account, err := handler.service.OpenAccount(handler.requestContext(ctx), accountID)
	if err != nil {
		handler.respondError(ctx, "open account", err)
		return
	}
	handler.logger.Info("account opened",
		zap.String("account_id", accountID.String()),
		zap.String("subject", authSubject(ctx)))
	ctx.JSON(http.StatusOK, accountPayload(account))
}

func (handler *httpHandler) handleBalance(ctx *gin.Context) {
	accountID, ok := pathAccountID(ctx)
	if !ok {
		return
	}
	balance, err := handler.service.Balance(handler.requestContext(ctx), accountID)
	if err != nil {
		handler.respondError(ctx, "balance", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"account_id":    accountID.String(),
		"balance_cents": balance.Int64(),
	})
}

func (handler *httpHandler) handleSufficiency(ctx *gin.Context) {
	accountID, ok := pathAccountID(ctx)
	if !ok {
		return
	}
	requiredCents, err := strconv.ParseInt(ctx.Query("required_cents"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_amount", "required_cents must be an integer"))
		return
	}
	check, err := handler.service.HasSufficientCredits(handler.requestContext(ctx), accountID, ledger.AmountCents(requiredCents))
	if err != nil {
		handler.respondError(ctx, "sufficiency check", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"sufficient":     check.Sufficient,
		"balance_cents":  check.BalanceCents.Int64(),
		"required_cents": check.RequiredCents.Int64(),
	})
}

func (handler *httpHandler) handleListTransactions(ctx *gin.Context) {
	accountID, ok := pathAccountID(ctx)
	if !ok {
		return
	}
	before, limit := historyWindow(ctx)
	transactions, err := handler.service.ListTransactions(handler.requestContext(ctx), accountID, before, limit)
	if err != nil {
		handler.respondError(ctx, "list transactions", err)
		return
	}
	payload := make([]gin.H, 0, len(transactions))
	for _, transaction := range transactions {
		payload = append(payload, transactionPayload(transaction))
	}
	ctx.JSON(http.StatusOK, gin.H{"transactions": payload})
}

func (handler *httpHandler) handleConsistency(ctx *gin.Context) {
	accountID, ok := pathAccountID(ctx)
	if !ok {
		return
	}
	report, err := handler.service.VerifyAccountConsistency(handler.requestContext(ctx), accountID)
	if err != nil {
		handler.respondError(ctx, "consistency check", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"account_id":            report.AccountID.String(),
		"balance_cents":         report.BalanceCents.Int64(),
		"transaction_sum_cents": report.TransactionSumCents.Int64(),
		"consistent":            report.Consistent,
	})
}

func (handler *httpHandler) handleAddCredits(ctx *gin.Context) {
	accountID, ok := pathAccountID(ctx)
	if !ok {
		return
	}
	var request creditRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	kind, err := ledger.ParseTransactionKind(request.Kind)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_kind", err.Error()))
		return
	}
	metadata, err := marshalMetadata(request.Metadata)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_metadata", err.Error()))
		return
	}
	result, err := handler.service.AddCredits(
		handler.requestContext(ctx), accountID, ledger.AmountCents(request.AmountCents),
		kind, request.Description, request.ReferenceID,
		ledger.ReferenceType(request.ReferenceType), metadata)
	if err != nil {
		handler.respondError(ctx, "add credits", err)
		return
	}
	ctx.JSON(http.StatusOK, creditResultPayload(result))
}

func (handler *httpHandler) handleDeductCredits(ctx *gin.Context) {
	accountID, ok := pathAccountID(ctx)
	if !ok {
		return
	}
	var request debitRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	metadata, err := marshalMetadata(request.Metadata)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_metadata", err.Error()))
		return
	}
	result, err := handler.service.DeductCredits(
		handler.requestContext(ctx), accountID, ledger.AmountCents(request.AmountCents),
		request.Description, request.ReferenceID, metadata)
	if err != nil {
		handler.respondError(ctx, "deduct credits", err)
		return
	}
	ctx.JSON(http.StatusOK, creditResultPayload(result))
}

func (handler *httpHandler) handleCreatePurchase(ctx *gin.Context) {
	var request createPurchaseRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	purchaseID, err := ledger.NewPurchaseID(request.PurchaseID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_purchase_id", err.Error()))
		return
	}
	accountID, err := ledger.NewAccountID(request.AccountID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_account_id", err.Error()))
		return
	}
	purchase, err := handler.service.CreatePurchase(
		handler.requestContext(ctx), purchaseID, accountID,
		ledger.AmountCents(request.AmountCents), ledger.AmountCents(request.CreditsPurchased),
		request.Currency, request.CheckoutSessionID)
	if err != nil {
		handler.respondError(ctx, "create purchase", err)
		return
	}
	ctx.JSON(http.StatusOK, purchasePayload(purchase))
}

func (handler *httpHandler) handlePurchaseComplete(ctx *gin.Context) {
	purchaseID, ok := pathPurchaseID(ctx)
	if !ok {
		return
	}
	var request purchaseCompleteRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	applied, err := handler.service.ProcessPurchaseSuccess(handler.requestContext(ctx), purchaseID, request.PaymentReference)
	if err != nil {
		handler.respondError(ctx, "complete purchase", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"applied": applied})
}

func (handler *httpHandler) handlePurchaseFail(ctx *gin.Context) {
	purchaseID, ok := pathPurchaseID(ctx)
	if !ok {
		return
	}
	var request purchaseFailRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	if err := handler.service.MarkPurchaseFailed(handler.requestContext(ctx), purchaseID, request.Reason); err != nil {
		handler.respondError(ctx, "fail purchase", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "failed"})
}

func (handler *httpHandler) handleRecordEarnings(ctx *gin.Context) {
	var request recordEarningsRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	agentID, err := ledger.NewAgentID(request.AgentID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_agent_id", err.Error()))
		return
	}
	ownerAccountID, err := ledger.NewAccountID(request.OwnerAccountID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_account_id", err.Error()))
		return
	}
	payerAccountID, err := ledger.NewAccountID(request.PayerAccountID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_account_id", err.Error()))
		return
	}
	split, err := handler.service.RecordEarnings(
		handler.requestContext(ctx), agentID, ownerAccountID, payerAccountID,
		ledger.AmountCents(request.ExecutionCostCents))
	if err != nil {
		handler.respondError(ctx, "record earnings", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"creator_earnings_cents": split.CreatorEarningsCents.Int64(),
		"platform_fee_cents":     split.PlatformFeeCents.Int64(),
	})
}

func (handler *httpHandler) handleEarningsSummary(ctx *gin.Context) {
	accountID, ok := pathAccountID(ctx)
	if !ok {
		return
	}
	summary, err := handler.service.EarningsSummary(handler.requestContext(ctx), accountID)
	if err != nil {
		handler.respondError(ctx, "earnings summary", err)
		return
	}
	agents := make([]gin.H, 0, len(summary.Agents))
	for _, row := range summary.Agents {
		agents = append(agents, gin.H{
			"agent_id":               row.AgentID.String(),
			"total_earnings_cents":   row.TotalEarningsCents.Int64(),
			"pending_earnings_cents": row.PendingEarningsCents.Int64(),
			"paid_out_cents":         row.PaidOutCents.Int64(),
			"total_executions":       row.TotalExecutions,
			"last_earning_unix_utc":  row.LastEarningUnixUTC,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{
		"total_earnings_cents":   summary.TotalEarningsCents.Int64(),
		"pending_earnings_cents": summary.PendingEarningsCents.Int64(),
		"paid_out_cents":         summary.PaidOutCents.Int64(),
		"total_executions":       summary.TotalExecutions,
		"agents":                 agents,
	})
}

func (handler *httpHandler) handleCreatePayout(ctx *gin.Context) {
	var request createPayoutRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	accountID, err := ledger.NewAccountID(request.AccountID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_account_id", err.Error()))
		return
	}
	payout, err := handler.service.CreatePayoutRequest(
		handler.requestContext(ctx), accountID, ledger.AmountCents(request.AmountCents), request.Description)
	if err != nil {
		handler.respondError(ctx, "create payout", err)
		return
	}
	ctx.JSON(http.StatusOK, payoutPayload(payout))
}

func (handler *httpHandler) handleProcessPayout(ctx *gin.Context) {
	payoutID, err := ledger.NewPayoutID(ctx.Param("payout_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payout_id", err.Error()))
		return
	}
	var request processPayoutRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	payout, err := handler.service.ProcessPayout(handler.requestContext(ctx), payoutID, request.DestinationRef)
	if err != nil {
		handler.respondError(ctx, "process payout", err)
		return
	}
	ctx.JSON(http.StatusOK, payoutPayload(payout))
}

func (handler *httpHandler) handleListPayouts(ctx *gin.Context) {
	accountID, ok := pathAccountID(ctx)
	if !ok {
		return
	}
	before, limit := historyWindow(ctx)
	payouts, err := handler.service.ListPayouts(handler.requestContext(ctx), accountID, before, limit)
	if err != nil {
		handler.respondError(ctx, "list payouts", err)
		return
	}
	payload := make([]gin.H, 0, len(payouts))
	for _, payout := range payouts {
		payload = append(payload, payoutPayload(payout))
	}
	ctx.JSON(http.StatusOK, gin.H{"payouts": payload})
}

func (handler *httpHandler) handlePayoutConfig(ctx *gin.Context) {
	config := handler.service.PayoutConfig()
	ctx.JSON(http.StatusOK, gin.H{
		"minimum_payout_cents": config.MinimumPayoutCents.Int64(),
		"maximum_payout_cents": config.MaximumPayoutCents.Int64(),
		"platform_fee_pct":     config.PlatformFeePct,
		"creator_earnings_pct": config.CreatorEarningsPct,
	})
}

func (handler *httpHandler) requestContext(ctx *gin.Context) context.Context {
	return ctx.Request.Context()
}

// requestTimeout bounds each request's context so a stalled store call
// cannot hold a handler open indefinitely.
func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		timeoutCtx, cancel := context.WithTimeout(ctx.Request.Context(), timeout)
		defer cancel()
		ctx.Request = ctx.Request.WithContext(timeoutCtx)
		ctx.Next()
	}
}

// respondError maps service errors onto HTTP statuses. Validation failures
// are client errors, missing entities are 404, state conflicts are 409 and
// rail failures surface as 502.
func (handler *httpHandler) respondError(ctx *gin.Context, operation string, err error) {
	status, code := statusFromError(err)
	if status >= http.StatusInternalServerError {
		handler.logger.Error(operation+" failed", zap.Error(err))
	}
	ctx.JSON(status, errorResponse(code, err.Error()))
}

func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientCredits):
		return http.StatusPaymentRequired, "insufficient_credits"
	case errors.Is(err, ledger.ErrInsufficientPendingEarnings):
		return http.StatusPaymentRequired, "insufficient_pending_earnings"
	case errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound, "account_not_found"
	case errors.Is(err, ledger.ErrPurchaseNotFound):
		return http.StatusNotFound, "purchase_not_found"
	case errors.Is(err, ledger.ErrPayoutNotFound):
		return http.StatusNotFound, "payout_not_found"
	case errors.Is(err, ledger.ErrAlreadyProcessed):
		return http.StatusConflict, "already_processed"
	case errors.Is(err, ledger.ErrPurchaseExists):
		return http.StatusConflict, "purchase_exists"
	case errors.Is(err, ledger.ErrExternalService):
		return http.StatusBadGateway, "external_service_error"
	case errors.Is(err, ledger.ErrInvalidAmountCents),
		errors.Is(err, ledger.ErrInvalidAccountID),
		errors.Is(err, ledger.ErrInvalidAgentID),
		errors.Is(err, ledger.ErrInvalidPurchaseID),
		errors.Is(err, ledger.ErrInvalidPayoutID),
		errors.Is(err, ledger.ErrInvalidTransactionKind),
		errors.Is(err, ledger.ErrInvalidMetadataJSON):
		return http.StatusBadRequest, "invalid_argument"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func pathAccountID(ctx *gin.Context) (ledger.AccountID, bool) {
	accountID, err := ledger.NewAccountID(ctx.Param("account_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_account_id", err.Error()))
		return ledger.AccountID{}, false
	}
	return accountID, true
}

func pathPurchaseID(ctx *gin.Context) (ledger.PurchaseID, bool) {
	purchaseID, err := ledger.NewPurchaseID(ctx.Param("purchase_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_purchase_id", err.Error()))
		return ledger.PurchaseID{}, false
	}
	return purchaseID, true
}

func historyWindow(ctx *gin.Context) (int64, int) {
	before, err := strconv.ParseInt(ctx.Query("before"), 10, 64)
	if err != nil || before <= 0 {
		before = time.Now().UTC().Add(time.Second).Unix()
	}
	limit, err := strconv.Atoi(ctx.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return before, limit
}

func marshalMetadata(metadata map[string]any) (ledger.MetadataJSON, error) {
	if metadata == nil {
		return ledger.NewMetadataJSON("")
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return ledger.MetadataJSON{}, err
	}
	return ledger.NewMetadataJSON(string(raw))
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

func accountPayload(account ledger.Account) gin.H {
	return gin.H{
		"account_id":       account.AccountID.String(),
		"balance_cents":    account.BalanceCents.Int64(),
		"created_unix_utc": account.CreatedUnixUTC,
	}
}

func creditResultPayload(result ledger.CreditResult) gin.H {
	return gin.H{
		"transaction":       transactionPayload(result.Transaction),
		"new_balance_cents": result.NewBalanceCents.Int64(),
	}
}

func transactionPayload(transaction ledger.Transaction) gin.H {
	return gin.H{
		"transaction_id":       transaction.TransactionID,
		"account_id":           transaction.AccountID.String(),
		"amount_cents":         transaction.AmountCents.Int64(),
		"kind":                 transaction.Kind.String(),
		"description":          transaction.Description,
		"balance_before_cents": transaction.BalanceBeforeCents.Int64(),
		"balance_after_cents":  transaction.BalanceAfterCents.Int64(),
		"reference_id":         transaction.ReferenceID,
		"reference_type":       transaction.ReferenceType.String(),
		"metadata":             json.RawMessage(transaction.Metadata.String()),
		"created_unix_utc":     transaction.CreatedUnixUTC,
	}
}

func purchasePayload(purchase ledger.Purchase) gin.H {
	return gin.H{
		"purchase_id":         purchase.PurchaseID.String(),
		"account_id":          purchase.AccountID.String(),
		"amount_cents":        purchase.AmountCents.Int64(),
		"credits_purchased":   purchase.CreditsPurchased.Int64(),
		"currency":            purchase.Currency,
		"checkout_session_id": purchase.CheckoutSessionID,
		"payment_reference":   purchase.PaymentReference,
		"status":              purchase.Status.String(),
		"failure_reason":      purchase.FailureReason,
		"created_unix_utc":    purchase.CreatedUnixUTC,
		"completed_unix_utc":  purchase.CompletedUnixUTC,
	}
}

func payoutPayload(payout ledger.Payout) gin.H {
	return gin.H{
		"payout_id":          payout.PayoutID.String(),
		"account_id":         payout.AccountID.String(),
		"amount_cents":       payout.AmountCents.Int64(),
		"status":             payout.Status.String(),
		"description":        payout.Description,
		"failure_reason":     payout.FailureReason,
		"transfer_id":        payout.TransferID,
		"destination_ref":    payout.DestinationRef,
		"created_unix_utc":   payout.CreatedUnixUTC,
		"processed_unix_utc": payout.ProcessedUnixUTC,
	}
}
