package ledger

import (
	"context"
	"errors"
	"testing"
)

const railFailureMessage = "rail unavailable"

var errRailFailure = errors.New(railFailureMessage)

func seedEarnings(test *testing.T, service *Service, store *stubStore, ownerRaw string, agentEarnings map[string]AmountCents) AccountID {
	test.Helper()
	ownerAccountID := mustOpenAccount(test, service, ownerRaw)
	payerAccountID := mustOpenAccount(test, service, ownerRaw+"-payer")
	for agentRaw, creatorCents := range agentEarnings {
		agentID := mustAgentID(test, agentRaw)
		// RecordEarnings applies the platform fee; feed the gross cost that
		// yields the desired creator share under the default 10% fee.
		cost := creatorCents * 100 / 90
		for SplitRevenue(cost, DefaultPlatformFeePct).CreatorEarningsCents < creatorCents {
			cost++
		}
		if _, err := service.RecordEarnings(context.Background(), agentID, ownerAccountID, payerAccountID, cost); err != nil {
			test.Fatalf("seed earnings: %v", err)
		}
		row := store.mustEarnings(test, agentID, ownerAccountID)
		if row.PendingEarningsCents != creatorCents {
			test.Fatalf("seed mismatch for %s: want %d, got %d", agentRaw, creatorCents, row.PendingEarningsCents)
		}
	}
	return ownerAccountID
}

func TestCreatePayoutRequestReservesPendingEarnings(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	ownerAccountID := seedEarnings(test, service, store, "payee-1", map[string]AmountCents{
		"agent-a": 600,
		"agent-b": 300,
	})

	payout, err := service.CreatePayoutRequest(context.Background(), ownerAccountID, 800, "first payout")
	if err != nil {
		test.Fatalf("create payout: %v", err)
	}
	if payout.Status != PayoutPending || payout.AmountCents != 800 {
		test.Fatalf("unexpected payout: %+v", payout)
	}
	if payout.PayoutID.String() == "" {
		test.Fatalf("expected assigned payout id")
	}

	rowA := store.mustEarnings(test, mustAgentID(test, "agent-a"), ownerAccountID)
	rowB := store.mustEarnings(test, mustAgentID(test, "agent-b"), ownerAccountID)
	if rowA.PendingEarningsCents+rowB.PendingEarningsCents != 100 {
		test.Fatalf("expected 100 pending after reservation, got %d and %d", rowA.PendingEarningsCents, rowB.PendingEarningsCents)
	}
	if rowA.PaidOutCents+rowB.PaidOutCents != 800 {
		test.Fatalf("expected 800 reserved, got %d and %d", rowA.PaidOutCents, rowB.PaidOutCents)
	}
	if rowA.TotalEarningsCents != rowA.PendingEarningsCents+rowA.PaidOutCents {
		test.Fatalf("earnings identity violated: %+v", rowA)
	}
}

func TestCreatePayoutRequestBlocksDoubleSpend(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	ownerAccountID := seedEarnings(test, service, store, "payee-2", map[string]AmountCents{
		"agent-a": 900,
	})

	if _, err := service.CreatePayoutRequest(context.Background(), ownerAccountID, 900, ""); err != nil {
		test.Fatalf("first payout: %v", err)
	}
	_, err := service.CreatePayoutRequest(context.Background(), ownerAccountID, 900, "")
	if !errors.Is(err, ErrInsufficientPendingEarnings) {
		test.Fatalf("expected ErrInsufficientPendingEarnings, got %v", err)
	}
	var detail *InsufficientPendingEarningsError
	if !errors.As(err, &detail) {
		test.Fatalf("expected detail error, got %v", err)
	}
	if detail.RequestedCents != 900 || detail.AvailableCents != 0 {
		test.Fatalf("unexpected detail: %+v", detail)
	}
}

func TestCreatePayoutRequestEnforcesBounds(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	ownerAccountID := seedEarnings(test, service, store, "payee-3", map[string]AmountCents{
		"agent-a": 900,
	})

	testCases := []struct {
		name        string
		amountCents AmountCents
	}{
		{name: "below minimum", amountCents: DefaultMinimumPayoutCents - 1},
		{name: "above maximum", amountCents: DefaultMaximumPayoutCents + 1},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			_, err := service.CreatePayoutRequest(context.Background(), ownerAccountID, testCase.amountCents, "")
			if !errors.Is(err, ErrInvalidAmountCents) {
				test.Fatalf("expected ErrInvalidAmountCents, got %v", err)
			}
		})
	}
}

func TestProcessPayoutCompletesThroughRail(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	rail := &stubRail{transferID: "tr_1"}
	service := mustNewServiceWithConfig(test, store, DefaultConfig(), WithPayoutRail(rail))
	ownerAccountID := seedEarnings(test, service, store, "payee-4", map[string]AmountCents{
		"agent-a": 900,
	})
	requested, err := service.CreatePayoutRequest(context.Background(), ownerAccountID, 900, "cash out")
	if err != nil {
		test.Fatalf("create payout: %v", err)
	}

	payout, err := service.ProcessPayout(context.Background(), requested.PayoutID, "bank-acct-1")
	if err != nil {
		test.Fatalf("process payout: %v", err)
	}
	if payout.Status != PayoutCompleted || payout.TransferID != "tr_1" {
		test.Fatalf("unexpected payout: %+v", payout)
	}
	if payout.ProcessedUnixUTC != 100 {
		test.Fatalf("expected processed time 100, got %d", payout.ProcessedUnixUTC)
	}
	if len(rail.requests) != 1 {
		test.Fatalf("expected one rail call, got %d", len(rail.requests))
	}
	request := rail.requests[0]
	if request.AmountCents != 900 || request.DestinationRef != "bank-acct-1" {
		test.Fatalf("unexpected rail request: %+v", request)
	}
	stored := store.mustPayout(test, requested.PayoutID)
	if stored.Status != PayoutCompleted || stored.TransferID != "tr_1" {
		test.Fatalf("unexpected stored payout: %+v", stored)
	}
}

func TestProcessPayoutIsNotRepeatable(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	rail := &stubRail{transferID: "tr_2"}
	service := mustNewServiceWithConfig(test, store, DefaultConfig(), WithPayoutRail(rail))
	ownerAccountID := seedEarnings(test, service, store, "payee-5", map[string]AmountCents{
		"agent-a": 900,
	})
	requested, err := service.CreatePayoutRequest(context.Background(), ownerAccountID, 900, "")
	if err != nil {
		test.Fatalf("create payout: %v", err)
	}
	if _, err := service.ProcessPayout(context.Background(), requested.PayoutID, "dest"); err != nil {
		test.Fatalf("first processing: %v", err)
	}

	_, err = service.ProcessPayout(context.Background(), requested.PayoutID, "dest")
	if !errors.Is(err, ErrAlreadyProcessed) {
		test.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
	if len(rail.requests) != 1 {
		test.Fatalf("expected no second rail call, got %d", len(rail.requests))
	}
}

func TestProcessPayoutRailFailureMarksFailed(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	rail := &stubRail{err: errRailFailure}
	service := mustNewServiceWithConfig(test, store, DefaultConfig(), WithPayoutRail(rail))
	ownerAccountID := seedEarnings(test, service, store, "payee-6", map[string]AmountCents{
		"agent-a": 900,
	})
	requested, err := service.CreatePayoutRequest(context.Background(), ownerAccountID, 900, "")
	if err != nil {
		test.Fatalf("create payout: %v", err)
	}

	payout, err := service.ProcessPayout(context.Background(), requested.PayoutID, "dest")
	if !errors.Is(err, ErrExternalService) {
		test.Fatalf("expected ErrExternalService, got %v", err)
	}
	if payout.Status != PayoutFailed || payout.FailureReason != railFailureMessage {
		test.Fatalf("unexpected payout: %+v", payout)
	}
	stored := store.mustPayout(test, requested.PayoutID)
	if stored.Status != PayoutFailed {
		test.Fatalf("expected failed payout stored, got %+v", stored)
	}
	// Default policy keeps reserved funds out of the pending pool until the
	// payout is retried by an operator.
	row := store.mustEarnings(test, mustAgentID(test, "agent-a"), ownerAccountID)
	if row.PendingEarningsCents != 0 || row.PaidOutCents != 900 {
		test.Fatalf("expected reservation kept, got %+v", row)
	}
}

func TestProcessPayoutRailFailureRestoresEarningsWhenConfigured(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	rail := &stubRail{err: errRailFailure}
	config := DefaultConfig()
	config.RestoreEarningsOnFailedPayout = true
	service := mustNewServiceWithConfig(test, store, config, WithPayoutRail(rail))
	ownerAccountID := seedEarnings(test, service, store, "payee-7", map[string]AmountCents{
		"agent-a": 600,
		"agent-b": 300,
	})
	requested, err := service.CreatePayoutRequest(context.Background(), ownerAccountID, 800, "")
	if err != nil {
		test.Fatalf("create payout: %v", err)
	}

	_, err = service.ProcessPayout(context.Background(), requested.PayoutID, "dest")
	if !errors.Is(err, ErrExternalService) {
		test.Fatalf("expected ErrExternalService, got %v", err)
	}
	rowA := store.mustEarnings(test, mustAgentID(test, "agent-a"), ownerAccountID)
	rowB := store.mustEarnings(test, mustAgentID(test, "agent-b"), ownerAccountID)
	if rowA.PendingEarningsCents+rowB.PendingEarningsCents != 900 {
		test.Fatalf("expected full pending pool restored, got %d and %d", rowA.PendingEarningsCents, rowB.PendingEarningsCents)
	}
	if rowA.PaidOutCents != 0 || rowB.PaidOutCents != 0 {
		test.Fatalf("expected no reservation left, got %+v and %+v", rowA, rowB)
	}
}

func TestProcessPayoutRequiresRail(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	payoutID := mustPayoutID(test, "payout-none")

	_, err := service.ProcessPayout(context.Background(), payoutID, "dest")
	if !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected ErrInvalidServiceConfig, got %v", err)
	}
}

func TestProcessPayoutUnknownPayout(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	rail := &stubRail{transferID: "tr_x"}
	service := mustNewServiceWithConfig(test, store, DefaultConfig(), WithPayoutRail(rail))
	payoutID := mustPayoutID(test, "payout-missing")

	_, err := service.ProcessPayout(context.Background(), payoutID, "dest")
	if !errors.Is(err, ErrPayoutNotFound) {
		test.Fatalf("expected ErrPayoutNotFound, got %v", err)
	}
	if len(rail.requests) != 0 {
		test.Fatalf("expected no rail call for unknown payout")
	}
}

func TestPayoutConfigReflectsServicePolicy(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	config := Config{
		PlatformFeePct:     15,
		MinimumPayoutCents: 1000,
		MaximumPayoutCents: 50_000,
		AllowSelfEarnings:  true,
	}
	service := mustNewServiceWithConfig(test, store, config)

	payoutConfig := service.PayoutConfig()
	if payoutConfig.MinimumPayoutCents != 1000 || payoutConfig.MaximumPayoutCents != 50_000 {
		test.Fatalf("unexpected bounds: %+v", payoutConfig)
	}
	if payoutConfig.PlatformFeePct != 15 || payoutConfig.CreatorEarningsPct != 85 {
		test.Fatalf("unexpected percentages: %+v", payoutConfig)
	}
}
