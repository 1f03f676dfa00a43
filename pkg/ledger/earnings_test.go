package ledger

import (
	"context"
	"errors"
	"testing"
)

func TestSplitRevenueFloorsFeeAndKeepsSumExact(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name        string
		cost        AmountCents
		feePct      int64
		wantCreator AmountCents
		wantFee     AmountCents
	}{
		{name: "even hundred", cost: 100, feePct: 10, wantCreator: 90, wantFee: 10},
		{name: "fee rounds down", cost: 99, feePct: 10, wantCreator: 90, wantFee: 9},
		{name: "single cent", cost: 1, feePct: 10, wantCreator: 1, wantFee: 0},
		{name: "zero cost", cost: 0, feePct: 10, wantCreator: 0, wantFee: 0},
		{name: "zero fee", cost: 250, feePct: 0, wantCreator: 250, wantFee: 0},
		{name: "full fee", cost: 250, feePct: 100, wantCreator: 0, wantFee: 250},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			split := SplitRevenue(testCase.cost, testCase.feePct)
			if split.CreatorEarningsCents != testCase.wantCreator || split.PlatformFeeCents != testCase.wantFee {
				test.Fatalf("unexpected split: %+v", split)
			}
			if split.CreatorEarningsCents+split.PlatformFeeCents != testCase.cost {
				test.Fatalf("split does not sum to cost: %+v", split)
			}
		})
	}
}

func TestSplitRevenueSumsExactlyAcrossRange(test *testing.T) {
	test.Parallel()
	for cost := AmountCents(0); cost <= 1000; cost++ {
		split := SplitRevenue(cost, DefaultPlatformFeePct)
		if split.CreatorEarningsCents+split.PlatformFeeCents != cost {
			test.Fatalf("cost %d: split loses cents: %+v", cost, split)
		}
		if split.PlatformFeeCents < 0 || split.CreatorEarningsCents < 0 {
			test.Fatalf("cost %d: negative share: %+v", cost, split)
		}
	}
}

func TestRecordEarningsAccumulatesCreatorShare(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	ownerAccountID := mustOpenAccount(test, service, "creator-1")
	payerAccountID := mustOpenAccount(test, service, "payer-1")
	agentID := mustAgentID(test, "agent-1")

	split, err := service.RecordEarnings(context.Background(), agentID, ownerAccountID, payerAccountID, 100)
	if err != nil {
		test.Fatalf("record earnings: %v", err)
	}
	if split.CreatorEarningsCents != 90 || split.PlatformFeeCents != 10 {
		test.Fatalf("unexpected split: %+v", split)
	}
	if _, err := service.RecordEarnings(context.Background(), agentID, ownerAccountID, payerAccountID, 55); err != nil {
		test.Fatalf("second execution: %v", err)
	}

	row := store.mustEarnings(test, agentID, ownerAccountID)
	if row.TotalEarningsCents != 140 || row.PendingEarningsCents != 140 {
		test.Fatalf("unexpected accumulation: %+v", row)
	}
	if row.TotalExecutions != 2 {
		test.Fatalf("expected 2 executions, got %d", row.TotalExecutions)
	}
	if row.PaidOutCents != 0 {
		test.Fatalf("expected nothing paid out, got %d", row.PaidOutCents)
	}
}

func TestRecordEarningsRejectsNegativeCost(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	ownerAccountID := mustOpenAccount(test, service, "creator-2")
	agentID := mustAgentID(test, "agent-2")

	_, err := service.RecordEarnings(context.Background(), agentID, ownerAccountID, ownerAccountID, -1)
	if !errors.Is(err, ErrInvalidAmountCents) {
		test.Fatalf("expected ErrInvalidAmountCents, got %v", err)
	}
}

func TestRecordEarningsRequiresOwnerAccount(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	payerAccountID := mustOpenAccount(test, service, "payer-3")
	agentID := mustAgentID(test, "agent-3")
	ownerAccountID := mustAccountID(test, "missing-owner")

	_, err := service.RecordEarnings(context.Background(), agentID, ownerAccountID, payerAccountID, 100)
	if !errors.Is(err, ErrAccountNotFound) {
		test.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestRecordEarningsSelfExecutionPolicy(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	config := DefaultConfig()
	config.AllowSelfEarnings = false
	service := mustNewServiceWithConfig(test, store, config)
	ownerAccountID := mustOpenAccount(test, service, "self-owner")
	agentID := mustAgentID(test, "self-agent")

	split, err := service.RecordEarnings(context.Background(), agentID, ownerAccountID, ownerAccountID, 100)
	if err != nil {
		test.Fatalf("self execution: %v", err)
	}
	if split.CreatorEarningsCents != 90 {
		test.Fatalf("expected split still computed, got %+v", split)
	}
	if len(store.earnings) != 0 {
		test.Fatalf("expected no earnings recorded for self execution")
	}

	otherPayer := mustOpenAccount(test, service, "other-payer")
	if _, err := service.RecordEarnings(context.Background(), agentID, ownerAccountID, otherPayer, 100); err != nil {
		test.Fatalf("third-party execution: %v", err)
	}
	row := store.mustEarnings(test, agentID, ownerAccountID)
	if row.PendingEarningsCents != 90 {
		test.Fatalf("expected 90 pending, got %d", row.PendingEarningsCents)
	}
}

func TestEarningsSummaryAggregatesAgents(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	ownerAccountID := mustOpenAccount(test, service, "multi-owner")
	payerAccountID := mustOpenAccount(test, service, "multi-payer")

	if _, err := service.RecordEarnings(context.Background(), mustAgentID(test, "agent-a"), ownerAccountID, payerAccountID, 100); err != nil {
		test.Fatalf("agent-a earnings: %v", err)
	}
	if _, err := service.RecordEarnings(context.Background(), mustAgentID(test, "agent-b"), ownerAccountID, payerAccountID, 200); err != nil {
		test.Fatalf("agent-b earnings: %v", err)
	}

	summary, err := service.EarningsSummary(context.Background(), ownerAccountID)
	if err != nil {
		test.Fatalf("summary: %v", err)
	}
	if summary.TotalEarningsCents != 270 || summary.PendingEarningsCents != 270 {
		test.Fatalf("unexpected totals: %+v", summary)
	}
	if summary.TotalExecutions != 2 || len(summary.Agents) != 2 {
		test.Fatalf("unexpected summary shape: %+v", summary)
	}
	if summary.TotalEarningsCents != summary.PendingEarningsCents+summary.PaidOutCents {
		test.Fatalf("earnings identity violated: %+v", summary)
	}
}
