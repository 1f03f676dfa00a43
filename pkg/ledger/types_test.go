package ledger

import (
	"errors"
	"testing"
)

func TestIdentifierConstructorsTrimAndReject(test *testing.T) {
	test.Parallel()
	accountID, err := NewAccountID("  acct-1  ")
	if err != nil {
		test.Fatalf("account id: %v", err)
	}
	if accountID.String() != "acct-1" {
		test.Fatalf("expected trimmed value, got %q", accountID.String())
	}

	if _, err := NewAccountID("   "); !errors.Is(err, ErrInvalidAccountID) {
		test.Fatalf("expected ErrInvalidAccountID, got %v", err)
	}
	if _, err := NewAgentID(""); !errors.Is(err, ErrInvalidAgentID) {
		test.Fatalf("expected ErrInvalidAgentID, got %v", err)
	}
	if _, err := NewPurchaseID(""); !errors.Is(err, ErrInvalidPurchaseID) {
		test.Fatalf("expected ErrInvalidPurchaseID, got %v", err)
	}
	if _, err := NewPayoutID(""); !errors.Is(err, ErrInvalidPayoutID) {
		test.Fatalf("expected ErrInvalidPayoutID, got %v", err)
	}
}

func TestNewMetadataJSON(test *testing.T) {
	test.Parallel()
	empty, err := NewMetadataJSON("")
	if err != nil {
		test.Fatalf("empty metadata: %v", err)
	}
	if empty.String() != "{}" {
		test.Fatalf("expected empty object default, got %q", empty.String())
	}

	metadata, err := NewMetadataJSON(`{"k":"v"}`)
	if err != nil {
		test.Fatalf("metadata: %v", err)
	}
	if metadata.String() != `{"k":"v"}` {
		test.Fatalf("unexpected metadata: %q", metadata.String())
	}

	if _, err := NewMetadataJSON("{broken"); !errors.Is(err, ErrInvalidMetadataJSON) {
		test.Fatalf("expected ErrInvalidMetadataJSON, got %v", err)
	}
}

func TestParseTransactionKind(test *testing.T) {
	test.Parallel()
	for _, raw := range []string{"purchase", "usage", "refund", "bonus", "adjustment"} {
		kind, err := ParseTransactionKind(raw)
		if err != nil {
			test.Fatalf("kind %q: %v", raw, err)
		}
		if kind.String() != raw {
			test.Fatalf("expected %q, got %q", raw, kind.String())
		}
	}
	if _, err := ParseTransactionKind("chargeback"); !errors.Is(err, ErrInvalidTransactionKind) {
		test.Fatalf("expected ErrInvalidTransactionKind, got %v", err)
	}
}

func TestParseStatuses(test *testing.T) {
	test.Parallel()
	if _, err := ParsePurchaseStatus("pending"); err != nil {
		test.Fatalf("purchase status: %v", err)
	}
	if _, err := ParsePurchaseStatus("void"); !errors.Is(err, ErrInvalidPurchaseStatus) {
		test.Fatalf("expected ErrInvalidPurchaseStatus, got %v", err)
	}
	if _, err := ParsePayoutStatus("processing"); err != nil {
		test.Fatalf("payout status: %v", err)
	}
	if _, err := ParsePayoutStatus("void"); !errors.Is(err, ErrInvalidPayoutStatus) {
		test.Fatalf("expected ErrInvalidPayoutStatus, got %v", err)
	}
}

func TestConfigValidate(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name      string
		configure func(config *Config)
		wantErr   bool
	}{
		{name: "defaults", configure: func(config *Config) {}},
		{name: "zero fee", configure: func(config *Config) { config.PlatformFeePct = 0 }},
		{name: "full fee", configure: func(config *Config) { config.PlatformFeePct = 100 }},
		{name: "negative fee", configure: func(config *Config) { config.PlatformFeePct = -1 }, wantErr: true},
		{name: "fee above hundred", configure: func(config *Config) { config.PlatformFeePct = 101 }, wantErr: true},
		{name: "non-positive minimum", configure: func(config *Config) { config.MinimumPayoutCents = 0 }, wantErr: true},
		{name: "maximum below minimum", configure: func(config *Config) { config.MaximumPayoutCents = config.MinimumPayoutCents - 1 }, wantErr: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			config := DefaultConfig()
			testCase.configure(&config)
			err := config.Validate()
			if testCase.wantErr {
				if !errors.Is(err, ErrInvalidServiceConfig) {
					test.Fatalf("expected ErrInvalidServiceConfig, got %v", err)
				}
				return
			}
			if err != nil {
				test.Fatalf("validate: %v", err)
			}
		})
	}
}

func TestCreatorEarningsPct(test *testing.T) {
	test.Parallel()
	config := DefaultConfig()
	if config.CreatorEarningsPct() != 90 {
		test.Fatalf("expected 90, got %d", config.CreatorEarningsPct())
	}
	config.PlatformFeePct = 25
	if config.CreatorEarningsPct() != 75 {
		test.Fatalf("expected 75, got %d", config.CreatorEarningsPct())
	}
}
