package ledger

import "fmt"

// Default revenue-split and payout bounds.
const (
	DefaultPlatformFeePct            = 10
	DefaultMinimumPayoutCents        = AmountCents(500)
	DefaultMaximumPayoutCents        = AmountCents(1_000_000)
	maxPlatformFeePct         int64  = 100
)

// Config holds the policy knobs of the ledger service.
//
// AllowSelfEarnings keeps the source behavior of crediting earnings when the
// paying account owns the executed agent; stricter deployments disable it.
// RestoreEarningsOnFailedPayout moves reserved funds back from paidOut to
// pending when a payout fails; left off, failed payouts stay reserved for
// manual reconciliation.
type Config struct {
	PlatformFeePct                int64
	MinimumPayoutCents            AmountCents
	MaximumPayoutCents            AmountCents
	AllowSelfEarnings             bool
	RestoreEarningsOnFailedPayout bool
}

// DefaultConfig returns the stock marketplace policy: 10% platform fee,
// $5.00 payout minimum, self-earnings permitted, no failed-payout restitution.
func DefaultConfig() Config {
	return Config{
		PlatformFeePct:     DefaultPlatformFeePct,
		MinimumPayoutCents: DefaultMinimumPayoutCents,
		MaximumPayoutCents: DefaultMaximumPayoutCents,
		AllowSelfEarnings:  true,
	}
}

// Validate ensures the configuration contains sane values.
func (cfg Config) Validate() error {
	if cfg.PlatformFeePct < 0 || cfg.PlatformFeePct > maxPlatformFeePct {
		return fmt.Errorf("%w: platform fee pct %d out of range", ErrInvalidServiceConfig, cfg.PlatformFeePct)
	}
	if cfg.MinimumPayoutCents <= 0 {
		return fmt.Errorf("%w: minimum payout must be positive", ErrInvalidServiceConfig)
	}
	if cfg.MaximumPayoutCents < cfg.MinimumPayoutCents {
		return fmt.Errorf("%w: maximum payout below minimum", ErrInvalidServiceConfig)
	}
	return nil
}

// CreatorEarningsPct is the creator's share of each execution cost.
func (cfg Config) CreatorEarningsPct() int64 {
	return maxPlatformFeePct - cfg.PlatformFeePct
}

// PayoutConfig is the static configuration exposed for client-side
// validation mirroring.
type PayoutConfig struct {
	MinimumPayoutCents AmountCents
	MaximumPayoutCents AmountCents
	PlatformFeePct     int64
	CreatorEarningsPct int64
}
