package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Account represents the accounts table.
type Account struct {
	AccountID    string    `gorm:"primaryKey"`
	BalanceCents int64     `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

// CreditTransaction mirrors the credit_transactions table. Rows are append
// only; the balance snapshots make each row self-auditing.
type CreditTransaction struct {
	TransactionID      string         `gorm:"type:uuid;primaryKey"`
	AccountID          string         `gorm:"not null;index:idx_transactions_account_created,priority:1"`
	AmountCents        int64          `gorm:"not null"`
	Kind               string         `gorm:"not null"`
	Description        string         `gorm:""`
	BalanceBeforeCents int64          `gorm:"not null"`
	BalanceAfterCents  int64          `gorm:"not null"`
	ReferenceID        string         `gorm:"index"`
	ReferenceType      string         `gorm:""`
	Metadata           datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt          time.Time      `gorm:"not null;index:idx_transactions_account_created,priority:2"`
}

func (CreditTransaction) TableName() string { return "credit_transactions" }

func (transaction *CreditTransaction) BeforeCreate(tx *gorm.DB) error {
	if transaction.TransactionID == "" {
		transaction.TransactionID = uuid.NewString()
	}
	return nil
}

// CreditPurchase mirrors the credit_purchases table. The primary key is the
// caller-supplied purchase id that binds the row to its checkout session.
type CreditPurchase struct {
	PurchaseID        string     `gorm:"primaryKey"`
	AccountID         string     `gorm:"not null;index"`
	AmountCents       int64      `gorm:"not null"`
	CreditsPurchased  int64      `gorm:"not null"`
	Currency          string     `gorm:"not null"`
	CheckoutSessionID string     `gorm:""`
	PaymentReference  string     `gorm:""`
	Status            string     `gorm:"not null"`
	FailureReason     string     `gorm:""`
	CreatedAt         time.Time  `gorm:"not null"`
	CompletedAt       *time.Time `gorm:""`
}

func (CreditPurchase) TableName() string { return "credit_purchases" }

// AgentEarnings mirrors the agent_earnings table, one row per
// (agent, owner) pair.
type AgentEarnings struct {
	AgentID              string     `gorm:"primaryKey"`
	OwnerAccountID       string     `gorm:"primaryKey"`
	TotalEarningsCents   int64      `gorm:"not null"`
	PendingEarningsCents int64      `gorm:"not null"`
	PaidOutCents         int64      `gorm:"not null"`
	TotalExecutions      int64      `gorm:"not null"`
	LastEarningAt        *time.Time `gorm:""`
	UpdatedAt            time.Time  `gorm:"not null"`
}

func (AgentEarnings) TableName() string { return "agent_earnings" }

// Payout mirrors the payouts table.
type Payout struct {
	PayoutID       string     `gorm:"type:uuid;primaryKey"`
	AccountID      string     `gorm:"not null;index"`
	AmountCents    int64      `gorm:"not null"`
	Status         string     `gorm:"not null"`
	Description    string     `gorm:""`
	FailureReason  string     `gorm:""`
	TransferID     string     `gorm:""`
	DestinationRef string     `gorm:""`
	CreatedAt      time.Time  `gorm:"not null"`
	ProcessedAt    *time.Time `gorm:""`
}

func (Payout) TableName() string { return "payouts" }

func (payout *Payout) BeforeCreate(tx *gorm.DB) error {
	if payout.PayoutID == "" {
		payout.PayoutID = uuid.NewString()
	}
	return nil
}
