package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountCash       AccountType = "CASH"
	AccountLiability  AccountType = "LIABILITY"
	AccountRevenue    AccountType = "REVENUE"
	AccountReceivable AccountType = "RECEIVABLE"
)

type TransactionType string

const (
	TxnPayment        TransactionType = "PAYMENT"
	TxnPlatformFee    TransactionType = "PLATFORM_FEE"
	TxnServiceFee     TransactionType = "SERVICE_FEE"
	TxnOwnerEarning   TransactionType = "OWNER_EARNING"
	TxnRefund         TransactionType = "REFUND"
	TxnPayout         TransactionType = "PAYOUT"
	TxnDepositHold    TransactionType = "DEPOSIT_HOLD"
	TxnDepositCapture TransactionType = "DEPOSIT_CAPTURE"
	TxnDepositRelease TransactionType = "DEPOSIT_RELEASE"
)

type EntrySide string

const (
	SideDebit  EntrySide = "DEBIT"
	SideCredit EntrySide = "CREDIT"
)

type EntryStatus string

const (
	EntrySettled EntryStatus = "SETTLED"
	EntryPending EntryStatus = "PENDING"
)

// LedgerEntry is one immutable posting: one side of one economic event.
// Corrections are new offsetting entries, never edits. BookingID is nullable
// because payouts settle a cross-booking balance and anchor to a payout
// instead.
type LedgerEntry struct {
	ID              string          `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID       *string         `gorm:"type:uuid;index" json:"booking_id,omitempty"`
	PayoutID        *string         `gorm:"type:uuid;index" json:"payout_id,omitempty"`
	AccountType     AccountType     `gorm:"type:varchar(20);not null;index" json:"account_type"`
	TransactionType TransactionType `gorm:"type:varchar(20);not null" json:"transaction_type"`
	Side            EntrySide       `gorm:"type:varchar(6);not null" json:"side"`
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Currency        string          `gorm:"type:varchar(3);not null" json:"currency"`
	Status          EntryStatus     `gorm:"type:varchar(10);not null;default:'SETTLED'" json:"status"`
	Description     string          `gorm:"type:text" json:"description"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
}

type DepositHoldStatus string

const (
	HoldAuthorized DepositHoldStatus = "AUTHORIZED"
	HoldCaptured   DepositHoldStatus = "CAPTURED"
	HoldReleased   DepositHoldStatus = "RELEASED"
)

// DepositHold transitions one way only: AUTHORIZED -> CAPTURED or
// AUTHORIZED -> RELEASED, never both.
type DepositHold struct {
	ID               string            `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID        string            `gorm:"type:uuid;not null;index" json:"booking_id"`
	Amount           decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"amount"`
	Currency         string            `gorm:"type:varchar(3);not null" json:"currency"`
	Status           DepositHoldStatus `gorm:"type:varchar(12);not null;default:'AUTHORIZED'" json:"status"`
	PaymentReference string            `gorm:"type:varchar(128);not null" json:"payment_reference"`
	ExpiresAt        time.Time         `gorm:"not null" json:"expires_at"`
	CapturedAmount   *decimal.Decimal  `gorm:"type:decimal(14,2)" json:"captured_amount,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}
