package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samujjwal/gearlend/internal/models"
	"github.com/samujjwal/gearlend/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidBreakdown  = errors.New("payment breakdown does not add up")
	ErrUnbalancedPosting = errors.New("ledger batch is unbalanced")
)

// PaymentBreakdown carries the money split of a captured booking payment.
// OwnerEarnings is derived as Subtotal - PlatformFee.
type PaymentBreakdown struct {
	Total       decimal.Decimal
	Subtotal    decimal.Decimal
	PlatformFee decimal.Decimal
	ServiceFee  decimal.Decimal
	Currency    string
}

type PlatformRevenue struct {
	PlatformFees decimal.Decimal `json:"platform_fees"`
	ServiceFees  decimal.Decimal `json:"service_fees"`
	Total        decimal.Decimal `json:"total"`
}

// LedgerService turns business events into balanced, immutable posting
// batches. Posting methods take the caller's transaction handle so the
// entries commit in the same atomic unit as the state change that caused
// them.
type LedgerService interface {
	RecordBookingPayment(ctx context.Context, tx *gorm.DB, bookingID, renterID, ownerID string, b PaymentBreakdown) error
	RecordRefund(ctx context.Context, tx *gorm.DB, bookingID, renterID string, amount decimal.Decimal, currency string) error
	RecordPayout(ctx context.Context, tx *gorm.DB, payoutID, ownerID string, amount decimal.Decimal, currency string) error
	RecordDepositHold(ctx context.Context, tx *gorm.DB, bookingID string, amount decimal.Decimal, currency string) error
	RecordDepositCapture(ctx context.Context, tx *gorm.DB, bookingID, ownerID string, amount decimal.Decimal, currency string) error
	RecordDepositRelease(ctx context.Context, tx *gorm.DB, bookingID string, amount decimal.Decimal, currency string) error
	GetUserBalance(ctx context.Context, userID, currency string) (decimal.Decimal, error)
	GetBookingLedger(ctx context.Context, bookingID string) ([]models.LedgerEntry, error)
	GetPlatformRevenue(ctx context.Context, from, to time.Time, currency string) (*PlatformRevenue, error)
}

type ledgerService struct {
	ledgerRepo  repository.LedgerRepository
	bookingRepo repository.BookingRepository
	log         zerolog.Logger
}

func NewLedgerService(ledgerRepo repository.LedgerRepository, bookingRepo repository.BookingRepository, log zerolog.Logger) LedgerService {
	return &ledgerService{ledgerRepo: ledgerRepo, bookingRepo: bookingRepo, log: log}
}

// pair returns the two sides of one economic event: a debit and a credit of
// the same amount.
func pair(bookingID, payoutID *string, txn models.TransactionType, debitAccount, creditAccount models.AccountType, amount decimal.Decimal, currency, description string) []models.LedgerEntry {
	return []models.LedgerEntry{
		{
			ID:              uuid.NewString(),
			BookingID:       bookingID,
			PayoutID:        payoutID,
			AccountType:     debitAccount,
			TransactionType: txn,
			Side:            models.SideDebit,
			Amount:          amount,
			Currency:        currency,
			Status:          models.EntrySettled,
			Description:     description,
		},
		{
			ID:              uuid.NewString(),
			BookingID:       bookingID,
			PayoutID:        payoutID,
			AccountType:     creditAccount,
			TransactionType: txn,
			Side:            models.SideCredit,
			Amount:          amount,
			Currency:        currency,
			Status:          models.EntrySettled,
			Description:     description,
		},
	}
}

// validateBatch enforces the core invariant before anything is persisted:
// every amount is positive and debits equal credits per currency.
func validateBatch(entries []models.LedgerEntry) error {
	if len(entries) < 2 {
		return ErrUnbalancedPosting
	}
	sums := map[string]decimal.Decimal{}
	for _, e := range entries {
		if !e.Amount.IsPositive() {
			return ErrInvalidAmount
		}
		delta := e.Amount
		if e.Side == models.SideCredit {
			delta = delta.Neg()
		}
		sums[e.Currency] = sums[e.Currency].Add(delta)
	}
	for _, sum := range sums {
		if !sum.IsZero() {
			return ErrUnbalancedPosting
		}
	}
	return nil
}

func (s *ledgerService) post(ctx context.Context, tx *gorm.DB, entries []models.LedgerEntry) error {
	if err := validateBatch(entries); err != nil {
		return err
	}
	if err := s.ledgerRepo.CreateBatch(ctx, tx, entries); err != nil {
		return fmt.Errorf("persist ledger batch: %w", err)
	}
	return nil
}

// RecordBookingPayment posts the four balanced pairs of a captured payment:
// funds into platform custody, the two fee recognitions, and the amount now
// owed to the owner.
func (s *ledgerService) RecordBookingPayment(ctx context.Context, tx *gorm.DB, bookingID, renterID, ownerID string, b PaymentBreakdown) error {
	if !b.Total.IsPositive() || !b.Subtotal.IsPositive() {
		return ErrInvalidAmount
	}
	if b.PlatformFee.IsNegative() || b.ServiceFee.IsNegative() {
		return ErrInvalidAmount
	}
	ownerEarnings := b.Subtotal.Sub(b.PlatformFee)
	if !ownerEarnings.IsPositive() {
		return ErrInvalidBreakdown
	}

	entries := pair(&bookingID, nil, models.TxnPayment,
		models.AccountCash, models.AccountLiability,
		b.Total, b.Currency,
		fmt.Sprintf("payment received from renter %s", renterID))

	if b.PlatformFee.IsPositive() {
		entries = append(entries, pair(&bookingID, nil, models.TxnPlatformFee,
			models.AccountLiability, models.AccountRevenue,
			b.PlatformFee, b.Currency, "platform fee")...)
	}
	if b.ServiceFee.IsPositive() {
		entries = append(entries, pair(&bookingID, nil, models.TxnServiceFee,
			models.AccountLiability, models.AccountRevenue,
			b.ServiceFee, b.Currency, "service fee")...)
	}
	entries = append(entries, pair(&bookingID, nil, models.TxnOwnerEarning,
		models.AccountLiability, models.AccountReceivable,
		ownerEarnings, b.Currency,
		fmt.Sprintf("earnings owed to owner %s", ownerID))...)

	if err := s.post(ctx, tx, entries); err != nil {
		return err
	}

	s.log.Info().
		Str("booking_id", bookingID).
		Str("total", b.Total.String()).
		Str("owner_earnings", ownerEarnings.String()).
		Msg("booking payment posted")
	return nil
}

func (s *ledgerService) RecordRefund(ctx context.Context, tx *gorm.DB, bookingID, renterID string, amount decimal.Decimal, currency string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	entries := pair(&bookingID, nil, models.TxnRefund,
		models.AccountCash, models.AccountLiability,
		amount, currency,
		fmt.Sprintf("refund to renter %s", renterID))
	if err := s.post(ctx, tx, entries); err != nil {
		return err
	}
	s.log.Info().Str("booking_id", bookingID).Str("amount", amount.String()).Msg("refund posted")
	return nil
}

// RecordPayout settles part of the owner's receivable balance. The batch
// anchors to the payout, not to any single booking.
func (s *ledgerService) RecordPayout(ctx context.Context, tx *gorm.DB, payoutID, ownerID string, amount decimal.Decimal, currency string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	entries := pair(nil, &payoutID, models.TxnPayout,
		models.AccountReceivable, models.AccountCash,
		amount, currency,
		fmt.Sprintf("payout to owner %s", ownerID))
	if err := s.post(ctx, tx, entries); err != nil {
		return err
	}
	s.log.Info().Str("payout_id", payoutID).Str("owner_id", ownerID).Str("amount", amount.String()).Msg("payout posted")
	return nil
}

func (s *ledgerService) RecordDepositHold(ctx context.Context, tx *gorm.DB, bookingID string, amount decimal.Decimal, currency string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	entries := pair(&bookingID, nil, models.TxnDepositHold,
		models.AccountCash, models.AccountLiability,
		amount, currency, "security deposit held")
	return s.post(ctx, tx, entries)
}

// RecordDepositCapture converts a held deposit into money owed to the owner
// after a dispute resolves against the renter.
func (s *ledgerService) RecordDepositCapture(ctx context.Context, tx *gorm.DB, bookingID, ownerID string, amount decimal.Decimal, currency string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	entries := pair(&bookingID, nil, models.TxnDepositCapture,
		models.AccountLiability, models.AccountReceivable,
		amount, currency,
		fmt.Sprintf("security deposit captured for owner %s", ownerID))
	if err := s.post(ctx, tx, entries); err != nil {
		return err
	}
	s.log.Info().Str("booking_id", bookingID).Str("amount", amount.String()).Msg("deposit capture posted")
	return nil
}

func (s *ledgerService) RecordDepositRelease(ctx context.Context, tx *gorm.DB, bookingID string, amount decimal.Decimal, currency string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	entries := pair(&bookingID, nil, models.TxnDepositRelease,
		models.AccountLiability, models.AccountCash,
		amount, currency, "security deposit released")
	return s.post(ctx, tx, entries)
}

// GetUserBalance sums the owner's receivable entries: credit increases what
// the platform owes, debit decreases it. Payout debits anchor to a payout row
// rather than a booking, so the repository query attributes them through the
// payout's owner. Owners with no bookings short-circuit to zero, which is
// safe because a payout requires prior booking earnings.
func (s *ledgerService) GetUserBalance(ctx context.Context, userID, currency string) (decimal.Decimal, error) {
	bookingIDs, err := s.bookingRepo.ListOwnerBookingIDs(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list owner bookings: %w", err)
	}
	if len(bookingIDs) == 0 {
		return decimal.Zero, nil
	}

	entries, err := s.ledgerRepo.FindOwnerReceivables(ctx, userID, bookingIDs, currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query receivable entries: %w", err)
	}

	balance := decimal.Zero
	for _, e := range entries {
		if e.Side == models.SideCredit {
			balance = balance.Add(e.Amount)
		} else {
			balance = balance.Sub(e.Amount)
		}
	}
	return balance, nil
}

func (s *ledgerService) GetBookingLedger(ctx context.Context, bookingID string) ([]models.LedgerEntry, error) {
	return s.ledgerRepo.FindByBookingID(ctx, bookingID)
}

// GetPlatformRevenue sums revenue-account entries by transaction type inside
// the window. Debits negate revenue, which keeps reversing entries honest.
func (s *ledgerService) GetPlatformRevenue(ctx context.Context, from, to time.Time, currency string) (*PlatformRevenue, error) {
	entries, err := s.ledgerRepo.FindByAccountInWindow(ctx, models.AccountRevenue, from, to, currency)
	if err != nil {
		return nil, fmt.Errorf("query revenue entries: %w", err)
	}

	rev := &PlatformRevenue{
		PlatformFees: decimal.Zero,
		ServiceFees:  decimal.Zero,
		Total:        decimal.Zero,
	}
	for _, e := range entries {
		delta := e.Amount
		if e.Side == models.SideDebit {
			delta = delta.Neg()
		}
		switch e.TransactionType {
		case models.TxnPlatformFee:
			rev.PlatformFees = rev.PlatformFees.Add(delta)
		case models.TxnServiceFee:
			rev.ServiceFees = rev.ServiceFees.Add(delta)
		}
	}
	rev.Total = rev.PlatformFees.Add(rev.ServiceFees)
	return rev, nil
}
