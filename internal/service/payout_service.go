package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samujjwal/gearlend/internal/models"
	"github.com/samujjwal/gearlend/internal/repository"
	"github.com/samujjwal/gearlend/pkg/gateway"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrPayoutAccountMissing    = errors.New("owner has no connected payout account")
	ErrPayoutAccountUnverified = errors.New("payout account is not verified")
	ErrInsufficientFunds       = errors.New("insufficient funds")
)

// autoPayoutThreshold is the minimum pending balance for a scheduled payout.
var autoPayoutThreshold = decimal.NewFromInt(50)

type PayoutService interface {
	GetPendingEarnings(ctx context.Context, ownerID string) (decimal.Decimal, error)
	CreatePayout(ctx context.Context, ownerID string, amount *decimal.Decimal) (*models.Payout, error)
	ScheduleAutomaticPayouts(ctx context.Context)
}

type payoutService struct {
	payoutRepo repository.PayoutRepository
	ledger     LedgerService
	gateway    gateway.PaymentGateway
	log        zerolog.Logger
}

func NewPayoutService(payoutRepo repository.PayoutRepository, ledger LedgerService, gw gateway.PaymentGateway, log zerolog.Logger) PayoutService {
	return &payoutService{payoutRepo: payoutRepo, ledger: ledger, gateway: gw, log: log}
}

// GetPendingEarnings is accrued owner earnings on finished bookings minus
// payouts already issued or in flight.
func (s *payoutService) GetPendingEarnings(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	earned, err := s.payoutRepo.SumOwnerEarnings(ctx, ownerID,
		[]models.BookingStatus{models.StatusCompleted, models.StatusSettled})
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum owner earnings: %w", err)
	}
	paid, err := s.payoutRepo.SumPayoutsByOwner(ctx, ownerID,
		[]models.PayoutStatus{models.PayoutPending, models.PayoutInTransit, models.PayoutPaid})
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum issued payouts: %w", err)
	}
	return earned.Sub(paid), nil
}

// CreatePayout transfers funds to the owner's connected account and records
// the payout plus its balanced ledger batch. A nil amount pays out the full
// pending balance.
func (s *payoutService) CreatePayout(ctx context.Context, ownerID string, amount *decimal.Decimal) (*models.Payout, error) {
	account, err := s.payoutRepo.FindAccountByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutAccountMissing
		}
		return nil, fmt.Errorf("load payout account: %w", err)
	}
	if !account.Verified {
		return nil, ErrPayoutAccountUnverified
	}

	pending, err := s.GetPendingEarnings(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	payoutAmount := pending
	if amount != nil {
		payoutAmount = *amount
	}
	if !payoutAmount.IsPositive() {
		return nil, fmt.Errorf("%w: nothing to pay out", ErrInsufficientFunds)
	}
	if payoutAmount.GreaterThan(pending) {
		return nil, fmt.Errorf("%w: requested %s, pending %s", ErrInsufficientFunds, payoutAmount.String(), pending.String())
	}

	transferRef, err := s.gateway.Transfer(ctx, account.ExternalRef, payoutAmount, account.Currency)
	if err != nil {
		return nil, fmt.Errorf("external transfer failed: %w", err)
	}

	payout := &models.Payout{
		ID:                uuid.NewString(),
		OwnerID:           ownerID,
		Amount:            payoutAmount,
		Currency:          account.Currency,
		Status:            models.PayoutPending,
		TransferReference: transferRef,
	}

	err = s.payoutRepo.Transact(ctx, func(tx *gorm.DB) error {
		if err := s.payoutRepo.Create(ctx, tx, payout); err != nil {
			return fmt.Errorf("create payout record: %w", err)
		}
		return s.ledger.RecordPayout(ctx, tx, payout.ID, ownerID, payoutAmount, account.Currency)
	})
	if err != nil {
		// The transfer already left the platform; this is an operational
		// gap that must be reconciled by hand, so log it loudly.
		s.log.Error().Err(err).
			Str("owner_id", ownerID).
			Str("transfer_ref", transferRef).
			Str("amount", payoutAmount.String()).
			Msg("payout transfer sent but record/ledger write failed; manual reconciliation required")
		return nil, err
	}

	s.log.Info().
		Str("payout_id", payout.ID).
		Str("owner_id", ownerID).
		Str("amount", payoutAmount.String()).
		Msg("payout created")
	return payout, nil
}

// ScheduleAutomaticPayouts pays every verified owner whose pending balance
// meets the threshold. One owner's failure does not stop the loop.
func (s *payoutService) ScheduleAutomaticPayouts(ctx context.Context) {
	accounts, err := s.payoutRepo.ListVerifiedAccounts(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("automatic payouts: list verified accounts")
		return
	}

	for _, account := range accounts {
		pending, err := s.GetPendingEarnings(ctx, account.OwnerID)
		if err != nil {
			s.log.Error().Err(err).Str("owner_id", account.OwnerID).Msg("automatic payouts: pending earnings")
			continue
		}
		if pending.LessThan(autoPayoutThreshold) {
			continue
		}
		if _, err := s.CreatePayout(ctx, account.OwnerID, nil); err != nil {
			s.log.Error().Err(err).Str("owner_id", account.OwnerID).Msg("automatic payouts: create payout")
		}
	}
}
