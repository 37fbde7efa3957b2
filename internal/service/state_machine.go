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
	"github.com/samujjwal/gearlend/pkg/clock"
	"github.com/samujjwal/gearlend/pkg/gateway"
	"github.com/samujjwal/gearlend/pkg/rabbitmq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrBookingNotFound      = errors.New("booking not found")
	ErrInvalidTransition    = errors.New("transition not defined for current state")
	ErrNotAuthorized        = errors.New("actor not authorized for this transition")
	ErrManualReviewRequired = errors.New("booking blocked: manual review required")
	ErrConcurrentTransition = errors.New("booking state changed concurrently")
	ErrInvalidBooking       = errors.New("invalid booking")
	ErrNoOpenDeposit        = errors.New("no open deposit hold for booking")
	ErrInvalidCaptureAmount = errors.New("capture amount must be positive and within the held deposit")
)

// Transition names.
const (
	TransSubmitRequest   = "SUBMIT_REQUEST"
	TransOwnerApprove    = "OWNER_APPROVE"
	TransOwnerReject     = "OWNER_REJECT"
	TransCompletePayment = "COMPLETE_PAYMENT"
	TransExpire          = "EXPIRE"
	TransStartRental     = "START_RENTAL"
	TransCancel          = "CANCEL"
	TransRequestReturn   = "REQUEST_RETURN"
	TransInitiateDispute = "INITIATE_DISPUTE"
	TransApproveReturn   = "APPROVE_RETURN"
	TransRejectReturn    = "REJECT_RETURN"
	TransSettle          = "SETTLE"
	TransRefund          = "REFUND"
)

type transitionRule struct {
	from models.BookingStatus
	name string
	to   models.BookingStatus
	role models.ActorRole
}

// transitionTable is the authoritative edge set of the lifecycle. Everything
// else in this file enforces or reads it.
var transitionTable = []transitionRule{
	{models.StatusDraft, TransSubmitRequest, models.StatusPendingOwnerApproval, models.RoleRenter},
	{models.StatusPendingOwnerApproval, TransOwnerApprove, models.StatusPendingPayment, models.RoleOwner},
	{models.StatusPendingOwnerApproval, TransOwnerReject, models.StatusCancelled, models.RoleOwner},
	{models.StatusPendingPayment, TransCompletePayment, models.StatusConfirmed, models.RoleRenter},
	{models.StatusPendingPayment, TransExpire, models.StatusCancelled, models.RoleSystem},
	{models.StatusConfirmed, TransStartRental, models.StatusInProgress, models.RoleOwner},
	{models.StatusConfirmed, TransCancel, models.StatusCancelled, models.RoleRenter},
	{models.StatusInProgress, TransRequestReturn, models.StatusAwaitingReturnInspection, models.RoleRenter},
	{models.StatusInProgress, TransInitiateDispute, models.StatusDisputed, models.RoleRenter},
	{models.StatusAwaitingReturnInspection, TransApproveReturn, models.StatusCompleted, models.RoleOwner},
	{models.StatusAwaitingReturnInspection, TransRejectReturn, models.StatusDisputed, models.RoleOwner},
	{models.StatusAwaitingReturnInspection, TransExpire, models.StatusCompleted, models.RoleSystem},
	{models.StatusCompleted, TransSettle, models.StatusSettled, models.RoleSystem},
	{models.StatusCancelled, TransRefund, models.StatusRefunded, models.RoleSystem},
}

func findRule(from models.BookingStatus, name string) *transitionRule {
	for i := range transitionTable {
		if transitionTable[i].from == from && transitionTable[i].name == name {
			return &transitionTable[i]
		}
	}
	return nil
}

// TransitionCheck is the read-only answer of CanTransition.
type TransitionCheck struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type StateMachineConfig struct {
	PaymentTimeout   time.Duration // PENDING_PAYMENT -> EXPIRE after this
	InspectionWindow time.Duration // AWAITING_RETURN_INSPECTION -> EXPIRE after this
	DepositHoldTTL   time.Duration // deposit authorization lifetime past the rental end
}

type BookingStateMachine interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	CanTransition(ctx context.Context, bookingID, transition string, role models.ActorRole) TransitionCheck
	Transition(ctx context.Context, bookingID, transition, actorID string, role models.ActorRole) (*models.Booking, error)
	CaptureDeposit(ctx context.Context, bookingID string, amount decimal.Decimal) (*models.DepositHold, error)
	GetAvailableTransitions(state models.BookingStatus, role models.ActorRole) []string
	IsTerminalState(state models.BookingStatus) bool
	GetStateHistory(ctx context.Context, bookingID string) ([]models.BookingStateHistory, error)
	AutoTransitionExpiredBookings(ctx context.Context)
	ReleaseExpiredDeposits(ctx context.Context)
}

type stateMachine struct {
	cfg         StateMachineConfig
	bookingRepo repository.BookingRepository
	depositRepo repository.DepositRepository
	ledger      LedgerService
	risk        RiskService
	gateway     gateway.PaymentGateway
	publisher   *rabbitmq.Publisher
	clock       clock.Clock
	log         zerolog.Logger
}

func NewBookingStateMachine(
	cfg StateMachineConfig,
	bookingRepo repository.BookingRepository,
	depositRepo repository.DepositRepository,
	ledger LedgerService,
	risk RiskService,
	gw gateway.PaymentGateway,
	publisher *rabbitmq.Publisher,
	clk clock.Clock,
	log zerolog.Logger,
) BookingStateMachine {
	return &stateMachine{
		cfg:         cfg,
		bookingRepo: bookingRepo,
		depositRepo: depositRepo,
		ledger:      ledger,
		risk:        risk,
		gateway:     gw,
		publisher:   publisher,
		clock:       clk,
		log:         log,
	}
}

// CreateBooking inserts a new booking in DRAFT. Every later status change
// goes through Transition.
func (s *stateMachine) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ListingID == "" || booking.RenterID == "" {
		return fmt.Errorf("%w: listing and renter are required", ErrInvalidBooking)
	}
	if !booking.EndDate.After(booking.StartDate) {
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidBooking)
	}
	if !booking.TotalPrice.IsPositive() {
		return fmt.Errorf("%w: total price must be positive", ErrInvalidBooking)
	}
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	booking.Status = models.StatusDraft

	return s.bookingRepo.Transact(ctx, func(tx *gorm.DB) error {
		return s.bookingRepo.Create(ctx, tx, booking)
	})
}

// CanTransition never mutates and fails closed: an unknown booking, an
// undefined edge or a role mismatch each yield allowed=false with the reason
// in that order of precedence.
func (s *stateMachine) CanTransition(ctx context.Context, bookingID, transition string, role models.ActorRole) TransitionCheck {
	booking, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return TransitionCheck{Allowed: false, Reason: "Booking not found"}
	}
	rule := findRule(booking.Status, transition)
	if rule == nil {
		return TransitionCheck{Allowed: false, Reason: fmt.Sprintf("transition %s not defined for state %s", transition, booking.Status)}
	}
	if rule.role != role {
		return TransitionCheck{Allowed: false, Reason: fmt.Sprintf("role %s is not authorized for %s", role, transition)}
	}
	return TransitionCheck{Allowed: true}
}

// Transition applies one edge of the table atomically: row lock, edge and
// authorization checks, risk gate, status update, history row, financial
// postings. On any failure nothing is persisted.
func (s *stateMachine) Transition(ctx context.Context, bookingID, transition, actorID string, role models.ActorRole) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.Transact(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return ErrBookingNotFound
		}

		rule := findRule(booking.Status, transition)
		if rule == nil {
			return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, transition, booking.Status)
		}
		if rule.role != role {
			return fmt.Errorf("%w: role %s cannot invoke %s", ErrNotAuthorized, role, transition)
		}
		switch role {
		case models.RoleRenter:
			if actorID != booking.RenterID {
				return fmt.Errorf("%w: actor is not the renter of this booking", ErrNotAuthorized)
			}
		case models.RoleOwner:
			if booking.Listing == nil || actorID != booking.Listing.OwnerID {
				return fmt.Errorf("%w: actor is not the owner of this booking", ErrNotAuthorized)
			}
		}

		// Risk gate: approving opens the path to payment, so score the
		// booking before taking the edge.
		if transition == TransOwnerApprove {
			if err := s.applyRiskGate(ctx, booking); err != nil {
				return err
			}
		}

		rows, err := s.bookingRepo.UpdateStatus(ctx, tx, booking.ID, rule.from, rule.to)
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		if rows == 0 {
			return ErrConcurrentTransition
		}

		history := &models.BookingStateHistory{
			BookingID:  booking.ID,
			FromState:  rule.from,
			ToState:    rule.to,
			Transition: transition,
			ActorID:    actorID,
			ActorRole:  role,
			CreatedAt:  s.clock.Now(),
		}
		if err := s.bookingRepo.AppendHistory(ctx, tx, history); err != nil {
			return fmt.Errorf("append state history: %w", err)
		}

		if err := s.applyFinancialEffects(ctx, tx, booking, rule); err != nil {
			return err
		}

		booking.Status = rule.to
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("booking_id", bookingID).
		Str("transition", transition).
		Str("to_state", string(result.Status)).
		Str("actor_role", string(role)).
		Msg("booking state transition")

	if s.publisher != nil {
		_ = s.publisher.Publish("booking.state_changed", map[string]any{
			"booking_id": result.ID,
			"transition": transition,
			"to_state":   result.Status,
			"actor_role": role,
			"at":         s.clock.Now(),
		})
	}

	return result, nil
}

func (s *stateMachine) applyRiskGate(ctx context.Context, booking *models.Booking) error {
	assessment, err := s.risk.CheckBookingRisk(ctx, BookingRiskInput{
		UserID:     booking.RenterID,
		ListingID:  booking.ListingID,
		TotalPrice: booking.TotalPrice,
		StartDate:  booking.StartDate,
		EndDate:    booking.EndDate,
	})
	if err != nil {
		return fmt.Errorf("risk check: %w", err)
	}
	s.risk.LogFraudCheck(ctx, "booking", booking.ID, assessment)
	if !assessment.AllowBooking {
		return fmt.Errorf("%w (risk level %s, score %d)", ErrManualReviewRequired, assessment.RiskLevel, assessment.RiskScore)
	}
	return nil
}

// applyFinancialEffects runs in the same transaction as the status change. A
// gateway failure aborts the whole transition; the booking must not advance
// to a state implying money moved unless the posting committed.
func (s *stateMachine) applyFinancialEffects(ctx context.Context, tx *gorm.DB, booking *models.Booking, rule *transitionRule) error {
	switch rule.name {
	case TransCompletePayment:
		return s.capturePayment(ctx, tx, booking)
	case TransRefund:
		return s.issueRefund(ctx, tx, booking)
	case TransSettle:
		return s.settle(ctx, tx, booking)
	}
	return nil
}

func (s *stateMachine) capturePayment(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	if _, err := s.gateway.Capture(ctx, booking.ID, booking.TotalPrice, booking.Currency); err != nil {
		return fmt.Errorf("payment capture failed: %w", err)
	}

	subtotal := booking.OwnerEarnings.Add(booking.PlatformFee)
	err := s.ledger.RecordBookingPayment(ctx, tx, booking.ID, booking.RenterID, booking.Listing.OwnerID, PaymentBreakdown{
		Total:       booking.TotalPrice,
		Subtotal:    subtotal,
		PlatformFee: booking.PlatformFee,
		ServiceFee:  booking.ServiceFee,
		Currency:    booking.Currency,
	})
	if err != nil {
		return err
	}

	if booking.SecurityDeposit.IsPositive() {
		ref, err := s.gateway.AuthorizeDeposit(ctx, booking.ID, booking.SecurityDeposit, booking.Currency)
		if err != nil {
			return fmt.Errorf("deposit authorization failed: %w", err)
		}
		hold := &models.DepositHold{
			ID:               uuid.NewString(),
			BookingID:        booking.ID,
			Amount:           booking.SecurityDeposit,
			Currency:         booking.Currency,
			Status:           models.HoldAuthorized,
			PaymentReference: ref,
			ExpiresAt:        booking.EndDate.Add(s.cfg.DepositHoldTTL),
		}
		if err := s.depositRepo.Create(ctx, tx, hold); err != nil {
			return fmt.Errorf("create deposit hold: %w", err)
		}
		if err := s.ledger.RecordDepositHold(ctx, tx, booking.ID, booking.SecurityDeposit, booking.Currency); err != nil {
			return err
		}
	}

	return nil
}

// issueRefund replays the booking's ledger before moving money: a booking
// cancelled without ever reaching COMPLETE_PAYMENT has no PAYMENT posting and
// there is nothing to return.
func (s *stateMachine) issueRefund(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	entries, err := s.ledger.GetBookingLedger(ctx, booking.ID)
	if err != nil {
		return fmt.Errorf("replay booking ledger: %w", err)
	}
	paid := false
	for _, e := range entries {
		if e.TransactionType == models.TxnPayment {
			paid = true
			break
		}
	}
	if !paid {
		return nil
	}

	if _, err := s.gateway.Refund(ctx, booking.ID, booking.TotalPrice, booking.Currency); err != nil {
		return fmt.Errorf("gateway refund failed: %w", err)
	}
	return s.ledger.RecordRefund(ctx, tx, booking.ID, booking.RenterID, booking.TotalPrice, booking.Currency)
}

// CaptureDeposit resolves a dispute against the renter by capturing part or
// all of the held security deposit for the owner. DISPUTED has no outgoing
// lifecycle edges, so this is a standalone operation rather than a transition.
func (s *stateMachine) CaptureDeposit(ctx context.Context, bookingID string, amount decimal.Decimal) (*models.DepositHold, error) {
	var result *models.DepositHold

	err := s.bookingRepo.Transact(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return ErrBookingNotFound
		}
		if booking.Status != models.StatusDisputed {
			return fmt.Errorf("%w: deposit capture requires state %s, booking is %s", ErrInvalidTransition, models.StatusDisputed, booking.Status)
		}

		hold, err := s.depositRepo.FindOpenByBookingID(ctx, booking.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoOpenDeposit
			}
			return fmt.Errorf("look up deposit hold: %w", err)
		}
		if !amount.IsPositive() || amount.GreaterThan(hold.Amount) {
			return ErrInvalidCaptureAmount
		}

		if _, err := s.gateway.Capture(ctx, hold.PaymentReference, amount, hold.Currency); err != nil {
			return fmt.Errorf("gateway deposit capture failed: %w", err)
		}

		rows, err := s.depositRepo.MarkCaptured(ctx, tx, hold.ID, amount)
		if err != nil {
			return fmt.Errorf("mark deposit captured: %w", err)
		}
		if rows == 0 {
			return ErrConcurrentTransition
		}

		if err := s.ledger.RecordDepositCapture(ctx, tx, booking.ID, booking.Listing.OwnerID, amount, hold.Currency); err != nil {
			return err
		}

		remainder := hold.Amount.Sub(amount)
		if remainder.IsPositive() {
			if err := s.gateway.ReleaseDeposit(ctx, hold.PaymentReference); err != nil {
				return fmt.Errorf("gateway deposit release failed: %w", err)
			}
			if err := s.ledger.RecordDepositRelease(ctx, tx, booking.ID, remainder, hold.Currency); err != nil {
				return err
			}
		}

		hold.Status = models.HoldCaptured
		hold.CapturedAmount = &amount
		result = hold
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("booking_id", bookingID).
		Str("captured_amount", amount.String()).
		Msg("security deposit captured")

	if s.publisher != nil {
		_ = s.publisher.Publish("booking.deposit_captured", map[string]any{
			"booking_id":      bookingID,
			"deposit_hold_id": result.ID,
			"amount":          amount,
			"at":              s.clock.Now(),
		})
	}

	return result, nil
}

func (s *stateMachine) settle(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	if err := s.bookingRepo.SetCompletedAt(ctx, tx, booking.ID, s.clock.Now()); err != nil {
		return fmt.Errorf("set completed at: %w", err)
	}

	hold, err := s.depositRepo.FindOpenByBookingID(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // no deposit to release
		}
		return fmt.Errorf("look up deposit hold: %w", err)
	}

	rows, err := s.depositRepo.MarkReleased(ctx, tx, hold.ID)
	if err != nil {
		return fmt.Errorf("release deposit hold: %w", err)
	}
	if rows == 0 {
		return nil // already captured or released
	}
	if err := s.gateway.ReleaseDeposit(ctx, hold.PaymentReference); err != nil {
		return fmt.Errorf("gateway deposit release failed: %w", err)
	}
	return s.ledger.RecordDepositRelease(ctx, tx, booking.ID, hold.Amount, hold.Currency)
}

// GetAvailableTransitions is a pure lookup over the table. SYSTEM-only edges
// are excluded for human roles.
func (s *stateMachine) GetAvailableTransitions(state models.BookingStatus, role models.ActorRole) []string {
	names := []string{}
	for _, rule := range transitionTable {
		if rule.from == state && rule.role == role {
			names = append(names, rule.name)
		}
	}
	return names
}

func (s *stateMachine) IsTerminalState(state models.BookingStatus) bool {
	switch state {
	case models.StatusSettled, models.StatusRefunded:
		return true
	case models.StatusCancelled:
		// CANCELLED is a permanent record but still admits the SYSTEM
		// refund edge; no human role can leave it.
		return true
	}
	return false
}

func (s *stateMachine) GetStateHistory(ctx context.Context, bookingID string) ([]models.BookingStateHistory, error) {
	return s.bookingRepo.HistoryByBookingID(ctx, bookingID)
}

// AutoTransitionExpiredBookings forcibly advances stale bookings past their
// wall-clock deadlines. Candidates are independent: one failure is logged and
// the sweep continues.
func (s *stateMachine) AutoTransitionExpiredBookings(ctx context.Context) {
	now := s.clock.Now()

	unpaid, err := s.bookingRepo.FindStaleByStatus(ctx, models.StatusPendingPayment, now.Add(-s.cfg.PaymentTimeout))
	if err != nil {
		s.log.Error().Err(err).Msg("expiry sweep: query unpaid bookings")
	}
	for _, b := range unpaid {
		if _, err := s.Transition(ctx, b.ID, TransExpire, "system", models.RoleSystem); err != nil {
			s.log.Error().Err(err).Str("booking_id", b.ID).Msg("expiry sweep: expire unpaid booking")
		}
	}

	uninspected, err := s.bookingRepo.FindIdleByStatus(ctx, models.StatusAwaitingReturnInspection, now.Add(-s.cfg.InspectionWindow))
	if err != nil {
		s.log.Error().Err(err).Msg("expiry sweep: query uninspected returns")
	}
	for _, b := range uninspected {
		if _, err := s.Transition(ctx, b.ID, TransExpire, "system", models.RoleSystem); err != nil {
			s.log.Error().Err(err).Str("booking_id", b.ID).Msg("expiry sweep: complete uninspected return")
		}
	}
}

// ReleaseExpiredDeposits releases holds whose authorization lapsed without a
// capture. An expired, uncaptured hold must eventually release.
func (s *stateMachine) ReleaseExpiredDeposits(ctx context.Context) {
	holds, err := s.depositRepo.FindExpiredOpen(ctx, s.clock.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("deposit sweep: query expired holds")
		return
	}
	for _, hold := range holds {
		err := s.bookingRepo.Transact(ctx, func(tx *gorm.DB) error {
			rows, err := s.depositRepo.MarkReleased(ctx, tx, hold.ID)
			if err != nil {
				return err
			}
			if rows == 0 {
				return nil
			}
			if err := s.gateway.ReleaseDeposit(ctx, hold.PaymentReference); err != nil {
				return err
			}
			return s.ledger.RecordDepositRelease(ctx, tx, hold.BookingID, hold.Amount, hold.Currency)
		})
		if err != nil {
			s.log.Error().Err(err).Str("deposit_hold_id", hold.ID).Msg("deposit sweep: release hold")
		}
	}
}
