package dto

import (
	"time"

	"github.com/samujjwal/gearlend/internal/models"
	"github.com/shopspring/decimal"
)

type BookingResponse struct {
	ID              string               `json:"id"`
	ListingID       string               `json:"listing_id"`
	RenterID        string               `json:"renter_id"`
	Status          models.BookingStatus `json:"status"`
	StartDate       time.Time            `json:"start_date"`
	EndDate         time.Time            `json:"end_date"`
	TotalPrice      decimal.Decimal      `json:"total_price"`
	PlatformFee     decimal.Decimal      `json:"platform_fee"`
	ServiceFee      decimal.Decimal      `json:"service_fee"`
	OwnerEarnings   decimal.Decimal      `json:"owner_earnings"`
	SecurityDeposit decimal.Decimal      `json:"security_deposit"`
	Currency        string               `json:"currency"`
	CreatedAt       time.Time            `json:"created_at"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
}

type HistoryResponse struct {
	FromState  models.BookingStatus `json:"from_state"`
	ToState    models.BookingStatus `json:"to_state"`
	Transition string               `json:"transition"`
	ActorID    string               `json:"actor_id"`
	ActorRole  models.ActorRole     `json:"actor_role"`
	Reason     string               `json:"reason,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

type LedgerEntryResponse struct {
	ID              string                 `json:"id"`
	BookingID       *string                `json:"booking_id,omitempty"`
	PayoutID        *string                `json:"payout_id,omitempty"`
	AccountType     models.AccountType     `json:"account_type"`
	TransactionType models.TransactionType `json:"transaction_type"`
	Side            models.EntrySide       `json:"side"`
	Amount          decimal.Decimal        `json:"amount"`
	Currency        string                 `json:"currency"`
	Status          models.EntryStatus     `json:"status"`
	Description     string                 `json:"description"`
	CreatedAt       time.Time              `json:"created_at"`
}

type BalanceResponse struct {
	UserID   string          `json:"user_id"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

type PayoutResponse struct {
	ID       string              `json:"payout_id"`
	OwnerID  string              `json:"owner_id"`
	Amount   decimal.Decimal     `json:"amount"`
	Currency string              `json:"currency"`
	Status   models.PayoutStatus `json:"status"`
}

type DepositHoldResponse struct {
	ID             string                   `json:"id"`
	BookingID      string                   `json:"booking_id"`
	Amount         decimal.Decimal          `json:"amount"`
	Currency       string                   `json:"currency"`
	Status         models.DepositHoldStatus `json:"status"`
	CapturedAmount *decimal.Decimal         `json:"captured_amount,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID,
		ListingID:       b.ListingID,
		RenterID:        b.RenterID,
		Status:          b.Status,
		StartDate:       b.StartDate,
		EndDate:         b.EndDate,
		TotalPrice:      b.TotalPrice,
		PlatformFee:     b.PlatformFee,
		ServiceFee:      b.ServiceFee,
		OwnerEarnings:   b.OwnerEarnings,
		SecurityDeposit: b.SecurityDeposit,
		Currency:        b.Currency,
		CreatedAt:       b.CreatedAt,
		CompletedAt:     b.CompletedAt,
	}
}

func ToHistoryResponse(h *models.BookingStateHistory) HistoryResponse {
	return HistoryResponse{
		FromState:  h.FromState,
		ToState:    h.ToState,
		Transition: h.Transition,
		ActorID:    h.ActorID,
		ActorRole:  h.ActorRole,
		Reason:     h.Reason,
		CreatedAt:  h.CreatedAt,
	}
}

func ToLedgerEntryResponse(e *models.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:              e.ID,
		BookingID:       e.BookingID,
		PayoutID:        e.PayoutID,
		AccountType:     e.AccountType,
		TransactionType: e.TransactionType,
		Side:            e.Side,
		Amount:          e.Amount,
		Currency:        e.Currency,
		Status:          e.Status,
		Description:     e.Description,
		CreatedAt:       e.CreatedAt,
	}
}

func ToDepositHoldResponse(h *models.DepositHold) DepositHoldResponse {
	return DepositHoldResponse{
		ID:             h.ID,
		BookingID:      h.BookingID,
		Amount:         h.Amount,
		Currency:       h.Currency,
		Status:         h.Status,
		CapturedAmount: h.CapturedAmount,
	}
}

func ToPayoutResponse(p *models.Payout) PayoutResponse {
	return PayoutResponse{
		ID:       p.ID,
		OwnerID:  p.OwnerID,
		Amount:   p.Amount,
		Currency: p.Currency,
		Status:   p.Status,
	}
}
