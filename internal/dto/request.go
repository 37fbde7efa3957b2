package dto

import (
	"time"

	"github.com/samujjwal/gearlend/internal/models"
	"github.com/shopspring/decimal"
)

type CreateBookingRequest struct {
	ListingID       string          `json:"listing_id"`
	RenterID        string          `json:"renter_id"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	PlatformFee     decimal.Decimal `json:"platform_fee"`
	ServiceFee      decimal.Decimal `json:"service_fee"`
	OwnerEarnings   decimal.Decimal `json:"owner_earnings"`
	SecurityDeposit decimal.Decimal `json:"security_deposit"`
	Currency        string          `json:"currency"`
}

type TransitionRequest struct {
	Transition string           `json:"transition"`
	ActorID    string           `json:"actor_id"`
	ActorRole  models.ActorRole `json:"actor_role"`
}

type CreatePayoutRequest struct {
	OwnerID string           `json:"owner_id"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
}

type DepositCaptureRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type PaymentRiskRequest struct {
	UserID          string          `json:"user_id"`
	PaymentMethodID string          `json:"payment_method_id"`
	Amount          decimal.Decimal `json:"amount"`
}

type ListingRiskRequest struct {
	UserID      string          `json:"user_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	BasePrice   decimal.Decimal `json:"base_price"`
	PhotoCount  int             `json:"photo_count"`
}
