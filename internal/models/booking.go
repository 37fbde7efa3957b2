package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	StatusDraft                    BookingStatus = "DRAFT"
	StatusPendingOwnerApproval     BookingStatus = "PENDING_OWNER_APPROVAL"
	StatusPendingPayment           BookingStatus = "PENDING_PAYMENT"
	StatusConfirmed                BookingStatus = "CONFIRMED"
	StatusInProgress               BookingStatus = "IN_PROGRESS"
	StatusAwaitingReturnInspection BookingStatus = "AWAITING_RETURN_INSPECTION"
	StatusDisputed                 BookingStatus = "DISPUTED"
	StatusCompleted                BookingStatus = "COMPLETED"
	StatusSettled                  BookingStatus = "SETTLED"
	StatusCancelled                BookingStatus = "CANCELLED"
	StatusRefunded                 BookingStatus = "REFUNDED"
)

type ActorRole string

const (
	RoleRenter ActorRole = "RENTER"
	RoleOwner  ActorRole = "OWNER"
	RoleSystem ActorRole = "SYSTEM"
)

type Booking struct {
	ID              string          `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID       string          `gorm:"type:uuid;not null;index" json:"listing_id"`
	RenterID        string          `gorm:"type:uuid;not null;index" json:"renter_id"`
	Status          BookingStatus   `gorm:"type:varchar(30);not null;default:'DRAFT';index" json:"status"`
	StartDate       time.Time       `gorm:"not null" json:"start_date"`
	EndDate         time.Time       `gorm:"not null" json:"end_date"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_price"`
	PlatformFee     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"platform_fee"`
	ServiceFee      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"service_fee"`
	OwnerEarnings   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"owner_earnings"`
	SecurityDeposit decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"security_deposit"`
	Currency        string          `gorm:"type:varchar(3);not null" json:"currency"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`

	Listing *Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
}

// BookingStateHistory is the append-only audit trail of accepted transitions.
// Rows are never updated or deleted.
type BookingStateHistory struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	BookingID  string        `gorm:"type:uuid;not null;index" json:"booking_id"`
	FromState  BookingStatus `gorm:"type:varchar(30);not null" json:"from_state"`
	ToState    BookingStatus `gorm:"type:varchar(30);not null" json:"to_state"`
	Transition string        `gorm:"type:varchar(40);not null" json:"transition"`
	ActorID    string        `gorm:"type:varchar(64);not null" json:"actor_id"`
	ActorRole  ActorRole     `gorm:"type:varchar(10);not null" json:"actor_role"`
	Reason     string        `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}
