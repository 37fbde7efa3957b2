package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "PENDING"
	PayoutInTransit PayoutStatus = "IN_TRANSIT"
	PayoutPaid      PayoutStatus = "PAID"
	PayoutFailed    PayoutStatus = "FAILED"
)

type Payout struct {
	ID                string          `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID           string          `gorm:"type:uuid;not null;index" json:"owner_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Currency          string          `gorm:"type:varchar(3);not null" json:"currency"`
	Status            PayoutStatus    `gorm:"type:varchar(12);not null;default:'PENDING'" json:"status"`
	TransferReference string          `gorm:"type:varchar(128)" json:"transfer_reference,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// PayoutAccount is the owner's connected external transfer destination.
type PayoutAccount struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID     string    `gorm:"type:uuid;not null;uniqueIndex" json:"owner_id"`
	Provider    string    `gorm:"type:varchar(32);not null" json:"provider"`
	ExternalRef string    `gorm:"type:varchar(128);not null" json:"external_ref"`
	Verified    bool      `gorm:"not null;default:false" json:"verified"`
	Currency    string    `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
