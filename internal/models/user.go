package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type IDVerificationStatus string

const (
	IDVerificationPending  IDVerificationStatus = "PENDING"
	IDVerificationVerified IDVerificationStatus = "VERIFIED"
	IDVerificationRejected IDVerificationStatus = "REJECTED"
)

// User is a read model for the risk engine; account management itself lives
// outside the core.
type User struct {
	ID             string               `gorm:"type:uuid;primaryKey" json:"id"`
	Email          string               `gorm:"type:varchar(255);not null" json:"email"`
	EmailVerified  bool                 `gorm:"not null;default:false" json:"email_verified"`
	IDVerification IDVerificationStatus `gorm:"type:varchar(10);not null;default:'PENDING'" json:"id_verification"`
	AverageRating  float64              `gorm:"not null;default:0" json:"average_rating"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

type Listing struct {
	ID          string          `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID     string          `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Category    string          `gorm:"type:varchar(64);not null;index" json:"category"`
	BasePrice   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"base_price"`
	PhotoCount  int             `gorm:"not null;default:0" json:"photo_count"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BookingID  string    `gorm:"type:uuid;not null" json:"booking_id"`
	ReviewerID string    `gorm:"type:uuid;not null" json:"reviewer_id"`
	RevieweeID string    `gorm:"type:uuid;not null;index" json:"reviewee_id"`
	Rating     int       `gorm:"not null" json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
}

type Dispute struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BookingID   string    `gorm:"type:uuid;not null" json:"booking_id"`
	InitiatorID string    `gorm:"type:uuid;not null;index" json:"initiator_id"`
	Reason      string    `gorm:"type:text" json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// FraudCheckLog persists high-risk assessment results for the review queue.
type FraudCheckLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EntityType string    `gorm:"type:varchar(20);not null" json:"entity_type"`
	EntityID   string    `gorm:"type:varchar(64);not null;index" json:"entity_id"`
	RiskScore  int       `gorm:"not null" json:"risk_score"`
	RiskLevel  string    `gorm:"type:varchar(10);not null" json:"risk_level"`
	Flags      string    `gorm:"type:text" json:"flags"`
	CreatedAt  time.Time `json:"created_at"`
}
