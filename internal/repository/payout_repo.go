package repository

import (
	"context"

	"github.com/samujjwal/gearlend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PayoutRepository interface {
	Transact(ctx context.Context, fn func(tx *gorm.DB) error) error
	Create(ctx context.Context, tx *gorm.DB, payout *models.Payout) error
	SumPayoutsByOwner(ctx context.Context, ownerID string, statuses []models.PayoutStatus) (decimal.Decimal, error)
	SumOwnerEarnings(ctx context.Context, ownerID string, statuses []models.BookingStatus) (decimal.Decimal, error)
	FindAccountByOwner(ctx context.Context, ownerID string) (*models.PayoutAccount, error)
	ListVerifiedAccounts(ctx context.Context) ([]models.PayoutAccount, error)
}

type payoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

func (r *payoutRepository) Transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *payoutRepository) Create(ctx context.Context, tx *gorm.DB, payout *models.Payout) error {
	return tx.WithContext(ctx).Create(payout).Error
}

func (r *payoutRepository) SumPayoutsByOwner(ctx context.Context, ownerID string, statuses []models.PayoutStatus) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("owner_id = ? AND status IN ?", ownerID, statuses).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// SumOwnerEarnings accrues owner earnings over the owner's bookings in the
// given statuses.
func (r *payoutRepository) SumOwnerEarnings(ctx context.Context, ownerID string, statuses []models.BookingStatus) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Joins("JOIN listings ON listings.id = bookings.listing_id").
		Where("listings.owner_id = ? AND bookings.status IN ?", ownerID, statuses).
		Select("COALESCE(SUM(bookings.owner_earnings), 0)").
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

func (r *payoutRepository) FindAccountByOwner(ctx context.Context, ownerID string) (*models.PayoutAccount, error) {
	var account models.PayoutAccount
	if err := r.db.WithContext(ctx).First(&account, "owner_id = ?", ownerID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *payoutRepository) ListVerifiedAccounts(ctx context.Context) ([]models.PayoutAccount, error) {
	var accounts []models.PayoutAccount
	err := r.db.WithContext(ctx).
		Where("verified = ?", true).
		Order("created_at ASC").
		Find(&accounts).Error
	return accounts, err
}
