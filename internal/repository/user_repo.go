package repository

import (
	"context"
	"time"

	"github.com/samujjwal/gearlend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserRepository is the read-only aggregate surface the risk engine scores
// against, plus the fraud audit log writer.
type UserRepository interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindListingByID(ctx context.Context, id string) (*models.Listing, error)
	CountCancelledBookings(ctx context.Context, renterID string, since time.Time) (int64, error)
	CountDisputesInitiated(ctx context.Context, userID string, since time.Time) (int64, error)
	CountLowReviewsReceived(ctx context.Context, userID string, since time.Time) (int64, error)
	CountFinishedBookings(ctx context.Context, renterID string) (int64, error)
	CategoryAveragePrice(ctx context.Context, category string) (decimal.Decimal, error)
	CreateFraudCheckLog(ctx context.Context, row *models.FraudCheckLog) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindListingByID(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *userRepository) CountCancelledBookings(ctx context.Context, renterID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("renter_id = ? AND status IN ? AND updated_at >= ?",
			renterID,
			[]models.BookingStatus{models.StatusCancelled, models.StatusRefunded, models.StatusDisputed},
			since).
		Count(&count).Error
	return count, err
}

func (r *userRepository) CountDisputesInitiated(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("initiator_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

func (r *userRepository) CountLowReviewsReceived(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("reviewee_id = ? AND rating < 3 AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

func (r *userRepository) CountFinishedBookings(ctx context.Context, renterID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("renter_id = ? AND status IN ?",
			renterID,
			[]models.BookingStatus{models.StatusCompleted, models.StatusSettled}).
		Count(&count).Error
	return count, err
}

func (r *userRepository) CategoryAveragePrice(ctx context.Context, category string) (decimal.Decimal, error) {
	var avg decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("category = ?", category).
		Select("AVG(base_price)").
		Scan(&avg).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !avg.Valid {
		return decimal.Zero, nil
	}
	return avg.Decimal, nil
}

func (r *userRepository) CreateFraudCheckLog(ctx context.Context, row *models.FraudCheckLog) error {
	return r.db.WithContext(ctx).Create(row).Error
}
