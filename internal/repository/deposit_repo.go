package repository

import (
	"context"
	"time"

	"github.com/samujjwal/gearlend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DepositRepository interface {
	Create(ctx context.Context, tx *gorm.DB, hold *models.DepositHold) error
	FindOpenByBookingID(ctx context.Context, bookingID string) (*models.DepositHold, error)
	MarkCaptured(ctx context.Context, tx *gorm.DB, id string, amount decimal.Decimal) (int64, error)
	MarkReleased(ctx context.Context, tx *gorm.DB, id string) (int64, error)
	FindExpiredOpen(ctx context.Context, before time.Time) ([]models.DepositHold, error)
}

type depositRepository struct {
	db *gorm.DB
}

func NewDepositRepository(db *gorm.DB) DepositRepository {
	return &depositRepository{db: db}
}

func (r *depositRepository) Create(ctx context.Context, tx *gorm.DB, hold *models.DepositHold) error {
	return tx.WithContext(ctx).Create(hold).Error
}

func (r *depositRepository) FindOpenByBookingID(ctx context.Context, bookingID string) (*models.DepositHold, error) {
	var hold models.DepositHold
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status = ?", bookingID, models.HoldAuthorized).
		First(&hold).Error
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

// MarkCaptured and MarkReleased are guarded on AUTHORIZED so a hold can only
// leave that state once, in one direction.
func (r *depositRepository) MarkCaptured(ctx context.Context, tx *gorm.DB, id string, amount decimal.Decimal) (int64, error) {
	result := tx.WithContext(ctx).
		Model(&models.DepositHold{}).
		Where("id = ? AND status = ?", id, models.HoldAuthorized).
		Updates(map[string]any{"status": models.HoldCaptured, "captured_amount": amount})
	return result.RowsAffected, result.Error
}

func (r *depositRepository) MarkReleased(ctx context.Context, tx *gorm.DB, id string) (int64, error) {
	result := tx.WithContext(ctx).
		Model(&models.DepositHold{}).
		Where("id = ? AND status = ?", id, models.HoldAuthorized).
		Update("status", models.HoldReleased)
	return result.RowsAffected, result.Error
}

func (r *depositRepository) FindExpiredOpen(ctx context.Context, before time.Time) ([]models.DepositHold, error) {
	var holds []models.DepositHold
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.HoldAuthorized, before).
		Find(&holds).Error
	return holds, err
}
