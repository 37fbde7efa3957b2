package repository

import (
	"context"
	"time"

	"github.com/samujjwal/gearlend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository interface {
	Transact(ctx context.Context, fn func(tx *gorm.DB) error) error
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id string, from, to models.BookingStatus) (int64, error)
	SetCompletedAt(ctx context.Context, tx *gorm.DB, id string, at time.Time) error
	AppendHistory(ctx context.Context, tx *gorm.DB, row *models.BookingStateHistory) error
	HistoryByBookingID(ctx context.Context, bookingID string) ([]models.BookingStateHistory, error)
	FindStaleByStatus(ctx context.Context, status models.BookingStatus, before time.Time) ([]models.Booking, error)
	FindIdleByStatus(ctx context.Context, status models.BookingStatus, updatedBefore time.Time) ([]models.Booking, error)
	ListOwnerBookingIDs(ctx context.Context, ownerID string) ([]string, error)
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Preload("Listing").First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByIDForUpdate acquires a row-level lock on the booking within the given
// transaction, serializing concurrent transition attempts.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	var listing models.Listing
	if err := tx.WithContext(ctx).First(&listing, "id = ?", booking.ListingID).Error; err != nil {
		return nil, err
	}
	booking.Listing = &listing
	return &booking, nil
}

// UpdateStatus only succeeds when the booking is still in the expected state;
// the returned row count tells the caller whether it won the race.
func (r *bookingRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, from, to models.BookingStatus) (int64, error) {
	result := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

func (r *bookingRepository) SetCompletedAt(ctx context.Context, tx *gorm.DB, id string, at time.Time) error {
	return tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Update("completed_at", at).Error
}

func (r *bookingRepository) AppendHistory(ctx context.Context, tx *gorm.DB, row *models.BookingStateHistory) error {
	return tx.WithContext(ctx).Create(row).Error
}

func (r *bookingRepository) HistoryByBookingID(ctx context.Context, bookingID string) ([]models.BookingStateHistory, error) {
	var rows []models.BookingStateHistory
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *bookingRepository) FindStaleByStatus(ctx context.Context, status models.BookingStatus, before time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", status, before).
		Order("created_at ASC").
		Find(&bookings).Error
	return bookings, err
}

// FindIdleByStatus keys off updated_at, i.e. when the booking entered its
// current state, rather than when it was created.
func (r *bookingRepository) FindIdleByStatus(ctx context.Context, status models.BookingStatus, updatedBefore time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", status, updatedBefore).
		Order("updated_at ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepository) ListOwnerBookingIDs(ctx context.Context, ownerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Joins("JOIN listings ON listings.id = bookings.listing_id").
		Where("listings.owner_id = ?", ownerID).
		Pluck("bookings.id", &ids).Error
	return ids, err
}
