package repository

import (
	"context"
	"time"

	"github.com/samujjwal/gearlend/internal/models"
	"gorm.io/gorm"
)

type LedgerRepository interface {
	Transact(ctx context.Context, fn func(tx *gorm.DB) error) error
	CreateBatch(ctx context.Context, tx *gorm.DB, entries []models.LedgerEntry) error
	FindByBookingID(ctx context.Context, bookingID string) ([]models.LedgerEntry, error)
	FindOwnerReceivables(ctx context.Context, ownerID string, bookingIDs []string, currency string) ([]models.LedgerEntry, error)
	FindByAccountInWindow(ctx context.Context, account models.AccountType, from, to time.Time, currency string) ([]models.LedgerEntry, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// CreateBatch persists all entries of one economic event atomically. Entries
// are never updated afterwards.
func (r *ledgerRepository) CreateBatch(ctx context.Context, tx *gorm.DB, entries []models.LedgerEntry) error {
	return tx.WithContext(ctx).Create(&entries).Error
}

func (r *ledgerRepository) FindByBookingID(ctx context.Context, bookingID string) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// FindOwnerReceivables returns every RECEIVABLE entry attributable to the
// owner: earning credits anchored to their bookings plus payout debits
// anchored to their payouts.
func (r *ledgerRepository) FindOwnerReceivables(ctx context.Context, ownerID string, bookingIDs []string, currency string) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Select("ledger_entries.*").
		Joins("LEFT JOIN payouts ON payouts.id = ledger_entries.payout_id").
		Where("ledger_entries.account_type = ? AND ledger_entries.currency = ?", models.AccountReceivable, currency).
		Where("ledger_entries.booking_id IN ? OR payouts.owner_id = ?", bookingIDs, ownerID).
		Find(&entries).Error
	return entries, err
}

func (r *ledgerRepository) FindByAccountInWindow(ctx context.Context, account models.AccountType, from, to time.Time, currency string) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("account_type = ? AND created_at >= ? AND created_at < ? AND currency = ?", account, from, to, currency).
		Find(&entries).Error
	return entries, err
}
