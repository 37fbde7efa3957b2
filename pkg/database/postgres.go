package database

import (
	"fmt"

	"github.com/samujjwal/gearlend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.Booking{},
		&models.BookingStateHistory{},
		&models.LedgerEntry{},
		&models.DepositHold{},
		&models.Payout{},
		&models.PayoutAccount{},
		&models.Review{},
		&models.Dispute{},
		&models.FraudCheckLog{},
	); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	// Partial unique index: at most one open deposit hold per booking
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_deposit_hold_open
		ON deposit_holds (booking_id)
		WHERE status = 'AUTHORIZED'
	`)

	// Ledger entries are append-only; amounts must stay positive
	db.Exec(`
		ALTER TABLE ledger_entries
		ADD CONSTRAINT chk_ledger_amount_positive CHECK (amount > 0)
	`)

	return db, nil
}
