package service

import (
	"context"
	"errors"
	"time"

	"github.com/samujjwal/gearlend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- Mock BookingRepository ---

type mockBookingRepo struct {
	createFn            func(ctx context.Context, tx *gorm.DB, b *models.Booking) error
	findByIDFn          func(ctx context.Context, id string) (*models.Booking, error)
	findByIDForUpdateFn func(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error)
	updateStatusFn      func(ctx context.Context, tx *gorm.DB, id string, from, to models.BookingStatus) (int64, error)
	setCompletedAtFn    func(ctx context.Context, tx *gorm.DB, id string, at time.Time) error
	appendHistoryFn     func(ctx context.Context, tx *gorm.DB, row *models.BookingStateHistory) error
	historyFn           func(ctx context.Context, bookingID string) ([]models.BookingStateHistory, error)
	findStaleFn         func(ctx context.Context, status models.BookingStatus, before time.Time) ([]models.Booking, error)
	findIdleFn          func(ctx context.Context, status models.BookingStatus, updatedBefore time.Time) ([]models.Booking, error)
	ownerBookingIDsFn   func(ctx context.Context, ownerID string) ([]string, error)
}

func (m *mockBookingRepo) Transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
func (m *mockBookingRepo) Create(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
	if m.createFn != nil {
		return m.createFn(ctx, tx, b)
	}
	return nil
}
func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockBookingRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error) {
	if m.findByIDForUpdateFn != nil {
		return m.findByIDForUpdateFn(ctx, tx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockBookingRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, from, to models.BookingStatus) (int64, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, tx, id, from, to)
	}
	return 1, nil
}
func (m *mockBookingRepo) SetCompletedAt(ctx context.Context, tx *gorm.DB, id string, at time.Time) error {
	if m.setCompletedAtFn != nil {
		return m.setCompletedAtFn(ctx, tx, id, at)
	}
	return nil
}
func (m *mockBookingRepo) AppendHistory(ctx context.Context, tx *gorm.DB, row *models.BookingStateHistory) error {
	if m.appendHistoryFn != nil {
		return m.appendHistoryFn(ctx, tx, row)
	}
	return nil
}
func (m *mockBookingRepo) HistoryByBookingID(ctx context.Context, bookingID string) ([]models.BookingStateHistory, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, bookingID)
	}
	return nil, nil
}
func (m *mockBookingRepo) FindStaleByStatus(ctx context.Context, status models.BookingStatus, before time.Time) ([]models.Booking, error) {
	if m.findStaleFn != nil {
		return m.findStaleFn(ctx, status, before)
	}
	return nil, nil
}
func (m *mockBookingRepo) FindIdleByStatus(ctx context.Context, status models.BookingStatus, updatedBefore time.Time) ([]models.Booking, error) {
	if m.findIdleFn != nil {
		return m.findIdleFn(ctx, status, updatedBefore)
	}
	return nil, nil
}
func (m *mockBookingRepo) ListOwnerBookingIDs(ctx context.Context, ownerID string) ([]string, error) {
	if m.ownerBookingIDsFn != nil {
		return m.ownerBookingIDsFn(ctx, ownerID)
	}
	return nil, nil
}

// --- Mock LedgerRepository ---

type mockLedgerRepo struct {
	createBatchFn     func(ctx context.Context, tx *gorm.DB, entries []models.LedgerEntry) error
	byBookingFn       func(ctx context.Context, bookingID string) ([]models.LedgerEntry, error)
	receivablesFn     func(ctx context.Context, ownerID string, bookingIDs []string, currency string) ([]models.LedgerEntry, error)
	inWindowFn        func(ctx context.Context, account models.AccountType, from, to time.Time, currency string) ([]models.LedgerEntry, error)
	queriedReceivable bool
}

func (m *mockLedgerRepo) Transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
func (m *mockLedgerRepo) CreateBatch(ctx context.Context, tx *gorm.DB, entries []models.LedgerEntry) error {
	if m.createBatchFn != nil {
		return m.createBatchFn(ctx, tx, entries)
	}
	return nil
}
func (m *mockLedgerRepo) FindByBookingID(ctx context.Context, bookingID string) ([]models.LedgerEntry, error) {
	if m.byBookingFn != nil {
		return m.byBookingFn(ctx, bookingID)
	}
	return nil, nil
}
func (m *mockLedgerRepo) FindOwnerReceivables(ctx context.Context, ownerID string, bookingIDs []string, currency string) ([]models.LedgerEntry, error) {
	m.queriedReceivable = true
	if m.receivablesFn != nil {
		return m.receivablesFn(ctx, ownerID, bookingIDs, currency)
	}
	return nil, nil
}
func (m *mockLedgerRepo) FindByAccountInWindow(ctx context.Context, account models.AccountType, from, to time.Time, currency string) ([]models.LedgerEntry, error) {
	if m.inWindowFn != nil {
		return m.inWindowFn(ctx, account, from, to, currency)
	}
	return nil, nil
}

// --- Mock UserRepository ---

type mockUserRepo struct {
	findUserFn       func(ctx context.Context, id string) (*models.User, error)
	findListingFn    func(ctx context.Context, id string) (*models.Listing, error)
	cancellationsFn  func(ctx context.Context, renterID string, since time.Time) (int64, error)
	disputesFn       func(ctx context.Context, userID string, since time.Time) (int64, error)
	lowReviewsFn     func(ctx context.Context, userID string, since time.Time) (int64, error)
	finishedFn       func(ctx context.Context, renterID string) (int64, error)
	categoryAvgFn    func(ctx context.Context, category string) (decimal.Decimal, error)
	fraudLogFn       func(ctx context.Context, row *models.FraudCheckLog) error
	fraudLogsWritten []models.FraudCheckLog
}

func (m *mockUserRepo) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	if m.findUserFn != nil {
		return m.findUserFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockUserRepo) FindListingByID(ctx context.Context, id string) (*models.Listing, error) {
	if m.findListingFn != nil {
		return m.findListingFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockUserRepo) CountCancelledBookings(ctx context.Context, renterID string, since time.Time) (int64, error) {
	if m.cancellationsFn != nil {
		return m.cancellationsFn(ctx, renterID, since)
	}
	return 0, nil
}
func (m *mockUserRepo) CountDisputesInitiated(ctx context.Context, userID string, since time.Time) (int64, error) {
	if m.disputesFn != nil {
		return m.disputesFn(ctx, userID, since)
	}
	return 0, nil
}
func (m *mockUserRepo) CountLowReviewsReceived(ctx context.Context, userID string, since time.Time) (int64, error) {
	if m.lowReviewsFn != nil {
		return m.lowReviewsFn(ctx, userID, since)
	}
	return 0, nil
}
func (m *mockUserRepo) CountFinishedBookings(ctx context.Context, renterID string) (int64, error) {
	if m.finishedFn != nil {
		return m.finishedFn(ctx, renterID)
	}
	return 1, nil
}
func (m *mockUserRepo) CategoryAveragePrice(ctx context.Context, category string) (decimal.Decimal, error) {
	if m.categoryAvgFn != nil {
		return m.categoryAvgFn(ctx, category)
	}
	return decimal.Zero, nil
}
func (m *mockUserRepo) CreateFraudCheckLog(ctx context.Context, row *models.FraudCheckLog) error {
	m.fraudLogsWritten = append(m.fraudLogsWritten, *row)
	if m.fraudLogFn != nil {
		return m.fraudLogFn(ctx, row)
	}
	return nil
}

// --- Mock PayoutRepository ---

type mockPayoutRepo struct {
	createFn       func(ctx context.Context, tx *gorm.DB, payout *models.Payout) error
	sumPayoutsFn   func(ctx context.Context, ownerID string, statuses []models.PayoutStatus) (decimal.Decimal, error)
	sumEarningsFn  func(ctx context.Context, ownerID string, statuses []models.BookingStatus) (decimal.Decimal, error)
	findAccountFn  func(ctx context.Context, ownerID string) (*models.PayoutAccount, error)
	listVerifiedFn func(ctx context.Context) ([]models.PayoutAccount, error)
	createdPayouts []models.Payout
}

func (m *mockPayoutRepo) Transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
func (m *mockPayoutRepo) Create(ctx context.Context, tx *gorm.DB, payout *models.Payout) error {
	m.createdPayouts = append(m.createdPayouts, *payout)
	if m.createFn != nil {
		return m.createFn(ctx, tx, payout)
	}
	return nil
}
func (m *mockPayoutRepo) SumPayoutsByOwner(ctx context.Context, ownerID string, statuses []models.PayoutStatus) (decimal.Decimal, error) {
	if m.sumPayoutsFn != nil {
		return m.sumPayoutsFn(ctx, ownerID, statuses)
	}
	return decimal.Zero, nil
}
func (m *mockPayoutRepo) SumOwnerEarnings(ctx context.Context, ownerID string, statuses []models.BookingStatus) (decimal.Decimal, error) {
	if m.sumEarningsFn != nil {
		return m.sumEarningsFn(ctx, ownerID, statuses)
	}
	return decimal.Zero, nil
}
func (m *mockPayoutRepo) FindAccountByOwner(ctx context.Context, ownerID string) (*models.PayoutAccount, error) {
	if m.findAccountFn != nil {
		return m.findAccountFn(ctx, ownerID)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockPayoutRepo) ListVerifiedAccounts(ctx context.Context) ([]models.PayoutAccount, error) {
	if m.listVerifiedFn != nil {
		return m.listVerifiedFn(ctx)
	}
	return nil, nil
}

// --- Mock DepositRepository ---

type mockDepositRepo struct {
	createFn       func(ctx context.Context, tx *gorm.DB, hold *models.DepositHold) error
	findOpenFn     func(ctx context.Context, bookingID string) (*models.DepositHold, error)
	markCapturedFn func(ctx context.Context, tx *gorm.DB, id string, amount decimal.Decimal) (int64, error)
	markReleasedFn func(ctx context.Context, tx *gorm.DB, id string) (int64, error)
	findExpiredFn  func(ctx context.Context, before time.Time) ([]models.DepositHold, error)
	createdHolds   []models.DepositHold
}

func (m *mockDepositRepo) Create(ctx context.Context, tx *gorm.DB, hold *models.DepositHold) error {
	m.createdHolds = append(m.createdHolds, *hold)
	if m.createFn != nil {
		return m.createFn(ctx, tx, hold)
	}
	return nil
}
func (m *mockDepositRepo) FindOpenByBookingID(ctx context.Context, bookingID string) (*models.DepositHold, error) {
	if m.findOpenFn != nil {
		return m.findOpenFn(ctx, bookingID)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockDepositRepo) MarkCaptured(ctx context.Context, tx *gorm.DB, id string, amount decimal.Decimal) (int64, error) {
	if m.markCapturedFn != nil {
		return m.markCapturedFn(ctx, tx, id, amount)
	}
	return 1, nil
}
func (m *mockDepositRepo) MarkReleased(ctx context.Context, tx *gorm.DB, id string) (int64, error) {
	if m.markReleasedFn != nil {
		return m.markReleasedFn(ctx, tx, id)
	}
	return 1, nil
}
func (m *mockDepositRepo) FindExpiredOpen(ctx context.Context, before time.Time) ([]models.DepositHold, error) {
	if m.findExpiredFn != nil {
		return m.findExpiredFn(ctx, before)
	}
	return nil, nil
}

// --- Mock Cache ---

type mockCache struct {
	getFn    func(ctx context.Context, key string) (string, error)
	setFn    func(ctx context.Context, key, value string, ttl time.Duration) error
	incrFn   func(ctx context.Context, key string, window time.Duration) (int64, error)
	existsFn func(ctx context.Context, key string) (bool, error)
	setCalls []string
}

func (m *mockCache) Get(ctx context.Context, key string) (string, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return "", errors.New("cache miss")
}
func (m *mockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.setCalls = append(m.setCalls, key)
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}
func (m *mockCache) IncrWithWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	if m.incrFn != nil {
		return m.incrFn(ctx, key, window)
	}
	return 1, nil
}
func (m *mockCache) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

// --- Mock PaymentGateway ---

type mockGateway struct {
	captureFn   func(ctx context.Context, reference string, amount decimal.Decimal, currency string) (string, error)
	refundFn    func(ctx context.Context, reference string, amount decimal.Decimal, currency string) (string, error)
	authorizeFn func(ctx context.Context, reference string, amount decimal.Decimal, currency string) (string, error)
	releaseFn   func(ctx context.Context, gatewayRef string) error
	transferFn  func(ctx context.Context, accountRef string, amount decimal.Decimal, currency string) (string, error)
	transfers   int
}

func (m *mockGateway) Capture(ctx context.Context, reference string, amount decimal.Decimal, currency string) (string, error) {
	if m.captureFn != nil {
		return m.captureFn(ctx, reference, amount, currency)
	}
	return "cap_" + reference, nil
}
func (m *mockGateway) Refund(ctx context.Context, reference string, amount decimal.Decimal, currency string) (string, error) {
	if m.refundFn != nil {
		return m.refundFn(ctx, reference, amount, currency)
	}
	return "ref_" + reference, nil
}
func (m *mockGateway) AuthorizeDeposit(ctx context.Context, reference string, amount decimal.Decimal, currency string) (string, error) {
	if m.authorizeFn != nil {
		return m.authorizeFn(ctx, reference, amount, currency)
	}
	return "dep_" + reference, nil
}
func (m *mockGateway) ReleaseDeposit(ctx context.Context, gatewayRef string) error {
	if m.releaseFn != nil {
		return m.releaseFn(ctx, gatewayRef)
	}
	return nil
}
func (m *mockGateway) Transfer(ctx context.Context, accountRef string, amount decimal.Decimal, currency string) (string, error) {
	m.transfers++
	if m.transferFn != nil {
		return m.transferFn(ctx, accountRef, amount, currency)
	}
	return "tr_" + accountRef, nil
}

// --- Mock LedgerService ---

type mockLedgerService struct {
	paymentFn        func(ctx context.Context, tx *gorm.DB, bookingID, renterID, ownerID string, b PaymentBreakdown) error
	refundFn         func(ctx context.Context, tx *gorm.DB, bookingID, renterID string, amount decimal.Decimal, currency string) error
	payoutFn         func(ctx context.Context, tx *gorm.DB, payoutID, ownerID string, amount decimal.Decimal, currency string) error
	depositHoldFn    func(ctx context.Context, tx *gorm.DB, bookingID string, amount decimal.Decimal, currency string) error
	depositCaptureFn func(ctx context.Context, tx *gorm.DB, bookingID, ownerID string, amount decimal.Decimal, currency string) error
	depositReleaseFn func(ctx context.Context, tx *gorm.DB, bookingID string, amount decimal.Decimal, currency string) error
	bookingLedgerFn  func(ctx context.Context, bookingID string) ([]models.LedgerEntry, error)
	payments         int
	refunds          int
	payouts          int
	depositCaptures  int
}

func (m *mockLedgerService) RecordBookingPayment(ctx context.Context, tx *gorm.DB, bookingID, renterID, ownerID string, b PaymentBreakdown) error {
	m.payments++
	if m.paymentFn != nil {
		return m.paymentFn(ctx, tx, bookingID, renterID, ownerID, b)
	}
	return nil
}
func (m *mockLedgerService) RecordRefund(ctx context.Context, tx *gorm.DB, bookingID, renterID string, amount decimal.Decimal, currency string) error {
	m.refunds++
	if m.refundFn != nil {
		return m.refundFn(ctx, tx, bookingID, renterID, amount, currency)
	}
	return nil
}
func (m *mockLedgerService) RecordPayout(ctx context.Context, tx *gorm.DB, payoutID, ownerID string, amount decimal.Decimal, currency string) error {
	m.payouts++
	if m.payoutFn != nil {
		return m.payoutFn(ctx, tx, payoutID, ownerID, amount, currency)
	}
	return nil
}
func (m *mockLedgerService) RecordDepositHold(ctx context.Context, tx *gorm.DB, bookingID string, amount decimal.Decimal, currency string) error {
	if m.depositHoldFn != nil {
		return m.depositHoldFn(ctx, tx, bookingID, amount, currency)
	}
	return nil
}
func (m *mockLedgerService) RecordDepositCapture(ctx context.Context, tx *gorm.DB, bookingID, ownerID string, amount decimal.Decimal, currency string) error {
	m.depositCaptures++
	if m.depositCaptureFn != nil {
		return m.depositCaptureFn(ctx, tx, bookingID, ownerID, amount, currency)
	}
	return nil
}
func (m *mockLedgerService) RecordDepositRelease(ctx context.Context, tx *gorm.DB, bookingID string, amount decimal.Decimal, currency string) error {
	if m.depositReleaseFn != nil {
		return m.depositReleaseFn(ctx, tx, bookingID, amount, currency)
	}
	return nil
}
func (m *mockLedgerService) GetUserBalance(ctx context.Context, userID, currency string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (m *mockLedgerService) GetBookingLedger(ctx context.Context, bookingID string) ([]models.LedgerEntry, error) {
	if m.bookingLedgerFn != nil {
		return m.bookingLedgerFn(ctx, bookingID)
	}
	return nil, nil
}
func (m *mockLedgerService) GetPlatformRevenue(ctx context.Context, from, to time.Time, currency string) (*PlatformRevenue, error) {
	return &PlatformRevenue{}, nil
}

// --- Mock RiskService ---

type mockRiskService struct {
	userRiskFn    func(ctx context.Context, userID string) (*models.RiskAssessment, error)
	bookingRiskFn func(ctx context.Context, input BookingRiskInput) (*models.RiskAssessment, error)
	logged        int
}

func (m *mockRiskService) CheckUserRisk(ctx context.Context, userID string) (*models.RiskAssessment, error) {
	if m.userRiskFn != nil {
		return m.userRiskFn(ctx, userID)
	}
	a := models.NewRiskAssessment(0, nil)
	return &a, nil
}
func (m *mockRiskService) CheckBookingRisk(ctx context.Context, input BookingRiskInput) (*models.RiskAssessment, error) {
	if m.bookingRiskFn != nil {
		return m.bookingRiskFn(ctx, input)
	}
	a := models.NewRiskAssessment(0, nil)
	return &a, nil
}
func (m *mockRiskService) CheckPaymentRisk(ctx context.Context, input PaymentRiskInput) (*models.RiskAssessment, error) {
	a := models.NewRiskAssessment(0, nil)
	return &a, nil
}
func (m *mockRiskService) CheckListingRisk(ctx context.Context, input ListingRiskInput) (*models.RiskAssessment, error) {
	a := models.NewRiskAssessment(0, nil)
	return &a, nil
}
func (m *mockRiskService) CheckListingRiskByID(ctx context.Context, listingID string) (*models.RiskAssessment, error) {
	a := models.NewRiskAssessment(0, nil)
	return &a, nil
}
func (m *mockRiskService) LogFraudCheck(ctx context.Context, entityType, entityID string, result *models.RiskAssessment) {
	m.logged++
}

// --- Fixed clock ---

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }
