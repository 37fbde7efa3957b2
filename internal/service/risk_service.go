package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/samujjwal/gearlend/internal/models"
	"github.com/samujjwal/gearlend/internal/repository"
	"github.com/samujjwal/gearlend/pkg/cache"
	"github.com/samujjwal/gearlend/pkg/clock"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Scoring policy constants. The additive points and window sizes are part of
// the contract under test; changing one changes the gate's behavior.
const (
	historyWindow        = 90 * 24 * time.Hour
	newAccountAge        = 7 * 24 * time.Hour
	youngAccountAge      = 30 * 24 * time.Hour
	velocityWindow       = 5 * time.Minute
	velocityLimit        = 3
	paymentMethodTTL     = 30 * 24 * time.Hour
	paymentMethodLimit   = 3
	longBookingDays      = 90
	lastMinuteLead       = 2 * time.Hour
	fraudLogPersistScore = 50
)

var (
	highValueThreshold    = decimal.NewFromInt(500)
	firstBookingThreshold = decimal.NewFromInt(300)
	// price more than 70% below the category average
	underpriceRatio = decimal.NewFromFloat(0.3)
)

var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`),
	regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
	regexp.MustCompile(`(?i)\b(whatsapp|telegram|signal|viber)\b`),
	regexp.MustCompile(`(?i)\b(act now|urgent|limited time|wire transfer|western union)\b`),
}

type BookingRiskInput struct {
	UserID     string
	ListingID  string
	TotalPrice decimal.Decimal
	StartDate  time.Time
	EndDate    time.Time
}

type PaymentRiskInput struct {
	UserID          string
	PaymentMethodID string
	Amount          decimal.Decimal
}

type ListingRiskInput struct {
	UserID      string
	Title       string
	Description string
	Category    string
	BasePrice   decimal.Decimal
	PhotoCount  int
}

type RiskService interface {
	CheckUserRisk(ctx context.Context, userID string) (*models.RiskAssessment, error)
	CheckBookingRisk(ctx context.Context, input BookingRiskInput) (*models.RiskAssessment, error)
	CheckPaymentRisk(ctx context.Context, input PaymentRiskInput) (*models.RiskAssessment, error)
	CheckListingRisk(ctx context.Context, input ListingRiskInput) (*models.RiskAssessment, error)
	CheckListingRiskByID(ctx context.Context, listingID string) (*models.RiskAssessment, error)
	LogFraudCheck(ctx context.Context, entityType, entityID string, result *models.RiskAssessment)
}

var ErrListingNotFound = errors.New("listing not found")

type riskService struct {
	userRepo repository.UserRepository
	cache    cache.Cache
	clock    clock.Clock
	log      zerolog.Logger
}

func NewRiskService(userRepo repository.UserRepository, c cache.Cache, clk clock.Clock, log zerolog.Logger) RiskService {
	return &riskService{userRepo: userRepo, cache: c, clock: clk, log: log}
}

// CheckUserRisk scores a user against a 90-day history window. A missing user
// short-circuits to score 100.
func (s *riskService) CheckUserRisk(ctx context.Context, userID string) (*models.RiskAssessment, error) {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			assessment := models.NewRiskAssessment(100, []models.RiskFlag{{
				Type:        "USER_NOT_FOUND",
				Severity:    models.SeverityHigh,
				Description: "user does not exist",
			}})
			return &assessment, nil
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	now := s.clock.Now()
	since := now.Add(-historyWindow)
	score := 0
	var flags []models.RiskFlag

	if now.Sub(user.CreatedAt) < newAccountAge {
		score += 20
		flags = append(flags, models.RiskFlag{
			Type:        "NEW_ACCOUNT",
			Severity:    models.SeverityMedium,
			Description: "account is less than 7 days old",
		})
	}
	if !user.EmailVerified {
		score += 15
		flags = append(flags, models.RiskFlag{
			Type:        "EMAIL_NOT_VERIFIED",
			Severity:    models.SeverityMedium,
			Description: "email address not verified",
		})
	}
	if user.IDVerification != models.IDVerificationVerified {
		score += 10
		flags = append(flags, models.RiskFlag{
			Type:        "ID_NOT_VERIFIED",
			Severity:    models.SeverityLow,
			Description: "government ID not verified",
		})
	}

	if cancellations, err := s.userRepo.CountCancelledBookings(ctx, userID, since); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("risk: cancellation count unavailable")
	} else if cancellations > 2 {
		score += 15
		flags = append(flags, models.RiskFlag{
			Type:        "FREQUENT_CANCELLATIONS",
			Severity:    models.SeverityMedium,
			Description: "more than 2 cancelled bookings in 90 days",
			Metadata:    map[string]string{"count": fmt.Sprint(cancellations)},
		})
	}

	if disputes, err := s.userRepo.CountDisputesInitiated(ctx, userID, since); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("risk: dispute count unavailable")
	} else if disputes > 1 {
		score += 20
		flags = append(flags, models.RiskFlag{
			Type:        "DISPUTE_HISTORY",
			Severity:    models.SeverityHigh,
			Description: "more than 1 dispute initiated in 90 days",
			Metadata:    map[string]string{"count": fmt.Sprint(disputes)},
		})
	}

	// A rating of exactly 0 means "no reviews yet" and is not flagged.
	if user.AverageRating > 0 && user.AverageRating < 3.5 {
		score += 15
		flags = append(flags, models.RiskFlag{
			Type:        "LOW_RATING",
			Severity:    models.SeverityMedium,
			Description: "average rating below 3.5",
			Metadata:    map[string]string{"rating": fmt.Sprintf("%.2f", user.AverageRating)},
		})
	}

	if negatives, err := s.userRepo.CountLowReviewsReceived(ctx, userID, since); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("risk: negative review count unavailable")
	} else if negatives > 3 {
		score += 10
		flags = append(flags, models.RiskFlag{
			Type:        "NEGATIVE_REVIEWS",
			Severity:    models.SeverityMedium,
			Description: "more than 3 reviews below 3 stars",
			Metadata:    map[string]string{"count": fmt.Sprint(negatives)},
		})
	}

	assessment := models.NewRiskAssessment(score, flags)
	return &assessment, nil
}

// CheckBookingRisk starts from 40% of the user's score plus the user's flags,
// then layers booking-specific signals on top.
func (s *riskService) CheckBookingRisk(ctx context.Context, input BookingRiskInput) (*models.RiskAssessment, error) {
	userAssessment, err := s.CheckUserRisk(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	score := userAssessment.RiskScore * 40 / 100
	flags := append([]models.RiskFlag{}, userAssessment.Flags...)
	now := s.clock.Now()

	// Velocity check is atomic per (user, window) and fails open: a broken
	// counter must not block all bookings.
	velocityKey := fmt.Sprintf("risk:velocity:%s", input.UserID)
	if count, err := s.cache.IncrWithWindow(ctx, velocityKey, velocityWindow); err != nil {
		s.log.Error().Err(err).Str("user_id", input.UserID).Msg("risk: velocity counter unavailable, failing open")
	} else if count > velocityLimit {
		score += 15
		flags = append(flags, models.RiskFlag{
			Type:        "HIGH_BOOKING_VELOCITY",
			Severity:    models.SeverityHigh,
			Description: "more than 3 booking attempts in 5 minutes",
			Metadata:    map[string]string{"count": fmt.Sprint(count)},
		})
	}

	user, err := s.userRepo.FindUserByID(ctx, input.UserID)
	if err == nil {
		if now.Sub(user.CreatedAt) < youngAccountAge && input.TotalPrice.GreaterThan(highValueThreshold) {
			score += 20
			flags = append(flags, models.RiskFlag{
				Type:        "HIGH_VALUE_NEW_USER",
				Severity:    models.SeverityHigh,
				Description: "high-value booking from an account under 30 days old",
			})
		}

		if finished, err := s.userRepo.CountFinishedBookings(ctx, input.UserID); err != nil {
			s.log.Warn().Err(err).Str("user_id", input.UserID).Msg("risk: finished booking count unavailable")
		} else if finished == 0 && input.TotalPrice.GreaterThan(firstBookingThreshold) {
			score += 15
			flags = append(flags, models.RiskFlag{
				Type:        "FIRST_BOOKING",
				Severity:    models.SeverityMedium,
				Description: "first booking above 300",
			})
		}
	}

	if input.EndDate.Sub(input.StartDate) > longBookingDays*24*time.Hour {
		score += 10
		flags = append(flags, models.RiskFlag{
			Type:        "UNUSUALLY_LONG_BOOKING",
			Severity:    models.SeverityLow,
			Description: "booking longer than 90 days",
		})
	}
	if input.StartDate.Sub(now) < lastMinuteLead {
		score += 10
		flags = append(flags, models.RiskFlag{
			Type:        "LAST_MINUTE_BOOKING",
			Severity:    models.SeverityLow,
			Description: "booking starts in under 2 hours",
		})
	}

	assessment := models.NewRiskAssessment(score, flags)
	return &assessment, nil
}

func (s *riskService) CheckPaymentRisk(ctx context.Context, input PaymentRiskInput) (*models.RiskAssessment, error) {
	score := 0
	var flags []models.RiskFlag
	var methodCount int64

	seenKey := fmt.Sprintf("risk:pm:%s:%s", input.UserID, input.PaymentMethodID)
	countKey := fmt.Sprintf("risk:pmcount:%s", input.UserID)
	seen, err := s.cache.Exists(ctx, seenKey)
	switch {
	case err != nil:
		s.log.Error().Err(err).Str("user_id", input.UserID).Msg("risk: payment-method cache unavailable, failing open")
	case seen:
		// A known method does not inflate the distinct-method counter, but
		// the churn signal still applies while the counter is elevated.
		if raw, err := s.cache.Get(ctx, countKey); err != nil {
			if !errors.Is(err, cache.ErrMiss) {
				s.log.Warn().Err(err).Msg("risk: payment-method counter unavailable")
			}
		} else if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			methodCount = n
		}
	default:
		score += 10
		flags = append(flags, models.RiskFlag{
			Type:        "NEW_PAYMENT_METHOD",
			Severity:    models.SeverityLow,
			Description: "payment method not seen before",
		})
		if err := s.cache.Set(ctx, seenKey, "1", paymentMethodTTL); err != nil {
			s.log.Warn().Err(err).Msg("risk: could not remember payment method")
		}
		if count, err := s.cache.IncrWithWindow(ctx, countKey, paymentMethodTTL); err != nil {
			s.log.Warn().Err(err).Msg("risk: payment-method counter unavailable")
		} else {
			methodCount = count
		}
	}

	if methodCount > paymentMethodLimit {
		score += 15
		flags = append(flags, models.RiskFlag{
			Type:        "MULTIPLE_PAYMENT_METHODS",
			Severity:    models.SeverityMedium,
			Description: "more than 3 distinct payment methods recently",
			Metadata:    map[string]string{"count": fmt.Sprint(methodCount)},
		})
	}

	assessment := models.NewRiskAssessment(score, flags)
	return &assessment, nil
}

func (s *riskService) CheckListingRisk(ctx context.Context, input ListingRiskInput) (*models.RiskAssessment, error) {
	score := 0
	var flags []models.RiskFlag

	switch {
	case input.PhotoCount == 0:
		score += 15
		flags = append(flags, models.RiskFlag{
			Type:        "NO_PHOTOS",
			Severity:    models.SeverityHigh,
			Description: "listing has no photos",
		})
	case input.PhotoCount < 3:
		score += 5
		flags = append(flags, models.RiskFlag{
			Type:        "FEW_PHOTOS",
			Severity:    models.SeverityLow,
			Description: "listing has fewer than 3 photos",
		})
	}

	// Category average failing degrades to "no signal".
	if avg, err := s.userRepo.CategoryAveragePrice(ctx, input.Category); err != nil {
		s.log.Warn().Err(err).Str("category", input.Category).Msg("risk: category average unavailable")
	} else if avg.IsPositive() && input.BasePrice.LessThan(avg.Mul(underpriceRatio)) {
		score += 20
		flags = append(flags, models.RiskFlag{
			Type:        "SUSPICIOUS_PRICING",
			Severity:    models.SeverityHigh,
			Description: "price more than 70% below category average",
			Metadata:    map[string]string{"category_average": avg.String()},
		})
	}

	text := input.Title + " " + input.Description
	for _, p := range spamPatterns {
		if p.MatchString(text) {
			score += 15
			flags = append(flags, models.RiskFlag{
				Type:        "SPAM_CONTENT",
				Severity:    models.SeverityHigh,
				Description: "listing text matches a spam pattern",
				Metadata:    map[string]string{"pattern": p.String()},
			})
			break
		}
	}

	assessment := models.NewRiskAssessment(score, flags)
	return &assessment, nil
}

// CheckListingRiskByID scores a listing already on file.
func (s *riskService) CheckListingRiskByID(ctx context.Context, listingID string) (*models.RiskAssessment, error) {
	listing, err := s.userRepo.FindListingByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("load listing: %w", err)
	}
	return s.CheckListingRisk(ctx, ListingRiskInput{
		UserID:      listing.OwnerID,
		Title:       listing.Title,
		Description: listing.Description,
		Category:    listing.Category,
		BasePrice:   listing.BasePrice,
		PhotoCount:  listing.PhotoCount,
	})
}

// LogFraudCheck always logs; results at or above the persistence threshold
// are additionally written to the audit table for the review queue.
func (s *riskService) LogFraudCheck(ctx context.Context, entityType, entityID string, result *models.RiskAssessment) {
	event := s.log.Info()
	if result.RiskScore >= fraudLogPersistScore {
		event = s.log.Warn()
	}
	event.
		Str("entity_type", entityType).
		Str("entity_id", entityID).
		Int("risk_score", result.RiskScore).
		Str("risk_level", string(result.RiskLevel)).
		Int("flag_count", len(result.Flags)).
		Msg("fraud check")

	if result.RiskScore < fraudLogPersistScore {
		return
	}

	flagsJSON, err := json.Marshal(result.Flags)
	if err != nil {
		s.log.Error().Err(err).Msg("fraud check: marshal flags")
		flagsJSON = []byte("[]")
	}
	row := &models.FraudCheckLog{
		EntityType: entityType,
		EntityID:   entityID,
		RiskScore:  result.RiskScore,
		RiskLevel:  string(result.RiskLevel),
		Flags:      string(flagsJSON),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.userRepo.CreateFraudCheckLog(ctx, row); err != nil {
		s.log.Error().Err(err).Str("entity_id", entityID).Msg("fraud check: persist audit row")
	}
}
