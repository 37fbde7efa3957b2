package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samujjwal/gearlend/internal/dto"
	"github.com/samujjwal/gearlend/internal/service"
)

// FinanceHandler exposes ledger queries, risk checks and payout operations.
type FinanceHandler struct {
	ledger service.LedgerService
	risk   service.RiskService
	payout service.PayoutService
}

func NewFinanceHandler(ledger service.LedgerService, risk service.RiskService, payout service.PayoutService) *FinanceHandler {
	return &FinanceHandler{ledger: ledger, risk: risk, payout: payout}
}

func (h *FinanceHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/bookings/:id/ledger", h.GetBookingLedger)
	e.GET("/api/v1/owners/:id/balance", h.GetOwnerBalance)
	e.GET("/api/v1/platform/revenue", h.GetPlatformRevenue)

	e.GET("/api/v1/users/:id/risk", h.CheckUserRisk)
	e.POST("/api/v1/listings/risk", h.CheckListingRisk)
	e.GET("/api/v1/listings/:id/risk", h.CheckListingRiskByID)
	e.POST("/api/v1/payments/risk", h.CheckPaymentRisk)

	e.POST("/api/v1/payouts", h.CreatePayout)
	e.GET("/api/v1/owners/:id/pending-earnings", h.GetPendingEarnings)
}

func (h *FinanceHandler) GetBookingLedger(c echo.Context) error {
	entries, err := h.ledger.GetBookingLedger(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.LedgerEntryResponse, len(entries))
	for i := range entries {
		resp[i] = dto.ToLedgerEntryResponse(&entries[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *FinanceHandler) GetOwnerBalance(c echo.Context) error {
	currency := c.QueryParam("currency")
	if currency == "" {
		currency = "USD"
	}

	balance, err := h.ledger.GetUserBalance(c.Request().Context(), c.Param("id"), currency)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.BalanceResponse{
		UserID:   c.Param("id"),
		Currency: currency,
		Balance:  balance,
	})
}

func (h *FinanceHandler) GetPlatformRevenue(c echo.Context) error {
	from, err := time.Parse(time.RFC3339, c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid from timestamp")
	}
	to, err := time.Parse(time.RFC3339, c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid to timestamp")
	}
	currency := c.QueryParam("currency")
	if currency == "" {
		currency = "USD"
	}

	revenue, err := h.ledger.GetPlatformRevenue(c.Request().Context(), from, to, currency)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, revenue)
}

func (h *FinanceHandler) CheckUserRisk(c echo.Context) error {
	assessment, err := h.risk.CheckUserRisk(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.risk.LogFraudCheck(c.Request().Context(), "user", c.Param("id"), assessment)
	return c.JSON(http.StatusOK, assessment)
}

func (h *FinanceHandler) CheckListingRisk(c echo.Context) error {
	var req dto.ListingRiskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	assessment, err := h.risk.CheckListingRisk(c.Request().Context(), service.ListingRiskInput{
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		BasePrice:   req.BasePrice,
		PhotoCount:  req.PhotoCount,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.risk.LogFraudCheck(c.Request().Context(), "listing", req.UserID, assessment)
	return c.JSON(http.StatusOK, assessment)
}

func (h *FinanceHandler) CheckListingRiskByID(c echo.Context) error {
	assessment, err := h.risk.CheckListingRiskByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrListingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.risk.LogFraudCheck(c.Request().Context(), "listing", c.Param("id"), assessment)
	return c.JSON(http.StatusOK, assessment)
}

func (h *FinanceHandler) CheckPaymentRisk(c echo.Context) error {
	var req dto.PaymentRiskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" || req.PaymentMethodID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and payment_method_id are required")
	}

	assessment, err := h.risk.CheckPaymentRisk(c.Request().Context(), service.PaymentRiskInput{
		UserID:          req.UserID,
		PaymentMethodID: req.PaymentMethodID,
		Amount:          req.Amount,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.risk.LogFraudCheck(c.Request().Context(), "payment", req.PaymentMethodID, assessment)
	return c.JSON(http.StatusOK, assessment)
}

func (h *FinanceHandler) CreatePayout(c echo.Context) error {
	var req dto.CreatePayoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.OwnerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "owner_id is required")
	}

	payout, err := h.payout.CreatePayout(c.Request().Context(), req.OwnerID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPayoutAccountMissing):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrPayoutAccountUnverified):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrInsufficientFunds):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusCreated, dto.ToPayoutResponse(payout))
}

func (h *FinanceHandler) GetPendingEarnings(c echo.Context) error {
	pending, err := h.payout.GetPendingEarnings(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dto.BalanceResponse{
		UserID:   c.Param("id"),
		Currency: "USD",
		Balance:  pending,
	})
}
