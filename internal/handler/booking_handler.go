package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samujjwal/gearlend/internal/dto"
	"github.com/samujjwal/gearlend/internal/models"
	"github.com/samujjwal/gearlend/internal/repository"
	"github.com/samujjwal/gearlend/internal/service"
)

type BookingHandler struct {
	sm       service.BookingStateMachine
	bookRepo repository.BookingRepository
}

func NewBookingHandler(sm service.BookingStateMachine, bookRepo repository.BookingRepository) *BookingHandler {
	return &BookingHandler{sm: sm, bookRepo: bookRepo}
}

func (h *BookingHandler) RegisterRoutes(e *echo.Echo) {
	bookings := e.Group("/api/v1/bookings")
	bookings.POST("", h.CreateBooking)
	bookings.GET("/:id", h.GetBooking)
	bookings.POST("/:id/transitions", h.Transition)
	bookings.GET("/:id/transitions", h.CanTransition)
	bookings.GET("/:id/history", h.GetHistory)
	bookings.POST("/:id/deposit/capture", h.CaptureDeposit)

	e.GET("/api/v1/states/:state/transitions", h.AvailableTransitions)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	booking := &models.Booking{
		ListingID:       req.ListingID,
		RenterID:        req.RenterID,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		TotalPrice:      req.TotalPrice,
		PlatformFee:     req.PlatformFee,
		ServiceFee:      req.ServiceFee,
		OwnerEarnings:   req.OwnerEarnings,
		SecurityDeposit: req.SecurityDeposit,
		Currency:        req.Currency,
	}

	if err := h.sm.CreateBooking(c.Request().Context(), booking); err != nil {
		if errors.Is(err, service.ErrInvalidBooking) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	booking, err := h.bookRepo.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "booking not found")
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) Transition(c echo.Context) error {
	var req dto.TransitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Transition == "" || req.ActorID == "" || req.ActorRole == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "transition, actor_id and actor_role are required")
	}

	booking, err := h.sm.Transition(c.Request().Context(), c.Param("id"), req.Transition, req.ActorID, req.ActorRole)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookingNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrInvalidTransition):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrNotAuthorized):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrManualReviewRequired):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, service.ErrConcurrentTransition):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CaptureDeposit(c echo.Context) error {
	var req dto.DepositCaptureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	hold, err := h.sm.CaptureDeposit(c.Request().Context(), c.Param("id"), req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookingNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNoOpenDeposit):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrInvalidTransition):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrInvalidCaptureAmount):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrConcurrentTransition):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, dto.ToDepositHoldResponse(hold))
}

func (h *BookingHandler) CanTransition(c echo.Context) error {
	transition := c.QueryParam("transition")
	role := models.ActorRole(c.QueryParam("actor_role"))
	if transition == "" || role == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "transition and actor_role are required")
	}

	check := h.sm.CanTransition(c.Request().Context(), c.Param("id"), transition, role)
	return c.JSON(http.StatusOK, check)
}

func (h *BookingHandler) GetHistory(c echo.Context) error {
	history, err := h.sm.GetStateHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.HistoryResponse, len(history))
	for i := range history {
		resp[i] = dto.ToHistoryResponse(&history[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) AvailableTransitions(c echo.Context) error {
	state := models.BookingStatus(c.Param("state"))
	role := models.ActorRole(c.QueryParam("actor_role"))
	if role == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "actor_role is required")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"state":       state,
		"terminal":    h.sm.IsTerminalState(state),
		"transitions": h.sm.GetAvailableTransitions(state, role),
	})
}
