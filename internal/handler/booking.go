package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-booking/internal/middleware"
	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/service"
)

// BookingHandler serves the customer hold and booking routes.  The
// holder is always the JWT subject.
type BookingHandler struct {
	Coordinator *service.BookingCoordinator
}

// NewBookingHandler panics on a nil coordinator.
func NewBookingHandler(coord *service.BookingCoordinator) *BookingHandler {
	if coord == nil {
		panic("nil coordinator passed to NewBookingHandler")
	}
	return &BookingHandler{Coordinator: coord}
}

type holdRequest struct {
	SeatIDs []string `json:"seat_ids" validate:"dive,required,max=8"`
}

// Hold handles POST /v1/shows/:id/hold.
func (h *BookingHandler) Hold(c echo.Context) error {
	showID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var body holdRequest
	if err := bind(c, &body); err != nil {
		return respondError(c, err)
	}
	hold, err := h.Coordinator.StartReservation(c.Request().Context(), showID, body.SeatIDs, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, hold)
}

// GetHold handles GET /v1/holds/:id.
func (h *BookingHandler) GetHold(c echo.Context) error {
	hold, err := h.Coordinator.GetHold(c.Request().Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, hold)
}

type confirmRequest struct {
	Status    model.PaymentStatus `json:"status" validate:"required,oneof=success failed timeout"`
	Reference string              `json:"reference" validate:"max=128"`
}

// Confirm handles POST /v1/holds/:id/confirm with the payment outcome.
func (h *BookingHandler) Confirm(c echo.Context) error {
	var body confirmRequest
	if err := bind(c, &body); err != nil {
		return respondError(c, err)
	}
	b, err := h.Coordinator.ConfirmReservation(c.Request().Context(), c.Param("id"), middleware.UserID(c),
		model.PaymentResult{Status: body.Status, Reference: body.Reference})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Abort handles DELETE /v1/holds/:id.
func (h *BookingHandler) Abort(c echo.Context) error {
	if err := h.Coordinator.AbortReservation(c.Request().Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetBooking handles GET /v1/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	b, err := h.Coordinator.GetBooking(c.Request().Context(), id, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// MyBookings handles GET /v1/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	list, err := h.Coordinator.BookingsByHolder(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}
