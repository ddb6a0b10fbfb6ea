// Package handler exposes the scheduling and booking services over HTTP.
// Handlers bind and check the request, call one service operation and
// render its result; every failure goes through respondError so the
// status code for an error kind is decided in one place.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-booking/internal/apperr"
	"github.com/iliyamo/showtime-booking/internal/logging"
)

// errorKind pairs a sentinel with its HTTP status and wire code.
type errorKind struct {
	err    error
	status int
	code   string
}

// errorKinds is checked in order; the first errors.Is match wins.
var errorKinds = []errorKind{
	{apperr.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperr.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{apperr.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperr.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperr.ErrScheduleConflict, http.StatusConflict, "schedule_conflict"},
	{apperr.ErrSeatUnavailable, http.StatusConflict, "seat_unavailable"},
	{apperr.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{apperr.ErrStaleWrite, http.StatusConflict, "stale_write"},
	{apperr.ErrHoldExpired, http.StatusGone, "hold_expired"},
	{apperr.ErrPaymentFailed, http.StatusPaymentRequired, "payment_failed"},
	{apperr.ErrPaymentTimeout, http.StatusRequestTimeout, "payment_timeout"},
	{apperr.ErrShowUnavailable, http.StatusUnprocessableEntity, "show_unavailable"},
}

// classify returns the status and code for err.
func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, http.StatusText(he.Code)
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondError renders err as {"error", "message"}.  Expected outcomes
// are logged at info; anything unclassified is logged at error and its
// text is kept out of the response.
func respondError(c echo.Context, err error) error {
	status, code := classify(err)
	log := logging.FromContext(c.Request().Context()).WithError(err).WithField("status", status)
	body := echo.Map{"error": code, "message": err.Error()}

	var he *echo.HTTPError
	switch {
	case status == http.StatusInternalServerError:
		log.Error("request failed")
		body["message"] = "internal error"
	case errors.As(err, &he):
		log.Info("request rejected")
		body["message"] = he.Message
	default:
		log.Info("request rejected")
	}
	if seats := apperr.UnavailableSeats(err); len(seats) > 0 {
		body["seats"] = seats
	}
	return c.JSON(status, body)
}

// paramID parses the named path parameter as a positive integer ID.
func paramID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

var errBadBody = apperr.Validation("invalid request body")

// bind decodes the body into v and runs the registered validator.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return errBadBody
	}
	if err := c.Validate(v); err != nil {
		return err
	}
	return nil
}
