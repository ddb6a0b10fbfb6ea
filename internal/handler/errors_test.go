package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-booking/internal/apperr"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.Validation("bad seat count"), http.StatusBadRequest, "validation_error"},
		{apperr.InvalidRequest("unknown seats"), http.StatusBadRequest, "invalid_request"},
		{apperr.NotFound("show"), http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: theatre is pending", apperr.ErrForbidden), http.StatusForbidden, "forbidden"},
		{apperr.ErrScheduleConflict, http.StatusConflict, "schedule_conflict"},
		{&apperr.SeatUnavailableError{Seats: []string{"B4"}}, http.StatusConflict, "seat_unavailable"},
		{apperr.ErrStaleWrite, http.StatusConflict, "stale_write"},
		{apperr.ErrHoldExpired, http.StatusGone, "hold_expired"},
		{apperr.ErrPaymentFailed, http.StatusPaymentRequired, "payment_failed"},
		{apperr.ErrPaymentTimeout, http.StatusRequestTimeout, "payment_timeout"},
		{apperr.ErrShowUnavailable, http.StatusUnprocessableEntity, "show_unavailable"},
		{echo.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, "Unsupported Media Type"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, code := classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func render(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, respondError(c, err))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestRespondErrorListsTakenSeats(t *testing.T) {
	status, body := render(t, fmt.Errorf("hold: %w", &apperr.SeatUnavailableError{Seats: []string{"C1", "C2"}}))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "seat_unavailable", body["error"])
	assert.Equal(t, []any{"C1", "C2"}, body["seats"])
}

func TestRespondErrorHidesInternalMessage(t *testing.T) {
	status, body := render(t, errors.New("dial tcp 10.0.0.3:3306: i/o timeout"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body["message"])
	assert.NotContains(t, body, "seats")
}

func TestParamID(t *testing.T) {
	e := echo.New()
	for raw, ok := range map[string]bool{"42": true, "0": false, "-1": false, "abc": false} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(raw)
		id, err := paramID(c, "id")
		if ok {
			require.NoError(t, err)
			assert.Equal(t, uint64(42), id)
		} else {
			assert.ErrorIs(t, err, apperr.ErrValidation, raw)
		}
	}
}

type pingFunc func() error

func (f pingFunc) PingContext(_ context.Context) error { return f() }

func TestHealth(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	h := &HealthHandler{Storage: "mysql", DB: pingFunc(func() error { return nil })}
	require.NoError(t, h.Health(e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"storage":"mysql"`)

	rec = httptest.NewRecorder()
	h.DB = pingFunc(func() error { return errors.New("broken pipe") })
	require.NoError(t, h.Health(e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}
