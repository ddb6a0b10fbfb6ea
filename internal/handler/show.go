package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-booking/internal/apperr"
	"github.com/iliyamo/showtime-booking/internal/middleware"
	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/service"
)

// ShowHandler serves partner scheduling routes and public show browsing.
type ShowHandler struct {
	Scheduler *service.ShowScheduler
	Inventory *service.SeatInventory
	Registry  *service.TheatreRegistry
}

// NewShowHandler panics if any dependency is nil.
func NewShowHandler(s *service.ShowScheduler, inv *service.SeatInventory, reg *service.TheatreRegistry) *ShowHandler {
	if s == nil || inv == nil || reg == nil {
		panic("nil service passed to NewShowHandler")
	}
	return &ShowHandler{Scheduler: s, Inventory: inv, Registry: reg}
}

// AddShow handles POST /v1/shows.
func (h *ShowHandler) AddShow(c echo.Context) error {
	var in service.ShowInput
	if err := c.Bind(&in); err != nil {
		return respondError(c, errBadBody)
	}
	show, err := h.Scheduler.AddShow(c.Request().Context(), middleware.UserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, show)
}

// UpdateShow handles PUT and PATCH /v1/shows/:id.
func (h *ShowHandler) UpdateShow(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var p service.ShowPatch
	if err := c.Bind(&p); err != nil {
		return respondError(c, errBadBody)
	}
	show, err := h.Scheduler.UpdateShow(c.Request().Context(), id, middleware.UserID(c), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, show)
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=400"`
}

// CancelShow handles PUT /v1/shows/:id/cancel.  The body is optional.
func (h *ShowHandler) CancelShow(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var body cancelRequest
	if c.Request().ContentLength != 0 {
		if err := bind(c, &body); err != nil {
			return respondError(c, err)
		}
	}
	show, err := h.Scheduler.CancelShow(c.Request().Context(), id, middleware.UserID(c), body.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, show)
}

// CompleteShow handles PUT /v1/shows/:id/complete.
func (h *ShowHandler) CompleteShow(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	show, err := h.Scheduler.CompleteShow(c.Request().Context(), id, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, show)
}

// TheatreShows handles GET /v1/theatres/:id/shows?from=&to= for the
// theatre's owner.
func (h *ShowHandler) TheatreShows(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx := c.Request().Context()
	t, err := h.Registry.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if t.OwnerID != middleware.UserID(c) {
		return respondError(c, apperr.ErrForbidden)
	}
	shows, err := h.Scheduler.ShowsByTheatre(ctx, id, c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": shows})
}

// ShowsByMovie handles GET /v1/movies/:id/shows?city=&date=.
func (h *ShowHandler) ShowsByMovie(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	groups, err := h.Scheduler.ShowsByMovie(c.Request().Context(), id, c.QueryParam("city"), c.QueryParam("date"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": groups})
}

// Upcoming handles GET /v1/shows/upcoming.
func (h *ShowHandler) Upcoming(c echo.Context) error {
	shows, err := h.Scheduler.UpcomingShows(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": shows})
}

// GetShow handles GET /v1/shows/:id.
func (h *ShowHandler) GetShow(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	show, err := h.Scheduler.GetShow(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, show)
}

// seatView is one seat in the public seat map.
type seatView struct {
	SeatID  string           `json:"seat_id"`
	Row     string           `json:"row"`
	Column  int              `json:"column"`
	Section model.Section    `json:"section"`
	Status  model.SeatStatus `json:"status"`
}

// Seats handles GET /v1/shows/:id/seats: the seat map plus per-section
// counts and prices.  ?section= narrows the map to one section.
func (h *ShowHandler) Seats(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx := c.Request().Context()
	avail, err := h.Inventory.Availability(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	seats, err := h.Inventory.Seats(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	section := model.Section(c.QueryParam("section"))
	if section != "" && !section.Valid() {
		return respondError(c, apperr.Validation("unknown section %q", section))
	}
	out := make([]seatView, 0, len(seats))
	for _, st := range seats {
		if section != "" && st.Section != section {
			continue
		}
		out = append(out, seatView{SeatID: st.SeatID, Row: st.Row, Column: st.Column, Section: st.Section, Status: st.Status})
	}
	c.Response().Header().Set("X-Seats-Available", strconv.Itoa(avail.Available))
	return c.JSON(http.StatusOK, echo.Map{"availability": avail, "seats": out})
}
