package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-booking/internal/middleware"
	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/service"
)

// TheatreHandler serves partner, admin and public theatre routes.
type TheatreHandler struct {
	Registry *service.TheatreRegistry
}

// NewTheatreHandler panics on a nil registry, like every constructor here;
// a missing dependency is a wiring bug.
func NewTheatreHandler(reg *service.TheatreRegistry) *TheatreHandler {
	if reg == nil {
		panic("nil registry passed to NewTheatreHandler")
	}
	return &TheatreHandler{Registry: reg}
}

// Submit handles POST /v1/theatres.
func (h *TheatreHandler) Submit(c echo.Context) error {
	var in service.TheatreInput
	if err := c.Bind(&in); err != nil {
		return respondError(c, errBadBody)
	}
	t, err := h.Registry.Submit(c.Request().Context(), middleware.UserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// Edit handles PUT and PATCH /v1/theatres/:id.  Absent fields keep their
// value, so PUT with a full body and PATCH with a partial one both work.
func (h *TheatreHandler) Edit(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var p service.TheatrePatch
	if err := c.Bind(&p); err != nil {
		return respondError(c, errBadBody)
	}
	t, err := h.Registry.Edit(c.Request().Context(), id, middleware.UserID(c), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Delete handles DELETE /v1/theatres/:id.
func (h *TheatreHandler) Delete(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Registry.Delete(c.Request().Context(), id, middleware.UserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMine handles GET /v1/partner/theatres.
func (h *TheatreHandler) ListMine(c echo.Context) error {
	list, err := h.Registry.ListByOwner(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

// ListApproved handles the public GET /v1/theatres.
func (h *TheatreHandler) ListApproved(c echo.Context) error {
	list, err := h.Registry.ListApproved(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

// ListForReview handles GET /v1/admin/theatres?status=.  No status lists
// every live theatre.
func (h *TheatreHandler) ListForReview(c echo.Context) error {
	status := model.TheatreStatus(strings.ToLower(strings.TrimSpace(c.QueryParam("status"))))
	list, err := h.Registry.ListByStatus(c.Request().Context(), status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

// Approve handles PUT /v1/admin/theatres/:id/approve.
func (h *TheatreHandler) Approve(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	t, err := h.Registry.Approve(c.Request().Context(), id, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Reject handles PUT /v1/admin/theatres/:id/reject.
func (h *TheatreHandler) Reject(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var body rejectRequest
	if err := bind(c, &body); err != nil {
		return respondError(c, err)
	}
	t, err := h.Registry.Reject(c.Request().Context(), id, middleware.UserID(c), body.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
