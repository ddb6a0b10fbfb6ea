package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-booking/internal/middleware"
)

// RegisterPartner registers theatre-owner endpoints under /v1.  All
// routes require a valid JWT and the PARTNER role; ownership of the
// theatre or show is checked by the services.  A successful write purges
// the browse cache.
func RegisterPartner(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(middleware.RolePartner),
		middleware.PurgeOnWrite(d.Cache, d.Redis),
	)

	// ---- Theatres ----
	g.POST("/theatres", d.Theatres.Submit)
	g.PUT("/theatres/:id", d.Theatres.Edit)
	g.PATCH("/theatres/:id", d.Theatres.Edit)
	g.DELETE("/theatres/:id", d.Theatres.Delete)
	g.GET("/partner/theatres", d.Theatres.ListMine)
	g.GET("/theatres/:id/shows", d.Shows.TheatreShows)

	// ---- Shows ----
	g.POST("/shows", d.Shows.AddShow)
	g.PUT("/shows/:id", d.Shows.UpdateShow)
	g.PATCH("/shows/:id", d.Shows.UpdateShow)
	g.PUT("/shows/:id/cancel", d.Shows.CancelShow)
	g.PUT("/shows/:id/complete", d.Shows.CompleteShow)
}
