package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-booking/internal/middleware"
)

// RegisterAdmin registers the theatre review endpoints.  Approving or
// rejecting changes what the public theatre list shows, so writes purge
// the browse cache.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(middleware.RoleAdmin),
		middleware.PurgeOnWrite(d.Cache, d.Redis),
	)
	g.GET("/theatres", d.Theatres.ListForReview)
	g.PUT("/theatres/:id/approve", d.Theatres.Approve)
	g.PUT("/theatres/:id/reject", d.Theatres.Reject)
}
