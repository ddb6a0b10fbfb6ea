package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-booking/internal/middleware"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.  All routes
// require a valid JWT and the CUSTOMER role; the JWT subject is the
// holder of every hold and booking.  Placing a hold is rate limited per
// customer.
func RegisterCustomer(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(middleware.RoleCustomer),
	)
	g.POST("/shows/:id/hold", d.Bookings.Hold, middleware.NewTokenBucket(d.RateLimit, d.Redis))
	g.GET("/holds/:id", d.Bookings.GetHold)
	g.POST("/holds/:id/confirm", d.Bookings.Confirm)
	g.DELETE("/holds/:id", d.Bookings.Abort)
	g.GET("/bookings/:id", d.Bookings.GetBooking)
	g.GET("/my-bookings", d.Bookings.MyBookings)
}
