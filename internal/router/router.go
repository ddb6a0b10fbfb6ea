// Package router wires handlers and middleware onto an Echo instance.
// Public routes carry no middleware beyond request logging; partner,
// admin and customer routes each live in a /v1 group guarded by
// JWTAuth and RequireRole.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/config"
	"github.com/iliyamo/showtime-booking/internal/handler"
	"github.com/iliyamo/showtime-booking/internal/middleware"
)

// Deps is everything the routes need.  Redis may be nil, in which case
// caching and rate limiting are off.
type Deps struct {
	Theatres  *handler.TheatreHandler
	Shows     *handler.ShowHandler
	Bookings  *handler.BookingHandler
	Health    *handler.HealthHandler
	JWTSecret string
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Logger    *logrus.Logger
}

// New builds the Echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.RequestValidator{}

	logger := d.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.BodyLimit("1M"))

	RegisterRoutes(e, d)
	RegisterPartner(e, d)
	RegisterAdmin(e, d)
	RegisterCustomer(e, d)
	return e
}

// RegisterRoutes registers routes that do not require authentication:
// the health check and public browsing.  The two listing endpoints that
// take the most traffic are served from the Redis cache.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Health.Health)

	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	e.GET("/v1/movies/:id/shows", d.Shows.ShowsByMovie, cache)
	e.GET("/v1/theatres", d.Theatres.ListApproved, cache)
	e.GET("/v1/shows/upcoming", d.Shows.Upcoming)
	e.GET("/v1/shows/:id", d.Shows.GetShow)
	e.GET("/v1/shows/:id/seats", d.Shows.Seats)
}
