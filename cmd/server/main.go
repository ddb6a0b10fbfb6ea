package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/showtime-booking/internal/config"
	"github.com/iliyamo/showtime-booking/internal/handler"
	"github.com/iliyamo/showtime-booking/internal/jobs"
	"github.com/iliyamo/showtime-booking/internal/logging"
	"github.com/iliyamo/showtime-booking/internal/queue"
	"github.com/iliyamo/showtime-booking/internal/router"
	"github.com/iliyamo/showtime-booking/internal/service"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	log := logrus.WithFields(logrus.Fields{"env": cfg.Env, "storage": cfg.StorageDriver})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("storage unavailable")
	}
	defer st.Close()

	var pub service.EventPublisher
	var publisher *queue.Publisher
	if cfg.RabbitMQURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitMQURL)
		defer publisher.Close()
		pub = publisher
	} else {
		log.Warn("RABBITMQ_URL not set, domain events are not published")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, response cache and rate limiting are off")
	} else {
		defer rdb.Close()
	}

	clock := time.Now
	registry := service.NewTheatreRegistry(st.theatres, clock)
	inventory := service.NewSeatInventory(st.inventory, st.shows, service.InventoryConfig{
		HoldTTL:         cfg.HoldTTL,
		MaxSeatsPerHold: cfg.MaxSeatsPerHold,
	}, clock)
	scheduler := service.NewShowScheduler(st.theatres, st.movies, st.shows, inventory, pub, clock)
	coordinator := service.NewBookingCoordinator(inventory, st.shows, st.theatres, st.movies, pub)

	e := router.New(router.Deps{
		Theatres:  handler.NewTheatreHandler(registry),
		Shows:     handler.NewShowHandler(scheduler, inventory, registry),
		Bookings:  handler.NewBookingHandler(coordinator),
		Health:    &handler.HealthHandler{Storage: cfg.StorageDriver, DB: st.pinger()},
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		Logger:    logrus.StandardLogger(),
	})

	runner := jobs.NewRunner(jobs.Config{
		HoldSweepInterval: cfg.HoldSweepInterval,
		ShowCompleteAfter: cfg.ShowCompleteAfter,
		Location:          cfg.Location(),
	}, inventory, scheduler, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.WithField("addr", addr).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return runner.Run(ctx) })
	if cfg.RabbitMQURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.BookingLogPath, log)
		g.Go(func() error { return consumer.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server stopped")
		return
	}
	log.Info("server stopped")
}
