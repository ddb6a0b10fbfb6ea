package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/repository/memory"
	"github.com/iliyamo/showtime-booking/internal/service"
)

const (
	owner    = "partner-1"
	admin    = "admin-1"
	customer = "customer-1"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []service.BookingConfirmedEvent
	cancelled []service.ShowCancelledEvent
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, ev service.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, ev)
	return nil
}

func (p *recordingPublisher) PublishShowCancelled(_ context.Context, ev service.ShowCancelledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, ev)
	return nil
}

type env struct {
	clock     *fakeClock
	theatres  *memory.TheatreStore
	shows     *memory.ShowStore
	registry  *service.TheatreRegistry
	inventory *service.SeatInventory
	scheduler *service.ShowScheduler
	coord     *service.BookingCoordinator
	pub       *recordingPublisher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 12, 18, 10, 0, 0, 0, time.UTC)}
	theatres := memory.NewTheatreStore()
	shows := memory.NewShowStore()
	movies := memory.NewMovieCatalog(
		model.Movie{ID: 1, Title: "Interstellar", Language: "English"},
		model.Movie{ID: 2, Title: "Dangal", Language: "Hindi"},
	)
	pub := &recordingPublisher{}
	inv := service.NewSeatInventory(memory.NewInventoryStore(), shows, service.InventoryConfig{}, clock.Now)
	return &env{
		clock:     clock,
		theatres:  theatres,
		shows:     shows,
		registry:  service.NewTheatreRegistry(theatres, clock.Now),
		inventory: inv,
		scheduler: service.NewShowScheduler(theatres, movies, shows, inv, pub, clock.Now),
		coord:     service.NewBookingCoordinator(inv, shows, theatres, movies, pub),
		pub:       pub,
	}
}

func theatreInput(name, city string) service.TheatreInput {
	return service.TheatreInput{
		Name:         name,
		Address:      "1 Main Road",
		City:         city,
		TotalScreens: 3,
		Phone:        "+91 98765 43210",
		Email:        "hello@example.com",
	}
}

func (e *env) submitTheatre(t *testing.T, city string) *model.Theatre {
	t.Helper()
	th, err := e.registry.Submit(context.Background(), owner, theatreInput("PVR "+city, city))
	require.NoError(t, err)
	return th
}

func (e *env) approvedTheatre(t *testing.T, city string) *model.Theatre {
	t.Helper()
	th := e.submitTheatre(t, city)
	th, err := e.registry.Approve(context.Background(), th.ID, admin)
	require.NoError(t, err)
	return th
}

func showInput(theatreID uint64, screen int, date, at string) service.ShowInput {
	return service.ShowInput{
		TheatreID:    theatreID,
		MovieID:      1,
		ScreenNumber: screen,
		ShowDate:     date,
		ShowTime:     at,
		Format:       model.Format2D,
		Pricing:      model.Pricing{Normal: 200},
		TotalSeats:   32,
	}
}

func (e *env) addShow(t *testing.T, in service.ShowInput) *model.Show {
	t.Helper()
	sh, err := e.scheduler.AddShow(context.Background(), owner, in)
	require.NoError(t, err)
	return sh
}

func seatStatus(t *testing.T, e *env, showID uint64) map[string]model.SeatStatus {
	t.Helper()
	seats, err := e.inventory.Seats(context.Background(), showID)
	require.NoError(t, err)
	out := make(map[string]model.SeatStatus, len(seats))
	for _, s := range seats {
		out[s.SeatID] = s.Status
	}
	return out
}
