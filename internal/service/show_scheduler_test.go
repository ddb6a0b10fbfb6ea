package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-booking/internal/apperr"
	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/service"
)

func TestAddShowSlotConflict(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	th := e.approvedTheatre(t, "Pune")

	first := e.addShow(t, showInput(th.ID, 1, "2024-12-20", "18:00"))
	assert.Equal(t, model.ShowActive, first.Status)
	assert.Equal(t, "English", first.Language)
	assert.Equal(t, model.AudioStandard, first.AudioFormat)

	_, err := e.scheduler.AddShow(ctx, owner, showInput(th.ID, 1, "2024-12-20", "18:00"))
	require.ErrorIs(t, err, apperr.ErrScheduleConflict)

	e.addShow(t, showInput(th.ID, 2, "2024-12-20", "18:00"))
}

func TestAddShowConcurrentSameSlot(t *testing.T) {
	e := newEnv(t)
	th := e.approvedTheatre(t, "Pune")

	const n = 20
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.scheduler.AddShow(context.Background(), owner, showInput(th.ID, 1, "2024-12-20", "18:00"))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrScheduleConflict)
	}
	assert.Equal(t, 1, ok)
}

func TestAddShowRequiresApprovedOwnedTheatre(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	pending := e.submitTheatre(t, "Pune")

	_, err := e.scheduler.AddShow(ctx, owner, showInput(pending.ID, 1, "2024-12-20", "18:00"))
	require.ErrorIs(t, err, apperr.ErrForbidden)

	approved := e.approvedTheatre(t, "Mumbai")
	_, err = e.scheduler.AddShow(ctx, "other-partner", showInput(approved.ID, 1, "2024-12-20", "18:00"))
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestAddShowValidation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	th := e.approvedTheatre(t, "Pune")

	cases := map[string]func(*service.ShowInput){
		"bad date":          func(in *service.ShowInput) { in.ShowDate = "20-12-2024" },
		"bad time":          func(in *service.ShowInput) { in.ShowTime = "6pm" },
		"bad format":        func(in *service.ShowInput) { in.Format = "8K" },
		"no normal price":   func(in *service.ShowInput) { in.Pricing = model.Pricing{Premium: 300} },
		"screen too high":   func(in *service.ShowInput) { in.ScreenNumber = 9 },
		"zero seats":        func(in *service.ShowInput) { in.TotalSeats = 0 },
		"unpriced section":  func(in *service.ShowInput) { in.Layout = []model.LayoutSection{{Section: model.SectionRecliner, Rows: 2, Columns: 16}} },
		"layout size wrong": func(in *service.ShowInput) { in.Layout = []model.LayoutSection{{Section: model.SectionNormal, Rows: 1, Columns: 10}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := showInput(th.ID, 1, "2024-12-21", "10:00")
			mutate(&in)
			_, err := e.scheduler.AddShow(ctx, owner, in)
			require.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	in := showInput(th.ID, 1, "2024-12-21", "10:00")
	in.MovieID = 42
	_, err := e.scheduler.AddShow(ctx, owner, in)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAddShowCustomLayout(t *testing.T) {
	e := newEnv(t)
	th := e.approvedTheatre(t, "Pune")
	in := showInput(th.ID, 1, "2024-12-21", "10:00")
	in.Pricing = model.Pricing{Normal: 150, Recliner: 400}
	in.TotalSeats = 14
	in.Layout = []model.LayoutSection{
		{Section: model.SectionNormal, Rows: 2, Columns: 5},
		{Section: model.SectionRecliner, Rows: 1, Columns: 4},
	}
	sh := e.addShow(t, in)

	seats, err := e.inventory.Seats(context.Background(), sh.ID)
	require.NoError(t, err)
	require.Len(t, seats, 14)
	assert.Equal(t, "B5", seats[9].SeatID)
	assert.Equal(t, "C4", seats[13].SeatID)
	assert.Equal(t, model.SectionRecliner, seats[13].Section)
}

func TestCancelShow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	th := e.approvedTheatre(t, "Pune")
	sh := e.addShow(t, showInput(th.ID, 1, "2024-12-20", "18:00"))

	_, err := e.scheduler.CancelShow(ctx, sh.ID, "intruder", "no")
	require.ErrorIs(t, err, apperr.ErrForbidden)

	cancelled, err := e.scheduler.CancelShow(ctx, sh.ID, owner, "projector broken")
	require.NoError(t, err)
	assert.Equal(t, model.ShowCancelled, cancelled.Status)
	assert.Equal(t, "Cancelled: projector broken", cancelled.Notes)
	require.Len(t, e.pub.cancelled, 1)
	assert.Equal(t, sh.ID, e.pub.cancelled[0].ShowID)

	again, err := e.scheduler.CancelShow(ctx, sh.ID, owner, "other")
	require.NoError(t, err)
	assert.Equal(t, "Cancelled: projector broken", again.Notes)
	assert.Len(t, e.pub.cancelled, 1)

	_, err = e.scheduler.CompleteShow(ctx, sh.ID, owner)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	// the slot is free again
	e.addShow(t, showInput(th.ID, 1, "2024-12-20", "18:00"))
}

func TestCompleteShow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	th := e.approvedTheatre(t, "Pune")
	sh := e.addShow(t, showInput(th.ID, 1, "2024-12-20", "18:00"))

	done, err := e.scheduler.CompleteShow(ctx, sh.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, model.ShowCompleted, done.Status)

	again, err := e.scheduler.CompleteShow(ctx, sh.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, model.ShowCompleted, again.Status)

	_, err = e.scheduler.CancelShow(ctx, sh.ID, owner, "late")
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestUpdateShow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	th := e.approvedTheatre(t, "Pune")
	a := e.addShow(t, showInput(th.ID, 1, "2024-12-20", "18:00"))
	b := e.addShow(t, showInput(th.ID, 2, "2024-12-20", "18:00"))

	screen := 1
	_, err := e.scheduler.UpdateShow(ctx, b.ID, owner, service.ShowPatch{ScreenNumber: &screen})
	require.ErrorIs(t, err, apperr.ErrScheduleConflict)

	at := "21:30"
	pricing := model.Pricing{Normal: 250}
	moved, err := e.scheduler.UpdateShow(ctx, b.ID, owner, service.ShowPatch{ScreenNumber: &screen, ShowTime: &at, Pricing: &pricing})
	require.NoError(t, err)
	assert.Equal(t, 1, moved.ScreenNumber)
	assert.Equal(t, "21:30", moved.ShowTime)
	assert.Equal(t, int64(250), moved.Pricing.Normal)

	seats := 99
	_, err = e.scheduler.UpdateShow(ctx, a.ID, owner, service.ShowPatch{TotalSeats: &seats})
	require.ErrorIs(t, err, apperr.ErrValidation)

	// screen 2 at 18:00 is free now that b moved
	e.addShow(t, showInput(th.ID, 2, "2024-12-20", "18:00"))

	_, err = e.scheduler.CompleteShow(ctx, a.ID, owner)
	require.NoError(t, err)
	notes := "late"
	_, err = e.scheduler.UpdateShow(ctx, a.ID, owner, service.ShowPatch{Notes: &notes})
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestShowsByMovieGroupsByTheatre(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	pune := e.approvedTheatre(t, "Pune")
	mumbai := e.approvedTheatre(t, "Mumbai")
	e.addShow(t, showInput(pune.ID, 1, "2024-12-20", "18:00"))
	e.addShow(t, showInput(pune.ID, 1, "2024-12-20", "21:00"))
	e.addShow(t, showInput(mumbai.ID, 1, "2024-12-21", "18:00"))
	cancelled := e.addShow(t, showInput(mumbai.ID, 2, "2024-12-20", "18:00"))
	_, err := e.scheduler.CancelShow(ctx, cancelled.ID, owner, "")
	require.NoError(t, err)

	groups, err := e.scheduler.ShowsByMovie(ctx, 1, "", "")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, pune.ID, groups[0].Theatre.ID)
	assert.Len(t, groups[0].Shows, 2)
	assert.Len(t, groups[1].Shows, 1)

	groups, err = e.scheduler.ShowsByMovie(ctx, 1, "mumbai", "")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, mumbai.ID, groups[0].Theatre.ID)

	groups, err = e.scheduler.ShowsByMovie(ctx, 1, "", "2024-12-21")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "2024-12-21", groups[0].Shows[0].ShowDate)

	_, err = e.scheduler.ShowsByMovie(ctx, 1, "", "tomorrow")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpcomingAndTheatreListings(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	th := e.approvedTheatre(t, "Pune")
	e.addShow(t, showInput(th.ID, 1, "2024-12-19", "18:00"))
	e.addShow(t, showInput(th.ID, 1, "2024-12-30", "18:00"))

	upcoming, err := e.scheduler.UpcomingShows(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "2024-12-19", upcoming[0].ShowDate)

	all, err := e.scheduler.ShowsByTheatre(ctx, th.ID, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = e.scheduler.ShowsByTheatre(ctx, 404, "", "")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCompleteStartedShows(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	th := e.approvedTheatre(t, "Pune")
	past := e.addShow(t, showInput(th.ID, 1, "2024-12-18", "05:00"))
	recent := e.addShow(t, showInput(th.ID, 1, "2024-12-18", "09:00"))
	future := e.addShow(t, showInput(th.ID, 1, "2024-12-19", "09:00"))

	n, err := e.scheduler.CompleteStartedShows(ctx, 4*time.Hour, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for id, want := range map[uint64]model.ShowStatus{
		past.ID: model.ShowCompleted, recent.ID: model.ShowActive, future.ID: model.ShowActive,
	} {
		sh, err := e.scheduler.GetShow(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, sh.Status, "show %d", id)
	}
}
