package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/apperr"
	"github.com/iliyamo/showtime-booking/internal/logging"
	"github.com/iliyamo/showtime-booking/internal/model"
)

// Listing windows.
const (
	UpcomingWindow = 7 * 24 * time.Hour
	UpcomingLimit  = 50
)

// ShowInput is what a partner submits to schedule a show.  Language
// defaults to the movie's language and AudioFormat to Standard.
// Layout is optional; without it seats are laid out in rows of 16.
type ShowInput struct {
	TheatreID    uint64                `json:"theatre_id" validate:"required"`
	MovieID      uint64                `json:"movie_id" validate:"required"`
	ScreenNumber int                   `json:"screen_number" validate:"required,min=1"`
	ShowDate     string                `json:"show_date" validate:"required,datetime=2006-01-02"`
	ShowTime     string                `json:"show_time" validate:"required,datetime=15:04"`
	Format       model.Format          `json:"format" validate:"required"`
	Language     string                `json:"language" validate:"max=40"`
	Subtitles    bool                  `json:"subtitles"`
	AudioFormat  model.AudioFormat     `json:"audio_format"`
	Pricing      model.Pricing         `json:"pricing"`
	TotalSeats   int                   `json:"total_seats" validate:"required,min=1,max=2000"`
	Layout       []model.LayoutSection `json:"layout" validate:"omitempty,dive"`
	Notes        string                `json:"notes" validate:"max=500"`
}

// ShowPatch holds the fields that may change after scheduling.  Nil
// fields are left alone.
type ShowPatch struct {
	ScreenNumber *int               `json:"screen_number"`
	ShowDate     *string            `json:"show_date"`
	ShowTime     *string            `json:"show_time"`
	Format       *model.Format      `json:"format"`
	Language     *string            `json:"language"`
	Subtitles    *bool              `json:"subtitles"`
	AudioFormat  *model.AudioFormat `json:"audio_format"`
	Pricing      *model.Pricing     `json:"pricing"`
	Notes        *string            `json:"notes"`
	TotalSeats   *int               `json:"total_seats"`
}

// TheatreShows groups a movie's shows under the theatre that runs them.
type TheatreShows struct {
	Theatre model.Theatre `json:"theatre"`
	Shows   []model.Show  `json:"shows"`
}

// ShowScheduler places shows into (theatre, screen, date, time) slots
// and drives their lifecycle.
type ShowScheduler struct {
	theatres  TheatreStore
	movies    MovieCatalog
	shows     ShowStore
	inventory *SeatInventory
	pub       EventPublisher
	slots     *keyedMutex
	now       func() time.Time
}

// NewShowScheduler wires a scheduler.  A nil publisher drops events and
// a nil clock means time.Now.
func NewShowScheduler(theatres TheatreStore, movies MovieCatalog, shows ShowStore, inv *SeatInventory, pub EventPublisher, clock func() time.Time) *ShowScheduler {
	if pub == nil {
		pub = noopPublisher{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &ShowScheduler{
		theatres:  theatres,
		movies:    movies,
		shows:     shows,
		inventory: inv,
		pub:       pub,
		slots:     newKeyedMutex(),
		now:       clock,
	}
}

// AddShow schedules a show for ownerID's approved theatre and lays out
// its seats.  A slot already taken by an active or housefull show fails
// with apperr.ErrScheduleConflict.
func (s *ShowScheduler) AddShow(ctx context.Context, ownerID string, in ShowInput) (*model.Show, error) {
	in.Language = strings.TrimSpace(in.Language)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.AudioFormat == "" {
		in.AudioFormat = model.AudioStandard
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := checkShowFields(in.Format, in.AudioFormat, in.Pricing); err != nil {
		return nil, err
	}
	layout := in.Layout
	if len(layout) == 0 {
		layout = defaultLayout(in.TotalSeats, in.Pricing)
	}
	if err := checkLayout(layout, in.TotalSeats, in.Pricing, len(in.Layout) > 0); err != nil {
		return nil, err
	}

	theatre, err := s.schedulableTheatre(ctx, in.TheatreID, ownerID)
	if err != nil {
		return nil, err
	}
	if in.ScreenNumber > theatre.TotalScreens {
		return nil, apperr.Validation("screen %d does not exist, theatre has %d", in.ScreenNumber, theatre.TotalScreens)
	}
	movie, err := s.movies.GetByID(ctx, in.MovieID)
	if err != nil {
		return nil, err
	}
	if in.Language == "" {
		in.Language = movie.Language
	}

	now := s.now().UTC()
	show := &model.Show{
		TheatreID:    in.TheatreID,
		MovieID:      in.MovieID,
		ScreenNumber: in.ScreenNumber,
		ShowDate:     in.ShowDate,
		ShowTime:     in.ShowTime,
		Format:       in.Format,
		Language:     in.Language,
		Subtitles:    in.Subtitles,
		AudioFormat:  in.AudioFormat,
		Pricing:      in.Pricing,
		TotalSeats:   in.TotalSeats,
		Layout:       layout,
		Status:       model.ShowActive,
		Notes:        in.Notes,
		CreatedBy:    ownerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	unlock := s.slots.Lock(show.Slot().Key())
	err = s.createInSlot(ctx, show)
	unlock()
	if err != nil {
		return nil, err
	}

	if err := s.inventory.Create(ctx, show); err != nil {
		s.abandon(ctx, show, "seat layout could not be created")
		return nil, fmt.Errorf("create seats: %w", err)
	}
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"show_id": show.ID, "slot": show.Slot().Key(), "seats": show.TotalSeats,
	}).Info("show scheduled")
	return show, nil
}

func (s *ShowScheduler) createInSlot(ctx context.Context, show *model.Show) error {
	taken, err := s.shows.FindInSlot(ctx, show.Slot())
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return fmt.Errorf("%w: screen %d at %s %s is taken by show %d",
			apperr.ErrScheduleConflict, show.ScreenNumber, show.ShowDate, show.ShowTime, taken[0].ID)
	}
	return s.shows.Create(ctx, show)
}

// abandon cancels a show whose seats could not be created so that its
// slot is freed.
func (s *ShowScheduler) abandon(ctx context.Context, show *model.Show, why string) {
	show.Status = model.ShowCancelled
	show.Notes = "Cancelled: " + why
	if err := s.shows.Update(ctx, show); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("show_id", show.ID).Error("could not abandon show")
	}
}

// GetShow returns a show by ID.
func (s *ShowScheduler) GetShow(ctx context.Context, id uint64) (*model.Show, error) {
	return s.shows.GetByID(ctx, id)
}

// UpdateShow applies p to a show of ownerID's theatre.  Moving the show
// re-runs the slot conflict check.  The seat count is fixed once seats
// exist.
func (s *ShowScheduler) UpdateShow(ctx context.Context, id uint64, ownerID string, p ShowPatch) (*model.Show, error) {
	unlockShow := s.inventory.lockShow(id)
	defer unlockShow()

	show, err := s.shows.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	theatre, err := s.ownedTheatre(ctx, show.TheatreID, ownerID)
	if err != nil {
		return nil, err
	}
	if !show.Status.OccupiesSlot() {
		return nil, fmt.Errorf("%w: cannot update a %s show", apperr.ErrInvalidTransition, show.Status)
	}
	if p.TotalSeats != nil && *p.TotalSeats != show.TotalSeats {
		return nil, apperr.Validation("total_seats cannot change once seats are laid out")
	}

	oldKey := show.Slot().Key()
	if p.ScreenNumber != nil {
		show.ScreenNumber = *p.ScreenNumber
	}
	if p.ShowDate != nil {
		show.ShowDate = strings.TrimSpace(*p.ShowDate)
	}
	if p.ShowTime != nil {
		show.ShowTime = strings.TrimSpace(*p.ShowTime)
	}
	if p.Format != nil {
		show.Format = *p.Format
	}
	if p.Language != nil {
		show.Language = strings.TrimSpace(*p.Language)
	}
	if p.Subtitles != nil {
		show.Subtitles = *p.Subtitles
	}
	if p.AudioFormat != nil {
		show.AudioFormat = *p.AudioFormat
	}
	if p.Pricing != nil {
		show.Pricing = *p.Pricing
	}
	if p.Notes != nil {
		show.Notes = strings.TrimSpace(*p.Notes)
	}

	if show.ScreenNumber < 1 || show.ScreenNumber > theatre.TotalScreens {
		return nil, apperr.Validation("screen %d does not exist, theatre has %d", show.ScreenNumber, theatre.TotalScreens)
	}
	if _, err := time.Parse(model.DateLayout, show.ShowDate); err != nil {
		return nil, apperr.Validation("show_date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(model.TimeLayout, show.ShowTime); err != nil {
		return nil, apperr.Validation("show_time must be HH:MM")
	}
	if show.Language == "" {
		return nil, apperr.Validation("language is required")
	}
	if err := checkShowFields(show.Format, show.AudioFormat, show.Pricing); err != nil {
		return nil, err
	}
	if err := checkLayout(show.Layout, show.TotalSeats, show.Pricing, false); err != nil {
		return nil, err
	}
	show.UpdatedAt = s.now().UTC()

	if newKey := show.Slot().Key(); newKey != oldKey {
		unlock := s.slots.Lock(newKey)
		defer unlock()
		taken, err := s.shows.FindInSlot(ctx, show.Slot())
		if err != nil {
			return nil, err
		}
		for _, other := range taken {
			if other.ID != show.ID {
				return nil, fmt.Errorf("%w: slot is taken by show %d", apperr.ErrScheduleConflict, other.ID)
			}
		}
	}
	if err := s.shows.Update(ctx, show); err != nil {
		return nil, err
	}
	return show, nil
}

// CancelShow cancels a show and frees its slot.  Cancelling twice
// returns the show unchanged; a completed show cannot be cancelled.
func (s *ShowScheduler) CancelShow(ctx context.Context, id uint64, ownerID, reason string) (*model.Show, error) {
	unlock := s.inventory.lockShow(id)
	defer unlock()

	show, err := s.shows.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedTheatre(ctx, show.TheatreID, ownerID); err != nil {
		return nil, err
	}
	switch show.Status {
	case model.ShowCancelled:
		return show, nil
	case model.ShowCompleted:
		return nil, fmt.Errorf("%w: show is completed", apperr.ErrInvalidTransition)
	case model.ShowActive, model.ShowHousefull:
	}

	reason = strings.TrimSpace(reason)
	show.Status = model.ShowCancelled
	show.Notes = "Cancelled"
	if reason != "" {
		show.Notes = "Cancelled: " + reason
	}
	now := s.now().UTC()
	show.UpdatedAt = now
	if err := s.shows.Update(ctx, show); err != nil {
		return nil, err
	}

	ev := ShowCancelledEvent{
		ShowID: show.ID, TheatreID: show.TheatreID, MovieID: show.MovieID,
		ShowDate: show.ShowDate, ShowTime: show.ShowTime,
		Reason: reason, CancelledAt: now.Format(time.RFC3339),
	}
	if err := s.pub.PublishShowCancelled(ctx, ev); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("show_id", show.ID).Warn("publish show.cancelled failed")
	}
	logging.FromContext(ctx).WithField("show_id", show.ID).Info("show cancelled")
	return show, nil
}

// CompleteShow marks a show completed on behalf of ownerID.
func (s *ShowScheduler) CompleteShow(ctx context.Context, id uint64, ownerID string) (*model.Show, error) {
	return s.complete(ctx, id, func(show *model.Show) error {
		_, err := s.ownedTheatre(ctx, show.TheatreID, ownerID)
		return err
	})
}

func (s *ShowScheduler) complete(ctx context.Context, id uint64, authorize func(*model.Show) error) (*model.Show, error) {
	unlock := s.inventory.lockShow(id)
	defer unlock()

	show, err := s.shows.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if authorize != nil {
		if err := authorize(show); err != nil {
			return nil, err
		}
	}
	switch show.Status {
	case model.ShowCompleted:
		return show, nil
	case model.ShowCancelled:
		return nil, fmt.Errorf("%w: show is cancelled", apperr.ErrInvalidTransition)
	case model.ShowActive, model.ShowHousefull:
	}
	show.Status = model.ShowCompleted
	show.UpdatedAt = s.now().UTC()
	if err := s.shows.Update(ctx, show); err != nil {
		return nil, err
	}
	return show, nil
}

// CompleteStartedShows completes every active or housefull show that
// started more than after ago, in loc.  It returns how many it completed.
func (s *ShowScheduler) CompleteStartedShows(ctx context.Context, after time.Duration, loc *time.Location) (int, error) {
	if loc == nil {
		loc = time.UTC
	}
	cutoff := s.now().In(loc).Add(-after)
	shows, err := s.shows.List(ctx, ShowFilter{
		DateTo:   cutoff.Format(model.DateLayout),
		Statuses: []model.ShowStatus{model.ShowActive, model.ShowHousefull},
	})
	if err != nil {
		return 0, err
	}
	done := 0
	for _, sh := range shows {
		starts, err := sh.StartsAt(loc)
		if err != nil || starts.After(cutoff) {
			continue
		}
		if _, err := s.complete(ctx, sh.ID, nil); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("show_id", sh.ID).Warn("auto-complete failed")
			continue
		}
		done++
	}
	return done, nil
}

// ShowsByMovie lists a movie's bookable shows grouped by theatre.  city
// matches case-insensitively; date limits to one day.  Both are optional.
func (s *ShowScheduler) ShowsByMovie(ctx context.Context, movieID uint64, city, date string) ([]TheatreShows, error) {
	f := ShowFilter{MovieID: movieID, Statuses: []model.ShowStatus{model.ShowActive, model.ShowHousefull}}
	if date = strings.TrimSpace(date); date != "" {
		if _, err := time.Parse(model.DateLayout, date); err != nil {
			return nil, apperr.Validation("date must be YYYY-MM-DD")
		}
		f.DateFrom, f.DateTo = date, date
	}
	shows, err := s.shows.List(ctx, f)
	if err != nil {
		return nil, err
	}
	city = strings.TrimSpace(city)

	out := make([]TheatreShows, 0)
	idx := map[uint64]int{}
	theatres := map[uint64]*model.Theatre{}
	for _, sh := range shows {
		t, seen := theatres[sh.TheatreID]
		if !seen {
			t, err = s.theatres.GetByID(ctx, sh.TheatreID)
			if err != nil && !errors.Is(err, apperr.ErrNotFound) {
				return nil, err
			}
			theatres[sh.TheatreID] = t
		}
		if t == nil || t.DeletedAt != nil {
			continue
		}
		if city != "" && !strings.EqualFold(t.Location.City, city) {
			continue
		}
		n, ok := idx[t.ID]
		if !ok {
			n = len(out)
			idx[t.ID] = n
			out = append(out, TheatreShows{Theatre: *t})
		}
		out[n].Shows = append(out[n].Shows, sh)
	}
	return out, nil
}

// ShowsByTheatre lists every show of a theatre between two inclusive
// dates; empty bounds are open.
func (s *ShowScheduler) ShowsByTheatre(ctx context.Context, theatreID uint64, from, to string) ([]model.Show, error) {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, d); err != nil {
			return nil, apperr.Validation("dates must be YYYY-MM-DD")
		}
	}
	if _, err := s.theatres.GetByID(ctx, theatreID); err != nil {
		return nil, err
	}
	return s.shows.List(ctx, ShowFilter{TheatreID: theatreID, DateFrom: from, DateTo: to})
}

// UpcomingShows lists up to UpcomingLimit bookable shows dated within
// the next UpcomingWindow.
func (s *ShowScheduler) UpcomingShows(ctx context.Context) ([]model.Show, error) {
	today := s.now().UTC()
	return s.shows.List(ctx, ShowFilter{
		DateFrom: today.Format(model.DateLayout),
		DateTo:   today.Add(UpcomingWindow).Format(model.DateLayout),
		Statuses: []model.ShowStatus{model.ShowActive, model.ShowHousefull},
		Limit:    UpcomingLimit,
	})
}

// schedulableTheatre loads a theatre that ownerID may schedule in.
func (s *ShowScheduler) schedulableTheatre(ctx context.Context, theatreID uint64, ownerID string) (*model.Theatre, error) {
	t, err := s.ownedTheatre(ctx, theatreID, ownerID)
	if err != nil {
		return nil, err
	}
	if !t.Schedulable() {
		return nil, fmt.Errorf("%w: theatre is %s", apperr.ErrForbidden, t.Status)
	}
	return t, nil
}

func (s *ShowScheduler) ownedTheatre(ctx context.Context, theatreID uint64, ownerID string) (*model.Theatre, error) {
	t, err := s.theatres.GetByID(ctx, theatreID)
	if err != nil {
		return nil, err
	}
	if t.DeletedAt != nil {
		return nil, apperr.NotFound("theatre")
	}
	if t.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: theatre belongs to another partner", apperr.ErrForbidden)
	}
	return t, nil
}

func checkShowFields(f model.Format, a model.AudioFormat, p model.Pricing) error {
	if !f.Valid() {
		return apperr.Validation("unsupported format %q", f)
	}
	if !a.Valid() {
		return apperr.Validation("unsupported audio format %q", a)
	}
	if p.Normal <= 0 {
		return apperr.Validation("pricing.normal must be positive")
	}
	if p.Premium < 0 || p.Recliner < 0 {
		return apperr.Validation("prices cannot be negative")
	}
	return nil
}

// checkLayout verifies every section of the layout is sold.  A layout
// supplied by the partner must seat exactly totalSeats.
func checkLayout(layout []model.LayoutSection, totalSeats int, p model.Pricing, exact bool) error {
	capacity := 0
	for _, sec := range layout {
		if !sec.Section.Valid() {
			return apperr.Validation("unknown section %q", sec.Section)
		}
		if sec.Rows < 1 || sec.Columns < 1 {
			return apperr.Validation("section %s needs at least one row and column", sec.Section)
		}
		if p.For(sec.Section) <= 0 {
			return apperr.Validation("section %s has no price", sec.Section)
		}
		capacity += sec.Seats()
	}
	if exact && capacity != totalSeats {
		return apperr.Validation("layout seats %d, total_seats is %d", capacity, totalSeats)
	}
	if capacity < totalSeats {
		return apperr.Validation("layout seats %d, fewer than total_seats %d", capacity, totalSeats)
	}
	return nil
}
