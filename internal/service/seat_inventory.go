package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/apperr"
	"github.com/iliyamo/showtime-booking/internal/logging"
	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/pricing"
)

// Defaults for InventoryConfig.
const (
	DefaultHoldTTL         = 5 * time.Minute
	DefaultMaxSeatsPerHold = 10
)

// InventoryConfig tunes hold behaviour.
type InventoryConfig struct {
	HoldTTL         time.Duration
	MaxSeatsPerHold int
}

// HoldRequest asks for seats of one show on behalf of one holder.  A
// zero TTL means the configured default.
type HoldRequest struct {
	ShowID   uint64
	SeatIDs  []string
	HolderID string
	TTL      time.Duration
}

// SectionAvailability counts seats of one section by state.
type SectionAvailability struct {
	Section   model.Section `json:"section"`
	Price     int64         `json:"price"`
	Total     int           `json:"total"`
	Available int           `json:"available"`
	Held      int           `json:"held"`
	Booked    int           `json:"booked"`
}

// Availability summarizes a show's seat map.
type Availability struct {
	ShowID    uint64                `json:"show_id"`
	Status    model.ShowStatus      `json:"status"`
	Total     int                   `json:"total"`
	Available int                   `json:"available"`
	Sections  []SectionAvailability `json:"sections"`
}

// SeatInventory owns the per-show seat state: holds, releases, commits
// and the housefull flag that follows from them.
type SeatInventory struct {
	store InventoryStore
	shows ShowStore
	locks *keyedMutex
	cfg   InventoryConfig
	now   func() time.Time
}

// NewSeatInventory builds an inventory.  A nil clock means time.Now.
func NewSeatInventory(store InventoryStore, shows ShowStore, cfg InventoryConfig, clock func() time.Time) *SeatInventory {
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = DefaultHoldTTL
	}
	if cfg.MaxSeatsPerHold <= 0 {
		cfg.MaxSeatsPerHold = DefaultMaxSeatsPerHold
	}
	if clock == nil {
		clock = time.Now
	}
	return &SeatInventory{store: store, shows: shows, locks: newKeyedMutex(), cfg: cfg, now: clock}
}

// lockShow serializes status changes, holds and commits of one show.
func (i *SeatInventory) lockShow(showID uint64) func() {
	return i.locks.Lock(fmt.Sprintf("show:%d", showID))
}

// Create lays out the seats of a freshly scheduled show.
func (i *SeatInventory) Create(ctx context.Context, s *model.Show) error {
	return i.store.CreateSeats(ctx, s.ID, buildSeats(s.ID, s.Layout, s.TotalSeats))
}

// Seats returns the seat map of a show as of now.
func (i *SeatInventory) Seats(ctx context.Context, showID uint64) ([]model.Seat, error) {
	if _, err := i.shows.GetByID(ctx, showID); err != nil {
		return nil, err
	}
	return i.store.Seats(ctx, showID, i.now())
}

// Availability counts a show's seats per section.
func (i *SeatInventory) Availability(ctx context.Context, showID uint64) (*Availability, error) {
	show, err := i.shows.GetByID(ctx, showID)
	if err != nil {
		return nil, err
	}
	seats, err := i.store.Seats(ctx, showID, i.now())
	if err != nil {
		return nil, err
	}
	out := &Availability{ShowID: showID, Status: show.Status, Total: len(seats)}
	idx := map[model.Section]int{}
	for _, st := range seats {
		n, ok := idx[st.Section]
		if !ok {
			n = len(out.Sections)
			idx[st.Section] = n
			out.Sections = append(out.Sections, SectionAvailability{Section: st.Section, Price: show.Pricing.For(st.Section)})
		}
		sa := &out.Sections[n]
		sa.Total++
		switch st.Status {
		case model.SeatAvailable:
			sa.Available++
			out.Available++
		case model.SeatHeld:
			sa.Held++
		case model.SeatBooked:
			sa.Booked++
		}
	}
	return out, nil
}

// Hold places an all-or-nothing hold on req.SeatIDs.  The hold carries
// the quote the holder will pay if it is committed.
func (i *SeatInventory) Hold(ctx context.Context, req HoldRequest) (*model.Hold, error) {
	ids := dedupeSeatIDs(req.SeatIDs)
	switch {
	case strings.TrimSpace(req.HolderID) == "":
		return nil, apperr.Validation("holder is required")
	case len(ids) == 0:
		return nil, apperr.InvalidRequest("no seats requested")
	case len(ids) > i.cfg.MaxSeatsPerHold:
		return nil, apperr.InvalidRequest("at most %d seats per hold", i.cfg.MaxSeatsPerHold)
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = i.cfg.HoldTTL
	}

	unlock := i.lockShow(req.ShowID)
	h, err := i.placeLocked(ctx, req, ids, ttl)
	unlock()
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"hold_id": h.ID, "show_id": h.ShowID, "seats": len(ids),
	}).Debug("seats held")
	i.syncOccupancy(ctx, h.ShowID)
	return h, nil
}

// placeLocked checks the show is still bookable and places the hold.
// Caller holds the show lock, so a concurrent cancel or complete either
// lands before the check or after the hold exists.
func (i *SeatInventory) placeLocked(ctx context.Context, req HoldRequest, ids []string, ttl time.Duration) (*model.Hold, error) {
	show, err := i.shows.GetByID(ctx, req.ShowID)
	if err != nil {
		return nil, err
	}
	if !show.Status.Bookable() {
		return nil, fmt.Errorf("%w: show is %s", apperr.ErrShowUnavailable, show.Status)
	}

	now := i.now()
	seats, err := i.store.Seats(ctx, show.ID, now)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Seat, len(seats))
	for _, st := range seats {
		byID[st.SeatID] = st
	}
	picked := make([]model.Seat, 0, len(ids))
	var unknown []string
	for _, id := range ids {
		st, ok := byID[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		picked = append(picked, st)
	}
	if len(unknown) > 0 {
		return nil, apperr.InvalidRequest("unknown seats %s", strings.Join(unknown, ","))
	}

	h := &model.Hold{
		ID:        uuid.NewString(),
		ShowID:    show.ID,
		HolderID:  req.HolderID,
		SeatIDs:   ids,
		Quote:     pricing.Quote(picked, *show),
		Status:    model.HoldActive,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := i.store.PlaceHold(ctx, h, now); err != nil {
		return nil, err
	}
	return h, nil
}

// GetHold returns a hold as of now: an active hold past its expiry is
// reported released.
func (i *SeatInventory) GetHold(ctx context.Context, holdID string) (*model.Hold, error) {
	h, err := i.store.GetHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if h.Status == model.HoldActive && h.Expired(i.now()) {
		h.Status = model.HoldReleased
	}
	return h, nil
}

// Release returns a hold's seats.  Releasing twice, or releasing a
// committed hold, is a no-op.
func (i *SeatInventory) Release(ctx context.Context, holdID string) error {
	h, err := i.store.GetHold(ctx, holdID)
	if err != nil {
		return err
	}
	freed, err := i.store.ReleaseHold(ctx, holdID, i.now())
	if err != nil {
		return err
	}
	if freed {
		i.syncOccupancy(ctx, h.ShowID)
	}
	return nil
}

// Commit turns a live hold into a booking.  Committing against a show
// that was cancelled or completed in the meantime releases the hold and
// fails with apperr.ErrShowUnavailable.
func (i *SeatInventory) Commit(ctx context.Context, holdID, paymentRef string) (*model.Booking, error) {
	h, err := i.store.GetHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	b, err := i.commitLocked(ctx, h, paymentRef)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrShowUnavailable):
			if _, rerr := i.store.ReleaseHold(ctx, holdID, i.now()); rerr != nil {
				logging.FromContext(ctx).WithError(rerr).WithField("hold_id", holdID).Warn("release after unavailable show failed")
			}
		case errors.Is(err, apperr.ErrHoldExpired):
			i.syncOccupancy(ctx, h.ShowID)
		}
		return nil, err
	}
	i.syncOccupancy(ctx, h.ShowID)
	return b, nil
}

func (i *SeatInventory) commitLocked(ctx context.Context, h *model.Hold, paymentRef string) (*model.Booking, error) {
	unlock := i.lockShow(h.ShowID)
	defer unlock()

	show, err := i.shows.GetByID(ctx, h.ShowID)
	if err != nil {
		return nil, err
	}
	if !show.Status.Bookable() {
		return nil, fmt.Errorf("%w: show is %s", apperr.ErrShowUnavailable, show.Status)
	}
	now := i.now()
	b := &model.Booking{PaymentRef: paymentRef, ConfirmedAt: now.UTC()}
	if err := i.store.CommitHold(ctx, h.ID, b, now); err != nil {
		return nil, err
	}
	return b, nil
}

// ExpireHolds releases every lapsed hold and re-evaluates housefull for
// the shows it touched.  It returns the number of shows touched.
func (i *SeatInventory) ExpireHolds(ctx context.Context) (int, error) {
	shows, err := i.store.ExpireHolds(ctx, i.now())
	if err != nil {
		return 0, err
	}
	for _, id := range shows {
		i.syncOccupancy(ctx, id)
	}
	return len(shows), nil
}

// GetBooking returns a booking by ID.
func (i *SeatInventory) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return i.store.GetBooking(ctx, id)
}

// BookingsByHolder lists a holder's bookings, newest first.
func (i *SeatInventory) BookingsByHolder(ctx context.Context, holderID string) ([]model.Booking, error) {
	return i.store.BookingsByHolder(ctx, holderID)
}

// syncOccupancy flips a show between active and housefull to match its
// seat map.  Failures are logged: the flag is advisory and the next
// mutation or sweep will correct it.
func (i *SeatInventory) syncOccupancy(ctx context.Context, showID uint64) {
	if err := i.SyncOccupancy(ctx, showID); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("show_id", showID).Warn("housefull sync failed")
	}
}

// SyncOccupancy sets a show housefull when no seat is available and
// back to active when one is.  Cancelled and completed shows are left
// alone.
func (i *SeatInventory) SyncOccupancy(ctx context.Context, showID uint64) error {
	unlock := i.lockShow(showID)
	defer unlock()

	for attempt := 0; attempt < 2; attempt++ {
		show, err := i.shows.GetByID(ctx, showID)
		if err != nil {
			return err
		}
		if !show.Status.OccupiesSlot() {
			return nil
		}
		seats, err := i.store.Seats(ctx, showID, i.now())
		if err != nil {
			return err
		}
		want := model.ShowHousefull
		for _, st := range seats {
			if st.Status == model.SeatAvailable {
				want = model.ShowActive
				break
			}
		}
		if show.Status == want {
			return nil
		}
		show.Status = want
		show.UpdatedAt = i.now().UTC()
		err = i.shows.Update(ctx, show)
		if err == nil {
			logging.FromContext(ctx).WithFields(logrus.Fields{"show_id": showID, "status": want}).Info("show occupancy changed")
			return nil
		}
		if !errors.Is(err, apperr.ErrStaleWrite) {
			return err
		}
	}
	return apperr.ErrStaleWrite
}

// dedupeSeatIDs normalizes seat IDs, drops blanks and duplicates and
// sorts the rest so every hold locks seats in the same order.
func dedupeSeatIDs(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		id := normalizeSeatID(r)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
