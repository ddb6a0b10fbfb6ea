package repository

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/iliyamo/showtime-booking/internal/apperr"
	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/service"
)

// sweepBatch is how many lapsed holds ExpireHolds loads per query.
const sweepBatch = 500

// InventoryRepo is the MySQL InventoryStore.  Every write runs in one
// transaction that first locks the hold row, the seat rows, or both;
// that row locking is what makes PlaceHold, ReleaseHold and CommitHold
// atomic with respect to each other across server instances.
type InventoryRepo struct {
	db       *sql.DB
	seats    *ShowSeatRepo
	holds    *HoldRepo
	bookings *BookingRepo
}

// NewInventoryRepo wires the seat, hold and booking repos over db.
func NewInventoryRepo(db *sql.DB) *InventoryRepo {
	return &InventoryRepo{
		db:       db,
		seats:    NewShowSeatRepo(db),
		holds:    NewHoldRepo(db),
		bookings: NewBookingRepo(db),
	}
}

var _ service.InventoryStore = (*InventoryRepo)(nil)

// CreateSeats stores the initial inventory of a show.  A show gets its
// inventory once.
func (r *InventoryRepo) CreateSeats(ctx context.Context, showID uint64, seats []model.Seat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)
	n, err := r.seats.CountTx(ctx, tx, showID)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Validation("inventory for show %d already exists", showID)
	}
	if err := r.seats.CreateBulkTx(ctx, tx, showID, seats); err != nil {
		return err
	}
	return tx.Commit()
}

// Seats returns the show's seats as observed at now.  Seats of lapsed
// holds read as available; the rows themselves are fixed up by the next
// write or by the sweep.
func (r *InventoryRepo) Seats(ctx context.Context, showID uint64, now time.Time) ([]model.Seat, error) {
	seats, err := r.seats.List(ctx, showID)
	if err != nil {
		return nil, err
	}
	if len(seats) == 0 {
		return nil, apperr.NotFound("show inventory")
	}
	for i := range seats {
		seats[i], _ = seats[i].Normalize(now)
	}
	return seats, nil
}

// PlaceHold locks the requested seats, releases any lapsed hold still
// sitting on them, and marks them held by h if every one is available.
func (r *InventoryRepo) PlaceHold(ctx context.Context, h *model.Hold, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)

	locked, err := r.seats.lockTx(ctx, tx, h.ShowID, h.SeatIDs)
	if err != nil {
		return err
	}
	if len(locked) == 0 {
		n, err := r.seats.CountTx(ctx, tx, h.ShowID)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("show inventory")
		}
	}
	byID := make(map[string]model.Seat, len(locked))
	lapsed := make(map[string]struct{})
	for _, st := range locked {
		norm, changed := st.Normalize(now)
		if changed && st.HoldID != "" {
			lapsed[st.HoldID] = struct{}{}
		}
		byID[st.SeatID] = norm
	}

	var unknown, taken []string
	for _, id := range h.SeatIDs {
		st, ok := byID[id]
		switch {
		case !ok:
			unknown = append(unknown, id)
		case st.Status != model.SeatAvailable:
			taken = append(taken, id)
		}
	}
	if len(unknown) > 0 {
		return apperr.InvalidRequest("unknown seats %v", unknown)
	}
	if len(taken) > 0 {
		return &apperr.SeatUnavailableError{Seats: taken}
	}

	for id := range lapsed {
		if _, err := r.seats.freeByHoldTx(ctx, tx, id); err != nil {
			return err
		}
		if err := r.holds.setStatusTx(ctx, tx, id, model.HoldReleased); err != nil {
			return err
		}
	}
	if _, err := r.seats.holdTx(ctx, tx, h.ShowID, h.SeatIDs, h.ID, h.ExpiresAt.UTC()); err != nil {
		return err
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	if err := r.holds.CreateTx(ctx, tx, h); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	h.Status = model.HoldActive
	return nil
}

// GetHold returns the hold as stored.
func (r *InventoryRepo) GetHold(ctx context.Context, id string) (*model.Hold, error) {
	return r.holds.Get(ctx, id)
}

// ReleaseHold frees the seats still held by the hold and marks it
// released.  Holds that are no longer active are left alone.
func (r *InventoryRepo) ReleaseHold(ctx context.Context, id string, _ time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer rollback(tx)
	h, err := r.holds.lockTx(ctx, tx, id)
	if err != nil {
		return false, err
	}
	if h.Status != model.HoldActive {
		return false, nil
	}
	freed, err := r.releaseTx(ctx, tx, h.ID)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return freed > 0, nil
}

// CommitHold books the hold's seats.  An expired hold is released in
// the same transaction before apperr.ErrHoldExpired is returned.
func (r *InventoryRepo) CommitHold(ctx context.Context, id string, b *model.Booking, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)
	h, err := r.holds.lockTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if h.Status != model.HoldActive {
		return apperr.ErrHoldExpired
	}
	if h.Expired(now) {
		if _, err := r.releaseTx(ctx, tx, h.ID); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		return apperr.ErrHoldExpired
	}

	locked, err := r.seats.lockTx(ctx, tx, h.ShowID, h.SeatIDs)
	if err != nil {
		return err
	}
	if len(locked) != len(h.SeatIDs) {
		return apperr.ErrHoldExpired
	}
	for _, st := range locked {
		if st.Status != model.SeatHeld || st.HoldID != h.ID {
			return apperr.ErrHoldExpired
		}
	}

	b.HoldID = h.ID
	b.ShowID = h.ShowID
	b.HolderID = h.HolderID
	b.SeatIDs = append([]string(nil), h.SeatIDs...)
	b.Quote = h.Quote
	b.Status = model.BookingConfirmed
	if b.ConfirmedAt.IsZero() {
		b.ConfirmedAt = now
	}
	if err := r.bookings.CreateTx(ctx, tx, b); err != nil {
		return err
	}
	if _, err := r.seats.bookTx(ctx, tx, h.ID, b.ID); err != nil {
		return err
	}
	if err := r.holds.setStatusTx(ctx, tx, h.ID, model.HoldCommitted); err != nil {
		return err
	}
	return tx.Commit()
}

// ExpireHolds releases lapsed holds in batches and returns the shows
// whose holds were released, in ascending order.
func (r *InventoryRepo) ExpireHolds(ctx context.Context, now time.Time) ([]uint64, error) {
	touched := make(map[uint64]struct{})
	for {
		ids, err := r.holds.Lapsed(ctx, now, sweepBatch)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			showID, released, err := r.expireOne(ctx, id, now)
			if err != nil {
				return nil, err
			}
			if released {
				touched[showID] = struct{}{}
			}
		}
		if len(ids) < sweepBatch {
			break
		}
	}
	out := make([]uint64, 0, len(touched))
	for id := range touched {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// expireOne releases one hold if it is still active and lapsed once its
// row is locked; a commit may have won the race in between.
func (r *InventoryRepo) expireOne(ctx context.Context, id string, now time.Time) (uint64, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer rollback(tx)
	h, err := r.holds.lockTx(ctx, tx, id)
	if err != nil {
		return 0, false, err
	}
	if !h.Expired(now) || h.Status != model.HoldActive {
		return h.ShowID, false, nil
	}
	if _, err := r.releaseTx(ctx, tx, h.ID); err != nil {
		return 0, false, err
	}
	return h.ShowID, true, tx.Commit()
}

func (r *InventoryRepo) releaseTx(ctx context.Context, tx *sql.Tx, holdID string) (int64, error) {
	freed, err := r.seats.freeByHoldTx(ctx, tx, holdID)
	if err != nil {
		return 0, err
	}
	return freed, r.holds.setStatusTx(ctx, tx, holdID, model.HoldReleased)
}

// GetBooking returns the booking with the given id.
func (r *InventoryRepo) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return r.bookings.GetByID(ctx, id)
}

// BookingsByHolder returns the holder's bookings, newest first.
func (r *InventoryRepo) BookingsByHolder(ctx context.Context, holderID string) ([]model.Booking, error) {
	return r.bookings.ListByHolder(ctx, holderID)
}
