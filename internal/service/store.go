package service

import (
	"context"
	"time"

	"github.com/iliyamo/showtime-booking/internal/model"
)

// TheatreStore persists theatres.  Update is an optimistic write: it
// fails with apperr.ErrStaleWrite unless the stored version equals
// t.Version, and bumps t.Version on success.
type TheatreStore interface {
	Create(ctx context.Context, t *model.Theatre) error
	GetByID(ctx context.Context, id uint64) (*model.Theatre, error)
	Update(ctx context.Context, t *model.Theatre) error
	List(ctx context.Context, f TheatreFilter) ([]model.Theatre, error)
}

// TheatreFilter narrows theatre listings.  Logically deleted theatres
// are never listed.  Zero fields do not filter.
type TheatreFilter struct {
	Status  model.TheatreStatus
	OwnerID string
}

// MovieCatalog is the read side of the external movie catalog.
type MovieCatalog interface {
	GetByID(ctx context.Context, id uint64) (*model.Movie, error)
}

// ShowStore persists shows.  Create and Update must refuse, with
// apperr.ErrScheduleConflict, to leave two slot-occupying shows in the
// same slot; Update is optimistic like TheatreStore.Update.
type ShowStore interface {
	Create(ctx context.Context, s *model.Show) error
	GetByID(ctx context.Context, id uint64) (*model.Show, error)
	Update(ctx context.Context, s *model.Show) error
	FindInSlot(ctx context.Context, slot model.Slot) ([]model.Show, error)
	List(ctx context.Context, f ShowFilter) ([]model.Show, error)
}

// ShowFilter narrows show listings.  Dates are inclusive YYYY-MM-DD
// bounds.  Results are ordered by date, time and ID.
type ShowFilter struct {
	MovieID   uint64
	TheatreID uint64
	DateFrom  string
	DateTo    string
	Statuses  []model.ShowStatus
	Limit     int
}

// InventoryStore owns seat state.  Every method that reads seats must
// first treat lapsed holds as released.  PlaceHold, ReleaseHold and
// CommitHold are atomic with respect to each other for the same show.
type InventoryStore interface {
	CreateSeats(ctx context.Context, showID uint64, seats []model.Seat) error
	Seats(ctx context.Context, showID uint64, now time.Time) ([]model.Seat, error)
	// PlaceHold marks every seat of h as held by h, or none of them.  It
	// returns *apperr.SeatUnavailableError naming the seats that are not
	// available.
	PlaceHold(ctx context.Context, h *model.Hold, now time.Time) error
	GetHold(ctx context.Context, id string) (*model.Hold, error)
	// ReleaseHold returns the hold's seats to available.  Releasing a
	// hold that is already released or committed does nothing.  It
	// reports whether any seat was freed.
	ReleaseHold(ctx context.Context, id string, now time.Time) (bool, error)
	// CommitHold books the hold's seats and stores b, filling its ID and
	// seats.  It fails with apperr.ErrHoldExpired unless the hold is
	// active and unexpired at now.
	CommitHold(ctx context.Context, id string, b *model.Booking, now time.Time) error
	// ExpireHolds releases every active hold that lapsed before now and
	// returns the affected show IDs.
	ExpireHolds(ctx context.Context, now time.Time) ([]uint64, error)
	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	BookingsByHolder(ctx context.Context, holderID string) ([]model.Booking, error)
}

// EventPublisher delivers domain events to the message broker.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error
	PublishShowCancelled(ctx context.Context, ev ShowCancelledEvent) error
}

// BookingConfirmedEvent is published after a booking is committed.
type BookingConfirmedEvent struct {
	BookingID    uint64   `json:"booking_id"`
	HolderID     string   `json:"holder_id"`
	ShowID       uint64   `json:"show_id"`
	TheatreID    uint64   `json:"theatre_id"`
	TheatreName  string   `json:"theatre_name"`
	ScreenNumber int      `json:"screen_number"`
	MovieTitle   string   `json:"movie_title"`
	ShowDate     string   `json:"show_date"`
	ShowTime     string   `json:"show_time"`
	Seats        []string `json:"seats"`
	Total        int64    `json:"total"`
	PaymentRef   string   `json:"payment_ref,omitempty"`
	ConfirmedAt  string   `json:"confirmed_at"`
}

// ShowCancelledEvent is published when a partner cancels a show.
type ShowCancelledEvent struct {
	ShowID      uint64 `json:"show_id"`
	TheatreID   uint64 `json:"theatre_id"`
	MovieID     uint64 `json:"movie_id"`
	ShowDate    string `json:"show_date"`
	ShowTime    string `json:"show_time"`
	Reason      string `json:"reason"`
	CancelledAt string `json:"cancelled_at"`
}

type noopPublisher struct{}

func (noopPublisher) PublishBookingConfirmed(context.Context, BookingConfirmedEvent) error {
	return nil
}

func (noopPublisher) PublishShowCancelled(context.Context, ShowCancelledEvent) error { return nil }
