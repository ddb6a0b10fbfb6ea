package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/apperr"
	"github.com/iliyamo/showtime-booking/internal/logging"
	"github.com/iliyamo/showtime-booking/internal/model"
)

// BookingCoordinator runs a customer's reservation: hold, pay, then
// commit or release.
type BookingCoordinator struct {
	inventory *SeatInventory
	shows     ShowStore
	theatres  TheatreStore
	movies    MovieCatalog
	pub       EventPublisher
}

// NewBookingCoordinator wires a coordinator.  A nil publisher drops events.
func NewBookingCoordinator(inv *SeatInventory, shows ShowStore, theatres TheatreStore, movies MovieCatalog, pub EventPublisher) *BookingCoordinator {
	if pub == nil {
		pub = noopPublisher{}
	}
	return &BookingCoordinator{inventory: inv, shows: shows, theatres: theatres, movies: movies, pub: pub}
}

// StartReservation holds seatIDs of a show for holderID.  The show must
// be bookable and its theatre approved.
func (c *BookingCoordinator) StartReservation(ctx context.Context, showID uint64, seatIDs []string, holderID string) (*model.Hold, error) {
	show, err := c.shows.GetByID(ctx, showID)
	if err != nil {
		return nil, err
	}
	if !show.Status.Bookable() {
		return nil, fmt.Errorf("%w: show is %s", apperr.ErrShowUnavailable, show.Status)
	}
	theatre, err := c.theatres.GetByID(ctx, show.TheatreID)
	if err != nil {
		return nil, err
	}
	if !theatre.Schedulable() {
		return nil, fmt.Errorf("%w: theatre is not approved", apperr.ErrForbidden)
	}
	return c.inventory.Hold(ctx, HoldRequest{ShowID: showID, SeatIDs: seatIDs, HolderID: holderID})
}

// GetHold returns a hold of holderID.
func (c *BookingCoordinator) GetHold(ctx context.Context, holdID, holderID string) (*model.Hold, error) {
	h, err := c.inventory.GetHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if h.HolderID != holderID {
		return nil, apperr.ErrForbidden
	}
	return h, nil
}

// ConfirmReservation settles a hold with the payment outcome.  Success
// commits the hold; failure or timeout releases it.  Exactly one of the
// two happens.  A commit that fails leaves the seats released.
func (c *BookingCoordinator) ConfirmReservation(ctx context.Context, holdID, holderID string, pay model.PaymentResult) (*model.Booking, error) {
	if !pay.Status.Valid() {
		return nil, apperr.Validation("unknown payment status %q", pay.Status)
	}
	h, err := c.GetHold(ctx, holdID, holderID)
	if err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx).WithFields(logrus.Fields{"hold_id": holdID, "payment": pay.Status})

	switch pay.Status {
	case model.PaymentSuccess:
		b, err := c.inventory.Commit(ctx, holdID, strings.TrimSpace(pay.Reference))
		if err != nil {
			if rerr := c.inventory.Release(ctx, holdID); rerr != nil {
				log.WithError(rerr).Warn("release after failed commit")
			}
			return nil, err
		}
		log.WithField("booking_id", b.ID).Info("booking confirmed")
		c.publishConfirmed(ctx, b)
		return b, nil
	case model.PaymentFailed:
		if err := c.inventory.Release(ctx, h.ID); err != nil {
			return nil, err
		}
		log.Info("hold released after payment failure")
		return nil, apperr.ErrPaymentFailed
	case model.PaymentTimeout:
		if err := c.inventory.Release(ctx, h.ID); err != nil {
			return nil, err
		}
		log.Info("hold released after payment timeout")
		return nil, apperr.ErrPaymentTimeout
	}
	return nil, apperr.Validation("unknown payment status %q", pay.Status)
}

// AbortReservation releases a hold of holderID.  Aborting twice is fine.
func (c *BookingCoordinator) AbortReservation(ctx context.Context, holdID, holderID string) error {
	if _, err := c.GetHold(ctx, holdID, holderID); err != nil {
		return err
	}
	return c.inventory.Release(ctx, holdID)
}

// GetBooking returns a booking of holderID.
func (c *BookingCoordinator) GetBooking(ctx context.Context, id uint64, holderID string) (*model.Booking, error) {
	b, err := c.inventory.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.HolderID != holderID {
		return nil, apperr.ErrForbidden
	}
	return b, nil
}

// BookingsByHolder lists holderID's bookings, newest first.
func (c *BookingCoordinator) BookingsByHolder(ctx context.Context, holderID string) ([]model.Booking, error) {
	return c.inventory.BookingsByHolder(ctx, holderID)
}

// publishConfirmed sends booking.confirmed.  The booking is already
// durable, so a broker failure is only logged.
func (c *BookingCoordinator) publishConfirmed(ctx context.Context, b *model.Booking) {
	ev := BookingConfirmedEvent{
		BookingID:   b.ID,
		HolderID:    b.HolderID,
		ShowID:      b.ShowID,
		Seats:       b.SeatIDs,
		Total:       b.Quote.Total,
		PaymentRef:  b.PaymentRef,
		ConfirmedAt: b.ConfirmedAt.UTC().Format(time.RFC3339),
	}
	if show, err := c.shows.GetByID(ctx, b.ShowID); err == nil {
		ev.TheatreID = show.TheatreID
		ev.ScreenNumber = show.ScreenNumber
		ev.ShowDate = show.ShowDate
		ev.ShowTime = show.ShowTime
		if t, err := c.theatres.GetByID(ctx, show.TheatreID); err == nil {
			ev.TheatreName = t.Name
		}
		if m, err := c.movies.GetByID(ctx, show.MovieID); err == nil {
			ev.MovieTitle = m.Title
		}
	}
	if err := c.pub.PublishBookingConfirmed(ctx, ev); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("booking_id", b.ID).Warn("publish booking.confirmed failed")
	}
}
