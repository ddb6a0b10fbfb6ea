package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iliyamo/showtime-booking/internal/apperr"
	"github.com/iliyamo/showtime-booking/internal/model"
)

// BookingRepo provides access to bookings and their seats.  Every
// booked seat is also written to booking_seats, whose unique
// (show_id, seat_id) key refuses to sell a seat twice.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, hold_id, show_id, holder_id, status, subtotal, convenience_fee, tax,
	total, quote_lines, payment_ref, confirmed_at`

// CreateTx inserts b and one booking_seats row per quote line, then
// fills in b.ID.  The caller commits or rolls back tx.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	lines, err := json.Marshal(b.Quote.Lines)
	if err != nil {
		return err
	}
	const q = `INSERT INTO bookings (hold_id, show_id, holder_id, status, subtotal, convenience_fee,
		tax, total, quote_lines, payment_ref, confirmed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.HoldID, b.ShowID, b.HolderID, string(b.Status),
		b.Quote.Subtotal, b.Quote.ConvenienceFee, b.Quote.Tax, b.Quote.Total, lines,
		b.PaymentRef, b.ConfirmedAt.UTC())
	if err != nil {
		if isDuplicateKey(err, "uq_bookings_hold") {
			return apperr.ErrHoldExpired
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	if len(b.Quote.Lines) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, show_id, seat_id, price) VALUES `
	args := make([]any, 0, len(b.Quote.Lines)*4)
	for i, l := range b.Quote.Lines {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, b.ID, b.ShowID, l.SeatID, l.Price)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateKey(err, "uq_booking_seats_seat") {
			return &apperr.SeatUnavailableError{Seats: b.SeatIDs}
		}
		return err
	}
	return nil
}

// GetByID returns the booking with the given id.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "booking")
	}
	return b, nil
}

// ListByHolder returns the holder's bookings, newest first.
func (r *BookingRepo) ListByHolder(ctx context.Context, holderID string) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE holder_id = ? ORDER BY id DESC", holderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBooking(s rowScanner) (*model.Booking, error) {
	var (
		b      model.Booking
		status string
		lines  []byte
	)
	err := s.Scan(&b.ID, &b.HoldID, &b.ShowID, &b.HolderID, &status, &b.Quote.Subtotal,
		&b.Quote.ConvenienceFee, &b.Quote.Tax, &b.Quote.Total, &lines, &b.PaymentRef, &b.ConfirmedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &b.Quote.Lines); err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	b.SeatIDs = seatsOf(b.Quote.Lines)
	return &b, nil
}
