package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/showtime-booking/internal/apperr"
	"github.com/iliyamo/showtime-booking/internal/model"
)

// seatInsertBatch caps the rows sent in one multi-row INSERT.
const seatInsertBatch = 500

// ShowSeatRepo encapsulates database operations on show_seats.  The
// *Tx methods run inside a caller owned transaction; lockTx takes the
// row locks the other writes rely on.
type ShowSeatRepo struct {
	db *sql.DB
}

// NewShowSeatRepo constructs a ShowSeatRepo given a DB handle.
func NewShowSeatRepo(db *sql.DB) *ShowSeatRepo {
	return &ShowSeatRepo{db: db}
}

const seatColumns = `show_id, seat_id, row_label, col_no, section, status, hold_id,
	hold_expires_at, booking_id, version`

// CreateBulkTx inserts seats in layout order.  seq keeps that order so
// listings come back front row first.
func (r *ShowSeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, showID uint64, seats []model.Seat) error {
	for start := 0; start < len(seats); start += seatInsertBatch {
		end := min(start+seatInsertBatch, len(seats))
		query := `INSERT INTO show_seats (show_id, seat_id, row_label, col_no, section, seq, status, version) VALUES `
		args := make([]any, 0, (end-start)*7)
		for i := start; i < end; i++ {
			if i > start {
				query += ","
			}
			query += "(?, ?, ?, ?, ?, ?, ?, 1)"
			st := seats[i]
			args = append(args, showID, st.SeatID, st.Row, st.Column, string(st.Section), i, string(model.SeatAvailable))
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isDuplicateKey(err, "") {
				return apperr.Validation("duplicate seat in inventory of show %d", showID)
			}
			return err
		}
	}
	return nil
}

// CountTx returns how many seats the show already has.
func (r *ShowSeatRepo) CountTx(ctx context.Context, tx *sql.Tx, showID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM show_seats WHERE show_id = ?", showID).Scan(&n)
	return n, err
}

// List returns every seat of the show in layout order, as stored.
func (r *ShowSeatRepo) List(ctx context.Context, showID uint64) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+seatColumns+" FROM show_seats WHERE show_id = ? ORDER BY seq", showID)
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

// lockTx selects the named seats FOR UPDATE.  Rows are locked in
// seat_id order so two transactions over overlapping seats cannot
// deadlock on each other.
func (r *ShowSeatRepo) lockTx(ctx context.Context, tx *sql.Tx, showID uint64, seatIDs []string) ([]model.Seat, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	q := "SELECT " + seatColumns + " FROM show_seats WHERE show_id = ? AND seat_id IN (" +
		placeholders(len(seatIDs)) + ") ORDER BY seat_id FOR UPDATE"
	args := make([]any, 0, len(seatIDs)+1)
	args = append(args, showID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

// holdTx marks the seats held by holdID until expires.
func (r *ShowSeatRepo) holdTx(ctx context.Context, tx *sql.Tx, showID uint64, seatIDs []string, holdID string, expires time.Time) (int64, error) {
	q := `UPDATE show_seats SET status = ?, hold_id = ?, hold_expires_at = ?, version = version + 1
		WHERE show_id = ? AND seat_id IN (` + placeholders(len(seatIDs)) + `)`
	args := []any{string(model.SeatHeld), holdID, expires, showID}
	for _, id := range seatIDs {
		args = append(args, id)
	}
	return execAffected(ctx, tx, q, args...)
}

// freeByHoldTx returns the seats still held by holdID to available and
// reports how many it freed.
func (r *ShowSeatRepo) freeByHoldTx(ctx context.Context, tx *sql.Tx, holdID string) (int64, error) {
	const q = `UPDATE show_seats SET status = ?, hold_id = NULL, hold_expires_at = NULL, version = version + 1
		WHERE hold_id = ? AND status = ?`
	return execAffected(ctx, tx, q, string(model.SeatAvailable), holdID, string(model.SeatHeld))
}

// bookTx moves the seats held by holdID to booked.
func (r *ShowSeatRepo) bookTx(ctx context.Context, tx *sql.Tx, holdID string, bookingID uint64) (int64, error) {
	const q = `UPDATE show_seats SET status = ?, hold_id = NULL, hold_expires_at = NULL, booking_id = ?,
		version = version + 1 WHERE hold_id = ? AND status = ?`
	return execAffected(ctx, tx, q, string(model.SeatBooked), bookingID, holdID, string(model.SeatHeld))
}

func execAffected(ctx context.Context, tx *sql.Tx, q string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func collectSeats(rows *sql.Rows) ([]model.Seat, error) {
	defer rows.Close()
	out := make([]model.Seat, 0)
	for rows.Next() {
		var (
			st              model.Seat
			section, status string
			holdID          sql.NullString
			expires         sql.NullTime
			bookingID       sql.NullInt64
		)
		if err := rows.Scan(&st.ShowID, &st.SeatID, &st.Row, &st.Column, &section, &status,
			&holdID, &expires, &bookingID, &st.Version); err != nil {
			return nil, err
		}
		st.Section = model.Section(section)
		st.Status = model.SeatStatus(status)
		st.HoldID = holdID.String
		st.HoldExpiry = timePtr(expires)
		if bookingID.Valid {
			st.BookingID = uint64(bookingID.Int64)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
