package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/iliyamo/showtime-booking/internal/model"
)

// HoldRepo provides data access to the holds table.  A hold's seats are
// the seats of its quote lines, so no separate join table is kept.  All
// timestamps are written in UTC.
type HoldRepo struct {
	db *sql.DB
}

// NewHoldRepo returns a new HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

const holdColumns = `id, show_id, holder_id, status, subtotal, convenience_fee, tax, total,
	quote_lines, expires_at, created_at`

// CreateTx inserts an active hold.
func (r *HoldRepo) CreateTx(ctx context.Context, tx *sql.Tx, h *model.Hold) error {
	lines, err := json.Marshal(h.Quote.Lines)
	if err != nil {
		return err
	}
	const q = `INSERT INTO holds (id, show_id, holder_id, status, subtotal, convenience_fee, tax,
		total, quote_lines, expires_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, q, h.ID, h.ShowID, h.HolderID, string(model.HoldActive),
		h.Quote.Subtotal, h.Quote.ConvenienceFee, h.Quote.Tax, h.Quote.Total, lines,
		h.ExpiresAt.UTC(), h.CreatedAt.UTC())
	return err
}

// Get returns the hold with the given id.
func (r *HoldRepo) Get(ctx context.Context, id string) (*model.Hold, error) {
	h, err := scanHold(r.db.QueryRowContext(ctx, "SELECT "+holdColumns+" FROM holds WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "hold")
	}
	return h, nil
}

// lockTx returns the hold with its row locked for the rest of tx.
func (r *HoldRepo) lockTx(ctx context.Context, tx *sql.Tx, id string) (*model.Hold, error) {
	h, err := scanHold(tx.QueryRowContext(ctx, "SELECT "+holdColumns+" FROM holds WHERE id = ? FOR UPDATE", id))
	if err != nil {
		return nil, notFound(err, "hold")
	}
	return h, nil
}

// setStatusTx moves the hold to status.
func (r *HoldRepo) setStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.HoldStatus) error {
	_, err := tx.ExecContext(ctx, "UPDATE holds SET status = ? WHERE id = ?", string(status), id)
	return err
}

// Lapsed returns up to limit active holds whose expiry is at or before
// now, oldest first.
func (r *HoldRepo) Lapsed(ctx context.Context, now time.Time, limit int) ([]string, error) {
	const q = `SELECT id FROM holds WHERE status = ? AND expires_at <= ? ORDER BY expires_at LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, string(model.HoldActive), now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanHold(s rowScanner) (*model.Hold, error) {
	var (
		h      model.Hold
		status string
		lines  []byte
	)
	err := s.Scan(&h.ID, &h.ShowID, &h.HolderID, &status, &h.Quote.Subtotal, &h.Quote.ConvenienceFee,
		&h.Quote.Tax, &h.Quote.Total, &lines, &h.ExpiresAt, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &h.Quote.Lines); err != nil {
		return nil, err
	}
	h.Status = model.HoldStatus(status)
	h.SeatIDs = seatsOf(h.Quote.Lines)
	return &h, nil
}

func seatsOf(lines []model.QuoteLine) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.SeatID)
	}
	return out
}
