package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/iliyamo/showtime-booking/internal/apperr"
	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/service"
)

// slotIndex is the unique index on shows.slot_key.
const slotIndex = "uq_shows_slot"

// ShowRepo encapsulates all queries on the shows table.  The slot a
// show occupies is written to slot_key only while the show is active or
// housefull; the unique index on that column is what finally rejects a
// double booked screen when two instances race past the service lock.
type ShowRepo struct {
	db *sql.DB // db is the underlying connection pool
}

// NewShowRepo constructs a ShowRepo with the provided DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

var _ service.ShowStore = (*ShowRepo)(nil)

const showColumns = `id, theatre_id, movie_id, screen_number, show_date, show_time, format,
	language, subtitles, audio_format, price_normal, price_premium, price_recliner,
	total_seats, layout, status, notes, created_by, version, created_at, updated_at`

// Create inserts a show.  A unique violation on the slot index is
// reported as apperr.ErrScheduleConflict.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	layout, err := json.Marshal(s.Layout)
	if err != nil {
		return err
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	s.UpdatedAt = s.CreatedAt
	const q = `INSERT INTO shows (theatre_id, movie_id, screen_number, show_date, show_time,
		format, language, subtitles, audio_format, price_normal, price_premium, price_recliner,
		total_seats, layout, status, notes, created_by, slot_key, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		s.TheatreID, s.MovieID, s.ScreenNumber, s.ShowDate, s.ShowTime, string(s.Format),
		s.Language, s.Subtitles, string(s.AudioFormat), s.Pricing.Normal, s.Pricing.Premium,
		s.Pricing.Recliner, s.TotalSeats, layout, string(s.Status), s.Notes, s.CreatedBy,
		slotKey(s), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err, slotIndex) {
			return apperr.ErrScheduleConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.Version = 1
	return nil
}

// GetByID returns the show with the given id.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*model.Show, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+showColumns+" FROM shows WHERE id = ?", id)
	s, err := scanShow(row)
	if err != nil {
		return nil, notFound(err, "show")
	}
	return s, nil
}

// Update rewrites the show if its version still matches.  Moving the
// show into an occupied slot fails with apperr.ErrScheduleConflict;
// leaving the active states clears slot_key and frees the slot.
func (r *ShowRepo) Update(ctx context.Context, s *model.Show) error {
	layout, err := json.Marshal(s.Layout)
	if err != nil {
		return err
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	const q = `UPDATE shows SET movie_id = ?, screen_number = ?, show_date = ?, show_time = ?,
		format = ?, language = ?, subtitles = ?, audio_format = ?, price_normal = ?,
		price_premium = ?, price_recliner = ?, layout = ?, status = ?, notes = ?, slot_key = ?,
		version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q,
		s.MovieID, s.ScreenNumber, s.ShowDate, s.ShowTime, string(s.Format), s.Language,
		s.Subtitles, string(s.AudioFormat), s.Pricing.Normal, s.Pricing.Premium,
		s.Pricing.Recliner, layout, string(s.Status), s.Notes, slotKey(s), s.UpdatedAt,
		s.ID, s.Version)
	if err != nil {
		if isDuplicateKey(err, slotIndex) {
			return apperr.ErrScheduleConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, "SELECT 1 FROM shows WHERE id = ?", s.ID).Scan(&one); err != nil {
			return notFound(err, "show")
		}
		return apperr.ErrStaleWrite
	}
	s.Version++
	return nil
}

// FindInSlot returns the show occupying slot, if any.
func (r *ShowRepo) FindInSlot(ctx context.Context, slot model.Slot) ([]model.Show, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+showColumns+" FROM shows WHERE slot_key = ?", slot.Key())
	if err != nil {
		return nil, err
	}
	return collectShows(rows)
}

// List returns shows matching f ordered by date, time and id.
func (r *ShowRepo) List(ctx context.Context, f service.ShowFilter) ([]model.Show, error) {
	var (
		where []string
		args  []any
	)
	if f.MovieID != 0 {
		where = append(where, "movie_id = ?")
		args = append(args, f.MovieID)
	}
	if f.TheatreID != 0 {
		where = append(where, "theatre_id = ?")
		args = append(args, f.TheatreID)
	}
	if f.DateFrom != "" {
		where = append(where, "show_date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		where = append(where, "show_date <= ?")
		args = append(args, f.DateTo)
	}
	if len(f.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, st := range f.Statuses {
			args = append(args, string(st))
		}
	}
	var sb strings.Builder
	sb.WriteString("SELECT " + showColumns + " FROM shows")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY show_date, show_time, id")
	if f.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}
	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	return collectShows(rows)
}

func collectShows(rows *sql.Rows) ([]model.Show, error) {
	defer rows.Close()
	out := make([]model.Show, 0)
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanShow(sc rowScanner) (*model.Show, error) {
	var (
		s                    model.Show
		format, audio, state string
		layout               []byte
	)
	err := sc.Scan(&s.ID, &s.TheatreID, &s.MovieID, &s.ScreenNumber, &s.ShowDate, &s.ShowTime,
		&format, &s.Language, &s.Subtitles, &audio, &s.Pricing.Normal, &s.Pricing.Premium,
		&s.Pricing.Recliner, &s.TotalSeats, &layout, &state, &s.Notes, &s.CreatedBy,
		&s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(layout) > 0 {
		if err := json.Unmarshal(layout, &s.Layout); err != nil {
			return nil, err
		}
	}
	s.Format = model.Format(format)
	s.AudioFormat = model.AudioFormat(audio)
	s.Status = model.ShowStatus(state)
	return &s, nil
}

// slotKey is the value stored in shows.slot_key: the slot key while the
// show occupies its slot, NULL otherwise.
func slotKey(s *model.Show) sql.NullString {
	if !s.Status.OccupiesSlot() {
		return sql.NullString{}
	}
	return sql.NullString{String: s.Slot().Key(), Valid: true}
}
