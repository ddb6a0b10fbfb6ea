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

// TheatreRepo encapsulates all queries on the theatres table.  Rows are
// never deleted; deleted_at marks a logical delete and such theatres
// are left out of every listing.
type TheatreRepo struct {
	db *sql.DB // db is the underlying connection pool
}

// NewTheatreRepo constructs a TheatreRepo with the provided DB handle.
func NewTheatreRepo(db *sql.DB) *TheatreRepo {
	return &TheatreRepo{db: db}
}

var _ service.TheatreStore = (*TheatreRepo)(nil)

const theatreColumns = `id, owner_id, name, address, city, state, country, pincode,
	total_screens, facilities, phone, email, status, rejection_reason, approved_by,
	approved_at, rejected_by, rejected_at, deleted_at, version, created_at, updated_at`

// Create inserts a theatre and fills in its ID and version.  created_at
// is taken from the caller so the service clock stays authoritative.
func (r *TheatreRepo) Create(ctx context.Context, t *model.Theatre) error {
	fac, err := json.Marshal(t.Facilities)
	if err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.UpdatedAt = t.CreatedAt
	const q = `INSERT INTO theatres (owner_id, name, address, city, state, country, pincode,
		total_screens, facilities, phone, email, status, rejection_reason, approved_by,
		approved_at, rejected_by, rejected_at, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		t.OwnerID, t.Name, t.Location.Address, t.Location.City, t.Location.State,
		t.Location.Country, t.Location.Pincode, t.TotalScreens, fac, t.Contact.Phone,
		t.Contact.Email, string(t.Status), t.RejectionReason, t.ApprovedBy,
		nullTime(t.ApprovedAt), t.RejectedBy, nullTime(t.RejectedAt), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.Version = 1
	return nil
}

// GetByID returns the theatre with the given id, including a logically
// deleted one; callers decide what deletion means to them.
func (r *TheatreRepo) GetByID(ctx context.Context, id uint64) (*model.Theatre, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+theatreColumns+" FROM theatres WHERE id = ?", id)
	t, err := scanTheatre(row)
	if err != nil {
		return nil, notFound(err, "theatre")
	}
	return t, nil
}

// Update rewrites every mutable column if the stored version still
// equals t.Version.  Zero affected rows means either the theatre is gone
// or another writer got there first; a follow-up lookup tells them apart.
func (r *TheatreRepo) Update(ctx context.Context, t *model.Theatre) error {
	fac, err := json.Marshal(t.Facilities)
	if err != nil {
		return err
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now().UTC()
	}
	const q = `UPDATE theatres SET name = ?, address = ?, city = ?, state = ?, country = ?,
		pincode = ?, total_screens = ?, facilities = ?, phone = ?, email = ?, status = ?,
		rejection_reason = ?, approved_by = ?, approved_at = ?, rejected_by = ?,
		rejected_at = ?, deleted_at = ?,
		version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q,
		t.Name, t.Location.Address, t.Location.City, t.Location.State, t.Location.Country,
		t.Location.Pincode, t.TotalScreens, fac, t.Contact.Phone, t.Contact.Email,
		string(t.Status), t.RejectionReason, t.ApprovedBy, nullTime(t.ApprovedAt),
		t.RejectedBy, nullTime(t.RejectedAt), nullTime(t.DeletedAt), t.UpdatedAt, t.ID, t.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		err := r.db.QueryRowContext(ctx, "SELECT 1 FROM theatres WHERE id = ?", t.ID).Scan(&one)
		if err != nil {
			return notFound(err, "theatre")
		}
		return apperr.ErrStaleWrite
	}
	t.Version++
	return nil
}

// List returns live theatres matching f ordered by id.
func (r *TheatreRepo) List(ctx context.Context, f service.TheatreFilter) ([]model.Theatre, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	q := "SELECT " + theatreColumns + " FROM theatres WHERE " + strings.Join(where, " AND ") + " ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Theatre, 0)
	for rows.Next() {
		t, err := scanTheatre(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTheatre(s rowScanner) (*model.Theatre, error) {
	var (
		t          model.Theatre
		status     string
		fac        []byte
		approvedAt sql.NullTime
		rejectedAt sql.NullTime
		deletedAt  sql.NullTime
	)
	err := s.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Location.Address, &t.Location.City,
		&t.Location.State, &t.Location.Country, &t.Location.Pincode, &t.TotalScreens, &fac,
		&t.Contact.Phone, &t.Contact.Email, &status, &t.RejectionReason, &t.ApprovedBy,
		&approvedAt, &t.RejectedBy, &rejectedAt, &deletedAt, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(fac) > 0 {
		if err := json.Unmarshal(fac, &t.Facilities); err != nil {
			return nil, err
		}
	}
	t.Status = model.TheatreStatus(status)
	t.ApprovedAt = timePtr(approvedAt)
	t.RejectedAt = timePtr(rejectedAt)
	t.DeletedAt = timePtr(deletedAt)
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
