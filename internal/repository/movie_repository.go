package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/service"
)

// MovieRepo reads the movies table.  The catalog is maintained outside
// this service, so the repo is read only apart from Put, which seeds
// development databases.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the provided DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

var _ service.MovieCatalog = (*MovieRepo)(nil)

// GetByID returns the movie with the given id or a not found error.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	const q = "SELECT id, title, language, genre, runtime_mins, release_date FROM movies WHERE id = ?"
	var (
		m       model.Movie
		release sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.Title, &m.Language, &m.Genre, &m.RuntimeMins, &release)
	if err != nil {
		return nil, notFound(err, "movie")
	}
	if release.Valid {
		m.ReleaseDate = release.Time
	}
	return &m, nil
}

// Put inserts or replaces a movie by id.
func (r *MovieRepo) Put(ctx context.Context, m model.Movie) error {
	const q = `INSERT INTO movies (id, title, language, genre, runtime_mins, release_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE title = VALUES(title), language = VALUES(language),
		genre = VALUES(genre), runtime_mins = VALUES(runtime_mins), release_date = VALUES(release_date)`
	var release sql.NullTime
	if !m.ReleaseDate.IsZero() {
		release = sql.NullTime{Time: m.ReleaseDate, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q, m.ID, m.Title, m.Language, m.Genre, m.RuntimeMins, release)
	return err
}
