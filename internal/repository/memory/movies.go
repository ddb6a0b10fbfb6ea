package memory

import (
	"context"
	"sync"

	"github.com/iliyamo/showtime-booking/internal/apperr"
	"github.com/iliyamo/showtime-booking/internal/model"
)

// MovieCatalog is a fixed, in-process movie catalog.
type MovieCatalog struct {
	mu     sync.RWMutex
	movies map[uint64]model.Movie
}

// NewMovieCatalog returns a catalog seeded with movies.
func NewMovieCatalog(movies ...model.Movie) *MovieCatalog {
	c := &MovieCatalog{movies: make(map[uint64]model.Movie, len(movies))}
	for _, m := range movies {
		c.movies[m.ID] = m
	}
	return c
}

// Put adds or replaces a movie.
func (c *MovieCatalog) Put(m model.Movie) {
	c.mu.Lock()
	c.movies[m.ID] = m
	c.mu.Unlock()
}

func (c *MovieCatalog) GetByID(_ context.Context, id uint64) (*model.Movie, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.movies[id]
	if !ok {
		return nil, apperr.NotFound("movie")
	}
	return &m, nil
}
