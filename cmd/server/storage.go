package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/showtime-booking/internal/config"
	"github.com/iliyamo/showtime-booking/internal/database"
	"github.com/iliyamo/showtime-booking/internal/handler"
	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/repository"
	"github.com/iliyamo/showtime-booking/internal/repository/memory"
	"github.com/iliyamo/showtime-booking/internal/service"
)

// storage is the set of stores the services run on.
type storage struct {
	theatres  service.TheatreStore
	shows     service.ShowStore
	movies    service.MovieCatalog
	inventory service.InventoryStore
	db        *sql.DB
}

func openStorage(ctx context.Context, cfg config.Config) (*storage, error) {
	if cfg.StorageDriver == config.StorageMemory {
		return &storage{
			theatres:  memory.NewTheatreStore(),
			shows:     memory.NewShowStore(),
			movies:    memory.NewMovieCatalog(seedMovies...),
			inventory: memory.NewInventoryStore(),
		}, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &storage{
		theatres:  repository.NewTheatreRepo(db),
		shows:     repository.NewShowRepo(db),
		movies:    repository.NewMovieRepo(db),
		inventory: repository.NewInventoryRepo(db),
		db:        db,
	}, nil
}

func (s *storage) pinger() handler.Pinger {
	if s.db == nil {
		return nil
	}
	return s.db
}

func (s *storage) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// seedMovies fills the memory catalog so shows can be scheduled without
// a database.
var seedMovies = []model.Movie{
	{ID: 1, Title: "Interstellar", Language: "English", Genre: "Sci-Fi", RuntimeMins: 169,
		ReleaseDate: time.Date(2014, 11, 7, 0, 0, 0, 0, time.UTC)},
	{ID: 2, Title: "RRR", Language: "Telugu", Genre: "Action", RuntimeMins: 187,
		ReleaseDate: time.Date(2022, 3, 25, 0, 0, 0, 0, time.UTC)},
	{ID: 3, Title: "Spirited Away", Language: "Japanese", Genre: "Animation", RuntimeMins: 125,
		ReleaseDate: time.Date(2001, 7, 20, 0, 0, 0, 0, time.UTC)},
	{ID: 4, Title: "Dune: Part Two", Language: "English", Genre: "Sci-Fi", RuntimeMins: 166,
		ReleaseDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
}
