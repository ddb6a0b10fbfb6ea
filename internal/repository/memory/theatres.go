// Package memory holds in-process implementations of the service
// stores.  They back the server when STORAGE_DRIVER=memory and every
// service test.  Records are copied on the way in and on the way out so
// callers never share memory with the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/showtime-booking/internal/apperr"
	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/service"
)

// TheatreStore keeps theatres in a map guarded by one mutex.
type TheatreStore struct {
	mu     sync.RWMutex
	nextID uint64
	rows   map[uint64]model.Theatre
}

// NewTheatreStore returns an empty store.
func NewTheatreStore() *TheatreStore {
	return &TheatreStore{rows: make(map[uint64]model.Theatre)}
}

var _ service.TheatreStore = (*TheatreStore)(nil)

func (s *TheatreStore) Create(_ context.Context, t *model.Theatre) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	t.Version = 1
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = t.CreatedAt
	s.rows[t.ID] = cloneTheatre(*t)
	return nil
}

func (s *TheatreStore) GetByID(_ context.Context, id uint64) (*model.Theatre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.rows[id]
	if !ok {
		return nil, apperr.NotFound("theatre")
	}
	out := cloneTheatre(t)
	return &out, nil
}

func (s *TheatreStore) Update(_ context.Context, t *model.Theatre) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[t.ID]
	if !ok {
		return apperr.NotFound("theatre")
	}
	if cur.Version != t.Version {
		return apperr.ErrStaleWrite
	}
	t.Version++
	t.CreatedAt = cur.CreatedAt
	s.rows[t.ID] = cloneTheatre(*t)
	return nil
}

func (s *TheatreStore) List(_ context.Context, f service.TheatreFilter) ([]model.Theatre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Theatre, 0)
	for _, t := range s.rows {
		if t.DeletedAt != nil {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.OwnerID != "" && t.OwnerID != f.OwnerID {
			continue
		}
		out = append(out, cloneTheatre(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneTheatre(t model.Theatre) model.Theatre {
	if t.ApprovedAt != nil {
		at := *t.ApprovedAt
		t.ApprovedAt = &at
	}
	if t.RejectedAt != nil {
		at := *t.RejectedAt
		t.RejectedAt = &at
	}
	if t.DeletedAt != nil {
		at := *t.DeletedAt
		t.DeletedAt = &at
	}
	return t
}
