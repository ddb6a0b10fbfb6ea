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

// ShowStore keeps shows and a slot index.  The index holds only shows
// whose status occupies their slot, so it plays the role of the unique
// slot_key column of the MySQL schema.
type ShowStore struct {
	mu     sync.RWMutex
	nextID uint64
	rows   map[uint64]model.Show
	slots  map[string]uint64
}

// NewShowStore returns an empty store.
func NewShowStore() *ShowStore {
	return &ShowStore{rows: make(map[uint64]model.Show), slots: make(map[string]uint64)}
}

var _ service.ShowStore = (*ShowStore)(nil)

func (s *ShowStore) Create(_ context.Context, sh *model.Show) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sh.Slot().Key()
	if sh.Status.OccupiesSlot() {
		if _, taken := s.slots[key]; taken {
			return apperr.ErrScheduleConflict
		}
	}
	s.nextID++
	sh.ID = s.nextID
	sh.Version = 1
	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = time.Now().UTC()
	}
	sh.UpdatedAt = sh.CreatedAt
	s.rows[sh.ID] = cloneShow(*sh)
	if sh.Status.OccupiesSlot() {
		s.slots[key] = sh.ID
	}
	return nil
}

func (s *ShowStore) GetByID(_ context.Context, id uint64) (*model.Show, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.rows[id]
	if !ok {
		return nil, apperr.NotFound("show")
	}
	out := cloneShow(sh)
	return &out, nil
}

func (s *ShowStore) Update(_ context.Context, sh *model.Show) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[sh.ID]
	if !ok {
		return apperr.NotFound("show")
	}
	if cur.Version != sh.Version {
		return apperr.ErrStaleWrite
	}
	oldKey, newKey := cur.Slot().Key(), sh.Slot().Key()
	if sh.Status.OccupiesSlot() {
		if owner, taken := s.slots[newKey]; taken && owner != sh.ID {
			return apperr.ErrScheduleConflict
		}
	}
	if cur.Status.OccupiesSlot() && s.slots[oldKey] == sh.ID {
		delete(s.slots, oldKey)
	}
	if sh.Status.OccupiesSlot() {
		s.slots[newKey] = sh.ID
	}
	sh.Version++
	sh.CreatedAt = cur.CreatedAt
	s.rows[sh.ID] = cloneShow(*sh)
	return nil
}

func (s *ShowStore) FindInSlot(_ context.Context, slot model.Slot) ([]model.Show, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Show, 0, 1)
	if id, ok := s.slots[slot.Key()]; ok {
		out = append(out, cloneShow(s.rows[id]))
	}
	return out, nil
}

func (s *ShowStore) List(_ context.Context, f service.ShowFilter) ([]model.Show, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Show, 0)
	for _, sh := range s.rows {
		if matchShow(sh, f) {
			out = append(out, cloneShow(sh))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ShowDate != b.ShowDate {
			return a.ShowDate < b.ShowDate
		}
		if a.ShowTime != b.ShowTime {
			return a.ShowTime < b.ShowTime
		}
		return a.ID < b.ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matchShow(sh model.Show, f service.ShowFilter) bool {
	if f.MovieID != 0 && sh.MovieID != f.MovieID {
		return false
	}
	if f.TheatreID != 0 && sh.TheatreID != f.TheatreID {
		return false
	}
	if f.DateFrom != "" && sh.ShowDate < f.DateFrom {
		return false
	}
	if f.DateTo != "" && sh.ShowDate > f.DateTo {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, st := range f.Statuses {
			if sh.Status == st {
				return true
			}
		}
		return false
	}
	return true
}

func cloneShow(sh model.Show) model.Show {
	sh.Layout = append([]model.LayoutSection(nil), sh.Layout...)
	return sh
}
