package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/showtime-booking/internal/apperr"
	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/service"
)

// InventoryStore keeps each show's seats behind that show's own mutex,
// so holds on different shows never wait for each other.
type InventoryStore struct {
	mu    sync.RWMutex
	shows map[uint64]*showInventory

	holdIndex sync.Map // hold ID -> show ID

	bookingsMu sync.RWMutex
	bookings   map[uint64]model.Booking
	nextBookID atomic.Uint64
}

type showInventory struct {
	mu    sync.Mutex
	seats map[string]*model.Seat
	order []string
	holds map[string]*model.Hold
}

// NewInventoryStore returns an empty store.
func NewInventoryStore() *InventoryStore {
	return &InventoryStore{
		shows:    make(map[uint64]*showInventory),
		bookings: make(map[uint64]model.Booking),
	}
}

var _ service.InventoryStore = (*InventoryStore)(nil)

func (s *InventoryStore) inventory(showID uint64) (*showInventory, error) {
	s.mu.RLock()
	inv, ok := s.shows[showID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFound("show inventory")
	}
	return inv, nil
}

func (s *InventoryStore) CreateSeats(_ context.Context, showID uint64, seats []model.Seat) error {
	inv := &showInventory{
		seats: make(map[string]*model.Seat, len(seats)),
		order: make([]string, 0, len(seats)),
		holds: make(map[string]*model.Hold),
	}
	for _, st := range seats {
		if _, dup := inv.seats[st.SeatID]; dup {
			return apperr.Validation("duplicate seat %s", st.SeatID)
		}
		cp := st
		cp.ShowID = showID
		cp.Status = model.SeatAvailable
		cp.Version = 1
		inv.seats[st.SeatID] = &cp
		inv.order = append(inv.order, st.SeatID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.shows[showID]; exists {
		return apperr.Validation("inventory for show %d already exists", showID)
	}
	s.shows[showID] = inv
	return nil
}

func (s *InventoryStore) Seats(_ context.Context, showID uint64, now time.Time) ([]model.Seat, error) {
	inv, err := s.inventory(showID)
	if err != nil {
		return nil, err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.expire(now)
	out := make([]model.Seat, 0, len(inv.order))
	for _, id := range inv.order {
		out = append(out, *inv.seats[id])
	}
	return out, nil
}

func (s *InventoryStore) PlaceHold(_ context.Context, h *model.Hold, now time.Time) error {
	inv, err := s.inventory(h.ShowID)
	if err != nil {
		return err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.expire(now)

	var unknown, taken []string
	for _, id := range h.SeatIDs {
		st, ok := inv.seats[id]
		switch {
		case !ok:
			unknown = append(unknown, id)
		case st.Status != model.SeatAvailable:
			taken = append(taken, id)
		}
	}
	if len(unknown) > 0 {
		return apperr.InvalidRequest("unknown seats %v", unknown)
	}
	if len(taken) > 0 {
		return &apperr.SeatUnavailableError{Seats: taken}
	}

	exp := h.ExpiresAt
	for _, id := range h.SeatIDs {
		st := inv.seats[id]
		st.Status = model.SeatHeld
		st.HoldID = h.ID
		st.HoldExpiry = &exp
		st.Version++
	}
	h.Status = model.HoldActive
	cp := cloneHold(*h)
	inv.holds[h.ID] = &cp
	s.holdIndex.Store(h.ID, h.ShowID)
	return nil
}

func (s *InventoryStore) holdInventory(id string) (*showInventory, error) {
	v, ok := s.holdIndex.Load(id)
	if !ok {
		return nil, apperr.NotFound("hold")
	}
	return s.inventory(v.(uint64))
}

func (s *InventoryStore) GetHold(_ context.Context, id string) (*model.Hold, error) {
	inv, err := s.holdInventory(id)
	if err != nil {
		return nil, err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	h, ok := inv.holds[id]
	if !ok {
		return nil, apperr.NotFound("hold")
	}
	out := cloneHold(*h)
	return &out, nil
}

func (s *InventoryStore) ReleaseHold(_ context.Context, id string, now time.Time) (bool, error) {
	inv, err := s.holdInventory(id)
	if err != nil {
		return false, err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	h, ok := inv.holds[id]
	if !ok {
		return false, apperr.NotFound("hold")
	}
	if h.Status != model.HoldActive {
		return false, nil
	}
	return inv.release(h) > 0, nil
}

func (s *InventoryStore) CommitHold(_ context.Context, id string, b *model.Booking, now time.Time) error {
	inv, err := s.holdInventory(id)
	if err != nil {
		return err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	h, ok := inv.holds[id]
	if !ok {
		return apperr.NotFound("hold")
	}
	if h.Status != model.HoldActive {
		return apperr.ErrHoldExpired
	}
	if h.Expired(now) {
		inv.release(h)
		return apperr.ErrHoldExpired
	}
	for _, sid := range h.SeatIDs {
		st := inv.seats[sid]
		if st == nil || st.Status != model.SeatHeld || st.HoldID != h.ID {
			return apperr.ErrHoldExpired
		}
	}

	b.ID = s.nextBookID.Add(1)
	b.HoldID = h.ID
	b.ShowID = h.ShowID
	b.HolderID = h.HolderID
	b.SeatIDs = append([]string(nil), h.SeatIDs...)
	b.Quote = cloneQuote(h.Quote)
	b.Status = model.BookingConfirmed
	if b.ConfirmedAt.IsZero() {
		b.ConfirmedAt = now
	}
	for _, sid := range h.SeatIDs {
		st := inv.seats[sid]
		st.Status = model.SeatBooked
		st.HoldID = ""
		st.HoldExpiry = nil
		st.BookingID = b.ID
		st.Version++
	}
	h.Status = model.HoldCommitted

	s.bookingsMu.Lock()
	s.bookings[b.ID] = cloneBooking(*b)
	s.bookingsMu.Unlock()
	return nil
}

func (s *InventoryStore) ExpireHolds(_ context.Context, now time.Time) ([]uint64, error) {
	s.mu.RLock()
	ids := make([]uint64, 0, len(s.shows))
	invs := make([]*showInventory, 0, len(s.shows))
	for id, inv := range s.shows {
		ids = append(ids, id)
		invs = append(invs, inv)
	}
	s.mu.RUnlock()

	var touched []uint64
	for i, inv := range invs {
		inv.mu.Lock()
		n := inv.expire(now)
		inv.mu.Unlock()
		if n > 0 {
			touched = append(touched, ids[i])
		}
	}
	sort.Slice(touched, func(i, j int) bool { return touched[i] < touched[j] })
	return touched, nil
}

func (s *InventoryStore) GetBooking(_ context.Context, id uint64) (*model.Booking, error) {
	s.bookingsMu.RLock()
	defer s.bookingsMu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, apperr.NotFound("booking")
	}
	out := cloneBooking(b)
	return &out, nil
}

func (s *InventoryStore) BookingsByHolder(_ context.Context, holderID string) ([]model.Booking, error) {
	s.bookingsMu.RLock()
	defer s.bookingsMu.RUnlock()
	out := make([]model.Booking, 0)
	for _, b := range s.bookings {
		if b.HolderID == holderID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// expire releases every active hold that lapsed at now and returns the
// number of holds released.  Caller holds inv.mu.
func (inv *showInventory) expire(now time.Time) int {
	n := 0
	for _, h := range inv.holds {
		if h.Status == model.HoldActive && h.Expired(now) {
			inv.release(h)
			n++
		}
	}
	return n
}

// release frees the seats still pointing at h and marks it released.
// Caller holds inv.mu.
func (inv *showInventory) release(h *model.Hold) int {
	freed := 0
	for _, sid := range h.SeatIDs {
		st := inv.seats[sid]
		if st == nil || st.Status != model.SeatHeld || st.HoldID != h.ID {
			continue
		}
		st.Status = model.SeatAvailable
		st.HoldID = ""
		st.HoldExpiry = nil
		st.Version++
		freed++
	}
	h.Status = model.HoldReleased
	return freed
}

func cloneHold(h model.Hold) model.Hold {
	h.SeatIDs = append([]string(nil), h.SeatIDs...)
	h.Quote = cloneQuote(h.Quote)
	return h
}

func cloneBooking(b model.Booking) model.Booking {
	b.SeatIDs = append([]string(nil), b.SeatIDs...)
	b.Quote = cloneQuote(b.Quote)
	return b
}

func cloneQuote(q model.Quote) model.Quote {
	q.Lines = append([]model.QuoteLine(nil), q.Lines...)
	return q
}
