package model

import "time"

// HoldStatus is the state of a hold.  Expiry is not stored as a status;
// an active hold whose ExpiresAt has passed is treated as released.
type HoldStatus string

const (
    HoldActive    HoldStatus = "active"
    HoldCommitted HoldStatus = "committed"
    HoldReleased  HoldStatus = "released"
)

// Valid reports whether s is a known hold status.
func (s HoldStatus) Valid() bool {
    switch s {
    case HoldActive, HoldCommitted, HoldReleased:
        return true
    }
    return false
}

// Hold is a time limited, exclusive reservation of seats for one
// holder.  The quote is computed when the hold is placed and is what
// the holder pays on commit.
type Hold struct {
    ID        string     `json:"id"`
    ShowID    uint64     `json:"show_id"`
    HolderID  string     `json:"holder_id"`
    SeatIDs   []string   `json:"seat_ids"`
    Quote     Quote      `json:"quote"`
    Status    HoldStatus `json:"status"`
    ExpiresAt time.Time  `json:"expires_at"`
    CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the hold's TTL has elapsed at now.
func (h *Hold) Expired(now time.Time) bool {
    return !now.Before(h.ExpiresAt)
}

// Live reports whether the hold may still be committed at now.
func (h *Hold) Live(now time.Time) bool {
    return h.Status == HoldActive && !h.Expired(now)
}
