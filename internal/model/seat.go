package model

import "time"

// Section is a named seating tier with its own price.
type Section string

const (
    SectionNormal   Section = "normal"
    SectionPremium  Section = "premium"
    SectionRecliner Section = "recliner"
)

// Valid reports whether s is a known section.
func (s Section) Valid() bool {
    switch s {
    case SectionNormal, SectionPremium, SectionRecliner:
        return true
    }
    return false
}

// SeatStatus is the state of one seat for one show.
type SeatStatus string

const (
    SeatAvailable SeatStatus = "available"
    SeatHeld      SeatStatus = "held"
    SeatBooked    SeatStatus = "booked"
)

// Valid reports whether s is a known seat status.
func (s SeatStatus) Valid() bool {
    switch s {
    case SeatAvailable, SeatHeld, SeatBooked:
        return true
    }
    return false
}

// Seat is one seat of a show's inventory.  SeatID is the row label
// followed by the column number, e.g. "A1".  HoldID and HoldExpiry are
// set only while Status is held; BookingID only once booked.
type Seat struct {
    ShowID     uint64     `json:"show_id"`
    SeatID     string     `json:"seat_id"`
    Row        string     `json:"row"`
    Column     int        `json:"column"`
    Section    Section    `json:"section"`
    Status     SeatStatus `json:"status"`
    HoldID     string     `json:"-"`
    HoldExpiry *time.Time `json:"-"`
    BookingID  uint64     `json:"-"`
    Version    uint32     `json:"-"`
}

// Normalize returns the seat as it must be observed at now: a held
// seat whose hold has lapsed is available again.  It reports whether
// the seat changed.
func (s Seat) Normalize(now time.Time) (Seat, bool) {
    switch s.Status {
    case SeatHeld:
        if s.HoldExpiry != nil && !now.Before(*s.HoldExpiry) {
            s.Status = SeatAvailable
            s.HoldID = ""
            s.HoldExpiry = nil
            return s, true
        }
    case SeatAvailable, SeatBooked:
    }
    return s, false
}
