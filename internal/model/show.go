package model

import (
    "fmt"
    "time"
)

// Date and time layouts used for a show's scheduling slot.
const (
    DateLayout = "2006-01-02"
    TimeLayout = "15:04"
)

// ShowStatus is the lifecycle state of a show.
type ShowStatus string

const (
    ShowActive    ShowStatus = "active"
    ShowHousefull ShowStatus = "housefull"
    ShowCancelled ShowStatus = "cancelled"
    ShowCompleted ShowStatus = "completed"
)

// Valid reports whether s is one of the known show statuses.
func (s ShowStatus) Valid() bool {
    switch s {
    case ShowActive, ShowHousefull, ShowCancelled, ShowCompleted:
        return true
    }
    return false
}

// OccupiesSlot reports whether a show in status s blocks its schedule
// slot for other shows.
func (s ShowStatus) OccupiesSlot() bool {
    switch s {
    case ShowActive, ShowHousefull:
        return true
    case ShowCancelled, ShowCompleted:
        return false
    }
    return false
}

// Bookable reports whether seats of a show in status s may be held or
// committed.
func (s ShowStatus) Bookable() bool {
    return s.OccupiesSlot()
}

// CanTransition reports whether a show may move from s to next.
// cancelled and completed are terminal; housefull and active flip
// between each other as seats run out or come back.
func (s ShowStatus) CanTransition(next ShowStatus) bool {
    switch s {
    case ShowActive:
        return next == ShowHousefull || next == ShowCancelled || next == ShowCompleted
    case ShowHousefull:
        return next == ShowActive || next == ShowCancelled || next == ShowCompleted
    case ShowCancelled:
        return false
    case ShowCompleted:
        return false
    }
    return false
}

// Format is the projection format of a show.
type Format string

const (
    Format2D     Format = "2D"
    Format3D     Format = "3D"
    FormatIMAX   Format = "IMAX"
    Format4DX    Format = "4DX"
    FormatIMAX3D Format = "IMAX 3D"
)

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
    switch f {
    case Format2D, Format3D, FormatIMAX, Format4DX, FormatIMAX3D:
        return true
    }
    return false
}

// AudioFormat is the sound system used for a show.
type AudioFormat string

const (
    AudioStandard    AudioFormat = "Standard"
    AudioDolbyAtmos  AudioFormat = "Dolby Atmos"
    AudioDTS         AudioFormat = "DTS"
)

// Valid reports whether a is a supported audio format.
func (a AudioFormat) Valid() bool {
    switch a {
    case AudioStandard, AudioDolbyAtmos, AudioDTS:
        return true
    }
    return false
}

// Pricing is the per-section price table of a show in whole currency
// units.  A zero price means the section is not sold for the show.
type Pricing struct {
    Normal   int64 `json:"normal"`
    Premium  int64 `json:"premium"`
    Recliner int64 `json:"recliner"`
}

// For returns the price of the given section.
func (p Pricing) For(sec Section) int64 {
    switch sec {
    case SectionNormal:
        return p.Normal
    case SectionPremium:
        return p.Premium
    case SectionRecliner:
        return p.Recliner
    }
    return 0
}

// LayoutSection describes a block of rows belonging to one section.
// Sections are laid out front to back in the order given.
type LayoutSection struct {
    Section Section `json:"section"`
    Rows    int     `json:"rows"`
    Columns int     `json:"columns"`
}

// Seats returns the number of seats in the block.
func (l LayoutSection) Seats() int { return l.Rows * l.Columns }

// Slot identifies the (theatre, screen, date, time) a show occupies.
type Slot struct {
    TheatreID    uint64
    ScreenNumber int
    ShowDate     string
    ShowTime     string
}

// Key renders the slot as a stable string, used for locking and for
// the unique slot index.
func (s Slot) Key() string {
    return fmt.Sprintf("%d:%d:%s:%s", s.TheatreID, s.ScreenNumber, s.ShowDate, s.ShowTime)
}

// Show is a scheduled screening of a movie on one screen of a theatre.
// It corresponds to a row in the `shows` table.
type Show struct {
    ID           uint64          `json:"id"`
    TheatreID    uint64          `json:"theatre_id"`
    MovieID      uint64          `json:"movie_id"`
    ScreenNumber int             `json:"screen_number"`
    ShowDate     string          `json:"show_date"`
    ShowTime     string          `json:"show_time"`
    Format       Format          `json:"format"`
    Language     string          `json:"language"`
    Subtitles    bool            `json:"subtitles"`
    AudioFormat  AudioFormat     `json:"audio_format"`
    Pricing      Pricing         `json:"pricing"`
    TotalSeats   int             `json:"total_seats"`
    Layout       []LayoutSection `json:"layout"`
    Status       ShowStatus      `json:"status"`
    Notes        string          `json:"notes,omitempty"`
    CreatedBy    string          `json:"created_by,omitempty"`
    Version      uint32          `json:"-"`
    CreatedAt    time.Time       `json:"created_at"`
    UpdatedAt    time.Time       `json:"updated_at"`
}

// Slot returns the schedule slot of the show.
func (s *Show) Slot() Slot {
    return Slot{TheatreID: s.TheatreID, ScreenNumber: s.ScreenNumber, ShowDate: s.ShowDate, ShowTime: s.ShowTime}
}

// StartsAt combines ShowDate and ShowTime in the given location.
func (s *Show) StartsAt(loc *time.Location) (time.Time, error) {
    return time.ParseInLocation(DateLayout+" "+TimeLayout, s.ShowDate+" "+s.ShowTime, loc)
}
