package model

import "time"

// Movie is the subset of the movie catalog the scheduler relies on.
// The catalog itself is maintained elsewhere.
type Movie struct {
    ID          uint64    `json:"id"`
    Title       string    `json:"title"`
    Language    string    `json:"language"`
    Genre       string    `json:"genre"`
    RuntimeMins int       `json:"runtime_mins,omitempty"`
    ReleaseDate time.Time `json:"release_date"`
}
