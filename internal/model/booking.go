package model

import "time"

// BookingStatus is the state of a booking.  Bookings are created
// confirmed and never change afterwards.
type BookingStatus string

const BookingConfirmed BookingStatus = "confirmed"

// Booking records a completed seat purchase.
type Booking struct {
    ID          uint64        `json:"id"`
    HoldID      string        `json:"hold_id"`
    ShowID      uint64        `json:"show_id"`
    HolderID    string        `json:"holder_id"`
    SeatIDs     []string      `json:"seat_ids"`
    Quote       Quote         `json:"quote"`
    Status      BookingStatus `json:"status"`
    PaymentRef  string        `json:"payment_ref,omitempty"`
    ConfirmedAt time.Time     `json:"confirmed_at"`
}

// PaymentStatus is the outcome reported by the payment gateway.
type PaymentStatus string

const (
    PaymentSuccess PaymentStatus = "success"
    PaymentFailed  PaymentStatus = "failed"
    PaymentTimeout PaymentStatus = "timeout"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
    switch s {
    case PaymentSuccess, PaymentFailed, PaymentTimeout:
        return true
    }
    return false
}

// PaymentResult is what the caller learned from the payment gateway.
type PaymentResult struct {
    Status    PaymentStatus `json:"status"`
    Reference string        `json:"reference,omitempty"`
}
