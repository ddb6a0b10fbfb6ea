package model

// QuoteLine is the price of one seat in a quote.
type QuoteLine struct {
    SeatID  string  `json:"seat_id"`
    Section Section `json:"section"`
    Price   int64   `json:"price"`
}

// Quote is the priced breakdown of a set of seats.  All amounts are
// whole currency units.
type Quote struct {
    Lines          []QuoteLine `json:"lines"`
    Subtotal       int64       `json:"subtotal"`
    ConvenienceFee int64       `json:"convenience_fee"`
    Tax            int64       `json:"tax"`
    Total          int64       `json:"total"`
}
