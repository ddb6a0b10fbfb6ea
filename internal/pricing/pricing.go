// Package pricing computes seat prices and order totals.  Every
// function is pure: the same seats and show always produce the same
// quote.
package pricing

import (
	"github.com/iliyamo/showtime-booking/internal/model"
)

// Rates in basis points.
const (
	ConvenienceFeeBps = 200  // 2%
	TaxBps            = 1800 // 18%
)

// PriceOf returns the base price of a seat for a show.
func PriceOf(seat model.Seat, show model.Show) int64 {
	return show.Pricing.For(seat.Section)
}

// Quote prices the distinct seats for a show.  The fee is computed on
// the subtotal and the tax on subtotal plus fee, each rounded half-up
// to a whole unit independently.
func Quote(seats []model.Seat, show model.Show) model.Quote {
	q := model.Quote{Lines: make([]model.QuoteLine, 0, len(seats))}
	seen := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		if _, dup := seen[s.SeatID]; dup {
			continue
		}
		seen[s.SeatID] = struct{}{}
		p := PriceOf(s, show)
		q.Lines = append(q.Lines, model.QuoteLine{SeatID: s.SeatID, Section: s.Section, Price: p})
		q.Subtotal += p
	}
	q.ConvenienceFee = applyBps(q.Subtotal, ConvenienceFeeBps)
	q.Tax = applyBps(q.Subtotal+q.ConvenienceFee, TaxBps)
	q.Total = q.Subtotal + q.ConvenienceFee + q.Tax
	return q
}

// applyBps returns round-half-up(amount * bps / 10000) for a
// non-negative amount, in exact integer arithmetic.
func applyBps(amount, bps int64) int64 {
	return (amount*bps + 5000) / 10000
}
