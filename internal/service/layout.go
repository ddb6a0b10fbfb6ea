package service

import (
	"fmt"
	"strings"

	"github.com/iliyamo/showtime-booking/internal/model"
)

// seatsPerRow is the width of a row in the default layout.
const seatsPerRow = 16

// defaultLayout spreads totalSeats over rows of seatsPerRow.  The front
// two ninths of the rows are premium and the back third recliner, each
// only when the show prices that section.  The last row may be short.
func defaultLayout(totalSeats int, p model.Pricing) []model.LayoutSection {
	rows := (totalSeats + seatsPerRow - 1) / seatsPerRow
	premiumRows, reclinerRows := 0, 0
	if p.Premium > 0 {
		premiumRows = rows * 2 / 9
	}
	if p.Recliner > 0 {
		reclinerRows = rows / 3
	}
	if premiumRows+reclinerRows >= rows {
		premiumRows, reclinerRows = 0, 0
	}
	normalRows := rows - premiumRows - reclinerRows

	var out []model.LayoutSection
	add := func(sec model.Section, n int) {
		if n > 0 {
			out = append(out, model.LayoutSection{Section: sec, Rows: n, Columns: seatsPerRow})
		}
	}
	add(model.SectionPremium, premiumRows)
	add(model.SectionNormal, normalRows)
	add(model.SectionRecliner, reclinerRows)
	return out
}

// buildSeats materializes the seats of a layout, stopping at totalSeats.
// Rows are labelled A, B, ... Z, AA, AB, ... front to back.
func buildSeats(showID uint64, layout []model.LayoutSection, totalSeats int) []model.Seat {
	seats := make([]model.Seat, 0, totalSeats)
	row := 0
	for _, sec := range layout {
		for r := 0; r < sec.Rows && len(seats) < totalSeats; r++ {
			label := indexToRowLabel(row)
			for c := 1; c <= sec.Columns && len(seats) < totalSeats; c++ {
				seats = append(seats, model.Seat{
					ShowID:  showID,
					SeatID:  fmt.Sprintf("%s%d", label, c),
					Row:     label,
					Column:  c,
					Section: sec.Section,
					Status:  model.SeatAvailable,
				})
			}
			row++
		}
	}
	return seats
}

// indexToRowLabel converts a zero-based index to an alphabetical row
// label like A, B, AA.
func indexToRowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		res = append(res, rune('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// normalizeSeatID upper-cases a seat ID and strips spaces, so "a 1" and
// "A1" name the same seat.
func normalizeSeatID(raw string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
}
