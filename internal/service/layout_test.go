package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-booking/internal/model"
)

func TestIndexToRowLabel(t *testing.T) {
	assert.Equal(t, "A", indexToRowLabel(0))
	assert.Equal(t, "Z", indexToRowLabel(25))
	assert.Equal(t, "AA", indexToRowLabel(26))
	assert.Equal(t, "AB", indexToRowLabel(27))
	assert.Equal(t, "", indexToRowLabel(-1))
}

func TestDefaultLayoutAllSections(t *testing.T) {
	layout := defaultLayout(200, model.Pricing{Normal: 100, Premium: 150, Recliner: 300})
	// 13 rows: 2 premium, 4 recliner, 7 normal
	require.Len(t, layout, 3)
	assert.Equal(t, model.LayoutSection{Section: model.SectionPremium, Rows: 2, Columns: 16}, layout[0])
	assert.Equal(t, model.LayoutSection{Section: model.SectionNormal, Rows: 7, Columns: 16}, layout[1])
	assert.Equal(t, model.LayoutSection{Section: model.SectionRecliner, Rows: 4, Columns: 16}, layout[2])

	seats := buildSeats(5, layout, 200)
	require.Len(t, seats, 200)
	assert.Equal(t, "A1", seats[0].SeatID)
	assert.Equal(t, model.SectionPremium, seats[0].Section)
	last := seats[len(seats)-1]
	assert.Equal(t, "M8", last.SeatID)
	assert.Equal(t, model.SectionRecliner, last.Section)
}

func TestDefaultLayoutNormalOnly(t *testing.T) {
	layout := defaultLayout(10, model.Pricing{Normal: 100})
	require.Len(t, layout, 1)
	seats := buildSeats(1, layout, 10)
	require.Len(t, seats, 10)
	assert.Equal(t, "A10", seats[9].SeatID)
	for _, s := range seats {
		assert.Equal(t, model.SectionNormal, s.Section)
	}
}

func TestNormalizeSeatID(t *testing.T) {
	assert.Equal(t, "A1", normalizeSeatID(" a 1 "))
	assert.Equal(t, "AA12", normalizeSeatID("aa12"))
}
