package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/showtime-booking/internal/model"
)

func seat(id string, sec model.Section) model.Seat {
	return model.Seat{SeatID: id, Section: sec, Status: model.SeatAvailable}
}

func TestQuoteTwoNormalSeats(t *testing.T) {
	show := model.Show{Pricing: model.Pricing{Normal: 200}}

	q := Quote([]model.Seat{seat("A1", model.SectionNormal), seat("A2", model.SectionNormal)}, show)

	assert.Equal(t, int64(400), q.Subtotal)
	assert.Equal(t, int64(8), q.ConvenienceFee)
	assert.Equal(t, int64(73), q.Tax)
	assert.Equal(t, int64(481), q.Total)
	assert.Len(t, q.Lines, 2)
}

func TestQuoteMixedSections(t *testing.T) {
	show := model.Show{Pricing: model.Pricing{Normal: 150, Premium: 250, Recliner: 400}}
	seats := []model.Seat{
		seat("A1", model.SectionPremium),
		seat("E3", model.SectionNormal),
		seat("K7", model.SectionRecliner),
	}

	q := Quote(seats, show)

	// 800 subtotal, fee 16, tax round(816*0.18=146.88)=147
	assert.Equal(t, int64(800), q.Subtotal)
	assert.Equal(t, int64(16), q.ConvenienceFee)
	assert.Equal(t, int64(147), q.Tax)
	assert.Equal(t, int64(963), q.Total)
}

func TestQuoteRoundsEachStepHalfUp(t *testing.T) {
	// fee = 125*0.02 = 2.5 -> 3; tax = 128*0.18 = 23.04 -> 23
	show := model.Show{Pricing: model.Pricing{Normal: 125}}

	q := Quote([]model.Seat{seat("B2", model.SectionNormal)}, show)

	assert.Equal(t, int64(3), q.ConvenienceFee)
	assert.Equal(t, int64(23), q.Tax)
	assert.Equal(t, int64(151), q.Total)
}

func TestQuoteIgnoresDuplicateSeats(t *testing.T) {
	show := model.Show{Pricing: model.Pricing{Normal: 200}}

	q := Quote([]model.Seat{seat("A1", model.SectionNormal), seat("A1", model.SectionNormal)}, show)

	assert.Equal(t, int64(200), q.Subtotal)
	assert.Len(t, q.Lines, 1)
}

func TestQuoteIsDeterministic(t *testing.T) {
	show := model.Show{Pricing: model.Pricing{Normal: 199, Premium: 349}}
	seats := []model.Seat{seat("A1", model.SectionPremium), seat("D9", model.SectionNormal)}

	first := Quote(seats, show)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Quote(seats, show))
	}
}

func TestQuoteEmpty(t *testing.T) {
	q := Quote(nil, model.Show{Pricing: model.Pricing{Normal: 200}})
	assert.Equal(t, int64(0), q.Total)
	assert.Empty(t, q.Lines)
}

func TestPriceOf(t *testing.T) {
	show := model.Show{Pricing: model.Pricing{Normal: 120, Premium: 220}}
	assert.Equal(t, int64(220), PriceOf(seat("A1", model.SectionPremium), show))
	assert.Equal(t, int64(0), PriceOf(seat("Z1", model.SectionRecliner), show))
}
