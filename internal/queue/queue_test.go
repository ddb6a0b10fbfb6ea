package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-booking/internal/logging"
	"github.com/iliyamo/showtime-booking/internal/service"
)

func TestNewPublishingCarriesCorrelationID(t *testing.T) {
	ctx := logging.ContextWithCorrelationID(context.Background(), "req-42")
	ev := service.ShowCancelledEvent{ShowID: 7, Reason: "projector"}

	msg, err := newPublishing(ctx, ev, time.Date(2024, 12, 18, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "req-42", msg.CorrelationId)
	assert.Equal(t, "req-42", msg.Headers[correlationHeader])

	var back service.ShowCancelledEvent
	require.NoError(t, json.Unmarshal(msg.Body, &back))
	assert.Equal(t, ev, back)
}

func TestNewPublishingWithoutCorrelationID(t *testing.T) {
	msg, err := newPublishing(context.Background(), service.ShowCancelledEvent{}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, msg.CorrelationId)
	assert.Nil(t, msg.Headers)
}

func TestHandleMessageAppendsAuditLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "booking.log")
	c := NewConsumer("", path, logging.Discard().WithField("test", true))

	booked, _ := json.Marshal(service.BookingConfirmedEvent{
		BookingID: 3, HolderID: "cust-1", ShowID: 7, TheatreName: "PVR Phoenix", ScreenNumber: 2,
		MovieTitle: "Interstellar", ShowDate: "2024-12-20", ShowTime: "18:30",
		Seats: []string{"A1", "A2"}, Total: 481, ConfirmedAt: "2024-12-18T10:00:00Z",
	})
	cancelled, _ := json.Marshal(service.ShowCancelledEvent{
		ShowID: 7, TheatreID: 1, MovieID: 1, ShowDate: "2024-12-20", ShowTime: "18:30",
		Reason: "projector", CancelledAt: "2024-12-18T11:00:00Z",
	})
	require.NoError(t, c.handleMessage(BookingConfirmedQueue, booked))
	require.NoError(t, c.handleMessage(ShowCancelledQueue, cancelled))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "Booking confirmed | booking_id=3 | holder=cust-1 | show_id=7")
	assert.Contains(t, out, `theatre="PVR Phoenix"`)
	assert.Contains(t, out, "seats=[A1,A2]")
	assert.Contains(t, out, `Show cancelled | show_id=7 | theatre_id=1 | movie_id=1 | slot=2024-12-20 18:30 | reason="projector"`)
}

func TestHandleMessageRejectsBadInput(t *testing.T) {
	c := NewConsumer("", filepath.Join(t.TempDir(), "b.log"), nil)
	assert.Error(t, c.handleMessage(BookingConfirmedQueue, []byte("{")))
	assert.Error(t, c.handleMessage("unknown", []byte("{}")))
}

func TestSleepStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, time.Hour))
	assert.True(t, sleep(context.Background(), time.Millisecond))
}
