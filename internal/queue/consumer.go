package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/service"
)

// DefaultLogPath is where the audit log goes when none is configured.
const DefaultLogPath = "logs/booking.log"

// Consumer listens to the booking.confirmed and show.cancelled queues
// and appends a single-line, human-friendly record of each event to a
// log file.
type Consumer struct {
	URL     string
	LogPath string
	Log     *logrus.Entry
}

// NewConsumer returns a consumer for the broker at url writing to
// logPath.  Empty values fall back to the defaults.
func NewConsumer(url, logPath string, log *logrus.Entry) *Consumer {
	if url == "" {
		url = DefaultURL
	}
	if logPath == "" {
		logPath = DefaultLogPath
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Consumer{URL: url, LogPath: logPath, Log: log.WithField("component", "booking-consumer")}
}

// Run connects, consumes, and reconnects with exponential backoff until
// ctx is cancelled.  It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.Log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.WithError(err).Warn("set QoS failed")
	}

	deliveries := make(chan amqp.Delivery)
	done := make(chan struct{})
	defer close(done)
	for _, q := range []string{BookingConfirmedQueue, ShowCancelledQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		go forward(msgs, deliveries, done)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("connection closed")
		case d := <-deliveries:
			log := c.Log.WithFields(logrus.Fields{"queue": d.RoutingKey, "correlation_id": d.CorrelationId})
			if err := c.handleMessage(d.RoutingKey, d.Body); err != nil {
				log.WithError(err).Error("handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// forward copies one queue's deliveries onto the shared channel until
// either side stops.
func forward(in <-chan amqp.Delivery, out chan<- amqp.Delivery, done <-chan struct{}) {
	for d := range in {
		select {
		case out <- d:
		case <-done:
			return
		}
	}
}

// handleMessage renders the event on queue as one audit line.
func (c *Consumer) handleMessage(queue string, body []byte) error {
	var line string
	switch queue {
	case BookingConfirmedQueue:
		var ev service.BookingConfirmedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line = fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | holder=%s | show_id=%d | theatre=%q | screen=%d | movie=%q | slot=%s %s | total=%d | seats=[%s]\n",
			ev.ConfirmedAt, ev.BookingID, ev.HolderID, ev.ShowID, ev.TheatreName, ev.ScreenNumber,
			ev.MovieTitle, ev.ShowDate, ev.ShowTime, ev.Total, strings.Join(ev.Seats, ","))
	case ShowCancelledQueue:
		var ev service.ShowCancelledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line = fmt.Sprintf("[%s] Show cancelled | show_id=%d | theatre_id=%d | movie_id=%d | slot=%s %s | reason=%q\n",
			ev.CancelledAt, ev.ShowID, ev.TheatreID, ev.MovieID, ev.ShowDate, ev.ShowTime, ev.Reason)
	default:
		return fmt.Errorf("unexpected queue %q", queue)
	}
	return c.appendLine(line)
}

func (c *Consumer) appendLine(line string) error {
	if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// sleep waits for d or ctx, reporting false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
