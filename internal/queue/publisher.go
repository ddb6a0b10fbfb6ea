package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/logging"
	"github.com/iliyamo/showtime-booking/internal/service"
)

// Publisher sends domain events to RabbitMQ.  It keeps one connection
// and redials lazily after the broker drops it; every publish opens its
// own channel, so concurrent callers never share one.
type Publisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewPublisher returns a publisher for the broker at url.  No connection
// is made until the first event is sent.
func NewPublisher(url string) *Publisher {
	if url == "" {
		url = DefaultURL
	}
	return &Publisher{url: url}
}

var _ service.EventPublisher = (*Publisher)(nil)

// PublishBookingConfirmed sends ev to the booking.confirmed queue.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev service.BookingConfirmedEvent) error {
	return p.publish(ctx, BookingConfirmedQueue, ev)
}

// PublishShowCancelled sends ev to the show.cancelled queue.
func (p *Publisher) PublishShowCancelled(ctx context.Context, ev service.ShowCancelledEvent) error {
	return p.publish(ctx, ShowCancelledQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queue string, ev any) error {
	log := logging.FromContext(ctx).WithField("queue", queue)
	msg, err := newPublishing(ctx, ev, time.Now())
	if err != nil {
		return fmt.Errorf("encode %s event: %w", queue, err)
	}
	conn, err := p.connection()
	if err != nil {
		log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("rabbitmq: channel open failed")
		p.reset(conn)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	log.WithFields(logrus.Fields{"bytes": len(msg.Body)}).Debug("event published")
	return nil
}

func (p *Publisher) connection() (*amqp.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return conn, nil
}

// reset drops conn so the next publish redials.
func (p *Publisher) reset(conn *amqp.Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == conn {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close closes the broker connection, if any.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
