package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"

	"github.com/iliyamo/screening-seat-booking/internal/booking"
)

// Publisher sends BookingConfirmedEvent messages.  The connection is opened
// lazily and reopened after a failure.  A circuit breaker stops dialing a
// broker that keeps failing, so a dead broker costs commits nothing but a
// log line.
type Publisher struct {
	url     string
	breaker *gobreaker.CircuitBreaker

	// sem guards conn and ch; waiting for it honours the caller's context.
	sem  *semaphore.Weighted
	conn *amqp.Connection
	ch   *amqp.Channel
}

// dialTimeout bounds connecting and the AMQP handshake when the publish
// context carries no deadline.
const dialTimeout = 3 * time.Second

// NewPublisher returns a publisher for the broker at url.  Nothing is
// dialed until the first publish.
func NewPublisher(url string) *Publisher {
	p := &Publisher{url: url, sem: semaphore.NewWeighted(1)}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "rabbitmq-publisher",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
	return p
}

// PublishBookingConfirmed implements booking.Publisher.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, r booking.Receipt) error {
	ev := NewBookingConfirmed(r)
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.publish(ctx, ev.EventID, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("publisher paused: %w", err)
	}
	return err
}

func (p *Publisher) publish(ctx context.Context, id string, body []byte) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for broker connection: %w", err)
	}
	defer p.sem.Release(1)

	if err := p.ensureChannel(ctx); err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", BookingConfirmedQueue, false, false, msg); err != nil {
		p.resetLocked()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// ensureChannel dials and declares the queue if there is no open channel.
// Dialing gives up at ctx's deadline.  Callers hold p.sem.
func (p *Publisher) ensureChannel(ctx context.Context) error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.resetLocked()
	timeout := dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return fmt.Errorf("dial broker: %w", context.DeadlineExceeded)
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	if err := p.sem.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	p.resetLocked()
	return nil
}
