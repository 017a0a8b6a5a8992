// Package notify pushes "live published" events between service instances
// over a redis pub/sub channel.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/example/shift-roster/internal/metrics"
	"github.com/example/shift-roster/internal/persistence"
)

// DefaultChannel is used when no channel name is configured.
const DefaultChannel = "roster:live"

// Event announces that a live document was written.
type Event struct {
	WeekStart string    `json:"weekStart"`
	TZID      string    `json:"tzId"`
	UpdatedAt string    `json:"updatedAt"`
	Revision  int64     `json:"revision"`
	SentAt    time.Time `json:"sentAt"`
}

// Key returns the week the event refers to.
func (e Event) Key() persistence.Key {
	return persistence.Key{WeekStart: e.WeekStart, TZID: e.TZID}
}

// EventFor builds the event for a freshly written live document.
func EventFor(doc persistence.Document, now time.Time) Event {
	return Event{
		WeekStart: doc.WeekStart,
		TZID:      doc.TZID,
		UpdatedAt: doc.UpdatedAt,
		Revision:  doc.Revision,
		SentAt:    now.UTC(),
	}
}

// Publisher announces live writes.
type Publisher interface {
	PublishLive(ctx context.Context, event Event) error
}

// Noop discards every event. It is used when redis is not configured.
type Noop struct{}

// PublishLive implements Publisher.
func (Noop) PublishLive(context.Context, Event) error { return nil }

// Options configures a redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Client publishes and subscribes to live events on one channel.
type Client struct {
	rdb     *goredis.Client
	channel string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Dial connects to redis and verifies the connection with a PING.
func Dial(ctx context.Context, opts Options, logger *slog.Logger, m *metrics.Metrics) (*Client, error) {
	if opts.Addr == "" {
		return nil, errors.New("notify: redis address is required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("notify: redis ping %s: %w", opts.Addr, err)
	}

	client := NewClient(rdb, opts.Channel, logger, m)
	client.logger.Info("redis connected", "addr", opts.Addr)
	return client, nil
}

// NewClient wraps an existing redis client.
func NewClient(rdb *goredis.Client, channel string, logger *slog.Logger, m *metrics.Metrics) *Client {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		rdb:     rdb,
		channel: channel,
		logger:  logger.With("component", "notify", "channel", channel),
		metrics: m,
	}
}

// Channel returns the pub/sub channel name.
func (c *Client) Channel() string {
	return c.channel
}

// PublishLive sends event to every subscriber.
func (c *Client) PublishLive(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: encode event: %w", err)
	}
	err = c.rdb.Publish(ctx, c.channel, payload).Err()
	c.metrics.ObserveNotify("out", err)
	if err != nil {
		return fmt.Errorf("notify: publish: %w", err)
	}
	return nil
}

// Subscription delivers decoded events until closed or its context ends.
type Subscription struct {
	pubsub   *goredis.PubSub
	events   chan Event
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Subscribe joins the channel. The subscription is confirmed before it is
// returned, so events published afterwards are not missed.
func (c *Client) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, c.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("notify: subscribe: %w", err)
	}

	sub := &Subscription{
		pubsub: pubsub,
		events: make(chan Event, 16),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.forward(ctx, sub)
	return sub, nil
}

func (c *Client) forward(ctx context.Context, sub *Subscription) {
	defer close(sub.done)
	defer close(sub.events)

	messages := sub.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.stop:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				c.metrics.ObserveNotify("in", err)
				c.logger.Warn("dropping malformed live event", "error", err)
				continue
			}
			c.metrics.ObserveNotify("in", nil)
			select {
			case sub.events <- event:
			case <-ctx.Done():
				return
			case <-sub.stop:
				return
			}
		}
	}
}

// Events returns the delivery channel. It is closed when the subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close leaves the channel and waits for delivery to stop. It does not
// require the consumer to drain Events and is safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stop)
		err = s.pubsub.Close()
	})
	<-s.done
	return err
}

// Close releases the redis connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
