package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/baechuer/forgot-password/internal/domain"
	"github.com/baechuer/forgot-password/internal/metrics"
)

// ResetHandler is what the consumer hands decoded reset requests to.
type ResetHandler interface {
	SendResetPassword(ctx context.Context, req domain.ResetRequest) error
}

type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Prefetch int
	Tag      string
}

const (
	DefaultQueue = "forgot-password.reset"

	dialTimeout = 30 * time.Second

	consumeResultHandled = "handled"
	consumeResultFailed  = "failed"
	consumeResultBadJSON = "bad_json"
	consumeResultDropped = "dropped"
)

// errDeadLetter marks deliveries that go to the DLQ. Nothing is retried.
var errDeadLetter = errors.New("dead-letter")

// Consumer reads reset requests from the queue and runs them through the
// handler. Failed or malformed messages are nacked without requeue and land in
// the dead-letter queue; unknown routing keys are acked and dropped.
type Consumer struct {
	url      string
	exchange string
	queue    string
	prefetch int
	tag      string

	lg      zerolog.Logger
	handler ResetHandler

	mu      sync.Mutex
	running bool
	doneCh  chan struct{}
	cancel  context.CancelFunc

	conn       *amqp.Connection
	ch         *amqp.Channel
	deliveries <-chan amqp.Delivery
}

func NewConsumer(cfg ConsumerConfig, h ResetHandler, lg zerolog.Logger) *Consumer {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 4
	}
	return &Consumer{
		url:      cfg.URL,
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
		prefetch: cfg.Prefetch,
		tag:      cfg.Tag,
		handler:  h,
		lg:       lg.With().Str("component", "rabbitmq_consumer").Logger(),
	}
}

func (c *Consumer) dlxName() string { return c.exchange + ".dlx" }
func (c *Consumer) dlqName() string { return c.queue + ".dlq" }

// Start launches the supervisor goroutine. It returns immediately; connection
// failures are retried with backoff until ctx is cancelled or Stop is called.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	if c.handler == nil {
		return errors.New("nil handler")
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.doneCh = done
	c.running = true
	go c.run(runCtx, cancel, done)
	return nil
}

// Stop wakes the supervisor wherever it is (backoff, dial or consume) and
// waits for it to exit. A delivery already being handled runs to completion
// unless ctx expires first.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	doneCh := c.doneCh
	cancel := c.cancel
	c.running = false
	c.mu.Unlock()

	cancel()
	c.closeConn()

	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer func() {
		cancel()

		c.mu.Lock()
		current := c.doneCh == done
		if current {
			c.doneCh = nil
			c.cancel = nil
			c.running = false
		}
		c.mu.Unlock()

		// a dial that raced with Stop may have left a connection behind
		if current {
			c.closeConn()
		}
		close(done)
	}()

	const maxBackoff = 30 * time.Second
	backoff := time.Second

	for {
		if ctx.Err() != nil || !c.isRunning() {
			c.lg.Info().Msg("consumer supervisor exiting")
			return
		}

		if err := c.connectAndDeclare(ctx); err != nil {
			if isPreconditionFailed(err) {
				c.lg.Error().Err(err).Msg("topology precondition failed; delete the conflicting queue or exchange and restart")
				return
			}
			c.lg.Error().Err(err).Dur("backoff", backoff).Msg("connect failed; retrying")
			if !sleepOrDone(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = time.Second
		c.consumeLoop(ctx)

		if ctx.Err() != nil || !c.isRunning() {
			return
		}
		c.lg.Warn().Dur("backoff", backoff).Msg("deliveries closed; reconnecting")
		c.closeConn()
		if !sleepOrDone(ctx, backoff) {
			return
		}
	}
}

func (c *Consumer) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// dial is amqp.Dial with a TCP connect that Stop can interrupt. The handshake
// deadline is cleared by the library once the connection is open.
func (c *Consumer) dial(ctx context.Context) (*amqp.Connection, error) {
	return amqp.DialConfig(c.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: dialTimeout}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if err := conn.SetDeadline(time.Now().Add(dialTimeout)); err != nil {
				_ = conn.Close()
				return nil, err
			}
			return conn, nil
		},
	})
}

func (c *Consumer) connectAndDeclare(ctx context.Context) error {
	c.closeConn()

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	fail := func(format string, err error) error {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf(format, err)
	}

	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("exchange declare: %w", err)
	}
	if err := ch.ExchangeDeclare(c.dlxName(), "topic", true, false, false, false, nil); err != nil {
		return fail("dlx declare: %w", err)
	}

	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": c.dlxName(),
	}); err != nil {
		return fail("queue declare: %w", err)
	}
	if err := ch.QueueBind(c.queue, RKPasswordResetRequested, c.exchange, false, nil); err != nil {
		return fail("queue bind: %w", err)
	}

	if _, err := ch.QueueDeclare(c.dlqName(), true, false, false, false, nil); err != nil {
		return fail("dlq declare: %w", err)
	}
	if err := ch.QueueBind(c.dlqName(), "#", c.dlxName(), false, nil); err != nil {
		return fail("dlq bind: %w", err)
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fail("qos: %w", err)
	}

	dlv, err := ch.Consume(c.queue, c.tag, false, false, false, false, nil)
	if err != nil {
		return fail("consume: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.ch = ch
	c.deliveries = dlv
	c.mu.Unlock()

	c.lg.Info().
		Str("exchange", c.exchange).
		Str("queue", c.queue).
		Str("dlq", c.dlqName()).
		Int("prefetch", c.prefetch).
		Msg("rabbitmq consumer ready")
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	c.mu.Lock()
	deliveries := c.deliveries
	c.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return

		case d, ok := <-deliveries:
			if !ok {
				return
			}

			start := time.Now()
			// stopping must not abort a send that is already under way
			if err := c.handleDelivery(context.WithoutCancel(ctx), d); err != nil {
				_ = d.Nack(false, false)
				c.lg.Error().Err(err).Str("routing_key", d.RoutingKey).Msg("message dead-lettered")
				continue
			}
			_ = d.Ack(false)
			c.lg.Debug().Str("routing_key", d.RoutingKey).Dur("took", time.Since(start)).Msg("message processed")
		}
	}
}

// handleDelivery returns nil to ack and an error to dead-letter.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) error {
	rk := strings.TrimSpace(d.RoutingKey)

	if rk != RKPasswordResetRequested {
		c.lg.Warn().
			Str("routing_key", truncateString(rk, 100)).
			Str("decision", "drop_ack").
			Msg("unknown routing key")
		metrics.RecordResetEventConsumed(consumeResultDropped)
		return nil
	}

	var evt ResetRequestedEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		metrics.RecordResetEventConsumed(consumeResultBadJSON)
		return fmt.Errorf("%w: bad_json: %v", errDeadLetter, err)
	}

	if err := c.handler.SendResetPassword(ctx, evt.toRequest()); err != nil {
		metrics.RecordResetEventConsumed(consumeResultFailed)
		return fmt.Errorf("%w: %w", errDeadLetter, err)
	}
	metrics.RecordResetEventConsumed(consumeResultHandled)
	return nil
}

func (c *Consumer) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil {
		_ = c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.deliveries = nil
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func truncateString(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func isPreconditionFailed(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToUpper(err.Error())
	return strings.Contains(msg, "PRECONDITION_FAILED") || strings.Contains(msg, "INEQUIVALENT ARG")
}
