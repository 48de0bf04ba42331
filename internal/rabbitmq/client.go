package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edujtm/rabbit-values-producer/internal/messageq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const reconnectDelay = 3 * time.Second

var (
	ErrNotConnected  = errors.New("not connected to a server")
	ErrAlreadyClosed = errors.New("couldn't close rabbitmq client. not connected to server")
)

// Client owns the single long-lived broker connection shared by every
// request. Channels are handed out per operation and never cached.
//
// The connection is established once. If the broker drops it, the client
// reports itself as not ready and every subsequent Channel call fails with
// messageq.ErrConnectionUnavailable; re-establishing it is left to the
// process supervisor.
type Client struct {
	dial       Dialer
	retryDelay time.Duration

	mu              sync.RWMutex
	conn            Connection
	notifyConnClose chan *amqp.Error

	isReady atomic.Bool
	closed  atomic.Bool
}

func NewClient() *Client {
	return NewClientWithDialer(DialAMQP, reconnectDelay)
}

func NewClientWithDialer(dial Dialer, retryDelay time.Duration) *Client {
	return &Client{
		dial:       dial,
		retryDelay: retryDelay,
	}
}

// Connect dials the broker, retrying until a connection is made or ctx is
// done. It is meant to be called once at startup.
func (client *Client) Connect(ctx context.Context, addr string) error {
	target := redactURL(addr)

	for {
		log.Info().Msgf("Attempting to connect to rabbitmq at %s", target)
		conn, err := client.dial(addr)
		if err == nil {
			client.changeConnection(conn)
			log.Info().Str("addr", target).Msg("RabbitMQ connection established")
			return nil
		}

		log.Warn().
			Err(err).
			Msgf("Couldn't connect to rabbitmq. Retrying after %s delay", client.retryDelay)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrNotConnected, ctx.Err())
		case <-time.After(client.retryDelay):
		}
	}
}

func (client *Client) changeConnection(conn Connection) {
	notify := conn.NotifyClose(make(chan *amqp.Error, 1))

	client.mu.Lock()
	client.conn = conn
	client.notifyConnClose = notify
	client.mu.Unlock()

	client.isReady.Store(true)
	go client.watchConnection(notify)
}

// The notify channel is closed by the library once the connection is gone,
// with a single error sent first when the shutdown was not requested by us.
func (client *Client) watchConnection(notify <-chan *amqp.Error) {
	amqpErr, ok := <-notify
	client.isReady.Store(false)

	if ok && amqpErr != nil {
		log.Error().
			Int("code", amqpErr.Code).
			Str("reason", amqpErr.Reason).
			Bool("server", amqpErr.Server).
			Msg("Rabbitmq connection was closed by the server")
		return
	}
	log.Debug().Msg("Rabbitmq connection closed")
}

// IsReady reports whether the connection is open.
func (client *Client) IsReady() bool {
	return client.isReady.Load()
}

// Channel opens a new channel on the shared connection. No channel is
// attempted when the connection is known to be closed.
func (client *Client) Channel() (Channel, error) {
	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || !client.isReady.Load() || conn.IsClosed() {
		return nil, fmt.Errorf("%w: %w", messageq.ErrConnectionUnavailable, ErrNotConnected)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", messageq.ErrConnectionUnavailable, err)
	}
	return ch, nil
}

func (client *Client) NewPublisher(queueName string) *Publisher {
	return NewPublisher(client, queueName)
}

func (client *Client) Close() error {
	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || client.closed.Swap(true) {
		return ErrAlreadyClosed
	}

	client.isReady.Store(false)

	err := conn.Close()
	if err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return nil
}

// redactURL hides the password of an amqp URL for logging.
func redactURL(addr string) string {
	u, err := url.Parse(addr)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
