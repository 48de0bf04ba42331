package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	"github.com/edujtm/rabbit-values-producer/internal/messageq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// DefaultQueue is the destination used when none is configured.
const DefaultQueue = "hello"

// The default exchange routes by queue name.
const defaultExchange = ""

// ChannelOpener hands out a fresh channel per call.
type ChannelOpener interface {
	Channel() (Channel, error)
}

// Publisher sends text values to a single queue through the default
// exchange. Every call opens its own channel, declares the queue and
// publishes, so concurrent calls share nothing but the connection.
type Publisher struct {
	opener    ChannelOpener
	queueName string
}

var _ messageq.Publisher = (*Publisher)(nil)

func NewPublisher(opener ChannelOpener, queueName string) *Publisher {
	return &Publisher{opener: opener, queueName: queueName}
}

func (pub *Publisher) QueueName() string {
	return pub.queueName
}

// Publish declares the queue and publishes value as the raw message body.
// No properties are set and no confirmation is awaited.
func (pub *Publisher) Publish(ctx context.Context, value string) error {
	return pub.withChannel(func(ch Channel) error {
		if err := pub.declare(ch); err != nil {
			return err
		}

		err := ch.PublishWithContext(
			ctx,
			defaultExchange,
			pub.queueName,
			false,
			false,
			amqp.Publishing{Body: []byte(value)},
		)
		if err != nil {
			return fmt.Errorf("%w: %w", messageq.ErrPublishTransport, err)
		}

		log.Debug().
			Str("queue", pub.queueName).
			Int("bytes", len(value)).
			Msg("Message published")
		return nil
	})
}

// Declare only declares the queue. Used to surface a conflicting queue at
// startup; Publish still declares on every call.
func (pub *Publisher) Declare() error {
	return pub.withChannel(pub.declare)
}

func (pub *Publisher) withChannel(fn func(Channel) error) error {
	ch, err := pub.opener.Channel()
	if err != nil {
		if errors.Is(err, messageq.ErrConnectionUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", messageq.ErrConnectionUnavailable, err)
	}
	defer pub.release(ch)

	return fn(ch)
}

// A channel the broker already closed (e.g. after a failed declaration)
// reports ErrClosed here, which is expected.
func (pub *Publisher) release(ch Channel) {
	if err := ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		log.Warn().Err(err).Str("queue", pub.queueName).Msg("Failed to close channel")
	}
}

func (pub *Publisher) declare(ch Channel) error {
	_, err := ch.QueueDeclare(
		pub.queueName,
		false, // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return classifyDeclareError(err)
	}
	return nil
}

func classifyDeclareError(err error) error {
	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		switch amqpErr.Code {
		case amqp.PreconditionFailed, amqp.ResourceLocked:
			return fmt.Errorf("%w: %w", messageq.ErrDeclarationConflict, err)
		}
	}
	return fmt.Errorf("%w: %w", messageq.ErrPublishTransport, err)
}
