package rabbitmq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	connectionName    = "values-producer"
	heartbeatInterval = 10 * time.Second
)

// Connection is the subset of *amqp.Connection the client relies on.
type Connection interface {
	Channel() (Channel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	IsClosed() bool
	Close() error
}

// Channel is the subset of *amqp.Channel used to declare and publish.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a connection to the broker at addr.
type Dialer func(addr string) (Connection, error)

type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) Channel() (Channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// DialAMQP dials a real broker, tagging the connection with the service name
// so it can be identified in the management UI.
func DialAMQP(addr string) (Connection, error) {
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(connectionName)

	conn, err := amqp.DialConfig(addr, amqp.Config{
		Heartbeat:  heartbeatInterval,
		Locale:     "en_US",
		Properties: props,
	})
	if err != nil {
		return nil, err
	}
	return amqpConnection{conn}, nil
}
