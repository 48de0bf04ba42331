package rabbitmq

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
)

// mockChannel is a testify mock of Channel.
type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	ret := m.Called(name, durable, autoDelete, exclusive, noWait, args)
	return ret.Get(0).(amqp.Queue), ret.Error(1)
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	ret := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return ret.Error(0)
}

func (m *mockChannel) Close() error {
	ret := m.Called()
	return ret.Error(0)
}

type openerFunc func() (Channel, error)

func (f openerFunc) Channel() (Channel, error) {
	return f()
}

// fakeConnection stands in for *amqp.Connection. Channels come from
// newChannel, which defaults to a bare mockChannel.
type fakeConnection struct {
	mu         sync.Mutex
	notify     chan *amqp.Error
	closed     bool
	closeErr   error
	channelErr error
	channels   int
	newChannel func() Channel
}

func (c *fakeConnection) Channel() (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channelErr != nil {
		return nil, c.channelErr
	}
	c.channels++
	if c.newChannel != nil {
		return c.newChannel(), nil
	}
	return &mockChannel{}, nil
}

func (c *fakeConnection) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = receiver
	return receiver
}

func (c *fakeConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.notify != nil {
		close(c.notify)
		c.notify = nil
	}
	return c.closeErr
}

// dropByServer simulates the broker closing the connection.
func (c *fakeConnection) dropByServer(err *amqp.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.notify != nil {
		c.notify <- err
		close(c.notify)
		c.notify = nil
	}
}

func (c *fakeConnection) channelCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channels
}
