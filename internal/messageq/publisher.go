package messageq

import "context"

// Publisher sends a single text value to a message destination.
type Publisher interface {
	Publish(ctx context.Context, value string) error
}
