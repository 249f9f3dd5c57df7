package notification

import (
	"context"
)

// Dispatcher accepts fire-and-forget requests. Dispatch never blocks and never
// reports delivery outcome to the caller.
type Dispatcher interface {
	Dispatch(req DispatchRequest)
}

// Sender is the opaque delivery capability.
type Sender interface {
	Send(ctx context.Context, ch Channel, msg Message) error
}

type NotificationService interface {
	Dispatcher

	// Relay processes entries the workers never finished: dropped pokes,
	// crashed workers and failed attempts that are due for a retry.
	Relay(ctx context.Context) (RelayResult, error)

	ListOutbox(ctx context.Context, filter OutboxFilter) (ListOutboxResponse, error)

	Stop()
}
