// Package queue defines the port to the message broker that decouples
// webhook intake from reconciliation.
package queue

import "context"

// Delivery is one message handed to a consumer. Exactly one of Ack or
// Reject must be called; Reject with requeue false routes the message to
// the dead letter topic.
type Delivery struct {
	Body   []byte
	Ack    func() error
	Reject func(requeue bool) error
}

// Queue publishes and consumes webhook event references
type Queue interface {
	Publish(ctx context.Context, key string, body []byte) error
	// Consume blocks until ctx is canceled, passing each delivery to handle
	Consume(ctx context.Context, handle func(ctx context.Context, d Delivery)) error
	Close() error
}
