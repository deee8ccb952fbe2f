package pubsub

import "errors"

var (
	// ErrBroadcasterClosed is returned by Subscribe after Close, and by
	// Subscription.Err for subscriptions ended by the shutdown.
	ErrBroadcasterClosed = errors.New("broadcaster closed")
	// ErrSubscriptionClosed is returned by Subscription.Err after the
	// observer closed its own subscription.
	ErrSubscriptionClosed = errors.New("subscription closed")
)
