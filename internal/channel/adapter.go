package channel

import (
	"context"
	"errors"
)

// ErrDispatcherNotSupported is returned when an adapter cannot build reply dispatchers.
var ErrDispatcherNotSupported = errors.New("channel adapter does not support reply dispatch")

// ReplyDispatcher turns a sequence of reply fragments into platform calls
// for one conversation. Calls for one dispatcher never overlap.
type ReplyDispatcher interface {
	// OnReplyStart is best-effort and idempotent.
	OnReplyStart(ctx context.Context)
	Deliver(ctx context.Context, payload ReplyPayload, info DeliverInfo) error
	// OnIdle releases any typing indicator. Safe to call repeatedly.
	OnIdle(ctx context.Context)
	OnError(ctx context.Context, err error, info DeliverInfo)
}

// ReplyTarget addresses one reply sequence.
type ReplyTarget struct {
	AccountID        string
	To               string
	ReplyToMessageID string
	Mentions         []Mention
}

// ReplyDispatcherFactory is an adapter capable of opening reply dispatchers.
type ReplyDispatcherFactory interface {
	OpenReplyDispatcher(ctx context.Context, target ReplyTarget) (ReplyDispatcher, error)
}

// Adapter is the base interface every channel adapter must implement.
type Adapter interface {
	Type() ChannelType
	Descriptor() Descriptor
}

// Descriptor holds read-only metadata for a registered channel type.
type Descriptor struct {
	Type           ChannelType
	DisplayName    string
	Capabilities   ChannelCapabilities
	OutboundPolicy OutboundPolicy
}

// ChannelCapabilities lists what outbound features a platform supports.
type ChannelCapabilities struct {
	Text     bool
	Markdown bool
	Card     bool
	Media    bool
	Reply    bool
	Mentions bool
	Typing   bool
}
