package channel

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ErrUnknownChannelType is returned when a channel type has no registered adapter.
var ErrUnknownChannelType = errors.New("unsupported channel type")

type registration struct {
	adapter Adapter
	replies ReplyDispatcherFactory
}

// Registry maps channel types to adapters. Lookups are case-insensitive.
type Registry struct {
	mu      sync.RWMutex
	entries map[ChannelType]registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[ChannelType]registration)}
}

// Register adds adapter under its normalized type. Registering the same type
// twice is an error.
func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return errors.New("register channel: adapter is nil")
	}
	key := canonicalType(string(adapter.Type()))
	if key == "" {
		return errors.New("register channel: channel type is required")
	}
	entry := registration{adapter: adapter}
	if factory, ok := adapter.(ReplyDispatcherFactory); ok {
		entry.replies = factory
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.entries[key]; dup {
		return fmt.Errorf("register channel: %s already registered", key)
	}
	r.entries[key] = entry
	return nil
}

// MustRegister is Register for wiring code; it panics on error.
func (r *Registry) MustRegister(adapter Adapter) {
	if err := r.Register(adapter); err != nil {
		panic(err)
	}
}

func (r *Registry) lookup(channelType ChannelType) (registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[canonicalType(string(channelType))]
	return entry, ok
}

func (r *Registry) Get(channelType ChannelType) (Adapter, bool) {
	entry, ok := r.lookup(channelType)
	return entry.adapter, ok
}

// Types lists registered channel types in ascending order.
func (r *Registry) Types() []ChannelType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// ParseChannelType normalizes raw and checks that an adapter is registered for it.
func (r *Registry) ParseChannelType(raw string) (ChannelType, error) {
	key := canonicalType(raw)
	if key != "" {
		if _, ok := r.lookup(key); ok {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChannelType, raw)
}

func (r *Registry) GetDescriptor(channelType ChannelType) (Descriptor, bool) {
	entry, ok := r.lookup(channelType)
	if !ok {
		return Descriptor{}, false
	}
	return entry.adapter.Descriptor(), true
}

func (r *Registry) GetCapabilities(channelType ChannelType) (ChannelCapabilities, bool) {
	desc, ok := r.GetDescriptor(channelType)
	return desc.Capabilities, ok
}

// GetReplyDispatcherFactory reports whether the adapter for channelType can
// open reply dispatchers.
func (r *Registry) GetReplyDispatcherFactory(channelType ChannelType) (ReplyDispatcherFactory, bool) {
	entry, ok := r.lookup(channelType)
	if !ok || entry.replies == nil {
		return nil, false
	}
	return entry.replies, true
}

func canonicalType(raw string) ChannelType {
	return ChannelType(strings.ToLower(strings.TrimSpace(raw)))
}
