// Package bus is the in-process event dispatcher that turns store changes
// into typed notifications.
//
// Topics are dot-namespaced strings. Subscribers of a topic run in
// registration order, synchronously, on the goroutine calling Trigger.
// Trigger copies the subscriber list before invoking anything, so a handler
// that subscribes or unsubscribes only affects the next Trigger.
//
// In normal mode each handler is isolated: a returned error or a panic is
// logged as SUBSCRIBER_FAILURE and the remaining handlers still run. In debug
// mode the first error is returned immediately and panics propagate.
package bus

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/roach88/hangup/internal/ir"
)

// Event is what a handler receives.
type Event struct {
	// Topic the event was triggered on.
	Topic string

	// Owner is the value passed to On, or nil.
	Owner any

	// Payload is the value passed to Trigger.
	Payload any
}

// HandlerFunc handles one event.
type HandlerFunc func(ev Event) error

// Subscription is a registered handler. It is the handle used to remove
// exactly this registration with Off or Unsubscribe.
type Subscription struct {
	bus     *Bus
	topic   string
	handler HandlerFunc
	owner   any
}

// Topic returns the topic the subscription listens on.
func (s *Subscription) Topic() string {
	return s.topic
}

// Unsubscribe removes this subscription. Calling it twice is harmless.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.Off(s.topic, s, nil)
}

// Option configures a Bus.
type Option func(*Bus)

// WithDebug makes handler failures propagate to the Trigger caller.
func WithDebug(debug bool) Option {
	return func(b *Bus) {
		b.debug = debug
	}
}

// WithLogger sets the logger used for isolated handler failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Bus is a topic-keyed registry of handlers. Safe for concurrent use.
type Bus struct {
	mu     sync.Mutex
	topics map[string][]*Subscription
	debug  bool
	logger *slog.Logger
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		topics: make(map[string][]*Subscription),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On registers fn for topic and returns its subscription.
// owner is handed back in Event.Owner and can be used with Off to remove
// every handler registered by the same owner; pass a pointer or another
// comparable value, or nil.
func (b *Bus) On(topic string, fn HandlerFunc, owner any) *Subscription {
	if fn == nil {
		return nil
	}
	sub := &Subscription{bus: b, topic: topic, handler: fn, owner: owner}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics[topic] = append(b.topics[topic], sub)
	return sub
}

// Off removes subscriptions.
//
//   - topic "": every subscription on every topic is removed.
//   - sub and owner both nil: every subscription on topic is removed.
//   - otherwise: subscriptions on topic matching every non-nil criterion
//     are removed.
func (b *Bus) Off(topic string, sub *Subscription, owner any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if topic == "" {
		b.topics = make(map[string][]*Subscription)
		return
	}

	current, ok := b.topics[topic]
	if !ok {
		return
	}
	if sub == nil && owner == nil {
		delete(b.topics, topic)
		return
	}

	// Build a new slice so any in-flight snapshot keeps its own backing array.
	kept := make([]*Subscription, 0, len(current))
	for _, s := range current {
		if (sub != nil && s != sub) || (owner != nil && !sameOwner(s.owner, owner)) {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(b.topics, topic)
		return
	}
	b.topics[topic] = kept
}

// Count returns the number of subscriptions on topic.
func (b *Bus) Count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}

// Trigger dispatches payload to every handler registered on topic at the
// moment of the call.
//
// In normal mode Trigger always returns nil. In debug mode it returns the
// first handler error as SUBSCRIBER_FAILURE without running later handlers.
func (b *Bus) Trigger(topic string, payload any) error {
	b.mu.Lock()
	snapshot := append([]*Subscription(nil), b.topics[topic]...)
	b.mu.Unlock()

	for _, s := range snapshot {
		ev := Event{Topic: topic, Owner: s.owner, Payload: payload}

		if b.debug {
			if err := s.handler(ev); err != nil {
				return ir.NewSubscriberFailure(topic, err)
			}
			continue
		}

		if err := b.dispatchIsolated(s, ev); err != nil {
			b.logger.Error("event handler failed",
				"code", ir.ErrCodeSubscriberFailure,
				"topic", topic,
				"error", err,
			)
		}
	}
	return nil
}

// dispatchIsolated runs one handler, converting a panic into an error.
func (b *Bus) dispatchIsolated(s *Subscription, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.handler(ev)
}

// sameOwner compares owners without panicking on uncomparable dynamic types.
func sameOwner(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
