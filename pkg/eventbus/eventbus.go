// Package eventbus is the Typed Event Bus: an ordered, in-process fan-out
// of named events to subscribers. It generalizes the single-shot,
// panic-isolating Notify[E] dispatcher into a named, multi-event,
// subscribable bus — the same panic-isolation guarantee, now with
// persistent registration instead of a listener list passed per call.
package eventbus

import "context"

// Handler receives one published event: its name and its payload. The
// payload's concrete type is one of the structs in pkg/events, keyed by
// the event name constants there.
type Handler func(ctx context.Context, name string, payload any)

type subscription struct {
	id uint64
	fn Handler
}

// Bus is an ordered, synchronous, in-process event fan-out. All
// subscribers are invoked synchronously, in registration order, within the
// Publish call — matching the single-threaded cooperative scheduling model
// the processor assumes. A Handler MUST NOT call back into the processor
// that is publishing; doing so has undefined ordering.
type Bus struct {
	handlers []subscription
	seq      uint64
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it. A nil fn
// is ignored and returns a no-op unsubscribe.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	b.seq++
	id := b.seq
	b.handlers = append(b.handlers, subscription{id: id, fn: fn})
	return func() { b.remove(id) }
}

func (b *Bus) remove(id uint64) {
	for i, s := range b.handlers {
		if s.id == id {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			return
		}
	}
}

// Publish dispatches name/payload to every subscriber in registration
// order. A subscriber that panics is recovered and skipped so later
// subscribers still run.
func (b *Bus) Publish(ctx context.Context, name string, payload any) {
	// Snapshot so a subscriber that unsubscribes mid-dispatch doesn't
	// mutate the slice being ranged over.
	snapshot := make([]subscription, len(b.handlers))
	copy(snapshot, b.handlers)

	for _, s := range snapshot {
		safeCall(ctx, name, payload, s.fn)
	}
}

func safeCall(ctx context.Context, name string, payload any, fn Handler) {
	defer func() {
		recover() //nolint:errcheck // intentionally ignore panic value, matches ai.Notify
	}()
	fn(ctx, name, payload)
}
