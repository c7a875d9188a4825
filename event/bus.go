package event

import (
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"slices"
	"sync"
)

// Priority orders listeners of the same event. Lower priorities run first.
type Priority int

const (
	Early  Priority = -1
	Normal Priority = 0
	Late   Priority = 1
)

// Cancellable is implemented by events the host lets listeners veto.
type Cancellable interface {
	Cancel()
	Cancelled() bool
}

// listener is a registered callback with its ordering data.
type listener struct {
	id       uint64
	priority Priority
	// skipCancelled drops the call once an earlier listener cancelled the event
	skipCancelled bool
	fn            func(e any)
}

// route identifies a listener list: a static event type, optionally narrowed
// to a key.
type route struct {
	typ reflect.Type
	key any
}

// Bus is a type-keyed event bus. Listeners are keyed by the static type they
// were registered for, never by the dynamic type of a published value.
//
// Publishing is synchronous: listeners run on the publishing goroutine, in
// priority order and then registration order.
type Bus struct {
	log *slog.Logger

	mu        sync.RWMutex
	seq       uint64
	listeners map[route][]*listener
}

// NewBus creates an empty bus.
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		log:       log,
		listeners: make(map[route][]*listener),
	}
}

// Option configures a listener.
type Option func(*listener)

// WithPriority sets the listener priority. The default is Normal.
func WithPriority(p Priority) Option {
	return func(l *listener) {
		l.priority = p
	}
}

// IgnoreCancelled skips the listener for events already cancelled by an
// earlier listener.
func IgnoreCancelled() Option {
	return func(l *listener) {
		l.skipCancelled = true
	}
}

// Handle unregisters a listener. The zero Handle is valid and does nothing.
type Handle struct {
	once  *sync.Once
	close func()
}

// Close unregisters the listener. Calling it more than once is a no-op.
func (h Handle) Close() {
	if h.once != nil {
		h.once.Do(h.close)
	}
}

// Listen registers fn for events of type E published with Publish or
// PublishFor.
func Listen[E any](b *Bus, fn func(e E), opts ...Option) Handle {
	return b.add(route{typ: typeOf[E]()}, wrap(fn), opts)
}

// ListenFor registers fn for events of type E published with PublishFor
// under key.
func ListenFor[E any](b *Bus, key any, fn func(e E), opts ...Option) Handle {
	return b.add(route{typ: typeOf[E](), key: key}, wrap(fn), opts)
}

// Publish delivers e to every listener registered with Listen for E.
func Publish[E any](b *Bus, e E) {
	t := typeOf[E]()
	b.dispatch(e, b.snapshot(route{typ: t}, nil))
}

// PublishFor delivers e to the listeners registered for E under key and to
// the ones registered for E without a key, interleaved by priority.
func PublishFor[E any](b *Bus, key any, e E) {
	t := typeOf[E]()
	b.dispatch(e, b.snapshot(route{typ: t}, &route{typ: t, key: key}))
}

// Len returns the number of listeners registered for E across all keys.
func Len[E any](b *Bus) int {
	t := typeOf[E]()

	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for r, ls := range b.listeners {
		if r.typ == t {
			n += len(ls)
		}
	}
	return n
}

func (b *Bus) add(r route, fn func(any), opts []Option) Handle {
	l := &listener{priority: Normal, fn: fn}
	for _, opt := range opts {
		opt(l)
	}

	b.mu.Lock()
	b.seq++
	l.id = b.seq
	// Copy on write so snapshots taken by Publish stay stable.
	ls := slices.Clone(b.listeners[r])
	ls = append(ls, l)
	slices.SortStableFunc(ls, compare)
	b.listeners[r] = ls
	b.mu.Unlock()

	return Handle{once: &sync.Once{}, close: func() { b.remove(r, l.id) }}
}

func (b *Bus) remove(r route, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ls := b.listeners[r]
	i := slices.IndexFunc(ls, func(l *listener) bool { return l.id == id })
	if i < 0 {
		return
	}
	if len(ls) == 1 {
		delete(b.listeners, r)
		return
	}
	b.listeners[r] = slices.Delete(slices.Clone(ls), i, i+1)
}

// snapshot returns the listeners of r, merged with those of keyed if set.
func (b *Bus) snapshot(r route, keyed *route) []*listener {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ls := b.listeners[r]
	if keyed == nil {
		return ls
	}
	kls := b.listeners[*keyed]
	if len(kls) == 0 {
		return ls
	}
	if len(ls) == 0 {
		return kls
	}
	merged := make([]*listener, 0, len(ls)+len(kls))
	merged = append(merged, ls...)
	merged = append(merged, kls...)
	slices.SortStableFunc(merged, compare)
	return merged
}

func (b *Bus) dispatch(e any, ls []*listener) {
	c, cancellable := e.(Cancellable)
	for _, l := range ls {
		if l.skipCancelled && cancellable && c.Cancelled() {
			continue
		}
		b.call(l, e)
	}
}

// call runs a listener, logging a panic instead of propagating it to the
// publisher.
func (b *Bus) call(l *listener, e any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("flint: panic in event listener",
				"event", fmt.Sprintf("%T", e),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	l.fn(e)
}

func compare(a, b *listener) int {
	if a.priority != b.priority {
		return int(a.priority) - int(b.priority)
	}
	if a.id < b.id {
		return -1
	}
	if a.id > b.id {
		return 1
	}
	return 0
}

func wrap[E any](fn func(E)) func(any) {
	return func(e any) {
		v, _ := e.(E)
		fn(v)
	}
}

func typeOf[E any]() reflect.Type {
	return reflect.TypeOf((*E)(nil)).Elem()
}
