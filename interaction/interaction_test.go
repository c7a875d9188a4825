package interaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriumgames/flint/task"
)

type fakeWorld struct {
	queue chan fakeTx
	stop  chan struct{}
}

type fakeTx struct {
	fn   world.ExecFunc
	done chan struct{}
}

// newFakeWorld runs transactions one by one with a nil tx until the test ends.
func newFakeWorld(t *testing.T) *fakeWorld {
	w := &fakeWorld{queue: make(chan fakeTx), stop: make(chan struct{})}
	go func() {
		for {
			select {
			case tx := <-w.queue:
				tx.fn(nil)
				close(tx.done)
			case <-w.stop:
				return
			}
		}
	}()
	t.Cleanup(func() { close(w.stop) })
	return w
}

func (w *fakeWorld) Exec(fn world.ExecFunc) <-chan struct{} {
	done := make(chan struct{})
	select {
	case w.queue <- fakeTx{fn: fn, done: done}:
	case <-w.stop:
		close(done)
	}
	return done
}

type harness struct {
	rt    *Runtime
	scope *task.Scope
	exec  *fakeWorld
}

func newHarness(t *testing.T, opts ...RuntimeOption) *harness {
	scope := task.NewScope(context.Background(), task.NewPool("cpu", 4), task.WithTickRate(1000))
	t.Cleanup(func() { scope.Cancel(context.Canceled) })
	return &harness{
		rt:    NewRuntime(NewRegistry(), task.NewDispatchers(nil), opts...),
		scope: scope,
		exec:  newFakeWorld(t),
	}
}

func (h *harness) run(t *testing.T, root Node, c *Context) (*Run, Status, error) {
	t.Helper()
	g, err := NewGraph("test", root).On(Secondary).Build()
	require.NoError(t, err)
	if c == nil {
		c = &Context{Type: Secondary}
	}
	run, err := h.rt.Start(h.scope, h.exec, g, c)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := run.Wait(ctx)
	return run, st, err
}

func build[T any, P nodePtr[T]](t *testing.T, b *Builder[T, P]) P {
	t.Helper()
	n, err := b.Build()
	require.NoError(t, err)
	return n
}

// recorder returns an action appending name to log.
func recorder(t *testing.T, log *[]string, mu *sync.Mutex, name string) *Action {
	return build(t, New[Action]().Set("run", func(*Context) error {
		mu.Lock()
		*log = append(*log, name)
		mu.Unlock()
		return nil
	}))
}

func TestSetAcrossEmbeddingChain(t *testing.T) {
	msg := build(t, New[Message]().Set("text", "hit!"))

	d, err := New[Damage]().
		Set("id", "sword_hit").
		Set("tags", []string{"melee"}).
		Set("next", msg).
		Set("amount", 4).
		Set("force", float32(0.4)).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "sword_hit", d.ID())
	assert.Equal(t, []string{"melee"}, d.Tags())
	assert.Equal(t, Node(msg), d.next)
	assert.Equal(t, 4.0, d.amount)
	assert.InDelta(t, 0.4, d.force, 1e-6)
}

func TestSetUnknownField(t *testing.T) {
	_, err := New[Damage]().Set("speed", 1).Build()
	require.ErrorIs(t, err, ErrFieldNotFound)
	assert.Contains(t, err.Error(), `"speed"`)
	assert.Contains(t, err.Error(), "interaction.Damage")

	// The first failure wins.
	_, err = New[Wait]().Set("nope", 1).Set("ticks", "x").Build()
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestSetRejectsUnassignableValues(t *testing.T) {
	_, err := New[Damage]().Set("amount", "four").Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New[Wait]().Set("ticks", nil).Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New[Serial]().Set("next", 3).Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// No validation beyond assignment.
	w, err := New[Wait]().Set("ticks", -5).Build()
	require.NoError(t, err)
	assert.Equal(t, -5, w.ticks)

	s, err := New[Serial]().Set("children", nil).Build()
	require.NoError(t, err)
	assert.Nil(t, s.children)
}

func TestBuildReturnsIndependentNodes(t *testing.T) {
	b := New[Wait]().Set("ticks", 1)
	first := build(t, b)
	second := build(t, b.Set("ticks", 9))
	assert.Equal(t, 1, first.ticks)
	assert.Equal(t, 9, second.ticks)
}

func TestGraphValidation(t *testing.T) {
	root := build(t, New[Wait]())

	_, err := NewGraph("g", root).Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewGraph("g", root).On().Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewGraph("", root).On(Primary).Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewGraph("g", nil).On(Primary).Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewGraph("g", root).On(Type(42)).Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	g, err := NewGraph("g", root).On(Primary, Secondary, Primary).Build()
	require.NoError(t, err)
	assert.Equal(t, []Type{Primary, Secondary}, g.Types())
	assert.True(t, g.Handles(Secondary))
	assert.False(t, g.Handles(Consume))
}

func TestRegistryAndItemBinding(t *testing.T) {
	g, err := NewGraph("fireball", build(t, New[Wait]())).On(Secondary).Build()
	require.NoError(t, err)

	r := NewRegistry()
	require.NoError(t, r.Register(g))
	assert.ErrorIs(t, r.Register(g), ErrInvalidArgument)
	assert.Equal(t, 1, r.Len())

	s, err := Bind(item.NewStack(item.Stick{}, 1), g)
	require.NoError(t, err)
	got, ok := r.Bound(s)
	require.True(t, ok)
	assert.Same(t, g, got)

	_, ok = r.Bound(Unbind(s))
	assert.False(t, ok)
	_, ok = r.Bound(item.NewStack(item.Stick{}, 1))
	assert.False(t, ok)

	r.Unregister("fireball")
	_, ok = r.Bound(s)
	assert.False(t, ok)
}

func TestSerialRunsAcrossTicks(t *testing.T) {
	h := newHarness(t)
	var (
		mu  sync.Mutex
		log []string
	)
	root := build(t, New[Serial]().Set("children", []Node{
		recorder(t, &log, &mu, "a"),
		build(t, New[Wait]().Set("ticks", 2)),
		recorder(t, &log, &mu, "b"),
	}))

	run, st, err := h.run(t, root, nil)
	require.NoError(t, err)
	assert.Equal(t, Succeeded, st)
	assert.Equal(t, []string{"a", "b"}, log)
	assert.Equal(t, 3, run.ctx.Ticks())
}

func TestFailedBranch(t *testing.T) {
	h := newHarness(t)
	var (
		mu  sync.Mutex
		log []string
	)
	// Without a player in the transaction the message cannot be sent.
	root := build(t, New[Message]().
		Set("text", "hello").
		Set("next", recorder(t, &log, &mu, "next")).
		Set("failed", recorder(t, &log, &mu, "failed")))

	_, st, err := h.run(t, root, nil)
	require.NoError(t, err)
	assert.Equal(t, Succeeded, st)
	assert.Equal(t, []string{"failed"}, log)
}

func TestSelectAndCondition(t *testing.T) {
	h := newHarness(t)
	var (
		mu  sync.Mutex
		log []string
	)
	never := build(t, New[Condition]().Set("check", func(*Context) bool { return false }))
	notNever := build(t, New[Condition]().
		Set("check", func(*Context) bool { return false }).
		Set("negate", true).
		Set("next", recorder(t, &log, &mu, "negated")))

	root := build(t, New[Select]().Set("children", []Node{never, notNever}))
	_, st, err := h.run(t, root, nil)
	require.NoError(t, err)
	assert.Equal(t, Succeeded, st)
	assert.Equal(t, []string{"negated"}, log)
}

func TestParallelWaitsForAllChildren(t *testing.T) {
	h := newHarness(t)
	root := build(t, New[Parallel]().Set("children", []Node{
		build(t, New[Wait]().Set("ticks", 1)),
		build(t, New[Wait]().Set("ticks", 3)),
	}))

	run, st, err := h.run(t, root, nil)
	require.NoError(t, err)
	assert.Equal(t, Succeeded, st)
	assert.Equal(t, 4, run.ctx.Ticks())

	failing := build(t, New[Parallel]().Set("children", []Node{
		build(t, New[Wait]().Set("ticks", 2)),
		build(t, New[Condition]()),
	}))
	_, st, err = h.run(t, failing, nil)
	require.NoError(t, err)
	assert.Equal(t, Failed, st)
}

func TestActionErrorFailsRun(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("boom")
	root := build(t, New[Action]().Set("run", func(c *Context) error {
		c.Set("seen", true)
		return boom
	}))

	run, st, err := h.run(t, root, nil)
	assert.Equal(t, Failed, st)
	assert.ErrorIs(t, err, boom)
	v, ok := run.ctx.Value("seen")
	require.True(t, ok)
	assert.Equal(t, true, v)
}

func TestCancelStopsRun(t *testing.T) {
	h := newHarness(t)
	g, err := NewGraph("long", build(t, New[Wait]().Set("ticks", 1_000_000))).On(Primary).Build()
	require.NoError(t, err)

	user := &world.EntityHandle{}
	run, err := h.rt.Start(h.scope, h.exec, g, &Context{Type: Primary, User: user})
	require.NoError(t, err)

	_, err = h.rt.Start(h.scope, h.exec, g, &Context{Type: Primary, User: user})
	assert.ErrorIs(t, err, ErrBusy)

	run.Cancel()
	st, err := run.Wait(context.Background())
	assert.Equal(t, Failed, st)
	assert.ErrorIs(t, err, context.Canceled)

	require.Eventually(t, func() bool {
		next, err := h.rt.Start(h.scope, h.exec, g, &Context{Type: Primary, User: user})
		if err != nil {
			return false
		}
		next.Cancel()
		return true
	}, time.Second, time.Millisecond)
}

func TestStartRejectsUnhandledType(t *testing.T) {
	h := newHarness(t)
	g, err := NewGraph("g", build(t, New[Wait]())).On(Primary).Build()
	require.NoError(t, err)

	_, err = h.rt.Start(h.scope, h.exec, g, &Context{Type: Consume})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCooldown(t *testing.T) {
	var (
		mu  sync.Mutex
		now = time.Unix(0, 0)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	h := newHarness(t, WithClock(clock))
	root := build(t, New[Cooldown]().Set("duration", 2*time.Second))
	user := &world.EntityHandle{}

	_, st, _ := h.run(t, root, &Context{Type: Secondary, User: user})
	assert.Equal(t, Succeeded, st)

	_, st, _ = h.run(t, root, &Context{Type: Secondary, User: user})
	assert.Equal(t, Failed, st)

	// Other users are not affected.
	_, st, _ = h.run(t, root, &Context{Type: Secondary, User: &world.EntityHandle{}})
	assert.Equal(t, Succeeded, st)

	mu.Lock()
	now = now.Add(3 * time.Second)
	mu.Unlock()
	_, st, _ = h.run(t, root, &Context{Type: Secondary, User: user})
	assert.Equal(t, Succeeded, st)
}

func TestTriggerUsesItemBinding(t *testing.T) {
	h := newHarness(t)
	var (
		mu  sync.Mutex
		log []string
	)
	g, err := NewGraph("wand", recorder(t, &log, &mu, "cast")).On(Secondary).Build()
	require.NoError(t, err)
	require.NoError(t, h.rt.Registry().Register(g))

	wand, err := Bind(item.NewStack(item.Stick{}, 1), g)
	require.NoError(t, err)

	_, ok := h.rt.Trigger(h.scope, h.exec, Primary, nil, nil, wand)
	assert.False(t, ok)
	_, ok = h.rt.Trigger(h.scope, h.exec, Secondary, nil, nil, item.NewStack(item.Stick{}, 1))
	assert.False(t, ok)

	run, ok := h.rt.Trigger(h.scope, h.exec, Secondary, nil, nil, wand)
	require.True(t, ok)
	st, err := run.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Succeeded, st)
	assert.Equal(t, []string{"cast"}, log)
}

func TestSequentialRunsForSameUser(t *testing.T) {
	h := newHarness(t)
	root := build(t, New[Action]())
	user := &world.EntityHandle{}

	for i := 0; i < 50; i++ {
		_, st, err := h.run(t, root, &Context{Type: Secondary, User: user})
		require.NoError(t, err, "run %d", i)
		require.Equal(t, Succeeded, st, "run %d", i)
	}
}

func TestTypedNilClearsField(t *testing.T) {
	root, err := New[Action]().Set("next", (*Heal)(nil)).Build()
	require.NoError(t, err)
	assert.Nil(t, root.next)

	h := newHarness(t)
	user := &world.EntityHandle{}
	_, st, err := h.run(t, root, &Context{Type: Secondary, User: user})
	require.NoError(t, err)
	assert.Equal(t, Succeeded, st)

	_, st, err = h.run(t, build(t, New[Action]()), &Context{Type: Secondary, User: user})
	require.NoError(t, err)
	assert.Equal(t, Succeeded, st)
}

func TestStartOnCancelledScopeFreesUser(t *testing.T) {
	h := newHarness(t)
	g, err := NewGraph("g", build(t, New[Action]())).On(Primary).Build()
	require.NoError(t, err)
	user := &world.EntityHandle{}

	dead := task.NewScope(context.Background(), task.NewPool("cpu", 1))
	dead.Cancel(context.Canceled)
	run, err := h.rt.Start(dead, h.exec, g, &Context{Type: Primary, User: user})
	require.NoError(t, err)
	assert.Equal(t, Failed, run.Status())

	run, err = h.rt.Start(h.scope, h.exec, g, &Context{Type: Primary, User: user})
	require.NoError(t, err)
	st, err := run.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Succeeded, st)
}
