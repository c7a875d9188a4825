package flint

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/df-mc/dragonfly/server/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriumgames/flint/command"
	"github.com/oriumgames/flint/config"
	"github.com/oriumgames/flint/ecs"
	"github.com/oriumgames/flint/event"
	"github.com/oriumgames/flint/interaction"
)

type Spawn struct {
	Lobby string
}

type Health struct {
	Value float64
}

type regenSystem struct {
	Health *Health `ecs:"mut"`
}

func (s *regenSystem) Run(*world.Tx) {
	s.Health.Value++
}

type ping struct{}

func startRuntime(t *testing.T, plugins ...*Plugin) *Runtime {
	t.Helper()
	b := NewBuilder().Config(config.Default())
	for _, p := range plugins {
		b.Plugin(p.Build())
	}
	rt, err := b.Init()
	require.NoError(t, err)
	t.Cleanup(rt.Shutdown)
	return rt
}

func TestInitSetsResources(t *testing.T) {
	p := NewPlugin("lobby").Resource(&Health{Value: 20})
	rt, err := NewBuilder().
		Resource(&Spawn{Lobby: "hub"}).
		Plugin(p.Build()).
		Init()
	require.NoError(t, err)
	t.Cleanup(rt.Shutdown)

	require.NotNil(t, ecs.Resource[Spawn](rt.World()))
	assert.Equal(t, "hub", ecs.Resource[Spawn](rt.World()).Lobby)
	assert.Equal(t, 20.0, ecs.Resource[Health](rt.World()).Value)
	assert.Same(t, rt, p.Runtime())
	assert.Equal(t, []*Plugin{p}, rt.Plugins())
}

func TestInitReportsPluginErrors(t *testing.T) {
	p := NewPlugin("broken").System(ecs.NewSystem(&regenSystem{}).Every(0))
	_, err := NewBuilder().Plugin(p.Build()).Init()
	require.Error(t, err)
	assert.ErrorIs(t, err, ecs.ErrInvalidArgument)
	assert.ErrorContains(t, err, "plugin broken")
}

func TestPluginEnabledTwice(t *testing.T) {
	p := NewPlugin("twice")
	_, err := NewBuilder().Plugin(p.Build()).Plugin(p.Build()).Init()
	assert.ErrorContains(t, err, "already enabled")
}

func TestNilPluginIsSkipped(t *testing.T) {
	rt, err := NewBuilder().Plugin(func(*Runtime) *Plugin { return nil }).Init()
	require.NoError(t, err)
	t.Cleanup(rt.Shutdown)
	assert.Empty(t, rt.Plugins())
}

func TestEnableHooksRunAfterStart(t *testing.T) {
	var seen *Runtime
	p := NewPlugin("hooks").OnEnable(func(p *Plugin) {
		seen = p.Runtime()
	})
	rt := startRuntime(t, p)
	assert.Same(t, rt, seen)
}

func TestPluginIDIsStable(t *testing.T) {
	assert.Equal(t, NewPlugin("combat").ID(), NewPlugin("combat").ID())
	assert.NotEqual(t, NewPlugin("combat").ID(), NewPlugin("economy").ID())
}

func TestPluginScopeLifecycle(t *testing.T) {
	p := NewPlugin("tasks")
	startRuntime(t, p)

	first := p.Scope()
	started := make(chan struct{})
	causes := make(chan error, 1)
	tk := p.Go("wait", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		causes <- context.Cause(ctx)
		return nil
	})
	assert.Equal(t, "tasks/wait", tk.Name())
	<-started

	p.Shutdown(nil)
	select {
	case err := <-causes:
		assert.ErrorIs(t, err, ErrShutdown)
	case <-time.After(time.Second):
		t.Fatal("task was not cancelled")
	}
	assert.True(t, first.Cancelled())

	second := p.Scope()
	assert.NotSame(t, first, second)
	assert.False(t, second.Cancelled())
}

func TestNotEnabledPlugin(t *testing.T) {
	p := NewPlugin("idle")
	assert.Nil(t, p.Scope())
	assert.Nil(t, p.Go("x", func(context.Context) error { return nil }))
	assert.Nil(t, p.Every(time.Second, func() {}))
	h := Listen(p, func(*ping) {})
	h.Close()
	p.Shutdown(nil)
}

func TestListenersClosedOnShutdown(t *testing.T) {
	p := NewPlugin("listen")
	rt := startRuntime(t, p)

	var n atomic.Int32
	Listen(p, func(*ping) { n.Add(1) })
	event.Publish(rt.Bus(), &ping{})
	assert.EqualValues(t, 1, n.Load())

	p.Shutdown(nil)
	event.Publish(rt.Bus(), &ping{})
	assert.EqualValues(t, 1, n.Load())
}

func TestEveryCancelledOnShutdown(t *testing.T) {
	p := NewPlugin("timers")
	startRuntime(t, p)

	var n atomic.Int32
	h := p.Every(time.Millisecond, func() { n.Add(1) })
	assert.Eventually(t, func() bool { return n.Load() > 0 }, time.Second, time.Millisecond)

	p.Shutdown(nil)
	assert.True(t, h.Cancelled())
}

func TestGraphsFollowPluginLifecycle(t *testing.T) {
	p := NewPlugin("wands").
		Graph(interaction.NewGraph("fireball", &interaction.Message{}).On(interaction.Secondary))
	rt := startRuntime(t, p)

	_, ok := rt.Graphs().Graph("fireball")
	assert.True(t, ok)

	p.Shutdown(nil)
	_, ok = rt.Graphs().Graph("fireball")
	assert.False(t, ok)
}

func TestDuplicateGraphFailsInit(t *testing.T) {
	a := NewPlugin("a").Graph(interaction.NewGraph("dup", &interaction.Message{}).On(interaction.Primary))
	b := NewPlugin("b").Graph(interaction.NewGraph("dup", &interaction.Message{}).On(interaction.Primary))
	_, err := NewBuilder().Plugin(a.Build()).Plugin(b.Build()).Init()
	assert.ErrorContains(t, err, "plugin b")
}

func TestFailedEnableRegistersNoGraphs(t *testing.T) {
	p := NewPlugin("orphan").
		Graph(interaction.NewGraph("orphan", &interaction.Message{}).On(interaction.Primary)).
		Command(command.New("").Executes(func(*command.Context) error { return nil }))
	_, err := NewBuilder().Plugin(p.Build()).Init()
	require.ErrorIs(t, err, command.ErrInvalidArgument)

	_, ok := p.Runtime().Graphs().Graph("orphan")
	assert.False(t, ok)
}

func TestShutdownCancelsEveryScope(t *testing.T) {
	p := NewPlugin("scoped")
	rt := startRuntime(t, p)

	s := p.Scope()
	rt.Shutdown()
	rt.Shutdown()
	assert.True(t, s.Cancelled())
	assert.True(t, errors.Is(context.Cause(s.Context()), ErrStopped))
}

func TestPlayerOf(t *testing.T) {
	_, ok := PlayerOf(nil)
	assert.False(t, ok)
	_, ok = PlayerOf("console")
	assert.False(t, ok)

	rt := startRuntime(t)
	p, e := rt.Command(nil)
	assert.Nil(t, p)
	assert.Nil(t, e)
}
