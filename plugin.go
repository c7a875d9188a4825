package flint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/google/uuid"

	"github.com/oriumgames/flint/command"
	"github.com/oriumgames/flint/ecs"
	"github.com/oriumgames/flint/event"
	"github.com/oriumgames/flint/interaction"
	"github.com/oriumgames/flint/task"
)

// ErrShutdown is the cancellation cause of plugin scopes stopped by Shutdown.
var ErrShutdown = errors.New("flint: plugin shut down")

// pluginNamespace derives stable plugin ids from plugin names.
var pluginNamespace = uuid.MustParse("4c1f7a2e-8d7b-4a64-9f3c-2b6f0f1e5d90")

// Plugin groups the commands, systems, interaction graphs and resources of
// one feature, and owns a task scope that is cancelled when it shuts down.
type Plugin struct {
	name string
	id   uuid.UUID
	rt   *Runtime

	commands  []*command.Builder
	systems   []*ecs.SystemBuilder
	graphs    []*interaction.GraphBuilder
	resources []any
	enable    []func(*Plugin)

	mu      sync.Mutex
	closers []func()
}

// NewPlugin creates a plugin. Plugins with the same name share an id.
func NewPlugin(name string) *Plugin {
	return &Plugin{name: name, id: uuid.NewSHA1(pluginNamespace, []byte(name))}
}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return p.name
}

// ID returns the id the plugin's task scope is keyed by.
func (p *Plugin) ID() uuid.UUID {
	return p.id
}

// Command registers a command when the plugin is enabled.
func (p *Plugin) Command(b *command.Builder) *Plugin {
	p.commands = append(p.commands, b)
	return p
}

// System registers an ECS system when the plugin is enabled.
func (p *Plugin) System(b *ecs.SystemBuilder) *Plugin {
	p.systems = append(p.systems, b)
	return p
}

// Graph registers an interaction graph when the plugin is enabled.
func (p *Plugin) Graph(b *interaction.GraphBuilder) *Plugin {
	p.graphs = append(p.graphs, b)
	return p
}

// Resource registers an ECS resource when the plugin is enabled.
func (p *Plugin) Resource(res any) *Plugin {
	p.resources = append(p.resources, res)
	return p
}

// OnEnable adds a hook run once the runtime has started.
func (p *Plugin) OnEnable(fn func(*Plugin)) *Plugin {
	p.enable = append(p.enable, fn)
	return p
}

// Build returns a callback suitable for Builder.Plugin.
func (p *Plugin) Build() func(*Runtime) *Plugin {
	return func(*Runtime) *Plugin {
		return p
	}
}

// Runtime returns the runtime the plugin was enabled on, or nil.
func (p *Plugin) Runtime() *Runtime {
	return p.rt
}

// Scope returns the plugin's live task scope. After Shutdown a new scope is
// created on the next call. It returns nil before the plugin is enabled.
func (p *Plugin) Scope() *task.Scope {
	if p.rt == nil {
		return nil
	}
	return p.rt.scopes.For(p.id)
}

// Go starts fn as a task in the plugin's scope. Before the plugin is enabled
// it does nothing and returns nil.
func (p *Plugin) Go(name string, fn func(ctx context.Context) error) *task.Task {
	s := p.Scope()
	if s == nil {
		return nil
	}
	return s.Go(p.name+"/"+name, fn)
}

// Every runs fn on the scheduler goroutine every interval until the plugin
// shuts down. Before the plugin is enabled it does nothing and returns nil.
func (p *Plugin) Every(interval time.Duration, fn func()) *task.Handle {
	if p.rt == nil {
		return nil
	}
	h := p.rt.scheduler.Every(interval, fn)
	p.onShutdown(h.Cancel)
	return h
}

// Listen registers a listener on the runtime bus that is removed when the
// plugin shuts down. Before the plugin is enabled it returns the zero Handle.
func Listen[E any](p *Plugin, fn func(e E), opts ...event.Option) event.Handle {
	if p.rt == nil {
		return event.Handle{}
	}
	h := event.Listen(p.rt.bus, fn, opts...)
	p.onShutdown(h.Close)
	return h
}

func (p *Plugin) onShutdown(fn func()) {
	p.mu.Lock()
	p.closers = append(p.closers, fn)
	p.mu.Unlock()
}

// Shutdown removes the plugin's listeners and timers and cancels its task
// scope with reason, or ErrShutdown if reason is nil.
func (p *Plugin) Shutdown(reason error) {
	if reason == nil {
		reason = ErrShutdown
	}
	p.mu.Lock()
	closers := p.closers
	p.closers = nil
	p.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	if p.rt != nil {
		p.rt.scopes.Cancel(p.id, reason)
	}
}

func (p *Plugin) register(rt *Runtime) error {
	if p.rt != nil {
		return fmt.Errorf("plugin %s: already enabled", p.name)
	}
	p.rt = rt

	for _, res := range p.resources {
		if err := rt.world.SetResource(res); err != nil {
			return fmt.Errorf("plugin %s: %w", p.name, err)
		}
	}

	systems := make([]*ecs.System, 0, len(p.systems))
	for _, b := range p.systems {
		sys, err := b.Build()
		if err != nil {
			return fmt.Errorf("plugin %s: %w", p.name, err)
		}
		systems = append(systems, sys)
	}

	graphs := make([]*interaction.Graph, 0, len(p.graphs))
	for _, b := range p.graphs {
		g, err := b.Build()
		if err != nil {
			return fmt.Errorf("plugin %s: %w", p.name, err)
		}
		graphs = append(graphs, g)
	}
	cmds := make([]cmd.Command, 0, len(p.commands))
	for _, b := range p.commands {
		c, err := b.Build()
		if err != nil {
			return fmt.Errorf("plugin %s: %w", p.name, err)
		}
		cmds = append(cmds, c)
	}

	// Graph registration is all or nothing and the steps after it cannot
	// fail, so a failed enable leaves nothing registered.
	if err := rt.graphs.Register(graphs...); err != nil {
		return fmt.Errorf("plugin %s: %w", p.name, err)
	}
	p.onShutdown(func() {
		for _, g := range graphs {
			rt.graphs.Unregister(g.ID())
		}
	})
	for _, c := range cmds {
		cmd.Register(c)
	}
	rt.world.Register(systems...)
	p.onShutdown(func() { rt.world.Unregister(systems...) })
	return nil
}

func (p *Plugin) runEnableHooks() {
	for _, fn := range p.enable {
		fn(p)
	}
}
