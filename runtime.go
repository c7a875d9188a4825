package flint

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/google/uuid"

	"github.com/oriumgames/flint/config"
	"github.com/oriumgames/flint/ecs"
	"github.com/oriumgames/flint/event"
	"github.com/oriumgames/flint/interaction"
	"github.com/oriumgames/flint/task"
)

// ErrStopped is the cancellation cause of every scope when the runtime shuts
// down.
var ErrStopped = errors.New("flint: runtime stopped")

// Runtime owns the pools, dispatchers, scopes, event bus, ECS world and
// interaction runtime shared by all plugins.
type Runtime struct {
	cfg  config.Config
	log  *slog.Logger
	rate task.Rate
	id   uuid.UUID

	cpu         *task.Pool
	io          *task.Pool
	dispatchers *task.Dispatchers
	scopes      *task.Scopes
	scheduler   *task.Scheduler

	bus          *event.Bus
	world        *ecs.World
	graphs       *interaction.Registry
	interactions *interaction.Runtime

	mu      sync.Mutex
	plugins []*Plugin
	handles []event.Handle
	ticker  *task.Handle

	started bool
	once    sync.Once
}

func newRuntime(cfg config.Config, log *slog.Logger) *Runtime {
	cfg.Normalize()
	if log == nil {
		log = slog.Default()
	}
	rate := task.Rate(cfg.TickRate)

	rt := &Runtime{
		cfg:         cfg,
		log:         log,
		rate:        rate,
		id:          uuid.New(),
		cpu:         task.NewPool("cpu", cfg.CPUWorkers),
		io:          task.NewIOPool(cfg.IOWorkers),
		dispatchers: task.NewDispatchers(log),
		scheduler:   task.NewScheduler(log),
		bus:         event.NewBus(log),
		graphs:      interaction.NewRegistry(),
	}
	rt.scopes = task.NewScopes(context.Background(), rt.cpu,
		task.WithLogger(log),
		task.WithTickRate(rate),
	)
	rt.world = ecs.NewWorld(rt.dispatchers,
		ecs.WithLogger(log),
		ecs.WithBus(rt.bus),
		ecs.WithRate(rate),
	)
	rt.interactions = interaction.NewRuntime(rt.graphs, rt.dispatchers, interaction.WithLogger(log))
	return rt
}

func (rt *Runtime) enable(p *Plugin) error {
	if err := p.register(rt); err != nil {
		return err
	}
	rt.mu.Lock()
	rt.plugins = append(rt.plugins, p)
	rt.mu.Unlock()
	rt.log.Debug("plugin enabled", "plugin", p.Name())
	return nil
}

func (rt *Runtime) start() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.scheduler.Start()
	rt.ticker = rt.world.Run(rt.scheduler)
	rt.handles = append(rt.handles, rt.interactions.Listen(rt.bus, rt.scopes.For(rt.id))...)
	rt.handles = append(rt.handles, event.Listen(rt.bus, func(e *event.ChangeWorld) {
		if e.Player != nil && e.After != nil {
			rt.world.Move(e.Player.H(), e.After)
		}
	}))
	rt.started = true
	rt.log.Info("runtime started", "tick_rate", int(rt.rate), "plugins", len(rt.plugins))
}

// Join tracks p in the ECS, installs the event handler publishing its events
// and publishes Join. w is the world the player spawned in. The entity is
// untracked when the player quits.
func (rt *Runtime) Join(p *player.Player, w task.Executor) *ecs.Entity {
	e := rt.world.Track(w, p.H())
	h := event.NewHandler(rt.bus, p.UUID()).OnQuit(func(p *player.Player) {
		rt.world.Untrack(p.H())
	})
	p.Handle(h)
	event.PublishFor(rt.bus, p.UUID(), &event.Join{Player: p})
	return e
}

// EntityOf returns the ECS entity of a joined player.
func (rt *Runtime) EntityOf(p *player.Player) (*ecs.Entity, bool) {
	if p == nil {
		return nil, false
	}
	return rt.world.Entity(p.H())
}

// Config returns the configuration the runtime was built with.
func (rt *Runtime) Config() config.Config { return rt.cfg }

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *slog.Logger { return rt.log }

// Rate returns the tick rate.
func (rt *Runtime) Rate() task.Rate { return rt.rate }

// Bus returns the event bus player events are published on.
func (rt *Runtime) Bus() *event.Bus { return rt.bus }

// World returns the ECS world.
func (rt *Runtime) World() *ecs.World { return rt.world }

// Dispatchers returns the per-world dispatcher registry.
func (rt *Runtime) Dispatchers() *task.Dispatchers { return rt.dispatchers }

// Dispatcher returns the dispatcher of a host world.
func (rt *Runtime) Dispatcher(exec task.Executor) *task.Dispatcher {
	return rt.dispatchers.For(exec)
}

// Scheduler returns the scheduler goroutine timers run on.
func (rt *Runtime) Scheduler() *task.Scheduler { return rt.scheduler }

// Scopes returns the task scopes keyed by plugin id.
func (rt *Runtime) Scopes() *task.Scopes { return rt.scopes }

// Graphs returns the interaction graph registry.
func (rt *Runtime) Graphs() *interaction.Registry { return rt.graphs }

// Interactions returns the runtime ticking interaction graphs.
func (rt *Runtime) Interactions() *interaction.Runtime { return rt.interactions }

// CPU returns the pool tasks run on by default.
func (rt *Runtime) CPU() *task.Pool { return rt.cpu }

// IO returns the pool for blocking work, used with task.OnPool.
func (rt *Runtime) IO() *task.Pool { return rt.io }

// Plugins returns the enabled plugins in enable order.
func (rt *Runtime) Plugins() []*Plugin {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return slices.Clone(rt.plugins)
}

// Shutdown shuts plugins down in reverse enable order, stops the ECS tick and
// the scheduler and cancels every remaining scope. It is safe to call more
// than once.
func (rt *Runtime) Shutdown() {
	rt.once.Do(func() {
		rt.mu.Lock()
		plugins := rt.plugins
		handles := rt.handles
		ticker := rt.ticker
		started := rt.started
		rt.handles = nil
		rt.mu.Unlock()

		for i := len(plugins) - 1; i >= 0; i-- {
			plugins[i].Shutdown(ErrStopped)
		}
		for _, h := range handles {
			h.Close()
		}
		if ticker != nil {
			ticker.Cancel()
		}
		rt.scopes.CancelAll(ErrStopped)
		if started {
			rt.scheduler.Stop()
		}
		rt.log.Info("runtime stopped")
	})
}
