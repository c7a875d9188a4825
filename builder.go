package flint

import (
	"log/slog"

	"github.com/oriumgames/flint/config"
)

// Builder configures a Runtime before initialization.
// Use NewBuilder() to create a builder and chain configuration methods.
type Builder struct {
	cfg       config.Config
	log       *slog.Logger
	plugins   []func(*Runtime) *Plugin
	resources []any
}

// NewBuilder creates a builder using config.Default.
func NewBuilder() *Builder {
	return &Builder{cfg: config.Default(), log: slog.Default()}
}

// Config sets the configuration.
func (b *Builder) Config(cfg config.Config) *Builder {
	cfg.Normalize()
	b.cfg = cfg
	return b
}

// Logger sets the logger passed to every component.
func (b *Builder) Logger(log *slog.Logger) *Builder {
	if log != nil {
		b.log = log
	}
	return b
}

// Plugin adds a plugin. The callback runs during Init with the new runtime.
func (b *Builder) Plugin(callback func(*Runtime) *Plugin) *Builder {
	b.plugins = append(b.plugins, callback)
	return b
}

// Resource adds a global ECS resource.
func (b *Builder) Resource(res any) *Builder {
	b.resources = append(b.resources, res)
	return b
}

// Init creates the runtime, enables every plugin in order and starts ticking
// the ECS. If a plugin fails to enable, plugins enabled so far are shut down
// and the error is returned.
func (b *Builder) Init() (*Runtime, error) {
	rt := newRuntime(b.cfg, b.log)

	for _, res := range b.resources {
		if err := rt.world.SetResource(res); err != nil {
			rt.Shutdown()
			return nil, err
		}
	}
	for _, f := range b.plugins {
		p := f(rt)
		if p == nil {
			continue
		}
		if err := rt.enable(p); err != nil {
			rt.Shutdown()
			return nil, err
		}
	}

	rt.start()
	for _, p := range rt.plugins {
		p.runEnableHooks()
	}
	return rt, nil
}
