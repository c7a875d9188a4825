package interaction

import (
	"time"

	"github.com/df-mc/dragonfly/server/entity"
	"github.com/df-mc/dragonfly/server/entity/effect"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	bt "github.com/joeycumines/go-behaviortree"
)

type living interface {
	world.Entity
	Hurt(dmg float64, src world.DamageSource) (float64, bool)
	KnockBack(src mgl64.Vec3, force, height float64)
}

type healer interface {
	Heal(health float64, src world.HealingSource)
}

type affected interface {
	AddEffect(e effect.Effect)
}

// Damage hurts the target on behalf of the user and knocks it back from the
// user's position. Fields: amount, force, height.
type Damage struct {
	Simple
	amount float64
	force  float64
	height float64
}

func (d *Damage) setField(name string, v any) (bool, error) {
	switch name {
	case "amount":
		return true, assign(&d.amount, v)
	case "force":
		return true, assign(&d.force, v)
	case "height":
		return true, assign(&d.height, v)
	}
	return d.Simple.setField(name, v)
}

func (d *Damage) compile(c *Context) bt.Node {
	return d.wrap(leaf(func() bt.Status {
		target, ok := c.TargetEntity().(living)
		user := c.UserEntity()
		if !ok || user == nil {
			return bt.Failure
		}
		if _, vulnerable := target.Hurt(d.amount, entity.AttackDamageSource{Attacker: user}); !vulnerable {
			return bt.Failure
		}
		if d.force > 0 {
			target.KnockBack(user.Position(), d.force, d.height)
		}
		return bt.Success
	}), c)
}

// Heal restores health of the user. Fields: amount.
type Heal struct {
	Simple
	amount float64
}

func (h *Heal) setField(name string, v any) (bool, error) {
	if name == "amount" {
		return true, assign(&h.amount, v)
	}
	return h.Simple.setField(name, v)
}

func (h *Heal) compile(c *Context) bt.Node {
	return h.wrap(leaf(func() bt.Status {
		u, ok := c.UserEntity().(healer)
		if !ok {
			return bt.Failure
		}
		u.Heal(h.amount, effect.InstantHealingSource{})
		return bt.Success
	}), c)
}

// Effect applies a lasting effect to the user, or to the target if target is
// set. Fields: effect, level, duration, target.
type Effect struct {
	Simple
	effect   effect.LastingType
	level    int
	duration time.Duration
	target   bool
}

func (e *Effect) setField(name string, v any) (bool, error) {
	switch name {
	case "effect":
		return true, assign(&e.effect, v)
	case "level":
		return true, assign(&e.level, v)
	case "duration":
		return true, assign(&e.duration, v)
	case "target":
		return true, assign(&e.target, v)
	}
	return e.Simple.setField(name, v)
}

func (e *Effect) compile(c *Context) bt.Node {
	return e.wrap(leaf(func() bt.Status {
		ent := c.UserEntity()
		if e.target {
			ent = c.TargetEntity()
		}
		a, ok := ent.(affected)
		if !ok || e.effect == nil {
			return bt.Failure
		}
		a.AddEffect(effect.New(e.effect, max(e.level, 1), e.duration))
		return bt.Success
	}), c)
}

// Message sends text to the user. Fields: text.
type Message struct {
	Simple
	text string
}

func (m *Message) setField(name string, v any) (bool, error) {
	if name == "text" {
		return true, assign(&m.text, v)
	}
	return m.Simple.setField(name, v)
}

func (m *Message) compile(c *Context) bt.Node {
	return m.wrap(leaf(func() bt.Status {
		p := c.Player()
		if p == nil {
			return bt.Failure
		}
		p.Message(m.text)
		return bt.Success
	}), c)
}

// Wait stays running for the given number of ticks. Fields: ticks.
type Wait struct {
	Simple
	ticks int
}

func (w *Wait) setField(name string, v any) (bool, error) {
	if name == "ticks" {
		return true, assign(&w.ticks, v)
	}
	return w.Simple.setField(name, v)
}

func (w *Wait) compile(c *Context) bt.Node {
	waited := 0
	return w.wrap(leaf(func() bt.Status {
		if waited >= w.ticks {
			return bt.Success
		}
		waited++
		return bt.Running
	}), c)
}

// Cooldown fails while the user is cooling down under key and otherwise
// starts the cooldown. The key defaults to the node id, then the graph id.
// Fields: key, duration.
type Cooldown struct {
	Simple
	key      string
	duration time.Duration
}

func (cd *Cooldown) setField(name string, v any) (bool, error) {
	switch name {
	case "key":
		return true, assign(&cd.key, v)
	case "duration":
		return true, assign(&cd.duration, v)
	}
	return cd.Simple.setField(name, v)
}

func (cd *Cooldown) compile(c *Context) bt.Node {
	return cd.wrap(leaf(func() bt.Status {
		if c.rt == nil {
			return bt.Success
		}
		key := cd.key
		if key == "" {
			key = cd.id
		}
		if key == "" && c.Graph != nil {
			key = c.Graph.id
		}
		return status(c.rt.startCooldown(c.User, key, cd.duration))
	}), c)
}

// Serial runs its children one after another and fails at the first failing
// child. Fields: children.
type Serial struct {
	Simple
	children []Node
}

func (s *Serial) setField(name string, v any) (bool, error) {
	if name == "children" {
		return true, assign(&s.children, v)
	}
	return s.Simple.setField(name, v)
}

func (s *Serial) compile(c *Context) bt.Node {
	return s.wrap(bt.New(bt.Memorize(bt.Sequence), compileAll(s.children, c)...), c)
}

// Select runs its children one after another until one succeeds. Fields:
// children.
type Select struct {
	Simple
	children []Node
}

func (s *Select) setField(name string, v any) (bool, error) {
	if name == "children" {
		return true, assign(&s.children, v)
	}
	return s.Simple.setField(name, v)
}

func (s *Select) compile(c *Context) bt.Node {
	return s.wrap(bt.New(bt.Memorize(bt.Selector), compileAll(s.children, c)...), c)
}

// Parallel ticks all children every tick until each has finished. It
// succeeds if every child succeeded. Fields: children.
type Parallel struct {
	Simple
	children []Node
}

func (p *Parallel) setField(name string, v any) (bool, error) {
	if name == "children" {
		return true, assign(&p.children, v)
	}
	return p.Simple.setField(name, v)
}

func (p *Parallel) compile(c *Context) bt.Node {
	var results []bt.Status
	return p.wrap(bt.New(func(children []bt.Node) (bt.Status, error) {
		if results == nil {
			results = make([]bt.Status, len(children))
		}
		running, failed := false, false
		for i, child := range children {
			if results[i] == 0 || results[i] == bt.Running {
				st, err := child.Tick()
				if err != nil {
					return bt.Failure, err
				}
				results[i] = st
			}
			switch results[i] {
			case bt.Running:
				running = true
			case bt.Failure:
				failed = true
			}
		}
		if running {
			return bt.Running, nil
		}
		return status(!failed), nil
	}, compileAll(p.children, c)...), c)
}

// Condition succeeds if check returns true, or false when negate is set.
// Fields: check, negate.
type Condition struct {
	Simple
	check  func(c *Context) bool
	negate bool
}

func (cd *Condition) setField(name string, v any) (bool, error) {
	switch name {
	case "check":
		return true, assign(&cd.check, v)
	case "negate":
		return true, assign(&cd.negate, v)
	}
	return cd.Simple.setField(name, v)
}

func (cd *Condition) compile(c *Context) bt.Node {
	tick := func([]bt.Node) (bt.Status, error) {
		return status(cd.check != nil && cd.check(c)), nil
	}
	if cd.negate {
		return cd.wrap(bt.New(bt.Not(tick)), c)
	}
	return cd.wrap(bt.New(tick), c)
}

// Action runs a function on the world goroutine. A returned error fails the
// step and is kept on the Context. Fields: run.
type Action struct {
	Simple
	run func(c *Context) error
}

func (a *Action) setField(name string, v any) (bool, error) {
	if name == "run" {
		return true, assign(&a.run, v)
	}
	return a.Simple.setField(name, v)
}

func (a *Action) compile(c *Context) bt.Node {
	return a.wrap(leaf(func() bt.Status {
		if a.run == nil {
			return bt.Success
		}
		if err := a.run(c); err != nil {
			c.errs = append(c.errs, err)
			return bt.Failure
		}
		return bt.Success
	}), c)
}

func compileAll(nodes []Node, c *Context) []bt.Node {
	out := make([]bt.Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n.compile(c))
		}
	}
	return out
}
