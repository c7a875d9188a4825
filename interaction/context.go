package interaction

import (
	"errors"

	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
)

// Context is the state of one run of a graph. Tx is only set while the tree
// is being ticked on the user's world.
type Context struct {
	Type   Type
	User   *world.EntityHandle
	Target *world.EntityHandle
	Item   item.Stack
	Graph  *Graph
	Tx     *world.Tx

	rt     *Runtime
	ticks  int
	values map[string]any
	errs   []error
}

// Ticks returns the number of ticks the run has completed.
func (c *Context) Ticks() int {
	return c.ticks
}

// Player returns the user if it is a player in the current transaction.
func (c *Context) Player() *player.Player {
	p, _ := c.UserEntity().(*player.Player)
	return p
}

// UserEntity resolves the user in the current transaction.
func (c *Context) UserEntity() world.Entity {
	if c == nil {
		return nil
	}
	return c.resolve(c.User)
}

// TargetEntity resolves the target in the current transaction.
func (c *Context) TargetEntity() world.Entity {
	if c == nil {
		return nil
	}
	return c.resolve(c.Target)
}

func (c *Context) resolve(h *world.EntityHandle) world.Entity {
	if c.Tx == nil || h == nil {
		return nil
	}
	e, ok := h.Entity(c.Tx)
	if !ok {
		return nil
	}
	return e
}

// Set stores a value for later steps of the run.
func (c *Context) Set(key string, v any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = v
}

// Value returns a value stored with Set.
func (c *Context) Value(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Err returns the errors returned by actions of the run.
func (c *Context) Err() error {
	return errors.Join(c.errs...)
}
