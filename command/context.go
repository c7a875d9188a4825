package command

import (
	"errors"
	"fmt"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
)

// ErrArgumentMissing is returned by Get for arguments that were not given.
var ErrArgumentMissing = errors.New("command: argument missing")

// Context is passed to an Executor.
type Context struct {
	Source cmd.Source
	Output *cmd.Output
	Tx     *world.Tx
	// Path is the command and subcommand names that were matched, such as
	// "/party invite".
	Path string

	args map[string]any
}

// Player returns the source as a player, or nil for other sources.
func (c *Context) Player() *player.Player {
	if c == nil {
		return nil
	}
	p, _ := playerOf(c.Source)
	return p
}

// Reply prints a message to the source.
func (c *Context) Reply(format string, a ...any) {
	if c != nil && c.Output != nil {
		c.Output.Printf(format, a...)
	}
}

// Lookup returns the named argument. ok is false if it was not given or has
// a different type.
func Lookup[T any](c *Context, name string) (v T, ok bool) {
	if c == nil {
		return v, false
	}
	raw, found := c.args[name]
	if !found {
		return v, false
	}
	v, ok = raw.(T)
	return v, ok
}

// Get returns the named argument or ErrArgumentMissing.
func Get[T any](c *Context, name string) (T, error) {
	var zero T
	if c == nil {
		return zero, fmt.Errorf("%w: %s", ErrArgumentMissing, name)
	}
	raw, found := c.args[name]
	if !found {
		return zero, fmt.Errorf("%w: %s", ErrArgumentMissing, name)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: argument %s is %T, not %T", ErrInvalidArgument, name, raw, zero)
	}
	return v, nil
}

func playerOf(src cmd.Source) (*player.Player, bool) {
	p, ok := src.(*player.Player)
	return p, ok && p != nil
}
