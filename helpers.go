package flint

import (
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/player/form"

	"github.com/oriumgames/flint/ecs"
)

// PlayerOf returns v as a player. Command sources, form submitters and item
// users are players when a player triggered them.
func PlayerOf(v any) (*player.Player, bool) {
	p, ok := v.(*player.Player)
	return p, ok && p != nil
}

// Command returns the player running a command and its ECS entity. Both are
// nil if the source is not a joined player.
//
// Usage:
//
//	func (c Heal) Run(src cmd.Source, o *cmd.Output, tx *world.Tx) {
//	    p, e := rt.Command(src)
//	    if e == nil {
//	        o.Error("player-only command")
//	        return
//	    }
//	    ...
//	}
func (rt *Runtime) Command(src cmd.Source) (*player.Player, *ecs.Entity) {
	return rt.lookup(src)
}

// Form returns the player submitting a form and its ECS entity.
func (rt *Runtime) Form(sub form.Submitter) (*player.Player, *ecs.Entity) {
	return rt.lookup(sub)
}

// Item returns the player using an item and its ECS entity.
func (rt *Runtime) Item(user item.User) (*player.Player, *ecs.Entity) {
	return rt.lookup(user)
}

func (rt *Runtime) lookup(v any) (*player.Player, *ecs.Entity) {
	p, ok := PlayerOf(v)
	if !ok {
		return nil, nil
	}
	e, ok := rt.EntityOf(p)
	if !ok {
		return nil, nil
	}
	return p, e
}
