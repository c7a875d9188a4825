package event

import (
	"net"
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/player/skin"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Vetoable is embedded by events backed by a host context. Cancelling it
// cancels the host action.
type Vetoable struct {
	Ctx *player.Context
}

// Cancel cancels the host action.
func (v Vetoable) Cancel() {
	if v.Ctx != nil {
		v.Ctx.Cancel()
	}
}

// Cancelled reports whether a listener cancelled the host action.
func (v Vetoable) Cancelled() bool {
	return v.Ctx != nil && v.Ctx.Cancelled()
}

// Player returns the player the event belongs to, or nil.
func (v Vetoable) Player() *player.Player {
	if v.Ctx == nil {
		return nil
	}
	return v.Ctx.Val()
}

// Move is published when a player moves.
type Move struct {
	Vetoable
	Position mgl64.Vec3
	Rotation cube.Rotation
}

// Jump is published when a player jumps.
type Jump struct {
	Player *player.Player
}

// Teleport is published when a player is teleported.
type Teleport struct {
	Vetoable
	Position mgl64.Vec3
}

// ChangeWorld is published after a player moved to another world.
type ChangeWorld struct {
	Player *player.Player
	Before *world.World
	After  *world.World
}

// ToggleSprint is published when a player starts or stops sprinting.
type ToggleSprint struct {
	Vetoable
	After bool
}

// ToggleSneak is published when a player starts or stops sneaking.
type ToggleSneak struct {
	Vetoable
	After bool
}

// Chat is published when a player sends a chat message. Listeners may rewrite
// Message.
type Chat struct {
	Vetoable
	Message *string
}

// FoodLoss is published when a player's food level drops. Listeners may
// rewrite To.
type FoodLoss struct {
	Vetoable
	From int
	To   *int
}

// Heal is published when a player regains health. Listeners may rewrite
// Health.
type Heal struct {
	Vetoable
	Health *float64
	Source world.HealingSource
}

// Hurt is published when a player takes damage. Damage and Immunity may be
// rewritten by listeners.
type Hurt struct {
	Vetoable
	Damage   *float64
	Immune   bool
	Immunity *time.Duration
	Source   world.DamageSource
}

// Death is published when a player dies.
type Death struct {
	Player        *player.Player
	Source        world.DamageSource
	KeepInventory *bool
}

// Respawn is published when a player respawns. Listeners may change the
// position and world.
type Respawn struct {
	Player   *player.Player
	Position *mgl64.Vec3
	World    **world.World
}

type SkinChange struct {
	Vetoable
	Skin *skin.Skin
}

type StartBreak struct {
	Vetoable
	Position cube.Pos
}

// BlockBreak is published when a player breaks a block.
type BlockBreak struct {
	Vetoable
	Position   cube.Pos
	Drops      *[]item.Stack
	Experience *int
}

// BlockPlace is published when a player places a block.
type BlockPlace struct {
	Vetoable
	Position cube.Pos
	Block    world.Block
}

// ItemUse is published when a player uses the held item in the air.
type ItemUse struct {
	Vetoable
}

// ItemUseOnBlock is published when a player uses the held item on a block.
type ItemUseOnBlock struct {
	Vetoable
	Position cube.Pos
	Face     cube.Face
	ClickPos mgl64.Vec3
}

// ItemUseOnEntity is published when a player uses the held item on an entity.
type ItemUseOnEntity struct {
	Vetoable
	Entity world.Entity
}

type ItemConsume struct {
	Vetoable
	Item item.Stack
}

// AttackEntity is published when a player attacks an entity.
type AttackEntity struct {
	Vetoable
	Entity   world.Entity
	Force    *float64
	Height   *float64
	Critical *bool
}

type PunchAir struct {
	Vetoable
}

type ItemDrop struct {
	Vetoable
	Item item.Stack
}

type ItemPickup struct {
	Vetoable
	Item *item.Stack
}

type HeldSlotChange struct {
	Vetoable
	From int
	To   int
}

type Transfer struct {
	Vetoable
	Address *net.UDPAddr
}

// CommandExecution is published before a player runs a command.
type CommandExecution struct {
	Vetoable
	Command cmd.Command
	Args    []string
}

// Quit is published when a player leaves. It is the last event published for
// that player.
type Quit struct {
	Player *player.Player
}

// Join is published by Attach once a player's handler is installed.
type Join struct {
	Player *player.Player
}
