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
	"github.com/google/uuid"
)

// Handler publishes the host callbacks of one player on a Bus. Every event is
// published with PublishFor keyed by the player's UUID, so it reaches global
// listeners and the listeners registered for that player.
//
// Concurrency:
// The host calls handler methods on the player's world goroutine, so listeners
// run inside the world transaction and may touch world state directly.
type Handler struct {
	player.NopHandler

	bus *Bus
	id  uuid.UUID

	// quit runs after the Quit event was published
	quit func(p *player.Player)
}

// Compile-time check that Handler implements player.Handler.
var _ player.Handler = (*Handler)(nil)

// NewHandler creates a handler publishing on bus for the player with id.
func NewHandler(bus *Bus, id uuid.UUID) *Handler {
	return &Handler{bus: bus, id: id}
}

// OnQuit sets a function run after the Quit event was published.
func (h *Handler) OnQuit(fn func(p *player.Player)) *Handler {
	h.quit = fn
	return h
}

// ID returns the UUID events are keyed by.
func (h *Handler) ID() uuid.UUID {
	return h.id
}

// Attach installs a Handler on p and publishes Join. It returns the handler so
// callers can set OnQuit.
func Attach(bus *Bus, p *player.Player) *Handler {
	h := NewHandler(bus, p.UUID())
	p.Handle(h)
	PublishFor(bus, h.id, &Join{Player: p})
	return h
}

func publish[E any](h *Handler, e E) {
	PublishFor(h.bus, h.id, e)
}

func (h *Handler) HandleMove(ctx *player.Context, newPos mgl64.Vec3, newRot cube.Rotation) {
	publish(h, &Move{Vetoable: Vetoable{ctx}, Position: newPos, Rotation: newRot})
}

func (h *Handler) HandleJump(p *player.Player) {
	publish(h, &Jump{Player: p})
}

func (h *Handler) HandleTeleport(ctx *player.Context, pos mgl64.Vec3) {
	publish(h, &Teleport{Vetoable: Vetoable{ctx}, Position: pos})
}

func (h *Handler) HandleChangeWorld(p *player.Player, before, after *world.World) {
	publish(h, &ChangeWorld{Player: p, Before: before, After: after})
}

func (h *Handler) HandleToggleSprint(ctx *player.Context, after bool) {
	publish(h, &ToggleSprint{Vetoable: Vetoable{ctx}, After: after})
}

func (h *Handler) HandleToggleSneak(ctx *player.Context, after bool) {
	publish(h, &ToggleSneak{Vetoable: Vetoable{ctx}, After: after})
}

func (h *Handler) HandleChat(ctx *player.Context, message *string) {
	publish(h, &Chat{Vetoable: Vetoable{ctx}, Message: message})
}

func (h *Handler) HandleFoodLoss(ctx *player.Context, from int, to *int) {
	publish(h, &FoodLoss{Vetoable: Vetoable{ctx}, From: from, To: to})
}

func (h *Handler) HandleHeal(ctx *player.Context, health *float64, src world.HealingSource) {
	publish(h, &Heal{Vetoable: Vetoable{ctx}, Health: health, Source: src})
}

func (h *Handler) HandleHurt(ctx *player.Context, damage *float64, immune bool, attackImmunity *time.Duration, src world.DamageSource) {
	publish(h, &Hurt{Vetoable: Vetoable{ctx}, Damage: damage, Immune: immune, Immunity: attackImmunity, Source: src})
}

func (h *Handler) HandleDeath(p *player.Player, src world.DamageSource, keepInv *bool) {
	publish(h, &Death{Player: p, Source: src, KeepInventory: keepInv})
}

func (h *Handler) HandleRespawn(p *player.Player, pos *mgl64.Vec3, w **world.World) {
	publish(h, &Respawn{Player: p, Position: pos, World: w})
}

func (h *Handler) HandleSkinChange(ctx *player.Context, sk *skin.Skin) {
	publish(h, &SkinChange{Vetoable: Vetoable{ctx}, Skin: sk})
}

func (h *Handler) HandleStartBreak(ctx *player.Context, pos cube.Pos) {
	publish(h, &StartBreak{Vetoable: Vetoable{ctx}, Position: pos})
}

func (h *Handler) HandleBlockBreak(ctx *player.Context, pos cube.Pos, drops *[]item.Stack, xp *int) {
	publish(h, &BlockBreak{Vetoable: Vetoable{ctx}, Position: pos, Drops: drops, Experience: xp})
}

func (h *Handler) HandleBlockPlace(ctx *player.Context, pos cube.Pos, b world.Block) {
	publish(h, &BlockPlace{Vetoable: Vetoable{ctx}, Position: pos, Block: b})
}

func (h *Handler) HandleItemUse(ctx *player.Context) {
	publish(h, &ItemUse{Vetoable: Vetoable{ctx}})
}

func (h *Handler) HandleItemUseOnBlock(ctx *player.Context, pos cube.Pos, face cube.Face, clickPos mgl64.Vec3) {
	publish(h, &ItemUseOnBlock{Vetoable: Vetoable{ctx}, Position: pos, Face: face, ClickPos: clickPos})
}

func (h *Handler) HandleItemUseOnEntity(ctx *player.Context, e world.Entity) {
	publish(h, &ItemUseOnEntity{Vetoable: Vetoable{ctx}, Entity: e})
}

func (h *Handler) HandleItemConsume(ctx *player.Context, it item.Stack) {
	publish(h, &ItemConsume{Vetoable: Vetoable{ctx}, Item: it})
}

func (h *Handler) HandleAttackEntity(ctx *player.Context, e world.Entity, force, height *float64, critical *bool) {
	publish(h, &AttackEntity{Vetoable: Vetoable{ctx}, Entity: e, Force: force, Height: height, Critical: critical})
}

func (h *Handler) HandlePunchAir(ctx *player.Context) {
	publish(h, &PunchAir{Vetoable: Vetoable{ctx}})
}

func (h *Handler) HandleItemPickup(ctx *player.Context, it *item.Stack) {
	publish(h, &ItemPickup{Vetoable: Vetoable{ctx}, Item: it})
}

func (h *Handler) HandleHeldSlotChange(ctx *player.Context, from, to int) {
	publish(h, &HeldSlotChange{Vetoable: Vetoable{ctx}, From: from, To: to})
}

func (h *Handler) HandleItemDrop(ctx *player.Context, it item.Stack) {
	publish(h, &ItemDrop{Vetoable: Vetoable{ctx}, Item: it})
}

func (h *Handler) HandleTransfer(ctx *player.Context, addr *net.UDPAddr) {
	publish(h, &Transfer{Vetoable: Vetoable{ctx}, Address: addr})
}

func (h *Handler) HandleCommandExecution(ctx *player.Context, command cmd.Command, args []string) {
	publish(h, &CommandExecution{Vetoable: Vetoable{ctx}, Command: command, Args: args})
}

// HandleQuit publishes Quit, then runs the OnQuit function.
func (h *Handler) HandleQuit(p *player.Player) {
	publish(h, &Quit{Player: p})
	if h.quit != nil {
		h.quit(p)
	}
}
