// Package flint ties the Flint building blocks to a Dragonfly server.
//
// Flint is a convenience layer over Dragonfly that provides:
//   - Per-world dispatchers and cancellable task scopes per plugin
//   - An ECS keyed by entity handles, with injected systems run every tick
//   - Typed events published from player handlers
//   - Builders for commands, item stacks, forms and item interactions
//
// # Quick Start
//
//	combat := flint.NewPlugin("combat").
//	    System(ecs.NewSystem(&Regen{}).Every(20)).
//	    Command(command.New("heal").Executes(heal)).
//	    Graph(interaction.NewGraph("slash", slash).On(interaction.Primary))
//
//	rt, err := flint.NewBuilder().
//	    Config(cfg).
//	    Plugin(combat.Build()).
//	    Init()
//	if err != nil {
//	    return err
//	}
//	defer rt.Shutdown()
//
//	for p := range srv.Accept() {
//	    e := rt.Join(p, srv.World())
//	    ecs.Add(e, &Health{Value: 20})
//	}
//
// # Threading
//
// Entity and world state may only be touched inside world transactions:
// player handlers, commands, forms, systems and units handed to a world with
// task.OnWorld. Plugin tasks run on the CPU pool and hand work to worlds
// through the runtime's dispatchers.
package flint

// Version is the Flint version.
const Version = "0.1.0"
