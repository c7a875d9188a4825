// Package interaction builds item interactions out of small steps and runs
// them as behaviour trees on the world goroutine of the player using them.
//
// Steps are configured by field name. Every step embeds Simple, which embeds
// Base, so fields of those types ("id", "tags", "next", "failed") can be set on
// any step:
//
//	hit, _ := interaction.New[interaction.Damage]().
//	    Set("id", "slash").
//	    Set("amount", 6.0).
//	    Set("force", 0.4).
//	    Build()
//	cd, _ := interaction.New[interaction.Cooldown]().
//	    Set("duration", time.Second).
//	    Set("next", hit).
//	    Build()
//
//	g, _ := interaction.NewGraph("slash", cd).On(interaction.Primary).Build()
//	_ = registry.Register(g)
//	sword, _ = interaction.Bind(sword, g)
//
// A Runtime listening on an event bus starts the bound graph whenever a player
// uses the item, ticking it once per world tick until it completes.
package interaction
