// Package command declares Dragonfly commands with a fluent builder instead of
// one struct type per signature.
//
//	command.New("heal").
//	    Description("Heal a player").
//	    OptionalArg("amount", command.Float()).
//	    PlayerOnly().
//	    Executes(func(ctx *command.Context) error {
//	        amount, ok := command.Lookup[float64](ctx, "amount")
//	        if !ok {
//	            amount = 20
//	        }
//	        ctx.Player().Heal(amount, effect.InstantHealingSource{})
//	        return nil
//	    })
package command
