package main

import (
	"errors"
	"time"

	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/item/enchantment"
	"github.com/df-mc/dragonfly/server/player/form"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/oriumgames/flint"
	"github.com/oriumgames/flint/command"
	"github.com/oriumgames/flint/ecs"
	"github.com/oriumgames/flint/interaction"
	"github.com/oriumgames/flint/itemstack"
	"github.com/oriumgames/flint/ui"
)

var errNoMana = errors.New("not enough mana")

// Mana is the spell resource of a player.
type Mana struct {
	Value float64
	Max   float64
}

// Settings tunes the demo plugin.
type Settings struct {
	MaxMana   float64
	Regen     float64
	BoltCost  float64
	BoltDmg   float64
	BoltDelay time.Duration
}

type manaRegen struct {
	Mana     *Mana     `ecs:"mut"`
	Settings *Settings `ecs:"res"`
}

func (s *manaRegen) Run(*world.Tx) {
	s.Mana.Value = min(s.Mana.Max, s.Mana.Value+s.Settings.Regen)
}

// charges marks wands and counts the bolts they fired.
var charges = itemstack.NewKey[int]("flintd:charges")

type demo struct {
	settings Settings
	rt       *flint.Runtime
	bolt     *interaction.GraphBuilder
}

func newDemo() (*demo, error) {
	d := &demo{settings: Settings{
		MaxMana:   20,
		Regen:     1,
		BoltCost:  5,
		BoltDmg:   4,
		BoltDelay: time.Second,
	}}
	root, err := d.boltGraph()
	if err != nil {
		return nil, err
	}
	d.bolt = interaction.NewGraph("bolt", root).On(interaction.Secondary, interaction.UseEntity)
	return d, nil
}

func (d *demo) plugin(rt *flint.Runtime) *flint.Plugin {
	d.rt = rt
	return flint.NewPlugin("demo").
		System(ecs.NewSystem(&manaRegen{}).Every(int(rt.Rate()))).
		Graph(d.bolt).
		Command(d.command())
}

func (d *demo) join(e *ecs.Entity) {
	ecs.Add(e, &Mana{Value: d.settings.MaxMana, Max: d.settings.MaxMana})
}

func (d *demo) boltGraph() (interaction.Node, error) {
	empty, err := interaction.New[interaction.Message]().
		Set("text", "§cNot enough mana.").
		Build()
	if err != nil {
		return nil, err
	}
	cooldown, err := interaction.New[interaction.Cooldown]().
		Set("key", "bolt").
		Set("duration", d.settings.BoltDelay).
		Build()
	if err != nil {
		return nil, err
	}
	spend, err := interaction.New[interaction.Action]().
		Set("id", "spend").
		Set("run", d.spend).
		Set("failed", empty).
		Build()
	if err != nil {
		return nil, err
	}
	missed, err := interaction.New[interaction.Message]().
		Set("text", "§7The bolt fizzles.").
		Build()
	if err != nil {
		return nil, err
	}
	hit, err := interaction.New[interaction.Damage]().
		Set("amount", d.settings.BoltDmg).
		Set("force", 0.4).
		Set("height", 0.3).
		Set("failed", missed).
		Build()
	if err != nil {
		return nil, err
	}
	root, err := interaction.New[interaction.Serial]().
		Set("id", "bolt").
		Set("children", []interaction.Node{cooldown, spend, hit}).
		Build()
	if err != nil {
		return nil, err
	}
	return root, nil
}

func (d *demo) spend(c *interaction.Context) error {
	e, ok := d.rt.World().Entity(c.User)
	if !ok {
		return errNoMana
	}
	m := ecs.Get[Mana](e)
	if m == nil || m.Value < d.settings.BoltCost {
		return errNoMana
	}
	m.Value -= d.settings.BoltCost

	if p := c.Player(); p != nil {
		n, _ := charges.Get(c.Item)
		if s, err := charges.Set(c.Item, n+1); err == nil {
			_, off := p.HeldItems()
			p.SetHeldItems(s, off)
		}
	}
	return nil
}

func (d *demo) wand() (item.Stack, error) {
	b := itemstack.New(item.BlazeRod{}).
		Name("§6Bolt Wand").
		Lore("§7Use to cast a bolt.").
		Enchant(enchantment.Unbreaking, 1)
	s, err := itemstack.Meta(b, charges, 0).Build()
	if err != nil {
		return item.Stack{}, err
	}
	g, err := d.bolt.Build()
	if err != nil {
		return item.Stack{}, err
	}
	return interaction.Bind(s, g)
}

func (d *demo) command() *command.Builder {
	return command.New("flint").
		Description("Flint demo commands").
		Sub(command.New("version").Executes(func(c *command.Context) error {
			c.Reply("Flint %s", flint.Version)
			return nil
		})).
		Sub(command.New("wand").PlayerOnly().Executes(func(c *command.Context) error {
			s, err := d.wand()
			if err != nil {
				return err
			}
			if _, err := c.Player().Inventory().AddItem(s); err != nil {
				return errors.New("inventory full")
			}
			c.Reply("Here is your wand.")
			return nil
		})).
		Sub(command.New("mana").PlayerOnly().
			OptionalArg("amount", command.Float()).
			Executes(d.mana)).
		Sub(command.New("menu").PlayerOnly().Executes(func(c *command.Context) error {
			m, err := d.menu()
			if err != nil {
				return err
			}
			c.Player().SendForm(m)
			return nil
		}))
}

func (d *demo) mana(c *command.Context) error {
	e, ok := d.rt.EntityOf(c.Player())
	if !ok {
		return errors.New("you are not tracked")
	}
	m := ecs.Get[Mana](e)
	if m == nil {
		return errors.New("you have no mana")
	}
	if v, ok := command.Lookup[float64](c, "amount"); ok {
		m.Value = min(max(v, 0), m.Max)
	}
	c.Reply("Mana: %.0f/%.0f", m.Value, m.Max)
	return nil
}

func (d *demo) menu() (form.Menu, error) {
	return ui.NewMenu("Flint").
		Body("Pick an option.").
		Button("Get wand", "textures/items/blaze_rod", func(e *ui.Event) {
			p := e.Player()
			s, err := d.wand()
			if p == nil || err != nil {
				return
			}
			_, _ = p.Inventory().AddItem(s)
		}).
		Button("Reset mana", "", func(e *ui.Event) {
			confirm, err := ui.NewModal("Reset mana").
				Body("Refill your mana?").
				Confirm("Yes", func(e *ui.Event) {
					if en, ok := d.rt.EntityOf(e.Player()); ok {
						if m := ecs.Get[Mana](en); m != nil {
							m.Value = m.Max
						}
					}
				}).
				Cancel("No", nil).
				Build()
			if p := e.Player(); p != nil && err == nil {
				p.SendForm(confirm)
			}
		}).
		Build()
}
