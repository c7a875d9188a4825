// Package itemstack builds Dragonfly item stacks and attaches typed,
// NBT-encoded metadata to them.
//
//	wand := itemstack.NewKey[string]("myplugin:wand")
//
//	s, err := itemstack.Meta(itemstack.New(item.Stick{}).Name("Wand"), wand, "fireball").Build()
//	if err != nil {
//	    return err
//	}
//	spell, ok := wand.Get(s)
package itemstack
