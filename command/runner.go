package command

import (
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
)

// runner adapts a node to Dragonfly's reflective command parsing. The whole
// argument line is taken as one value and parsed by the node.
type runner struct {
	root *node

	Args cmd.Optional[cmd.Varargs] `cmd:"args"`
}

var (
	_ cmd.Runnable = runner{}
	_ cmd.Allower  = runner{}
)

// Run parses the argument line and runs the matching executor.
func (r runner) Run(src cmd.Source, o *cmd.Output, tx *world.Tx) {
	args, _ := r.Args.Load()
	r.root.execute(src, o, tx, string(args))
}

// Allow hides the command from sources the root node refuses.
func (r runner) Allow(src cmd.Source) bool {
	return r.root.allow(src)
}

func (n *node) execute(src cmd.Source, o *cmd.Output, tx *world.Tx, input string) {
	l := &line{s: input}
	cur, path := n, "/"+n.name
	for {
		if !cur.allow(src) {
			o.Errorf("You cannot use %s.", path)
			return
		}
		tok, ok := l.peek()
		if !ok {
			break
		}
		sub := cur.sub(tok)
		if sub == nil {
			break
		}
		l.next()
		cur, path = sub, path+" "+sub.name
	}
	if cur.exec == nil {
		o.Errorf("Usage: %s", cur.usage(path))
		return
	}

	ctx := &Context{Source: src, Output: o, Tx: tx, Path: path, args: make(map[string]any, len(cur.args))}
	for _, a := range cur.args {
		var (
			tok string
			ok  bool
		)
		if _, r := a.parser.(rest); r {
			tok = l.remainder()
			ok = tok != ""
		} else {
			tok, ok = l.next()
		}
		if !ok {
			if a.optional {
				break
			}
			o.Errorf("Missing argument %s. Usage: %s", a.name, cur.usage(path))
			return
		}
		v, err := a.parser.Parse(tok)
		if err != nil {
			o.Errorf("Invalid %s: %v", a.name, err)
			return
		}
		ctx.args[a.name] = v
	}
	if !l.empty() {
		o.Errorf("Too many arguments. Usage: %s", cur.usage(path))
		return
	}
	if err := cur.exec(ctx); err != nil {
		o.Error(err)
	}
}
