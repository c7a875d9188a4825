package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
)

// ErrInvalidArgument is returned by Build for malformed command definitions.
var ErrInvalidArgument = errors.New("command: invalid argument")

// Executor runs a command. A returned error is shown to the source.
type Executor func(ctx *Context) error

type argSpec struct {
	name     string
	parser   Parser
	optional bool
}

// Builder defines a command or subcommand.
type Builder struct {
	name        string
	description string
	aliases     []string
	permission  func(cmd.Source) bool
	playerOnly  bool
	args        []argSpec
	subs        []*Builder
	exec        Executor
}

// New starts a command named name.
func New(name string) *Builder {
	return &Builder{name: name}
}

// Description sets the help text.
func (b *Builder) Description(d string) *Builder {
	b.description = d
	return b
}

// Aliases sets alternative names. The built cmd.Command also reports its own
// name in Aliases, as Dragonfly adds it there.
func (b *Builder) Aliases(aliases ...string) *Builder {
	b.aliases = aliases
	return b
}

// Permission hides and refuses the command for sources allow rejects.
func (b *Builder) Permission(allow func(cmd.Source) bool) *Builder {
	b.permission = allow
	return b
}

// PlayerOnly refuses the command for non-player sources.
func (b *Builder) PlayerOnly() *Builder {
	b.playerOnly = true
	return b
}

// Arg appends a required argument.
func (b *Builder) Arg(name string, p Parser) *Builder {
	b.args = append(b.args, argSpec{name: name, parser: p})
	return b
}

// OptionalArg appends an optional argument. Only optional arguments may follow.
func (b *Builder) OptionalArg(name string, p Parser) *Builder {
	b.args = append(b.args, argSpec{name: name, parser: p, optional: true})
	return b
}

// Sub adds a subcommand, selected by its name as the first token.
func (b *Builder) Sub(sub *Builder) *Builder {
	b.subs = append(b.subs, sub)
	return b
}

// Executes sets the function run when no subcommand matches.
func (b *Builder) Executes(fn Executor) *Builder {
	b.exec = fn
	return b
}

// Build validates the definition and returns a Dragonfly command.
func (b *Builder) Build() (cmd.Command, error) {
	n, err := b.node()
	if err != nil {
		return cmd.Command{}, err
	}
	return cmd.New(n.name, n.description, n.aliases, runner{root: n}), nil
}

// Register builds every builder and registers the commands with the server.
func Register(builders ...*Builder) error {
	cmds := make([]cmd.Command, 0, len(builders))
	for _, b := range builders {
		c, err := b.Build()
		if err != nil {
			return err
		}
		cmds = append(cmds, c)
	}
	for _, c := range cmds {
		cmd.Register(c)
	}
	return nil
}

// node is a validated, immutable copy of a Builder.
type node struct {
	name        string
	description string
	aliases     []string
	permission  func(cmd.Source) bool
	playerOnly  bool
	args        []argSpec
	subs        []*node
	exec        Executor
}

func (b *Builder) node() (*node, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil builder", ErrInvalidArgument)
	}
	if strings.TrimSpace(b.name) == "" || strings.ContainsAny(b.name, " \t") {
		return nil, fmt.Errorf("%w: invalid command name %q", ErrInvalidArgument, b.name)
	}
	if b.exec == nil && len(b.subs) == 0 {
		return nil, fmt.Errorf("%w: command %s has no executor and no subcommands", ErrInvalidArgument, b.name)
	}

	n := &node{
		name:        b.name,
		description: b.description,
		aliases:     append([]string(nil), b.aliases...),
		permission:  b.permission,
		playerOnly:  b.playerOnly,
		args:        append([]argSpec(nil), b.args...),
		exec:        b.exec,
	}

	seen := make(map[string]struct{}, len(b.args))
	optional := false
	for i, a := range b.args {
		if a.name == "" || a.parser == nil {
			return nil, fmt.Errorf("%w: command %s: argument %d needs a name and a parser", ErrInvalidArgument, b.name, i)
		}
		if _, dup := seen[a.name]; dup {
			return nil, fmt.Errorf("%w: command %s: duplicate argument %q", ErrInvalidArgument, b.name, a.name)
		}
		seen[a.name] = struct{}{}
		if optional && !a.optional {
			return nil, fmt.Errorf("%w: command %s: required argument %q follows an optional one", ErrInvalidArgument, b.name, a.name)
		}
		optional = optional || a.optional
		if _, ok := a.parser.(rest); ok && i != len(b.args)-1 {
			return nil, fmt.Errorf("%w: command %s: text argument %q must be last", ErrInvalidArgument, b.name, a.name)
		}
	}

	names := make(map[string]struct{}, len(b.subs))
	for _, s := range b.subs {
		sn, err := s.node()
		if err != nil {
			return nil, fmt.Errorf("command %s: %w", b.name, err)
		}
		for _, name := range append([]string{sn.name}, sn.aliases...) {
			if _, dup := names[name]; dup {
				return nil, fmt.Errorf("%w: command %s: duplicate subcommand %q", ErrInvalidArgument, b.name, name)
			}
			names[name] = struct{}{}
		}
		n.subs = append(n.subs, sn)
	}
	return n, nil
}

func (n *node) sub(tok string) *node {
	for _, s := range n.subs {
		if strings.EqualFold(s.name, tok) {
			return s
		}
		for _, a := range s.aliases {
			if strings.EqualFold(a, tok) {
				return s
			}
		}
	}
	return nil
}

func (n *node) allow(src cmd.Source) bool {
	if n.permission != nil && !n.permission(src) {
		return false
	}
	if n.playerOnly {
		_, ok := playerOf(src)
		return ok
	}
	return true
}

// usage renders the argument list of n, for example "give <item: string> [count: int]".
func (n *node) usage(path string) string {
	var sb strings.Builder
	sb.WriteString(path)
	for _, a := range n.args {
		open, closing := "<", ">"
		if a.optional {
			open, closing = "[", "]"
		}
		sb.WriteString(" " + open + a.name + ": " + a.parser.Type() + closing)
	}
	if len(n.subs) > 0 {
		names := make([]string, len(n.subs))
		for i, s := range n.subs {
			names[i] = s.name
		}
		sb.WriteString(" <" + strings.Join(names, "|") + ">")
	}
	return sb.String()
}
