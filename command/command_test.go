package command

import (
	"errors"
	"testing"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, b *Builder, input string) *cmd.Output {
	t.Helper()
	n, err := b.node()
	require.NoError(t, err)
	o := &cmd.Output{}
	n.execute(nil, o, nil, input)
	return o
}

func firstError(o *cmd.Output) string {
	if o.ErrorCount() == 0 {
		return ""
	}
	return o.Errors()[0].Error()
}

func TestParsers(t *testing.T) {
	v, err := Int().Parse("42")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	_, err = Int().Parse("4.2")
	assert.Error(t, err)

	v, err = Float().Parse("0.5")
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	v, err = Bool().Parse("ON")
	require.NoError(t, err)
	assert.Equal(t, true, v)
	_, err = Bool().Parse("maybe")
	assert.Error(t, err)

	v, err = Enum("Survival", "Creative").Parse("creative")
	require.NoError(t, err)
	assert.Equal(t, "Creative", v)
	_, err = Enum("Survival").Parse("adventure")
	assert.Error(t, err)
}

func TestLineTokens(t *testing.T) {
	l := &line{s: `  give "diamond sword"  2 rest of it `}
	var toks []string
	for range 3 {
		tok, ok := l.next()
		require.True(t, ok)
		toks = append(toks, tok)
	}
	assert.Equal(t, []string{"give", "diamond sword", "2"}, toks)
	assert.Equal(t, "rest of it", l.remainder())
	assert.True(t, l.empty())
}

func TestExecuteArguments(t *testing.T) {
	var (
		item  string
		count int
		given bool
	)
	b := New("give").
		Arg("item", String()).
		OptionalArg("count", Int()).
		Executes(func(ctx *Context) error {
			var err error
			item, err = Get[string](ctx, "item")
			if err != nil {
				return err
			}
			count, given = Lookup[int](ctx, "count")
			return nil
		})

	o := run(t, b, "apple 3")
	assert.Zero(t, o.ErrorCount())
	assert.Equal(t, "apple", item)
	assert.Equal(t, 3, count)
	assert.True(t, given)

	o = run(t, b, "stone")
	assert.Zero(t, o.ErrorCount())
	assert.Equal(t, "stone", item)
	assert.False(t, given)
}

func TestMissingRequiredArgument(t *testing.T) {
	called := false
	b := New("give").Arg("item", String()).Executes(func(*Context) error {
		called = true
		return nil
	})

	o := run(t, b, "")
	assert.False(t, called)
	assert.Contains(t, firstError(o), "Missing argument item")
	assert.Contains(t, firstError(o), "/give <item: string>")
}

func TestInvalidAndExtraArguments(t *testing.T) {
	b := New("tp").Arg("x", Float()).Executes(func(*Context) error { return nil })

	assert.Contains(t, firstError(run(t, b, "north")), "Invalid x")
	assert.Contains(t, firstError(run(t, b, "1 2")), "Too many arguments")
}

func TestTextArgument(t *testing.T) {
	var msg string
	b := New("say").Arg("message", Text()).Executes(func(ctx *Context) error {
		msg, _ = Lookup[string](ctx, "message")
		return nil
	})

	run(t, b, "hello  there world")
	assert.Equal(t, "hello  there world", msg)
}

func TestSubcommands(t *testing.T) {
	var got []string
	b := New("party").
		Sub(New("invite").Arg("name", String()).Executes(func(ctx *Context) error {
			name, _ := Lookup[string](ctx, "name")
			got = append(got, ctx.Path+" "+name)
			return nil
		})).
		Sub(New("leave").Aliases("quit").Executes(func(ctx *Context) error {
			got = append(got, ctx.Path)
			return nil
		}))

	run(t, b, "invite steve")
	run(t, b, "QUIT")
	assert.Equal(t, []string{"/party invite steve", "/party leave"}, got)

	assert.Contains(t, firstError(run(t, b, "")), "Usage: /party <invite|leave>")
}

func TestExecutorErrorIsReported(t *testing.T) {
	b := New("fail").Executes(func(*Context) error { return errors.New("nope") })
	assert.Equal(t, "nope", firstError(run(t, b, "")))
}

func TestPermissionAndPlayerOnly(t *testing.T) {
	called := false
	exec := func(*Context) error {
		called = true
		return nil
	}

	denied := New("op").Permission(func(cmd.Source) bool { return false }).Executes(exec)
	assert.Contains(t, firstError(run(t, denied, "")), "You cannot use /op")

	// A nil source is not a player.
	players := New("fly").PlayerOnly().Executes(exec)
	assert.NotZero(t, run(t, players, "").ErrorCount())
	assert.False(t, called)
}

func TestBuildValidation(t *testing.T) {
	noop := func(*Context) error { return nil }
	cases := map[string]*Builder{
		"empty name":           New("").Executes(noop),
		"no executor":          New("x"),
		"required after opt":   New("x").OptionalArg("a", Int()).Arg("b", Int()).Executes(noop),
		"duplicate arguments":  New("x").Arg("a", Int()).Arg("a", Int()).Executes(noop),
		"text not last":        New("x").Arg("a", Text()).Arg("b", Int()).Executes(noop),
		"nil parser":           New("x").Arg("a", nil).Executes(noop),
		"invalid subcommand":   New("x").Sub(New("y")),
		"duplicate subcommand": New("x").Sub(New("y").Executes(noop)).Sub(New("z").Aliases("y").Executes(noop)),
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := b.Build()
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	c, err := New("ok").Description("fine").Aliases("k").Executes(noop).Build()
	require.NoError(t, err)
	assert.Equal(t, "ok", c.Name())
	// The host lists the command name among its aliases.
	assert.ElementsMatch(t, []string{"k", "ok"}, c.Aliases())
}

func TestContextNilSafety(t *testing.T) {
	var ctx *Context
	assert.Nil(t, ctx.Player())
	ctx.Reply("ignored")
	_, ok := Lookup[int](ctx, "a")
	assert.False(t, ok)
	_, err := Get[int](ctx, "a")
	assert.ErrorIs(t, err, ErrArgumentMissing)

	ctx = &Context{args: map[string]any{"a": "text"}}
	_, err = Get[int](ctx, "a")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
