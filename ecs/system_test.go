package ecs

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/df-mc/dragonfly/server/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriumgames/flint/task"
)

type Regen struct {
	Amount float64
}

type regenSystem struct {
	Entity *Entity
	Health *Health `ecs:"mut"`
	Mana   *Mana   `ecs:"opt"`
	Config *Regen  `ecs:"res"`
	_      Without[Dead]

	// Bonus is configured when the system is built.
	Bonus float64
	runs  *atomic.Int32
}

func (s *regenSystem) Run(*world.Tx) {
	s.Health.Value += s.Config.Amount + s.Bonus
	if s.Mana != nil {
		s.Mana.Value++
	}
	s.runs.Add(1)
	// Payload changes must not leak into the next run.
	s.Bonus = 100
}

type panicSystem struct {
	Health *Health
}

func (panicSystem) Run(*world.Tx) { panic("system bug") }

type readHealth struct {
	Health *Health
	log    *[]string
	mu     *sync.Mutex
}

func (s *readHealth) Run(*world.Tx) {
	s.mu.Lock()
	*s.log = append(*s.log, "read")
	s.mu.Unlock()
}

type writeHealth struct {
	Health *Health `ecs:"mut"`
	log    *[]string
	mu     *sync.Mutex
}

func (s *writeHealth) Run(*world.Tx) {
	s.mu.Lock()
	*s.log = append(*s.log, "write")
	s.mu.Unlock()
}

func TestSystemRunsForMatchingEntities(t *testing.T) {
	d := task.NewDispatchers(nil)
	w := NewWorld(d)
	exec := newFakeWorld(t)
	require.NoError(t, w.SetResource(&Regen{Amount: 1}))

	a := w.Track(exec, &world.EntityHandle{})
	Add(a, &Health{Value: 10})
	Add(a, &Mana{Value: 0})

	b := w.Track(exec, &world.EntityHandle{})
	Add(b, &Health{Value: 10})

	dead := w.Track(exec, &world.EntityHandle{})
	Add(dead, &Health{Value: 0})
	Add(dead, &Dead{})

	bare := w.Track(exec, &world.EntityHandle{})

	runs := &atomic.Int32{}
	sys, err := NewSystem(&regenSystem{Bonus: 0.5, runs: runs}).Build()
	require.NoError(t, err)
	assert.Equal(t, "ecs.regenSystem", sys.Name())
	w.Register(sys)

	w.Tick()
	w.Tick()
	flush(t, d, exec)

	assert.Equal(t, int32(4), runs.Load())
	assert.Equal(t, 13.0, Get[Health](a).Value)
	assert.Equal(t, 2, Get[Mana](a).Value)
	assert.Equal(t, 13.0, Get[Health](b).Value)
	assert.Nil(t, Get[Mana](b))
	assert.Equal(t, 0.0, Get[Health](dead).Value)
	assert.False(t, Has[Health](bare))
	assert.Equal(t, uint64(2), w.TickNumber())
}

func TestSystemSkippedWithoutResource(t *testing.T) {
	d := task.NewDispatchers(nil)
	w := NewWorld(d)
	exec := newFakeWorld(t)

	e := w.Track(exec, &world.EntityHandle{})
	Add(e, &Health{Value: 1})

	runs := &atomic.Int32{}
	sys, err := NewSystem(&regenSystem{runs: runs}).Build()
	require.NoError(t, err)
	w.Register(sys)

	w.Tick()
	flush(t, d, exec)
	assert.Equal(t, int32(0), runs.Load())
}

func TestSystemEvery(t *testing.T) {
	d := task.NewDispatchers(nil)
	w := NewWorld(d)
	exec := newFakeWorld(t)
	require.NoError(t, w.SetResource(&Regen{Amount: 1}))

	e := w.Track(exec, &world.EntityHandle{})
	Add(e, &Health{})

	runs := &atomic.Int32{}
	sys, err := NewSystem(&regenSystem{runs: runs}).Every(3).Stage(After).Build()
	require.NoError(t, err)
	assert.Equal(t, After, sys.Stage())
	w.Register(sys)

	for range 7 {
		w.Tick()
	}
	flush(t, d, exec)
	// Ticks 0, 3 and 6.
	assert.Equal(t, int32(3), runs.Load())
}

func TestSystemPanicIsContained(t *testing.T) {
	d := task.NewDispatchers(nil)
	w := NewWorld(d)
	exec := newFakeWorld(t)
	require.NoError(t, w.SetResource(&Regen{Amount: 1}))

	e := w.Track(exec, &world.EntityHandle{})
	Add(e, &Health{})

	bad, err := NewSystem(&panicSystem{}).Stage(Before).Build()
	require.NoError(t, err)
	runs := &atomic.Int32{}
	good, err := NewSystem(&regenSystem{runs: runs}).Build()
	require.NoError(t, err)
	w.Register(bad, good)

	w.Tick()
	flush(t, d, exec)
	assert.Equal(t, int32(1), runs.Load())
}

func TestSystemBuildValidation(t *testing.T) {
	_, err := NewSystem(&regenSystem{}).Every(0).Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewSystem(&regenSystem{}).Stage(Stage(9)).Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewSystem((*regenSystem)(nil)).Build()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	sys, err := NewSystem(&regenSystem{}).Name("regen").Build()
	require.NoError(t, err)
	assert.Equal(t, "regen", sys.Name())
	assert.Equal(t, uint64(1), sys.Every())
}

func TestConflictingSystemsAreBatchedApart(t *testing.T) {
	var (
		mu  sync.Mutex
		log []string
	)
	r1, err := NewSystem(&readHealth{log: &log, mu: &mu}).Name("a-read").Build()
	require.NoError(t, err)
	r2, err := NewSystem(&readHealth{log: &log, mu: &mu}).Name("b-read").Build()
	require.NoError(t, err)
	wr, err := NewSystem(&writeHealth{log: &log, mu: &mu}).Name("c-write").Build()
	require.NoError(t, err)

	batches := batch([]*System{wr, r2, r1})
	require.Len(t, batches, 2)
	assert.Equal(t, []*System{r1, r2}, batches[0])
	assert.Equal(t, []*System{wr}, batches[1])

	d := task.NewDispatchers(nil)
	w := NewWorld(d)
	exec := newFakeWorld(t)
	e := w.Track(exec, &world.EntityHandle{})
	Add(e, &Health{})
	w.Register(wr, r1, r2)

	w.Tick()
	flush(t, d, exec)
	assert.Equal(t, []string{"read", "read", "write"}, log)
}

func TestResourceLookup(t *testing.T) {
	w := NewWorld(task.NewDispatchers(nil))
	assert.Nil(t, Resource[Regen](w))

	require.NoError(t, w.SetResource(&Regen{Amount: 2}))
	assert.Equal(t, 2.0, Resource[Regen](w).Amount)

	assert.ErrorIs(t, w.SetResource(Regen{}), ErrInvalidArgument)
}
