package interaction

import (
	"fmt"
	"slices"
	"sync"

	"github.com/df-mc/dragonfly/server/item"

	"github.com/oriumgames/flint/itemstack"
)

// Type is the player action that starts a graph.
type Type uint8

const (
	// Primary is an attack or a punch into the air.
	Primary Type = iota
	// Secondary is using the held item.
	Secondary
	// UseBlock is using the held item on a block.
	UseBlock
	// UseEntity is using the held item on an entity.
	UseEntity
	// Consume is finishing eating or drinking the held item.
	Consume
	typeCount
)

func (t Type) String() string {
	switch t {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	case UseBlock:
		return "use_block"
	case UseEntity:
		return "use_entity"
	case Consume:
		return "consume"
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Graph is a root node bound to the interaction types that start it.
type Graph struct {
	id    string
	root  Node
	types []Type
}

// ID returns the graph id.
func (g *Graph) ID() string { return g.id }

// Root returns the root node.
func (g *Graph) Root() Node { return g.root }

// Types returns the interaction types the graph runs for.
func (g *Graph) Types() []Type { return slices.Clone(g.types) }

// Handles reports whether the graph runs for t.
func (g *Graph) Handles(t Type) bool {
	return slices.Contains(g.types, t)
}

// GraphBuilder configures a Graph.
type GraphBuilder struct {
	id    string
	root  Node
	types []Type
}

// NewGraph starts a graph called id running root.
func NewGraph(id string, root Node) *GraphBuilder {
	return &GraphBuilder{id: id, root: root}
}

// On adds interaction types that start the graph.
func (b *GraphBuilder) On(types ...Type) *GraphBuilder {
	b.types = append(b.types, types...)
	return b
}

// Build validates the graph. A graph needs an id, a root and at least one
// interaction type.
func (b *GraphBuilder) Build() (*Graph, error) {
	if b.id == "" {
		return nil, fmt.Errorf("%w: graph id is empty", ErrInvalidArgument)
	}
	if b.root == nil {
		return nil, fmt.Errorf("%w: graph %s has no root", ErrInvalidArgument, b.id)
	}
	if len(b.types) == 0 {
		return nil, fmt.Errorf("%w: graph %s has no interaction types", ErrInvalidArgument, b.id)
	}
	types := make([]Type, 0, len(b.types))
	for _, t := range b.types {
		if t >= typeCount {
			return nil, fmt.Errorf("%w: graph %s: unknown interaction type %d", ErrInvalidArgument, b.id, t)
		}
		if !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	return &Graph{id: b.id, root: b.root, types: types}, nil
}

// binding is the item metadata naming the graph an item runs.
var binding = itemstack.NewKey[string]("flint:interaction")

// Bind returns s running g when used.
func Bind(s item.Stack, g *Graph) (item.Stack, error) {
	if g == nil {
		return s, fmt.Errorf("%w: nil graph", ErrInvalidArgument)
	}
	return binding.Set(s, g.id)
}

// Unbind removes the graph binding from s.
func Unbind(s item.Stack) item.Stack {
	return binding.Delete(s)
}

// Registry holds graphs by id.
type Registry struct {
	mu     sync.RWMutex
	graphs map[string]*Graph
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{graphs: make(map[string]*Graph)}
}

// Register adds graphs. Registering an id twice fails and adds nothing.
func (r *Registry) Register(graphs ...*Graph) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, g := range graphs {
		if g == nil {
			return fmt.Errorf("%w: nil graph", ErrInvalidArgument)
		}
		_, dup := r.graphs[g.id]
		if dup || slices.ContainsFunc(graphs[:i], func(o *Graph) bool { return o.id == g.id }) {
			return fmt.Errorf("%w: graph %s already registered", ErrInvalidArgument, g.id)
		}
	}
	for _, g := range graphs {
		r.graphs[g.id] = g
	}
	return nil
}

// Unregister removes the graph with id.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.graphs, id)
	r.mu.Unlock()
}

// Graph returns the graph with id.
func (r *Registry) Graph(id string) (*Graph, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.graphs[id]
	return g, ok
}

// Bound returns the registered graph s is bound to.
func (r *Registry) Bound(s item.Stack) (*Graph, bool) {
	if s.Empty() {
		return nil, false
	}
	id, ok := binding.Get(s)
	if !ok {
		return nil, false
	}
	return r.Graph(id)
}

// Len returns the number of graphs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.graphs)
}
