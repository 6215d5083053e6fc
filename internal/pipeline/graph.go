package pipeline

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tashkeelcards/internal/ports"
)

// Pseudo-node names anchoring the start and end of every graph.
const (
	Entry = "__entry__"
	Exit  = "__exit__"
)

// StageFunc computes a partial update from the current state.
type StageFunc func(ctx context.Context, state State, gen ports.TextGenerator) (Update, error)

// Node is one stage of the graph.
type Node struct {
	Name     string
	Requires []Field
	Produces []Field
	Run      StageFunc
}

// Edge is a directed dependency From -> To.
type Edge struct {
	From string
	To   string
}

// Option tunes graph execution.
type Option func(*Graph)

// WithGenerator sets the text generator handed to every stage.
func WithGenerator(gen ports.TextGenerator) Option {
	return func(g *Graph) { g.gen = gen }
}

// WithConcurrency runs nodes of the same depth in parallel when enabled.
func WithConcurrency(enabled bool) Option {
	return func(g *Graph) { g.concurrent = enabled }
}

// WithLogger attaches a logger for per-node debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// Graph is a validated, immutable stage DAG.
type Graph struct {
	nodes    []Node
	index    map[string]int
	outgoing [][]int
	incoming [][]int
	indeg    []int
	order    []int
	depth    []int
	levels   [][]int

	gen        ports.TextGenerator
	concurrent bool
	logger     *slog.Logger
}

// NewGraph validates nodes and edges and precomputes the execution plan.
func NewGraph(nodes []Node, edges []Edge, opts ...Option) (*Graph, error) {
	g := &Graph{logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	if err := g.addNodes(nodes); err != nil {
		return nil, err
	}
	if err := g.addEdges(edges); err != nil {
		return nil, err
	}
	if err := g.plan(); err != nil {
		return nil, err
	}
	if err := g.checkFields(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) addNodes(nodes []Node) error {
	if len(nodes) == 0 {
		return invalidf("graph has no nodes")
	}
	g.nodes = make([]Node, len(nodes))
	g.index = make(map[string]int, len(nodes))
	for i, n := range nodes {
		switch {
		case n.Name == "":
			return invalidf("node %d has an empty name", i)
		case n.Name == Entry || n.Name == Exit:
			return invalidf("node name %q is reserved", n.Name)
		case n.Run == nil:
			return invalidf("node %q has no run function", n.Name)
		}
		if _, dup := g.index[n.Name]; dup {
			return invalidf("duplicate node %q", n.Name)
		}
		g.index[n.Name] = i
		g.nodes[i] = n
	}
	g.outgoing = make([][]int, len(nodes))
	g.incoming = make([][]int, len(nodes))
	g.indeg = make([]int, len(nodes))
	return nil
}

func (g *Graph) addEdges(edges []Edge) error {
	fromEntry := make([]bool, len(g.nodes))
	toExit := make([]bool, len(g.nodes))
	seen := make(map[Edge]bool, len(edges))

	for _, e := range edges {
		if seen[e] {
			return invalidf("duplicate edge %s -> %s", e.From, e.To)
		}
		seen[e] = true

		if e.From == e.To {
			return invalidf("self-loop on %q", e.From)
		}
		if e.From == Exit || e.To == Entry {
			return invalidf("edge %s -> %s runs against the graph direction", e.From, e.To)
		}
		if e.From == Entry && e.To == Exit {
			return invalidf("edge %s -> %s skips every node", e.From, e.To)
		}

		switch {
		case e.From == Entry:
			to, ok := g.index[e.To]
			if !ok {
				return invalidf("edge target %q is unknown", e.To)
			}
			fromEntry[to] = true
		case e.To == Exit:
			from, ok := g.index[e.From]
			if !ok {
				return invalidf("edge source %q is unknown", e.From)
			}
			toExit[from] = true
		default:
			from, ok := g.index[e.From]
			if !ok {
				return invalidf("edge source %q is unknown", e.From)
			}
			to, ok := g.index[e.To]
			if !ok {
				return invalidf("edge target %q is unknown", e.To)
			}
			g.outgoing[from] = append(g.outgoing[from], to)
			g.incoming[to] = append(g.incoming[to], from)
			g.indeg[to]++
		}
	}

	for i, n := range g.nodes {
		if !fromEntry[i] && len(g.incoming[i]) == 0 {
			return invalidf("node %q is not reachable from %s", n.Name, Entry)
		}
		if !toExit[i] && len(g.outgoing[i]) == 0 {
			return invalidf("node %q does not lead to %s", n.Name, Exit)
		}
	}
	return nil
}

// plan computes a deterministic topological order with Kahn's algorithm and
// groups nodes by their longest distance from the entry.
func (g *Graph) plan() error {
	indeg := make([]int, len(g.indeg))
	copy(indeg, g.indeg)

	ready := &intMinHeap{}
	for i, d := range indeg {
		if d == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]int, 0, len(g.nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		order = append(order, n)
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	if len(order) != len(g.nodes) {
		return kindf(ErrCycle, "%s", strings.Join(g.findCycle(), " -> "))
	}

	g.order = order
	g.depth = make([]int, len(g.nodes))
	maxDepth := 0
	for _, n := range order {
		d := 1
		for _, p := range g.incoming[n] {
			if g.depth[p]+1 > d {
				d = g.depth[p] + 1
			}
		}
		g.depth[n] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	g.levels = make([][]int, maxDepth)
	for _, n := range order {
		g.levels[g.depth[n]-1] = append(g.levels[g.depth[n]-1], n)
	}
	for _, level := range g.levels {
		slices.Sort(level)
	}
	return nil
}

// checkFields verifies every required field is produced by an ancestor or the
// entry, and that no field has two producers.
func (g *Graph) checkFields() error {
	producer := map[Field]string{FieldArabic: Entry}
	for _, n := range g.nodes {
		for _, f := range n.Produces {
			if owner, ok := producer[f]; ok {
				return invalidf("field %s is produced by both %s and %s", f, owner, n.Name)
			}
			producer[f] = n.Name
		}
	}

	available := make([]map[Field]bool, len(g.nodes))
	for _, n := range g.order {
		avail := map[Field]bool{FieldArabic: true}
		for _, p := range g.incoming[n] {
			for f := range available[p] {
				avail[f] = true
			}
			for _, f := range g.nodes[p].Produces {
				avail[f] = true
			}
		}
		available[n] = avail

		for _, f := range g.nodes[n].Requires {
			if !avail[f] {
				return invalidf("node %q requires %s, which no ancestor produces", g.nodes[n].Name, f)
			}
		}
	}
	return nil
}

// Order returns node names in execution order.
func (g *Graph) Order() []string {
	out := make([]string, len(g.order))
	for i, n := range g.order {
		out[i] = g.nodes[n].Name
	}
	return out
}

// Levels returns node names grouped by depth.
func (g *Graph) Levels() [][]string {
	out := make([][]string, len(g.levels))
	for i, level := range g.levels {
		for _, n := range level {
			out[i] = append(out[i], g.nodes[n].Name)
		}
	}
	return out
}

// Depth returns the longest distance of a node from the entry.
func (g *Graph) Depth(name string) (int, bool) {
	i, ok := g.index[name]
	if !ok {
		return 0, false
	}
	return g.depth[i], true
}

// Invoke runs every node once, level by level, and returns the final state.
// Updates of a level are merged in canonical node order once the whole level
// has finished, so results do not depend on scheduling.
func (g *Graph) Invoke(ctx context.Context, state State) (State, error) {
	for _, level := range g.levels {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		updates, err := g.runLevel(ctx, level, state)
		if err != nil {
			return state, err
		}

		for i, n := range level {
			next, err := state.Apply(updates[i])
			if err != nil {
				return state, fmt.Errorf("node %s: %w", g.nodes[n].Name, err)
			}
			state = next
		}
	}
	return state, nil
}

func (g *Graph) runLevel(ctx context.Context, level []int, state State) ([]Update, error) {
	updates := make([]Update, len(level))

	if !g.concurrent || len(level) == 1 {
		for i, n := range level {
			u, err := g.runNode(ctx, g.nodes[n], state)
			if err != nil {
				return nil, err
			}
			updates[i] = u
		}
		return updates, nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for i, n := range level {
		node := g.nodes[n]
		group.Go(func() error {
			u, err := g.runNode(groupCtx, node, state)
			if err != nil {
				return err
			}
			updates[i] = u
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return updates, nil
}

func (g *Graph) runNode(ctx context.Context, node Node, state State) (Update, error) {
	if missing := state.Missing(node.Requires...); len(missing) > 0 {
		return Update{}, kindf(ErrMissingInput, "node %s needs %s", node.Name, fieldNames(missing))
	}

	start := time.Now()
	u, err := node.Run(ctx, state, g.gen)
	if err != nil {
		return Update{}, fmt.Errorf("node %s: %w", node.Name, err)
	}

	declared := make(map[Field]bool, len(node.Produces))
	for _, f := range node.Produces {
		declared[f] = true
	}
	for _, f := range u.Fields() {
		if !declared[f] {
			return Update{}, kindf(ErrUndeclaredField, "node %s set %s", node.Name, f)
		}
	}

	g.logger.Debug("stage finished", "node", node.Name, "duration", time.Since(start))
	return u, nil
}

// findCycle performs a deterministic DFS over declaration order and returns one
// cycle path as node names, closing on its first node.
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(g.nodes))
	parent := make([]int, len(g.nodes))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range g.nodes {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.nodes[cycle[i]].Name)
	}
	return out
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
