package pcfg

import (
	"sort"
)

// directedGraph is a directed graph over symbol ids. The rule store builds it
// from unary chain rules (lhs -> child) to order unary closure and to find
// cyclic chains.
type directedGraph struct {
	arcs     map[int]map[int]bool
	vertices map[int]bool
}

// newDirectedGraph creates a new directedGraph
func newDirectedGraph() *directedGraph {
	return &directedGraph{
		arcs:     map[int]map[int]bool{},
		vertices: map[int]bool{},
	}
}

// add adds an arc into graph
func (g *directedGraph) add(s, t int) {
	if g.arcs[s] == nil {
		g.arcs[s] = map[int]bool{}
	}
	g.arcs[s][t] = true
	g.vertices[s] = true
	g.vertices[t] = true
}

// hasArc returns whether arc (s, t) exists in this graph
func (g *directedGraph) hasArc(s, t int) bool {
	return g.arcs[s][t]
}

// sortedVertices returns the vertices in ascending order, so that traversals
// are deterministic
func (g *directedGraph) sortedVertices() []int {
	vs := make([]int, 0, len(g.vertices))
	for v := range g.vertices {
		vs = append(vs, v)
	}
	sort.Ints(vs)
	return vs
}

// successors returns the targets of arcs leaving s in ascending order
func (g *directedGraph) successors(s int) []int {
	ts := make([]int, 0, len(g.arcs[s]))
	for t := range g.arcs[s] {
		ts = append(ts, t)
	}
	sort.Ints(ts)
	return ts
}

// dfs runs depth-first search from s and returns the vertices in the order
// they finish. It will not visit the vertices where visited[v] == true, and
// updates visited when done. The stack is explicit, long unary chains do not
// grow the goroutine stack.
func (g *directedGraph) dfs(s int, visited map[int]bool) []int {
	if visited[s] || !g.vertices[s] {
		return nil
	}
	type frame struct {
		v    int
		next []int
	}
	order := []int{}
	visited[s] = true
	stack := []frame{{s, g.successors(s)}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if len(top.next) == 0 {
			order = append(order, top.v)
			stack = stack[:len(stack)-1]
			continue
		}
		t := top.next[0]
		top.next = top.next[1:]
		if !visited[t] {
			visited[t] = true
			stack = append(stack, frame{t, g.successors(t)})
		}
	}
	return order
}

// topologicalSort sorts the graph by topological order: for every arc (s, t)
// outside a cycle, s comes before t
func (g *directedGraph) topologicalSort() []int {
	visited := map[int]bool{}
	finished := []int{}
	for _, v := range g.sortedVertices() {
		finished = append(finished, g.dfs(v, visited)...)
	}
	// reversed finishing order
	for i, j := 0, len(finished)-1; i < j; i, j = i+1, j-1 {
		finished[i], finished[j] = finished[j], finished[i]
	}
	return finished
}

// transpose returns the reversed graph of g
func (g *directedGraph) transpose() *directedGraph {
	reversed := newDirectedGraph()
	for v := range g.vertices {
		reversed.vertices[v] = true
	}
	for s, targets := range g.arcs {
		for t := range targets {
			reversed.add(t, s)
		}
	}
	return reversed
}

// strongComponents finds strongly connected components with Kosaraju's
// algorithm. Single vertices are only reported when they have a self loop.
func (g *directedGraph) strongComponents() [][]int {
	visited := map[int]bool{}
	components := [][]int{}
	gt := g.transpose()
	for _, v := range g.topologicalSort() {
		if visited[v] {
			continue
		}
		component := gt.dfs(v, visited)
		if len(component) == 1 && !g.hasArc(v, v) {
			continue
		}
		sort.Ints(component)
		components = append(components, component)
	}
	return components
}
