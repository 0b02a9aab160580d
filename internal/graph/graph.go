// Package graph provides the task dependency DAG used for plan validation
// and scheduling.
package graph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCycleDetected indicates a circular dependency in the plan. Cycles are
// never auto-repaired; guessing intent there is unsafe.
var ErrCycleDetected = errors.New("circular dependency detected")

// Node is the minimal view of a task the graph needs.
type Node struct {
	ID        string
	DependsOn []string
}

// Graph is a directed acyclic graph of task dependencies. Edges point from a
// task to the tasks it is blocked by.
type Graph struct {
	nodes map[string]Node
	order []string // insertion order, for deterministic iteration
}

// Build constructs the graph and rejects unknown references and cycles.
func Build(nodes []Node) (*Graph, error) {
	g := &Graph{nodes: make(map[string]Node, len(nodes))}
	for _, n := range nodes {
		if n.ID == "" {
			return nil, errors.New("task with empty id")
		}
		if _, dup := g.nodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate task id %q", n.ID)
		}
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				return nil, fmt.Errorf("task %s depends on unknown task %s", n.ID, dep)
			}
		}
	}
	if g.hasCycle() {
		return nil, ErrCycleDetected
	}
	return g, nil
}

// hasCycle runs DFS with coloring: white=0 unvisited, gray=1 on stack,
// black=2 done. A gray-to-gray edge is a back edge.
func (g *Graph) hasCycle() bool {
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1
		for _, dep := range g.nodes[id].DependsOn {
			switch colors[dep] {
			case 1:
				return true
			case 0:
				if visit(dep) {
					return true
				}
			}
		}
		colors[id] = 2
		return false
	}

	for _, id := range g.order {
		if colors[id] == 0 && visit(id) {
			return true
		}
	}
	return false
}

// Ready returns the IDs of tasks whose dependencies are all in the completed
// set and which are not themselves completed, in deterministic order.
func (g *Graph) Ready(completed map[string]bool) []string {
	var out []string
	for _, id := range g.order {
		if completed[id] {
			continue
		}
		ok := true
		for _, dep := range g.nodes[id].DependsOn {
			if !completed[dep] {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, id)
		}
	}
	return out
}

// Downstream returns every task that transitively depends on the given id.
func (g *Graph) Downstream(id string) []string {
	dependents := make(map[string][]string)
	for _, n := range g.nodes {
		for _, dep := range n.DependsOn {
			dependents[dep] = append(dependents[dep], n.ID)
		}
	}
	seen := make(map[string]bool)
	var walk func(string)
	walk = func(cur string) {
		for _, next := range dependents[cur] {
			if !seen[next] {
				seen[next] = true
				walk(next)
			}
		}
	}
	walk(id)

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// TopoOrder returns a dependency-respecting order of all task IDs. Build has
// already rejected cycles, so this always succeeds.
func (g *Graph) TopoOrder() []string {
	completed := make(map[string]bool, len(g.nodes))
	out := make([]string, 0, len(g.nodes))
	for len(out) < len(g.nodes) {
		ready := g.Ready(completed)
		if len(ready) == 0 {
			break
		}
		for _, id := range ready {
			completed[id] = true
			out = append(out, id)
		}
	}
	return out
}

// HasDependencies reports whether any node depends on another.
func (g *Graph) HasDependencies() bool {
	for _, n := range g.nodes {
		if len(n.DependsOn) > 0 {
			return true
		}
	}
	return false
}

// Size returns the number of nodes.
func (g *Graph) Size() int { return len(g.nodes) }
