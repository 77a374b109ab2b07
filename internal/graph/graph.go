package graph

import (
	"errors"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/joshharrison/siteplan/internal/model"
)

// Validate checks the caller-supplied fields of every task before any graph
// is built.
func Validate(tasks []model.Task) error {
	seen := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		id := strings.TrimSpace(t.TaskID)
		if id == "" {
			return invalidf("", "task at position %d has an empty task_id", i)
		}
		if id != t.TaskID {
			return invalidf(t.TaskID, "task_id has surrounding whitespace")
		}
		if seen[id] {
			return invalidf(id, "duplicate task_id")
		}
		seen[id] = true
		if t.DurationDays < 0 {
			return invalidf(id, "negative duration_days %d", t.DurationDays)
		}
		for _, dep := range t.Dependencies {
			if strings.TrimSpace(dep) == "" {
				return invalidf(id, "blank dependency id")
			}
		}
	}
	return nil
}

// Build constructs a TaskGraph from a flat list of tasks. It fails with
// ErrInvalidTaskData, ErrUnknownDependency or ErrCyclicDependency. The input
// slice is not modified; the graph holds its own copies.
func Build(tasks []model.Task) (*TaskGraph, error) {
	if err := Validate(tasks); err != nil {
		return nil, err
	}

	g := &TaskGraph{
		Tasks:  make([]model.Task, len(tasks)),
		Index:  make(map[string]int, len(tasks)),
		Adj:    make([][]int, len(tasks)),
		RevAdj: make([][]int, len(tasks)),
	}
	for i, t := range tasks {
		g.Tasks[i] = t.Input()
		g.Index[t.TaskID] = i
	}

	// Dependencies are a set: repeated entries collapse to one edge.
	for to, t := range g.Tasks {
		seen := make(map[int]bool, len(t.Dependencies))
		for _, dep := range t.Dependencies {
			from, ok := g.Index[dep]
			if !ok {
				return nil, unknownDep(t.TaskID, dep)
			}
			if from == to {
				return nil, cycleError([]string{t.TaskID, t.TaskID})
			}
			if seen[from] {
				continue
			}
			seen[from] = true
			g.Adj[from] = append(g.Adj[from], to)
			g.RevAdj[to] = append(g.RevAdj[to], from)
		}
	}

	for h := range g.Tasks {
		sort.Ints(g.Adj[h])
		sort.Ints(g.RevAdj[h])
		if len(g.RevAdj[h]) == 0 {
			g.Roots = append(g.Roots, h)
		}
		if len(g.Adj[h]) == 0 {
			g.Leaves = append(g.Leaves, h)
		}
	}

	order, err := g.sort()
	if err != nil {
		return nil, err
	}
	g.order = order
	return g, nil
}

// sort orders the handles topologically, failing with ErrCyclicDependency
// when the relation is not acyclic.
func (g *TaskGraph) sort() ([]int, error) {
	dg := simple.NewDirectedGraph()
	for h := range g.Tasks {
		dg.AddNode(simple.Node(h))
	}
	for from, tos := range g.Adj {
		for _, to := range tos {
			dg.SetEdge(dg.NewEdge(simple.Node(from), simple.Node(to)))
		}
	}

	sorted, err := topo.SortStabilized(dg, byHandle)
	if err != nil {
		var uo topo.Unorderable
		if errors.As(err, &uo) {
			if cycle := g.DetectCycle(); cycle != nil {
				return nil, cycleError(cycle)
			}
			return nil, cycleError(g.componentIDs(uo[0]))
		}
		return nil, err
	}

	order := make([]int, len(sorted))
	for i, n := range sorted {
		order[i] = int(n.ID())
	}
	return order, nil
}

func byHandle(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}

func (g *TaskGraph) componentIDs(nodes []graph.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = g.Tasks[n.ID()].TaskID
	}
	return ids
}

// DetectCycle returns the cycle path if one exists, or nil if the graph is acyclic.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
func (g *TaskGraph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make([]int, len(g.Tasks))
	parent := make([]int, len(g.Tasks))

	var dfs func(node int) []string
	dfs = func(node int) []string {
		color[node] = gray
		for _, next := range g.Adj[node] {
			if color[next] == gray {
				cycle := []string{g.ID(next), g.ID(node)}
				for cur := node; cur != next; {
					cur = parent[cur]
					cycle = append(cycle, g.ID(cur))
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for h := range g.Tasks {
		if color[h] == white {
			if cycle := dfs(h); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// TaskCount returns the number of tasks in the graph.
func (g *TaskGraph) TaskCount() int {
	return len(g.Tasks)
}

// ID returns the task_id for a handle.
func (g *TaskGraph) ID(h int) string {
	return g.Tasks[h].TaskID
}

// Handle looks up the handle for a task_id.
func (g *TaskGraph) Handle(id string) (int, bool) {
	h, ok := g.Index[id]
	return h, ok
}

// TopoOrder returns a copy of the validated topological order of handles.
func (g *TaskGraph) TopoOrder() []int {
	out := make([]int, len(g.order))
	copy(out, g.order)
	return out
}

// Successors returns the task_ids that depend on id.
func (g *TaskGraph) Successors(id string) []string {
	return g.ids(g.Adj, id)
}

// Predecessors returns the task_ids that id depends on.
func (g *TaskGraph) Predecessors(id string) []string {
	return g.ids(g.RevAdj, id)
}

func (g *TaskGraph) ids(adj [][]int, id string) []string {
	h, ok := g.Index[id]
	if !ok {
		return nil
	}
	out := make([]string, len(adj[h]))
	for i, n := range adj[h] {
		out[i] = g.ID(n)
	}
	return out
}
