package cpm

import (
	"container/heap"
	"fmt"
	"sort"
	"time"

	"github.com/joshharrison/siteplan/internal/graph"
	"github.com/joshharrison/siteplan/internal/model"
)

// RunPass builds a fresh graph from tasks and analyzes it. Each call owns its
// graph, so baseline and forecast passes never share state.
func RunPass(tasks []model.Task, projectStart time.Time) (*PassResult, error) {
	g, err := graph.Build(tasks)
	if err != nil {
		return nil, err
	}
	return Analyze(g, projectStart)
}

// Analyze performs critical path method analysis on a task graph. Results are
// accumulated in the returned PassResult; the graph is left untouched.
func Analyze(g *graph.TaskGraph, projectStart time.Time) (*PassResult, error) {
	order, err := topoSort(g)
	if err != nil {
		return nil, err
	}

	n := g.TaskCount()
	es := make([]int, n)
	ef := make([]int, n)
	ls := make([]int, n)
	lf := make([]int, n)

	// Forward pass: ES = max(EF of predecessors), roots start at offset 0.
	for _, h := range order {
		start := 0
		for _, pred := range g.RevAdj[h] {
			if ef[pred] > start {
				start = ef[pred]
			}
		}
		es[h] = start
		ef[h] = start + g.Tasks[h].DurationDays
	}

	total := 0
	for h := 0; h < n; h++ {
		if ef[h] > total {
			total = ef[h]
		}
	}

	// Backward pass: LF = min(LS of successors), leaves finish with the project.
	for i := len(order) - 1; i >= 0; i-- {
		h := order[i]
		finish := total
		for _, succ := range g.Adj[h] {
			if ls[succ] < finish {
				finish = ls[succ]
			}
		}
		lf[h] = finish
		ls[h] = finish - g.Tasks[h].DurationDays
	}

	result := &PassResult{
		ProjectStart:  model.Date(projectStart),
		Tasks:         make(map[string]*TaskSchedule, n),
		TotalDuration: total,
		TopoOrder:     make([]string, 0, n),
	}
	for _, h := range order {
		id := g.ID(h)
		ts := &TaskSchedule{
			TaskID:   id,
			Duration: g.Tasks[h].DurationDays,
			ES:       es[h],
			EF:       ef[h],
			LS:       ls[h],
			LF:       lf[h],
			Slack:    ls[h] - es[h],
		}
		ts.IsCritical = ts.Slack == 0
		result.Tasks[id] = ts
		result.TopoOrder = append(result.TopoOrder, id)
		if ts.IsCritical {
			result.CriticalPath = append(result.CriticalPath, id)
		}
	}

	result.Waves = computeWaves(result)
	return result, nil
}

type handleHeap []int

func (h handleHeap) Len() int           { return len(h) }
func (h handleHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h handleHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *handleHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *handleHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// topoSort performs Kahn's algorithm. Ready nodes are released lowest handle
// first so the order only depends on input order.
func topoSort(g *graph.TaskGraph) ([]int, error) {
	inDegree := make([]int, g.TaskCount())
	ready := &handleHeap{}
	for h := range inDegree {
		inDegree[h] = len(g.RevAdj[h])
		if inDegree[h] == 0 {
			heap.Push(ready, h)
		}
	}

	order := make([]int, 0, len(inDegree))
	for ready.Len() > 0 {
		node := heap.Pop(ready).(int)
		order = append(order, node)
		for _, succ := range g.Adj[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				heap.Push(ready, succ)
			}
		}
	}

	if len(order) != len(inDegree) {
		return nil, &graph.Error{
			Kind: graph.ErrCyclicDependency,
			Msg:  fmt.Sprintf("topological sort failed (%d of %d tasks sorted)", len(order), len(inDegree)),
		}
	}
	return order, nil
}

// computeWaves groups tasks by their earliest start offset.
func computeWaves(result *PassResult) []Wave {
	esGroups := make(map[int][]string)
	for _, id := range result.TopoOrder {
		es := result.Tasks[id].ES
		esGroups[es] = append(esGroups[es], id)
	}

	esValues := make([]int, 0, len(esGroups))
	for es := range esGroups {
		esValues = append(esValues, es)
	}
	sort.Ints(esValues)

	waves := make([]Wave, len(esValues))
	for i, es := range esValues {
		taskIDs := esGroups[es]

		hasCritical := false
		for _, id := range taskIDs {
			result.Tasks[id].Wave = i
			if result.Tasks[id].IsCritical {
				hasCritical = true
			}
		}

		// Critical tasks first, otherwise topological order.
		sort.SliceStable(taskIDs, func(a, b int) bool {
			return result.Tasks[taskIDs[a]].IsCritical && !result.Tasks[taskIDs[b]].IsCritical
		})

		waves[i] = Wave{
			Index:      i,
			Offset:     es,
			TaskIDs:    taskIDs,
			IsCritical: hasCritical,
		}
	}
	return waves
}
