package graph

import "github.com/joshharrison/siteplan/internal/model"

// TaskGraph is a validated directed acyclic graph of tasks. Nodes are stored
// in an arena indexed by a stable integer handle (the task's position in the
// input slice); an edge A -> B means A must finish before B starts.
type TaskGraph struct {
	Tasks  []model.Task   // arena, input fields only
	Index  map[string]int // task_id -> handle
	Adj    [][]int        // handle -> dependents
	RevAdj [][]int        // handle -> dependencies
	Roots  []int          // tasks with no dependencies
	Leaves []int          // tasks nothing depends on

	order []int // topological order of handles
}
