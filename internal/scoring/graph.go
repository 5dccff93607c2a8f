package scoring

import (
	"container/heap"
	"sort"
	"strconv"

	"github.com/benvon/task-analyzer/internal/models"
)

// DependencyGraph is a read-only view over task dependencies. An edge A -> B
// means A appears in B's dependency list, so A must finish before B.
type DependencyGraph struct {
	ids      []models.TaskID
	index    map[models.TaskID]int
	out      [][]int // dependency -> dependents, ascending by input index, no self edges
	indeg    []int
	selfLoop []bool
}

// NewDependencyGraph builds the graph. Task ids must be unique and every
// dependency must reference a task in the set.
func NewDependencyGraph(tasks []models.Task) (*DependencyGraph, error) {
	g := &DependencyGraph{
		ids:      make([]models.TaskID, len(tasks)),
		index:    make(map[models.TaskID]int, len(tasks)),
		out:      make([][]int, len(tasks)),
		indeg:    make([]int, len(tasks)),
		selfLoop: make([]bool, len(tasks)),
	}
	for i, t := range tasks {
		if _, dup := g.index[t.ID]; dup {
			return nil, newError(CodeInvalidTasks, "id", t.ID, "duplicate task id")
		}
		g.ids[i] = t.ID
		g.index[t.ID] = i
	}

	edges := make([]map[int]struct{}, len(tasks))
	for i, t := range tasks {
		for _, dep := range t.Dependencies {
			from, ok := g.index[dep]
			if !ok {
				return nil, unknownDependency(t.ID, dep, g.index)
			}
			if from == i {
				g.selfLoop[i] = true
				continue
			}
			if edges[from] == nil {
				edges[from] = make(map[int]struct{})
			}
			if _, seen := edges[from][i]; seen {
				continue
			}
			edges[from][i] = struct{}{}
			g.out[from] = append(g.out[from], i)
			g.indeg[i]++
		}
	}
	for _, dependents := range g.out {
		sort.Ints(dependents)
	}
	return g, nil
}

// unknownDependency reports a dangling reference. Ids are compared with their
// JSON form, so a string "7" does not resolve to the integer 7.
func unknownDependency(from, dep models.TaskID, index map[models.TaskID]int) *Error {
	var other models.TaskID
	if dep.IsNumeric() {
		other = models.StringID(dep.String())
	} else if n, err := strconv.ParseInt(dep.String(), 10, 64); err == nil && strconv.FormatInt(n, 10) == dep.String() {
		other = models.IntID(n)
	}
	if _, ok := index[other]; ok && !other.IsZero() {
		return newError(CodeInvalidTasks, "dependencies", from,
			"depends on unknown task %s (task %s exists; ids must match in type)", dep.Describe(), other.Describe())
	}
	return newError(CodeInvalidTasks, "dependencies", from, "depends on unknown task %s", dep.Describe())
}

// Len returns the number of tasks in the graph.
func (g *DependencyGraph) Len() int {
	return len(g.ids)
}

// BlockingCount returns how many other tasks list id as a dependency.
func (g *DependencyGraph) BlockingCount(id models.TaskID) int {
	i, ok := g.index[id]
	if !ok {
		return 0
	}
	return len(g.out[i])
}

// Dependents returns the tasks waiting on id, in input order.
func (g *DependencyGraph) Dependents(id models.TaskID) []models.TaskID {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]models.TaskID, len(g.out[i]))
	for k, j := range g.out[i] {
		out[k] = g.ids[j]
	}
	return out
}

// DetectCycles returns every task that sits on at least one dependency cycle,
// including tasks that depend on themselves.
//
// Nodes on a cycle are exactly the members of strongly connected components
// with more than one node, plus self loops. Components are found with an
// iterative Tarjan walk in input order, so the result is deterministic.
func (g *DependencyGraph) DetectCycles() map[models.TaskID]bool {
	n := len(g.ids)
	order := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range order {
		order[i] = -1
	}

	type frame struct {
		node int
		edge int
	}

	circular := make(map[models.TaskID]bool)
	var stack []int
	next := 0

	visit := func(v int) {
		order[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
	}

	for root := 0; root < n; root++ {
		if order[root] != -1 {
			continue
		}
		visit(root)
		calls := []frame{{node: root}}

		for len(calls) > 0 {
			top := &calls[len(calls)-1]
			v := top.node

			if top.edge < len(g.out[v]) {
				w := g.out[v][top.edge]
				top.edge++
				if order[w] == -1 {
					visit(w)
					calls = append(calls, frame{node: w})
				} else if onStack[w] && order[w] < low[v] {
					low[v] = order[w]
				}
				continue
			}

			if low[v] == order[v] {
				var members []int
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					members = append(members, w)
					if w == v {
						break
					}
				}
				if len(members) > 1 || g.selfLoop[v] {
					for _, m := range members {
						circular[g.ids[m]] = true
					}
				}
			}

			calls = calls[:len(calls)-1]
			if len(calls) > 0 {
				parent := calls[len(calls)-1].node
				if low[v] < low[parent] {
					low[parent] = low[v]
				}
			}
		}
	}
	return circular
}

// TopologicalOrder returns tasks in an order that respects dependencies,
// breaking ties by input order. Tasks that can never become ready (those on a
// cycle and everything downstream of one) are returned separately in input order.
func (g *DependencyGraph) TopologicalOrder() (ordered []models.TaskID, blocked []models.TaskID) {
	indeg := make([]int, len(g.indeg))
	copy(indeg, g.indeg)

	ready := &indexHeap{}
	for i := range indeg {
		if indeg[i] == 0 && !g.selfLoop[i] {
			heap.Push(ready, i)
		}
	}

	done := make([]bool, len(g.ids))
	for ready.Len() > 0 {
		v := heap.Pop(ready).(int)
		done[v] = true
		ordered = append(ordered, g.ids[v])
		for _, w := range g.out[v] {
			indeg[w]--
			if indeg[w] == 0 && !g.selfLoop[w] {
				heap.Push(ready, w)
			}
		}
	}

	for i, id := range g.ids {
		if !done[i] {
			blocked = append(blocked, id)
		}
	}
	return ordered, blocked
}

type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
