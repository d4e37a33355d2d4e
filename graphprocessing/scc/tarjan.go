// Package scc detects strongly connected components in a link graph and
// classifies the ones that behave as rank sinks.
package scc

import (
	"Rank_Engine/linkgraph/graph"

	"golang.org/x/xerrors"
)

// EntryLister is implemented by stores that can enumerate their entries in
// arena order.
type EntryLister interface {
	Entries() []*graph.Entry
}

// frame is one level of the explicit depth-first traversal: the vertex being
// expanded and the position of the next out-link to visit.
type frame struct {
	v      int
	cursor int
}

// tarjan holds the per-run state of the algorithm. Every slice is indexed
// by arena slot and is discarded at the end of the run.
type tarjan struct {
	adj [][]int

	index   []int
	lowLink []int
	onStack []bool
	stack   []int
	frames  []frame

	nextIndex  int
	components [][]int
}

// Components returns the strongly connected components of the out-link graph
// of store. Components are listed in the order Tarjan's algorithm completes
// them (reverse topological order); URLs inside a component are sorted.
func Components(store EntryLister) ([][]string, error) {
	entries := store.Entries()
	adj, err := adjacency(entries)
	if err != nil {
		return nil, err
	}
	var components [][]string
	for _, component := range run(adj) {
		components = append(components, urlsOf(component, entries))
	}
	return components, nil
}

func run(adj [][]int) [][]int {
	n := len(adj)
	t := &tarjan{
		adj:     adj,
		index:   make([]int, n),
		lowLink: make([]int, n),
		onStack: make([]bool, n),
	}
	for i := range t.index {
		t.index[i] = -1
	}
	for v := 0; v < n; v++ {
		if t.index[v] == -1 {
			t.strongConnect(v)
		}
	}
	return t.components
}

// strongConnect performs the depth-first traversal rooted at root without
// recursion. Returning from a child frame folds its low-link into the parent
// exactly where the recursive version would.
func (t *tarjan) strongConnect(root int) {
	t.visit(root)
	for len(t.frames) != 0 {
		top := &t.frames[len(t.frames)-1]
		v := top.v

		if top.cursor < len(t.adj[v]) {
			w := t.adj[v][top.cursor]
			top.cursor++
			if t.index[w] == -1 {
				// The append in visit may move the frame slice, so top
				// must not be used past this point.
				t.visit(w)
			} else if t.onStack[w] {
				t.lowLink[v] = min(t.lowLink[v], t.index[w])
			}
			continue
		}

		// All out-links visited; pop the frame.
		t.frames = t.frames[:len(t.frames)-1]
		if t.lowLink[v] == t.index[v] {
			t.emit(v)
		}
		if len(t.frames) != 0 {
			parent := t.frames[len(t.frames)-1].v
			t.lowLink[parent] = min(t.lowLink[parent], t.lowLink[v])
		}
	}
}

func (t *tarjan) visit(v int) {
	t.index[v] = t.nextIndex
	t.lowLink[v] = t.nextIndex
	t.nextIndex++
	t.stack = append(t.stack, v)
	t.onStack[v] = true
	t.frames = append(t.frames, frame{v: v})
}

// emit unwinds the stack down to root and records one component.
func (t *tarjan) emit(root int) {
	var component []int
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		component = append(component, w)
		if w == root {
			break
		}
	}
	t.components = append(t.components, component)
}

func adjacency(entries []*graph.Entry) ([][]int, error) {
	slot := make(map[string]int, len(entries))
	for i, e := range entries {
		slot[e.URL] = i
	}
	adj := make([][]int, len(entries))
	for i, e := range entries {
		adj[i] = make([]int, 0, len(e.OutLinks))
		for _, l := range e.OutLinks {
			w, exists := slot[l.Dst]
			if !exists {
				return nil, xerrors.Errorf("scc: out-link %q -> %q: %w", e.URL, l.Dst, graph.ErrNotFound)
			}
			adj[i] = append(adj[i], w)
		}
	}
	return adj, nil
}
