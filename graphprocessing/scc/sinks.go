package scc

import (
	"sort"

	"Rank_Engine/linkgraph/graph"
)

// FindSinks returns the rank sinks of store: strongly connected components
// where no member has an out-link leaving the component. Components made of
// a single dangling node (no out-links at all) are rank leaks, are reported
// through the dangling node list and are therefore excluded here.
//
// Each sink lists its URLs in sorted order; sinks are sorted by their first
// URL.
func FindSinks(store EntryLister) ([][]string, error) {
	entries := store.Entries()
	adj, err := adjacency(entries)
	if err != nil {
		return nil, err
	}

	var sinks [][]string
	member := make([]bool, len(entries))
	for _, component := range run(adj) {
		for _, v := range component {
			member[v] = true
		}
		if isClosed(component, adj, member) {
			sinks = append(sinks, urlsOf(component, entries))
		}
		for _, v := range component {
			member[v] = false
		}
	}
	sort.Slice(sinks, func(l, r int) bool { return sinks[l][0] < sinks[r][0] })
	return sinks, nil
}

// isClosed returns true if every out-link of every member stays inside the
// component and at least one member has an out-link.
func isClosed(component []int, adj [][]int, member []bool) bool {
	var hasLinks bool
	for _, v := range component {
		for _, w := range adj[v] {
			if !member[w] {
				return false
			}
			hasLinks = true
		}
	}
	return hasLinks
}

func urlsOf(component []int, entries []*graph.Entry) []string {
	urls := make([]string, len(component))
	for i, v := range component {
		urls[i] = entries[v].URL
	}
	sort.Strings(urls)
	return urls
}

// SinkAnnotator is implemented by stores that can record detected sinks.
type SinkAnnotator interface {
	EntryLister
	SetSinkComponents(sinks [][]string)
}

// Annotate runs sink detection on store and records the result in it.
func Annotate(store SinkAnnotator) ([][]string, error) {
	sinks, err := FindSinks(store)
	if err != nil {
		return nil, err
	}
	store.SetSinkComponents(sinks)
	return sinks, nil
}
