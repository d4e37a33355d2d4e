package memory

import (
	"sort"
	"sync"

	"Rank_Engine/linkgraph/graph"

	"github.com/google/uuid"
	"golang.org/x/xerrors"
)

// Compile-time check for ensuring Store implements graph.Store.
var _ graph.Store = (*Store)(nil)

// Store is an in-memory link graph. Entries live in an arena; each URL is
// mapped once to the arena slot it keeps for the lifetime of the store.
//
// Entries returned by the store are shared with it and must only be modified
// through the store methods.
type Store struct {
	mu sync.RWMutex

	entries  []*graph.Entry
	urlIndex map[string]int
	ids      map[uuid.UUID]int

	// outIndex and inIndex give constant time set semantics for links.
	outIndex []map[string]struct{}
	inIndex  []map[string]struct{}

	dangling map[string]struct{}
	sinks    [][]string

	ranks []float64
}

// NewStore creates a new, empty in-memory link graph.
func NewStore() *Store {
	return &Store{
		urlIndex: make(map[string]int),
		ids:      make(map[uuid.UUID]int),
		dangling: make(map[string]struct{}),
	}
}

// Entry returns the entry for url.
func (s *Store) Entry(url string) (*graph.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, exists := s.urlIndex[url]
	if !exists {
		return nil, xerrors.Errorf("find entry %q: %w", url, graph.ErrNotFound)
	}
	return s.entries[idx], nil
}

// EnsureEntry returns the entry for url, creating it if needed. The second
// return value is true when the entry was created by this call. New entries
// have no links and are marked as dangling.
func (s *Store) EnsureEntry(url string) (*graph.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, exists := s.urlIndex[url]; exists {
		return s.entries[idx], false
	}
	e := &graph.Entry{URL: url, Dangling: true}
	s.insert(e)
	s.dangling[url] = struct{}{}
	return e, true
}

// UpsertEntry inserts entry or replaces the links and dangling flag of an
// existing entry with the same URL. The entry's ID and Index are always
// assigned by the store.
//
// OutLinks and InLinks both describe edges: the reverse side of every edge
// that is added or dropped is updated on the peer entry too. The dangling
// flag of peer entries is left alone.
func (s *Store) UpsertEntry(entry *graph.Entry) error {
	if entry.URL == "" {
		return xerrors.New("upsert entry: empty URL")
	}
	url := entry.URL

	s.mu.Lock()
	defer s.mu.Unlock()

	// entry may be the store's own copy, so its link slices are read before
	// anything gets replaced.
	var (
		selfLink bool
		outLinks = make([]graph.LinkEdge, 0, len(entry.OutLinks))
		inLinks  = make([]string, 0, len(entry.InLinks))
	)
	for _, l := range entry.OutLinks {
		if l.Dst == url {
			selfLink = true
			continue
		}
		outLinks = append(outLinks, graph.LinkEdge{Src: url, Dst: l.Dst, TransProb: l.TransProb})
	}
	for _, src := range entry.InLinks {
		if src == url {
			selfLink = true
			continue
		}
		inLinks = append(inLinks, src)
	}

	for _, l := range outLinks {
		if _, known := s.urlIndex[l.Dst]; !known {
			return xerrors.Errorf("upsert entry %q: out-link %q: %w", url, l.Dst, graph.ErrUnknownEdgeEndpoint)
		}
	}
	for _, src := range inLinks {
		if _, known := s.urlIndex[src]; !known {
			return xerrors.Errorf("upsert entry %q: in-link %q: %w", url, src, graph.ErrUnknownEdgeEndpoint)
		}
	}

	idx, exists := s.urlIndex[url]
	if !exists {
		eCopy := &graph.Entry{URL: url}
		s.insert(eCopy)
		idx = eCopy.Index
	}
	existing := s.entries[idx]

	// Drop the reverse side of every edge currently touching the entry.
	for _, l := range existing.OutLinks {
		if l.Dst != url {
			s.removeIn(s.urlIndex[l.Dst], url)
		}
	}
	for _, src := range existing.InLinks {
		if src != url {
			s.removeOut(s.urlIndex[src], url)
		}
	}

	existing.OutLinks, existing.InLinks = nil, nil
	s.outIndex[idx] = make(map[string]struct{}, len(outLinks)+1)
	s.inIndex[idx] = make(map[string]struct{}, len(inLinks)+1)
	for _, l := range outLinks {
		if s.addOut(idx, l) {
			s.addIn(s.urlIndex[l.Dst], url)
		}
	}
	for _, src := range inLinks {
		s.addIn(idx, src)
		s.addOut(s.urlIndex[src], graph.LinkEdge{Src: src, Dst: url})
	}
	if selfLink {
		s.addOut(idx, graph.LinkEdge{Src: url, Dst: url})
		s.addIn(idx, url)
	}
	s.setDangling(existing, entry.Dangling)

	entry.ID, entry.Index = existing.ID, existing.Index
	return nil
}

// AddEdge registers edge as an out-link of its source and an in-link of its
// destination. It returns false if the edge was already present.
func (s *Store) AddEdge(edge graph.LinkEdge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	srcIdx, srcExists := s.urlIndex[edge.Src]
	dstIdx, dstExists := s.urlIndex[edge.Dst]
	if !srcExists || !dstExists {
		return false, xerrors.Errorf("add edge %q -> %q: %w", edge.Src, edge.Dst, graph.ErrUnknownEdgeEndpoint)
	}
	if !s.addOut(srcIdx, edge) {
		return false, nil
	}
	s.addIn(dstIdx, edge.Src)
	return true, nil
}

// SetOutLinks replaces the out-links of url. In-links of the targets are not
// touched. The dangling flag is not changed either; dangling entries keep
// their flag when synthetic out-links are injected.
func (s *Store) SetOutLinks(url string, links []graph.LinkEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, exists := s.urlIndex[url]
	if !exists {
		return xerrors.Errorf("set out-links for %q: %w", url, graph.ErrNotFound)
	}
	for _, l := range links {
		if _, known := s.urlIndex[l.Dst]; !known {
			return xerrors.Errorf("set out-links for %q -> %q: %w", url, l.Dst, graph.ErrUnknownEdgeEndpoint)
		}
	}
	s.entries[idx].OutLinks = make([]graph.LinkEdge, 0, len(links))
	s.outIndex[idx] = make(map[string]struct{}, len(links))
	for _, l := range links {
		l.Src = url
		s.addOut(idx, l)
	}
	return nil
}

// URLs returns all known URLs in arena order.
func (s *Store) URLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	urls := make([]string, len(s.entries))
	for i, e := range s.entries {
		urls[i] = e.URL
	}
	return urls
}

// Entries returns all entries in arena order.
func (s *Store) Entries() []*graph.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*graph.Entry, len(s.entries))
	copy(list, s.entries)
	return list
}

// Len returns the number of distinct URLs in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// MarkDangling flags url as a dangling node.
func (s *Store) MarkDangling(url string) error {
	return s.updateDangling(url, true)
}

// UnmarkDangling clears the dangling flag of url.
func (s *Store) UnmarkDangling(url string) error {
	return s.updateDangling(url, false)
}

// DanglingNodes returns the sorted list of dangling URLs.
func (s *Store) DanglingNodes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]string, 0, len(s.dangling))
	for url := range s.dangling {
		list = append(list, url)
	}
	sort.Strings(list)
	return list
}

// SetSinkComponents records the rank sinks detected for this graph.
func (s *Store) SetSinkComponents(sinks [][]string) {
	s.mu.Lock()
	s.sinks = sinks
	s.mu.Unlock()
}

// SinkComponents returns the rank sinks detected for this graph.
func (s *Store) SinkComponents() [][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([][]string, len(s.sinks))
	for i, c := range s.sinks {
		list[i] = append([]string(nil), c...)
	}
	return list
}

// Rank returns the current rank of url.
func (s *Store) Rank(url string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, exists := s.urlIndex[url]
	if !exists {
		return 0, xerrors.Errorf("rank of %q: %w", url, graph.ErrNotFound)
	}
	return s.ranks[idx], nil
}

// Ranks returns the current rank buffer indexed by entry index. The buffer
// is owned by the store and must be treated as read-only.
func (s *Store) Ranks() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ranks
}

// SetRanks copies ranks into the store's rank buffer.
func (s *Store) SetRanks(ranks []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ranks) != len(s.entries) {
		return xerrors.Errorf("set ranks: got %d values for %d entries", len(ranks), len(s.entries))
	}
	copy(s.ranks, ranks)
	return nil
}

// SwapRanks installs next as the current rank buffer and hands back the
// previous one so it can be reused as scratch space.
func (s *Store) SwapRanks(next []float64) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(next) != len(s.entries) {
		return nil, xerrors.Errorf("swap ranks: got %d values for %d entries", len(next), len(s.entries))
	}
	prev := s.ranks
	s.ranks = next
	return prev, nil
}

func (s *Store) insert(e *graph.Entry) {
	for {
		e.ID = uuid.New()
		if _, taken := s.ids[e.ID]; !taken {
			break
		}
	}
	e.Index = len(s.entries)
	s.entries = append(s.entries, e)
	s.urlIndex[e.URL] = e.Index
	s.ids[e.ID] = e.Index
	s.outIndex = append(s.outIndex, make(map[string]struct{}))
	s.inIndex = append(s.inIndex, make(map[string]struct{}))
	s.ranks = append(s.ranks, 0)
}

func (s *Store) addOut(idx int, edge graph.LinkEdge) bool {
	if _, exists := s.outIndex[idx][edge.Dst]; exists {
		return false
	}
	s.outIndex[idx][edge.Dst] = struct{}{}
	s.entries[idx].OutLinks = append(s.entries[idx].OutLinks, edge)
	return true
}

func (s *Store) addIn(idx int, src string) {
	if _, exists := s.inIndex[idx][src]; exists {
		return
	}
	s.inIndex[idx][src] = struct{}{}
	s.entries[idx].InLinks = append(s.entries[idx].InLinks, src)
}

func (s *Store) removeOut(idx int, dst string) {
	if _, exists := s.outIndex[idx][dst]; !exists {
		return
	}
	delete(s.outIndex[idx], dst)
	old := s.entries[idx].OutLinks
	links := make([]graph.LinkEdge, 0, len(old)-1)
	for _, l := range old {
		if l.Dst != dst {
			links = append(links, l)
		}
	}
	s.entries[idx].OutLinks = links
}

func (s *Store) removeIn(idx int, src string) {
	if _, exists := s.inIndex[idx][src]; !exists {
		return
	}
	delete(s.inIndex[idx], src)
	old := s.entries[idx].InLinks
	links := make([]string, 0, len(old)-1)
	for _, l := range old {
		if l != src {
			links = append(links, l)
		}
	}
	s.entries[idx].InLinks = links
}

func (s *Store) updateDangling(url string, dangling bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, exists := s.urlIndex[url]
	if !exists {
		return xerrors.Errorf("update dangling flag for %q: %w", url, graph.ErrNotFound)
	}
	s.setDangling(s.entries[idx], dangling)
	return nil
}

func (s *Store) setDangling(e *graph.Entry, dangling bool) {
	e.Dangling = dangling
	if dangling {
		s.dangling[e.URL] = struct{}{}
		return
	}
	delete(s.dangling, e.URL)
}
