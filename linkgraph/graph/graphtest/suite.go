package graphtest

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"Rank_Engine/linkgraph/graph"

	"github.com/google/uuid"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

// SuiteBase defines a re-usable set of store-related tests that can
// be executed against any type that implements graph.Store.
type SuiteBase struct {
	s graph.Store
}

// SetStore configures the test-suite to run all tests against s.
func (s *SuiteBase) SetStore(store graph.Store) {
	s.s = store
}

// TestEnsureEntry verifies the entry creation logic.
func (s *SuiteBase) TestEnsureEntry(c *gc.C) {
	e, created := s.s.EnsureEntry("https://example.com")
	c.Assert(created, gc.Equals, true)
	c.Assert(e.ID, gc.Not(gc.Equals), uuid.Nil, gc.Commentf("expected an ID to be assigned to the new entry"))
	c.Assert(e.Dangling, gc.Equals, true, gc.Commentf("new entries have no out-links"))
	c.Assert(s.s.DanglingNodes(), gc.DeepEquals, []string{"https://example.com"})

	again, created := s.s.EnsureEntry("https://example.com")
	c.Assert(created, gc.Equals, false)
	c.Assert(again.ID, gc.Equals, e.ID, gc.Commentf("entry ID changed on second lookup"))
	c.Assert(again.Index, gc.Equals, e.Index)
	c.Assert(s.s.Len(), gc.Equals, 1)
}

// TestEntryLookup verifies the entry lookup logic.
func (s *SuiteBase) TestEntryLookup(c *gc.C) {
	e, _ := s.s.EnsureEntry("a")

	other, err := s.s.Entry("a")
	c.Assert(err, gc.IsNil)
	c.Assert(other.ID, gc.Equals, e.ID)

	_, err = s.s.Entry("missing")
	c.Assert(xerrors.Is(err, graph.ErrNotFound), gc.Equals, true)

	_, err = s.s.Rank("missing")
	c.Assert(xerrors.Is(err, graph.ErrNotFound), gc.Equals, true)
}

// TestAddEdge verifies the link bookkeeping of AddEdge.
func (s *SuiteBase) TestAddEdge(c *gc.C) {
	s.s.EnsureEntry("a")
	s.s.EnsureEntry("b")

	added, err := s.s.AddEdge(graph.LinkEdge{Src: "a", Dst: "b"})
	c.Assert(err, gc.IsNil)
	c.Assert(added, gc.Equals, true)

	// Duplicate edges are ignored.
	added, err = s.s.AddEdge(graph.LinkEdge{Src: "a", Dst: "b"})
	c.Assert(err, gc.IsNil)
	c.Assert(added, gc.Equals, false)

	a, err := s.s.Entry("a")
	c.Assert(err, gc.IsNil)
	c.Assert(a.OutLinks, gc.DeepEquals, []graph.LinkEdge{{Src: "a", Dst: "b"}})
	c.Assert(a.InLinks, gc.HasLen, 0)

	b, err := s.s.Entry("b")
	c.Assert(err, gc.IsNil)
	c.Assert(b.OutLinks, gc.HasLen, 0)
	c.Assert(b.InLinks, gc.DeepEquals, []string{"a"})

	_, err = s.s.AddEdge(graph.LinkEdge{Src: "a", Dst: "missing"})
	c.Assert(xerrors.Is(err, graph.ErrUnknownEdgeEndpoint), gc.Equals, true)
}

// TestUpsertEntry verifies that upserting replaces links and the dangling
// flag while keeping the identity of an existing entry.
func (s *SuiteBase) TestUpsertEntry(c *gc.C) {
	orig, _ := s.s.EnsureEntry("a")
	s.s.EnsureEntry("b")

	upd := &graph.Entry{
		URL:      "a",
		OutLinks: []graph.LinkEdge{{Dst: "b"}},
	}
	c.Assert(s.s.UpsertEntry(upd), gc.IsNil)
	c.Assert(upd.ID, gc.Equals, orig.ID, gc.Commentf("entry ID changed while upserting"))

	stored, err := s.s.Entry("a")
	c.Assert(err, gc.IsNil)
	c.Assert(stored.OutLinks, gc.DeepEquals, []graph.LinkEdge{{Src: "a", Dst: "b"}})
	c.Assert(stored.Dangling, gc.Equals, false)
	c.Assert(s.s.DanglingNodes(), gc.DeepEquals, []string{"b"})

	b, err := s.s.Entry("b")
	c.Assert(err, gc.IsNil)
	c.Assert(b.InLinks, gc.DeepEquals, []string{"a"})

	fresh := &graph.Entry{URL: "c", Dangling: true}
	c.Assert(s.s.UpsertEntry(fresh), gc.IsNil)
	c.Assert(fresh.ID, gc.Not(gc.Equals), uuid.Nil)
	c.Assert(fresh.Index, gc.Equals, 2)

	bogus := &graph.Entry{URL: "d", OutLinks: []graph.LinkEdge{{Dst: "missing"}}}
	err = s.s.UpsertEntry(bogus)
	c.Assert(xerrors.Is(err, graph.ErrUnknownEdgeEndpoint), gc.Equals, true)
}

// TestUpsertStoredEntry verifies that upserting the entry handed out by the
// store keeps its links.
func (s *SuiteBase) TestUpsertStoredEntry(c *gc.C) {
	for _, url := range []string{"a", "b", "c"} {
		s.s.EnsureEntry(url)
	}
	for _, dst := range []string{"b", "c"} {
		_, err := s.s.AddEdge(graph.LinkEdge{Src: "a", Dst: dst})
		c.Assert(err, gc.IsNil)
	}
	_, err := s.s.AddEdge(graph.LinkEdge{Src: "c", Dst: "a"})
	c.Assert(err, gc.IsNil)

	e, err := s.s.Entry("a")
	c.Assert(err, gc.IsNil)
	e.Dangling = false
	c.Assert(s.s.UpsertEntry(e), gc.IsNil)

	a, err := s.s.Entry("a")
	c.Assert(err, gc.IsNil)
	c.Assert(a.OutLinks, gc.DeepEquals, []graph.LinkEdge{{Src: "a", Dst: "b"}, {Src: "a", Dst: "c"}})
	c.Assert(a.InLinks, gc.DeepEquals, []string{"c"})

	b, _ := s.s.Entry("b")
	c.Assert(b.InLinks, gc.DeepEquals, []string{"a"})
	cEntry, _ := s.s.Entry("c")
	c.Assert(cEntry.OutLinks, gc.DeepEquals, []graph.LinkEdge{{Src: "c", Dst: "a"}})
	c.Assert(cEntry.InLinks, gc.DeepEquals, []string{"a"})
}

// TestUpsertUpdatesPeers verifies that the reverse side of added and dropped
// edges is kept in step on the peer entries.
func (s *SuiteBase) TestUpsertUpdatesPeers(c *gc.C) {
	for _, url := range []string{"a", "b", "c"} {
		s.s.EnsureEntry(url)
	}
	_, err := s.s.AddEdge(graph.LinkEdge{Src: "a", Dst: "b"})
	c.Assert(err, gc.IsNil)
	_, err = s.s.AddEdge(graph.LinkEdge{Src: "b", Dst: "a"})
	c.Assert(err, gc.IsNil)

	// a now links to c instead of b, and c replaces b as its only source.
	upd := &graph.Entry{
		URL:      "a",
		OutLinks: []graph.LinkEdge{{Dst: "c"}, {Dst: "a"}},
		InLinks:  []string{"c"},
	}
	c.Assert(s.s.UpsertEntry(upd), gc.IsNil)

	a, _ := s.s.Entry("a")
	c.Assert(a.OutLinks, gc.DeepEquals, []graph.LinkEdge{{Src: "a", Dst: "c"}, {Src: "a", Dst: "a"}})
	c.Assert(a.InLinks, gc.DeepEquals, []string{"c", "a"})

	b, _ := s.s.Entry("b")
	c.Assert(b.InLinks, gc.HasLen, 0, gc.Commentf("dropped out-link a -> b still recorded on b"))
	c.Assert(b.OutLinks, gc.HasLen, 0, gc.Commentf("dropped in-link b -> a still recorded on b"))

	cEntry, _ := s.s.Entry("c")
	c.Assert(cEntry.InLinks, gc.DeepEquals, []string{"a"})
	c.Assert(cEntry.OutLinks, gc.DeepEquals, []graph.LinkEdge{{Src: "c", Dst: "a"}})
	c.Assert(s.s.DanglingNodes(), gc.DeepEquals, []string{"b", "c"}, gc.Commentf("peer dangling flags must not change"))
}

// TestDanglingBookkeeping verifies the dangling set operations.
func (s *SuiteBase) TestDanglingBookkeeping(c *gc.C) {
	for _, url := range []string{"c", "a", "b"} {
		s.s.EnsureEntry(url)
	}
	c.Assert(s.s.DanglingNodes(), gc.DeepEquals, []string{"a", "b", "c"})

	c.Assert(s.s.UnmarkDangling("b"), gc.IsNil)
	c.Assert(s.s.DanglingNodes(), gc.DeepEquals, []string{"a", "c"})
	b, _ := s.s.Entry("b")
	c.Assert(b.Dangling, gc.Equals, false)

	c.Assert(s.s.MarkDangling("b"), gc.IsNil)
	c.Assert(s.s.DanglingNodes(), gc.DeepEquals, []string{"a", "b", "c"})

	err := s.s.MarkDangling("missing")
	c.Assert(xerrors.Is(err, graph.ErrNotFound), gc.Equals, true)
}

// TestSetOutLinks verifies that replacing out-links leaves in-links and the
// dangling flag untouched.
func (s *SuiteBase) TestSetOutLinks(c *gc.C) {
	s.s.EnsureEntry("a")
	s.s.EnsureEntry("b")

	err := s.s.SetOutLinks("b", []graph.LinkEdge{{Dst: "a"}, {Dst: "a"}})
	c.Assert(err, gc.IsNil)

	b, _ := s.s.Entry("b")
	c.Assert(b.OutLinks, gc.DeepEquals, []graph.LinkEdge{{Src: "b", Dst: "a"}})
	c.Assert(b.Dangling, gc.Equals, true)

	a, _ := s.s.Entry("a")
	c.Assert(a.InLinks, gc.HasLen, 0)

	err = s.s.SetOutLinks("b", []graph.LinkEdge{{Dst: "missing"}})
	c.Assert(xerrors.Is(err, graph.ErrUnknownEdgeEndpoint), gc.Equals, true)
}

// TestSinkComponents verifies that sink components round-trip and that the
// returned value is a copy.
func (s *SuiteBase) TestSinkComponents(c *gc.C) {
	c.Assert(s.s.SinkComponents(), gc.HasLen, 0)

	s.s.SetSinkComponents([][]string{{"x", "y", "z"}})
	got := s.s.SinkComponents()
	c.Assert(got, gc.DeepEquals, [][]string{{"x", "y", "z"}})

	got[0][0] = "mutated"
	c.Assert(s.s.SinkComponents()[0][0], gc.Equals, "x")
}

// TestRankBuffers verifies the rank buffer operations.
func (s *SuiteBase) TestRankBuffers(c *gc.C) {
	s.s.EnsureEntry("a")
	s.s.EnsureEntry("b")

	c.Assert(s.s.SetRanks([]float64{0.25, 0.75}), gc.IsNil)
	r, err := s.s.Rank("b")
	c.Assert(err, gc.IsNil)
	c.Assert(r, gc.Equals, 0.75)

	prev, err := s.s.SwapRanks([]float64{0.5, 0.5})
	c.Assert(err, gc.IsNil)
	c.Assert(prev, gc.DeepEquals, []float64{0.25, 0.75})
	c.Assert(s.s.Ranks(), gc.DeepEquals, []float64{0.5, 0.5})

	_, err = s.s.SwapRanks([]float64{1})
	c.Assert(err, gc.NotNil)
	c.Assert(s.s.SetRanks([]float64{1, 2, 3}), gc.NotNil)
}

// TestURLEnumeration verifies that URLs and Entries agree with each other
// and with the arena indices.
func (s *SuiteBase) TestURLEnumeration(c *gc.C) {
	numEntries := 50
	for i := 0; i < numEntries; i++ {
		s.s.EnsureEntry(fmt.Sprint(i))
	}

	urls := s.s.URLs()
	entries := s.s.Entries()
	c.Assert(urls, gc.HasLen, numEntries)
	c.Assert(entries, gc.HasLen, numEntries)
	for i, e := range entries {
		c.Assert(e.Index, gc.Equals, i)
		c.Assert(urls[i], gc.Equals, e.URL)
	}

	sorted := append([]string(nil), urls...)
	sort.Strings(sorted)
	for i := 1; i < len(sorted); i++ {
		c.Assert(sorted[i], gc.Not(gc.Equals), sorted[i-1], gc.Commentf("URLs returned the same URL twice"))
	}
}

// TestConcurrentReaders verifies that multiple clients can concurrently
// read the store while ranks are being swapped.
func (s *SuiteBase) TestConcurrentReaders(c *gc.C) {
	var (
		wg         sync.WaitGroup
		numReaders = 10
		numEntries = 100
	)

	for i := 0; i < numEntries; i++ {
		s.s.EnsureEntry(fmt.Sprint(i))
	}
	for i := 1; i < numEntries; i++ {
		_, err := s.s.AddEdge(graph.LinkEdge{Src: fmt.Sprint(i - 1), Dst: fmt.Sprint(i)})
		c.Assert(err, gc.IsNil)
	}

	wg.Add(numReaders)
	for i := 0; i < numReaders; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numEntries; j++ {
				if _, err := s.s.Entry(fmt.Sprint(j)); err != nil {
					c.Errorf("reader %d: %v", id, err)
					return
				}
				if _, err := s.s.Rank(fmt.Sprint(j)); err != nil {
					c.Errorf("reader %d: %v", id, err)
					return
				}
			}
		}(i)
	}
	for i := 0; i < 10; i++ {
		_, err := s.s.SwapRanks(make([]float64, numEntries))
		c.Assert(err, gc.IsNil)
	}

	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
	// test completed successfully
	case <-time.After(10 * time.Second):
		c.Fatal("timed out waiting for test to complete")
	}
}
