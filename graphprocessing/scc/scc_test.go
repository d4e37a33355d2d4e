package scc

import (
	"fmt"
	"testing"

	"Rank_Engine/linkgraph/graph"
	"Rank_Engine/linkgraph/store/memory"

	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(SCCTestSuite))

func Test(t *testing.T) { gc.TestingT(t) }

type SCCTestSuite struct{}

func (s *SCCTestSuite) TestDisconnectedCycleIsSink(c *gc.C) {
	store := makeStore(c, "x y", "y z", "z x", "a b", "b c")

	sinks, err := FindSinks(store)
	c.Assert(err, gc.IsNil)
	c.Assert(sinks, gc.DeepEquals, [][]string{{"x", "y", "z"}})
}

func (s *SCCTestSuite) TestComponentWithEscapingMemberIsNotSink(c *gc.C) {
	// b belongs to {a,b} but also links to c; only {c,d} is closed.
	store := makeStore(c, "a b", "b a", "b c", "c d", "d c")

	sinks, err := FindSinks(store)
	c.Assert(err, gc.IsNil)
	c.Assert(sinks, gc.DeepEquals, [][]string{{"c", "d"}})
}

func (s *SCCTestSuite) TestSelfLoopIsSink(c *gc.C) {
	store := makeStore(c, "a a", "b a")

	sinks, err := FindSinks(store)
	c.Assert(err, gc.IsNil)
	c.Assert(sinks, gc.DeepEquals, [][]string{{"a"}})
}

func (s *SCCTestSuite) TestDanglingNodeIsNotSink(c *gc.C) {
	store := makeStore(c, "a b")

	sinks, err := FindSinks(store)
	c.Assert(err, gc.IsNil)
	c.Assert(sinks, gc.HasLen, 0)
}

func (s *SCCTestSuite) TestWholeGraphSingleComponent(c *gc.C) {
	store := makeStore(c, "a b", "b c", "c d", "d a", "b d", "c a")

	components, err := Components(store)
	c.Assert(err, gc.IsNil)
	c.Assert(components, gc.DeepEquals, [][]string{{"a", "b", "c", "d"}})

	sinks, err := Annotate(store)
	c.Assert(err, gc.IsNil)
	c.Assert(sinks, gc.DeepEquals, [][]string{{"a", "b", "c", "d"}})
	c.Assert(store.SinkComponents(), gc.DeepEquals, sinks)
}

func (s *SCCTestSuite) TestReverseTopologicalOrder(c *gc.C) {
	store := makeStore(c, "a b", "b c")

	components, err := Components(store)
	c.Assert(err, gc.IsNil)
	c.Assert(components, gc.DeepEquals, [][]string{{"c"}, {"b"}, {"a"}})
}

func (s *SCCTestSuite) TestMultipleSinksSorted(c *gc.C) {
	store := makeStore(c, "q r", "r q", "root q", "root b", "b c", "c b")

	sinks, err := FindSinks(store)
	c.Assert(err, gc.IsNil)
	c.Assert(sinks, gc.DeepEquals, [][]string{{"b", "c"}, {"q", "r"}})
}

func (s *SCCTestSuite) TestDeepChainDoesNotRecurse(c *gc.C) {
	numNodes := 200000
	store := memory.NewStore()
	for i := 0; i < numNodes; i++ {
		store.EnsureEntry(fmt.Sprint(i))
	}
	for i := 1; i < numNodes; i++ {
		_, err := store.AddEdge(graph.LinkEdge{Src: fmt.Sprint(i - 1), Dst: fmt.Sprint(i)})
		c.Assert(err, gc.IsNil)
	}
	// Close the chain into one huge cycle.
	_, err := store.AddEdge(graph.LinkEdge{Src: fmt.Sprint(numNodes - 1), Dst: "0"})
	c.Assert(err, gc.IsNil)

	components, err := Components(store)
	c.Assert(err, gc.IsNil)
	c.Assert(components, gc.HasLen, 1)
	c.Assert(components[0], gc.HasLen, numNodes)
}

func (s *SCCTestSuite) TestUnknownOutLinkTarget(c *gc.C) {
	lister := staticLister{{URL: "a", OutLinks: []graph.LinkEdge{{Src: "a", Dst: "ghost"}}}}

	_, err := FindSinks(lister)
	c.Assert(xerrors.Is(err, graph.ErrNotFound), gc.Equals, true)
}

type staticLister []*graph.Entry

func (l staticLister) Entries() []*graph.Entry { return l }

func makeStore(c *gc.C, edges ...string) *memory.Store {
	store := memory.NewStore()
	for _, e := range edges {
		var src, dst string
		_, err := fmt.Sscan(e, &src, &dst)
		c.Assert(err, gc.IsNil)
		store.EnsureEntry(src)
		store.EnsureEntry(dst)
		_, err = store.AddEdge(graph.LinkEdge{Src: src, Dst: dst})
		c.Assert(err, gc.IsNil)
	}
	return store
}
