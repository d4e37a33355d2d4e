package source

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Rank_Engine/linkgraph/graph"

	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(TextSourceTestSuite))

func Test(t *testing.T) { gc.TestingT(t) }

type TextSourceTestSuite struct{}

func (s *TextSourceTestSuite) TestTokenizesRecords(c *gc.C) {
	it := NewTextSource(strings.NewReader("a b\n  c    d  \n\ne f g\n"))

	var got []*graph.Record
	for it.Next() {
		got = append(got, it.Record())
	}
	c.Assert(it.Error(), gc.IsNil)
	c.Assert(it.Close(), gc.IsNil)

	c.Assert(got, gc.HasLen, 4)
	c.Assert(got[0], gc.DeepEquals, &graph.Record{Pos: 1, Raw: "a b", Tokens: []string{"a", "b"}})
	c.Assert(got[1].Tokens, gc.DeepEquals, []string{"c", "d"})
	c.Assert(got[2].Tokens, gc.HasLen, 0)
	c.Assert(got[3].Pos, gc.Equals, 4)
	c.Assert(got[3].Tokens, gc.DeepEquals, []string{"e", "f", "g"})
}

func (s *TextSourceTestSuite) TestOpenMissingFile(c *gc.C) {
	_, err := OpenFile(filepath.Join(c.MkDir(), "missing.txt"))
	c.Assert(xerrors.Is(err, graph.ErrSourceUnavailable), gc.Equals, true)
}

func (s *TextSourceTestSuite) TestOpenFile(c *gc.C) {
	path := filepath.Join(c.MkDir(), "links.txt")
	c.Assert(ioutil.WriteFile(path, []byte("a b\nb a\n"), os.ModePerm), gc.IsNil)

	it, err := OpenFile(path)
	c.Assert(err, gc.IsNil)
	var count int
	for it.Next() {
		count++
	}
	c.Assert(count, gc.Equals, 2)
	c.Assert(it.Error(), gc.IsNil)
	c.Assert(it.Close(), gc.IsNil)
}

func (s *TextSourceTestSuite) TestReadFailure(c *gc.C) {
	it := NewTextSource(&failingReader{data: "a b\n"})

	c.Assert(it.Next(), gc.Equals, true)
	c.Assert(it.Next(), gc.Equals, false)
	c.Assert(xerrors.Is(it.Error(), graph.ErrSourceUnavailable), gc.Equals, true)
}

func (s *TextSourceTestSuite) TestOverlongLineIsMalformed(c *gc.C) {
	input := "a b\n" + strings.Repeat("x", maxRecordSize+10) + " y\nc d"
	it := NewTextSource(strings.NewReader(input))

	var got []*graph.Record
	for it.Next() {
		got = append(got, it.Record())
	}
	c.Assert(it.Error(), gc.IsNil)
	c.Assert(got, gc.HasLen, 3)

	c.Assert(got[0].Err, gc.IsNil)
	c.Assert(xerrors.Is(got[1].Err, graph.ErrMalformedEdge), gc.Equals, true)
	c.Assert(got[1].Tokens, gc.HasLen, 0)
	c.Assert(len(got[1].Raw) < 100, gc.Equals, true)
	c.Assert(got[2], gc.DeepEquals, &graph.Record{Pos: 3, Raw: "c d", Tokens: []string{"c", "d"}})
}

func (s *TextSourceTestSuite) TestLineAtSizeLimit(c *gc.C) {
	line := strings.Repeat("x", maxRecordSize-2) + " y"
	it := NewTextSource(strings.NewReader(line + "\r\n"))

	c.Assert(it.Next(), gc.Equals, true)
	c.Assert(it.Record().Err, gc.IsNil)
	c.Assert(it.Record().Tokens, gc.HasLen, 2)
	c.Assert(it.Next(), gc.Equals, false)
	c.Assert(it.Error(), gc.IsNil)
}

type failingReader struct {
	data string
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, errors.New("disk on fire")
	}
	r.done = true
	return copy(p, r.data), nil
}
