package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Rank_Engine/linkgraph/graph"
	"Rank_Engine/linkgraph/store/memory"
	"Rank_Engine/pagerank"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(ReportTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type ReportTestSuite struct {
	store *memory.Store
	svc   *Service
}

func (s *ReportTestSuite) SetUpTest(c *gc.C) {
	s.store = memory.NewStore()
	for _, url := range []string{"a", "b", "c", "d"} {
		s.store.EnsureEntry(url)
	}
	for _, edge := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "b"}} {
		_, err := s.store.AddEdge(graph.LinkEdge{Src: edge[0], Dst: edge[1]})
		c.Assert(err, gc.IsNil)
		c.Assert(s.store.UnmarkDangling(edge[0]), gc.IsNil)
	}
	s.store.SetSinkComponents([][]string{{"b", "c"}})
	c.Assert(s.store.SetRanks([]float64{0.1, 0.4, 0.4, 0.1}), gc.IsNil)

	svc, err := NewService(Config{
		Store:      s.store,
		ListenAddr: ":0",
		Result: pagerank.Result{
			Iterations: 12,
			Error:      1e-7,
			State:      pagerank.Converged,
			RankMass:   1,
			Elapsed:    3 * time.Millisecond,
		},
	})
	c.Assert(err, gc.IsNil)
	s.svc = svc
}

func (s *ReportTestSuite) TestRanksSortedByRank(c *gc.C) {
	var got []RankedURL
	s.get(c, "/ranks", http.StatusOK, &got)

	c.Assert(got, gc.HasLen, 4)
	var urls []string
	for _, r := range got {
		urls = append(urls, r.URL)
		c.Assert(r.ID, gc.Not(gc.Equals), "")
	}
	c.Assert(urls, gc.DeepEquals, []string{"b", "c", "a", "d"})
	c.Assert(got[0].Rank, gc.Equals, 0.4)
}

func (s *ReportTestSuite) TestRanksTop(c *gc.C) {
	var got []RankedURL
	s.get(c, "/ranks?top=1", http.StatusOK, &got)
	c.Assert(got, gc.HasLen, 1)
	c.Assert(got[0].URL, gc.Equals, "b")

	var errResp map[string]string
	s.get(c, "/ranks?top=many", http.StatusBadRequest, &errResp)
	c.Assert(errResp["error"], gc.Matches, `invalid value for top.*`)
}

func (s *ReportTestSuite) TestSinks(c *gc.C) {
	var got [][]string
	s.get(c, "/sinks", http.StatusOK, &got)
	c.Assert(got, gc.DeepEquals, [][]string{{"b", "c"}})
}

func (s *ReportTestSuite) TestDangling(c *gc.C) {
	var got []string
	s.get(c, "/dangling", http.StatusOK, &got)
	c.Assert(got, gc.DeepEquals, []string{"d"})
}

func (s *ReportTestSuite) TestSummary(c *gc.C) {
	var got Summary
	s.get(c, "/summary", http.StatusOK, &got)
	c.Assert(got, gc.DeepEquals, Summary{
		URLs:       4,
		Iterations: 12,
		Error:      1e-7,
		State:      "CONVERGED",
		RankMass:   1,
		Elapsed:    "3ms",
		Sinks:      1,
		Dangling:   1,
	})
}

func (s *ReportTestSuite) TestUnknownEndpoint(c *gc.C) {
	var errResp map[string]string
	s.get(c, "/nope", http.StatusNotFound, &errResp)
	c.Assert(errResp["error"], gc.Equals, "no such endpoint: /nope")
}

func (s *ReportTestSuite) TestRunStopsOnCancel(c *gc.C) {
	ctx, cancel := context.WithCancel(context.TODO())
	errCh := make(chan error, 1)
	go func() { errCh <- s.svc.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		c.Assert(err, gc.IsNil)
	case <-time.After(10 * time.Second):
		c.Fatal("timed out waiting for service to exit")
	}
}

func (s *ReportTestSuite) TestConfigValidation(c *gc.C) {
	_, err := NewService(Config{})
	c.Assert(err, gc.ErrorMatches, `(?s).*graph store has not been provided.*listen address has not been specified.*`)
}

func (s *ReportTestSuite) get(c *gc.C, path string, expStatus int, out interface{}) {
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	s.svc.ServeHTTP(rec, req)

	c.Assert(rec.Code, gc.Equals, expStatus)
	c.Assert(rec.Header().Get("Content-Type"), gc.Equals, "application/json")
	c.Assert(json.Unmarshal(rec.Body.Bytes(), out), gc.IsNil)
}
