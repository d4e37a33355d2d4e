package builder

import (
	"context"

	"Rank_Engine/linkgraph/graph"
	"Rank_Engine/pipeline"
)

// graphIngester is the pipeline sink that applies parsed edges to the store.
type graphIngester struct {
	store          graph.Store
	selfLinkPolicy graph.Policy

	edges            int
	selfLinksDropped int
}

func newGraphIngester(store graph.Store, selfLinkPolicy graph.Policy) *graphIngester {
	return &graphIngester{
		store:          store,
		selfLinkPolicy: selfLinkPolicy,
	}
}

// Consume implements pipeline.Sink. Both endpoints are registered even when
// the edge itself is discarded, so a dropped self-link still yields an entry.
func (gi *graphIngester) Consume(_ context.Context, p pipeline.Payload) error {
	payload := p.(*edgePayload)

	gi.store.EnsureEntry(payload.Src)
	gi.store.EnsureEntry(payload.Dst)

	if payload.SelfLink && gi.selfLinkPolicy == graph.PolicyIgnore {
		gi.selfLinksDropped++
		return nil
	}

	added, err := gi.store.AddEdge(graph.LinkEdge{Src: payload.Src, Dst: payload.Dst})
	if err != nil {
		return err
	}
	if added {
		gi.edges++
	}
	return gi.store.UnmarkDangling(payload.Src)
}
