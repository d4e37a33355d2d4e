package builder

import (
	"context"

	"Rank_Engine/linkgraph/graph"
	"Rank_Engine/pipeline"

	"golang.org/x/xerrors"
)

// recordSource adapts a graph.RecordIterator to a pipeline.Source.
type recordSource struct {
	recordIt graph.RecordIterator
}

func (rs *recordSource) Error() error {
	err := rs.recordIt.Error()
	if err == nil || xerrors.Is(err, graph.ErrSourceUnavailable) {
		return err
	}
	return xerrors.Errorf("read edge source: %v: %w", err, graph.ErrSourceUnavailable)
}

func (rs *recordSource) Next(context.Context) bool {
	return rs.recordIt.Next()
}

func (rs *recordSource) Payload() pipeline.Payload {
	rec := rs.recordIt.Record()
	p := payloadPool.Get().(*edgePayload)

	p.Pos = rec.Pos
	p.Raw = rec.Raw
	p.Tokens = append(p.Tokens[:0], rec.Tokens...)
	p.Err = rec.Err
	return p
}
