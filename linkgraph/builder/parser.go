package builder

import (
	"context"

	"Rank_Engine/linkgraph/graph"
	"Rank_Engine/pipeline"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// edgeParser validates the shape of a record and extracts its endpoints.
// Malformed records are logged and dropped from the pipeline.
type edgeParser struct {
	logger *logrus.Entry

	records   int
	malformed int
}

func newEdgeParser(logger *logrus.Entry) *edgeParser {
	return &edgeParser{logger: logger}
}

func (ep *edgeParser) Process(_ context.Context, p pipeline.Payload) (pipeline.Payload, error) {
	payload := p.(*edgePayload)
	ep.records++

	err := payload.Err
	if err == nil {
		err = validateTokens(payload.Tokens)
	}
	if err != nil {
		ep.malformed++
		ep.logger.WithFields(logrus.Fields{
			"pos": payload.Pos,
			"raw": payload.Raw,
			"err": err,
		}).Warn("skipping malformed edge record")
		return nil, nil
	}

	payload.Src, payload.Dst = payload.Tokens[0], payload.Tokens[1]
	payload.SelfLink = payload.Src == payload.Dst
	return payload, nil
}

func validateTokens(tokens []string) error {
	if len(tokens) != 2 {
		return xerrors.Errorf("expected 2 URL tokens, got %d: %w", len(tokens), graph.ErrMalformedEdge)
	}
	for _, tok := range tokens {
		if tok == "" {
			return xerrors.Errorf("empty URL token: %w", graph.ErrMalformedEdge)
		}
	}
	return nil
}
