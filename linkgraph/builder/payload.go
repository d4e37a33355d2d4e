package builder

import (
	"sync"

	"Rank_Engine/pipeline"
)

var (
	_ pipeline.Payload = (*edgePayload)(nil)

	payloadPool = sync.Pool{
		New: func() interface{} { return new(edgePayload) },
	}
)

// edgePayload carries a single edge-list record through the ingestion
// pipeline.
type edgePayload struct {
	Pos    int
	Raw    string
	Tokens []string
	Err    error

	// Populated by the parse stage.
	Src      string
	Dst      string
	SelfLink bool
}

// MarkAsProcessed implements pipeline.Payload.
func (p *edgePayload) MarkAsProcessed() {
	p.Pos = 0
	p.Raw = ""
	p.Tokens = p.Tokens[:0]
	p.Err = nil
	p.Src, p.Dst = "", ""
	p.SelfLink = false
	payloadPool.Put(p)
}
