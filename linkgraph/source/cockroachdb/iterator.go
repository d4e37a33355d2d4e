package cockroachdb

import (
	"database/sql"

	"Rank_Engine/linkgraph/graph"

	"golang.org/x/xerrors"
)

// recordIterator is a graph.RecordIterator implementation for the cdb edge source.
type recordIterator struct {
	rows          *sql.Rows
	pos           int
	lastErr       error
	latchedRecord *graph.Record
}

func (i *recordIterator) Next() bool {
	if i.lastErr != nil || !i.rows.Next() {
		if err := i.rows.Err(); err != nil && i.lastErr == nil {
			i.lastErr = xerrors.Errorf("edge iterator: %v: %w", err, graph.ErrSourceUnavailable)
		}
		return false
	}

	var src, dst sql.NullString
	if i.lastErr = i.rows.Scan(&src, &dst); i.lastErr != nil {
		i.lastErr = xerrors.Errorf("edge iterator: %v: %w", i.lastErr, graph.ErrSourceUnavailable)
		return false
	}
	i.pos++
	// Rows with a missing endpoint keep an empty token so that the builder
	// reports them as malformed.
	i.latchedRecord = &graph.Record{
		Pos:    i.pos,
		Raw:    src.String + " " + dst.String,
		Tokens: []string{src.String, dst.String},
	}
	return true
}

func (i *recordIterator) Error() error {
	return i.lastErr
}

func (i *recordIterator) Close() error {
	err := i.rows.Close()
	if err != nil {
		return xerrors.Errorf("edge iterator: %w", err)
	}
	return nil
}

func (i *recordIterator) Record() *graph.Record {
	return i.latchedRecord
}
