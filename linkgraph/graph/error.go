package graph

import "golang.org/x/xerrors"

var (
	// ErrNotFound is returned when an entry lookup fails. Under correct
	// builder/solver usage it never happens and signals a broken invariant.
	ErrNotFound = xerrors.New("not found")

	// ErrUnknownEdgeEndpoint is returned when an edge refers to a URL that
	// has no entry in the store.
	ErrUnknownEdgeEndpoint = xerrors.New("unknown source and/or destination of edge")

	// ErrMalformedEdge is reported for records that do not decompose into
	// exactly two non-empty URL tokens.
	ErrMalformedEdge = xerrors.New("malformed edge record")

	// ErrSourceUnavailable is returned when the edge source cannot be opened
	// or read.
	ErrSourceUnavailable = xerrors.New("edge source unavailable")
)
