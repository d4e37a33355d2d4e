package graph

import (
	"github.com/google/uuid"
)

// Iterator is implemented by objects that walk a sequence of items.
type Iterator interface {
	// Next advances the iterator. If no more items are available or an
	// error occurs, calls to Next() returns false.
	Next() bool

	// Error returns the last error encountered by the iterator
	Error() error

	// Close releases any resources associated with an iterator.
	Close() error
}

// Record is a single raw entry read from an edge source.
type Record struct {
	// Pos is the 1-based position of the record in its source.
	Pos int
	// Raw is the record as it appeared in the source.
	Raw string
	// Tokens holds the whitespace separated fields of the record.
	Tokens []string
	// Err is set by sources for records they could not decode. Such
	// records are treated as malformed.
	Err error
}

// RecordIterator is implemented by edge sources.
type RecordIterator interface {
	Iterator

	// Record returns the currently fetched record
	Record() *Record
}

// LinkEdge is a directed link from Src to Dst. TransProb is kept for future
// weighting and is always zero.
type LinkEdge struct {
	Src       string
	Dst       string
	TransProb float64
}

// Entry holds everything the store knows about a single URL.
type Entry struct {
	ID    uuid.UUID
	URL   string
	Index int

	// OutLinks is a set keyed by target URL; order of insertion is kept.
	OutLinks []LinkEdge
	// InLinks is the set of source URLs pointing at this entry.
	InLinks []string

	Dangling bool
}

// HasOutLink returns true if the entry links to dst.
func (e *Entry) HasOutLink(dst string) bool {
	for _, l := range e.OutLinks {
		if l.Dst == dst {
			return true
		}
	}
	return false
}

// Store is implemented by types that hold the link graph used for
// computing PageRank scores.
//
// Store implementations must allow concurrent readers while distinct
// callers write ranks for distinct entries.
type Store interface {
	Entry(url string) (*Entry, error)
	EnsureEntry(url string) (*Entry, bool)
	UpsertEntry(entry *Entry) error
	AddEdge(edge LinkEdge) (bool, error)
	SetOutLinks(url string, links []LinkEdge) error

	URLs() []string
	Entries() []*Entry
	Len() int

	MarkDangling(url string) error
	UnmarkDangling(url string) error
	DanglingNodes() []string

	SetSinkComponents(sinks [][]string)
	SinkComponents() [][]string

	Rank(url string) (float64, error)
	Ranks() []float64
	SetRanks(ranks []float64) error
	SwapRanks(next []float64) ([]float64, error)
}
