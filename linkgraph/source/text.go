package source

import (
	"bufio"
	"io"
	"os"
	"strings"

	"Rank_Engine/linkgraph/graph"

	"golang.org/x/xerrors"
)

// maxRecordSize bounds the length of a single line in an edge list. Longer
// lines are skipped as malformed records.
const maxRecordSize = 1 << 20

// rawPreviewSize bounds the Raw text kept for an over-long record.
const rawPreviewSize = 80

// Compile-time check for ensuring textSource implements graph.RecordIterator.
var _ graph.RecordIterator = (*textSource)(nil)

// textSource is a graph.RecordIterator over a line oriented edge list where
// each line holds a source and a target URL separated by whitespace.
type textSource struct {
	reader *bufio.Reader
	closer io.Closer

	pos           int
	lastErr       error
	latchedRecord *graph.Record
}

// NewTextSource returns a record iterator that reads an edge list from r.
// If r also implements io.Closer it is closed by the iterator's Close method.
func NewTextSource(r io.Reader) graph.RecordIterator {
	src := &textSource{reader: bufio.NewReaderSize(r, 64*1024)}
	if c, ok := r.(io.Closer); ok {
		src.closer = c
	}
	return src
}

// OpenFile opens the edge list stored at path.
func OpenFile(path string) (graph.RecordIterator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("open edge list %q: %v: %w", path, err, graph.ErrSourceUnavailable)
	}
	return NewTextSource(f), nil
}

func (s *textSource) Next() bool {
	if s.lastErr != nil {
		return false
	}
	line, tooLong, err := s.readLine()
	if err != nil {
		if err != io.EOF {
			s.lastErr = xerrors.Errorf("read edge list after record %d: %v: %w", s.pos, err, graph.ErrSourceUnavailable)
		}
		return false
	}

	s.pos++
	rec := &graph.Record{Pos: s.pos, Raw: line}
	if tooLong {
		rec.Raw = line[:rawPreviewSize] + "..."
		rec.Err = xerrors.Errorf("record exceeds %d bytes: %w", maxRecordSize, graph.ErrMalformedEdge)
	} else {
		rec.Tokens = strings.Fields(line)
	}
	s.latchedRecord = rec
	return true
}

// readLine returns the next line without its terminator. A line longer than
// maxRecordSize is consumed in full but only its first maxRecordSize bytes
// are returned, together with a true flag.
func (s *textSource) readLine() (string, bool, error) {
	var (
		buf     []byte
		tooLong bool
		partial bool
	)
	for {
		frag, isPrefix, err := s.reader.ReadLine()
		if err != nil {
			if err == io.EOF && partial {
				return string(buf), tooLong, nil
			}
			return "", false, err
		}
		partial = true

		if !tooLong {
			if room := maxRecordSize - len(buf); len(frag) > room {
				buf = append(buf, frag[:room]...)
				tooLong = true
			} else {
				buf = append(buf, frag...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

func (s *textSource) Record() *graph.Record {
	return s.latchedRecord
}

func (s *textSource) Error() error {
	return s.lastErr
}

func (s *textSource) Close() error {
	if s.closer == nil {
		return nil
	}
	if err := s.closer.Close(); err != nil {
		return xerrors.Errorf("text source: %w", err)
	}
	return nil
}
