// Package export turns a result set into a lazily produced CSV download that
// opens with a data citation.
package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/amrdc/awsapi/internal/metrics"
)

// ContentType is the media type of a Stream.
const ContentType = "text/csv"

// DOI of the quality-controlled AWS dataset.
const DOI = "https://doi.org/10.48567/1hn2-nw60"

// flushEvery is the number of rows between flushes of the underlying writer.
const flushEvery = 500

// ErrConsumed is returned when a Stream is read after it has been drained.
var ErrConsumed = errors.New("export stream already consumed")

// RowSource yields rows one at a time.
type RowSource interface {
	Columns() []string
	Next() ([]any, bool)
}

type stage int

const (
	stageCitation stage = iota
	stageHeader
	stageRows
	stageDone
)

// Stream produces the citation line, the header line, then one line per row.
// Rows are pulled from the source only as lines are requested. A Stream is
// consumed once.
type Stream struct {
	src      RowSource
	start    time.Time
	end      time.Time
	accessed time.Time

	stage stage
	buf   bytes.Buffer
	csv   *csv.Writer
	rows  int
}

// New returns a stream over src for the requested date range, cited as
// accessed now.
func New(src RowSource, start, end time.Time) *Stream {
	return NewAt(src, start, end, time.Now())
}

// NewAt is New with an explicit access time.
func NewAt(src RowSource, start, end, accessed time.Time) *Stream {
	s := &Stream{src: src, start: start, end: end, accessed: accessed}
	s.csv = csv.NewWriter(&s.buf)
	return s
}

// Citation is the dataset citation for a subset covering start to end.
func Citation(start, end, accessed time.Time) string {
	return fmt.Sprintf("Antarctic Meteorological Research and Data Center: Automatic Weather Station "+
		"quality-controlled observational data. AMRDC Data Repository. Subset used: %s - %s, accessed %s, %s.",
		start.Format("2006-01"), end.Format("2006-01"), accessed.Format("2006-01-02"), DOI)
}

// Filename is the attachment name offered to clients.
func (s *Stream) Filename() string {
	return fmt.Sprintf("AMRDC Data Warehouse %s.csv", s.accessed.Format("2006-01-02"))
}

// Rows reports how many data rows have been produced so far.
func (s *Stream) Rows() int {
	return s.rows
}

// Next returns the next line including its newline, or io.EOF after the last
// row. The returned slice is valid until the following call.
func (s *Stream) Next() ([]byte, error) {
	s.buf.Reset()
	switch s.stage {
	case stageCitation:
		s.stage = stageHeader
		s.buf.WriteString(Citation(s.start, s.end, s.accessed))
		s.buf.WriteByte('\n')
		return s.buf.Bytes(), nil

	case stageHeader:
		s.stage = stageRows
		if err := s.writeRecord(s.src.Columns()); err != nil {
			return nil, err
		}
		return s.buf.Bytes(), nil

	case stageRows:
		row, ok := s.src.Next()
		if !ok {
			s.stage = stageDone
			return nil, io.EOF
		}
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatValue(v)
		}
		if err := s.writeRecord(record); err != nil {
			return nil, err
		}
		s.rows++
		return s.buf.Bytes(), nil

	default:
		return nil, io.EOF
	}
}

func (s *Stream) writeRecord(record []string) error {
	if err := s.csv.Write(record); err != nil {
		return fmt.Errorf("encoding csv record: %w", err)
	}
	s.csv.Flush()
	return s.csv.Error()
}

// WriteAll drains the stream into w. It stops without reading further rows
// once ctx ends, returning the context error.
func (s *Stream) WriteAll(ctx context.Context, w io.Writer) (int64, error) {
	if s.stage == stageDone {
		return 0, ErrConsumed
	}

	start := s.rows
	defer func() { metrics.ExportRows.Add(float64(s.rows - start)) }()

	bw := bufio.NewWriter(w)
	var written int64
	flush := func() error {
		if err := bw.Flush(); err != nil {
			return err
		}
		if f, ok := w.(interface{ Flush() }); ok {
			f.Flush()
		}
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		line, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return written, err
		}
		n, err := bw.Write(line)
		written += int64(n)
		if err != nil {
			return written, err
		}
		if s.rows > 0 && s.rows%flushEvery == 0 {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}

	return written, flush()
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
