package input

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVOptions controls delimiter and duplicate-column handling.
type CSVOptions struct {
	Delimiter      rune // defaults to ','
	StrictDuplCols bool // --fail-on-duplicate-csv-columns
}

// dedupHeader applies the non-strict "last occurrence wins, first-occurrence
// position kept" policy, or fails when StrictDuplCols is set and a
// duplicate exists.
//
// Returns the deduplicated, position-preserving header and, for each
// dest-column, the index of the *last* occurrence in the raw header (the
// source column whose values should be read).
func dedupHeader(raw []string, strict bool) ([]string, []int, error) {
	firstPos := map[string]int{}
	lastIdx := map[string]int{}
	order := make([]string, 0, len(raw))

	seen := map[string]bool{}
	for i, h := range raw {
		if _, ok := firstPos[h]; !ok {
			firstPos[h] = len(order)
			order = append(order, h)
		} else if strict {
			return nil, nil, fmt.Errorf("duplicate CSV column %q", h)
		} else if !seen[h] {
			seen[h] = true
		}
		lastIdx[h] = i
	}

	srcIdx := make([]int, len(order))
	for i, h := range order {
		srcIdx[i] = lastIdx[h]
	}
	return order, srcIdx, nil
}

type csvStream struct {
	r      *csv.Reader
	rc     io.ReadCloser
	srcIdx []int
	cols   []string
	index  int
	trim   bool
}

// ReadCSV parses one CSV file: the first non-empty row is the
// header; the delimiter defaults to ',' and is configurable. A file with no
// non-empty row is an error; a header with no data row after it yields an
// empty stream, which the runner rejects once the rows are read.
//
// A dest→source index mapping is built once from the header, BOM is
// stripped from the first header cell, and cells are trimmed unless they
// arrive pre-trimmed.
func ReadCSV(rc io.ReadCloser, opt CSVOptions) (Header, Stream, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = ','
	}

	cr := csv.NewReader(rc)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var raw []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			rc.Close()
			return Header{}, nil, fmt.Errorf("csv: empty file, no header row found")
		}
		if err != nil {
			rc.Close()
			return Header{}, nil, fmt.Errorf("csv: read header: %w", err)
		}
		if nonEmptyRow(rec) {
			raw = rec
			break
		}
	}
	if len(raw) > 0 {
		raw[0] = strings.TrimPrefix(raw[0], "\ufeff")
	}
	for i, h := range raw {
		raw[i] = strings.TrimSpace(h)
	}

	cols, srcIdx, err := dedupHeader(raw, opt.StrictDuplCols)
	if err != nil {
		rc.Close()
		return Header{}, nil, err
	}

	return Header{Columns: cols}, &csvStream{r: cr, rc: rc, srcIdx: srcIdx, cols: cols, trim: true}, nil
}

func nonEmptyRow(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}

func (s *csvStream) Next() (Row, bool, error) {
	rec, err := s.r.Read()
	if err == io.EOF {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, fmt.Errorf("csv: read row %d: %w", s.index+1, err)
	}

	values := make(map[string]any, len(s.cols))
	for i, col := range s.cols {
		si := s.srcIdx[i]
		if si >= len(rec) {
			values[col] = ""
			continue
		}
		v := rec[si]
		if s.trim {
			v = strings.TrimSpace(v)
		}
		values[col] = v
	}
	row := Row{Index: s.index, Values: values}
	s.index++
	return row, true, nil
}

func (s *csvStream) Close() error { return s.rc.Close() }
