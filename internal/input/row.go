// Package input reads one local file (CSV or JSON) into an ordered column
// header plus a lazy row stream. No type coercion happens
// here — every cell value stays a raw string (CSV) or JSON scalar/array
// (JSON) until the Row Converter (internal/convert) processes it.
package input

import "fmt"

// Row is an ordered mapping from column name to raw cell value.
// CSV cells are always string; JSON cells may be string (JSON numbers are
// kept as their decimal text), bool, nil, []string (array-valued fields),
// or a decoded nested object.
type Row struct {
	Index  int // 0-based data-row ordinal, for error reporting
	Values map[string]any
}

// Get returns the raw value for a column, or "" if absent or nil.
// Non-string JSON values are formatted with fmt.Sprint so downstream
// conversion can treat every input uniformly as text.
func (r Row) Get(column string) string {
	v, ok := r.Values[column]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// GetRaw returns the untouched value, without the string formatting Get
// applies (a JSON array-valued cell comes back as its []string). The row
// converter reads cells through Get, not GetRaw.
func (r Row) GetRaw(column string) any {
	return r.Values[column]
}

// Stream is the lazy row source handed from a Reader to the rest of the
// pipeline. Next returns (Row{}, false, nil) at end of input and
// (Row{}, false, err) on a fatal read error.
type Stream interface {
	Next() (Row, bool, error)
	Close() error
}

// Header is the ordered, deduplicated column list produced by a Reader,
// along with the key column (first column) identity.
type Header struct {
	Columns []string
}

// KeyColumn is always the first column.
func (h Header) KeyColumn() string {
	if len(h.Columns) == 0 {
		return ""
	}
	return h.Columns[0]
}
