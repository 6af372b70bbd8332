package input

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// JSONOptions controls JSON parsing.
type JSONOptions struct {
	// PayloadKeyColumn names the key that must appear first in the header
	// order. Required for JSON input.
	PayloadKeyColumn string
}

type jsonStream struct {
	rc   io.ReadCloser
	rows []Row
	pos  int
}

// ReadJSON parses a JSON array of objects. The union of keys
// across all objects forms the header; key order is PayloadKeyColumn
// first, then keys in first-occurrence order across the array.
//
// Decodes each object through orderedObject rather than map[string]any,
// since a plain map would discard the source key order the header
// depends on. Integral JSON numbers are kept as their decimal text via
// json.Number so they don't round-trip through float64 formatting
// surprises.
func ReadJSON(rc io.ReadCloser, opt JSONOptions) (Header, Stream, error) {
	if opt.PayloadKeyColumn == "" {
		rc.Close()
		return Header{}, nil, fmt.Errorf("json: --payload-key-column is required for JSON input")
	}

	dec := json.NewDecoder(rc)
	dec.UseNumber()

	var raw []orderedObject
	if err := dec.Decode(&raw); err != nil {
		rc.Close()
		return Header{}, nil, fmt.Errorf("json: top-level value must be an array of objects: %w", err)
	}
	rc.Close()

	if len(raw) == 0 {
		return Header{}, nil, fmt.Errorf("json: no data rows found")
	}

	seen := map[string]bool{opt.PayloadKeyColumn: true}
	cols := []string{opt.PayloadKeyColumn}
	for _, obj := range raw {
		for _, k := range obj.keys {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}

	rows := make([]Row, 0, len(raw))
	for i, obj := range raw {
		values := make(map[string]any, len(cols))
		for _, c := range cols {
			v, ok := obj.values[c]
			if !ok {
				values[c] = nil
				continue
			}
			values[c] = unwrapNumber(v)
		}
		rows = append(rows, Row{Index: i, Values: values})
	}

	return Header{Columns: cols}, &jsonStream{rc: rc, rows: rows}, nil
}

// orderedObject decodes a JSON object while preserving the source order of
// its keys, which encoding/json's map[string]any target does not.
type orderedObject struct {
	keys   []string
	values map[string]any
}

func (o *orderedObject) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("json: row must be an object")
	}

	o.values = make(map[string]any)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("json: object key must be a string")
		}

		var val any
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("json: field %q: %w", key, err)
		}

		o.keys = append(o.keys, key)
		o.values[key] = val
	}

	_, err = dec.Token() // closing '}'
	return err
}

func unwrapNumber(v any) any {
	switch t := v.(type) {
	case json.Number:
		return t.String()
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, fmt.Sprint(unwrapNumber(e)))
		}
		return out
	default:
		return t
	}
}

func (s *jsonStream) Next() (Row, bool, error) {
	if s.pos >= len(s.rows) {
		return Row{}, false, nil
	}
	r := s.rows[s.pos]
	s.pos++
	return r, true, nil
}

func (s *jsonStream) Close() error { return nil }
