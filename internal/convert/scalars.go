package convert

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jessegersenson/rowsync/internal/catalog"
)

// scalarTextConverter implements the direct-parse scalar rule for text,
// url, email, and phone_number: on parse failure produce an
// empty value unless fail-on-conversion is set (handled by the caller).
func scalarTextConverter(kind catalog.Type) func(context.Context, string) (catalog.PropertyValue, error) {
	return func(_ context.Context, raw string) (catalog.PropertyValue, error) {
		if raw == "" {
			return catalog.PropertyValue{Kind: kind, Empty: true}, nil
		}
		return catalog.PropertyValue{Kind: kind, Text: raw}, nil
	}
}

// numberConverter parses a decimal literal; commas/underscores are not
// stripped.
func numberConverter() func(context.Context, string) (catalog.PropertyValue, error) {
	return func(_ context.Context, raw string) (catalog.PropertyValue, error) {
		if raw == "" {
			return catalog.PropertyValue{Kind: catalog.Number, Empty: true}, nil
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return catalog.PropertyValue{}, err
		}
		return catalog.PropertyValue{Kind: catalog.Number, Number: n}, nil
	}
}

// checkboxConverter parses true/false case-insensitively; empty means false.
func checkboxConverter() func(context.Context, string) (catalog.PropertyValue, error) {
	return func(_ context.Context, raw string) (catalog.PropertyValue, error) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return catalog.PropertyValue{Kind: catalog.Checkbox, Bool: false}, nil
		}
		switch strings.ToLower(raw) {
		case "true":
			return catalog.PropertyValue{Kind: catalog.Checkbox, Bool: true}, nil
		case "false":
			return catalog.PropertyValue{Kind: catalog.Checkbox, Bool: false}, nil
		default:
			return catalog.PropertyValue{}, &parseError{kind: "checkbox", raw: raw}
		}
	}
}

type parseError struct {
	kind string
	raw  string
}

func (e *parseError) Error() string {
	return fmt.Sprintf("cannot parse %q as %s", e.raw, e.kind)
}
