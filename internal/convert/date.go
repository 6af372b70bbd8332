package convert

import (
	"context"
	"strings"

	"github.com/jessegersenson/rowsync/internal/catalog"
)

// rangeSeparator denotes a "start.. end" date range; whitespace around it is insignificant.
const rangeSeparator = ".."

// dateConverter implements the date rule: a single date/date
// time value, or a "A.. B" range, in any common format.
func dateConverter() func(context.Context, string) (catalog.PropertyValue, error) {
	return func(_ context.Context, raw string) (catalog.PropertyValue, error) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return catalog.PropertyValue{Kind: catalog.Date, Empty: true}, nil
		}

		if idx := strings.Index(raw, rangeSeparator); idx >= 0 {
			startRaw := strings.TrimSpace(raw[:idx])
			endRaw := strings.TrimSpace(raw[idx+len(rangeSeparator):])

			start := catalog.ParseDate(startRaw)
			end := catalog.ParseDate(endRaw)
			if start == nil || end == nil {
				return catalog.PropertyValue{}, &parseError{kind: "date range", raw: raw}
			}
			dr := catalog.DateRange{
				Start:   *start,
				End:     *end,
				IsRange: true,
				HasTime: catalog.HasTimeComponent(startRaw) || catalog.HasTimeComponent(endRaw),
			}
			return catalog.PropertyValue{Kind: catalog.Date, Dates: []catalog.DateRange{dr}}, nil
		}

		t := catalog.ParseDate(raw)
		if t == nil {
			return catalog.PropertyValue{}, &parseError{kind: "date", raw: raw}
		}
		dr := catalog.DateRange{Start: *t, HasTime: catalog.HasTimeComponent(raw)}
		return catalog.PropertyValue{Kind: catalog.Date, Dates: []catalog.DateRange{dr}}, nil
	}
}

// createdOrEditedTimeConverter handles created_time/last_edited_time, which
// accept a single date/date-time but are server-assigned in practice; the
// converter still parses a supplied override for completeness.
func createdOrEditedTimeConverter(kind catalog.Type) func(context.Context, string) (catalog.PropertyValue, error) {
	return func(_ context.Context, raw string) (catalog.PropertyValue, error) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return catalog.PropertyValue{Kind: kind, Empty: true}, nil
		}
		t := catalog.ParseDate(raw)
		if t == nil {
			return catalog.PropertyValue{}, &parseError{kind: string(kind), raw: raw}
		}
		return catalog.PropertyValue{Kind: kind, Dates: []catalog.DateRange{{Start: *t, HasTime: catalog.HasTimeComponent(raw)}}}, nil
	}
}
