package upload

import (
	"time"

	"github.com/jessegersenson/rowsync/internal/catalog"
)

// valuesToPayload encodes a converted row's PropertyValue map into the
// plain JSON-able shape the remote write API expects.
func valuesToPayload(values map[string]catalog.PropertyValue) map[string]any {
	out := make(map[string]any, len(values))
	for name, v := range values {
		if v.Empty {
			out[name] = nil
			continue
		}
		out[name] = encodeValue(v)
	}
	return out
}

func encodeValue(v catalog.PropertyValue) any {
	switch v.Kind {
	case catalog.Number:
		return v.Number
	case catalog.Checkbox:
		return v.Bool
	case catalog.MultiSelect, catalog.Person:
		return v.Multi
	case catalog.Date, catalog.CreatedTime, catalog.LastEditedTime:
		return encodeDates(v.Dates)
	case catalog.File:
		return encodeFiles(v.Files)
	case catalog.Relation:
		return encodeRelations(v.Relation)
	default: // text, select, status, url, email, phone_number
		return v.Text
	}
}

func encodeDates(ranges []catalog.DateRange) any {
	if len(ranges) == 0 {
		return nil
	}
	dr := ranges[0]
	out := map[string]any{"start": formatTime(dr.Start, dr.HasTime)}
	if dr.IsRange {
		out["end"] = formatTime(dr.End, dr.HasTime)
	}
	return out
}

func formatTime(t time.Time, hasTime bool) string {
	if hasTime {
		return t.Format(time.RFC3339)
	}
	return t.Format("2006-01-02")
}

func encodeFiles(files []catalog.FileRef) any {
	out := make([]map[string]string, 0, len(files))
	for _, f := range files {
		m := map[string]string{"name": f.Name}
		if f.Handle != "" {
			m["handle"] = f.Handle
		} else {
			m["url"] = f.URL
		}
		out = append(out, m)
	}
	return out
}

func encodeRelations(refs []catalog.RelationRef) any {
	out := make([]map[string]string, 0, len(refs))
	for _, r := range refs {
		m := map[string]string{}
		if r.PageID != "" {
			m["page_id"] = r.PageID
		}
		if r.PageURL != "" {
			m["page_url"] = r.PageURL
		}
		out = append(out, m)
	}
	return out
}
