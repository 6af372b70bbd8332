package catalog

import "time"

// DateRange is a single date or a start..end span. End is the zero time
// when the value is a single date rather than a range.
type DateRange struct {
	Start time.Time
	End   time.Time
	// HasTime records whether Start/End carry a time-of-day component, so
	// the remote write payload can omit it for pure dates.
	HasTime bool
	IsRange bool
}

// FileRef is either a remote-by-reference URL or a handle produced by the
// file-upload subprotocol. Exactly one of URL/Handle is set.
type FileRef struct {
	Name   string // display filename
	URL    string // used-by-reference external URL
	Handle string // stable remote asset id once uploaded; empty for URL refs
}

// PropertyValue is the tagged union every converted cell becomes.
// Only the field matching Kind is meaningful; the zero value of the others
// is inert. A single struct (rather than an interface) keeps the Row
// Converter's compiled per-column plan (see internal/convert) branch-free
// and allocation-light, matching a compiled-column-plan approach.
type PropertyValue struct {
	Kind Type

	Text     string   // text, url, email, phone_number, select, status
	Number   float64  // number
	Bool     bool     // checkbox
	Multi    []string // multi_select values; person member ids (raw fragments when no member resolver is set)
	Dates    []DateRange
	Files    []FileRef
	Relation []RelationRef

	// Empty marks a value that was intentionally left blank (parse
	// failure without --fail-on-conversion-error, unmatched status
	// without strict mode, etc.) so the uploader can distinguish "no
	// value supplied" from "value is the empty string."
	Empty bool
}

// RelationRef is one resolved (or still-pending) link to a row in a linked
// database.
type RelationRef struct {
	Title   string // the fragment as supplied, trimmed
	PageID  string // resolved remote page id; empty if unresolved
	PageURL string // direct URL fragment, used as-is if supplied
}
