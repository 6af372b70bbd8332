package catalog

import (
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// dateLayouts covers the common date formats a header-less CSV cell might use.
// Ordered from most to least specific so the first match wins.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02 January 2006",
	"January 2, 2006",
	"01/02/2006",
	"02.01.2006",
	"2006-01",
}

// InferColumnType guesses one catalogue type for a column from its
// non-empty sampled cell values, testing predicates in a fixed order:
// checkbox, number, url, email, date, else text.
//
// Auto-detection never proposes select, multi_select, relation, or file —
// callers must request those explicitly via --column-types.
//
// Grounded on an ordered-predicate
// chain (internal/probe/main.go), generalized to this catalogue's type
// names and predicate set.
func InferColumnType(values []string) Type {
	nonEmpty := nonEmptyTrimmed(values)
	if len(nonEmpty) == 0 {
		return Text
	}
	if allMatch(nonEmpty, isCheckbox) {
		return Checkbox
	}
	if allMatch(nonEmpty, isNumber) {
		return Number
	}
	if allMatch(nonEmpty, isURL) {
		return URL
	}
	if allMatch(nonEmpty, isEmail) {
		return Email
	}
	if allMatch(nonEmpty, func(s string) bool { return ParseDate(s) != nil }) {
		return Date
	}
	return Text
}

func nonEmptyTrimmed(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

func isCheckbox(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "false":
		return true
	default:
		return false
	}
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

func isURL(s string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(s))
	return err == nil && u.Scheme != "" && u.Host != ""
}

func isEmail(s string) bool {
	_, err := mail.ParseAddress(strings.TrimSpace(s))
	return err == nil
}

// ParseDate parses a single date/date-time token against the common-format
// list. It returns nil when nothing matches. Range parsing ("A .. B") is
// handled one level up, in internal/convert, since a range is two dates
// joined by a separator rather than a single token.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// HasTimeComponent reports whether a successfully-parsed date string also
// carried a time-of-day component, used to decide whether the remote write
// payload should include time precision.
func HasTimeComponent(s string) bool {
	return strings.ContainsAny(s, "T") || strings.Count(strings.TrimSpace(s), ":") >= 1
}
