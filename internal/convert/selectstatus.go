package convert

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jessegersenson/rowsync/internal/catalog"
)

// selectConverter implements the select rule: a single non-empty string,
// added to the property's options if absent.
func selectConverter(property string, registrar OptionRegistrar) func(context.Context, string) (catalog.PropertyValue, error) {
	return func(ctx context.Context, raw string) (catalog.PropertyValue, error) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return catalog.PropertyValue{Kind: catalog.Select, Empty: true}, nil
		}
		if registrar != nil {
			if err := registrar.EnsureOption(ctx, property, raw); err != nil {
				return catalog.PropertyValue{}, fmt.Errorf("select option %q: %w", raw, err)
			}
		}
		return catalog.PropertyValue{Kind: catalog.Select, Text: raw}, nil
	}
}

// statusConverter implements the status rule: the value must
// match an existing option; on mismatch, substitute the configured default
// status, else leave empty (Open Question 1's resolved fallback), unless
// strict mode promotes the mismatch to a per-row error.
func statusConverter(existing []string, defaultStatus string, failOnWrongStatus bool) func(context.Context, string) (catalog.PropertyValue, error) {
	known := make(map[string]bool, len(existing))
	for _, o := range existing {
		known[o] = true
	}

	return func(_ context.Context, raw string) (catalog.PropertyValue, error) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return catalog.PropertyValue{Kind: catalog.Status, Empty: true}, nil
		}
		if known[raw] {
			return catalog.PropertyValue{Kind: catalog.Status, Text: raw}, nil
		}
		if failOnWrongStatus {
			return catalog.PropertyValue{}, &parseError{kind: "status option", raw: raw}
		}
		if defaultStatus != "" {
			log.Printf("status %q matches no existing option; substituting default status %q", raw, defaultStatus)
			return catalog.PropertyValue{Kind: catalog.Status, Text: defaultStatus}, nil
		}
		log.Printf("status %q matches no existing option and no default status is set; leaving it empty", raw)
		return catalog.PropertyValue{Kind: catalog.Status, Empty: true}, nil
	}
}

// multiConverter implements the comma-split rule for multi_select: split on
// commas with no escaping, trim each fragment, drop empty fragments, and
// register any fragment not already among the property's options.
func multiConverter(property string, registrar OptionRegistrar) func(context.Context, string) (catalog.PropertyValue, error) {
	return func(ctx context.Context, raw string) (catalog.PropertyValue, error) {
		frags := splitFragments(raw)
		if len(frags) == 0 {
			return catalog.PropertyValue{Kind: catalog.MultiSelect, Empty: true}, nil
		}
		if registrar != nil {
			for _, f := range frags {
				if err := registrar.EnsureOption(ctx, property, f); err != nil {
					return catalog.PropertyValue{}, fmt.Errorf("multi_select option %q: %w", f, err)
				}
			}
		}
		return catalog.PropertyValue{Kind: catalog.MultiSelect, Multi: frags}, nil
	}
}

// personConverter splits usernames/emails the same way multi_select does,
// then resolves each fragment against the workspace member directory;
// fragments with no matching member are dropped, mirroring the unresolved
// relation default.
func personConverter(resolver MemberResolver) func(context.Context, string) (catalog.PropertyValue, error) {
	return func(ctx context.Context, raw string) (catalog.PropertyValue, error) {
		frags := splitFragments(raw)
		if len(frags) == 0 {
			return catalog.PropertyValue{Kind: catalog.Person, Empty: true}, nil
		}

		resolved := make([]string, 0, len(frags))
		for _, f := range frags {
			if resolver == nil {
				resolved = append(resolved, f)
				continue
			}
			memberID, found, err := resolver.Resolve(ctx, f)
			if err != nil {
				return catalog.PropertyValue{}, fmt.Errorf("resolve workspace member %q: %w", f, err)
			}
			if !found {
				continue // dropped, mirroring unresolved-relation default
			}
			resolved = append(resolved, memberID)
		}

		if len(resolved) == 0 {
			return catalog.PropertyValue{Kind: catalog.Person, Empty: true}, nil
		}
		return catalog.PropertyValue{Kind: catalog.Person, Multi: resolved}, nil
	}
}
