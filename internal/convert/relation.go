package convert

import (
	"context"
	"fmt"

	"github.com/jessegersenson/rowsync/internal/catalog"
)

// relationConverter implements the relation rule: each
// fragment is either a direct page URL of the linked database, or a title
// looked up in the linked-DB key index. On miss, per Flags, the fragment is
// dropped, added as a new linked-DB row, or promoted to a fatal error.
func (c *Converter) relationConverter(propertyName string) func(context.Context, string) (catalog.PropertyValue, error) {
	idx := c.relIdx[propertyName]
	linkedDB := c.linkedDB[propertyName]

	return func(ctx context.Context, raw string) (catalog.PropertyValue, error) {
		frags := splitFragments(raw)
		if len(frags) == 0 {
			return catalog.PropertyValue{Kind: catalog.Relation, Empty: true}, nil
		}

		refs := make([]catalog.RelationRef, 0, len(frags))
		for _, f := range frags {
			if isAbsoluteURL(f) {
				refs = append(refs, catalog.RelationRef{Title: f, PageURL: f})
				continue
			}

			if idx == nil {
				return catalog.PropertyValue{}, fmt.Errorf("relation column %q has no linked-database index", propertyName)
			}

			pageID, found, duplicate, err := idx.Lookup(ctx, linkedDB, f)
			if err != nil {
				return catalog.PropertyValue{}, fmt.Errorf("relation lookup %q: %w", f, err)
			}
			if duplicate && c.flags.FailOnRelationDuplicate {
				return catalog.PropertyValue{}, fmt.Errorf("relation target %q has duplicate entries in linked database (strict)", f)
			}

			if !found {
				if !c.flags.AddMissingRelations {
					continue // dropped
				}
				pageID, err = idx.Create(ctx, linkedDB, f)
				if err != nil {
					return catalog.PropertyValue{}, fmt.Errorf("create linked-database row %q: %w", f, err)
				}
			}
			refs = append(refs, catalog.RelationRef{Title: f, PageID: pageID})
		}

		if len(refs) == 0 {
			return catalog.PropertyValue{Kind: catalog.Relation, Empty: true}, nil
		}
		return catalog.PropertyValue{Kind: catalog.Relation, Relation: refs}, nil
	}
}
