// Package reconcile implements the five-step alignment of a local input
// header against a remote database schema, producing the
// effective write schema consumed by the Row Converter.
//
// One pass over an ordered column list, producing one output definition
// per column, with contract-or-default fallback for ambiguous cases.
package reconcile

import (
	"context"
	"fmt"
	"log"

	"github.com/jessegersenson/rowsync/internal/catalog"
	"github.com/jessegersenson/rowsync/internal/remote"
)

// RelationResolver breaks the cyclic dependency between the converter and
// the remote client: the reconciler and converter depend on this
// abstract interface rather than on *remote.Client directly.
type RelationResolver interface {
	ResolveLinkedDatabase(ctx context.Context, propertyName string) (remote.Schema, error)
}

// Flags mirrors the subset of CLI strict flags this package consults.
type Flags struct {
	AddMissingColumns    bool
	RandomizeColors      bool
	AddMissingRelations  bool
	FailOnMissingColumns bool
	FailOnUnsettable     bool
	FailOnInaccessibleRelation bool
	RenameKeyColumnFrom  string
	RenameKeyColumnTo    string
}

// Entry is one row of the effective write schema: an input column paired
// with the remote property it writes to.
type Entry struct {
	InputColumn string
	Property    remote.Property
}

// Plan is the effective write schema plus the decisions made along the way,
// surfaced so the run's summary and logs can explain dropped columns.
type Plan struct {
	Entries []Entry
	Dropped []DropReason
}

// DropReason records why one input column did not make it into the
// effective write schema.
type DropReason struct {
	Column string
	Reason string
}

// Reconcile runs the five alignment steps and returns the effective
// write schema. A column added to the remote schema takes its type from
// declaredTypes (explicit per-column type, then the "*" wildcard) and
// falls back to inferredTypes, the auto-detected type from the column's
// sampled cell values, before defaulting to text.
func Reconcile(ctx context.Context, header []string, schema remote.Schema, declaredTypes, inferredTypes map[string]catalog.Type, flags Flags, client interface {
	AddProperty(ctx context.Context, databaseID string, prop remote.Property) error
	RenameProperty(ctx context.Context, databaseID, from, to string) error
}, resolver RelationResolver) (Plan, error) {
	if len(header) == 0 {
		return Plan{}, fmt.Errorf("reconcile: empty input header")
	}

	title, ok := schema.TitleProperty()
	if !ok {
		return Plan{}, fmt.Errorf("reconcile: remote schema has no properties")
	}

	plan := Plan{}

	// Step 1: title mapping, with optional key-column rename.
	titleProp := title
	if flags.RenameKeyColumnFrom != "" && flags.RenameKeyColumnTo != "" {
		if err := client.RenameProperty(ctx, schema.DatabaseID, flags.RenameKeyColumnFrom, flags.RenameKeyColumnTo); err != nil {
			return Plan{}, fmt.Errorf("reconcile: rename key column: %w", err)
		}
		titleProp.Name = flags.RenameKeyColumnTo
	}
	plan.Entries = append(plan.Entries, Entry{InputColumn: header[0], Property: titleProp})

	// Step 2-5: remaining columns.
	for _, col := range header[1:] {
		prop, found := schema.ByName(col)

		if !found {
			// Step 3: missing on remote.
			if flags.FailOnMissingColumns {
				return Plan{}, fmt.Errorf("reconcile: column %q missing on remote schema (strict)", col)
			}
			if !flags.AddMissingColumns {
				plan.Dropped = append(plan.Dropped, DropReason{Column: col, Reason: "missing on remote, --add-missing-columns not set"})
				log.Printf("reconcile: dropping column %q (missing on remote)", col)
				continue
			}

			t := declaredTypes[col]
			if t == "" {
				t = declaredTypes["*"]
			}
			if t == "" {
				t = inferredTypes[col]
			}
			if t == "" {
				t = catalog.Text
			}
			// Added select/multi_select options take default colour unless
			// randomization is enabled; the colour is chosen per option by
			// the runner's option registrar when the option is created, so
			// no Options are pre-populated here either way.
			newProp := remote.Property{Name: col, Type: t}
			if err := client.AddProperty(ctx, schema.DatabaseID, newProp); err != nil {
				return Plan{}, fmt.Errorf("reconcile: add column %q: %w", col, err)
			}
			prop = newProp
		}

		// Step 4: unsettable types are always dropped.
		if prop.Type.Unsettable() {
			if flags.FailOnUnsettable {
				return Plan{}, fmt.Errorf("reconcile: column %q maps to unsettable type %s (strict)", col, prop.Type)
			}
			plan.Dropped = append(plan.Dropped, DropReason{Column: col, Reason: fmt.Sprintf("unsettable type %s", prop.Type)})
			log.Printf("reconcile: dropping column %q (unsettable type %s)", col, prop.Type)
			continue
		}

		// Step 5: relation columns must resolve their linked database.
		if prop.Type == catalog.Relation {
			if _, err := resolver.ResolveLinkedDatabase(ctx, prop.Name); err != nil {
				if flags.FailOnInaccessibleRelation {
					return Plan{}, fmt.Errorf("reconcile: relation column %q inaccessible (strict): %w", col, err)
				}
				plan.Dropped = append(plan.Dropped, DropReason{Column: col, Reason: fmt.Sprintf("inaccessible linked database: %v", err)})
				log.Printf("reconcile: dropping relation column %q (inaccessible linked database: %v)", col, err)
				continue
			}
		}

		plan.Entries = append(plan.Entries, Entry{InputColumn: col, Property: prop})
	}

	return plan, nil
}

