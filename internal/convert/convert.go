// Package convert implements the Row Converter: for each input
// row it produces a catalog.PropertyValue per effective-schema entry,
// resolving files, icons, relations, and AI captions along the way.
//
// Generalized from a compilePlan/colPlan pattern: a per-column coercion
// closure is compiled once per run from the effective schema, so the hot
// per-row loop never does a map lookup or type switch.
package convert

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jessegersenson/rowsync/internal/catalog"
	"github.com/jessegersenson/rowsync/internal/fileasset"
	"github.com/jessegersenson/rowsync/internal/input"
	"github.com/jessegersenson/rowsync/internal/reconcile"
)

// Flags mirrors the --fail-on-... flags this package consults.
type Flags struct {
	FailOnConversionError      bool
	FailOnWrongStatus          bool
	FailOnInaccessibleRelation bool
	FailOnRelationDuplicate    bool
	AddMissingRelations        bool
}

// ImageMode selects how a resolved image is attached to the page.
type ImageMode string

const (
	ImageCover ImageMode = "cover"
	ImageBlock ImageMode = "block"
)

// Options carries the converter's column-role configuration.
type Options struct {
	BaseDir string // directory input paths resolve against

	ImageColumns        []string
	ImageColumnKeep     bool
	ImageMode           ImageMode
	ImageCaptionColumn  string
	ImageCaptionKeep    bool
	IconColumn          string
	IconColumnKeep      bool
	DefaultIcon         string

	// AICaptionImageColumn/AICaptionColumn drive the machine-learning
	// captioning feature: when a row's AICaptionImageColumn cell resolves to
	// an image, the configured captioner generates a caption and writes it
	// into the AICaptionColumn property, independent of ImageMode and
	// BlockCaption (the page/block cover-image caption).
	AICaptionImageColumn string
	AICaptionColumn      string

	DefaultStatus string // fallback status value for unmatched cells, may be empty
}

// Uploader is the narrow file-upload contract the converter needs,
// satisfied by *fileasset.Cache.
type Uploader interface {
	Upload(ctx context.Context, path string) (fileasset.Asset, error)
}

// Captioner is the external AI-caption collaborator.
type Captioner interface {
	Caption(ctx context.Context, imageURL string) (string, error)
}

// RelationIndex is the per-linked-database lookup the converter consults
// for relation columns.
type RelationIndex interface {
	Lookup(ctx context.Context, linkedDatabaseID, title string) (pageID string, found bool, duplicate bool, err error)
	Create(ctx context.Context, linkedDatabaseID, title string) (pageID string, err error)
}

// OptionRegistrar ensures a select/multi_select option exists on the
// remote schema before a row referencing it is written, creating it at
// most once per value regardless of how many row workers see it first.
type OptionRegistrar interface {
	EnsureOption(ctx context.Context, property, value string) error
}

// MemberResolver looks up a person column's username/email fragments
// against the workspace's member directory.
type MemberResolver interface {
	Resolve(ctx context.Context, usernameOrEmail string) (memberID string, found bool, err error)
}

// Row is the converter's output for one input row: a typed value per
// effective-schema column, plus any page-level decoration.
type Row struct {
	Index      int
	Values     map[string]catalog.PropertyValue
	CoverURL   string
	IconEmoji  string
	IconURL    string
	BlockURL   string
	BlockCaption string
}

type colConverter struct {
	inputColumn string
	property    string
	convert     func(ctx context.Context, raw string) (catalog.PropertyValue, error)
}

// Converter holds the compiled per-column plan plus the shared collaborators
// (file cache, relation index, captioner) for one run.
type Converter struct {
	opts      Options
	flags     Flags
	uploader  Uploader
	relIdx    map[string]RelationIndex // property name -> index for that linked DB
	linkedDB  map[string]string        // property name -> linked database id
	statusOpts map[string][]string     // property name -> existing status option names
	registrar OptionRegistrar
	members   MemberResolver
	captioner Captioner

	plan []colConverter
}

// New compiles the per-column plan from the effective write schema once
// per run.
func New(plan reconcile.Plan, opts Options, flags Flags, uploader Uploader, relIdx map[string]RelationIndex, linkedDB map[string]string, statusOpts map[string][]string, registrar OptionRegistrar, members MemberResolver, captioner Captioner) *Converter {
	c := &Converter{
		opts:       opts,
		flags:      flags,
		uploader:   uploader,
		relIdx:     relIdx,
		linkedDB:   linkedDB,
		statusOpts: statusOpts,
		registrar:  registrar,
		members:    members,
		captioner:  captioner,
	}
	drop := c.decorationSourcesToDrop()
	c.plan = make([]colConverter, 0, len(plan.Entries))
	for _, e := range plan.Entries {
		if drop[e.InputColumn] {
			continue
		}
		cc := colConverter{inputColumn: e.InputColumn, property: e.Property.Name}
		cc.convert = c.converterFor(e)
		c.plan = append(c.plan, cc)
	}
	return c
}

// decorationSourcesToDrop returns the set of input columns that feed page
// decoration (image/caption/icon source) and were not asked to also be
// kept as a regular written property.
func (c *Converter) decorationSourcesToDrop() map[string]bool {
	drop := map[string]bool{}
	if !c.opts.ImageColumnKeep {
		for _, col := range c.opts.ImageColumns {
			drop[col] = true
		}
	}
	if !c.opts.ImageCaptionKeep && c.opts.ImageCaptionColumn != "" {
		drop[c.opts.ImageCaptionColumn] = true
	}
	if !c.opts.IconColumnKeep && c.opts.IconColumn != "" {
		drop[c.opts.IconColumn] = true
	}
	return drop
}

// ConvertRow runs every compiled column converter against one input row,
// then resolves image/icon decoration and the optional AI caption.
func (c *Converter) ConvertRow(ctx context.Context, row input.Row) (Row, error) {
	out := Row{Index: row.Index, Values: make(map[string]catalog.PropertyValue, len(c.plan))}

	for _, cc := range c.plan {
		raw := row.Get(cc.inputColumn)
		val, err := cc.convert(ctx, raw)
		if err != nil {
			if c.flags.FailOnConversionError {
				return Row{}, fmt.Errorf("row %d, column %q: %w", row.Index, cc.inputColumn, err)
			}
			log.Printf("row %d: column %q: %v (using empty value)", row.Index, cc.inputColumn, err)
			val = catalog.PropertyValue{Empty: true}
		}
		out.Values[cc.property] = val
	}

	if err := c.resolveDecoration(ctx, row, &out); err != nil {
		if c.flags.FailOnConversionError {
			return Row{}, fmt.Errorf("row %d: decoration: %w", row.Index, err)
		}
		log.Printf("row %d: decoration: %v", row.Index, err)
	}

	return out, nil
}

// converterFor dispatches to the per-type converter builder, mirroring a compiled-plan type switch.
func (c *Converter) converterFor(e reconcile.Entry) func(context.Context, string) (catalog.PropertyValue, error) {
	switch e.Property.Type {
	case catalog.Text, catalog.URL, catalog.Email, catalog.PhoneNumber:
		return scalarTextConverter(e.Property.Type)
	case catalog.Number:
		return numberConverter()
	case catalog.Checkbox:
		return checkboxConverter()
	case catalog.Select:
		return selectConverter(e.Property.Name, c.registrar)
	case catalog.Status:
		existing := c.statusOpts[e.Property.Name]
		return statusConverter(existing, c.opts.DefaultStatus, c.flags.FailOnWrongStatus)
	case catalog.MultiSelect:
		return multiConverter(e.Property.Name, c.registrar)
	case catalog.Person:
		return personConverter(c.members)
	case catalog.Date:
		return dateConverter()
	case catalog.CreatedTime, catalog.LastEditedTime:
		return createdOrEditedTimeConverter(e.Property.Type)
	case catalog.File:
		return c.fileConverter()
	case catalog.Relation:
		return c.relationConverter(e.Property.Name)
	default:
		return scalarTextConverter(catalog.Text)
	}
}

func splitFragments(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
