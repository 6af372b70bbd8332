// Package cliconfig parses the command-line flag surface into a
// Config struct consumed by internal/runner.
//
// Uses the standard flag.StringVar/flag.BoolVar style: no third-party
// CLI framework.
package cliconfig

import (
	"flag"
	"fmt"
	"strings"

	"github.com/jessegersenson/rowsync/internal/catalog"
)

// repeatableFlag collects every occurrence of a flag that may be passed
// more than once (e.g. --image-column, which is repeatable).
type repeatableFlag struct {
	values []string
}

func (r *repeatableFlag) String() string { return strings.Join(r.values, ",") }
func (r *repeatableFlag) Set(v string) error {
	r.values = append(r.values, v)
	return nil
}

// Config is the fully parsed CLI surface.
type Config struct {
	Token     string
	URL       string
	Workspace string
	MaxThreads int
	LogPath   string
	Verbose   bool
	Version   bool

	ColumnTypes map[string]catalog.Type

	AddMissingColumns    bool
	RenameKeyColumnFrom  string
	RenameKeyColumnTo    string
	RandomizeSelectColors bool

	Merge           bool
	MergeOnlyColumn []string
	MergeSkipNew    bool

	AddMissingRelations bool

	ImageColumn        []string
	ImageColumnKeep    bool
	ImageColumnMode    string
	ImageCaptionColumn string
	ImageCaptionKeep   bool
	IconColumn         string
	IconColumnKeep     bool
	DefaultIcon        string
	DefaultStatus      string

	HuggingFaceToken   string
	HFModel            string
	CaptionImageColumn string
	CaptionColumn      string

	MandatoryColumn  []string
	PayloadKeyColumn string

	DeleteAllDatabaseEntries bool

	FailOnDuplicates              bool
	FailOnConversionError         bool
	FailOnInaccessibleRelation    bool
	FailOnMissingColumns          bool
	FailOnUnsettableColumns       bool
	FailOnWrongStatusValues       bool
	FailOnDuplicateCSVColumns     bool
	FailOnRelationDuplicates      bool

	InputPath string
}

// Parse parses args (typically os.Args[1:]) into a Config. The trailing positional argument, if any, is the input file
// path.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("rowsync", flag.ContinueOnError)

	var cfg Config
	var columnTypesRaw, captionColumnRaw string
	var imageColumn, mergeOnlyColumn, mandatoryColumn repeatableFlag

	fs.StringVar(&cfg.Token, "token", "", "bearer token for the hosted database API")
	fs.StringVar(&cfg.URL, "url", "", "target database view URL")
	fs.StringVar(&cfg.Workspace, "workspace", "", "workspace identifier")
	fs.IntVar(&cfg.MaxThreads, "max-threads", 5, "number of concurrent row workers")
	fs.StringVar(&cfg.LogPath, "log", "", "write logs to this path instead of stderr")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	fs.BoolVar(&cfg.Version, "version", false, "print version and exit")

	fs.StringVar(&columnTypesRaw, "column-types", "", "comma-separated column:type pairs overriding auto-detection")

	fs.BoolVar(&cfg.AddMissingColumns, "add-missing-columns", false, "add input columns missing on the remote schema")
	fs.StringVar(&cfg.RenameKeyColumnFrom, "rename-key-column-from", "", "rename the remote title property: current name")
	fs.StringVar(&cfg.RenameKeyColumnTo, "rename-key-column-to", "", "rename the remote title property: new name")
	fs.BoolVar(&cfg.RandomizeSelectColors, "randomize-select-colors", false, "randomize colours of newly added select/multi_select options")

	fs.BoolVar(&cfg.Merge, "merge", false, "enable idempotent merge mode keyed on the key column")
	fs.Var(&mergeOnlyColumn, "merge-only-column", "restrict merge updates to this column (repeatable)")
	fs.BoolVar(&cfg.MergeSkipNew, "merge-skip-new", false, "skip inserting rows with no existing match during merge")

	fs.BoolVar(&cfg.AddMissingRelations, "add-missing-relations", false, "create linked-database rows for unresolved relation targets")

	fs.Var(&imageColumn, "image-column", "image source column (repeatable)")
	fs.BoolVar(&cfg.ImageColumnKeep, "image-column-keep", false, "keep the image source column in the write schema")
	fs.StringVar(&cfg.ImageColumnMode, "image-column-mode", "cover", "image attachment mode: cover or block")
	fs.StringVar(&cfg.ImageCaptionColumn, "image-caption-column", "", "column holding or receiving the image caption")
	fs.BoolVar(&cfg.ImageCaptionKeep, "image-caption-column-keep", false, "keep the caption column in the write schema")
	fs.StringVar(&cfg.IconColumn, "icon-column", "", "icon source column")
	fs.BoolVar(&cfg.IconColumnKeep, "icon-column-keep", false, "keep the icon source column in the write schema")
	fs.StringVar(&cfg.DefaultIcon, "default-icon", "", "default icon applied when the row's icon cell is empty")
	fs.StringVar(&cfg.DefaultStatus, "default-status", "", "status value substituted when a cell has no matching remote option")

	fs.StringVar(&cfg.HuggingFaceToken, "hugging-face-token", "", "Hugging Face token to use an image captioning model online")
	fs.StringVar(&cfg.HFModel, "hf-model", "vit-gpt2", "captioning model: vit-gpt2, blip-image, or git-large")
	fs.StringVar(&captionColumnRaw, "caption-column", "", "image-column:caption-column pair; caption-column receives the AI-generated caption")

	fs.Var(&mandatoryColumn, "mandatory-column", "column that must be non-empty on every row (repeatable)")
	fs.StringVar(&cfg.PayloadKeyColumn, "payload-key-column", "", "column placed first in the header for JSON input")

	fs.BoolVar(&cfg.DeleteAllDatabaseEntries, "delete-all-database-entries", false, "archive every row in the target database and exit")

	fs.BoolVar(&cfg.FailOnDuplicates, "fail-on-duplicates", false, "fatal on duplicate key-column values")
	fs.BoolVar(&cfg.FailOnConversionError, "fail-on-conversion-error", false, "fatal (per-row) on cell conversion failure")
	fs.BoolVar(&cfg.FailOnInaccessibleRelation, "fail-on-inaccessible-relation", false, "fatal on an inaccessible linked database")
	fs.BoolVar(&cfg.FailOnMissingColumns, "fail-on-missing-columns", false, "fatal on a column missing from the remote schema")
	fs.BoolVar(&cfg.FailOnUnsettableColumns, "fail-on-unsettable-columns", false, "fatal on a column mapping to an unsettable type")
	fs.BoolVar(&cfg.FailOnWrongStatusValues, "fail-on-wrong-status-values", false, "fatal (per-row) on a status value with no matching option")
	fs.BoolVar(&cfg.FailOnDuplicateCSVColumns, "fail-on-duplicate-csv-columns", false, "fatal on duplicate CSV header columns")
	fs.BoolVar(&cfg.FailOnRelationDuplicates, "fail-on-relation-duplicates", false, "fatal on ambiguous (duplicate-titled) relation targets")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.MergeOnlyColumn = mergeOnlyColumn.values
	cfg.MandatoryColumn = mandatoryColumn.values
	cfg.ImageColumn = imageColumn.values

	if rest := fs.Args(); len(rest) > 0 {
		cfg.InputPath = rest[0]
	}

	types, err := parseColumnTypes(columnTypesRaw)
	if err != nil {
		return Config{}, err
	}
	cfg.ColumnTypes = types

	if cfg.ImageColumnMode != "cover" && cfg.ImageColumnMode != "block" {
		return Config{}, fmt.Errorf("cliconfig: --image-column-mode must be %q or %q, got %q", "cover", "block", cfg.ImageColumnMode)
	}

	if captionColumnRaw != "" {
		parts := strings.SplitN(captionColumnRaw, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return Config{}, fmt.Errorf("cliconfig: --caption-column wants image-column:caption-column, got %q", captionColumnRaw)
		}
		cfg.CaptionImageColumn, cfg.CaptionColumn = parts[0], parts[1]
	}

	return cfg, nil
}

// parseColumnTypes parses "--column-types col1:number,col2:select" into a
// map, or a bare type name applied to every column not otherwise listed
// when no colons are present.
func parseColumnTypes(raw string) (map[string]catalog.Type, error) {
	out := map[string]catalog.Type{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		if !strings.Contains(pair, ":") {
			t, ok := catalog.ParseType(pair)
			if !ok {
				return nil, fmt.Errorf("cliconfig: unknown column type %q", pair)
			}
			out["*"] = t
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		col, typeName := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		t, ok := catalog.ParseType(typeName)
		if !ok {
			return nil, fmt.Errorf("cliconfig: unknown column type %q for column %q", typeName, col)
		}
		out[col] = t
	}
	return out, nil
}
