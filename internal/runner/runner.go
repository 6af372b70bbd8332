// Package runner wires the Input Reader, Schema Reconciler, Row Converter,
// Upload Dispatcher, and Row Uploader into one end-to-end run: read ->
// reconcile (using the remote client) -> convert (using the remote
// client) -> dispatch -> upload (using the remote client).
//
// A thin orchestration layer that depends only on the package-level
// interfaces its collaborators expose, builds the channel pipeline, and
// returns a run summary for the CLI layer to report and turn into an
// exit code.
package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessegersenson/rowsync/internal/caption"
	"github.com/jessegersenson/rowsync/internal/catalog"
	"github.com/jessegersenson/rowsync/internal/cliconfig"
	"github.com/jessegersenson/rowsync/internal/convert"
	"github.com/jessegersenson/rowsync/internal/dispatch"
	"github.com/jessegersenson/rowsync/internal/fileasset"
	"github.com/jessegersenson/rowsync/internal/input"
	"github.com/jessegersenson/rowsync/internal/metrics"
	"github.com/jessegersenson/rowsync/internal/reconcile"
	"github.com/jessegersenson/rowsync/internal/remote"
	"github.com/jessegersenson/rowsync/internal/upload"
)

// Config extends the parsed CLI surface with the handful of settings
// treated as external/environmental rather than CLI flags: the caption
// provider and the metrics gateway, each read from an environment variable
// by the CLI layer.
type Config struct {
	cliconfig.Config

	CaptionEndpoint   string
	CaptionModel      string
	MetricsJobName    string
	MetricsGatewayURL string
}

// Result is the run-end report surfaced to the CLI layer for exit-code
// selection.
type Result struct {
	dispatch.Summary
	ArchivedRows int
}

// Run executes one full sync: validate target, reconcile schema, stream
// convert and upload every input row, and return the aggregate outcome.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if err := remote.ValidateToken(cfg.Token); err != nil {
		return Result{}, err
	}
	target, err := remote.ValidateTargetURL(cfg.URL)
	if err != nil {
		return Result{}, err
	}
	databaseID := remote.DatabaseIDFromURL(target)
	apiBase := target.Scheme + "://" + target.Host

	client, err := remote.New(apiBase, remote.Config{
		Token:     cfg.Token,
		Workspace: cfg.Workspace,
	})
	if err != nil {
		return Result{}, err
	}

	reporter, err := metrics.NewReporter(cfg.MetricsJobName, cfg.MetricsGatewayURL)
	if err != nil {
		return Result{}, fmt.Errorf("runner: init metrics reporter: %w", err)
	}
	defer func() {
		if err := reporter.Flush(); err != nil {
			log.Printf("runner: metrics flush: %v", err)
		}
	}()

	if cfg.DeleteAllDatabaseEntries {
		n, err := archiveAll(ctx, client, databaseID, reporter)
		return Result{ArchivedRows: n}, err
	}

	if cfg.InputPath == "" {
		return Result{}, fmt.Errorf("runner: no input file given")
	}

	schema, err := client.FetchSchema(ctx, databaseID)
	if err != nil {
		return Result{}, fmt.Errorf("runner: fetch remote schema: %w", err)
	}

	header, stream, err := openInput(cfg.Config)
	if err != nil {
		return Result{}, err
	}

	rows, err := drainRows(stream)
	stream.Close()
	if err != nil {
		return Result{}, fmt.Errorf("runner: read input: %w", err)
	}
	if len(rows) == 0 {
		return Result{}, fmt.Errorf("runner: input has a header but no data rows")
	}

	relManager := newRelationManager(client, schema)

	inferredTypes := inferColumnTypes(header.Columns, rows)

	plan, err := reconcile.Reconcile(ctx, header.Columns, schema, cfg.ColumnTypes, inferredTypes, reconcile.Flags{
		AddMissingColumns:          cfg.AddMissingColumns,
		RandomizeColors:            cfg.RandomizeSelectColors,
		AddMissingRelations:        cfg.AddMissingRelations,
		FailOnMissingColumns:       cfg.FailOnMissingColumns,
		FailOnUnsettable:           cfg.FailOnUnsettableColumns,
		FailOnInaccessibleRelation: cfg.FailOnInaccessibleRelation,
		RenameKeyColumnFrom:        cfg.RenameKeyColumnFrom,
		RenameKeyColumnTo:          cfg.RenameKeyColumnTo,
	}, client, relManager)
	if err != nil {
		return Result{}, fmt.Errorf("runner: reconcile schema: %w", err)
	}
	for _, d := range plan.Dropped {
		log.Printf("runner: column %q dropped: %s", d.Column, d.Reason)
	}

	titleProperty := plan.Entries[0].Property.Name

	relIdx, linkedDB, statusOpts, optionSeed := collectRelationAndStatusInfo(plan, relManager)

	if cfg.FailOnDuplicates {
		keyColumn := plan.Entries[0].InputColumn
		if val, dup := duplicateInputKey(rows, keyColumn); dup {
			return Result{}, fmt.Errorf("runner: duplicate key value %q in input (strict, zero rows written)", val)
		}
	}

	fileCache := fileasset.New(remote.FileUploader{Client: client}, reporter)

	var captioner convert.Captioner
	switch {
	case cfg.HuggingFaceToken != "":
		hf, err := caption.NewHuggingFace(cfg.HuggingFaceToken, cfg.HFModel)
		if err != nil {
			return Result{}, fmt.Errorf("runner: %w", err)
		}
		captioner = hf
	case cfg.CaptionEndpoint != "":
		captioner = caption.New(cfg.CaptionEndpoint, cfg.CaptionModel)
	}

	imageMode := convert.ImageCover
	if cfg.ImageColumnMode == "block" {
		imageMode = convert.ImageBlock
	}

	registrar := newOptionRegistrar(client, databaseID, cfg.RandomizeSelectColors, optionSeed)
	members := newMemberIndex(client)

	converter := convert.New(plan, convert.Options{
		BaseDir:            filepath.Dir(cfg.InputPath),
		ImageColumns:       cfg.ImageColumn,
		ImageColumnKeep:    cfg.ImageColumnKeep,
		ImageMode:          imageMode,
		ImageCaptionColumn: cfg.ImageCaptionColumn,
		ImageCaptionKeep:   cfg.ImageCaptionKeep,
		IconColumn:         cfg.IconColumn,
		IconColumnKeep:     cfg.IconColumnKeep,
		DefaultIcon:        cfg.DefaultIcon,

		AICaptionImageColumn: cfg.CaptionImageColumn,
		AICaptionColumn:      cfg.CaptionColumn,

		DefaultStatus: cfg.DefaultStatus,
	}, convert.Flags{
		FailOnConversionError:      cfg.FailOnConversionError,
		FailOnWrongStatus:          cfg.FailOnWrongStatusValues,
		FailOnInaccessibleRelation: cfg.FailOnInaccessibleRelation,
		FailOnRelationDuplicate:    cfg.FailOnRelationDuplicates,
		AddMissingRelations:        cfg.AddMissingRelations,
	}, fileCache, relIdx, linkedDB, statusOpts, registrar, members, captioner)

	var idx *upload.Index
	if cfg.Merge {
		remoteRows, err := client.QueryAllRows(ctx, databaseID)
		if err != nil {
			return Result{}, fmt.Errorf("runner: query existing rows: %w", err)
		}
		if cfg.FailOnDuplicates {
			if val, dup := duplicateRemoteKey(remoteRows); dup {
				return Result{}, fmt.Errorf("runner: duplicate key value %q in remote database (strict, zero rows written)", val)
			}
		}
		idx = upload.NewIndex(remoteRows)
	}

	uploader := upload.New(client, idx, upload.Options{
		Merge:           cfg.Merge,
		MergeOnlyColumn: cfg.MergeOnlyColumn,
		MergeSkipNew:    cfg.MergeSkipNew,
	}, databaseID)

	handler := buildHandler(converter, uploader, reporter, titleProperty, cfg.MandatoryColumn)

	pool := dispatch.New(cfg.MaxThreads, handler)

	jobs := make(chan dispatch.Job)
	go func() {
		defer close(jobs)
		for _, row := range rows {
			select {
			case jobs <- dispatch.Job{Index: row.Index, Payload: row}:
			case <-ctx.Done():
				return
			}
		}
	}()

	summary := pool.Run(ctx, jobs)
	return Result{Summary: summary}, nil
}

// drainRows reads every row from stream into memory: the full input is
// buffered up front so schema reconciliation can sample column values for
// type inference and --fail-on-duplicates can scan the whole key column
// before any row reaches the dispatch pool.
func drainRows(stream input.Stream) ([]input.Row, error) {
	var rows []input.Row
	for {
		row, ok, err := stream.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// inferColumnTypes auto-detects a catalogue type per non-title column by
// running catalog.InferColumnType over every buffered cell value in that
// column. The title column is always text and is never inferred. Reconcile
// only consults an entry here when the column is being newly added to the
// remote schema and carries no declared --column-type.
func inferColumnTypes(header []string, rows []input.Row) map[string]catalog.Type {
	if len(header) <= 1 {
		return nil
	}
	inferred := make(map[string]catalog.Type, len(header)-1)
	for _, col := range header[1:] {
		values := make([]string, len(rows))
		for i, row := range rows {
			values[i] = row.Get(col)
		}
		inferred[col] = catalog.InferColumnType(values)
	}
	return inferred
}

// duplicateInputKey reports the first repeated key-column value found
// across rows, in source order.
func duplicateInputKey(rows []input.Row, keyColumn string) (string, bool) {
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		v := row.Get(keyColumn)
		if seen[v] {
			return v, true
		}
		seen[v] = true
	}
	return "", false
}

// duplicateRemoteKey reports the first repeated key value among existing
// remote rows.
func duplicateRemoteKey(rows []remote.RemoteRow) (string, bool) {
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if seen[row.Key] {
			return row.Key, true
		}
		seen[row.Key] = true
	}
	return "", false
}

// buildHandler compiles the per-job dispatch.Handler: mandatory-column
// validation, conversion, then upload. Duplicate-key policy is enforced
// before dispatch starts (see drainRows/duplicateInputKey/duplicateRemoteKey
// in Run), so every job reaching this handler is already known-unique when
// --fail-on-duplicates is set.
func buildHandler(converter *convert.Converter, uploader *upload.Uploader, reporter *metrics.Reporter, titleProperty string, mandatory []string) dispatch.Handler {
	return func(ctx context.Context, job dispatch.Job) (bool, error) {
		row := job.Payload.(input.Row)

		for _, col := range mandatory {
			if row.Get(col) == "" {
				reporter.RowFailed()
				return false, fmt.Errorf("mandatory column %q is empty", col)
			}
		}

		start := time.Now()
		converted, err := converter.ConvertRow(ctx, row)
		if err != nil {
			reporter.RowFailed()
			return false, err
		}
		reporter.ObserveStage("convert", time.Since(start).Seconds())

		keyValue := converted.Values[titleProperty].Text

		start = time.Now()
		if err := uploader.UploadRow(ctx, keyValue, converted); err != nil {
			if err == upload.ErrSkippedNoMatch {
				log.Printf("row %d: skipped, no existing match for key %q (--merge-skip-new)", row.Index, keyValue)
				return false, nil
			}
			reporter.RowFailed()
			return false, err
		}
		reporter.ObserveStage("upload", time.Since(start).Seconds())
		reporter.RowSucceeded()
		return false, nil
	}
}

// collectRelationAndStatusInfo derives the converter's per-property
// collaborator maps from the effective write schema: a relation index and
// linked-database id per relation column, the existing option names per
// status column, and the existing option names per select/multi_select
// column (to seed the option registrar so only genuinely new values incur
// a create call).
func collectRelationAndStatusInfo(plan reconcile.Plan, relManager *relationManager) (relIdx map[string]convert.RelationIndex, linkedDB map[string]string, statusOpts map[string][]string, optionSeed map[string][]string) {
	relIdx = make(map[string]convert.RelationIndex)
	linkedDB = make(map[string]string)
	statusOpts = make(map[string][]string)
	optionSeed = make(map[string][]string)

	shared := relationIndexFor{manager: relManager}
	for _, e := range plan.Entries {
		switch e.Property.Type {
		case catalog.Relation:
			relIdx[e.Property.Name] = shared
			linkedDB[e.Property.Name] = e.Property.LinkedDB
		case catalog.Status:
			names := make([]string, 0, len(e.Property.Options))
			for _, o := range e.Property.Options {
				names = append(names, o.Name)
			}
			statusOpts[e.Property.Name] = names
		case catalog.Select, catalog.MultiSelect:
			names := make([]string, 0, len(e.Property.Options))
			for _, o := range e.Property.Options {
				names = append(names, o.Name)
			}
			optionSeed[e.Property.Name] = names
		}
	}
	return relIdx, linkedDB, statusOpts, optionSeed
}

// openInput dispatches to the CSV or JSON reader by file extension.
func openInput(cfg cliconfig.Config) (input.Header, input.Stream, error) {
	f, err := os.Open(cfg.InputPath)
	if err != nil {
		return input.Header{}, nil, fmt.Errorf("runner: open input: %w", err)
	}

	switch strings.ToLower(filepath.Ext(cfg.InputPath)) {
	case ".json":
		return input.ReadJSON(f, input.JSONOptions{PayloadKeyColumn: cfg.PayloadKeyColumn})
	default:
		return input.ReadCSV(f, input.CSVOptions{StrictDuplCols: cfg.FailOnDuplicateCSVColumns})
	}
}

// archiveAll implements --delete-all-database-entries: every row
// in the target database is archived and the run exits without touching
// the input file. Each archived row reports to reporter the same way a
// synced row would, so a deletion run's progress is visible alongside a
// sync run's.
func archiveAll(ctx context.Context, client *remote.Client, databaseID string, reporter *metrics.Reporter) (int, error) {
	rows, err := client.QueryAllRows(ctx, databaseID)
	if err != nil {
		return 0, fmt.Errorf("runner: query rows to delete: %w", err)
	}
	for _, r := range rows {
		if err := client.ArchiveRow(ctx, r.ID); err != nil {
			reporter.RowFailed()
			return 0, fmt.Errorf("runner: archive row %s: %w", r.ID, err)
		}
		reporter.RowSucceeded()
	}
	return len(rows), nil
}
