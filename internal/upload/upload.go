// Package upload implements the Row Uploader: merge/insert
// decision, cover/icon/image-block decoration, and atomic per-row request
// composition.
package upload

import (
	"context"
	"fmt"

	"github.com/jessegersenson/rowsync/internal/convert"
	"github.com/jessegersenson/rowsync/internal/remote"
)

// Writer is the narrow remote-write contract the uploader needs; satisfied
// by *remote.Client. Kept as an interface so tests can substitute a fake,
// following the package's function-variable-as-test-seam idiom.
type Writer interface {
	UpsertRow(ctx context.Context, req remote.WriteRequest) (string, error)
}

// Options configures merge behavior.
type Options struct {
	Merge           bool
	MergeOnlyColumn []string // if non-empty, updates are restricted to this intersection
	MergeSkipNew    bool
}

// Uploader composes and issues the per-row write.
type Uploader struct {
	writer     Writer
	index      *Index // nil when Merge is false
	opts       Options
	databaseID string
}

// New constructs an Uploader. index may be nil when opts.Merge is false.
func New(writer Writer, index *Index, opts Options, databaseID string) *Uploader {
	return &Uploader{writer: writer, index: index, opts: opts, databaseID: databaseID}
}

// ErrSkippedNoMatch is returned by UploadRow when merge-skip-new caused a row to be
// intentionally not written.
var ErrSkippedNoMatch = fmt.Errorf("upload: no existing match and --merge-skip-new is set")

// UploadRow composes and issues one row's write, including its decoration,
// as a single request so a failure surfaces as one per-row error.
func (u *Uploader) UploadRow(ctx context.Context, keyValue string, row convert.Row) error {
	req := remote.WriteRequest{
		DatabaseID: u.databaseID,
		Properties: valuesToPayload(row.Values),
		Decoration: remote.Decoration{
			CoverURL:  row.CoverURL,
			IconEmoji: row.IconEmoji,
			IconURL:   row.IconURL,
		},
	}
	if row.BlockURL != "" {
		req.Decoration.ImageBlock = &remote.ImageBlock{URL: row.BlockURL, Caption: row.BlockCaption}
	}

	if u.opts.Merge {
		existing, found := u.index.Lookup(keyValue)
		if !found {
			if u.opts.MergeSkipNew {
				return ErrSkippedNoMatch
			}
			return u.insert(ctx, req, keyValue)
		}
		return u.update(ctx, req, existing)
	}

	return u.insertNoMerge(ctx, req)
}

func (u *Uploader) insert(ctx context.Context, req remote.WriteRequest, keyValue string) error {
	id, err := u.writer.UpsertRow(ctx, req)
	if err != nil {
		return fmt.Errorf("upload: insert: %w", err)
	}
	u.index.Insert(remote.RemoteRow{ID: id, Key: keyValue})
	return nil
}

func (u *Uploader) insertNoMerge(ctx context.Context, req remote.WriteRequest) error {
	if _, err := u.writer.UpsertRow(ctx, req); err != nil {
		return fmt.Errorf("upload: insert: %w", err)
	}
	return nil
}

func (u *Uploader) update(ctx context.Context, req remote.WriteRequest, existing remote.RemoteRow) error {
	req.RowID = existing.ID
	req.Properties = restrictToMergeColumns(req.Properties, u.opts.MergeOnlyColumn)
	if _, err := u.writer.UpsertRow(ctx, req); err != nil {
		return fmt.Errorf("upload: update row %s: %w", existing.ID, err)
	}
	return nil
}

// restrictToMergeColumns applies --merge-only-column's intersection, if
// any was supplied. The key column is not removed here: when no
// --merge-only-column is given, or the key column is listed in it, the
// update carries the key property with the value it was matched on.
func restrictToMergeColumns(props map[string]any, only []string) map[string]any {
	if len(only) == 0 {
		return props
	}
	allow := make(map[string]bool, len(only))
	for _, c := range only {
		allow[c] = true
	}
	out := make(map[string]any, len(only))
	for k, v := range props {
		if allow[k] {
			out[k] = v
		}
	}
	return out
}
