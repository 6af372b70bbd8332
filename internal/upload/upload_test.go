package upload

import (
	"context"
	"testing"

	"github.com/jessegersenson/rowsync/internal/catalog"
	"github.com/jessegersenson/rowsync/internal/convert"
	"github.com/jessegersenson/rowsync/internal/remote"
)

type fakeWriter struct {
	upserts []remote.WriteRequest
	nextID  int
}

func (f *fakeWriter) UpsertRow(ctx context.Context, req remote.WriteRequest) (string, error) {
	f.upserts = append(f.upserts, req)
	if req.RowID != "" {
		return req.RowID, nil
	}
	f.nextID++
	return "new-" + string(rune('0'+f.nextID)), nil
}

func rowWithValue(col, text string) convert.Row {
	return convert.Row{Values: map[string]catalog.PropertyValue{col: {Kind: catalog.Text, Text: text}}}
}

func TestUploadRowInsertsWhenNoMatch(t *testing.T) {
	writer := &fakeWriter{}
	idx := NewIndex(nil)
	u := New(writer, idx, Options{Merge: true}, "db1")

	if err := u.UploadRow(context.Background(), "3", rowWithValue("b", "zzz")); err != nil {
		t.Fatalf("UploadRow: %v", err)
	}
	if len(writer.upserts) != 1 || writer.upserts[0].RowID != "" {
		t.Fatalf("expected one insert, got: %+v", writer.upserts)
	}
	if _, found := idx.Lookup("3"); !found {
		t.Fatal("expected newly inserted row to appear in index")
	}
}

func TestUploadRowUpdatesWhenMatchFound(t *testing.T) {
	writer := &fakeWriter{}
	idx := NewIndex([]remote.RemoteRow{{ID: "existing-1", Key: "1"}})
	u := New(writer, idx, Options{Merge: true}, "db1")

	if err := u.UploadRow(context.Background(), "1", rowWithValue("b", "new")); err != nil {
		t.Fatalf("UploadRow: %v", err)
	}
	if len(writer.upserts) != 1 || writer.upserts[0].RowID != "existing-1" {
		t.Fatalf("expected update of existing-1, got: %+v", writer.upserts)
	}
}

func TestUploadRowSkipsNewWhenConfigured(t *testing.T) {
	writer := &fakeWriter{}
	idx := NewIndex(nil)
	u := New(writer, idx, Options{Merge: true, MergeSkipNew: true}, "db1")

	err := u.UploadRow(context.Background(), "5", rowWithValue("b", "zzz"))
	if err != ErrSkippedNoMatch {
		t.Fatalf("expected ErrSkippedNoMatch, got: %v", err)
	}
	if len(writer.upserts) != 0 {
		t.Fatalf("expected no write, got: %+v", writer.upserts)
	}
}

func TestUploadRowRestrictsToMergeOnlyColumns(t *testing.T) {
	writer := &fakeWriter{}
	idx := NewIndex([]remote.RemoteRow{{ID: "existing-1", Key: "1"}})
	u := New(writer, idx, Options{Merge: true, MergeOnlyColumn: []string{"b"}}, "db1")

	row := convert.Row{Values: map[string]catalog.PropertyValue{
		"b": {Kind: catalog.Text, Text: "new"},
		"c": {Kind: catalog.Text, Text: "should-be-dropped"},
	}}
	if err := u.UploadRow(context.Background(), "1", row); err != nil {
		t.Fatalf("UploadRow: %v", err)
	}
	props := writer.upserts[0].Properties
	if _, ok := props["c"]; ok {
		t.Fatalf("expected column c to be excluded by merge-only-column, got: %+v", props)
	}
	if _, ok := props["b"]; !ok {
		t.Fatalf("expected column b to be present, got: %+v", props)
	}
}

// TestIndexKeepsOneEntryPerKey verifies the testable property that the
// merge index never holds two entries under the same key value: when the initial snapshot itself contains duplicate keys,
// the later row in snapshot order wins.
func TestIndexKeepsOneEntryPerKey(t *testing.T) {
	idx := NewIndex([]remote.RemoteRow{
		{ID: "first", Key: "dup"},
		{ID: "second", Key: "dup"},
	})
	row, found := idx.Lookup("dup")
	if !found {
		t.Fatal("expected lookup to find the duplicated key")
	}
	if row.ID != "second" {
		t.Fatalf("got id %q, want second (later snapshot entry wins)", row.ID)
	}

	idx.Insert(remote.RemoteRow{ID: "third", Key: "dup"})
	row, _ = idx.Lookup("dup")
	if row.ID != "third" {
		t.Fatalf("got id %q, want third (most recent insert wins)", row.ID)
	}
}

func TestUploadRowInsertNoMergeAlwaysCreates(t *testing.T) {
	writer := &fakeWriter{}
	u := New(writer, nil, Options{Merge: false}, "db1")

	if err := u.UploadRow(context.Background(), "1", rowWithValue("b", "x")); err != nil {
		t.Fatalf("UploadRow: %v", err)
	}
	if len(writer.upserts) != 1 || writer.upserts[0].RowID != "" {
		t.Fatalf("expected plain insert, got: %+v", writer.upserts)
	}
}
