package input

import (
	"strings"
	"testing"
)

func TestReadJSONHeaderOrderIsPayloadKeyThenFirstOccurrence(t *testing.T) {
	src := `[
		{"Zebra": "z1", "Apple": "a1", "Id": "1"},
		{"Id": "2", "Mango": "m1", "Apple": "a2"}
	]`
	header, stream, err := ReadJSON(nopCloser{strings.NewReader(src)}, JSONOptions{PayloadKeyColumn: "Id"})
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	defer stream.Close()

	want := []string{"Id", "Zebra", "Apple", "Mango"}
	if len(header.Columns) != len(want) {
		t.Fatalf("header = %v, want %v", header.Columns, want)
	}
	for i, c := range want {
		if header.Columns[i] != c {
			t.Fatalf("header[%d] = %q, want %q (full header: %v)", i, header.Columns[i], c, header.Columns)
		}
	}
}

func TestReadJSONHeaderOrderIsStableAcrossRuns(t *testing.T) {
	src := `[{"Id": "1", "G": 1, "F": 1, "E": 1, "D": 1, "C": 1, "B": 1, "A": 1}]`
	want := []string{"Id", "G", "F", "E", "D", "C", "B", "A"}

	for i := 0; i < 20; i++ {
		header, stream, err := ReadJSON(nopCloser{strings.NewReader(src)}, JSONOptions{PayloadKeyColumn: "Id"})
		if err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		stream.Close()
		for j, c := range want {
			if header.Columns[j] != c {
				t.Fatalf("run %d: header[%d] = %q, want %q (full header: %v)", i, j, header.Columns[j], c, header.Columns)
			}
		}
	}
}

func TestReadJSONMissingKeyBecomesNil(t *testing.T) {
	src := `[{"Id": "1", "Name": "Ada"}, {"Id": "2"}]`
	_, stream, err := ReadJSON(nopCloser{strings.NewReader(src)}, JSONOptions{PayloadKeyColumn: "Id"})
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	rows := readAllRows(t, stream)
	if rows[1].Get("Name") != "" {
		t.Fatalf("rows[1].Get(Name) = %q, want empty", rows[1].Get("Name"))
	}
}

func TestReadJSONNumberPreservesDecimalText(t *testing.T) {
	src := `[{"Id": "1", "Count": 42}]`
	_, stream, err := ReadJSON(nopCloser{strings.NewReader(src)}, JSONOptions{PayloadKeyColumn: "Id"})
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	rows := readAllRows(t, stream)
	if rows[0].Get("Count") != "42" {
		t.Fatalf("rows[0].Get(Count) = %q, want 42", rows[0].Get("Count"))
	}
}

func TestReadJSONRequiresPayloadKeyColumn(t *testing.T) {
	if _, _, err := ReadJSON(nopCloser{strings.NewReader(`[{}]`)}, JSONOptions{}); err == nil {
		t.Fatal("expected an error when --payload-key-column is not set")
	}
}

func TestReadJSONRequiresArrayOfObjects(t *testing.T) {
	if _, _, err := ReadJSON(nopCloser{strings.NewReader(`{"Id": "1"}`)}, JSONOptions{PayloadKeyColumn: "Id"}); err == nil {
		t.Fatal("expected an error for a non-array top-level value")
	}
}
