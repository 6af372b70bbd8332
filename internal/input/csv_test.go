package input

import (
	"io"
	"strings"
	"testing"
)

type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

func readAllRows(t *testing.T, stream Stream) []Row {
	t.Helper()
	var rows []Row
	for {
		row, ok, err := stream.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			return rows
		}
		rows = append(rows, row)
	}
}

func TestReadCSVBasic(t *testing.T) {
	src := "Name,Age\nAda,36\nGrace,85\n"
	header, stream, err := ReadCSV(nopCloser{strings.NewReader(src)}, CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if header.Columns[0] != "Name" || header.Columns[1] != "Age" {
		t.Fatalf("header = %v, want [Name Age]", header.Columns)
	}

	rows := readAllRows(t, stream)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Get("Name") != "Ada" || rows[0].Get("Age") != "36" {
		t.Fatalf("rows[0] = %#v", rows[0].Values)
	}
}

// Open Question 2's resolution: duplicate header columns keep their
// first-occurrence position but read from the last occurrence's values.
func TestDedupHeaderKeepsFirstPositionLastValue(t *testing.T) {
	order, srcIdx, err := dedupHeader([]string{"A", "B", "A", "C"}, false)
	if err != nil {
		t.Fatalf("dedupHeader: %v", err)
	}
	if len(order) != 3 || order[0] != "A" || order[1] != "B" || order[2] != "C" {
		t.Fatalf("order = %v, want [A B C]", order)
	}
	// "A" at dest position 0 should read from the last raw occurrence, index 2.
	if srcIdx[0] != 2 {
		t.Fatalf("srcIdx[0] = %d, want 2 (last occurrence of A)", srcIdx[0])
	}
}

func TestDedupHeaderStrictFailsOnDuplicate(t *testing.T) {
	if _, _, err := dedupHeader([]string{"A", "B", "A"}, true); err == nil {
		t.Fatal("expected an error for a duplicate column under the strict flag")
	}
}

func TestReadCSVStripsBOMAndTrimsHeader(t *testing.T) {
	src := "\ufeffName, Age \nAda,36\n"
	header, stream, err := ReadCSV(nopCloser{strings.NewReader(src)}, CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if header.Columns[0] != "Name" || header.Columns[1] != "Age" {
		t.Fatalf("header = %v, want [Name Age]", header.Columns)
	}
	stream.Close()
}

func TestReadCSVEmptyFileErrors(t *testing.T) {
	if _, _, err := ReadCSV(nopCloser{strings.NewReader("")}, CSVOptions{}); err == nil {
		t.Fatal("expected an error for an empty file")
	}
}
