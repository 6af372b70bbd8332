package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/jessegersenson/rowsync/internal/catalog"
	"github.com/jessegersenson/rowsync/internal/remote"
)

type fakeClient struct {
	added   []remote.Property
	renamed [][2]string
}

func (f *fakeClient) AddProperty(ctx context.Context, databaseID string, prop remote.Property) error {
	f.added = append(f.added, prop)
	return nil
}

func (f *fakeClient) RenameProperty(ctx context.Context, databaseID, from, to string) error {
	f.renamed = append(f.renamed, [2]string{from, to})
	return nil
}

type fakeResolver struct {
	fail map[string]bool
}

func (r *fakeResolver) ResolveLinkedDatabase(ctx context.Context, propertyName string) (remote.Schema, error) {
	if r.fail[propertyName] {
		return remote.Schema{}, errors.New("linked database unreachable")
	}
	return remote.Schema{DatabaseID: "linked-" + propertyName}, nil
}

func baseSchema() remote.Schema {
	return remote.Schema{
		DatabaseID: "db1",
		Properties: []remote.Property{
			{Name: "a", Type: catalog.Text},
			{Name: "b", Type: catalog.Text},
		},
	}
}

func TestReconcileTitleAlwaysFirstColumn(t *testing.T) {
	plan, err := Reconcile(context.Background(), []string{"a", "b"}, baseSchema(), nil, nil, Flags{}, &fakeClient{}, &fakeResolver{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(plan.Entries) != 2 || plan.Entries[0].InputColumn != "a" || plan.Entries[0].Property.Name != "a" {
		t.Fatalf("unexpected entries: %+v", plan.Entries)
	}
}

func TestReconcileDropsMissingColumnByDefault(t *testing.T) {
	plan, err := Reconcile(context.Background(), []string{"a", "c"}, baseSchema(), nil, nil, Flags{}, &fakeClient{}, &fakeResolver{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(plan.Entries) != 1 {
		t.Fatalf("expected c to be dropped, got entries: %+v", plan.Entries)
	}
	if len(plan.Dropped) != 1 || plan.Dropped[0].Column != "c" {
		t.Fatalf("expected drop reason for c, got: %+v", plan.Dropped)
	}
}

func TestReconcileFailOnMissingColumnsIsFatal(t *testing.T) {
	_, err := Reconcile(context.Background(), []string{"a", "c"}, baseSchema(), nil, nil, Flags{FailOnMissingColumns: true}, &fakeClient{}, &fakeResolver{})
	if err == nil {
		t.Fatal("expected fatal error for missing column under strict flag")
	}
}

func TestReconcileAddsMissingColumnWhenRequested(t *testing.T) {
	client := &fakeClient{}
	plan, err := Reconcile(context.Background(), []string{"a", "c"}, baseSchema(), map[string]catalog.Type{"c": catalog.Number}, nil, Flags{AddMissingColumns: true}, client, &fakeResolver{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(plan.Entries) != 2 {
		t.Fatalf("expected c to be added, got entries: %+v", plan.Entries)
	}
	if len(client.added) != 1 || client.added[0].Type != catalog.Number {
		t.Fatalf("expected AddProperty called with number type, got: %+v", client.added)
	}
}

func TestReconcileAddsMissingColumnWithInferredType(t *testing.T) {
	client := &fakeClient{}
	inferred := map[string]catalog.Type{"c": catalog.Number}
	plan, err := Reconcile(context.Background(), []string{"a", "c"}, baseSchema(), nil, inferred, Flags{AddMissingColumns: true}, client, &fakeResolver{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(plan.Entries) != 2 {
		t.Fatalf("expected c to be added, got entries: %+v", plan.Entries)
	}
	if len(client.added) != 1 || client.added[0].Type != catalog.Number {
		t.Fatalf("expected AddProperty called with inferred number type, got: %+v", client.added)
	}
}

func TestReconcileDeclaredTypeBeatsInferredType(t *testing.T) {
	client := &fakeClient{}
	declared := map[string]catalog.Type{"c": catalog.Text}
	inferred := map[string]catalog.Type{"c": catalog.Number}
	_, err := Reconcile(context.Background(), []string{"a", "c"}, baseSchema(), declared, inferred, Flags{AddMissingColumns: true}, client, &fakeResolver{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(client.added) != 1 || client.added[0].Type != catalog.Text {
		t.Fatalf("expected declared type to win over inferred type, got: %+v", client.added)
	}
}

func TestReconcileDropsUnsettableType(t *testing.T) {
	schema := baseSchema()
	schema.Properties = append(schema.Properties, remote.Property{Name: "formula_col", Type: catalog.Formula})
	plan, err := Reconcile(context.Background(), []string{"a", "formula_col"}, schema, nil, nil, Flags{}, &fakeClient{}, &fakeResolver{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(plan.Entries) != 1 {
		t.Fatalf("expected formula_col to be dropped, got entries: %+v", plan.Entries)
	}
}

func TestReconcileUnsettableStrictIsFatal(t *testing.T) {
	schema := baseSchema()
	schema.Properties = append(schema.Properties, remote.Property{Name: "formula_col", Type: catalog.Formula})
	_, err := Reconcile(context.Background(), []string{"a", "formula_col"}, schema, nil, nil, Flags{FailOnUnsettable: true}, &fakeClient{}, &fakeResolver{})
	if err == nil {
		t.Fatal("expected fatal error for unsettable column under strict flag")
	}
}

func TestReconcileDropsInaccessibleRelation(t *testing.T) {
	schema := baseSchema()
	schema.Properties = append(schema.Properties, remote.Property{Name: "rel", Type: catalog.Relation})
	resolver := &fakeResolver{fail: map[string]bool{"rel": true}}
	plan, err := Reconcile(context.Background(), []string{"a", "rel"}, schema, nil, nil, Flags{}, &fakeClient{}, resolver)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(plan.Entries) != 1 {
		t.Fatalf("expected rel to be dropped, got entries: %+v", plan.Entries)
	}
}

func TestReconcileKeyColumnRename(t *testing.T) {
	client := &fakeClient{}
	plan, err := Reconcile(context.Background(), []string{"a"}, baseSchema(), nil, nil, Flags{RenameKeyColumnFrom: "a", RenameKeyColumnTo: "Name"}, client, &fakeResolver{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(client.renamed) != 1 || client.renamed[0] != [2]string{"a", "Name"} {
		t.Fatalf("expected rename a->Name, got: %+v", client.renamed)
	}
	if plan.Entries[0].Property.Name != "Name" {
		t.Fatalf("expected title property renamed in plan, got: %+v", plan.Entries[0])
	}
}
