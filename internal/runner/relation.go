package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jessegersenson/rowsync/internal/remote"
)

// relationManager resolves relation columns' linked databases and shares
// one lookup index per linked database across however many columns point
// at it.
type relationManager struct {
	client *remote.Client
	schema remote.Schema // the target database's schema, for LinkedDB lookups

	mu      sync.Mutex
	indexes map[string]*relationIndex // linked database id -> index
}

func newRelationManager(client *remote.Client, schema remote.Schema) *relationManager {
	return &relationManager{client: client, schema: schema, indexes: make(map[string]*relationIndex)}
}

// ResolveLinkedDatabase implements reconcile.RelationResolver.
func (m *relationManager) ResolveLinkedDatabase(ctx context.Context, propertyName string) (remote.Schema, error) {
	prop, ok := m.schema.ByName(propertyName)
	if !ok || prop.LinkedDB == "" {
		return remote.Schema{}, fmt.Errorf("runner: relation column %q has no linked database", propertyName)
	}
	return m.client.FetchSchema(ctx, prop.LinkedDB)
}

// indexFor returns the shared lookup index for one linked database,
// building it on first use.
func (m *relationManager) indexFor(ctx context.Context, linkedDatabaseID string) (*relationIndex, error) {
	m.mu.Lock()
	idx, ok := m.indexes[linkedDatabaseID]
	if !ok {
		idx = &relationIndex{client: m.client, databaseID: linkedDatabaseID}
		m.indexes[linkedDatabaseID] = idx
	}
	m.mu.Unlock()

	if err := idx.ensureBuilt(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

// relationIndexFor adapts the manager to convert.RelationIndex's
// per-property shape, so several relation columns pointing at the same
// linked database share one underlying index instead of rebuilding it.
type relationIndexFor struct {
	manager *relationManager
}

func (r relationIndexFor) Lookup(ctx context.Context, linkedDatabaseID, title string) (string, bool, bool, error) {
	idx, err := r.manager.indexFor(ctx, linkedDatabaseID)
	if err != nil {
		return "", false, false, err
	}
	return idx.lookup(title)
}

func (r relationIndexFor) Create(ctx context.Context, linkedDatabaseID, title string) (string, error) {
	idx, err := r.manager.indexFor(ctx, linkedDatabaseID)
	if err != nil {
		return "", err
	}
	return idx.create(ctx, title)
}

// relationIndex is a read-mostly title->pageID lookup for one linked
// database, built once from a full row query and extended under a lock as
// new rows are created during the run.
type relationIndex struct {
	client     *remote.Client
	databaseID string

	mu        sync.Mutex
	built     bool
	titleProp string
	byTitle   map[string]string
	duplicate map[string]bool
}

func (idx *relationIndex) ensureBuilt(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.built {
		return nil
	}

	schema, err := idx.client.FetchSchema(ctx, idx.databaseID)
	if err != nil {
		return fmt.Errorf("runner: fetch linked database schema: %w", err)
	}
	title, ok := schema.TitleProperty()
	if !ok {
		return fmt.Errorf("runner: linked database %s has no title property", idx.databaseID)
	}
	idx.titleProp = title.Name

	rows, err := idx.client.QueryAllRows(ctx, idx.databaseID)
	if err != nil {
		return fmt.Errorf("runner: query linked database rows: %w", err)
	}

	// Duplicates in the linked database resolve to the alphabetically
	// first title, matching get_unique_rows's sort-then-keep-first
	// tie-break; later rows under the same title are recorded as
	// duplicate so strict mode can still fail on them.
	sorted := make([]remote.RemoteRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	idx.byTitle = make(map[string]string, len(sorted))
	idx.duplicate = make(map[string]bool)
	for _, row := range sorted {
		if _, exists := idx.byTitle[row.Key]; exists {
			idx.duplicate[row.Key] = true
			continue
		}
		idx.byTitle[row.Key] = row.ID
	}
	idx.built = true
	return nil
}

func (idx *relationIndex) lookup(title string) (string, bool, bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	id, ok := idx.byTitle[title]
	return id, ok, idx.duplicate[title], nil
}

func (idx *relationIndex) create(ctx context.Context, title string) (string, error) {
	id, err := idx.client.UpsertRow(ctx, remote.WriteRequest{
		DatabaseID: idx.databaseID,
		Properties: map[string]any{idx.titleProp: title},
	})
	if err != nil {
		return "", fmt.Errorf("runner: create linked row %q: %w", title, err)
	}

	idx.mu.Lock()
	idx.byTitle[title] = id
	idx.mu.Unlock()

	return id, nil
}
