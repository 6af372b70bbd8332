package upload

import (
	"sync"

	"github.com/jessegersenson/rowsync/internal/remote"
)

// Index is the merge-mode RemoteRow index: built once before
// the pipeline starts, immutable for lookups thereafter; on merge-insert of
// a new row the new id is appended under a write lock so a later same-key
// row in the same run updates the newly inserted row (last-writer-wins
// within the run).
type Index struct {
	mu   sync.RWMutex
	byKey map[string]*remote.RemoteRow
}

// NewIndex builds an Index from a full row snapshot.
func NewIndex(rows []remote.RemoteRow) *Index {
	idx := &Index{byKey: make(map[string]*remote.RemoteRow, len(rows))}
	for i := range rows {
		r := rows[i]
		idx.byKey[r.Key] = &r
	}
	return idx
}

// Lookup returns the existing RemoteRow for a key value, if any.
func (idx *Index) Lookup(key string) (remote.RemoteRow, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	r, ok := idx.byKey[key]
	if !ok {
		return remote.RemoteRow{}, false
	}
	return *r, true
}

// Insert records a newly-created row under its key so subsequent same-key
// rows in this run update it instead of inserting again.
func (idx *Index) Insert(row remote.RemoteRow) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byKey[row.Key] = &row
}
