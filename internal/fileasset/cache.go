// Package fileasset implements the file-upload subprotocol's
// content-addressed, at-most-once-per-path cache.
//
// Built on the common goroutines-plus-explicit-locking idiom for
// shared read-mostly state, generalized here with
// golang.org/x/sync/singleflight: concurrent row workers requesting the
// same local path must block on one upload and then share the handle.
package fileasset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Asset is the result of uploading one local file: the remote handle plus
// a stable filename. Cache leaves URL empty.
type Asset struct {
	Name   string
	URL    string
	Handle string
}

// Uploader is the transport-level contract the cache drives; satisfied by
// *remote.Client's upload-slot/PUT/finalize trio.
type Uploader interface {
	CreateUploadSlot(ctx context.Context, filename string) (SlotLike, error)
	PutBytes(ctx context.Context, slot SlotLike, data []byte, contentType string) error
	FinalizeUpload(ctx context.Context, uploadID string) (string, error)
}

// SlotLike is the minimal shape the cache needs from an upload slot; kept
// narrow so tests can fake it without importing internal/remote.
type SlotLike interface {
	Key() string
}

// Reporter is the narrow metrics contract the cache notifies on a completed
// upload, satisfied by *metrics.Reporter. Nil is valid and disables
// reporting.
type Reporter interface {
	FileUploaded()
}

// Cache is a per-run, concurrency-safe, content-addressed (absolute-path
// keyed) upload cache. The at-most-once guarantee holds even when many row
// workers request the same path concurrently.
type Cache struct {
	uploader Uploader
	reporter Reporter
	group    singleflight.Group

	mu      sync.RWMutex
	results map[string]Asset
}

// New constructs a Cache bound to one uploader. reporter may be nil.
func New(uploader Uploader, reporter Reporter) *Cache {
	return &Cache{uploader: uploader, reporter: reporter, results: make(map[string]Asset)}
}

// Upload returns the cached Asset for path if already uploaded this run,
// otherwise performs exactly one upload even under concurrent callers for
// the same path.
func (c *Cache) Upload(ctx context.Context, path string) (Asset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Asset{}, fmt.Errorf("fileasset: resolve path %q: %w", path, err)
	}

	c.mu.RLock()
	if a, ok := c.results[abs]; ok {
		c.mu.RUnlock()
		return a, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(abs, func() (any, error) {
		// Re-check under the singleflight key: another call may have
		// populated the cache between the RUnlock above and entering Do.
		c.mu.RLock()
		if a, ok := c.results[abs]; ok {
			c.mu.RUnlock()
			return a, nil
		}
		c.mu.RUnlock()

		asset, err := c.doUpload(ctx, abs)
		if err != nil {
			return Asset{}, err
		}
		if c.reporter != nil {
			c.reporter.FileUploaded()
		}

		c.mu.Lock()
		c.results[abs] = asset
		c.mu.Unlock()
		return asset, nil
	})
	if err != nil {
		return Asset{}, err
	}
	return v.(Asset), nil
}

func (c *Cache) doUpload(ctx context.Context, abs string) (Asset, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		return Asset{}, fmt.Errorf("fileasset: read %q: %w", abs, err)
	}

	name := filepath.Base(abs)
	slot, err := c.uploader.CreateUploadSlot(ctx, name)
	if err != nil {
		return Asset{}, fmt.Errorf("fileasset: create upload slot for %q: %w", abs, err)
	}
	if err := c.uploader.PutBytes(ctx, slot, data, contentTypeFor(name)); err != nil {
		return Asset{}, fmt.Errorf("fileasset: upload %q: %w", abs, err)
	}
	handle, err := c.uploader.FinalizeUpload(ctx, slot.Key())
	if err != nil {
		return Asset{}, fmt.Errorf("fileasset: finalize upload for %q: %w", abs, err)
	}
	return Asset{Name: name, Handle: handle}, nil
}

func contentTypeFor(name string) string {
	switch filepath.Ext(name) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
