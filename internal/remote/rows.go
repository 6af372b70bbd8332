package remote

import (
	"context"
	"fmt"

	"github.com/jessegersenson/rowsync/internal/catalog"
)

// RemoteRow is one existing row: identifier, key-column value, and current
// property values. Mutated only by the uploader; never evicted
// until the run ends.
type RemoteRow struct {
	ID         string
	Key        string
	Properties map[string]catalog.PropertyValue
}

type rowWire struct {
	ID         string         `json:"id"`
	Key        string         `json:"key"`
	Properties map[string]any `json:"properties"`
}

type pageWire struct {
	Rows       []rowWire `json:"rows"`
	NextCursor string    `json:"next_cursor"`
	HasMore    bool      `json:"has_more"`
}

// QueryAllRows paginates through every row of a database (cursor-based,
// page size >= 100) and returns the complete set without omission.
func (c *Client) QueryAllRows(ctx context.Context, databaseID string) ([]RemoteRow, error) {
	const pageSize = 100

	var out []RemoteRow
	cursor := ""
	for {
		path := fmt.Sprintf("/v1/databases/%s/rows?page_size=%d", databaseID, pageSize)
		if cursor != "" {
			path += "&cursor=" + cursor
		}

		var page pageWire
		if err := c.doJSON(ctx, "GET", path, nil, &page); err != nil {
			return nil, fmt.Errorf("remote: query rows: %w", err)
		}

		for _, rw := range page.Rows {
			out = append(out, RemoteRow{ID: rw.ID, Key: rw.Key, Properties: decodeProperties(rw.Properties)})
		}

		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return out, nil
}

// decodeProperties is intentionally loose: the merge index only needs the
// key-column value and a best-effort snapshot for diffing, not a full
// typed round trip.
func decodeProperties(raw map[string]any) map[string]catalog.PropertyValue {
	out := make(map[string]catalog.PropertyValue, len(raw))
	for k, v := range raw {
		s := fmt.Sprint(v)
		out[k] = catalog.PropertyValue{Kind: catalog.Text, Text: s}
	}
	return out
}

// ArchiveRow soft-deletes a row.
func (c *Client) ArchiveRow(ctx context.Context, rowID string) error {
	if err := c.doJSON(ctx, "POST", "/v1/rows/"+rowID+"/archive", nil, nil); err != nil {
		return fmt.Errorf("remote: archive row %s: %w", rowID, err)
	}
	return nil
}
