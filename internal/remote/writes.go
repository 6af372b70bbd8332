package remote

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Decoration describes the page-level extras attached alongside a row
// write.
type Decoration struct {
	CoverURL    string
	IconEmoji   string
	IconURL     string
	ImageBlock  *ImageBlock
}

// ImageBlock is the single block type this system ever appends.
type ImageBlock struct {
	URL     string
	Caption string
}

// WriteRequest is the atomic create/update payload for one row.
type WriteRequest struct {
	DatabaseID string
	RowID      string // empty for insert
	Properties map[string]any
	Decoration Decoration
}

type writeResponseWire struct {
	ID string `json:"id"`
}

// UpsertRow creates a row (RowID empty) or updates one in place, along with
// its decoration, in a single request so partial failure is reported as one
// error. A generated correlation id is attached via
// github.com/google/uuid for log correlation across retries.
func (c *Client) UpsertRow(ctx context.Context, req WriteRequest) (string, error) {
	body := map[string]any{
		"database_id": req.DatabaseID,
		"properties":  req.Properties,
		"cover_url":   req.Decoration.CoverURL,
		"icon_emoji":  req.Decoration.IconEmoji,
		"icon_url":    req.Decoration.IconURL,
		"correlation": uuid.New().String(),
	}
	if req.Decoration.ImageBlock != nil {
		body["image_block"] = map[string]string{
			"url":     req.Decoration.ImageBlock.URL,
			"caption": req.Decoration.ImageBlock.Caption,
		}
	}

	method := "POST"
	path := "/v1/rows"
	if req.RowID != "" {
		method = "PATCH"
		path = "/v1/rows/" + req.RowID
	}

	var resp writeResponseWire
	if err := c.doJSON(ctx, method, path, body, &resp); err != nil {
		return "", fmt.Errorf("remote: upsert row: %w", err)
	}
	if resp.ID == "" {
		return req.RowID, nil
	}
	return resp.ID, nil
}
