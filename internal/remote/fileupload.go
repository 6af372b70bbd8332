package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// UploadSlot is the signed destination for one file upload.
type UploadSlot struct {
	UploadID  string
	SignedURL string
}

type uploadSlotWire struct {
	UploadID  string `json:"upload_id"`
	SignedURL string `json:"signed_url"`
}

type finalizeWire struct {
	Handle string `json:"handle"`
}

// CreateUploadSlot requests a signed upload destination for one file.
func (c *Client) CreateUploadSlot(ctx context.Context, filename string) (UploadSlot, error) {
	var wire uploadSlotWire
	body := map[string]string{"filename": filename}
	if err := c.doJSON(ctx, "POST", "/v1/file_uploads", body, &wire); err != nil {
		return UploadSlot{}, fmt.Errorf("remote: create upload slot: %w", err)
	}
	return UploadSlot{UploadID: wire.UploadID, SignedURL: wire.SignedURL}, nil
}

// PutBytes streams the file body to the signed URL. This goes directly to
// the signed URL rather than through doJSON's retry/rate-limit wrapper,
// mirroring the hosted service's real upload contract (the signed URL is
// not on the API host and carries its own short-lived auth).
func (c *Client) PutBytes(ctx context.Context, slot UploadSlot, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, slot.SignedURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("remote: build upload request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpDoFn(req)
	if err != nil {
		return fmt.Errorf("remote: put upload bytes: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("remote: put upload bytes: status %d", resp.StatusCode)
	}
	return nil
}

// FinalizeUpload exchanges a completed upload for a stable asset handle.
func (c *Client) FinalizeUpload(ctx context.Context, uploadID string) (string, error) {
	var wire finalizeWire
	if err := c.doJSON(ctx, "POST", "/v1/file_uploads/"+uploadID+"/finalize", nil, &wire); err != nil {
		return "", fmt.Errorf("remote: finalize upload: %w", err)
	}
	return wire.Handle, nil
}
