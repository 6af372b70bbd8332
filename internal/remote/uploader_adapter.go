package remote

import (
	"context"

	"github.com/jessegersenson/rowsync/internal/fileasset"
)

// Key implements fileasset.SlotLike.
func (s UploadSlot) Key() string { return s.UploadID }

// FileUploader adapts *Client to fileasset.Uploader, keeping the file cache
// package decoupled from the remote transport's concrete types.
type FileUploader struct {
	Client *Client
}

func (f FileUploader) CreateUploadSlot(ctx context.Context, filename string) (fileasset.SlotLike, error) {
	return f.Client.CreateUploadSlot(ctx, filename)
}

func (f FileUploader) PutBytes(ctx context.Context, slot fileasset.SlotLike, data []byte, contentType string) error {
	return f.Client.PutBytes(ctx, slot.(UploadSlot), data, contentType)
}

func (f FileUploader) FinalizeUpload(ctx context.Context, uploadID string) (string, error) {
	return f.Client.FinalizeUpload(ctx, uploadID)
}
