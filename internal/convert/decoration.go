package convert

import (
	"context"
	"log"
	"path/filepath"

	"github.com/jessegersenson/rowsync/internal/catalog"
	"github.com/jessegersenson/rowsync/internal/input"
)

// resolveDecoration implements the image-column/icon-column/AI-caption
// decoration rules, writing results onto out for the uploader to attach
// in one atomic write.
func (c *Converter) resolveDecoration(ctx context.Context, row input.Row, out *Row) error {
	imageURL, err := c.resolveImage(ctx, row)
	if err != nil {
		return err
	}

	switch c.opts.ImageMode {
	case ImageBlock:
		if imageURL != "" {
			out.BlockURL = imageURL
			out.BlockCaption = c.resolveCaption(ctx, row, imageURL)
		}
	default: // ImageCover
		out.CoverURL = imageURL
	}

	if err := c.resolveAICaption(ctx, row, out); err != nil {
		log.Printf("row %d: AI caption: %v", row.Index, err)
	}

	emoji, iconURL, err := c.resolveIcon(ctx, row)
	if err != nil {
		return err
	}
	if emoji == "" && iconURL == "" && c.opts.DefaultIcon != "" {
		emoji = c.opts.DefaultIcon
	}
	out.IconEmoji = emoji
	out.IconURL = iconURL

	return nil
}

// resolveAICaption implements the machine-learning captioning feature
// (--hugging-face-token/--hf-model/--caption-column): it resolves the
// configured source image column to a file reference and writes the
// captioner's result into the configured target property, independent of
// ImageMode and BlockCaption. A missing captioner, missing configuration,
// an empty source cell, or a captioning failure all leave the target
// property untouched rather than failing the row.
func (c *Converter) resolveAICaption(ctx context.Context, row input.Row, out *Row) error {
	if c.captioner == nil || c.opts.AICaptionImageColumn == "" || c.opts.AICaptionColumn == "" {
		return nil
	}
	raw := row.Get(c.opts.AICaptionImageColumn)
	if raw == "" {
		return nil
	}
	ref, err := c.resolveFileFragment(ctx, raw)
	if err != nil {
		return err
	}
	imageURL := firstNonEmpty(ref.URL, ref.Handle)
	if imageURL == "" {
		return nil
	}
	caption, err := c.captioner.Caption(ctx, imageURL)
	if err != nil {
		return err
	}
	out.Values[c.opts.AICaptionColumn] = catalog.PropertyValue{Kind: catalog.Text, Text: caption}
	return nil
}

// resolveImage resolves the first non-empty configured image-source column
// to a URL or uploaded-file handle. Multiple --image-column flags are tried in
// order; the first with a non-empty cell wins.
func (c *Converter) resolveImage(ctx context.Context, row input.Row) (url string, err error) {
	for _, col := range c.opts.ImageColumns {
		raw := row.Get(col)
		if raw == "" {
			continue
		}
		ref, rerr := c.resolveFileFragment(ctx, raw)
		if rerr != nil {
			return "", rerr
		}
		return firstNonEmpty(ref.URL, ref.Handle), nil
	}
	return "", nil
}

// resolveIcon resolves the icon-source column to an emoji, URL, or
// uploaded-file handle. A cell of one or two non-ASCII runes with no file
// extension is treated as an emoji grapheme rather than a file path.
func (c *Converter) resolveIcon(ctx context.Context, row input.Row) (emoji string, iconURL string, err error) {
	if c.opts.IconColumn == "" {
		return "", "", nil
	}
	raw := row.Get(c.opts.IconColumn)
	if raw == "" {
		return "", "", nil
	}
	if isEmojiGrapheme(raw) {
		return raw, "", nil
	}
	ref, rerr := c.resolveFileFragment(ctx, raw)
	if rerr != nil {
		return "", "", rerr
	}
	return "", firstNonEmpty(ref.URL, ref.Handle), nil
}

// resolveCaption invokes the optional external captioning provider.
// Failure is non-fatal and leaves the target column empty.
func (c *Converter) resolveCaption(ctx context.Context, row input.Row, imageURL string) string {
	if c.captioner == nil || c.opts.ImageCaptionColumn == "" {
		return ""
	}
	if existing := row.Get(c.opts.ImageCaptionColumn); existing != "" {
		return existing
	}
	caption, err := c.captioner.Caption(ctx, imageURL)
	if err != nil {
		return ""
	}
	return caption
}

// isEmojiGrapheme is a narrow, non-exhaustive check: cells of one or two
// runes, none of them ASCII, are treated as an emoji icon rather than a path, matching
// the "emoji (single grapheme)" icon rule without depending on a
// full grapheme-cluster segmentation library for one cell type.
func isEmojiGrapheme(s string) bool {
	runes := []rune(s)
	if len(runes) == 0 || filepath.Ext(s) != "" {
		return false
	}
	for _, r := range runes {
		if r < 0x80 {
			return false
		}
	}
	return len(runes) <= 2 // base rune + optional variation selector/ZWJ pair
}

func firstNonEmpty(vals...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
