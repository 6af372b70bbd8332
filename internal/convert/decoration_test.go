package convert

import (
	"context"
	"testing"

	"github.com/jessegersenson/rowsync/internal/catalog"
	"github.com/jessegersenson/rowsync/internal/input"
)

type fakeCaptioner struct {
	caption string
	err     error
	calls   []string
}

func (f *fakeCaptioner) Caption(ctx context.Context, imageURL string) (string, error) {
	f.calls = append(f.calls, imageURL)
	return f.caption, f.err
}

func newTestConverter(opts Options, captioner Captioner) *Converter {
	return &Converter{opts: opts, flags: Flags{}, captioner: captioner}
}

func TestResolveAICaptionWritesIndependentTargetColumn(t *testing.T) {
	captioner := &fakeCaptioner{caption: "a red bicycle"}
	c := newTestConverter(Options{
		ImageMode:            ImageCover,
		AICaptionImageColumn: "Photo",
		AICaptionColumn:      "Caption",
	}, captioner)

	row := input.Row{Values: map[string]any{"Photo": "https://example.com/bike.png"}}
	out := &Row{Values: map[string]catalog.PropertyValue{}}

	if err := c.resolveDecoration(context.Background(), row, out); err != nil {
		t.Fatalf("resolveDecoration: %v", err)
	}

	if out.BlockCaption != "" {
		t.Fatalf("BlockCaption = %q, want empty (cover mode, no --image-caption-column)", out.BlockCaption)
	}
	got := out.Values["Caption"]
	if got.Kind != catalog.Text || got.Text != "a red bicycle" {
		t.Fatalf("Values[Caption] = %+v, want Text %q", got, "a red bicycle")
	}
	if len(captioner.calls) != 1 || captioner.calls[0] != "https://example.com/bike.png" {
		t.Fatalf("unexpected captioner calls: %v", captioner.calls)
	}
}

func TestResolveAICaptionIndependentOfBlockCaption(t *testing.T) {
	captioner := &fakeCaptioner{caption: "ai caption"}
	c := newTestConverter(Options{
		ImageMode:            ImageBlock,
		ImageColumns:         []string{"Cover"},
		ImageCaptionColumn:   "BlockCap",
		AICaptionImageColumn: "Photo",
		AICaptionColumn:      "Caption",
	}, captioner)

	row := input.Row{Values: map[string]any{
		"Cover":    "https://example.com/cover.png",
		"BlockCap": "a hand-written block caption",
		"Photo":    "https://example.com/photo.png",
	}}
	out := &Row{Values: map[string]catalog.PropertyValue{}}

	if err := c.resolveDecoration(context.Background(), row, out); err != nil {
		t.Fatalf("resolveDecoration: %v", err)
	}

	if out.BlockCaption != "a hand-written block caption" {
		t.Fatalf("BlockCaption = %q, want the existing cell value preserved", out.BlockCaption)
	}
	if got := out.Values["Caption"]; got.Text != "ai caption" {
		t.Fatalf("Values[Caption] = %+v, want Text %q", got, "ai caption")
	}
}

func TestResolveAICaptionSkipsWhenUnconfigured(t *testing.T) {
	captioner := &fakeCaptioner{caption: "unused"}
	c := newTestConverter(Options{ImageMode: ImageCover}, captioner)

	row := input.Row{Values: map[string]any{"Photo": "https://example.com/bike.png"}}
	out := &Row{Values: map[string]catalog.PropertyValue{}}

	if err := c.resolveDecoration(context.Background(), row, out); err != nil {
		t.Fatalf("resolveDecoration: %v", err)
	}
	if len(out.Values) != 0 {
		t.Fatalf("expected no values written without --caption-column, got: %+v", out.Values)
	}
	if len(captioner.calls) != 0 {
		t.Fatalf("expected captioner not called without --caption-column, got calls: %v", captioner.calls)
	}
}

func TestResolveAICaptionFailureLeavesTargetColumnEmpty(t *testing.T) {
	captioner := &fakeCaptioner{err: context.DeadlineExceeded}
	c := newTestConverter(Options{
		ImageMode:            ImageCover,
		AICaptionImageColumn: "Photo",
		AICaptionColumn:      "Caption",
	}, captioner)

	row := input.Row{Values: map[string]any{"Photo": "https://example.com/bike.png"}}
	out := &Row{Values: map[string]catalog.PropertyValue{}}

	if err := c.resolveDecoration(context.Background(), row, out); err != nil {
		t.Fatalf("resolveDecoration: %v (decoration errors are logged, not fatal)", err)
	}
	if _, ok := out.Values["Caption"]; ok {
		t.Fatalf("expected Values[Caption] to stay unset on captioner failure, got: %+v", out.Values)
	}
}
