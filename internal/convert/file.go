package convert

import (
	"context"
	"net/url"
	"path/filepath"

	"github.com/jessegersenson/rowsync/internal/catalog"
)

// isAbsoluteURL reports whether s parses as an absolute URL with a scheme
// and host.
func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs() && u.Host != ""
}

// fileConverter implements the file rule: each comma-separated
// fragment is either kept as a URL reference, or resolved against the
// input file's directory and uploaded, replacing the fragment
// with the uploaded handle.
func (c *Converter) fileConverter() func(context.Context, string) (catalog.PropertyValue, error) {
	return func(ctx context.Context, raw string) (catalog.PropertyValue, error) {
		frags := splitFragments(raw)
		if len(frags) == 0 {
			return catalog.PropertyValue{Kind: catalog.File, Empty: true}, nil
		}

		refs := make([]catalog.FileRef, 0, len(frags))
		for _, f := range frags {
			ref, err := c.resolveFileFragment(ctx, f)
			if err != nil {
				return catalog.PropertyValue{}, err
			}
			refs = append(refs, ref)
		}
		return catalog.PropertyValue{Kind: catalog.File, Files: refs}, nil
	}
}

func (c *Converter) resolveFileFragment(ctx context.Context, fragment string) (catalog.FileRef, error) {
	if isAbsoluteURL(fragment) {
		return catalog.FileRef{Name: filepath.Base(fragment), URL: fragment}, nil
	}

	path := fragment
	if !filepath.IsAbs(path) && c.opts.BaseDir != "" {
		path = filepath.Join(c.opts.BaseDir, path)
	}

	asset, err := c.uploader.Upload(ctx, path)
	if err != nil {
		return catalog.FileRef{}, err
	}
	return catalog.FileRef{Name: asset.Name, URL: asset.URL, Handle: asset.Handle}, nil
}
