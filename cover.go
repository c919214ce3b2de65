package epub3

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// Cover returns the cover image item. Detection is tried in priority order:
//  1. a manifest item with the "cover-image" property (EPUB 3)
//  2. the manifest id named by meta[@name="cover"] (EPUB 2)
//
// Returns nil when no cover is found.
func (b *Book) Cover() *Item {
	for _, item := range b.manifest.Items() {
		if item.HasProperty("cover-image") {
			return item
		}
	}
	if id := b.metadata.CoverID(); id != "" {
		if item, err := b.manifest.ByID(id); err == nil {
			return item
		}
	}
	return nil
}

// SetCover marks an existing manifest item (any Manifest.Resolve key) as
// the cover image: it gains the "cover-image" property and the EPUB 2
// style meta[@name="cover"] is pointed at it.
func (b *Book) SetCover(key any) error {
	item, err := b.manifest.Resolve(key)
	if err != nil {
		return err
	}
	item.AddProperty("cover-image")
	b.metadata.setCoverID(item.ID())
	return nil
}

// CoverImageOptions bounds the embedded cover image. Zero values leave the
// image size untouched.
type CoverImageOptions struct {
	MaxWidth  int
	MaxHeight int
}

// SetCoverImage decodes an image, scales it down to fit the given bounds
// when necessary (aspect ratio preserved, Lanczos resampling), re-encodes
// it in the format implied by the href extension and embeds it as the cover
// item. The new item carries the "cover-image" property and the
// meta[@name="cover"] expression.
func (b *Book) SetCoverImage(href string, r io.Reader, opts CoverImageOptions) (*Item, error) {
	format, err := imaging.FormatFromFilename(href)
	if err != nil {
		return nil, fmt.Errorf("epub3: cover %s: %w", href, err)
	}
	src, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("epub3: decode cover image: %w", err)
	}

	bounds := src.Bounds()
	if (opts.MaxWidth > 0 && bounds.Dx() > opts.MaxWidth) ||
		(opts.MaxHeight > 0 && bounds.Dy() > opts.MaxHeight) {
		w, h := opts.MaxWidth, opts.MaxHeight
		if w <= 0 {
			w = bounds.Dx()
		}
		if h <= 0 {
			h = bounds.Dy()
		}
		src = imaging.Fit(src, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, format, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("epub3: encode cover image: %w", err)
	}

	item, err := b.manifest.Add(href,
		WithContentBytes(buf.Bytes()),
		WithProperties("cover-image"),
	)
	if err != nil {
		return nil, err
	}
	b.metadata.setCoverID(item.ID())
	return item, nil
}
