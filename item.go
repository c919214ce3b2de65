package epub3

import (
	"fmt"
	"io"
)

// Item is one <item> entry of the manifest: a publication resource with a
// unique id, an href relative to the package document directory, a media
// type and bound byte content. Items are obtained from Manifest.Add and the
// manifest lookups; the same underlying element always yields the same
// *Item.
type Item struct {
	proxy    *Proxy
	manifest *Manifest
	source   contentSource
}

// Proxy returns the item's element proxy for attribute-level access.
func (it *Item) Proxy() *Proxy { return it.proxy }

// ID returns the manifest-unique identifier.
func (it *Item) ID() string { return it.proxy.Get("id") }

// Href returns the resource path, relative to the package document
// directory. Use Manifest.Rename to change it so the href index stays
// consistent.
func (it *Item) Href() string { return it.proxy.Get("href") }

// MediaType returns the item's media type.
func (it *Item) MediaType() string { return it.proxy.Get("media-type") }

// SetMediaType sets the media type; an empty value re-infers it from the
// href extension.
func (it *Item) SetMediaType(mediaType string) {
	if mediaType == "" {
		mediaType = InferMediaType(it.Href())
	}
	it.proxy.Set("media-type", mediaType)
}

// Properties returns the space-separated properties tokens (for example
// "nav" or "cover-image").
func (it *Item) Properties() []string {
	return it.proxy.propertyTokens("properties")
}

// AddProperty adds a properties token if not already present.
func (it *Item) AddProperty(token string) {
	it.proxy.addPropertyToken("properties", token)
}

// HasProperty reports whether the properties attribute contains token.
func (it *Item) HasProperty(token string) bool {
	for _, t := range it.Properties() {
		if t == token {
			return true
		}
	}
	return false
}

// Open returns a stream over the item's bound content. Modes "r"/"rb" read
// from the start, "w"/"wb" truncate, "a"/"ab" append; text and binary
// variants are equivalent, content is UTF-8 bytes. A write stream commits on
// Close: until then neither reads nor Pack observe the new bytes.
func (it *Item) Open(mode string) (*Stream, error) {
	return openStream(it, mode)
}

// ReadBytes reads the item's whole content.
func (it *Item) ReadBytes() ([]byte, error) {
	s, err := it.Open("rb")
	if err != nil {
		return nil, err
	}
	defer s.Close()
	data, err := io.ReadAll(s)
	if err != nil {
		return nil, fmt.Errorf("epub3: read %s: %w", it.Href(), err)
	}
	return data, nil
}

// ReadText reads the item's whole content as a UTF-8 string.
func (it *Item) ReadText() (string, error) {
	data, err := it.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteBytes replaces the item's content.
func (it *Item) WriteBytes(data []byte) error {
	s, err := it.Open("wb")
	if err != nil {
		return err
	}
	if _, err := s.Write(data); err != nil {
		return err
	}
	return s.Close()
}

// WriteText replaces the item's content with UTF-8 text.
func (it *Item) WriteText(text string) error {
	return it.WriteBytes([]byte(text))
}

// Size returns the size of the bound content in bytes. Pending-empty items
// report zero.
func (it *Item) Size() (int64, error) {
	if it.source == nil {
		return 0, nil
	}
	return it.source.size()
}

// HasContent reports whether the item has bound content: an entry of the
// source archive, an external file, or bytes committed through a write
// stream. False means the item packs as an empty entry.
func (it *Item) HasContent() bool {
	return it.source != nil
}

// Remove detaches the item from the manifest. Equivalent to
// Manifest.Remove(it); the same spine caveat applies.
func (it *Item) Remove() error {
	return it.manifest.Remove(it)
}
