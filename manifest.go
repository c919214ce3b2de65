package epub3

import (
	"fmt"
	"path"
	"strings"

	"github.com/beevik/etree"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// Manifest is the live view over the <manifest> element: an ordered
// collection of Items keyed by position, id and href. The element child
// order is authoritative; the id and href indices are maintained
// incrementally on Add, Rename and Remove.
type Manifest struct {
	book   *Book
	el     *etree.Element
	proxy  *Proxy
	byID   map[string]*Item
	byHref map[string]*Item
	items  map[*etree.Element]*Item
}

func newManifest(book *Book, el *etree.Element) *Manifest {
	m := &Manifest{
		book:   book,
		el:     el,
		proxy:  book.cache.proxyFor(el),
		byID:   make(map[string]*Item),
		byHref: make(map[string]*Item),
		items:  make(map[*etree.Element]*Item),
	}
	m.load()
	return m
}

// load indexes the existing <item> children. Children without id or href
// are detached with a warning (they cannot be addressed or packed); a
// missing media-type is inferred from the href.
func (m *Manifest) load() {
	for _, el := range m.el.ChildElements() {
		if !matchName(el, "item") {
			continue
		}
		id := el.SelectAttrValue("id", "")
		href := el.SelectAttrValue("href", "")
		if id == "" || href == "" {
			m.book.log.Warn("dropping dangling manifest item",
				zap.String("id", id), zap.String("href", href))
			m.el.RemoveChild(el)
			continue
		}
		if _, dup := m.byID[id]; dup {
			m.book.log.Warn("duplicate manifest id, keeping first occurrence",
				zap.String("id", id), zap.String("href", href))
			continue
		}
		if el.SelectAttrValue("media-type", "") == "" {
			el.CreateAttr("media-type", InferMediaType(href))
		}
		item := &Item{proxy: m.book.cache.proxyFor(el), manifest: m}
		m.bindArchiveEntry(item, href)
		m.items[el] = item
		m.byID[id] = item
		m.byHref[href] = item
	}
}

// bindArchiveEntry attaches the source-archive entry backing href, when the
// Book wraps an existing archive and the entry exists.
func (m *Manifest) bindArchiveEntry(item *Item, href string) {
	if m.book.srcZip == nil {
		return
	}
	zpath := m.book.archivePath(href)
	f, ok := m.book.srcFiles[zpath]
	if !ok {
		m.book.log.Warn("manifest item missing from source archive",
			zap.String("href", href), zap.String("path", zpath))
		return
	}
	item.source = archiveSource{f: f}
}

// AddOption configures Manifest.Add.
type AddOption func(*addConfig)

type addConfig struct {
	id         string
	mediaType  string
	properties []string
	source     contentSource
}

// WithID sets an explicit item id instead of a generated UUID.
func WithID(id string) AddOption {
	return func(c *addConfig) { c.id = id }
}

// WithMediaType sets an explicit media type instead of inferring it from
// the href extension.
func WithMediaType(mediaType string) AddOption {
	return func(c *addConfig) { c.mediaType = mediaType }
}

// WithProperties sets the item's properties tokens.
func WithProperties(tokens ...string) AddOption {
	return func(c *addConfig) { c.properties = tokens }
}

// WithContentBytes binds the given bytes as the item's content.
func WithContentBytes(data []byte) AddOption {
	return func(c *addConfig) { c.source = memorySource{data: data} }
}

// WithContentFile binds an external file as the item's content. The file is
// read at Pack time (and on item reads); writing through the item switches
// the binding to in-memory content and leaves the file untouched.
func WithContentFile(path string) AddOption {
	return func(c *addConfig) { c.source = fileSource{path: path} }
}

// Add creates a manifest item for href. Without options the id is a fresh
// UUID, the media type is inferred from the extension and the content is
// pending-empty. All validation happens before the tree is touched: a
// failed Add leaves no partial item behind.
func (m *Manifest) Add(href string, opts ...AddOption) (*Item, error) {
	href = strings.Trim(href, "/")
	if href == "" {
		return nil, fmt.Errorf("epub3: empty href")
	}
	if href != path.Clean(href) || strings.HasPrefix(href, "../") {
		return nil, fmt.Errorf("epub3: href %q is not a clean relative path", href)
	}
	if m.book.isReservedHref(href) {
		return nil, fmt.Errorf("epub3: href %q: %w", href, ErrReservedPath)
	}
	if _, exists := m.byHref[href]; exists {
		return nil, fmt.Errorf("epub3: href %q: %w", href, ErrDuplicateHref)
	}

	var c addConfig
	for _, opt := range opts {
		opt(&c)
	}
	if c.id == "" {
		c.id = m.newID()
	} else if _, exists := m.byID[c.id]; exists {
		return nil, fmt.Errorf("epub3: id %q: %w", c.id, ErrDuplicateID)
	}
	if c.mediaType == "" {
		c.mediaType = InferMediaType(href)
	}

	el := m.el.CreateElement("item")
	el.CreateAttr("id", c.id)
	el.CreateAttr("href", href)
	el.CreateAttr("media-type", c.mediaType)
	if len(c.properties) > 0 {
		el.CreateAttr("properties", strings.Join(c.properties, " "))
	}

	item := &Item{proxy: m.book.cache.proxyFor(el), manifest: m, source: c.source}
	m.items[el] = item
	m.byID[c.id] = item
	m.byHref[href] = item
	return item, nil
}

// newID generates a UUID id guaranteed not to collide with existing ids.
func (m *Manifest) newID() string {
	for {
		id := uuid.Must(uuid.NewV4()).String()
		if _, exists := m.byID[id]; !exists {
			return id
		}
	}
}

// Len returns the number of manifest items.
func (m *Manifest) Len() int {
	return len(m.orderedElements())
}

// Items returns the items in manifest order. The slice is a snapshot.
func (m *Manifest) Items() []*Item {
	els := m.orderedElements()
	out := make([]*Item, 0, len(els))
	for _, el := range els {
		if item, ok := m.items[el]; ok {
			out = append(out, item)
		}
	}
	return out
}

func (m *Manifest) orderedElements() []*etree.Element {
	var out []*etree.Element
	for _, el := range m.el.ChildElements() {
		if matchName(el, "item") {
			out = append(out, el)
		}
	}
	return out
}

// At returns the item at position i; negative indices count from the end.
func (m *Manifest) At(i int) (*Item, error) {
	items := m.Items()
	if i < 0 {
		i += len(items)
	}
	if i < 0 || i >= len(items) {
		return nil, fmt.Errorf("epub3: manifest index %d out of range: %w", i, ErrNotFound)
	}
	return items[i], nil
}

// ByID returns the item with the exact id.
func (m *Manifest) ByID(id string) (*Item, error) {
	if item, ok := m.byID[id]; ok {
		return item, nil
	}
	return nil, fmt.Errorf("epub3: no manifest item with id %q: %w", id, ErrNotFound)
}

// ByHref returns the item with the exact href.
func (m *Manifest) ByHref(href string) (*Item, error) {
	if item, ok := m.byHref[strings.Trim(href, "/")]; ok {
		return item, nil
	}
	return nil, fmt.Errorf("epub3: no manifest item with href %q: %w", href, ErrNotFound)
}

// Resolve dispatches one lookup over the supported key kinds: an int is a
// position, a string is tried as id then href, an *Item belonging to this
// manifest is returned as-is.
func (m *Manifest) Resolve(key any) (*Item, error) {
	switch k := key.(type) {
	case *Item:
		if k == nil || k.manifest != m {
			return nil, fmt.Errorf("epub3: item does not belong to this manifest: %w", ErrNotFound)
		}
		return k, nil
	case int:
		return m.At(k)
	case string:
		if item, ok := m.byID[k]; ok {
			return item, nil
		}
		return m.ByHref(k)
	default:
		return nil, fmt.Errorf("epub3: unsupported manifest key type %T: %w", key, ErrNotFound)
	}
}

// FilterByAttr returns the items whose named attribute matches pattern, in
// manifest order. A pattern starting with "^" matches by prefix, "$" by
// suffix, anything else exactly; comparison is plain substring position, not
// a regular expression. The attribute defaults to media-type.
func (m *Manifest) FilterByAttr(pattern string, attr ...string) []*Item {
	name := "media-type"
	if len(attr) > 0 && attr[0] != "" {
		name = attr[0]
	}
	match := func(v string) bool { return v == pattern }
	switch {
	case strings.HasPrefix(pattern, "^"):
		want := pattern[1:]
		match = func(v string) bool { return strings.HasPrefix(v, want) }
	case strings.HasPrefix(pattern, "$"):
		want := pattern[1:]
		match = func(v string) bool { return strings.HasSuffix(v, want) }
	}
	var out []*Item
	for _, item := range m.Items() {
		if v := item.proxy.Get(name); item.proxy.Has(name) && match(v) {
			out = append(out, item)
		}
	}
	return out
}

// Open resolves key and opens the item's content. See Item.Open for modes.
func (m *Manifest) Open(key any, mode string) (*Stream, error) {
	item, err := m.Resolve(key)
	if err != nil {
		return nil, err
	}
	return item.Open(mode)
}

// Remove detaches the item from the manifest and discards its content
// binding.
//
// Spine entries referencing the removed item are NOT pruned: callers that
// remove manifest items are responsible for the corresponding itemrefs.
// Pack logs a warning for each dangling idref it finds.
func (m *Manifest) Remove(key any) error {
	item, err := m.Resolve(key)
	if err != nil {
		return err
	}
	el := item.proxy.el
	m.el.RemoveChild(el)
	m.book.cache.evict(el)
	delete(m.items, el)
	delete(m.byID, item.ID())
	delete(m.byHref, item.Href())
	item.source = nil
	return nil
}

// Rename changes an item's href, keeping the href index consistent. The new
// href must not already exist and is validated like Add's.
func (m *Manifest) Rename(href, hrefNew string) error {
	href = strings.Trim(href, "/")
	hrefNew = strings.Trim(hrefNew, "/")
	if href == hrefNew {
		return nil
	}
	item, ok := m.byHref[href]
	if !ok {
		return fmt.Errorf("epub3: no manifest item with href %q: %w", href, ErrNotFound)
	}
	if hrefNew == "" || hrefNew != path.Clean(hrefNew) || strings.HasPrefix(hrefNew, "../") {
		return fmt.Errorf("epub3: href %q is not a clean relative path", hrefNew)
	}
	if m.book.isReservedHref(hrefNew) {
		return fmt.Errorf("epub3: href %q: %w", hrefNew, ErrReservedPath)
	}
	if _, exists := m.byHref[hrefNew]; exists {
		return fmt.Errorf("epub3: href %q: %w", hrefNew, ErrDuplicateHref)
	}
	delete(m.byHref, href)
	m.byHref[hrefNew] = item
	item.proxy.Set("href", hrefNew)
	return nil
}
