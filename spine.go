package epub3

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// Spine is the live view over the <spine> element: the ordered reading-order
// references, keyed by position and idref. Order is exactly the element
// child order; no operation reorders implicitly.
type Spine struct {
	book    *Book
	el      *etree.Element
	proxy   *Proxy
	byIdref map[string]*Itemref
	refs    map[*etree.Element]*Itemref
}

// Itemref is one <itemref> spine entry referencing a manifest item by id.
type Itemref struct {
	proxy *Proxy
	spine *Spine
}

// Proxy returns the itemref's element proxy.
func (r *Itemref) Proxy() *Proxy { return r.proxy }

// Idref returns the referenced manifest id.
func (r *Itemref) Idref() string { return r.proxy.Get("idref") }

// Linear reports the linear attribute; an absent attribute reads as "yes".
func (r *Itemref) Linear() string {
	if r.proxy.Get("linear") == "no" {
		return "no"
	}
	return "yes"
}

// SetLinear sets the linear attribute; any value other than "no" resets it
// to the default "yes" (the attribute is dropped).
func (r *Itemref) SetLinear(value string) {
	if value == "no" {
		r.proxy.Set("linear", "no")
		return
	}
	r.proxy.Del("linear")
}

// Properties returns the itemref's properties tokens.
func (r *Itemref) Properties() []string {
	return r.proxy.propertyTokens("properties")
}

// Item returns the referenced manifest item, or an error when the reference
// dangles (possible after Manifest.Remove).
func (r *Itemref) Item() (*Item, error) {
	return r.spine.book.manifest.ByID(r.Idref())
}

func newSpine(book *Book, el *etree.Element) *Spine {
	s := &Spine{
		book:    book,
		el:      el,
		proxy:   book.cache.proxyFor(el),
		byIdref: make(map[string]*Itemref),
		refs:    make(map[*etree.Element]*Itemref),
	}
	s.load()
	return s
}

// load indexes existing <itemref> children. Entries whose idref has no
// manifest item are detached with a warning, matching the permissive read
// path: the model never starts out with dangling references.
func (s *Spine) load() {
	for _, el := range s.el.ChildElements() {
		if !matchName(el, "itemref") {
			continue
		}
		idref := el.SelectAttrValue("idref", "")
		if idref == "" {
			s.book.log.Warn("dropping itemref without idref")
			s.el.RemoveChild(el)
			continue
		}
		if _, ok := s.book.manifest.byID[idref]; !ok {
			s.book.log.Warn("dropping dangling itemref", zap.String("idref", idref))
			s.el.RemoveChild(el)
			continue
		}
		if _, dup := s.byIdref[idref]; dup {
			s.book.log.Warn("duplicate itemref, keeping first occurrence",
				zap.String("idref", idref))
			continue
		}
		ref := &Itemref{proxy: s.book.cache.proxyFor(el), spine: s}
		s.refs[el] = ref
		s.byIdref[idref] = ref
	}
}

// SpineOption configures Spine.Add.
type SpineOption func(*spineConfig)

type spineConfig struct {
	linear     string
	properties []string
}

// Linear sets the itemref's linear attribute ("yes" or "no").
func Linear(value string) SpineOption {
	return func(c *spineConfig) { c.linear = value }
}

// ItemrefProperties sets the itemref's properties tokens.
func ItemrefProperties(tokens ...string) SpineOption {
	return func(c *spineConfig) { c.properties = tokens }
}

// Add appends a reading-order reference for the given manifest item (an
// *Item, an id string or a manifest position). The id must exist in the
// manifest and must not already be referenced; both checks happen before
// the tree is touched.
func (s *Spine) Add(key any, opts ...SpineOption) (*Itemref, error) {
	id, err := s.resolveID(key)
	if err != nil {
		return nil, err
	}
	if _, ok := s.book.manifest.byID[id]; !ok {
		return nil, fmt.Errorf("epub3: id %q: %w", id, ErrDanglingReference)
	}
	if _, exists := s.byIdref[id]; exists {
		return nil, fmt.Errorf("epub3: id %q: %w", id, ErrDuplicateIdref)
	}

	var c spineConfig
	for _, opt := range opts {
		opt(&c)
	}

	el := s.el.CreateElement("itemref")
	el.CreateAttr("idref", id)
	if c.linear == "no" {
		el.CreateAttr("linear", "no")
	}
	if len(c.properties) > 0 {
		el.CreateAttr("properties", strings.Join(c.properties, " "))
	}

	ref := &Itemref{proxy: s.book.cache.proxyFor(el), spine: s}
	s.refs[el] = ref
	s.byIdref[id] = ref
	return ref, nil
}

// resolveID maps an Add/Resolve key to a manifest id without requiring the
// id to be present (Add reports the precise error itself).
func (s *Spine) resolveID(key any) (string, error) {
	switch k := key.(type) {
	case *Item:
		if k == nil {
			return "", fmt.Errorf("epub3: nil item: %w", ErrNotFound)
		}
		return k.ID(), nil
	case *Itemref:
		if k == nil {
			return "", fmt.Errorf("epub3: nil itemref: %w", ErrNotFound)
		}
		return k.Idref(), nil
	case string:
		return k, nil
	default:
		return "", fmt.Errorf("epub3: unsupported spine key type %T: %w", key, ErrNotFound)
	}
}

// Len returns the number of itemrefs.
func (s *Spine) Len() int {
	return len(s.orderedElements())
}

// Itemrefs returns the spine entries in reading order. The slice is a
// snapshot.
func (s *Spine) Itemrefs() []*Itemref {
	els := s.orderedElements()
	out := make([]*Itemref, 0, len(els))
	for _, el := range els {
		if ref, ok := s.refs[el]; ok {
			out = append(out, ref)
		}
	}
	return out
}

func (s *Spine) orderedElements() []*etree.Element {
	var out []*etree.Element
	for _, el := range s.el.ChildElements() {
		if matchName(el, "itemref") {
			out = append(out, el)
		}
	}
	return out
}

// At returns the itemref at position i; negative indices count from the
// end.
func (s *Spine) At(i int) (*Itemref, error) {
	refs := s.Itemrefs()
	if i < 0 {
		i += len(refs)
	}
	if i < 0 || i >= len(refs) {
		return nil, fmt.Errorf("epub3: spine index %d out of range: %w", i, ErrNotFound)
	}
	return refs[i], nil
}

// ByIdref returns the itemref referencing the exact manifest id.
func (s *Spine) ByIdref(idref string) (*Itemref, error) {
	if ref, ok := s.byIdref[idref]; ok {
		return ref, nil
	}
	return nil, fmt.Errorf("epub3: no itemref for id %q: %w", idref, ErrNotFound)
}

// Resolve dispatches a lookup: an int is a position, a string an idref, an
// *Item resolves through its id, an *Itemref belonging to this spine is
// returned as-is.
func (s *Spine) Resolve(key any) (*Itemref, error) {
	if ref, ok := key.(*Itemref); ok {
		if ref == nil || ref.spine != s {
			return nil, fmt.Errorf("epub3: itemref does not belong to this spine: %w", ErrNotFound)
		}
		return ref, nil
	}
	if i, ok := key.(int); ok {
		return s.At(i)
	}
	id, err := s.resolveID(key)
	if err != nil {
		return nil, err
	}
	return s.ByIdref(id)
}

// Remove detaches the itemref. The manifest is not touched.
func (s *Spine) Remove(key any) error {
	ref, err := s.Resolve(key)
	if err != nil {
		return err
	}
	el := ref.proxy.el
	idref := ref.Idref()
	s.el.RemoveChild(el)
	s.book.cache.evict(el)
	delete(s.refs, el)
	delete(s.byIdref, idref)
	return nil
}
