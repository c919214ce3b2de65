package epub3

import (
	"strings"

	"github.com/beevik/etree"
)

// Proxy is a live handle to one element of the package document. It exposes
// attribute access, text content, child iteration and element-path queries.
// Proxies obtained through the same Book for the same underlying element are
// identical; a proxy stays valid across attribute edits and is evicted only
// when its element is removed from the tree.
//
// Read accessors are nil-safe: Find returns nil when nothing matches, and
// calling Get, Text, OK and the other read methods on a nil Proxy yields
// zero values rather than panicking. Mutating a nil Proxy panics.
type Proxy struct {
	el    *etree.Element
	cache *proxyCache
}

// proxyCache memoizes proxies by element pointer identity so that repeated
// lookups of the same element return the same live handle. One cache is
// shared by everything hanging off a Book.
type proxyCache struct {
	proxies map[*etree.Element]*Proxy
}

func newProxyCache() *proxyCache {
	return &proxyCache{proxies: make(map[*etree.Element]*Proxy)}
}

func (c *proxyCache) proxyFor(el *etree.Element) *Proxy {
	if el == nil {
		return nil
	}
	if p, ok := c.proxies[el]; ok {
		return p
	}
	p := &Proxy{el: el, cache: c}
	c.proxies[el] = p
	return p
}

// evict drops el and its whole subtree from the cache. Called on structural
// removal; the evicted proxies are dead handles.
func (c *proxyCache) evict(el *etree.Element) {
	delete(c.proxies, el)
	for _, child := range el.ChildElements() {
		c.evict(child)
	}
}

// OK reports whether the proxy refers to an element. The nil proxy returned
// by a missed Find reports false.
func (p *Proxy) OK() bool {
	return p != nil && p.el != nil
}

// Tag returns the element's local name.
func (p *Proxy) Tag() string {
	if !p.OK() {
		return ""
	}
	return p.el.Tag
}

// Get returns the named attribute, or "" when absent. Prefixed names
// ("opf:role", "xml:lang") are matched by resolved namespace when the
// literal key is not present.
func (p *Proxy) Get(name string) string {
	return p.GetDefault(name, "")
}

// GetDefault returns the named attribute, or def when absent.
func (p *Proxy) GetDefault(name, def string) string {
	if !p.OK() {
		return def
	}
	if v, ok := attrLookup(p.el, name); ok {
		return v
	}
	return def
}

// Has reports whether the named attribute is present.
func (p *Proxy) Has(name string) bool {
	if !p.OK() {
		return false
	}
	_, ok := attrLookup(p.el, name)
	return ok
}

// Set sets the named attribute, creating it when absent. A standard prefix
// ("opf:role") gets its xmlns declaration the same way Add's does.
func (p *Proxy) Set(name, value string) {
	if prefix, _ := splitQName(name); prefix != "" && prefix != "xmlns" {
		ensurePrefix(p.el, prefix)
	}
	p.el.CreateAttr(name, value)
}

// Del removes the named attribute if present.
func (p *Proxy) Del(name string) {
	prefix, local := splitQName(name)
	if prefix == "" {
		p.el.RemoveAttr(local)
		return
	}
	p.el.RemoveAttr(prefix + ":" + local)
}

// Text returns the element's text content, "" for the missing proxy.
func (p *Proxy) Text() string {
	if !p.OK() {
		return ""
	}
	return p.el.Text()
}

// SetText replaces the element's text content.
func (p *Proxy) SetText(text string) {
	p.el.SetText(text)
}

// Len returns the number of child elements.
func (p *Proxy) Len() int {
	if !p.OK() {
		return 0
	}
	return len(p.el.ChildElements())
}

// Children returns proxies for the current child elements. The slice is a
// snapshot taken at call time; re-call to observe structural changes.
func (p *Proxy) Children() []*Proxy {
	if !p.OK() {
		return nil
	}
	kids := p.el.ChildElements()
	out := make([]*Proxy, len(kids))
	for i, el := range kids {
		out[i] = p.cache.proxyFor(el)
	}
	return out
}

// Find returns the first element matching the path, or nil. Paths use the
// restricted element-path language: names (optionally prefixed), "*",
// [@attr], [@attr="value"] and one-based [n] predicates, "/" and "//"
// separators. An invalid path finds nothing.
func (p *Proxy) Find(path string) *Proxy {
	if els := p.findElements(path); len(els) > 0 {
		return p.cache.proxyFor(els[0])
	}
	return nil
}

// IterFind returns proxies for every element matching the path, in document
// order. The result is a snapshot of the tree at call time.
func (p *Proxy) IterFind(path string) []*Proxy {
	els := p.findElements(path)
	out := make([]*Proxy, len(els))
	for i, el := range els {
		out[i] = p.cache.proxyFor(el)
	}
	return out
}

func (p *Proxy) findElements(path string) []*etree.Element {
	if !p.OK() {
		return nil
	}
	steps, err := parsePath(path)
	if err != nil {
		return nil
	}
	return findAll(p.el, steps)
}

// Add appends a child element. The tag may carry a standard prefix
// ("dc:identifier"); the corresponding xmlns declaration is added to the
// new element's nearest ancestor that lacks it, so the serialized document
// stays well formed.
func (p *Proxy) Add(tag string, attrib map[string]string, text string) *Proxy {
	child := p.el.CreateElement(tag)
	if prefix, _ := splitQName(tag); prefix != "" {
		ensurePrefix(p.el, prefix)
	}
	for name, value := range attrib {
		child.CreateAttr(name, value)
		if ap, _ := splitQName(name); ap != "" && ap != "xmlns" && ap != "xml" {
			ensurePrefix(p.el, ap)
		}
	}
	if text != "" {
		child.SetText(text)
	}
	return p.cache.proxyFor(child)
}

// Remove detaches the first element matching the path and returns true when
// something was removed. The detached element's proxies become dead handles.
func (p *Proxy) Remove(path string) bool {
	els := p.findElements(path)
	if len(els) == 0 {
		return false
	}
	return p.removeElement(els[0])
}

func (p *Proxy) removeElement(el *etree.Element) bool {
	parent := el.Parent()
	if parent == nil {
		return false
	}
	parent.RemoveChild(el)
	p.cache.evict(el)
	return true
}

// ensurePrefix declares a standard namespace prefix on el when no
// declaration is in scope. Unknown prefixes are left alone.
func ensurePrefix(el *etree.Element, prefix string) {
	uri, ok := namespaces[prefix]
	if !ok || prefix == "xml" {
		return
	}
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if a.Space == "xmlns" && a.Key == prefix {
				return
			}
		}
	}
	el.CreateAttr("xmlns:"+prefix, uri)
}

// properties reads a space-separated token attribute as a slice.
func (p *Proxy) propertyTokens(attr string) []string {
	v := strings.TrimSpace(p.Get(attr))
	if v == "" {
		return nil
	}
	return strings.Fields(v)
}

// addPropertyToken adds a token to a space-separated attribute, keeping
// existing tokens and order.
func (p *Proxy) addPropertyToken(attr, token string) {
	tokens := p.propertyTokens(attr)
	for _, t := range tokens {
		if t == token {
			return
		}
	}
	tokens = append(tokens, token)
	p.Set(attr, strings.Join(tokens, " "))
}
