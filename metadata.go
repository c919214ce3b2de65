package epub3

import (
	"fmt"

	"github.com/beevik/etree"
)

// dcTerms lists the Dublin Core element names valid under <metadata>.
// Metadata.Add accepts them with the "dc:" prefix.
var dcTerms = map[string]bool{
	"contributor": true, "coverage": true, "creator": true, "date": true,
	"description": true, "format": true, "identifier": true, "language": true,
	"publisher": true, "relation": true, "rights": true, "source": true,
	"subject": true, "title": true, "type": true,
}

// Metadata is the live view over the <metadata> element: Dublin Core terms,
// <meta> expressions and <link> children, plus derived single-value
// properties for the common terms.
type Metadata struct {
	book  *Book
	el    *etree.Element
	proxy *Proxy
}

func newMetadata(book *Book, el *etree.Element) *Metadata {
	return &Metadata{book: book, el: el, proxy: book.cache.proxyFor(el)}
}

// Proxy returns the metadata element's proxy.
func (md *Metadata) Proxy() *Proxy { return md.proxy }

// Add appends a metadata child. The name resolves by prefix: "dc:" names
// become Dublin Core elements, unprefixed "meta" and "link" live in the
// package's default namespace. Returns the new child's proxy.
func (md *Metadata) Add(name string, attrib map[string]string, text string) (*Proxy, error) {
	prefix, local := splitQName(name)
	switch {
	case prefix == "dc":
		if !dcTerms[local] {
			return nil, fmt.Errorf("epub3: unknown Dublin Core term %q", local)
		}
	case prefix == "":
		// meta, link and friends inherit the OPF default namespace.
	default:
		if _, ok := namespaces[prefix]; !ok {
			return nil, fmt.Errorf("epub3: unknown namespace prefix %q", prefix)
		}
	}
	return md.proxy.Add(name, attrib, text), nil
}

// DC returns the first Dublin Core child with the given local name, or nil.
func (md *Metadata) DC(local string) *Proxy {
	return md.proxy.Find("dc:" + local)
}

// DCAll returns every Dublin Core child with the given local name.
func (md *Metadata) DCAll(local string) []*Proxy {
	return md.proxy.IterFind("dc:" + local)
}

// Meta returns the first <meta> child matching the given predicate suffix,
// for example Meta(`[@property="dcterms:modified"]`). An empty suffix
// returns the first <meta>. Nil when nothing matches.
func (md *Metadata) Meta(preds string) *Proxy {
	return md.proxy.Find("meta" + preds)
}

// PropertyMeta returns the first <meta> whose property attribute equals
// value.
func (md *Metadata) PropertyMeta(value string) *Proxy {
	return md.Meta(fmt.Sprintf("[@property=%q]", value))
}

// Find evaluates an element path against the metadata children.
func (md *Metadata) Find(path string) *Proxy {
	return md.proxy.Find(path)
}

// IterFind evaluates an element path against the metadata children and
// returns every match.
func (md *Metadata) IterFind(path string) []*Proxy {
	return md.proxy.IterFind(path)
}

// identifierProxy returns the dc:identifier the package's unique-identifier
// attribute points at, falling back to the first dc:identifier.
func (md *Metadata) identifierProxy() *Proxy {
	if uid := md.book.pkg.Get("unique-identifier"); uid != "" {
		if p := md.proxy.Find(fmt.Sprintf("dc:identifier[@id=%q]", uid)); p.OK() {
			return p
		}
	}
	return md.DC("identifier")
}

// Identifier returns the publication identifier: the text of the
// dc:identifier designated by unique-identifier, or of the first
// dc:identifier.
func (md *Metadata) Identifier() string {
	return md.identifierProxy().Text()
}

// SetIdentifier sets the publication identifier, creating the
// dc:identifier (carrying the unique-identifier id, when set) if absent.
func (md *Metadata) SetIdentifier(text string) {
	if p := md.identifierProxy(); p.OK() {
		p.SetText(text)
		return
	}
	var attrib map[string]string
	if uid := md.book.pkg.Get("unique-identifier"); uid != "" {
		attrib = map[string]string{"id": uid}
	}
	md.proxy.Add("dc:identifier", attrib, text)
}

// Title returns the text of the first dc:title.
func (md *Metadata) Title() string {
	return md.DC("title").Text()
}

// SetTitle sets the first dc:title's text, creating the element if absent.
func (md *Metadata) SetTitle(text string) {
	md.setDC("title", text)
}

// Language returns the text of the first dc:language.
func (md *Metadata) Language() string {
	return md.DC("language").Text()
}

// SetLanguage sets the first dc:language's text, creating the element if
// absent.
func (md *Metadata) SetLanguage(text string) {
	md.setDC("language", text)
}

func (md *Metadata) setDC(local, text string) {
	if p := md.DC(local); p.OK() {
		p.SetText(text)
		return
	}
	md.proxy.Add("dc:"+local, nil, text)
}

// Modified returns the last-modified timestamp recorded in the
// dcterms:modified meta, or "" when absent. Book.MarkModified refreshes it.
func (md *Metadata) Modified() string {
	return md.PropertyMeta("dcterms:modified").Text()
}

func (md *Metadata) setModified(value string) {
	if p := md.PropertyMeta("dcterms:modified"); p.OK() {
		p.SetText(value)
		return
	}
	md.proxy.Add("meta", map[string]string{"property": "dcterms:modified"}, value)
}

// CoverID returns the manifest id recorded by the EPUB 2 style
// meta[@name="cover"] expression, or "".
func (md *Metadata) CoverID() string {
	return md.Meta(`[@name="cover"]`).Get("content")
}

func (md *Metadata) setCoverID(id string) {
	if p := md.Meta(`[@name="cover"]`); p.OK() {
		p.Set("content", id)
		return
	}
	md.proxy.Add("meta", map[string]string{"name": "cover", "content": id}, "")
}
