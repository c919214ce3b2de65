package epub3

import (
	"testing"

	"github.com/beevik/etree"
)

const queryDoc = `<?xml version="1.0" encoding="utf-8"?>
<package version="3.0" unique-identifier="BookId" xmlns="http://www.idpf.org/2007/opf">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="BookId">urn:uuid:1234</dc:identifier>
    <dc:title>First Title</dc:title>
    <dc:title>Second Title</dc:title>
    <dc:language>en</dc:language>
    <meta property="dcterms:modified">2024-01-01T00:00:00Z</meta>
    <meta name="cover" content="cover-image"/>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="c1" href="text/chapter1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="c1"/>
  </spine>
</package>`

func parseQueryDoc(t *testing.T) *Proxy {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(queryDoc); err != nil {
		t.Fatalf("parse test document: %v", err)
	}
	return newProxyCache().proxyFor(doc.Root())
}

func TestFindByPrefixedName(t *testing.T) {
	pkg := parseQueryDoc(t)

	p := pkg.Find("metadata/dc:identifier")
	if !p.OK() {
		t.Fatal("Find(metadata/dc:identifier) = nil, want match")
	}
	if got, want := p.Text(), "urn:uuid:1234"; got != want {
		t.Errorf("identifier text = %q, want %q", got, want)
	}
}

func TestFindAttributePredicate(t *testing.T) {
	pkg := parseQueryDoc(t)

	p := pkg.Find(`metadata/meta[@property="dcterms:modified"]`)
	if !p.OK() {
		t.Fatal("meta[@property=...] not found")
	}
	if got, want := p.Text(), "2024-01-01T00:00:00Z"; got != want {
		t.Errorf("modified = %q, want %q", got, want)
	}

	if p := pkg.Find(`metadata/meta[@property="no-such"]`); p.OK() {
		t.Errorf("meta[@property=no-such] = %v, want missing", p)
	}
}

func TestFindPresencePredicate(t *testing.T) {
	pkg := parseQueryDoc(t)

	p := pkg.Find("metadata/meta[@name]")
	if !p.OK() {
		t.Fatal("meta[@name] not found")
	}
	if got, want := p.Get("content"), "cover-image"; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestFindPositionalIndex(t *testing.T) {
	pkg := parseQueryDoc(t)

	if got, want := pkg.Find("metadata/dc:title[1]").Text(), "First Title"; got != want {
		t.Errorf("title[1] = %q, want %q", got, want)
	}
	if got, want := pkg.Find("metadata/dc:title[2]").Text(), "Second Title"; got != want {
		t.Errorf("title[2] = %q, want %q", got, want)
	}
	if got, want := pkg.Find("metadata/dc:title[-1]").Text(), "Second Title"; got != want {
		t.Errorf("title[-1] = %q, want %q", got, want)
	}
	if p := pkg.Find("metadata/dc:title[5]"); p.OK() {
		t.Errorf("title[5] = %v, want missing", p)
	}
	if p := pkg.Find("metadata/dc:title[0]"); p.OK() {
		t.Errorf("title[0] = %v, want missing; positions are one-based", p)
	}
}

func TestFindPositionalIndexPerParent(t *testing.T) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(`<root>
  <group><entry>a1</entry><entry>a2</entry></group>
  <group><entry>b1</entry><entry>b2</entry></group>
</root>`); err != nil {
		t.Fatalf("parse: %v", err)
	}
	root := newProxyCache().proxyFor(doc.Root())

	// The position applies within each parent's matches, not across the
	// aggregated set.
	firsts := root.IterFind("group/entry[1]")
	if len(firsts) != 2 {
		t.Fatalf("entry[1] count = %d, want 2", len(firsts))
	}
	if firsts[0].Text() != "a1" || firsts[1].Text() != "b1" {
		t.Errorf("entry[1] = %q, %q; want a1, b1", firsts[0].Text(), firsts[1].Text())
	}
	lasts := root.IterFind("group/entry[-1]")
	if len(lasts) != 2 || lasts[0].Text() != "a2" || lasts[1].Text() != "b2" {
		t.Errorf("entry[-1] = %v, want [a2 b2]", texts(lasts))
	}
}

func texts(ps []*Proxy) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Text()
	}
	return out
}

func TestFindDescendant(t *testing.T) {
	pkg := parseQueryDoc(t)

	p := pkg.Find(`//item[@id="c1"]`)
	if !p.OK() {
		t.Fatal("//item[@id=c1] not found")
	}
	if got, want := p.Get("href"), "text/chapter1.xhtml"; got != want {
		t.Errorf("href = %q, want %q", got, want)
	}
}

func TestIterFindOrderAndCount(t *testing.T) {
	pkg := parseQueryDoc(t)

	titles := pkg.IterFind("metadata/dc:title")
	if len(titles) != 2 {
		t.Fatalf("IterFind(dc:title) count = %d, want 2", len(titles))
	}
	if titles[0].Text() != "First Title" || titles[1].Text() != "Second Title" {
		t.Errorf("titles out of document order: %q, %q", titles[0].Text(), titles[1].Text())
	}
}

func TestFindInvalidPath(t *testing.T) {
	pkg := parseQueryDoc(t)

	if p := pkg.Find("metadata/meta[@broken"); p.OK() {
		t.Errorf("invalid path found %v, want missing", p)
	}
	if got := pkg.IterFind("["); len(got) != 0 {
		t.Errorf("invalid path IterFind = %v, want empty", got)
	}
}

func TestMatchNameDocumentDeclaredPrefix(t *testing.T) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(`<root><custom:thing xmlns:custom="urn:x"/></root>`); err != nil {
		t.Fatalf("parse: %v", err)
	}
	root := newProxyCache().proxyFor(doc.Root())
	if p := root.Find("custom:thing"); !p.OK() {
		t.Error("declared non-standard prefix did not match")
	}
}
