package epub3

import (
	"testing"
)

func TestMetadataAddDC(t *testing.T) {
	b := New()
	md := b.Metadata()

	p, err := md.Add("dc:creator", map[string]string{"id": "author"}, "Arthur Conan Doyle")
	if err != nil {
		t.Fatalf("Add(dc:creator): %v", err)
	}
	if got, want := p.Text(), "Arthur Conan Doyle"; got != want {
		t.Errorf("creator text = %q, want %q", got, want)
	}
	if got := md.DC("creator"); got != p {
		t.Error("DC(creator) did not return the added proxy")
	}
}

func TestMetadataAddRejectsUnknownDCTerm(t *testing.T) {
	b := New()

	if _, err := b.Metadata().Add("dc:bogus", nil, "x"); err == nil {
		t.Error("Add(dc:bogus) succeeded, want error")
	}
	if _, err := b.Metadata().Add("weird:thing", nil, "x"); err == nil {
		t.Error("Add(weird:thing) succeeded, want error")
	}
}

func TestMetadataMeta(t *testing.T) {
	b := New()
	md := b.Metadata()

	if _, err := md.Add("meta", map[string]string{"property": "rendition:layout"}, "pre-paginated"); err != nil {
		t.Fatalf("Add(meta): %v", err)
	}

	p := md.PropertyMeta("rendition:layout")
	if !p.OK() {
		t.Fatal("PropertyMeta(rendition:layout) not found")
	}
	if got, want := p.Text(), "pre-paginated"; got != want {
		t.Errorf("meta text = %q, want %q", got, want)
	}

	if q := md.Meta(`[@property="rendition:layout"]`); q != p {
		t.Error("Meta with explicit predicate returned a distinct proxy")
	}
	if q := md.PropertyMeta("no-such-property"); q.OK() {
		t.Errorf("PropertyMeta(no-such-property) = %v, want missing", q)
	}
}

func TestMetadataModified(t *testing.T) {
	b := New()

	stamp := b.MarkModified()
	if got := b.Metadata().Modified(); got != stamp {
		t.Errorf("Modified() = %q, want %q", got, stamp)
	}
	// Only one dcterms:modified element regardless of how often it is set.
	if got := len(b.Metadata().IterFind(`meta[@property="dcterms:modified"]`)); got != 1 {
		t.Errorf("dcterms:modified element count = %d, want 1", got)
	}
}

func TestIdentifierHonorsUniqueIdentifier(t *testing.T) {
	b := New()
	md := b.Metadata()

	// A second identifier without the package's unique-identifier id must
	// not shadow the primary one.
	if _, err := md.Add("dc:identifier", nil, "urn:isbn:9790000000000"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := b.Identifier(); got == "urn:isbn:9790000000000" {
		t.Error("Identifier() picked a non-primary identifier")
	}

	b.SetIdentifier("urn:uuid:override")
	if got, want := b.Identifier(), "urn:uuid:override"; got != want {
		t.Errorf("Identifier() = %q, want %q", got, want)
	}
	if got := len(md.DCAll("identifier")); got != 2 {
		t.Errorf("identifier count after SetIdentifier = %d, want 2", got)
	}
}
