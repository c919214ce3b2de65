package epub3

import (
	"strings"
	"testing"
	"time"
)

func fixedClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestNewBookSkeleton(t *testing.T) {
	b := New()

	if got, want := b.Version(), "3.0"; got != want {
		t.Errorf("Version() = %q, want %q", got, want)
	}
	if got := b.Identifier(); !strings.HasPrefix(got, "urn:uuid:") {
		t.Errorf("Identifier() = %q, want urn:uuid: prefix", got)
	}
	if got, want := b.Language(), "en"; got != want {
		t.Errorf("Language() = %q, want %q", got, want)
	}
	if got, want := b.PackagePath(), "OEBPS/content.opf"; got != want {
		t.Errorf("PackagePath() = %q, want %q", got, want)
	}
	if got := b.Manifest().Len(); got != 0 {
		t.Errorf("new book manifest Len() = %d, want 0", got)
	}
	if got := b.Spine().Len(); got != 0 {
		t.Errorf("new book spine Len() = %d, want 0", got)
	}
	if got := b.Metadata().Modified(); got == "" {
		t.Error("new book has no dcterms:modified")
	}
}

func TestNewBookUniqueIdentifiers(t *testing.T) {
	a := New()
	b := New()
	if a.Identifier() == b.Identifier() {
		t.Errorf("two fresh books share identifier %q", a.Identifier())
	}
}

func TestMarkModified(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	b := New(WithClock(fixedClock(start)))

	first := b.MarkModified()
	second := b.MarkModified()
	if first >= second {
		t.Errorf("timestamps not increasing: %q then %q", first, second)
	}
	if _, err := time.Parse(modifiedLayout, second); err != nil {
		t.Errorf("MarkModified() = %q, not in layout %q: %v", second, modifiedLayout, err)
	}
	if got := b.Metadata().Modified(); got != second {
		t.Errorf("Modified() = %q, want %q", got, second)
	}
}

func TestSetDerivedProperties(t *testing.T) {
	b := New()

	b.SetTitle("A Study in Scarlet")
	if got, want := b.Title(), "A Study in Scarlet"; got != want {
		t.Errorf("Title() = %q, want %q", got, want)
	}

	b.SetLanguage("fr")
	if got, want := b.Language(), "fr"; got != want {
		t.Errorf("Language() = %q, want %q", got, want)
	}

	b.SetIdentifier("urn:isbn:9780000000001")
	if got, want := b.Identifier(), "urn:isbn:9780000000001"; got != want {
		t.Errorf("Identifier() = %q, want %q", got, want)
	}

	// Setting again updates in place instead of stacking elements.
	b.SetTitle("The Sign of the Four")
	if got := len(b.Metadata().DCAll("title")); got != 1 {
		t.Errorf("title element count after two sets = %d, want 1", got)
	}
}

func TestWithPackagePath(t *testing.T) {
	b := New(WithPackagePath("EPUB/package.opf"))
	if got, want := b.PackagePath(), "EPUB/package.opf"; got != want {
		t.Errorf("PackagePath() = %q, want %q", got, want)
	}

	item, err := b.Manifest().Add("ch1.xhtml")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got, want := b.archivePath(item.Href()), "EPUB/ch1.xhtml"; got != want {
		t.Errorf("archivePath = %q, want %q", got, want)
	}
}

func TestReservedHrefs(t *testing.T) {
	b := New()

	for _, href := range []string{
		"../mimetype",
		"../META-INF/container.xml",
		"content.opf",
	} {
		if _, err := b.Manifest().Add(href); err == nil {
			t.Errorf("Add(%q) succeeded, want error", href)
		}
	}
}

func TestCloseIdempotent(t *testing.T) {
	b := New()
	if err := b.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
