package epub3

import (
	"errors"
	"testing"
)

func spineFixture(t *testing.T) *Book {
	t.Helper()
	b := New()
	for _, href := range []string{"ch1.xhtml", "ch2.xhtml", "ch3.xhtml"} {
		id := href[:3]
		if _, err := b.Manifest().Add(href, WithID(id)); err != nil {
			t.Fatalf("Add(%s): %v", href, err)
		}
	}
	return b
}

func TestSpineAdd(t *testing.T) {
	b := spineFixture(t)
	s := b.Spine()

	ref, err := s.Add("ch1")
	if err != nil {
		t.Fatalf("Add(ch1): %v", err)
	}
	if got, want := ref.Idref(), "ch1"; got != want {
		t.Errorf("Idref() = %q, want %q", got, want)
	}
	if got, want := ref.Linear(), "yes"; got != want {
		t.Errorf("Linear() = %q, want %q", got, want)
	}

	item, err := b.Manifest().ByID("ch2")
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if _, err := s.Add(item); err != nil {
		t.Fatalf("Add(*Item): %v", err)
	}
	if got := s.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}

	refs := s.Itemrefs()
	if refs[0].Idref() != "ch1" || refs[1].Idref() != "ch2" {
		t.Errorf("spine order = %q, %q; want ch1, ch2", refs[0].Idref(), refs[1].Idref())
	}
}

func TestSpineAddDangling(t *testing.T) {
	b := spineFixture(t)
	s := b.Spine()

	_, err := s.Add("nowhere")
	if !errors.Is(err, ErrDanglingReference) {
		t.Fatalf("Add(nowhere) error = %v, want ErrDanglingReference", err)
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len() after failed add = %d, want 0", got)
	}
}

func TestSpineAddDuplicateIdref(t *testing.T) {
	b := spineFixture(t)
	s := b.Spine()

	if _, err := s.Add("ch1"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add("ch1"); !errors.Is(err, ErrDuplicateIdref) {
		t.Errorf("second Add(ch1) error = %v, want ErrDuplicateIdref", err)
	}
	if got := s.Len(); got != 1 {
		t.Errorf("Len() after failed add = %d, want 1", got)
	}
}

func TestSpineLinear(t *testing.T) {
	b := spineFixture(t)
	s := b.Spine()

	ref, err := s.Add("ch1", Linear("no"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got, want := ref.Linear(), "no"; got != want {
		t.Errorf("Linear() = %q, want %q", got, want)
	}
	if got, want := ref.Proxy().Get("linear"), "no"; got != want {
		t.Errorf("linear attr = %q, want %q", got, want)
	}

	ref.SetLinear("yes")
	if ref.Proxy().Has("linear") {
		t.Error("linear attr kept after SetLinear(yes); yes is the default")
	}
	if got, want := ref.Linear(), "yes"; got != want {
		t.Errorf("Linear() = %q, want %q", got, want)
	}
}

func TestItemrefItem(t *testing.T) {
	b := spineFixture(t)

	ref, err := b.Spine().Add("ch2")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	item, err := ref.Item()
	if err != nil {
		t.Fatalf("Item(): %v", err)
	}
	if got, want := item.Href(), "ch2.xhtml"; got != want {
		t.Errorf("Item().Href() = %q, want %q", got, want)
	}

	// Removing the manifest item leaves the itemref dangling.
	if err := b.Manifest().Remove("ch2"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := ref.Item(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Item() after manifest removal error = %v, want ErrNotFound", err)
	}
	if got := b.Spine().Len(); got != 1 {
		t.Errorf("spine Len() after manifest removal = %d, want 1", got)
	}
}

func TestSpineResolveAndRemove(t *testing.T) {
	b := spineFixture(t)
	s := b.Spine()

	for _, id := range []string{"ch1", "ch2", "ch3"} {
		if _, err := s.Add(id); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}

	ref, err := s.Resolve(1)
	if err != nil {
		t.Fatalf("Resolve(1): %v", err)
	}
	if got, want := ref.Idref(), "ch2"; got != want {
		t.Errorf("Resolve(1).Idref() = %q, want %q", got, want)
	}
	byIdref, err := s.Resolve("ch2")
	if err != nil {
		t.Fatalf("Resolve(ch2): %v", err)
	}
	if byIdref != ref {
		t.Error("Resolve by idref returned a distinct itemref")
	}

	if err := s.Remove("ch2"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	refs := s.Itemrefs()
	if len(refs) != 2 || refs[0].Idref() != "ch1" || refs[1].Idref() != "ch3" {
		t.Errorf("spine after remove = %v, want [ch1 ch3]", idrefs(refs))
	}
	// The manifest item is untouched and can be re-spined.
	if _, err := b.Manifest().ByID("ch2"); err != nil {
		t.Errorf("manifest item removed by spine removal: %v", err)
	}
	if _, err := s.Add("ch2"); err != nil {
		t.Errorf("re-Add after remove: %v", err)
	}
}

func idrefs(refs []*Itemref) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Idref()
	}
	return out
}

func TestItemrefProperties(t *testing.T) {
	b := spineFixture(t)

	ref, err := b.Spine().Add("ch1", ItemrefProperties("page-spread-left"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	got := ref.Properties()
	if len(got) != 1 || got[0] != "page-spread-left" {
		t.Errorf("Properties() = %v, want [page-spread-left]", got)
	}
}
