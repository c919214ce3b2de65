package epub3

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWithContentFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chapter.xhtml")
	const body = "<html><body><p>from disk</p></body></html>"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	b := New()
	item, err := b.Manifest().Add("ch1.xhtml", WithContentFile(path))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !item.HasContent() {
		t.Error("HasContent() = false for file-backed item")
	}
	got, err := item.ReadText()
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != body {
		t.Errorf("ReadText() = %q, want %q", got, body)
	}
	size, err := item.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if want := int64(len(body)); size != want {
		t.Errorf("Size() = %d, want %d", size, want)
	}

	// The file is read on demand; edits before packing are picked up.
	if err := os.WriteFile(path, []byte("changed"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err = item.ReadText()
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != "changed" {
		t.Errorf("ReadText() after edit = %q, want %q", got, "changed")
	}
}

func TestFileBackedItemMissingFile(t *testing.T) {
	b := New()
	item, err := b.Manifest().Add("ch1.xhtml", WithContentFile(filepath.Join(t.TempDir(), "gone.xhtml")))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := item.ReadBytes(); err == nil {
		t.Error("ReadBytes for missing backing file succeeded, want error")
	}
}

func TestItemRemove(t *testing.T) {
	b := New()
	item, err := b.Manifest().Add("ch1.xhtml", WithID("ch1"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := item.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := b.Manifest().Len(); got != 0 {
		t.Errorf("Len() after Item.Remove = %d, want 0", got)
	}
}
