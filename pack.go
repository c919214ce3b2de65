package epub3

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// Pack writes the Book as a valid EPUB container at dest. The archive is
// assembled in a temporary file next to dest and atomically renamed into
// place, so a failed Pack leaves no partial archive behind. Packing over
// the archive the Book was opened from is rejected.
//
// Pack refreshes dcterms:modified but otherwise leaves the model untouched;
// the Book remains editable and Pack repeatable.
func (b *Book) Pack(dest string) error {
	if b.srcPath != "" && sameArchive(dest, b.srcPath) {
		return fmt.Errorf("epub3: pack to %s: %w", dest, ErrOverwriteSource)
	}

	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".epub3-*.tmp")
	if err != nil {
		return fmt.Errorf("epub3: create temp archive: %w", err)
	}
	tmpName := tmp.Name()

	if err := b.PackTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("epub3: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("epub3: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("epub3: move archive into place: %w", err)
	}
	return nil
}

func sameArchive(a, c string) bool {
	if filepath.Clean(a) == filepath.Clean(c) {
		return true
	}
	ai, err1 := os.Stat(a)
	ci, err2 := os.Stat(c)
	return err1 == nil && err2 == nil && os.SameFile(ai, ci)
}

// PackTo streams the EPUB container to w. Entry order is the required one:
// the stored mimetype first, then META-INF/container.xml, the package
// document, every manifest item's content, and finally any source-archive
// entries the manifest does not track.
func (b *Book) PackTo(w io.Writer) error {
	b.revalidateSpine()
	b.MarkModified()

	opfBytes, err := b.serializePackage()
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)

	mw, err := zw.CreateHeader(&zip.FileHeader{Name: mimetypePath, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("epub3: write mimetype: %w", err)
	}
	if _, err := mw.Write([]byte(mimetypeContent)); err != nil {
		return fmt.Errorf("epub3: write mimetype: %w", err)
	}

	if err := writeEntry(zw, containerPath, []byte(fmt.Sprintf(containerTemplate, b.pkgPath))); err != nil {
		return err
	}
	if err := writeEntry(zw, b.pkgPath, opfBytes); err != nil {
		return err
	}

	written := map[string]bool{
		mimetypePath:  true,
		containerPath: true,
		b.pkgPath:     true,
	}
	for _, item := range b.manifest.Items() {
		zpath := b.archivePath(item.Href())
		fw, err := zw.Create(zpath)
		if err != nil {
			return fmt.Errorf("epub3: write %s: %w", zpath, err)
		}
		written[zpath] = true
		if item.source == nil {
			continue // never written; packs as an empty entry
		}
		rc, err := item.source.openRead()
		if err != nil {
			return err
		}
		if _, err := io.Copy(fw, rc); err != nil {
			rc.Close()
			return fmt.Errorf("epub3: write %s: %w", zpath, err)
		}
		rc.Close()
	}

	if b.srcZip != nil {
		if err := b.passthrough(zw, written); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("epub3: finalize archive: %w", err)
	}
	return nil
}

// passthrough copies source-archive entries the manifest does not track,
// preserving their compressed form.
func (b *Book) passthrough(zw *zip.Writer, written map[string]bool) error {
	for _, f := range b.srcZip.File {
		if written[f.Name] || f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.OpenRaw()
		if err != nil {
			return fmt.Errorf("epub3: copy %s: %w", f.Name, err)
		}
		header := f.FileHeader
		fw, err := zw.CreateRaw(&header)
		if err != nil {
			return fmt.Errorf("epub3: copy %s: %w", f.Name, err)
		}
		if _, err := io.Copy(fw, rc); err != nil {
			return fmt.Errorf("epub3: copy %s: %w", f.Name, err)
		}
	}
	return nil
}

// revalidateSpine logs a warning for every itemref whose idref no longer
// resolves (possible after Manifest.Remove). The spine is serialized
// verbatim either way: Pack is read-only on the model.
func (b *Book) revalidateSpine() {
	for _, ref := range b.spine.Itemrefs() {
		idref := ref.Idref()
		if _, ok := b.manifest.byID[idref]; !ok {
			b.log.Warn("spine references removed manifest item", zap.String("idref", idref))
		}
	}
}

// serializePackage renders the package element as a standalone XML document
// with the required declaration.
func (b *Book) serializePackage() ([]byte, error) {
	out := etree.NewDocument()
	out.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	out.SetRoot(b.doc.Root().Copy())
	out.Indent(2)
	data, err := out.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("epub3: serialize package document: %w", err)
	}
	return data, nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	fw, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("epub3: write %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("epub3: write %s: %w", name, err)
	}
	return nil
}
