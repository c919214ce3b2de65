package epub3

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// modifiedLayout is the dcterms:modified timestamp format required by the
// package document (UTC, second precision).
const modifiedLayout = "2006-01-02T15:04:05Z"

// Book is the root aggregate over one package document: it owns the XML
// tree and the Metadata, Manifest and Spine views, and repacks everything
// into a valid EPUB container with Pack.
//
// A Book stays editable after Pack; Pack may be called repeatedly.
type Book struct {
	doc     *etree.Document
	pkg     *Proxy
	pkgPath string
	pkgDir  string

	cache    *proxyCache
	metadata *Metadata
	manifest *Manifest
	spine    *Spine

	srcZip    *zip.Reader
	srcFiles  map[string]*zip.File
	srcCloser io.Closer
	srcPath   string

	log *zap.Logger
	now func() time.Time
}

// Option configures New and Open.
type Option func(*Book)

// WithLogger routes non-fatal diagnostics (dangling entries on load, pack
// re-validation) to the given logger. The default discards them.
func WithLogger(log *zap.Logger) Option {
	return func(b *Book) { b.log = log }
}

// WithClock injects the time source used by MarkModified and Pack. The
// default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Book) { b.now = now }
}

// WithPackagePath sets the archive path of the package document for a fresh
// Book (default OEBPS/content.opf). Ignored by Open, which takes the path
// from container.xml.
func WithPackagePath(p string) Option {
	return func(b *Book) {
		if b.srcZip == nil && p != "" {
			b.setPackagePath(p)
		}
	}
}

func newBookShell() *Book {
	return &Book{
		cache: newProxyCache(),
		log:   zap.NewNop(),
		now:   time.Now,
	}
}

func (b *Book) setPackagePath(p string) {
	b.pkgPath = strings.Trim(p, "/")
	b.pkgDir = path.Dir(b.pkgPath)
}

// New creates a fresh Book from the default skeleton: package version 3.0,
// a generated urn:uuid identifier, language "en", an empty title and the
// current time as dcterms:modified.
func New(opts ...Option) *Book {
	b := newBookShell()
	b.setPackagePath(defaultPackagePath)
	for _, opt := range opts {
		opt(b)
	}

	identifier := "urn:uuid:" + uuid.Must(uuid.NewV4()).String()
	modified := b.now().UTC().Format(modifiedLayout)
	skeleton := fmt.Sprintf(packageSkeleton, identifier, "en", modified)

	doc := etree.NewDocument()
	if err := doc.ReadFromString(skeleton); err != nil {
		panic(fmt.Sprintf("epub3: invalid package skeleton: %v", err))
	}
	if err := b.initTree(doc); err != nil {
		panic(fmt.Sprintf("epub3: invalid package skeleton: %v", err))
	}
	return b
}

// Open opens an EPUB file. The caller must Close the Book when done; the
// source archive stays open to serve item content lazily.
func Open(name string, opts ...Option) (*Book, error) {
	zrc, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("epub3: open %s: %w", name, err)
	}
	b, err := initFromArchive(&zrc.Reader, zrc, name, opts)
	if err != nil {
		zrc.Close()
		return nil, err
	}
	return b, nil
}

// OpenReader creates a Book from an io.ReaderAt with the given size. The
// caller owns the lifetime of r; Close only releases internal state.
func OpenReader(r io.ReaderAt, size int64, opts ...Option) (*Book, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("epub3: open archive: %w", err)
	}
	return initFromArchive(zr, nil, "", opts)
}

func initFromArchive(zr *zip.Reader, closer io.Closer, srcPath string, opts []Option) (*Book, error) {
	b := newBookShell()
	b.srcZip = zr
	b.srcCloser = closer
	b.srcPath = srcPath
	for _, opt := range opts {
		opt(b)
	}

	b.srcFiles = make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if _, exists := b.srcFiles[f.Name]; !exists {
			b.srcFiles[f.Name] = f
		}
	}

	b.validateMimetype()

	pkgPath, err := findPackagePath(b.srcFiles)
	if err != nil {
		return nil, err
	}
	b.setPackagePath(pkgPath)

	pf, ok := b.srcFiles[b.pkgPath]
	if !ok {
		return nil, fmt.Errorf("epub3: package document %s not in archive: %w", b.pkgPath, ErrInvalidEPUB)
	}
	rc, err := pf.Open()
	if err != nil {
		return nil, fmt.Errorf("epub3: open %s: %w", b.pkgPath, err)
	}
	defer rc.Close()

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if _, err := doc.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("epub3: parse %s: %w", b.pkgPath, err)
	}
	if err := b.initTree(doc); err != nil {
		return nil, err
	}
	return b, nil
}

// initTree attaches the parsed package document and builds the three
// section views, creating missing section elements the way a permissive
// reader must.
func (b *Book) initTree(doc *etree.Document) error {
	root := doc.Root()
	if root == nil || root.Tag != "package" {
		return fmt.Errorf("epub3: missing <package> root: %w", ErrInvalidEPUB)
	}
	b.doc = doc
	b.pkg = b.cache.proxyFor(root)

	b.metadata = newMetadata(b, b.sectionElement(root, "metadata", map[string]string{
		"xmlns:dc":  namespaces["dc"],
		"xmlns:opf": namespaces["opf"],
	}))
	b.manifest = newManifest(b, b.sectionElement(root, "manifest", nil))
	b.spine = newSpine(b, b.sectionElement(root, "spine", nil))
	return nil
}

// sectionElement finds the section child with the given local name,
// creating it (with the given attributes) when absent.
func (b *Book) sectionElement(root *etree.Element, name string, attrib map[string]string) *etree.Element {
	for _, el := range root.ChildElements() {
		if el.Tag == name {
			return el
		}
	}
	el := root.CreateElement(name)
	for k, v := range attrib {
		el.CreateAttr(k, v)
	}
	return el
}

// validateMimetype checks the fixed mimetype entry and logs deviations.
// Reads are permissive: a bad mimetype never prevents loading.
func (b *Book) validateMimetype() {
	if len(b.srcZip.File) == 0 {
		b.log.Warn("empty archive; mimetype entry missing")
		return
	}
	first := b.srcZip.File[0]
	if first.Name != mimetypePath {
		b.log.Warn("first archive entry is not mimetype", zap.String("name", first.Name))
		return
	}
	if first.Method != zip.Store {
		b.log.Warn("mimetype entry is compressed")
	}
	rc, err := first.Open()
	if err != nil {
		b.log.Warn("cannot read mimetype entry", zap.Error(err))
		return
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		b.log.Warn("cannot read mimetype entry", zap.Error(err))
		return
	}
	if string(data) != mimetypeContent {
		b.log.Warn("unexpected mimetype", zap.String("mimetype", string(data)))
	}
}

// Close releases the source archive when the Book was created via Open.
// Close is idempotent; item content backed by the archive is unreadable
// afterwards.
func (b *Book) Close() error {
	if b.srcCloser != nil {
		err := b.srcCloser.Close()
		b.srcCloser = nil
		return err
	}
	return nil
}

// Package returns the proxy of the <package> root element (attributes
// version, unique-identifier, xml:lang, dir).
func (b *Book) Package() *Proxy { return b.pkg }

// Metadata returns the metadata view.
func (b *Book) Metadata() *Metadata { return b.metadata }

// Manifest returns the manifest view.
func (b *Book) Manifest() *Manifest { return b.manifest }

// Spine returns the spine view.
func (b *Book) Spine() *Spine { return b.spine }

// Version returns the package version attribute.
func (b *Book) Version() string { return b.pkg.Get("version") }

// PackagePath returns the archive path of the package document.
func (b *Book) PackagePath() string { return b.pkgPath }

// Identifier returns the publication identifier.
func (b *Book) Identifier() string { return b.metadata.Identifier() }

// SetIdentifier sets the publication identifier.
func (b *Book) SetIdentifier(text string) { b.metadata.SetIdentifier(text) }

// Title returns the publication title.
func (b *Book) Title() string { return b.metadata.Title() }

// SetTitle sets the publication title.
func (b *Book) SetTitle(text string) { b.metadata.SetTitle(text) }

// Language returns the publication language.
func (b *Book) Language() string { return b.metadata.Language() }

// SetLanguage sets the publication language.
func (b *Book) SetLanguage(text string) { b.metadata.SetLanguage(text) }

// MarkModified sets dcterms:modified to the current UTC time (from the
// injected clock) and returns the new value.
func (b *Book) MarkModified() string {
	v := b.now().UTC().Format(modifiedLayout)
	b.metadata.setModified(v)
	return v
}

// archivePath resolves an item href to its path inside the archive,
// relative to the package document directory.
func (b *Book) archivePath(href string) string {
	if b.pkgDir == "." || b.pkgDir == "" {
		return href
	}
	return path.Join(b.pkgDir, href)
}

// isReservedHref reports whether an item href would collide with the fixed
// container entries or the package document itself.
func (b *Book) isReservedHref(href string) bool {
	full := b.archivePath(href)
	return full == mimetypePath ||
		full == "META-INF" || strings.HasPrefix(full, "META-INF/") ||
		full == b.pkgPath
}
