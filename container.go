package epub3

import (
	"archive/zip"
	"fmt"

	"github.com/beevik/etree"
)

const (
	containerPath = "META-INF/container.xml"
	mimetypePath  = "mimetype"

	defaultPackagePath = "OEBPS/content.opf"
)

// containerTemplate is the fixed META-INF/container.xml written by Pack,
// parameterized only by the package document path.
const containerTemplate = `<?xml version="1.0" encoding="utf-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="%s" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

// packageSkeleton is the default package document for a fresh Book:
// a generated urn:uuid identifier, English, an empty title and the creation
// timestamp. Parameters: identifier, language, modified.
const packageSkeleton = `<?xml version="1.0" encoding="utf-8"?>
<package version="3.0" unique-identifier="BookId" xmlns="http://www.idpf.org/2007/opf">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:identifier id="BookId">%s</dc:identifier>
    <dc:language>%s</dc:language>
    <dc:title></dc:title>
    <meta property="dcterms:modified">%s</meta>
  </metadata>
  <manifest/>
  <spine/>
</package>
`

// findPackagePath locates the package document path in the archive's
// META-INF/container.xml.
func findPackagePath(files map[string]*zip.File) (string, error) {
	cf, ok := files[containerPath]
	if !ok {
		return "", fmt.Errorf("epub3: %s not found: %w", containerPath, ErrInvalidEPUB)
	}
	rc, err := cf.Open()
	if err != nil {
		return "", fmt.Errorf("epub3: open %s: %w", containerPath, err)
	}
	defer rc.Close()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(rc); err != nil {
		return "", fmt.Errorf("epub3: parse %s: %w", containerPath, err)
	}
	if e := doc.FindElement("//rootfiles/rootfile[@full-path]"); e != nil {
		if p := e.SelectAttrValue("full-path", ""); p != "" {
			return p, nil
		}
	}
	return "", fmt.Errorf("epub3: no rootfile in %s: %w", containerPath, ErrInvalidEPUB)
}
