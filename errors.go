package epub3

import "errors"

var (
	// ErrNotFound is returned when a manifest or spine lookup by index, id,
	// href or idref matches nothing.
	ErrNotFound = errors.New("epub3: not found")

	// ErrDuplicateID is returned by Manifest.Add when the requested id is
	// already taken. The manifest is left unchanged.
	ErrDuplicateID = errors.New("epub3: duplicate manifest id")

	// ErrDuplicateHref is returned by Manifest.Add and Manifest.Rename when
	// the href is already present in the manifest.
	ErrDuplicateHref = errors.New("epub3: duplicate manifest href")

	// ErrDuplicateIdref is returned by Spine.Add when the id is already
	// referenced by an existing itemref.
	ErrDuplicateIdref = errors.New("epub3: duplicate spine idref")

	// ErrDanglingReference is returned by Spine.Add when the id does not
	// resolve to a manifest item.
	ErrDanglingReference = errors.New("epub3: idref has no matching manifest item")

	// ErrReservedPath is returned by Manifest.Add when the href collides
	// with the mimetype entry, the META-INF directory or the package
	// document itself.
	ErrReservedPath = errors.New("epub3: href collides with reserved container path")

	// ErrInvalidOpenMode is returned by Open for a mode other than
	// "r", "rb", "w", "wb", "a" or "ab".
	ErrInvalidOpenMode = errors.New("epub3: invalid open mode")

	// ErrInvalidEPUB indicates a source archive without a usable
	// META-INF/container.xml or package document.
	ErrInvalidEPUB = errors.New("epub3: invalid EPUB container")

	// ErrOverwriteSource is returned by Pack when the destination is the
	// archive the Book was opened from.
	ErrOverwriteSource = errors.New("epub3: refusing to overwrite the source archive")
)
