// Package epub3 reads, edits and writes EPUB 3 publications through a live
// object model over the package document (content.opf).
//
// A Book wraps the package document's XML tree and exposes its three core
// sections as typed views: Metadata for Dublin Core terms and meta
// expressions, Manifest for publication resources, and Spine for the default
// reading order. Views are backed directly by the tree; edits through a view
// mutate the document, and repeated lookups of the same logical element
// return the same handle.
//
// Manifest items are bound to byte content: an entry of the source archive,
// an external file, or bytes written through Item.Open. Pack resolves every
// binding into a valid EPUB container with the fixed mimetype entry first
// and uncompressed, META-INF/container.xml pointing at the package document,
// and every item's bytes at its href.
//
// A Book is not safe for concurrent use by multiple goroutines.
package epub3
