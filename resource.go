package epub3

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
)

// A contentSource supplies the bytes behind one manifest item. An item with
// a nil source has pending-empty content: it has never been written and
// packs as an empty archive entry.
type contentSource interface {
	openRead() (io.ReadCloser, error)
	size() (int64, error)
}

// archiveSource reads an entry of the archive the Book was opened from.
type archiveSource struct {
	f *zip.File
}

func (s archiveSource) openRead() (io.ReadCloser, error) {
	rc, err := s.f.Open()
	if err != nil {
		return nil, fmt.Errorf("epub3: open archive entry %s: %w", s.f.Name, err)
	}
	return rc, nil
}

func (s archiveSource) size() (int64, error) {
	return int64(s.f.UncompressedSize64), nil
}

// fileSource reads an external file. The file is an input only: writing
// through the item replaces the binding with in-memory content and never
// touches the file.
type fileSource struct {
	path string
}

func (s fileSource) openRead() (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("epub3: open %s: %w", s.path, err)
	}
	return f, nil
}

func (s fileSource) size() (int64, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return 0, fmt.Errorf("epub3: stat %s: %w", s.path, err)
	}
	return fi.Size(), nil
}

// memorySource holds bytes committed through a write stream or supplied at
// Add time.
type memorySource struct {
	data []byte
}

func (s memorySource) openRead() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s memorySource) size() (int64, error) {
	return int64(len(s.data)), nil
}

// Stream is the handle returned by Item.Open. Read streams start at the
// beginning of the content; write streams buffer until Close, at which point
// the written bytes become the item's content, visible to subsequent reads
// and to Pack. Reading a write stream or writing a read stream fails with
// ErrInvalidOpenMode.
type Stream struct {
	r      io.ReadCloser // read mode
	buf    *bytes.Buffer // write mode
	item   *Item
	closed bool
}

func (s *Stream) Read(p []byte) (int, error) {
	if s.r == nil {
		return 0, fmt.Errorf("epub3: stream not open for reading: %w", ErrInvalidOpenMode)
	}
	return s.r.Read(p)
}

func (s *Stream) Write(p []byte) (int, error) {
	if s.buf == nil {
		return 0, fmt.Errorf("epub3: stream not open for writing: %w", ErrInvalidOpenMode)
	}
	if s.closed {
		return 0, fmt.Errorf("epub3: write on closed stream")
	}
	return s.buf.Write(p)
}

// Close releases the stream. For a write stream it commits the buffered
// bytes as the item's new content. Close is idempotent.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.r != nil {
		return s.r.Close()
	}
	s.item.source = memorySource{data: s.buf.Bytes()}
	return nil
}

// validOpenModes mirrors the modes of a generic file open that make sense
// for archive-resident content. Text and binary variants behave identically;
// content is always UTF-8 bytes.
func openStream(item *Item, mode string) (*Stream, error) {
	switch mode {
	case "r", "rb":
		var rc io.ReadCloser
		if item.source == nil {
			rc = io.NopCloser(bytes.NewReader(nil))
		} else {
			var err error
			rc, err = item.source.openRead()
			if err != nil {
				return nil, err
			}
		}
		return &Stream{r: rc, item: item}, nil
	case "w", "wb":
		return &Stream{buf: &bytes.Buffer{}, item: item}, nil
	case "a", "ab":
		buf := &bytes.Buffer{}
		if item.source != nil {
			rc, err := item.source.openRead()
			if err != nil {
				return nil, err
			}
			if _, err := io.Copy(buf, rc); err != nil {
				rc.Close()
				return nil, fmt.Errorf("epub3: read existing content of %s: %w", item.Href(), err)
			}
			rc.Close()
		}
		return &Stream{buf: buf, item: item}, nil
	default:
		return nil, fmt.Errorf("epub3: open mode %q: %w", mode, ErrInvalidOpenMode)
	}
}
