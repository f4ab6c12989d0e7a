package footer

import (
	"io"
	"os"

	"parquet_batch/pqerr"
)

// Source is a random-access byte source of known size. *bytes.Reader,
// *io.SectionReader and *File satisfy it.
type Source interface {
	io.ReaderAt
	Size() int64
}

// File is a Source backed by a local file.
type File struct {
	f    *os.File
	size int64
}

// OpenFile opens path for reading.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &pqerr.IOError{Op: "open source", Err: err}
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &pqerr.IOError{Op: "stat source", Err: err}
	}
	return &File{f: f, size: st.Size()}, nil
}

func (f *File) ReadAt(p []byte, off int64) (int, error) { return f.f.ReadAt(p, off) }

func (f *File) Size() int64 { return f.size }

func (f *File) Name() string { return f.f.Name() }

func (f *File) Close() error { return f.f.Close() }

// CountingSource wraps a Source and counts the ReadAt calls made against it.
type CountingSource struct {
	src   Source
	reads int
	bytes int64
}

func NewCountingSource(src Source) *CountingSource {
	return &CountingSource{src: src}
}

func (c *CountingSource) ReadAt(p []byte, off int64) (int, error) {
	n, err := c.src.ReadAt(p, off)
	c.reads++
	c.bytes += int64(n)
	return n, err
}

func (c *CountingSource) Size() int64 { return c.src.Size() }

// Reads returns the number of ReadAt calls so far.
func (c *CountingSource) Reads() int { return c.reads }

// BytesRead returns the number of bytes returned by ReadAt so far.
func (c *CountingSource) BytesRead() int64 { return c.bytes }

// ReadFullAt fills buf from src at off. A short read is an error even when the
// source reports none.
func ReadFullAt(src Source, buf []byte, off int64) error {
	n, err := src.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}
