// Package footer reads and caches the metadata footer of a Parquet file.
//
// A Parquet file is laid out as
//
//	"PAR1" <column chunks...> <FileMetaData> <footer length: 4 bytes LE> "PAR1"
//
// where FileMetaData is a Thrift Compact encoded struct.
package footer

import (
	"encoding/binary"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"parquet_batch/pqerr"
	"parquet_batch/thrift"
)

const (
	magic          = "PAR1"
	magicEncrypted = "PARE"
	trailerLen     = 8 // footer length + magic
)

// Cache binds a Source and decodes its footer at most once.
// A Cache is not safe for concurrent use.
type Cache struct {
	src       Source
	logger    log.Logger
	footerLen int64

	parsed bool
	meta   *FileMetadata
	err    error
}

type Option func(*Cache)

// WithLogger sets the logger used for footer diagnostics.
func WithLogger(logger log.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// Open validates the framing of src: leading and trailing magic and a footer
// length that fits in the file. The footer itself is decoded lazily by
// GetMetadata.
func Open(src Source, opts ...Option) (*Cache, error) {
	c := &Cache{src: src, logger: log.NewNopLogger()}
	for _, opt := range opts {
		opt(c)
	}

	size := src.Size()
	if size < int64(len(magic)+trailerLen) {
		return nil, &pqerr.IOError{Op: "open source", Err: fmt.Errorf("file of %d bytes is too small to be parquet", size)}
	}

	head := make([]byte, len(magic))
	if err := ReadFullAt(src, head, 0); err != nil {
		return nil, &pqerr.IOError{Op: "read header", Err: err}
	}
	if string(head) != magic {
		return nil, &pqerr.IOError{Op: "read header", Err: fmt.Errorf("invalid magic at start: %q", head)}
	}

	tail := make([]byte, trailerLen)
	if err := ReadFullAt(src, tail, size-trailerLen); err != nil {
		return nil, &pqerr.IOError{Op: "read trailer", Err: err}
	}
	switch string(tail[4:]) {
	case magic:
	case magicEncrypted:
		return nil, &pqerr.IOError{Op: "read trailer", Err: fmt.Errorf("encrypted footers are not supported")}
	default:
		return nil, &pqerr.IOError{Op: "read trailer", Err: fmt.Errorf("invalid magic at end: %q", tail[4:])}
	}

	footerLen := int64(binary.LittleEndian.Uint32(tail[:4]))
	if footerLen == 0 || footerLen > size-int64(len(magic))-trailerLen {
		return nil, &pqerr.IOError{Op: "read trailer", Err: fmt.Errorf("footer length %d does not fit in file of %d bytes", footerLen, size)}
	}
	c.footerLen = footerLen
	return c, nil
}

// Source returns the bound byte source.
func (c *Cache) Source() Source {
	return c.src
}

// GetMetadata returns the decoded footer. The first call reads and decodes
// it; later calls return the same value, or the same error, without I/O.
func (c *Cache) GetMetadata() (*FileMetadata, error) {
	if !c.parsed {
		c.meta, c.err = c.readFooter()
		c.parsed = true
	}
	return c.meta, c.err
}

func (c *Cache) readFooter() (*FileMetadata, error) {
	buf := make([]byte, c.footerLen)
	off := c.src.Size() - trailerLen - c.footerLen
	if err := ReadFullAt(c.src, buf, off); err != nil {
		return nil, &pqerr.IOError{Op: "read footer", Err: err}
	}

	st, n, err := thrift.ParseStruct(buf)
	if err != nil {
		return nil, &pqerr.IOError{Op: "decode footer", Err: err}
	}
	if int64(n) != c.footerLen {
		level.Warn(c.logger).Log("msg", "footer has trailing bytes", "footer_len", c.footerLen, "consumed", n)
	}

	meta, err := DecodeFileMetaData(st)
	if err != nil {
		return nil, &pqerr.IOError{Op: "decode footer", Err: err}
	}

	level.Debug(c.logger).Log("msg", "parsed footer", "footer_len", c.footerLen,
		"row_groups", len(meta.RowGroups), "columns", meta.NumColumns(), "rows", meta.NumRows)
	return meta, nil
}

func (c *Cache) NumRowGroups() (int, error) {
	meta, err := c.GetMetadata()
	if err != nil {
		return 0, err
	}
	return meta.NumRowGroups(), nil
}

func (c *Cache) NumColumns() (int, error) {
	meta, err := c.GetMetadata()
	if err != nil {
		return 0, err
	}
	return meta.NumColumns(), nil
}

// Schema returns the on-disk schema elements, root first.
func (c *Cache) Schema() ([]SchemaElement, error) {
	meta, err := c.GetMetadata()
	if err != nil {
		return nil, err
	}
	return meta.Schema, nil
}

// RowGroup returns the metadata of row group i.
func (c *Cache) RowGroup(i int) (*RowGroup, error) {
	meta, err := c.GetMetadata()
	if err != nil {
		return nil, err
	}
	return meta.RowGroup(i)
}
