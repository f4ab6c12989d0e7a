package column

import (
	"fmt"

	"parquet_batch/footer"
	"parquet_batch/pqerr"
	"parquet_batch/schema"
	"parquet_batch/thrift"
)

// ChunkReader reads the values of one column chunk of one row group. The whole
// chunk is fetched with a single ReadAt on first use.
//
// A ChunkReader is not safe for concurrent use.
type ChunkReader struct {
	src   footer.Source
	col   *schema.Column
	chunk *footer.ColumnChunk

	loaded bool
	err    error
	data   []byte
	off    int
	dec    pageDecoder
	page   *dataPage

	// levelsLeft is the number of levels the chunk metadata still accounts
	// for; no page may declare more.
	levelsLeft int64
}

// NewChunkReader returns a reader over chunk, which must belong to col. The
// column's physical type must be decodable.
func NewChunkReader(src footer.Source, col *schema.Column, chunk *footer.ColumnChunk) (*ChunkReader, error) {
	width := schema.ByteWidth(col.Physical)
	if width == 0 {
		return nil, &pqerr.UnsupportedTypeError{Column: col.Name, TypeName: col.Physical.String()}
	}
	if chunk.MetaData == nil {
		return nil, chunkError(col, fmt.Errorf("column chunk has no metadata"))
	}
	if chunk.FilePath != "" {
		return nil, chunkError(col, fmt.Errorf("column chunk stored in external file %q", chunk.FilePath))
	}
	if want := onDiskType(col.Physical); chunk.MetaData.Type != want {
		return nil, chunkError(col, fmt.Errorf("column chunk type %s does not match schema type %s",
			footer.TypeName(chunk.MetaData.Type), footer.TypeName(want)))
	}
	if chunk.MetaData.NumValues < 0 {
		return nil, chunkError(col, fmt.Errorf("negative column chunk value count %d", chunk.MetaData.NumValues))
	}

	return &ChunkReader{
		src:        src,
		col:        col,
		chunk:      chunk,
		levelsLeft: chunk.MetaData.NumValues,
		dec: pageDecoder{
			codec:  chunk.MetaData.Codec,
			width:  width,
			maxDef: col.MaxDefinitionLevel,
		},
	}, nil
}

func onDiskType(t schema.PhysicalType) int32 {
	switch t.(type) {
	case schema.Float32:
		return footer.TypeFloat
	case schema.Float64:
		return footer.TypeDouble
	case schema.FixedLenByteArray:
		return footer.TypeFixedLenByteArray
	case schema.Unsupported:
		return -1
	default:
		panic(fmt.Sprintf("column: unknown physical type %T", t))
	}
}

func chunkError(col *schema.Column, err error) error {
	return &pqerr.IOError{Op: fmt.Sprintf("read column %q", col.Name), Err: err}
}

// Column returns the column the chunk belongs to.
func (r *ChunkReader) Column() *schema.Column {
	return r.col
}

// ReadBatch reads up to n rows from the current data page, advancing to the
// next data page only when the current one is exhausted. It never reads
// across a page boundary, so a chunk with several data pages needs several
// calls. Definition levels are written to defLevels when the column is
// nullable; values of non-null rows are written back to back into values as
// little-endian fixed-width records. It returns zero rows at the end of the
// chunk.
func (r *ChunkReader) ReadBatch(n int64, defLevels []int16, values []byte) (rowsRead, valuesRead int64, err error) {
	if r.err != nil {
		return 0, 0, r.err
	}
	if n <= 0 {
		return 0, 0, nil
	}
	if err := r.fill(); err != nil {
		return 0, 0, err
	}
	p := r.page
	if p == nil {
		return 0, 0, nil
	}
	take := p.remaining()
	if int64(take) > n {
		take = int(n)
	}

	defined := take
	if p.defLevels != nil {
		if len(defLevels) < take {
			r.err = chunkError(r.col, fmt.Errorf("definition level buffer holds %d, need %d", len(defLevels), take))
			return 0, 0, r.err
		}
		window := p.defLevels[p.levelPos : p.levelPos+take]
		copy(defLevels, window)
		defined = r.dec.countDefined(window)
	}

	width := r.dec.width
	if len(values) < defined*width {
		r.err = chunkError(r.col, fmt.Errorf("value buffer holds %d bytes, need %d", len(values), defined*width))
		return 0, 0, r.err
	}
	start := p.valuePos * width
	end := start + defined*width
	if end > len(p.values) {
		r.err = chunkError(r.col, fmt.Errorf("page holds %d values, levels reference %d", len(p.values)/width, p.valuePos+defined))
		return 0, 0, r.err
	}
	copy(values, p.values[start:end])

	p.levelPos += take
	p.valuePos += defined
	return int64(take), int64(defined), nil
}

// Available returns the number of rows the next ReadBatch call can return,
// decoding the next data page when the current one is exhausted. It returns
// zero at the end of the chunk.
func (r *ChunkReader) Available() (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	if err := r.fill(); err != nil {
		return 0, err
	}
	return r.Buffered(), nil
}

// Buffered returns the number of rows left in the current data page.
func (r *ChunkReader) Buffered() int64 {
	if r.page == nil {
		return 0
	}
	return int64(r.page.remaining())
}

// fill makes r.page a data page with rows left, or nil at the end of the
// chunk. Empty data pages are skipped.
func (r *ChunkReader) fill() error {
	for r.page == nil || r.page.remaining() == 0 {
		if err := r.nextDataPage(); err != nil {
			r.err = chunkError(r.col, err)
			return r.err
		}
		if r.page == nil {
			return nil
		}
	}
	return nil
}

func (r *ChunkReader) load() error {
	r.loaded = true
	offset, length := r.chunk.MetaData.ChunkRange()
	size := r.src.Size()
	if offset < 4 || offset > size || length < 0 || length > size-offset {
		return fmt.Errorf("column chunk of %d bytes at offset %d outside file of %d bytes", length, offset, size)
	}
	r.data = make([]byte, length)
	if err := footer.ReadFullAt(r.src, r.data, offset); err != nil {
		return fmt.Errorf("read column chunk: %w", err)
	}
	return nil
}

// nextDataPage decodes pages until it reaches a data page or the end of the
// chunk, in which case r.page is left nil.
func (r *ChunkReader) nextDataPage() error {
	if !r.loaded {
		if err := r.load(); err != nil {
			return err
		}
	}

	r.page = nil
	for r.off < len(r.data) {
		st, n, err := thrift.ParseStruct(r.data[r.off:])
		if err != nil {
			return fmt.Errorf("page header at chunk offset %d: %w", r.off, err)
		}
		h, err := decodePageHeader(st)
		if err != nil {
			return fmt.Errorf("page header at chunk offset %d: %w", r.off, err)
		}

		bodyStart := r.off + n
		bodyEnd := bodyStart + int(h.CompressedSize)
		if bodyEnd > len(r.data) {
			return fmt.Errorf("page body of %d bytes overruns column chunk", h.CompressedSize)
		}
		body := r.data[bodyStart:bodyEnd]
		r.off = bodyEnd
		if err := r.checkPageSize(h); err != nil {
			return err
		}

		switch h.Type {
		case PageDictionary:
			if err := r.dec.decodeDictionaryPage(h, body); err != nil {
				return err
			}
		case PageData:
			r.page, err = r.dec.decodeDataPageV1(h, body)
			return err
		case PageDataV2:
			r.page, err = r.dec.decodeDataPageV2(h, body)
			return err
		default:
			// index pages carry no values
		}
	}
	return nil
}

// checkPageSize bounds the counts and sizes a page header declares by the
// chunk metadata before any buffer is sized from them.
func (r *ChunkReader) checkPageSize(h pageHeader) error {
	if limit := r.chunk.MetaData.TotalUncompressedSize; limit > 0 && int64(h.UncompressedSize) > limit {
		return fmt.Errorf("page declares %d uncompressed bytes, column chunk holds %d", h.UncompressedSize, limit)
	}
	if h.Type != PageData && h.Type != PageDataV2 {
		return nil
	}
	if int64(h.NumValues) > r.levelsLeft {
		return fmt.Errorf("page declares %d values, column chunk has %d left", h.NumValues, r.levelsLeft)
	}
	r.levelsLeft -= int64(h.NumValues)
	return nil
}
