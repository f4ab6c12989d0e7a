// Package pqtest builds Parquet files in memory for tests, using the Arrow
// Parquet writer so fixtures are produced by an independent implementation.
package pqtest

import (
	"bytes"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/stretchr/testify/require"
)

// Options control the layout of the written file. The zero value writes one
// uncompressed row group of plain-encoded v1 data pages.
type Options struct {
	RowGroupLength int64
	Dictionary     bool
	PageV2         bool
	Codec          compress.Compression
	// DataPageSize and BatchSize force small pages when set.
	DataPageSize int64
	BatchSize    int64
}

func (o Options) properties() *parquet.WriterProperties {
	props := []parquet.WriterProperty{
		parquet.WithDictionaryDefault(o.Dictionary),
		parquet.WithCompression(o.Codec),
		parquet.WithStats(true),
	}
	if o.PageV2 {
		props = append(props, parquet.WithDataPageVersion(parquet.DataPageV2))
	} else {
		props = append(props, parquet.WithDataPageVersion(parquet.DataPageV1))
	}
	if o.RowGroupLength > 0 {
		props = append(props, parquet.WithMaxRowGroupLength(o.RowGroupLength))
	}
	if o.DataPageSize > 0 {
		props = append(props, parquet.WithDataPageSize(o.DataPageSize))
	}
	if o.BatchSize > 0 {
		props = append(props, parquet.WithBatchSize(o.BatchSize))
	}
	return parquet.NewWriterProperties(props...)
}

// Write encodes rec as a Parquet file and returns its bytes.
func Write(t testing.TB, rec arrow.Record, opts Options) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := pqarrow.NewFileWriter(rec.Schema(), &buf, opts.properties(), pqarrow.DefaultWriterProps())
	require.NoError(t, err)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// Column pairs a field with its values.
type Column struct {
	Field arrow.Field
	Array arrow.Array
}

// Record assembles columns into a record. All arrays must have equal length.
func Record(t testing.TB, cols ...Column) arrow.Record {
	t.Helper()
	require.NotEmpty(t, cols)

	fields := make([]arrow.Field, len(cols))
	arrs := make([]arrow.Array, len(cols))
	for i, c := range cols {
		fields[i] = c.Field
		arrs[i] = c.Array
		require.Equal(t, cols[0].Array.Len(), c.Array.Len(), "column %s", c.Field.Name)
	}
	rec := array.NewRecord(arrow.NewSchema(fields, nil), arrs, int64(cols[0].Array.Len()))
	for _, a := range arrs {
		a.Release()
	}
	return rec
}

// Float32 builds a float32 column. A nil valid slice means no nulls; a
// nullable field is declared when valid is non-nil.
func Float32(name string, vals []float32, valid []bool) Column {
	b := array.NewFloat32Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(vals, valid)
	return Column{
		Field: arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float32, Nullable: valid != nil},
		Array: b.NewArray(),
	}
}

// Float64 builds a float64 column, see Float32.
func Float64(name string, vals []float64, valid []bool) Column {
	b := array.NewFloat64Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(vals, valid)
	return Column{
		Field: arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64, Nullable: valid != nil},
		Array: b.NewArray(),
	}
}

// Int32 builds an int32 column, a physical type with no decode path.
func Int32(name string, vals []int32) Column {
	b := array.NewInt32Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(vals, nil)
	return Column{
		Field: arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int32},
		Array: b.NewArray(),
	}
}

// FixedSizeBinary builds a fixed-width binary column. A nil record is null.
func FixedSizeBinary(name string, width int, vals [][]byte) Column {
	dt := &arrow.FixedSizeBinaryType{ByteWidth: width}
	b := array.NewFixedSizeBinaryBuilder(memory.DefaultAllocator, dt)
	defer b.Release()
	nullable := false
	for _, v := range vals {
		if v == nil {
			b.AppendNull()
			nullable = true
			continue
		}
		b.Append(v)
	}
	return Column{
		Field: arrow.Field{Name: name, Type: dt, Nullable: nullable},
		Array: b.NewArray(),
	}
}

// Codecs lists every codec the Arrow writer can produce and the reader must
// accept.
var Codecs = map[string]compress.Compression{
	"uncompressed": compress.Codecs.Uncompressed,
	"snappy":       compress.Codecs.Snappy,
	"gzip":         compress.Codecs.Gzip,
	"brotli":       compress.Codecs.Brotli,
	"zstd":         compress.Codecs.Zstd,
}
