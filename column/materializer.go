// Package column decodes the column chunks of a row group into Arrow arrays.
//
// A ChunkReader walks the pages of one column chunk and yields definition
// levels and fixed-width values. A Materializer drives a reader for exactly
// the row count the footer declares and turns the result into an array,
// rejecting any disagreement between the two.
package column

import (
	"fmt"
	"math"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"parquet_batch/pqerr"
	"parquet_batch/schema"
)

// ColumnReader yields the levels and values of one column of one row group.
// *ChunkReader implements it.
type ColumnReader interface {
	Column() *schema.Column
	ReadBatch(n int64, defLevels []int16, values []byte) (rowsRead, valuesRead int64, err error)
	// Available is the number of rows the next ReadBatch call can return.
	Available() (int64, error)
	// Buffered is the number of rows the reader holds past the last read.
	Buffered() int64
}

// Materializer builds typed arrays from column readers. Scratch buffers and
// array buffers come from its allocator.
type Materializer struct {
	mem memory.Allocator
}

// NewMaterializer returns a materializer allocating from mem, or from
// memory.DefaultAllocator when mem is nil.
func NewMaterializer(mem memory.Allocator) *Materializer {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Materializer{mem: mem}
}

// Decode reads expectedRows rows from r in a single read call and returns
// them as an array of t's Arrow type. Nullable columns get a validity bitmap.
// Buffers are sized by the rows r has available, never by expectedRows
// alone.
//
// The read must produce exactly expectedRows rows and one value per non-null
// row, and leave nothing buffered; otherwise Decode returns a
// *pqerr.DecodeIncompleteError and no array. An Unsupported type returns a
// *pqerr.UnsupportedTypeError without touching r.
func (m *Materializer) Decode(r ColumnReader, t schema.PhysicalType, expectedRows int64) (arrow.Array, error) {
	col := r.Column()
	switch t := t.(type) {
	case schema.Float32, schema.Float64, schema.FixedLenByteArray:
	case schema.Unsupported:
		return nil, &pqerr.UnsupportedTypeError{Column: col.Name, TypeName: t.Name}
	default:
		panic(fmt.Sprintf("column: unknown physical type %T", t))
	}
	if expectedRows < 0 {
		return nil, fmt.Errorf("column %q: negative row count %d", col.Name, expectedRows)
	}

	width := schema.ByteWidth(t)
	if expectedRows > int64(math.MaxInt/width) {
		return nil, &pqerr.DecodeIncompleteError{Column: col.Name, Expected: expectedRows}
	}
	n, err := r.Available()
	if err != nil {
		return nil, err
	}
	if n > expectedRows {
		n = expectedRows
	}

	values := memory.NewResizableBuffer(m.mem)
	defer values.Release()
	values.Resize(int(n) * width)

	var defLevels []int16
	if col.Nullable() {
		levels := memory.NewResizableBuffer(m.mem)
		defer levels.Release()
		levels.Resize(int(n) * arrow.Int16SizeBytes)
		defLevels = arrow.Int16Traits.CastFromBytes(levels.Bytes())
	}

	rows, read, err := r.ReadBatch(n, defLevels, values.Bytes())
	if err != nil {
		return nil, err
	}

	var nulls int64
	if defLevels != nil {
		for _, l := range defLevels[:rows] {
			if l < col.MaxDefinitionLevel {
				nulls++
			}
		}
	}
	if rows != expectedRows || read != expectedRows-nulls || r.Buffered() > 0 {
		return nil, &pqerr.DecodeIncompleteError{
			Column:     col.Name,
			Expected:   expectedRows,
			RowsRead:   rows,
			ValuesRead: read,
			Nulls:      nulls,
		}
	}

	var valid []bool
	if defLevels != nil {
		valid = make([]bool, rows)
		for i, l := range defLevels[:rows] {
			valid[i] = l == col.MaxDefinitionLevel
		}
	}
	return m.build(t, values.Bytes()[:int(read)*width], valid, int(rows)), nil
}

// build assembles an array of n rows. packed holds the non-null values back
// to back; valid is nil when no row is null.
func (m *Materializer) build(t schema.PhysicalType, packed []byte, valid []bool, n int) arrow.Array {
	switch t := t.(type) {
	case schema.Float32:
		b := array.NewFloat32Builder(m.mem)
		defer b.Release()
		b.Reserve(n)
		vals := arrow.Float32Traits.CastFromBytes(packed)
		if valid == nil {
			b.AppendValues(vals, nil)
			return b.NewArray()
		}
		j := 0
		for _, ok := range valid {
			if !ok {
				b.AppendNull()
				continue
			}
			b.Append(vals[j])
			j++
		}
		return b.NewArray()

	case schema.Float64:
		b := array.NewFloat64Builder(m.mem)
		defer b.Release()
		b.Reserve(n)
		vals := arrow.Float64Traits.CastFromBytes(packed)
		if valid == nil {
			b.AppendValues(vals, nil)
			return b.NewArray()
		}
		j := 0
		for _, ok := range valid {
			if !ok {
				b.AppendNull()
				continue
			}
			b.Append(vals[j])
			j++
		}
		return b.NewArray()

	case schema.FixedLenByteArray:
		b := array.NewFixedSizeBinaryBuilder(m.mem, &arrow.FixedSizeBinaryType{ByteWidth: t.Width})
		defer b.Release()
		b.Reserve(n)
		j := 0
		for i := 0; i < n; i++ {
			if valid != nil && !valid[i] {
				b.AppendNull()
				continue
			}
			b.Append(packed[j*t.Width : (j+1)*t.Width])
			j++
		}
		return b.NewArray()

	default:
		panic(fmt.Sprintf("column: cannot build %s", t))
	}
}
