package batch

import (
	"errors"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"

	"parquet_batch/schema"
)

// ColumnArray is one decoded column of a batch. Err is set when the column
// could not be decoded; Values is then a null array of the batch length.
type ColumnArray struct {
	Type   schema.PhysicalType
	Values arrow.Array
	Err    error
}

// RecordBatch holds the columns of one row group in schema order. Every
// column has NumRows rows. The caller owns the batch and must Release it.
type RecordBatch struct {
	Schema   *schema.Schema
	RowGroup int
	NumRows  int64
	Columns  []ColumnArray
}

// Err joins the errors of the columns that could not be decoded.
func (b *RecordBatch) Err() error {
	var errs []error
	for _, c := range b.Columns {
		if c.Err != nil {
			errs = append(errs, c.Err)
		}
	}
	return errors.Join(errs...)
}

// Record returns the batch as an Arrow record over Schema().Arrow(). The
// record holds its own references and must be released separately.
func (b *RecordBatch) Record() arrow.Record {
	cols := make([]arrow.Array, len(b.Columns))
	for i, c := range b.Columns {
		cols[i] = c.Values
	}
	return array.NewRecord(b.Schema.Arrow(), cols, b.NumRows)
}

// Release frees the buffers of every column.
func (b *RecordBatch) Release() {
	for i := range b.Columns {
		if b.Columns[i].Values != nil {
			b.Columns[i].Values.Release()
			b.Columns[i].Values = nil
		}
	}
}
