// Package batch materializes whole row groups of a Parquet file into record
// batches, one typed Arrow array per column.
package batch

import (
	"errors"
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"parquet_batch/column"
	"parquet_batch/footer"
	"parquet_batch/pqerr"
	"parquet_batch/schema"
)

// Reader reads row groups of one file. It holds no state besides the
// translated schema; batches are not cached.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	cache   *footer.Cache
	mat     *column.Materializer
	logger  log.Logger
	metrics *Metrics
	strict  bool

	schema *schema.Schema
}

type options struct {
	mem     memory.Allocator
	logger  log.Logger
	metrics *Metrics
	strict  bool
}

// Option configures a Reader.
type Option func(*options)

// WithAllocator sets the allocator array buffers come from.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) {
		o.mem = mem
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithStrictTypes makes ReadBatch fail on the first column with an
// unsupported physical type instead of returning it as a column error.
func WithStrictTypes() Option {
	return func(o *options) {
		o.strict = true
	}
}

func NewReader(cache *footer.Cache, opts ...Option) *Reader {
	o := options{logger: log.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Reader{
		cache:   cache,
		mat:     column.NewMaterializer(o.mem),
		logger:  o.logger,
		metrics: o.metrics,
		strict:  o.strict,
	}
}

// Schema returns the in-memory schema. It is translated on first use and
// shared by every batch.
func (r *Reader) Schema() (*schema.Schema, error) {
	if r.schema != nil {
		return r.schema, nil
	}
	elems, err := r.cache.Schema()
	if err != nil {
		return nil, err
	}
	r.schema = schema.Translate(elems)
	return r.schema, nil
}

func (r *Reader) NumRowGroups() (int, error) {
	return r.cache.NumRowGroups()
}

// ReadBatch decodes row group i. Columns are decoded in schema order, each
// with the row count the footer declares for the row group.
//
// A column with an unsupported physical type does not fail the batch: it is
// returned with a null array and an *pqerr.UnsupportedTypeError, and is
// reported by RecordBatch.Err. Any other column failure discards the batch.
func (r *Reader) ReadBatch(i int) (*RecordBatch, error) {
	n, err := r.NumRowGroups()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= n {
		return nil, &pqerr.IndexError{Kind: "row group", Index: i, Len: n}
	}

	rg, err := r.cache.RowGroup(i)
	if err != nil {
		return nil, err
	}
	sch, err := r.Schema()
	if err != nil {
		return nil, err
	}
	if len(rg.Columns) != sch.Len() {
		return nil, &pqerr.IOError{
			Op:  fmt.Sprintf("read row group %d", i),
			Err: fmt.Errorf("row group has %d column chunks, schema has %d columns", len(rg.Columns), sch.Len()),
		}
	}

	b := &RecordBatch{
		Schema:   sch,
		RowGroup: i,
		NumRows:  rg.NumRows,
		Columns:  make([]ColumnArray, sch.Len()),
	}
	for j := range sch.Columns {
		col := &sch.Columns[j]
		arr, err := r.decodeColumn(col, &rg.Columns[j], rg.NumRows)
		if err != nil {
			var unsupported *pqerr.UnsupportedTypeError
			if errors.As(err, &unsupported) && !r.strict {
				level.Warn(r.logger).Log("msg", "column has no decode path", "row_group", i, "column", col.Name, "type", col.Physical)
				r.countError(kindUnsupported)
				b.Columns[j] = ColumnArray{Type: col.Physical, Values: array.NewNull(int(rg.NumRows)), Err: err}
				continue
			}
			r.countError(errorKind(err))
			level.Debug(r.logger).Log("msg", "discarding batch", "row_group", i, "column", col.Name, "err", err)
			b.Release()
			return nil, err
		}
		b.Columns[j] = ColumnArray{Type: col.Physical, Values: arr}
	}

	if r.metrics != nil {
		r.metrics.RowGroupsRead.Inc()
		r.metrics.RowsDecoded.Add(float64(rg.NumRows))
	}
	level.Debug(r.logger).Log("msg", "read batch", "row_group", i, "rows", rg.NumRows, "columns", sch.Len())
	return b, nil
}

func (r *Reader) decodeColumn(col *schema.Column, chunk *footer.ColumnChunk, rows int64) (arrow.Array, error) {
	cr, err := column.NewChunkReader(r.cache.Source(), col, chunk)
	if err != nil {
		return nil, err
	}
	return r.mat.Decode(cr, col.Physical, rows)
}

func (r *Reader) countError(kind string) {
	if r.metrics != nil {
		r.metrics.ColumnErrors.WithLabelValues(kind).Inc()
	}
}

func errorKind(err error) string {
	var incomplete *pqerr.DecodeIncompleteError
	var unsupported *pqerr.UnsupportedTypeError
	switch {
	case errors.As(err, &incomplete):
		return kindIncomplete
	case errors.As(err, &unsupported):
		return kindUnsupported
	default:
		return kindIO
	}
}
