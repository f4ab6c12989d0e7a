package batch

import (
	"bytes"
	"math"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parquet_batch/footer"
	"parquet_batch/internal/pqtest"
	"parquet_batch/pqerr"
	"parquet_batch/schema"
)

var (
	exampleFeatures = []float32{1.0, 2.5, -3.0, 0.0, 42.25}
	exampleLabels   = []float64{0.5, -1.25, 3e10, 0, 7}
	exampleIDs      = [][]byte{{1, 2, 3, 4}, {0xAA, 0xBB, 0xCC, 0xDD}, {0, 0, 0, 0}, {5, 6, 7, 8}, {9, 9, 9, 9}}
)

func exampleFile(t *testing.T, opts pqtest.Options, extra ...pqtest.Column) []byte {
	cols := append([]pqtest.Column{
		pqtest.Float32("features", exampleFeatures, nil),
		pqtest.Float64("labels", exampleLabels, nil),
		pqtest.FixedSizeBinary("ids", 4, exampleIDs),
	}, extra...)
	rec := pqtest.Record(t, cols...)
	defer rec.Release()
	return pqtest.Write(t, rec, opts)
}

func newReader(t *testing.T, data []byte, opts ...Option) *Reader {
	t.Helper()
	c, err := footer.Open(bytes.NewReader(data))
	require.NoError(t, err)
	return NewReader(c, opts...)
}

func checkInvariants(t *testing.T, b *RecordBatch) {
	t.Helper()
	require.Len(t, b.Columns, b.Schema.Len())
	for i, c := range b.Columns {
		assert.Equal(t, b.Schema.Columns[i].Physical, c.Type, "column %d type", i)
		require.NotNil(t, c.Values, "column %d", i)
		assert.Equal(t, int(b.NumRows), c.Values.Len(), "column %d length", i)
	}
}

func TestReadBatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	r := newReader(t, exampleFile(t, pqtest.Options{RowGroupLength: 2}), WithAllocator(mem))
	n, err := r.NumRowGroups()
	require.NoError(t, err)
	require.Equal(t, 3, n)

	var (
		features []float32
		labels   []float64
		ids      [][]byte
		rows     int64
	)
	for i := 0; i < n; i++ {
		b, err := r.ReadBatch(i)
		require.NoError(t, err)
		checkInvariants(t, b)
		assert.NoError(t, b.Err())
		assert.Equal(t, i, b.RowGroup)

		rows += b.NumRows
		features = append(features, b.Columns[0].Values.(*array.Float32).Float32Values()...)
		labels = append(labels, b.Columns[1].Values.(*array.Float64).Float64Values()...)
		flba := b.Columns[2].Values.(*array.FixedSizeBinary)
		for j := 0; j < flba.Len(); j++ {
			ids = append(ids, bytes.Clone(flba.Value(j)))
		}
		b.Release()
	}

	assert.Equal(t, int64(5), rows)
	assert.Equal(t, exampleFeatures, features)
	assert.Equal(t, exampleLabels, labels)
	assert.Equal(t, exampleIDs, ids)
}

func TestReadBatchRecord(t *testing.T) {
	r := newReader(t, exampleFile(t, pqtest.Options{}))
	b, err := r.ReadBatch(0)
	require.NoError(t, err)
	defer b.Release()

	rec := b.Record()
	defer rec.Release()
	assert.Equal(t, int64(5), rec.NumRows())
	assert.Equal(t, int64(3), rec.NumCols())
	assert.True(t, rec.Schema().Equal(b.Schema.Arrow()))
	assert.Equal(t, arrow.FIXED_SIZE_BINARY, rec.Column(2).DataType().ID())
}

func TestReadBatchOutOfRange(t *testing.T) {
	src := footer.NewCountingSource(bytes.NewReader(exampleFile(t, pqtest.Options{RowGroupLength: 2})))
	c, err := footer.Open(src)
	require.NoError(t, err)
	r := NewReader(c)

	n, err := r.NumRowGroups()
	require.NoError(t, err)
	reads := src.Reads()

	for _, i := range []int{n, n + 10, -1} {
		b, err := r.ReadBatch(i)
		assert.Nil(t, b)
		var idx *pqerr.IndexError
		require.ErrorAs(t, err, &idx)
		assert.Equal(t, i, idx.Index)
		assert.Equal(t, n, idx.Len)
	}
	assert.Equal(t, reads, src.Reads(), "no column I/O for an invalid index")
}

func TestReadBatchUnsupportedColumn(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	metrics := NewMetrics(prometheus.NewRegistry())

	data := exampleFile(t, pqtest.Options{}, pqtest.Int32("count", []int32{1, 2, 3, 4, 5}))
	r := newReader(t, data, WithAllocator(mem), WithMetrics(metrics))

	b, err := r.ReadBatch(0)
	require.NoError(t, err)
	defer b.Release()
	checkInvariants(t, b)

	for i := 0; i < 3; i++ {
		assert.NoError(t, b.Columns[i].Err)
	}
	count := b.Columns[3]
	assert.Equal(t, schema.Unsupported{Name: "INT32"}, count.Type)
	assert.Equal(t, 5, count.Values.NullN())

	var unsupported *pqerr.UnsupportedTypeError
	require.ErrorAs(t, b.Err(), &unsupported)
	assert.Equal(t, "count", unsupported.Column)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ColumnErrors.WithLabelValues(kindUnsupported)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowGroupsRead))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.RowsDecoded))
}

func TestReadBatchStrictTypes(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	data := exampleFile(t, pqtest.Options{}, pqtest.Int32("count", []int32{1, 2, 3, 4, 5}))
	r := newReader(t, data, WithAllocator(mem), WithStrictTypes())

	b, err := r.ReadBatch(0)
	assert.Nil(t, b)
	var unsupported *pqerr.UnsupportedTypeError
	assert.ErrorAs(t, err, &unsupported)
}

func TestReadBatchIncomplete(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	metrics := NewMetrics(prometheus.NewRegistry())

	data := exampleFile(t, pqtest.Options{DataPageSize: 1, BatchSize: 2})
	r := newReader(t, data, WithAllocator(mem), WithMetrics(metrics))

	b, err := r.ReadBatch(0)
	assert.Nil(t, b)
	var incomplete *pqerr.DecodeIncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, int64(5), incomplete.Expected)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ColumnErrors.WithLabelValues(kindIncomplete)))
	assert.Zero(t, testutil.ToFloat64(metrics.RowGroupsRead))
}

func TestReadBatchReleasesOnFailure(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	data := exampleFile(t, pqtest.Options{})
	c, err := footer.Open(bytes.NewReader(data))
	require.NoError(t, err)
	meta, err := c.GetMetadata()
	require.NoError(t, err)

	// break the page header of the last column; the first two decode fine
	off, _ := meta.RowGroups[0].Columns[2].MetaData.ChunkRange()
	corrupt := bytes.Clone(data)
	corrupt[off] = 0x1d

	r := newReader(t, corrupt, WithAllocator(mem))
	b, err := r.ReadBatch(0)
	assert.Nil(t, b)
	var ioErr *pqerr.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Contains(t, ioErr.Op, "ids")
}

func TestSchemaTranslatedOnce(t *testing.T) {
	r := newReader(t, exampleFile(t, pqtest.Options{RowGroupLength: 2}))

	first, err := r.Schema()
	require.NoError(t, err)
	b0, err := r.ReadBatch(0)
	require.NoError(t, err)
	defer b0.Release()
	b1, err := r.ReadBatch(1)
	require.NoError(t, err)
	defer b1.Release()

	assert.Same(t, first, b0.Schema)
	assert.Same(t, first, b1.Schema)
}

func TestLoggingAllocator(t *testing.T) {
	var buf bytes.Buffer
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	a := NewLoggingAllocator(mem, log.NewLogfmtLogger(&buf))
	b := a.Allocate(64)
	b = a.Reallocate(128, b)
	a.Free(b)

	out := buf.String()
	assert.Contains(t, out, "msg=allocate size=64")
	assert.Contains(t, out, "msg=reallocate from=64 size=128")
	assert.Contains(t, out, "msg=free size=128")

	r := newReader(t, exampleFile(t, pqtest.Options{}), WithAllocator(a))
	batch, err := r.ReadBatch(0)
	require.NoError(t, err)
	batch.Release()
}

func TestReadBatchCorruptFooterCounts(t *testing.T) {
	for name, tc := range map[string]struct {
		edit func(*footer.RowGroup)
		want interface{}
	}{
		"row count overflows": {func(rg *footer.RowGroup) { rg.NumRows = 1 << 61 }, new(*pqerr.DecodeIncompleteError)},
		"row count too large": {func(rg *footer.RowGroup) { rg.NumRows = 1 << 34 }, new(*pqerr.DecodeIncompleteError)},
		"chunk length overflows": {func(rg *footer.RowGroup) {
			rg.Columns[0].MetaData.TotalCompressedSize = math.MaxInt64
		}, new(*pqerr.IOError)},
	} {
		t.Run(name, func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
			defer mem.AssertSize(t, 0)

			c, err := footer.Open(bytes.NewReader(exampleFile(t, pqtest.Options{})))
			require.NoError(t, err)
			meta, err := c.GetMetadata()
			require.NoError(t, err)
			tc.edit(&meta.RowGroups[0])

			b, err := NewReader(c, WithAllocator(mem)).ReadBatch(0)
			assert.Nil(t, b)
			assert.ErrorAs(t, err, tc.want)
		})
	}
}
