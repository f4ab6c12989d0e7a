package thrift

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compactWriter emits the subset of the compact protocol the tests need.
type compactWriter struct {
	buf    []byte
	lastID []int16
}

func newCompactWriter() *compactWriter {
	return &compactWriter{lastID: []int16{0}}
}

func (w *compactWriter) uvarint(u uint64) {
	for u >= 0x80 {
		w.buf = append(w.buf, byte(u)|0x80)
		u >>= 7
	}
	w.buf = append(w.buf, byte(u))
}

func (w *compactWriter) varint(i int64) {
	w.uvarint(uint64((i << 1) ^ (i >> 63)))
}

func (w *compactWriter) fieldHeader(id int16, typ Type) {
	last := w.lastID[len(w.lastID)-1]
	if delta := id - last; delta > 0 && delta <= 15 {
		w.buf = append(w.buf, byte(delta)<<4|byte(typ))
	} else {
		w.buf = append(w.buf, byte(typ))
		w.varint(int64(id))
	}
	w.lastID[len(w.lastID)-1] = id
}

func (w *compactWriter) i32(id int16, v int32) {
	w.fieldHeader(id, TypeI32)
	w.varint(int64(v))
}

func (w *compactWriter) i64(id int16, v int64) {
	w.fieldHeader(id, TypeI64)
	w.varint(v)
}

func (w *compactWriter) boolean(id int16, v bool) {
	if v {
		w.fieldHeader(id, TypeTrue)
	} else {
		w.fieldHeader(id, TypeFalse)
	}
}

func (w *compactWriter) binary(id int16, s string) {
	w.fieldHeader(id, TypeBinary)
	w.uvarint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *compactWriter) beginStruct(id int16) {
	w.fieldHeader(id, TypeStruct)
	w.lastID = append(w.lastID, 0)
}

func (w *compactWriter) endStruct() {
	w.buf = append(w.buf, 0)
	w.lastID = w.lastID[:len(w.lastID)-1]
}

func (w *compactWriter) i32List(id int16, vals ...int32) {
	w.fieldHeader(id, TypeList)
	if len(vals) < 15 {
		w.buf = append(w.buf, byte(len(vals))<<4|byte(TypeI32))
	} else {
		w.buf = append(w.buf, 0xf0|byte(TypeI32))
		w.uvarint(uint64(len(vals)))
	}
	for _, v := range vals {
		w.varint(int64(v))
	}
}

func (w *compactWriter) bytes() []byte {
	return append(w.buf, 0)
}

func TestParseStruct(t *testing.T) {
	w := newCompactWriter()
	w.i32(1, -7)
	w.binary(4, "feature")
	w.i64(20, 1<<40)
	w.boolean(21, true)
	w.boolean(22, false)
	w.beginStruct(23)
	w.i32(1, 42)
	w.endStruct()
	w.i32List(24, 1, 2, 3)
	b := w.bytes()

	st, n, err := ParseStruct(b)
	require.NoError(t, err)
	assert.Equal(t, len(b), n)
	require.Len(t, st.Fields, 7)

	v, ok := st.Fields[0].Value.I32()
	assert.True(t, ok)
	assert.Equal(t, int32(-7), v)
	assert.Equal(t, int16(1), st.Fields[0].ID)

	s, ok := st.Fields[1].Value.AsString()
	assert.True(t, ok)
	assert.Equal(t, "feature", s)

	assert.Equal(t, int16(20), st.Fields[2].ID)
	i64, ok := st.Fields[2].Value.I64()
	assert.True(t, ok)
	assert.Equal(t, int64(1<<40), i64)

	bv, ok := st.Fields[3].Value.AsBool()
	assert.True(t, ok)
	assert.True(t, bv)
	bv, ok = st.Fields[4].Value.AsBool()
	assert.True(t, ok)
	assert.False(t, bv)

	inner, ok := st.Fields[5].Value.AsStruct()
	require.True(t, ok)
	require.Len(t, inner.Fields, 1)
	iv, _ := inner.Fields[0].Value.I32()
	assert.Equal(t, int32(42), iv)

	lst, ok := st.Fields[6].Value.AsList()
	require.True(t, ok)
	require.Len(t, lst.Elements, 3)
	e, _ := lst.Elements[2].I32()
	assert.Equal(t, int32(3), e)
}

func TestParseStructLongList(t *testing.T) {
	vals := make([]int32, 40)
	for i := range vals {
		vals[i] = int32(i * 3)
	}
	w := newCompactWriter()
	w.i32List(2, vals...)

	st, _, err := ParseStruct(w.bytes())
	require.NoError(t, err)
	lst, ok := st.Fields[0].Value.AsList()
	require.True(t, ok)
	require.Len(t, lst.Elements, 40)
	last, _ := lst.Elements[39].I32()
	assert.Equal(t, int32(117), last)
}

func TestParseStructTrailingBytes(t *testing.T) {
	w := newCompactWriter()
	w.i32(1, 5)
	b := append(w.bytes(), 0xde, 0xad)

	_, n, err := ParseStruct(b)
	require.NoError(t, err)
	assert.Equal(t, len(b)-2, n)
}

func TestParseStructTruncated(t *testing.T) {
	w := newCompactWriter()
	w.binary(4, "a long enough name")
	w.i64(5, 99)
	b := w.bytes()

	for _, cut := range []int{1, 3, len(b) / 2, len(b) - 1} {
		_, _, err := ParseStruct(b[:cut])
		assert.True(t, errors.Is(err, ErrTruncated), "cut at %d: %v", cut, err)
	}
}

func TestParseStructOversizedLength(t *testing.T) {
	// binary field claiming 1 MiB with two bytes behind it
	b := []byte{0x18, 0x80, 0x80, 0x40, 'a', 'b'}
	_, _, err := ParseStruct(b)
	assert.Error(t, err)
}

func TestParseStructUnknownType(t *testing.T) {
	_, _, err := ParseStruct([]byte{0x1d, 0x00})
	assert.ErrorContains(t, err, "unknown type")
}

func TestWrongTypeAccessors(t *testing.T) {
	v := Value{Type: TypeBinary, Binary: []byte("x")}
	_, ok := v.I32()
	assert.False(t, ok)
	_, ok = v.AsStruct()
	assert.False(t, ok)
	_, ok = v.AsList()
	assert.False(t, ok)
	assert.ErrorContains(t, WrongType("num_rows", Field{ID: 3, Value: v}), "num_rows")
}
