// Package thrift decodes Thrift Compact protocol structs, the encoding used by
// Parquet for its footer and page headers. Parquet stores raw structs, not
// message envelopes, so only struct decoding is provided.
package thrift

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

// Type is a Thrift Compact wire type.
type Type uint8

const (
	TypeStop   Type = 0
	TypeTrue   Type = 1
	TypeFalse  Type = 2
	TypeByte   Type = 3
	TypeI16    Type = 4
	TypeI32    Type = 5
	TypeI64    Type = 6
	TypeDouble Type = 7
	TypeBinary Type = 8
	TypeList   Type = 9
	TypeSet    Type = 10
	TypeMap    Type = 11
	TypeStruct Type = 12
)

const maxDepth = 64

// ErrTruncated is returned when the input ends inside a struct.
var ErrTruncated = errors.New("thrift compact: truncated input")

// Struct is a decoded struct: its fields in wire order, stop field excluded.
type Struct struct {
	Fields []Field
}

// Field is one struct field.
type Field struct {
	ID    int16
	Value Value
}

// Value is a decoded value. Which member is set depends on Type.
type Value struct {
	Type   Type
	Int    int64
	Bool   bool
	Double float64
	Binary []byte
	Struct *Struct
	List   *List
	Map    *Map
}

// List holds the elements of a list or set.
type List struct {
	ElemType Type
	Elements []Value
}

// Map holds the entries of a map, keys and values index-aligned.
type Map struct {
	KeyType   Type
	ValueType Type
	Keys      []Value
	Values    []Value
}

// Decoder reads compact structs from a kaitai stream.
type Decoder struct {
	ks   *kaitai.Stream
	size int64
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.ReadSeeker) (*Decoder, error) {
	ks := kaitai.NewStream(r)
	size, err := ks.Size()
	if err != nil {
		return nil, err
	}
	return &Decoder{ks: ks, size: size}, nil
}

// Pos returns the current byte offset into the underlying stream.
func (d *Decoder) Pos() (int64, error) {
	return d.ks.Pos()
}

// ReadStruct decodes the next struct from the stream.
func (d *Decoder) ReadStruct() (*Struct, error) {
	st, err := d.readStruct(0)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		if rem, rerr := d.remaining(); rerr == nil && rem <= 0 {
			return nil, ErrTruncated
		}
		return nil, err
	}
	return st, nil
}

// ParseStruct decodes one struct from b and reports how many bytes it used.
func ParseStruct(b []byte) (*Struct, int, error) {
	d, err := NewDecoder(bytes.NewReader(b))
	if err != nil {
		return nil, 0, err
	}
	st, err := d.ReadStruct()
	if err != nil {
		return nil, 0, err
	}
	pos, err := d.Pos()
	if err != nil {
		return nil, 0, err
	}
	return st, int(pos), nil
}

func (d *Decoder) remaining() (int64, error) {
	pos, err := d.ks.Pos()
	if err != nil {
		return 0, err
	}
	return d.size - pos, nil
}

func (d *Decoder) readStruct(depth int) (*Struct, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("thrift compact: nesting deeper than %d", maxDepth)
	}

	st := &Struct{}
	var prevID int16
	for {
		b, err := d.ks.ReadU1()
		if err != nil {
			return nil, err
		}
		if b == 0 {
			return st, nil
		}

		typ := Type(b & 0x0f)
		delta := int16(b >> 4)

		var id int16
		if delta == 0 {
			v, err := d.readVarint()
			if err != nil {
				return nil, err
			}
			id = int16(zigzag(v))
		} else {
			id = prevID + delta
		}
		prevID = id

		val, err := d.readValue(typ, depth, true)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", id, err)
		}
		st.Fields = append(st.Fields, Field{ID: id, Value: val})
	}
}

// readValue decodes a value of type typ. Booleans are carried in the field
// header in struct context and as a single byte inside containers.
func (d *Decoder) readValue(typ Type, depth int, inStruct bool) (Value, error) {
	v := Value{Type: typ}
	switch typ {
	case TypeTrue, TypeFalse:
		if inStruct {
			v.Bool = typ == TypeTrue
			return v, nil
		}
		b, err := d.ks.ReadU1()
		if err != nil {
			return v, err
		}
		v.Bool = b == byte(TypeTrue)
	case TypeByte:
		b, err := d.ks.ReadU1()
		if err != nil {
			return v, err
		}
		v.Int = int64(int8(b))
	case TypeI16, TypeI32, TypeI64:
		u, err := d.readVarint()
		if err != nil {
			return v, err
		}
		v.Int = zigzag(u)
	case TypeDouble:
		f, err := d.ks.ReadF8le()
		if err != nil {
			return v, err
		}
		v.Double = f
	case TypeBinary:
		b, err := d.readBinary()
		if err != nil {
			return v, err
		}
		v.Binary = b
	case TypeList, TypeSet:
		lst, err := d.readList(depth)
		if err != nil {
			return v, err
		}
		v.List = lst
	case TypeMap:
		m, err := d.readMap(depth)
		if err != nil {
			return v, err
		}
		v.Map = m
	case TypeStruct:
		st, err := d.readStruct(depth + 1)
		if err != nil {
			return v, err
		}
		v.Struct = st
	default:
		return v, fmt.Errorf("thrift compact: unknown type %d", typ)
	}
	return v, nil
}

func (d *Decoder) readBinary() ([]byte, error) {
	n, err := d.readVarint()
	if err != nil {
		return nil, err
	}
	if err := d.checkLen(n); err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}
	return d.ks.ReadBytes(int(n))
}

func (d *Decoder) readList(depth int) (*List, error) {
	b, err := d.ks.ReadU1()
	if err != nil {
		return nil, err
	}
	size := uint64(b >> 4)
	elemType := Type(b & 0x0f)
	if size == 15 {
		size, err = d.readVarint()
		if err != nil {
			return nil, err
		}
	}
	if err := d.checkLen(size); err != nil {
		return nil, err
	}

	lst := &List{ElemType: elemType, Elements: make([]Value, 0, size)}
	for i := uint64(0); i < size; i++ {
		v, err := d.readValue(elemType, depth+1, false)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		lst.Elements = append(lst.Elements, v)
	}
	return lst, nil
}

func (d *Decoder) readMap(depth int) (*Map, error) {
	size, err := d.readVarint()
	if err != nil {
		return nil, err
	}
	m := &Map{}
	if size == 0 {
		return m, nil
	}
	if err := d.checkLen(size); err != nil {
		return nil, err
	}
	kv, err := d.ks.ReadU1()
	if err != nil {
		return nil, err
	}
	m.KeyType = Type(kv >> 4)
	m.ValueType = Type(kv & 0x0f)
	m.Keys = make([]Value, 0, size)
	m.Values = make([]Value, 0, size)
	for i := uint64(0); i < size; i++ {
		k, err := d.readValue(m.KeyType, depth+1, false)
		if err != nil {
			return nil, err
		}
		v, err := d.readValue(m.ValueType, depth+1, false)
		if err != nil {
			return nil, err
		}
		m.Keys = append(m.Keys, k)
		m.Values = append(m.Values, v)
	}
	return m, nil
}

// checkLen rejects a length prefix that cannot fit in what is left of the
// stream. Every element takes at least one byte.
func (d *Decoder) checkLen(n uint64) error {
	rem, err := d.remaining()
	if err != nil {
		return err
	}
	if n > math.MaxInt32 || int64(n) > rem {
		return fmt.Errorf("thrift compact: length %d exceeds remaining %d bytes: %w", n, rem, io.ErrUnexpectedEOF)
	}
	return nil
}

func (d *Decoder) readVarint() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := d.ks.ReadU1()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, fmt.Errorf("thrift compact: varint too long")
		}
	}
}

func zigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}
