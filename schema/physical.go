package schema

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
)

// PhysicalType is the in-memory physical type of a column. The set of
// variants is closed: Float32, Float64, FixedLenByteArray and Unsupported.
// Code dispatching on it uses a type switch over exactly these four.
type PhysicalType interface {
	fmt.Stringer
	// ArrowType is the Arrow type a decoded column of this type has.
	ArrowType() arrow.DataType
	physicalType()
}

type Float32 struct{}

type Float64 struct{}

// FixedLenByteArray holds records of exactly Width bytes.
type FixedLenByteArray struct {
	Width int
}

// Unsupported is a column the reader keeps in the schema but cannot decode.
type Unsupported struct {
	Name string
}

func (Float32) physicalType()           {}
func (Float64) physicalType()           {}
func (FixedLenByteArray) physicalType() {}
func (Unsupported) physicalType()       {}

func (Float32) String() string { return "FLOAT" }
func (Float64) String() string { return "DOUBLE" }
func (t FixedLenByteArray) String() string {
	return fmt.Sprintf("FIXED_LEN_BYTE_ARRAY(%d)", t.Width)
}
func (t Unsupported) String() string { return t.Name }

func (Float32) ArrowType() arrow.DataType { return arrow.PrimitiveTypes.Float32 }
func (Float64) ArrowType() arrow.DataType { return arrow.PrimitiveTypes.Float64 }
func (t FixedLenByteArray) ArrowType() arrow.DataType {
	return &arrow.FixedSizeBinaryType{ByteWidth: t.Width}
}
func (Unsupported) ArrowType() arrow.DataType { return arrow.Null }

// ByteWidth returns the encoded size of one value, 0 for Unsupported.
func ByteWidth(t PhysicalType) int {
	switch t := t.(type) {
	case Float32:
		return 4
	case Float64:
		return 8
	case FixedLenByteArray:
		return t.Width
	case Unsupported:
		return 0
	default:
		panic(fmt.Sprintf("schema: unknown physical type %T", t))
	}
}
