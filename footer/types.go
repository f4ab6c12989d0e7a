package footer

import (
	"fmt"

	"parquet_batch/pqerr"
)

// Physical types as numbered in parquet.thrift.
const (
	TypeBoolean           int32 = 0
	TypeInt32             int32 = 1
	TypeInt64             int32 = 2
	TypeInt96             int32 = 3
	TypeFloat             int32 = 4
	TypeDouble            int32 = 5
	TypeByteArray         int32 = 6
	TypeFixedLenByteArray int32 = 7
)

// Field repetition types.
const (
	RepetitionRequired int32 = 0
	RepetitionOptional int32 = 1
	RepetitionRepeated int32 = 2
)

// TypeName returns the parquet.thrift name of a physical type.
func TypeName(t int32) string {
	switch t {
	case TypeBoolean:
		return "BOOLEAN"
	case TypeInt32:
		return "INT32"
	case TypeInt64:
		return "INT64"
	case TypeInt96:
		return "INT96"
	case TypeFloat:
		return "FLOAT"
	case TypeDouble:
		return "DOUBLE"
	case TypeByteArray:
		return "BYTE_ARRAY"
	case TypeFixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", t)
	}
}

// FileMetadata is the decoded Parquet footer. It is immutable once decoded.
type FileMetadata struct {
	Version          int32
	Schema           []SchemaElement
	NumRows          int64
	RowGroups        []RowGroup
	KeyValueMetadata []KeyValue
	CreatedBy        string
}

// NumRowGroups returns the number of row groups in the file.
func (m *FileMetadata) NumRowGroups() int {
	return len(m.RowGroups)
}

// NumColumns returns the number of leaf columns in the schema.
func (m *FileMetadata) NumColumns() int {
	n := 0
	for i, elem := range m.Schema {
		if i == 0 {
			continue // root
		}
		if elem.NumChildren == nil || *elem.NumChildren == 0 {
			n++
		}
	}
	return n
}

// RowGroup returns the metadata of row group i.
func (m *FileMetadata) RowGroup(i int) (*RowGroup, error) {
	if i < 0 || i >= len(m.RowGroups) {
		return nil, &pqerr.IndexError{Kind: "row group", Index: i, Len: len(m.RowGroups)}
	}
	return &m.RowGroups[i], nil
}

type SchemaElement struct {
	Type           int32
	HasType        bool
	TypeLength     *int32
	RepetitionType *int32
	Name           string
	NumChildren    *int32
	ConvertedType  *int32
	Scale          *int32
	Precision      *int32
	FieldID        *int32
	// LogicalType is the name of the set member of the LogicalType union,
	// empty when absent.
	LogicalType string
}

// Repetition returns the element's repetition, REQUIRED when unset.
func (e SchemaElement) Repetition() int32 {
	if e.RepetitionType == nil {
		return RepetitionRequired
	}
	return *e.RepetitionType
}

type RowGroup struct {
	Columns             []ColumnChunk
	TotalByteSize       int64
	NumRows             int64
	FileOffset          int64
	TotalCompressedSize int64
	Ordinal             int32
}

type ColumnChunk struct {
	FilePath   string
	FileOffset int64
	MetaData   *ColumnMetaData
}

type ColumnMetaData struct {
	Type                  int32
	Encodings             []int32
	PathInSchema          []string
	Codec                 int32
	NumValues             int64
	TotalUncompressedSize int64
	TotalCompressedSize   int64
	DataPageOffset        int64
	IndexPageOffset       *int64
	DictionaryPageOffset  *int64
}

// ChunkRange returns the byte range holding all pages of the column chunk.
// Some writers record a zero dictionary page offset for chunks without a
// dictionary, so only an offset below the first data page is trusted.
func (c *ColumnMetaData) ChunkRange() (offset, length int64) {
	offset = c.DataPageOffset
	if c.DictionaryPageOffset != nil && *c.DictionaryPageOffset > 0 && *c.DictionaryPageOffset < offset {
		offset = *c.DictionaryPageOffset
	}
	return offset, c.TotalCompressedSize
}

type KeyValue struct {
	Key   string
	Value *string
}
