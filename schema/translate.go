// Package schema translates the on-disk Parquet schema into the in-memory
// schema used by row-group batches.
package schema

import (
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"

	"parquet_batch/footer"
	"parquet_batch/pqerr"
)

// MetadataLogicalType is the Arrow field metadata key holding the column's
// logical annotation.
const MetadataLogicalType = "parquet.logical_type"

var convertedTypeNames = []string{
	"UTF8", "MAP", "MAP_KEY_VALUE", "LIST", "ENUM", "DECIMAL", "DATE",
	"TIME_MILLIS", "TIME_MICROS", "TIMESTAMP_MILLIS", "TIMESTAMP_MICROS",
	"UINT_8", "UINT_16", "UINT_32", "UINT_64", "INT_8", "INT_16", "INT_32", "INT_64",
	"JSON", "BSON", "INTERVAL",
}

// Column describes one leaf column.
type Column struct {
	// Index is the leaf position, which is also the column chunk position
	// within every row group.
	Index    int
	Name     string
	Path     []string
	Physical PhysicalType
	// Logical is the logical annotation, empty when the column has none.
	Logical            string
	Repetition         int32
	MaxDefinitionLevel int16
	MaxRepetitionLevel int16
}

// Nullable reports whether rows of the column may be null.
func (c *Column) Nullable() bool {
	return c.MaxDefinitionLevel > 0
}

// Schema is the ordered set of leaf columns. It is read-only once built.
type Schema struct {
	Columns []Column
	arrow   *arrow.Schema
}

func (s *Schema) Len() int { return len(s.Columns) }

// Column returns column i.
func (s *Schema) Column(i int) (*Column, error) {
	if i < 0 || i >= len(s.Columns) {
		return nil, &pqerr.IndexError{Kind: "column", Index: i, Len: len(s.Columns)}
	}
	return &s.Columns[i], nil
}

// Arrow returns the Arrow view of the schema. Unsupported columns appear as
// nullable null-typed fields.
func (s *Schema) Arrow() *arrow.Schema {
	return s.arrow
}

// Translate maps the flattened on-disk schema tree to a Schema with one column
// per leaf, in file order. It never fails: a leaf whose type has no decode
// path is kept as Unsupported, and a tree that claims more children than it
// has ends at the last complete element.
func Translate(elems []footer.SchemaElement) *Schema {
	s := &Schema{}
	if len(elems) > 0 {
		t := &translator{elems: elems, pos: 1}
		for i := 0; i < numChildren(elems[0]); i++ {
			if !t.walk(s, nil, 0, 0) {
				break
			}
		}
	}

	fields := make([]arrow.Field, len(s.Columns))
	for i, c := range s.Columns {
		f := arrow.Field{
			Name:     c.Name,
			Type:     c.Physical.ArrowType(),
			Nullable: c.Nullable(),
		}
		if _, ok := c.Physical.(Unsupported); ok {
			f.Nullable = true
		}
		if c.Logical != "" {
			f.Metadata = arrow.NewMetadata([]string{MetadataLogicalType}, []string{c.Logical})
		}
		fields[i] = f
	}
	s.arrow = arrow.NewSchema(fields, nil)
	return s
}

type translator struct {
	elems []footer.SchemaElement
	pos   int
}

func numChildren(e footer.SchemaElement) int {
	if e.NumChildren == nil || *e.NumChildren < 0 {
		return 0
	}
	return int(*e.NumChildren)
}

// walk consumes the element at t.pos and its subtree.
func (t *translator) walk(s *Schema, parent []string, def, rep int16) bool {
	if t.pos >= len(t.elems) {
		return false
	}
	e := t.elems[t.pos]
	t.pos++

	switch e.Repetition() {
	case footer.RepetitionOptional:
		def++
	case footer.RepetitionRepeated:
		def++
		rep++
	}
	path := append(append([]string(nil), parent...), e.Name)

	if n := numChildren(e); n > 0 {
		for i := 0; i < n; i++ {
			if !t.walk(s, path, def, rep) {
				return false
			}
		}
		return true
	}

	s.Columns = append(s.Columns, Column{
		Index:              len(s.Columns),
		Name:               strings.Join(path, "."),
		Path:               path,
		Physical:           physicalType(e, rep),
		Logical:            logicalAnnotation(e),
		Repetition:         e.Repetition(),
		MaxDefinitionLevel: def,
		MaxRepetitionLevel: rep,
	})
	return true
}

// physicalType is the fixed mapping from on-disk to in-memory physical types.
func physicalType(e footer.SchemaElement, maxRep int16) PhysicalType {
	name := footer.TypeName(e.Type)
	if !e.HasType {
		name = "MISSING_TYPE"
	}
	if maxRep > 0 {
		// lists have no fixed shape
		return Unsupported{Name: "REPEATED " + name}
	}
	if !e.HasType {
		return Unsupported{Name: name}
	}

	switch e.Type {
	case footer.TypeFloat:
		return Float32{}
	case footer.TypeDouble:
		return Float64{}
	case footer.TypeFixedLenByteArray:
		if e.TypeLength == nil || *e.TypeLength <= 0 {
			return Unsupported{Name: name + "(no width)"}
		}
		return FixedLenByteArray{Width: int(*e.TypeLength)}
	default:
		return Unsupported{Name: name}
	}
}

func logicalAnnotation(e footer.SchemaElement) string {
	if e.LogicalType != "" {
		return e.LogicalType
	}
	if e.ConvertedType == nil {
		return ""
	}
	ct := int(*e.ConvertedType)
	if ct < 0 || ct >= len(convertedTypeNames) {
		return fmt.Sprintf("CONVERTED(%d)", ct)
	}
	return convertedTypeNames[ct]
}
