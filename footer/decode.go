package footer

import (
	"fmt"

	"parquet_batch/thrift"
)

// logicalTypeNames maps LogicalType union field ids to their names.
var logicalTypeNames = map[int16]string{
	1:  "STRING",
	2:  "MAP",
	3:  "LIST",
	4:  "ENUM",
	5:  "DECIMAL",
	6:  "DATE",
	7:  "TIME",
	8:  "TIMESTAMP",
	10: "INTEGER",
	11: "UNKNOWN",
	12: "JSON",
	13: "BSON",
	14: "UUID",
	15: "FLOAT16",
	16: "VARIANT",
	17: "GEOMETRY",
	18: "GEOGRAPHY",
}

func fieldI32(name string, f thrift.Field) (int32, error) {
	v, ok := f.Value.I32()
	if !ok {
		return 0, thrift.WrongType(name, f)
	}
	return v, nil
}

func fieldI64(name string, f thrift.Field) (int64, error) {
	v, ok := f.Value.I64()
	if !ok {
		return 0, thrift.WrongType(name, f)
	}
	return v, nil
}

func fieldStructs(name string, f thrift.Field) ([]*thrift.Struct, error) {
	lst, ok := f.Value.AsList()
	if !ok {
		return nil, thrift.WrongType(name, f)
	}
	out := make([]*thrift.Struct, 0, len(lst.Elements))
	for i, elem := range lst.Elements {
		st, ok := elem.AsStruct()
		if !ok {
			return nil, fmt.Errorf("%s[%d]: expected struct, got wire type %d", name, i, elem.Type)
		}
		out = append(out, st)
	}
	return out, nil
}

// DecodeFileMetaData converts a decoded FileMetaData struct into FileMetadata
// and checks that its row groups agree with its schema.
func DecodeFileMetaData(st *thrift.Struct) (*FileMetadata, error) {
	meta := &FileMetadata{}

	for _, f := range st.Fields {
		var err error
		switch f.ID {
		case 1: // version: i32
			meta.Version, err = fieldI32("version", f)
		case 2: // schema: list<SchemaElement>
			var elems []*thrift.Struct
			if elems, err = fieldStructs("schema", f); err != nil {
				break
			}
			for _, sst := range elems {
				se, serr := decodeSchemaElement(sst)
				if serr != nil {
					return nil, serr
				}
				meta.Schema = append(meta.Schema, se)
			}
		case 3: // num_rows: i64
			meta.NumRows, err = fieldI64("num_rows", f)
		case 4: // row_groups: list<RowGroup>
			var groups []*thrift.Struct
			if groups, err = fieldStructs("row_groups", f); err != nil {
				break
			}
			for i, rst := range groups {
				rg, rerr := decodeRowGroup(rst)
				if rerr != nil {
					return nil, fmt.Errorf("row group %d: %w", i, rerr)
				}
				meta.RowGroups = append(meta.RowGroups, rg)
			}
		case 5: // key_value_metadata: list<KeyValue>
			var kvs []*thrift.Struct
			if kvs, err = fieldStructs("key_value_metadata", f); err != nil {
				break
			}
			for _, kst := range kvs {
				meta.KeyValueMetadata = append(meta.KeyValueMetadata, decodeKeyValue(kst))
			}
		case 6: // created_by: string
			meta.CreatedBy, _ = f.Value.AsString()
		default:
			// ignore
		}
		if err != nil {
			return nil, err
		}
	}

	if err := validate(meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func validate(meta *FileMetadata) error {
	if len(meta.Schema) == 0 {
		return fmt.Errorf("footer has no schema")
	}
	if meta.NumRows < 0 {
		return fmt.Errorf("negative file row count %d", meta.NumRows)
	}
	numCols := meta.NumColumns()
	var rows int64
	for i, rg := range meta.RowGroups {
		if rg.NumRows < 0 {
			return fmt.Errorf("row group %d: negative row count %d", i, rg.NumRows)
		}
		if rg.NumRows > meta.NumRows-rows {
			return fmt.Errorf("row groups hold more rows than the file's %d", meta.NumRows)
		}
		rows += rg.NumRows
		if len(rg.Columns) != numCols {
			return fmt.Errorf("row group %d: %d column chunks, schema has %d columns", i, len(rg.Columns), numCols)
		}
		for j, cc := range rg.Columns {
			// every row contributes at least one level to every leaf
			if cc.MetaData != nil && cc.MetaData.NumValues < rg.NumRows {
				return fmt.Errorf("row group %d column %d: %d values for %d rows", i, j, cc.MetaData.NumValues, rg.NumRows)
			}
		}
	}
	if rows != meta.NumRows {
		return fmt.Errorf("row groups hold %d rows, file declares %d", rows, meta.NumRows)
	}
	return nil
}

func decodeSchemaElement(st *thrift.Struct) (SchemaElement, error) {
	var out SchemaElement
	for _, f := range st.Fields {
		var (
			v   int32
			err error
		)
		switch f.ID {
		case 1: // type (enum): i32
			if out.Type, err = fieldI32("type", f); err == nil {
				out.HasType = true
			}
		case 2: // type_length: i32 (optional)
			if v, err = fieldI32("type_length", f); err == nil {
				out.TypeLength = &v
			}
		case 3: // repetition_type (enum): i32 (optional)
			if v, err = fieldI32("repetition_type", f); err == nil {
				out.RepetitionType = &v
			}
		case 4: // name: string
			out.Name, _ = f.Value.AsString()
		case 5: // num_children: i32 (optional)
			if v, err = fieldI32("num_children", f); err == nil {
				out.NumChildren = &v
			}
		case 6: // converted_type: i32 (optional)
			if v, err = fieldI32("converted_type", f); err == nil {
				out.ConvertedType = &v
			}
		case 7: // scale: i32 (optional)
			if v, err = fieldI32("scale", f); err == nil {
				out.Scale = &v
			}
		case 8: // precision: i32 (optional)
			if v, err = fieldI32("precision", f); err == nil {
				out.Precision = &v
			}
		case 9: // field_id: i32 (optional)
			if v, err = fieldI32("field_id", f); err == nil {
				out.FieldID = &v
			}
		case 10: // logicalType: LogicalType (union)
			if lst, ok := f.Value.AsStruct(); ok && len(lst.Fields) > 0 {
				name, known := logicalTypeNames[lst.Fields[0].ID]
				if !known {
					name = fmt.Sprintf("LOGICAL(%d)", lst.Fields[0].ID)
				}
				out.LogicalType = name
			}
		default:
			// ignore
		}
		if err != nil {
			return SchemaElement{}, err
		}
	}
	return out, nil
}

func decodeRowGroup(st *thrift.Struct) (RowGroup, error) {
	var out RowGroup
	for _, f := range st.Fields {
		var err error
		switch f.ID {
		case 1: // columns: list<ColumnChunk>
			var chunks []*thrift.Struct
			if chunks, err = fieldStructs("columns", f); err != nil {
				break
			}
			for i, cst := range chunks {
				cc, cerr := decodeColumnChunk(cst)
				if cerr != nil {
					return RowGroup{}, fmt.Errorf("column %d: %w", i, cerr)
				}
				out.Columns = append(out.Columns, cc)
			}
		case 2: // total_byte_size: i64
			out.TotalByteSize, err = fieldI64("total_byte_size", f)
		case 3: // num_rows: i64
			out.NumRows, err = fieldI64("num_rows", f)
		case 5: // file_offset: i64 (optional)
			out.FileOffset, err = fieldI64("file_offset", f)
		case 6: // total_compressed_size: i64 (optional)
			out.TotalCompressedSize, err = fieldI64("total_compressed_size", f)
		case 7: // ordinal: i16 (optional)
			out.Ordinal, err = fieldI32("ordinal", f)
		default:
			// ignore
		}
		if err != nil {
			return RowGroup{}, err
		}
	}
	return out, nil
}

func decodeColumnChunk(st *thrift.Struct) (ColumnChunk, error) {
	var out ColumnChunk
	for _, f := range st.Fields {
		var err error
		switch f.ID {
		case 1: // file_path: string (optional)
			out.FilePath, _ = f.Value.AsString()
		case 2: // file_offset: i64
			out.FileOffset, err = fieldI64("file_offset", f)
		case 3: // meta_data: ColumnMetaData
			if sst, ok := f.Value.AsStruct(); ok {
				out.MetaData, err = decodeColumnMetaData(sst)
			}
		default:
			// ignore
		}
		if err != nil {
			return ColumnChunk{}, err
		}
	}
	return out, nil
}

func decodeColumnMetaData(st *thrift.Struct) (*ColumnMetaData, error) {
	out := &ColumnMetaData{}
	for _, f := range st.Fields {
		var (
			v   int64
			err error
		)
		switch f.ID {
		case 1: // type (enum): i32
			out.Type, err = fieldI32("type", f)
		case 2: // encodings: list<Encoding> (i32)
			lst, ok := f.Value.AsList()
			if !ok {
				err = thrift.WrongType("encodings", f)
				break
			}
			for _, elem := range lst.Elements {
				if e, ok := elem.I32(); ok {
					out.Encodings = append(out.Encodings, e)
				}
			}
		case 3: // path_in_schema: list<string>
			lst, ok := f.Value.AsList()
			if !ok {
				err = thrift.WrongType("path_in_schema", f)
				break
			}
			for _, elem := range lst.Elements {
				if s, ok := elem.AsString(); ok {
					out.PathInSchema = append(out.PathInSchema, s)
				}
			}
		case 4: // codec (enum): i32
			out.Codec, err = fieldI32("codec", f)
		case 5: // num_values: i64
			out.NumValues, err = fieldI64("num_values", f)
		case 6: // total_uncompressed_size: i64
			out.TotalUncompressedSize, err = fieldI64("total_uncompressed_size", f)
		case 7: // total_compressed_size: i64
			out.TotalCompressedSize, err = fieldI64("total_compressed_size", f)
		case 9: // data_page_offset: i64
			out.DataPageOffset, err = fieldI64("data_page_offset", f)
		case 10: // index_page_offset: i64 (optional)
			if v, err = fieldI64("index_page_offset", f); err == nil {
				out.IndexPageOffset = &v
			}
		case 11: // dictionary_page_offset: i64 (optional)
			if v, err = fieldI64("dictionary_page_offset", f); err == nil {
				out.DictionaryPageOffset = &v
			}
		default:
			// ignore
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeKeyValue(st *thrift.Struct) KeyValue {
	var out KeyValue
	for _, f := range st.Fields {
		switch f.ID {
		case 1: // key: string
			out.Key, _ = f.Value.AsString()
		case 2: // value: string (optional)
			if s, ok := f.Value.AsString(); ok {
				out.Value = &s
			}
		}
	}
	return out
}
