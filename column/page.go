package column

import (
	"fmt"

	"parquet_batch/thrift"
)

// Page types as numbered in parquet.thrift.
const (
	PageData       int32 = 0
	PageIndex      int32 = 1
	PageDictionary int32 = 2
	PageDataV2     int32 = 3
)

type pageHeader struct {
	Type             int32
	UncompressedSize int32
	CompressedSize   int32

	// data page (v1 and v2)
	NumValues        int32
	Encoding         int32
	DefLevelEncoding int32

	// data page v2
	NumNulls            int32
	NumRows             int32
	DefLevelsByteLength int32
	RepLevelsByteLength int32
	IsCompressed        bool

	// dictionary page
	DictNumValues int32
	DictEncoding  int32
}

func headerI32(name string, f thrift.Field) (int32, error) {
	v, ok := f.Value.I32()
	if !ok {
		return 0, thrift.WrongType(name, f)
	}
	return v, nil
}

func decodePageHeader(st *thrift.Struct) (pageHeader, error) {
	h := pageHeader{IsCompressed: true}
	for _, f := range st.Fields {
		var err error
		switch f.ID {
		case 1: // type: i32
			h.Type, err = headerI32("type", f)
		case 2: // uncompressed_page_size: i32
			h.UncompressedSize, err = headerI32("uncompressed_page_size", f)
		case 3: // compressed_page_size: i32
			h.CompressedSize, err = headerI32("compressed_page_size", f)
		case 5: // data_page_header: struct
			if dph, ok := f.Value.AsStruct(); ok {
				err = h.decodeDataPageHeader(dph)
			}
		case 7: // dictionary_page_header: struct
			if dph, ok := f.Value.AsStruct(); ok {
				err = h.decodeDictionaryPageHeader(dph)
			}
		case 8: // data_page_header_v2: struct
			if dph, ok := f.Value.AsStruct(); ok {
				err = h.decodeDataPageHeaderV2(dph)
			}
		default:
			// crc, index page header
		}
		if err != nil {
			return pageHeader{}, err
		}
	}

	if h.CompressedSize < 0 || h.UncompressedSize < 0 {
		return pageHeader{}, fmt.Errorf("negative page size (compressed %d, uncompressed %d)", h.CompressedSize, h.UncompressedSize)
	}
	return h, nil
}

func (h *pageHeader) decodeDataPageHeader(st *thrift.Struct) error {
	h.DefLevelEncoding = EncodingRLE
	for _, f := range st.Fields {
		var err error
		switch f.ID {
		case 1: // num_values: i32
			h.NumValues, err = headerI32("num_values", f)
		case 2: // encoding: i32
			h.Encoding, err = headerI32("encoding", f)
		case 3: // definition_level_encoding: i32
			h.DefLevelEncoding, err = headerI32("definition_level_encoding", f)
		default:
			// repetition_level_encoding, statistics
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *pageHeader) decodeDataPageHeaderV2(st *thrift.Struct) error {
	for _, f := range st.Fields {
		var err error
		switch f.ID {
		case 1: // num_values: i32
			h.NumValues, err = headerI32("num_values", f)
		case 2: // num_nulls: i32
			h.NumNulls, err = headerI32("num_nulls", f)
		case 3: // num_rows: i32
			h.NumRows, err = headerI32("num_rows", f)
		case 4: // encoding: i32
			h.Encoding, err = headerI32("encoding", f)
		case 5: // definition_levels_byte_length: i32
			h.DefLevelsByteLength, err = headerI32("definition_levels_byte_length", f)
		case 6: // repetition_levels_byte_length: i32
			h.RepLevelsByteLength, err = headerI32("repetition_levels_byte_length", f)
		case 7: // is_compressed: bool (optional, default true)
			if b, ok := f.Value.AsBool(); ok {
				h.IsCompressed = b
			}
		default:
			// statistics
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *pageHeader) decodeDictionaryPageHeader(st *thrift.Struct) error {
	for _, f := range st.Fields {
		var err error
		switch f.ID {
		case 1: // num_values: i32
			h.DictNumValues, err = headerI32("num_values", f)
		case 2: // encoding: i32
			h.DictEncoding, err = headerI32("encoding", f)
		default:
			// is_sorted
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// dataPage is a fully decoded data page: one definition level per row and
// the non-null values packed as fixed-width records.
type dataPage struct {
	numLevels int
	defLevels []int16 // nil when the column is required
	values    []byte

	levelPos int
	valuePos int
}

func (p *dataPage) remaining() int {
	return p.numLevels - p.levelPos
}

// pageDecoder turns page bodies into data pages for one column chunk.
type pageDecoder struct {
	codec  int32
	width  int
	maxDef int16
	dict   []byte
}

func (d *pageDecoder) decodeDictionaryPage(h pageHeader, body []byte) error {
	if h.DictEncoding != EncodingPlain && h.DictEncoding != EncodingPlainDictionary {
		return fmt.Errorf("unsupported dictionary encoding: %d", h.DictEncoding)
	}
	if h.DictNumValues < 0 {
		return fmt.Errorf("negative dictionary size %d", h.DictNumValues)
	}
	payload, err := decompressData(body, d.codec, int(h.UncompressedSize))
	if err != nil {
		return err
	}
	dict, err := decodePlainValues(payload, d.width, int(h.DictNumValues))
	if err != nil {
		return fmt.Errorf("dictionary: %w", err)
	}
	d.dict = dict
	return nil
}

func (d *pageDecoder) decodeDataPageV1(h pageHeader, body []byte) (*dataPage, error) {
	if h.NumValues < 0 {
		return nil, fmt.Errorf("negative value count %d", h.NumValues)
	}
	payload, err := decompressData(body, d.codec, int(h.UncompressedSize))
	if err != nil {
		return nil, err
	}

	p := &dataPage{numLevels: int(h.NumValues)}
	nonNull := p.numLevels
	if d.maxDef > 0 {
		if h.DefLevelEncoding != EncodingRLE {
			return nil, fmt.Errorf("unsupported definition level encoding: %d", h.DefLevelEncoding)
		}
		p.defLevels = make([]int16, p.numLevels)
		if payload, err = decodeRLELevels(payload, levelBitWidth(d.maxDef), p.defLevels); err != nil {
			return nil, fmt.Errorf("definition levels: %w", err)
		}
		nonNull = d.countDefined(p.defLevels)
	}

	if p.values, err = decodeValues(payload, h.Encoding, d.dict, d.width, nonNull); err != nil {
		return nil, err
	}
	return p, nil
}

// decodeDataPageV2 decodes a v2 page: levels are stored uncompressed ahead of
// the (optionally compressed) values and carry no length prefix.
func (d *pageDecoder) decodeDataPageV2(h pageHeader, body []byte) (*dataPage, error) {
	if h.NumValues < 0 || h.NumNulls < 0 || h.NumNulls > h.NumValues {
		return nil, fmt.Errorf("inconsistent v2 page counts (values %d, nulls %d)", h.NumValues, h.NumNulls)
	}
	levelsLen := int(h.RepLevelsByteLength) + int(h.DefLevelsByteLength)
	if h.RepLevelsByteLength < 0 || h.DefLevelsByteLength < 0 || levelsLen > len(body) || levelsLen > int(h.UncompressedSize) {
		return nil, fmt.Errorf("level lengths (rep %d, def %d) exceed page of %d bytes", h.RepLevelsByteLength, h.DefLevelsByteLength, len(body))
	}

	p := &dataPage{numLevels: int(h.NumValues)}
	if d.maxDef > 0 {
		p.defLevels = make([]int16, p.numLevels)
		defStart := int(h.RepLevelsByteLength)
		if err := decodeLevels(body[defStart:levelsLen], levelBitWidth(d.maxDef), p.defLevels); err != nil {
			return nil, fmt.Errorf("definition levels: %w", err)
		}
		if nulls := p.numLevels - d.countDefined(p.defLevels); nulls != int(h.NumNulls) {
			return nil, fmt.Errorf("v2 page declares %d nulls, levels hold %d", h.NumNulls, nulls)
		}
	} else if h.NumNulls != 0 {
		return nil, fmt.Errorf("required column page declares %d nulls", h.NumNulls)
	}

	values := body[levelsLen:]
	valuesSize := int(h.UncompressedSize) - levelsLen
	if h.IsCompressed {
		var err error
		if values, err = decompressData(values, d.codec, valuesSize); err != nil {
			return nil, err
		}
	}

	var err error
	if p.values, err = decodeValues(values, h.Encoding, d.dict, d.width, p.numLevels-int(h.NumNulls)); err != nil {
		return nil, err
	}
	return p, nil
}

func (d *pageDecoder) countDefined(levels []int16) int {
	n := 0
	for _, l := range levels {
		if l == d.maxDef {
			n++
		}
	}
	return n
}
