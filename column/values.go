package column

import (
	"fmt"
)

// Value encodings as numbered in parquet.thrift.
const (
	EncodingPlain           int32 = 0
	EncodingPlainDictionary int32 = 2
	EncodingRLE             int32 = 3
	EncodingBitPacked       int32 = 4
	EncodingDeltaBinary     int32 = 5
	EncodingRLEDictionary   int32 = 8
	EncodingByteStreamSplit int32 = 9
)

// decodePlainValues decodes numValues fixed-width values. PLAIN stores them
// back to back, little-endian, with no length prefix.
func decodePlainValues(data []byte, width, numValues int) ([]byte, error) {
	size := width * numValues
	if size > len(data) {
		return nil, fmt.Errorf("plain: %d values of %d bytes need %d bytes, page has %d", numValues, width, size, len(data))
	}
	return data[:size], nil
}

// decodeByteStreamSplit reassembles values whose k-th bytes are stored in the
// k-th of width contiguous streams.
func decodeByteStreamSplit(data []byte, width, numValues int) ([]byte, error) {
	size := width * numValues
	if size > len(data) {
		return nil, fmt.Errorf("byte stream split: %d values of %d bytes need %d bytes, page has %d", numValues, width, size, len(data))
	}
	out := make([]byte, size)
	for k := 0; k < width; k++ {
		stream := data[k*numValues : (k+1)*numValues]
		for i, b := range stream {
			out[i*width+k] = b
		}
	}
	return out, nil
}

// decodeDictionaryValues maps hybrid-encoded dictionary indices to values. The
// first byte of data is the index bit width.
func decodeDictionaryValues(data []byte, dict []byte, width, numValues int) ([]byte, error) {
	if dict == nil {
		return nil, fmt.Errorf("dictionary-encoded page without a dictionary page")
	}
	if numValues == 0 {
		return []byte{}, nil
	}
	if len(data) < 1 {
		return nil, fmt.Errorf("dictionary page data is empty")
	}

	idx := make([]uint32, numValues)
	if _, err := decodeHybrid(data[1:], uint(data[0]), idx); err != nil {
		return nil, fmt.Errorf("dictionary indices: %w", err)
	}

	dictLen := len(dict) / width
	out := make([]byte, width*numValues)
	for i, ix := range idx {
		if int(ix) >= dictLen {
			return nil, fmt.Errorf("dictionary index %d out of range [0, %d)", ix, dictLen)
		}
		copy(out[i*width:], dict[int(ix)*width:(int(ix)+1)*width])
	}
	return out, nil
}

func decodeValues(data []byte, encoding int32, dict []byte, width, numValues int) ([]byte, error) {
	switch encoding {
	case EncodingPlain:
		return decodePlainValues(data, width, numValues)
	case EncodingPlainDictionary, EncodingRLEDictionary:
		return decodeDictionaryValues(data, dict, width, numValues)
	case EncodingByteStreamSplit:
		return decodeByteStreamSplit(data, width, numValues)
	default:
		return nil, fmt.Errorf("unsupported value encoding: %d", encoding)
	}
}
