package column

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
)

const maxSupportedValueCount = 16 * 1024 * 1024

// levelBitWidth is the bit width of levels whose maximum is maxLevel.
func levelBitWidth(maxLevel int16) uint {
	return uint(bits.Len16(uint16(maxLevel)))
}

// decodeRLELevels decodes n levels stored as a 4-byte little-endian length
// followed by RLE/bit-packed hybrid data (data page v1 layout) and returns the
// bytes that follow the level section.
func decodeRLELevels(data []byte, bitWidth uint, dst []int16) ([]byte, error) {
	if len(data) < 4 {
		return nil, io.ErrUnexpectedEOF
	}

	encodedLength := int(binary.LittleEndian.Uint32(data[0:4]))
	if encodedLength < 0 || 4+encodedLength > len(data) {
		return nil, fmt.Errorf("invalid encoded length: %d", encodedLength)
	}

	if err := decodeLevels(data[4:4+encodedLength], bitWidth, dst); err != nil {
		return nil, err
	}
	return data[4+encodedLength:], nil
}

// decodeLevels decodes len(dst) levels from hybrid-encoded src.
func decodeLevels(src []byte, bitWidth uint, dst []int16) error {
	if bitWidth > 16 {
		return fmt.Errorf("level bit width %d exceeds maximum of 16", bitWidth)
	}
	vals := make([]uint32, len(dst))
	if _, err := decodeHybrid(src, bitWidth, vals); err != nil {
		return err
	}
	for i, v := range vals {
		dst[i] = int16(v)
	}
	return nil
}

// decodeHybrid fills dst from RLE/bit-packed hybrid data and returns the
// number of bytes consumed. It fails if src runs out before dst is full.
func decodeHybrid(src []byte, bitWidth uint, dst []uint32) (int, error) {
	if bitWidth > 32 {
		return 0, fmt.Errorf("bit width %d exceeds maximum of 32", bitWidth)
	}

	n := 0
	i := 0
	for n < len(dst) {
		if i >= len(src) {
			return i, fmt.Errorf("decoding %d hybrid values, got %d: %w", len(dst), n, io.ErrUnexpectedEOF)
		}

		// Read block header varint.
		u, k := binary.Uvarint(src[i:])
		if k == 0 {
			return i, fmt.Errorf("decoding run-length block header: %w", io.ErrUnexpectedEOF)
		}
		if k < 0 {
			return i, fmt.Errorf("overflow after decoding %d/%d bytes of run-length block header", -k+i, len(src))
		}
		i += k

		// count = number of values (or groups of 8), low bit = bit-packed mode flag.
		count := u >> 1
		bitpacked := u&1 != 0

		if count > maxSupportedValueCount {
			return i, fmt.Errorf("decoded run-length block cannot have more than %d values", maxSupportedValueCount)
		}

		if bitpacked {
			count *= 8
			byteCount := int((count*uint64(bitWidth) + 7) / 8)
			if i+byteCount > len(src) {
				return i, fmt.Errorf("decoding bit-packed block of %d values: %w", count, io.ErrUnexpectedEOF)
			}
			take := int(count)
			if take > len(dst)-n {
				take = len(dst) - n
			}
			unpackBits(src[i:i+byteCount], bitWidth, dst[n:n+take])
			n += take
			i += byteCount
			continue
		}

		// RLE mode: one value of ceil(bitWidth/8) bytes repeated count times.
		width := int((bitWidth + 7) / 8)
		if i+width > len(src) {
			return i, fmt.Errorf("decoding run-length block of %d values: %w", count, io.ErrUnexpectedEOF)
		}
		var word uint32
		for b := 0; b < width; b++ {
			word |= uint32(src[i+b]) << (8 * b)
		}
		i += width

		for c := uint64(0); c < count && n < len(dst); c++ {
			dst[n] = word
			n++
		}
	}
	return i, nil
}

// unpackBits decodes len(dst) values packed LSB first at bitWidth bits each.
func unpackBits(src []byte, bitWidth uint, dst []uint32) {
	if bitWidth == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return
	}

	mask := uint64(1)<<bitWidth - 1
	var acc uint64
	var nbits uint
	j := 0
	for i := range dst {
		for nbits < bitWidth {
			acc |= uint64(src[j]) << nbits
			j++
			nbits += 8
		}
		dst[i] = uint32(acc & mask)
		acc >>= bitWidth
		nbits -= bitWidth
	}
}
