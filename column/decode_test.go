package column

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHybridRLE(t *testing.T) {
	// run of 5 copies of 3, bit width 2
	dst := make([]uint32, 5)
	n, err := decodeHybrid([]byte{5 << 1, 3}, 2, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uint32{3, 3, 3, 3, 3}, dst)
}

func TestDecodeHybridBitPacked(t *testing.T) {
	// one group of 8 values 0..7 at bit width 3
	src := []byte{1<<1 | 1, 0x88, 0xC6, 0xFA}
	dst := make([]uint32, 8)
	_, err := decodeHybrid(src, 3, dst)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5, 6, 7}, dst)
}

func TestDecodeHybridTruncated(t *testing.T) {
	_, err := decodeHybrid([]byte{1<<1 | 1, 0x88}, 3, make([]uint32, 8))
	assert.Error(t, err)

	_, err = decodeHybrid([]byte{4 << 1, 1}, 1, make([]uint32, 6))
	assert.Error(t, err, "run shorter than requested")
}

func TestDecodeRLELevels(t *testing.T) {
	body := []byte{4 << 1, 1, 2 << 1, 0}
	data := binary.LittleEndian.AppendUint32(nil, uint32(len(body)))
	data = append(data, body...)
	data = append(data, 0xEE)

	levels := make([]int16, 6)
	rest, err := decodeRLELevels(data, 1, levels)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 1, 1, 1, 0, 0}, levels)
	assert.Equal(t, []byte{0xEE}, rest)

	_, err = decodeRLELevels(data[:6], 1, levels)
	assert.Error(t, err)
}

func TestLevelBitWidth(t *testing.T) {
	assert.Equal(t, uint(0), levelBitWidth(0))
	assert.Equal(t, uint(1), levelBitWidth(1))
	assert.Equal(t, uint(2), levelBitWidth(3))
	assert.Equal(t, uint(3), levelBitWidth(4))
}

func TestDecodeValues(t *testing.T) {
	dict := []byte{10, 20, 30}

	plain, err := decodeValues([]byte{1, 2, 3, 4}, EncodingPlain, nil, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, plain)

	// bit width 2, bit-packed group of 8 indices 2,0,1,...
	indices := []byte{2, 1<<1 | 1, 0b01_00_10, 0, 0}
	got, err := decodeValues(indices, EncodingRLEDictionary, dict, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{30, 10, 20}, got)

	_, err = decodeValues([]byte{2, 1 << 1, 3}, EncodingPlainDictionary, dict, 1, 1)
	assert.ErrorContains(t, err, "out of range")

	_, err = decodeValues(indices, EncodingRLEDictionary, nil, 1, 3)
	assert.Error(t, err, "no dictionary page")

	split, err := decodeValues([]byte{1, 3, 2, 4}, EncodingByteStreamSplit, nil, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, split)

	_, err = decodeValues(nil, EncodingDeltaBinary, nil, 4, 1)
	assert.ErrorContains(t, err, "unsupported value encoding")

	_, err = decodeValues([]byte{1, 2, 3}, EncodingPlain, nil, 4, 1)
	assert.Error(t, err)
}

func TestDecompress(t *testing.T) {
	raw := bytes.Repeat([]byte("parquet page payload "), 50)

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, err = bw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, bw.Close())

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zs := enc.EncodeAll(raw, nil)
	require.NoError(t, enc.Close())

	block := make([]byte, lz4.CompressBlockBound(len(raw)))
	var c lz4.Compressor
	n, err := c.CompressBlock(raw, block)
	require.NoError(t, err)
	block = block[:n]

	hadoop := binary.BigEndian.AppendUint32(nil, uint32(len(raw)))
	hadoop = binary.BigEndian.AppendUint32(hadoop, uint32(len(block)))
	hadoop = append(hadoop, block...)

	for name, tc := range map[string]struct {
		codec int32
		data  []byte
	}{
		"uncompressed": {CodecUncompressed, raw},
		"snappy":       {CodecSnappy, snappy.Encode(nil, raw)},
		"gzip":         {CodecGzip, gz.Bytes()},
		"brotli":       {CodecBrotli, br.Bytes()},
		"zstd":         {CodecZstd, zs},
		"lz4_raw":      {CodecLZ4Raw, block},
		"lz4_hadoop":   {CodecLZ4, hadoop},
		"lz4_legacy":   {CodecLZ4, block},
	} {
		t.Run(name, func(t *testing.T) {
			out, err := decompressData(tc.data, tc.codec, len(raw))
			require.NoError(t, err)
			assert.Equal(t, raw, out)

			_, err = decompressData(tc.data, tc.codec, len(raw)+1)
			assert.Error(t, err, "size must match the page header")
		})
	}

	_, err = decompressData(raw, CodecLZO, len(raw))
	assert.ErrorContains(t, err, "unsupported compression codec")
}
