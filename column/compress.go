package column

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression codecs as numbered in parquet.thrift.
const (
	CodecUncompressed int32 = 0
	CodecSnappy       int32 = 1
	CodecGzip         int32 = 2
	CodecLZO          int32 = 3
	CodecBrotli       int32 = 4
	CodecLZ4          int32 = 5
	CodecZstd         int32 = 6
	CodecLZ4Raw       int32 = 7
)

var (
	zstdOnce    sync.Once
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

// DecodeAll on a shared decoder is safe for concurrent use.
func sharedZstd() (*zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdDecoder, zstdErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	})
	return zstdDecoder, zstdErr
}

// decompressData returns the uncompressed page payload, which must be exactly
// size bytes long.
func decompressData(data []byte, codec int32, size int) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch codec {
	case CodecUncompressed:
		out = data
	case CodecSnappy:
		out, err = snappy.Decode(make([]byte, size), data)
	case CodecGzip:
		var zr *gzip.Reader
		if zr, err = gzip.NewReader(bytes.NewReader(data)); err == nil {
			out, err = readSized(zr, size)
			zr.Close()
		}
	case CodecBrotli:
		out, err = readSized(brotli.NewReader(bytes.NewReader(data)), size)
	case CodecZstd:
		var dec *zstd.Decoder
		if dec, err = sharedZstd(); err == nil {
			out, err = dec.DecodeAll(data, make([]byte, 0, size))
		}
	case CodecLZ4Raw:
		out, err = lz4Block(data, size)
	case CodecLZ4:
		out, err = lz4Hadoop(data, size)
		if err != nil {
			// older writers emitted raw blocks under this codec id
			out, err = lz4Block(data, size)
		}
	default:
		return nil, fmt.Errorf("unsupported compression codec: %d", codec)
	}
	if err != nil {
		return nil, fmt.Errorf("decompress codec %d: %w", codec, err)
	}
	if len(out) != size {
		return nil, fmt.Errorf("decompress codec %d: got %d bytes, page header declares %d", codec, len(out), size)
	}
	return out, nil
}

func readSized(r io.Reader, size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	var extra [1]byte
	if n, _ := r.Read(extra[:]); n > 0 {
		return nil, fmt.Errorf("stream holds more than %d bytes", size)
	}
	return out, nil
}

func lz4Block(data []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	n, err := lz4.UncompressBlock(data, out)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// lz4Hadoop decodes the Hadoop framing: a sequence of
// [uncompressed length BE32][compressed length BE32][lz4 block].
func lz4Hadoop(data []byte, size int) ([]byte, error) {
	out := make([]byte, 0, size)
	for len(data) > 0 {
		if len(data) < 8 {
			return nil, fmt.Errorf("lz4 hadoop frame header truncated")
		}
		rawLen := int(binary.BigEndian.Uint32(data[0:4]))
		blockLen := int(binary.BigEndian.Uint32(data[4:8]))
		data = data[8:]
		if blockLen > len(data) || len(out)+rawLen > size {
			return nil, fmt.Errorf("lz4 hadoop frame lengths out of range")
		}
		block, err := lz4Block(data[:blockLen], rawLen)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
		data = data[blockLen:]
	}
	return out, nil
}
