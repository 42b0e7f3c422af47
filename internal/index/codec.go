package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	pkgerrors "bovw/pkg/errors"
)

// Blob layout: [magic 4][version 1][index type 1][codec 1][reserved 1]
// [raw size uint32][stored size uint32][payload]. A stored size equal to the
// raw size with codec none means the payload was kept uncompressed.
var blobMagic = [4]byte{'B', 'O', 'W', 'I'}

const (
	blobVersion    = 1
	blobHeaderSize = 16
	maxBlobSize    = 1 << 30
)

const (
	codecNone byte = iota
	codecLZ4
	codecZstd
)

const (
	typeFlat byte = iota + 1
	typeKDTree
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func codecFor(c Compression) (byte, error) {
	switch c {
	case CompressionNone:
		return codecNone, nil
	case CompressionLZ4:
		return codecLZ4, nil
	case CompressionZstd, "":
		return codecZstd, nil
	default:
		return 0, fmt.Errorf("compression %q: %w", c, pkgerrors.ErrInvalidInput)
	}
}

// compress returns the stored payload and the codec actually used. Data that
// does not shrink is stored raw.
func compress(data []byte, codec byte) ([]byte, byte, error) {
	var out []byte
	switch codec {
	case codecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, 0, err
		}
		out = buf[:n]
	case codecZstd:
		enc := getZstdEncoder()
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}
	if len(out) == 0 || len(out) >= len(data) {
		return data, codecNone, nil
	}
	return out, codec, nil
}

func decompress(payload []byte, codec byte, rawSize int) ([]byte, error) {
	switch codec {
	case codecNone:
		if len(payload) != rawSize {
			return nil, fmt.Errorf("raw payload size mismatch: %w", pkgerrors.ErrMalformedFile)
		}
		return payload, nil
	case codecLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w: %v", pkgerrors.ErrMalformedFile, err)
		}
		if n != rawSize {
			return nil, fmt.Errorf("decompressed size mismatch: %w", pkgerrors.ErrMalformedFile)
		}
		return out, nil
	case codecZstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(payload, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w: %v", pkgerrors.ErrMalformedFile, err)
		}
		if len(out) != rawSize {
			return nil, fmt.Errorf("decompressed size mismatch: %w", pkgerrors.ErrMalformedFile)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown codec %d: %w", codec, pkgerrors.ErrMalformedFile)
	}
}

func writeBlob(w io.Writer, kind byte, raw []byte, c Compression) error {
	codec, err := codecFor(c)
	if err != nil {
		return err
	}
	payload, codec, err := compress(raw, codec)
	if err != nil {
		return err
	}
	var header [blobHeaderSize]byte
	copy(header[:4], blobMagic[:])
	header[4] = blobVersion
	header[5] = kind
	header[6] = codec
	binary.LittleEndian.PutUint32(header[8:], uint32(len(raw)))
	binary.LittleEndian.PutUint32(header[12:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

func readBlob(r io.Reader) (byte, *bytes.Reader, error) {
	var header [blobHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, fmt.Errorf("index header: %w: %v", pkgerrors.ErrMalformedFile, err)
	}
	if !bytes.Equal(header[:4], blobMagic[:]) || header[4] != blobVersion {
		return 0, nil, fmt.Errorf("not an index blob: %w", pkgerrors.ErrMalformedFile)
	}
	rawSize := binary.LittleEndian.Uint32(header[8:])
	storedSize := binary.LittleEndian.Uint32(header[12:])
	if rawSize > maxBlobSize || storedSize > maxBlobSize {
		return 0, nil, fmt.Errorf("index blob too large: %w", pkgerrors.ErrMalformedFile)
	}
	payload := make([]byte, storedSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("index payload: %w: %v", pkgerrors.ErrMalformedFile, err)
	}
	raw, err := decompress(payload, header[6], int(rawSize))
	if err != nil {
		return 0, nil, err
	}
	return header[5], bytes.NewReader(raw), nil
}
