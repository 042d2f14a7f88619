package altcache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/altcache/model"
)

// Compression selects the snapshot body codec.
type Compression uint8

const (
	// CompressionNone stores the snapshot body uncompressed.
	CompressionNone Compression = iota
	// CompressionZstd compresses the body with zstd.
	CompressionZstd
	// CompressionLZ4 compresses the body with the LZ4 frame format.
	CompressionLZ4
)

// String returns the codec name.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

var snapMagic = [4]byte{'A', 'L', 'T', '0'}

const (
	snapVersion   = uint16(1)
	snapHeaderLen = 16 // magic + version + codec + reserved
	snapFooterLen = 4  // CRC32 of the stored body
)

// encodeSnapshot serializes the full mapping:
// a fixed header (magic, version, codec), the codec-framed body
// (entry count, then key/length/data triples), and a trailing CRC32 of
// the body bytes as stored.
func encodeSnapshot(tables map[model.Pubkey][]byte, codec Compression) ([]byte, error) {
	var body bytes.Buffer

	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], uint32(len(tables)))
	body.Write(scratch[:])

	for key, data := range tables {
		body.Write(key[:])
		binary.LittleEndian.PutUint32(scratch[:], uint32(len(data)))
		body.Write(scratch[:])
		body.Write(data)
	}

	stored, err := compressBody(body.Bytes(), codec)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, snapHeaderLen+len(stored)+snapFooterLen)
	out = append(out, snapMagic[:]...)
	var fixed [12]byte
	binary.LittleEndian.PutUint16(fixed[0:2], snapVersion)
	fixed[2] = uint8(codec)
	// fixed[3:12] reserved
	out = append(out, fixed[:]...)
	out = append(out, stored...)

	binary.LittleEndian.PutUint32(scratch[:], crc32.ChecksumIEEE(stored))
	out = append(out, scratch[:]...)
	return out, nil
}

// decodeSnapshot is the inverse of encodeSnapshot. A zero-length input
// decodes as an empty mapping: creating a store writes an empty file
// before the first save. Any other malformed input fails with
// ErrStoreCorrupt.
func decodeSnapshot(data []byte) (map[model.Pubkey][]byte, error) {
	if len(data) == 0 {
		return make(map[model.Pubkey][]byte), nil
	}
	if len(data) < snapHeaderLen+snapFooterLen {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the snapshot framing", ErrStoreCorrupt, len(data))
	}

	if !bytes.Equal(data[:4], snapMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrStoreCorrupt)
	}
	version := binary.LittleEndian.Uint16(data[4:6])
	if version != snapVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", ErrStoreCorrupt, version)
	}
	codec := Compression(data[6])

	stored := data[snapHeaderLen : len(data)-snapFooterLen]
	wantSum := binary.LittleEndian.Uint32(data[len(data)-snapFooterLen:])
	if sum := crc32.ChecksumIEEE(stored); sum != wantSum {
		return nil, fmt.Errorf("%w: checksum mismatch: expected 0x%08x, got 0x%08x", ErrStoreCorrupt, wantSum, sum)
	}

	body, err := decompressBody(stored, codec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}

	if len(body) < 4 {
		return nil, fmt.Errorf("%w: truncated body", ErrStoreCorrupt)
	}
	count := binary.LittleEndian.Uint32(body[:4])
	body = body[4:]

	tables := make(map[model.Pubkey][]byte, count)
	for i := uint32(0); i < count; i++ {
		if len(body) < model.PubkeySize+4 {
			return nil, fmt.Errorf("%w: truncated entry %d", ErrStoreCorrupt, i)
		}
		var key model.Pubkey
		copy(key[:], body[:model.PubkeySize])
		body = body[model.PubkeySize:]

		dataLen := binary.LittleEndian.Uint32(body[:4])
		body = body[4:]
		if uint32(len(body)) < dataLen {
			return nil, fmt.Errorf("%w: truncated data for entry %d", ErrStoreCorrupt, i)
		}
		entry := make([]byte, dataLen)
		copy(entry, body[:dataLen])
		body = body[dataLen:]

		tables[key] = entry
	}
	if len(body) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after %d entries", ErrStoreCorrupt, len(body), count)
	}

	return tables, nil
}

func compressBody(body []byte, codec Compression) ([]byte, error) {
	switch codec {
	case CompressionNone:
		return body, nil
	case CompressionZstd:
		var buf bytes.Buffer
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("create zstd writer: %w", err)
		}
		if _, err := zw.Write(body); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		lw := lz4.NewWriter(&buf)
		if _, err := lw.Write(body); err != nil {
			return nil, err
		}
		if err := lw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown compression codec %d", uint8(codec))
	}
}

func decompressBody(stored []byte, codec Compression) ([]byte, error) {
	switch codec {
	case CompressionNone:
		return stored, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(bytes.NewReader(stored))
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case CompressionLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(stored)))
	default:
		return nil, fmt.Errorf("unknown compression codec %d", uint8(codec))
	}
}
