package eventlog

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"sort"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Fields is the payload of one entry: field name to value.
type Fields map[string]string

// Record encoding: flags(1B) | body | crc32c(flags|body)
// body: uvarint count, then per pair uvarint len | bytes (field, value).

const flagZstd byte = 1 << 0

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// ErrCorrupt is returned when a stored value fails its checksum or framing.
var ErrCorrupt = errors.New("eventlog: corrupt record")

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
)

func codecs() (*zstd.Encoder, *zstd.Decoder) {
	zstdOnce.Do(func() {
		zstdEnc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		zstdDec, _ = zstd.NewReader(nil)
	})
	return zstdEnc, zstdDec
}

// EncodeRecord serializes fields in key order. With compress set the body is
// stored zstd-compressed.
func EncodeRecord(fields Fields, compress bool) []byte {
	keys := make([]string, 0, len(fields))
	size := 10
	for k, v := range fields {
		keys = append(keys, k)
		size += len(k) + len(v) + 20
	}
	sort.Strings(keys)

	body := make([]byte, 0, size)
	body = binary.AppendUvarint(body, uint64(len(keys)))
	for _, k := range keys {
		body = binary.AppendUvarint(body, uint64(len(k)))
		body = append(body, k...)
		body = binary.AppendUvarint(body, uint64(len(fields[k])))
		body = append(body, fields[k]...)
	}

	var flags byte
	if compress {
		enc, _ := codecs()
		body = enc.EncodeAll(body, nil)
		flags |= flagZstd
	}

	out := make([]byte, 0, 1+len(body)+4)
	out = append(out, flags)
	out = append(out, body...)
	return binary.BigEndian.AppendUint32(out, crc32.Checksum(out, castagnoli))
}

// DecodeRecord reverses EncodeRecord.
func DecodeRecord(b []byte) (Fields, error) {
	if len(b) < 1+4 {
		return nil, ErrCorrupt
	}
	framed := b[:len(b)-4]
	if crc32.Checksum(framed, castagnoli) != binary.BigEndian.Uint32(b[len(b)-4:]) {
		return nil, ErrCorrupt
	}
	flags, body := framed[0], framed[1:]
	if flags&flagZstd != 0 {
		_, dec := codecs()
		raw, err := dec.DecodeAll(body, nil)
		if err != nil {
			return nil, ErrCorrupt
		}
		body = raw
	}

	count, n := binary.Uvarint(body)
	if n <= 0 {
		return nil, ErrCorrupt
	}
	body = body[n:]
	fields := make(Fields, count)
	for i := uint64(0); i < count; i++ {
		k, rest, ok := readChunk(body)
		if !ok {
			return nil, ErrCorrupt
		}
		v, rest, ok := readChunk(rest)
		if !ok {
			return nil, ErrCorrupt
		}
		fields[k] = v
		body = rest
	}
	return fields, nil
}

func readChunk(b []byte) (string, []byte, bool) {
	l, n := binary.Uvarint(b)
	if n <= 0 || uint64(len(b)-n) < l {
		return "", nil, false
	}
	end := n + int(l)
	return string(b[n:end]), b[end:], true
}
