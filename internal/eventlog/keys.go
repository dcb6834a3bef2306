package eventlog

import (
	"encoding/binary"

	"github.com/gauthamkulal77/audio-pipeline/pkg/id"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - s/{uvarint len}{stream}/m
// - s/{uvarint len}{stream}/e/{id_be16}

var (
	streamPrefix = []byte("s/")
	metaSuffix   = []byte("/m")
	entrySeg     = []byte("/e/")
)

func appendStream(dst []byte, stream string) []byte {
	dst = append(dst, streamPrefix...)
	dst = binary.AppendUvarint(dst, uint64(len(stream)))
	return append(dst, stream...)
}

// KeyMeta builds the stream metadata key.
func KeyMeta(stream string) []byte {
	k := make([]byte, 0, len(stream)+16)
	k = appendStream(k, stream)
	return append(k, metaSuffix...)
}

// KeyEntry builds the entry key; ids sort in chronological order.
func KeyEntry(stream string, entry id.ID) []byte {
	k := make([]byte, 0, len(stream)+32)
	k = appendStream(k, stream)
	k = append(k, entrySeg...)
	return append(k, entry.Bytes()...)
}

// entryBounds returns iterator bounds covering every entry of the stream.
func entryBounds(stream string) (low, high []byte) {
	low = KeyEntry(stream, id.Min)
	high = append(KeyEntry(stream, id.Max), 0x00)
	return low, high
}

// idFromKey extracts the trailing 16-byte id of an entry key.
func idFromKey(key []byte) id.ID {
	v, _ := id.FromBytes(key[len(key)-16:])
	return v
}
