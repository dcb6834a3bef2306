// Package eventlog implements the embedded append-only stream log used when no
// external Redis is configured.
//
// # Overview
//
// Each stream is persisted in Pebble under a length-prefixed name so that no
// stream's keyspace is a prefix of another's:
//   - s/{len}{stream}/m           (metadata: last issued id, current length)
//   - s/{len}{stream}/e/{id_be16} (entries)
//
// Entries are stored as: flags(1B) | body | crc32c(flags|body). The body is a
// varint-framed list of field/value pairs, optionally zstd-compressed.
//
// API surface (internal)
//
//	l, _ := OpenLog(db, "audio_stream", Options{Compress: true})
//	ids, trimmed, _ := l.Append(ctx, []Fields{{"audioChunk": "..."}}, Limit{MaxLen: 500, Approx: true})
//	items, _ := l.Read(ReadOptions{Start: id.Min, End: id.Max, Limit: 10, Reverse: true})
//	n, _ := l.Delete(ctx, ids)
//	_, _ = l.TrimOlderThan(ctx, cutoffMs, 1024, 0)
//
// # Trimming
//
// Exact trims keep at most MaxLen entries. Approximate trims only remove whole
// chunks of TrimChunk entries, so a stream can exceed MaxLen by up to
// TrimChunk-1 entries. A TrimHook observes every deleted range.
package eventlog
