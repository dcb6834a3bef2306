// Package id provides the stream record identifier: a millisecond timestamp
// plus a per-millisecond sequence, rendered as "<ms>-<seq>".
//
// # Format
//
// Bytes() is 16 bytes big-endian: [8 bytes ms][8 bytes sequence], so
// byte-wise comparison preserves chronological order. String() uses the
// decimal "<ms>-<seq>" form understood by Redis streams.
//
// # Monotonicity
//
// The Generator never emits an ID lower than or equal to the last one:
//   - If the system clock regresses, it pins to the last seen millisecond and
//     increments the sequence.
//   - If the sequence would overflow within a millisecond, it rolls over into
//     the next millisecond.
//
// Usage
//
//	g := id.NewGenerator()
//	g.Restore(lastPersisted)
//	next := g.Next()
//	s := next.String() // "1700000000000-0"
package id
