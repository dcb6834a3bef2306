// Package chunklog is the bounded append-only log of audio chunks.
//
// A Log wraps a storage.Store stream: every append assigns a fresh,
// increasing id and trims the stream back towards MaxLen; reads are anchored
// at either end; deletes remove an explicit set of ids. Every call runs under
// a per-call timeout, and any backend failure is reported as
// ErrStoreUnavailable.
//
//	l := chunklog.New(store, chunklog.Options{Key: "audio_stream", MaxLen: 500})
//	id, err := l.Append(ctx, chunklog.Payload{chunklog.FieldAudioChunk: "..."})
//	recent, err := l.ReadRecent(ctx, 10)
//	n, err := l.Delete(ctx, []string{id})
package chunklog
