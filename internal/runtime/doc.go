// Package runtime wires configuration, the backing store and the chunk log
// into a single process-wide object. It exposes Open/Close, a health check,
// and the retention loop.
//
// Example:
//
//	cfg := config.Default()
//	rt, err := runtime.Open(ctx, runtime.Options{Config: cfg, Logger: logger})
//	if errors.Is(err, runtime.ErrStartup) { /* exit non-zero */ }
//	defer rt.Close()
//	_ = rt.CheckHealth(ctx)
//	id, _ := rt.Log().Append(ctx, chunklog.Payload{chunklog.FieldAudioChunk: "..."})
package runtime
