// Package httpserver exposes the chunk log over HTTP: producers stream
// chunks over WebSocket on / or /ws, the dashboard reads /data and posts
// to /delete, and /v1 carries search, stats and health.
//
// Example:
//
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: config.Default()})
//	s := httpserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8081")
package httpserver
