// Package respserver exposes a storage.Store over the Redis protocol so that
// Redis stream clients can use the embedded store in place of a Redis server.
//
// Supported commands: PING, QUIT, SELECT, XADD (auto ids only), XRANGE,
// XREVRANGE, XDEL, XLEN and XTRIM.
//
// Example:
//
//	st, _ := local.Open(local.Options{DataDir: "./data"})
//	s := respserver.New(st, logger)
//	_ = s.ListenAndServe(ctx, ":6379")
package respserver
