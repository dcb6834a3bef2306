// Package ingestsvc accepts audio chunks from producer connections and
// appends each one to the chunk log.
//
// Every connection gets an id when it opens. Messages on a connection are
// handled one at a time in arrival order; a failed append is logged and
// reported in the Result, and the connection stays open.
//
// Example:
//
//	svc := ingestsvc.New(rt, logger)
//	c := svc.Open(r.RemoteAddr)
//	defer svc.Close(c)
//	res := svc.Handle(ctx, c, msg)
//	_ = res.ID
package ingestsvc
