// Package querysvc projects records of the chunk log into previews for
// dashboards and the HTTP API. It never mutates the log.
//
// Recent returns the newest records. Search walks an id range page by page
// and can filter with a CEL expression. The expression sees these variables:
//
//	id      string  record id "<ms>-<seq>"
//	ts_ms   int     millisecond part of the id
//	seq     int     sequence part of the id
//	size    int     length of the chunk in bytes
//	text    string  the chunk
//	json    dyn     the chunk parsed as JSON, null when it is not JSON
//	fields  map     every payload field
//	now_ms  int     wall clock in milliseconds
//
// Example:
//
//	page, err := svc.Search(ctx, querysvc.SearchOptions{
//		Start:  "-",
//		Filter: `size > 1024 && now_ms - ts_ms < 60000`,
//	})
package querysvc
