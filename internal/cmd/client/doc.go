// Package client provides the `audiolog` client commands.
//
// The commands talk to a running server over its HTTP API and WebSocket
// ingestion endpoint. The base URL is supplied by the embedding binary
// through a BaseURLFunc; the standalone binary reads AUDIOLOG_HTTP and
// defaults to http://127.0.0.1:8081.
//
// Usage
//
//	audiolog records list
//	audiolog records search --reverse --limit 20 --filter 'size > 1024'
//	audiolog records delete 1718000000000-0 1718000000000-1
//	audiolog records stats
//
//	# stream a recording as 4 KiB text chunks
//	audiolog ingest send --file take1.raw --chunk-size 4096
//	# one chunk per line from a pipe, paced like a live source
//	arecord -t raw | base64 -w 200 | audiolog ingest send --lines --interval 20ms
package client
