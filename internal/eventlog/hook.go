package eventlog

import "github.com/gauthamkulal77/audio-pipeline/pkg/id"

// TrimHook is an optional callback invoked after trims commit.
// Implementations may emit metrics or export the evicted range.
type TrimHook interface {
	OnTrim(stream string, first, last id.ID, n int)
}

type noopHook struct{}

func (noopHook) OnTrim(string, id.ID, id.ID, int) {}

// trimRange describes entries removed by one trim batch.
type trimRange struct {
	first, last id.ID
	n           int
}

func (r trimRange) emit(l *Log) {
	if r.n > 0 {
		l.hook.OnTrim(l.stream, r.first, r.last, r.n)
	}
}
