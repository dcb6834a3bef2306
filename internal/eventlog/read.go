package eventlog

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/gauthamkulal77/audio-pipeline/pkg/id"
)

// ReadOptions selects an inclusive id range. Use id.Min and id.Max for open ends.
type ReadOptions struct {
	Start   id.ID
	End     id.ID
	Limit   int // 0 = unlimited
	Reverse bool
}

type Item struct {
	ID     id.ID
	Fields Fields
}

// Read returns up to Limit items in [Start, End]. Reverse scans from End
// towards Start.
func (l *Log) Read(opts ReadOptions) ([]Item, error) {
	if opts.Start.Compare(opts.End) > 0 {
		return nil, nil
	}
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: KeyEntry(l.stream, opts.Start),
		UpperBound: append(KeyEntry(l.stream, opts.End), 0x00),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	items := make([]Item, 0, min(max(opts.Limit, 1), 128))
	step := iter.Next
	ok := iter.First()
	if opts.Reverse {
		step = iter.Prev
		ok = iter.Last()
	}
	for ; ok && (opts.Limit == 0 || len(items) < opts.Limit); ok = step() {
		entry := idFromKey(iter.Key())
		fields, err := DecodeRecord(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", entry, err)
		}
		items = append(items, Item{ID: entry, Fields: fields})
	}
	return items, iter.Error()
}
