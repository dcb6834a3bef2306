package querysvc

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/gauthamkulal77/audio-pipeline/internal/chunklog"
	"github.com/gauthamkulal77/audio-pipeline/internal/runtime"
	"github.com/gauthamkulal77/audio-pipeline/pkg/id"
	logpkg "github.com/gauthamkulal77/audio-pipeline/pkg/log"
)

const (
	DefaultRecent = 10
	DefaultLimit  = 100
	MaxLimit      = 1000
	PreviewRunes  = 50

	// maxScan bounds how many records one Search may inspect.
	maxScan = 10 * MaxLimit
)

// Preview is the public projection of a record.
type Preview struct {
	ID           string `json:"id"`
	ChunkPreview string `json:"chunkPreview"`
}

// SearchOptions selects an inclusive id range. Empty bounds mean the whole log.
type SearchOptions struct {
	Start   string
	End     string
	Limit   int
	Reverse bool
	Filter  string
}

// Page is one Search result. Next, when set, is the bound to pass as Start
// (or End when Reverse) to continue.
type Page struct {
	Items   []Preview `json:"items"`
	Next    string    `json:"next,omitempty"`
	Scanned int       `json:"scanned"`
}

type Service struct {
	log    *chunklog.Log
	logger logpkg.Logger
}

func New(rt *runtime.Runtime, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = rt.Logger()
	}
	return &Service{log: rt.Log(), logger: logger.WithComponent("query")}
}

// PreviewOf returns the first PreviewRunes characters of chunk followed by
// "...". The ellipsis is appended even when nothing was cut.
func PreviewOf(chunk string) string {
	if utf8.RuneCountInString(chunk) <= PreviewRunes {
		return chunk + "..."
	}
	n := 0
	for i := range chunk {
		if n == PreviewRunes {
			return chunk[:i] + "..."
		}
		n++
	}
	return chunk + "..."
}

func toPreview(r chunklog.Record) Preview {
	return Preview{ID: r.ID, ChunkPreview: PreviewOf(r.Chunk())}
}

// Recent returns previews of the newest count records, newest first.
// A non-positive count uses DefaultRecent.
func (s *Service) Recent(ctx context.Context, count int) ([]Preview, error) {
	if count <= 0 {
		count = DefaultRecent
	}
	recs, err := s.log.ReadRecent(ctx, count)
	if err != nil {
		s.logger.Error("query.recent failed", logpkg.Err(err))
		return nil, err
	}
	out := make([]Preview, 0, len(recs))
	for _, r := range recs {
		out = append(out, toPreview(r))
	}
	return out, nil
}

// Search returns up to Limit matching previews from the selected range.
func (s *Service) Search(ctx context.Context, opts SearchOptions) (Page, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Limit > MaxLimit {
		opts.Limit = MaxLimit
	}
	if opts.Start == "" {
		opts.Start = "-"
	}
	if opts.End == "" {
		opts.End = "+"
	}
	filter, err := newCELFilter(opts.Filter)
	if err != nil {
		return Page{}, fmt.Errorf("search: %w: filter: %v", chunklog.ErrInvalidRequest, err)
	}

	page := Page{Items: make([]Preview, 0)}
	start, end := opts.Start, opts.End
	for page.Scanned < maxScan {
		recs, err := s.log.ReadRange(ctx, chunklog.RangeOptions{Start: start, End: end, Count: opts.Limit, Reverse: opts.Reverse})
		if err != nil {
			s.logger.Error("query.search failed", logpkg.Err(err))
			return Page{}, err
		}
		for i, r := range recs {
			page.Scanned++
			if !filter.Eval(r) {
				continue
			}
			page.Items = append(page.Items, toPreview(r))
			if len(page.Items) == opts.Limit {
				if i < len(recs)-1 || len(recs) == opts.Limit {
					page.Next = advance(r.ID, opts.Reverse)
				}
				return page, nil
			}
		}
		if len(recs) < opts.Limit {
			return page, nil
		}
		next := advance(recs[len(recs)-1].ID, opts.Reverse)
		if next == "" {
			return page, nil
		}
		if opts.Reverse {
			end = next
		} else {
			start = next
		}
		if page.Scanned >= maxScan {
			page.Next = next
		}
	}
	s.logger.With(logpkg.Int("scanned", page.Scanned), logpkg.Int("matched", len(page.Items))).Debug("query.search scan cap")
	return page, nil
}

// advance returns the bound just past raw in the scan direction, or "" at
// the edge of the id space.
func advance(raw string, reverse bool) string {
	cur, err := id.Parse(raw)
	if err != nil {
		return ""
	}
	var next id.ID
	if reverse {
		next = cur.Prev()
	} else {
		next = cur.Next()
	}
	if next == cur {
		return ""
	}
	return next.String()
}
