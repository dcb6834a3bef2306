// Package deletionsvc validates deletion requests and removes records from
// the chunk log.
package deletionsvc

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/gauthamkulal77/audio-pipeline/internal/chunklog"
	"github.com/gauthamkulal77/audio-pipeline/internal/metrics"
	"github.com/gauthamkulal77/audio-pipeline/internal/runtime"
	logpkg "github.com/gauthamkulal77/audio-pipeline/pkg/log"
)

type Service struct {
	log    *chunklog.Log
	logger logpkg.Logger
}

func New(rt *runtime.Runtime, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = rt.Logger()
	}
	return &Service{log: rt.Log(), logger: logger.WithComponent("deletion")}
}

// ParseRequest extracts the ids of a {"ids": [...]} body. The field must be
// a non-empty array of strings.
func ParseRequest(body []byte) ([]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("parse: %w: body is not JSON", chunklog.ErrInvalidRequest)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("parse: %w: body is not an object", chunklog.ErrInvalidRequest)
	}
	res := root.Get("ids")
	switch {
	case !res.Exists():
		return nil, fmt.Errorf("parse: %w: ids missing", chunklog.ErrInvalidRequest)
	case !res.IsArray():
		return nil, fmt.Errorf("parse: %w: ids is not an array", chunklog.ErrInvalidRequest)
	}
	elems := res.Array()
	if len(elems) == 0 {
		return nil, fmt.Errorf("parse: %w: ids is empty", chunklog.ErrInvalidRequest)
	}
	ids := make([]string, 0, len(elems))
	for i, e := range elems {
		if e.Type != gjson.String {
			return nil, fmt.Errorf("parse: %w: ids[%d] is not a string", chunklog.ErrInvalidRequest, i)
		}
		ids = append(ids, e.Str)
	}
	return ids, nil
}

// Delete removes ids and returns how many existed. Repeating a request
// returns 0.
func (s *Service) Delete(ctx context.Context, ids []string) (int, error) {
	n, err := s.log.Delete(ctx, ids)
	if err != nil {
		s.logger.With(logpkg.Int("ids", len(ids)), logpkg.Err(err)).Warn("deletion.delete failed")
		return 0, err
	}
	metrics.RecordsDeleted.Add(float64(n))
	s.logger.With(logpkg.Int("requested", len(ids)), logpkg.Int("removed", n)).Debug("deletion.delete")
	return n, nil
}
