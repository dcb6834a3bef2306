package querysvc

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/gauthamkulal77/audio-pipeline/internal/chunklog"
	"github.com/gauthamkulal77/audio-pipeline/pkg/id"
)

var errNotBool = errors.New("filter must evaluate to bool")

// celFilter wraps a compiled CEL program. A zero filter accepts everything.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("seq", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("text", cel.StringType),
		cel.Variable("json", cel.DynType),
		cel.Variable("fields", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	if out := checked.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return celFilter{}, errNotBool
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval reports whether rec matches. Evaluation errors count as no match.
func (f celFilter) Eval(rec chunklog.Record) bool {
	if !f.enabled {
		return true
	}
	parsed, _ := id.Parse(rec.ID)
	text := rec.Chunk()
	var jsonObj any
	_ = json.Unmarshal([]byte(text), &jsonObj)
	fields := map[string]string(rec.Payload)
	if fields == nil {
		fields = map[string]string{}
	}
	out, _, err := f.prog.Eval(map[string]any{
		"id":     rec.ID,
		"ts_ms":  int64(parsed.Ms),
		"seq":    int64(parsed.Seq),
		"size":   int64(len(text)),
		"text":   text,
		"json":   jsonObj,
		"fields": fields,
		"now_ms": time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
