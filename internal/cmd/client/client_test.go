package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gauthamkulal77/audio-pipeline/internal/chunklog"
	cfgpkg "github.com/gauthamkulal77/audio-pipeline/internal/config"
	"github.com/gauthamkulal77/audio-pipeline/internal/runtime"
	httpserver "github.com/gauthamkulal77/audio-pipeline/internal/server/http"
	"github.com/gauthamkulal77/audio-pipeline/internal/storage/local"
	logpkg "github.com/gauthamkulal77/audio-pipeline/pkg/log"
)

func startServer(t *testing.T) (*runtime.Runtime, BaseURLFunc) {
	t.Helper()
	store, err := local.Open(local.Options{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	logger := logpkg.NewNopLogger()
	rt, err := runtime.Open(context.Background(), runtime.Options{Config: cfgpkg.Default(), Logger: logger, Store: store})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	ts := httptest.NewServer(httpserver.New(rt, logger).Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = rt.Close()
	})
	return rt, func() string { return ts.URL }
}

func run(t *testing.T, base BaseURLFunc, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRoot(base)
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func seed(t *testing.T, rt *runtime.Runtime, chunks ...string) []string {
	t.Helper()
	var ids []string
	for _, c := range chunks {
		newID, err := rt.Log().Append(context.Background(), chunklog.Payload{chunklog.FieldAudioChunk: c})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		ids = append(ids, newID)
	}
	return ids
}

func TestRecordsList(t *testing.T) {
	rt, base := startServer(t)
	ids := seed(t, rt, "alpha", "beta")

	out, err := run(t, base, "", "records", "list", "--json")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var got []map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(got) != 2 || got[0]["id"] != ids[1] || got[0]["chunkPreview"] != "beta..." {
		t.Fatalf("unexpected list %v", got)
	}

	out, err = run(t, base, "", "records", "list")
	if err != nil || !strings.Contains(out, ids[0]) || !strings.Contains(out, "alpha...") {
		t.Fatalf("table output %q err=%v", out, err)
	}
}

func TestRecordsSearchAll(t *testing.T) {
	rt, base := startServer(t)
	var chunks []string
	for i := 0; i < 7; i++ {
		chunks = append(chunks, fmt.Sprintf("c%d", i))
	}
	ids := seed(t, rt, chunks...)

	out, err := run(t, base, "", "records", "search", "--limit", "3", "--all")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, id := range ids {
		if !strings.Contains(out, id) {
			t.Fatalf("missing %s in %q", id, out)
		}
	}

	if _, err := run(t, base, "", "records", "search", "--filter", "size >"); err == nil {
		t.Fatalf("expected error for bad filter")
	}
}

func TestRecordsDelete(t *testing.T) {
	rt, base := startServer(t)
	ids := seed(t, rt, "a", "b")

	out, err := run(t, base, "", "records", "delete", ids[0], ids[1])
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Successfully deleted 2 entries.") {
		t.Fatalf("output %q", out)
	}
	out, err = run(t, base, "", "records", "delete", "garbage")
	if err == nil || !strings.Contains(out, "Invalid entry ID.") {
		t.Fatalf("expected invalid id error, got %q err=%v", out, err)
	}
}

func TestRecordsStats(t *testing.T) {
	rt, base := startServer(t)
	seed(t, rt, "a", "b", "c")
	out, err := run(t, base, "", "records", "stats")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "length:    3") || !strings.Contains(out, "max_len:   ~500") {
		t.Fatalf("output %q", out)
	}
}

func waitLen(t *testing.T, rt *runtime.Runtime, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		n, _ := rt.Log().Len(context.Background())
		if n == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("len = %d, want %d", n, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestIngestSend(t *testing.T) {
	rt, base := startServer(t)

	out, err := run(t, base, "one\ntwo\nthree\n", "ingest", "send", "--lines")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "sent 3 chunks") {
		t.Fatalf("output %q", out)
	}
	waitLen(t, rt, 3)

	out, err = run(t, base, strings.Repeat("x", 10), "ingest", "send", "--chunk-size", "4", "--binary")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "sent 3 chunks (10 bytes)") {
		t.Fatalf("output %q", out)
	}
	waitLen(t, rt, 6)

	recs, err := rt.Log().ReadRange(context.Background(), chunklog.RangeOptions{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for i, want := range []string{"one", "two", "three", "xxxx", "xxxx", "xx"} {
		if recs[i].Chunk() != want {
			t.Fatalf("record %d = %q, want %q", i, recs[i].Chunk(), want)
		}
	}
}
