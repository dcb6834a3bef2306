package transports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPTransport implements RecordsTransport against the server's HTTP API.
type HTTPTransport struct {
	base   string
	client *http.Client
}

// NewHTTPTransport returns a transport for base, e.g. http://127.0.0.1:8081.
func NewHTTPTransport(base string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPTransport{base: strings.TrimRight(base, "/"), client: client}
}

// APIError is a non-2xx reply.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("%d: %s", e.Status, e.Message) }

func (t *HTTPTransport) do(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (t *HTTPTransport) Recent(ctx context.Context) ([]Preview, error) {
	var out []Preview
	err := t.do(ctx, http.MethodGet, "/data", nil, &out)
	return out, err
}

func (t *HTTPTransport) Search(ctx context.Context, req SearchRequest) (Page, error) {
	q := url.Values{}
	if req.Start != "" {
		q.Set("start", req.Start)
	}
	if req.End != "" {
		q.Set("end", req.End)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Reverse {
		q.Set("reverse", "true")
	}
	if req.Filter != "" {
		q.Set("filter", req.Filter)
	}
	path := "/v1/records"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var page Page
	err := t.do(ctx, http.MethodGet, path, nil, &page)
	return page, err
}

func (t *HTTPTransport) Delete(ctx context.Context, ids []string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := t.do(ctx, http.MethodPost, "/delete", map[string][]string{"ids": ids}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (t *HTTPTransport) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := t.do(ctx, http.MethodGet, "/v1/stats", nil, &st)
	return st, err
}
