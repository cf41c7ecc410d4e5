package transports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned by Get for an unknown stream.
var ErrNotFound = errors.New("stream not found")

// HTTPTransport implements StreamsTransport over the HTTP API.
type HTTPTransport struct {
	baseURL func() string
	client  *http.Client
}

// NewHTTPTransport constructs a transport against the API at baseURL().
func NewHTTPTransport(baseURL func() string) *HTTPTransport {
	return &HTTPTransport{baseURL: baseURL, client: &http.Client{Timeout: 10 * time.Second}}
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL()+path, rd)
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

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, e.Error)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// List returns recorded streams, optionally filtered by a CEL expression.
func (t *HTTPTransport) List(ctx context.Context, filter string) ([]Stream, error) {
	path := "/v1/streams"
	if filter != "" {
		path += "?filter=" + url.QueryEscape(filter)
	}
	var resp struct {
		Streams []Stream `json:"streams"`
	}
	if err := t.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Streams, nil
}

// Get returns one recorded stream.
func (t *HTTPTransport) Get(ctx context.Context, name string) (Stream, error) {
	var s Stream
	err := t.do(ctx, http.MethodGet, "/v1/streams/"+url.PathEscape(name), nil, &s)
	return s, err
}

// Register announces a stream.
func (t *HTTPTransport) Register(ctx context.Context, s Stream) error {
	return t.do(ctx, http.MethodPost, "/v1/streams/register", s, nil)
}

// Unregister withdraws a stream.
func (t *HTTPTransport) Unregister(ctx context.Context, name string) error {
	return t.do(ctx, http.MethodPost, "/v1/streams/unregister", map[string]string{"name": name}, nil)
}
