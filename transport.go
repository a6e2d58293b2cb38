package graphql

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Request is what the client hands to a Transport.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is what a Transport hands back: the status and the fully read,
// decompressed body.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport sends a request and returns its response. A non-2xx status is
// not an error at this level; the client classifies it.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

func (f TransportFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// HTTPDoer is the subset of *http.Client used by HTTPTransport.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPTransport is a Transport over net/http.
type HTTPTransport struct {
	doer HTTPDoer
}

// NewHTTPTransport creates a transport sending requests through doer.
// If doer is nil, then http.DefaultClient is used.
func NewHTTPTransport(doer HTTPDoer) *HTTPTransport {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &HTTPTransport{doer: doer}
}

// Do executes req and reads the whole response body, decompressing it when
// the server answers with Content-Encoding: gzip.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	request, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("problem constructing request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			request.Header.Add(key, v)
		}
	}

	resp, err := t.doer.Do(request)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	r, err := handleGzipResponse(resp, resp.Body)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("problem reading response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// handleGzipResponse wraps the response body reader with a gzip decompressor
// if the Content-Encoding header indicates gzip compression.
func handleGzipResponse(
	resp *http.Response,
	bodyReader io.Reader,
) (io.ReadCloser, error) {
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gr, err := gzip.NewReader(bodyReader)
		if err != nil {
			return nil, fmt.Errorf("problem trying to create gzip reader: %w", err)
		}
		return gr, nil
	}
	return io.NopCloser(bodyReader), nil
}
