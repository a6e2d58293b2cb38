package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jensneuse/abstractlogger"
	"go.uber.org/atomic"

	"github.com/llehouerou/go-graphql-upload/internal/uploadvar"
	"github.com/llehouerou/go-graphql-upload/types"
)

// ClientOption configures a Client at construction.
type ClientOption func(*Client)

// WithToken sets the initial bearer token.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token.Store(token)
	}
}

// WithTransport replaces the transport requests are dispatched through.
func WithTransport(t Transport) ClientOption {
	return func(c *Client) {
		c.transport = t
	}
}

// WithHTTPClient dispatches requests through an HTTPTransport over doer.
func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		c.transport = NewHTTPTransport(doer)
	}
}

// WithLogger sets the logger. The default logger discards everything.
func WithLogger(log abstractlogger.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// WithDebug enables or disables debug mode. In debug mode, request and
// response bodies are logged at debug level and attached to the returned
// *RequestError.
func WithDebug(debug bool) ClientOption {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithLegacyErrorFallback restores the legacy failure policy: a failure that
// is not a *CodeError, such as a network error from the transport, is logged
// and Request returns (nil, nil) instead of an error.
//
// Callers relying on it cannot tell an unreachable server from an empty
// result. Leave it off unless that behavior is required.
func WithLegacyErrorFallback(enabled bool) ClientOption {
	return func(c *Client) {
		c.legacyFallback = enabled
	}
}

// Client is a GraphQL client sending plain and multipart upload requests to
// a single endpoint.
//
// A Client is safe for concurrent use. SetToken may race with in-flight
// requests; the last write wins for requests dispatched after it.
type Client struct {
	endpoint       string
	token          *atomic.String
	transport      Transport
	log            abstractlogger.Logger
	debug          bool
	legacyFallback bool
}

// NewClient creates a client targeting endpoint. Without WithTransport or
// WithHTTPClient, requests go through http.DefaultClient.
func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		token:    atomic.NewString(""),
		log:      abstractlogger.NoopLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(nil)
	}
	return c, nil
}

// SetToken replaces the bearer token used by subsequent requests. An empty
// value removes the Authorization header. It returns c to allow chaining.
func (c *Client) SetToken(value string) *Client {
	c.token.Store(value)
	return c
}

// Token returns the current bearer token, empty when unset.
func (c *Client) Token() string {
	return c.token.Load()
}

// Endpoint returns the GraphQL endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Request sends query with variables and returns the raw "data" of the
// response.
//
// Every failure is returned as a *RequestError carrying query and variables.
// Its cause is a *CodeError for classified failures:
//   - ErrNoVariable when a declared upload variable is missing or malformed
//   - ErrRequestError for a non-2xx status or a response without data
//   - ErrErrorsReceived when the response carries an errors array, even
//     alongside data
//
// The call blocks on the transport; cancellation goes through ctx.
func (c *Client) Request(ctx context.Context, query string, variables Variables) (json.RawMessage, error) {
	data, dbg, err := c.do(ctx, query, variables)
	if err == nil {
		return data, nil
	}

	var ce *CodeError
	if c.legacyFallback && !errors.As(err, &ce) {
		c.log.Error("graphql: request failed, returning empty result",
			abstractlogger.String("endpoint", c.endpoint),
			abstractlogger.Error(err),
		)
		return nil, nil
	}

	re := &RequestError{
		Query:     query,
		Variables: variables,
		Err:       err,
	}
	if c.debug {
		re.Request = dbg.request
		re.Response = dbg.response
	}
	return nil, re
}

// Exec sends query like Request and decodes the returned data into v.
func (c *Client) Exec(ctx context.Context, query string, variables Variables, v any) error {
	data, err := c.Request(ctx, query, variables)
	if err != nil {
		return err
	}
	if len(data) == 0 || v == nil {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &RequestError{
			Query:     query,
			Variables: variables,
			Err:       newCodeError(ErrJsonDecode, err),
		}
	}
	return nil
}

type debugInfo struct {
	request  *RequestInfo
	response *ResponseInfo
}

func (c *Client) do(ctx context.Context, query string, variables Variables) (json.RawMessage, debugInfo, error) {
	var dbg debugInfo

	if decls := uploadvar.FindAll(query); len(decls) > 1 {
		c.log.Warn("graphql: query declares several upload variables, only one is sent",
			abstractlogger.Int("declarations", len(decls)),
		)
	}

	body, err := FormBody(query, variables)
	if err != nil {
		return nil, dbg, err
	}

	req := c.newRequest(body)
	if c.debug {
		dbg.request = requestInfo(req, body)
		c.log.Debug("graphql: sending request",
			abstractlogger.String("endpoint", c.endpoint),
			abstractlogger.Any("multipart", body.Multipart),
			abstractlogger.String("body", dbg.request.Body),
		)
	}

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, dbg, err
	}
	if c.debug {
		dbg.response = &ResponseInfo{
			Status:  resp.Status,
			Headers: resp.Header,
			Body:    string(resp.Body),
		}
		c.log.Debug("graphql: received response",
			abstractlogger.String("status", resp.Status),
			abstractlogger.ByteString("body", resp.Body),
		)
	}

	data, err := classify(resp)
	return data, dbg, err
}

func (c *Client) newRequest(body *Body) *Request {
	header := make(http.Header)
	header.Set("Content-Type", body.ContentType)
	header.Set("Accept", types.ContentTypeJSON)
	if token := c.token.Load(); token != "" {
		header.Set("Authorization", types.BearerPrefix+token)
	}
	return &Request{
		Method: http.MethodPost,
		URL:    c.endpoint,
		Header: header,
		Body:   body.Data,
	}
}

func requestInfo(req *Request, body *Body) *RequestInfo {
	info := &RequestInfo{Headers: req.Header.Clone()}
	if body.Multipart {
		info.Body = string(body.Operations)
	} else {
		info.Body = string(body.Data)
	}
	return info
}

// envelope is the top-level response object. Data stays nil when the field
// is absent and holds "null" when the server sent an explicit null. Errors
// is kept raw so an element of any shape reaches the caller unchanged.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// classify turns a transport response into data or a *CodeError.
func classify(resp *Response) (json.RawMessage, error) {
	if !resp.OK() {
		return nil, newRequestError(resp.Status)
	}

	var out envelope
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, newCodeError(ErrJsonDecode, fmt.Errorf("decode response: %w", err))
	}
	if out.Data == nil {
		return nil, newRequestError("No data received")
	}
	if elems := errorElements(out.Errors); len(elems) > 0 {
		return nil, newErrorsReceived(out.Errors, decodeErrors(elems))
	}
	return out.Data, nil
}
