package graphql

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes carried by CodeError.
const (
	// ErrRequestError is a transport or envelope failure: non-2xx status or
	// a response without data.
	ErrRequestError = "GQL_REQUEST_ERROR"
	// ErrNoVariable is an upload variable declared by the query but missing
	// or of the wrong shape in the variables.
	ErrNoVariable = "GQL_NO_VARIABLE"
	// ErrErrorsReceived is a well-formed response carrying an errors array.
	ErrErrorsReceived = "ERRORS_RECEIVED"
	// ErrJsonEncode is a query or variables value that cannot be encoded.
	ErrJsonEncode = "json_encode_error"
	// ErrJsonDecode is a response body, or its data, that is not valid JSON.
	ErrJsonDecode = "json_decode_error"
)

// ErrEmptyEndpoint is returned by NewClient for an empty endpoint.
var ErrEmptyEndpoint = errors.New("graphql: endpoint is required")

// CodeError is a classified failure raised while building a request or
// classifying its response.
type CodeError struct {
	Code    string
	Message string
	// Detail is the errors array as received (a json.RawMessage) for
	// ErrErrorsReceived, the variable name for ErrNoVariable, and nil
	// otherwise.
	Detail any
	// Err is the underlying cause, if any.
	Err error
}

func (e *CodeError) Error() string {
	return e.Message
}

func (e *CodeError) Unwrap() error {
	return e.Err
}

// Is matches another *CodeError with the same code, so callers can test
// errors.Is(err, &CodeError{Code: ErrNoVariable}).
func (e *CodeError) Is(target error) bool {
	t, ok := target.(*CodeError)
	return ok && t.Code == e.Code
}

func newRequestError(msg string) *CodeError {
	return &CodeError{
		Code:    ErrRequestError,
		Message: "Error graphQl request: " + msg,
	}
}

func newNoVariableError(name string) *CodeError {
	return &CodeError{
		Code:    ErrNoVariable,
		Message: fmt.Sprintf("No %s proper variable found in variables.", name),
		Detail:  name,
	}
}

func newErrorsReceived(raw json.RawMessage, errs Errors) *CodeError {
	return &CodeError{
		Code:    ErrErrorsReceived,
		Message: "Errors received: " + errs.Error(),
		Detail:  raw,
	}
}

// GraphQLErrors decodes the Detail of an ErrErrorsReceived failure. Elements
// that are not shaped like Error keep their JSON text as Message.
func (e *CodeError) GraphQLErrors() Errors {
	raw, ok := e.Detail.(json.RawMessage)
	if e.Code != ErrErrorsReceived || !ok {
		return nil
	}
	return decodeErrors(errorElements(raw))
}

// errorElements splits a raw errors value into its elements. A value that is
// not an array counts as a single element; null and absent give none.
func errorElements(raw json.RawMessage) []json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []json.RawMessage{raw}
	}
	return elems
}

func decodeErrors(elems []json.RawMessage) Errors {
	errs := make(Errors, len(elems))
	for i, elem := range elems {
		if err := json.Unmarshal(elem, &errs[i]); err != nil {
			errs[i] = Error{}
		}
		if errs[i].Message != "" {
			continue
		}
		var msg string
		if err := json.Unmarshal(elem, &msg); err == nil && msg != "" {
			errs[i].Message = msg
		} else {
			errs[i].Message = string(elem)
		}
	}
	return errs
}

func newCodeError(code string, err error) *CodeError {
	return &CodeError{
		Code:    code,
		Message: err.Error(),
		Err:     err,
	}
}

// HasCode reports whether err or any error it wraps is a *CodeError with
// the given code.
func HasCode(err error, code string) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == code
}

// RequestError is the error returned by Client.Request. It carries the
// original call arguments for diagnosis and wraps the failure that caused it.
type RequestError struct {
	Query     string
	Variables Variables
	Err       error

	// Request and Response are set in debug mode only.
	Request  *RequestInfo
	Response *ResponseInfo
}

func (e *RequestError) Error() string {
	return "graphql: " + e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Code returns the code of the wrapped *CodeError, or an empty string when
// the cause was not classified.
func (e *RequestError) Code() string {
	var ce *CodeError
	if errors.As(e.Err, &ce) {
		return ce.Code
	}
	return ""
}

// RequestInfo contains HTTP request information captured in debug mode.
type RequestInfo struct {
	Headers http.Header
	// Body is the JSON body, or the operations field of a multipart body.
	Body string
}

// ResponseInfo contains HTTP response information captured in debug mode.
type ResponseInfo struct {
	Status  string
	Headers http.Header
	Body    string
}

// Errors represents the "errors" array in a response from a GraphQL server.
// If returned via error interface, the slice is expected to contain at least 1 element.
//
// Specification: https://facebook.github.io/graphql/#sec-Errors.
type Errors []Error

// Error is one element of a GraphQL errors array.
type Error struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
	Locations  []struct {
		Line   int `json:"line"`
		Column int `json:"column"`
	} `json:"locations,omitempty"`
	Path []any `json:"path,omitempty"`
}

// Error implements error interface.
func (e Error) Error() string {
	return fmt.Sprintf("Message: %s, Locations: %+v", e.Message, e.Locations)
}

// Error implements error interface.
func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// GetCode returns the error code from the extensions, or an empty string if
// not present.
func (e Error) GetCode() string {
	if e.Extensions == nil {
		return ""
	}
	code, ok := e.Extensions["code"].(string)
	if !ok {
		return ""
	}
	return code
}
