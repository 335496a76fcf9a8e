package websocket

import (
	"errors"
	"fmt"
)

// NoDataAvailable is returned when the underlying stream reaches a clean
// end-of-stream, or a short read occurs because the peer closed the
// transport mid-frame (the two cases are treated identically: there is no
// way to tell them apart from this side, and both leave the connection
// unusable).
var NoDataAvailable = errors.New("websocket: no data available")

// ProtocolError reports a wire-format violation committed by the peer:
// bad opcode sequencing, a fragmented control frame, an oversized frame or
// message, too many fragments, or a reserved bit with no matching
// extension. Once returned from [Conn.RecvMessage] or [Conn.SendMessage],
// the [Conn] is poisoned: see the package-level poisoning rule on [Conn].
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "websocket: protocol error: " + e.Reason }

func newProtocolError(reason string) error { return &ProtocolError{Reason: reason} }

// DataFrameError reports a local or remote frame-encoding fault: an
// invalid opcode, a control frame whose payload is too long, an invalid
// minimal-length encoding, or a frame received in violation of the
// endpoint's masking-direction rule.
type DataFrameError struct {
	Reason string
}

func (e *DataFrameError) Error() string { return "websocket: data frame error: " + e.Reason }

func newDataFrameError(reason string) error { return &DataFrameError{Reason: reason} }

// RequestError reports that an HTTP request presented to [ValidateRequest]
// is not a valid WebSocket upgrade request.
type RequestError struct {
	Reason string
}

func (e *RequestError) Error() string { return "websocket: request error: " + e.Reason }

func newRequestError(reason string) error { return &RequestError{Reason: reason} }

// ResponseError reports that an HTTP response presented to
// [ValidateResponse] is not a valid WebSocket handshake acceptance.
type ResponseError struct {
	Reason string
}

func (e *ResponseError) Error() string { return "websocket: response error: " + e.Reason }

func newResponseError(reason string) error { return &ResponseError{Reason: reason} }

// Utf8Error reports that a text message payload failed UTF-8 validation,
// either as a complete assembled text message or as the reason string of
// a close frame.
type Utf8Error struct {
	Err error
}

func (e *Utf8Error) Error() string { return "websocket: invalid utf-8: " + e.Err.Error() }
func (e *Utf8Error) Unwrap() error { return e.Err }

func newUtf8Error(reason string) error {
	return &Utf8Error{Err: errors.New(reason)}
}

// IoError wraps an underlying byte-stream failure (anything other than a
// clean end-of-stream, which is reported as [NoDataAvailable]).
type IoError struct {
	Err error
}

func (e *IoError) Error() string { return "websocket: io error: " + e.Err.Error() }
func (e *IoError) Unwrap() error { return e.Err }

func newIoError(op string, err error) error {
	return &IoError{Err: fmt.Errorf("%s: %w", op, err)}
}

// WebSocketURLError reports that a URL could not be used to establish a
// WebSocket connection: an unsupported scheme, or a fragment component
// (which RFC 6455 forbids in a WebSocket URL).
type WebSocketURLError struct {
	Kind string // "InvalidScheme" or "CannotSetFragment"
	URL  string
}

func (e *WebSocketURLError) Error() string {
	return fmt.Sprintf("websocket: invalid url %q: %s", e.URL, e.Kind)
}

// UrlError wraps a lower-level URL parsing failure (e.g. from
// [net/url.Parse]) that precedes any WebSocket-specific validation.
type UrlError struct { //nolint:revive // "Url" rather than "URL", matching the historical net/url.Error name.
	Err error
}

func (e *UrlError) Error() string { return "websocket: url error: " + e.Err.Error() }
func (e *UrlError) Unwrap() error { return e.Err }
