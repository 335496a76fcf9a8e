package websocket

import (
	"bufio"
	"fmt"
	"net/http"
	"sort"
)

// UpgradeOptions configures [Upgrade]. All fields are optional.
type UpgradeOptions struct {
	// CheckOrigin decides whether to accept the request's Origin header.
	// nil accepts every origin: the core only forwards the Origin header
	// through to the caller, it never enforces an origin policy itself.
	CheckOrigin func(*http.Request) bool

	// Subprotocols lists the server's supported subprotocols, in order of
	// preference; the first one also requested by the client is selected
	// via [SelectProtocol].
	Subprotocols []string

	// ExtraHeaders are added to the 101 response.
	ExtraHeaders http.Header

	// ConnOptions are passed through to [NewConn].
	ConnOptions []ConnOption
}

// Upgrade accepts an already-read HTTP request from an external net/http
// server and completes the server-side handshake on the request's
// underlying byte stream, per
// https://datatracker.ietf.org/doc/html/rfc6455#section-4.2. On success it
// hijacks the connection and returns a [Conn] in [RoleServer].
func Upgrade(w http.ResponseWriter, r *http.Request, opts *UpgradeOptions) (*Conn, error) {
	if opts == nil {
		opts = &UpgradeOptions{}
	}

	if err := ValidateRequest(r); err != nil {
		return nil, err
	}

	if opts.CheckOrigin != nil && !opts.CheckOrigin(r) {
		return nil, newRequestError("origin not allowed")
	}

	protocol := SelectProtocol(r, opts.Subprotocols)

	hj, ok := w.(http.Hijacker)
	if !ok {
		return nil, newIoError("upgrade", fmt.Errorf("response writer does not support hijacking"))
	}

	netConn, bufrw, err := hj.Hijack()
	if err != nil {
		return nil, newIoError("hijack connection", err)
	}

	headers := AcceptHeaders(r, protocol, opts.ExtraHeaders)
	if err := writeResponseLine(bufrw.Writer, http.StatusSwitchingProtocols, headers); err != nil {
		_ = netConn.Close()
		return nil, err
	}
	if err := bufrw.Flush(); err != nil {
		_ = netConn.Close()
		return nil, newIoError("flush upgrade response", err)
	}

	// The HTTP server's own reader may have buffered bytes past the
	// request headers before hijacking; those bytes belong to the
	// WebSocket stream and must be fed to the frame codec first.
	var buffered []byte
	if n := bufrw.Reader.Buffered(); n > 0 {
		buffered, _ = bufrw.Reader.Peek(n)
		buffered = append([]byte(nil), buffered...)
	}

	opts.ConnOptions = append(opts.ConnOptions, WithPrebuffered(buffered))
	return NewConn(netConn, RoleServer, opts.ConnOptions...), nil
}

// Reject writes a non-101 HTTP response (400 by default) carrying extra
// headers, and deliberately does not hijack the connection: net/http
// keeps the stream alive for a following request on the same connection.
func Reject(w http.ResponseWriter, status int, extra http.Header) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	h := RejectHeaders(extra)
	for k, vs := range h {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(status)
}

func writeResponseLine(w *bufio.Writer, status int, headers http.Header) error {
	if _, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status)); err != nil {
		return newIoError("write status line", err)
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range headers[k] {
			if _, err := fmt.Fprintf(w, "%s: %s\r\n", k, v); err != nil {
				return newIoError("write header", err)
			}
		}
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return newIoError("write header terminator", err)
	}
	return nil
}
