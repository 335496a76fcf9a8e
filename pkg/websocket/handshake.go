package websocket

import (
	"context"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // Required by RFC 6455, not used for cryptographic security.
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// acceptGUID is the magic constant from
// https://datatracker.ietf.org/doc/html/rfc6455#section-1.3.
const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// protocolVersion is the only WebSocket protocol version this package
// speaks, per https://datatracker.ietf.org/doc/html/rfc6455#section-4.4.
const protocolVersion = "13"

// AcceptToken computes the value of the "Sec-WebSocket-Accept" response
// header from the client's "Sec-WebSocket-Key" nonce, as defined in
// https://datatracker.ietf.org/doc/html/rfc6455#section-1.3 and
// https://datatracker.ietf.org/doc/html/rfc6455#section-4.2.2.
func AcceptToken(nonce string) string {
	h := sha1.New() //nolint:gosec // Required by RFC 6455.
	h.Write([]byte(nonce))
	h.Write([]byte(acceptGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Extension describes one negotiated WebSocket extension token: a name
// plus an ordered parameter list, as in
// https://datatracker.ietf.org/doc/html/rfc6455#section-9.1. The core
// carries extension tokens through the handshake without interpreting or
// implementing any extension itself.
type Extension struct {
	Name   string
	Params []string
}

func (e Extension) String() string {
	if len(e.Params) == 0 {
		return e.Name
	}
	return e.Name + "; " + strings.Join(e.Params, "; ")
}

func joinExtensions(exts []Extension) string {
	parts := make([]string, len(exts))
	for i, e := range exts {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// ClientHandshakeConfig configures [BuildRequest]. The zero value builds a
// minimal, valid handshake request (random nonce, current protocol
// version, no subprotocols/extensions/custom headers).
type ClientHandshakeConfig struct {
	Protocols  []string
	Extensions []Extension
	Origin     string
	Headers    http.Header

	// Key overrides the randomly generated nonce, for deterministic
	// tests. Leave nil to generate one from NonceSource.
	Key []byte
	// Version overrides "Sec-WebSocket-Version" (default "13").
	Version string
	// NonceSource supplies the 16 random bytes for the nonce when Key is
	// nil. Defaults to crypto/rand.Reader.
	NonceSource io.Reader
}

// BuildRequest builds the HTTP/1.1 GET upgrade request for resolved, the
// client-side handshake step defined in
// https://datatracker.ietf.org/doc/html/rfc6455#section-4.1. It returns
// the request and the nonce used, which the caller must retain to later
// call [ValidateResponse].
func BuildRequest(ctx context.Context, resolved ResolvedURL, cfg ClientHandshakeConfig) (*http.Request, string, error) {
	nonce, err := resolveNonce(cfg.Key, cfg.NonceSource)
	if err != nil {
		return nil, "", err
	}

	scheme := "http"
	if resolved.Secure {
		scheme = "https"
	}
	target := fmt.Sprintf("%s://%s:%s%s", scheme, resolved.Host, resolved.Port, resolved.Resource)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", &UrlError{Err: err}
	}

	if cfg.Headers != nil {
		req.Header = cfg.Headers.Clone()
	} else {
		req.Header = http.Header{}
	}

	version := cfg.Version
	if version == "" {
		version = protocolVersion
	}

	req.Header.Set("Host", resolved.Host)
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Sec-WebSocket-Version", version)
	req.Header.Set("Sec-WebSocket-Key", nonce)

	if len(cfg.Protocols) > 0 {
		req.Header.Set("Sec-WebSocket-Protocol", strings.Join(cfg.Protocols, ", "))
	}
	if len(cfg.Extensions) > 0 {
		req.Header.Set("Sec-WebSocket-Extensions", joinExtensions(cfg.Extensions))
	}
	if cfg.Origin != "" {
		req.Header.Set("Origin", cfg.Origin)
	}

	return req, nonce, nil
}

func resolveNonce(key []byte, src io.Reader) (string, error) {
	if key != nil {
		if len(key) != 16 {
			return "", newRequestError("nonce override must be 16 bytes")
		}
		return base64.StdEncoding.EncodeToString(key), nil
	}

	if src == nil {
		src = rand.Reader
	}
	b := make([]byte, 16)
	if _, err := io.ReadFull(src, b); err != nil {
		return "", newIoError("generate handshake nonce", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// ValidateResponse checks a server's handshake response against the nonce
// sent in the matching request, per
// https://datatracker.ietf.org/doc/html/rfc6455#section-4.2.2.
func ValidateResponse(resp *http.Response, nonce string) error {
	if resp.StatusCode != http.StatusSwitchingProtocols {
		return newResponseError("status must be Switching Protocols")
	}
	if !headerContainsToken(resp.Header.Get("Upgrade"), "websocket") {
		return newResponseError("upgrade missing")
	}
	if !headerContainsToken(resp.Header.Get("Connection"), "upgrade") {
		return newResponseError("connection missing")
	}
	if resp.Header.Get("Sec-WebSocket-Accept") != AcceptToken(nonce) {
		return newResponseError("invalid accept")
	}
	return nil
}

// ValidateRequest checks an incoming HTTP request against the
// requirements for a WebSocket upgrade, per
// https://datatracker.ietf.org/doc/html/rfc6455#section-4.2.1. A missing
// "Sec-WebSocket-Version" is accepted and treated as version 13: a
// deliberate, documented deviation from a strict reading of RFC 6455.
func ValidateRequest(r *http.Request) error {
	if r.Method != http.MethodGet {
		return newRequestError("method not GET")
	}
	if !requestVersionAtLeast11(r) {
		return newRequestError("unsupported http version")
	}
	if v := r.Header.Get("Sec-WebSocket-Version"); v != "" && v != protocolVersion {
		return newRequestError("unsupported websocket version")
	}
	if r.Header.Get("Sec-WebSocket-Key") == "" {
		return newRequestError("missing Sec-WebSocket-Key")
	}
	if !headerContainsToken(r.Header.Get("Upgrade"), "websocket") {
		return newRequestError("missing Upgrade header")
	}
	if !headerContainsToken(r.Header.Get("Connection"), "upgrade") {
		return newRequestError("missing Connection header")
	}
	return nil
}

func requestVersionAtLeast11(r *http.Request) bool {
	return r.ProtoAtLeast(1, 1)
}

// AcceptHeaders builds the response headers for a successful upgrade
// (status 101), selecting selectedProtocol (empty to omit) and merging in
// any caller-supplied extra headers, per
// https://datatracker.ietf.org/doc/html/rfc6455#section-4.2.2.
func AcceptHeaders(r *http.Request, selectedProtocol string, extra http.Header) http.Header {
	h := http.Header{}
	h.Set("Upgrade", "websocket")
	h.Set("Connection", "Upgrade")
	h.Set("Sec-WebSocket-Accept", AcceptToken(r.Header.Get("Sec-WebSocket-Key")))
	if selectedProtocol != "" {
		h.Set("Sec-WebSocket-Protocol", selectedProtocol)
	}
	for k, vs := range extra {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	return h
}

// RejectHeaders builds the response headers for a rejected upgrade
// attempt, leaving the underlying stream reusable by the caller for a
// plain HTTP response instead of tearing the connection down.
func RejectHeaders(extra http.Header) http.Header {
	h := http.Header{}
	for k, vs := range extra {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	return h
}

// SelectProtocol picks the first of the server's supported protocols that
// also appears in the client's requested list, per
// https://datatracker.ietf.org/doc/html/rfc6455#section-1.9. It returns
// "" if there is no match or no client/server protocols at all; the core
// never selects automatically on the caller's behalf beyond this helper.
func SelectProtocol(r *http.Request, serverProtocols []string) string {
	if len(serverProtocols) == 0 {
		return ""
	}
	requested := strings.Split(r.Header.Get("Sec-WebSocket-Protocol"), ",")
	for _, want := range serverProtocols {
		for _, got := range requested {
			if strings.EqualFold(strings.TrimSpace(got), want) {
				return want
			}
		}
	}
	return ""
}

func headerContainsToken(header, token string) bool {
	for _, part := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}
