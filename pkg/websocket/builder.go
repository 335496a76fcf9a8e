package websocket

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Builder provides fluent, incremental configuration of a client endpoint
// before connecting, exposing subprotocols, extensions, a key override, a
// version override, origin, and custom headers. Every additive option has
// a matching "Clear" method to undo it.
type Builder struct {
	rawURL string
	cfg    ClientHandshakeConfig

	httpClient *http.Client
}

// NewBuilder starts building a client endpoint targeting rawURL ("ws://"
// or "wss://").
func NewBuilder(rawURL string) *Builder {
	return &Builder{rawURL: rawURL}
}

// AddProtocol appends one subprotocol to the "Sec-WebSocket-Protocol"
// list.
func (b *Builder) AddProtocol(name string) *Builder {
	b.cfg.Protocols = append(b.cfg.Protocols, name)
	return b
}

// AddProtocols appends multiple subprotocols at once.
func (b *Builder) AddProtocols(names ...string) *Builder {
	b.cfg.Protocols = append(b.cfg.Protocols, names...)
	return b
}

// ClearProtocols drops every subprotocol configured so far.
func (b *Builder) ClearProtocols() *Builder {
	b.cfg.Protocols = nil
	return b
}

// AddExtension appends one extension token to
// "Sec-WebSocket-Extensions".
func (b *Builder) AddExtension(ext Extension) *Builder {
	b.cfg.Extensions = append(b.cfg.Extensions, ext)
	return b
}

// AddExtensions appends multiple extension tokens at once.
func (b *Builder) AddExtensions(exts ...Extension) *Builder {
	b.cfg.Extensions = append(b.cfg.Extensions, exts...)
	return b
}

// ClearExtensions drops every extension configured so far.
func (b *Builder) ClearExtensions() *Builder {
	b.cfg.Extensions = nil
	return b
}

// Key overrides the randomly generated nonce with a fixed 16-byte value,
// for deterministic tests.
func (b *Builder) Key(key [16]byte) *Builder {
	k := make([]byte, 16)
	copy(k, key[:])
	b.cfg.Key = k
	return b
}

// ClearKey removes a previously set nonce override, reverting to random
// generation.
func (b *Builder) ClearKey() *Builder {
	b.cfg.Key = nil
	return b
}

// Version overrides "Sec-WebSocket-Version" (default "13").
func (b *Builder) Version(v string) *Builder {
	b.cfg.Version = v
	return b
}

// ClearVersion removes a previously set version override.
func (b *Builder) ClearVersion() *Builder {
	b.cfg.Version = ""
	return b
}

// Origin sets the "Origin" header.
func (b *Builder) Origin(origin string) *Builder {
	b.cfg.Origin = origin
	return b
}

// CustomHeaders gives the caller direct access to mutate the request's
// headers before it is sent.
func (b *Builder) CustomHeaders(edit func(http.Header)) *Builder {
	if b.cfg.Headers == nil {
		b.cfg.Headers = http.Header{}
	}
	edit(b.cfg.Headers)
	return b
}

// ConnectInsecure performs the client handshake over a plain (non-TLS)
// connection, failing if the URL scheme requires TLS ("wss").
func (b *Builder) ConnectInsecure(ctx context.Context) (*Conn, error) {
	resolved, err := ParseURL(b.rawURL)
	if err != nil {
		return nil, err
	}
	if resolved.Secure {
		return nil, newRequestError("ConnectInsecure called with a wss:// URL")
	}
	return b.connect(ctx, resolved, nil)
}

// ConnectSecure performs the client handshake over a TLS connection using
// tlsConfig, failing if the URL scheme is not "wss".
func (b *Builder) ConnectSecure(ctx context.Context, tlsConfig *tls.Config) (*Conn, error) {
	resolved, err := ParseURL(b.rawURL)
	if err != nil {
		return nil, err
	}
	if !resolved.Secure {
		return nil, newRequestError("ConnectSecure called with a ws:// URL")
	}
	return b.connect(ctx, resolved, tlsConfig)
}

// Connect dials using TLS or not according to the URL's scheme.
func (b *Builder) Connect(ctx context.Context) (*Conn, error) {
	resolved, err := ParseURL(b.rawURL)
	if err != nil {
		return nil, err
	}
	var tlsConfig *tls.Config
	if resolved.Secure {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return b.connect(ctx, resolved, tlsConfig)
}

func (b *Builder) connect(ctx context.Context, resolved ResolvedURL, tlsConfig *tls.Config) (*Conn, error) {
	client := b.httpClient
	if client == nil {
		client = adjustedHTTPClient(tlsConfig)
	}

	req, nonce, err := BuildRequest(ctx, resolved, b.cfg)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, newIoError("send handshake request", err)
	}
	if err := ValidateResponse(resp, nonce); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}

	stream, ok := resp.Body.(io.ReadWriteCloser)
	if !ok {
		_ = resp.Body.Close()
		return nil, newIoError("handshake response body", errNotReadWriteCloser)
	}

	return NewConn(stream, RoleClient), nil
}

var errNotReadWriteCloser = fmt.Errorf("response body does not implement io.ReadWriteCloser")

// adjustedHTTPClient builds a short-lived [http.Client] whose
// CheckRedirect rewrites "ws"/"wss" redirect targets to "http"/"https",
// and whose Transport carries tlsConfig when set.
func adjustedHTTPClient(tlsConfig *tls.Config) *http.Client {
	transport := &http.Transport{
		TLSClientConfig:     tlsConfig,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, _ []*http.Request) error {
			switch req.URL.Scheme {
			case "ws":
				req.URL.Scheme = "http"
			case "wss":
				req.URL.Scheme = "https"
			}
			return nil
		},
	}
}
