package websocket

import "net/url"

// ResolvedURL is the decomposed form of a "ws://" or "wss://" URL that the
// handshake engine needs: the host to connect to, the port to use, the
// HTTP resource (path + query) to request, and whether the connection
// should be secured with TLS.
type ResolvedURL struct {
	Host     string
	Port     string
	Resource string
	Secure   bool
}

// ParseURL parses a WebSocket URL ("ws://..." or "wss://...") into its
// connection components, per
// https://datatracker.ietf.org/doc/html/rfc6455#section-3.
func ParseURL(raw string) (ResolvedURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ResolvedURL{}, &UrlError{Err: err}
	}

	var secure bool
	switch u.Scheme {
	case "ws":
		secure = false
	case "wss":
		secure = true
	default:
		return ResolvedURL{}, &WebSocketURLError{Kind: "InvalidScheme", URL: raw}
	}

	if u.Fragment != "" {
		return ResolvedURL{}, &WebSocketURLError{Kind: "CannotSetFragment", URL: raw}
	}

	port := u.Port()
	if port == "" {
		if secure {
			port = "443"
		} else {
			port = "80"
		}
	}

	resource := u.EscapedPath()
	if resource == "" {
		resource = "/"
	}
	if u.RawQuery != "" {
		resource += "?" + u.RawQuery
	}

	return ResolvedURL{
		Host:     u.Hostname(),
		Port:     port,
		Resource: resource,
		Secure:   secure,
	}, nil
}
