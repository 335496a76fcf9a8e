package websocket

import "strconv"

// StatusCode indicates a reason for the closure of an established
// WebSocket connection, as defined in
// https://datatracker.ietf.org/doc/html/rfc6455#section-7.4.
//
// See also https://www.iana.org/assignments/websocket/websocket.xhtml#close-code-number.
//
// Other status code ranges:
//   - 0-999: not used
//   - 3000-3999: reserved for use by libraries, frameworks, and applications
//   - 4000-4999: reserved for private use and thus can't be registered
type StatusCode uint16

const (
	// StatusNormalClosure: the purpose for which the connection was
	// established has been fulfilled.
	StatusNormalClosure StatusCode = iota + 1000
	// StatusGoingAway: an endpoint is "going away", such as a server
	// going down or a browser having navigated away from a page.
	StatusGoingAway
	// StatusProtocolError: an endpoint is terminating the connection due
	// to a protocol error. This package does not send it by itself when it
	// observes a [ProtocolError]; callers pass it to [Conn.Close].
	StatusProtocolError
	// StatusUnsupportedData: an endpoint is terminating the connection
	// because it has received a type of data it cannot accept.
	StatusUnsupportedData
	_ // 1004: reserved, meaning undefined.
	// StatusNotReceived is a reserved value: it MUST NOT be set as a
	// status code in a Close frame sent on the wire. It is designated for
	// use in applications expecting a status code to indicate that no
	// status code was actually present.
	StatusNotReceived
	// StatusClosedAbnormally is a reserved value: it MUST NOT be set as a
	// status code in a Close frame sent on the wire. It is designated for
	// use in applications expecting a status code to indicate that the
	// connection was closed abnormally, e.g. without a Close frame.
	StatusClosedAbnormally
	// StatusInvalidData: an endpoint is terminating the connection
	// because it received data within a message inconsistent with the
	// type of the message (e.g. non-UTF-8 data within a text message).
	StatusInvalidData
	// StatusPolicyViolation: a generic status code used when no more
	// specific one applies.
	StatusPolicyViolation
	// StatusMessageTooBig: an endpoint is terminating the connection
	// because it received a message too big to process.
	StatusMessageTooBig
	// StatusMandatoryExtension: a client is terminating the connection
	// because the server didn't negotiate a required extension.
	StatusMandatoryExtension
	// StatusInternalError: a remote endpoint encountered an unexpected
	// condition that prevented it from fulfilling the request.
	StatusInternalError
	// StatusServiceRestart: see the IANA registry.
	StatusServiceRestart
	// StatusTryAgainLater: see the IANA registry.
	StatusTryAgainLater
	// StatusBadGateway: see the IANA registry.
	StatusBadGateway
	// StatusTLSHandshake is a reserved value: it MUST NOT be set as a
	// status code in a Close frame sent on the wire. It is designated for
	// use in applications expecting a status code to indicate that the
	// connection was closed due to a failure to perform a TLS handshake.
	StatusTLSHandshake
)

// String returns the status code's name, or its numeric value if
// unrecognized.
func (s StatusCode) String() string {
	switch s {
	case StatusNormalClosure:
		return "normal closure"
	case StatusGoingAway:
		return "going away"
	case StatusProtocolError:
		return "protocol error"
	case StatusUnsupportedData:
		return "unsupported data"
	case StatusNotReceived:
		return "status not received"
	case StatusClosedAbnormally:
		return "closed abnormally"
	case StatusInvalidData:
		return "invalid data"
	case StatusPolicyViolation:
		return "policy violation"
	case StatusMessageTooBig:
		return "message too big"
	case StatusMandatoryExtension:
		return "expected extension negotiation"
	case StatusInternalError:
		return "internal error"
	case StatusServiceRestart:
		return "service restart"
	case StatusTryAgainLater:
		return "try again later"
	case StatusBadGateway:
		return "bad gateway"
	case StatusTLSHandshake:
		return "TLS handshake"
	default:
		return strconv.Itoa(int(s))
	}
}
