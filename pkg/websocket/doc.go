// Package websocket is a lightweight, dependency-light implementation of
// the WebSocket protocol (RFC 6455), usable from either side of a
// connection: as the client that initiates the opening handshake, or as
// the server that accepts it.
//
// It focuses on the protocol's hard parts: bit-exact frame (de)serialization
// and masking, fragmentation and reassembly of frames into whole messages,
// and the HTTP upgrade handshake (both directions) including subprotocol
// negotiation. It deliberately stays out of TLS setup, socket/listener
// management, and any particular concurrency runtime: callers supply an
// already-established byte stream (for example a [net.Conn] or a TLS
// session) and this package frames/reassembles messages over it.
//
// A [Conn] is split into two independent halves with [Conn.Split] when the
// underlying stream supports half-closing; afterwards only the returned
// [Reader] and [Writer] may be used, and the original [Conn] is consumed.
//
// This package does not auto-respond to Ping frames with Pong, and does
// not auto-echo a received Close frame: callers are expected to do both
// explicitly (see [Conn.AutoEcho] for an opt-in convenience helper). This
// mirrors the protocol's own requirements rather than hiding them.
//
// Permessage-deflate ([RFC 7692]) and other WebSocket extensions are not
// implemented: [Extension] tokens are carried through the handshake
// headers for negotiation purposes only, and [Conn.RecvMessage] rejects
// any frame with an RSV bit set with a [ProtocolError] ([Conn.RecvDataFrame]
// returns such frames as they are).
//
// [RFC 7692]: https://datatracker.ietf.org/doc/html/rfc7692
package websocket
