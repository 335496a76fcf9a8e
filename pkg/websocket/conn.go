package websocket

import (
	"bytes"
	"io"
	"sync"
	"sync/atomic"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog"
)

// Role fixes an endpoint's masking direction, as required by
// https://datatracker.ietf.org/doc/html/rfc6455#section-5.3: a Client
// must mask every outgoing frame and must reject masked incoming frames;
// a Server is the mirror image. The role is set once, at construction
// time, and never changes for the lifetime of a [Conn].
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

type connState int32

const (
	stateOpen connState = iota
	stateCloseSent
	stateCloseReceived
	stateClosed
)

// ByteStream is the abstract byte-stream contract the endpoint facade is
// built against: anything that can be read from, written to, and closed
// (a [net.Conn], a TLS session, or a test double).
type ByteStream interface {
	io.Reader
	io.Writer
	io.Closer
}

// HalfCloser is implemented by byte streams whose read and write
// directions can be shut down independently (e.g. TCP sockets, but not
// most TLS sessions). [Conn.Split] requires it.
type HalfCloser interface {
	CloseRead() error
	CloseWrite() error
}

// Conn is a bidirectional WebSocket endpoint: it owns a [ByteStream]
// exclusively and exposes whole-message send/receive on top of the
// frame/assembler codecs.
//
// Once [Conn.RecvMessage] or [Conn.SendMessage] observes a [ProtocolError],
// [DataFrameError], or [Utf8Error], the Conn is poisoned: every subsequent
// call returns that same error.
type Conn struct {
	ID     string
	Role   Role
	logger zerolog.Logger

	stream ByteStream
	reader io.Reader

	writeMu sync.Mutex

	asmMu sync.Mutex
	asm   *assembler

	maxFrameSize   uint64
	maxMessageSize uint64
	maxFragments   int

	state  atomic.Int32
	poison atomic.Pointer[error]

	consumed bool // true once Split has transferred ownership away.
}

// ConnOption configures a [Conn] at construction time.
type ConnOption func(*Conn)

// WithMaxFrameSize overrides the default 100 MiB per-frame limit.
func WithMaxFrameSize(n uint64) ConnOption {
	return func(c *Conn) { c.maxFrameSize = n }
}

// WithMaxMessageSize overrides the default 200 MiB per-message limit.
func WithMaxMessageSize(n uint64) ConnOption {
	return func(c *Conn) { c.maxMessageSize = n }
}

// WithMaxFragments overrides the default 1,048,576 frames-per-message
// limit.
func WithMaxFragments(n int) ConnOption {
	return func(c *Conn) { c.maxFragments = n }
}

// WithLogger attaches a structured logger; the zero value is
// [zerolog.Nop].
func WithLogger(l zerolog.Logger) ConnOption {
	return func(c *Conn) { c.logger = l }
}

// WithPrebuffered seeds the Conn's read side with bytes an HTTP parser
// already consumed past the handshake response/request headers. Those
// bytes must be replayed to the frame codec before reading more from the
// underlying stream, or the first frames after the handshake are lost.
func WithPrebuffered(b []byte) ConnOption {
	return func(c *Conn) {
		if len(b) > 0 {
			c.reader = io.MultiReader(bytes.NewReader(b), c.stream)
		}
	}
}

// NewConn constructs an endpoint over an already-established stream, in
// the given role. [Builder.Connect] (client handshake) and [Upgrade]
// (server handshake) perform the handshake and then call this themselves.
func NewConn(stream ByteStream, role Role, opts ...ConnOption) *Conn {
	c := &Conn{
		ID:             shortuuid.New(),
		Role:           role,
		logger:         zerolog.Nop(),
		stream:         stream,
		reader:         stream,
		maxFrameSize:   DefaultMaxFrameSize,
		maxMessageSize: DefaultMaxMessageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.asm = newAssembler(c.maxMessageSize, c.maxFragments)
	return c
}

func (c *Conn) getPoison() error {
	p := c.poison.Load()
	if p == nil {
		return nil
	}
	return *p
}

func (c *Conn) poisonWith(err error) error {
	c.poison.CompareAndSwap(nil, &err)
	return err
}

func (c *Conn) connState() connState { return connState(c.state.Load()) }

// IsClosed reports whether both directions of the closing handshake have
// completed.
func (c *Conn) IsClosed() bool { return c.connState() == stateClosed }

// IsClosing reports whether either direction of the closing handshake has
// started.
func (c *Conn) IsClosing() bool { return c.connState() != stateOpen }

// SendMessage synchronously serializes and writes one whole message as a
// single frame (see [disassemble]). It blocks the calling goroutine until
// the write completes; no internal goroutine is spawned.
func (c *Conn) SendMessage(m Message) error {
	if err := c.getPoison(); err != nil {
		return err
	}
	if c.connState() == stateClosed {
		return NoDataAvailable
	}

	f, err := disassemble(m)
	if err != nil {
		return c.poisonIfTerminal(err)
	}
	if uint64(len(f.Payload)) > c.maxFrameSize {
		return c.poisonIfTerminal(newDataFrameError("message exceeds frame size limit"))
	}

	if err := c.SendDataFrame(f); err != nil {
		return err
	}

	if m.Opcode == OpcodeClose {
		c.advanceCloseSent()
	}
	return nil
}

// SendDataFrame writes a single raw frame, for callers implementing their
// own fragmentation or extensions on top of the codec.
func (c *Conn) SendDataFrame(f Frame) error {
	if err := c.getPoison(); err != nil {
		return err
	}
	if c.connState() == stateClosed {
		return NoDataAvailable
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := WriteFrame(c.stream, c.Role, f); err != nil {
		return c.poisonIfTerminal(err)
	}
	return nil
}

// RecvMessage drives frame reads until a complete message is assembled by
// the fragmentation state machine, and returns it. It blocks the calling
// goroutine; no internal goroutine is spawned.
func (c *Conn) RecvMessage() (Message, error) {
	if err := c.getPoison(); err != nil {
		return Message{}, err
	}
	if c.connState() == stateClosed {
		return Message{}, NoDataAvailable
	}

	for {
		f, err := c.RecvDataFrame()
		if err != nil {
			return Message{}, err
		}

		c.asmMu.Lock()
		msg, err := c.asm.feed(f)
		c.asmMu.Unlock()
		if err != nil {
			return Message{}, c.poisonIfTerminal(err)
		}
		if msg == nil {
			continue
		}

		if msg.Opcode == OpcodeClose {
			c.advanceCloseReceived()
		}
		return *msg, nil
	}
}

// RecvDataFrame reads a single raw frame without feeding it through the
// message assembler, for callers implementing their own fragmentation or
// extensions on top of the codec.
func (c *Conn) RecvDataFrame() (Frame, error) {
	if err := c.getPoison(); err != nil {
		return Frame{}, err
	}
	if c.connState() == stateClosed {
		return Frame{}, NoDataAvailable
	}

	f, err := ReadFrame(c.reader, c.Role, c.maxFrameSize)
	if err != nil {
		return Frame{}, c.poisonIfTerminal(err)
	}
	return f, nil
}

// poisonIfTerminal poisons the connection for the error classes that leave
// the frame stream in an indeterminate state (protocol violations, frame
// encoding faults, invalid UTF-8), and leaves everything else
// (NoDataAvailable, IoError) un-poisoned since those may be recoverable
// by the caller reconstructing the stream.
func (c *Conn) poisonIfTerminal(err error) error {
	switch err.(type) {
	case *ProtocolError, *DataFrameError, *Utf8Error:
		return c.poisonWith(err)
	default:
		return err
	}
}

func (c *Conn) advanceCloseSent() {
	for {
		cur := c.connState()
		var next connState
		switch cur {
		case stateOpen:
			next = stateCloseSent
		case stateCloseReceived:
			next = stateClosed
		default:
			return
		}
		if c.state.CompareAndSwap(int32(cur), int32(next)) {
			return
		}
	}
}

func (c *Conn) advanceCloseReceived() {
	for {
		cur := c.connState()
		var next connState
		switch cur {
		case stateOpen:
			next = stateCloseReceived
		case stateCloseSent:
			next = stateClosed
		default:
			return
		}
		if c.state.CompareAndSwap(int32(cur), int32(next)) {
			return
		}
	}
}

// AutoEcho is an opt-in convenience layered on top of the core: it sends
// a Close message back in response to msg if msg is a Close message and
// this side has not already sent one. The core never echoes a Close
// automatically; this helper exists for callers who want it anyway.
func (c *Conn) AutoEcho(msg Message) error {
	if msg.Opcode != OpcodeClose {
		return nil
	}
	if c.connState() == stateCloseSent || c.connState() == stateClosed {
		return nil
	}

	cp := msg.Close
	if cp == nil {
		cp = &ClosePayload{StatusCode: StatusNormalClosure}
	}
	return c.SendMessage(Message{Opcode: OpcodeClose, Close: cp})
}

// Close is a convenience that sends a Close frame with the given status
// and no reason, then marks the local closing-handshake step done.
func (c *Conn) Close(status StatusCode) error {
	return c.SendMessage(Message{Opcode: OpcodeClose, Close: &ClosePayload{StatusCode: status}})
}

// Reader is the read half of a split [Conn]: it exclusively owns the
// message assembler's accumulator buffer.
type Reader struct {
	conn *Conn
}

// RecvMessage behaves like [Conn.RecvMessage].
func (r *Reader) RecvMessage() (Message, error) { return r.conn.RecvMessage() }

// RecvDataFrame behaves like [Conn.RecvDataFrame].
func (r *Reader) RecvDataFrame() (Frame, error) { return r.conn.RecvDataFrame() }

// Writer is the write half of a split [Conn]: it exclusively owns the
// role flag that decides whether outgoing frames are masked.
type Writer struct {
	conn *Conn
}

// SendMessage behaves like [Conn.SendMessage].
func (w *Writer) SendMessage(m Message) error { return w.conn.SendMessage(m) }

// SendDataFrame behaves like [Conn.SendDataFrame].
func (w *Writer) SendDataFrame(f Frame) error { return w.conn.SendDataFrame(f) }

// Split transfers sole ownership of the read half and write half of c to
// two independent handles; c must not be used again afterwards. It fails
// with an [IoError] if the underlying stream does not support
// half-closing (see [HalfCloser]).
func (c *Conn) Split() (*Reader, *Writer, error) {
	if c.consumed {
		return nil, nil, newIoError("split", io.ErrClosedPipe)
	}
	if _, ok := c.stream.(HalfCloser); !ok {
		return nil, nil, newIoError("split", errUnsplittableStream)
	}

	c.consumed = true
	return &Reader{conn: c}, &Writer{conn: c}, nil
}

var errUnsplittableStream = ioErrUnsplittable{}

type ioErrUnsplittable struct{}

func (ioErrUnsplittable) Error() string {
	return "underlying stream does not support half-closing"
}
