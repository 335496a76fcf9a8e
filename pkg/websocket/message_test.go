package websocket

import (
	"reflect"
	"testing"
)

func TestAssemblerSingleFrameMessage(t *testing.T) {
	a := newAssembler(0, 0)

	msg, err := a.feed(Frame{Fin: true, Opcode: OpcodeText, Payload: []byte("hello")})
	if err != nil {
		t.Fatalf("feed() error = %v", err)
	}
	if msg == nil || msg.Text() != "hello" {
		t.Fatalf("feed() = %+v, want text message %q", msg, "hello")
	}
}

func TestAssemblerFragmentedMessage(t *testing.T) {
	a := newAssembler(0, 0)

	if msg, err := a.feed(Frame{Opcode: OpcodeText, Payload: []byte("hel")}); err != nil || msg != nil {
		t.Fatalf("feed(first) = %+v, %v", msg, err)
	}
	if msg, err := a.feed(Frame{Opcode: OpcodeContinuation, Payload: []byte("lo")}); err != nil || msg != nil {
		t.Fatalf("feed(middle) = %+v, %v", msg, err)
	}
	msg, err := a.feed(Frame{Fin: true, Opcode: OpcodeContinuation, Payload: []byte(" world")})
	if err != nil {
		t.Fatalf("feed(last) error = %v", err)
	}
	if msg == nil || msg.Text() != "hello world" {
		t.Fatalf("feed(last) = %+v, want %q", msg, "hello world")
	}
}

func TestAssemblerInterleavedControlFrame(t *testing.T) {
	a := newAssembler(0, 0)

	if _, err := a.feed(Frame{Opcode: OpcodeText, Payload: []byte("hel")}); err != nil {
		t.Fatalf("feed(first) error = %v", err)
	}

	pingMsg, err := a.feed(Frame{Fin: true, Opcode: OpcodePing, Payload: []byte("ping")})
	if err != nil {
		t.Fatalf("feed(ping) error = %v", err)
	}
	if pingMsg == nil || pingMsg.Opcode != OpcodePing {
		t.Fatalf("feed(ping) = %+v, want a delivered ping", pingMsg)
	}

	msg, err := a.feed(Frame{Fin: true, Opcode: OpcodeContinuation, Payload: []byte("lo")})
	if err != nil {
		t.Fatalf("feed(last) error = %v", err)
	}
	if msg == nil || msg.Text() != "hello" {
		t.Fatalf("feed(last) = %+v, want %q (ping must not disturb the accumulator)", msg, "hello")
	}
}

func TestAssemblerRejectsInvalidSequencing(t *testing.T) {
	tests := []struct {
		name   string
		frames []Frame
	}{
		{
			name:   "continuation_without_start",
			frames: []Frame{{Fin: true, Opcode: OpcodeContinuation}},
		},
		{
			name: "new_data_message_mid_fragment",
			frames: []Frame{
				{Opcode: OpcodeText, Payload: []byte("a")},
				{Fin: true, Opcode: OpcodeBinary, Payload: []byte("b")},
			},
		},
		{
			name:   "fragmented_control_frame",
			frames: []Frame{{Opcode: OpcodePing}},
		},
		{
			name:   "reserved_bit_set",
			frames: []Frame{{Fin: true, RSV1: true, Opcode: OpcodeText}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAssembler(0, 0)
			var err error
			for _, f := range tt.frames {
				_, err = a.feed(f)
			}
			if err == nil {
				t.Errorf("feed() error = nil, want error")
			}
		})
	}
}

func TestAssemblerEnforcesLimits(t *testing.T) {
	t.Run("too_many_fragments", func(t *testing.T) {
		a := newAssembler(0, 1)
		if _, err := a.feed(Frame{Opcode: OpcodeText, Payload: []byte("a")}); err != nil {
			t.Fatalf("feed(first) error = %v", err)
		}
		if _, err := a.feed(Frame{Opcode: OpcodeContinuation, Payload: []byte("b")}); err == nil {
			t.Errorf("feed() error = nil, want too-many-fragments error")
		}
	})

	t.Run("message_too_large", func(t *testing.T) {
		a := newAssembler(4, 0)
		if _, err := a.feed(Frame{Opcode: OpcodeText, Payload: []byte("abcd")}); err != nil {
			t.Fatalf("feed(first) error = %v", err)
		}
		if _, err := a.feed(Frame{Fin: true, Opcode: OpcodeContinuation, Payload: []byte("e")}); err == nil {
			t.Errorf("feed() error = nil, want message-too-large error")
		}
	})
}

func TestAssemblerRejectsInvalidUTF8(t *testing.T) {
	a := newAssembler(0, 0)
	if _, err := a.feed(Frame{Fin: true, Opcode: OpcodeText, Payload: []byte{0xff, 0xfe}}); err == nil {
		t.Errorf("feed() error = nil, want Utf8Error")
	} else if _, ok := err.(*Utf8Error); !ok {
		t.Errorf("feed() error type = %T, want *Utf8Error", err)
	}
}

func TestParseClosePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    *ClosePayload
		wantErr bool
	}{
		{name: "empty", payload: nil, want: nil},
		{name: "too_short", payload: []byte{0x03}, wantErr: true},
		{
			name:    "status_only",
			payload: []byte{0x03, 0xe8},
			want:    &ClosePayload{StatusCode: StatusNormalClosure},
		},
		{
			name:    "status_and_reason",
			payload: []byte{0x03, 0xe8, 'b', 'y', 'e'},
			want:    &ClosePayload{StatusCode: StatusNormalClosure, Reason: "bye"},
		},
		{
			name:    "invalid_utf8_reason",
			payload: []byte{0x03, 0xe8, 0xff, 0xfe},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClosePayload(tt.payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseClosePayload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseClosePayload() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDisassembleAndMessageSize(t *testing.T) {
	msg := Message{Opcode: OpcodeClose, Close: &ClosePayload{StatusCode: StatusGoingAway, Reason: "bye"}}

	f, err := disassemble(msg)
	if err != nil {
		t.Fatalf("disassemble() error = %v", err)
	}
	if f.Opcode != OpcodeClose || !f.Fin {
		t.Errorf("disassemble() = %+v, want FIN close frame", f)
	}
	if len(f.Payload) != 2+len("bye") {
		t.Errorf("disassemble() payload len = %d, want %d", len(f.Payload), 2+len("bye"))
	}

	size, err := MessageSize(msg, true)
	if err != nil {
		t.Fatalf("MessageSize() error = %v", err)
	}
	if want := FrameSize(len(f.Payload), true); size != want {
		t.Errorf("MessageSize() = %d, want %d", size, want)
	}
}

func TestEncodeClosePayloadRejectsOverlongReason(t *testing.T) {
	reason := make([]byte, MaxControlFramePayload)
	_, err := encodeClosePayload(&ClosePayload{Reason: string(reason)})
	if err == nil {
		t.Errorf("encodeClosePayload() error = nil, want error")
	}
}
