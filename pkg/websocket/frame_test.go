package websocket

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

// https://datatracker.ietf.org/doc/html/rfc6455#section-5.7
func TestReadHeader(t *testing.T) {
	tests := []struct {
		name    string
		reader  []byte
		want    frameHeader
		wantErr bool
	}{
		{
			name:   "unmasked_text_hello",
			reader: []byte{0x81, 0x05, 0x48, 0x65, 0x6c, 0x6c, 0x6f},
			want:   frameHeader{fin: true, opcode: OpcodeText, payloadLength: 5},
		},
		{
			name:   "masked_text_hello",
			reader: []byte{0x81, 0x85, 0x37, 0xfa, 0x21, 0x3d, 0x7f, 0x9f, 0x4d, 0x51, 0x58},
			want: frameHeader{
				fin: true, opcode: OpcodeText, mask: true,
				maskKey: [4]byte{0x37, 0xfa, 0x21, 0x3d}, payloadLength: 5,
			},
		},
		{
			name:   "first_fragment_unmasked_text_hel",
			reader: []byte{0x01, 0x03, 0x48, 0x65, 0x6c},
			want:   frameHeader{opcode: OpcodeText, payloadLength: 3},
		},
		{
			name:   "unmasked_ping",
			reader: []byte{0x89, 0x05, 0x48, 0x65, 0x6c, 0x6c, 0x6f},
			want:   frameHeader{fin: true, opcode: OpcodePing, payloadLength: 5},
		},
		{
			name:   "256b_unmasked_binary",
			reader: []byte{0x82, 0x7e, 0x01, 0x00},
			want:   frameHeader{fin: true, opcode: OpcodeBinary, payloadLength: 256},
		},
		{
			name:   "64k_unmasked_binary",
			reader: []byte{0x82, 0x7f, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00},
			want:   frameHeader{fin: true, opcode: OpcodeBinary, payloadLength: 65536},
		},
		{
			name:    "overlong_16bit_length_encoding",
			reader:  []byte{0x82, 0x7e, 0x00, 0x7d}, // 125 fits in 7 bits already.
			wantErr: true,
		},
		{
			name:    "overlong_64bit_length_encoding",
			reader:  []byte{0x82, 0x7f, 0, 0, 0, 0, 0, 0, 0xff, 0xff}, // 65535 fits in 16 bits already.
			wantErr: true,
		},
		{
			name:    "fragmented_control_frame",
			reader:  []byte{0x09, 0x00}, // Ping, FIN not set.
			wantErr: true,
		},
		{
			name:    "control_frame_too_long",
			reader:  []byte{0x89, 0x7e, 0x00, 0x7e}, // Ping claiming 126 bytes.
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readHeader(bytes.NewReader(tt.reader))
			if (err != nil) != tt.wantErr {
				t.Fatalf("readHeader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("readHeader() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestWriteHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		h    frameHeader
	}{
		{name: "tiny_unmasked", h: frameHeader{fin: true, opcode: OpcodeText, payloadLength: 5}},
		{name: "tiny_masked", h: frameHeader{
			fin: true, opcode: OpcodeBinary, mask: true,
			maskKey: [4]byte{1, 2, 3, 4}, payloadLength: 10,
		}},
		{name: "16bit_length", h: frameHeader{fin: true, opcode: OpcodeBinary, payloadLength: 300}},
		{name: "64bit_length", h: frameHeader{fin: true, opcode: OpcodeBinary, payloadLength: 1 << 17}},
		{name: "continuation_not_fin", h: frameHeader{opcode: OpcodeContinuation, payloadLength: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeHeader(&buf, tt.h); err != nil {
				t.Fatalf("writeHeader() error = %v", err)
			}

			got, err := readHeader(&buf)
			if err != nil {
				t.Fatalf("readHeader() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.h) {
				t.Errorf("round trip = %+v, want %+v", got, tt.h)
			}
		})
	}
}

func TestWriteHeaderRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		h    frameHeader
	}{
		{name: "opcode_out_of_range", h: frameHeader{opcode: Opcode(0x10)}},
		{name: "control_frame_too_long", h: frameHeader{opcode: OpcodePing, fin: true, payloadLength: 126}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeHeader(&buf, tt.h); err == nil {
				t.Errorf("writeHeader() error = nil, want error")
			}
		})
	}
}

func TestReadFrameEnforcesMaskingDirection(t *testing.T) {
	unmasked := []byte{0x81, 0x05, 'h', 'e', 'l', 'l', 'o'}
	masked := []byte{0x81, 0x85, 0x37, 0xfa, 0x21, 0x3d, 0x7f, 0x9f, 0x4d, 0x51, 0x58}

	if _, err := ReadFrame(bytes.NewReader(unmasked), RoleServer, 0); err == nil {
		t.Errorf("ReadFrame(server) accepted an unmasked frame")
	}
	if _, err := ReadFrame(bytes.NewReader(masked), RoleClient, 0); err == nil {
		t.Errorf("ReadFrame(client) accepted a masked frame")
	}

	f, err := ReadFrame(bytes.NewReader(masked), RoleServer, 0)
	if err != nil {
		t.Fatalf("ReadFrame(server) error = %v", err)
	}
	if string(f.Payload) != "Hello" {
		t.Errorf("ReadFrame(server) payload = %q, want %q", f.Payload, "Hello")
	}

	f, err = ReadFrame(bytes.NewReader(unmasked), RoleClient, 0)
	if err != nil {
		t.Fatalf("ReadFrame(client) error = %v", err)
	}
	if string(f.Payload) != "hello" {
		t.Errorf("ReadFrame(client) payload = %q, want %q", f.Payload, "hello")
	}
}

func TestReadFrameEnforcesMaxFrameSize(t *testing.T) {
	raw := []byte{0x82, 0x7e, 0x01, 0x00} // Claims a 256-byte binary payload.
	if _, err := ReadFrame(bytes.NewReader(raw), RoleClient, 100); err == nil {
		t.Errorf("ReadFrame() accepted a frame over the size limit")
	}
}

func TestWriteFrameThenReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	f := Frame{Fin: true, Opcode: OpcodeText, Payload: []byte("round trip")}

	if err := WriteFrame(&buf, RoleClient, f); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	got, err := ReadFrame(&buf, RoleServer, 0)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !reflect.DeepEqual(got.Payload, f.Payload) || got.Opcode != f.Opcode || got.Fin != f.Fin {
		t.Errorf("round trip = %+v, want %+v", got, f)
	}
}

func TestReadFullTranslatesShortReads(t *testing.T) {
	_, err := readHeader(bytes.NewReader(nil))
	if !errors.Is(err, NoDataAvailable) {
		t.Errorf("readHeader() on empty stream error = %v, want NoDataAvailable", err)
	}
}

func TestFrameSize(t *testing.T) {
	tests := []struct {
		name       string
		payloadLen int
		masked     bool
		want       int
	}{
		{name: "tiny_unmasked", payloadLen: 10, masked: false, want: 2 + 10},
		{name: "tiny_masked", payloadLen: 10, masked: true, want: 2 + 4 + 10},
		{name: "16bit_unmasked", payloadLen: 300, masked: false, want: 4 + 300},
		{name: "64bit_masked", payloadLen: 1 << 17, masked: true, want: 10 + 4 + (1 << 17)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FrameSize(tt.payloadLen, tt.masked); got != tt.want {
				t.Errorf("FrameSize() = %d, want %d", got, tt.want)
			}
		})
	}
}
