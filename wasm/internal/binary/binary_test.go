package binary

import (
	"errors"
	"io"
	"testing"
)

func TestReaderReadByte(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	r := NewReader(data)

	for i, want := range data {
		if r.Position() != i {
			t.Errorf("position before read %d: got %d, want %d", i, r.Position(), i)
		}
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte %d: %v", i, err)
		}
		if b != want {
			t.Errorf("ReadByte %d: got 0x%02x, want 0x%02x", i, b, want)
		}
	}

	_, err := r.ReadByte()
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestReaderReadBytesTruncated(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	if _, err := r.ReadBytes(3); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
	if r.Position() != 0 {
		t.Errorf("failed read moved position to %d", r.Position())
	}
}

func TestReaderSkip(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03})
	if err := r.Skip(2); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len after skip: got %d, want 1", r.Len())
	}
}

func TestReaderReadU32(t *testing.T) {
	tests := []struct {
		data []byte
		want uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xffffffff},
	}

	for _, tt := range tests {
		got, err := NewReader(tt.data).ReadU32()
		if err != nil {
			t.Fatalf("ReadU32(%x): %v", tt.data, err)
		}
		if got != tt.want {
			t.Errorf("ReadU32(%x) = %d, want %d", tt.data, got, tt.want)
		}
	}
}

func TestReaderReadU32Overflow(t *testing.T) {
	_, err := NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}).ReadU32()
	if !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestReaderReadNameInvalidUTF8(t *testing.T) {
	_, err := NewReader([]byte{0x02, 0xff, 0xfe}).ReadName()
	if err == nil {
		t.Error("expected error for invalid UTF-8")
	}
}

func TestWriterSigned(t *testing.T) {
	tests := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{0x00}},
		{-1, []byte{0x7f}},
		{63, []byte{0x3f}},
		{64, []byte{0xc0, 0x00}},
		{-64, []byte{0x40}},
		{-65, []byte{0xbf, 0x7f}},
	}

	for _, tt := range tests {
		w := NewWriter()
		w.WriteS64(tt.v)
		if string(w.Bytes()) != string(tt.want) {
			t.Errorf("WriteS64(%d) = %x, want %x", tt.v, w.Bytes(), tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteU32LE(0x6d736100)
	w.WriteU32(624485)
	w.WriteS64(-123456)
	w.WriteName("wasi_thread_start")

	r := NewReader(w.Bytes())
	magic, err := r.ReadU32LE()
	if err != nil || magic != 0x6d736100 {
		t.Fatalf("ReadU32LE = %x, %v", magic, err)
	}
	u, err := r.ReadU32()
	if err != nil || u != 624485 {
		t.Fatalf("ReadU32 = %d, %v", u, err)
	}
	s, err := r.ReadS64()
	if err != nil || s != -123456 {
		t.Fatalf("ReadS64 = %d, %v", s, err)
	}
	name, err := r.ReadName()
	if err != nil || name != "wasi_thread_start" {
		t.Fatalf("ReadName = %q, %v", name, err)
	}
	if r.Len() != 0 {
		t.Errorf("unread bytes: %d", r.Len())
	}
}

func TestParseErrorUnwrap(t *testing.T) {
	r := NewReader(nil)
	err := r.WrapError("import section", io.ErrUnexpectedEOF)

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Section != "import section" {
		t.Errorf("section = %q", pe.Section)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("ParseError does not unwrap to cause")
	}
}
